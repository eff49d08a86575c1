// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package qc

import (
	"fmt"
	golog "log"
	"os"
	"path/filepath"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// SampleLog is the logging context of one sample.  Messages go to the
// sample's own log file and to the process log, prefixed with the sample
// name.  Each sample gets its own SampleLog; they share no state.
type SampleLog struct {
	sample string
	f      *os.File
	out    *golog.Logger
}

// OpenSampleLog opens (appending) the log file at path, creating its
// directory as needed.
func OpenSampleLog(sample, path string) (*SampleLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
		return nil, errors.E(err, "create log directory for", sample)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0666)
	if err != nil {
		return nil, errors.E(err, "open sample log", path)
	}
	return &SampleLog{
		sample: sample,
		f:      f,
		out:    golog.New(f, "", golog.LstdFlags),
	}, nil
}

// Printf logs an informational message.
func (l *SampleLog) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.out.Print("INFO - " + msg)
	log.Printf("%s: %s", l.sample, msg)
}

// Errorf logs an error message.
func (l *SampleLog) Errorf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.out.Print("ERROR - " + msg)
	log.Error.Printf("%s: %s", l.sample, msg)
}

// Close closes the log file.
func (l *SampleLog) Close() error {
	return l.f.Close()
}
