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
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestFindSamples(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	_, err := FindSamples(dir)
	expect.True(t, errors.Is(errors.NotExist, err), err)

	for _, name := range []string{"s2.cram", "s1.cram", "s1.cram.crai", "notes.txt"} {
		require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	// Subdirectories are not searched.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0777))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "nested", "s0.cram"), nil, 0644))

	samples, err := FindSamples(dir)
	require.NoError(t, err)
	expect.EQ(t, samples, []Sample{
		{Name: "s1", CramPath: filepath.Join(dir, "s1.cram")},
		{Name: "s2", CramPath: filepath.Join(dir, "s2.cram")},
	})
}

func TestNewLayout(t *testing.T) {
	opts := Opts{OutputDir: "/out", IntermediateDir: "/tmp/qc"}
	s := NewSample("/data/NA12878.final.cram")
	expect.EQ(t, s.Name, "NA12878.final")
	expect.EQ(t, NewLayout(opts, s), Layout{
		BAM:       "/tmp/qc/bam_files/NA12878.final.bam",
		BAMIndex:  "/tmp/qc/bam_files/NA12878.final.bam.bai",
		ReportDir: "/out/reports/NA12878.final",
		Coverage:  "/out/reports/NA12878.final/coverage_NA12878.final_results.txt",
		Histogram: "/out/reports/NA12878.final/coverage_NA12878.final_histogram.tsv",
		Sex:       "/out/reports/NA12878.final/sex_inference_NA12878.final.txt",
		Log:       "/out/reports/NA12878.final/logs/logs_NA12878.final.log",
	})
}

func TestSampleLog(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "logs", "s1.log")

	for i := 0; i < 2; i++ {
		l, err := OpenSampleLog("s1", path)
		require.NoError(t, err)
		l.Printf("run %d", i)
		l.Errorf("bad input")
		require.NoError(t, l.Close())
	}
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	// Reopening appends.
	text := string(data)
	expect.True(t, containsInOrder(text, "INFO - run 0", "ERROR - bad input", "INFO - run 1"), text)
}

func containsInOrder(s string, subs ...string) bool {
	for _, sub := range subs {
		i := strings.Index(s, sub)
		if i < 0 {
			return false
		}
		s = s[i+len(sub):]
	}
	return true
}
