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
package samtools

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// ProgressFunc receives the number of output bytes written so far and the
// expected final size.  total is an estimate, so done is capped at total; a
// successful conversion always ends with a done == total report.
type ProgressFunc func(done, total int64)

// bamToCRAMRatio estimates the size of a BAM from the CRAM it is decoded
// from.
const bamToCRAMRatio = 3

// DefaultPollInterval is how often output growth is sampled for progress.
const DefaultPollInterval = time.Second

// Toolkit invokes the samtools subcommands used by the QC pipeline.
type Toolkit struct {
	// Path is the samtools executable.  Defaults to "samtools" on $PATH.
	Path string
	// Reference is the reference FASTA used to decode CRAMs.  Optional if the
	// CRAM reference can be found through REF_PATH/REF_CACHE.
	Reference string
	// Runner defaults to ExecRunner.
	Runner Runner
	// Progress, if non-nil, is called periodically during CRAM conversion.
	Progress ProgressFunc
	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
}

func (tk *Toolkit) path() string {
	if tk.Path == "" {
		return "samtools"
	}
	return tk.Path
}

func (tk *Toolkit) runner() Runner {
	if tk.Runner == nil {
		return ExecRunner{}
	}
	return tk.Runner
}

func (tk *Toolkit) run(ctx context.Context, args ...string) (Result, error) {
	log.Debug.Printf("running %s %s", tk.path(), strings.Join(args, " "))
	res, err := tk.runner().Run(ctx, tk.path(), args...)
	if err != nil {
		return res, err
	}
	// samtools reports some recoverable conditions (e.g. a missing index for
	// an unused region) on stderr with exit code 0.
	if stderr := strings.TrimSpace(string(res.Stderr)); stderr != "" {
		log.Printf("samtools %s: %s", args[0], stderr)
	}
	return res, nil
}

// ConvertCRAM decodes cramPath into a BAM at bamPath.
func (tk *Toolkit) ConvertCRAM(ctx context.Context, cramPath, bamPath string) error {
	args := []string{"view", "-b", "-o", bamPath}
	if tk.Reference != "" {
		args = append(args, "-T", tk.Reference)
	}
	args = append(args, cramPath)

	if tk.Progress != nil {
		var total int64
		if info, err := file.Stat(ctx, cramPath); err == nil {
			total = info.Size() * bamToCRAMRatio
		}
		stop := tk.watchGrowth(ctx, bamPath, total)
		_, err := tk.run(ctx, args...)
		stop(err == nil)
		if err != nil {
			return errors.Wrapf(err, "convert %s to %s", cramPath, bamPath)
		}
		return nil
	}
	if _, err := tk.run(ctx, args...); err != nil {
		return errors.Wrapf(err, "convert %s to %s", cramPath, bamPath)
	}
	return nil
}

// watchGrowth reports the size of path to tk.Progress until the returned
// function is called.  stop(true) makes a final done == total report.
func (tk *Toolkit) watchGrowth(ctx context.Context, path string, total int64) (stop func(succeeded bool)) {
	interval := tk.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if info, err := file.Stat(ctx, path); err == nil {
					done := info.Size()
					if total > 0 && done > total {
						done = total
					}
					tk.Progress(done, total)
				}
			}
		}
	}()
	return func(succeeded bool) {
		cancel()
		wg.Wait()
		if succeeded {
			tk.Progress(total, total)
		}
	}
}

// Index creates bamPath.bai.
func (tk *Toolkit) Index(ctx context.Context, bamPath string) error {
	if _, err := tk.run(ctx, "index", bamPath); err != nil {
		return errors.Wrapf(err, "index %s", bamPath)
	}
	return nil
}

// Bedcov returns the "samtools bedcov" table of bamPath over the intervals of
// bedPath: one row per BED line, with the summed per-base depth appended.
func (tk *Toolkit) Bedcov(ctx context.Context, bedPath, bamPath string) ([]byte, error) {
	res, err := tk.run(ctx, "bedcov", bedPath, bamPath)
	if err != nil {
		return nil, errors.Wrapf(err, "bedcov %s over %s", bamPath, bedPath)
	}
	return res.Stdout, nil
}

// IsToolError reports whether err was caused by a failed tool invocation.
func IsToolError(err error) bool {
	_, ok := errors.Cause(err).(*ToolError)
	return ok
}
