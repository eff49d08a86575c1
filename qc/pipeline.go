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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/sync/multierror"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/bioqc/coverage"
	"github.com/grailbio/bioqc/encoding/fasta"
	"github.com/grailbio/bioqc/interval"
	"github.com/grailbio/bioqc/report"
	"github.com/grailbio/bioqc/samtools"
	"github.com/grailbio/bioqc/sexcall"
)

// SampleResult is the QC outcome of one sample.
type SampleResult struct {
	Sample   Sample
	Layout   Layout
	Coverage coverage.Summary
	Sex      sexcall.Result
}

// Tools is the subset of samtools.Toolkit used by the pipeline.
type Tools interface {
	ConvertCRAM(ctx context.Context, cramPath, bamPath string) error
	Index(ctx context.Context, bamPath string) error
	Bedcov(ctx context.Context, bedPath, bamPath string) ([]byte, error)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ProcessSample runs QC on one sample: CRAM to BAM conversion and indexing
// (each skipped if its output already exists), target coverage, and sex
// inference.  The reports are written only once every computation has
// succeeded, so a failed sample leaves no report behind.
func ProcessSample(ctx context.Context, tools Tools, s Sample, opts Opts) (res SampleResult, err error) {
	layout := NewLayout(opts, s)
	slog, err := OpenSampleLog(s.Name, layout.Log)
	if err != nil {
		return res, err
	}
	defer func() {
		if err != nil {
			slog.Errorf("processing failed: %v", err)
		}
		if cerr := slog.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	slog.Printf("processing sample %s from %s", s.Name, s.CramPath)

	if err = os.MkdirAll(layout.ReportDir, 0777); err != nil {
		return res, errors.E(err, "create report directory", layout.ReportDir)
	}
	if err = prepareBAM(ctx, tools, s, layout, slog); err != nil {
		return res, err
	}
	if names, herr := bamRefNames(ctx, layout.BAM); herr != nil {
		slog.Errorf("could not read BAM header, skipping contig check: %v", herr)
	} else {
		for _, label := range []string{sexcall.ChromX, sexcall.ChromY} {
			if !interval.HasChrom(names, label) {
				slog.Printf("warning: BAM reference has no chromosome %s; its coverage will be 0", label)
			}
		}
	}

	slog.Printf("computing coverage over %s", opts.BedPath)
	table, err := tools.Bedcov(ctx, opts.BedPath, layout.BAM)
	if err != nil {
		return res, err
	}
	cov, err := coverage.AggregateReader(bytes.NewReader(table), opts.Coverage)
	if err != nil {
		return res, errors.E(err, "bedcov output for", s.Name)
	}
	sex := sexcall.Infer(cov.Regions, opts.Sex)
	slog.Printf("mean depth %.2fx over %d base(s); X %.2fx, Y %.2fx, predicted sex %s",
		cov.MeanDepth, cov.TotalBases, sex.XCoverage, sex.YCoverage, sex.PredictedSex)

	if err = writeReports(ctx, layout, cov, sex, opts.HistogramBins, slog); err != nil {
		return res, err
	}
	slog.Printf("reports written to %s", layout.ReportDir)
	return SampleResult{Sample: s, Layout: layout, Coverage: cov, Sex: sex}, nil
}

// writeReports writes the coverage, histogram and sex reports of a sample.
// If any of them fails, the ones already written are removed, so a sample
// has either all of its reports or none.
func writeReports(ctx context.Context, layout Layout, cov coverage.Summary, sex sexcall.Result, nBins int, slog *SampleLog) error {
	var written []string
	for _, w := range []struct {
		path  string
		write func() error
	}{
		{layout.Coverage, func() error { return report.WriteCoverage(ctx, layout.Coverage, cov) }},
		{layout.Histogram, func() error { return report.WriteHistogram(ctx, layout.Histogram, cov, nBins) }},
		{layout.Sex, func() error { return report.WriteSex(ctx, layout.Sex, sex) }},
	} {
		if err := w.write(); err != nil {
			for _, path := range written {
				if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
					slog.Errorf("remove report %s: %v", path, rerr)
				}
			}
			return err
		}
		written = append(written, w.path)
	}
	return nil
}

func prepareBAM(ctx context.Context, tools Tools, s Sample, layout Layout, slog *SampleLog) error {
	if exists(layout.BAM) {
		slog.Printf("BAM already exists: %s", layout.BAM)
	} else {
		if err := os.MkdirAll(filepath.Dir(layout.BAM), 0777); err != nil {
			return errors.E(err, "create BAM directory for", s.Name)
		}
		slog.Printf("converting %s to %s", s.CramPath, layout.BAM)
		if err := tools.ConvertCRAM(ctx, s.CramPath, layout.BAM); err != nil {
			// Don't leave a partial BAM that a rerun would mistake for a
			// finished one.
			if rerr := os.Remove(layout.BAM); rerr != nil && !os.IsNotExist(rerr) {
				slog.Errorf("remove partial BAM: %v", rerr)
			}
			return err
		}
	}
	if exists(layout.BAMIndex) {
		slog.Printf("BAM already indexed: %s", layout.BAMIndex)
		return nil
	}
	slog.Printf("indexing %s", layout.BAM)
	return tools.Index(ctx, layout.BAM)
}

// NewToolkit returns the samtools toolkit configured by opts.
func NewToolkit(opts Opts) *samtools.Toolkit {
	tk := &samtools.Toolkit{
		Path:      opts.SamtoolsPath,
		Reference: opts.ReferencePath,
	}
	if opts.ShowProgress {
		tk.Progress = logProgress()
	}
	return tk
}

// logProgress logs conversion progress in 10% steps.  The returned function
// may be shared by concurrent conversions.
func logProgress() samtools.ProgressFunc {
	var mu sync.Mutex
	lastDecile := int64(-1)
	return func(done, total int64) {
		mu.Lock()
		defer mu.Unlock()
		if total <= 0 {
			return
		}
		decile := 10 * done / total
		if decile == lastDecile {
			return
		}
		lastDecile = decile
		if decile == 10 {
			lastDecile = -1
		}
		log.Printf("CRAM to BAM conversion: %d%% (%d/%d estimated bytes)", 10*decile, done, total)
	}
}

// checkReference verifies that the reference FASTA exists and, when it is
// indexed, that it has sex chromosomes.  A missing index is not an error;
// samtools builds one on first use.
func checkReference(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return errors.E(errors.NotExist, "reference FASTA not found:", path)
	}
	entries, err := fasta.LoadIndex(ctx, path)
	if err != nil {
		log.Printf("reference %s is not indexed, skipping contig check: %v", path, err)
		return nil
	}
	names := fasta.SeqNames(entries)
	for _, label := range []string{sexcall.ChromX, sexcall.ChromY} {
		if !interval.HasChrom(names, label) {
			log.Printf("warning: reference %s has no chromosome %s", path, label)
		}
	}
	return nil
}

// Run processes every CRAM in opts.CramDir.  By default it stops at the first
// failed sample; with opts.ContinueOnError it processes all samples and
// returns the results of the successful ones along with an error describing
// the failures.
func Run(ctx context.Context, tools Tools, opts Opts) ([]SampleResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if info, err := os.Stat(opts.CramDir); err != nil || !info.IsDir() {
		return nil, errors.E(errors.NotExist, "CRAM directory not found:", opts.CramDir)
	}
	targets, err := interval.LoadBED(ctx, opts.BedPath)
	if err != nil {
		return nil, errors.E(err, "load target BED")
	}
	chroms := interval.Chroms(targets)
	for _, label := range []string{sexcall.ChromX, sexcall.ChromY} {
		if !interval.HasChrom(chroms, label) {
			log.Printf("warning: %s has no chromosome %s targets; sex calls will be Unknown or Female", opts.BedPath, label)
		}
	}
	if opts.ReferencePath != "" {
		if err := checkReference(ctx, opts.ReferencePath); err != nil {
			return nil, err
		}
	}
	for _, dir := range []string{opts.OutputDir, opts.IntermediateDir} {
		if err := os.MkdirAll(dir, 0777); err != nil {
			return nil, errors.E(err, "create", dir)
		}
	}
	samples, err := FindSamples(opts.CramDir)
	if err != nil {
		return nil, err
	}
	log.Printf("QC of %d sample(s) from %s started", len(samples), opts.CramDir)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	parallelism := opts.Parallelism
	if parallelism > len(samples) {
		parallelism = len(samples)
	}
	var (
		// Each index is written by exactly one job.
		results = make([]*SampleResult, len(samples))
		errs    = multierror.NewMultiError(len(samples))
	)
	err = traverse.Each(parallelism, func(jobIdx int) error {
		for i := jobIdx; i < len(samples); i += parallelism {
			if ctx.Err() != nil {
				return nil
			}
			res, err := ProcessSample(ctx, tools, samples[i], opts)
			if err != nil {
				log.Error.Printf("sample %s failed: %v", samples[i].Name, err)
				errs.Add(errors.E(err, "sample", samples[i].Name))
				if !opts.ContinueOnError {
					cancel()
					return nil
				}
				continue
			}
			results[i] = &res
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	var done []SampleResult
	for _, res := range results {
		if res != nil {
			done = append(done, *res)
		}
	}
	if err := errs.Err(); err != nil {
		log.Error.Printf("QC finished with failures: %d of %d sample(s) succeeded", len(done), len(samples))
		return done, err
	}
	log.Printf("QC of %d sample(s) finished", len(samples))
	return done, nil
}
