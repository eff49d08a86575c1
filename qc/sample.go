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
	"path/filepath"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
)

const cramExt = ".cram"

// Sample is one input alignment.
type Sample struct {
	// Name is the CRAM file name without its extension.
	Name     string
	CramPath string
}

// NewSample names a sample after its CRAM file.
func NewSample(cramPath string) Sample {
	base := filepath.Base(cramPath)
	return Sample{
		Name:     strings.TrimSuffix(base, filepath.Ext(base)),
		CramPath: cramPath,
	}
}

// FindSamples lists the *.cram files directly under dir, sorted by path.  It
// is an error for dir to hold none.
func FindSamples(dir string) ([]Sample, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+cramExt))
	if err != nil {
		return nil, errors.E(err, "glob", dir)
	}
	if len(paths) == 0 {
		return nil, errors.E(errors.NotExist, "no CRAM files found in", dir)
	}
	sort.Strings(paths)
	samples := make([]Sample, len(paths))
	for i, path := range paths {
		samples[i] = NewSample(path)
	}
	return samples, nil
}

// Layout names the files of one sample.
type Layout struct {
	BAM       string
	BAMIndex  string
	ReportDir string
	Coverage  string
	Histogram string
	Sex       string
	Log       string
}

// NewLayout returns the file layout of sample s under opts' directories.
func NewLayout(opts Opts, s Sample) Layout {
	bam := filepath.Join(opts.IntermediateDir, "bam_files", s.Name+".bam")
	reportDir := filepath.Join(opts.OutputDir, "reports", s.Name)
	return Layout{
		BAM:       bam,
		BAMIndex:  bam + ".bai",
		ReportDir: reportDir,
		Coverage:  filepath.Join(reportDir, "coverage_"+s.Name+"_results.txt"),
		Histogram: filepath.Join(reportDir, "coverage_"+s.Name+"_histogram.tsv"),
		Sex:       filepath.Join(reportDir, "sex_inference_"+s.Name+".txt"),
		Log:       filepath.Join(reportDir, "logs", "logs_"+s.Name+".log"),
	}
}
