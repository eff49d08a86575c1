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
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bioqc/coverage"
	"github.com/grailbio/bioqc/report"
	"github.com/grailbio/bioqc/sexcall"
	"github.com/joho/godotenv"
)

// Opts configures a QC batch.
type Opts struct {
	// CramDir is scanned (non-recursively) for *.cram inputs.
	CramDir string
	// BedPath is the target-region BED, optionally gzipped.
	BedPath string
	// OutputDir receives reports/<sample>/ for each sample.
	OutputDir string
	// IntermediateDir receives bam_files/<sample>.bam{,.bai}.
	IntermediateDir string
	// SamtoolsPath is the samtools executable.
	SamtoolsPath string
	// ReferencePath is the reference FASTA used to decode CRAMs.  Optional.
	ReferencePath string
	// Parallelism is the maximum number of samples processed at once.
	Parallelism int
	// Coverage and Sex configure the two QC computations.
	Coverage coverage.Opts
	Sex      sexcall.Opts
	// HistogramBins is the number of depth-distribution bins.
	HistogramBins int
	// ContinueOnError keeps processing the remaining samples after a sample
	// fails.  The failures are still reported in Run's error.
	ContinueOnError bool
	// ShowProgress logs CRAM conversion progress.
	ShowProgress bool
}

// DefaultOpts are the defaults used by the command line.
var DefaultOpts = Opts{
	SamtoolsPath:  "samtools",
	Parallelism:   1,
	Coverage:      coverage.DefaultOpts,
	Sex:           sexcall.DefaultOpts,
	HistogramBins: report.DefaultBins,
	ShowProgress:  true,
}

// Environment variables read by LoadEnv.
const (
	EnvCramDir         = "CRAM_FILES_DIR"
	EnvBedPath         = "BED_FILE"
	EnvOutputDir       = "OUTPUT_DIR"
	EnvIntermediateDir = "INTERMEDIATE_DIR"
	EnvReferencePath   = "REF_GEN_FILE"
	EnvSamtoolsPath    = "SAMTOOLS_PATH"
	EnvThresholds      = "COVERAGE_THRESHOLDS"
)

// LoadEnv returns DefaultOpts overridden by environment variables.  dotenv
// files, if given and present, are loaded first; variables already set in the
// environment take precedence over them.
func LoadEnv(dotenv ...string) (Opts, error) {
	for _, path := range dotenv {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return Opts{}, errors.E(err, "load", path)
		}
		log.Debug.Printf("loaded environment from %s", path)
	}
	opts := DefaultOpts
	opts.CramDir = getEnv(EnvCramDir, opts.CramDir)
	opts.BedPath = getEnv(EnvBedPath, opts.BedPath)
	opts.OutputDir = getEnv(EnvOutputDir, opts.OutputDir)
	opts.IntermediateDir = getEnv(EnvIntermediateDir, opts.IntermediateDir)
	opts.ReferencePath = getEnv(EnvReferencePath, opts.ReferencePath)
	opts.SamtoolsPath = getEnv(EnvSamtoolsPath, opts.SamtoolsPath)
	if s := os.Getenv(EnvThresholds); s != "" {
		thresholds, err := ParseThresholds(s)
		if err != nil {
			return Opts{}, errors.E(err, EnvThresholds)
		}
		opts.Coverage.Thresholds = thresholds
	}
	return opts, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ParseThresholds parses a comma-separated list of non-negative depths, e.g.
// "10,30".
func ParseThresholds(s string) ([]int, error) {
	var thresholds []int
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		t, err := strconv.Atoi(field)
		if err != nil {
			return nil, errors.E(errors.Invalid, "coverage threshold", field, err)
		}
		if t < 0 {
			return nil, errors.E(errors.Invalid, "negative coverage threshold", field)
		}
		thresholds = append(thresholds, t)
	}
	if len(thresholds) == 0 {
		return nil, errors.E(errors.Invalid, "no coverage thresholds in", s)
	}
	return thresholds, nil
}

// Validate checks that the required inputs are set.
func (o Opts) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"cram directory", o.CramDir},
		{"BED path", o.BedPath},
		{"output directory", o.OutputDir},
		{"intermediate directory", o.IntermediateDir},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errors.E(errors.Invalid, "missing required option(s): "+strings.Join(missing, ", "))
	}
	if o.Parallelism <= 0 {
		return errors.E(errors.Invalid, "parallelism must be positive, got", strconv.Itoa(o.Parallelism))
	}
	return nil
}
