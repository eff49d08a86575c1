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
package main

import (
	"context"
	"fmt"
	golog "log"
	"strconv"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bioqc/qc"
	"github.com/grailbio/bioqc/sexcall"
	"v.io/x/lib/cmdline"
)

const dotenvPath = ".env"

func formatThresholds(thresholds []int) string {
	s := make([]string, len(thresholds))
	for i, t := range thresholds {
		s[i] = strconv.Itoa(t)
	}
	return strings.Join(s, ",")
}

// sexFlags registers the sex-call thresholds on cmd.
func sexFlags(cmd *cmdline.Command, opts *sexcall.Opts) {
	cmd.Flags.Float64Var(&opts.MinXDepth, "min-x-depth", opts.MinXDepth,
		"Average X depth that must be exceeded for any sex call")
	cmd.Flags.Float64Var(&opts.MinYDepth, "min-y-depth", opts.MinYDepth,
		"Average Y depth that must be exceeded for a Male call")
	cmd.Flags.Float64Var(&opts.MinYXRatio, "min-yx-ratio", opts.MinYXRatio,
		"Lowest Y:X depth ratio accepted for a Male call; 0 accepts any Y coverage")
}

func newCmdRun(defaults qc.Opts) *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "run",
		Short: "Convert, index and QC every CRAM in a directory",
		Long: `
Run converts each *.cram in -cram-dir to BAM, indexes it, computes coverage
over the -bed targets with samtools bedcov, infers sex from the X and Y
targets, and writes one report directory per sample under -out.

Flag defaults are read from the environment (CRAM_FILES_DIR, BED_FILE,
OUTPUT_DIR, INTERMEDIATE_DIR, REF_GEN_FILE, SAMTOOLS_PATH and
COVERAGE_THRESHOLDS), which is first populated from ./.env if present.`,
	}
	opts := defaults
	cmd.Flags.StringVar(&opts.CramDir, "cram-dir", opts.CramDir, "Directory holding the input *.cram files")
	cmd.Flags.StringVar(&opts.BedPath, "bed", opts.BedPath, "Target-region BED, optionally gzipped")
	cmd.Flags.StringVar(&opts.OutputDir, "out", opts.OutputDir, "Report output directory")
	cmd.Flags.StringVar(&opts.IntermediateDir, "intermediate", opts.IntermediateDir, "Directory for the converted BAMs")
	cmd.Flags.StringVar(&opts.ReferencePath, "ref", opts.ReferencePath, "Reference FASTA used to decode the CRAMs")
	cmd.Flags.StringVar(&opts.SamtoolsPath, "samtools", opts.SamtoolsPath, "samtools executable")
	cmd.Flags.IntVar(&opts.Parallelism, "parallelism", opts.Parallelism, "Maximum number of samples processed at once")
	cmd.Flags.IntVar(&opts.HistogramBins, "histogram-bins", opts.HistogramBins, "Number of bins in the depth histogram")
	cmd.Flags.BoolVar(&opts.ContinueOnError, "continue-on-error", opts.ContinueOnError,
		"Keep processing the remaining samples after a sample fails")
	cmd.Flags.BoolVar(&opts.ShowProgress, "progress", opts.ShowProgress, "Log CRAM conversion progress")
	thresholds := cmd.Flags.String("thresholds", formatThresholds(opts.Coverage.Thresholds),
		"Comma-separated depths for the percent-covered report lines")
	sexFlags(cmd, &opts.Sex)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return fmt.Errorf("run takes no arguments, but got %v", argv)
		}
		t, err := qc.ParseThresholds(*thresholds)
		if err != nil {
			return err
		}
		opts.Coverage.Thresholds = t
		ctx := context.Background()
		results, err := qc.Run(ctx, qc.NewToolkit(opts), opts)
		for _, r := range results {
			fmt.Fprintf(env.Stdout, "%s\t%.2fx\t%s\t%s\n",
				r.Sample.Name, r.Coverage.MeanDepth, r.Sex.PredictedSex, r.Layout.ReportDir)
		}
		return err
	})
	return cmd
}

func newCmdCoverage(defaults qc.Opts) *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "coverage",
		Short:    "Summarize a saved samtools bedcov output",
		ArgsName: "bedcov.tsv",
		Long: `
Coverage reads the output of "samtools bedcov" from the given path (which may
be any path supported by grailbio/base/file) and prints the coverage summary
followed by the sex call, in the same format as the per-sample reports.`,
	}
	covOpts := defaults.Coverage
	sexOpts := defaults.Sex
	thresholds := cmd.Flags.String("thresholds", formatThresholds(covOpts.Thresholds),
		"Comma-separated depths for the percent-covered report lines")
	sexFlags(cmd, &sexOpts)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("coverage takes one bedcov path, but got %v", argv)
		}
		t, err := qc.ParseThresholds(*thresholds)
		if err != nil {
			return err
		}
		covOpts.Thresholds = t
		return coverageReport(context.Background(), env.Stdout, argv[0], covOpts, sexOpts)
	})
	return cmd
}

func main() {
	golog.SetFlags(golog.Ldate | golog.Ltime | golog.Lmicroseconds | golog.Lshortfile)
	defaults, err := qc.LoadEnv(dotenvPath)
	if err != nil {
		log.Fatalf("bio-qc: %v", err)
	}
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-qc",
			Short:    "Coverage and sex-inference QC of CRAM alignments",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdRun(defaults),
				newCmdCoverage(defaults),
			},
		})
}
