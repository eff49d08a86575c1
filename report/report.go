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

// Package report renders per-sample QC results as text files.
package report

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/bioqc/coverage"
	"github.com/grailbio/bioqc/sexcall"
)

// FormatCoverage renders a coverage summary: the labeled metrics, then the
// per-region table.
func FormatCoverage(s coverage.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mean depth: %.2fx\n", s.MeanDepth)
	for _, t := range s.Thresholds {
		fmt.Fprintf(&b, "%% covered >= %dx: %.2f%%\n", t, s.PercentCovered[t])
	}
	b.WriteString("\nCoverage per region:\n")
	b.WriteString("Chromosome\tStart\tEnd\tDepth\n")
	for _, r := range s.Regions {
		fmt.Fprintf(&b, "%s\t%d\t%d\t%dx\n", r.Chrom, r.Start, r.End, r.Depth)
	}
	return b.String()
}

// FormatSex renders a sex call.
func FormatSex(r sexcall.Result) string {
	return fmt.Sprintf("Chromosome X coverage: %.2fx\nChromosome Y coverage: %.2fx\nPredicted sex: %s\n",
		r.XCoverage, r.YCoverage, r.PredictedSex)
}

// writeFile creates path and fills it with write.  The file is closed even if
// write fails.
func writeFile(ctx context.Context, path string, write func(w io.Writer) error) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.E(err, "create", path)
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = errors.E(cerr, "close", path)
		}
	}()
	if err = write(out.Writer(ctx)); err != nil {
		return errors.E(err, "write", path)
	}
	return nil
}

// WriteCoverage writes FormatCoverage(s) to path.
func WriteCoverage(ctx context.Context, path string, s coverage.Summary) error {
	return writeFile(ctx, path, func(w io.Writer) error {
		_, err := io.WriteString(w, FormatCoverage(s))
		return err
	})
}

// WriteSex writes FormatSex(r) to path.
func WriteSex(ctx context.Context, path string, r sexcall.Result) error {
	return writeFile(ctx, path, func(w io.Writer) error {
		_, err := io.WriteString(w, FormatSex(r))
		return err
	})
}

// WriteHistogram writes the depth distribution of the regions of s as a TSV
// with columns BIN_START, BIN_END and COUNT.
func WriteHistogram(ctx context.Context, path string, s coverage.Summary, nBins int) error {
	return writeFile(ctx, path, func(w io.Writer) error {
		tw := tsv.NewWriter(w)
		tw.WriteString("BIN_START\tBIN_END\tCOUNT")
		if err := tw.EndLine(); err != nil {
			return err
		}
		for _, bin := range Histogram(s.Depths(), nBins) {
			tw.WriteString(strconv.FormatFloat(bin.Start, 'f', 2, 64))
			tw.WriteString(strconv.FormatFloat(bin.End, 'f', 2, 64))
			tw.WriteInt64(int64(bin.Count))
			if err := tw.EndLine(); err != nil {
				return err
			}
		}
		return tw.Flush()
	})
}
