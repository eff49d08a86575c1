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
package coverage

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Opts controls aggregation.
type Opts struct {
	// Thresholds are the depths at which the fraction of covered target bases
	// is reported.  Duplicates are ignored.
	Thresholds []int
}

// DefaultOpts reports coverage at 10x and 30x.
var DefaultOpts = Opts{
	Thresholds: []int{10, 30},
}

// Summary is the coverage of a sample over a target-region set.
type Summary struct {
	// MeanDepth is sum(depth*len)/sum(len) over all regions, or 0 if the
	// regions cover no bases.
	MeanDepth float64
	// PercentCovered maps each threshold t to the percentage of target bases
	// in regions with depth >= t.
	PercentCovered map[int]float64
	// Thresholds lists the keys of PercentCovered in increasing order.
	Thresholds []int
	// TotalBases is sum(len) over all regions.
	TotalBases int
	// Regions are the parsed input rows, in input order.
	Regions []Region
}

// aggregator accumulates regions one at a time.  The zero value is not
// usable; use newAggregator.
type aggregator struct {
	thresholds   []int
	coveredBases []int
	totalBases   int
	// weightedDepth is sum(depth*len).  Depths are already per-region sums, so
	// this can exceed int32 for whole-exome inputs, but not int64.
	weightedDepth int64
	regions       []Region
}

func newAggregator(opts Opts) *aggregator {
	seen := map[int]bool{}
	var thresholds []int
	for _, t := range opts.Thresholds {
		if !seen[t] {
			seen[t] = true
			thresholds = append(thresholds, t)
		}
	}
	sort.Ints(thresholds)
	return &aggregator{
		thresholds:   thresholds,
		coveredBases: make([]int, len(thresholds)),
	}
}

func (a *aggregator) add(r Region) {
	n := r.Len()
	a.totalBases += n
	a.weightedDepth += int64(r.Depth) * int64(n)
	for i, t := range a.thresholds {
		if r.Depth >= t {
			a.coveredBases[i] += n
		}
	}
	a.regions = append(a.regions, r)
}

func (a *aggregator) summary() Summary {
	s := Summary{
		PercentCovered: make(map[int]float64, len(a.thresholds)),
		Thresholds:     a.thresholds,
		TotalBases:     a.totalBases,
		Regions:        a.regions,
	}
	for i, t := range a.thresholds {
		s.PercentCovered[t] = 0
		if a.totalBases > 0 {
			s.PercentCovered[t] = 100 * float64(a.coveredBases[i]) / float64(a.totalBases)
		}
	}
	if a.totalBases > 0 {
		s.MeanDepth = float64(a.weightedDepth) / float64(a.totalBases)
	}
	return s
}

// isBlank returns true for rows that carry no data, e.g. the empty string
// produced by a trailing newline.
func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// Aggregate parses bedcov rows and summarizes them.  It stops at the first
// malformed row and returns a *ParseError; no partial summary is returned.
// Blank rows are skipped.  An input with no data rows is not an error: it
// yields an all-zero summary.
func Aggregate(rows []string, opts Opts) (Summary, error) {
	a := newAggregator(opts)
	for i, row := range rows {
		row = strings.TrimRight(row, "\r\n")
		if isBlank(row) {
			continue
		}
		r, err := ParseBedcovLine(row, i+1)
		if err != nil {
			return Summary{}, err
		}
		a.add(r)
	}
	return a.summary(), nil
}

// AggregateReader is Aggregate for rows streamed from a reader, e.g. the
// standard output of samtools bedcov or a saved copy of it.
func AggregateReader(in io.Reader, opts Opts) (Summary, error) {
	a := newAggregator(opts)
	scanner := bufio.NewScanner(in)
	// Rows carry every BED column, and some BEDs have long name fields.
	scanner.Buffer(make([]byte, 64*1024), 16<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		row := strings.TrimRight(scanner.Text(), "\r")
		if isBlank(row) {
			continue
		}
		r, err := ParseBedcovLine(row, lineNo)
		if err != nil {
			return Summary{}, err
		}
		a.add(r)
	}
	if err := scanner.Err(); err != nil {
		return Summary{}, fmt.Errorf("coverage: read bedcov rows: %v", err)
	}
	return a.summary(), nil
}

// Depths returns the per-region depth values, in input order.
func (s Summary) Depths() []int {
	depths := make([]int, len(s.Regions))
	for i, r := range s.Regions {
		depths[i] = r.Depth
	}
	return depths
}
