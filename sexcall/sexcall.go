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

// Package sexcall infers genetic sex from the target-region read depth on the
// X and Y chromosomes.
package sexcall

import (
	"github.com/grailbio/bioqc/coverage"
	"github.com/grailbio/bioqc/interval"
)

// Sex is a categorical sex call.
type Sex int

const (
	// Unknown means X coverage is absent, or Y coverage is ambiguous.
	Unknown Sex = iota
	Female
	Male
)

func (s Sex) String() string {
	switch s {
	case Female:
		return "Female"
	case Male:
		return "Male"
	default:
		return "Unknown"
	}
}

// Chromosome labels, matched with interval.SameChrom.
const (
	ChromX = "X"
	ChromY = "Y"
)

// Opts holds the depth thresholds of the calling rule.  The zero value is the
// presence/absence rule: any X depth with zero Y depth is Female, any X depth
// with any Y depth is Male.
type Opts struct {
	// MinXDepth is the average X depth that must be exceeded for any call.
	MinXDepth float64
	// MinYDepth is the average Y depth that must be exceeded for a Male call.
	// At or below it, Y is treated as absent.
	MinYDepth float64
	// MinYXRatio is the lowest Y:X depth ratio accepted for a Male call.  A Y
	// depth above MinYDepth but with a lower ratio is called Unknown.
	MinYXRatio float64
}

// DefaultOpts is the presence/absence rule.
var DefaultOpts = Opts{}

// Result is the sex call of one sample.
type Result struct {
	XCoverage    float64
	YCoverage    float64
	PredictedSex Sex
}

// ChromosomeAverageDepth returns the length-weighted mean depth over the
// regions on the chromosome named by label, matched with interval.SameChrom.
// It returns 0 if no region matches.
func ChromosomeAverageDepth(regions []coverage.Region, label string) float64 {
	var (
		weighted int64
		total    int64
	)
	for _, r := range regions {
		if !interval.SameChrom(r.Chrom, label) {
			continue
		}
		n := int64(r.Len())
		weighted += int64(r.Depth) * n
		total += n
	}
	if total == 0 {
		return 0
	}
	return float64(weighted) / float64(total)
}

// ChromosomeAverageDepthRows is ChromosomeAverageDepth over raw bedcov rows.
// Every row is validated, not only the matching ones, so a malformed input
// fails the same way it does for coverage.Aggregate.
func ChromosomeAverageDepthRows(rows []string, label string) (float64, error) {
	s, err := coverage.Aggregate(rows, coverage.Opts{})
	if err != nil {
		return 0, err
	}
	return ChromosomeAverageDepth(s.Regions, label), nil
}

// Call applies the calling rule to the average X and Y depths.
func Call(x, y float64, opts Opts) Result {
	res := Result{XCoverage: x, YCoverage: y, PredictedSex: Unknown}
	if !(x > opts.MinXDepth) {
		return res
	}
	if !(y > opts.MinYDepth) {
		res.PredictedSex = Female
		return res
	}
	if y/x >= opts.MinYXRatio {
		res.PredictedSex = Male
	}
	return res
}

// CallDefault is Call with DefaultOpts.
func CallDefault(x, y float64) Result {
	return Call(x, y, DefaultOpts)
}

// Infer computes the X and Y depths of a sample and calls its sex.
func Infer(regions []coverage.Region, opts Opts) Result {
	return Call(
		ChromosomeAverageDepth(regions, ChromX),
		ChromosomeAverageDepth(regions, ChromY),
		opts)
}
