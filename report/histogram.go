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
package report

// DefaultBins is the number of histogram bins used by the pipeline.
const DefaultBins = 50

// Bin is one histogram bar, covering [Start, End).  The last bin of a
// histogram also includes End.
type Bin struct {
	Start float64
	End   float64
	Count int
}

// Histogram splits [min(values), max(values)] into nBins equal-width bins and
// counts the values in each.  When all values are equal, the range is widened
// to [v-0.5, v+0.5].  It returns nil for empty input or nBins <= 0.
func Histogram(values []int, nBins int) []Bin {
	if len(values) == 0 || nBins <= 0 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	start, end := float64(lo), float64(hi)
	if lo == hi {
		start, end = start-0.5, end+0.5
	}
	width := (end - start) / float64(nBins)
	bins := make([]Bin, nBins)
	for i := range bins {
		bins[i].Start = start + float64(i)*width
		bins[i].End = start + float64(i+1)*width
	}
	bins[nBins-1].End = end
	for _, v := range values {
		idx := int((float64(v) - start) / width)
		if idx >= nBins {
			idx = nBins - 1
		}
		bins[idx].Count++
	}
	return bins
}
