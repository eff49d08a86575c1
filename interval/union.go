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
package interval

import "sort"

// Union merges touching/overlapping intervals and eliminates empty ones,
// returning a chromosome-keyed map of disjoint, sorted interval sets.
// Chromosomes whose intervals are all empty are still present as keys, to
// distinguish 'mentioned' chromosomes from unmentioned ones.
func Union(entries []Entry) map[string][]Entry {
	byChr := make(map[string][]Entry)
	for _, e := range entries {
		byChr[e.ChrName] = append(byChr[e.ChrName], e)
	}
	for chrName, chrEntries := range byChr {
		sort.Slice(chrEntries, func(i, j int) bool {
			return chrEntries[i].Start0 < chrEntries[j].Start0
		})
		merged := []Entry{}
		prevStart, prevEnd := -1, -1
		for _, e := range chrEntries {
			if e.End == e.Start0 {
				continue
			}
			if prevEnd == -1 {
				prevStart, prevEnd = e.Start0, e.End
				continue
			}
			if e.Start0 > prevEnd {
				// New interval doesn't overlap previous one, so we can save the
				// previous one.
				merged = append(merged, Entry{ChrName: chrName, Start0: prevStart, End: prevEnd})
				prevStart, prevEnd = e.Start0, e.End
				continue
			}
			// Intervals overlap, merge them.
			if e.End > prevEnd {
				prevEnd = e.End
			}
		}
		if prevEnd != -1 {
			merged = append(merged, Entry{ChrName: chrName, Start0: prevStart, End: prevEnd})
		}
		byChr[chrName] = merged
	}
	return byChr
}
