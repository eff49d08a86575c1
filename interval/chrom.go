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

import "strings"

// chrPrefix is the UCSC-style naming prefix; GRCh-style references omit it.
const chrPrefix = "chr"

// NormalizeChromName returns the canonical form of a chromosome label: upper
// case, with at most one leading "chr" prefix (any case) removed.  "chrX",
// "X", "x" and "CHRX" all normalize to "X".  A bare "chr" is left alone,
// since stripping it would leave an empty name.
func NormalizeChromName(raw string) string {
	name := strings.TrimSpace(raw)
	if len(name) > len(chrPrefix) && strings.EqualFold(name[:len(chrPrefix)], chrPrefix) {
		name = name[len(chrPrefix):]
	}
	return strings.ToUpper(name)
}

// SameChrom reports whether two chromosome labels refer to the same
// chromosome under different naming conventions.  The comparison is on the
// full normalized token, so "X" never matches "X2".
func SameChrom(a, b string) bool {
	return NormalizeChromName(a) == NormalizeChromName(b)
}

// HasChrom reports whether any of names refers to the chromosome label.
func HasChrom(names []string, label string) bool {
	for _, name := range names {
		if SameChrom(name, label) {
			return true
		}
	}
	return false
}
