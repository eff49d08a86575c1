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

/*
Package coverage summarizes the read depth of a sample over a set of target
intervals, as reported by "samtools bedcov".

Each input row is "chrom\tstart\tend\t<bed col 4>\t<bed col 5>\tdepth", where
depth is the sum of per-base depths over the interval.  The summary reports
the mean depth weighted by interval length, and for each threshold t the
percentage of target bases lying in intervals with depth >= t.

Parsing is strict: the first malformed row aborts the whole summary, so a
broken upstream tool can never be mistaken for a zero-coverage sample.
*/
package coverage
