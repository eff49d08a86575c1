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
	"fmt"
	"strconv"
	"strings"
)

// bedcovMinFields is the minimum number of tab-separated fields in a
// "samtools bedcov" row: chrom, start, end, two BED passthrough columns, and
// the total depth.
const bedcovMinFields = 6

// depthField is the 0-based column holding the summed per-base depth.
const depthField = 5

// Region is the read depth observed over one target interval.
type Region struct {
	Chrom string
	// Start is 0-based, End is exclusive.
	Start int
	End   int
	// Depth is the sum of per-base depths across [Start, End), following the
	// samtools bedcov convention; it is not an average.
	Depth int
}

// Len returns the interval length.
func (r Region) Len() int {
	return r.End - r.Start
}

// ParseError reports a bedcov row that does not have the expected shape.
type ParseError struct {
	// Line is the 1-based row number within the input.
	Line int
	// Text is the offending row.
	Text string
	Msg  string
	// Err is the underlying strconv error, if any.
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("coverage: line %d: %s: %v (row %q)", e.Line, e.Msg, e.Err, e.Text)
	}
	return fmt.Sprintf("coverage: line %d: %s (row %q)", e.Line, e.Msg, e.Text)
}

// ParseBedcovLine parses one "samtools bedcov" output row.  lineNo is only
// used for error reporting.
func ParseBedcovLine(line string, lineNo int) (Region, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < bedcovMinFields {
		return Region{}, &ParseError{Line: lineNo, Text: line,
			Msg: fmt.Sprintf("expected at least %d fields, found %d", bedcovMinFields, len(fields))}
	}
	parseInt := func(name, s string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, &ParseError{Line: lineNo, Text: line, Msg: "non-integer " + name, Err: err}
		}
		return v, nil
	}
	var (
		r   = Region{Chrom: fields[0]}
		err error
	)
	if r.Chrom == "" {
		return Region{}, &ParseError{Line: lineNo, Text: line, Msg: "empty chromosome"}
	}
	if r.Start, err = parseInt("start", fields[1]); err != nil {
		return Region{}, err
	}
	if r.End, err = parseInt("end", fields[2]); err != nil {
		return Region{}, err
	}
	if r.Depth, err = parseInt("depth", strings.TrimSpace(fields[depthField])); err != nil {
		return Region{}, err
	}
	if r.Start < 0 {
		return Region{}, &ParseError{Line: lineNo, Text: line, Msg: "negative start"}
	}
	if r.End <= r.Start {
		return Region{}, &ParseError{Line: lineNo, Text: line, Msg: "non-positive region length"}
	}
	if r.Depth < 0 {
		return Region{}, &ParseError{Line: lineNo, Text: line, Msg: "negative depth"}
	}
	return r, nil
}
