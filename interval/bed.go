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

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/klauspost/compress/gzip"
)

// Entry represents a single target interval, with 0-based half-open
// coordinates.
type Entry struct {
	ChrName string
	Start0  int
	End     int
}

// Len returns the number of bases covered by the interval.
func (e Entry) Len() int {
	return e.End - e.Start0
}

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// isHeaderLine returns true for BED comment, track and browser lines.
func isHeaderLine(line []byte) bool {
	return bytes.HasPrefix(line, []byte("#")) ||
		bytes.HasPrefix(line, []byte("track")) ||
		bytes.HasPrefix(line, []byte("browser"))
}

// ReadBED loads the intervals of a target BED, in file order.  Only the first
// three columns are inspected, and every interval must be non-empty.  Unlike a BED union, overlapping intervals are
// kept as-is, since each one is queried separately by the coverage tool.
func ReadBED(reader io.Reader) (entries []Entry, err error) {
	scanner := bufio.NewScanner(reader)
	var tokens [3][]byte
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		if isHeaderLine(curLine) {
			continue
		}
		nToken := getTokens(tokens[:], curLine)
		if nToken != 3 {
			if nToken == 0 {
				continue
			}
			return nil, fmt.Errorf("interval.ReadBED: line %d has fewer tokens than expected", lineIdx)
		}
		var start, end int
		if start, err = strconv.Atoi(gunsafe.BytesToString(tokens[1])); err != nil {
			return nil, fmt.Errorf("interval.ReadBED: line %d: %v", lineIdx, err)
		}
		if start < 0 {
			return nil, fmt.Errorf("interval.ReadBED: negative start coordinate %s on line %d", tokens[1], lineIdx)
		}
		if end, err = strconv.Atoi(gunsafe.BytesToString(tokens[2])); err != nil {
			return nil, fmt.Errorf("interval.ReadBED: line %d: %v", lineIdx, err)
		}
		if end <= start {
			// samtools bedcov rejects empty intervals, so they are caught here
			// before any sample is processed.
			return nil, fmt.Errorf("interval.ReadBED: invalid coordinate pair on line %d", lineIdx)
		}
		entries = append(entries, Entry{
			// tokens[0] points into the scanner buffer, so it must be copied.
			ChrName: string(tokens[0]),
			Start0:  start,
			End:     end,
		})
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// LoadBED is a wrapper for ReadBED that takes a path instead of an io.Reader.
// Gzipped BEDs are detected by file extension.
func LoadBED(ctx context.Context, path string) (entries []Entry, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	if entries, err = ReadBED(reader); err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	log.Printf("BED %s loaded, %d interval(s), %d base(s) covered.", path, len(entries), UnionBases(entries))
	return entries, nil
}

// TotalBases returns the summed length of all intervals, counting overlaps
// once per interval.
func TotalBases(entries []Entry) int {
	total := 0
	for _, e := range entries {
		total += e.Len()
	}
	return total
}

// UnionBases returns the number of distinct bases covered by the intervals.
// Input need not be sorted.
func UnionBases(entries []Entry) int {
	total := 0
	for _, chrIntervals := range Union(entries) {
		for _, e := range chrIntervals {
			total += e.Len()
		}
	}
	return total
}

// Chroms returns the distinct chromosome names mentioned in entries, in order
// of first appearance.
func Chroms(entries []Entry) []string {
	seen := map[string]bool{}
	var names []string
	for _, e := range entries {
		if !seen[e.ChrName] {
			seen[e.ChrName] = true
			names = append(names, e.ChrName)
		}
	}
	return names
}
