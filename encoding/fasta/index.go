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

// Package fasta reads the samtools faidx index (.fai) of a reference FASTA.
// The index lists the reference contigs without the sequence data having to
// be read.
package fasta

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// IndexSuffix is appended to a FASTA path to name its index.
const IndexSuffix = ".fai"

// Each line of a .fai is "<sequence name>\t<length>\t<byte offset>\t<bases
// per line>\t<bytes per line>", e.g. "chr3\t12345\t9000\t80\t81".
var indexRegExp = regexp.MustCompile(`^(\S+)\t(\d+)\t(\d+)\t(\d+)\t(\d+)`)

// IndexEntry is one sequence of a FASTA index.
type IndexEntry struct {
	Name      string
	Length    uint64
	Offset    uint64
	LineBase  uint64
	LineWidth uint64
}

// ReadIndex parses a .fai.  Entries are returned in file order.
func ReadIndex(in io.Reader) ([]IndexEntry, error) {
	var entries []IndexEntry
	scanner := bufio.NewScanner(in)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		matches := indexRegExp.FindStringSubmatch(scanner.Text())
		if len(matches) != 6 {
			return nil, errors.E(errors.Invalid, "invalid index line", strconv.Itoa(lineNo)+":", scanner.Text())
		}
		ent := IndexEntry{Name: matches[1]}
		// The regexp admits only digits, so these fail only on overflow.
		for i, dst := range []*uint64{&ent.Length, &ent.Offset, &ent.LineBase, &ent.LineWidth} {
			v, err := strconv.ParseUint(matches[i+2], 10, 64)
			if err != nil {
				return nil, errors.E(errors.Invalid, err, "index line", strconv.Itoa(lineNo))
			}
			*dst = v
		}
		entries = append(entries, ent)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// LoadIndex reads the index of the FASTA at fastaPath, i.e. fastaPath+".fai".
func LoadIndex(ctx context.Context, fastaPath string) (entries []IndexEntry, err error) {
	path := fastaPath + IndexSuffix
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open FASTA index", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if entries, err = ReadIndex(in.Reader(ctx)); err != nil {
		return nil, errors.E(err, path)
	}
	return entries, nil
}

// SeqNames returns the sequence names of entries.
func SeqNames(entries []IndexEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
