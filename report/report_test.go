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

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/bioqc/coverage"
	"github.com/grailbio/bioqc/sexcall"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSummary(t *testing.T) coverage.Summary {
	s, err := coverage.Aggregate([]string{
		"chr1\t0\t10\t.\t0\t5",
		"chrX\t10\t15\t.\t0\t20",
	}, coverage.DefaultOpts)
	require.NoError(t, err)
	return s
}

func TestFormatCoverage(t *testing.T) {
	expected := `Mean depth: 10.00x
% covered >= 10x: 33.33%
% covered >= 30x: 0.00%

Coverage per region:
Chromosome	Start	End	Depth
chr1	0	10	5x
chrX	10	15	20x
`
	assert.Equal(t, expected, FormatCoverage(testSummary(t)))
}

func TestFormatSex(t *testing.T) {
	expected := `Chromosome X coverage: 30.00x
Chromosome Y coverage: 0.00x
Predicted sex: Female
`
	assert.Equal(t, expected, FormatSex(sexcall.CallDefault(30, 0)))
}

func TestWriteReports(t *testing.T) {
	ctx := context.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	s := testSummary(t)
	covPath := filepath.Join(tempDir, "coverage.txt")
	sexPath := filepath.Join(tempDir, "sex.txt")
	histPath := filepath.Join(tempDir, "hist.tsv")
	require.NoError(t, WriteCoverage(ctx, covPath, s))
	require.NoError(t, WriteSex(ctx, sexPath, sexcall.Infer(s.Regions, sexcall.DefaultOpts)))
	require.NoError(t, WriteHistogram(ctx, histPath, s, 3))

	data, err := ioutil.ReadFile(covPath)
	require.NoError(t, err)
	assert.Equal(t, FormatCoverage(s), string(data))

	data, err = ioutil.ReadFile(sexPath)
	require.NoError(t, err)
	assert.Equal(t, "Chromosome X coverage: 20.00x\nChromosome Y coverage: 0.00x\nPredicted sex: Female\n", string(data))

	data, err = ioutil.ReadFile(histPath)
	require.NoError(t, err)
	assert.Equal(t, "BIN_START\tBIN_END\tCOUNT\n5.00\t10.00\t1\n10.00\t15.00\t0\n15.00\t20.00\t1\n", string(data))
}

func TestHistogram(t *testing.T) {
	expect.EQ(t, len(Histogram(nil, DefaultBins)), 0)
	expect.EQ(t, len(Histogram([]int{1, 2}, 0)), 0)

	bins := Histogram([]int{0, 1, 2, 3, 4, 10}, 5)
	expect.EQ(t, bins, []Bin{
		{0, 2, 2},
		{2, 4, 2},
		{4, 6, 1},
		{6, 8, 0},
		{8, 10, 1},
	})

	bins = Histogram([]int{7, 7, 7}, 2)
	expect.EQ(t, bins, []Bin{{6.5, 7, 0}, {7, 7.5, 3}})

	total := 0
	for _, b := range Histogram([]int{3, 99, 12, 45, 45, 0, 1000}, DefaultBins) {
		total += b.Count
	}
	expect.EQ(t, total, 7)
}
