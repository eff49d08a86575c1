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
package qc

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/bioqc/sexcall"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const targetBED = `track name=targets
chr1	0	100	target1
chrX	0	100	target2
chrY	0	100	target3
`

// fakeTools stands in for samtools.  ConvertCRAM writes a header-only BAM,
// Index an empty index, and Bedcov replays a canned table per sample.
type fakeTools struct {
	refs        []string
	bedcov      map[string]string
	failConvert map[string]bool
	failBedcov  map[string]bool

	mu        sync.Mutex
	converted []string
	indexed   []string
}

func sampleOf(bamPath string) string {
	return strings.TrimSuffix(filepath.Base(bamPath), ".bam")
}

func (f *fakeTools) ConvertCRAM(ctx context.Context, cramPath, bamPath string) error {
	f.mu.Lock()
	f.converted = append(f.converted, cramPath)
	f.mu.Unlock()
	if f.failConvert[sampleOf(bamPath)] {
		// Leave a partial output behind, like an interrupted samtools view.
		if err := ioutil.WriteFile(bamPath, []byte("partial"), 0644); err != nil {
			return err
		}
		return errors.E("samtools view failed")
	}
	return writeBAM(ctx, bamPath, f.refs)
}

func (f *fakeTools) Index(ctx context.Context, bamPath string) error {
	f.mu.Lock()
	f.indexed = append(f.indexed, bamPath)
	f.mu.Unlock()
	return ioutil.WriteFile(bamPath+".bai", nil, 0644)
}

func (f *fakeTools) Bedcov(ctx context.Context, bedPath, bamPath string) ([]byte, error) {
	name := sampleOf(bamPath)
	if f.failBedcov[name] {
		return nil, errors.E("samtools bedcov failed for", name)
	}
	return []byte(f.bedcov[name]), nil
}

// writeBAM writes a BAM holding only a header with the named references.  A
// sam.Reference belongs to a single header, so they are created per call.
func writeBAM(ctx context.Context, path string, names []string) error {
	var refs []*sam.Reference
	for _, name := range names {
		ref, err := sam.NewReference(name, "", "", 1000, nil, nil)
		if err != nil {
			return err
		}
		refs = append(refs, ref)
	}
	header, err := sam.NewHeader(nil, refs)
	if err != nil {
		return err
	}
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	w, err := bam.NewWriter(out.Writer(ctx), header, 1)
	if err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return out.Close(ctx)
}

func newFakeTools() *fakeTools {
	return &fakeTools{
		refs: []string{"chr1", "chrX", "chrY"},
		bedcov: map[string]string{
			"female": "chr1\t0\t100\ttarget1\t0\t30\nchrX\t0\t100\ttarget2\t0\t15\nchrY\t0\t100\ttarget3\t0\t0\n",
			"male":   "chr1\t0\t100\ttarget1\t0\t30\nchrX\t0\t100\ttarget2\t0\t15\nchrY\t0\t100\ttarget3\t0\t5\n",
		},
		failConvert: map[string]bool{},
		failBedcov:  map[string]bool{},
	}
}

// setup lays out a CRAM directory holding the given (empty) samples and a
// target BED, and returns options pointing at them.
func setup(t *testing.T, samples ...string) (Opts, func()) {
	dir, cleanup := testutil.TempDir(t, "", "qc")
	cramDir := filepath.Join(dir, "crams")
	require.NoError(t, os.MkdirAll(cramDir, 0777))
	for _, s := range samples {
		require.NoError(t, ioutil.WriteFile(filepath.Join(cramDir, s+".cram"), nil, 0644))
	}
	bedPath := filepath.Join(dir, "targets.bed")
	require.NoError(t, ioutil.WriteFile(bedPath, []byte(targetBED), 0644))

	opts := DefaultOpts
	opts.CramDir = cramDir
	opts.BedPath = bedPath
	opts.OutputDir = filepath.Join(dir, "out")
	opts.IntermediateDir = filepath.Join(dir, "tmp")
	opts.ShowProgress = false
	return opts, cleanup
}

func readFile(t *testing.T, path string) string {
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	opts, cleanup := setup(t, "male", "female")
	defer cleanup()
	opts.Parallelism = 2
	tools := newFakeTools()

	results, err := Run(ctx, tools, opts)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Results are in sample order.
	expect.EQ(t, results[0].Sample.Name, "female")
	expect.EQ(t, results[1].Sample.Name, "male")
	expect.EQ(t, results[0].Sex.PredictedSex, sexcall.Female)
	expect.EQ(t, results[1].Sex.PredictedSex, sexcall.Male)
	expect.EQ(t, results[0].Coverage.MeanDepth, 15.0)
	expect.EQ(t, results[1].Coverage.TotalBases, 300)

	layout := NewLayout(opts, NewSample(filepath.Join(opts.CramDir, "female.cram")))
	expect.EQ(t, readFile(t, layout.Sex),
		"Chromosome X coverage: 15.00x\nChromosome Y coverage: 0.00x\nPredicted sex: Female\n")
	assert.Contains(t, readFile(t, layout.Coverage), "Mean depth: 15.00x")
	assert.Contains(t, readFile(t, layout.Histogram), "BIN_START\tBIN_END\tCOUNT")
	assert.Contains(t, readFile(t, layout.Log), "INFO - processing sample female")
	expect.EQ(t, len(tools.converted), 2)
	expect.EQ(t, len(tools.indexed), 2)

	// A rerun reuses the BAMs and their indexes.
	results, err = Run(ctx, tools, opts)
	require.NoError(t, err)
	expect.EQ(t, len(results), 2)
	expect.EQ(t, len(tools.converted), 2)
	expect.EQ(t, len(tools.indexed), 2)
	assert.Contains(t, readFile(t, layout.Log), "BAM already exists")
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	opts, cleanup := setup(t, "female", "male")
	defer cleanup()
	tools := newFakeTools()
	tools.failBedcov["female"] = true

	results, err := Run(ctx, tools, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "female")
	expect.EQ(t, len(results), 0)
	// The failed sample has no reports, and the later sample never started.
	layout := NewLayout(opts, NewSample(filepath.Join(opts.CramDir, "female.cram")))
	for _, path := range []string{layout.Coverage, layout.Histogram, layout.Sex} {
		_, err := os.Stat(path)
		expect.True(t, os.IsNotExist(err), path)
	}
	assert.Contains(t, readFile(t, layout.Log), "ERROR - processing failed")
	expect.EQ(t, tools.converted, []string{filepath.Join(opts.CramDir, "female.cram")})
}

func TestRunContinueOnError(t *testing.T) {
	ctx := context.Background()
	opts, cleanup := setup(t, "female", "male")
	defer cleanup()
	opts.ContinueOnError = true
	tools := newFakeTools()
	tools.failBedcov["female"] = true

	results, err := Run(ctx, tools, opts)
	require.Error(t, err)
	require.Len(t, results, 1)
	expect.EQ(t, results[0].Sample.Name, "male")
	male := NewLayout(opts, results[0].Sample)
	assert.Contains(t, readFile(t, male.Sex), "Predicted sex: Male")
}

func TestRunMalformedBedcov(t *testing.T) {
	ctx := context.Background()
	opts, cleanup := setup(t, "female")
	defer cleanup()
	tools := newFakeTools()
	tools.bedcov["female"] = "chr1\t0\t100\ttarget1\t0\tdeep\n"

	_, err := Run(ctx, tools, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestProcessSampleRemovesPartialBAM(t *testing.T) {
	ctx := context.Background()
	opts, cleanup := setup(t, "female")
	defer cleanup()
	tools := newFakeTools()
	tools.failConvert["female"] = true

	s := NewSample(filepath.Join(opts.CramDir, "female.cram"))
	_, err := ProcessSample(ctx, tools, s, opts)
	require.Error(t, err)
	_, err = os.Stat(NewLayout(opts, s).BAM)
	expect.True(t, os.IsNotExist(err))
	expect.EQ(t, len(tools.indexed), 0)
}

func TestProcessSampleReportFailure(t *testing.T) {
	ctx := context.Background()
	opts, cleanup := setup(t, "female")
	defer cleanup()
	s := NewSample(filepath.Join(opts.CramDir, "female.cram"))
	layout := NewLayout(opts, s)
	// A directory in the histogram's place makes the second report fail after
	// the coverage report has been written.
	require.NoError(t, os.MkdirAll(filepath.Join(layout.Histogram, "blocker"), 0777))

	_, err := ProcessSample(ctx, newFakeTools(), s, opts)
	require.Error(t, err)
	for _, path := range []string{layout.Coverage, layout.Sex} {
		_, err := os.Stat(path)
		expect.True(t, os.IsNotExist(err), path)
	}
	info, err := os.Stat(layout.Histogram)
	require.NoError(t, err)
	expect.True(t, info.IsDir())
}

func TestProcessSampleMissingSexChromosomes(t *testing.T) {
	ctx := context.Background()
	opts, cleanup := setup(t, "female")
	defer cleanup()
	tools := newFakeTools()
	tools.refs = []string{"chr1"}
	tools.bedcov["female"] = "chr1\t0\t100\ttarget1\t0\t30\n"

	s := NewSample(filepath.Join(opts.CramDir, "female.cram"))
	res, err := ProcessSample(ctx, tools, s, opts)
	require.NoError(t, err)
	expect.EQ(t, res.Sex.PredictedSex, sexcall.Unknown)
	assert.Contains(t, readFile(t, res.Layout.Log), "BAM reference has no chromosome X")
}

func TestRunInvalidInputs(t *testing.T) {
	ctx := context.Background()
	opts, cleanup := setup(t)
	defer cleanup()

	_, err := Run(ctx, newFakeTools(), Opts{Parallelism: 1})
	expect.True(t, errors.Is(errors.Invalid, err), err)

	// No CRAMs.
	_, err = Run(ctx, newFakeTools(), opts)
	expect.True(t, errors.Is(errors.NotExist, err), err)

	opts.CramDir = filepath.Join(opts.CramDir, "missing")
	_, err = Run(ctx, newFakeTools(), opts)
	expect.True(t, errors.Is(errors.NotExist, err), err)
}

func TestRunReference(t *testing.T) {
	ctx := context.Background()
	opts, cleanup := setup(t, "female")
	defer cleanup()

	opts.ReferencePath = filepath.Join(filepath.Dir(opts.BedPath), "ref.fa")
	_, err := Run(ctx, newFakeTools(), opts)
	expect.True(t, errors.Is(errors.NotExist, err), err)

	// An unindexed reference is accepted.
	require.NoError(t, ioutil.WriteFile(opts.ReferencePath, []byte(">chr1\nACGT\n"), 0644))
	_, err = Run(ctx, newFakeTools(), opts)
	require.NoError(t, err)

	require.NoError(t, ioutil.WriteFile(opts.ReferencePath+".fai", []byte("chr1\t4\t6\t4\t5\n"), 0644))
	require.NoError(t, checkReference(ctx, opts.ReferencePath))
	require.NoError(t, ioutil.WriteFile(opts.ReferencePath+".fai", []byte("chr1\t4\n"), 0644))
	require.NoError(t, checkReference(ctx, opts.ReferencePath))
}

func TestBAMRefNames(t *testing.T) {
	ctx := context.Background()
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "refs.bam")
	require.NoError(t, writeBAM(ctx, path, []string{"chr1", "chrX"}))

	names, err := bamRefNames(ctx, path)
	require.NoError(t, err)
	expect.EQ(t, names, []string{"chr1", "chrX"})

	_, err = bamRefNames(ctx, filepath.Join(dir, "missing.bam"))
	expect.True(t, err != nil)
}
