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
package main

import (
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/bioqc/coverage"
	"github.com/grailbio/bioqc/report"
	"github.com/grailbio/bioqc/sexcall"
)

// coverageReport aggregates the bedcov table at path and writes the coverage
// and sex reports to w.
func coverageReport(ctx context.Context, w io.Writer, path string, covOpts coverage.Opts, sexOpts sexcall.Opts) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.E(err, "open", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	cov, err := coverage.AggregateReader(in.Reader(ctx), covOpts)
	if err != nil {
		return errors.E(err, path)
	}
	sex := sexcall.Infer(cov.Regions, sexOpts)
	if _, err = io.WriteString(w, report.FormatCoverage(cov)); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n"+report.FormatSex(sex))
	return err
}
