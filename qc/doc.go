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
Package qc runs the per-sample QC batch over a directory of CRAM files.

For each sample, in order:

  <intermediate>/bam_files/<sample>.bam       samtools view -b (skipped if present)
  <intermediate>/bam_files/<sample>.bam.bai   samtools index (skipped if present)
  samtools bedcov <bed> <bam>                 coverage.AggregateReader, sexcall.Infer
  <out>/reports/<sample>/                     coverage, histogram and sex reports

Reports are written only after every step of the sample has succeeded.
Samples are processed in parallel up to Opts.Parallelism; each sample logs to
its own file under <out>/reports/<sample>/logs/.
*/
package qc
