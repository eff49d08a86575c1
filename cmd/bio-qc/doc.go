/*Command bio-qc runs coverage and sex-inference QC over a directory of CRAM
  files.  Each CRAM is converted to BAM and indexed with samtools (both steps
  are skipped when their output already exists), coverage over a target BED is
  computed with "samtools bedcov", and the mean depth, percent of target bases
  covered at each threshold and the X/Y sex call are written to
  <out>/reports/<sample>/.

  Usage:
    bio-qc run -cram-dir=crams -bed=targets.bed -out=qc -intermediate=scratch
    bio-qc coverage saved.bedcov.tsv

  Defaults are read from CRAM_FILES_DIR, BED_FILE, OUTPUT_DIR,
  INTERMEDIATE_DIR, REF_GEN_FILE, SAMTOOLS_PATH and COVERAGE_THRESHOLDS, which
  may be set in a .env file in the working directory.
*/
package main
