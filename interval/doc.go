/*Package interval loads target-region BED files and reconciles chromosome
  naming conventions across references.
  Intervals are kept in file order and are not merged, since each target
  interval is reported separately; Union provides the merged view where
  distinct targeted bases are needed.
  Chromosome labels are compared with NormalizeChromName, so "chrX" and "X"
  name the same contig.
*/
package interval
