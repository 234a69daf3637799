// Package sam handles the framing of the SAM streams that aligners
// produce: skipping headers, counting alignment lines, and writing
// SAM, BAM or CRAM destinations.
//
// BAM and CRAM output is delegated to samtools, which must be
// available in the search path.
package sam
