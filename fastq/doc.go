// Package fastq frames sequencing reads as FASTQ text.
//
// It provides the Read record type, the quality encodings a FASTQ file
// may use, a Reader that splits a stream into 4-line records, and a
// Writer that streams records into a named pipe or file through a
// bounded queue, so that a slow consumer such as an external aligner
// throttles the producer instead of letting memory grow.
package fastq
