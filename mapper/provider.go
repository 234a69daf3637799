// elMap: a mapper execution engine for sequencing pipelines.
// Copyright (c) 2026 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elmap/blob/master/LICENSE.txt>.

package mapper

import (
	"fmt"

	"github.com/exascience/elmap/fastq"
)

// Provider is the strategy for one aligner. It knows the names of the
// executables, the naming convention of the index files, the argument
// grammar of the aligner, and how to build the command pipelines for
// single-end and paired-end mapping. Providers hold no state.
type Provider interface {
	Name() string
	DefaultVersion() string
	DefaultFlavor() string
	IsFlavorSupported(flavor string) bool

	// DefaultArguments are the mapping arguments used when a mapping
	// does not specify any.
	DefaultArguments(flavor string) []string

	IndexerExecutables(flavor string) []string
	MapperExecutable(flavor string) string

	// IndexFiles lists file name suffixes that must each match at least
	// one file of an unpacked index.
	IndexFiles(flavor string) []string

	// IndexCommands returns the commands that build an index of
	// layout.Genome into layout.Dir. They run in order.
	IndexCommands(layout *IndexLayout) ([]Command, error)

	// QualityArguments returns the arguments selecting the quality
	// encoding, or a configuration error if the aligner cannot read it.
	QualityArguments(flavor string, format fastq.Format) ([]string, error)

	// MultipleInstancesArguments returns the arguments that let several
	// instances share one index in memory, or nil if the aligner has
	// no such mode.
	MultipleInstancesArguments() []string

	// DockerImage names the container image providing the given version.
	DockerImage(version string) string

	// MapSE and MapPE return an initialized process for single-end and
	// paired-end input respectively.
	MapSE(em *EntryMapping, in Input) (*Process, error)
	MapPE(em *EntryMapping, in Input) (*Process, error)
}

// QualityOptions selects quality arguments for an aligner. Illumina
// applies to both Illumina 1.3+ and 1.5+ encodings. Formats listed in
// Unsupported are rejected.
type QualityOptions struct {
	Sanger, Illumina, Solexa []string
	Unsupported              []fastq.Format
}

// Arguments returns the arguments for format.
func (q QualityOptions) Arguments(mapper string, format fastq.Format) ([]string, error) {
	for _, f := range q.Unsupported {
		if f == format || (f == fastq.Illumina && format == fastq.Illumina15) {
			return nil, errorf(Configuration, mapper, "quality encoding %v is not supported", format)
		}
	}
	var args []string
	switch format {
	case fastq.Sanger:
		args = q.Sanger
	case fastq.Illumina, fastq.Illumina15:
		args = q.Illumina
	case fastq.Solexa:
		args = q.Solexa
	default:
		return nil, &Error{Kind: Configuration, Mapper: mapper, Err: fmt.Errorf("unknown quality encoding %v", format)}
	}
	return append([]string(nil), args...), nil
}
