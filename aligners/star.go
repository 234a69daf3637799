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

package aligners

import (
	"math"
	"os"
	"path/filepath"

	"github.com/exascience/elmap/fastq"
	"github.com/exascience/elmap/mapper"
)

// Long is the STAR flavor for long reads.
const Long = "long"

// STAR is the provider for the Spliced Transcripts Alignment to a
// Reference aligner. Each mapping runs in a private working directory,
// since STAR writes its logs and temporary files there.
type STAR struct{}

func (STAR) Name() string           { return "star" }
func (STAR) DefaultVersion() string { return "2.7.10b" }
func (STAR) DefaultFlavor() string  { return Standard }

func (STAR) IsFlavorSupported(flavor string) bool {
	return flavor == Standard || flavor == Long
}

func (STAR) DefaultArguments(string) []string {
	return nil
}

func (s STAR) IndexerExecutables(flavor string) []string {
	return []string{s.MapperExecutable(flavor)}
}

func (STAR) MapperExecutable(flavor string) string {
	if flavor == Long {
		return "STARlong"
	}
	return "STAR"
}

func (STAR) IndexFiles(string) []string {
	return []string{"Genome", "SA", "SAindex", "chrNameLength.txt"}
}

// saIndexBases scales the suffix array index to the genome size, as
// recommended for small genomes.
func saIndexBases(genome string) int {
	info, err := os.Stat(genome)
	if err != nil || info.Size() < 2 {
		return 14
	}
	n := int(math.Log2(float64(info.Size()))/2 - 1)
	switch {
	case n < 1:
		return 1
	case n > 14:
		return 14
	default:
		return n
	}
}

func (s STAR) IndexCommands(l *mapper.IndexLayout) ([]mapper.Command, error) {
	args, err := command(l, s.MapperExecutable(l.Flavor),
		"--runMode", "genomeGenerate",
		"--runThreadN", itoa(l.Threads),
		"--genomeDir", l.Dir,
		"--genomeFastaFiles", l.Genome,
		"--genomeSAindexNbases", itoa(saIndexBases(l.Genome)),
		"--outFileNamePrefix", l.Dir+string(filepath.Separator))
	if err != nil {
		return nil, err
	}
	return []mapper.Command{{Args: args}}, nil
}

var starQuality = mapper.QualityOptions{
	Illumina:    []string{"--outQSconversionAdd", "-31"},
	Unsupported: []fastq.Format{fastq.Solexa},
}

func (s STAR) QualityArguments(_ string, format fastq.Format) ([]string, error) {
	return starQuality.Arguments(s.Name(), format)
}

func (STAR) MultipleInstancesArguments() []string {
	return []string{"--genomeLoad", "LoadAndKeep"}
}

func (s STAR) DockerImage(version string) string {
	return biocontainer(s.Name(), version)
}

func (s STAR) pipeline(em *mapper.EntryMapping) mapper.Pipeline {
	flavor := em.Instance().Flavor()
	return mapper.Pipeline{
		Dir: "elmap-star-",
		Commands: func(l *mapper.Layout) ([]mapper.Command, error) {
			sa, err := mapper.FindIndexFile(l.IndexDir, "SAindex")
			if err != nil {
				return nil, err
			}
			args := []string{
				"--runThreadN", itoa(l.Threads),
				"--genomeDir", filepath.Dir(sa),
				"--outStd", "SAM",
				"--outSAMtype", "SAM",
				"--outFileNamePrefix", l.Dir + string(filepath.Separator),
			}
			args = append(args, options(s, em)...)
			args = append(args, "--readFilesIn", l.Input1)
			if l.Paired {
				args = append(args, l.Input2)
			}
			args, err = command(l, s.MapperExecutable(flavor), args...)
			if err != nil {
				return nil, err
			}
			return []mapper.Command{{Args: args}}, nil
		},
	}
}

func (s STAR) MapSE(em *mapper.EntryMapping, in mapper.Input) (*mapper.Process, error) {
	return mapper.NewProcess(em, in, s.pipeline(em))
}

func (s STAR) MapPE(em *mapper.EntryMapping, in mapper.Input) (*mapper.Process, error) {
	return mapper.NewProcess(em, in, s.pipeline(em))
}
