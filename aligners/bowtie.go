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
	"github.com/exascience/elmap/fastq"
	"github.com/exascience/elmap/mapper"
)

// Bowtie flavors.
const (
	Standard   = "standard"
	LargeIndex = "large-index"
)

func bowtieSuffix(flavor string) string {
	if flavor == LargeIndex {
		return "l"
	}
	return "s"
}

// Bowtie is the provider for Bowtie 1.
type Bowtie struct{}

func (Bowtie) Name() string           { return "bowtie" }
func (Bowtie) DefaultVersion() string { return "1.3.1" }
func (Bowtie) DefaultFlavor() string  { return Standard }

func (Bowtie) IsFlavorSupported(flavor string) bool {
	return flavor == Standard || flavor == LargeIndex
}

func (Bowtie) DefaultArguments(string) []string {
	return []string{"--best"}
}

func (Bowtie) IndexerExecutables(flavor string) []string {
	return []string{"bowtie-build-" + bowtieSuffix(flavor)}
}

func (Bowtie) MapperExecutable(flavor string) string {
	return "bowtie-align-" + bowtieSuffix(flavor)
}

func bowtieExtension(flavor string) string {
	if flavor == LargeIndex {
		return ".ebwtl"
	}
	return ".ebwt"
}

func (Bowtie) IndexFiles(flavor string) []string {
	ext := bowtieExtension(flavor)
	return []string{".1" + ext, ".2" + ext, ".3" + ext, ".4" + ext, ".rev.1" + ext, ".rev.2" + ext}
}

func (b Bowtie) IndexCommands(l *mapper.IndexLayout) ([]mapper.Command, error) {
	args, err := command(l, b.IndexerExecutables(l.Flavor)[0], "--threads", itoa(l.Threads), l.Genome, l.Prefix)
	if err != nil {
		return nil, err
	}
	return []mapper.Command{{Args: args}}, nil
}

var bowtieQuality = mapper.QualityOptions{
	Sanger:   []string{"--phred33-quals"},
	Illumina: []string{"--phred64-quals"},
	Solexa:   []string{"--solexa-quals"},
}

func (b Bowtie) QualityArguments(_ string, format fastq.Format) ([]string, error) {
	return bowtieQuality.Arguments(b.Name(), format)
}

func (Bowtie) MultipleInstancesArguments() []string {
	return []string{"--mm"}
}

func (b Bowtie) DockerImage(version string) string {
	return biocontainer(b.Name(), version)
}

func (b Bowtie) pipeline(em *mapper.EntryMapping) mapper.Pipeline {
	flavor := em.Instance().Flavor()
	return mapper.Pipeline{Commands: func(l *mapper.Layout) ([]mapper.Command, error) {
		prefix, err := mapper.IndexPrefix(l.IndexDir, ".rev.1"+bowtieExtension(flavor))
		if err != nil {
			return nil, err
		}
		args := append([]string{"-q", "-S", "-p", itoa(l.Threads)}, options(b, em)...)
		args = append(args, prefix)
		if l.Paired {
			args = append(args, "-1", l.Input1, "-2", l.Input2)
		} else {
			args = append(args, l.Input1)
		}
		args, err = command(l, b.MapperExecutable(flavor), args...)
		if err != nil {
			return nil, err
		}
		return []mapper.Command{{Args: args}}, nil
	}}
}

func (b Bowtie) MapSE(em *mapper.EntryMapping, in mapper.Input) (*mapper.Process, error) {
	return mapper.NewProcess(em, in, b.pipeline(em))
}

func (b Bowtie) MapPE(em *mapper.EntryMapping, in mapper.Input) (*mapper.Process, error) {
	return mapper.NewProcess(em, in, b.pipeline(em))
}
