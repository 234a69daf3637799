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

// Bowtie2 is the provider for Bowtie 2. It has the same flavors as
// Bowtie.
type Bowtie2 struct{}

func (Bowtie2) Name() string           { return "bowtie2" }
func (Bowtie2) DefaultVersion() string { return "2.5.1" }
func (Bowtie2) DefaultFlavor() string  { return Standard }

func (Bowtie2) IsFlavorSupported(flavor string) bool {
	return flavor == Standard || flavor == LargeIndex
}

func (Bowtie2) DefaultArguments(string) []string {
	return nil
}

func (Bowtie2) IndexerExecutables(flavor string) []string {
	return []string{"bowtie2-build-" + bowtieSuffix(flavor)}
}

func (Bowtie2) MapperExecutable(flavor string) string {
	return "bowtie2-align-" + bowtieSuffix(flavor)
}

func bowtie2Extension(flavor string) string {
	if flavor == LargeIndex {
		return ".bt2l"
	}
	return ".bt2"
}

func (Bowtie2) IndexFiles(flavor string) []string {
	ext := bowtie2Extension(flavor)
	return []string{".1" + ext, ".2" + ext, ".3" + ext, ".4" + ext, ".rev.1" + ext, ".rev.2" + ext}
}

func (b Bowtie2) IndexCommands(l *mapper.IndexLayout) ([]mapper.Command, error) {
	args, err := command(l, b.IndexerExecutables(l.Flavor)[0], "--threads", itoa(l.Threads), l.Genome, l.Prefix)
	if err != nil {
		return nil, err
	}
	return []mapper.Command{{Args: args}}, nil
}

var bowtie2Quality = mapper.QualityOptions{
	Sanger:   []string{"--phred33"},
	Illumina: []string{"--phred64"},
	Solexa:   []string{"--solexa-quals"},
}

func (b Bowtie2) QualityArguments(_ string, format fastq.Format) ([]string, error) {
	return bowtie2Quality.Arguments(b.Name(), format)
}

func (Bowtie2) MultipleInstancesArguments() []string {
	return []string{"--mm"}
}

func (b Bowtie2) DockerImage(version string) string {
	return biocontainer(b.Name(), version)
}

func (b Bowtie2) pipeline(em *mapper.EntryMapping) mapper.Pipeline {
	flavor := em.Instance().Flavor()
	return mapper.Pipeline{Commands: func(l *mapper.Layout) ([]mapper.Command, error) {
		prefix, err := mapper.IndexPrefix(l.IndexDir, ".rev.1"+bowtie2Extension(flavor))
		if err != nil {
			return nil, err
		}
		args := append([]string{"-q", "-p", itoa(l.Threads)}, options(b, em)...)
		args = append(args, "-x", prefix)
		if l.Paired {
			args = append(args, "-1", l.Input1, "-2", l.Input2)
		} else {
			args = append(args, "-U", l.Input1)
		}
		args, err = command(l, b.MapperExecutable(flavor), args...)
		if err != nil {
			return nil, err
		}
		return []mapper.Command{{Args: args}}, nil
	}}
}

func (b Bowtie2) MapSE(em *mapper.EntryMapping, in mapper.Input) (*mapper.Process, error) {
	return mapper.NewProcess(em, in, b.pipeline(em))
}

func (b Bowtie2) MapPE(em *mapper.EntryMapping, in mapper.Input) (*mapper.Process, error) {
	return mapper.NewProcess(em, in, b.pipeline(em))
}
