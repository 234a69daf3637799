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

// Minimap2 is the provider for minimap2. Quality values do not affect
// its alignments, so every encoding is accepted.
type Minimap2 struct{}

const minimap2Index = "genome.idx"

func (Minimap2) Name() string           { return "minimap2" }
func (Minimap2) DefaultVersion() string { return "2.26" }
func (Minimap2) DefaultFlavor() string  { return Standard }

func (Minimap2) IsFlavorSupported(flavor string) bool {
	return flavor == Standard
}

func (Minimap2) DefaultArguments(string) []string {
	return []string{"-x", "sr"}
}

func (Minimap2) IndexerExecutables(string) []string {
	return []string{"minimap2"}
}

func (Minimap2) MapperExecutable(string) string {
	return "minimap2"
}

func (Minimap2) IndexFiles(string) []string {
	return []string{minimap2Index}
}

func (Minimap2) IndexCommands(l *mapper.IndexLayout) ([]mapper.Command, error) {
	args, err := command(l, "minimap2", "-t", itoa(l.Threads), "-d", l.Prefix+".idx", l.Genome)
	if err != nil {
		return nil, err
	}
	return []mapper.Command{{Args: args}}, nil
}

func (Minimap2) QualityArguments(string, fastq.Format) ([]string, error) {
	return nil, nil
}

func (Minimap2) MultipleInstancesArguments() []string {
	return nil
}

func (m Minimap2) DockerImage(version string) string {
	return biocontainer(m.Name(), version)
}

func (m Minimap2) pipeline(em *mapper.EntryMapping) mapper.Pipeline {
	return mapper.Pipeline{Commands: func(l *mapper.Layout) ([]mapper.Command, error) {
		index, err := mapper.FindIndexFile(l.IndexDir, minimap2Index)
		if err != nil {
			return nil, err
		}
		args := append([]string{"-a", "-t", itoa(l.Threads)}, options(m, em)...)
		args = append(args, index, l.Input1)
		if l.Paired {
			args = append(args, l.Input2)
		}
		args, err = command(l, "minimap2", args...)
		if err != nil {
			return nil, err
		}
		return []mapper.Command{{Args: args}}, nil
	}}
}

func (m Minimap2) MapSE(em *mapper.EntryMapping, in mapper.Input) (*mapper.Process, error) {
	return mapper.NewProcess(em, in, m.pipeline(em))
}

func (m Minimap2) MapPE(em *mapper.EntryMapping, in mapper.Input) (*mapper.Process, error) {
	return mapper.NewProcess(em, in, m.pipeline(em))
}
