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

// BWA flavors.
const (
	Aln = "aln"
	Mem = "mem"
)

// BWA is the provider for the Burrows-Wheeler Aligner.
//
// The mem flavor maps in a single command. The aln flavor aligns each
// mate into a .sai file first, and generates SAM output from the .sai
// files and the reads with samse or sampe. Since the reads are read
// twice, the input is staged in temporary files.
type BWA struct{}

func (BWA) Name() string           { return "bwa" }
func (BWA) DefaultVersion() string { return "0.7.17" }
func (BWA) DefaultFlavor() string  { return Mem }

func (BWA) IsFlavorSupported(flavor string) bool {
	return flavor == Aln || flavor == Mem
}

func (BWA) DefaultArguments(string) []string {
	return nil
}

func (BWA) IndexerExecutables(string) []string {
	return []string{"bwa"}
}

func (BWA) MapperExecutable(string) string {
	return "bwa"
}

func (BWA) IndexFiles(string) []string {
	return []string{".amb", ".ann", ".bwt", ".pac", ".sa"}
}

func (BWA) IndexCommands(l *mapper.IndexLayout) ([]mapper.Command, error) {
	args, err := command(l, "bwa", "index", "-p", l.Prefix, l.Genome)
	if err != nil {
		return nil, err
	}
	return []mapper.Command{{Args: args}}, nil
}

var (
	bwaAlnQuality = mapper.QualityOptions{
		Illumina:    []string{"-I"},
		Unsupported: []fastq.Format{fastq.Solexa},
	}
	bwaMemQuality = mapper.QualityOptions{
		Unsupported: []fastq.Format{fastq.Solexa, fastq.Illumina},
	}
)

func (b BWA) QualityArguments(flavor string, format fastq.Format) ([]string, error) {
	if flavor == Aln {
		return bwaAlnQuality.Arguments(b.Name(), format)
	}
	return bwaMemQuality.Arguments(b.Name(), format)
}

func (BWA) MultipleInstancesArguments() []string {
	return nil
}

func (b BWA) DockerImage(version string) string {
	return biocontainer(b.Name(), version)
}

// AlnThreads returns the threads of each aln command: all of them for
// single-end input, half of them for each of the two mates, at least 1.
func AlnThreads(threads int, paired bool) int {
	if paired {
		threads /= 2
	}
	if threads < 1 {
		return 1
	}
	return threads
}

func (b BWA) memCommands(em *mapper.EntryMapping, l *mapper.Layout) ([]mapper.Command, error) {
	prefix, err := mapper.IndexPrefix(l.IndexDir, ".bwt")
	if err != nil {
		return nil, err
	}
	args := append([]string{"mem", "-t", itoa(l.Threads)}, options(b, em)...)
	args = append(args, prefix, l.Input1)
	if l.Paired {
		args = append(args, l.Input2)
	}
	args, err = command(l, "bwa", args...)
	if err != nil {
		return nil, err
	}
	return []mapper.Command{{Args: args}}, nil
}

func (b BWA) alnCommands(em *mapper.EntryMapping, l *mapper.Layout) ([]mapper.Command, error) {
	prefix, err := mapper.IndexPrefix(l.IndexDir, ".bwt")
	if err != nil {
		return nil, err
	}
	threads := itoa(AlnThreads(l.Threads, l.Paired))
	inputs := []string{l.Input1}
	if l.Paired {
		inputs = append(inputs, l.Input2)
	}
	var commands []mapper.Command
	var sais []string
	for _, input := range inputs {
		sai := l.TempFile(".sai")
		args := append([]string{"aln", "-t", threads}, options(b, em)...)
		args = append(args, prefix, input)
		args, err := command(l, "bwa", args...)
		if err != nil {
			return nil, err
		}
		commands = append(commands, mapper.Command{Args: args, StdoutFile: sai})
		sais = append(sais, sai)
	}
	var args []string
	if l.Paired {
		args = []string{"sampe", prefix, sais[0], sais[1], l.Input1, l.Input2}
	} else {
		args = []string{"samse", prefix, sais[0], l.Input1}
	}
	args, err = command(l, "bwa", args...)
	if err != nil {
		return nil, err
	}
	return append(commands, mapper.Command{Args: args, Barrier: true}), nil
}

func (b BWA) pipeline(em *mapper.EntryMapping) mapper.Pipeline {
	if em.Instance().Flavor() == Aln {
		return mapper.Pipeline{
			StageInput: true,
			Commands: func(l *mapper.Layout) ([]mapper.Command, error) {
				return b.alnCommands(em, l)
			},
		}
	}
	return mapper.Pipeline{Commands: func(l *mapper.Layout) ([]mapper.Command, error) {
		return b.memCommands(em, l)
	}}
}

func (b BWA) MapSE(em *mapper.EntryMapping, in mapper.Input) (*mapper.Process, error) {
	return mapper.NewProcess(em, in, b.pipeline(em))
}

func (b BWA) MapPE(em *mapper.EntryMapping, in mapper.Input) (*mapper.Process, error) {
	return mapper.NewProcess(em, in, b.pipeline(em))
}
