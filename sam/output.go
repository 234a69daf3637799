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

package sam

import (
	"bufio"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// OutputFile is a SAM destination. BAM and CRAM destinations are
// written by a samtools subprocess.
type OutputFile struct {
	wc io.WriteCloser
	*bufio.Writer
	*exec.Cmd
}

// Create returns an output file for name. Names ending in .bam or
// .cram are converted with samtools, using the given number of threads.
// CRAM output requires a reference FASTA file.
func Create(name, reference string, threads int) (*OutputFile, error) {
	if threads <= 0 {
		threads = 1
	}
	var args []string
	switch filepath.Ext(name) {
	case ".bam":
		args = []string{"view", "-b", "-@", strconv.Itoa(threads), "-o", name, "-"}
	case ".cram":
		if reference == "" {
			return nil, errors.New("CRAM output requires a reference FASTA file")
		}
		args = []string{"view", "-C", "-T", reference, "-@", strconv.Itoa(threads), "-o", name, "-"}
	default:
		if name == "" || name == "-" || name == "/dev/stdout" {
			return &OutputFile{os.Stdout, bufio.NewWriter(os.Stdout), nil}, nil
		}
		file, err := os.Create(name)
		if err != nil {
			return nil, err
		}
		return &OutputFile{file, bufio.NewWriter(file), nil}, nil
	}
	cmd := exec.Command("samtools", args...)
	cmd.Stderr = os.Stderr
	inPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &OutputFile{inPipe, bufio.NewWriter(inPipe), cmd}, nil
}

// Close flushes the output and waits for samtools, if any.
func (output *OutputFile) Close() error {
	if err := output.Flush(); err != nil {
		return err
	}
	if output.wc != os.Stdout {
		if err := output.wc.Close(); err != nil {
			return err
		}
	}
	if output.Cmd != nil {
		return output.Wait()
	}
	return nil
}
