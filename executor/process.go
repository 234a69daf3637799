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

package executor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
)

type localProcess struct {
	cmd    *exec.Cmd
	stdout *os.File
}

func (p *localProcess) Stdout() io.ReadCloser {
	if p.stdout == nil {
		return nil
	}
	return p.stdout
}

func (p *localProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func closeAll(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}

// startLocal starts argv as a local subprocess with the redirections of
// cmd. The stdout of the child is an explicit os.Pipe, so that Wait
// does not close the read end while the caller is still draining it.
func startLocal(ctx context.Context, argv []string, cmd *Cmd) (_ *localProcess, err error) {
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Dir = cmd.Dir

	var (
		parentEnds []*os.File
		childEnds  []*os.File
		stdout     *os.File
	)
	defer func() {
		closeAll(childEnds)
		if err != nil {
			closeAll(parentEnds)
		}
	}()

	var out *os.File
	switch {
	case cmd.Stdout:
		r, w, err := os.Pipe()
		if err != nil {
			return nil, err
		}
		stdout, out = r, w
		parentEnds = append(parentEnds, r)
		childEnds = append(childEnds, w)
	case cmd.StdoutFile != "":
		f, err := os.OpenFile(cmd.StdoutFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return nil, err
		}
		out = f
		childEnds = append(childEnds, f)
	}
	if out != nil {
		// output that is neither captured nor redirected is discarded
		c.Stdout = out
	}

	switch {
	case cmd.StderrToStdout:
		c.Stderr = c.Stdout
	case cmd.StderrFile != "":
		f, err := os.OpenFile(cmd.StderrFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		c.Stderr = f
		childEnds = append(childEnds, f)
	default:
		c.Stderr = os.Stderr
	}

	if err = c.Start(); err != nil {
		return nil, err
	}
	return &localProcess{cmd: c, stdout: stdout}, nil
}
