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

// Package executor obtains and runs the external binaries of aligners.
//
// An Executor is one strategy for getting at a binary: extracting it
// from a bundle shipped with the distribution (Bundled), looking it up
// in the search path (Path), or running it inside a container image
// (Container). All strategies expose the same operations: install a
// named binary, check whether a binary is available, and start a
// command, returning a handle on its output and exit status.
package executor

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Kind selects an executor strategy.
type Kind int

// Executor strategies.
const (
	Bundled Kind = iota
	Path
	Container
)

func (k Kind) String() string {
	switch k {
	case Bundled:
		return "bundled"
	case Path:
		return "path"
	case Container:
		return "container"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts a strategy name into a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bundled", "bundle", "":
		return Bundled, nil
	case "path", "system":
		return Path, nil
	case "container", "docker":
		return Container, nil
	default:
		return Bundled, fmt.Errorf("unknown executor kind %q", name)
	}
}

// Cmd describes one command to execute.
type Cmd struct {
	// Args is the argument vector. Args[0] is the executable, usually a
	// path returned by Install.
	Args []string

	// Dir is the working directory. If empty, the command runs in the
	// current directory.
	Dir string

	// Stdout requests the standard output of the command as a stream,
	// available through Process.Stdout.
	Stdout bool

	// StdoutFile redirects the standard output to the given file or
	// named pipe. It is ignored if Stdout is set.
	StdoutFile string

	// StderrFile redirects the standard error to the given file. If
	// empty, standard error is inherited.
	StderrFile string

	// StderrToStdout merges the standard error into the standard
	// output, captured or redirected. It takes precedence over
	// StderrFile.
	StderrToStdout bool

	// Files lists the host files and directories the command
	// references, so that container based executors can make them
	// available.
	Files []string
}

func (cmd *Cmd) String() string {
	return strings.Join(cmd.Args, " ")
}

// Process is a handle on a started command.
type Process interface {
	// Stdout returns the standard output of the process if the command
	// requested it, and nil otherwise.
	Stdout() io.ReadCloser

	// Wait blocks until the process exits and returns its exit code.
	// Processes killed by a signal report -1. The error is only set when
	// the exit status could not be determined at all.
	Wait() (int, error)
}

// Executor is an executor strategy.
type Executor interface {
	// Install makes the named binary available and returns the path
	// under which commands must refer to it. Install is idempotent and
	// safe for concurrent use.
	Install(name string) (string, error)

	// IsExecutable reports whether the named binary is available to
	// this executor, installed or installable.
	IsExecutable(name string) bool

	// Execute starts the command. It returns as soon as the process is
	// spawned. Canceling ctx kills the process.
	Execute(ctx context.Context, cmd Cmd) (Process, error)
}
