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
	"os/exec"
)

// PathExecutor runs binaries found in the search path of the system.
type PathExecutor struct{}

// NewPath returns an executor for binaries in $PATH.
func NewPath() *PathExecutor {
	return &PathExecutor{}
}

// Install returns name unchanged, leaving its resolution to the
// operating system.
func (*PathExecutor) Install(name string) (string, error) {
	return name, nil
}

// IsExecutable reports whether name resolves to an executable in $PATH.
func (*PathExecutor) IsExecutable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Execute starts the command as a local subprocess.
func (*PathExecutor) Execute(ctx context.Context, cmd Cmd) (Process, error) {
	if len(cmd.Args) == 0 {
		return nil, errors.New("empty command line")
	}
	return startLocal(ctx, cmd.Args, &cmd)
}
