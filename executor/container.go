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
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// DefaultRuntime is the container runtime command used when none is
// configured.
const DefaultRuntime = "docker"

// ContainerExecutor runs binaries inside a container image, through the
// command line interface of a container runtime. The image is expected
// to provide every binary on its search path.
type ContainerExecutor struct {
	runtime string
	image   string
	logger  hclog.Logger

	mutex  sync.Mutex
	pulled bool
}

// NewContainer returns an executor running commands in image with the
// given runtime command, DefaultRuntime if empty.
func NewContainer(runtime, image string, logger hclog.Logger) *ContainerExecutor {
	if runtime == "" {
		runtime = DefaultRuntime
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ContainerExecutor{runtime: runtime, image: image, logger: logger}
}

// Image returns the name of the container image.
func (e *ContainerExecutor) Image() string {
	return e.image
}

// ensureImage pulls the image unless the runtime already has it. It
// does so at most once per executor.
func (e *ContainerExecutor) ensureImage(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.pulled {
		return nil
	}
	if e.image == "" {
		return errors.New("no container image configured")
	}
	if err := exec.CommandContext(ctx, e.runtime, "image", "inspect", e.image).Run(); err == nil {
		e.pulled = true
		return nil
	}
	e.logger.Info("pulling container image", "image", e.image)
	if out, err := exec.CommandContext(ctx, e.runtime, "pull", e.image).CombinedOutput(); err != nil {
		return fmt.Errorf("cannot pull container image %v: %v\n%s", e.image, err, out)
	}
	e.pulled = true
	return nil
}

// Install pulls the image if needed. The binary is provided by the
// image, so name is returned unchanged.
func (e *ContainerExecutor) Install(name string) (string, error) {
	if err := e.ensureImage(context.Background()); err != nil {
		return "", err
	}
	return name, nil
}

// IsExecutable reports whether name is on the search path inside the
// image.
func (e *ContainerExecutor) IsExecutable(name string) bool {
	ctx := context.Background()
	if err := e.ensureImage(ctx); err != nil {
		e.logger.Warn("container image not available", "image", e.image, "error", err)
		return false
	}
	err := exec.CommandContext(ctx, e.runtime, "run", "--rm", "--entrypoint", "sh", e.image, "-c", `command -v "$0"`, name).Run()
	return err == nil
}

// shellQuote quotes s for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// mountPoints returns the host directories to bind mount for cmd: the
// working directory and the directories of all referenced files, without
// duplicates or directories nested in other mount points.
func mountPoints(cmd *Cmd) []string {
	var dirs []string
	add := func(name string, isDir bool) {
		if name == "" {
			return
		}
		abs, err := filepath.Abs(name)
		if err != nil {
			return
		}
		if !isDir {
			if info, err := os.Stat(abs); err != nil || !info.IsDir() {
				abs = filepath.Dir(abs)
			}
		}
		dirs = append(dirs, filepath.Clean(abs))
	}
	add(cmd.Dir, true)
	add(cmd.StdoutFile, false)
	for _, file := range cmd.Files {
		add(file, false)
	}
	sort.Strings(dirs)
	var result []string
	for _, dir := range dirs {
		if n := len(result); n > 0 {
			last := result[n-1]
			if dir == last || last == "/" || strings.HasPrefix(dir, last+string(filepath.Separator)) {
				continue
			}
		}
		result = append(result, dir)
	}
	return result
}

// runArgs returns the arguments of the runtime command that runs cmd
// in a container with the given name.
//
// Container runtimes cannot connect the stdout of a container to a
// named pipe on the host, so a redirection to StdoutFile is performed
// by a shell inside the container.
func (e *ContainerExecutor) runArgs(cmd *Cmd, name string) []string {
	args := []string{e.runtime, "run", "--rm", "--name", name, "-u", fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid())}
	if cmd.Dir != "" {
		args = append(args, "-w", cmd.Dir)
	}
	for _, dir := range mountPoints(cmd) {
		args = append(args, "-v", dir+":"+dir)
	}
	if !cmd.Stdout && cmd.StdoutFile != "" {
		script := `exec "$@" > ` + shellQuote(cmd.StdoutFile)
		if cmd.StderrToStdout {
			script += " 2>&1"
		}
		args = append(args, "--entrypoint", "sh", e.image, "-c", script, "sh")
	} else {
		args = append(args, e.image)
	}
	return append(args, cmd.Args...)
}

type containerProcess struct {
	*localProcess
	once sync.Once
	done chan struct{}
}

func (p *containerProcess) Wait() (int, error) {
	defer p.once.Do(func() { close(p.done) })
	return p.localProcess.Wait()
}

// Execute starts the command in a new container. Killing the runtime
// client does not stop the container, so canceling ctx also kills the
// container by name.
func (e *ContainerExecutor) Execute(ctx context.Context, cmd Cmd) (Process, error) {
	if len(cmd.Args) == 0 {
		return nil, errors.New("empty command line")
	}
	if err := e.ensureImage(ctx); err != nil {
		return nil, err
	}
	name := "elmap-" + uuid.New().String()
	host := Cmd{
		Args:           e.runArgs(&cmd, name),
		Stdout:         cmd.Stdout,
		StderrFile:     cmd.StderrFile,
		StderrToStdout: cmd.StderrToStdout && cmd.Stdout,
	}
	e.logger.Debug("starting container", "container", name, "command", host.String())
	local, err := startLocal(ctx, host.Args, &host)
	if err != nil {
		return nil, err
	}
	p := &containerProcess{localProcess: local, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			select {
			case <-p.done:
			default:
				e.kill(name)
			}
		case <-p.done:
		}
	}()
	return p, nil
}

// kill stops a container. The container may already be gone.
func (e *ContainerExecutor) kill(name string) {
	if out, err := exec.Command(e.runtime, "kill", name).CombinedOutput(); err != nil {
		e.logger.Debug("cannot kill container", "container", name, "error", err, "output", string(out))
	}
}
