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
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/klauspost/compress/gzip"

	"github.com/exascience/elmap/internal"
)

// BundledExecutor runs binaries extracted from a bundle that ships with
// the distribution.
//
// The bundle is a file system in which the binary name of package pkg,
// version v, is stored as pkg/v/GOOS/GOARCH/name, or gzip compressed as
// pkg/v/GOOS/GOARCH/name.gz. Install extracts it to
// installDir/pkg/v/name.
type BundledExecutor struct {
	resources  fs.FS
	pkg        string
	version    string
	installDir string
	logger     hclog.Logger

	extractions atomic.Int64
}

// NewBundled returns an executor for the binaries of the given package
// and version found in resources.
func NewBundled(resources fs.FS, pkg, version, installDir string, logger hclog.Logger) *BundledExecutor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &BundledExecutor{
		resources:  resources,
		pkg:        pkg,
		version:    version,
		installDir: installDir,
		logger:     logger,
	}
}

// Extractions returns how many binaries this executor actually
// extracted, as opposed to finding them already installed.
func (e *BundledExecutor) Extractions() int64 {
	return e.extractions.Load()
}

func validBinaryName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

func (e *BundledExecutor) resource(name string) (resource string, compressed, ok bool) {
	if e.resources == nil || !validBinaryName(name) {
		return "", false, false
	}
	base := path.Join(e.pkg, e.version, runtime.GOOS, runtime.GOARCH, name)
	if info, err := fs.Stat(e.resources, base); err == nil && info.Mode().IsRegular() {
		return base, false, true
	}
	if info, err := fs.Stat(e.resources, base+".gz"); err == nil && info.Mode().IsRegular() {
		return base + ".gz", true, true
	}
	return "", false, false
}

func (e *BundledExecutor) installPath(name string) string {
	return filepath.Join(e.installDir, e.pkg, e.version, name)
}

// IsExecutable reports whether name is already installed or present in
// the bundle for the current platform.
func (e *BundledExecutor) IsExecutable(name string) bool {
	if !validBinaryName(name) {
		return false
	}
	if internal.IsExecutableFile(e.installPath(name)) {
		return true
	}
	_, _, ok := e.resource(name)
	return ok
}

// Install extracts the named binary unless it is already installed and
// returns its path.
//
// Concurrent installs of the same binary within this process serialize
// on a mutex keyed by package, version and name. Installs by other
// processes serialize on an exclusive lock of a sibling lock file,
// which is removed afterwards.
func (e *BundledExecutor) Install(name string) (string, error) {
	if !validBinaryName(name) {
		return "", fmt.Errorf("invalid binary name %q", name)
	}
	key := binaryKey{e.pkg, e.version, name}
	mutex := installLock(key)
	mutex.Lock()
	defer mutex.Unlock()

	dest := e.installPath(name)
	if internal.IsExecutableFile(dest) {
		return dest, nil
	}
	resource, compressed, ok := e.resource(name)
	if !ok {
		return "", fmt.Errorf("binary %v not found in the bundle for %v %v on %v/%v", name, e.pkg, e.version, runtime.GOOS, runtime.GOARCH)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", err
	}
	lock, err := internal.LockFile(dest + ".lock")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			e.logger.Warn("cannot release install lock", "lock", lock.Path(), "error", err)
		}
	}()
	if internal.IsExecutableFile(dest) {
		return dest, nil
	}
	if err := e.extract(resource, compressed, dest); err != nil {
		return "", fmt.Errorf("cannot install %v: %w", key, err)
	}
	e.extractions.Add(1)
	e.logger.Debug("installed bundled binary", "binary", key.String(), "path", dest)
	return dest, nil
}

func (e *BundledExecutor) extract(resource string, compressed bool, dest string) (err error) {
	in, err := e.resources.Open(resource)
	if err != nil {
		return err
	}
	defer func() {
		nerr := in.Close()
		if err == nil {
			err = nerr
		}
	}()
	var src io.Reader = in
	if compressed {
		gz, err := gzip.NewReader(in)
		if err != nil {
			return err
		}
		defer gz.Close()
		src = gz
	}
	tmp := dest + ".tmp-" + uuid.New().String()
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0755)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err = out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err = os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
	}
	return err
}

// Execute starts the command as a local subprocess. A bare binary name
// in Args[0] that is part of the bundle is installed first.
func (e *BundledExecutor) Execute(ctx context.Context, cmd Cmd) (Process, error) {
	if len(cmd.Args) == 0 {
		return nil, errors.New("empty command line")
	}
	argv := append([]string(nil), cmd.Args...)
	if validBinaryName(argv[0]) {
		if _, _, ok := e.resource(argv[0]); ok {
			installed, err := e.Install(argv[0])
			if err != nil {
				return nil, err
			}
			argv[0] = installed
		}
	}
	return startLocal(ctx, argv, &cmd)
}
