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

package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/exascience/elmap/aligners"
	"github.com/exascience/elmap/executor"
	"github.com/exascience/elmap/mapper"
)

// IndexHelp is the help string for this command.
const IndexHelp = "\nindex parameters:\n" +
	"elmap index fasta-file zip-archive\n" +
	"--mapper name\n" +
	"[--version version]\n" +
	"[--flavor flavor]\n" +
	"[--executor bundled|path|container]\n" +
	"[--resources dir]\n" +
	"[--install-dir dir]\n" +
	"[--container-image image]\n" +
	"[--container-runtime command]\n" +
	"[--nr-of-threads nr]\n" +
	"[--stored]\n" +
	"[--tmp-dir dir]\n" +
	"[--timed]\n" +
	"[--log-path path]\n" +
	"[--log-level trace|debug|info|warn|error]\n"

// Index implements the elmap index command.
func Index() error {
	var (
		mapperName, version, flavor, executorName               string
		resources, installDir, containerImage, containerRuntime string
		tmpDir, logPath, logLevel, profile                      string
		nrOfThreads                                             int
		stored, timed                                           bool
	)

	var flags flag.FlagSet

	flags.StringVar(&mapperName, "mapper", "", "name of the aligner")
	flags.StringVar(&version, "version", "", "version of the aligner")
	flags.StringVar(&flavor, "flavor", "", "flavor of the aligner")
	flags.StringVar(&executorName, "executor", envDefault(EnvExecutor, "path"), "how to run the aligner binaries")
	flags.StringVar(&resources, "resources", "", "directory with the bundled aligner binaries")
	flags.StringVar(&installDir, "install-dir", "", "directory where bundled binaries are extracted")
	flags.StringVar(&containerImage, "container-image", "", "container image of the aligner")
	flags.StringVar(&containerRuntime, "container-runtime", executor.DefaultRuntime, "container runtime command")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of indexer threads")
	flags.BoolVar(&stored, "stored", false, "store the index files without compression")
	flags.StringVar(&tmpDir, "tmp-dir", envDefault(EnvTempDir, ""), "directory for temporary files")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	flags.StringVar(&logLevel, "log-level", "", "minimum level of log messages")
	flags.StringVar(&profile, "profile", "", "write a cpu profile")

	files := positionalArgs(2, 2, IndexHelp)
	genome, archive := files[0], files[1]
	parseFlags(&flags, 4, IndexHelp)

	if logPath != "" {
		if err := setLogOutput(logPath, logLevel); err != nil {
			return err
		}
	}

	// sanity checks

	sanityChecksFailed := false

	registry, err := aligners.NewRegistry()
	if err != nil {
		return err
	}

	if !checkExist("", genome) {
		sanityChecksFailed = true
	}
	if !checkCreate("", archive) {
		sanityChecksFailed = true
	}

	if mapperName == "" {
		logger.Error("Missing --mapper option", "available", registry.Names())
		sanityChecksFailed = true
	} else if _, ok := registry.Provider(mapperName); !ok {
		logger.Error("Unknown mapper", "mapper", mapperName, "available", registry.Names())
		sanityChecksFailed = true
	}

	kind, err := executor.ParseKind(executorName)
	if err != nil {
		logger.Error("Invalid --executor", "error", err)
		sanityChecksFailed = true
	}
	if kind == executor.Bundled && !checkExist("--resources", resources) {
		sanityChecksFailed = true
	}

	if !checkThreads(nrOfThreads) {
		sanityChecksFailed = true
	}

	if !setLogLevel(logLevel) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, IndexHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " index ", genome, " ", archive, " --mapper ", mapperName)
	if version != "" {
		fmt.Fprint(&command, " --version ", version)
	}
	if flavor != "" {
		fmt.Fprint(&command, " --flavor ", flavor)
	}
	fmt.Fprint(&command, " --executor ", kind)
	if nrOfThreads > 0 {
		fmt.Fprint(&command, " --nr-of-threads ", nrOfThreads)
	}
	if stored {
		fmt.Fprint(&command, " --stored")
	}

	// executing command

	logger.Info("Executing command", "command", command.String())

	if tmpDir, err = expandPath(tmpDir); err != nil {
		return err
	}
	if installDir, err = expandPath(installDir); err != nil {
		return err
	}
	if genome, err = filepath.Abs(genome); err != nil {
		return err
	}
	if archive, err = filepath.Abs(archive); err != nil {
		return err
	}
	options := mapper.Options{
		TempDir:          tmpDir,
		InstallDir:       installDir,
		ContainerImage:   containerImage,
		ContainerRuntime: containerRuntime,
		Logger:           logger,
	}
	if resources != "" {
		dir, err := expandPath(resources)
		if err != nil {
			return err
		}
		options.Resources = os.DirFS(dir)
	}
	m, err := registry.Mapper(mapperName, options)
	if err != nil {
		return err
	}
	inst, err := m.NewInstance(version, flavor, kind)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	return timedRun(timed, profile, "Building index.", 1, func() error {
		return inst.MakeIndex(ctx, genome, archive, nrOfThreads, stored)
	})
}
