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
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/exascience/elmap/aligners"
	"github.com/exascience/elmap/executor"
	"github.com/exascience/elmap/fastq"
	"github.com/exascience/elmap/mapper"
	"github.com/exascience/elmap/sam"
)

// MapHelp is the help string for this command.
const MapHelp = "\nmap parameters:\n" +
	"elmap map fastq-file [fastq-file-2] sam-output-file\n" +
	"--mapper name\n" +
	"--index dir-or-zip-archive\n" +
	"[--version version]\n" +
	"[--flavor flavor]\n" +
	"[--executor bundled|path|container]\n" +
	"[--resources dir]\n" +
	"[--install-dir dir]\n" +
	"[--container-image image]\n" +
	"[--container-runtime command]\n" +
	"[--quality sanger|illumina|illumina-1.5|solexa]\n" +
	"[--args \"aligner arguments\"]\n" +
	"[--nr-of-threads nr]\n" +
	"[--multiple-instances]\n" +
	"[--file-mode]\n" +
	"[--reference fasta-file]\n" +
	"[--mapper-log file]\n" +
	"[--tmp-dir dir]\n" +
	"[--timed]\n" +
	"[--log-path path]\n" +
	"[--log-level trace|debug|info|warn|error]\n"

// Map implements the elmap map command.
func Map() error {
	var (
		mapperName, indexPath, version, flavor, executorName    string
		resources, installDir, containerImage, containerRuntime string
		quality, arguments, reference, mapperLog, tmpDir        string
		logPath, logLevel, profile                              string
		nrOfThreads                                             int
		multipleInstances, fileMode, timed                      bool
	)

	var flags flag.FlagSet

	flags.StringVar(&mapperName, "mapper", "", "name of the aligner")
	flags.StringVar(&indexPath, "index", "", "unpacked index directory, or zip archive of an index")
	flags.StringVar(&version, "version", "", "version of the aligner")
	flags.StringVar(&flavor, "flavor", "", "flavor of the aligner")
	flags.StringVar(&executorName, "executor", envDefault(EnvExecutor, "path"), "how to run the aligner binaries")
	flags.StringVar(&resources, "resources", "", "directory with the bundled aligner binaries")
	flags.StringVar(&installDir, "install-dir", "", "directory where bundled binaries are extracted")
	flags.StringVar(&containerImage, "container-image", "", "container image of the aligner")
	flags.StringVar(&containerRuntime, "container-runtime", executor.DefaultRuntime, "container runtime command")
	flags.StringVar(&quality, "quality", "sanger", "quality encoding of the input")
	flags.StringVar(&arguments, "args", "", "arguments passed to the aligner")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of aligner threads")
	flags.BoolVar(&multipleInstances, "multiple-instances", false, "share the index in memory between aligner processes")
	flags.BoolVar(&fileMode, "file-mode", false, "let the aligner read the fastq files directly")
	flags.StringVar(&reference, "reference", "", "reference fasta file for cram output")
	flags.StringVar(&mapperLog, "mapper-log", "", "file that receives the standard error of the aligner")
	flags.StringVar(&tmpDir, "tmp-dir", envDefault(EnvTempDir, ""), "directory for named pipes and temporary files")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")
	flags.StringVar(&logLevel, "log-level", "", "minimum level of log messages")
	flags.StringVar(&profile, "profile", "", "write a cpu profile")

	files := positionalArgs(2, 3, MapHelp)
	inputs, output := files[:len(files)-1], files[len(files)-1]
	parseFlags(&flags, 2+len(files), MapHelp)

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

	for _, input := range inputs {
		if !checkExist("", input) {
			sanityChecksFailed = true
		}
	}
	if output != "/dev/stdout" && !checkCreate("", output) {
		sanityChecksFailed = true
	}

	if mapperName == "" {
		logger.Error("Missing --mapper option", "available", registry.Names())
		sanityChecksFailed = true
	} else if _, ok := registry.Provider(mapperName); !ok {
		logger.Error("Unknown mapper", "mapper", mapperName, "available", registry.Names())
		sanityChecksFailed = true
	}

	if !checkExist("--index", indexPath) {
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

	format, err := fastq.ParseFormat(quality)
	if err != nil {
		logger.Error("Invalid --quality", "error", err)
		sanityChecksFailed = true
	}

	if !checkThreads(nrOfThreads) {
		sanityChecksFailed = true
	}

	if !setLogLevel(logLevel) {
		sanityChecksFailed = true
	}

	if filepath.Ext(output) == ".cram" && !checkExist("--reference", reference) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, MapHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " map ", strings.Join(files, " "))
	fmt.Fprint(&command, " --mapper ", mapperName, " --index ", indexPath)
	if version != "" {
		fmt.Fprint(&command, " --version ", version)
	}
	if flavor != "" {
		fmt.Fprint(&command, " --flavor ", flavor)
	}
	fmt.Fprint(&command, " --executor ", kind)
	fmt.Fprint(&command, " --quality ", format)
	if arguments != "" {
		fmt.Fprintf(&command, " --args %q", arguments)
	}
	if nrOfThreads > 0 {
		fmt.Fprint(&command, " --nr-of-threads ", nrOfThreads)
	}
	if multipleInstances {
		fmt.Fprint(&command, " --multiple-instances")
	}
	if fileMode {
		fmt.Fprint(&command, " --file-mode")
	}
	if tmpDir != "" {
		fmt.Fprint(&command, " --tmp-dir ", tmpDir)
	}

	// executing command

	logger.Info("Executing command", "command", command.String())

	if tmpDir, err = expandPath(tmpDir); err != nil {
		return err
	}
	if installDir, err = expandPath(installDir); err != nil {
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

	indexDir, err := unpackedIndex(inst, indexPath, m.TempDir())
	if err != nil {
		return err
	}

	mappingOptions := mapper.MappingOptions{
		Format:            format,
		Threads:           nrOfThreads,
		MultipleInstances: multipleInstances,
		Counter:           mapper.NewCounters(),
		CounterGroup:      mapperName,
		StderrFile:        mapperLog,
	}
	if arguments != "" {
		mappingOptions.Arguments = strings.Fields(arguments)
	}
	em, err := inst.NewEntryMapping(indexDir, mappingOptions)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	return timedRun(timed, profile, "Mapping reads.", 1, func() error {
		out, err := sam.Create(output, reference, em.Threads())
		if err != nil {
			return err
		}
		stats, err := mapReads(ctx, em, inputs, fileMode, out)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		logger.Info("Mapping done", "reads", stats.reads, "alignments", stats.alignments, "header-lines", stats.headers)
		return nil
	})
}

// unpackedIndex returns the directory of an unpacked index. A zip
// archive is unpacked once into tempDir.
func unpackedIndex(inst *mapper.Instance, path, tempDir string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return path, nil
	}
	dir := filepath.Join(tempDir, "elmap-index-"+inst.Mapper().Name()+"-"+strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if err := inst.PrepareIndex(path, dir); err != nil {
		return "", err
	}
	return dir, nil
}

type mappingStats struct {
	reads, alignments, headers int64
}

// mapReads maps the fastq inputs, one file for single-end reads or two
// for paired-end reads, and copies the SAM output to out.
func mapReads(ctx context.Context, em *mapper.EntryMapping, inputs []string, fileMode bool, out io.Writer) (stats mappingStats, err error) {
	paired := len(inputs) == 2
	var p *mapper.Process
	switch {
	case fileMode && paired:
		p, err = em.MapFilePE(ctx, inputs[0], inputs[1])
	case fileMode:
		p, err = em.MapFileSE(ctx, inputs[0])
	case paired:
		p, err = em.MapPE(ctx)
	default:
		p, err = em.MapSE(ctx)
	}
	if err != nil {
		return stats, err
	}
	for _, line := range p.CommandLines() {
		logger.Debug("Mapper command", "args", line)
	}

	var g errgroup.Group
	var inputErr error
	if !fileMode {
		g.Go(func() error {
			stats.reads, inputErr = feedReads(p, inputs)
			if inputErr != nil {
				p.Cancel()
			}
			return inputErr
		})
	}
	counter := &sam.Counter{W: out}
	g.Go(func() error {
		stdout, err := p.Stdout()
		if err != nil {
			// Reported by Wait.
			return nil
		}
		if _, err := io.Copy(counter, stdout); err != nil {
			p.Cancel()
			return err
		}
		_ = stdout.Close()
		return nil
	})
	err = g.Wait()
	if inputErr != nil {
		err = inputErr
	}
	if werr := p.Wait(); err == nil {
		err = werr
	}
	stats.alignments, stats.headers = counter.Alignments(), counter.Headers()
	return stats, err
}

var errMateMismatch = errors.New("mate files contain different numbers of reads")

// feedReads writes the reads of the fastq files into p, mates in
// lockstep, and closes the input of p. Only failures to read the
// fastq files are returned.
func feedReads(p *mapper.Process, inputs []string) (n int64, err error) {
	files := make([]*fastq.File, len(inputs))
	defer func() {
		for _, f := range files {
			if f != nil {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}
		}
	}()
	for i, input := range inputs {
		if files[i], err = fastq.Open(input); err != nil {
			return 0, err
		}
	}
	readErr := func() error {
		for _, f := range files {
			if err := f.Err(); err != nil {
				return err
			}
		}
		return nil
	}
	write := []func(*fastq.Read) error{p.Write1, p.Write2}
	for {
		more := files[0].Next()
		for _, f := range files[1:] {
			if f.Next() != more {
				if err := readErr(); err != nil {
					return n, err
				}
				return n, errMateMismatch
			}
		}
		if !more {
			break
		}
		for i, f := range files {
			read := f.Read()
			if err := write[i](&read); err != nil {
				// The aligner stopped reading. Wait reports why.
				_ = p.CloseInput()
				return n, nil
			}
		}
		n++
	}
	if err := readErr(); err != nil {
		return n, err
	}
	_ = p.CloseInput()
	return n, nil
}
