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
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/sys/unix"

	"github.com/exascience/elmap/utils"
)

// ProgramMessage is the first line printed when the elmap binary is
// called.
var ProgramMessage string

func init() {
	ProgramMessage = fmt.Sprint(
		"\n", utils.ProgramName, " version ", utils.ProgramVersion,
		" compiled with ", runtime.Version(),
		" - see ", utils.ProgramURL, " for more information.\n",
	)
}

// HelpMessage is printed to show the --help flag
const HelpMessage = "Print command details:\n" +
	"[--help]\n"

// Environment variables consulted when the corresponding flags are
// not given.
const (
	EnvTempDir  = "ELMAP_TMPDIR"
	EnvExecutor = "ELMAP_EXECUTOR"
	EnvLogLevel = "ELMAP_LOG_LEVEL"
)

var logger = hclog.New(&hclog.LoggerOptions{
	Name:   utils.ProgramName,
	Level:  levelFromEnv(),
	Output: os.Stderr,
})

// Logger returns the logger of the elmap commands.
func Logger() hclog.Logger {
	return logger
}

func levelFromEnv() hclog.Level {
	if level := hclog.LevelFromString(os.Getenv(EnvLogLevel)); level != hclog.NoLevel {
		return level
	}
	return hclog.Info
}

func envDefault(name, value string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return value
}

func getFilename(s, help string) string {
	switch s {
	case "-h", "--h", "-help", "--help":
		fmt.Fprint(os.Stderr, help)
		os.Exit(0)
	default:
		if strings.HasPrefix(s, "-") {
			logger.Error("Filename(s) in command line missing.")
			fmt.Fprint(os.Stderr, help)
			os.Exit(1)
		}
	}
	return s
}

// positionalArgs returns the filenames that follow the command name,
// up to the first flag.
func positionalArgs(min, max int, help string) []string {
	var args []string
	for _, arg := range os.Args[2:] {
		if strings.HasPrefix(arg, "-") && len(args) >= min {
			break
		}
		if len(args) == max {
			break
		}
		args = append(args, getFilename(arg, help))
	}
	if len(args) < min {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
	return args
}

func parseFlags(flags *flag.FlagSet, requiredArgs int, help string) {
	if len(os.Args) < requiredArgs {
		fmt.Fprintln(os.Stderr, "Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
	flags.SetOutput(io.Discard)
	if err := flags.Parse(os.Args[requiredArgs:]); err != nil {
		x := 0
		if err != flag.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			x = 1
		}
		fmt.Fprint(os.Stderr, help)
		os.Exit(x)
	}
	if flags.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "Cannot parse remaining parameters:", flags.Args())
		fmt.Fprint(os.Stderr, help)
		os.Exit(1)
	}
}

// expandPath expands a leading ~ and makes the path absolute.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

func logCheckFile(parameter, format string, v ...interface{}) {
	if parameter != "" {
		logger.Error(fmt.Sprintf(format+" for command line parameter %v.", append(v, parameter)...))
	} else {
		logger.Error(fmt.Sprintf(format+".", v...))
	}
}

func checkExist(parameter, filename string) bool {
	if len(filename) == 0 {
		logCheckFile(parameter, "Missing filename")
		return false
	}
	if filename[0] == '-' {
		logCheckFile(parameter, "Missing filename before %v", filename)
		return false
	}
	if _, err := os.Stat(filename); err == nil {
		return true
	} else if os.IsNotExist(err) {
		logCheckFile(parameter, "File %v does not exist", filename)
		return false
	} else if os.IsPermission(err) {
		logCheckFile(parameter, "No permission to read file %v", filename)
		return false
	} else {
		logCheckFile(parameter, "Error %v when trying to access file %v", err, filename)
		return false
	}
}

func checkCreate(parameter, filename string) bool {
	if len(filename) == 0 {
		logCheckFile(parameter, "Missing filename")
		return false
	}
	if filename[0] == '-' {
		logCheckFile(parameter, "Missing filename before %v", filename)
		return false
	}
	if _, err := os.Stat(filename); err == nil {
		// Assume that the file has been written by previous elMap runs, and can be overwritten.
		return true
	}
	err := os.MkdirAll(filepath.Dir(filename), 0700)
	if err == nil {
		err = os.WriteFile(filename, nil, 0666)
	}
	if err != nil {
		if os.IsPermission(err) {
			logCheckFile(parameter, "No permission to create file %v", filename)
		} else {
			logCheckFile(parameter, "Error %v when trying to create file %v", err, filename)
		}
		return false
	}
	_ = os.Remove(filename)
	return true
}

func checkThreads(nrOfThreads int) bool {
	if nrOfThreads < 0 {
		logger.Error("Invalid nr-of-threads", "value", nrOfThreads)
		return false
	}
	return true
}

func createLogFilename() string {
	t := time.Now()
	zone, _ := t.Zone()
	return fmt.Sprintf("logs/elmap/elmap-%d-%02d-%02d-%02d-%02d-%02d-%09d-%v.log", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), zone)
}

// setLogOutput tees the log and the standard error of all subprocesses
// into a fresh log file below path, or below the home directory.
func setLogOutput(path, level string) error {
	if path == "" {
		path = "~"
	}
	dir, err := expandPath(path)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(dir, createLogFilename())
	if err := os.MkdirAll(filepath.Dir(fullPath), 0700); err != nil {
		return err
	}
	f, err := os.Create(fullPath)
	if err != nil {
		return err
	}
	fmt.Fprintln(f, ProgramMessage)

	orgStderr, err := unix.Dup(2)
	if err != nil {
		return err
	}
	ferr := os.NewFile(uintptr(orgStderr), "/dev/stderr")
	if err := unix.Dup2(int(f.Fd()), 2); err != nil {
		return err
	}

	logLevel := levelFromEnv()
	if level != "" {
		logLevel = hclog.LevelFromString(level)
	}
	logger = hclog.New(&hclog.LoggerOptions{
		Name:   utils.ProgramName,
		Level:  logLevel,
		Output: io.MultiWriter(f, ferr),
	})
	logger.Info("Created log file", "path", fullPath)
	logger.Info("Command line", "args", os.Args)
	return nil
}

// setLogLevel changes the level of the logger, if level is not empty.
func setLogLevel(level string) bool {
	if level == "" {
		return true
	}
	l := hclog.LevelFromString(level)
	if l == hclog.NoLevel {
		logger.Error("Invalid log-level", "value", level)
		return false
	}
	logger.SetLevel(l)
	return true
}

func timedRun(timed bool, profile, msg string, phase int64, f func() error) error {
	if profile != "" {
		filename := profile + strconv.FormatInt(phase, 10) + ".prof"
		file, err := os.Create(filename)
		if err != nil {
			return err
		}
		defer func() {
			_ = file.Close()
		}()
		if err := pprof.StartCPUProfile(file); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}
	if timed {
		logger.Info(msg)
		start := time.Now()
		defer func() {
			logger.Info("Elapsed time", "duration", time.Since(start))
		}()
	}
	return f()
}
