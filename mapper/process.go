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

package mapper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/exascience/elmap/executor"
	"github.com/exascience/elmap/fastq"
	"github.com/exascience/elmap/internal"
)

// State is the lifecycle state of a Process.
type State int

// Process states.
const (
	Created State = iota
	// Initialized: input pipes are created and commands are built.
	Initialized
	// Running: commands are being launched and input is accepted.
	Running
	// AwaitingExit: the output of the last command is handed out.
	AwaitingExit
	// Terminated: all commands exited successfully and temporary files
	// are removed.
	Terminated
	// Failed: a command failed, the process was canceled, or input or
	// output could not be handled.
	Failed
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case AwaitingExit:
		return "awaiting exit"
	case Terminated:
		return "terminated"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Input selects the input of a mapping. If File1 is empty, reads are
// written to the process (entry mode). Otherwise File1, and File2 for
// paired-end input, are existing FASTQ files (file mode).
type Input struct {
	Paired       bool
	File1, File2 string
}

func (in Input) entryMode() bool {
	return in.File1 == ""
}

// Command is one subprocess of a pipeline.
type Command struct {
	Args []string

	// StdoutFile receives the standard output of a command that is not
	// the last one.
	StdoutFile string

	// Barrier delays the launch until all earlier commands exited
	// successfully.
	Barrier bool
}

// Pipeline describes how a provider maps its input.
type Pipeline struct {
	// StageInput writes reads to regular temporary files instead of
	// named pipes, and launches the commands once the input is closed.
	// This is for aligners that read their input more than once.
	StageInput bool

	// Dir, if not empty, is the name prefix of a private working
	// directory for the commands.
	Dir string

	// Commands builds the command lines. Commands are launched in order,
	// and the standard output of the last one is the output of the
	// process.
	Commands func(*Layout) ([]Command, error)

	// Transform, if not nil, wraps the output of the last command.
	Transform func(io.Reader) io.Reader
}

// Layout is what a Pipeline needs to build its commands.
type Layout struct {
	process *Process

	Paired bool
	// Input1 and Input2 are the input files or named pipes.
	Input1, Input2 string
	IndexDir       string
	Threads        int
	// Dir is the private working directory, if requested.
	Dir string
}

// Mapping returns the configuration of the mapping.
func (l *Layout) Mapping() *EntryMapping {
	return l.process.em
}

// Executable installs the named executable and returns its path.
func (l *Layout) Executable(name string) (string, error) {
	return l.process.em.instance.Install(name)
}

// TempFile returns a unique path in the temporary directory that is
// removed when the process has finished.
func (l *Layout) TempFile(suffix string) string {
	name := filepath.Join(l.process.tempDir(), "elmap-"+uuid.New().String()+suffix)
	l.process.register(name)
	return name
}

// TempDir creates a directory in the temporary directory that is
// removed when the process has finished.
func (l *Layout) TempDir(prefix string) (string, error) {
	dir, err := os.MkdirTemp(l.process.tempDir(), prefix)
	if err != nil {
		return "", err
	}
	l.process.register(dir)
	return dir, nil
}

func (l *Layout) files() []string {
	var files []string
	for _, file := range []string{l.Input1, l.Input2, l.IndexDir, l.Dir, l.process.tempDir()} {
		if file != "" {
			files = append(files, file)
		}
	}
	return files
}

type launched struct {
	command Command
	process executor.Process
	done    chan struct{}
	code    int
	err     error
}

func (lp *launched) wait() {
	lp.code, lp.err = lp.process.Wait()
	close(lp.done)
}

// Process runs the pipeline of one mapping. It is single use.
//
// In entry mode, reads are written with Write, or Write1 and Write2
// for paired-end input, from at most one goroutine per mate, and
// CloseInput ends the input. The output of the last command is read
// from Stdout. Wait reaps all commands and removes temporary files.
//
// The output must be consumed while reads are written: an aligner
// blocks once its output pipe is full, and then stops reading its
// input, so Write blocks too. Callers that are not interested in the
// output call DiscardOutput before writing.
type Process struct {
	em       *EntryMapping
	name     string
	logger   hclog.Logger
	input    Input
	pipeline Pipeline
	layout   *Layout
	commands []Command

	mutex       sync.Mutex
	state       State
	temps       []string
	cancel      context.CancelFunc
	procs       []*launched
	stdoutTaken bool
	discarded   chan struct{}

	parent  context.Context
	ctx     context.Context
	writers [2]*fastq.Writer

	inputOnce   sync.Once
	inputErr    error
	inputClosed chan struct{}

	// started is closed once launching has finished or failed.
	started   chan struct{}
	launchErr error
	stdout    io.ReadCloser

	cancelOnce sync.Once
	canceled   chan struct{}

	reapOnce sync.Once
	reaped   chan struct{}
	result   error
}

// NewProcess creates the input pipes of a mapping and builds its
// commands. The returned process is Initialized.
func NewProcess(em *EntryMapping, in Input, pipeline Pipeline) (*Process, error) {
	name := em.instance.name()
	if pipeline.Commands == nil {
		return nil, errorf(Configuration, name, "pipeline without commands")
	}
	if !in.entryMode() && in.Paired && in.File2 == "" {
		return nil, errorf(Configuration, name, "paired-end mapping of %v without second input file", in.File1)
	}
	if !in.Paired && in.File2 != "" {
		return nil, errorf(Configuration, name, "single-end mapping with second input file %v", in.File2)
	}
	p := &Process{
		em:          em,
		name:        name,
		logger:      em.instance.logger,
		input:       in,
		pipeline:    pipeline,
		state:       Created,
		inputClosed: make(chan struct{}),
		started:     make(chan struct{}),
		canceled:    make(chan struct{}),
		reaped:      make(chan struct{}),
	}
	if err := p.init(); err != nil {
		p.cleanup()
		p.setState(Failed)
		return nil, err
	}
	p.setState(Initialized)
	return p, nil
}

// StartProcess creates and starts a process.
func StartProcess(ctx context.Context, em *EntryMapping, in Input, pipeline Pipeline) (*Process, error) {
	p, err := NewProcess(em, in, pipeline)
	if err != nil {
		return nil, err
	}
	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Process) tempDir() string {
	return p.em.instance.mapper.TempDir()
}

func (p *Process) register(name string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.temps = append(p.temps, name)
}

func (p *Process) setState(state State) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.state = state
}

// State returns the current lifecycle state.
func (p *Process) State() State {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state
}

func (p *Process) init() error {
	l := &Layout{
		process:  p,
		Paired:   p.input.Paired,
		IndexDir: p.em.indexDir,
		Threads:  p.em.threads,
	}
	p.layout = l
	if p.pipeline.Dir != "" {
		dir, err := l.TempDir(p.pipeline.Dir)
		if err != nil {
			return newError(IO, p.name, err)
		}
		l.Dir = dir
	}
	if p.input.entryMode() {
		mates := 1
		if p.input.Paired {
			mates = 2
		}
		for i := 0; i < mates; i++ {
			path := filepath.Join(p.tempDir(), fmt.Sprintf("elmap-%v-%d.fq", uuid.New(), i+1))
			if err := p.createInput(path); err != nil {
				return newError(IO, p.name, err)
			}
			if i == 0 {
				l.Input1 = path
			} else {
				l.Input2 = path
			}
		}
	} else {
		var err error
		if l.Input1, err = filepath.Abs(p.input.File1); err != nil {
			return newError(IO, p.name, err)
		}
		if p.input.Paired {
			if l.Input2, err = filepath.Abs(p.input.File2); err != nil {
				return newError(IO, p.name, err)
			}
		}
	}
	commands, err := p.pipeline.Commands(l)
	if err != nil {
		return newError(Configuration, p.name, err)
	}
	if len(commands) == 0 {
		return errorf(Configuration, p.name, "empty pipeline")
	}
	for _, command := range commands {
		if len(command.Args) == 0 {
			return errorf(Configuration, p.name, "empty command line in pipeline")
		}
	}
	p.commands = commands
	return nil
}

func (p *Process) createInput(path string) error {
	p.register(path)
	if !p.pipeline.StageInput {
		return internal.Mkfifo(path)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	return f.Close()
}

// Commands returns the commands in launch order.
func (p *Process) Commands() []Command {
	result := make([]Command, len(p.commands))
	for i, command := range p.commands {
		command.Args = append([]string(nil), command.Args...)
		result[i] = command
	}
	return result
}

// CommandLines returns the argument vectors of the commands in launch
// order.
func (p *Process) CommandLines() [][]string {
	result := make([][]string, len(p.commands))
	for i, command := range p.commands {
		result[i] = append([]string(nil), command.Args...)
	}
	return result
}

// Layout returns the inputs and directories of the process.
func (p *Process) Layout() *Layout {
	return p.layout
}

func (p *Process) canceledError() error {
	return &Error{Kind: Canceled, Mapper: p.name, Err: ErrCanceled}
}

func (p *Process) tick() func() {
	counter, group := p.em.counter, p.em.counterGroup
	if counter == nil {
		return nil
	}
	return func() {
		counter.IncrCounter(group, ReadsCounter, 1)
	}
}

// Start launches the commands. In entry mode with StageInput, they
// are launched when the input is closed. Start does not wait for the
// commands to be spawned.
func (p *Process) Start(ctx context.Context) error {
	p.mutex.Lock()
	if p.state != Initialized {
		state := p.state
		p.mutex.Unlock()
		return errorf(Execution, p.name, "cannot start a process that is %v", state)
	}
	p.parent = ctx
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.state = Running
	p.mutex.Unlock()

	if p.input.entryMode() {
		inputs := []string{p.layout.Input1}
		if p.input.Paired {
			inputs = append(inputs, p.layout.Input2)
		}
		for i, path := range inputs {
			var dst io.WriteCloser
			if p.pipeline.StageInput {
				f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
				if err != nil {
					p.launchErr = newError(IO, p.name, err)
					close(p.started)
					p.Cancel()
					return p.launchErr
				}
				dst = f
			} else {
				dst = &fifoSink{ctx: p.ctx, path: path}
			}
			p.writers[i] = fastq.NewWriter(dst, p.tick())
		}
	} else {
		p.CloseInput()
	}
	go p.launch()
	return nil
}

func (p *Process) fail(err error) {
	p.launchErr = err
	p.setState(Failed)
	p.cancel()
}

func (p *Process) launch() {
	defer close(p.started)
	if p.pipeline.StageInput {
		select {
		case <-p.inputClosed:
		case <-p.ctx.Done():
			p.fail(p.canceledError())
			return
		}
		if p.inputErr != nil {
			p.fail(p.inputErr)
			return
		}
	}
	last := len(p.commands) - 1
	files := p.layout.files()
	var procs []*launched
	for i, command := range p.commands {
		if command.Barrier {
			for _, lp := range procs {
				select {
				case <-lp.done:
				case <-p.ctx.Done():
					p.fail(p.canceledError())
					return
				}
				if err := p.exitError(lp); err != nil {
					p.fail(err)
					return
				}
			}
		}
		cmd := executor.Cmd{
			Args:       command.Args,
			Dir:        p.layout.Dir,
			Stdout:     i == last,
			StdoutFile: command.StdoutFile,
			StderrFile: p.em.stderrFile,
			Files:      files,
		}
		p.logger.Debug("launching", "command", cmd.String())
		proc, err := p.em.instance.executor.Execute(p.ctx, cmd)
		if err != nil {
			p.fail(newError(Execution, p.name, fmt.Errorf("cannot start %v: %w", command.Args[0], err)))
			return
		}
		lp := &launched{command: command, process: proc, done: make(chan struct{})}
		if i == last {
			p.stdout = proc.Stdout()
		}
		go lp.wait()
		procs = append(procs, lp)
		p.mutex.Lock()
		p.procs = procs
		p.mutex.Unlock()
	}
	go func() {
		// Named pipes nobody will read anymore must not block writers.
		for _, lp := range procs {
			<-lp.done
		}
		p.cancel()
	}()
}

func (p *Process) exitError(lp *launched) error {
	if lp.err != nil {
		return newError(Execution, p.name, lp.err)
	}
	if lp.code != 0 {
		return &Error{Kind: Execution, Mapper: p.name, Err: &ExitError{Mapper: p.name, Args: lp.command.Args, Code: lp.code}}
	}
	return nil
}

func (p *Process) write(mate int, read *fastq.Read) error {
	w := p.writers[mate]
	if w == nil {
		return errorf(Configuration, p.name, "process does not accept reads for mate %d", mate+1)
	}
	if err := w.Write(read); err != nil {
		return newError(IO, p.name, err)
	}
	return nil
}

// Write writes a single-end read, or a read of the first mate.
func (p *Process) Write(read *fastq.Read) error {
	return p.write(0, read)
}

// Write1 writes a read of the first mate.
func (p *Process) Write1(read *fastq.Read) error {
	return p.write(0, read)
}

// Write2 writes a read of the second mate.
func (p *Process) Write2(read *fastq.Read) error {
	return p.write(1, read)
}

// CloseInput flushes the reads written so far and closes the input, so
// that the commands see end of file. The writers of both mates are
// closed concurrently.
func (p *Process) CloseInput() error {
	p.inputOnce.Do(func() {
		var g errgroup.Group
		for _, w := range p.writers {
			if w != nil {
				g.Go(w.Close)
			}
		}
		p.inputErr = newError(IO, p.name, g.Wait())
		close(p.inputClosed)
	})
	return p.inputErr
}

// Stdout returns the output of the last command. It blocks until all
// commands are launched, which with StageInput means until the input
// is closed. Closing the stream waits for the last command to exit and
// fails if its exit code is not zero. Stdout can be called only once.
func (p *Process) Stdout() (io.ReadCloser, error) {
	if p.isCanceled() {
		return nil, p.canceledError()
	}
	if state := p.State(); state == Created || state == Initialized {
		return nil, errorf(Execution, p.name, "process is not started")
	}
	select {
	case <-p.started:
	case <-p.canceled:
		return nil, p.canceledError()
	}
	if p.launchErr != nil {
		return nil, p.launchErr
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.stdoutTaken {
		return nil, errorf(Execution, p.name, "output already taken")
	}
	p.stdoutTaken = true
	if p.state == Running {
		p.state = AwaitingExit
	}
	var r io.Reader = p.stdout
	if p.pipeline.Transform != nil {
		r = p.pipeline.Transform(r)
	}
	return &output{process: p, reader: r, last: p.procs[len(p.procs)-1]}, nil
}

type output struct {
	process *Process
	reader  io.Reader
	last    *launched
	once    sync.Once
	err     error
}

func (o *output) Read(b []byte) (int, error) {
	return o.reader.Read(b)
}

func (o *output) Close() error {
	o.once.Do(func() {
		p := o.process
		_ = p.stdout.Close()
		select {
		case <-o.last.done:
			o.err = p.exitError(o.last)
		case <-p.canceled:
			o.err = p.canceledError()
		}
	})
	return o.err
}

// DiscardOutput drains the output of the last command in the
// background and throws it away. It fails if the output was already
// taken.
func (p *Process) DiscardOutput() error {
	if state := p.State(); state == Created || state == Initialized {
		return errorf(Execution, p.name, "process is not started")
	}
	if !p.discard() {
		return errorf(Execution, p.name, "output already taken")
	}
	return nil
}

// discard claims the output for draining, unless it was taken.
func (p *Process) discard() bool {
	p.mutex.Lock()
	if p.stdoutTaken {
		p.mutex.Unlock()
		return false
	}
	p.stdoutTaken = true
	if p.state == Running {
		p.state = AwaitingExit
	}
	discarded := make(chan struct{})
	p.discarded = discarded
	p.mutex.Unlock()
	go func() {
		defer close(discarded)
		<-p.started
		if p.stdout == nil {
			return
		}
		if _, err := io.Copy(io.Discard, p.stdout); err != nil && !p.isCanceled() {
			p.logger.Warn("cannot discard mapper output", "error", err)
		}
		_ = p.stdout.Close()
	}()
	return true
}

// Wait closes the input if needed, waits for all commands to exit and
// removes the temporary files. It reports the first failure in launch
// order. Output that was not taken with Stdout is discarded. Cancel
// interrupts Wait.
func (p *Process) Wait() error {
	p.reapOnce.Do(func() { go p.reap() })
	select {
	case <-p.reaped:
		return p.result
	case <-p.canceled:
		return p.canceledError()
	}
}

// Cancel kills all commands, waits for them to exit and removes the
// temporary files. Pending and later calls of Wait and Stdout fail
// with ErrCanceled.
func (p *Process) Cancel() {
	p.cancelOnce.Do(func() {
		close(p.canceled)
		p.mutex.Lock()
		cancel := p.cancel
		p.mutex.Unlock()
		if cancel != nil {
			cancel()
		}
	})
	p.reapOnce.Do(func() { go p.reap() })
	<-p.reaped
}

func (p *Process) isCanceled() bool {
	select {
	case <-p.canceled:
		return true
	default:
		return false
	}
}

func (p *Process) reap() {
	defer close(p.reaped)

	p.mutex.Lock()
	if p.state == Created || p.state == Initialized {
		p.state = Failed
		p.mutex.Unlock()
		p.cleanup()
		if p.isCanceled() {
			p.result = p.canceledError()
		} else {
			p.result = errorf(Execution, p.name, "process was never started")
		}
		return
	}
	p.mutex.Unlock()

	p.discard()
	inputErr := p.CloseInput()
	<-p.started

	p.mutex.Lock()
	procs, discarded := p.procs, p.discarded
	p.mutex.Unlock()
	if discarded != nil {
		<-discarded
	}

	var exitErr error
	for _, lp := range procs {
		<-lp.done
		if err := p.exitError(lp); err != nil && exitErr == nil {
			exitErr = err
		}
	}
	result := p.launchErr
	if result == nil {
		result = exitErr
	}
	if result == nil {
		result = inputErr
	}
	if p.isCanceled() || (result != nil && p.parent.Err() != nil) {
		result = p.canceledError()
	}
	p.cleanup()

	p.result = result
	if result == nil {
		p.setState(Terminated)
	} else {
		p.setState(Failed)
	}
}

// cleanup removes all registered temporary files. Failures are logged.
func (p *Process) cleanup() {
	p.mutex.Lock()
	temps := p.temps
	p.temps = nil
	p.mutex.Unlock()
	failed, errs := internal.RemoveFiles(temps)
	for i, name := range failed {
		p.logger.Warn("cannot remove temporary file", "file", name, "error", errs[i])
	}
}

// IsCanceled reports whether err is a cancellation of a process.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}
