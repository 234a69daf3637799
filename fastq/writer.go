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

package fastq

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/exascience/pargo/pipeline"

	"github.com/exascience/elmap/internal"
)

const (
	// BatchSize is the number of characters after which a batch of
	// formatted records is handed to the consumer. Batches always end
	// on a record boundary, so they are usually somewhat larger.
	BatchSize = 1000

	// QueueCapacity is the number of batches that may wait for the
	// consumer before Write blocks.
	QueueCapacity = 16
)

// ErrWriterClosed is returned when writing to a closed Writer.
var ErrWriterClosed = errors.New("FASTQ writer already closed")

type (
	// Writer streams reads into an io.WriteCloser, typically the write
	// end of a named pipe read by an aligner.
	//
	// Write formats reads into batches that are queued for a consumer
	// goroutine performing the actual writes. The queue has a fixed
	// capacity, so Write blocks while the consumer is behind. An error
	// of the consumer is returned by the next call to Write or Close.
	//
	// A Writer must not be used by more than one goroutine at a time;
	// independent Writers can be used concurrently.
	Writer struct {
		dst     io.WriteCloser
		p       pipeline.Pipeline
		wait    sync.WaitGroup
		done    chan struct{}
		channel chan batch
		batch   []byte
		reads   int
		data    interface{}
		tick    func()
		written int64
		closed  bool
	}

	// batch is a run of formatted records and their number.
	batch struct {
		data  []byte
		reads int
	}

	internalWriter Writer
)

// Err implements the corresponding method of pipeline.Source
func (*internalWriter) Err() error {
	return nil
}

// Prepare implements the corresponding method of pipeline.Source
func (*internalWriter) Prepare(_ context.Context) (size int) {
	return -1
}

// Fetch implements the corresponding method of pipeline.Source
func (w *internalWriter) Fetch(size int) (fetched int) {
	if b, ok := <-w.channel; ok {
		w.data = b
		return 1
	}
	w.data = nil
	return 0
}

// Data implements the corresponding method of pipeline.Source
func (w *internalWriter) Data() interface{} {
	return w.data
}

// NewWriter returns a Writer for dst. If tick is not nil, it is called
// once for every read, from the consumer goroutine, after the batch
// holding the read was written to dst. Close closes dst.
func NewWriter(dst io.WriteCloser, tick func()) *Writer {
	w := &Writer{
		dst:     dst,
		done:    make(chan struct{}),
		channel: make(chan batch, QueueCapacity),
		batch:   internal.ReserveByteBuffer(),
		tick:    tick,
	}
	w.p.Source((*internalWriter)(w))
	w.p.Add(pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
		b := data.(batch)
		_, err := dst.Write(b.data)
		internal.ReleaseByteBuffer(b.data)
		if err != nil {
			w.p.SetErr(err)
			return nil
		}
		if w.tick != nil {
			for i := 0; i < b.reads; i++ {
				w.tick()
			}
		}
		return nil
	})))
	w.wait.Add(1)
	go func() {
		defer w.wait.Done()
		defer close(w.done)
		w.p.Run()
	}()
	return w
}

// send queues the current batch. It blocks while the queue is full,
// and fails once the consumer has stopped.
func (w *Writer) send() error {
	if err := w.p.Err(); err != nil {
		return err
	}
	select {
	case w.channel <- batch{w.batch, w.reads}:
		w.batch = internal.ReserveByteBuffer()
		w.reads = 0
		return nil
	case <-w.done:
		if err := w.p.Err(); err != nil {
			return err
		}
		return io.ErrClosedPipe
	}
}

// Write formats the read and queues it for the consumer.
func (w *Writer) Write(read *Read) error {
	if w.closed {
		return ErrWriterClosed
	}
	if err := w.p.Err(); err != nil {
		return err
	}
	w.batch = AppendRead(w.batch, read)
	w.written++
	w.reads++
	if len(w.batch) >= BatchSize {
		return w.send()
	}
	return nil
}

// Written returns the number of reads passed to Write.
func (w *Writer) Written() int64 {
	return w.written
}

// Close flushes the pending batch, waits until the consumer has written
// every queued batch, and closes the destination. Close returns the
// first error of any of these steps.
func (w *Writer) Close() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true
	var err error
	if len(w.batch) > 0 {
		err = w.send()
	}
	close(w.channel)
	w.wait.Wait()
	if perr := w.p.Err(); perr != nil {
		err = perr
	}
	if cerr := w.dst.Close(); err == nil {
		err = cerr
	}
	return err
}
