// Package telemetry provides the OpenTelemetry tracer used to time stage handlers.
package telemetry

import (
	"bytes"
	"errors"
	"sync"
)

// DefaultLineLimit is the number of buffered bytes after which complete lines are flushed.
const DefaultLineLimit = 4096

var errLineBatcherClosed = errors.New("line batcher is closed")

// LineBatcher buffers output and hands it to a callback in chunks of whole lines.
// A chunk is flushed once the buffer holds at least limit bytes. A line longer than
// limit is flushed as is. Close flushes the trailing partial line.
type LineBatcher struct {
	limit   int
	onFlush func(string)

	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

// NewLineBatcher returns a LineBatcher calling onFlush with each chunk.
// A non-positive limit selects DefaultLineLimit.
func NewLineBatcher(limit int, onFlush func(string)) *LineBatcher {
	if limit <= 0 {
		limit = DefaultLineLimit
	}
	return &LineBatcher{limit: limit, onFlush: onFlush}
}

// Write buffers p and flushes the complete lines once the limit is reached.
func (b *LineBatcher) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, errLineBatcherClosed
	}
	b.buf.Write(p)

	if b.buf.Len() < b.limit {
		return len(p), nil
	}
	end := bytes.LastIndexByte(b.buf.Bytes(), '\n') + 1
	if end == 0 {
		end = b.buf.Len()
	}
	b.emit(b.buf.Next(end))
	return len(p), nil
}

// Close flushes everything still buffered. Later writes fail.
func (b *LineBatcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.emit(b.buf.Next(b.buf.Len()))
	return nil
}

// emit must be called with mu held.
func (b *LineBatcher) emit(chunk []byte) {
	text := string(bytes.TrimRight(chunk, "\n"))
	if text == "" || b.onFlush == nil {
		return
	}
	b.onFlush(text)
}
