// Package jsonl provides a line-delimited JSON emitter for runs without a
// Kafka broker: one item per line, appended in emission order.
package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// Writer appends emitted items to an io.Writer as JSON lines.
// It implements pipeline.Emitter.
type Writer struct {
	mu  sync.Mutex
	buf *bufio.Writer
	c   io.Closer
}

// NewWriter wraps an arbitrary writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{buf: bufio.NewWriter(w)}
}

// Open creates or truncates the file at path. "-" selects stdout.
func Open(path string) (*Writer, error) {
	if path == "-" {
		return NewWriter(os.Stdout), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open jsonl sink: %w", err)
	}
	return &Writer{buf: bufio.NewWriter(f), c: f}, nil
}

// Emit writes one item as a JSON line. The key is part of the Kafka contract
// and is not persisted here; line order carries the stream order.
func (w *Writer) Emit(_ context.Context, _ string, item any) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("serialize emitted item: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.buf.Write(data); err != nil {
		return fmt.Errorf("write jsonl item: %w", err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("write jsonl item: %w", err)
	}
	return nil
}

// Close flushes buffered lines and closes the underlying file, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.c != nil {
		return w.c.Close()
	}
	return nil
}
