package log

import (
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// WriterLogger writes protocol events to an io.Writer as a CBOR stream.
// It is safe for concurrent use from multiple goroutines.
type WriterLogger struct {
	w       io.Writer
	closer  io.Closer
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
}

// NewWriterLogger creates a logger writing CBOR events to w.
func NewWriterLogger(w io.Writer) *WriterLogger {
	return &WriterLogger{
		w:       w,
		encoder: cbor.NewEncoder(w),
	}
}

// NewFileLogger creates a logger appending CBOR events to the file at
// path, creating it with permissions 0644 if needed.
func NewFileLogger(path string) (*WriterLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	l := NewWriterLogger(f)
	l.closer = f
	return l, nil
}

// Log writes an event. Encoding errors are ignored: logging must not
// disrupt the data path.
func (l *WriterLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	_ = l.encoder.Encode(event)
}

// Close closes the underlying file, if any. Safe to call multiple
// times; subsequent Log calls are silently ignored.
func (l *WriterLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// Compile-time interface satisfaction check.
var _ Logger = (*WriterLogger)(nil)
