// Package channel provides protocol handlers over Go byte channels: a
// sequential adapter for io.Reader / io.Writer values, and a seekable
// adapter for files.
package channel

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/artclarke/humble-video-sub001/protocol"
)

// maxEmptyReads bounds how many (0, nil) reads Read tolerates before giving
// up, as bufio does.
const maxEmptyReads = 100

// Handler adapts a read-capable source, a write-capable sink, or both.
// It supports one open stream at a time, in read or write mode; read-write
// is rejected. Seeking is never supported.
type Handler struct {
	mu           sync.Mutex
	reader       io.Reader
	writer       io.Writer
	closeOnClose bool

	// mode is the mode of the current Open, or 0 when nothing is bound.
	mode protocol.Mode
}

// Option configures a Handler.
type Option func(*Handler)

// WithCloseOnClose sets whether Close closes the underlying channel when it
// implements io.Closer. The default is true.
func WithCloseOnClose(enabled bool) Option {
	return func(h *Handler) {
		h.closeOnClose = enabled
	}
}

// NewHandler creates a handler over r, w, or both. At least one must be
// non-nil; otherwise it returns an error wrapping protocol.ErrConfiguration.
func NewHandler(r io.Reader, w io.Writer, opts ...Option) (*Handler, error) {
	if r == nil && w == nil {
		return nil, fmt.Errorf("%w: channel handler needs a reader or a writer", protocol.ErrConfiguration)
	}
	h := &Handler{
		reader:       r,
		writer:       w,
		closeOnClose: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// NewReadHandler creates a handler that can only be opened for reading.
func NewReadHandler(r io.Reader, opts ...Option) (*Handler, error) {
	return NewHandler(r, nil, opts...)
}

// NewWriteHandler creates a handler that can only be opened for writing.
func NewWriteHandler(w io.Writer, opts ...Option) (*Handler, error) {
	return NewHandler(nil, w, opts...)
}

// Open binds the reader or writer selected by mode.
func (h *Handler) Open(url string, mode protocol.Mode) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.mode != 0 {
		return fmt.Errorf("%w: %q opened while already open", protocol.ErrUsage, url)
	}
	switch mode {
	case protocol.ModeRead:
		if h.reader == nil {
			return fmt.Errorf("%w: no reader to open %q for reading", protocol.ErrUsage, url)
		}
		h.mode = mode
	case protocol.ModeWrite:
		if h.writer == nil {
			return fmt.Errorf("%w: no writer to open %q for writing", protocol.ErrUsage, url)
		}
		h.mode = mode
	default:
		return fmt.Errorf("%w: mode %v not supported for %q", protocol.ErrUsage, mode, url)
	}
	return nil
}

// Read reads from the bound reader. It returns 0, io.EOF at end of stream.
// Reads that return no data and no error are retried, since a zero count
// means end of stream to the caller.
func (h *Handler) Read(buf []byte) (int, error) {
	h.mu.Lock()
	r, open := h.reader, h.mode == protocol.ModeRead
	h.mu.Unlock()
	if !open {
		return 0, fmt.Errorf("%w: read without an open reader", protocol.ErrUsage)
	}
	if len(buf) == 0 {
		return 0, nil
	}

	for i := 0; i < maxEmptyReads; i++ {
		n, err := r.Read(buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return n, fmt.Errorf("%w: %w", protocol.ErrIO, err)
		}
		if n > 0 {
			return n, nil
		}
		if err != nil {
			return 0, err
		}
	}
	return 0, fmt.Errorf("%w: %w", protocol.ErrIO, io.ErrNoProgress)
}

// Write writes to the bound writer. A short write is reported by the count,
// not as an error.
func (h *Handler) Write(buf []byte) (int, error) {
	h.mu.Lock()
	w, open := h.writer, h.mode == protocol.ModeWrite
	h.mu.Unlock()
	if !open {
		return 0, fmt.Errorf("%w: write without an open writer", protocol.ErrUsage)
	}

	n, err := w.Write(buf)
	if err != nil && !errors.Is(err, io.ErrShortWrite) {
		return n, fmt.Errorf("%w: %w", protocol.ErrIO, err)
	}
	return n, nil
}

// Seek always fails with protocol.ErrUnsupported.
func (h *Handler) Seek(int64, protocol.Whence) (int64, error) {
	return 0, fmt.Errorf("%w: seek on a sequential channel", protocol.ErrUnsupported)
}

// Close closes the bound channel if the handler was configured to, then
// forgets it even if closing failed. A forgotten channel cannot be opened
// again.
func (h *Handler) Close() error {
	h.mu.Lock()
	var open any
	switch h.mode {
	case protocol.ModeRead:
		open = h.reader
		h.reader = nil
	case protocol.ModeWrite:
		open = h.writer
		h.writer = nil
	}
	h.mode = 0
	h.mu.Unlock()

	if open == nil || !h.closeOnClose {
		return nil
	}
	if c, ok := open.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("%w: %w", protocol.ErrIO, err)
		}
	}
	return nil
}

// IsStreamed always reports true.
func (h *Handler) IsStreamed(string, protocol.Mode) bool {
	return true
}

// IsOpen reports whether a channel is currently bound.
func (h *Handler) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mode != 0
}

var _ protocol.Handler = (*Handler)(nil)
