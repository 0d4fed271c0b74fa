// Package bridge translates the foreign I/O calling convention into calls on
// protocol handlers.
//
// Every entry point takes a *Handle and returns an integer: 0 for a successful
// open or close, a non-negative count or offset for transfers and seeks, and
// -1 for any failure. Errors returned by handler code and panics raised inside
// it are intercepted here, logged, and converted to -1; nothing crosses back
// into the caller's stack.
package bridge

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime/debug"

	"github.com/artclarke/humble-video-sub001/protocol"
)

// ErrPanic wraps a value recovered from a panicking handler.
var ErrPanic = errors.New("bridge: handler panicked")

// Bridge routes foreign calls to handlers resolved through a Registry.
// A Bridge holds no per-stream state and is safe for concurrent use.
type Bridge struct {
	registry *protocol.Registry
	logger   *slog.Logger
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger used for intercepted failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// New creates a bridge that resolves URLs through registry.
func New(registry *protocol.Registry, opts ...Option) *Bridge {
	b := &Bridge{registry: registry}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Registry returns the registry the bridge resolves through.
func (b *Bridge) Registry() *protocol.Registry {
	return b.registry
}

// Open resolves a handler for url (unless h was pre-resolved), opens it with
// mode and binds it to h. On failure h is left unbound and can be opened
// again immediately, with the same or a different mode.
func (b *Bridge) Open(h *Handle, url string, mode protocol.Mode) int32 {
	if h == nil {
		b.fail("open", url, fmt.Errorf("%w: nil handle", protocol.ErrUsage))
		return protocol.Failure
	}
	if h.state == StateOpen {
		b.fail("open", url, fmt.Errorf("%w: handle already bound to %q", protocol.ErrUsage, h.url))
		return protocol.Failure
	}
	if !mode.Valid() {
		b.fail("open", url, fmt.Errorf("%w: invalid mode %v", protocol.ErrUsage, mode))
		h.unbind(StateUnbound)
		return protocol.Failure
	}

	err := b.guard(func() error {
		if h.handler == nil {
			if b.registry == nil {
				return fmt.Errorf("%w: bridge has no registry", protocol.ErrNoHandler)
			}
			handler, err := b.registry.Resolve(url, mode)
			if err != nil {
				return err
			}
			h.handler = handler
		}
		return h.handler.Open(url, mode)
	})
	if err != nil {
		b.fail("open", url, err)
		h.unbind(StateUnbound)
		return protocol.Failure
	}

	h.url = url
	h.mode = mode
	h.state = StateOpen
	return protocol.OK
}

// Read fills buf from the bound handler and returns the number of bytes
// transferred. 0 means end of stream.
func (b *Bridge) Read(h *Handle, buf []byte) int32 {
	if err := b.ready(h, "read", protocol.Mode.CanRead); err != nil {
		b.fail("read", handleURL(h), err)
		return protocol.Failure
	}
	buf = clamp(buf)

	var n int
	err := b.guard(func() error {
		var err error
		n, err = h.handler.Read(buf)
		return err
	})
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if err == nil && (n < 0 || n > len(buf)) {
		err = fmt.Errorf("%w: handler reported %d bytes for a %d byte buffer", protocol.ErrIO, n, len(buf))
	}
	if err != nil {
		b.fail("read", h.url, err)
		return protocol.Failure
	}
	return int32(n)
}

// Write sends buf to the bound handler and returns the number of bytes
// transferred, which may be less than len(buf).
func (b *Bridge) Write(h *Handle, buf []byte) int32 {
	if err := b.ready(h, "write", protocol.Mode.CanWrite); err != nil {
		b.fail("write", handleURL(h), err)
		return protocol.Failure
	}
	buf = clamp(buf)

	var n int
	err := b.guard(func() error {
		var err error
		n, err = h.handler.Write(buf)
		return err
	})
	if err == nil && (n < 0 || n > len(buf)) {
		err = fmt.Errorf("%w: handler reported %d bytes for a %d byte buffer", protocol.ErrIO, n, len(buf))
	}
	if err != nil {
		b.fail("write", h.url, err)
		return protocol.Failure
	}
	return int32(n)
}

// Seek moves the bound handler's position and returns the new absolute
// offset. protocol.SeekSize is answered with Size; any other whence outside
// start, current and end fails.
func (b *Bridge) Seek(h *Handle, offset int64, whence protocol.Whence) int64 {
	if whence == protocol.SeekSize {
		return b.Size(h)
	}
	if err := b.ready(h, "seek", nil); err != nil {
		b.fail("seek", handleURL(h), err)
		return int64(protocol.Failure)
	}
	if !whence.Valid() {
		b.fail("seek", h.url, fmt.Errorf("%w: invalid whence %d", protocol.ErrUsage, whence))
		return int64(protocol.Failure)
	}

	var pos int64
	err := b.guard(func() error {
		var err error
		pos, err = h.handler.Seek(offset, whence)
		return err
	})
	if err == nil && pos < 0 {
		err = fmt.Errorf("%w: handler reported offset %d", protocol.ErrIO, pos)
	}
	if err != nil {
		b.fail("seek", h.url, err)
		return int64(protocol.Failure)
	}
	return pos
}

// Size returns the total size of the bound stream by seeking to the end and
// back, or -1 if the stream is not seekable. The original position is
// restored whenever the handler can still seek; if that restore fails the
// position is undefined and -1 is returned.
func (b *Bridge) Size(h *Handle) int64 {
	if err := b.ready(h, "size", nil); err != nil {
		b.fail("size", handleURL(h), err)
		return int64(protocol.Failure)
	}

	var size int64
	err := b.guard(func() error {
		cur, err := h.handler.Seek(0, protocol.SeekCurrent)
		if err != nil {
			return err
		}
		size, err = h.handler.Seek(0, protocol.SeekEnd)
		if _, rerr := h.handler.Seek(cur, protocol.SeekStart); err == nil {
			err = rerr
		}
		return err
	})
	if err != nil {
		b.fail("size", h.url, err)
		return int64(protocol.Failure)
	}
	return size
}

// Close closes the bound handler. Whatever the handler reports, h ends up
// closed and unbound so it can be opened again.
func (b *Bridge) Close(h *Handle) int32 {
	if h == nil {
		b.fail("close", "", fmt.Errorf("%w: nil handle", protocol.ErrUsage))
		return protocol.Failure
	}
	if h.state != StateOpen {
		h.unbind(StateClosed)
		return protocol.OK
	}

	err := b.guard(func() error {
		return h.handler.Close()
	})
	h.unbind(StateClosed)
	if err != nil {
		b.fail("close", h.url, err)
		return protocol.Failure
	}
	return protocol.OK
}

// IsStreamed reports whether url would be opened as a non-seekable stream.
// It resolves a handler without opening it and never fails: an unresolvable
// url or a panicking handler is reported as streamed.
func (b *Bridge) IsStreamed(url string, mode protocol.Mode) bool {
	streamed := true
	err := b.guard(func() error {
		if b.registry == nil {
			return fmt.Errorf("%w: bridge has no registry", protocol.ErrNoHandler)
		}
		handler, err := b.registry.Resolve(url, mode)
		if err != nil {
			return err
		}
		streamed = handler.IsStreamed(url, mode)
		return nil
	})
	if err != nil {
		b.logger.Debug("treating url as streamed", "url", url, "err", err)
		return true
	}
	return streamed
}

// Streamed reports whether the handler bound to h is non-seekable.
func (b *Bridge) Streamed(h *Handle) bool {
	if h == nil || h.handler == nil {
		return true
	}
	streamed := true
	if err := b.guard(func() error {
		streamed = h.handler.IsStreamed(h.url, h.mode)
		return nil
	}); err != nil {
		b.logger.Debug("treating handle as streamed", "url", h.url, "err", err)
		return true
	}
	return streamed
}

// guard runs fn and converts a panic inside it into an error wrapping
// ErrPanic.
func (b *Bridge) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("recovered panic in protocol handler",
				"panic", r,
				"stack", string(debug.Stack()),
			)
			if rerr, ok := r.(error); ok {
				err = fmt.Errorf("%w: %w", ErrPanic, rerr)
			} else {
				err = fmt.Errorf("%w: %v", ErrPanic, r)
			}
		}
	}()
	return fn()
}

// ready checks that h is open and, when allowed is non-nil, that its mode
// permits the operation.
func (b *Bridge) ready(h *Handle, op string, allowed func(protocol.Mode) bool) error {
	if h == nil {
		return fmt.Errorf("%w: %s on nil handle", protocol.ErrUsage, op)
	}
	if h.state != StateOpen || h.handler == nil {
		return fmt.Errorf("%w: %s on %s handle", protocol.ErrUsage, op, h.state)
	}
	if allowed != nil && !allowed(h.mode) {
		return fmt.Errorf("%w: %s on handle opened for %s", protocol.ErrUsage, op, h.mode)
	}
	return nil
}

func (b *Bridge) fail(op, url string, err error) {
	b.logger.Warn("protocol operation failed",
		"op", op,
		"url", url,
		"err", err,
	)
}

func handleURL(h *Handle) string {
	if h == nil {
		return ""
	}
	return h.url
}

// clamp limits buf so a transfer count always fits the int32 return code.
func clamp(buf []byte) []byte {
	if len(buf) > math.MaxInt32 {
		return buf[:math.MaxInt32]
	}
	return buf
}
