//go:build !ios && !android && (amd64 || arm64)

package humble

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"unsafe"

	"github.com/artclarke/humble-video-sub001/avio"
	"github.com/artclarke/humble-video-sub001/bridge"
	"github.com/artclarke/humble-video-sub001/channel"
	"github.com/artclarke/humble-video-sub001/internal/handles"
	"github.com/artclarke/humble-video-sub001/protocol"
	"github.com/ebitengine/purego"
)

// Default buffer size for custom I/O (32KB)
const DefaultBufferSize = 32 * 1024

// IOContext is an FFmpeg AVIOContext backed by a bridge handle.
// FFmpeg calls read/write/seek on the handle through C callbacks; the handle
// in turn calls the protocol handler resolved for the URL.
//
// An IOContext is not safe for concurrent use.
type IOContext struct {
	mu      sync.Mutex
	avioCtx avio.Context
	bridge  *bridge.Bridge
	handle  *bridge.Handle
	id      uintptr
	mode    protocol.Mode
	closed  bool

	// release drops the scheme registered for a Go stream, if any.
	release func()
}

// contexts lets the C callbacks find their IOContext from the opaque value.
var contexts = handles.New[*IOContext]()

// Pre-registered callbacks to avoid hitting purego's callback limit.
// These are registered once and reused across all IOContext instances.
var (
	callbacksOnce    sync.Once
	readCallbackPtr  uintptr
	writeCallbackPtr uintptr
	seekCallbackPtr  uintptr
)

func initCallbacks() {
	callbacksOnce.Do(func() {
		// int read_packet(void *opaque, uint8_t *buf, int buf_size)
		readCallbackPtr = purego.NewCallback(func(_ purego.CDecl, opaque uintptr, buf *byte, bufSize int32) int32 {
			c, ok := contexts.Lookup(opaque)
			if !ok || bufSize <= 0 {
				return -1
			}
			n := c.bridge.Read(c.handle, unsafe.Slice(buf, bufSize))
			if n == 0 {
				return avio.ErrorEOF
			}
			return n
		})

		// int write_packet(void *opaque, const uint8_t *buf, int buf_size)
		// FFmpeg does not retry short writes, so keep writing until the
		// handler has taken the whole buffer.
		writeCallbackPtr = purego.NewCallback(func(_ purego.CDecl, opaque uintptr, buf *byte, bufSize int32) int32 {
			c, ok := contexts.Lookup(opaque)
			if !ok || bufSize < 0 {
				return -1
			}
			data := unsafe.Slice(buf, bufSize)
			for off := int32(0); off < bufSize; {
				n := c.bridge.Write(c.handle, data[off:])
				if n <= 0 {
					return -1
				}
				off += n
			}
			return bufSize
		})

		// int64_t seek(void *opaque, int64_t offset, int whence)
		seekCallbackPtr = purego.NewCallback(func(_ purego.CDecl, opaque uintptr, offset int64, whence int32) int64 {
			c, ok := contexts.Lookup(opaque)
			if !ok {
				return -1
			}
			whence &^= avio.SeekForce
			if whence == avio.SeekSize {
				return c.bridge.Size(c.handle)
			}
			return c.bridge.Seek(c.handle, offset, protocol.Whence(whence))
		})
	})
}

// NewIOContext opens url through b and wraps the open handle in an
// AVIOContext. bufferSize <= 0 selects DefaultBufferSize.
//
// The seek callback is installed only when the handler reports a seekable
// stream. Read-write mode installs both transfer callbacks; whether it is
// accepted is up to the handler.
func NewIOContext(b *bridge.Bridge, url string, mode protocol.Mode, bufferSize int) (*IOContext, error) {
	if b == nil {
		return nil, errors.New("humble: bridge cannot be nil")
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if err := Init(); err != nil {
		return nil, err
	}
	initCallbacks()

	handle := bridge.NewHandle()
	if b.Open(handle, url, mode) != protocol.OK {
		return nil, fmt.Errorf("%w: %q for %s", ErrOpen, url, mode)
	}

	// Allocate buffer with av_malloc (required by FFmpeg - it may reallocate it)
	buffer := avio.Malloc(uintptr(bufferSize))
	if buffer == nil {
		b.Close(handle)
		return nil, ErrOutOfMemory
	}

	c := &IOContext{
		bridge: b,
		handle: handle,
		mode:   mode,
	}
	c.id = contexts.Register(c)

	var readCb, writeCb, seekCb uintptr
	if mode.CanRead() {
		readCb = readCallbackPtr
	}
	if mode.CanWrite() {
		writeCb = writeCallbackPtr
	}
	if !b.Streamed(handle) {
		seekCb = seekCallbackPtr
	}

	c.avioCtx = avio.AllocContext(buffer, bufferSize, mode.CanWrite(), c.id, readCb, writeCb, seekCb)
	if c.avioCtx == nil {
		avio.Free(buffer)
		contexts.Unregister(c.id)
		b.Close(handle)
		return nil, errors.New("humble: failed to create AVIOContext")
	}

	return c, nil
}

// NewReaderIOContext registers r under a fresh scheme and opens it for
// reading. r is closed with the context if it implements io.Closer.
func NewReaderIOContext(b *bridge.Bridge, r io.Reader) (*IOContext, error) {
	return newStreamIOContext(b, "reader", r, nil, protocol.ModeRead)
}

// NewWriterIOContext registers w under a fresh scheme and opens it for
// writing. w is closed with the context if it implements io.Closer.
func NewWriterIOContext(b *bridge.Bridge, w io.Writer) (*IOContext, error) {
	return newStreamIOContext(b, "writer", nil, w, protocol.ModeWrite)
}

// newStreamIOContext serves r or w under a scheme that lives as long as the
// returned context.
func newStreamIOContext(b *bridge.Bridge, prefix string, r io.Reader, w io.Writer, mode protocol.Mode) (*IOContext, error) {
	if b == nil {
		return nil, errors.New("humble: bridge cannot be nil")
	}
	if b.Registry() == nil {
		return nil, fmt.Errorf("%w: bridge has no registry", protocol.ErrNoHandler)
	}
	url, release, err := channel.RegisterStream(b.Registry(), prefix, r, w)
	if err != nil {
		return nil, err
	}
	c, err := NewIOContext(b, url, mode, 0)
	if err != nil {
		release()
		return nil, err
	}
	c.release = release
	return c, nil
}

// AVIOContext returns the underlying AVIOContext pointer, for handing to
// libavformat.
func (c *IOContext) AVIOContext() avio.Context {
	return c.avioCtx
}

// URL returns the url the context was opened with.
func (c *IOContext) URL() string {
	return c.handle.URL()
}

// Read reads through FFmpeg's buffered I/O, exercising the read callback.
func (c *IOContext) Read(p []byte) (int, error) {
	if c.isClosed() {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	n := avio.Read(c.avioCtx, p)
	switch {
	case n == avio.ErrorEOF:
		return 0, io.EOF
	case n < 0:
		return 0, fmt.Errorf("%w: avio_read returned %d", ErrIO, n)
	case n == 0:
		return 0, io.EOF
	}
	return int(n), nil
}

// Write queues p in FFmpeg's buffer; data reaches the handler when the buffer
// fills, on Flush, or on Close.
func (c *IOContext) Write(p []byte) (int, error) {
	if c.isClosed() {
		return 0, ErrClosed
	}
	avio.Write(c.avioCtx, p)
	return len(p), nil
}

// Flush pushes buffered data to the handler.
func (c *IOContext) Flush() error {
	if c.isClosed() {
		return ErrClosed
	}
	avio.Flush(c.avioCtx)
	return nil
}

// Seek repositions the context and returns the new offset.
func (c *IOContext) Seek(offset int64, whence int) (int64, error) {
	if c.isClosed() {
		return 0, ErrClosed
	}
	pos := avio.Seek(c.avioCtx, offset, whence)
	if pos < 0 {
		return 0, fmt.Errorf("%w: avio_seek returned %d", ErrIO, pos)
	}
	return pos, nil
}

// Size returns the stream size, or an error for streamed sources.
func (c *IOContext) Size() (int64, error) {
	if c.isClosed() {
		return 0, ErrClosed
	}
	size := avio.Size(c.avioCtx)
	if size < 0 {
		return 0, fmt.Errorf("%w: avio_size returned %d", ErrIO, size)
	}
	return size, nil
}

// Close flushes pending writes, frees the AVIOContext and closes the bridge
// handle. Contexts made for a Go stream also drop the stream's scheme. It is
// safe to call more than once.
func (c *IOContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.avioCtx != nil {
		if c.mode.CanWrite() {
			avio.Flush(c.avioCtx)
		}
		avio.FreeContext(&c.avioCtx)
	}

	// Unregister only after FFmpeg can no longer call back.
	contexts.Unregister(c.id)
	c.id = 0

	ret := c.bridge.Close(c.handle)
	if c.release != nil {
		c.release()
	}
	if ret != protocol.OK {
		return fmt.Errorf("%w: %q", ErrClose, c.handle.URL())
	}
	return nil
}

func (c *IOContext) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
