package channel

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/artclarke/humble-video-sub001/protocol"
)

// FileHandler opens the resource part of a URL as a file. Unlike Handler it
// supports seeking and all three modes.
type FileHandler struct {
	mu       sync.Mutex
	root     string
	readOnly bool
	perm     os.FileMode
	file     *os.File
}

// FileOption configures a FileHandler.
type FileOption func(*FileHandler)

// WithRoot resolves resources beneath dir. Resources that would escape dir
// are rejected on Open.
func WithRoot(dir string) FileOption {
	return func(h *FileHandler) {
		h.root = dir
	}
}

// WithReadOnly rejects write and read-write opens.
func WithReadOnly() FileOption {
	return func(h *FileHandler) {
		h.readOnly = true
	}
}

// WithPerm sets the permission bits of files created by write opens.
// The default is 0o644.
func WithPerm(perm os.FileMode) FileOption {
	return func(h *FileHandler) {
		h.perm = perm
	}
}

// NewFileHandler creates a file handler.
func NewFileHandler(opts ...FileOption) *FileHandler {
	h := &FileHandler{perm: 0o644}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Path returns the file path url maps to.
func (h *FileHandler) Path(url string) (string, error) {
	resource := protocol.ResourceFromURL(url)
	if resource == "" {
		return "", fmt.Errorf("%w: %q names no file", protocol.ErrUsage, url)
	}
	if h.root == "" {
		return filepath.FromSlash(resource), nil
	}

	rel := filepath.Clean(filepath.FromSlash("/" + resource))
	path := filepath.Join(h.root, rel)
	within, err := filepath.Rel(h.root, path)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes %s", protocol.ErrUsage, url, h.root)
	}
	return path, nil
}

// Open opens the file named by url.
func (h *FileHandler) Open(url string, mode protocol.Mode) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.file != nil {
		return fmt.Errorf("%w: %q opened while already open", protocol.ErrUsage, url)
	}

	var flag int
	switch mode {
	case protocol.ModeRead:
		flag = os.O_RDONLY
	case protocol.ModeWrite:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case protocol.ModeReadWrite:
		flag = os.O_RDWR | os.O_CREATE
	default:
		return fmt.Errorf("%w: mode %v", protocol.ErrUsage, mode)
	}
	if h.readOnly && mode != protocol.ModeRead {
		return fmt.Errorf("%w: %q is read-only", protocol.ErrUsage, url)
	}

	path, err := h.Path(url)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, flag, h.perm)
	if err != nil {
		return fmt.Errorf("%w: %w", protocol.ErrIO, err)
	}
	h.file = f
	return nil
}

func (h *FileHandler) current() (*os.File, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file == nil {
		return nil, fmt.Errorf("%w: file is not open", protocol.ErrUsage)
	}
	return h.file, nil
}

// Read reads from the open file.
func (h *FileHandler) Read(buf []byte) (int, error) {
	f, err := h.current()
	if err != nil {
		return 0, err
	}
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w: %w", protocol.ErrIO, err)
	}
	return n, err
}

// Write writes to the open file.
func (h *FileHandler) Write(buf []byte) (int, error) {
	f, err := h.current()
	if err != nil {
		return 0, err
	}
	n, err := f.Write(buf)
	if err != nil {
		return n, fmt.Errorf("%w: %w", protocol.ErrIO, err)
	}
	return n, nil
}

// Seek moves the file offset.
func (h *FileHandler) Seek(offset int64, whence protocol.Whence) (int64, error) {
	f, err := h.current()
	if err != nil {
		return 0, err
	}
	pos, err := f.Seek(offset, int(whence))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", protocol.ErrIO, err)
	}
	return pos, nil
}

// Close closes the open file. The handler forgets the file even if closing
// it fails.
func (h *FileHandler) Close() error {
	h.mu.Lock()
	f := h.file
	h.file = nil
	h.mu.Unlock()

	if f == nil {
		return nil
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %w", protocol.ErrIO, err)
	}
	return nil
}

// IsStreamed reports false: files are seekable.
func (h *FileHandler) IsStreamed(string, protocol.Mode) bool {
	return false
}

var _ protocol.Handler = (*FileHandler)(nil)
