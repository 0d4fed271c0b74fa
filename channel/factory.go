package channel

import (
	"io"
	"sync"

	"github.com/artclarke/humble-video-sub001/protocol"
)

// Single returns a factory that hands out h for every URL. The caller shares
// one handler across all opens, so only one stream can be open at a time.
func Single(h protocol.Handler) protocol.Factory {
	return protocol.FactoryFunc(func(string, string, protocol.Mode) protocol.Handler {
		return h
	})
}

// Files returns a factory that creates a new FileHandler for every URL.
func Files(opts ...FileOption) protocol.Factory {
	return protocol.FactoryFunc(func(string, string, protocol.Mode) protocol.Handler {
		return NewFileHandler(opts...)
	})
}

// Dir returns a factory that serves files beneath root.
func Dir(root string, readOnly bool) protocol.Factory {
	opts := []FileOption{WithRoot(root)}
	if readOnly {
		opts = append(opts, WithReadOnly())
	}
	return Files(opts...)
}

// RegisterStream registers r and w under a fresh scheme built from prefix and
// returns a URL that opens them. Close policy follows opts. The caller must
// call release once the stream is closed; it removes the scheme and is safe
// to call more than once.
func RegisterStream(reg *protocol.Registry, prefix string, r io.Reader, w io.Writer, opts ...Option) (url string, release func(), err error) {
	h, err := NewHandler(r, w, opts...)
	if err != nil {
		return "", nil, err
	}
	scheme := protocol.UniqueScheme(prefix)
	if _, err := reg.RegisterFactory(scheme, Single(h)); err != nil {
		return "", nil, err
	}
	var once sync.Once
	release = func() {
		once.Do(func() { reg.Unregister(scheme) })
	}
	return scheme + ":" + scheme, release, nil
}
