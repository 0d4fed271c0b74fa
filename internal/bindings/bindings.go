//go:build !ios && !android && (amd64 || arm64)

// Package bindings loads the FFmpeg shared libraries the AVIO bridge needs
// using purego.
package bindings

import (
	"errors"
	"fmt"
	"sync"

	"github.com/artclarke/humble-video-sub001/internal/platform"
	"github.com/ebitengine/purego"
)

// ErrNotLoaded is returned when FFmpeg functions are called before Load().
var ErrNotLoaded = errors.New("humble: FFmpeg libraries not loaded; call humble.Init() first")

// ErrLibraryNotFound is returned when a required FFmpeg library cannot be found.
var ErrLibraryNotFound = errors.New("humble: FFmpeg library not found")

// Library handles
var (
	libAVUtil   uintptr
	libAVFormat uintptr

	loaded   bool
	loadOnce sync.Once
	loadErr  error
)

// Load loads libavutil and libavformat.
// It is safe to call multiple times; subsequent calls return the first result.
func Load() error {
	loadOnce.Do(func() {
		loadErr = doLoad()
		if loadErr == nil {
			loaded = true
		}
	})
	return loadErr
}

func doLoad() error {
	var err error

	// avformat links against avutil; load avutil first with RTLD_GLOBAL.
	libAVUtil, err = open("avutil", []int{59, 58, 57, 56})
	if err != nil {
		return fmt.Errorf("loading libavutil: %w", err)
	}
	libAVFormat, err = open("avformat", []int{61, 60, 59, 58})
	if err != nil {
		return fmt.Errorf("loading libavformat: %w", err)
	}
	return nil
}

func open(name string, versions []int) (uintptr, error) {
	for _, path := range platform.Candidates(name, versions) {
		lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return lib, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrLibraryNotFound, name)
}

// IsLoaded returns true if the libraries have been successfully loaded.
func IsLoaded() bool {
	return loaded
}

// LibAVUtil returns the avutil library handle.
func LibAVUtil() uintptr {
	return libAVUtil
}

// LibAVFormat returns the avformat library handle.
func LibAVFormat() uintptr {
	return libAVFormat
}
