//go:build !ios && !android && (amd64 || arm64)

// Package platform names shared libraries and lists where to look for them
// on the running operating system.
package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"unsafe"
)

// Is64Bit indicates whether the platform is 64-bit.
// purego callbacks are only supported on 64-bit platforms.
const Is64Bit = unsafe.Sizeof(uintptr(0)) == 8

// LibraryName returns the platform-specific filename of a shared library.
// If version is 0, it returns the unversioned name.
//
// Examples:
//   - Linux:   LibraryName("avformat", 60) -> "libavformat.so.60"
//   - macOS:   LibraryName("avformat", 60) -> "libavformat.60.dylib"
//   - Windows: LibraryName("avformat", 60) -> "avformat-60.dll"
func LibraryName(name string, version int) string {
	switch runtime.GOOS {
	case "darwin":
		if version > 0 {
			return fmt.Sprintf("lib%s.%d.dylib", name, version)
		}
		return "lib" + name + ".dylib"
	case "windows":
		if version > 0 {
			return fmt.Sprintf("%s-%d.dll", name, version)
		}
		return name + ".dll"
	default:
		if version > 0 {
			return fmt.Sprintf("lib%s.so.%d", name, version)
		}
		return "lib" + name + ".so"
	}
}

// Candidates returns the paths to try, in order, when loading name.
// Versioned names come before the unversioned one, and each search
// directory is tried before falling back to bare names for the system loader.
func Candidates(name string, versions []int) []string {
	names := make([]string, 0, len(versions)+1)
	for _, v := range versions {
		names = append(names, LibraryName(name, v))
	}
	names = append(names, LibraryName(name, 0))

	var out []string
	for _, dir := range SearchPaths() {
		for _, n := range names {
			out = append(out, filepath.Join(dir, n))
		}
	}
	return append(out, names...)
}

// SearchPaths returns directories that commonly hold FFmpeg libraries,
// starting with the loader path environment variable.
func SearchPaths() []string {
	var paths []string

	switch runtime.GOOS {
	case "darwin":
		if p := os.Getenv("DYLD_LIBRARY_PATH"); p != "" {
			paths = append(paths, filepath.SplitList(p)...)
		}
		paths = append(paths,
			"/opt/homebrew/lib",
			"/usr/local/lib",
			"/opt/homebrew/opt/ffmpeg/lib",
			"/usr/local/opt/ffmpeg/lib",
		)
	case "windows":
		if p := os.Getenv("PATH"); p != "" {
			paths = append(paths, filepath.SplitList(p)...)
		}
		if exe, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Dir(exe))
		}
		paths = append(paths, `C:\ffmpeg\bin`)
	default:
		if p := os.Getenv("LD_LIBRARY_PATH"); p != "" {
			paths = append(paths, filepath.SplitList(p)...)
		}
		paths = append(paths,
			"/usr/lib/x86_64-linux-gnu",
			"/usr/lib/aarch64-linux-gnu",
			"/usr/local/lib",
			"/usr/lib",
		)
	}

	return paths
}
