package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/blake3"

	"github.com/artclarke/humble-video-sub001/bridge"
	"github.com/artclarke/humble-video-sub001/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBridge(t *testing.T, mounts ...config.Mount) *bridge.Bridge {
	t.Helper()
	cfg := &config.Config{BufferSize: 1024, LogLevel: "info", Mounts: mounts}
	reg, err := newRegistry(cfg, quietLogger())
	if err != nil {
		t.Fatalf("newRegistry failed: %v", err)
	}
	return bridge.New(reg, bridge.WithLogger(quietLogger()))
}

func TestParsePairs(t *testing.T) {
	pairs, err := parsePairs([]string{"a:1", "b:2", "c:3", "d:4"})
	if err != nil {
		t.Fatalf("parsePairs failed: %v", err)
	}
	if len(pairs) != 2 || pairs[1].src != "c:3" || pairs[1].dst != "d:4" {
		t.Errorf("pairs = %+v", pairs)
	}

	for _, args := range [][]string{nil, {"a:1"}, {"a:1", "b:2", "c:3"}} {
		if _, err := parsePairs(args); !errors.Is(err, errOddArgs) {
			t.Errorf("parsePairs(%v) error = %v, want errOddArgs", args, err)
		}
	}
}

func TestCopyFileToMount(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	want := bytes.Repeat([]byte("humble"), 5000)
	src := filepath.Join(srcDir, "in.bin")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatal(err)
	}

	b := newTestBridge(t, config.Mount{Scheme: "out", Root: dstDir})
	h := blake3.New()
	n, err := copyURL(context.Background(), b, "file:"+src, "out://copy.bin", 777, h)
	if err != nil {
		t.Fatalf("copyURL failed: %v", err)
	}
	if n != int64(len(want)) {
		t.Errorf("copied %d bytes, want %d", n, len(want))
	}

	got, err := os.ReadFile(filepath.Join(dstDir, "copy.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Error("destination differs from source")
	}

	sum := blake3.Sum256(want)
	if !bytes.Equal(h.Sum(nil), sum[:]) {
		t.Error("checksum does not match source data")
	}
}

func TestCopyReadOnlyMount(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.bin")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := newTestBridge(t, config.Mount{Scheme: "ro", Root: dir, ReadOnly: true})
	if _, err := copyURL(context.Background(), b, "file:"+src, "ro:out.bin", 64, nil); !errors.Is(err, errOpen) {
		t.Errorf("copy to read-only mount error = %v, want errOpen", err)
	}
	if _, err := copyURL(context.Background(), b, "ro:in.bin", "file:"+filepath.Join(dir, "out.bin"), 64, nil); err != nil {
		t.Errorf("copy from read-only mount failed: %v", err)
	}
}

func TestCopyUnknownScheme(t *testing.T) {
	b := newTestBridge(t)
	if _, err := copyURL(context.Background(), b, "nowhere:x", "file:/dev/null", 64, nil); !errors.Is(err, errOpen) {
		t.Errorf("error = %v, want errOpen", err)
	}
}

func TestCopyAllParallel(t *testing.T) {
	dir := t.TempDir()
	b := newTestBridge(t, config.Mount{Scheme: "d", Root: dir})

	var pairs []pair
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("in%d.bin", i)
		if err := os.WriteFile(filepath.Join(dir, name), bytes.Repeat([]byte{byte(i)}, 10000+i), 0o644); err != nil {
			t.Fatal(err)
		}
		pairs = append(pairs, pair{src: "d:" + name, dst: fmt.Sprintf("d:out%d.bin", i)})
	}

	results, err := copyAll(context.Background(), b, pairs, 512, true)
	if err != nil {
		t.Fatalf("copyAll failed: %v", err)
	}
	for i, r := range results {
		if r.bytes != int64(10000+i) {
			t.Errorf("pair %d copied %d bytes, want %d", i, r.bytes, 10000+i)
		}
		if len(r.sum) != 32 {
			t.Errorf("pair %d checksum has %d bytes, want 32", i, len(r.sum))
		}
	}
}

func TestCopyCanceled(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "in.bin"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := newTestBridge(t, config.Mount{Scheme: "d", Root: dir})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := copyAll(ctx, b, []pair{{src: "d:in.bin", dst: "d:out.bin"}}, 64, false)
	if !errors.Is(err, errCanceled) {
		t.Errorf("copyAll error = %v, want errCanceled", err)
	}
	if results[0].bytes != 0 {
		t.Errorf("canceled copy moved %d bytes", results[0].bytes)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.bin")); !os.IsNotExist(err) {
		t.Errorf("canceled copy created its destination: %v", err)
	}
}

func TestRunHelp(t *testing.T) {
	if err := run([]string{"--help"}); err != nil {
		t.Errorf("run(--help) = %v", err)
	}
}
