package main

import (
	"context"
	"errors"
	"fmt"
	"hash"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"github.com/artclarke/humble-video-sub001/bridge"
	"github.com/artclarke/humble-video-sub001/channel"
	"github.com/artclarke/humble-video-sub001/internal/config"
	"github.com/artclarke/humble-video-sub001/protocol"
)

var (
	errOddArgs  = errors.New("expected SRC DST pairs")
	errOpen     = errors.New("open failed")
	errTransfer = errors.New("transfer failed")
	errClose    = errors.New("close failed")
	errCanceled = errors.New("canceled")
)

// pair is one SRC -> DST copy job.
type pair struct {
	src string
	dst string
}

// result describes a finished or failed copy.
type result struct {
	pair
	bytes int64
	sum   []byte
	err   error
}

func parsePairs(args []string) ([]pair, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, fmt.Errorf("%w, got %d arguments", errOddArgs, len(args))
	}
	pairs := make([]pair, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		pairs = append(pairs, pair{src: args[i], dst: args[i+1]})
	}
	return pairs, nil
}

// newRegistry registers the built-in schemes and the configured mounts.
func newRegistry(cfg *config.Config, logger *slog.Logger) (*protocol.Registry, error) {
	reg := protocol.NewRegistry(protocol.WithLogger(logger))

	stdin, err := channel.NewReadHandler(os.Stdin, channel.WithCloseOnClose(false))
	if err != nil {
		return nil, err
	}
	stdout, err := channel.NewWriteHandler(os.Stdout, channel.WithCloseOnClose(false))
	if err != nil {
		return nil, err
	}

	builtin := map[string]protocol.Factory{
		"file":   channel.Files(),
		"stdin":  channel.Single(stdin),
		"stdout": channel.Single(stdout),
	}
	for scheme, f := range builtin {
		if _, err := reg.RegisterFactory(scheme, f); err != nil {
			return nil, err
		}
	}
	for _, m := range cfg.Mounts {
		if _, err := reg.RegisterFactory(m.Scheme, channel.Dir(m.Root, m.ReadOnly)); err != nil {
			return nil, fmt.Errorf("mount %q: %w", m.Scheme, err)
		}
	}
	return reg, nil
}

// copyAll runs every pair concurrently. It returns all results, in argument
// order, and the first error. The first failure cancels the remaining copies
// between transfers.
func copyAll(ctx context.Context, b *bridge.Bridge, pairs []pair, bufferSize int, checksum bool) ([]result, error) {
	results := make([]result, len(pairs))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range pairs {
		g.Go(func() error {
			var h hash.Hash
			if checksum {
				h = blake3.New()
			}
			n, err := copyURL(ctx, b, p.src, p.dst, bufferSize, h)
			results[i] = result{pair: p, bytes: n, err: err}
			if h != nil {
				results[i].sum = h.Sum(nil)
			}
			return err
		})
	}
	return results, g.Wait()
}

// copyURL drives the bridge the way the foreign subsystem does: every call
// returns an integer code and failures carry no detail beyond -1. ctx is
// checked between transfers; a blocked read or write is not interrupted.
func copyURL(ctx context.Context, b *bridge.Bridge, src, dst string, bufferSize int, h hash.Hash) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", errCanceled, src, err)
	}
	in := bridge.NewHandle()
	if b.Open(in, src, protocol.ModeRead) != protocol.OK {
		return 0, fmt.Errorf("%w: %s", errOpen, src)
	}
	defer b.Close(in)

	out := bridge.NewHandle()
	if b.Open(out, dst, protocol.ModeWrite) != protocol.OK {
		return 0, fmt.Errorf("%w: %s", errOpen, dst)
	}

	var total int64
	buf := make([]byte, bufferSize)
	for {
		if err := ctx.Err(); err != nil {
			b.Close(out)
			return total, fmt.Errorf("%w: %s: %w", errCanceled, src, err)
		}
		n := b.Read(in, buf)
		if n < 0 {
			b.Close(out)
			return total, fmt.Errorf("%w: reading %s", errTransfer, src)
		}
		if n == 0 {
			break
		}
		chunk := buf[:n]
		for len(chunk) > 0 {
			w := b.Write(out, chunk)
			if w <= 0 {
				b.Close(out)
				return total, fmt.Errorf("%w: writing %s", errTransfer, dst)
			}
			if h != nil {
				h.Write(chunk[:w])
			}
			chunk = chunk[w:]
			total += int64(w)
		}
	}

	if b.Close(out) != protocol.OK {
		return total, fmt.Errorf("%w: %s", errClose, dst)
	}
	return total, nil
}

func report(logger *slog.Logger, r result, checksum bool) {
	if r.err != nil {
		logger.Error("copy failed",
			"src", r.src,
			"dst", r.dst,
			"copied", humanize.IBytes(uint64(r.bytes)),
			"err", r.err,
		)
		return
	}
	attrs := []any{
		"src", r.src,
		"dst", r.dst,
		"size", humanize.IBytes(uint64(r.bytes)),
	}
	if checksum {
		attrs = append(attrs, "blake3", fmt.Sprintf("%x", r.sum))
	}
	logger.Info("copied", attrs...)
}
