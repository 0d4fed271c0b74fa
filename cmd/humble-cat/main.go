// humble-cat copies byte streams between URLs through the protocol bridge.
//
// Usage: humble-cat [flags] SRC DST [SRC DST ...]
//
// Every pair is copied on its own goroutine. Built-in schemes are file
// (seekable), stdin and stdout; more directory-backed schemes can be mounted
// from a YAML config file.
//
// Example:
//
//	humble-cat --checksum file:/tmp/in.mp4 media://copy.mp4
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/pflag"

	"github.com/artclarke/humble-video-sub001/bridge"
	"github.com/artclarke/humble-video-sub001/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var configPath string
	var bufferSize int
	var logLevel string
	var checksum bool

	flagSet := pflag.NewFlagSet("humble-cat", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "YAML file with scheme mounts (default: $HUMBLE_CONFIG)")
	flagSet.IntVar(&bufferSize, "buffer-size", 0, "transfer buffer size in bytes (default: $HUMBLE_BUFFER_SIZE or 32768)")
	flagSet.StringVar(&logLevel, "log-level", "", "debug, info, warn or error (default: $HUMBLE_LOG_LEVEL or info)")
	flagSet.BoolVar(&checksum, "checksum", false, "print a BLAKE3 checksum of each copied stream")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if bufferSize > 0 {
		cfg.BufferSize = bufferSize
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	pairs, err := parsePairs(flagSet.Args())
	if err != nil {
		printHelp(flagSet)
		return err
	}

	registry, err := newRegistry(cfg, logger)
	if err != nil {
		return err
	}
	b := bridge.New(registry, bridge.WithLogger(logger))

	results, err := copyAll(context.Background(), b, pairs, cfg.BufferSize, checksum)
	for _, r := range results {
		report(logger, r, checksum)
	}
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: humble-cat [flags] SRC DST [SRC DST ...]\n\n")
	fmt.Fprintf(os.Stderr, "Copies each SRC url to its DST url through the protocol bridge.\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n%s", flagSet.FlagUsages())
}
