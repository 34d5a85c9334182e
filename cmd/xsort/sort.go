package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/davidvella/xsort"
	"github.com/davidvella/xsort/config"
	"github.com/davidvella/xsort/storage/pebble"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sortFlags struct {
	configPath        string
	runSize           int64
	bufferSize        int
	fanIn             int
	tempDir           string
	strategy          string
	buffer            string
	storage           string
	deleteConcurrency int
	memoryLimit       int64
}

// sortCmd sorts one file into another
var sortCmd = &cobra.Command{
	Use:   "sort [input] [output]",
	Short: "Sort a file of decimal integers",
	Long: `Sorts the integers in input, one per line, and writes them in ascending
order to output. The output is only replaced once the sort succeeds.

Settings are read from --config when given; flags override file values.

Example:
  xsort sort --run-size 104857600 --memory-limit 536870912 input.txt output.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runSort,
}

func init() {
	f := sortCmd.Flags()
	f.StringVarP(&sortFlags.configPath, "config", "c", "", "YAML configuration file")
	f.Int64Var(&sortFlags.runSize, "run-size", xsort.DefaultRunSize, "Serialized bytes per sorted run")
	f.IntVar(&sortFlags.bufferSize, "buffer-size", xsort.DefaultBufferSize, "I/O buffer size in bytes")
	f.IntVar(&sortFlags.fanIn, "fan-in", 0, "Runs merged at once (default: derived from the input size)")
	f.StringVar(&sortFlags.tempDir, "temp-dir", "", "Directory for run files (default: system temp)")
	f.StringVar(&sortFlags.strategy, "strategy", "heap", "Merge strategy: heap or tournament")
	f.StringVar(&sortFlags.buffer, "buffer", "slice", "Run buffer: slice or btree")
	f.StringVar(&sortFlags.storage, "storage", config.StorageLocal, "Run storage: local or pebble")
	f.IntVar(&sortFlags.deleteConcurrency, "delete-concurrency", xsort.DefaultDeleteConcurrency, "Run files deleted in parallel")
	f.Int64Var(&sortFlags.memoryLimit, "memory-limit", 0, "Soft memory limit for the runtime in bytes (0: unset)")
}

// loadSortConfig reads the configuration file and applies the flags the user set.
func loadSortConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(sortFlags.configPath)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("run-size") {
		cfg.RunSize = sortFlags.runSize
	}
	if changed("buffer-size") {
		cfg.BufferSize = sortFlags.bufferSize
	}
	if changed("fan-in") {
		cfg.FanIn = sortFlags.fanIn
	}
	if changed("temp-dir") {
		cfg.TempDir = sortFlags.tempDir
	}
	if changed("strategy") {
		cfg.Strategy = sortFlags.strategy
	}
	if changed("buffer") {
		cfg.Buffer = sortFlags.buffer
	}
	if changed("storage") {
		cfg.Storage.Kind = sortFlags.storage
	}
	if changed("delete-concurrency") {
		cfg.DeleteConcurrency = sortFlags.deleteConcurrency
	}
	if changed("memory-limit") {
		cfg.MemoryLimit = sortFlags.memoryLimit
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSort(cmd *cobra.Command, args []string) error {
	cfg, err := loadSortConfig(cmd)
	if err != nil {
		return err
	}
	if level, err := zap.ParseAtomicLevel(cfg.Logging.Level); err == nil {
		logLevel.SetLevel(level.Level())
	}

	if cfg.MemoryLimit > 0 {
		previous := debug.SetMemoryLimit(cfg.MemoryLimit)
		defer debug.SetMemoryLimit(previous)
		logger.Debug("memory limit set", zap.Int64("bytes", cfg.MemoryLimit))
	}

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	opts = append(opts, xsort.WithLogger(logger))

	if cfg.Storage.Kind == config.StoragePebble {
		store, release, err := openPebble(cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := release(); err != nil {
				logger.Warn("failed to close run storage", zap.Error(err))
			}
		}()
		opts = append(opts, xsort.WithStorage(store))
	}

	sorter, err := xsort.NewSorter(opts...)
	if err != nil {
		return err
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := sorter.Sort(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if stats.CleanupErr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: some run files were not removed: %v\n", stats.CleanupErr)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "sorted %d records (%d bytes) from %d runs\n", stats.Records, stats.Bytes, stats.Runs)
	return nil
}

// openPebble opens a pebble run store private to this invocation.
func openPebble(cfg *config.Config) (*pebble.Storage, func() error, error) {
	opts := pebble.StorageOptions{
		InMemory:  cfg.Storage.Pebble.InMemory,
		ChunkSize: cfg.Storage.Pebble.ChunkSize,
		CacheSize: cfg.Storage.Pebble.CacheSize,
	}

	dir := ""
	if !opts.InMemory {
		var err error
		dir, err = os.MkdirTemp(cfg.TempDir, "xsort-pebble-*")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create pebble directory: %w", err)
		}
		opts.Path = dir
	}

	store, err := pebble.NewStorage(opts)
	if err != nil {
		if dir != "" {
			os.RemoveAll(dir)
		}
		return nil, nil, err
	}

	release := func() error {
		err := store.Close()
		if dir != "" {
			if rerr := os.RemoveAll(dir); rerr != nil && err == nil {
				err = rerr
			}
		}
		return err
	}
	return store, release, nil
}
