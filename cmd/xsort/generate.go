package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand"
	"time"

	"github.com/davidvella/xsort/record"
	"github.com/davidvella/xsort/recordio"
	"github.com/davidvella/xsort/storage/local"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var generateFlags struct {
	size int64
	min  int64
	max  int64
	seed int64
}

// generateCmd writes random test input
var generateCmd = &cobra.Command{
	Use:   "generate [output]",
	Short: "Write random integers for sorting",
	Long: `Writes random integers in [min, max), one per line, until the next line
would take the file past --size bytes.

Example:
  xsort generate --size 1073741824 --min 100 --max 10000 input.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.Int64Var(&generateFlags.size, "size", 1<<30, "Maximum file size in bytes")
	f.Int64Var(&generateFlags.min, "min", 100, "Smallest value (inclusive)")
	f.Int64Var(&generateFlags.max, "max", 10000, "Largest value (exclusive)")
	f.Int64Var(&generateFlags.seed, "seed", 0, "Random seed (default: time based)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	seed := generateFlags.seed
	if !cmd.Flags().Changed("seed") {
		seed = time.Now().UnixNano()
	}

	out, err := local.CreateOutput(args[0])
	if err != nil {
		return err
	}

	records, written, err := generate(out, rand.New(rand.NewSource(seed)), generateFlags.size, generateFlags.min, generateFlags.max)
	if err != nil {
		_ = out.Abort()
		return err
	}
	if err := out.Publish(); err != nil {
		return err
	}

	logger.Info("input generated",
		zap.String("path", args[0]),
		zap.Int64("records", records),
		zap.Int64("bytes", written),
		zap.Int64("seed", seed))
	fmt.Fprintf(cmd.OutOrStdout(), "generated %d records (%d bytes)\n", records, written)
	return nil
}

// generate writes random records in [lo, hi) to w until the next one would
// exceed size bytes.
func generate(w io.Writer, rng *rand.Rand, size, lo, hi int64) (records, written int64, err error) {
	if hi <= lo {
		return 0, 0, fmt.Errorf("invalid range [%d, %d)", lo, hi)
	}
	if size < 0 {
		return 0, 0, fmt.Errorf("invalid size %d", size)
	}

	bw := bufio.NewWriter(w)
	for {
		rec := record.Record(between(rng, lo, hi))
		if written+recordio.Size(rec) > size {
			break
		}
		n, err := recordio.Write(bw, rec)
		if err != nil {
			return records, written, err
		}
		written += n
		records++
	}
	if err := bw.Flush(); err != nil {
		return records, written, fmt.Errorf("error writing record: %w", err)
	}
	return records, written, nil
}

// between returns a value in [lo, hi). The span may exceed math.MaxInt64.
func between(rng *rand.Rand, lo, hi int64) int64 {
	span := uint64(hi) - uint64(lo)
	if span <= math.MaxInt64 {
		return lo + rng.Int63n(int64(span))
	}
	for {
		// span > 2^63, so at most half the draws are rejected.
		if v := rng.Uint64(); v < span {
			return int64(uint64(lo) + v)
		}
	}
}
