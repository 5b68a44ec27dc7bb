// sampletool inspects and post-processes sample DBs written by the renderer.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"row-major/skylight/imagefile"
	"row-major/skylight/output"
	"row-major/skylight/sampledb"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var cmdRoot = &cobra.Command{
	Use:          "sampletool",
	SilenceUsage: true,
}

var cmdImage = &cobra.Command{
	Use:   "image SAMPLE_DB OUTPUT_IMAGE",
	Short: "Write the averaged image of a sample DB as PNG or PPM",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := imagefile.FormatFromName(args[1])
		if err != nil {
			return err
		}

		store := output.NewStore()
		defer store.Close()

		db, err := readSampleDB(ctx, store, args[0])
		if err != nil {
			return err
		}

		if err := store.Write(ctx, args[1], func(w io.Writer) error {
			return imagefile.Write(w, format, db.Resolve())
		}); err != nil {
			return fmt.Errorf("while writing %s: %w", args[1], err)
		}
		return nil
	},
}

var cmdStats = &cobra.Command{
	Use:   "stats SAMPLE_DB...",
	Short: "Print statistics about sample DBs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		store := output.NewStore()
		defer store.Close()

		for _, name := range args {
			db, err := readSampleDB(ctx, store, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", name, computeStats(db))
		}
		return nil
	},
}

var mergeOutput string

var cmdMerge = &cobra.Command{
	Use:   "merge --output OUTPUT SAMPLE_DB...",
	Short: "Add the samples of several renders of the same scene",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if mergeOutput == "" {
			return fmt.Errorf("--output is required")
		}

		store := output.NewStore()
		defer store.Close()

		dbs := []*sampledb.SampleDB{}
		for _, name := range args {
			db, err := readSampleDB(ctx, store, name)
			if err != nil {
				return err
			}
			dbs = append(dbs, db)
		}

		merged, err := merge(dbs)
		if err != nil {
			return err
		}

		if err := store.Write(ctx, mergeOutput, func(w io.Writer) error {
			return sampledb.Write(merged, w)
		}); err != nil {
			return fmt.Errorf("while writing %s: %w", mergeOutput, err)
		}
		glog.Infof("Merged %d sample DBs into %s: %v", len(dbs), mergeOutput, computeStats(merged))
		return nil
	},
}

func init() {
	cmdMerge.Flags().StringVar(&mergeOutput, "output", "", "Where to write the merged sample DB")
}

func readSampleDB(ctx context.Context, store *output.Store, name string) (*sampledb.SampleDB, error) {
	var db *sampledb.SampleDB
	if err := store.Read(ctx, name, func(r io.Reader) error {
		var err error
		db, err = sampledb.Read(r)
		return err
	}); err != nil {
		return nil, fmt.Errorf("while reading %s: %w", name, err)
	}
	return db, nil
}

// merge sums dbs into a fresh DB.  They must all come from the same render
// settings.
func merge(dbs []*sampledb.SampleDB) (*sampledb.SampleDB, error) {
	first := dbs[0]
	merged := sampledb.New(first.RowSize, first.ColSize)
	merged.Name = first.Name
	merged.Fingerprint = first.Fingerprint

	for i, db := range dbs {
		if db.Fingerprint != first.Fingerprint {
			return nil, fmt.Errorf("sample DB %d has fingerprint %016x, but the first has %016x", i, db.Fingerprint, first.Fingerprint)
		}
		if err := merged.Merge(db); err != nil {
			return nil, fmt.Errorf("while merging sample DB %d: %w", i, err)
		}
	}
	return merged, nil
}

type stats struct {
	Rows, Cols  int
	Name        string
	Fingerprint uint64

	TotalSamples int
	MinCount     uint32
	MaxCount     uint32
	MeanCount    float64
}

func computeStats(db *sampledb.SampleDB) stats {
	s := stats{
		Rows:         db.RowSize,
		Cols:         db.ColSize,
		Name:         db.Name,
		Fingerprint:  db.Fingerprint,
		TotalSamples: db.TotalSamples(),
	}

	for i, count := range db.Counts {
		if i == 0 || count < s.MinCount {
			s.MinCount = count
		}
		if count > s.MaxCount {
			s.MaxCount = count
		}
	}
	if len(db.Counts) > 0 {
		s.MeanCount = float64(s.TotalSamples) / float64(len(db.Counts))
	}
	return s
}

func (s stats) String() string {
	return fmt.Sprintf("scene %q, %dx%d, fingerprint %016x, %d samples (per pixel: min %d, max %d, mean %.2f)",
		s.Name, s.Cols, s.Rows, s.Fingerprint, s.TotalSamples, s.MinCount, s.MaxCount, s.MeanCount)
}

func main() {
	// Expose glog's flags through cobra, and mark the standard flag set
	// parsed so glog doesn't complain.
	cmdRoot.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	flag.CommandLine.Parse(nil)

	glog.CopyStandardLogTo("INFO")
	defer glog.Flush()

	cmdRoot.AddCommand(cmdImage, cmdStats, cmdMerge)

	if err := cmdRoot.ExecuteContext(context.Background()); err != nil {
		glog.Errorf("Error: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}
