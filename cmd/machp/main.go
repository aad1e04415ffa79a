// Command machp inspects Mach-O executables, dynamic libraries, and
// archives, emitting a normalized JSON report per file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kimobu/machp/log"
	"github.com/kimobu/machp/report"
	"github.com/kimobu/machp/walk"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var recursive bool
	var output string
	var debug bool

	cmd := &cobra.Command{
		Use:   "machp <path>",
		Short: "Inspect Mach-O executables, dylibs, and archives",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], recursive, output, debug)
		},
		SilenceUsage: true,
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "walk the given path recursively")
	cmd.Flags().StringVar(&output, "output", "", "directory to write per-slice JSON reports to (default: stdout)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return cmd
}

func run(ctx context.Context, path string, recursive bool, output string, debug bool) error {
	logger, err := log.New(debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var results []walk.Result
	if recursive {
		results, err = walk.Recursive(ctx, path, logger)
		if err != nil {
			return err
		}
	} else {
		results = []walk.Result{walk.Files(ctx, path, logger)}
	}

	failed := false
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing file %s: %v\n", r.Path, r.Err)
			failed = true
			continue
		}

		info, err := os.Stat(r.Path)
		var size int64
		if err == nil {
			size = info.Size()
		}
		doc := report.FromFile(r.Path, size, r.File)

		if output != "" {
			if err := report.WriteDir(output, doc); err != nil {
				fmt.Fprintf(os.Stderr, "Error parsing file %s: %v\n", r.Path, err)
				failed = true
				continue
			}
		} else {
			if err := report.WriteStdout(doc); err != nil {
				fmt.Fprintf(os.Stderr, "Error parsing file %s: %v\n", r.Path, err)
				failed = true
				continue
			}
		}
	}

	if failed {
		return fmt.Errorf("one or more files failed to parse")
	}
	return nil
}
