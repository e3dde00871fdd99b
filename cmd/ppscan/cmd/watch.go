package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"ppscan/internal/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch FILE...",
	Short: "Tokenize files again whenever they change",
	Long: `Tokenizes the files once, then again each time one of them is written.
Stop with Ctrl+C.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVarP(&tokenizeFlags.format, "format", "f", "", "output format: text, highlight, yaml or json")
	f.StringVar(&tokenizeFlags.color, "color", "", "colour output: auto, always or never")
	f.StringVar(&tokenizeFlags.headerNames, "header-names", "", "where header names are recognized: include or always")
	f.StringVar(&tokenizeFlags.artifacts, "artifacts", "", "write .phase1 and .phase2 files to this directory")
	f.DurationVar(&watchDebounce, "debounce", 0, "quiet period before a changed file is rescanned")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := applyTokenizeFlags(cmd); err != nil {
		return err
	}
	if cmd.Flags().Changed("debounce") {
		cfg.Watch.Debounce.Duration = watchDebounce
	}
	// Rescans of a single file gain nothing from the cache.
	cfg.Cache.Enabled = false
	s, closeCache, err := newScanner()
	if err != nil {
		return err
	}
	defer closeCache()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	rescan := func(paths ...string) {
		results, err := s.Files(ctx, paths)
		if err != nil {
			logger.Error("scan failed", "error", err)
			return
		}
		if err := writeResults(w, cfg.Output, results); err != nil {
			logger.Error("failed to write output", "error", err)
		}
	}

	rescan(args...)
	return watch.Run(ctx, args, cfg.Watch.Debounce.Duration, logger, func(path string) {
		logger.Info("file changed", "file", path)
		rescan(path)
	})
}
