package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"ppscan/internal/cache"
	"ppscan/internal/config"
	"ppscan/internal/lexer"
	"ppscan/internal/render"
	"ppscan/internal/scan"
)

var tokenizeFlags struct {
	format      string
	color       string
	headerNames string
	artifacts   string
	workers     int
	cache       bool
}

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize FILE...",
	Short: "Split files into preprocessing tokens",
	Long: `Normalizes and tokenizes each file and prints the tokens.

Formats:
  text       one token per line with line:column and kind
  highlight  the normalized source, coloured by token kind
  yaml       token records as YAML
  json       token records as JSON

Reads standard input when the only argument is "-". Exits non-zero if any
file could not be tokenized to the end.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTokenize,
}

func init() {
	f := tokenizeCmd.Flags()
	f.StringVarP(&tokenizeFlags.format, "format", "f", "", "output format: text, highlight, yaml or json")
	f.StringVar(&tokenizeFlags.color, "color", "", "colour output: auto, always or never")
	f.StringVar(&tokenizeFlags.headerNames, "header-names", "", "where header names are recognized: include or always")
	f.StringVar(&tokenizeFlags.artifacts, "artifacts", "", "write .phase1 and .phase2 files to this directory")
	f.IntVarP(&tokenizeFlags.workers, "workers", "j", 0, "files scanned in parallel")
	f.BoolVar(&tokenizeFlags.cache, "cache", false, "reuse and store results in the token cache")
	rootCmd.AddCommand(tokenizeCmd)
}

// applyTokenizeFlags copies explicitly set flags over the configuration.
func applyTokenizeFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	if f.Changed("format") {
		cfg.Output.Format = tokenizeFlags.format
	}
	if f.Changed("color") {
		cfg.Output.Color = tokenizeFlags.color
	}
	if f.Changed("header-names") {
		cfg.Scan.HeaderNames = tokenizeFlags.headerNames
	}
	if f.Changed("artifacts") {
		cfg.Scan.ArtifactsDir = tokenizeFlags.artifacts
	}
	if f.Changed("workers") {
		cfg.Scan.Workers = tokenizeFlags.workers
	}
	if f.Changed("cache") {
		cfg.Cache.Enabled = tokenizeFlags.cache
	}
	return cfg.Validate()
}

// newScanner builds a scanner from the configuration. The returned close
// function releases the cache.
func newScanner() (*scan.Scanner, func(), error) {
	g, err := loadGrammar()
	if err != nil {
		return nil, nil, err
	}
	mode, err := lexer.ParseHeaderMode(cfg.Scan.HeaderNames)
	if err != nil {
		return nil, nil, err
	}
	opts := []scan.Option{
		scan.WithHeaderNames(mode),
		scan.WithWorkers(cfg.Scan.Workers),
		scan.WithArtifacts(cfg.Scan.ArtifactsDir),
		scan.WithLogger(logger),
	}
	closeFn := func() {}
	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open cache: %w", err)
		}
		opts = append(opts, scan.WithCache(store))
		closeFn = func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close cache", "error", err)
			}
		}
	}
	return scan.New(g, opts...), closeFn, nil
}

func runTokenize(cmd *cobra.Command, args []string) error {
	if err := applyTokenizeFlags(cmd); err != nil {
		return err
	}
	s, closeCache, err := newScanner()
	if err != nil {
		return err
	}
	defer closeCache()

	ctx := cmd.Context()
	var results []*scan.Result
	if len(args) == 1 && args[0] == "-" {
		raw, err := readInput(cmd, "-")
		if err != nil {
			return err
		}
		res, err := s.Source(ctx, "<stdin>", raw)
		if err != nil {
			return err
		}
		results = []*scan.Result{res}
	} else {
		results, err = s.Files(ctx, args)
		if err != nil {
			return err
		}
	}

	if err := writeResults(cmd.OutOrStdout(), cfg.Output, results); err != nil {
		return err
	}
	failed := 0
	for _, res := range results {
		if res.Stall != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to tokenize", failed, len(results))
	}
	return nil
}

// writeResults prints results in the configured format.
func writeResults(w io.Writer, out config.OutputConfig, results []*scan.Result) error {
	styles := render.NewStyles(render.NewRenderer(w, out.Color))

	if out.Format == "highlight" {
		for _, res := range results {
			h := render.NewHighlighter(w, styles)
			if err := lexer.Replay(res.Text, res.Tokens, h); err != nil {
				return err
			}
			if err := h.Err(); err != nil {
				return err
			}
			if res.Stall != nil {
				msg := fmt.Sprintf("\n%s: %s\n", res.Index.Position(res.Stall.Offset), res.Stall)
				if _, err := io.WriteString(w, styles.Error.Render(msg)); err != nil {
					return err
				}
			}
		}
		return nil
	}

	files := make([]render.File, len(results))
	for i, res := range results {
		files[i] = render.File{
			Path:   res.Path,
			Tokens: render.Records(res.Tokens, res.Text, res.Index),
		}
		if res.Stall != nil {
			files[i].Error = fmt.Sprintf("%s: %s", res.Index.Position(res.Stall.Offset), res.Stall)
		}
	}
	switch out.Format {
	case "yaml":
		return render.YAML(w, files)
	case "json":
		return render.JSON(w, files)
	}
	return render.Table(w, styles, files)
}
