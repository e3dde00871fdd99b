package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ppscan/internal/config"
	"ppscan/internal/grammar"
	"ppscan/internal/logging"
)

var (
	cfgFile string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ppscan",
	Short: "Lexical front end for C-family sources",
	Long: `ppscan runs the first two translation phases of a C-family compiler.

Phase 1 replaces trigraphs and removes line splices, leaving raw string
literals untouched. Phase 2 splits the result into preprocessing tokens
using a grammar table, skipping whitespace and comments.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command. An interrupt cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $PPSCAN_CONFIG, ./ppscan.toml, ~/.config/ppscan/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	logger, err = logging.New(cfg.Log, os.Stderr)
	return err
}

// loadGrammar returns the configured grammar, or the built-in one.
func loadGrammar() (*grammar.Grammar, error) {
	if cfg.Scan.Grammar == "" {
		return grammar.Default(), nil
	}
	src, err := os.ReadFile(cfg.Scan.Grammar)
	if err != nil {
		return nil, fmt.Errorf("failed to read grammar: %w", err)
	}
	g, err := grammar.Parse(cfg.Scan.Grammar, string(src))
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded grammar", "file", cfg.Scan.Grammar, "fingerprint", g.Fingerprint())
	return g, nil
}
