package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ppscan/internal/normalize"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [FILE]",
	Short: "Print the phase 1 output of a file",
	Long: `Replaces trigraphs and removes line splices, then prints the result.
Reads standard input when no file or "-" is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	name := "-"
	if len(args) == 1 {
		name = args[0]
	}
	raw, err := readInput(cmd, name)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(normalize.Bytes(raw).Text)
	return err
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return raw, nil
}
