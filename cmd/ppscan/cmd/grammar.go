package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ppscan/internal/grammar"
)

var grammarDOT bool

var grammarCmd = &cobra.Command{
	Use:   "grammar",
	Short: "Print the grammar table",
	Long: `Prints the grammar table in use, either the built-in table or the file
named by scan.grammar in the configuration. With --dot the entity
dependency graph is written in Graphviz format instead.`,
	Args: cobra.NoArgs,
	RunE: runGrammar,
}

func init() {
	grammarCmd.Flags().BoolVar(&grammarDOT, "dot", false, "write the dependency graph as Graphviz DOT")
	rootCmd.AddCommand(grammarCmd)
}

func runGrammar(cmd *cobra.Command, args []string) error {
	g, err := loadGrammar()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if grammarDOT {
		return grammar.ExportDOT(w, g)
	}
	fmt.Fprintf(w, "# fingerprint %s\n", g.Fingerprint())
	_, err = g.WriteTo(w)
	return err
}
