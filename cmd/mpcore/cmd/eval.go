package cmd

import (
	stdctx "context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mpcontext "github.com/mpengine/mpcore/internal/context"
	"github.com/mpengine/mpcore/internal/script"
)

var evalCmd = &cobra.Command{
	Use:   "eval <expr-file>",
	Short: "Evaluate a let/add/format expression script",
	Long: `eval parses a small line-oriented script of let/add/format statements, builds
the corresponding constant and sum nodes in one context, sorts and evaluates the
resulting DAG, and prints one line per format statement.`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	base, err := parseBase(baseFlag)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	ctx := stdctx.Background()
	s, err := script.Parse(ctx, f)
	if err != nil {
		return fmt.Errorf("parse script: %w", err)
	}

	engineCtx := mpcontext.NewContext(precision, base, GetConfig())
	return script.Run(ctx, engineCtx, s, os.Stdout)
}
