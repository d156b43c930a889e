package cmd

import (
	stdctx "context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpengine/mpcore/internal/bigint"
	mpcontext "github.com/mpengine/mpcore/internal/context"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a built-in end-to-end scenario",
}

var demoFibCmd = &cobra.Command{
	Use:   "fib <iterations>",
	Short: "Compute a Fibonacci number in hex via chained Add nodes",
	Long: `fib builds a chain of <iterations> binary-add nodes (a, b = b, a+b starting from
0, 1), evaluates it, and prints the resulting hex digit count plus a short prefix/suffix
of the value so large results stay readable on a terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: runDemoFib,
}

func init() {
	rootCmd.AddCommand(demoCmd)
	demoCmd.AddCommand(demoFibCmd)
}

func runDemoFib(cmd *cobra.Command, args []string) error {
	iterations, err := strconv.Atoi(args[0])
	if err != nil || iterations <= 0 {
		return fmt.Errorf("iterations must be a positive integer, got %q", args[0])
	}

	// Fibonacci digit count in any base grows linearly with the index; this overestimates
	// generously so the fixed-length limb vector never truncates mid-run.
	precisionHexDigits := iterations + 64

	engineCtx := mpcontext.NewContext(precisionHexDigits, bigint.Hex, GetConfig())

	a, err := engineCtx.MakeInteger("0")
	if err != nil {
		return err
	}
	b, err := engineCtx.MakeInteger("1")
	if err != nil {
		return err
	}

	for i := 0; i < iterations; i++ {
		c, err := engineCtx.Add(a, b)
		if err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		a, b = b, c
	}

	if err := engineCtx.SortNodes(); err != nil {
		return err
	}
	if err := engineCtx.GenerateProcedures(); err != nil {
		return err
	}
	if err := engineCtx.Evaluate(stdctx.Background()); err != nil {
		return err
	}

	var out strings.Builder
	if err := mpcontext.Format(b, &out); err != nil {
		return err
	}
	hex := out.String()

	prefix, suffix := hex, hex
	if len(hex) > 16 {
		prefix = hex[:8]
		suffix = hex[len(hex)-8:]
	}

	fmt.Printf("F(%d): %d hex digits, %s...%s\n", iterations+1, len(hex), prefix, suffix)
	return nil
}
