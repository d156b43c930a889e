package script

import (
	stdctx "context"
	"fmt"
	"io"

	mpcontext "github.com/mpengine/mpcore/internal/context"
)

// Run evaluates script against engineCtx, declaring each let/add statement as it is
// seen and writing one "<name> = <value>" line per format statement to out once the
// whole script has been declared, sorted, generated, and evaluated. ctx governs
// cancellation of the evaluate phase.
func Run(ctx stdctx.Context, engineCtx *mpcontext.Context, script *Script, out io.Writer) error {
	handles := make(map[string]mpcontext.Handle, len(script.Statements))
	var formats []string

	for _, stmt := range script.Statements {
		switch stmt.Kind {
		case Let:
			h, err := engineCtx.MakeInteger(stmt.Literal)
			if err != nil {
				return fmt.Errorf("line %d: %w", stmt.Line, err)
			}
			handles[stmt.Name] = h

		case Add:
			lhs, ok := handles[stmt.LHS]
			if !ok {
				return fmt.Errorf("line %d: undeclared name %q", stmt.Line, stmt.LHS)
			}
			rhs, ok := handles[stmt.RHS]
			if !ok {
				return fmt.Errorf("line %d: undeclared name %q", stmt.Line, stmt.RHS)
			}
			h, err := engineCtx.Add(lhs, rhs)
			if err != nil {
				return fmt.Errorf("line %d: %w", stmt.Line, err)
			}
			handles[stmt.Name] = h

		case Format:
			if _, ok := handles[stmt.Name]; !ok {
				return fmt.Errorf("line %d: undeclared name %q", stmt.Line, stmt.Name)
			}
			formats = append(formats, stmt.Name)
		}
	}

	if err := engineCtx.SortNodes(); err != nil {
		return fmt.Errorf("sort nodes: %w", err)
	}
	if err := engineCtx.GenerateProcedures(); err != nil {
		return fmt.Errorf("generate procedures: %w", err)
	}
	if err := engineCtx.Evaluate(ctx); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	for _, name := range formats {
		fmt.Fprintf(out, "%s = ", name)
		if err := mpcontext.Format(handles[name], out); err != nil {
			return fmt.Errorf("format %q: %w", name, err)
		}
		fmt.Fprintln(out)
	}
	return nil
}
