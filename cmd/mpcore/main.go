// Command mpcore evaluates multi-precision integer arithmetic expressed as a DAG of
// constants and sums.
package main

import (
	"os"

	"github.com/mpengine/mpcore/cmd/mpcore/cmd"
	"github.com/mpengine/mpcore/internal/term"
)

func main() {
	failed := cmd.Execute()
	// No-op if an unrecovered panic already ran the registry on the way out of
	// Execute; otherwise this is the normal-exit trigger for every registered
	// termination callback (internal/healthsvc, internal/logsink, ...).
	term.Global().ExecuteAll(nil)
	if failed {
		os.Exit(1)
	}
}
