package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunDemoFibPrintsDigitCount(t *testing.T) {
	resetGlobals(t)

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	runErr := runDemoFib(demoFibCmd, []string{"10"})

	w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)

	require.NoError(t, runErr)
	assert.Contains(t, buf.String(), "F(11):")
}

func TestRunDemoFibRejectsNonPositiveIterations(t *testing.T) {
	resetGlobals(t)
	require.Error(t, runDemoFib(demoFibCmd, []string{"0"}))
	require.Error(t, runDemoFib(demoFibCmd, []string{"nope"}))
}
