package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpengine/mpcore/internal/bigint"
	"github.com/mpengine/mpcore/internal/term"
)

func TestParseBase(t *testing.T) {
	cases := []struct {
		in   string
		want bigint.IOBasic
	}{
		{"dec", bigint.Dec},
		{"", bigint.Dec},
		{"oct", bigint.Oct},
		{"hex", bigint.Hex},
	}
	for _, c := range cases {
		got, err := parseBase(c.in)
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}

	_, err := parseBase("binary")
	require.Error(t, err)
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	versionCmd.Run(versionCmd, nil)

	w.Close()
	os.Stdout = old
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)

	assert.Contains(t, buf.String(), "version")
	assert.Contains(t, buf.String(), "Go Version:")
}

func TestExecuteRunsTerminationRegistryOnPanicThenRepanics(t *testing.T) {
	var ran bool
	id := term.Global().RegisterCallback(func(recovered any) {
		if recovered != nil {
			ran = true
		}
	})
	defer term.Global().RemoveCallback(id)

	orig := rootCmd.RunE
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		panic("boom")
	}
	rootCmd.SetArgs([]string{})
	defer func() { rootCmd.RunE = orig }()

	assert.Panics(t, func() { Execute() })
	assert.True(t, ran, "expected the termination registry to run before the panic propagated")
}
