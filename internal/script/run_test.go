package script

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mpcontext "github.com/mpengine/mpcore/internal/context"
	"github.com/mpengine/mpcore/internal/bigint"
	"github.com/mpengine/mpcore/pkg/mpconfig"
)

func TestRunEvaluatesChainedAddsAndFormats(t *testing.T) {
	src := `
let a = 123
let b = 877
add c = a b
format c
format a
`
	s, err := Parse(context.Background(), strings.NewReader(src))
	require.NoError(t, err)

	engineCtx := mpcontext.NewContext(8, bigint.Dec, mpconfig.Default())
	var out strings.Builder
	require.NoError(t, Run(context.Background(), engineCtx, s, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "c = 1000", lines[0])
	assert.Equal(t, "a = 123", lines[1])
}

func TestRunRejectsUndeclaredName(t *testing.T) {
	s := &Script{Statements: []Statement{{Kind: Format, Name: "missing", Line: 1}}}
	engineCtx := mpcontext.NewContext(8, bigint.Dec, mpconfig.Default())
	var out strings.Builder
	err := Run(context.Background(), engineCtx, s, &out)
	require.Error(t, err)
}
