package script

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLetAddFormat(t *testing.T) {
	src := `
# a comment
let a = 123
let b = 877
add c = a b
format c
`
	s, err := Parse(context.Background(), strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, s.Statements, 4)

	assert.Equal(t, Let, s.Statements[0].Kind)
	assert.Equal(t, "a", s.Statements[0].Name)
	assert.Equal(t, "123", s.Statements[0].Literal)

	assert.Equal(t, Add, s.Statements[2].Kind)
	assert.Equal(t, "c", s.Statements[2].Name)
	assert.Equal(t, "a", s.Statements[2].LHS)
	assert.Equal(t, "b", s.Statements[2].RHS)

	assert.Equal(t, Format, s.Statements[3].Kind)
	assert.Equal(t, "c", s.Statements[3].Name)
}

func TestParseRejectsMalformedLet(t *testing.T) {
	_, err := Parse(context.Background(), strings.NewReader("let a 123\n"))
	require.Error(t, err)
}

func TestParseRejectsUnknownStatement(t *testing.T) {
	_, err := Parse(context.Background(), strings.NewReader("multiply a = b c\n"))
	require.Error(t, err)
}

func TestParseSkipsBlankLinesAndComments(t *testing.T) {
	s, err := Parse(context.Background(), strings.NewReader("\n\n# nothing here\n\nlet a = 1\n"))
	require.NoError(t, err)
	require.Len(t, s.Statements, 1)
}
