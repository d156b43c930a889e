package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeCommandRegistersAddrFlag(t *testing.T) {
	resetGlobals(t)
	flag := serveCmd.Flags().Lookup("addr")
	assert.NotNil(t, flag)
	assert.Equal(t, ":7070", flag.DefValue)
}
