package cliui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mr-nozko/rag-mcp/internal/search"
)

func TestPrintResults_PlainWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	PrintResults(&buf, "fox", []search.Result{
		{DocPath: "fox.md", Score: 0.9, RetrievalMethod: search.MethodHybrid},
	})

	out := buf.String()
	assert.Contains(t, out, "fox.md")
	assert.Contains(t, out, "hybrid")
	assert.NotContains(t, out, "\x1b[")
}

func TestPrintResults_EmptyResultsSaysSo(t *testing.T) {
	var buf bytes.Buffer
	PrintResults(&buf, "nothing", nil)
	assert.True(t, strings.Contains(buf.String(), "no results"))
}

func TestUseStyling_FalseForBuffer(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, UseStyling(&buf))
}
