package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thehowl/prdiff/internal/tokenize"
)

func TestLines_plainTextSplitsOnNewline(t *testing.T) {
	lines := Lines([]tokenize.Node{tokenize.Text("a\nb\nc")})
	require.Len(t, lines, 3)
	assert.Equal(t, "a", lines[0])
	assert.Equal(t, "b", lines[1])
	assert.Equal(t, "c", lines[2])
}

func TestLines_trailingNewlineYieldsEmptyFinalLine(t *testing.T) {
	lines := Lines([]tokenize.Node{tokenize.Text("a\nb\n")})
	require.Len(t, lines, 3)
	assert.Equal(t, "", lines[2])
}

func TestLines_escapesHTML(t *testing.T) {
	lines := Lines([]tokenize.Node{tokenize.Text("a < b")})
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "&lt;")
}

func TestLines_reopensSpanAcrossLineBreak(t *testing.T) {
	// A single element whose text content spans multiple lines must close
	// and reopen its tag at each line break, so every returned line is
	// self-contained, balanced-tag HTML.
	nodes := []tokenize.Node{
		tokenize.Element("span", "c1", tokenize.Text("start\nmiddle\nend")),
	}
	lines := Lines(nodes)
	require.Len(t, lines, 3)

	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, `<span class="c1">`))
		assert.True(t, strings.HasSuffix(l, `</span>`))
	}
	assert.Contains(t, lines[0], "start")
	assert.Contains(t, lines[1], "middle")
	assert.Contains(t, lines[2], "end")
}

func TestLines_emptyInput(t *testing.T) {
	assert.Nil(t, Lines(nil))
}
