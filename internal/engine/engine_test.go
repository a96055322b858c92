package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thehowl/prdiff/internal/diffmodel"
)

func TestParseDiff_basicHunk(t *testing.T) {
	old := "line one\nline two\nline three\n"
	new := "line one\nline TWO\nline three\n"

	result, err := ParseDiff(ParseDiffInput{
		Patch:      "@@ -1,3 +1,3 @@\n line one\n-line two\n+line TWO\n line three\n",
		Filename:   "f.txt",
		OldContent: &old,
		NewContent: &new,
	})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	require.NotNil(t, result.Entries[0].Hunk)
	assert.Equal(t, 1, result.Entries[0].Hunk.OldStart)
}

func TestParseDiff_malformedTailTruncates(t *testing.T) {
	patch := "@@ -1,2 +1,2 @@\n a\n-b\n+c\n@@ garbage @@\n-d\n"
	result, err := ParseDiff(ParseDiffInput{Patch: patch, Filename: "f.txt"})

	require.NotNil(t, result, "hunks parsed before the malformed tail must still be returned")
	require.Error(t, err)
	assert.True(t, ErrPatchMalformed.Is(err))
	require.Len(t, result.Entries, 1)
}

func TestParseDiff_defaultsPreviousFilename(t *testing.T) {
	old, new := "a\n", "b\n"
	result, err := ParseDiff(ParseDiffInput{
		Patch:      "@@ -1 +1 @@\n-a\n+b\n",
		Filename:   "f.go",
		OldContent: &old,
		NewContent: &new,
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Entries)
}

func TestHighlightLines_rangeValidation(t *testing.T) {
	_, err := HighlightLines(HighlightLinesInput{Content: "a\n", Filename: "f.txt", StartLine: 0, Count: 1})
	require.Error(t, err)
	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, ErrInternalInvariantViolated, e.Kind)
}

func TestHighlightLines_beyondEOF(t *testing.T) {
	lines, err := HighlightLines(HighlightLinesInput{Content: "a\nb\n", Filename: "f.txt", StartLine: 10, Count: 2})
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestHighlightLines_clampsToEOF(t *testing.T) {
	// "a\nb\nc\n" splits into four physical lines ("a", "b", "c", and a
	// trailing empty line); starting at line 2 with an oversized count
	// clamps to the remaining three.
	lines, err := HighlightLines(HighlightLinesInput{Content: "a\nb\nc\n", Filename: "f.txt", StartLine: 2, Count: 100})
	require.NoError(t, err)
	assert.Len(t, lines, 3)
}

func TestHighlightLines_diffLineShape(t *testing.T) {
	lines, err := HighlightLines(HighlightLinesInput{Content: "a\nb\n", Filename: "f.txt", StartLine: 2, Count: 1})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	l := lines[0]
	assert.Equal(t, diffmodel.LineNormal, l.Kind)
	assert.Equal(t, 2, l.OldLine)
	assert.Equal(t, 2, l.NewLine)
	require.Len(t, l.Segments, 1)
	assert.Equal(t, "b", l.Segments[0].Value)
	assert.Len(t, lines, 1)
}
