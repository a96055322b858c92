package pool

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thehowl/prdiff/internal/engine"
)

func TestParseDiff_simple(t *testing.T) {
	p := New(2)
	t.Cleanup(p.Terminate)

	old, new := "a\nb\n", "a\nc\n"
	result, err := p.ParseDiff(context.Background(), engine.ParseDiffInput{
		Patch:      "@@ -1,2 +1,2 @@\n a\n-b\n+c\n",
		Filename:   "f.txt",
		OldContent: &old,
		NewContent: &new,
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Entries)
}

func TestHighlightLines(t *testing.T) {
	p := New(1)
	t.Cleanup(p.Terminate)

	lines, err := p.HighlightLines(context.Background(), engine.HighlightLinesInput{
		Content:   "a\nb\nc\n",
		Filename:  "f.txt",
		StartLine: 2,
		Count:     1,
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestParseDiffBatch_independentFailures(t *testing.T) {
	p := New(4)
	t.Cleanup(p.Terminate)

	old1, new1 := "a\n", "b\n"
	ins := []engine.ParseDiffInput{
		{Patch: "@@ -1 +1 @@\n-a\n+b\n", Filename: "ok.txt", OldContent: &old1, NewContent: &new1},
		{Patch: "not a valid patch at all", Filename: "bad.txt"},
	}
	results, errs := p.ParseDiffBatch(context.Background(), ins)
	require.Len(t, results, 2)
	require.Len(t, errs, 2)

	assert.NoError(t, errs[0])
	assert.NotNil(t, results[0])

	assert.Error(t, errs[1])
}

func TestTerminate_rejectsFurtherDispatch(t *testing.T) {
	p := New(2)
	p.Terminate()
	// Idempotent.
	p.Terminate()

	_, err := p.ParseDiff(context.Background(), engine.ParseDiffInput{Filename: "f.txt"})
	assert.ErrorIs(t, err, ErrTerminated)
}

func TestParseDiff_contextCancelled(t *testing.T) {
	p := New(1)
	t.Cleanup(p.Terminate)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context must not hang the caller.
	done := make(chan struct{})
	go func() {
		_, _ = p.ParseDiff(ctx, engine.ParseDiffInput{Filename: "f.txt"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ParseDiff did not return promptly on cancelled context")
	}
}
