package pairmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thehowl/prdiff/internal/unidiff"
)

func del(old int, content string) unidiff.Change {
	return unidiff.Change{Kind: unidiff.Delete, OldLine: old, Content: content}
}

func ins(new int, content string) unidiff.Change {
	return unidiff.Change{Kind: unidiff.Insert, NewLine: new, Content: content}
}

func TestMatch_simplePair(t *testing.T) {
	changes := []unidiff.Change{del(1, "hello world"), ins(1, "hello there")}
	pairs, unpaired := Match(changes, DefaultConfig())

	require.Len(t, pairs, 1)
	assert.Equal(t, 0, pairs[0].Delete)
	assert.Equal(t, 1, pairs[0].Insert)
	assert.Empty(t, unpaired)
}

func TestMatch_exceedsDistance(t *testing.T) {
	cfg := DefaultConfig()
	changes := []unidiff.Change{del(1, "same"), ins(1+cfg.MaxDiffDistance+1, "same")}
	pairs, unpaired := Match(changes, cfg)

	assert.Empty(t, pairs)
	assert.True(t, unpaired[0])
	assert.True(t, unpaired[1])
}

func TestMatch_exceedsChangeRatio(t *testing.T) {
	changes := []unidiff.Change{
		del(1, "completely different content here"),
		ins(1, "totally unrelated other stuff"),
	}
	pairs, unpaired := Match(changes, DefaultConfig())

	assert.Empty(t, pairs)
	assert.True(t, unpaired[0])
	assert.True(t, unpaired[1])
}

func TestMatch_multipleCandidatesPicksBestRatio(t *testing.T) {
	// Two inserts are candidates for the one delete; the closer-matching
	// one (by change ratio) should win the pair, leaving the other unpaired.
	changes := []unidiff.Change{
		del(1, "alpha"),
		ins(1, "totally unrelated"),
		ins(2, "alpha2"),
	}
	pairs, unpaired := Match(changes, DefaultConfig())

	require.Len(t, pairs, 1)
	assert.Equal(t, 0, pairs[0].Delete)
	assert.Equal(t, 2, pairs[0].Insert)
	assert.True(t, unpaired[1])
}

func TestMatch_interveningUnpairedDeleteBreaksPair(t *testing.T) {
	// delete(0) and insert(2) would pair, but the genuinely-unmatchable
	// delete(1) sits between them in sequence, which breaks the pair.
	changes := []unidiff.Change{
		del(1, "hello world"),
		del(2, "completely unrelated content"),
		ins(1, "hello there"),
	}
	pairs, unpaired := Match(changes, DefaultConfig())

	assert.Empty(t, pairs)
	assert.True(t, unpaired[0])
	assert.True(t, unpaired[1])
	assert.True(t, unpaired[2])
}

func TestMatch_noCascadeFromBrokenPair(t *testing.T) {
	// Only *initially* unpaired deletes count as interrupters; a delete
	// that only becomes unpaired as a side effect of another pair breaking
	// must not also break this one. Pair (1,4) is broken by the unmatchable
	// delete at 3; its delete at 1 then sits between pair (0,2), which must
	// still survive.
	changes := []unidiff.Change{
		del(1, "bbbb"),
		del(2, "aaaa"),
		ins(1, "bbbc"),
		del(3, "zzzzzzzz"),
		ins(2, "aaab"),
	}
	pairs, _ := Match(changes, DefaultConfig())
	assert.Equal(t, []Pair{{Delete: 0, Insert: 2}}, pairs)
}

func TestMatch_allNormalChangesIgnored(t *testing.T) {
	changes := []unidiff.Change{{Kind: unidiff.Normal, Content: "unchanged"}}
	pairs, unpaired := Match(changes, DefaultConfig())
	assert.Empty(t, pairs)
	assert.Empty(t, unpaired)
}
