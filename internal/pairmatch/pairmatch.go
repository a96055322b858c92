// Package pairmatch pairs deletions with insertions inside a single hunk of
// unified-diff changes, so that a human reviewer sees one modified line
// with intraline highlighting instead of an unrelated-looking
// delete-then-insert pair.
package pairmatch

import (
	"github.com/thehowl/prdiff/internal/inlinediff"
	"github.com/thehowl/prdiff/internal/unidiff"
)

// Config holds the tunable constraints used while matching.
type Config struct {
	// MaxDiffDistance bounds how far apart (in new-line-number vs
	// old-line-number terms) a delete and an insert may be and still be
	// considered a candidate pair.
	MaxDiffDistance int
	// MaxChangeRatio bounds the character-level change ratio
	// (inlinediff.ChangeRatio) between the two paired contents; pairs above
	// this ratio are rejected.
	MaxChangeRatio float64
}

// DefaultConfig matches spec.md's defaults.
func DefaultConfig() Config {
	return Config{MaxDiffDistance: 30, MaxChangeRatio: 0.45}
}

// Pair is a matched (delete, insert) pair, given as indexes into the hunk's
// change slice.
type Pair struct {
	Delete int
	Insert int
}

// Match pairs deletions with insertions in changes, a single hunk's flat
// change sequence. It returns the surviving pairs (sorted by delete index)
// plus the set of indexes that are NOT part of any surviving pair (either
// because no candidate was found, or because the pair was broken by an
// intervening unpaired delete).
func Match(changes []unidiff.Change, cfg Config) (pairs []Pair, unpaired map[int]bool) {
	var deleteIdx, insertIdx []int
	for i, c := range changes {
		switch c.Kind {
		case unidiff.Delete:
			deleteIdx = append(deleteIdx, i)
		case unidiff.Insert:
			insertIdx = append(insertIdx, i)
		}
	}

	pairedInsert := make(map[int]bool, len(insertIdx))
	provisional := make(map[int]int, len(deleteIdx)) // delete idx -> insert idx

	// Step 1+2: for each delete in order, find the best still-unpaired
	// insert within the distance window, by lowest change ratio (stable:
	// earliest in sequence wins ties).
	for _, di := range deleteIdx {
		del := changes[di]
		best := -1
		bestRatio := 2.0 // above any valid ratio (ratio is in [0,1])
		for _, ii := range insertIdx {
			if pairedInsert[ii] {
				continue
			}
			ins := changes[ii]
			if abs(ins.NewLine-del.OldLine) > cfg.MaxDiffDistance {
				continue
			}
			ratio := inlinediff.ChangeRatio(del.Content, ins.Content)
			if ratio > cfg.MaxChangeRatio {
				continue
			}
			if ratio < bestRatio {
				bestRatio = ratio
				best = ii
			}
		}
		if best >= 0 {
			provisional[di] = best
			pairedInsert[best] = true
		}
	}

	// Step 3: break pairs split by an *initially*-unpaired delete sitting
	// between the delete and its (later) paired insert. Only deletes that
	// were unpaired before any of this matching pass count — not deletes
	// that become unpaired as a cascade from breaking other pairs (see
	// DESIGN.md's note on this Open Question).
	initiallyUnpairedDelete := make([]bool, len(changes))
	for _, di := range deleteIdx {
		if _, ok := provisional[di]; !ok {
			initiallyUnpairedDelete[di] = true
		}
	}
	prefix := make([]int, len(changes)+1)
	for i := 0; i < len(changes); i++ {
		prefix[i+1] = prefix[i]
		if initiallyUnpairedDelete[i] {
			prefix[i+1]++
		}
	}
	countUnpairedBetween := func(lo, hi int) int {
		if lo > hi {
			lo, hi = hi, lo
		}
		return prefix[hi] - prefix[lo+1]
	}

	unpaired = make(map[int]bool)
	for di, ii := range provisional {
		if di < ii && countUnpairedBetween(di, ii) > 0 {
			unpaired[di] = true
			unpaired[ii] = true
			continue
		}
		pairs = append(pairs, Pair{Delete: di, Insert: ii})
	}

	for _, di := range deleteIdx {
		if _, ok := provisional[di]; !ok {
			unpaired[di] = true
		}
	}
	for _, ii := range insertIdx {
		if !pairedInsert[ii] {
			unpaired[ii] = true
		}
	}

	sortPairs(pairs)
	return pairs, unpaired
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sortPairs(pairs []Pair) {
	// Insertion sort: pair counts per hunk are small, and this keeps the
	// package free of a sort.Slice closure allocation in the hot path.
	for i := 1; i < len(pairs); i++ {
		j := i
		for j > 0 && pairs[j-1].Delete > pairs[j].Delete {
			pairs[j-1], pairs[j] = pairs[j], pairs[j-1]
			j--
		}
	}
}
