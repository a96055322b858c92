// Package diffmodel holds the data types shared by every stage of the diff
// rendering pipeline: the per-line segment model, hunks, skip blocks, and
// the top-level ParsedDiff. These are plain values — immutable once
// produced by a worker and handed back to the caller.
package diffmodel

// SegmentKind tags a [Segment] by how it differs between the old and new
// content of a line.
type SegmentKind string

const (
	SegNormal SegmentKind = "normal"
	SegInsert SegmentKind = "insert"
	SegDelete SegmentKind = "delete"
)

// Segment is a contiguous substring of a line tagged with a change kind.
// Adjacent segments of the same kind are always merged before a Segment
// slice is considered final; no empty-value segment is emitted except as a
// pure placeholder (see [MergeAdjacent]).
type Segment struct {
	Value string
	Kind  SegmentKind
}

// RenderedSegment is a Segment plus its pre-escaped HTML span markup.
type RenderedSegment struct {
	Segment
	HTML string
}

// LineKind tags a [Line] by its role in the rendered diff. A *modified*
// line — one produced by pairing a delete with an insert — has
// LineKind Normal despite carrying both OldLine and NewLine: that
// combination is the UI's signal that the row is a change.
type LineKind string

const (
	LineNormal LineKind = "normal"
	LineInsert LineKind = "insert"
	LineDelete LineKind = "delete"
)

// Line is one row of rendered diff output.
type Line struct {
	Kind     LineKind
	OldLine  int // 0 if not applicable
	NewLine  int // 0 if not applicable
	Segments []RenderedSegment
}

// SkipBlock is a placeholder between hunks indicating that Count unchanged
// lines were omitted. Context is taken from the trailing part of the
// following hunk's header.
type SkipBlock struct {
	Count   int
	Context string
}

// Hunk is a contiguous region of a diff.
type Hunk struct {
	OldStart int
	NewStart int
	Lines    []Line
}

// Entry is either a Hunk or a SkipBlock in a [ParsedDiff]'s ordered
// sequence. Exactly one of Hunk/Skip is non-nil.
type Entry struct {
	Hunk *Hunk
	Skip *SkipBlock
}

// ParsedDiff is the ordered sequence of hunks and skip blocks produced by
// the engine for one file.
type ParsedDiff struct {
	Entries []Entry
}

// MergeAdjacent returns a new slice with adjacent same-kind segments merged
// and empty-value segments dropped. If nothing remains (segs is empty or
// every value is empty), it returns a single empty normal segment as a
// placeholder, so that an empty line still renders a row.
func MergeAdjacent(segs []Segment) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		if s.Value == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Kind == s.Kind {
			out[n-1].Value += s.Value
			continue
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return []Segment{{Kind: SegNormal}}
	}
	return out
}
