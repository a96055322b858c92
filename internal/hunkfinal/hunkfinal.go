// Package hunkfinal turns a parsed unified-diff hunk into the final
// diffmodel.Hunk: it pairs changes (internal/pairmatch), builds inline
// segments for each pair (internal/inlinediff), numbers every line, attaches
// highlighted HTML to every segment, and computes the skip block that
// belongs before a hunk given the previous one.
package hunkfinal

import (
	"github.com/thehowl/prdiff/internal/diffmodel"
	"github.com/thehowl/prdiff/internal/inlinediff"
	"github.com/thehowl/prdiff/internal/pairmatch"
	"github.com/thehowl/prdiff/internal/render"
	"github.com/thehowl/prdiff/internal/tokenize"
	"github.com/thehowl/prdiff/internal/unidiff"
)

// PreRendered holds the per-line HTML produced by running the line-aware
// renderer once over a full file's content, indexed 1-based (PreRendered
// holds the full line at index line-1). A nil slice means the caller had no
// full content for that side, forcing the per-segment highlighting
// fallback in Build.
type PreRendered struct {
	OldLines []string
	NewLines []string
	OldLang  string
	NewLang  string
}

// Build produces the final lines for hunk h.
func Build(h unidiff.Hunk, cfg pairmatch.Config, pre PreRendered) []diffmodel.Line {
	pairs, unpaired := pairmatch.Match(h.Changes, cfg)
	pairByDelete := make(map[int]int, len(pairs))
	for _, p := range pairs {
		pairByDelete[p.Delete] = p.Insert
	}

	lines := make([]diffmodel.Line, 0, len(h.Changes))
	consumed := make([]bool, len(h.Changes))

	for i, c := range h.Changes {
		if consumed[i] {
			continue
		}
		switch {
		case c.Kind == unidiff.Delete && !unpaired[i]:
			// The delete branch builds the modified line regardless of
			// whether its paired insert comes before or after it in the
			// change sequence (a "backward pair"): either way the row is
			// emitted once, at the delete's position in iteration order.
			j := pairByDelete[i]
			lines = append(lines, buildModified(h.Changes[i], h.Changes[j], pre))
			consumed[j] = true
		case c.Kind == unidiff.Insert && !unpaired[i]:
			// Paired insert: a forward pair already emitted this (and
			// marked it consumed, so we'd never reach this branch); a
			// backward pair's delete comes later and will emit it then.
			// Either way nothing is emitted at the insert's own position.
		case c.Kind == unidiff.Normal:
			lines = append(lines, buildNormal(c, pre))
		case c.Kind == unidiff.Delete:
			lines = append(lines, buildUnpaired(c, diffmodel.LineDelete, pre))
		case c.Kind == unidiff.Insert:
			lines = append(lines, buildUnpaired(c, diffmodel.LineInsert, pre))
		}
		consumed[i] = true
	}
	return lines
}

func buildNormal(c unidiff.Change, pre PreRendered) diffmodel.Line {
	seg := diffmodel.Segment{Value: c.Content, Kind: diffmodel.SegNormal}
	html := lookupOrHighlight(seg, pre.NewLines, c.NewLine, pre.NewLang)
	return diffmodel.Line{
		Kind:    diffmodel.LineNormal,
		OldLine: c.OldLine,
		NewLine: c.NewLine,
		Segments: []diffmodel.RenderedSegment{
			{Segment: seg, HTML: html},
		},
	}
}

func buildUnpaired(c unidiff.Change, kind diffmodel.LineKind, pre PreRendered) diffmodel.Line {
	var segKind diffmodel.SegmentKind
	var lineNo int
	var preLines []string
	var lang string
	if kind == diffmodel.LineDelete {
		segKind = diffmodel.SegDelete
		lineNo = c.OldLine
		preLines, lang = pre.OldLines, pre.OldLang
	} else {
		segKind = diffmodel.SegInsert
		lineNo = c.NewLine
		preLines, lang = pre.NewLines, pre.NewLang
	}
	seg := diffmodel.Segment{Value: c.Content, Kind: segKind}
	html := lookupOrHighlight(seg, preLines, lineNo, lang)

	l := diffmodel.Line{Kind: kind, Segments: []diffmodel.RenderedSegment{{Segment: seg, HTML: html}}}
	if kind == diffmodel.LineDelete {
		l.OldLine = c.OldLine
	} else {
		l.NewLine = c.NewLine
	}
	return l
}

func buildModified(del, ins unidiff.Change, pre PreRendered) diffmodel.Line {
	segs := inlinediff.Segments(del.Content, ins.Content)

	// Single normal segment (the pair's contents turned out identical):
	// this degenerates to a true context line and can use the
	// pre-rendered lookup directly.
	if len(segs) == 1 && segs[0].Kind == diffmodel.SegNormal {
		html := lookupOrHighlight(segs[0], pre.NewLines, ins.NewLine, pre.NewLang)
		return diffmodel.Line{
			Kind:    diffmodel.LineNormal,
			OldLine: del.OldLine,
			NewLine: ins.NewLine,
			Segments: []diffmodel.RenderedSegment{
				{Segment: segs[0], HTML: html},
			},
		}
	}

	rendered := make([]diffmodel.RenderedSegment, len(segs))
	for i, s := range segs {
		lang := pre.NewLang
		if s.Kind == diffmodel.SegDelete {
			lang = pre.OldLang
		}
		rendered[i] = diffmodel.RenderedSegment{Segment: s, HTML: highlightSegment(s.Value, lang)}
	}
	return diffmodel.Line{
		Kind:     diffmodel.LineNormal,
		OldLine:  del.OldLine,
		NewLine:  ins.NewLine,
		Segments: rendered,
	}
}

// lookupOrHighlight implements the two branches of 4.7's HTML-attachment
// rule: a lone normal segment with a pre-tokenized file available looks up
// the pre-rendered line verbatim; everything else highlights the segment's
// value in isolation.
func lookupOrHighlight(seg diffmodel.Segment, preLines []string, lineNo int, lang string) string {
	if preLines != nil && lineNo >= 1 && lineNo <= len(preLines) {
		return preLines[lineNo-1]
	}
	return highlightSegment(seg.Value, lang)
}

func highlightSegment(value, lang string) string {
	nodes := tokenize.Tree(value, lang)
	lines := render.Lines(nodes)
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

// InsertSkip computes the SkipBlock that belongs before next, given the
// previously-emitted hunk prev (nil before the first hunk, for which
// lastHunkLineAfter defaults to 1 per spec.md).
func InsertSkip(prev *unidiff.Hunk, next unidiff.Hunk) *diffmodel.SkipBlock {
	lastLineAfter := 1
	if prev != nil {
		lastLineAfter = prev.OldStart + prev.OldLines
	}
	count := next.OldStart - lastLineAfter
	if count <= 0 {
		return nil
	}
	return &diffmodel.SkipBlock{Count: count, Context: next.Context}
}
