// Package engine wires the pipeline stages (internal/lang, internal/tokenize,
// internal/render, internal/unidiff, internal/pairmatch, internal/inlinediff,
// internal/hunkfinal) into the two operations a caller actually wants:
// ParseDiff, which turns a patch plus optional full content into a
// diffmodel.ParsedDiff, and HighlightLines, which highlights a slice of one
// file's lines in isolation.
package engine

import (
	"fmt"

	"github.com/thehowl/prdiff/internal/diffmodel"
	"github.com/thehowl/prdiff/internal/hunkfinal"
	"github.com/thehowl/prdiff/internal/lang"
	"github.com/thehowl/prdiff/internal/pairmatch"
	"github.com/thehowl/prdiff/internal/render"
	"github.com/thehowl/prdiff/internal/tokenize"
	"github.com/thehowl/prdiff/internal/unidiff"
)

// ParseDiffInput is the engine-facing request shape. OldContent/NewContent
// are *string rather than string because their absence (not the empty
// string) is what "omitted" means in spec.md's request shape.
type ParseDiffInput struct {
	Patch            string
	Filename         string
	PreviousFilename string
	OldContent       *string
	NewContent       *string
}

// ParseDiff runs the full pipeline for a single file.
func ParseDiff(in ParseDiffInput) (*diffmodel.ParsedDiff, error) {
	prevFilename := in.PreviousFilename
	if prevFilename == "" {
		prevFilename = in.Filename
	}

	hunks, perr := unidiff.Parse(in.Patch)
	var truncated *unidiff.MalformedError
	if perr != nil {
		me, ok := perr.(*unidiff.MalformedError)
		if !ok {
			return nil, &Error{Kind: ErrInternalInvariantViolated, Filename: in.Filename, Err: perr}
		}
		truncated = me
	}

	pre := buildPreRendered(prevFilename, in.Filename, in.OldContent, in.NewContent)
	cfg := pairmatch.DefaultConfig()

	entries := make([]diffmodel.Entry, 0, len(hunks)*2)
	var prevHunk *unidiff.Hunk
	for i := range hunks {
		h := hunks[i]
		if skip := hunkfinal.InsertSkip(prevHunk, h); skip != nil {
			entries = append(entries, diffmodel.Entry{Skip: skip})
		}
		lines := hunkfinal.Build(h, cfg, pre)
		entries = append(entries, diffmodel.Entry{Hunk: &diffmodel.Hunk{
			OldStart: h.OldStart,
			NewStart: h.NewStart,
			Lines:    lines,
		}})
		prevHunk = &h
	}

	out := &diffmodel.ParsedDiff{Entries: entries}
	if truncated != nil {
		return out, &Error{Kind: ErrPatchMalformed, Filename: in.Filename, Err: truncated}
	}
	return out, nil
}

// buildPreRendered pre-tokenizes whichever of oldContent/newContent is
// present, so hunkfinal can look up a whole highlighted line instead of
// highlighting an isolated segment. Either side may be nil: the caller only
// had a patch, not the full files.
func buildPreRendered(oldFilename, newFilename string, oldContent, newContent *string) hunkfinal.PreRendered {
	var pre hunkfinal.PreRendered
	if oldContent != nil {
		pre.OldLang = lang.Resolve(oldFilename)
		pre.OldLines = render.Lines(tokenize.Tree(*oldContent, pre.OldLang))
	}
	if newContent != nil {
		pre.NewLang = lang.Resolve(newFilename)
		pre.NewLines = render.Lines(tokenize.Tree(*newContent, pre.NewLang))
	}
	return pre
}

// HighlightLinesInput is the engine-facing request shape for HighlightLines.
type HighlightLinesInput struct {
	Content   string
	Filename  string
	StartLine int // 1-based
	Count     int
}

// HighlightLines runs C1+C2+C3 once over content and returns the count
// DiffLines starting at startLine (1-based, inclusive). Per spec.md's
// §4.10, each returned line has kind normal, both line numbers set to the
// same absolute line number, and a single segment carrying the
// pre-highlighted HTML.
func HighlightLines(in HighlightLinesInput) ([]diffmodel.Line, error) {
	if in.StartLine < 1 || in.Count < 0 {
		return nil, &Error{
			Kind:     ErrInternalInvariantViolated,
			Filename: in.Filename,
			Err:      fmt.Errorf("invalid range: startLine=%d count=%d", in.StartLine, in.Count),
		}
	}
	language := lang.Resolve(in.Filename)
	rendered := render.Lines(tokenize.Tree(in.Content, language))

	start := in.StartLine - 1
	if start >= len(rendered) {
		return nil, nil
	}
	end := start + in.Count
	if end > len(rendered) {
		end = len(rendered)
	}

	plain := splitLines(in.Content)
	out := make([]diffmodel.Line, 0, end-start)
	for i := start; i < end; i++ {
		lineNo := i + 1
		var value string
		if i < len(plain) {
			value = plain[i]
		}
		out = append(out, diffmodel.Line{
			Kind:    diffmodel.LineNormal,
			OldLine: lineNo,
			NewLine: lineNo,
			Segments: []diffmodel.RenderedSegment{
				{
					Segment: diffmodel.Segment{Value: value, Kind: diffmodel.SegNormal},
					HTML:    rendered[i],
				},
			},
		})
	}
	return out, nil
}

// splitLines splits content into physical lines the same way
// internal/render splits a tokenized source (on "\n", preserving a
// trailing empty line), so a DiffLine's Segment.Value lines up with its
// pre-highlighted HTML.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lines = append(lines, content[start:i])
			start = i + 1
		}
	}
	lines = append(lines, content[start:])
	return lines
}
