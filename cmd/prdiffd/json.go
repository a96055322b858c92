package main

import "github.com/thehowl/prdiff/internal/diffmodel"

// jsonParsedDiff renders a diffmodel.ParsedDiff into spec.md's wire shape:
// { hunks: Array<Hunk|SkipBlock> }, distinguished by a "type" discriminator.
func jsonParsedDiff(p *diffmodel.ParsedDiff) map[string]any {
	if p == nil {
		return map[string]any{"hunks": []any{}}
	}
	hunks := make([]any, 0, len(p.Entries))
	for _, e := range p.Entries {
		switch {
		case e.Hunk != nil:
			hunks = append(hunks, map[string]any{
				"type":     "hunk",
				"oldStart": e.Hunk.OldStart,
				"newStart": e.Hunk.NewStart,
				"lines":    jsonLines(e.Hunk.Lines),
			})
		case e.Skip != nil:
			hunks = append(hunks, map[string]any{
				"type":    "skip",
				"count":   e.Skip.Count,
				"content": e.Skip.Context,
			})
		}
	}
	return map[string]any{"hunks": hunks}
}

func jsonLines(lines []diffmodel.Line) []any {
	out := make([]any, 0, len(lines))
	for _, l := range lines {
		line := map[string]any{
			"type":    string(l.Kind),
			"content": jsonSegments(l.Segments),
		}
		if l.OldLine != 0 {
			line["oldLineNumber"] = l.OldLine
		}
		if l.NewLine != 0 {
			line["newLineNumber"] = l.NewLine
		}
		out = append(out, line)
	}
	return out
}

func jsonSegments(segs []diffmodel.RenderedSegment) []any {
	out := make([]any, 0, len(segs))
	for _, s := range segs {
		out = append(out, map[string]any{
			"value": s.Value,
			"html":  s.HTML,
			"type":  string(s.Kind),
		})
	}
	return out
}
