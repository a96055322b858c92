package patchgen

import "strconv"

// GeneratePatch produces a unified-diff body (hunks only, no "diff"/"---"/
// "+++" header lines) from full old/new content, for callers that only have
// full file content and no patch of their own — the demo service's upload
// handler is the only caller of this, since internal/engine always expects
// an already-computed patch (spec.md's non-goal: the engine itself is not a
// patch generator).
func GeneratePatch(oldContent, newContent string) string {
	u := DiffWithOptions("a", []byte(oldContent), "b", []byte(newContent), Options{Context: 3})

	var out []byte
	for _, hunk := range u.Hunks {
		out = append(out, hunkHeader(hunk)...)
		for _, l := range hunk.Lines {
			out = append(out, l.Value...)
			out = append(out, '\n')
		}
	}
	return string(out)
}

func hunkHeader(h Hunk) string {
	return "@@ -" + strconv.Itoa(h.LineOld) + "," + strconv.Itoa(h.CountOld) +
		" +" + strconv.Itoa(h.LineNew) + "," + strconv.Itoa(h.CountNew) + " @@\n"
}
