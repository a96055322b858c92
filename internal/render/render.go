// Package render flattens a tokenize.Node tree into one rendered HTML
// string per physical line of the originating source, keeping any nesting
// that spans a line break open across the split — the property that makes
// highlighting of multi-line constructs (block comments, template strings)
// come out correct instead of independently-highlighted-per-line wrong.
package render

import (
	"html"
	"strings"

	"github.com/thehowl/prdiff/internal/tokenize"
)

// open is a currently-open element on the rendering stack.
type open struct {
	tag, class string
}

func (o open) openTag() string {
	if o.class == "" {
		return "<" + o.tag + ">"
	}
	return `<` + o.tag + ` class="` + html.EscapeString(o.class) + `">`
}

func (o open) closeTag() string {
	return "</" + o.tag + ">"
}

// Lines walks nodes and returns one HTML string per physical line of the
// concatenated source text (split on "\n"; a trailing "\n" yields an empty
// final line, preserved). Every returned line is self-contained,
// balanced-tag HTML: nesting that would otherwise span the split is closed
// at the end of the line and reopened at the start of the next one.
func Lines(nodes []tokenize.Node) []string {
	if len(nodes) == 0 {
		return nil
	}
	w := &walker{lines: []string{""}}
	for _, n := range nodes {
		w.visit(n)
	}
	return w.lines
}

type walker struct {
	stack []open
	lines []string
	buf   strings.Builder
}

func (w *walker) cur() *string { return &w.lines[len(w.lines)-1] }

func (w *walker) flush() {
	*w.cur() += w.buf.String()
	w.buf.Reset()
}

func (w *walker) newline() {
	w.flush()
	// close every open element to end this line...
	for i := len(w.stack) - 1; i >= 0; i-- {
		*w.cur() += w.stack[i].closeTag()
	}
	w.lines = append(w.lines, "")
	// ...and reopen them in order to start the next one.
	for _, o := range w.stack {
		*w.cur() += o.openTag()
	}
}

func (w *walker) visit(n tokenize.Node) {
	if n.IsText {
		w.visitText(n.Value)
		return
	}
	w.flush()
	*w.cur() += open{n.Tag, n.Class}.openTag()
	w.stack = append(w.stack, open{n.Tag, n.Class})
	for _, c := range n.Children {
		w.visit(c)
	}
	w.stack = w.stack[:len(w.stack)-1]
	w.flush()
	*w.cur() += open{n.Tag, n.Class}.closeTag()
}

func (w *walker) visitText(value string) {
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		if i > 0 {
			w.newline()
		}
		if part != "" {
			w.buf.WriteString(html.EscapeString(part))
		}
	}
}
