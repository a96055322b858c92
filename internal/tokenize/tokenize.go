// Package tokenize turns source text into a nested token tree, the input to
// the line-aware renderer (internal/render). It never fails the caller:
// tokenizer errors degrade to a single Text node holding the original
// source, since highlighting is a best-effort enrichment on top of the
// diff itself.
package tokenize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// Node is either a Text leaf or an Element wrapping children. Exactly one of
// Value (for Text) or Tag/Children (for Element) is meaningful; callers
// switch on IsText.
type Node struct {
	IsText   bool
	Value    string // set when IsText
	Tag      string // set when !IsText, e.g. "span"
	Class    string // chroma token type name, e.g. "KeywordDeclaration"
	Children []Node // set when !IsText
}

// Text returns a leaf node holding value verbatim.
func Text(value string) Node {
	return Node{IsText: true, Value: value}
}

// Element returns a node wrapping children under tag/class.
func Element(tag, class string, children ...Node) Node {
	return Node{Tag: tag, Class: class, Children: children}
}

// Tree tokenizes source as language and returns the root's children as a
// flat forest of nodes (no synthetic root wrapper). A language with no
// registered lexer is tokenized with chroma's plaintext fallback lexer. On a
// lexer error, or when tokenizing yields no tokens, it returns a single Text
// node holding source unchanged, per LanguageLookupFailure semantics:
// non-fatal, no error surfaced to the caller.
func Tree(source, language string) []Node {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iter, err := lexer.Tokenise(nil, source)
	if err != nil {
		return []Node{Text(source)}
	}

	tokens := iter.Tokens()
	nodes := make([]Node, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Value == "" {
			continue
		}
		class := tok.Type.String()
		nodes = append(nodes, Element("span", class, Text(tok.Value)))
	}
	if len(nodes) == 0 {
		return []Node{Text(source)}
	}
	return nodes
}
