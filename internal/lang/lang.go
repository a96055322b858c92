// Package lang resolves a filename to the language tag used by the rest of
// the diff rendering pipeline to pick a tokenizer.
package lang

import (
	"path/filepath"
	"strings"
)

// Fallback is the language tag used for filenames with an unrecognized
// extension.
const Fallback = "tsx"

// byExtension is the only place extension-to-language knowledge lives.
var byExtension = map[string]string{
	"ts":     "typescript",
	"tsx":    "tsx",
	"js":     "javascript",
	"jsx":    "jsx",
	"mjs":    "javascript",
	"cjs":    "javascript",
	"py":     "python",
	"rb":     "ruby",
	"go":     "go",
	"rs":     "rust",
	"java":   "java",
	"kt":     "kotlin",
	"kts":    "kotlin",
	"c":      "c",
	"h":      "c",
	"cc":     "cpp",
	"cpp":    "cpp",
	"cxx":    "cpp",
	"hpp":    "cpp",
	"cs":     "csharp",
	"php":    "php",
	"swift":  "swift",
	"scala":  "scala",
	"sh":     "bash",
	"bash":   "bash",
	"zsh":    "bash",
	"sql":    "sql",
	"yaml":   "yaml",
	"yml":    "yaml",
	"json":   "json",
	"toml":   "toml",
	"md":     "markdown",
	"markdown": "markdown",
	"html":   "html",
	"htm":    "html",
	"css":    "css",
	"scss":   "scss",
	"less":   "less",
	"xml":    "xml",
	"proto":  "protobuf",
	"lua":    "lua",
	"pl":     "perl",
	"r":      "r",
	"dart":   "dart",
	"ex":     "elixir",
	"exs":    "elixir",
	"erl":    "erlang",
	"hs":     "haskell",
	"clj":    "clojure",
	"vue":    "vue",
	"dockerfile": "docker",
	"tf":     "terraform",
}

// Resolve returns the language tag for filename, based on its (lowercased)
// extension. Unknown extensions resolve to [Fallback].
func Resolve(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		base := strings.ToLower(filepath.Base(filename))
		if base == "dockerfile" {
			return "docker"
		}
		return Fallback
	}
	if tag, ok := byExtension[ext]; ok {
		return tag
	}
	return Fallback
}
