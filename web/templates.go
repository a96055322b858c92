// Package web embeds the demo service's one HTML page: a plain index with
// the curl/HTTP usage example, served to browser user agents in place of
// the plaintext usageString. Adapted from the teacher's templates package
// (embed.FS + html/template.Must, same shape), pared down from its
// diff-rendering funcMap since rendering now happens through the JSON API
// rather than server-side HTML.
package web

import (
	"embed"
	"html/template"
)

//go:embed *.tmpl
var templateFS embed.FS

// Templates is the parsed set of the service's HTML templates.
var Templates = template.Must(template.New("").ParseFS(templateFS, "*.tmpl"))
