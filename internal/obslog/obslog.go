// Package obslog holds small observability helpers: panic logging with a
// truncated stack trace, adapted from the teacher's top-level request
// handler and smallStacktrace helper. The demo service's router recovers
// panics with chi's middleware.Recoverer and does not import this package.
package obslog

import (
	"bytes"
	"fmt"
	"log"
	"runtime"
	"strings"
)

// SmallStacktrace renders the caller's goroutine stack, one frame per line,
// trimming each file path to a fixed width so a panic log line stays
// readable instead of spilling full module paths.
func SmallStacktrace() string {
	const ellipsis = "…"

	var buf bytes.Buffer
	pc := make([]uintptr, 100)
	pc = pc[:runtime.Callers(2, pc)]
	frames := runtime.CallersFrames(pc)
	for {
		f, more := frames.Next()

		if idx := strings.LastIndexByte(f.Function, '/'); idx >= 0 {
			f.Function = f.Function[idx+1:]
		}

		fullPath := fmt.Sprintf("%s:%-4d", f.File, f.Line)
		if len(fullPath) > 30 {
			fullPath = ellipsis + fullPath[len(fullPath)-29:]
		}

		fmt.Fprintf(&buf, "%30s %s\n", fullPath, f.Function)

		if !more {
			return buf.String()
		}
	}
}

// RecoverHandler is called from a deferred func in the outermost HTTP
// middleware, which passes it the value of its own recover() call (recover
// only stops a panic when called directly by the deferred func). On a panic
// it logs the request label, the panic value, and a truncated stack trace,
// then returns true so the caller can still write a 500 to the client.
func RecoverHandler(label string, rec any) (panicked bool) {
	if rec != nil {
		log.Printf("panic handling %s: %v\n%s", label, rec, SmallStacktrace())
		return true
	}
	return false
}
