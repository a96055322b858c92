package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tt := []struct {
		filename string
		want     string
	}{
		{"main.go", "go"},
		{"App.TSX", "tsx"},
		{"script.py", "python"},
		{"styles.scss", "scss"},
		{"Dockerfile", "docker"},
		{"noext", Fallback},
		{"weird.xyz123", Fallback},
		{"path/to/module.rs", "rust"},
	}
	for _, tc := range tt {
		t.Run(tc.filename, func(t *testing.T) {
			assert.Equal(t, tc.want, Resolve(tc.filename))
		})
	}
}
