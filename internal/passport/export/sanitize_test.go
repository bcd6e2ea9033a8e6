package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeEntryName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "policy.pdf", "policy.pdf"},
		{"directory components dropped", "a/b/c/report.pdf", "report.pdf"},
		{"windows separators", `C:\Users\me\report.pdf`, "report.pdf"},
		{"traversal", "../../etc/passwd", "passwd"},
		{"double dots collapse", "my..file.txt", "my.file.txt"},
		{"unsafe characters", "q3 report (final)*.pdf", "q3 report _final_.pdf"},
		{"unicode replaced", "ürün.pdf", "_r_n.pdf"},
		{"trimmed", "  spaced.txt  ", "spaced.txt"},
		{"empty falls back", "", "ev-1.bin"},
		{"only dots falls back", "..", "ev-1.bin"},
		{"trailing slash", "dir/", "dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeEntryName(tt.in, "ev-1"))
		})
	}
}

func TestSafeEntryNameTruncates(t *testing.T) {
	got := SafeEntryName(strings.Repeat("a", 300)+".pdf", "ev-1")
	assert.Len(t, got, maxEntryNameLen)
}

func TestEntryNamesPrefixesCollisions(t *testing.T) {
	names := entryNames{}

	assert.Equal(t, "doc.pdf", names.claim("doc.pdf", "e1"))
	assert.Equal(t, "e2_doc.pdf", names.claim("doc.pdf", "e2"))
	assert.Equal(t, "other.pdf", names.claim("other.pdf", "e3"))
}
