package export

import (
	"path"
	"regexp"
	"strings"
)

const maxEntryNameLen = 120

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._ -]+`)

// SafeEntryName reduces an uploaded filename to a name that is safe inside
// the archive's evidence/files/ directory. Directory components are dropped,
// ".." collapses to ".", and runs of other characters become "_". An empty
// result falls back to "<evidenceID>.bin".
func SafeEntryName(name, evidenceID string) string {
	base := strings.TrimRight(strings.ReplaceAll(name, `\`, "/"), "/")
	if base != "" {
		base = path.Base(base)
	}
	base = strings.ReplaceAll(base, "..", ".")
	base = strings.TrimSpace(unsafeNameChars.ReplaceAllString(base, "_"))
	if base == "" || strings.Trim(base, ".") == "" {
		base = evidenceID + ".bin"
	}
	return truncate(base, maxEntryNameLen)
}

// entryNames hands out unique names within one archive.
type entryNames map[string]struct{}

func (n entryNames) claim(name, evidenceID string) string {
	if _, taken := n[name]; taken {
		name = truncate(evidenceID+"_"+name, maxEntryNameLen)
	}
	n[name] = struct{}{}
	return name
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
