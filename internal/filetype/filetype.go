// Package filetype gates uploads by file extension.
package filetype

import (
	"fmt"
	"path"
	"strings"
)

// Allowlist is the set of extensions a route accepts.
type Allowlist struct {
	kind string
	exts []string
}

var (
	Documents = NewAllowlist("document", ".pdf", ".txt", ".doc", ".docx", ".ppt", ".pptx")
	Audio     = NewAllowlist("audio", ".mp3", ".wav", ".m4a", ".flac", ".ogg")
)

// NewAllowlist builds an allowlist. Extensions are matched case-insensitively
// and must include the leading dot.
func NewAllowlist(kind string, exts ...string) Allowlist {
	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		normalized = append(normalized, strings.ToLower(ext))
	}
	return Allowlist{kind: kind, exts: normalized}
}

// Extension returns the lowercase extension of the final element of name,
// including the leading dot, or "" when there is none.
// "photo.JPG" -> ".jpg", ".hidden" -> ".hidden", "noext" -> "".
func Extension(name string) string {
	base := name
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	return strings.ToLower(path.Ext(base))
}

// Allows reports whether ext is on the list.
func (a Allowlist) Allows(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range a.exts {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Message is the client-facing rejection text for this list.
func (a Allowlist) Message() string {
	names := make([]string, 0, len(a.exts))
	for _, ext := range a.exts {
		names = append(names, strings.ToUpper(strings.TrimPrefix(ext, ".")))
	}
	return fmt.Sprintf("Unsupported %s type. Supported: %s", a.kind, strings.Join(names, ", "))
}

// Check returns the extension of name and whether the list accepts it.
func (a Allowlist) Check(name string) (string, bool) {
	ext := Extension(name)
	return ext, a.Allows(ext)
}
