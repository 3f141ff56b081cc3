package recorder

import "strings"

// extensionByMime is a deterministic mime-type → file-extension lookup,
// consulted before falling back to a Recorder's configured default
// extension. Ported from the teacher's file_history_config.go table.
var extensionByMime = map[string]string{
	"text/html":              ".html",
	"text/plain":             ".txt",
	"text/markdown":          ".md",
	"application/pdf":        ".pdf",
	"application/json":       ".json",
	"application/xhtml+xml":  ".xhtml",
	"application/rtf":        ".rtf",
}

// ExtensionFor returns the extension for mimeType, stripping any parameters
// (e.g. "text/html; charset=utf-8"), or fallback if the mime type is unknown.
func ExtensionFor(mimeType, fallback string) string {
	base := mimeType
	if idx := strings.IndexByte(base, ';'); idx >= 0 {
		base = base[:idx]
	}
	base = strings.TrimSpace(strings.ToLower(base))
	if ext, ok := extensionByMime[base]; ok {
		return ext
	}
	return fallback
}

// IsTextMime reports whether mimeType should be decoded as UTF-8 text rather
// than treated as opaque bytes.
func IsTextMime(mimeType string) bool {
	base := mimeType
	if idx := strings.IndexByte(base, ';'); idx >= 0 {
		base = base[:idx]
	}
	base = strings.TrimSpace(strings.ToLower(base))
	return strings.HasPrefix(base, "text/") || base == "application/json" || base == "application/xhtml+xml"
}
