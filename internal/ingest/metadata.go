package ingest

import (
	"path"
	"strings"
)

// docType infers a document's type tag from its extension (§3: "type tag
// (inferred from extension)"), the dot stripped and lower-cased.
func docType(relPath string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(relPath)), ".")
	if ext == "" {
		return "unknown"
	}
	return ext
}

// namespace is the first path segment, lower-cased, or "all" for a
// root-level file, per §3.
func namespace(relPath string) string {
	parts := strings.Split(relPath, "/")
	if len(parts) <= 1 {
		return "all"
	}
	return strings.ToLower(parts[0])
}

// agentName heuristically recovers an agent identity from a corpus path
// laid out as ".../agents/<name>/...": the segment immediately following an
// "agents" directory component. Absent that convention, a document has no
// agent name.
func agentName(relPath string) string {
	parts := strings.Split(relPath, "/")
	for i, p := range parts {
		if strings.EqualFold(p, "agents") && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}
