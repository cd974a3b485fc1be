// Package pathsafe validates a user-supplied relative path before any
// write-tool touches the filesystem, per §4.9. Failure is always a hard
// error; there is no sanitising fallback.
package pathsafe

import (
	"path/filepath"
	"strings"

	"github.com/mr-nozko/rag-mcp/internal/rerr"
)

// Validator rejects paths outside a corpus root or outside an extension
// allow-list, and returns the canonical absolute/relative pair callers use
// for every subsequent filesystem or index operation.
type Validator struct {
	root       string
	allowedExt map[string]bool
}

func New(root string, allowedExtensions []string) *Validator {
	set := make(map[string]bool, len(allowedExtensions))
	for _, e := range allowedExtensions {
		set[strings.ToLower(e)] = true
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	return &Validator{root: absRoot, allowedExt: set}
}

// Validate checks requestedPath (as supplied by a tool call) and returns
// the absolute filesystem path and the path relative to the corpus root
// used as the Document identity. Rejects: absolute input paths, any `..`
// segment surviving normalisation, a canonical path outside root, and an
// extension outside the writable allow-list.
func (v *Validator) Validate(requestedPath string) (absFSPath, relIndexPath string, err error) {
	if requestedPath == "" {
		return "", "", rerr.Invalid("path must not be empty")
	}
	if filepath.IsAbs(requestedPath) {
		return "", "", rerr.Forbidden("path %q must be relative to the corpus root", requestedPath)
	}

	cleaned := filepath.Clean(requestedPath)
	for _, seg := range strings.Split(cleaned, string(filepath.Separator)) {
		if seg == ".." {
			return "", "", rerr.Forbidden("path %q escapes the corpus root", requestedPath)
		}
	}

	abs := filepath.Join(v.root, cleaned)
	absClean, err := filepath.Abs(abs)
	if err != nil {
		return "", "", rerr.Forbidden("path %q could not be canonicalised", requestedPath)
	}
	rootWithSep := v.root + string(filepath.Separator)
	if absClean != v.root && !strings.HasPrefix(absClean, rootWithSep) {
		return "", "", rerr.Forbidden("path %q escapes the corpus root", requestedPath)
	}

	ext := strings.ToLower(filepath.Ext(cleaned))
	if !v.allowedExt[ext] {
		return "", "", rerr.Forbidden("extension %q is not writable", ext)
	}

	rel, err := filepath.Rel(v.root, absClean)
	if err != nil {
		return "", "", rerr.Forbidden("path %q could not be made relative to the corpus root", requestedPath)
	}

	return absClean, filepath.ToSlash(rel), nil
}
