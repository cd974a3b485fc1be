package ingest

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// defaultSkipDirs are never descended into regardless of extension
// allow-lists, grounded in the teacher scanner's directory exclusions.
var defaultSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".ragmcp":      true,
}

// walkCorpus walks root, returning relative paths (forward-slash, relative
// to root) of every regular file whose extension is in allowedExt. Binary
// content is not checked here; the Ingester does that after reading bytes.
func walkCorpus(root string, allowedExt map[string]bool) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if defaultSkipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(rel))
		if !allowedExt[ext] {
			return nil
		}

		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	return set
}

// readFile reads a file's full content.
func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// modTime returns a file's last-modified timestamp, the Document attribute
// §3 names.
func modTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
