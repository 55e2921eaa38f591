package ingest

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/mpetrov/bugscope/internal/project"
)

// Collect walks root and returns an uploaded-file descriptor for every file
// not excluded by the ignore patterns. Names are slash-separated paths
// relative to root; Path holds the absolute location to read from.
func Collect(root string, ignore []string) ([]project.UploadedFile, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving path %s: %w", root, err)
	}

	var files []project.UploadedFile
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return err
		}

		if isIgnored(relPath, ignore) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		entry := project.UploadedFile{Name: filepath.ToSlash(relPath), Path: path}
		if info, err := d.Info(); err == nil {
			entry.Size = info.Size()
		}
		files = append(files, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", absRoot, err)
	}
	return files, nil
}

// isIgnored reports whether relPath matches any of the ignore patterns.
// Matching is done on slash-separated paths regardless of platform.
func isIgnored(relPath string, patterns []string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range patterns {
		if matchIgnore(pattern, relPath) {
			return true
		}
	}
	return false
}

// matchIgnore understands three pattern forms: "dir/**" excludes the whole
// subtree rooted at dir, "**/glob" applies glob at any depth, and anything
// else is a plain filepath.Match against the relative path.
func matchIgnore(pattern, relPath string) bool {
	if dir, found := strings.CutSuffix(pattern, "/**"); found {
		if relPath == dir || strings.HasPrefix(relPath, dir+"/") {
			return true
		}
	}
	if sub, found := strings.CutPrefix(pattern, "**/"); found {
		if ok, _ := filepath.Match(sub, filepath.Base(relPath)); ok {
			return true
		}
		if ok, _ := filepath.Match(sub, relPath); ok {
			return true
		}
	}
	ok, _ := filepath.Match(pattern, relPath)
	return ok
}
