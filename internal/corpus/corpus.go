// Package corpus exposes a writing vault on disk as the document source
// the index workers reconcile against: eligibility and exclusion rules,
// document reads, and full-vault listing, all keyed by slash-separated
// paths relative to the vault root.
package corpus

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// eligibleExtensions are the document types the indexes accept.
var eligibleExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// FSCorpus is a filesystem-backed corpus rooted at a vault directory.
type FSCorpus struct {
	root     string
	excludes []string
}

// NewFSCorpus creates a corpus over root. Exclude patterns use
// filepath.Match syntax and are tested against the relative path, its
// base name, and each directory segment.
func NewFSCorpus(root string, excludes []string) (*FSCorpus, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat vault root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault root %s is not a directory", abs)
	}
	return &FSCorpus{root: abs, excludes: excludes}, nil
}

// Root returns the absolute vault root.
func (c *FSCorpus) Root() string {
	return c.root
}

// Abs resolves a corpus-relative path to an absolute one.
func (c *FSCorpus) Abs(rel string) string {
	return filepath.Join(c.root, filepath.FromSlash(rel))
}

// Rel converts an absolute path inside the vault to the corpus-relative
// slash form. Paths outside the vault are returned unchanged.
func (c *FSCorpus) Rel(abs string) string {
	rel, err := filepath.Rel(c.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return abs
	}
	return filepath.ToSlash(rel)
}

// IsEligible reports whether the path currently names a regular file of
// an indexable type.
func (c *FSCorpus) IsEligible(rel string) bool {
	if !eligibleExtensions[strings.ToLower(path.Ext(rel))] {
		return false
	}
	info, err := os.Lstat(c.Abs(rel))
	return err == nil && info.Mode().IsRegular()
}

// IsExcluded reports whether policy excludes the path: any dot-prefixed
// segment, or a match against the configured exclude patterns.
func (c *FSCorpus) IsExcluded(rel string) bool {
	rel = filepath.ToSlash(rel)
	segments := strings.Split(rel, "/")
	for _, seg := range segments {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	for _, pattern := range c.excludes {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, path.Base(rel)); ok {
			return true
		}
		for _, seg := range segments {
			if ok, _ := path.Match(pattern, seg); ok {
				return true
			}
		}
	}
	return false
}

// ReadDocument returns the document's full text.
func (c *FSCorpus) ReadDocument(rel string) (string, error) {
	data, err := os.ReadFile(c.Abs(rel))
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", rel, err)
	}
	return string(data), nil
}

// ListEligibleDocuments walks the vault and returns every eligible,
// non-excluded document path, sorted for deterministic scan order.
func (c *FSCorpus) ListEligibleDocuments() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(c.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtree: skip it, index what we can.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel := c.Rel(p)
		if d.IsDir() {
			if p != c.root && c.IsExcluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if c.IsExcluded(rel) || !eligibleExtensions[strings.ToLower(path.Ext(rel))] {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk vault: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}
