// Package patch discovers the SQL patch files in a directory and works out
// which of them still need to be applied.
package patch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ext is the case-sensitive suffix that marks a file as a patch.
const Ext = ".sql"

// IsPatchFile reports whether name is a patch filename. Only the suffix
// counts, so "02-split-name.sql.disabled" and "01.SQL" are not patches.
func IsPatchFile(name string) bool {
	return strings.HasSuffix(name, Ext)
}

// List returns the names of the patch files directly inside dir, sorted.
// Subdirectories, and symlinks to them, are never traversed, even if their
// name ends in ".sql".
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading patches directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !IsPatchFile(entry.Name()) {
			continue
		}

		if entry.Type()&fs.ModeSymlink != 0 && linksToDir(filepath.Join(dir, entry.Name())) {
			continue
		}

		names = append(names, entry.Name())
	}

	return Sort(names), nil
}

// linksToDir reports whether the symlink at path resolves to a directory.
// Dangling links are kept so reading them fails loudly.
func linksToDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

// Pending returns the patch filenames in names that are not in applied,
// sorted in application order. Non-patch names are dropped.
func Pending(names []string, applied map[string]struct{}) []string {
	pending := make([]string, 0, len(names))

	for _, name := range names {
		if !IsPatchFile(name) {
			continue
		}

		if _, done := applied[name]; done {
			continue
		}

		pending = append(pending, name)
	}

	return Sort(pending)
}

// Sort returns a new slice of filenames in byte-wise ascending order,
// which is the order patches are applied in.
func Sort(names []string) []string {
	sorted := make([]string, len(names))
	copy(sorted, names)

	sort.Strings(sorted)

	return sorted
}

// Read returns the full text of the patch file name in dir.
func Read(dir, name string) (string, error) {
	path := filepath.Join(dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading patch file %s: %w", path, err)
	}

	return string(data), nil
}
