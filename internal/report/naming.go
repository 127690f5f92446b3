// Package report renders validation results as files: the per-dataset error
// report, the run summary workbook and the layer inventory workbook.
package report

import (
	"path/filepath"
	"strings"
	"unicode"
)

// parentDirs returns the grandparent and parent directory names of ref, or
// ok=false when ref is too shallow to have both.
func parentDirs(ref string) (grandparent, parent string, ok bool) {
	dir := filepath.Dir(filepath.Clean(ref))
	parent = filepath.Base(dir)
	grandparent = filepath.Base(filepath.Dir(dir))
	if !named(parent) || !named(grandparent) {
		return "", "", false
	}
	return grandparent, parent, true
}

func named(s string) bool {
	return s != "" && s != "." && s != string(filepath.Separator)
}

// ShortPath renders a dataset reference as "<grandparent>/<parent>", the
// province and delivery folder of a dataset file. References without two
// parent directories are returned unchanged.
func ShortPath(ref string) string {
	gp, p, ok := parentDirs(ref)
	if !ok {
		return ref
	}
	return gp + "/" + p
}

// Basename names the files written for a dataset: "<grandparent>_<parent>"
// with unsafe characters replaced by underscores.
func Basename(ref string) string {
	gp, p, ok := parentDirs(ref)
	if !ok {
		return sanitize(ref)
	}
	return sanitize(gp + "_" + p)
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '_' || r == '-' || r == '.':
			return r
		case unicode.Is(unicode.Thai, r):
			return r
		}
		return '_'
	}, s)
}
