// Package treediff compares two directory trees inside a filesystem and
// applies the differences from one onto the other, leaving a configured
// set of environment-specific subtrees untouched.
package treediff

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// Kind classifies how a path differs between the source and target trees.
type Kind string

const (
	// Added means the file exists under the source tree only.
	Added Kind = "added"
	// Modified means the file exists under both trees with different content.
	Modified Kind = "modified"
	// Removed means the file exists under the target tree only.
	Removed Kind = "removed"
)

// Change is one differing path, relative to the tree roots.
type Change struct {
	Path string `yaml:"path"`
	Kind Kind   `yaml:"kind"`
}

// Set is the collection of differences between two trees,
// sorted lexicographically by path.
type Set struct {
	Changes []Change `yaml:"changes"`
}

func (s *Set) Empty() bool {
	return len(s.Changes) == 0
}

func (s *Set) Len() int {
	return len(s.Changes)
}

// Paths returns every differing path, in order.
func (s *Set) Paths() []string {
	var ps []string
	for _, c := range s.Changes {
		ps = append(ps, c.Path)
	}
	return ps
}

// AddedOrModified returns the paths that applying the set would write.
func (s *Set) AddedOrModified() []string {
	var ps []string
	for _, c := range s.Changes {
		if c.Kind == Added || c.Kind == Modified {
			ps = append(ps, c.Path)
		}
	}
	return ps
}

// Removed returns the paths that exist under the target tree only.
func (s *Set) Removed() []string {
	var ps []string
	for _, c := range s.Changes {
		if c.Kind == Removed {
			ps = append(ps, c.Path)
		}
	}
	return ps
}

// String renders the set one change per line, in the manner of git-status.
func (s *Set) String() string {
	var b strings.Builder
	for _, c := range s.Changes {
		var letter string
		switch c.Kind {
		case Added:
			letter = "A"
		case Modified:
			letter = "M"
		case Removed:
			letter = "D"
		}
		fmt.Fprintf(&b, "%s %s\n", letter, c.Path)
	}
	return b.String()
}

func (s *Set) add(c Change) {
	s.Changes = append(s.Changes, c)
}

func (s *Set) sort() {
	sort.Slice(s.Changes, func(i, j int) bool {
		return s.Changes[i].Path < s.Changes[j].Path
	})
}

// Options configures a comparison.
type Options struct {
	// Exclude is a set of slash-separated paths, relative to both roots.
	// Each entry prunes the whole subtree under it in both trees:
	// excluded files are never opened, compared, or reported.
	Exclude []string
}

func (o Options) excluded(rel string) bool {
	rel = path.Clean(rel)
	for _, e := range o.Exclude {
		e = path.Clean(e)
		if rel == e || strings.HasPrefix(rel, e+"/") {
			return true
		}
	}
	return false
}

// Compare walks every file under sourceRoot and targetRoot, outside the
// excluded subtrees, and returns the set of differing paths. A file counts as
// different when it is missing on the other side, differs in size, or differs
// in content checksum. Modification times are never consulted, so the result
// is stable across fresh checkouts.
//
// Compare never writes. For a fixed pair of trees it returns the same set on
// every invocation.
//
// A missing sourceRoot is an error. A missing targetRoot is treated as an
// empty tree.
func Compare(fsys billy.Filesystem, sourceRoot, targetRoot string, opts Options) (*Set, error) {
	if _, err := fsys.Stat(sourceRoot); err != nil {
		return nil, fmt.Errorf("unable to stat source tree %q: %w", sourceRoot, err)
	}

	set := &Set{}

	inSource := map[string]struct{}{}

	err := walk(fsys, sourceRoot, "", opts, func(rel string, info os.FileInfo) error {
		inSource[rel] = struct{}{}

		kind, err := compareFile(fsys, sourceRoot, targetRoot, rel, info)
		if err != nil {
			return err
		}

		if kind != "" {
			set.add(Change{Path: rel, Kind: kind})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	err = walk(fsys, targetRoot, "", opts, func(rel string, info os.FileInfo) error {
		if _, ok := inSource[rel]; !ok {
			set.add(Change{Path: rel, Kind: Removed})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	set.sort()

	return set, nil
}

// compareFile decides how the file at rel differs between the two roots.
// It returns the empty kind when the contents are identical.
func compareFile(fsys billy.Filesystem, sourceRoot, targetRoot, rel string, sourceInfo os.FileInfo) (Kind, error) {
	targetPath := fsys.Join(targetRoot, rel)

	targetInfo, err := fsys.Stat(targetPath)
	if os.IsNotExist(err) {
		return Added, nil
	} else if err != nil {
		return "", fmt.Errorf("unable to stat target file %q: %w", targetPath, err)
	}

	if sourceInfo.Size() != targetInfo.Size() {
		return Modified, nil
	}

	sourceSum, err := Checksum(fsys, fsys.Join(sourceRoot, rel))
	if err != nil {
		return "", err
	}

	targetSum, err := Checksum(fsys, targetPath)
	if err != nil {
		return "", err
	}

	if sourceSum != targetSum {
		return Modified, nil
	}

	return "", nil
}

// Checksum returns the SHA-256 hex digest of the file content.
func Checksum(fsys billy.Filesystem, p string) (string, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return "", fmt.Errorf("unable to open file %q: %w", p, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("unable to read file %q: %w", p, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// walk calls fn for every regular file under root outside the excluded
// subtrees, passing its slash-separated path relative to root. Directory
// entries are visited in name order. Symlinks and other irregular files are
// skipped. A missing root yields no calls.
func walk(fsys billy.Filesystem, root, rel string, opts Options, fn func(rel string, info os.FileInfo) error) error {
	dir := fsys.Join(root, rel)

	infos, err := fsys.ReadDir(dir)
	if err != nil {
		if rel == "" && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("unable to read directory %q: %w", dir, err)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name() < infos[j].Name()
	})

	for _, info := range infos {
		childRel := path.Join(rel, info.Name())

		if opts.excluded(childRel) {
			continue
		}

		switch {
		case info.IsDir():
			if err := walk(fsys, root, childRel, opts, fn); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if err := fn(childRel, info); err != nil {
				return err
			}
		}
	}

	return nil
}
