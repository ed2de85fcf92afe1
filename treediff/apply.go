package treediff

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
)

// ApplyOptions configures how a set of differences is applied.
type ApplyOptions struct {
	// Prune makes Apply delete the Removed paths from the target tree.
	// When false, files present only under the target tree are left alone.
	Prune bool
}

// Applied lists the paths Apply wrote or deleted, joined with the target
// root so they can be staged for commit as-is.
type Applied struct {
	AddedOrModified []string
	Deleted         []string
}

// Apply copies every Added or Modified file in the set from the source tree
// into the target tree, preserving relative paths and permission bits.
// Excluded subtrees never appear in the set, so they are never written.
//
// Every source file is read in full before the first write, so a read failure
// leaves the target tree untouched.
func Apply(fsys billy.Filesystem, sourceRoot, targetRoot string, set *Set, opts ApplyOptions) (*Applied, error) {
	type pending struct {
		rel  string
		data []byte
		mode os.FileMode
	}

	var reads []pending

	for _, rel := range set.AddedOrModified() {
		p := fsys.Join(sourceRoot, rel)

		info, err := fsys.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("unable to stat source file %q: %w", p, err)
		}

		f, err := fsys.Open(p)
		if err != nil {
			return nil, fmt.Errorf("unable to open source file %q: %w", p, err)
		}

		data, err := io.ReadAll(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("unable to read source file %q: %w", p, err)
		}

		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("unable to close source file %q: %w", p, err)
		}

		reads = append(reads, pending{rel: rel, data: data, mode: info.Mode().Perm()})
	}

	applied := &Applied{}

	for _, p := range reads {
		dst := fsys.Join(targetRoot, p.rel)

		if dir := path.Dir(dst); dir != "." {
			if err := fsys.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("unable to create directory %q: %w", dir, err)
			}
		}

		f, err := fsys.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, p.mode)
		if err != nil {
			return nil, fmt.Errorf("unable to create target file %q: %w", dst, err)
		}

		if _, err := f.Write(p.data); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("unable to write target file %q: %w", dst, err)
		}

		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("unable to close target file %q: %w", dst, err)
		}

		applied.AddedOrModified = append(applied.AddedOrModified, dst)
	}

	if opts.Prune {
		for _, rel := range set.Removed() {
			dst := fsys.Join(targetRoot, rel)

			if err := fsys.Remove(dst); err != nil && !os.IsNotExist(err) {
				return nil, fmt.Errorf("unable to delete target file %q: %w", dst, err)
			}

			applied.Deleted = append(applied.Deleted, dst)
		}
	}

	return applied, nil
}
