package store

import (
	"context"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// Local is a store over an existing directory on the local filesystem.
// It serves local runs and CI jobs that manage git themselves:
// Commit is a no-op and the mutation stays in the working copy.
type Local struct {
	fs billy.Filesystem
}

// NewLocal returns a Local store rooted at dir.
func NewLocal(dir string) (*Local, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("unable to stat directory %q: %w", dir, err)
	}

	return &Local{fs: osfs.New(dir)}, nil
}

func (l *Local) Transact(fn func(fsys billy.Filesystem) (*Changes, error)) (*Changes, error) {
	return fn(l.fs)
}

func (l *Local) Commit(ctx context.Context, subject, body string) error {
	return nil
}
