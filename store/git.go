package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Git is a store over a clone of the gitops repository.
// Transact mutates a fresh feature branch checked out from the base branch,
// and Commit publishes it via git push.
type Git struct {
	Auth transport.AuthMethod

	// GitRepoURL is the URL of the git repository that contains the gitops config.
	// It needs to be a URL that can be handled by go-git and git-clone.
	GitRepoURL string

	// repository is the local clone of GitRepoURL.
	// It is not nil only after clone() has succeeded.
	repository *git.Repository

	worktree *git.Worktree

	// AuthorName is the username to be used when committing the promotion.
	// It is usually the name of the bot user,
	// in the form "username", not "username <email>".
	AuthorName string

	AuthorEmail string

	baseBranch string
	// BaseRefName is the name of the branch that contains the gitops config.
	// It is usually "master" or "main".
	BaseRefName plumbing.ReferenceName

	newBranch  string
	NewRefName *plumbing.ReferenceName

	// GitRoot is the directory the remote repository is cloned under.
	// If empty, we will use in-memory filesystem.
	GitRoot string
	// cloned is true when the git repository has been cloned.
	cloned bool

	// Push specifies whether the promotion is published via git push.
	Push bool
}

func newGit(auth transport.AuthMethod, baseBranch, newBranch, gitRepoURL, authorUserName, authorEmail, gitRoot string, push bool) *Git {
	baseRefName := plumbing.Master
	if baseBranch != "" {
		baseRefName = plumbing.NewBranchReferenceName(baseBranch)
	}

	g := &Git{
		Auth:        auth,
		baseBranch:  baseBranch,
		BaseRefName: baseRefName,
		GitRepoURL:  gitRepoURL,
		AuthorName:  authorUserName,
		AuthorEmail: authorEmail,
		GitRoot:     gitRoot,
		Push:        push,
	}

	if newBranch != "" {
		g.newBranch = newBranch

		n := plumbing.ReferenceName("refs/heads/" + newBranch)
		g.NewRefName = &n
	}

	return g
}

// NewBranch is the name of the feature branch Transact checks out,
// or empty when the store commits straight onto the base branch.
func (g *Git) NewBranch() string {
	return g.newBranch
}

func (g *Git) Transact(fn func(fsys billy.Filesystem) (*Changes, error)) (*Changes, error) {
	w, err := g.createAndCheckoutNewBranch()
	if err != nil {
		return nil, fmt.Errorf("unable to create and/or checkout branch: %w", err)
	}

	c, err := fn(w.Filesystem)
	if err != nil {
		return nil, err
	}

	for _, f := range c.AddedOrModified {
		if _, err := w.Add(f); err != nil {
			return nil, fmt.Errorf("unable to run git-add (name=%s): %w", f, err)
		}
	}

	for _, f := range c.Deleted {
		if _, err := w.Remove(f); err != nil {
			return nil, fmt.Errorf("unable to run git-rm (name=%s): %w", f, err)
		}
	}

	return c, nil
}

func (g *Git) Commit(ctx context.Context, subject, body string) error {
	w, err := g.getWorktree()
	if err != nil {
		return fmt.Errorf("unable to get worktree: %w", err)
	}

	if err := g.verify(w); err != nil {
		return fmt.Errorf("unable to verify git status: %w", err)
	}

	message := subject
	if body != "" {
		message = subject + "\n\n" + body
	}

	if _, err := w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.AuthorName,
			Email: g.AuthorEmail,
			When:  time.Now(),
		},
	}); err != nil {
		return fmt.Errorf("unable to commit: %w", err)
	}

	if !g.Push {
		return nil
	}

	var refName plumbing.ReferenceName
	if g.NewRefName == nil {
		refName = g.BaseRefName
	} else {
		refName = *g.NewRefName
	}

	remote, err := g.repository.Remote("origin")
	if err != nil {
		return fmt.Errorf("unable to get remote origin: %w", err)
	}

	if err := remote.PushContext(ctx, &git.PushOptions{
		RefSpecs: []gitconfig.RefSpec{
			gitconfig.RefSpec(refName + ":" + refName),
		},
		Auth: g.Auth,
	}); err != nil {
		return fmt.Errorf("unable to push %v to remote origin: %w", refName, err)
	}

	return nil
}

func (g *Git) getWorktree() (*git.Worktree, error) {
	if g.worktree != nil {
		return g.worktree, nil
	}

	w, err := g.repository.Worktree()
	if err != nil {
		return nil, err
	}

	g.worktree = w

	return w, nil
}

func (g *Git) getLocalRepoPath() string {
	dir := g.GitRepoURL
	dir = strings.TrimPrefix(dir, "https://")
	dir = strings.TrimPrefix(dir, "http://")
	dir = strings.TrimPrefix(dir, "git@")
	dir = strings.TrimSuffix(dir, ".git")

	return filepath.Join(g.GitRoot, dir)
}

func (g *Git) clone() error {
	var (
		storer storage.Storer
		fs     billy.Filesystem
	)

	if g.GitRoot != "" {
		gitRoot := g.getLocalRepoPath()
		fs = osfs.New(gitRoot)
		storer = filesystem.NewStorage(
			osfs.New(filepath.Join(gitRoot, ".git")),
			cache.NewObjectLRUDefault(),
		)
	} else {
		storer = memory.NewStorage()
		fs = memfs.New()
	}

	r, err := git.Clone(storer, fs, &git.CloneOptions{
		URL:  g.GitRepoURL,
		Auth: g.Auth,
	})

	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		r, err = git.PlainOpen(g.getLocalRepoPath())
		if err != nil {
			return fmt.Errorf("unable to open local git repository: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to clone git repository %s: %w", g.GitRepoURL, err)
	}

	g.repository = r

	return nil
}

func (g *Git) createAndCheckoutNewBranch() (*git.Worktree, error) {
	if !g.cloned {
		if err := g.clone(); err != nil {
			return nil, err
		}

		g.cloned = true
	}

	w, err := g.getWorktree()
	if err != nil {
		return nil, fmt.Errorf("unable to get worktree: %w", err)
	}

	if checkoutErr := w.Checkout(&git.CheckoutOptions{
		Create: false,
		Branch: g.BaseRefName,
	}); checkoutErr != nil {
		remote, err := g.repository.Remote("origin")
		if err != nil {
			return nil, fmt.Errorf("unable to get remote origin: %w", err)
		}

		if err := remote.Fetch(&git.FetchOptions{
			Auth: g.Auth,
			RefSpecs: []gitconfig.RefSpec{
				gitconfig.RefSpec(g.BaseRefName + ":" + g.BaseRefName),
			},
		}); err != nil {
			return nil, fmt.Errorf("unable to checkout %s: %w\nunable to fetch from remote origin: %w", g.BaseRefName, checkoutErr, err)
		}

		if err := w.Checkout(&git.CheckoutOptions{
			Create: false,
			Branch: g.BaseRefName,
		}); err != nil {
			return nil, fmt.Errorf("unable to checkout branch %q: %w", g.BaseRefName, err)
		}
	}

	if err := w.Pull(&git.PullOptions{
		RemoteName: "origin",
		Auth:       g.Auth,
	}); err != nil && err != git.NoErrAlreadyUpToDate {
		return nil, fmt.Errorf("unable to pull from remote origin: %w", err)
	}

	if g.NewRefName != nil {
		if err := w.Checkout(&git.CheckoutOptions{
			Create: true,
			Branch: *g.NewRefName,
		}); err != nil {
			return nil, fmt.Errorf("unable to checkout branch %q: %w", *g.NewRefName, err)
		}
	}

	return w, nil
}

func (g *Git) verify(w *git.Worktree) error {
	status, err := w.Status()
	if err != nil {
		return fmt.Errorf("unable to run git-status: %w", err)
	}

	for path, status := range status {
		switch status.Staging {
		case git.Modified, git.Added, git.Deleted:
		default:
			return fmt.Errorf("failed to verify git status: all files should be staged. File: %v %s", status, path)
		}
	}

	return nil
}
