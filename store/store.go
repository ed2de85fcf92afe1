// Package store provides the working trees prsync promotes within.
// There are three implementations of the Store interface:
// - Local
// - Git
// - PullRequest
package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/mumoshu/prsync/config"
	"github.com/mumoshu/prsync/envvar"
)

// Changes is the set of files a Transact callback mutated, relative to the
// root of the filesystem it was given. The store stages exactly these files
// in the commit.
type Changes struct {
	AddedOrModified []string
	Deleted         []string
}

func (c *Changes) Empty() bool {
	return len(c.AddedOrModified) == 0 && len(c.Deleted) == 0
}

type Store interface {
	// Transact runs the given function against the working tree the store
	// manages.
	//
	// The function receives a filesystem rooted at the repository root.
	// It is expected to return the files it added, modified, or deleted,
	// or an error when the mutation fails.
	//
	// The store stages the returned files for commit.
	// The caller is expected to call Commit after a non-empty Transact.
	Transact(fn func(fsys billy.Filesystem) (*Changes, error)) (*Changes, error)

	// Commit commits and publishes the staged changes.
	// The subject and body are used as the commit message, if applicable.
	// If the store does not support commits, it returns nil.
	Commit(ctx context.Context, subject, body string) error
}

// BranchName returns the head branch name for one promotion attempt.
// The timestamp keeps the name unique across attempts, so an attempt never
// collides with a prior still-open proposal. The clock is injected by the
// caller; this function never reads it ambiently.
func BranchName(id string, t time.Time) string {
	return fmt.Sprintf("prsync/%s-%s", id, t.Format("20060102150405"))
}

// Init builds the store described by the given gitops config.
// A nil config yields a Local store over the current working directory.
// newBranch is only used when a pull request is requested; callers derive it
// with BranchName.
func Init(newBranch string, g *config.GitOps) (Store, error) {
	if g == nil {
		return NewLocal(".")
	}

	repoURL, err := RepoURL(g.Repo)
	if err != nil {
		return nil, err
	}

	baseBranch := os.Getenv(envvar.BaseBranch)
	if g.Branch != "" {
		baseBranch = g.Branch
	}
	if baseBranch == "" {
		baseBranch = "main"
	}

	auth := &http.BasicAuth{
		Username: "prsyncbot", // This can be anything except an empty string
		Password: os.Getenv(envvar.GitHubToken),
	}

	if g.PullRequest == nil {
		newBranch = ""
	}

	gitRoot := os.Getenv(envvar.GitRoot)
	if gitRoot == "" {
		gitRoot = ".prsync/repositories"
	}

	git := newGit(
		auth,
		baseBranch,
		newBranch,
		repoURL,
		os.Getenv(envvar.GitCommitAuthorUserName),
		os.Getenv(envvar.GitCommitAuthorEmail),
		gitRoot,
		g.Push,
	)

	if g.PullRequest != nil {
		return &PullRequest{
			RepositoryURL: repoURL,
			Git:           git,
		}, nil
	}

	return git, nil
}

// RepoURL normalizes the gitops.repo field into a clone URL.
// "owner/repo" resolves against github.com, or against the enterprise base
// URL env when set. "host/owner/repo" and full URLs pass through.
func RepoURL(repo string) (string, error) {
	switch {
	case strings.HasPrefix(repo, "https://"), strings.HasPrefix(repo, "http://"):
		return repo, nil
	case strings.Count(repo, "/") == 1:
		githubBaseURL := "https://github.com/"
		if os.Getenv(envvar.GitHubEnterpriseURL) != "" {
			githubBaseURL = os.Getenv(envvar.GitHubEnterpriseURL)
		}
		return githubBaseURL + repo + ".git", nil
	case strings.Count(repo, "/") == 2:
		return "https://" + repo + ".git", nil
	default:
		return "", fmt.Errorf("invalid repo in prsync.yaml: %s", repo)
	}
}
