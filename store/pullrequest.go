package store

import (
	"context"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/google/go-github/v56/github"
	"github.com/mumoshu/prsync/config"
)

// PullRequest wraps Git so that Commit, after pushing the feature branch,
// opens a pull request from it onto the base branch.
type PullRequest struct {
	RepositoryURL string
	Git           *Git
}

func (c *PullRequest) Transact(fn func(fsys billy.Filesystem) (*Changes, error)) (*Changes, error) {
	return c.Git.Transact(fn)
}

// NewBranch is the head branch of the pull request.
func (c *PullRequest) NewBranch() string {
	return c.Git.NewBranch()
}

func (c *PullRequest) Commit(ctx context.Context, subject, body string) error {
	if err := c.Git.Commit(ctx, subject, body); err != nil {
		return err
	}

	return c.createPullRequest(ctx, subject, body)
}

func (c *PullRequest) createPullRequest(ctx context.Context, subject, body string) error {
	client := config.NewGitHubClient()

	split := strings.Split(c.RepositoryURL, "/")

	owner := split[len(split)-2]
	repo := split[len(split)-1]

	repo = strings.TrimSuffix(repo, ".git")

	_, _, err := client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(subject),
		Head:  github.String(string(*c.Git.NewRefName)),
		Base:  github.String(string(c.Git.BaseRefName)),
		Body:  github.String(body),
	})
	if err != nil {
		return err
	}

	return nil
}
