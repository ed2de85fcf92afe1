package config

import "github.com/pkg/errors"

type GitOps struct {
	// Repo is either OWNER/NAME or URL of the git repository that contains
	// both the source and target trees.
	// Defaults to the repository prsync is invoked from (GITHUB_REPOSITORY).
	Repo string `yaml:"repo"`

	// Branch is the base branch of the git repository.
	// It is usually "main" or "master".
	Branch string `yaml:"branch"`

	// Push specifies whether the promotion result is pushed.
	// If false, prsync stops after mutating the local clone, which is
	// useful for inspecting the result of a promotion without publishing it.
	Push bool `yaml:"push"`

	// PullRequest specifies whether the promotion is proposed via pull request.
	// If nil, prsync pushes directly to the base branch.
	// If set, prsync creates a feature branch, pushes to the feature branch,
	// and opens a pull request against the base branch.
	PullRequest *PullRequest `yaml:"pullRequest"`
}

// PullRequest customizes the proposed change.
// The zero value uses the built-in title and body.
type PullRequest struct {
	// TitleTemplate is a Go template for the pull request title and the
	// commit subject. See render.Data for the available fields.
	TitleTemplate string `yaml:"titleTemplate"`

	// BodyTemplate is a Go template for the pull request body.
	BodyTemplate string `yaml:"bodyTemplate"`
}

func (g *GitOps) Validate() error {
	if g.Repo == "" {
		return errors.New("gitops.repo is required when gitops is configured")
	}

	// A pull request can only be opened from a branch that exists on the
	// remote, which requires the push.
	if g.PullRequest != nil && !g.Push {
		return errors.New("gitops.push must be true when gitops.pullRequest is set")
	}

	return nil
}
