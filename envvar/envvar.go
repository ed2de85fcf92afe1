package envvar

const (
	// Prefix is the prefix of the environment variables used by prsync.
	// All the prsync-specific environment variables start with this prefix.
	//
	// Note that the environment variables fall into two groups:
	// 1. The environment variables for operational settings
	// 2. The environment variables set by the hosting automation (GitHub Actions)
	//
	// The operational settings are read by prsync itself and are not part of
	// the promotion configuration kept in prsync.yaml.
	Prefix = "PRSYNC_"

	//
	// Operational settings
	//

	// GitRoot is the directory under which prsync clones the gitops repository.
	// If empty, the clone is kept in an in-memory filesystem.
	GitRoot = Prefix + "GIT_ROOT"

	GitCommitAuthorUserName = Prefix + "COMMIT_AUTHOR_USER_NAME"
	GitCommitAuthorEmail    = Prefix + "COMMIT_AUTHOR_EMAIL"

	// BaseBranch is the base branch of the gitops repository.
	// The gitops.branch field in prsync.yaml takes precedence when set.
	BaseBranch = Prefix + "BASE_BRANCH"

	// GitHubBaseURL configures the GitHub API base URL.
	// Mainly for swapping out api.github.com for testing.
	GitHubBaseURL = Prefix + "GITHUB_BASE_URL"

	// GitHubEnterpriseURL is an alternative base URL for GitHub's HTTP
	// services, used when turning an "owner/repo" into a clone URL.
	// Mainly for swapping out github.com for testing,
	// but also useful for GitHub Enterprise.
	GitHubEnterpriseURL = Prefix + "GITHUB_ENTERPRISE_URL"

	//
	// Set by the hosting automation
	//

	GitHubToken = "GITHUB_TOKEN"

	// https://docs.github.com/en/actions/learn-github-actions/variables#default-environment-variables
	GitHubRepository = "GITHUB_REPOSITORY"

	// GitHubSHA is the SHA of the commit that triggered the workflow.
	// When present, it is recorded in the body of the proposed change
	// so reviewers can tell which staging commit is being promoted.
	GitHubSHA = "GITHUB_SHA"
)
