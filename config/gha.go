package config

import (
	"os"

	"github.com/mumoshu/prsync/envvar"
)

// GetSHA returns the SHA of the commit that triggered the current workflow,
// or an empty string when prsync is not running under GitHub Actions.
func GetSHA() string {
	return os.Getenv(envvar.GitHubSHA)
}
