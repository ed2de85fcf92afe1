package config

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/mumoshu/prsync/envvar"
	"github.com/pkg/errors"
)

// DefaultPath is the path to the configuration file,
// relative to the working directory prsync is invoked in.
const DefaultPath = "prsync.yaml"

// DefaultExclude is the subtree carved out of comparison and sync.
// Each environment keeps its own, environment-specific content under it.
const DefaultExclude = "specific"

// Config is the promotion configuration, loaded from prsync.yaml.
type Config struct {
	// Source is the directory tree that has been verified and is to be
	// promoted, relative to the repository root. Usually the staging tree.
	Source string `yaml:"source"`

	// Target is the directory tree the source is promoted into,
	// relative to the repository root. Usually the production tree.
	Target string `yaml:"target"`

	// Exclude is the set of relative paths, within both Source and Target,
	// that are never compared and never written. Defaults to ["specific"].
	Exclude []string `yaml:"exclude"`

	Sync Sync `yaml:"sync"`

	// GitOps configures how the promotion result is committed and proposed.
	// When nil, prsync mutates the working copy in place and leaves
	// committing to the invoking automation.
	GitOps *GitOps `yaml:"gitops"`
}

// Sync configures how the computed differences are applied.
type Sync struct {
	// Prune makes the promotion delete files that exist under Target but
	// not under Source. When false, only additions and modifications
	// propagate.
	Prune bool `yaml:"prune"`
}

// Load reads, env-expands, defaults and validates the configuration file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode yaml: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) expandEnv() {
	c.Source = os.ExpandEnv(c.Source)
	c.Target = os.ExpandEnv(c.Target)
	for i := range c.Exclude {
		c.Exclude[i] = os.ExpandEnv(c.Exclude[i])
	}
	if c.GitOps != nil {
		c.GitOps.Repo = os.ExpandEnv(c.GitOps.Repo)
		c.GitOps.Branch = os.ExpandEnv(c.GitOps.Branch)
	}
}

func (c *Config) applyDefaults() {
	if c.Exclude == nil {
		c.Exclude = []string{DefaultExclude}
	}
	if c.GitOps != nil && c.GitOps.Repo == "" {
		c.GitOps.Repo = os.Getenv(envvar.GitHubRepository)
	}
}

func (c *Config) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}

	if c.Target == "" {
		return errors.New("target is required")
	}

	source := path.Clean(c.Source)
	target := path.Clean(c.Target)

	if source == target {
		return errors.New("source and target must be distinct")
	}

	// "." is the repository root, which contains every other path.
	if source == "." || target == "." {
		return errors.New("source and target must not be nested within each other")
	}

	if strings.HasPrefix(target+"/", source+"/") || strings.HasPrefix(source+"/", target+"/") {
		return errors.New("source and target must not be nested within each other")
	}

	for _, e := range c.Exclude {
		if e == "" {
			return errors.New("exclude entries must not be empty")
		}
		if path.IsAbs(e) {
			return errors.Errorf("exclude entry %q must be relative", e)
		}
		if e != path.Clean(e) || strings.HasPrefix(e, "..") {
			return errors.Errorf("exclude entry %q must be a clean relative path", e)
		}
	}

	if c.GitOps != nil {
		if err := c.GitOps.Validate(); err != nil {
			return err
		}
	}

	return nil
}
