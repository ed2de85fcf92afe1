// Package promote decides whether the target tree has drifted from the
// source tree and, if so, stages the correction as a reviewable change
// rather than applying it directly.
package promote

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/mumoshu/prsync/config"
	"github.com/mumoshu/prsync/render"
	"github.com/mumoshu/prsync/store"
	"github.com/mumoshu/prsync/treediff"
	"github.com/sirupsen/logrus"
)

// Synchronizer runs one promotion attempt.
// One invocation corresponds to one automation trigger; the invoking
// automation serializes runs, so there is no locking here.
type Synchronizer struct {
	Config *config.Config

	// Store overrides the store built from Config.GitOps. Used in tests.
	Store store.Store

	// Now overrides the clock used for branch naming. Used in tests.
	Now func() time.Time

	// DryRun computes and logs the differences without writing,
	// committing, or proposing anything.
	DryRun bool
}

// Result reports what one promotion attempt found and did.
type Result struct {
	// Set is every difference found between the trees, outside the
	// excluded subtrees.
	Set *treediff.Set

	// Proposed is true when a change was staged and committed.
	Proposed bool

	// Branch is the head branch of the proposed change, when one was
	// requested.
	Branch string
}

// Run executes one promotion attempt to completion or failure.
// There are no retries: the first error aborts the run and propagates to
// the caller, which exits non-zero so the hosting pipeline halts.
//
// Running twice against unchanged trees proposes nothing the second time:
// after the first proposal merges, the trees are identical and the gate
// stays closed.
func (s *Synchronizer) Run(ctx context.Context) (*Result, error) {
	cfg := s.Config

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	t := now()

	var branch string

	st := s.Store
	if st == nil {
		if cfg.GitOps != nil && cfg.GitOps.PullRequest != nil {
			branch = store.BranchName(id(cfg.Target), t)
		}

		var err error
		st, err = store.Init(branch, cfg.GitOps)
		if err != nil {
			return nil, err
		}
	} else if b, ok := st.(interface{ NewBranch() string }); ok {
		branch = b.NewBranch()
	}

	result := &Result{}

	changes, err := st.Transact(func(fsys billy.Filesystem) (*store.Changes, error) {
		set, err := treediff.Compare(fsys, cfg.Source, cfg.Target, treediff.Options{Exclude: cfg.Exclude})
		if err != nil {
			return nil, err
		}

		result.Set = set

		logrus.WithFields(logrus.Fields{
			"source":  cfg.Source,
			"target":  cfg.Target,
			"changes": set.Len(),
		}).Info("computed diff")

		if !s.pending(set) {
			return &store.Changes{}, nil
		}

		if s.DryRun {
			logrus.Infof("dry-run: would sync the following changes:\n%s", set)
			return &store.Changes{}, nil
		}

		applied, err := treediff.Apply(fsys, cfg.Source, cfg.Target, set, treediff.ApplyOptions{
			Prune: cfg.Sync.Prune,
		})
		if err != nil {
			return nil, err
		}

		return &store.Changes{
			AddedOrModified: applied.AddedOrModified,
			Deleted:         applied.Deleted,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if changes.Empty() {
		logrus.Info("no differences to promote")
		return result, nil
	}

	changed := result.Set.AddedOrModified()
	if cfg.Sync.Prune {
		changed = append(changed, result.Set.Removed()...)
	}

	var pr *config.PullRequest
	if cfg.GitOps != nil {
		pr = cfg.GitOps.PullRequest
	}

	p, err := render.NewProposal(pr, render.Data{
		Source:  cfg.Source,
		Target:  cfg.Target,
		Changed: changed,
		Commit:  config.GetSHA(),
	})
	if err != nil {
		return nil, err
	}

	if err := st.Commit(ctx, p.Title, p.Body); err != nil {
		return nil, err
	}

	result.Proposed = true
	result.Branch = branch

	logrus.WithFields(logrus.Fields{
		"branch": branch,
		"title":  p.Title,
	}).Info("proposed promotion")

	return result, nil
}

// pending reports whether the set contains anything this run would act on.
// Removed entries count only when pruning is enabled, so a copy-only run
// never proposes an empty commit.
func (s *Synchronizer) pending(set *treediff.Set) bool {
	if len(set.AddedOrModified()) > 0 {
		return true
	}

	return s.Config.Sync.Prune && len(set.Removed()) > 0
}

// id derives the branch-name component from the target tree path.
func id(target string) string {
	return strings.ReplaceAll(path.Clean(target), "/", "-")
}
