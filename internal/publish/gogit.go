package publish

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/pagedesk/pagedesk/internal/xerrors"
)

// Repo adapts a local git working tree to the Git interface. It is the
// only type in the codebase that touches go-git.
type Repo struct {
	repo   *git.Repository
	remote string
	name   string
	email  string
}

// OpenRepo opens the repository containing the content tree. The
// remote name is only used on push.
func OpenRepo(path, remote, commitName, commitEmail string) (*Repo, error) {
	r, err := git.PlainOpen(path)
	if err != nil {
		return nil, xerrors.Wrapf(err, "open repository %s", path)
	}
	return &Repo{repo: r, remote: remote, name: commitName, email: commitEmail}, nil
}

func (r *Repo) DirtyPaths(ctx context.Context) ([]string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, xerrors.Wrap(err, "worktree")
	}
	status, err := wt.Status()
	if err != nil {
		return nil, xerrors.Wrap(err, "status")
	}

	var paths []string
	for p, s := range status {
		if s.Worktree == git.Unmodified && s.Staging == git.Unmodified {
			continue
		}
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

func (r *Repo) Stage(ctx context.Context, paths []string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return xerrors.Wrap(err, "worktree")
	}
	for _, p := range paths {
		if _, err := wt.Add(p); err != nil {
			return xerrors.Wrapf(err, "stage %s", p)
		}
	}
	return nil
}

func (r *Repo) Commit(ctx context.Context, message string, allowEmpty bool) (string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", xerrors.Wrap(err, "worktree")
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  r.name,
			Email: r.email,
			When:  time.Now(),
		},
		AllowEmptyCommits: allowEmpty,
	})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			return "", xerrors.WithStack(ErrNothingToCommit)
		}
		return "", xerrors.Wrap(err, "commit")
	}
	return hash.String(), nil
}

func (r *Repo) Push(ctx context.Context) error {
	err := r.repo.PushContext(ctx, &git.PushOptions{RemoteName: r.remote})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return xerrors.Wrapf(err, "push to %s", r.remote)
	}
	return nil
}
