// Package publish turns saved content edits into a git commit and an
// optional push. One publish runs at a time; the commit is the point of
// no return, a failed push never rolls it back.
package publish

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pagedesk/pagedesk/internal/log"
	"github.com/pagedesk/pagedesk/internal/xerrors"
)

var (
	// ErrNothingToCommit marks a publish with a clean working tree and
	// no allow_empty override.
	ErrNothingToCommit = errors.New("nothing to commit")
	// ErrCommit marks a failure before or during commit. The working
	// tree may hold staged changes; a retry picks them up.
	ErrCommit = errors.New("commit failed")
	// ErrPush marks a push failure after a successful commit.
	ErrPush = errors.New("push failed")
)

// Terminal states of one publish, as reported in results and metrics.
const (
	StatePushed      = "pushed"
	StatePushSkipped = "push_skipped"
	StateCommitted   = "committed" // commit landed, push failed
	StateFailed      = "failed"
)

// Git is the narrow slice of version control the coordinator needs.
// The go-git adapter below is the production implementation.
type Git interface {
	// DirtyPaths returns the worktree-relative paths with uncommitted
	// changes, untracked files included, in stable order.
	DirtyPaths(ctx context.Context) ([]string, error)
	Stage(ctx context.Context, paths []string) error
	// Commit returns the new commit id.
	Commit(ctx context.Context, message string, allowEmpty bool) (string, error)
	Push(ctx context.Context) error
}

// Request describes one publish. Zero value publishes every dirty path
// with the default message.
type Request struct {
	Message    string   `json:"message,omitempty"`
	Paths      []string `json:"paths,omitempty"`
	AllowEmpty bool     `json:"allow_empty,omitempty"`
}

// Result reports what actually happened. Committed stays true when the
// push fails; PushErr carries the push failure separately because it is
// not a failure of the publish.
type Result struct {
	State        string
	Committed    bool
	Pushed       bool
	CommitID     string
	ChangedPaths []string
	PushErr      error
	Duration     time.Duration
}

const defaultMessage = "Update content"

type Coordinator struct {
	mu sync.Mutex

	git         Git
	log         log.Logger
	pushEnabled bool
	pushTimeout time.Duration
}

func NewCoordinator(g Git, l log.Logger, pushEnabled bool, pushTimeout time.Duration) *Coordinator {
	if l == nil {
		l = log.Nop()
	}
	if pushTimeout <= 0 {
		pushTimeout = 30 * time.Second
	}
	return &Coordinator{
		git:         g,
		log:         l.With("component", "publish"),
		pushEnabled: pushEnabled,
		pushTimeout: pushTimeout,
	}
}

// Publish stages, commits, and optionally pushes. Serialized process
// wide; a second caller blocks until the first finishes.
func (c *Coordinator) Publish(ctx context.Context, req Request) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	res, err := c.publishLocked(ctx, req)
	res.Duration = time.Since(start)
	return res, err
}

func (c *Coordinator) publishLocked(ctx context.Context, req Request) (Result, error) {
	dirty, err := c.git.DirtyPaths(ctx)
	if err != nil {
		return Result{State: StateFailed}, xerrors.Wrap(errors.Join(ErrCommit, err), "worktree status")
	}

	paths := req.Paths
	if len(paths) == 0 {
		paths = dirty
	}
	if len(paths) == 0 && !req.AllowEmpty {
		return Result{State: StateFailed}, xerrors.WithStack(ErrNothingToCommit)
	}

	if err := c.git.Stage(ctx, paths); err != nil {
		return Result{State: StateFailed}, xerrors.Wrap(errors.Join(ErrCommit, err), "stage")
	}

	msg := req.Message
	if msg == "" {
		msg = defaultMessage
	}
	commitID, err := c.git.Commit(ctx, msg, req.AllowEmpty)
	if err != nil {
		if errors.Is(err, ErrNothingToCommit) {
			return Result{State: StateFailed}, err
		}
		return Result{State: StateFailed}, xerrors.Wrap(errors.Join(ErrCommit, err), "commit")
	}

	res := Result{
		Committed:    true,
		CommitID:     commitID,
		ChangedPaths: paths,
	}
	c.log.Info(ctx, "commit created", "commit", shortID(commitID), "paths", len(paths))

	if !c.pushEnabled {
		res.State = StatePushSkipped
		return res, nil
	}

	pushCtx, cancel := context.WithTimeout(ctx, c.pushTimeout)
	defer cancel()
	if err := c.git.Push(pushCtx); err != nil {
		res.State = StateCommitted
		res.PushErr = xerrors.Wrap(errors.Join(ErrPush, err), "push")
		c.log.Error(ctx, res.PushErr, "push failed, commit retained", "commit", shortID(commitID))
		return res, nil
	}

	res.State = StatePushed
	res.Pushed = true
	c.log.Info(ctx, "pushed", "commit", shortID(commitID))
	return res, nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
