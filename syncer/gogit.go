package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// GoGitBackend implements Backend in-process using go-git, no git executable
// is required.
type GoGitBackend struct {
	quiet bool
	log   *slog.Logger
}

// NewGoGitBackend returns go-git based backend. unless quiet, transfer
// progress is logged at info level.
func NewGoGitBackend(quiet bool, log *slog.Logger) *GoGitBackend {
	if log == nil {
		log = slog.Default()
	}
	return &GoGitBackend{quiet: quiet, log: log}
}

func (b *GoGitBackend) progress(ctx context.Context) io.Writer {
	if b.quiet {
		return nil
	}
	return &logWriter{ctx: ctx, log: b.log, level: slog.LevelInfo}
}

func (b *GoGitBackend) Clone(ctx context.Context, url, dst string) error {
	_, err := git.PlainCloneContext(ctx, dst, false, &git.CloneOptions{
		URL:               url,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
		Progress:          b.progress(ctx),
	})
	if err != nil {
		return fmt.Errorf("unable to clone repo err:%w", err)
	}
	return nil
}

func (b *GoGitBackend) Checkout(ctx context.Context, dir, branch string) error {
	_, wt, err := openWorktree(dir)
	if err != nil {
		return err
	}
	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
	})
	if err != nil {
		return fmt.Errorf("unable to checkout branch %s err:%w", branch, err)
	}
	return nil
}

func (b *GoGitBackend) Pull(ctx context.Context, dir, remote, branch string) error {
	_, wt, err := openWorktree(dir)
	if err != nil {
		return err
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:        remote,
		ReferenceName:     plumbing.NewBranchReferenceName(branch),
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
		Progress:          b.progress(ctx),
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		b.log.Debug("already up to date", "dir", dir, "branch", branch)
		return nil
	}
	if err != nil {
		return fmt.Errorf("unable to pull branch %s err:%w", branch, err)
	}
	return nil
}

func (b *GoGitBackend) LocalBranches(ctx context.Context, dir string) ([]string, error) {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to open repository err:%w", err)
	}
	iter, err := r.Branches()
	if err != nil {
		return nil, fmt.Errorf("unable to list local branches err:%w", err)
	}
	var branches []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		branches = append(branches, ref.Name().Short())
		return nil
	})
	return branches, err
}

func (b *GoGitBackend) RemoteBranches(ctx context.Context, dir string) ([]string, error) {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to open repository err:%w", err)
	}
	iter, err := r.References()
	if err != nil {
		return nil, fmt.Errorf("unable to list remote branches err:%w", err)
	}
	var branches []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsRemote() || strings.HasSuffix(ref.Name().String(), "/HEAD") {
			return nil
		}
		branches = append(branches, ref.Name().Short())
		return nil
	})
	return branches, err
}

func (b *GoGitBackend) CreateTrackingBranch(ctx context.Context, dir, remote, branch string) error {
	r, wt, err := openWorktree(dir)
	if err != nil {
		return err
	}

	remoteRef, err := r.Reference(plumbing.NewRemoteReferenceName(remote, branch), true)
	if err != nil {
		return fmt.Errorf("unable to find remote branch %s/%s err:%w", remote, branch, err)
	}

	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Hash:   remoteRef.Hash(),
		Create: true,
	})
	if err != nil {
		return fmt.Errorf("unable to create branch %s err:%w", branch, err)
	}

	err = r.CreateBranch(&config.Branch{
		Name:   branch,
		Remote: remote,
		Merge:  plumbing.NewBranchReferenceName(branch),
	})
	if err != nil && !errors.Is(err, git.ErrBranchExists) {
		return fmt.Errorf("unable to set upstream of branch %s err:%w", branch, err)
	}
	return nil
}

func (b *GoGitBackend) RemoteURL(ctx context.Context, dir, remote string) (string, error) {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("unable to open repository err:%w", err)
	}
	rem, err := r.Remote(remote)
	if err != nil {
		return "", fmt.Errorf("unable to get remote url err:%w", err)
	}
	if urls := rem.Config().URLs; len(urls) > 0 {
		return urls[0], nil
	}
	return "", fmt.Errorf("remote %s has no url", remote)
}

// RemoteHead reads locally recorded `refs/remotes/<remote>/HEAD` and falls
// back to listing remote references
func (b *GoGitBackend) RemoteHead(ctx context.Context, dir, remote string) (string, error) {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return "", fmt.Errorf("unable to open repository err:%w", err)
	}

	if ref, err := r.Reference(plumbing.NewRemoteHEADReferenceName(remote), false); err == nil &&
		ref.Type() == plumbing.SymbolicReference {
		return strings.TrimPrefix(ref.Target().Short(), remote+"/"), nil
	}

	rem, err := r.Remote(remote)
	if err != nil {
		return "", fmt.Errorf("unable to get remote err:%w", err)
	}
	refs, err := rem.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("unable to get default branch err:%w", err)
	}
	for _, ref := range refs {
		if ref.Name() == plumbing.HEAD && ref.Type() == plumbing.SymbolicReference {
			return ref.Target().Short(), nil
		}
	}
	return "", fmt.Errorf("remote %s did not advertise HEAD", remote)
}

func openWorktree(dir string) (*git.Repository, *git.Worktree, error) {
	r, err := git.PlainOpen(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open repository err:%w", err)
	}
	wt, err := r.Worktree()
	if err != nil {
		return nil, nil, fmt.Errorf("unable to get worktree err:%w", err)
	}
	return r, wt, nil
}
