package syncer

import "context"

// Backend performs version control operations on a single working copy.
// dir is always an absolute path of the working copy, remote is the name of
// the remote (usually 'origin').
type Backend interface {
	// Clone clones url into dst recursively including submodules,
	// dst must be missing or empty.
	Clone(ctx context.Context, url, dst string) error
	// Checkout switches working copy to the given local branch.
	Checkout(ctx context.Context, dir, branch string) error
	// Pull fetches branch from remote and merges it into the current branch.
	Pull(ctx context.Context, dir, remote, branch string) error
	// LocalBranches returns names of the local branches.
	LocalBranches(ctx context.Context, dir string) ([]string, error)
	// RemoteBranches returns names of remote tracking branches in
	// "<remote>/<branch>" form.
	RemoteBranches(ctx context.Context, dir string) ([]string, error)
	// CreateTrackingBranch creates local branch from "<remote>/<branch>",
	// sets it as upstream and checks it out.
	CreateTrackingBranch(ctx context.Context, dir, remote, branch string) error
	// RemoteURL returns configured url of the remote.
	RemoteURL(ctx context.Context, dir, remote string) (string, error)
	// RemoteHead returns default branch of the remote.
	RemoteHead(ctx context.Context, dir, remote string) (string, error)
}
