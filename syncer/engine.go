package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/utilitywarehouse/git-watch-mirror/giturl"
	"github.com/utilitywarehouse/git-watch-mirror/internal/utils"
	"github.com/utilitywarehouse/git-watch-mirror/resolve"
)

const (
	// DefaultRemote is the name of the remote created by clone
	DefaultRemote = "origin"
	// DefaultDocsBranch is the branch hosting rendered documentation
	DefaultDocsBranch = "gh-pages"

	// used when neither the API nor the working copy knows default branch
	fallbackBranch = "master"
)

// Config holds the settings of an Engine
type Config struct {
	Root       string   // target root, created if missing
	Quiet      bool     // suppress tool output, only used by default backend
	WithDocs   bool     // sync documentation branch after clone/update
	Jobs       int      // number of entries synced concurrently, defaults to 1
	DocsBranch string   // defaults to DefaultDocsBranch
	Remote     string   // defaults to DefaultRemote
	Envs       []string // extra envs for the default backend
}

// Engine syncs resolved entries under a target root.
type Engine struct {
	root       string
	withDocs   bool
	jobs       int
	docsBranch string
	remote     string
	backend    Backend
	log        *slog.Logger
}

// New creates an Engine, root directory is created if it doesn't exist.
// if backend is nil an ExecBackend is used.
func New(conf Config, backend Backend, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}

	if conf.Root == "" {
		conf.Root = "."
	}
	root, err := filepath.Abs(conf.Root)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of the target root err:%w", err)
	}
	if err := os.MkdirAll(root, utils.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("unable to create target root err:%w", err)
	}

	if conf.Jobs < 1 {
		conf.Jobs = 1
	}
	if conf.DocsBranch == "" {
		conf.DocsBranch = DefaultDocsBranch
	}
	if conf.Remote == "" {
		conf.Remote = DefaultRemote
	}
	if backend == nil {
		backend = NewExecBackend(conf.Envs, conf.Quiet, log)
	}

	return &Engine{
		root:       root,
		withDocs:   conf.WithDocs,
		jobs:       conf.Jobs,
		docsBranch: conf.DocsBranch,
		remote:     conf.Remote,
		backend:    backend,
		log:        log,
	}, nil
}

// Root returns absolute path of the target root
func (e *Engine) Root() string {
	return e.root
}

// Sync syncs all entries and returns one result per entry in input order.
// Failures are recorded on the results and never stop the batch. Once ctx is
// done remaining entries are marked failed without being touched, an entry
// which has already started is always completed.
// Entries with a local path outside of the root or already used by an earlier
// entry fail without being touched.
func (e *Engine) Sync(ctx context.Context, entries []resolve.Entry) []Result {
	results := make([]Result, len(entries))
	p := &progress{total: len(entries)}

	invalid := e.validate(entries)

	g := new(errgroup.Group)
	g.SetLimit(e.jobs)

	for i, entry := range entries {
		if err := invalid[i]; err != nil {
			e.log.Error("invalid entry, skipping", "repo", entry.LocalPath, "err", err)
			results[i] = e.finish(Result{Entry: entry, Status: StatusFailed, Err: err}, time.Now())
			p.complete()
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Entry: entry, Path: e.path(entry), Status: StatusFailed, Err: err}
				return nil
			}
			results[i] = e.syncEntry(ctx, i, len(entries), entry)
			e.log.Debug("repository sync completed", "repo", entry.LocalPath, "status", results[i].Status, "progress", p.complete())
			return nil
		})
	}
	// entries never return errors
	_ = g.Wait()

	summary := Summary(results)
	e.log.Info("sync finished",
		"total", len(results),
		"cloned", summary[StatusCloned],
		"updated", summary[StatusUpdated],
		"skipped", summary[StatusSkippedNotARepo]+summary[StatusSkippedOccupied],
		"failed", summary[StatusFailed],
	)
	return results
}

// validate returns an error for every entry which must not be synced.
// local path must stay under the root and only the first entry of a
// path is synced, concurrent syncs of a path would clobber each other.
func (e *Engine) validate(entries []resolve.Entry) map[int]error {
	invalid := make(map[int]error)
	seen := make(map[string]int, len(entries))

	for i, entry := range entries {
		if !filepath.IsLocal(filepath.FromSlash(entry.LocalPath)) {
			invalid[i] = fmt.Errorf("local path '%s' is not within the target root", entry.LocalPath)
			continue
		}
		path := e.path(entry)
		if first, ok := seen[path]; ok {
			invalid[i] = fmt.Errorf("local path '%s' is already used by %s", entry.LocalPath, entries[first].CloneURL)
			continue
		}
		seen[path] = i
	}
	return invalid
}

func (e *Engine) path(entry resolve.Entry) string {
	return filepath.Join(e.root, filepath.FromSlash(entry.LocalPath))
}

func (e *Engine) syncEntry(ctx context.Context, idx, total int, entry resolve.Entry) Result {
	start := time.Now()
	log := e.log.With("repo", entry.LocalPath)
	res := Result{Entry: entry, Path: e.path(entry)}

	log.Info("syncing repository", "index", fmt.Sprintf("%d/%d", idx+1, total), "path", res.Path)

	// git operations of an entry are not interrupted half way
	ctx = context.WithoutCancel(ctx)

	state, err := inspect(res.Path)
	if err != nil {
		res.Status, res.Err = StatusFailed, err
		log.Error("unable to inspect target path", "path", res.Path, "err", err)
		return e.finish(res, start)
	}

	switch state {
	case stateRepo:
		res.Branch = e.primaryBranch(ctx, log, res.Path, entry)
		e.checkRemote(ctx, log, res.Path, entry.CloneURL)
		res.Status, res.Err = StatusUpdated, e.update(ctx, res.Path, res.Branch)
	case stateNotARepo:
		log.Error("target directory exists but is not a git repository, skipping", "path", res.Path)
		res.Status = StatusSkippedNotARepo
		return e.finish(res, start)
	case stateOccupied:
		log.Error("target path exists but is not a directory, skipping", "path", res.Path)
		res.Status = StatusSkippedOccupied
		return e.finish(res, start)
	default:
		res.Status, res.Err = StatusCloned, e.clone(ctx, res.Path, entry.CloneURL)
		if res.Err == nil {
			res.Branch = e.primaryBranch(ctx, log, res.Path, entry)
		}
	}

	if res.Err != nil {
		log.Error("unable to sync repository", "state", state, "err", res.Err)
		res.Status = StatusFailed
		return e.finish(res, start)
	}
	log.Info("repository synced", "status", res.Status, "branch", res.Branch)

	if e.withDocs {
		res.DocsSynced, res.DocsErr = e.syncDocs(ctx, log, res.Path, res.Branch)
		if res.DocsErr != nil {
			log.Error("unable to sync documentation branch", "branch", e.docsBranch, "err", res.DocsErr)
		}
	}

	return e.finish(res, start)
}

func (e *Engine) finish(res Result, start time.Time) Result {
	res.Duration = time.Since(start)
	recordSync(res)
	return res
}

func (e *Engine) clone(ctx context.Context, dst, url string) error {
	if err := os.MkdirAll(dst, utils.DefaultDirMode); err != nil {
		return fmt.Errorf("unable to create target dir err:%w", err)
	}
	return e.backend.Clone(ctx, url, dst)
}

func (e *Engine) update(ctx context.Context, dir, branch string) error {
	if err := e.backend.Checkout(ctx, dir, branch); err != nil {
		return err
	}
	return e.backend.Pull(ctx, dir, e.remote, branch)
}

// primaryBranch returns default branch of the entry if known, otherwise
// default branch recorded by the remote
func (e *Engine) primaryBranch(ctx context.Context, log *slog.Logger, dir string, entry resolve.Entry) string {
	if entry.DefaultBranch != "" {
		return entry.DefaultBranch
	}
	branch, err := e.backend.RemoteHead(ctx, dir, e.remote)
	if err != nil || branch == "" {
		log.Warn("unable to get default branch, using fallback", "fallback", fallbackBranch, "err", err)
		return fallbackBranch
	}
	return branch
}

// checkRemote warns if existing working copy is not a clone of the entry's
// remote. it doesn't change the sync.
func (e *Engine) checkRemote(ctx context.Context, log *slog.Logger, dir, cloneURL string) {
	current, err := e.backend.RemoteURL(ctx, dir, e.remote)
	if err != nil {
		log.Warn("unable to read remote url of existing working copy", "err", err)
		return
	}
	if current == cloneURL {
		return
	}
	if same, err := giturl.SameRawURL(current, cloneURL); err == nil && same {
		return
	}
	log.Warn("existing working copy has different remote", "current", current, "expected", cloneURL)
}

// syncDocs checks out and pulls documentation branch if remote has one,
// it always tries to switch back to primary branch.
func (e *Engine) syncDocs(ctx context.Context, log *slog.Logger, dir, primary string) (bool, error) {
	remoteBranches, err := e.backend.RemoteBranches(ctx, dir)
	if err != nil {
		return false, err
	}
	if !slices.Contains(remoteBranches, e.remote+"/"+e.docsBranch) {
		log.Debug("remote has no documentation branch", "branch", e.docsBranch)
		return false, nil
	}

	localBranches, err := e.backend.LocalBranches(ctx, dir)
	if err != nil {
		return false, err
	}

	var errs []error
	if slices.Contains(localBranches, e.docsBranch) {
		if err := e.update(ctx, dir, e.docsBranch); err != nil {
			errs = append(errs, err)
		}
	} else {
		log.Info("creating documentation branch", "branch", e.docsBranch)
		if err := e.backend.CreateTrackingBranch(ctx, dir, e.remote, e.docsBranch); err != nil {
			errs = append(errs, err)
		}
	}

	if err := e.backend.Checkout(ctx, dir, primary); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return false, errors.Join(errs...)
	}
	return true, nil
}
