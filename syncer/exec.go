package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"

	"github.com/utilitywarehouse/git-watch-mirror/internal/utils"
)

var (
	// to parse output of "git ls-remote --symref origin HEAD"
	// ref: refs/heads/xxxx  HEAD
	remoteDefaultBranchRgx = regexp.MustCompile(`^ref:\s+refs/heads/([^\s]+)\s+HEAD`)

	gitExecutablePath string
)

func init() {
	gitExecutablePath = exec.Command("git").String()
}

// ExecBackend runs git CLI for every operation.
type ExecBackend struct {
	gitPath string
	envs    []string
	quiet   bool
	log     *slog.Logger
}

// NewExecBackend returns backend which runs git executable found on PATH.
// envs are added to the environment of every git command. if quiet is set
// git is asked to suppress progress output and remaining output is only
// logged at debug level.
func NewExecBackend(envs []string, quiet bool, log *slog.Logger) *ExecBackend {
	if log == nil {
		log = slog.Default()
	}
	return &ExecBackend{
		gitPath: gitExecutablePath,
		envs:    envs,
		quiet:   quiet,
		log:     log,
	}
}

// git clone --recursive [-q] <url> <dst>
func (b *ExecBackend) Clone(ctx context.Context, url, dst string) error {
	args := []string{"clone", "--recursive"}
	args = append(b.quietArgs(args), url, dst)
	if _, err := b.git(ctx, "", args...); err != nil {
		return fmt.Errorf("unable to clone repo err:%w", err)
	}
	return nil
}

// git checkout [-q] <branch>
func (b *ExecBackend) Checkout(ctx context.Context, dir, branch string) error {
	args := append(b.quietArgs([]string{"checkout"}), branch)
	if _, err := b.git(ctx, dir, args...); err != nil {
		return fmt.Errorf("unable to checkout branch %s err:%w", branch, err)
	}
	return nil
}

// git pull [-q] <remote> <branch>
func (b *ExecBackend) Pull(ctx context.Context, dir, remote, branch string) error {
	args := append(b.quietArgs([]string{"pull"}), remote, branch)
	if _, err := b.git(ctx, dir, args...); err != nil {
		return fmt.Errorf("unable to pull branch %s err:%w", branch, err)
	}
	return nil
}

// git branch
func (b *ExecBackend) LocalBranches(ctx context.Context, dir string) ([]string, error) {
	out, err := b.git(ctx, dir, "branch")
	if err != nil {
		return nil, fmt.Errorf("unable to list local branches err:%w", err)
	}
	return parseBranches(out), nil
}

// git branch -r
func (b *ExecBackend) RemoteBranches(ctx context.Context, dir string) ([]string, error) {
	out, err := b.git(ctx, dir, "branch", "-r")
	if err != nil {
		return nil, fmt.Errorf("unable to list remote branches err:%w", err)
	}
	return parseBranches(out), nil
}

// git checkout [-q] -b <branch> <remote>/<branch>
func (b *ExecBackend) CreateTrackingBranch(ctx context.Context, dir, remote, branch string) error {
	args := append(b.quietArgs([]string{"checkout"}), "--track", "-b", branch, remote+"/"+branch)
	if _, err := b.git(ctx, dir, args...); err != nil {
		return fmt.Errorf("unable to create tracking branch %s err:%w", branch, err)
	}
	return nil
}

// git config --get remote.<remote>.url
func (b *ExecBackend) RemoteURL(ctx context.Context, dir, remote string) (string, error) {
	out, err := b.git(ctx, dir, "config", "--get", "remote."+remote+".url")
	if err != nil {
		return "", fmt.Errorf("unable to get remote url err:%w", err)
	}
	return out, nil
}

// RemoteHead reads locally recorded `refs/remotes/<remote>/HEAD` and falls
// back to asking remote via ls-remote
func (b *ExecBackend) RemoteHead(ctx context.Context, dir, remote string) (string, error) {
	// git symbolic-ref --short refs/remotes/origin/HEAD
	out, err := b.git(ctx, dir, "symbolic-ref", "--short", "refs/remotes/"+remote+"/HEAD")
	if err == nil && strings.HasPrefix(out, remote+"/") {
		return strings.TrimPrefix(out, remote+"/"), nil
	}

	// git ls-remote --symref origin HEAD
	out, err = b.git(ctx, dir, "ls-remote", "--symref", remote, "HEAD")
	if err != nil {
		return "", fmt.Errorf("unable to get default branch err:%w", err)
	}

	sections := remoteDefaultBranchRgx.FindStringSubmatch(out)
	if len(sections) == 2 {
		return sections[1], nil
	}

	return "", fmt.Errorf("unable to parse ls-remote output:%s sections:%s", out, sections)
}

func (b *ExecBackend) quietArgs(args []string) []string {
	if b.quiet {
		return append(args, "-q")
	}
	return args
}

// git runs git command with given args in dir and returns trimmed stdout.
// output of the command is logged at info level or at debug level if quiet.
func (b *ExecBackend) git(ctx context.Context, dir string, args ...string) (string, error) {
	stdout, stderr, err := utils.RunCommand(ctx, b.log, b.envs, dir, b.gitPath, args...)
	if err != nil {
		return "", err
	}

	level := slog.LevelInfo
	if b.quiet {
		level = slog.LevelDebug
	}
	// git writes progress and most messages to stderr
	for _, out := range []string{stdout, stderr} {
		if out = strings.TrimSpace(out); out != "" {
			b.log.Log(ctx, level, "git output", "cmd", args[0], "dir", dir, "output", out)
		}
	}

	return strings.TrimSpace(stdout), nil
}
