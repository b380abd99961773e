package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/utilitywarehouse/git-watch-mirror/internal/lock"
	"github.com/utilitywarehouse/git-watch-mirror/internal/utils"
)

// pathState is the state of the target path of an entry before sync
type pathState int

const (
	stateMissing  pathState = iota // nothing at the path
	stateEmpty                     // empty directory
	stateRepo                      // directory with git metadata
	stateNotARepo                  // non empty directory without git metadata
	stateOccupied                  // something other than a directory
)

func (s pathState) String() string {
	switch s {
	case stateMissing:
		return "missing"
	case stateEmpty:
		return "empty"
	case stateRepo:
		return "repository"
	case stateNotARepo:
		return "not-a-repository"
	case stateOccupied:
		return "occupied"
	}
	return "unknown"
}

// inspect returns state of the given path.
// `.git` can be a directory or a file (submodules, linked worktrees), both
// count as git metadata.
func inspect(path string) (pathState, error) {
	fi, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return stateMissing, nil
	case err != nil:
		return stateMissing, fmt.Errorf("unable to stat path err:%w", err)
	case !fi.IsDir():
		return stateOccupied, nil
	}

	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return stateRepo, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return stateMissing, fmt.Errorf("unable to stat git dir err:%w", err)
	}

	empty, err := utils.DirIsEmpty(path)
	if err != nil {
		return stateMissing, fmt.Errorf("unable to verify if dir is empty err:%w", err)
	}
	if empty {
		return stateEmpty, nil
	}
	return stateNotARepo, nil
}

// parseBranches parses output of `git branch` and `git branch -r`.
// current branch marker, worktree marker, detached HEAD and symbolic
// refs (origin/HEAD -> origin/main) are dropped.
func parseBranches(out string) []string {
	var branches []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "* ")
		line = strings.TrimPrefix(line, "+ ")
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "("):
			continue
		case strings.Contains(line, " -> "):
			continue
		}
		branches = append(branches, line)
	}
	return branches
}

// progress counts completed entries, entries might complete out of order
// when synced in parallel.
type progress struct {
	lock  lock.Mutex
	done  int
	total int
}

func (p *progress) complete() string {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.done++
	return fmt.Sprintf("%d/%d", p.done, p.total)
}

// logWriter writes every non empty line it receives to the logger, it is
// used for progress output of the go-git backend.
type logWriter struct {
	ctx   context.Context
	log   *slog.Logger
	level slog.Level
}

func (w *logWriter) Write(p []byte) (int, error) {
	// progress updates are separated with carriage returns
	for _, line := range bytes.FieldsFunc(p, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if l := strings.TrimSpace(string(line)); l != "" {
			w.log.Log(w.ctx, w.level, "git output", "output", l)
		}
	}
	return len(p), nil
}
