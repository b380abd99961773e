package utils

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultDirMode is used for every directory created under the target root
const DefaultDirMode fs.FileMode = os.FileMode(0755) // 'rwxr-xr-x'

// LevelTrace is the most verbose log level used for command tracing
const LevelTrace = slog.Level(-8)

// DirIsEmpty returns true if given directory has no entries
func DirIsEmpty(path string) (bool, error) {
	dirents, err := os.ReadDir(path)
	if err != nil {
		return false, err
	}
	return len(dirents) == 0, nil
}

// RunCommand runs given command with given arguments on given CWD and
// returns trimmed stdout and stderr of the command.
// The command inherits the current process environment so that git can use
// the users ssh agent and credential helpers, given envs are appended and
// take precedence over inherited values.
func RunCommand(ctx context.Context, log *slog.Logger, envs []string, cwd string, command string, args ...string) (string, string, error) {
	cmdStr := command + " " + strings.Join(args, " ")
	log.Log(ctx, LevelTrace, "running command", "cwd", cwd, "cmd", cmdStr)

	cmd := exec.CommandContext(ctx, command, args...)
	// force kill git & child process 5 seconds after sending it sigterm (when ctx is cancelled/timed out)
	cmd.WaitDelay = 5 * time.Second
	if cwd != "" {
		cmd.Dir = cwd
	}
	outbuf := bytes.NewBuffer(nil)
	errbuf := bytes.NewBuffer(nil)
	cmd.Stdout = outbuf
	cmd.Stderr = errbuf

	cmd.Env = os.Environ()
	// never block on a credentials prompt, there is nobody to answer it
	cmd.Env = append(cmd.Env, "GIT_TERMINAL_PROMPT=0")
	if len(envs) > 0 {
		cmd.Env = append(cmd.Env, envs...)
	}

	start := time.Now()
	err := cmd.Run()
	runTime := time.Since(start)

	stdout := strings.TrimSpace(outbuf.String())
	stderr := strings.TrimSpace(errbuf.String())
	if ctx.Err() == context.DeadlineExceeded {
		err = ctx.Err()
	}
	if err != nil {
		return stdout, stderr, fmt.Errorf("Run(%s): err:%w { stdout: %q, stderr: %q }", cmdStr, err, stdout, stderr)
	}
	log.Log(ctx, LevelTrace, "command result", "stdout", stdout, "stderr", stderr, "time", runTime)

	return stdout, stderr, nil
}
