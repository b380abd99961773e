package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/utilitywarehouse/git-watch-mirror/resolve"
)

const (
	testMainBranch = "e2e-main"
	testGitUser    = "git-watch-mirror-e2e"
)

var (
	testLog  = slog.Default()
	testCtx  = context.TODO()
	testENVs []string
)

func TestMain(m *testing.M) {
	if _, err := exec.LookPath("git"); err != nil {
		fmt.Println("git not found, skipping tests")
		os.Exit(0)
	}

	testTmpDir, err := os.MkdirTemp("", "git-watch-mirror-e2e-*")
	if err != nil {
		panic(err)
	}

	gitConfig := filepath.Join(testTmpDir, "gitconfig")
	testENVs = []string{
		"GIT_CONFIG_GLOBAL=" + gitConfig,
		`GIT_CONFIG_SYSTEM=/dev/null`,
	}

	conf := fmt.Sprintf(`[user]
	name = %s
	email = %s@example.com
[pull]
	rebase = false
[protocol "file"]
	allow = always
`, testGitUser, testGitUser)
	if err := os.WriteFile(gitConfig, []byte(conf), 0644); err != nil {
		panic(err)
	}

	// go-git backend and helpers without explicit env read global config
	// of the process
	for _, env := range testENVs {
		k, v, _ := strings.Cut(env, "=")
		os.Setenv(k, v)
	}

	code := m.Run()

	// clean up
	os.RemoveAll(testTmpDir)

	os.Exit(code)
}

type testBackend struct {
	name string
	new  func() Backend
}

var testBackends = []testBackend{
	{"exec", func() Backend { return NewExecBackend(testENVs, true, testLog) }},
	{"go-git", func() Backend { return NewGoGitBackend(true, testLog) }},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, backend Backend)) {
	for _, tb := range testBackends {
		t.Run(tb.name, func(t *testing.T) {
			fn(t, tb.new())
		})
	}
}

func mustNewEngine(t *testing.T, root string, withDocs bool, jobs int, backend Backend) *Engine {
	t.Helper()
	e, err := New(Config{Root: root, Quiet: true, WithDocs: withDocs, Jobs: jobs}, backend, testLog)
	if err != nil {
		t.Fatalf("unable to create engine err:%v", err)
	}
	return e
}

func TestSync_CloneThenUpdate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend Backend) {
		tmp := t.TempDir()
		upstream := filepath.Join(tmp, "upstream")
		root := filepath.Join(tmp, "root")

		mustInitRepo(t, upstream, "file", "v1")
		entry := resolve.Entry{LocalPath: "alice/x", CloneURL: "file://" + upstream, OwnerLogin: "alice"}

		e := mustNewEngine(t, root, false, 1, backend)

		t.Log("TEST-1: clone missing path")
		got := e.Sync(testCtx, []resolve.Entry{entry})
		assertResult(t, got[0], StatusCloned)
		if got[0].Branch != testMainBranch {
			t.Errorf("Branch = %q, want %q", got[0].Branch, testMainBranch)
		}
		if got[0].Path != filepath.Join(root, "alice", "x") {
			t.Errorf("Path = %q", got[0].Path)
		}
		assertFile(t, filepath.Join(root, "alice", "x", "file"), "v1")

		t.Log("TEST-2: update existing clone")
		mustCommit(t, upstream, "file", "v2")
		got = e.Sync(testCtx, []resolve.Entry{entry})
		assertResult(t, got[0], StatusUpdated)
		assertFile(t, filepath.Join(root, "alice", "x", "file"), "v2")

		t.Log("TEST-3: update when there are no changes")
		got = e.Sync(testCtx, []resolve.Entry{entry})
		assertResult(t, got[0], StatusUpdated)
		assertFile(t, filepath.Join(root, "alice", "x", "file"), "v2")
	})
}

func TestSync_UpdateChecksOutPrimaryBranch(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend Backend) {
		tmp := t.TempDir()
		upstream := filepath.Join(tmp, "upstream")
		root := filepath.Join(tmp, "root")

		mustInitRepo(t, upstream, "file", "v1")
		entry := resolve.Entry{LocalPath: "x", CloneURL: "file://" + upstream, DefaultBranch: testMainBranch}

		e := mustNewEngine(t, root, false, 1, backend)
		assertResult(t, e.Sync(testCtx, []resolve.Entry{entry})[0], StatusCloned)

		dst := filepath.Join(root, "x")
		mustExec(t, dst, "git", "checkout", "-q", "-b", "local-work")

		mustCommit(t, upstream, "file", "v2")
		assertResult(t, e.Sync(testCtx, []resolve.Entry{entry})[0], StatusUpdated)

		if got := mustCurrentBranch(t, dst); got != testMainBranch {
			t.Errorf("current branch = %q, want %q", got, testMainBranch)
		}
		assertFile(t, filepath.Join(dst, "file"), "v2")
	})
}

func TestSync_EmptyDirIsCloned(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend Backend) {
		tmp := t.TempDir()
		upstream := filepath.Join(tmp, "upstream")
		root := filepath.Join(tmp, "root")

		mustInitRepo(t, upstream, "file", "v1")
		if err := os.MkdirAll(filepath.Join(root, "x"), 0755); err != nil {
			t.Fatal(err)
		}

		e := mustNewEngine(t, root, false, 1, backend)
		got := e.Sync(testCtx, []resolve.Entry{{LocalPath: "x", CloneURL: "file://" + upstream}})
		assertResult(t, got[0], StatusCloned)
		assertFile(t, filepath.Join(root, "x", "file"), "v1")
	})
}

func TestSync_SkipNotARepo(t *testing.T) {
	tmp := t.TempDir()
	upstream := filepath.Join(tmp, "upstream")
	root := filepath.Join(tmp, "root")

	mustInitRepo(t, upstream, "file", "v1")
	dst := filepath.Join(root, "x")
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dst, "notes.txt"), []byte("mine"), 0644); err != nil {
		t.Fatal(err)
	}

	e := mustNewEngine(t, root, true, 1, nil)
	got := e.Sync(testCtx, []resolve.Entry{{LocalPath: "x", CloneURL: "file://" + upstream}})
	assertResult(t, got[0], StatusSkippedNotARepo)

	// directory must be untouched
	entries, err := os.ReadDir(dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "notes.txt" {
		t.Errorf("directory was modified: %v", entries)
	}
	assertFile(t, filepath.Join(dst, "notes.txt"), "mine")
}

func TestSync_SkipOccupied(t *testing.T) {
	tmp := t.TempDir()
	upstream := filepath.Join(tmp, "upstream")
	root := filepath.Join(tmp, "root")

	mustInitRepo(t, upstream, "file", "v1")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "x"), []byte("file"), 0644); err != nil {
		t.Fatal(err)
	}

	e := mustNewEngine(t, root, false, 1, nil)
	got := e.Sync(testCtx, []resolve.Entry{{LocalPath: "x", CloneURL: "file://" + upstream}})
	assertResult(t, got[0], StatusSkippedOccupied)
	assertFile(t, filepath.Join(root, "x"), "file")
}

func TestSync_FailureDoesNotAbortBatch(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend Backend) {
		tmp := t.TempDir()
		upstream := filepath.Join(tmp, "upstream")
		root := filepath.Join(tmp, "root")

		mustInitRepo(t, upstream, "file", "v1")
		entries := []resolve.Entry{
			{LocalPath: "missing", CloneURL: "file://" + filepath.Join(tmp, "does-not-exist")},
			{LocalPath: "x", CloneURL: "file://" + upstream},
		}

		e := mustNewEngine(t, root, true, 1, backend)
		got := e.Sync(testCtx, entries)

		if got[0].Status != StatusFailed || got[0].Err == nil {
			t.Errorf("first entry: status = %s err = %v, want failed with error", got[0].Status, got[0].Err)
		}
		assertResult(t, got[1], StatusCloned)
		assertFile(t, filepath.Join(root, "x", "file"), "v1")
	})
}

func TestSync_Docs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend Backend) {
		tmp := t.TempDir()
		upstream := filepath.Join(tmp, "upstream")
		root := filepath.Join(tmp, "root")

		mustInitRepo(t, upstream, "file", "v1")
		mustExec(t, upstream, "git", "checkout", "-q", "-b", DefaultDocsBranch)
		mustCommit(t, upstream, "index.html", "docs-v1")
		mustExec(t, upstream, "git", "checkout", "-q", testMainBranch)

		entry := resolve.Entry{LocalPath: "x", CloneURL: "file://" + upstream}
		dst := filepath.Join(root, "x")
		e := mustNewEngine(t, root, true, 1, backend)

		t.Log("TEST-1: clone creates tracking docs branch")
		got := e.Sync(testCtx, []resolve.Entry{entry})
		assertResult(t, got[0], StatusCloned)
		if !got[0].DocsSynced || got[0].DocsErr != nil {
			t.Errorf("DocsSynced = %v DocsErr = %v, want synced", got[0].DocsSynced, got[0].DocsErr)
		}
		if got := mustCurrentBranch(t, dst); got != testMainBranch {
			t.Errorf("current branch = %q, want %q", got, testMainBranch)
		}
		if got := mustExec(t, dst, "git", "show", DefaultDocsBranch+":index.html"); got != "docs-v1" {
			t.Errorf("docs content = %q, want %q", got, "docs-v1")
		}
		assertMissingFile(t, dst, "index.html")

		t.Log("TEST-2: update pulls existing docs branch")
		mustExec(t, upstream, "git", "checkout", "-q", DefaultDocsBranch)
		mustCommit(t, upstream, "index.html", "docs-v2")
		mustExec(t, upstream, "git", "checkout", "-q", testMainBranch)

		got = e.Sync(testCtx, []resolve.Entry{entry})
		assertResult(t, got[0], StatusUpdated)
		if !got[0].DocsSynced || got[0].DocsErr != nil {
			t.Errorf("DocsSynced = %v DocsErr = %v, want synced", got[0].DocsSynced, got[0].DocsErr)
		}
		if got := mustCurrentBranch(t, dst); got != testMainBranch {
			t.Errorf("current branch = %q, want %q", got, testMainBranch)
		}
		if got := mustExec(t, dst, "git", "show", DefaultDocsBranch+":index.html"); got != "docs-v2" {
			t.Errorf("docs content = %q, want %q", got, "docs-v2")
		}
	})
}

func TestSync_DocsDisabledOrMissing(t *testing.T) {
	tmp := t.TempDir()
	withDocs := filepath.Join(tmp, "with-docs")
	withoutDocs := filepath.Join(tmp, "without-docs")
	root := filepath.Join(tmp, "root")

	mustInitRepo(t, withDocs, "file", "v1")
	mustExec(t, withDocs, "git", "checkout", "-q", "-b", DefaultDocsBranch)
	mustCommit(t, withDocs, "index.html", "docs")
	mustExec(t, withDocs, "git", "checkout", "-q", testMainBranch)

	mustInitRepo(t, withoutDocs, "file", "v1")

	t.Log("TEST-1: docs disabled")
	e := mustNewEngine(t, root, false, 1, nil)
	got := e.Sync(testCtx, []resolve.Entry{{LocalPath: "a", CloneURL: "file://" + withDocs}})
	assertResult(t, got[0], StatusCloned)
	if got[0].DocsSynced {
		t.Errorf("docs must not be synced when disabled")
	}
	if branches := mustExec(t, filepath.Join(root, "a"), "git", "branch", "--list", DefaultDocsBranch); branches != "" {
		t.Errorf("unexpected local docs branch: %q", branches)
	}

	t.Log("TEST-2: remote without docs branch")
	e = mustNewEngine(t, root, true, 1, nil)
	got = e.Sync(testCtx, []resolve.Entry{{LocalPath: "b", CloneURL: "file://" + withoutDocs}})
	assertResult(t, got[0], StatusCloned)
	if got[0].DocsSynced || got[0].DocsErr != nil {
		t.Errorf("DocsSynced = %v DocsErr = %v, want neither", got[0].DocsSynced, got[0].DocsErr)
	}
}

func TestSync_Submodules(t *testing.T) {
	tmp := t.TempDir()
	sub := filepath.Join(tmp, "sub")
	upstream := filepath.Join(tmp, "upstream")
	root := filepath.Join(tmp, "root")

	mustInitRepo(t, sub, "sub-file", "sub")
	mustInitRepo(t, upstream, "file", "v1")
	mustExec(t, upstream, "git", "submodule", "add", "-q", "file://"+sub, "lib")
	mustExec(t, upstream, "git", "commit", "-q", "-m", "add submodule")

	e := mustNewEngine(t, root, false, 1, NewExecBackend(testENVs, true, testLog))
	got := e.Sync(testCtx, []resolve.Entry{{LocalPath: "x", CloneURL: "file://" + upstream}})
	assertResult(t, got[0], StatusCloned)
	assertFile(t, filepath.Join(root, "x", "lib", "sub-file"), "sub")
}

func TestSync_Parallel(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "root")

	var entries []resolve.Entry
	for i := range 5 {
		upstream := filepath.Join(tmp, fmt.Sprintf("upstream-%d", i))
		mustInitRepo(t, upstream, "file", fmt.Sprintf("repo-%d", i))
		entries = append(entries, resolve.Entry{
			LocalPath: fmt.Sprintf("owner%d/x", i),
			CloneURL:  "file://" + upstream,
		})
	}

	e := mustNewEngine(t, root, false, 3, nil)
	got := e.Sync(testCtx, entries)

	var gotPaths []string
	for i, r := range got {
		assertResult(t, r, StatusCloned)
		gotPaths = append(gotPaths, r.Entry.LocalPath)
		assertFile(t, filepath.Join(root, fmt.Sprintf("owner%d", i), "x", "file"), fmt.Sprintf("repo-%d", i))
	}
	if diff := cmp.Diff([]string{"owner0/x", "owner1/x", "owner2/x", "owner3/x", "owner4/x"}, gotPaths); diff != "" {
		t.Errorf("results order mismatch (-want +got):\n%s", diff)
	}
}

func TestSync_CancelledContext(t *testing.T) {
	tmp := t.TempDir()
	upstream := filepath.Join(tmp, "upstream")
	root := filepath.Join(tmp, "root")

	mustInitRepo(t, upstream, "file", "v1")

	ctx, cancel := context.WithCancel(testCtx)
	cancel()

	e := mustNewEngine(t, root, false, 1, nil)
	got := e.Sync(ctx, []resolve.Entry{{LocalPath: "x", CloneURL: "file://" + upstream}})
	if got[0].Status != StatusFailed || got[0].Err == nil {
		t.Errorf("status = %s err = %v, want failed", got[0].Status, got[0].Err)
	}
	assertMissingFile(t, root, "x")
}

func TestSync_DifferentRemoteStillUpdates(t *testing.T) {
	tmp := t.TempDir()
	upstream := filepath.Join(tmp, "upstream")
	other := filepath.Join(tmp, "other")
	root := filepath.Join(tmp, "root")

	mustInitRepo(t, upstream, "file", "v1")
	mustInitRepo(t, other, "file", "other")

	e := mustNewEngine(t, root, false, 1, nil)
	assertResult(t, e.Sync(testCtx, []resolve.Entry{{LocalPath: "x", CloneURL: "file://" + upstream}})[0], StatusCloned)

	mustCommit(t, upstream, "file", "v2")
	// working copy keeps pulling from its own origin
	got := e.Sync(testCtx, []resolve.Entry{{LocalPath: "x", CloneURL: "file://" + other}})
	assertResult(t, got[0], StatusUpdated)
	assertFile(t, filepath.Join(root, "x", "file"), "v2")
}

func TestSync_SharedLocalPath(t *testing.T) {
	for _, jobs := range []int{1, 2} {
		t.Run(fmt.Sprintf("jobs-%d", jobs), func(t *testing.T) {
			tmp := t.TempDir()
			first := filepath.Join(tmp, "first")
			second := filepath.Join(tmp, "second")
			root := filepath.Join(tmp, "root")

			mustInitRepo(t, first, "file", "first")
			mustInitRepo(t, second, "file", "second")
			entries := []resolve.Entry{
				{LocalPath: "a-x", CloneURL: "file://" + first, OwnerLogin: "a"},
				{LocalPath: "a-x", CloneURL: "file://" + second, OwnerLogin: "c"},
			}

			e := mustNewEngine(t, root, false, jobs, nil)
			got := e.Sync(testCtx, entries)

			assertResult(t, got[0], StatusCloned)
			if got[1].Status != StatusFailed || got[1].Err == nil {
				t.Errorf("second entry: status = %s err = %v, want failed", got[1].Status, got[1].Err)
			}
			assertFile(t, filepath.Join(root, "a-x", "file"), "first")

			// rerun only updates working copy of the first entry
			mustCommit(t, second, "file", "second-v2")
			got = e.Sync(testCtx, entries)
			assertResult(t, got[0], StatusUpdated)
			if got[1].Status != StatusFailed {
				t.Errorf("second entry: status = %s, want failed", got[1].Status)
			}
			assertFile(t, filepath.Join(root, "a-x", "file"), "first")
		})
	}
}

func TestSync_PathOutsideRoot(t *testing.T) {
	tmp := t.TempDir()
	upstream := filepath.Join(tmp, "upstream")
	root := filepath.Join(tmp, "root")

	mustInitRepo(t, upstream, "file", "v1")
	entries := []resolve.Entry{
		{LocalPath: "../escape", CloneURL: "file://" + upstream},
		{LocalPath: "owner/../../escape2", CloneURL: "file://" + upstream},
		{LocalPath: filepath.ToSlash(filepath.Join(tmp, "abs")), CloneURL: "file://" + upstream},
		{LocalPath: "", CloneURL: "file://" + upstream},
		{LocalPath: "ok/x", CloneURL: "file://" + upstream},
	}

	e := mustNewEngine(t, root, false, 2, nil)
	got := e.Sync(testCtx, entries)

	for _, r := range got[:4] {
		if r.Status != StatusFailed || r.Err == nil {
			t.Errorf("%q: status = %s err = %v, want failed", r.Entry.LocalPath, r.Status, r.Err)
		}
	}
	assertResult(t, got[4], StatusCloned)

	assertMissingFile(t, tmp, "escape")
	assertMissingFile(t, tmp, "escape2")
	assertMissingFile(t, tmp, "abs")
	assertFile(t, filepath.Join(root, "ok", "x", "file"), "v1")
}

func TestNew_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a", "b")
	e := mustNewEngine(t, root, false, 0, nil)
	if e.Root() != root {
		t.Errorf("Root() = %q, want %q", e.Root(), root)
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		t.Errorf("root was not created err:%v", err)
	}
	if e.jobs != 1 || e.remote != DefaultRemote || e.docsBranch != DefaultDocsBranch {
		t.Errorf("defaults not applied: jobs=%d remote=%s docs=%s", e.jobs, e.remote, e.docsBranch)
	}
}

func assertResult(t *testing.T, got Result, want Status) {
	t.Helper()
	if got.Status != want {
		t.Errorf("%s: status = %s, want %s err:%v", got.Entry.LocalPath, got.Status, want, got.Err)
	}
	if want != StatusFailed && got.Err != nil {
		t.Errorf("%s: unexpected err:%v", got.Entry.LocalPath, got.Err)
	}
}

func mustInitRepo(t *testing.T, repo, file, content string) string {
	t.Helper()

	if err := os.MkdirAll(repo, 0755); err != nil {
		t.Fatalf("unable to create repo dir err: %v", err)
	}
	mustExec(t, repo, "git", "init", "-q", "-b", testMainBranch)

	return mustCommit(t, repo, file, content)
}

func mustCommit(t *testing.T, repo, file, content string) string {
	t.Helper()

	if err := os.WriteFile(filepath.Join(repo, file), []byte(content), 0644); err != nil {
		t.Fatalf("unable to write to file err: %v", err)
	}
	mustExec(t, repo, "git", "add", file)
	mustExec(t, repo, "git", "commit", "-q", "-m", content)
	return mustExec(t, repo, "git", "rev-list", "-n1", "HEAD")
}

func mustCurrentBranch(t *testing.T, repo string) string {
	t.Helper()
	return mustExec(t, repo, "git", "rev-parse", "--abbrev-ref", "HEAD")
}

func assertFile(t *testing.T, absFile string, expected string) {
	t.Helper()

	if got, err := os.ReadFile(absFile); err != nil {
		t.Fatalf("unable to read file error: %v", err)
	} else if string(got) != expected {
		t.Errorf("expected %q to contain %q but got %q", absFile, expected, got)
	}
}

func assertMissingFile(t *testing.T, path, file string) {
	t.Helper()

	_, err := os.Stat(filepath.Join(path, file))
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("unable to read existing file error: %v", err)
	} else if err == nil {
		t.Errorf("file (%s) exits but it should not", filepath.Join(path, file))
	}
}

func mustExec(t *testing.T, cwd string, name string, arg ...string) string {
	t.Helper()

	cmd := exec.Command(name, arg...)
	if cwd != "" {
		cmd.Dir = cwd
	}
	cmd.Env = append(os.Environ(), testENVs...)

	stdoutStderr, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("err:%v run(%s): { stdoutStderr %q }", err, cmd.String(), stdoutStderr)
	}
	return strings.TrimSpace(string(stdoutStderr))
}
