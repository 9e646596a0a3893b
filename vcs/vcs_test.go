package vcs_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/google/go-cmp/cmp"
	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/config"
	"github.com/minios-linux/relkit/console"
	"github.com/minios-linux/relkit/release"
	"github.com/minios-linux/relkit/runner"
	"github.com/minios-linux/relkit/vcs"
	"github.com/minios-linux/relkit/vcs/vcstest"
)

// scriptedRunner returns canned results and records commands.
type scriptedRunner struct {
	commands []runner.Command
	stderr   string
	fail     bool
	stdout   string
}

func (s *scriptedRunner) Run(_ context.Context, cmd runner.Command) (*runner.Result, error) {
	s.commands = append(s.commands, cmd)
	res := &runner.Result{Stdout: []byte(s.stdout), Stderr: []byte(s.stderr)}
	if s.fail {
		res.ExitCode = 1
		return res, goerr.Wrap(errors.New("exit status 1"), "command failed", goerr.T(release.TagSubprocess))
	}
	return res, nil
}

func testConfig() config.ReleaseConfig {
	cfg := config.Defaults()
	cfg.Name = "digikam"
	cfg.Version = "1.2.0"
	cfg.Component = "extragear"
	cfg.Section = "graphics"
	return cfg
}

func TestSVNClientArguments(t *testing.T) {
	r := &scriptedRunner{}
	c := vcs.NewSVNClient(r, "jdoe")

	if err := c.Checkout(context.Background(), "svn://h/trunk/x", "/tmp/x", vcs.DepthEmpty); err != nil {
		t.Fatalf("Checkout error: %v", err)
	}
	want := []string{"checkout", "--non-interactive", "--username", "jdoe", "--depth", "empty", "svn://h/trunk/x", "/tmp/x"}
	if diff := cmp.Diff(want, r.commands[0].Args); diff != "" {
		t.Fatalf("checkout args mismatch (-want +got):\n%s", diff)
	}
	if r.commands[0].Name != "svn" {
		t.Fatalf("Name = %q, want svn", r.commands[0].Name)
	}

	if err := c.Commit(context.Background(), "/tmp/wc", "msg"); err != nil {
		t.Fatalf("Commit error: %v", err)
	}
	if got := r.commands[1].Dir; got != "/tmp/wc" {
		t.Fatalf("Commit Dir = %q, want /tmp/wc", got)
	}
}

func TestSVNClientClassifiesErrors(t *testing.T) {
	cases := []struct {
		name   string
		stderr string
		denied bool
	}{
		{"not found", "svn: E170000: URL 'svn://h/x' doesn't exist", false},
		{"non-existent", "svn: warning: W160013: path non-existent", false},
		{"denied", "svn: E170001: Authorization failed", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := vcs.NewSVNClient(&scriptedRunner{fail: true, stderr: tc.stderr}, "")
			err := c.Export(context.Background(), "svn://h/x", "/tmp/x")
			if got := goerr.HasTag(err, release.TagAccessDenied); got != tc.denied {
				t.Fatalf("HasTag(access denied) = %v, want %v (err %v)", got, tc.denied, err)
			}
			if got := goerr.HasTag(err, release.TagNotFound); got == tc.denied {
				t.Fatalf("HasTag(not found) = %v, want %v (err %v)", got, !tc.denied, err)
			}
		})
	}
}

func TestSVNClientExists(t *testing.T) {
	c := vcs.NewSVNClient(&scriptedRunner{fail: true, stderr: "svn: E170000: not there"}, "")
	ok, err := c.Exists(context.Background(), "svn://h/x")
	if err != nil || ok {
		t.Fatalf("Exists = %v, %v; want false, nil", ok, err)
	}

	c = vcs.NewSVNClient(&scriptedRunner{fail: true, stderr: "svn: E215004: no more credentials"}, "")
	if _, err := c.Exists(context.Background(), "svn://h/x"); !goerr.HasTag(err, release.TagAccessDenied) {
		t.Fatalf("Exists error = %v, want access denied", err)
	}
}

func TestSVNBackendFetchSource(t *testing.T) {
	repo := vcstest.New(t)
	repo.WriteFile(t, "trunk/extragear/graphics/digikam/CMakeLists.txt", "project(digikam)\n")

	cfg := testConfig()
	cfg.Repository = vcstest.Root
	dest := filepath.Join(t.TempDir(), "digikam-1.2.0")
	if err := os.MkdirAll(filepath.Join(dest, "stale"), 0755); err != nil {
		t.Fatal(err)
	}

	b, err := vcs.New(cfg, repo, console.Discard())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if b.Name() != "Subversion" {
		t.Fatalf("Name() = %q", b.Name())
	}
	if err := b.FetchSource(context.Background(), b.Repository(), dest); err != nil {
		t.Fatalf("FetchSource error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "CMakeLists.txt")); err != nil {
		t.Fatalf("source file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "stale")); !os.IsNotExist(err) {
		t.Fatal("previous tree content survived FetchSource")
	}
}

func TestSVNBackendFetchSourceMissing(t *testing.T) {
	repo := vcstest.New(t)
	cfg := testConfig()
	cfg.Repository = vcstest.Root

	b, _ := vcs.New(cfg, repo, console.Discard())
	err := b.FetchSource(context.Background(), b.Repository(), filepath.Join(t.TempDir(), "x"))
	if !goerr.HasTag(err, release.TagNotFound) {
		t.Fatalf("FetchSource error = %v, want not found", err)
	}
}

func TestSVNBackendTagSource(t *testing.T) {
	repo := vcstest.New(t)
	repo.WriteFile(t, "trunk/extragear/graphics/digikam/main.cpp", "int main() {}\n")

	cfg := testConfig()
	cfg.Repository = vcstest.Root
	b, _ := vcs.New(cfg, repo, console.Discard())

	if err := b.TagSource(context.Background(), cfg.TagURL()); err != nil {
		t.Fatalf("TagSource error: %v", err)
	}
	got, err := os.ReadFile(repo.Path("tags/digikam/1.2.0/src/main.cpp"))
	if err != nil {
		t.Fatalf("tagged file missing: %v", err)
	}
	if string(got) != "int main() {}\n" {
		t.Fatalf("tagged content = %q", got)
	}
	want := []string{
		"mkdir fake://repo/tags/digikam/1.2.0",
		"copy fake://repo/trunk/extragear/graphics/digikam fake://repo/tags/digikam/1.2.0/src",
	}
	if diff := cmp.Diff(want, repo.Calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestGitBackendCloneOptions(t *testing.T) {
	cfg := testConfig()
	cfg.VCS = config.VCSGit
	b := &vcs.GitBackend{Cfg: cfg, Log: console.Discard()}

	opts := b.CloneOptions("https://example.org/digikam.git")
	if opts.Depth != 1 || !opts.SingleBranch {
		t.Fatalf("clone is not shallow single-branch: %+v", opts)
	}
	if opts.ReferenceName != "" {
		t.Fatalf("ReferenceName = %q, want remote default", opts.ReferenceName)
	}

	b.Cfg.GitBranch = "stable-1.x"
	opts = b.CloneOptions("https://example.org/digikam.git")
	if want := plumbing.NewBranchReferenceName("stable-1.x"); opts.ReferenceName != want {
		t.Fatalf("ReferenceName = %q, want %q", opts.ReferenceName, want)
	}
}

// seedGitRepo creates a repository holding one commit of main.cpp.
func seedGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.cpp"), []byte("int main() {}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if _, err := wt.Add("main.cpp"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err = wt.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "t", Email: "t@example.org", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return dir
}

func TestGitFetchSourceReplacesDest(t *testing.T) {
	src := seedGitRepo(t)
	dest := filepath.Join(t.TempDir(), "work", "digikam")
	if err := os.MkdirAll(filepath.Join(dest, "stale"), 0755); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.VCS = config.VCSGit
	b := &vcs.GitBackend{Cfg: cfg, Log: console.Discard()}
	if err := b.FetchSource(context.Background(), src, dest); err != nil {
		t.Fatalf("FetchSource error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "main.cpp"))
	if err != nil {
		t.Fatalf("main.cpp not cloned: %v", err)
	}
	if string(data) != "int main() {}\n" {
		t.Fatalf("main.cpp = %q", data)
	}
	if _, err := os.Stat(filepath.Join(dest, "stale")); !os.IsNotExist(err) {
		t.Fatalf("stale directory survived the fetch (stat err %v)", err)
	}
}

func TestGitFetchSourceMissingRepository(t *testing.T) {
	cfg := testConfig()
	cfg.VCS = config.VCSGit
	b := &vcs.GitBackend{Cfg: cfg, Log: console.Discard()}

	dest := filepath.Join(t.TempDir(), "digikam")
	err := b.FetchSource(context.Background(), filepath.Join(t.TempDir(), "nope"), dest)
	if err == nil {
		t.Fatal("FetchSource succeeded for a missing repository")
	}
}

func TestGitBackendTagSourcePrintsInstructions(t *testing.T) {
	cfg := testConfig()
	cfg.VCS = config.VCSGit
	cfg.CustomSrc = "https://example.org/digikam.git"
	var buf bytes.Buffer
	b, err := vcs.New(cfg, nil, console.New(&buf))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if b.Repository() != cfg.CustomSrc {
		t.Fatalf("Repository() = %q, want custom source", b.Repository())
	}
	if err := b.TagSource(context.Background(), cfg.TagURL()); err != nil {
		t.Fatalf("TagSource error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"git tag -a v1.2.0", "git push origin v1.2.0", "git clone https://example.org/digikam.git"} {
		if !strings.Contains(out, want) {
			t.Fatalf("instructions missing %q:\n%s", want, out)
		}
	}
}

func TestNewRejectsUnknownVCS(t *testing.T) {
	cfg := testConfig()
	cfg.VCS = "cvs"
	if _, err := vcs.New(cfg, nil, console.Discard()); err == nil {
		t.Fatal("New accepted an unknown vcs")
	}
}
