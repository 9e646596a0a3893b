// Package vcstest provides a directory-backed Subversion fake. Remote URLs
// of the form fake://repo/<path> map to files under a temporary root, so
// fetchers and the tagger can be exercised without an svn server.
package vcstest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/release"
	"github.com/minios-linux/relkit/vcs"
)

// Root is the URL prefix served by a Repo.
const Root = "fake://repo"

const metaDir = ".svn"

// Repo implements vcs.Subversion on top of a local directory.
type Repo struct {
	Dir string
	// Calls records every operation as "<op> <args...>".
	Calls []string
	// Denied makes every operation on a URL with one of these prefixes
	// fail with an access-denied error.
	Denied []string
}

var _ vcs.Subversion = (*Repo)(nil)

// New returns an empty repository rooted in a test temp dir.
func New(t testing.TB) *Repo {
	t.Helper()
	return &Repo{Dir: t.TempDir()}
}

// URL returns the remote URL of a repository-relative path.
func (r *Repo) URL(rel string) string {
	return Root + "/" + strings.TrimPrefix(rel, "/")
}

// WriteFile seeds a remote file, creating parent directories.
func (r *Repo) WriteFile(t testing.TB, rel, content string) {
	t.Helper()
	path := filepath.Join(r.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

// Path returns the local path backing a repository-relative path.
func (r *Repo) Path(rel string) string {
	return filepath.Join(r.Dir, filepath.FromSlash(rel))
}

// Count returns how many recorded calls start with op.
func (r *Repo) Count(op string) int {
	n := 0
	for _, c := range r.Calls {
		if c == op || strings.HasPrefix(c, op+" ") {
			n++
		}
	}
	return n
}

func (r *Repo) record(op string, args ...string) {
	r.Calls = append(r.Calls, strings.Join(append([]string{op}, args...), " "))
}

func (r *Repo) resolve(url string) (string, error) {
	for _, p := range r.Denied {
		if strings.HasPrefix(url, p) {
			return "", goerr.New("authorization failed", goerr.V("url", url), goerr.T(release.TagAccessDenied))
		}
	}
	if !strings.HasPrefix(url, Root) {
		return "", goerr.New("unsupported url", goerr.V("url", url))
	}
	rel := strings.Trim(strings.TrimPrefix(url, Root), "/")
	return filepath.Join(r.Dir, filepath.FromSlash(rel)), nil
}

func (r *Repo) existing(url string) (string, os.FileInfo, error) {
	path, err := r.resolve(url)
	if err != nil {
		return "", nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, goerr.Wrap(err, "path not found", goerr.V("url", url), goerr.T(release.TagNotFound))
	}
	return path, info, nil
}

func (r *Repo) Checkout(_ context.Context, url, dest, depth string) error {
	r.record("checkout", url, dest, depth)
	src, info, err := r.existing(url)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return goerr.New("cannot check out a file", goerr.V("url", url))
	}
	if depth == vcs.DepthEmpty {
		if err := os.MkdirAll(dest, 0755); err != nil {
			return err
		}
	} else if err := copyTree(src, dest); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Join(dest, metaDir), 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dest, metaDir, "url"), []byte(url), 0644)
}

func (r *Repo) Export(_ context.Context, url, dest string) error {
	r.record("export", url, dest)
	src, info, err := r.existing(url)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return copyTree(src, dest)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return copyFile(src, dest)
}

func (r *Repo) Exists(_ context.Context, url string) (bool, error) {
	r.record("exists", url)
	_, _, err := r.existing(url)
	if err == nil {
		return true, nil
	}
	if goerr.HasTag(err, release.TagNotFound) {
		return false, nil
	}
	return false, err
}

func (r *Repo) Cat(_ context.Context, url string) ([]byte, error) {
	r.record("cat", url)
	path, info, err := r.existing(url)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, goerr.New("cannot cat a directory", goerr.V("url", url))
	}
	return os.ReadFile(path)
}

func (r *Repo) Mkdir(_ context.Context, url, _ string) error {
	r.record("mkdir", url)
	path, err := r.resolve(url)
	if err != nil {
		return err
	}
	return os.MkdirAll(path, 0755)
}

func (r *Repo) Copy(_ context.Context, src, dst, _ string) error {
	r.record("copy", src, dst)
	from, _, err := r.existing(src)
	if err != nil {
		return err
	}
	to, err := r.resolve(dst)
	if err != nil {
		return err
	}
	if _, err := os.Stat(filepath.Dir(to)); err != nil {
		return goerr.Wrap(err, "copy target parent missing", goerr.V("url", dst), goerr.T(release.TagNotFound))
	}
	return copyTree(from, to)
}

func (r *Repo) Add(_ context.Context, paths ...string) error {
	r.record("add", paths...)
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return goerr.Wrap(err, "add: path not found", goerr.V("path", p))
		}
	}
	return nil
}

// Commit copies the working copy at dir back to the URL it was checked out from.
func (r *Repo) Commit(_ context.Context, dir, _ string) error {
	r.record("commit", dir)
	raw, err := os.ReadFile(filepath.Join(dir, metaDir, "url"))
	if err != nil {
		return goerr.Wrap(err, "not a working copy", goerr.V("dir", dir))
	}
	target, err := r.resolve(string(raw))
	if err != nil {
		return err
	}
	return copyTree(dir, target)
}

// copyTree copies src into dst, skipping working-copy metadata.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == metaDir {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
