package vcs

import (
	"bytes"
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/release"
	"github.com/minios-linux/relkit/runner"
)

// Checkout depths understood by Subversion.
const (
	DepthInfinity  = ""
	DepthEmpty     = "empty"
	DepthFiles     = "files"
	DepthImmediate = "immediates"
)

// Subversion is the set of repository operations the fetchers and the
// tagger need. URLs are full repository URLs; paths are local.
type Subversion interface {
	// Checkout creates a working copy of url at dest.
	Checkout(ctx context.Context, url, dest, depth string) error
	// Export copies url (file or directory) to dest without metadata.
	Export(ctx context.Context, url, dest string) error
	// Exists reports whether url exists in the repository.
	Exists(ctx context.Context, url string) (bool, error)
	// Cat returns the content of a remote file.
	Cat(ctx context.Context, url string) ([]byte, error)
	// Mkdir creates a remote directory and its parents.
	Mkdir(ctx context.Context, url, message string) error
	// Copy does a server-side copy.
	Copy(ctx context.Context, src, dst, message string) error
	// Add schedules local paths for addition.
	Add(ctx context.Context, paths ...string) error
	// Commit commits the working copy at dir.
	Commit(ctx context.Context, dir, message string) error
}

// SVNClient implements Subversion with the svn command-line client.
type SVNClient struct {
	Runner runner.Runner
	// User is passed as --username when set.
	User string
}

// NewSVNClient returns a client using r, or the os/exec runner when r is nil.
func NewSVNClient(r runner.Runner, user string) *SVNClient {
	if r == nil {
		r = runner.Exec{}
	}
	return &SVNClient{Runner: r, User: user}
}

func (c *SVNClient) run(ctx context.Context, dir string, args ...string) (*runner.Result, error) {
	full := []string{args[0], "--non-interactive"}
	if c.User != "" {
		full = append(full, "--username", c.User)
	}
	full = append(full, args[1:]...)

	res, err := c.Runner.Run(ctx, runner.Command{Name: "svn", Args: full, Dir: dir})
	if err != nil {
		return res, classify(err, res)
	}
	return res, nil
}

// classify adds NotFound/AccessDenied tags based on svn's error codes.
func classify(err error, res *runner.Result) error {
	if res == nil {
		return err
	}
	stderr := string(res.Stderr)
	switch {
	case containsAny(stderr, "E170000", "W160013", "E160013", "E200009", "non-existent", "path not found"):
		return goerr.Wrap(err, "remote path not found", goerr.T(release.TagNotFound))
	case containsAny(stderr, "E170001", "E215004", "E175013", "Authorization failed", "authorization failed"):
		return goerr.Wrap(err, "repository access denied", goerr.T(release.TagAccessDenied))
	}
	return err
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func (c *SVNClient) Checkout(ctx context.Context, url, dest, depth string) error {
	args := []string{"checkout"}
	if depth != DepthInfinity {
		args = append(args, "--depth", depth)
	}
	args = append(args, url, dest)
	_, err := c.run(ctx, "", args...)
	return err
}

func (c *SVNClient) Export(ctx context.Context, url, dest string) error {
	_, err := c.run(ctx, "", "export", "--force", url, dest)
	return err
}

func (c *SVNClient) Exists(ctx context.Context, url string) (bool, error) {
	_, err := c.run(ctx, "", "info", url)
	if err == nil {
		return true, nil
	}
	if goerr.HasTag(err, release.TagNotFound) {
		return false, nil
	}
	return false, err
}

func (c *SVNClient) Cat(ctx context.Context, url string) ([]byte, error) {
	res, err := c.run(ctx, "", "cat", url)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(res.Stdout), nil
}

func (c *SVNClient) Mkdir(ctx context.Context, url, message string) error {
	_, err := c.run(ctx, "", "mkdir", "--parents", "-m", message, url)
	return err
}

func (c *SVNClient) Copy(ctx context.Context, src, dst, message string) error {
	_, err := c.run(ctx, "", "copy", "-m", message, src, dst)
	return err
}

func (c *SVNClient) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--force", "--parents"}, paths...)
	_, err := c.run(ctx, "", args...)
	return err
}

func (c *SVNClient) Commit(ctx context.Context, dir, message string) error {
	_, err := c.run(ctx, dir, "commit", "-m", message)
	return err
}
