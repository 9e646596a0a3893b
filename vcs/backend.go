// Package vcs fetches and tags project sources. A Backend is chosen once
// from configuration: Subversion checks out and tags server-side, git does
// a shallow clone and leaves tagging to the operator.
package vcs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/config"
	"github.com/minios-linux/relkit/console"
)

// Backend fetches the project sources and creates the source part of a tag.
type Backend interface {
	Name() string
	// Repository is the default repository passed to FetchSource.
	Repository() string
	// FetchSource replaces dest with a fresh copy of the sources.
	FetchSource(ctx context.Context, repoURL, dest string) error
	// TagSource creates the tag location and copies the sources into it.
	TagSource(ctx context.Context, tagURL string) error
}

// New returns the backend selected by cfg.VCS.
func New(cfg config.ReleaseConfig, svn Subversion, log *console.Logger) (Backend, error) {
	switch cfg.VCS {
	case config.VCSSubversion:
		return &SVNBackend{SVN: svn, Cfg: cfg, Log: log}, nil
	case config.VCSGit:
		return &GitBackend{Cfg: cfg, Log: log}, nil
	}
	return nil, goerr.New("unsupported vcs", goerr.V("vcs", cfg.VCS))
}

func resetDir(dest string) error {
	if err := os.RemoveAll(dest); err != nil {
		return goerr.Wrap(err, "removing previous working tree", goerr.V("path", dest))
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return goerr.Wrap(err, "creating output directory", goerr.V("path", filepath.Dir(dest)))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Subversion
// ---------------------------------------------------------------------------

// SVNBackend keeps sources in a Subversion repository.
type SVNBackend struct {
	SVN Subversion
	Cfg config.ReleaseConfig
	Log *console.Logger
}

func (b *SVNBackend) Name() string { return "Subversion" }

func (b *SVNBackend) Repository() string { return b.Cfg.RepositoryURL() }

// FetchSource checks out <repo>/<branch>/<component>/<section>/[prefix/]<name>.
func (b *SVNBackend) FetchSource(ctx context.Context, repoURL, dest string) error {
	if err := resetDir(dest); err != nil {
		return err
	}
	url := b.Cfg.SourceURLAt(repoURL)
	b.Log.Info("Checking out %s", url)
	if err := b.SVN.Checkout(ctx, url, dest, DepthInfinity); err != nil {
		return goerr.Wrap(err, "source checkout failed", goerr.V("url", url))
	}
	return nil
}

// TagSource creates tagURL and copies the source location to tagURL/src.
func (b *SVNBackend) TagSource(ctx context.Context, tagURL string) error {
	msg := fmt.Sprintf("Create tag for %s %s", b.Cfg.Name, b.Cfg.Version)
	if err := b.SVN.Mkdir(ctx, tagURL, msg); err != nil {
		return goerr.Wrap(err, "creating tag directory", goerr.V("url", tagURL))
	}
	src := b.Cfg.SourceURL()
	if err := b.SVN.Copy(ctx, src, tagURL+"/src", msg); err != nil {
		return goerr.Wrap(err, "copying sources into tag", goerr.V("from", src), goerr.V("to", tagURL))
	}
	b.Log.Success("Tagged sources at %s/src", tagURL)
	return nil
}

// ---------------------------------------------------------------------------
// git
// ---------------------------------------------------------------------------

// GitBackend clones sources from a git remote.
type GitBackend struct {
	Cfg config.ReleaseConfig
	Log *console.Logger
}

func (b *GitBackend) Name() string { return "git" }

func (b *GitBackend) Repository() string { return b.Cfg.GitURL() }

// CloneOptions returns the shallow clone options for url.
func (b *GitBackend) CloneOptions(url string) *git.CloneOptions {
	opts := &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if b.Cfg.GitBranch != "" && b.Cfg.GitBranch != "master" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(b.Cfg.GitBranch)
	}
	return opts
}

// FetchSource shallow-clones repoURL into dest, on GitBranch when set.
func (b *GitBackend) FetchSource(ctx context.Context, repoURL, dest string) error {
	if err := resetDir(dest); err != nil {
		return err
	}
	opts := b.CloneOptions(repoURL)
	if opts.ReferenceName != "" {
		b.Log.Info("Cloning %s (branch %s)", repoURL, b.Cfg.GitBranch)
	} else {
		b.Log.Info("Cloning %s", repoURL)
	}
	if _, err := git.PlainCloneContext(ctx, dest, false, opts); err != nil {
		return goerr.Wrap(err, "git clone failed", goerr.V("url", repoURL), goerr.V("branch", b.Cfg.GitBranch))
	}
	return nil
}

// TagSource does not tag: the git host refuses the push --force needed to
// move a mistaken tag, so the operator tags after checking the tarball.
func (b *GitBackend) TagSource(_ context.Context, _ string) error {
	tag := "v" + b.Cfg.Version
	b.Log.Warning("Tagging is not automated for git repositories. Once the tarball is verified, run:")
	w := b.Log.Writer()
	fmt.Fprintf(w, "  git clone %s %s\n", b.Cfg.GitURL(), b.Cfg.Name)
	fmt.Fprintf(w, "  cd %s\n", b.Cfg.Name)
	if b.Cfg.GitBranch != "" {
		fmt.Fprintf(w, "  git checkout %s\n", b.Cfg.GitBranch)
	}
	fmt.Fprintf(w, "  git tag -a %s -m \"Tagging %s %s\"\n", tag, b.Cfg.Name, b.Cfg.Version)
	fmt.Fprintf(w, "  git push origin %s\n", tag)
	return nil
}
