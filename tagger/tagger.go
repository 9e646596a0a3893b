// Package tagger records a release in the Subversion tag tree: sources
// first, then the fetched translations and handbooks.
package tagger

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/config"
	"github.com/minios-linux/relkit/console"
	"github.com/minios-linux/relkit/docs"
	"github.com/minios-linux/relkit/l10n"
	"github.com/minios-linux/relkit/release"
	"github.com/minios-linux/relkit/vcs"
)

// Tagger creates the tag of one release.
type Tagger struct {
	Backend vcs.Backend
	SVN     vcs.Subversion
	Cfg     config.ReleaseConfig
	Log     *console.Logger
	// FailFast stops after a failed source tag instead of tagging
	// translations and handbooks into a possibly missing tag.
	FailFast bool
}

// Input is what the earlier stages contributed.
type Input struct {
	// Tree is the working tree holding po/ and doc-translations/.
	Tree       string
	Languages  []release.LanguageEntry
	DocLocales []release.LanguageEntry
}

// Tag runs the three tagging steps. Steps two and three are skipped when
// nothing was fetched for them.
func (t *Tagger) Tag(ctx context.Context, in Input) error {
	tagURL := t.Cfg.TagURL()
	t.Log.Info("Tagging %s %s at %s", t.Cfg.Name, t.Cfg.Version, tagURL)

	if err := t.Backend.TagSource(ctx, tagURL); err != nil {
		if t.FailFast {
			return goerr.Wrap(err, "tagging sources", goerr.V("url", tagURL))
		}
		t.Log.Error("Tagging sources failed: %v", err)
	}

	if len(in.Languages) == 0 && len(in.DocLocales) == 0 {
		return nil
	}
	if t.Cfg.VCS == config.VCSGit {
		// git sources are not in the tag tree; translations still are
		msg := fmt.Sprintf("Create l10n tag for %s %s", t.Cfg.Name, t.Cfg.Version)
		if err := t.SVN.Mkdir(ctx, tagURL, msg); err != nil {
			return goerr.Wrap(err, "creating tag directory", goerr.V("url", tagURL))
		}
	}

	if len(in.Languages) > 0 {
		if err := t.tagSubtree(ctx, tagURL, filepath.Join(in.Tree, l10n.Dir), l10n.Dir, in.Languages); err != nil {
			return err
		}
	}
	if len(in.DocLocales) > 0 {
		if err := t.tagSubtree(ctx, tagURL, filepath.Join(in.Tree, docs.TranslationsDir), docs.TranslationsDir, in.DocLocales); err != nil {
			return err
		}
	}
	return nil
}

// tagSubtree checks the tag out without content, copies each language's
// files under sub/<code> and commits.
func (t *Tagger) tagSubtree(ctx context.Context, tagURL, srcDir, sub string, langs []release.LanguageEntry) error {
	wc, err := os.MkdirTemp("", "relkit-tag-")
	if err != nil {
		return goerr.Wrap(err, "creating tag working copy")
	}
	defer os.RemoveAll(wc)

	if err := t.SVN.Checkout(ctx, tagURL, wc, vcs.DepthEmpty); err != nil {
		return goerr.Wrap(err, "checking out tag", goerr.V("url", tagURL))
	}

	target := filepath.Join(wc, sub)
	if err := os.MkdirAll(target, 0755); err != nil {
		return goerr.Wrap(err, "creating tag subdirectory", goerr.V("path", target))
	}
	for _, lang := range langs {
		for _, file := range lang.Files {
			from := filepath.Join(srcDir, lang.Code, filepath.FromSlash(file))
			to := filepath.Join(target, lang.Code, filepath.FromSlash(file))
			if err := copyFile(from, to); err != nil {
				return err
			}
		}
	}

	if err := t.SVN.Add(ctx, target); err != nil {
		return goerr.Wrap(err, "adding files to tag", goerr.V("path", target))
	}
	msg := fmt.Sprintf("Add %s for %s %s", sub, t.Cfg.Name, t.Cfg.Version)
	if err := t.SVN.Commit(ctx, wc, msg); err != nil {
		return goerr.Wrap(err, "committing tag", goerr.V("url", tagURL), goerr.V("subdir", sub))
	}
	t.Log.Success("Tagged %s (%s)", sub, joinCodes(langs))
	return nil
}

func joinCodes(langs []release.LanguageEntry) string {
	return strings.Join(release.Codes(langs), " ")
}

func copyFile(from, to string) error {
	info, err := os.Stat(from)
	if err != nil {
		return goerr.Wrap(err, "reading file to tag", goerr.V("path", from))
	}
	data, err := os.ReadFile(from)
	if err != nil {
		return goerr.Wrap(err, "reading file to tag", goerr.V("path", from))
	}
	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return goerr.Wrap(err, "creating tag directory", goerr.V("path", filepath.Dir(to)))
	}
	if err := os.WriteFile(to, data, info.Mode().Perm()|fs.FileMode(0600)); err != nil {
		return goerr.Wrap(err, "writing tagged file", goerr.V("path", to))
	}
	return nil
}
