// Package l10n pulls the translation catalogs of a project out of the
// localization tree into <tree>/po/<lang>.
package l10n

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/buildsys"
	"github.com/minios-linux/relkit/config"
	"github.com/minios-linux/relkit/console"
	"github.com/minios-linux/relkit/pofile"
	"github.com/minios-linux/relkit/release"
	"github.com/minios-linux/relkit/vcs"
)

// Dir is the working tree subdirectory holding translations.
const Dir = "po"

const metaDir = ".svn"

// Reporter computes statistics for the fetched languages and returns the
// languages that survive the completeness barrier.
type Reporter interface {
	Report(ctx context.Context, poDir string, langs []release.LanguageEntry) ([]release.LanguageEntry, error)
}

// Fetcher retrieves translations for one release.
type Fetcher struct {
	SVN vcs.Subversion
	Cfg config.ReleaseConfig
	Log *console.Logger
	// Reporter runs after fetching unless Cfg.Stat is false. Optional.
	Reporter Reporter
}

// Fetch retrieves the catalogs of every locale in codes into tree/po and
// returns the contributing languages in the order of codes.
func (f *Fetcher) Fetch(ctx context.Context, tree string, codes []string) ([]release.LanguageEntry, error) {
	candidates, err := Candidates(tree)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		f.Log.Warning("No %s references a .pot template, skipping translations", ScriptName)
		return nil, nil
	}
	f.Log.Info("Translation catalogs: %v", candidates)

	poDir := filepath.Join(tree, Dir)
	if err := os.MkdirAll(poDir, 0755); err != nil {
		return nil, goerr.Wrap(err, "creating translation directory", goerr.V("path", poDir))
	}

	var langs []release.LanguageEntry
	for _, code := range codes {
		files, err := f.fetchLanguage(ctx, poDir, code, candidates)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			continue
		}
		f.Log.Success("%s: %d catalog(s)", code, len(files))
		langs = append(langs, release.LanguageEntry{Code: code, Files: files})
	}

	if len(langs) > 0 && f.Cfg.Stat && f.Reporter != nil {
		if langs, err = f.Reporter.Report(ctx, poDir, langs); err != nil {
			return nil, err
		}
	}

	if len(langs) == 0 {
		f.Log.Warning("No translations found")
		if err := os.RemoveAll(poDir); err != nil {
			return nil, goerr.Wrap(err, "removing empty translation directory", goerr.V("path", poDir))
		}
		return nil, nil
	}

	if err := buildsys.WriteSubdirs(poDir, release.Codes(langs)); err != nil {
		return nil, err
	}
	if err := buildsys.AddSubdirectory(tree, Dir); err != nil {
		return nil, err
	}
	if f.Cfg.Tag && f.Cfg.VCS == config.VCSSubversion {
		if err := f.SVN.Add(ctx, poDir); err != nil {
			return nil, goerr.Wrap(err, "registering translation directory", goerr.V("path", poDir))
		}
	}
	return langs, nil
}

// fetchLanguage retrieves one locale and returns its non-empty catalogs.
// The language directory is removed when nothing usable was found.
func (f *Fetcher) fetchLanguage(ctx context.Context, poDir, code string, candidates []string) ([]string, error) {
	langDir := filepath.Join(poDir, code)
	url := f.Cfg.L10nURL(code)

	var err error
	if len(candidates) == 1 && !f.Cfg.Tag {
		if err := os.MkdirAll(langDir, 0755); err != nil {
			return nil, goerr.Wrap(err, "creating language directory", goerr.V("path", langDir))
		}
		err = f.SVN.Export(ctx, url+"/"+candidates[0], filepath.Join(langDir, candidates[0]))
	} else {
		var ok bool
		if ok, err = f.SVN.Exists(ctx, url); err == nil && !ok {
			return nil, nil
		}
		if err == nil {
			err = f.SVN.Checkout(ctx, url, langDir, vcs.DepthInfinity)
		}
	}
	switch {
	case err == nil:
	case goerr.HasTag(err, release.TagNotFound):
		return nil, os.RemoveAll(langDir)
	default:
		return nil, goerr.Wrap(err, "fetching translations", goerr.V("lang", code), goerr.V("url", url))
	}

	files, err := f.prune(langDir, candidates)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, os.RemoveAll(langDir)
	}
	if err := buildsys.WriteTranslations(langDir, code, files); err != nil {
		return nil, err
	}
	return files, nil
}

// prune keeps only candidate catalogs with content in dir. Working copy
// metadata survives only when the release is tagged.
func (f *Fetcher) prune(dir string, candidates []string) ([]string, error) {
	want := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		want[c] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "listing language directory", goerr.V("path", dir))
	}

	var files []string
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.Name() == metaDir && f.Cfg.Tag {
			continue
		}
		if e.IsDir() || !want[e.Name()] {
			if err := os.RemoveAll(path); err != nil {
				return nil, goerr.Wrap(err, "removing unrelated file", goerr.V("path", path))
			}
			continue
		}
		ok, err := pofile.StripObsoleteFile(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			if err := os.Remove(path); err != nil {
				return nil, goerr.Wrap(err, "removing empty catalog", goerr.V("path", path))
			}
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}
