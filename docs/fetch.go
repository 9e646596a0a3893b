// Package docs pulls the English handbook and its translations into the
// working tree.
package docs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/buildsys"
	"github.com/minios-linux/relkit/config"
	"github.com/minios-linux/relkit/console"
	"github.com/minios-linux/relkit/release"
	"github.com/minios-linux/relkit/vcs"
)

const (
	// EnglishDir holds the English handbook.
	EnglishDir = "doc"
	// TranslationsDir holds one subdirectory per translated handbook.
	TranslationsDir = "doc-translations"
	// Primary is the file every handbook must contain.
	Primary = "index.docbook"
)

const metaDir = ".svn"

// Result lists what the documentation stage contributed.
type Result struct {
	// English is true when the English handbook is present.
	English bool
	// Locales are the translated handbooks, in the order fetched.
	Locales []release.LanguageEntry
}

// Fetcher retrieves handbooks for one release.
type Fetcher struct {
	SVN vcs.Subversion
	Cfg config.ReleaseConfig
	Log *console.Logger
}

// Fetch retrieves the English handbook and every translation listed in codes.
func (f *Fetcher) Fetch(ctx context.Context, tree string, codes []string) (Result, error) {
	var res Result
	docDir := filepath.Join(tree, EnglishDir)

	english, err := f.fetchEnglish(ctx, tree, docDir)
	if err != nil {
		return Result{}, err
	}
	res.English = english

	transDir := filepath.Join(tree, TranslationsDir)
	for _, code := range codes {
		if code == "en" {
			continue
		}
		files, err := f.fetchLocale(ctx, filepath.Join(transDir, code), code)
		if err != nil {
			return Result{}, err
		}
		if len(files) == 0 {
			continue
		}
		f.Log.Success("%s: handbook (%d files)", code, len(files))
		res.Locales = append(res.Locales, release.LanguageEntry{Code: code, Files: files})
	}

	if len(res.Locales) == 0 {
		f.Log.Warning("No translated documentation found")
		if err := os.RemoveAll(transDir); err != nil {
			return Result{}, goerr.Wrap(err, "removing documentation translations", goerr.V("path", transDir))
		}
		if !res.English {
			if err := os.RemoveAll(docDir); err != nil {
				return Result{}, goerr.Wrap(err, "removing documentation", goerr.V("path", docDir))
			}
		}
		return res, nil
	}

	if err := buildsys.WriteSubdirs(transDir, release.Codes(res.Locales)); err != nil {
		return Result{}, err
	}
	if err := buildsys.AddSubdirectory(tree, TranslationsDir); err != nil {
		return Result{}, err
	}
	if f.Cfg.Tag && f.Cfg.VCS == config.VCSSubversion {
		if err := f.SVN.Add(ctx, transDir); err != nil {
			return Result{}, goerr.Wrap(err, "registering documentation directory", goerr.V("path", transDir))
		}
	}
	return res, nil
}

// fetchEnglish keeps a handbook shipped with the sources, or checks out
// the English one next to them.
func (f *Fetcher) fetchEnglish(ctx context.Context, tree, docDir string) (bool, error) {
	if _, err := os.Stat(filepath.Join(docDir, Primary)); err == nil {
		f.Log.Info("Using the handbook shipped in %s/", EnglishDir)
		return true, nil
	}

	url := f.Cfg.DocURL("en")
	ok, err := f.SVN.Exists(ctx, url)
	if err != nil {
		return false, goerr.Wrap(err, "looking up English documentation", goerr.V("url", url))
	}
	if !ok {
		f.Log.Warning("No English documentation at %s", url)
		return false, nil
	}
	if err := f.SVN.Checkout(ctx, url, docDir, vcs.DepthInfinity); err != nil {
		return false, goerr.Wrap(err, "fetching English documentation", goerr.V("url", url))
	}
	if _, err := os.Stat(filepath.Join(docDir, Primary)); err != nil {
		f.Log.Warning("English documentation has no %s", Primary)
		return false, nil
	}
	if !f.Cfg.Tag {
		if err := os.RemoveAll(filepath.Join(docDir, metaDir)); err != nil {
			return false, goerr.Wrap(err, "removing working copy metadata", goerr.V("path", docDir))
		}
	}
	if err := buildsys.WriteHandbook(docDir, "en", f.Cfg.Name); err != nil {
		return false, err
	}
	if err := buildsys.AddSubdirectory(tree, EnglishDir); err != nil {
		return false, err
	}
	return true, nil
}

// fetchLocale checks out one translated handbook and returns its files.
// The directory is removed when the handbook is incomplete.
func (f *Fetcher) fetchLocale(ctx context.Context, dir, code string) ([]string, error) {
	url := f.Cfg.DocURL(code)
	ok, err := f.SVN.Exists(ctx, url)
	if err != nil {
		return nil, goerr.Wrap(err, "looking up documentation", goerr.V("lang", code), goerr.V("url", url))
	}
	if !ok {
		return nil, nil
	}
	if err := f.SVN.Checkout(ctx, url, dir, vcs.DepthInfinity); err != nil {
		if goerr.HasTag(err, release.TagNotFound) {
			return nil, os.RemoveAll(dir)
		}
		return nil, goerr.Wrap(err, "fetching documentation", goerr.V("lang", code), goerr.V("url", url))
	}

	if _, err := os.Stat(filepath.Join(dir, Primary)); err != nil {
		f.Log.Warning("%s: handbook without %s, dropped", code, Primary)
		return nil, os.RemoveAll(dir)
	}
	if !f.Cfg.Tag {
		if err := os.RemoveAll(filepath.Join(dir, metaDir)); err != nil {
			return nil, goerr.Wrap(err, "removing working copy metadata", goerr.V("path", dir))
		}
	}

	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}
	if err := buildsys.WriteHandbook(dir, code, f.Cfg.Name); err != nil {
		return nil, err
	}
	return files, nil
}

// listFiles returns the files below dir, relative and sorted, without
// working copy metadata.
func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == metaDir {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "listing documentation files", goerr.V("path", dir))
	}
	sort.Strings(files)
	return files, nil
}
