// Package tarball turns a finished working tree into the distributable
// <name>-<version>.tar.bz2 and its checksums.
package tarball

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/console"
	"github.com/minios-linux/relkit/release"
)

// CopySuffix is appended to the tree path when archiving a copy.
const CopySuffix = ".tarball"

// metaDirs are version control directories never shipped.
var metaDirs = map[string]bool{
	".svn": true,
	".git": true,
	".hg":  true,
	"CVS":  true,
}

// ignoreFiles are version control files never shipped.
var ignoreFiles = map[string]bool{
	".gitignore":     true,
	".gitattributes": true,
	".gitmodules":    true,
	".svnignore":     true,
	".cvsignore":     true,
	".hgignore":      true,
}

// compiledCatalogs are build outputs of message catalogs.
var compiledCatalogs = []string{".mo", ".gmo"}

// Options controls archive creation.
type Options struct {
	// Copy archives a copy of the tree so the original stays untouched.
	Copy bool
	// KeepUncompressed keeps the stripped tree after archiving.
	KeepUncompressed bool
	// ModTime is stamped on every archive member.
	ModTime time.Time
}

// Option configures Options.
type Option func(*Options)

// WithCopy archives a stripped copy instead of the tree itself.
func WithCopy() Option {
	return func(o *Options) { o.Copy = true }
}

// WithKeepUncompressed keeps the stripped tree next to the archive.
func WithKeepUncompressed() Option {
	return func(o *Options) { o.KeepUncompressed = true }
}

// WithModTime sets the member timestamp.
func WithModTime(t time.Time) Option {
	return func(o *Options) { o.ModTime = t }
}

// Result describes a produced archive.
type Result struct {
	// Path is the archive location.
	Path      string
	Checksums release.ChecksumRecord
}

// Create strips tree of version control data and compiled catalogs,
// archives it below the root directory baseName into
// outDir/<baseName>.tar.bz2 and computes its checksums.
func Create(tree, outDir, baseName string, log *console.Logger, opts ...Option) (*Result, error) {
	o := Options{ModTime: time.Now().UTC().Truncate(time.Second)}
	for _, opt := range opts {
		opt(&o)
	}

	src := tree
	if o.Copy {
		src = strings.TrimRight(tree, string(filepath.Separator)) + CopySuffix
		if err := os.RemoveAll(src); err != nil {
			return nil, goerr.Wrap(err, "removing stale archive copy", goerr.V("path", src))
		}
		if err := copyTree(tree, src); err != nil {
			return nil, err
		}
	}

	if err := Strip(src); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, goerr.Wrap(err, "creating output directory", goerr.V("path", outDir))
	}
	archive := filepath.Join(outDir, baseName+".tar.bz2")
	log.Info("Creating %s", archive)
	if err := writeArchive(src, archive, baseName, o.ModTime); err != nil {
		return nil, err
	}

	sums, err := Checksums(archive)
	if err != nil {
		return nil, err
	}

	if !o.KeepUncompressed {
		if err := os.RemoveAll(src); err != nil {
			return nil, goerr.Wrap(err, "removing archived tree", goerr.V("path", src))
		}
	}
	log.Success("Archive ready: %s", archive)
	return &Result{Path: archive, Checksums: sums}, nil
}

// Strip removes version control metadata, ignore files and compiled
// catalogs below root.
func Strip(root string) error {
	var doomed []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && metaDirs[name] {
				doomed = append(doomed, path)
				return filepath.SkipDir
			}
			return nil
		}
		if ignoreFiles[name] || isCompiledCatalog(name) {
			doomed = append(doomed, path)
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "scanning tree", goerr.V("root", root))
	}
	for _, path := range doomed {
		if err := os.RemoveAll(path); err != nil {
			return goerr.Wrap(err, "stripping tree", goerr.V("path", path))
		}
	}
	return nil
}

func isCompiledCatalog(name string) bool {
	ext := filepath.Ext(name)
	for _, c := range compiledCatalogs {
		if ext == c {
			return true
		}
	}
	return false
}

func copyTree(src, dst string) error {
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case info.Mode()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode().Perm())
	})
	if err != nil {
		return goerr.Wrap(err, "copying tree", goerr.V("from", src), goerr.V("to", dst))
	}
	return nil
}
