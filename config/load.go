package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/pflag"

	"github.com/minios-linux/relkit/inifile"
	"github.com/minios-linux/relkit/release"
)

// FileName is the default configuration file, looked up in the current
// directory.
const FileName = "relkit.ini"

// MainSection holds the release settings inside the INI file.
const MainSection = "main"

// Options binds the command-line flags and remembers which config file to
// read. Flag values only override the file when they were set explicitly.
type Options struct {
	ConfigFile string
	// explicitFile is true when --config was given; a missing file is then an error.
	explicitFile bool

	flags ReleaseConfig
}

// NewOptions returns options with flag defaults taken from Defaults.
func NewOptions() *Options {
	return &Options{
		ConfigFile: FileName,
		flags:      Defaults(),
	}
}

// AddFlags registers one flag per configuration key on fs.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	f := &o.flags

	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Configuration file")

	fs.StringVarP(&f.Name, "name", "n", f.Name, "Project name")
	fs.StringVar(&f.Component, "component", f.Component, "Repository component (e.g. extragear)")
	fs.StringVar(&f.Section, "section", f.Section, "Component section (e.g. graphics)")
	fs.StringVar(&f.PathPrefix, "pathprefix", f.PathPrefix, "Directory between section and project name")
	fs.StringVar(&f.VCS, "vcs", f.VCS, "Source VCS: svn or git")
	fs.StringVar(&f.Repository, "repository", f.Repository, "Subversion root URL (default: derived from --protocol)")
	fs.StringVar(&f.CustomSrc, "customsrc", f.CustomSrc, "Custom git source URL")
	fs.StringVar(&f.GitBranch, "gitbranch", f.GitBranch, "Git branch to release from")
	fs.StringVarP(&f.Branch, "branch", "b", f.Branch, "Branch: trunk, stable or tag")
	fs.StringVarP(&f.Version, "version", "v", f.Version, "Release version")
	fs.StringVarP(&f.Protocol, "protocol", "p", f.Protocol, "Subversion protocol: anonsvn, https or ssh")
	fs.StringVarP(&f.User, "user", "u", f.User, "Repository user name")
	fs.StringVar(&f.Changelog, "changelog", f.Changelog, "Custom changelog file to ship as ChangeLog")
	fs.IntVar(&f.Barrier, "barrier", f.Barrier, "Minimum translation completeness in percent (0 disables)")
	fs.StringVarP(&f.OutDir, "outdir", "o", f.OutDir, "Output directory")
	fs.StringVar(&f.VersionVar, "versionvar", f.VersionVar, "CMake variable receiving the version")

	fs.BoolVar(&f.L10n, "l10n", f.L10n, "Fetch translations")
	fs.BoolVar(&f.Stat, "stat", f.Stat, "Compute translation statistics")
	fs.BoolVar(&f.Doc, "doc", f.Doc, "Fetch documentation")
	fs.BoolVar(&f.Tag, "tag", f.Tag, "Create a release tag")
	fs.BoolVar(&f.App, "app", f.App, "Apply project customization")
	fs.BoolVar(&f.Tar, "tar", f.Tar, "Create the tarball")
	fs.BoolVar(&f.PkgNotify, "pkgnotify", f.PkgNotify, "Write the packager notification")
	fs.BoolVar(&f.TagFailFast, "tagfailfast", f.TagFailFast, "Stop tagging when the tag root cannot be created")
	fs.BoolVar(&f.KeepTree, "keeptree", f.KeepTree, "Keep the uncompressed tree after archiving")
}

// Complete merges defaults, the configuration file and explicitly set
// flags, then validates the result.
func (o *Options) Complete(fs *pflag.FlagSet) (ReleaseConfig, error) {
	cfg := Defaults()

	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			o.explicitFile = true
		}
	}

	if o.ConfigFile != "" {
		doc, err := inifile.Read(o.ConfigFile, inifile.DefaultSeparator)
		switch {
		case err == nil:
			if err := Apply(&cfg, doc); err != nil {
				return ReleaseConfig{}, err
			}
		case goerr.HasTag(err, release.TagNotFound) && !o.explicitFile:
			// no relkit.ini in the current directory: flags only
		default:
			return ReleaseConfig{}, err
		}
	}

	if fs != nil {
		var flagErr error
		fs.Visit(func(f *pflag.Flag) {
			if flagErr != nil || f.Name == "config" {
				return
			}
			flagErr = cfg.Set(f.Name, f.Value.String())
		})
		if flagErr != nil {
			return ReleaseConfig{}, flagErr
		}
	}

	if err := cfg.Validate(); err != nil {
		return ReleaseConfig{}, err
	}
	return cfg, nil
}

// Apply copies the [main] section of doc into cfg.
func Apply(cfg *ReleaseConfig, doc *inifile.Document) error {
	for _, key := range doc.Keys(MainSection) {
		value, _ := doc.Value(MainSection, key)
		if err := cfg.Set(key, value); err != nil {
			return goerr.Wrap(err, "invalid configuration file entry", goerr.V("key", key))
		}
	}
	return nil
}

// Dump renders cfg as an INI document with every key in [main].
func Dump(cfg ReleaseConfig) *inifile.Document {
	doc := inifile.New(inifile.DefaultSeparator)
	for _, key := range Keys {
		doc.Set(MainSection, key, cfg.Get(key))
	}
	return doc
}
