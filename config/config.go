// Package config builds the immutable release configuration from a
// relkit.ini file and command-line flags, and derives the repository
// locations every stage works with.
package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/release"
)

// VCS kinds.
const (
	VCSSubversion = "svn"
	VCSGit        = "git"
)

// Branches.
const (
	BranchTrunk  = "trunk"
	BranchStable = "stable"
	BranchTag    = "tag"
)

// Protocols for the Subversion repository.
const (
	ProtocolAnonSVN = "anonsvn"
	ProtocolHTTPS   = "https"
	ProtocolSSH     = "ssh"
)

// ReleaseConfig is created once at startup and passed by value afterwards.
type ReleaseConfig struct {
	// Name is the project (application) name, e.g. "digikam".
	Name string
	// Component is the top-level module, e.g. "extragear".
	Component string
	// Section is the module section, e.g. "graphics".
	Section string
	// PathPrefix is an optional directory between section and name.
	PathPrefix string
	// VCS selects the source backend: "svn" or "git".
	VCS string
	// Repository overrides the Subversion root derived from Protocol.
	Repository string
	// CustomSrc overrides the git clone URL.
	CustomSrc string
	// GitBranch is the branch to clone; empty means the remote default.
	GitBranch string
	// Branch is trunk, stable or tag.
	Branch   string
	Version  string
	Protocol string
	User     string
	// Changelog is copied into the working tree as ChangeLog when set.
	Changelog string
	// Barrier is the minimum translation completeness in percent; 0 disables it.
	Barrier int
	// OutDir receives the working tree and all produced files.
	OutDir string
	// VersionVar names the CMake variable rewritten by the version hook.
	VersionVar string

	L10n      bool
	Stat      bool
	Doc       bool
	Tag       bool
	App       bool
	Tar       bool
	PkgNotify bool

	// TagFailFast stops tagging when creating the tag root fails.
	TagFailFast bool
	// KeepTree keeps the uncompressed tree next to the tarball.
	KeepTree bool
}

// Defaults returns the configuration used before the file and flags apply.
func Defaults() ReleaseConfig {
	return ReleaseConfig{
		VCS:       VCSSubversion,
		Branch:    BranchTrunk,
		Protocol:  ProtocolAnonSVN,
		OutDir:    ".",
		L10n:      true,
		Stat:      true,
		Doc:       true,
		App:       true,
		Tar:       true,
		PkgNotify: true,
	}
}

// Keys lists every recognized configuration key in the order used for
// flags and dumps.
var Keys = []string{
	"name", "component", "section", "pathprefix", "vcs", "repository",
	"customsrc", "gitbranch", "branch", "version", "protocol", "user",
	"changelog", "barrier", "outdir", "versionvar",
	"l10n", "stat", "doc", "tag", "app", "tar", "pkgnotify",
	"tagfailfast", "keeptree",
}

// Set assigns a configuration key from its string form.
func (c *ReleaseConfig) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "name":
		c.Name = value
	case "component":
		c.Component = value
	case "section":
		c.Section = value
	case "pathprefix":
		c.PathPrefix = strings.Trim(value, "/")
	case "vcs":
		c.VCS = strings.ToLower(value)
	case "repository":
		c.Repository = strings.TrimRight(value, "/")
	case "customsrc":
		c.CustomSrc = value
	case "gitbranch":
		c.GitBranch = value
	case "branch":
		c.Branch = strings.ToLower(value)
	case "version":
		c.Version = value
	case "protocol":
		c.Protocol = strings.ToLower(value)
	case "user":
		c.User = value
	case "changelog":
		c.Changelog = value
	case "barrier":
		if value == "" {
			c.Barrier = 0
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return goerr.Wrap(err, "barrier must be an integer percentage",
				goerr.V("value", value), goerr.T(release.TagConfig))
		}
		c.Barrier = n
	case "outdir":
		c.OutDir = value
	case "versionvar":
		c.VersionVar = value
	default:
		ptr := c.toggle(key)
		if ptr == nil {
			return goerr.New("unknown configuration key", goerr.V("key", key), goerr.T(release.TagConfig))
		}
		b, err := parseBool(value)
		if err != nil {
			return goerr.Wrap(err, "invalid boolean", goerr.V("key", key), goerr.T(release.TagConfig))
		}
		*ptr = b
	}
	return nil
}

// Get returns the string form of a configuration key.
func (c ReleaseConfig) Get(key string) string {
	switch key {
	case "name":
		return c.Name
	case "component":
		return c.Component
	case "section":
		return c.Section
	case "pathprefix":
		return c.PathPrefix
	case "vcs":
		return c.VCS
	case "repository":
		return c.Repository
	case "customsrc":
		return c.CustomSrc
	case "gitbranch":
		return c.GitBranch
	case "branch":
		return c.Branch
	case "version":
		return c.Version
	case "protocol":
		return c.Protocol
	case "user":
		return c.User
	case "changelog":
		return c.Changelog
	case "barrier":
		return strconv.Itoa(c.Barrier)
	case "outdir":
		return c.OutDir
	case "versionvar":
		return c.VersionVar
	}
	if ptr := c.toggle(key); ptr != nil {
		return strconv.FormatBool(*ptr)
	}
	return ""
}

func (c *ReleaseConfig) toggle(key string) *bool {
	switch key {
	case "l10n":
		return &c.L10n
	case "stat":
		return &c.Stat
	case "doc":
		return &c.Doc
	case "tag":
		return &c.Tag
	case "app":
		return &c.App
	case "tar":
		return &c.Tar
	case "pkgnotify":
		return &c.PkgNotify
	case "tagfailfast":
		return &c.TagFailFast
	case "keeptree":
		return &c.KeepTree
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

// Validate reports the first malformed setting.
func (c ReleaseConfig) Validate() error {
	fail := func(msg string, kv ...any) error {
		opts := []goerr.Option{goerr.T(release.TagConfig)}
		for i := 0; i+1 < len(kv); i += 2 {
			opts = append(opts, goerr.V(kv[i].(string), kv[i+1]))
		}
		return goerr.New(msg, opts...)
	}

	if c.Name == "" {
		return fail("project name is required")
	}
	if c.Version == "" {
		return fail("version is required")
	}
	switch c.VCS {
	case VCSSubversion, VCSGit:
	default:
		return fail("unknown vcs (valid: svn, git)", "vcs", c.VCS)
	}
	switch c.Branch {
	case BranchTrunk, BranchStable, BranchTag:
	default:
		return fail("unknown branch (valid: trunk, stable, tag)", "branch", c.Branch)
	}
	switch c.Protocol {
	case ProtocolAnonSVN:
	case ProtocolHTTPS, ProtocolSSH:
		if c.User == "" && c.Repository == "" {
			return fail("protocol requires a user", "protocol", c.Protocol)
		}
	default:
		return fail("unknown protocol (valid: anonsvn, https, ssh)", "protocol", c.Protocol)
	}
	if c.Barrier < 0 || c.Barrier > 100 {
		return fail("barrier must be between 0 and 100", "barrier", c.Barrier)
	}
	if c.needsModulePath() && (c.Component == "" || c.Section == "") {
		return fail("component and section are required for Subversion paths")
	}
	return nil
}

func (c ReleaseConfig) needsModulePath() bool {
	return c.VCS == VCSSubversion || c.L10n || c.Doc || c.Tag
}

// ---------------------------------------------------------------------------
// Derived locations
// ---------------------------------------------------------------------------

// RepositoryURL returns the Subversion root for the configured protocol.
func (c ReleaseConfig) RepositoryURL() string {
	if c.Repository != "" {
		return c.Repository
	}
	switch c.Protocol {
	case ProtocolHTTPS:
		return "https://" + c.User + "@svn.kde.org/home/kde"
	case ProtocolSSH:
		return "svn+ssh://" + c.User + "@svn.kde.org/home/kde"
	}
	return "svn://anonsvn.kde.org/home/kde"
}

// BranchPath returns the repository directory of the configured branch.
// Tags resolve to the stable tree for module paths.
func (c ReleaseConfig) BranchPath() string {
	if c.Branch == BranchTrunk {
		return "trunk"
	}
	return "branches/stable"
}

// ModulePath returns component/section/[prefix/]name.
func (c ReleaseConfig) ModulePath() string {
	parts := []string{c.Component, c.Section}
	if c.PathPrefix != "" {
		parts = append(parts, c.PathPrefix)
	}
	parts = append(parts, c.Name)
	return strings.Join(parts, "/")
}

// SourceURL is the Subversion location of the project sources.
func (c ReleaseConfig) SourceURL() string {
	return c.SourceURLAt(c.RepositoryURL())
}

// SourceURLAt is SourceURL below another repository root.
func (c ReleaseConfig) SourceURLAt(root string) string {
	if c.Branch == BranchTag {
		return c.TagURLAt(root) + "/src"
	}
	return root + "/" + c.BranchPath() + "/" + c.ModulePath()
}

// GitURL is the clone URL used by the git backend.
func (c ReleaseConfig) GitURL() string {
	if c.CustomSrc != "" {
		return c.CustomSrc
	}
	if c.Protocol == ProtocolSSH {
		return "git@git.kde.org:" + c.Name
	}
	return "git://anongit.kde.org/" + c.Name
}

// L10nBase is the root of the localization tree.
func (c ReleaseConfig) L10nBase() string {
	return c.RepositoryURL() + "/" + c.BranchPath() + "/l10n-kde4"
}

// SubdirsURL lists the active locales.
func (c ReleaseConfig) SubdirsURL() string {
	return c.L10nBase() + "/subdirs"
}

// L10nURL is the messages directory of lang for this project's module.
func (c ReleaseConfig) L10nURL(lang string) string {
	return c.L10nBase() + "/" + lang + "/messages/" + c.Component + "-" + c.Section
}

// DocURL is the handbook location for lang. English handbooks live next
// to the module sources; translations in the localization tree.
func (c ReleaseConfig) DocURL(lang string) string {
	if lang == "en" {
		return c.RepositoryURL() + "/" + c.BranchPath() + "/" + c.Component + "/" + c.Section + "/doc/" + c.Name
	}
	return c.L10nBase() + "/" + lang + "/docs/" + c.Component + "-" + c.Section + "/" + c.Name
}

// TagURL is the Subversion location of this release's tag.
func (c ReleaseConfig) TagURL() string {
	return c.TagURLAt(c.RepositoryURL())
}

// TagURLAt is TagURL below another repository root.
func (c ReleaseConfig) TagURLAt(root string) string {
	return root + "/tags/" + c.Name + "/" + c.Version
}

// BaseName is <name>-<version>.
func (c ReleaseConfig) BaseName() string {
	return c.Name + "-" + c.Version
}

// WorkTree is the working tree path.
func (c ReleaseConfig) WorkTree() string {
	return filepath.Join(c.OutDir, c.BaseName())
}

// ArchiveName is the produced tarball file name.
func (c ReleaseConfig) ArchiveName() string {
	return c.BaseName() + ".tar.bz2"
}

// NotificationName is the packager notification file name.
func (c ReleaseConfig) NotificationName() string {
	return c.Name + "-PackagerNotification-" + c.Version + ".txt"
}

// ReportName is the translation statistics report file name.
func (c ReleaseConfig) ReportName() string {
	return c.Name + "-l10n-" + c.Version + ".html"
}

// ManifestName is the machine-readable release manifest file name.
func (c ReleaseConfig) ManifestName() string {
	return c.BaseName() + ".release.yaml"
}
