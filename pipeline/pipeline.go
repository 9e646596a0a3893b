// Package pipeline runs a release from source checkout to packager
// notification. Stages run in a fixed order and share one Context.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/config"
	"github.com/minios-linux/relkit/console"
	"github.com/minios-linux/relkit/docs"
	"github.com/minios-linux/relkit/l10n"
	"github.com/minios-linux/relkit/locales"
	"github.com/minios-linux/relkit/notify"
	"github.com/minios-linux/relkit/release"
	"github.com/minios-linux/relkit/stats"
	"github.com/minios-linux/relkit/tagger"
	"github.com/minios-linux/relkit/tarball"
	"github.com/minios-linux/relkit/vcs"
)

// ErrCancelled is returned when the operator stops the run after a
// failed source fetch.
var ErrCancelled = errors.New("release cancelled")

// ChangelogName is the name the configured changelog gets in the tree.
const ChangelogName = "ChangeLog"

// Context is the state handed from stage to stage.
type Context struct {
	Config   config.ReleaseConfig
	WorkTree string
	// Languages are the contributing translations, after the barrier.
	Languages  []release.LanguageEntry
	DocLocales []release.LanguageEntry
	EnglishDoc bool
	Archive    *tarball.Result
	// Produced files besides the archive. Empty when not written.
	Report       string
	Notification string
	Manifest     string

	locales []string
}

// Pipeline holds the collaborators of a release run.
type Pipeline struct {
	Cfg      config.ReleaseConfig
	Backend  vcs.Backend
	SVN      vcs.Subversion
	Log      *console.Logger
	Prompter console.Prompter
	// Hook runs when Cfg.App is set. Nil means NopHook.
	Hook Hook
	// Counter computes translation statistics. Nil means stats.POCounter.
	Counter stats.Counter
	// ArchiveTime is stamped on archive members. Zero means now.
	ArchiveTime time.Time
}

// New wires a pipeline for cfg. The hook defaults to CMakeVersionHook
// when cfg.VersionVar is set.
func New(cfg config.ReleaseConfig, svn vcs.Subversion, log *console.Logger, prompter console.Prompter) (*Pipeline, error) {
	backend, err := vcs.New(cfg, svn, log)
	if err != nil {
		return nil, err
	}
	var hook Hook = NopHook{}
	if cfg.VersionVar != "" {
		hook = CMakeVersionHook{Var: cfg.VersionVar}
	}
	return &Pipeline{
		Cfg:      cfg,
		Backend:  backend,
		SVN:      svn,
		Log:      log,
		Prompter: prompter,
		Hook:     hook,
	}, nil
}

// Run executes every enabled stage and returns the final context.
func (p *Pipeline) Run(ctx context.Context) (*Context, error) {
	rc := &Context{Config: p.Cfg, WorkTree: p.Cfg.WorkTree()}

	if err := os.MkdirAll(p.Cfg.OutDir, 0755); err != nil {
		return rc, goerr.Wrap(err, "creating output directory", goerr.V("path", p.Cfg.OutDir))
	}

	stages := []struct {
		title   string
		enabled bool
		run     func(context.Context, *Context) error
	}{
		{"Fetching sources", true, p.fetchSource},
		{"Fetching translations", p.Cfg.L10n, p.fetchTranslations},
		{"Fetching documentation", p.Cfg.Doc, p.fetchDocs},
		{"Tagging", p.Cfg.Tag, p.tag},
		{"Applying project adjustments", p.Cfg.App, p.applyHook},
		{"Adding changelog", p.Cfg.Changelog != "", p.copyChangelog},
		{"Creating tarball", p.Cfg.Tar, p.createTarball},
		{"Writing packager notification", p.Cfg.PkgNotify, p.writeNotification},
	}
	for _, s := range stages {
		if !s.enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rc, goerr.Wrap(err, "release interrupted", goerr.V("stage", s.title))
		}
		p.Log.Header(s.title)
		if err := s.run(ctx, rc); err != nil {
			return rc, err
		}
	}
	return rc, nil
}

func (p *Pipeline) fetchSource(ctx context.Context, rc *Context) error {
	p.Log.Info("Using %s", p.Backend.Name())
	err := p.Backend.FetchSource(ctx, p.Backend.Repository(), rc.WorkTree)
	if err == nil {
		p.Log.Success("Sources in %s", rc.WorkTree)
		return nil
	}
	if goerr.HasTag(err, release.TagAccessDenied) {
		return err
	}

	p.Log.Error("Fetching sources failed: %v", err)
	if p.Prompter == nil || !p.Prompter.Continue("Continue with an incomplete working tree?") {
		return ErrCancelled
	}
	p.Log.Warning("Continuing without a complete source checkout")
	if err := os.MkdirAll(rc.WorkTree, 0755); err != nil {
		return goerr.Wrap(err, "creating working tree", goerr.V("path", rc.WorkTree))
	}
	return nil
}

// activeLocales is read once per run and shared by translations and docs.
func (p *Pipeline) activeLocales(ctx context.Context, rc *Context) ([]string, error) {
	if rc.locales != nil {
		return rc.locales, nil
	}
	codes, err := locales.Active(ctx, p.SVN, p.Cfg.SubdirsURL())
	if err != nil {
		return nil, err
	}
	rc.locales = codes
	return codes, nil
}

func (p *Pipeline) fetchTranslations(ctx context.Context, rc *Context) error {
	codes, err := p.activeLocales(ctx, rc)
	if err != nil {
		return err
	}

	reportPath := filepath.Join(p.Cfg.OutDir, p.Cfg.ReportName())
	f := &l10n.Fetcher{
		SVN: p.SVN,
		Cfg: p.Cfg,
		Log: p.Log,
		Reporter: &stats.Reporter{
			Counter:    p.Counter,
			Log:        p.Log,
			Barrier:    p.Cfg.Barrier,
			ReportPath: reportPath,
			Title:      fmt.Sprintf("Translation status of %s %s", p.Cfg.Name, p.Cfg.Version),
		},
	}
	langs, err := f.Fetch(ctx, rc.WorkTree, codes)
	if err != nil {
		return err
	}
	rc.Languages = langs
	if p.Cfg.Stat && len(langs) > 0 {
		rc.Report = reportPath
	}
	return nil
}

func (p *Pipeline) fetchDocs(ctx context.Context, rc *Context) error {
	codes, err := p.activeLocales(ctx, rc)
	if err != nil {
		return err
	}
	f := &docs.Fetcher{SVN: p.SVN, Cfg: p.Cfg, Log: p.Log}
	res, err := f.Fetch(ctx, rc.WorkTree, codes)
	if err != nil {
		return err
	}
	rc.EnglishDoc = res.English
	rc.DocLocales = res.Locales
	return nil
}

func (p *Pipeline) tag(ctx context.Context, rc *Context) error {
	t := &tagger.Tagger{
		Backend:  p.Backend,
		SVN:      p.SVN,
		Cfg:      p.Cfg,
		Log:      p.Log,
		FailFast: p.Cfg.TagFailFast,
	}
	return t.Tag(ctx, tagger.Input{
		Tree:       rc.WorkTree,
		Languages:  rc.Languages,
		DocLocales: rc.DocLocales,
	})
}

func (p *Pipeline) applyHook(ctx context.Context, rc *Context) error {
	hook := p.Hook
	if hook == nil {
		hook = NopHook{}
	}
	if err := hook.Apply(ctx, rc, p.Log); err != nil {
		return goerr.Wrap(err, "project adjustment failed")
	}
	return nil
}

func (p *Pipeline) copyChangelog(_ context.Context, rc *Context) error {
	data, err := os.ReadFile(p.Cfg.Changelog)
	if err != nil {
		return goerr.Wrap(err, "reading changelog", goerr.V("path", p.Cfg.Changelog))
	}
	dest := filepath.Join(rc.WorkTree, ChangelogName)
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return goerr.Wrap(err, "writing changelog", goerr.V("path", dest))
	}
	p.Log.Success("Copied %s to %s", p.Cfg.Changelog, ChangelogName)
	return nil
}

func (p *Pipeline) createTarball(_ context.Context, rc *Context) error {
	var opts []tarball.Option
	if p.Cfg.KeepTree {
		opts = append(opts, tarball.WithKeepUncompressed())
	}
	if !p.ArchiveTime.IsZero() {
		opts = append(opts, tarball.WithModTime(p.ArchiveTime))
	}
	res, err := tarball.Create(rc.WorkTree, p.Cfg.OutDir, p.Cfg.BaseName(), p.Log, opts...)
	if err != nil {
		return err
	}
	rc.Archive = res
	return nil
}

func (p *Pipeline) writeNotification(_ context.Context, rc *Context) error {
	if rc.Archive == nil {
		p.Log.Info("No tarball produced, nothing to notify")
		return nil
	}
	summary := notify.NewSummary(p.Cfg, []release.ChecksumRecord{rc.Archive.Checksums}, rc.DocLocales, rc.Languages)

	path, err := notify.WriteNotification(p.Cfg.OutDir, p.Cfg.NotificationName(), summary)
	if err != nil {
		return err
	}
	rc.Notification = path

	if rc.Manifest, err = notify.ManifestFrom(summary).Save(p.Cfg.OutDir, p.Cfg.ManifestName()); err != nil {
		return err
	}
	p.Log.Success("Packager notification: %s", rc.Notification)
	return nil
}
