// relkit: release packaging for KDE-style projects. Fetches sources,
// translations and handbooks, tags the release and ships a tarball with
// a packager notification.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"

	"github.com/minios-linux/relkit/config"
	"github.com/minios-linux/relkit/console"
	"github.com/minios-linux/relkit/i18n"
	"github.com/minios-linux/relkit/pipeline"
	"github.com/minios-linux/relkit/release"
	"github.com/minios-linux/relkit/runner"
	"github.com/minios-linux/relkit/stats"
	"github.com/minios-linux/relkit/vcs"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "relkit",
		Short: i18n.T("Release packaging for KDE-style projects"),
		Long: i18n.T(`relkit packages a release of a KDE-style project.

It checks out the sources, pulls translations and handbooks from the
localization tree, optionally tags the release, and produces a
<name>-<version>.tar.bz2 with a packager notification.

Settings are read from the [main] section of relkit.ini in the current
directory; every setting also has a flag, which wins when given.

Commands:
  release   Run the release pipeline
  stats     Show translation statistics for a fetched po directory
  config    Print the merged configuration
  version   Show version information`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newReleaseCmd(),
		newStatsCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		console.New(os.Stderr).Error("%s", describe(err))
		stop()
		os.Exit(1)
	}
}

// describe turns an error into the line shown to the operator.
func describe(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrCancelled):
		return i18n.T("Release cancelled by the operator")
	case goerr.HasTag(err, release.TagConfig):
		return i18n.T("Malformed configuration: %v", err)
	case goerr.HasTag(err, release.TagAccessDenied):
		return i18n.T("Access denied, check the user and protocol settings: %v", err)
	}
	return err.Error()
}

// ---------------------------------------------------------------------------
// release
// ---------------------------------------------------------------------------

func newReleaseCmd() *cobra.Command {
	opts := config.NewOptions()
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "release",
		Short: i18n.T("Run the release pipeline"),
		Long: i18n.T(`Run every enabled stage in order: fetch sources, fetch translations,
fetch documentation, tag, apply project adjustments, copy the changelog,
create the tarball and write the packager notification.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.Complete(cmd.Flags())
			if err != nil {
				return err
			}
			var prompter console.Prompter = console.StdinPrompter{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
			if assumeYes {
				prompter = console.Answer(true)
			}
			return runRelease(cmd.Context(), cfg, prompter, cmd.ErrOrStderr())
		},
	}

	opts.AddFlags(cmd.Flags())
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, i18n.T("Continue after a failed source fetch without asking"))

	return cmd
}

func runRelease(ctx context.Context, cfg config.ReleaseConfig, prompter console.Prompter, stderr io.Writer) error {
	log := console.New(stderr)
	svn := vcs.NewSVNClient(runner.Exec{}, cfg.User)

	p, err := pipeline.New(cfg, svn, log, prompter)
	if err != nil {
		return err
	}

	log.Info("%s", i18n.T("Releasing %s %s", cfg.Name, cfg.Version))
	rc, err := p.Run(ctx)
	if err != nil {
		return err
	}

	log.Header(i18n.T("Summary"))
	log.Info("%s", i18n.N("%d translation", "%d translations", len(rc.Languages), len(rc.Languages)))
	log.Info("%s", i18n.N("%d translated handbook", "%d translated handbooks", len(rc.DocLocales), len(rc.DocLocales)))
	for _, path := range []string{rc.Report, rc.Notification, rc.Manifest} {
		if path != "" {
			log.Info("%s", path)
		}
	}
	if rc.Archive != nil {
		log.Success("%s", i18n.T("Release %s is ready", rc.Archive.Path))
	} else {
		log.Success("%s", i18n.T("Release of %s %s finished", cfg.Name, cfg.Version))
	}
	return nil
}

// ---------------------------------------------------------------------------
// stats (read-only report for an existing po tree)
// ---------------------------------------------------------------------------

type statsArgs struct {
	dir     string
	barrier int
	report  string
	title   string
	msgfmt  bool
}

func newStatsCmd() *cobra.Command {
	var a statsArgs

	cmd := &cobra.Command{
		Use:   "stats",
		Short: i18n.T("Show translation statistics for a fetched po directory"),
		Long: i18n.T(`Count the messages of every <dir>/<lang>/*.po catalog and print the
completeness of each language. Languages below --barrier are listed but
nothing is deleted.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), a, cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&a.dir, "dir", "d", "po", i18n.T("Translation directory"))
	f.IntVar(&a.barrier, "barrier", 0, i18n.T("Minimum completeness in percent"))
	f.StringVar(&a.report, "report", "", i18n.T("Write an HTML report to this file"))
	f.StringVar(&a.title, "title", "", i18n.T("Title of the HTML report"))
	f.BoolVar(&a.msgfmt, "msgfmt", false, i18n.T("Count with msgfmt --statistics instead of the built-in parser"))

	return cmd
}

func runStats(ctx context.Context, a statsArgs, stderr io.Writer) error {
	log := console.New(stderr)

	langs, err := stats.Scan(a.dir)
	if err != nil {
		return err
	}
	if len(langs) == 0 {
		log.Warning("%s", i18n.T("No translations found in %s", a.dir))
		return nil
	}

	var counter stats.Counter = stats.POCounter{}
	if a.msgfmt {
		counter = stats.MsgfmtCounter{Runner: runner.Exec{}}
	}
	rows, err := stats.Compute(ctx, counter, a.dir, langs)
	if err != nil {
		return err
	}

	kept, dropped := stats.ApplyBarrier(rows, a.barrier)
	stats.PrintTable(log, kept)
	for _, d := range dropped {
		log.Warning("%s", i18n.T("%s is below the %d%% barrier (%.1f%%)", d.Code, a.barrier, d.Percent))
	}

	if a.report != "" {
		title := a.title
		if title == "" {
			title = i18n.T("Translation status of %s", filepath.Base(filepath.Dir(absPath(a.dir))))
		}
		if err := stats.WriteHTMLFile(a.report, title, kept); err != nil {
			return err
		}
		log.Success("%s", i18n.T("Report written to %s", a.report))
	}
	return nil
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// ---------------------------------------------------------------------------
// config
// ---------------------------------------------------------------------------

func newConfigCmd() *cobra.Command {
	opts := config.NewOptions()

	cmd := &cobra.Command{
		Use:   "config",
		Short: i18n.T("Print the merged configuration"),
		Long: i18n.T(`Merge relkit.ini with the given flags, validate the result and print
it as a canonical [main] section. The output is a valid relkit.ini.`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.Complete(cmd.Flags())
			if err != nil {
				return err
			}
			return config.Dump(cfg).Write(cmd.OutOrStdout())
		},
	}

	opts.AddFlags(cmd.Flags())
	return cmd
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: i18n.T("Show version information"),
		Long:  i18n.T("Display version, commit hash, and build date."),
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "relkit version %s\n", version)
			fmt.Fprintf(w, "  commit:    %s\n", commit)
			fmt.Fprintf(w, "  built:     %s\n", date)
		},
	}
}
