package tagger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/config"
	"github.com/minios-linux/relkit/console"
	"github.com/minios-linux/relkit/release"
	"github.com/minios-linux/relkit/vcs"
	"github.com/minios-linux/relkit/vcs/vcstest"
)

func testConfig() config.ReleaseConfig {
	cfg := config.Defaults()
	cfg.Name = "digikam"
	cfg.Version = "1.2.0"
	cfg.Component = "extragear"
	cfg.Section = "graphics"
	cfg.Repository = vcstest.Root
	cfg.Tag = true
	return cfg
}

func newTagger(t *testing.T, repo *vcstest.Repo, cfg config.ReleaseConfig, log *console.Logger) *Tagger {
	t.Helper()
	b, err := vcs.New(cfg, repo, log)
	if err != nil {
		t.Fatalf("vcs.New error: %v", err)
	}
	return &Tagger{Backend: b, SVN: repo, Cfg: cfg, Log: log, FailFast: cfg.TagFailFast}
}

func fetchedTree(t *testing.T) string {
	t.Helper()
	tree := t.TempDir()
	files := map[string]string{
		"po/de/digikam.po":                      "msgid \"\"\n",
		"po/de/.svn/url":                        "fake://repo/elsewhere",
		"doc-translations/fr/index.docbook":     "<book/>",
		"doc-translations/fr/images/screen.png": "png",
	}
	for rel, body := range files {
		path := filepath.Join(tree, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return tree
}

func input(tree string) Input {
	return Input{
		Tree:       tree,
		Languages:  []release.LanguageEntry{{Code: "de", Files: []string{"digikam.po"}}},
		DocLocales: []release.LanguageEntry{{Code: "fr", Files: []string{"images/screen.png", "index.docbook"}}},
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestTagAllSteps(t *testing.T) {
	repo := vcstest.New(t)
	repo.WriteFile(t, "trunk/extragear/graphics/digikam/main.cpp", "int main() {}\n")

	tg := newTagger(t, repo, testConfig(), console.Discard())
	if err := tg.Tag(context.Background(), input(fetchedTree(t))); err != nil {
		t.Fatalf("Tag error: %v", err)
	}

	for _, rel := range []string{
		"tags/digikam/1.2.0/src/main.cpp",
		"tags/digikam/1.2.0/po/de/digikam.po",
		"tags/digikam/1.2.0/doc-translations/fr/index.docbook",
		"tags/digikam/1.2.0/doc-translations/fr/images/screen.png",
	} {
		if !exists(repo.Path(rel)) {
			t.Fatalf("%s missing from tag; calls: %v", rel, repo.Calls)
		}
	}
	if exists(repo.Path("tags/digikam/1.2.0/po/de/.svn")) {
		t.Fatal("working copy metadata leaked into the tag")
	}
	if repo.Count("commit") != 2 {
		t.Fatalf("commits = %d, want 2", repo.Count("commit"))
	}
}

func TestTagSkipsEmptySets(t *testing.T) {
	repo := vcstest.New(t)
	repo.WriteFile(t, "trunk/extragear/graphics/digikam/main.cpp", "int main() {}\n")

	tg := newTagger(t, repo, testConfig(), console.Discard())
	in := input(fetchedTree(t))
	in.DocLocales = nil
	if err := tg.Tag(context.Background(), in); err != nil {
		t.Fatalf("Tag error: %v", err)
	}
	if repo.Count("commit") != 1 || exists(repo.Path("tags/digikam/1.2.0/doc-translations")) {
		t.Fatalf("documentation step ran for an empty set: %v", repo.Calls)
	}

	repo.Calls = nil
	in.Languages = nil
	if err := tg.Tag(context.Background(), in); err != nil {
		t.Fatalf("Tag error: %v", err)
	}
	if repo.Count("checkout") != 0 {
		t.Fatalf("checkout without anything to tag: %v", repo.Calls)
	}
}

func TestTagLegacyContinuesAfterSourceFailure(t *testing.T) {
	repo := vcstest.New(t)
	var buf bytes.Buffer

	tg := newTagger(t, repo, testConfig(), console.New(&buf))
	if err := tg.Tag(context.Background(), input(fetchedTree(t))); err != nil {
		t.Fatalf("Tag error: %v", err)
	}
	if !strings.Contains(buf.String(), "Tagging sources failed") {
		t.Fatalf("source failure not reported:\n%s", buf.String())
	}
	if !exists(repo.Path("tags/digikam/1.2.0/po/de/digikam.po")) {
		t.Fatal("translations not tagged after a source failure in legacy mode")
	}
}

func TestTagFailFastStopsAfterSourceFailure(t *testing.T) {
	repo := vcstest.New(t)
	cfg := testConfig()
	cfg.TagFailFast = true

	tg := newTagger(t, repo, cfg, console.Discard())
	err := tg.Tag(context.Background(), input(fetchedTree(t)))
	if !goerr.HasTag(err, release.TagNotFound) {
		t.Fatalf("Tag error = %v, want not found", err)
	}
	if repo.Count("checkout") != 0 || repo.Count("commit") != 0 {
		t.Fatalf("steps 2/3 ran after a fail-fast source failure: %v", repo.Calls)
	}
}

func TestTagGitCreatesL10nTag(t *testing.T) {
	repo := vcstest.New(t)
	cfg := testConfig()
	cfg.VCS = config.VCSGit
	var buf bytes.Buffer

	tg := newTagger(t, repo, cfg, console.New(&buf))
	in := input(fetchedTree(t))
	in.DocLocales = nil
	if err := tg.Tag(context.Background(), in); err != nil {
		t.Fatalf("Tag error: %v", err)
	}
	if !strings.Contains(buf.String(), "git tag -a v1.2.0") {
		t.Fatalf("git instructions missing:\n%s", buf.String())
	}
	if repo.Count("copy") != 0 {
		t.Fatalf("server-side copy attempted for git sources: %v", repo.Calls)
	}
	if !exists(repo.Path("tags/digikam/1.2.0/po/de/digikam.po")) {
		t.Fatal("translations not tagged for git project")
	}
}
