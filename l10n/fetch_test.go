package l10n

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/buildsys"
	"github.com/minios-linux/relkit/config"
	"github.com/minios-linux/relkit/console"
	"github.com/minios-linux/relkit/release"
	"github.com/minios-linux/relkit/vcs/vcstest"
)

const catalog = `msgid ""
msgstr ""
"Language: de\n"

msgid "hello"
msgstr "hallo"

#~ msgid "old"
#~ msgstr "alt"
`

func testConfig() config.ReleaseConfig {
	cfg := config.Defaults()
	cfg.Name = "digikam"
	cfg.Version = "1.2.0"
	cfg.Component = "extragear"
	cfg.Section = "graphics"
	cfg.Repository = vcstest.Root
	return cfg
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func messages(lang, file string) string {
	return filepath.ToSlash(filepath.Join("trunk/l10n-kde4", lang, "messages/extragear-graphics", file))
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestCandidates(t *testing.T) {
	tree := writeTree(t, map[string]string{
		"Messages.sh":              "$XGETTEXT `find . -name '*.cpp'` -o $podir/digikam.pot\n",
		"libs/Messages.sh":         "$XGETTEXT *.cpp -o $podir/libdigikam.pot\n$XGETTEXT x.cpp -o $podir/digikam.pot\n",
		"kipi/Messages.sh":         "$XGETTEXT *.cpp -o $podir/kipiplugin_${name}.pot\n",
		".svn/Messages.sh":         "-o $podir/ignored.pot\n",
		"build/src/Messages.sh":    "-o $podir/generated.pot\n",
		"libs/not-a-script/README": "digikam-doc.pot",
	})

	got, err := Candidates(tree)
	if err != nil {
		t.Fatalf("Candidates error: %v", err)
	}
	if diff := cmp.Diff([]string{"digikam.po", "libdigikam.po"}, got); diff != "" {
		t.Fatalf("Candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchSingleCatalogExportsPerLanguage(t *testing.T) {
	repo := vcstest.New(t)
	repo.WriteFile(t, messages("de", "digikam.po"), catalog)
	repo.WriteFile(t, messages("de", "unrelated.po"), catalog)

	tree := writeTree(t, map[string]string{
		"Messages.sh":    "-o $podir/digikam.pot\n",
		"CMakeLists.txt": "project(digikam)\n",
	})

	f := &Fetcher{SVN: repo, Cfg: testConfig(), Log: console.Discard()}
	langs, err := f.Fetch(context.Background(), tree, []string{"de", "xx"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	want := []release.LanguageEntry{{Code: "de", Files: []string{"digikam.po"}}}
	if diff := cmp.Diff(want, langs); diff != "" {
		t.Fatalf("languages mismatch (-want +got):\n%s", diff)
	}

	poDir := filepath.Join(tree, Dir)
	subdirs, err := buildsys.ParseSubdirs(poDir)
	if err != nil {
		t.Fatalf("ParseSubdirs error: %v", err)
	}
	if diff := cmp.Diff([]string{"de"}, subdirs); diff != "" {
		t.Fatalf("po subdirs mismatch (-want +got):\n%s", diff)
	}
	if exists(filepath.Join(poDir, "xx")) {
		t.Fatal("directory created for a language without catalogs")
	}
	if exists(filepath.Join(poDir, "de", "unrelated.po")) {
		t.Fatal("export fetched more than the candidate catalog")
	}

	data, err := os.ReadFile(filepath.Join(poDir, "de", "digikam.po"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if want := "msgid \"\"\nmsgstr \"\"\n\"Language: de\\n\"\n\nmsgid \"hello\"\nmsgstr \"hallo\"\n"; string(data) != want {
		t.Fatalf("stripped catalog = %q, want %q", data, want)
	}

	top, err := buildsys.ParseSubdirs(tree)
	if err != nil {
		t.Fatalf("ParseSubdirs(top) error: %v", err)
	}
	if diff := cmp.Diff([]string{"po"}, top); diff != "" {
		t.Fatalf("top-level wiring mismatch (-want +got):\n%s", diff)
	}
	if repo.Count("export") != 2 || repo.Count("checkout") != 0 {
		t.Fatalf("unexpected VCS calls: %v", repo.Calls)
	}
}

func TestFetchSeveralCatalogsChecksOut(t *testing.T) {
	repo := vcstest.New(t)
	repo.WriteFile(t, messages("de", "digikam.po"), catalog)
	repo.WriteFile(t, messages("de", "libdigikam.po"), "#~ msgid \"x\"\n#~ msgstr \"y\"\n")
	repo.WriteFile(t, messages("de", "kstars.po"), catalog)
	repo.WriteFile(t, messages("fr", "libdigikam.po"), catalog)

	tree := writeTree(t, map[string]string{
		"Messages.sh":      "-o $podir/digikam.pot\n",
		"libs/Messages.sh": "-o $podir/libdigikam.pot\n",
	})

	f := &Fetcher{SVN: repo, Cfg: testConfig(), Log: console.Discard()}
	langs, err := f.Fetch(context.Background(), tree, []string{"de", "es", "fr"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	want := []release.LanguageEntry{
		{Code: "de", Files: []string{"digikam.po"}},
		{Code: "fr", Files: []string{"libdigikam.po"}},
	}
	if diff := cmp.Diff(want, langs); diff != "" {
		t.Fatalf("languages mismatch (-want +got):\n%s", diff)
	}

	de := filepath.Join(tree, Dir, "de")
	if exists(filepath.Join(de, "kstars.po")) || exists(filepath.Join(de, "libdigikam.po")) {
		t.Fatal("non-candidate or empty catalogs were kept")
	}
	if exists(filepath.Join(de, ".svn")) {
		t.Fatal("working copy metadata kept without tagging")
	}
	if exists(filepath.Join(tree, Dir, "es")) {
		t.Fatal("directory created for a missing language")
	}
	if repo.Count("add") != 0 {
		t.Fatalf("Add called without tagging: %v", repo.Calls)
	}
}

func TestFetchTaggingKeepsMetadataAndRegisters(t *testing.T) {
	repo := vcstest.New(t)
	repo.WriteFile(t, messages("de", "digikam.po"), catalog)

	tree := writeTree(t, map[string]string{"Messages.sh": "-o $podir/digikam.pot\n"})

	cfg := testConfig()
	cfg.Tag = true
	f := &Fetcher{SVN: repo, Cfg: cfg, Log: console.Discard()}
	if _, err := f.Fetch(context.Background(), tree, []string{"de"}); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}

	if repo.Count("checkout") != 1 {
		t.Fatalf("tagging should force a checkout: %v", repo.Calls)
	}
	if !exists(filepath.Join(tree, Dir, "de", ".svn")) {
		t.Fatal("working copy metadata dropped while tagging")
	}
	if repo.Count("add") != 1 {
		t.Fatalf("po directory not registered: %v", repo.Calls)
	}
}

func TestFetchNothingRemovesPoDir(t *testing.T) {
	repo := vcstest.New(t)
	repo.WriteFile(t, messages("de", "digikam.po"), "\n\n")

	tree := writeTree(t, map[string]string{"Messages.sh": "-o $podir/digikam.pot\n"})
	f := &Fetcher{SVN: repo, Cfg: testConfig(), Log: console.Discard()}
	langs, err := f.Fetch(context.Background(), tree, []string{"de", "fr"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(langs) != 0 {
		t.Fatalf("languages = %v, want none", langs)
	}
	if exists(filepath.Join(tree, Dir)) {
		t.Fatal("empty po directory left behind")
	}
}

func TestFetchAccessDeniedIsFatal(t *testing.T) {
	repo := vcstest.New(t)
	repo.Denied = []string{vcstest.Root + "/trunk/l10n-kde4/"}

	tree := writeTree(t, map[string]string{"Messages.sh": "-o $podir/digikam.pot\n"})
	f := &Fetcher{SVN: repo, Cfg: testConfig(), Log: console.Discard()}
	_, err := f.Fetch(context.Background(), tree, []string{"de"})
	if !goerr.HasTag(err, release.TagAccessDenied) {
		t.Fatalf("Fetch error = %v, want access denied", err)
	}
}

type dropReporter struct {
	drop  string
	calls int
}

func (r *dropReporter) Report(_ context.Context, poDir string, langs []release.LanguageEntry) ([]release.LanguageEntry, error) {
	r.calls++
	var kept []release.LanguageEntry
	for _, l := range langs {
		if l.Code == r.drop {
			if err := os.RemoveAll(filepath.Join(poDir, l.Code)); err != nil {
				return nil, err
			}
			continue
		}
		kept = append(kept, l)
	}
	return kept, nil
}

func TestFetchReporterFiltersParentFile(t *testing.T) {
	repo := vcstest.New(t)
	repo.WriteFile(t, messages("de", "digikam.po"), catalog)
	repo.WriteFile(t, messages("fr", "digikam.po"), catalog)

	tree := writeTree(t, map[string]string{"Messages.sh": "-o $podir/digikam.pot\n"})

	rep := &dropReporter{drop: "de"}
	f := &Fetcher{SVN: repo, Cfg: testConfig(), Log: console.Discard(), Reporter: rep}
	langs, err := f.Fetch(context.Background(), tree, []string{"de", "fr"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if rep.calls != 1 {
		t.Fatalf("reporter calls = %d, want 1", rep.calls)
	}
	if diff := cmp.Diff([]string{"fr"}, release.Codes(langs)); diff != "" {
		t.Fatalf("languages mismatch (-want +got):\n%s", diff)
	}
	subdirs, _ := buildsys.ParseSubdirs(filepath.Join(tree, Dir))
	if diff := cmp.Diff([]string{"fr"}, subdirs); diff != "" {
		t.Fatalf("po subdirs mismatch (-want +got):\n%s", diff)
	}

	cfg := testConfig()
	cfg.Stat = false
	rep = &dropReporter{drop: "de"}
	tree = writeTree(t, map[string]string{"Messages.sh": "-o $podir/digikam.pot\n"})
	f = &Fetcher{SVN: repo, Cfg: cfg, Log: console.Discard(), Reporter: rep}
	if _, err := f.Fetch(context.Background(), tree, []string{"de"}); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if rep.calls != 0 {
		t.Fatal("reporter ran with statistics disabled")
	}
}
