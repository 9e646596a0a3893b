package buildsys

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	return string(data)
}

func TestWriteSubdirsSortedAndParsed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "po")
	if err := WriteSubdirs(dir, []string{"fr", "de", "pt_BR"}); err != nil {
		t.Fatalf("WriteSubdirs error: %v", err)
	}

	want := "add_subdirectory( de )\nadd_subdirectory( fr )\nadd_subdirectory( pt_BR )\n"
	if got := readFile(t, filepath.Join(dir, FileName)); got != want {
		t.Fatalf("CMakeLists.txt = %q, want %q", got, want)
	}

	got, err := ParseSubdirs(dir)
	if err != nil {
		t.Fatalf("ParseSubdirs error: %v", err)
	}
	if diff := cmp.Diff([]string{"de", "fr", "pt_BR"}, got); diff != "" {
		t.Fatalf("ParseSubdirs mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteTranslations(t *testing.T) {
	dir := t.TempDir()
	if err := WriteTranslations(dir, "de", []string{"kipiplugin_b.po", "digikam.po"}); err != nil {
		t.Fatalf("WriteTranslations error: %v", err)
	}
	got := readFile(t, filepath.Join(dir, FileName))
	if !strings.Contains(got, "GETTEXT_PROCESS_PO_FILES( de ALL INSTALL_DESTINATION ${LOCALE_INSTALL_DIR} digikam.po kipiplugin_b.po )") {
		t.Fatalf("unexpected translations file:\n%s", got)
	}
}

func TestWriteHandbook(t *testing.T) {
	dir := t.TempDir()
	if err := WriteHandbook(dir, "fr", "digikam"); err != nil {
		t.Fatalf("WriteHandbook error: %v", err)
	}
	want := "kde4_create_handbook(index.docbook INSTALL_DESTINATION ${HTML_INSTALL_DIR}/fr/ SUBDIR digikam)\n"
	if got := readFile(t, filepath.Join(dir, FileName)); got != want {
		t.Fatalf("handbook file = %q, want %q", got, want)
	}
}

func TestAddSubdirectoryOnce(t *testing.T) {
	dir := t.TempDir()
	top := filepath.Join(dir, FileName)
	if err := os.WriteFile(top, []byte("project(digikam)\nadd_subdirectory( src )"), 0644); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := AddSubdirectory(dir, "po"); err != nil {
			t.Fatalf("AddSubdirectory error: %v", err)
		}
	}
	want := "project(digikam)\nadd_subdirectory( src )\nmacro_optional_add_subdirectory( po )\n"
	if got := readFile(t, top); got != want {
		t.Fatalf("top-level file = %q, want %q", got, want)
	}

	if err := AddSubdirectory(dir, "src"); err != nil {
		t.Fatalf("AddSubdirectory error: %v", err)
	}
	if got := readFile(t, top); got != want {
		t.Fatal("existing subdirectory was added twice")
	}
}

func TestAddSubdirectoryCreatesFile(t *testing.T) {
	dir := t.TempDir()
	if err := AddSubdirectory(dir, "doc-translations"); err != nil {
		t.Fatalf("AddSubdirectory error: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, FileName)); got != "macro_optional_add_subdirectory( doc-translations )\n" {
		t.Fatalf("created file = %q", got)
	}
}
