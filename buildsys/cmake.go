// Package buildsys writes the CMakeLists.txt snippets that hook fetched
// translations and handbooks into the project's build.
package buildsys

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// FileName is the build description file name.
const FileName = "CMakeLists.txt"

var subdirRe = regexp.MustCompile(`^\s*(?:macro_optional_)?add_subdirectory\s*\(\s*([^\s)]+)\s*\)`)

func write(dir string, body []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return goerr.Wrap(err, "creating build directory", goerr.V("path", dir))
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, body, 0644); err != nil {
		return goerr.Wrap(err, "writing build description", goerr.V("path", path))
	}
	return nil
}

// WriteSubdirs writes dir/CMakeLists.txt with one add_subdirectory per
// entry, sorted.
func WriteSubdirs(dir string, subdirs []string) error {
	sorted := append([]string(nil), subdirs...)
	sort.Strings(sorted)

	var b bytes.Buffer
	for _, s := range sorted {
		fmt.Fprintf(&b, "add_subdirectory( %s )\n", s)
	}
	return write(dir, b.Bytes())
}

// WriteTranslations writes the per-language file installing the given
// catalogs.
func WriteTranslations(dir, lang string, files []string) error {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	var b bytes.Buffer
	fmt.Fprintf(&b, "GETTEXT_PROCESS_PO_FILES( %s ALL INSTALL_DESTINATION ${LOCALE_INSTALL_DIR} %s )\n",
		lang, strings.Join(sorted, " "))
	return write(dir, b.Bytes())
}

// WriteHandbook writes the file installing a translated handbook.
func WriteHandbook(dir, lang, name string) error {
	body := fmt.Sprintf("kde4_create_handbook(index.docbook INSTALL_DESTINATION ${HTML_INSTALL_DIR}/%s/ SUBDIR %s)\n", lang, name)
	return write(dir, []byte(body))
}

// AddSubdirectory wires sub into the top-level build description of topDir
// unless it is already listed. A missing top-level file is created.
func AddSubdirectory(topDir, sub string) error {
	path := filepath.Join(topDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return goerr.Wrap(err, "reading top-level build description", goerr.V("path", path))
	}
	for _, s := range parse(data) {
		if s == sub {
			return nil
		}
	}

	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	data = append(data, fmt.Sprintf("macro_optional_add_subdirectory( %s )\n", sub)...)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return goerr.Wrap(err, "writing top-level build description", goerr.V("path", path))
	}
	return nil
}

// ParseSubdirs returns the subdirectories listed in dir/CMakeLists.txt.
func ParseSubdirs(dir string) ([]string, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "reading build description", goerr.V("path", path))
	}
	return parse(data), nil
}

func parse(data []byte) []string {
	var subdirs []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if m := subdirRe.FindStringSubmatch(scanner.Text()); m != nil {
			subdirs = append(subdirs, m[1])
		}
	}
	return subdirs
}
