// Package inifile reads and writes the small INI dialect used by release
// configuration files:
//
//	# comment
//	[main]
//	version = 1.2.0   ; trailing comment
//
// Lines starting with '!', '/', ';' or '#' are comments. Keys outside a
// section are ignored. There are no nested sections, multi-line values or
// escapes. Output is canonical: sections and keys sorted.
package inifile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/release"
)

// DefaultSeparator splits keys from values.
const DefaultSeparator = "="

// Document is a parsed INI file.
type Document struct {
	sep      string
	sections map[string]map[string]string
}

// New returns an empty document using sep as key/value separator.
func New(sep string) *Document {
	if sep == "" {
		sep = DefaultSeparator
	}
	return &Document{sep: sep, sections: make(map[string]map[string]string)}
}

// Read parses the file at path.
func Read(path, sep string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, goerr.Wrap(err, "config file not found", goerr.V("path", path), goerr.T(release.TagNotFound))
		case os.IsPermission(err):
			return nil, goerr.Wrap(err, "config file not readable", goerr.V("path", path), goerr.T(release.TagAccessDenied))
		}
		return nil, goerr.Wrap(err, "opening config file", goerr.V("path", path))
	}
	defer f.Close()

	doc, err := Parse(f, sep)
	if err != nil {
		return nil, goerr.Wrap(err, "reading config file", goerr.V("path", path))
	}
	return doc, nil
}

// Parse reads an INI document from r.
func Parse(r io.Reader, sep string) (*Document, error) {
	doc := New(sep)
	scanner := bufio.NewScanner(r)

	section := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || isComment(line) {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}

		idx := strings.Index(line, doc.sep)
		if idx < 0 {
			continue
		}
		keyword := strings.TrimSpace(line[:idx])
		if keyword == "" || section == "" {
			continue
		}
		doc.Set(section, keyword, stripComment(strings.TrimSpace(line[idx+len(doc.sep):])))
	}

	if err := scanner.Err(); err != nil {
		return nil, goerr.Wrap(err, "scanning INI input")
	}
	return doc, nil
}

func isComment(line string) bool {
	switch line[0] {
	case '!', '/', ';', '#':
		return true
	}
	return false
}

// stripComment cuts a trailing '#' or ';' comment. A marker counts only at
// the start of the value or after whitespace, so URLs with fragments survive.
func stripComment(value string) string {
	for i := 0; i < len(value); i++ {
		if value[i] != '#' && value[i] != ';' {
			continue
		}
		if i == 0 || value[i-1] == ' ' || value[i-1] == '\t' {
			return strings.TrimSpace(value[:i])
		}
	}
	return value
}

// Separator returns the key/value separator of the document.
func (d *Document) Separator() string {
	return d.sep
}

// Value returns the value of key in section.
func (d *Document) Value(section, key string) (string, bool) {
	keys, ok := d.sections[section]
	if !ok {
		return "", false
	}
	v, ok := keys[key]
	return v, ok
}

// Set stores value under section/key, creating the section if needed.
func (d *Document) Set(section, key, value string) {
	keys, ok := d.sections[section]
	if !ok {
		keys = make(map[string]string)
		d.sections[section] = keys
	}
	keys[key] = value
}

// Sections returns section names in sorted order.
func (d *Document) Sections() []string {
	names := make([]string, 0, len(d.sections))
	for name := range d.sections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keys returns the keys of section in sorted order.
func (d *Document) Keys(section string) []string {
	keys := make([]string, 0, len(d.sections[section]))
	for k := range d.sections[section] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Write emits the document in canonical order. It fails without writing
// anything when a section, key or value would read back differently.
func (d *Document) Write(w io.Writer) error {
	if err := d.validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for i, section := range d.Sections() {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		fmt.Fprintf(bw, "[%s]\n", section)
		for _, key := range d.Keys(section) {
			fmt.Fprintf(bw, "  %s %s %s\n", key, d.sep, d.sections[section][key])
		}
	}
	return bw.Flush()
}

func (d *Document) validate() error {
	for _, section := range d.Sections() {
		if section == "" || section != strings.TrimSpace(section) || strings.ContainsAny(section, "\r\n") {
			return goerr.New("section name cannot be written", goerr.V("section", section), goerr.T(release.TagConfig))
		}
		for _, key := range d.Keys(section) {
			if !writableKey(key, d.sep) {
				return goerr.New("key cannot be written", goerr.V("section", section), goerr.V("key", key), goerr.T(release.TagConfig))
			}
			if value := d.sections[section][key]; !writableValue(value) {
				return goerr.New("value cannot be written", goerr.V("section", section), goerr.V("key", key), goerr.V("value", value), goerr.T(release.TagConfig))
			}
		}
	}
	return nil
}

func writableKey(key, sep string) bool {
	if key == "" || key != strings.TrimSpace(key) || isComment(key) || key[0] == '[' {
		return false
	}
	return !strings.Contains(key, sep) && !strings.ContainsAny(key, "\r\n")
}

// writableValue reports whether value survives Parse unchanged: no line
// breaks, no surrounding blanks and nothing stripComment would cut.
func writableValue(value string) bool {
	if value != strings.TrimSpace(value) || strings.ContainsAny(value, "\r\n") {
		return false
	}
	return stripComment(value) == value
}

// WriteFile writes the document to path.
func (d *Document) WriteFile(path string) error {
	if err := d.validate(); err != nil {
		return goerr.Wrap(err, "writing config file", goerr.V("path", path))
	}
	out, err := os.Create(path)
	if err != nil {
		return goerr.Wrap(err, "creating config file", goerr.V("path", path))
	}
	if err := d.Write(out); err != nil {
		out.Close()
		return goerr.Wrap(err, "writing config file", goerr.V("path", path))
	}
	return out.Close()
}
