// Package pofile reads gettext message catalogs far enough to count their
// messages, and cleans fetched catalogs before they are shipped.
package pofile

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Entry is one message of a catalog.
type Entry struct {
	Flags []string

	MsgCtxt     string
	MsgID       string
	MsgIDPlural string
	MsgStr      string
	// MsgStrPlural maps plural form index to translated string.
	MsgStrPlural map[int]string

	// Obsolete marks entries prefixed with "#~".
	Obsolete bool
}

// IsFuzzy returns true if the entry is marked fuzzy.
func (e *Entry) IsFuzzy() bool {
	for _, f := range e.Flags {
		if f == "fuzzy" {
			return true
		}
	}
	return false
}

// IsTranslated returns true if every form of the entry has a translation
// and the entry is not fuzzy.
func (e *Entry) IsTranslated() bool {
	if e.MsgID == "" || e.IsFuzzy() {
		return false
	}
	if e.MsgIDPlural != "" {
		if len(e.MsgStrPlural) == 0 {
			return false
		}
		for _, v := range e.MsgStrPlural {
			if v == "" {
				return false
			}
		}
		return true
	}
	return e.MsgStr != ""
}

// File is a parsed catalog.
type File struct {
	// Header is the metadata entry (msgid "").
	Header  *Entry
	Entries []*Entry
}

// HeaderField returns a header field value by name.
func (f *File) HeaderField(name string) string {
	if f.Header == nil {
		return ""
	}
	for _, line := range strings.Split(f.Header.MsgStr, "\n") {
		if idx := strings.Index(line, ":"); idx > 0 {
			if strings.EqualFold(strings.TrimSpace(line[:idx]), name) {
				return strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return ""
}

// Counts summarizes the live (non-obsolete) messages of one or more catalogs.
type Counts struct {
	Translated   int
	Fuzzy        int
	Untranslated int
}

// Total is the number of live messages.
func (c Counts) Total() int {
	return c.Translated + c.Fuzzy + c.Untranslated
}

// NotShown is the number of messages a user still sees untranslated.
func (c Counts) NotShown() int {
	return c.Fuzzy + c.Untranslated
}

// Add returns the sum of c and o.
func (c Counts) Add(o Counts) Counts {
	return Counts{
		Translated:   c.Translated + o.Translated,
		Fuzzy:        c.Fuzzy + o.Fuzzy,
		Untranslated: c.Untranslated + o.Untranslated,
	}
}

// Stats counts the live messages of f. The header is not a message.
func (f *File) Stats() Counts {
	var c Counts
	for _, e := range f.Entries {
		if e.MsgID == "" || e.Obsolete {
			continue
		}
		switch {
		case e.IsFuzzy():
			c.Fuzzy++
		case e.IsTranslated():
			c.Translated++
		default:
			c.Untranslated++
		}
	}
	return c
}

type parser struct {
	file    *File
	current *Entry
	// field is the keyword continuation lines append to.
	field string
	// plural is the msgstr index when field is "msgstr[]".
	plural int
}

func (p *parser) entry() *Entry {
	if p.current == nil {
		p.current = &Entry{MsgStrPlural: make(map[int]string)}
	}
	return p.current
}

func (p *parser) flush() {
	if p.current == nil {
		return
	}
	if p.current.MsgID == "" && !p.current.Obsolete {
		p.file.Header = p.current
	} else {
		p.file.Entries = append(p.file.Entries, p.current)
	}
	p.current = nil
	p.field = ""
}

func (p *parser) line(n int, line string) error {
	if strings.TrimSpace(line) == "" {
		p.flush()
		return nil
	}
	e := p.entry()

	if rest, ok := strings.CutPrefix(line, "#~"); ok {
		e.Obsolete = true
		line = strings.TrimPrefix(rest, " ")
		if strings.HasPrefix(line, "#") || line == "" {
			return nil
		}
	}

	switch {
	case strings.HasPrefix(line, "#,"):
		for _, flag := range strings.Split(line[2:], ",") {
			if flag = strings.TrimSpace(flag); flag != "" {
				e.Flags = append(e.Flags, flag)
			}
		}
	case strings.HasPrefix(line, "#"):
		// translator, extracted and reference comments do not affect counts
	case strings.HasPrefix(line, "msgctxt "):
		e.MsgCtxt, p.field = unquote(line[len("msgctxt "):]), "msgctxt"
	case strings.HasPrefix(line, "msgid_plural "):
		e.MsgIDPlural, p.field = unquote(line[len("msgid_plural "):]), "msgid_plural"
	case strings.HasPrefix(line, "msgid "):
		e.MsgID, p.field = unquote(line[len("msgid "):]), "msgid"
	case strings.HasPrefix(line, "msgstr["):
		end := strings.Index(line, "]")
		idx, err := strconv.Atoi(line[len("msgstr["):max(end, len("msgstr["))])
		if end < 0 || err != nil {
			return goerr.New("invalid msgstr index", goerr.V("line", n), goerr.V("text", line))
		}
		e.MsgStrPlural[idx] = unquote(strings.TrimSpace(line[end+1:]))
		p.field, p.plural = "msgstr[]", idx
	case strings.HasPrefix(line, "msgstr "):
		e.MsgStr, p.field = unquote(line[len("msgstr "):]), "msgstr"
	case strings.HasPrefix(line, `"`):
		val := unquote(line)
		switch p.field {
		case "msgctxt":
			e.MsgCtxt += val
		case "msgid":
			e.MsgID += val
		case "msgid_plural":
			e.MsgIDPlural += val
		case "msgstr":
			e.MsgStr += val
		case "msgstr[]":
			e.MsgStrPlural[p.plural] += val
		}
	}
	return nil
}

// Parse reads a catalog.
func Parse(r io.Reader) (*File, error) {
	p := &parser{file: &File{}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	n := 0
	for scanner.Scan() {
		n++
		if err := p.line(n, scanner.Text()); err != nil {
			return nil, err
		}
	}
	p.flush()

	if err := scanner.Err(); err != nil {
		return nil, goerr.Wrap(err, "reading PO file")
	}
	return p.file, nil
}

// ParseFile reads a catalog from disk.
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "opening PO file", goerr.V("path", path))
	}
	defer f.Close()

	file, err := Parse(f)
	if err != nil {
		return nil, goerr.Wrap(err, "parsing PO file", goerr.V("path", path))
	}
	return file, nil
}

// StripObsolete removes every "#~" line, collapses the blank runs left
// behind and trims the result. Non-empty output ends with one newline.
func StripObsolete(data []byte) []byte {
	var out bytes.Buffer
	blank := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "#~") {
			continue
		}
		if strings.TrimSpace(line) == "" {
			blank = true
			continue
		}
		if blank && out.Len() > 0 {
			out.WriteByte('\n')
		}
		blank = false
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return out.Bytes()
}

// StripObsoleteFile rewrites path without obsolete entries and reports
// whether anything is left.
func StripObsoleteFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, goerr.Wrap(err, "reading PO file", goerr.V("path", path))
	}
	cleaned := StripObsolete(data)
	if err := os.WriteFile(path, cleaned, 0644); err != nil {
		return false, goerr.Wrap(err, "writing PO file", goerr.V("path", path))
	}
	return len(cleaned) > 0, nil
}

// unquote removes PO-style quoting from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '"', '\\':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
