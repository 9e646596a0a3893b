// Package notify writes what packagers receive after a release: a plain
// text notification and a machine-readable manifest.
package notify

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/config"
	"github.com/minios-linux/relkit/release"
)

// Summary is everything a notification reports.
type Summary struct {
	Name      string
	Version   string
	Checksums []release.ChecksumRecord
	// DocLocales and Languages are locale codes; order does not matter.
	DocLocales []string
	Languages  []string
}

// NewSummary collects a summary from a finished run.
func NewSummary(cfg config.ReleaseConfig, sums []release.ChecksumRecord, docs, langs []release.LanguageEntry) Summary {
	return Summary{
		Name:       cfg.Name,
		Version:    cfg.Version,
		Checksums:  sums,
		DocLocales: release.SortedCodes(docs),
		Languages:  release.SortedCodes(langs),
	}
}

// Render writes the notification text to w.
func Render(w io.Writer, s Summary) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s %s\n\n", s.Name, s.Version)

	fmt.Fprintln(bw, "Checksums")
	fmt.Fprintln(bw, "---------")
	records := append([]release.ChecksumRecord(nil), s.Checksums...)
	sort.Slice(records, func(i, j int) bool { return records[i].File < records[j].File })
	for _, rec := range records {
		fmt.Fprintf(bw, "%s\n", rec.File)
		for _, alg := range rec.Algorithms() {
			fmt.Fprintf(bw, "  %-7s %s\n", alg+":", rec.Digests[alg])
		}
	}

	writeLocales(bw, "Documentation locales", s.DocLocales)
	writeLocales(bw, "Translation locales", s.Languages)

	if err := bw.Flush(); err != nil {
		return goerr.Wrap(err, "writing notification")
	}
	return nil
}

func writeLocales(w io.Writer, title string, codes []string) {
	sorted := append([]string(nil), codes...)
	sort.Strings(sorted)
	heading := fmt.Sprintf("%s (%d)", title, len(sorted))
	fmt.Fprintf(w, "\n%s\n%s\n", heading, strings.Repeat("-", len(heading)))
	fmt.Fprintln(w, strings.Join(sorted, " "))
}

// WriteNotification renders s into dir/name and returns the file path.
func WriteNotification(dir, name string, s Summary) (string, error) {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", goerr.Wrap(err, "creating notification", goerr.V("path", path))
	}
	if err := Render(f, s); err != nil {
		f.Close()
		return "", goerr.Wrap(err, "rendering notification", goerr.V("path", path))
	}
	if err := f.Close(); err != nil {
		return "", goerr.Wrap(err, "closing notification", goerr.V("path", path))
	}
	return path, nil
}
