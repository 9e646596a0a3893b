// Package stats computes per-language translation completeness, enforces
// the completeness barrier and renders the l10n report.
package stats

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/console"
	"github.com/minios-linux/relkit/locales"
	"github.com/minios-linux/relkit/pofile"
	"github.com/minios-linux/relkit/release"
)

// Tier is the display class of a completeness percentage.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
	TierE Tier = "E"
)

// TierFor classifies a percentage: 100 is A, from 95 B, from 75 C,
// from 50 D, anything lower E.
func TierFor(percent float64) Tier {
	switch {
	case percent >= 100:
		return TierA
	case percent >= 95:
		return TierB
	case percent >= 75:
		return TierC
	case percent >= 50:
		return TierD
	}
	return TierE
}

// Color returns the report background color of the tier.
func (t Tier) Color() string {
	switch t {
	case TierA:
		return "#00b015"
	case TierB:
		return "#7ac900"
	case TierC:
		return "#e6e600"
	case TierD:
		return "#ff8c00"
	}
	return "#ff0000"
}

// Percent is the share of messages a user sees translated. An empty
// catalog set is 0%.
func Percent(c pofile.Counts) float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return 100 * float64(total-c.NotShown()) / float64(total)
}

// Row is the statistics of one language.
type Row struct {
	Code    string
	Name    string
	Counts  pofile.Counts
	Percent float64
	Tier    Tier
}

// Totals aggregates the rows of a report.
type Totals struct {
	Fuzzy        int
	Untranslated int
	NotShown     int
	// Average is the mean completeness of the rows.
	Average float64
	Count   int
}

// Summarize sums rows.
func Summarize(rows []Row) Totals {
	var t Totals
	var sum float64
	for _, r := range rows {
		t.Fuzzy += r.Counts.Fuzzy
		t.Untranslated += r.Counts.Untranslated
		t.NotShown += r.Counts.NotShown()
		sum += r.Percent
	}
	t.Count = len(rows)
	if t.Count > 0 {
		t.Average = sum / float64(t.Count)
	}
	return t
}

// Compute counts every catalog of every language below poDir and returns
// one row per language, sorted by percentage descending then code.
func Compute(ctx context.Context, counter Counter, poDir string, langs []release.LanguageEntry) ([]Row, error) {
	rows := make([]Row, 0, len(langs))
	for _, lang := range langs {
		var counts pofile.Counts
		for _, file := range lang.Files {
			path := filepath.Join(poDir, lang.Code, file)
			c, err := counter.Count(ctx, path)
			if err != nil {
				return nil, goerr.Wrap(err, "counting messages", goerr.V("lang", lang.Code), goerr.V("path", path))
			}
			counts = counts.Add(c)
		}
		p := Percent(counts)
		rows = append(rows, Row{
			Code:    lang.Code,
			Name:    locales.Resolve(lang.Code).Name,
			Counts:  counts,
			Percent: p,
			Tier:    TierFor(p),
		})
	}
	SortRows(rows)
	return rows, nil
}

// SortRows orders rows by percentage descending, code ascending on ties.
func SortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Percent != rows[j].Percent {
			return rows[i].Percent > rows[j].Percent
		}
		return rows[i].Code < rows[j].Code
	})
}

// ApplyBarrier splits rows into those at or above barrier and those below.
// A barrier of 0 keeps everything.
func ApplyBarrier(rows []Row, barrier int) (kept, dropped []Row) {
	for _, r := range rows {
		if barrier > 0 && r.Percent < float64(barrier) {
			dropped = append(dropped, r)
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

// Reporter is the statistics stage of the translation fetch.
type Reporter struct {
	Counter Counter
	Log     *console.Logger
	// Barrier is the minimum completeness in percent; 0 disables it.
	Barrier int
	// ReportPath receives the HTML report. Empty skips the file.
	ReportPath string
	// Title heads the HTML report.
	Title string
}

// Report computes statistics for langs, deletes the directories of
// languages below the barrier and returns the survivors with their
// percentage set, in their original order.
func (r *Reporter) Report(ctx context.Context, poDir string, langs []release.LanguageEntry) ([]release.LanguageEntry, error) {
	counter := r.Counter
	if counter == nil {
		counter = POCounter{}
	}
	rows, err := Compute(ctx, counter, poDir, langs)
	if err != nil {
		return nil, err
	}

	kept, dropped := ApplyBarrier(rows, r.Barrier)
	for _, d := range dropped {
		r.Log.Warning("%s is %.1f%% complete, below the %d%% barrier: removed", d.Code, d.Percent, r.Barrier)
		dir := filepath.Join(poDir, d.Code)
		if err := os.RemoveAll(dir); err != nil {
			return nil, goerr.Wrap(err, "removing language below barrier", goerr.V("path", dir))
		}
	}

	PrintTable(r.Log, kept)

	if r.ReportPath != "" {
		if err := WriteHTMLFile(r.ReportPath, r.Title, kept); err != nil {
			return nil, err
		}
		r.Log.Success("Statistics written to %s", r.ReportPath)
	}

	percent := make(map[string]float64, len(kept))
	for _, k := range kept {
		percent[k.Code] = k.Percent
	}
	var out []release.LanguageEntry
	for _, lang := range langs {
		p, ok := percent[lang.Code]
		if !ok {
			continue
		}
		lang.Percent = &p
		out = append(out, lang)
	}
	return out, nil
}

// Scan lists the languages already present in poDir: every subdirectory
// holding at least one .po file.
func Scan(poDir string) ([]release.LanguageEntry, error) {
	dirs, err := os.ReadDir(poDir)
	if err != nil {
		return nil, goerr.Wrap(err, "listing translation directory", goerr.V("path", poDir))
	}
	var langs []release.LanguageEntry
	for _, d := range dirs {
		if !d.IsDir() || d.Name()[0] == '.' {
			continue
		}
		files, err := filepath.Glob(filepath.Join(poDir, d.Name(), "*.po"))
		if err != nil {
			return nil, goerr.Wrap(err, "listing catalogs", goerr.V("lang", d.Name()))
		}
		if len(files) == 0 {
			continue
		}
		entry := release.LanguageEntry{Code: d.Name()}
		for _, f := range files {
			entry.Files = append(entry.Files, filepath.Base(f))
		}
		sort.Strings(entry.Files)
		langs = append(langs, entry)
	}
	return langs, nil
}
