package stats

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/console"
)

var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct": func(p float64) string { return fmt.Sprintf("%.2f", p) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
table { border-collapse: collapse; }
th, td { border: 1px solid #888; padding: 2px 8px; text-align: right; }
td.lang { text-align: left; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<table>
<tr><th>Language</th><th>Fuzzy</th><th>Untranslated</th><th>Not shown</th><th>Completeness</th></tr>
{{- range .Rows}}
<tr style="background-color: {{.Tier.Color}}"><td class="lang">{{.Name}} ({{.Code}})</td><td>{{.Counts.Fuzzy}}</td><td>{{.Counts.Untranslated}}</td><td>{{.Counts.NotShown}}</td><td>{{pct .Percent}} %</td></tr>
{{- end}}
<tr><th>Total: {{.Totals.Count}}</th><th>{{.Totals.Fuzzy}}</th><th>{{.Totals.Untranslated}}</th><th>{{.Totals.NotShown}}</th><th>{{pct .Totals.Average}} %</th></tr>
</table>
</body>
</html>
`))

// WriteHTML renders the report for rows, which should already be sorted.
func WriteHTML(w io.Writer, title string, rows []Row) error {
	data := struct {
		Title  string
		Rows   []Row
		Totals Totals
	}{title, rows, Summarize(rows)}
	if err := reportTmpl.Execute(w, data); err != nil {
		return goerr.Wrap(err, "rendering statistics report")
	}
	return nil
}

// WriteHTMLFile writes the report to path.
func WriteHTMLFile(path, title string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return goerr.Wrap(err, "creating statistics report", goerr.V("path", path))
	}
	if err := WriteHTML(f, title, rows); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return goerr.Wrap(err, "closing statistics report", goerr.V("path", path))
	}
	return nil
}

var tierColors = map[Tier]*color.Color{
	TierA: color.New(color.FgGreen),
	TierB: color.New(color.FgHiGreen),
	TierC: color.New(color.FgYellow),
	TierD: color.New(color.FgHiYellow),
	TierE: color.New(color.FgRed),
}

// PrintTable writes the console summary of rows.
func PrintTable(log *console.Logger, rows []Row) {
	w := log.Writer()
	log.Header("Translation Statistics")
	fmt.Fprintf(w, "\n%-10s %-12s %-10s %-10s %-8s\n", "Lang", "Translated", "Fuzzy", "Untrans.", "Percent")
	fmt.Fprintln(w, strings.Repeat("─", 52))
	for _, r := range rows {
		pct := tierColors[r.Tier].Sprintf("%.1f%%", r.Percent)
		fmt.Fprintf(w, "%-10s %-12d %-10d %-10d %s\n", r.Code, r.Counts.Translated, r.Counts.Fuzzy, r.Counts.Untranslated, pct)
	}
	fmt.Fprintln(w, strings.Repeat("─", 52))
	t := Summarize(rows)
	fmt.Fprintf(w, "Languages: %d, average %.1f%%\n\n", t.Count, t.Average)
}
