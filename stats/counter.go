package stats

import (
	"context"
	"os"
	"regexp"
	"strconv"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/pofile"
	"github.com/minios-linux/relkit/runner"
)

// Counter counts the messages of one catalog.
type Counter interface {
	Count(ctx context.Context, path string) (pofile.Counts, error)
}

// POCounter parses catalogs in process.
type POCounter struct{}

func (POCounter) Count(_ context.Context, path string) (pofile.Counts, error) {
	f, err := pofile.ParseFile(path)
	if err != nil {
		return pofile.Counts{}, err
	}
	return f.Stats(), nil
}

// MsgfmtCounter asks GNU msgfmt for the numbers, which also validates the
// catalog the way the build will.
type MsgfmtCounter struct {
	Runner runner.Runner
}

var (
	translatedRe   = regexp.MustCompile(`(\d+) translated message`)
	fuzzyRe        = regexp.MustCompile(`(\d+) fuzzy translation`)
	untranslatedRe = regexp.MustCompile(`(\d+) untranslated message`)
)

func (c MsgfmtCounter) Count(ctx context.Context, path string) (pofile.Counts, error) {
	r := c.Runner
	if r == nil {
		r = runner.Exec{}
	}
	res, err := r.Run(ctx, runner.Command{
		Name: "msgfmt",
		Args: []string{"--statistics", "-o", os.DevNull, path},
	})
	if err != nil {
		return pofile.Counts{}, goerr.Wrap(err, "msgfmt failed", goerr.V("path", path))
	}
	return ParseStatistics(string(res.Stderr) + string(res.Stdout))
}

// ParseStatistics reads the summary line printed by msgfmt --statistics,
// e.g. "12 translated messages, 3 fuzzy translations, 1 untranslated message.".
func ParseStatistics(out string) (pofile.Counts, error) {
	var c pofile.Counts
	matched := false
	for _, f := range []struct {
		re  *regexp.Regexp
		dst *int
	}{
		{translatedRe, &c.Translated},
		{fuzzyRe, &c.Fuzzy},
		{untranslatedRe, &c.Untranslated},
	} {
		m := f.re.FindStringSubmatch(out)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return pofile.Counts{}, goerr.Wrap(err, "malformed msgfmt statistics", goerr.V("output", out))
		}
		*f.dst = n
		matched = true
	}
	if !matched {
		return pofile.Counts{}, goerr.New("no statistics in msgfmt output", goerr.V("output", out))
	}
	return c, nil
}
