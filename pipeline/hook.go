package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/buildsys"
	"github.com/minios-linux/relkit/console"
	"github.com/minios-linux/relkit/release"
)

// Hook adjusts the working tree of a project before it is archived.
type Hook interface {
	Apply(ctx context.Context, rc *Context, log *console.Logger) error
}

// NopHook leaves the tree alone.
type NopHook struct{}

func (NopHook) Apply(context.Context, *Context, *console.Logger) error { return nil }

// CMakeVersionHook stamps the release version into the top-level
// CMakeLists.txt by rewriting set(<Var> "...").
type CMakeVersionHook struct {
	Var string
}

func (h CMakeVersionHook) Apply(_ context.Context, rc *Context, log *console.Logger) error {
	path := filepath.Join(rc.WorkTree, buildsys.FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return goerr.Wrap(err, "no top-level build description", goerr.V("path", path), goerr.T(release.TagNotFound))
		}
		return goerr.Wrap(err, "reading top-level build description", goerr.V("path", path))
	}

	re := regexp.MustCompile(`(?mi)^(\s*set\s*\(\s*` + regexp.QuoteMeta(h.Var) + `\s+)"[^"]*"`)
	if !re.Match(data) {
		log.Warning("%s does not set %s, version left unchanged", buildsys.FileName, h.Var)
		return nil
	}
	version := strings.ReplaceAll(rc.Config.Version, "$", "$$")
	out := re.ReplaceAll(data, []byte(`${1}"`+version+`"`))
	if err := os.WriteFile(path, out, 0644); err != nil {
		return goerr.Wrap(err, "writing top-level build description", goerr.V("path", path))
	}
	log.Success("Set %s to %s", h.Var, rc.Config.Version)
	return nil
}
