package l10n

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/m-mizutani/goerr/v2"
)

// ScriptName is the extraction script that names a directory's templates.
const ScriptName = "Messages.sh"

// skipDirs contains directory names to skip while looking for scripts.
var skipDirs = map[string]bool{
	".git":  true,
	".hg":   true,
	".svn":  true,
	"CVS":   true,
	"build": true,
	"po":    true,
}

var potRe = regexp.MustCompile(`([A-Za-z0-9_.+-]+)\.pot\b`)

// FindScripts returns every Messages.sh below root, sorted.
func FindScripts(root string) ([]string, error) {
	var scripts []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if info.IsDir() {
			if path != root && skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Name() == ScriptName {
			scripts = append(scripts, path)
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "scanning for extraction scripts", goerr.V("root", root))
	}
	sort.Strings(scripts)
	return scripts, nil
}

// Candidates returns the catalog names (<template>.po) referenced by the
// extraction scripts of the tree at root, sorted and unique.
func Candidates(root string) ([]string, error) {
	scripts, err := FindScripts(root)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var names []string
	for _, script := range scripts {
		found, err := templatesIn(script)
		if err != nil {
			return nil, err
		}
		for _, t := range found {
			po := t + ".po"
			if !seen[po] {
				seen[po] = true
				names = append(names, po)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func templatesIn(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "opening extraction script", goerr.V("path", path))
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		for _, m := range potRe.FindAllStringSubmatch(scanner.Text(), -1) {
			names = append(names, m[1])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, goerr.Wrap(err, "reading extraction script", goerr.V("path", path))
	}
	return names, nil
}
