package notify

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/relkit/release"
)

// ManifestVersion is the manifest format version.
const ManifestVersion = 1

// Manifest is the <name>-<version>.release.yaml file published next to
// the tarball.
type Manifest struct {
	Version   int                      `yaml:"version"`
	Project   string                   `yaml:"project"`
	Release   string                   `yaml:"release"`
	Checksums []release.ChecksumRecord `yaml:"checksums"`
	Docs      []string                 `yaml:"doc_locales,omitempty"`
	Languages []string                 `yaml:"languages,omitempty"`
}

// ManifestFrom converts a summary.
func ManifestFrom(s Summary) *Manifest {
	return &Manifest{
		Version:   ManifestVersion,
		Project:   s.Name,
		Release:   s.Version,
		Checksums: s.Checksums,
		Docs:      s.DocLocales,
		Languages: s.Languages,
	}
}

// Summary converts the manifest back.
func (m *Manifest) Summary() Summary {
	return Summary{
		Name:       m.Project,
		Version:    m.Release,
		Checksums:  m.Checksums,
		DocLocales: m.Docs,
		Languages:  m.Languages,
	}
}

// LoadManifest reads a manifest. A missing file is tagged NotFound.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(err, "manifest not found", goerr.V("path", path), goerr.T(release.TagNotFound))
		}
		return nil, goerr.Wrap(err, "reading manifest", goerr.V("path", path))
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, goerr.Wrap(err, "parsing manifest", goerr.V("path", path))
	}
	if m.Version != ManifestVersion {
		return nil, goerr.New("unsupported manifest version", goerr.V("path", path), goerr.V("version", m.Version))
	}
	return &m, nil
}

// Save writes the manifest to dir/name and returns the file path.
func (m *Manifest) Save(dir, name string) (string, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return "", goerr.Wrap(err, "marshaling manifest")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", goerr.Wrap(err, "writing manifest", goerr.V("path", path))
	}
	return path, nil
}
