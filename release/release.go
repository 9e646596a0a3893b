// Package release holds the data shared between the stages of a release run:
// fetched languages, checksum records and the error tags used to classify
// failures.
package release

import (
	"sort"

	"github.com/m-mizutani/goerr/v2"
)

// Error tags. Stages attach one of these with goerr.T so the pipeline can
// decide whether a failure is skippable, prompts the operator, or is fatal.
var (
	// TagNotFound marks a remote path that does not exist.
	TagNotFound = goerr.NewTag("not_found")
	// TagAccessDenied marks credential or permission problems.
	TagAccessDenied = goerr.NewTag("access_denied")
	// TagSubprocess marks a failed external command.
	TagSubprocess = goerr.NewTag("subprocess")
	// TagConfig marks malformed configuration.
	TagConfig = goerr.NewTag("config")
)

// LanguageEntry is one fetched translation or documentation set.
type LanguageEntry struct {
	// Code is the locale code, e.g. "de" or "pt_BR".
	Code string
	// Files are the retrieved files, relative to the language directory.
	Files []string
	// Percent is the completeness percentage; nil until statistics ran.
	Percent *float64
}

// Codes returns the locale codes of entries in their current order.
func Codes(entries []LanguageEntry) []string {
	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		codes = append(codes, e.Code)
	}
	return codes
}

// SortedCodes returns the locale codes of entries sorted lexicographically.
func SortedCodes(entries []LanguageEntry) []string {
	codes := Codes(entries)
	sort.Strings(codes)
	return codes
}

// Digest algorithm names used in checksum records.
const (
	DigestMD5    = "md5"
	DigestSHA1   = "sha1"
	DigestSHA256 = "sha256"
)

// ChecksumRecord maps a produced artifact to its digests.
type ChecksumRecord struct {
	File    string            `yaml:"file"`
	Digests map[string]string `yaml:"digests"`
}

// Algorithms returns the digest names of the record in sorted order.
func (r ChecksumRecord) Algorithms() []string {
	names := make([]string, 0, len(r.Digests))
	for name := range r.Digests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
