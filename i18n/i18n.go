// Package i18n translates relkit's own command-line messages.
//
// Catalogs live in locales/<lang>/LC_MESSAGES/relkit.po and are embedded
// into the binary. Call Init once from main before using T or N; until
// then both return the English text.
package i18n

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

//go:embed all:locales
var catalogs embed.FS

const domain = "relkit"

var (
	locale *gotext.Locale
	lang   = "en"
)

// Init loads the catalog for code, or for the language named by the
// environment when code is empty.
func Init(code string) {
	if code == "" {
		code = detectLanguage()
	}
	lang = code
	locale = gotext.NewLocaleFSWithPath(code, catalogs, "locales")
	locale.AddDomain(domain)
	locale.SetDomain(domain)
}

// Language returns the language selected by Init.
func Language() string {
	return lang
}

// T returns the translation of msgid, or msgid itself.
func T(msgid string, vars ...any) string {
	if locale == nil {
		if len(vars) > 0 {
			return fmt.Sprintf(msgid, vars...)
		}
		return msgid
	}
	return locale.Get(msgid, vars...)
}

// N picks the singular or plural translation for n.
func N(singular, plural string, n int, vars ...any) string {
	if locale == nil {
		msg := plural
		if n == 1 {
			msg = singular
		}
		if len(vars) > 0 {
			return fmt.Sprintf(msg, vars...)
		}
		return msg
	}
	return locale.GetN(singular, plural, n, vars...)
}

// detectLanguage follows the gettext lookup order
// LANGUAGE, LC_ALL, LC_MESSAGES, LANG.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		val, _, _ = strings.Cut(val, ".")
		val, _, _ = strings.Cut(val, "@")
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		return val
	}
	return "en"
}
