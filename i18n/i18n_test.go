package i18n

import "testing"

func clearLocaleEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		t.Setenv(env, "")
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"LANGUAGE first entry wins", map[string]string{"LANGUAGE": "de_DE.UTF-8:en_US", "LC_ALL": "fr_FR.UTF-8"}, "de_DE"},
		{"C and POSIX skipped", map[string]string{"LANGUAGE": "C", "LC_ALL": "POSIX", "LC_MESSAGES": "fr_FR.UTF-8"}, "fr_FR"},
		{"modifier stripped", map[string]string{"LANG": "sr_RS.UTF-8@latin"}, "sr_RS"},
		{"falls back to en", nil, "en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearLocaleEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if got := detectLanguage(); got != tt.want {
				t.Fatalf("detectLanguage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func restore(t *testing.T) {
	t.Helper()
	oldLocale, oldLang := locale, lang
	t.Cleanup(func() { locale, lang = oldLocale, oldLang })
}

func TestFallbackWhenUninitialized(t *testing.T) {
	restore(t)
	locale = nil

	if got := T("Release %s is ready", "x.tar.bz2"); got != "Release x.tar.bz2 is ready" {
		t.Fatalf("T fallback = %q", got)
	}
	if got := N("%d translation", "%d translations", 1, 1); got != "1 translation" {
		t.Fatalf("N singular fallback = %q", got)
	}
	if got := N("%d translation", "%d translations", 3, 3); got != "3 translations" {
		t.Fatalf("N plural fallback = %q", got)
	}
}

func TestEmbeddedGermanCatalog(t *testing.T) {
	restore(t)
	Init("de")

	if Language() != "de" {
		t.Fatalf("Language() = %q, want de", Language())
	}
	if got := T("Summary"); got != "Zusammenfassung" {
		t.Fatalf("T(Summary) = %q, want %q", got, "Zusammenfassung")
	}
	if got := N("%d translation", "%d translations", 2, 2); got != "2 Übersetzungen" {
		t.Fatalf("N = %q, want %q", got, "2 Übersetzungen")
	}
	if got := T("not in any catalog"); got != "not in any catalog" {
		t.Fatalf("untranslated passthrough = %q", got)
	}
}
