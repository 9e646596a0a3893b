package locales

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/release"
	"github.com/minios-linux/relkit/vcs/vcstest"
)

func TestCanonicalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt-br", want: "pt_BR"},
		{in: " ZH_tw ", want: "zh_TW"},
		{in: "sr@Latin", want: "sr@latin"},
		{in: "de", want: "de"},
		{in: "", want: ""},
	}

	for _, tc := range cases {
		got := canonicalize(tc.in)
		if got != tc.want {
			t.Fatalf("canonicalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Run("exact match", func(t *testing.T) {
		if got := Resolve("pt_BR").Name; got != "Brazilian Portuguese" {
			t.Fatalf("Resolve(pt_BR) = %q", got)
		}
	})

	t.Run("normalized match", func(t *testing.T) {
		if got := Resolve("zh-cn").Name; got != "Chinese Simplified" {
			t.Fatalf("Resolve(zh-cn) = %q", got)
		}
	})

	t.Run("base fallback", func(t *testing.T) {
		if got := Resolve("fr_CA").Name; got != "French" {
			t.Fatalf("Resolve(fr_CA) = %q, want French", got)
		}
		if got := Resolve("de@formal").Name; got != "German" {
			t.Fatalf("Resolve(de@formal) = %q, want German", got)
		}
	})

	t.Run("unknown passthrough", func(t *testing.T) {
		if got := Resolve("xx").Name; got != "xx" {
			t.Fatalf("Resolve(xx) = %q, want xx", got)
		}
	})
}

func TestParseSubdirs(t *testing.T) {
	data := []byte(`# active teams
af ar
de  x-test
fr # joined 2009
de
pt_BR
`)
	got := ParseSubdirs(data)
	want := []string{"af", "ar", "de", "fr", "pt_BR"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ParseSubdirs mismatch (-want +got):\n%s", diff)
	}
}

func TestActive(t *testing.T) {
	repo := vcstest.New(t)
	repo.WriteFile(t, "trunk/l10n-kde4/subdirs", "de\nx-test\nfr\n")

	got, err := Active(context.Background(), repo, repo.URL("trunk/l10n-kde4/subdirs"))
	if err != nil {
		t.Fatalf("Active error: %v", err)
	}
	if diff := cmp.Diff([]string{"de", "fr"}, got); diff != "" {
		t.Fatalf("Active mismatch (-want +got):\n%s", diff)
	}

	_, err = Active(context.Background(), repo, repo.URL("stable/l10n-kde4/subdirs"))
	if !goerr.HasTag(err, release.TagNotFound) {
		t.Fatalf("Active error = %v, want not found", err)
	}
}
