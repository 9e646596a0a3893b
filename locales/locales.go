// Package locales knows which localization teams are active and how to
// display their codes in reports.
package locales

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/minios-linux/relkit/vcs"
)

// TestLocale is the pseudo-locale used to check translations; it is never
// released.
const TestLocale = "x-test"

// Meta describes a locale for display.
type Meta struct {
	Name string
}

// Registry maps l10n team codes to English display names. Codes use the
// repository's own spelling: underscore region, @ modifier.
var Registry = map[string]Meta{
	"af":                {Name: "Afrikaans"},
	"ar":                {Name: "Arabic"},
	"as":                {Name: "Assamese"},
	"ast":               {Name: "Asturian"},
	"be":                {Name: "Belarusian"},
	"be@latin":          {Name: "Belarusian (Latin)"},
	"bg":                {Name: "Bulgarian"},
	"bn":                {Name: "Bengali"},
	"bn_IN":             {Name: "Bengali (India)"},
	"br":                {Name: "Breton"},
	"bs":                {Name: "Bosnian"},
	"ca":                {Name: "Catalan"},
	"ca@valencia":       {Name: "Catalan (Valencian)"},
	"cs":                {Name: "Czech"},
	"csb":               {Name: "Kashubian"},
	"cy":                {Name: "Welsh"},
	"da":                {Name: "Danish"},
	"de":                {Name: "German"},
	"el":                {Name: "Greek"},
	"en_GB":             {Name: "British English"},
	"eo":                {Name: "Esperanto"},
	"es":                {Name: "Spanish"},
	"et":                {Name: "Estonian"},
	"eu":                {Name: "Basque"},
	"fa":                {Name: "Farsi"},
	"fi":                {Name: "Finnish"},
	"fr":                {Name: "French"},
	"fy":                {Name: "Frisian"},
	"ga":                {Name: "Irish Gaelic"},
	"gl":                {Name: "Galician"},
	"gu":                {Name: "Gujarati"},
	"he":                {Name: "Hebrew"},
	"hi":                {Name: "Hindi"},
	"hne":               {Name: "Chhattisgarhi"},
	"hr":                {Name: "Croatian"},
	"hsb":               {Name: "Upper Sorbian"},
	"hu":                {Name: "Hungarian"},
	"hy":                {Name: "Armenian"},
	"ia":                {Name: "Interlingua"},
	"id":                {Name: "Indonesian"},
	"is":                {Name: "Icelandic"},
	"it":                {Name: "Italian"},
	"ja":                {Name: "Japanese"},
	"ka":                {Name: "Georgian"},
	"kk":                {Name: "Kazakh"},
	"km":                {Name: "Khmer"},
	"kn":                {Name: "Kannada"},
	"ko":                {Name: "Korean"},
	"ku":                {Name: "Kurdish"},
	"lt":                {Name: "Lithuanian"},
	"lv":                {Name: "Latvian"},
	"mai":               {Name: "Maithili"},
	"mk":                {Name: "Macedonian"},
	"ml":                {Name: "Malayalam"},
	"mr":                {Name: "Marathi"},
	"ms":                {Name: "Malay"},
	"nb":                {Name: "Norwegian Bokmål"},
	"nds":               {Name: "Low Saxon"},
	"ne":                {Name: "Nepali"},
	"nl":                {Name: "Dutch"},
	"nn":                {Name: "Norwegian Nynorsk"},
	"oc":                {Name: "Occitan"},
	"or":                {Name: "Oriya"},
	"pa":                {Name: "Punjabi"},
	"pl":                {Name: "Polish"},
	"pt":                {Name: "Portuguese"},
	"pt_BR":             {Name: "Brazilian Portuguese"},
	"ro":                {Name: "Romanian"},
	"ru":                {Name: "Russian"},
	"se":                {Name: "Northern Sami"},
	"si":                {Name: "Sinhala"},
	"sk":                {Name: "Slovak"},
	"sl":                {Name: "Slovenian"},
	"sq":                {Name: "Albanian"},
	"sr":                {Name: "Serbian"},
	"sr@ijekavian":      {Name: "Serbian (Ijekavian)"},
	"sr@ijekavianlatin": {Name: "Serbian (Ijekavian Latin)"},
	"sr@latin":          {Name: "Serbian (Latin)"},
	"sv":                {Name: "Swedish"},
	"ta":                {Name: "Tamil"},
	"te":                {Name: "Telugu"},
	"tg":                {Name: "Tajik"},
	"th":                {Name: "Thai"},
	"tr":                {Name: "Turkish"},
	"ug":                {Name: "Uyghur"},
	"uk":                {Name: "Ukrainian"},
	"uz":                {Name: "Uzbek"},
	"uz@cyrillic":       {Name: "Uzbek (Cyrillic)"},
	"vi":                {Name: "Vietnamese"},
	"wa":                {Name: "Walloon"},
	"xh":                {Name: "Xhosa"},
	"zh_CN":             {Name: "Chinese Simplified"},
	"zh_HK":             {Name: "Chinese (Hong Kong)"},
	"zh_TW":             {Name: "Chinese Traditional"},
}

// canonicalize rewrites pt-br or PT_br to pt_BR, keeping an @modifier.
func canonicalize(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	modifier := ""
	if i := strings.IndexByte(code, '@'); i >= 0 {
		code, modifier = code[:i], code[i:]
	}
	parts := strings.Split(strings.ReplaceAll(code, "-", "_"), "_")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "_") + strings.ToLower(modifier)
}

// Resolve returns display metadata for a locale code. Unknown variants fall
// back to their base language, unknown languages to the code itself.
func Resolve(code string) Meta {
	if m, ok := Registry[code]; ok {
		return m
	}
	normalized := canonicalize(code)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	base := normalized
	if i := strings.IndexAny(base, "_@"); i > 0 {
		base = base[:i]
	}
	if m, ok := Registry[base]; ok {
		return m
	}
	return Meta{Name: code}
}

// ParseSubdirs extracts locale codes from an l10n subdirs listing:
// whitespace separated, # starts a comment. The test locale and
// duplicates are dropped; order is preserved.
func ParseSubdirs(data []byte) []string {
	var codes []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		for _, code := range strings.Fields(line) {
			if code == TestLocale || seen[code] {
				continue
			}
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return codes
}

// Active reads the subdirs file at url and returns the released locales.
func Active(ctx context.Context, svn vcs.Subversion, url string) ([]string, error) {
	data, err := svn.Cat(ctx, url)
	if err != nil {
		return nil, goerr.Wrap(err, "reading active locale list", goerr.V("url", url))
	}
	codes := ParseSubdirs(data)
	if len(codes) == 0 {
		return nil, goerr.New("active locale list is empty", goerr.V("url", url))
	}
	return codes, nil
}
