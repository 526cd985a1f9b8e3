// Package langmeta provides a shared language metadata registry
// (display names and CAT interchange region codes) used by the engine
// prompts and the TMX/TBX exporters.
package langmeta

import "strings"

// Meta describes language display metadata.
type Meta struct {
	// Name is the English display name used in engine prompts.
	Name string
	// Interchange is the regioned code written into TMX/TBX files
	// (Swiss legal documents default to the CH variants).
	Interchange string
}

// Registry contains canonical language metadata.
// Locale variants are resolved in Resolve() via normalization and base fallback.
var Registry = map[string]Meta{
	"de":    {Name: "German", Interchange: "de-CH"},
	"de-AT": {Name: "German (Austria)", Interchange: "de-AT"},
	"de-CH": {Name: "German (Switzerland)", Interchange: "de-CH"},
	"de-DE": {Name: "German (Germany)", Interchange: "de-DE"},
	"en":    {Name: "English", Interchange: "en-US"},
	"en-GB": {Name: "English (UK)", Interchange: "en-GB"},
	"en-US": {Name: "English (US)", Interchange: "en-US"},
	"es":    {Name: "Spanish", Interchange: "es-ES"},
	"fr":    {Name: "French", Interchange: "fr-CH"},
	"fr-BE": {Name: "French (Belgium)", Interchange: "fr-BE"},
	"fr-CH": {Name: "French (Switzerland)", Interchange: "fr-CH"},
	"fr-FR": {Name: "French (France)", Interchange: "fr-FR"},
	"it":    {Name: "Italian", Interchange: "it-CH"},
	"it-CH": {Name: "Italian (Switzerland)", Interchange: "it-CH"},
	"it-IT": {Name: "Italian (Italy)", Interchange: "it-IT"},
	"nl":    {Name: "Dutch", Interchange: "nl-NL"},
	"pt":    {Name: "Portuguese", Interchange: "pt-PT"},
	"rm":    {Name: "Romansh", Interchange: "rm-CH"},
}

// canonicalize normalizes a language code: trims whitespace, converts
// underscores to hyphens, lowercases the base and uppercases the region
// ("de_ch" -> "de-CH").
func canonicalize(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	code = strings.ReplaceAll(code, "_", "-")
	parts := strings.SplitN(code, "-", 2)
	base := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return base
	}
	return base + "-" + strings.ToUpper(parts[1])
}

// Resolve returns metadata for a language code, falling back to the base
// language when the exact locale variant is unknown ("fr-LU" -> "fr").
// Unknown codes resolve to a Meta that echoes the code itself, so callers
// never need to special-case missing entries.
func Resolve(code string) Meta {
	canonical := canonicalize(code)
	if meta, ok := Registry[canonical]; ok {
		return meta
	}
	if idx := strings.IndexByte(canonical, '-'); idx > 0 {
		if meta, ok := Registry[canonical[:idx]]; ok {
			return meta
		}
	}
	return Meta{Name: canonical, Interchange: canonical}
}

// Name returns the English display name for a language code.
func Name(code string) string {
	return Resolve(code).Name
}

// Interchange returns the regioned interchange code for TMX/TBX export.
func Interchange(code string) string {
	return Resolve(code).Interchange
}
