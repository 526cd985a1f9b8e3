package document

import (
	"strings"

	"github.com/lexhaus/jurico/resolve"
)

// ---------------------------------------------------------------------------
// Provenance markers
//
// Translations are stored plain; markers exist only in the annotated
// rendering produced for review. One marker per provenance source:
//
//   <reference>...</reference>   whole segment from the reference document
//   <memory>...</memory>         whole segment from the translation memory
//   <glossary term="X">...</glossary>   one enforced term occurrence
// ---------------------------------------------------------------------------

// Annotate renders one resolved segment with inline provenance markers.
func Annotate(res resolve.Result) string {
	switch res.Source {
	case resolve.SourceReference:
		return "<reference>" + res.Text + "</reference>"
	case resolve.SourceMemory:
		return "<memory>" + res.Text + "</memory>"
	case resolve.SourceGlossary:
		return annotateSpans(res.Text, res.Spans)
	default:
		return res.Text
	}
}

// annotateSpans wraps each glossary span in place. Spans are sorted by
// start offset and never overlap, so a single forward pass suffices.
func annotateSpans(text string, spans []resolve.Span) string {
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	pos := 0
	for _, s := range spans {
		if s.Start < pos || s.End > len(text) {
			continue
		}
		b.WriteString(text[pos:s.Start])
		b.WriteString(`<glossary term="`)
		b.WriteString(s.Term)
		b.WriteString(`">`)
		b.WriteString(text[s.Start:s.End])
		b.WriteString("</glossary>")
		pos = s.End
	}
	b.WriteString(text[pos:])
	return b.String()
}
