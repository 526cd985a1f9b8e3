package engine

import (
	"fmt"
	"strings"

	"github.com/lexhaus/jurico/langmeta"
)

// ---------------------------------------------------------------------------
// Prompt assembly
// ---------------------------------------------------------------------------

const systemPromptTemplate = `You are a professional legal translator working on Swiss legal and administrative documents. You translate from %s to %s.

TRANSLATION PRINCIPLES:
- Use the precise legal register and terminology conventional in %s legal writing.
- Translate for accuracy first; a legal document must not gain or lose meaning.
- Preserve numbering, article references, dates, amounts, and party names exactly.
- Keep the paragraph structure of the source text.

TECHNICAL REQUIREMENTS:
- Return ONLY the translated text, no explanations, no quotation marks around the result, no markdown.
- If mandatory terminology is provided, use the given translations verbatim wherever the terms occur.`

// systemPrompt renders the fixed instructions for a request.
func systemPrompt(req Request) string {
	src := langmeta.Name(req.SourceLang)
	tgt := langmeta.Name(req.TargetLang)
	return fmt.Sprintf(systemPromptTemplate, src, tgt, tgt)
}

// userPrompt renders the per-segment message: terminology constraints,
// prior phrasing, lead-in context, then the segment itself.
func userPrompt(req Request) string {
	var b strings.Builder

	if len(req.Constraints) > 0 {
		b.WriteString("MANDATORY TERMINOLOGY (use these translations verbatim):\n")
		for _, c := range req.Constraints {
			b.WriteString(fmt.Sprintf("- %q -> %q", c.Term, c.Translation))
			if c.Context != "" {
				b.WriteString(" (" + c.Context + ")")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if req.Instructions != "" {
		b.WriteString("CUSTOMER INSTRUCTIONS (follow these for the whole document):\n")
		b.WriteString(req.Instructions)
		b.WriteString("\n\n")
	}

	if len(req.Examples) > 0 {
		b.WriteString("PRIOR TRANSLATIONS of similar text (match their phrasing where it fits):\n")
		for _, ex := range req.Examples {
			b.WriteString(fmt.Sprintf("- %q was translated as %q\n", ex.Source, ex.Target))
		}
		b.WriteString("\n")
	}

	if req.LeadIn != "" {
		b.WriteString("PRECEDING TEXT (context only, do not translate or repeat it):\n")
		b.WriteString(req.LeadIn)
		b.WriteString("\n\n")
	}

	b.WriteString("TEXT TO TRANSLATE:\n")
	b.WriteString(req.Text)
	return b.String()
}
