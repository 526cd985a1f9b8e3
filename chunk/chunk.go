// Package chunk splits document paragraphs into bounded-size segments
// for translation and reassembles them afterwards.
//
// A paragraph longer than the configured maximum is cut at whitespace
// boundaries into consecutive segments. Each non-first segment carries the
// tail of its predecessor as an overlap prefix, so the engine sees
// cross-boundary context without the reassembled output duplicating it.
package chunk

import (
	"strings"
	"unicode"
)

// Default splitting policy. Both values are configuration, not invariants.
const (
	DefaultMaxChars = 15000
	DefaultOverlap  = 100
)

// Segment is the atomic unit of translatable text: a whole paragraph, or
// a bounded sub-chunk of one.
type Segment struct {
	// ParaIndex is the position of the owning paragraph in the document.
	ParaIndex int
	// SeqIndex orders sub-chunks within one paragraph (0 for the first).
	SeqIndex int
	// Text is the full segment text including the overlap prefix.
	Text string
	// OverlapLen is the number of leading bytes shared with the previous
	// segment's tail. Always 0 for SeqIndex 0.
	OverlapLen int
}

// Body returns the segment text with the overlap prefix stripped, the
// part this segment is responsible for translating.
func (s Segment) Body() string {
	return s.Text[s.OverlapLen:]
}

// Context returns the overlap prefix carried from the previous segment.
func (s Segment) Context() string {
	return s.Text[:s.OverlapLen]
}

// Splitter holds the chunking policy.
type Splitter struct {
	// MaxChars is the maximum segment size in bytes (M).
	MaxChars int
	// Overlap is the context carried between adjacent sub-chunks (O).
	// Must be smaller than MaxChars.
	Overlap int
}

// NewSplitter returns a Splitter with the given policy; non-positive
// values fall back to the defaults.
func NewSplitter(maxChars, overlap int) Splitter {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if overlap <= 0 {
		overlap = DefaultOverlap
	}
	if overlap >= maxChars {
		overlap = maxChars / 2
	}
	return Splitter{MaxChars: maxChars, Overlap: overlap}
}

// Split turns an ordered paragraph list into an ordered segment list.
// Paragraph identity and order are preserved; empty paragraphs become
// empty segments so positions stay stable for reassembly.
func (sp Splitter) Split(paragraphs []string) []Segment {
	var segments []Segment
	for i, para := range paragraphs {
		if len(para) <= sp.MaxChars {
			segments = append(segments, Segment{ParaIndex: i, Text: para})
			continue
		}
		segments = append(segments, sp.splitParagraph(i, para)...)
	}
	return segments
}

// splitParagraph cuts one oversized paragraph. Cuts land just after a
// whitespace rune so no word is ever severed; a single token longer than
// MaxChars is emitted as one oversized segment instead.
func (sp Splitter) splitParagraph(paraIndex int, text string) []Segment {
	var segments []Segment
	start := 0
	overlap := 0
	for seq := 0; ; seq++ {
		remaining := len(text) - start
		if remaining <= sp.MaxChars {
			segments = append(segments, Segment{
				ParaIndex:  paraIndex,
				SeqIndex:   seq,
				Text:       text[start:],
				OverlapLen: overlap,
			})
			return segments
		}

		end := sp.cutPoint(text, start)
		segments = append(segments, Segment{
			ParaIndex:  paraIndex,
			SeqIndex:   seq,
			Text:       text[start:end],
			OverlapLen: overlap,
		})
		// A giant token can push the cut to the end of the text; the
		// paragraph is then fully covered and no tail segment remains.
		if end == len(text) {
			return segments
		}

		// The next segment re-reads the last Overlap bytes for context.
		overlap = sp.Overlap
		if overlap > end-start {
			overlap = end - start
		}
		start = end - overlap
	}
}

// cutPoint finds the byte offset to end the segment starting at start.
// It prefers the last whitespace inside the size budget; when the budget
// lands inside one giant token it walks forward to the token's end.
func (sp Splitter) cutPoint(text string, start int) int {
	window := text[start : start+sp.MaxChars]

	wsIdx := strings.LastIndexFunc(window, unicode.IsSpace)
	// The cut must clear the overlap region, otherwise the next segment
	// would not advance.
	if wsIdx > sp.Overlap {
		return start + wsIdx + 1
	}

	// No usable whitespace in the window: a token longer than the budget.
	// Emit it whole up to the next whitespace (or the end of text).
	next := strings.IndexFunc(text[start+sp.MaxChars:], unicode.IsSpace)
	if next < 0 {
		return len(text)
	}
	return start + sp.MaxChars + next + 1
}

// Reassemble reverses Split: overlap prefixes are dropped and sub-chunks
// are concatenated back into their paragraphs. paraCount fixes the output
// length so trailing empty paragraphs survive the round trip.
func Reassemble(segments []Segment, paraCount int) []string {
	paragraphs := make([]string, paraCount)
	var builders = make(map[int]*strings.Builder)
	for _, seg := range segments {
		b, ok := builders[seg.ParaIndex]
		if !ok {
			b = &strings.Builder{}
			builders[seg.ParaIndex] = b
		}
		b.WriteString(seg.Body())
	}
	for idx, b := range builders {
		if idx >= 0 && idx < paraCount {
			paragraphs[idx] = b.String()
		}
	}
	return paragraphs
}

// ReassembleTexts joins per-segment replacement texts (e.g. translations)
// in segment order, grouped by paragraph. texts must parallel segments.
func ReassembleTexts(segments []Segment, texts []string, paraCount int) []string {
	paragraphs := make([]string, paraCount)
	builders := make(map[int]*strings.Builder)
	for i, seg := range segments {
		b, ok := builders[seg.ParaIndex]
		if !ok {
			b = &strings.Builder{}
			builders[seg.ParaIndex] = b
		}
		if i < len(texts) {
			b.WriteString(texts[i])
		}
	}
	for idx, b := range builders {
		if idx >= 0 && idx < paraCount {
			paragraphs[idx] = b.String()
		}
	}
	return paragraphs
}
