package resolve

import (
	"sort"
	"strings"

	"github.com/lexhaus/jurico/glossary"
)

// Span marks one glossary translation occurrence inside a translated
// segment. Offsets are byte positions into the segment text.
type Span struct {
	Start       int
	End         int
	Term        string
	Translation string
}

// ComputeSpans locates each constraint's translation in the translated
// text. Longer translations are placed first so a short term never
// splits a longer one; overlapping occurrences are suppressed.
func ComputeSpans(text string, candidates []glossary.Candidate) []Span {
	ordered := make([]glossary.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(a, b int) bool {
		return len(ordered[a].Entry.Translation) > len(ordered[b].Entry.Translation)
	})

	lower := strings.ToLower(text)
	claimed := make([]Span, 0, len(ordered))

	for _, c := range ordered {
		needle := strings.ToLower(c.Entry.Translation)
		if needle == "" {
			continue
		}
		for from := 0; ; {
			idx := strings.Index(lower[from:], needle)
			if idx < 0 {
				break
			}
			start := from + idx
			end := start + len(needle)
			from = start + 1
			if overlaps(claimed, start, end) {
				continue
			}
			claimed = append(claimed, Span{
				Start:       start,
				End:         end,
				Term:        c.Entry.Term,
				Translation: text[start:end],
			})
		}
	}

	sort.Slice(claimed, func(a, b int) bool { return claimed[a].Start < claimed[b].Start })
	return claimed
}

func overlaps(spans []Span, start, end int) bool {
	for _, s := range spans {
		if start < s.End && end > s.Start {
			return true
		}
	}
	return false
}
