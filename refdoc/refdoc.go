// Package refdoc aligns a previously translated reference document with
// its source and answers near-exact lookups. A reference hit overrides
// every other translation source.
package refdoc

import (
	"fmt"
	"os"
	"strings"
)

// Pair is an aligned reference document: source paragraphs and their
// confirmed translations, matched by position.
type Pair struct {
	byNormalized map[string]string
	count        int
}

// Load reads two plain-text documents and aligns them paragraph by
// paragraph. Both files must contain the same number of non-empty
// paragraphs.
func Load(sourcePath, targetPath string) (*Pair, error) {
	src, err := readParagraphs(sourcePath)
	if err != nil {
		return nil, err
	}
	tgt, err := readParagraphs(targetPath)
	if err != nil {
		return nil, err
	}
	return Align(src, tgt)
}

// Align builds a pair from already-split paragraph lists.
func Align(source, target []string) (*Pair, error) {
	src := dropEmpty(source)
	tgt := dropEmpty(target)
	if len(src) != len(tgt) {
		return nil, fmt.Errorf("reference documents do not align: %d source paragraphs, %d target", len(src), len(tgt))
	}

	p := &Pair{byNormalized: make(map[string]string, len(src))}
	for i, s := range src {
		key := Normalize(s)
		if key == "" {
			continue
		}
		// First occurrence wins so repeated boilerplate stays stable.
		if _, seen := p.byNormalized[key]; seen {
			continue
		}
		p.byNormalized[key] = tgt[i]
		p.count++
	}
	return p, nil
}

func readParagraphs(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference document: %w", err)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.Split(text, "\n\n"), nil
}

func dropEmpty(paragraphs []string) []string {
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Normalize collapses the differences that should not break a reference
// hit: case, surrounding whitespace, and internal whitespace runs.
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Len returns the number of aligned paragraphs.
func (p *Pair) Len() int {
	if p == nil {
		return 0
	}
	return p.count
}

// Lookup returns the confirmed translation for a paragraph whose
// normalized form matches a reference source paragraph.
func (p *Pair) Lookup(text string) (string, bool) {
	if p == nil {
		return "", false
	}
	target, ok := p.byNormalized[Normalize(text)]
	return target, ok
}
