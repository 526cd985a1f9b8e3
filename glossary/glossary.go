// Package glossary implements the structured term list and its
// fuzzy-similarity index.
//
// Entries are loaded from CSV files with term,translation,context headers.
// Match is read-only; explicit Add/Update/Delete mutations rewrite the
// backing file and swap the in-memory index atomically, so concurrent
// Match calls observe either the old or the new index, never a partially
// rebuilt one.
package glossary

import (
	"crypto/sha1"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is the similarity cutoff in percent.
const DefaultThreshold = 70

// ErrEntryNotFound is returned by Update and Delete for unknown terms.
var ErrEntryNotFound = errors.New("glossary entry not found")

// Entry is one glossary term. Immutable once loaded; equality is
// case-insensitive on Term+Translation.
type Entry struct {
	Term        string `json:"term"`
	Translation string `json:"translation"`
	Context     string `json:"context,omitempty"`
}

// Fingerprint returns a stable id for the entry, used by the TBX export.
func (e Entry) Fingerprint() string {
	raw := strings.ToLower(e.Term) + "::" + strings.ToLower(e.Translation) + "::" + e.Context
	return fmt.Sprintf("%x", sha1.Sum([]byte(raw)))
}

func (e Entry) equals(other Entry) bool {
	return strings.EqualFold(e.Term, other.Term) &&
		strings.EqualFold(e.Translation, other.Translation)
}

// Candidate is one Match result.
type Candidate struct {
	Entry Entry
	// Score is the similarity in percent (0-100).
	Score float64
	// Exact reports case-insensitive equality between segment and term.
	Exact bool
	// order is the entry's position in the glossary file; equal scores
	// break ties by file order for determinism.
	order int
}

// index is the immutable snapshot swapped on every rebuild.
type index struct {
	entries []Entry
	// lowered caches the casefolded term per entry, parallel to entries.
	lowered []string
}

// Glossary answers fuzzy term queries for one language pair.
type Glossary struct {
	Name       string
	SourceLang string
	TargetLang string
	// Threshold is the similarity cutoff in percent.
	Threshold int

	path string

	mu  sync.Mutex // serializes mutations and file rewrites
	idx atomic.Pointer[index]
}

// New builds a glossary from a fixed entry list (used by tests and the
// reference loader).
func New(entries []Entry, sourceLang, targetLang, name string) *Glossary {
	g := &Glossary{
		Name:       name,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		Threshold:  DefaultThreshold,
	}
	g.idx.Store(buildIndex(entries))
	return g
}

// LoadCSV reads a glossary file. The CSV must carry term and translation
// headers; a context column is optional. Rows with an empty term or
// translation are skipped. File order is preserved for tie-breaking.
func LoadCSV(path, sourceLang, targetLang string) (*Glossary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening glossary: %w", err)
	}
	defer f.Close()

	entries, err := parseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parsing glossary %s: %w", path, err)
	}

	name := strings.TrimSuffix(baseName(path), ".csv")
	g := New(entries, sourceLang, targetLang, name)
	g.path = path
	return g, nil
}

func baseName(path string) string {
	if idx := strings.LastIndexAny(path, `/\`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

func parseCSV(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	termCol, translationCol, contextCol := -1, -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF"))) {
		case "term":
			termCol = i
		case "translation":
			translationCol = i
		case "context":
			contextCol = i
		}
	}
	if termCol < 0 || translationCol < 0 {
		return nil, fmt.Errorf("glossary CSV must include term and translation headers, got %v", header)
	}

	var entries []Entry
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		e := Entry{}
		if termCol < len(row) {
			e.Term = strings.TrimSpace(row[termCol])
		}
		if translationCol < len(row) {
			e.Translation = strings.TrimSpace(row[translationCol])
		}
		if contextCol >= 0 && contextCol < len(row) {
			e.Context = strings.TrimSpace(row[contextCol])
		}
		if e.Term == "" || e.Translation == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func buildIndex(entries []Entry) *index {
	lowered := make([]string, len(entries))
	for i, e := range entries {
		lowered[i] = strings.ToLower(e.Term)
	}
	return &index{entries: entries, lowered: lowered}
}

// Len returns the number of entries in the current index.
func (g *Glossary) Len() int {
	return len(g.idx.Load().entries)
}

// Entries returns a copy of the current entry list in file order.
func (g *Glossary) Entries() []Entry {
	snap := g.idx.Load()
	out := make([]Entry, len(snap.entries))
	copy(out, snap.entries)
	return out
}

// Match returns the candidates whose similarity to the segment text meets
// the threshold (inclusive). Exact case-insensitive equality ranks first;
// fuzzy matches rank by score, ties broken by file order. A term contained
// whole inside the segment always qualifies. No matches is an empty list,
// not an error.
func (g *Glossary) Match(segmentText string) []Candidate {
	snap := g.idx.Load()
	threshold := float64(g.Threshold)
	lowerSeg := strings.ToLower(segmentText)

	var out []Candidate
	for i, e := range snap.entries {
		lowTerm := snap.lowered[i]
		if lowTerm == "" {
			continue
		}
		c := Candidate{Entry: e, order: i}
		switch {
		case lowTerm == lowerSeg:
			c.Score = 100
			c.Exact = true
		case strings.Contains(lowerSeg, lowTerm):
			c.Score = 100
		default:
			c.Score = Similarity(lowerSeg, lowTerm)
			if c.Score < threshold {
				continue
			}
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Exact != out[b].Exact {
			return out[a].Exact
		}
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].order < out[b].order
	})
	return out
}

// Similarity returns the difflib sequence ratio of two strings in percent.
func Similarity(a, b string) float64 {
	m := difflib.NewMatcher(splitChars(a), splitChars(b))
	return m.Ratio() * 100
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Add appends a new entry and rewrites the backing file. Duplicate
// entries (case-insensitive term+translation) are rejected.
func (g *Glossary) Add(entry Entry) error {
	if entry.Term == "" || entry.Translation == "" {
		return fmt.Errorf("glossary entry needs term and translation")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	current := g.idx.Load().entries
	for _, e := range current {
		if e.equals(entry) {
			return fmt.Errorf("glossary entry %q already exists", entry.Term)
		}
	}
	next := make([]Entry, len(current), len(current)+1)
	copy(next, current)
	next = append(next, entry)
	return g.commit(next)
}

// Update replaces the entry for term (case-insensitive) and rewrites the
// backing file.
func (g *Glossary) Update(term string, updated Entry) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	current := g.idx.Load().entries
	next := make([]Entry, len(current))
	copy(next, current)
	found := false
	for i, e := range next {
		if strings.EqualFold(e.Term, term) {
			next[i] = updated
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrEntryNotFound, term)
	}
	return g.commit(next)
}

// Delete removes the entry for term (case-insensitive) and rewrites the
// backing file.
func (g *Glossary) Delete(term string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	current := g.idx.Load().entries
	next := make([]Entry, 0, len(current))
	found := false
	for _, e := range current {
		if !found && strings.EqualFold(e.Term, term) {
			found = true
			continue
		}
		next = append(next, e)
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrEntryNotFound, term)
	}
	return g.commit(next)
}

// commit persists the new entry list and swaps the index. Caller holds mu.
func (g *Glossary) commit(entries []Entry) error {
	if g.path != "" {
		if err := writeCSV(g.path, entries); err != nil {
			return err
		}
	}
	g.idx.Store(buildIndex(entries))
	return nil
}

func writeCSV(path string, entries []Entry) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("writing glossary: %w", err)
	}
	w := csv.NewWriter(f)
	records := [][]string{{"term", "translation", "context"}}
	for _, e := range entries {
		records = append(records, []string{e.Term, e.Translation, e.Context})
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("writing glossary: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing glossary: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing glossary: %w", err)
	}
	return nil
}
