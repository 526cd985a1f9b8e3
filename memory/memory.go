// Package memory persists previously confirmed translations and answers
// exact-match lookups before any model call is made.
//
// The store is a single JSON file keyed by a SHA-1 fingerprint of the
// language pair and the trimmed source text. Entries survive across jobs;
// writes are last-write-wins.
package memory

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/lexhaus/jurico/glossary"
)

// DefaultMinLen is the minimum trimmed source length worth remembering.
const DefaultMinLen = 4

var numericOnly = regexp.MustCompile(`^[\d\s.,:;/-]+$`)

// Record is one remembered translation.
type Record struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// Filter decides which segments are worth persisting. Segments shorter
// than MinLen, purely numeric segments, and segments matching the
// placeholder pattern are skipped.
type Filter struct {
	MinLen      int
	Placeholder *regexp.Regexp
}

// DefaultFilter matches the dedup rules applied when no project file
// overrides them.
func DefaultFilter() Filter {
	return Filter{
		MinLen:      DefaultMinLen,
		Placeholder: regexp.MustCompile(`^[\s_.\-—•*]+$`),
	}
}

// Keep reports whether text passes the dedup filter.
func (f Filter) Keep(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) < f.MinLen {
		return false
	}
	if numericOnly.MatchString(trimmed) {
		return false
	}
	if f.Placeholder != nil && f.Placeholder.MatchString(trimmed) {
		return false
	}
	return true
}

// Store is the on-disk translation memory.
type Store struct {
	path   string
	filter Filter

	mu      sync.RWMutex
	records map[string]Record
}

// Key fingerprints a language pair and source text. Lookup and Record
// must agree on it, so it is exported for the report layer.
func Key(sourceLang, targetLang, text string) string {
	raw := sourceLang + ":" + targetLang + ":" + strings.TrimSpace(text)
	return fmt.Sprintf("%x", sha1.Sum([]byte(raw)))
}

// Open loads the store at path, creating an empty one when the file does
// not exist yet.
func Open(path string, filter Filter) (*Store, error) {
	s := &Store{path: path, filter: filter, records: map[string]Record{}}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading memory store: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("parsing memory store %s: %w", path, err)
	}
	return s, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Lookup returns the remembered translation for the exact trimmed source
// text, if any.
func (s *Store) Lookup(sourceLang, targetLang, text string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[Key(sourceLang, targetLang, text)]
	return rec, ok
}

// Record stores a translation, overwriting any previous value for the
// same key. Segments rejected by the dedup filter are silently skipped;
// the boolean reports whether the record was kept.
func (s *Store) Record(sourceLang, targetLang, source, target string) bool {
	if !s.filter.Keep(source) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[Key(sourceLang, targetLang, source)] = Record{
		Source:     strings.TrimSpace(source),
		Target:     target,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	}
	return true
}

// Suggestion is one fuzzy Similar result.
type Suggestion struct {
	Record Record
	Score  float64
}

// Similar returns up to limit records for the language pair whose source
// text resembles the query, best first. Only scores at or above minScore
// qualify. Used to give the model prior phrasing for near-repeated text.
func (s *Store) Similar(sourceLang, targetLang, text string, minScore float64, limit int) []Suggestion {
	query := strings.ToLower(strings.TrimSpace(text))

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Suggestion
	for _, rec := range s.records {
		if rec.SourceLang != sourceLang || rec.TargetLang != targetLang {
			continue
		}
		score := glossary.Similarity(query, strings.ToLower(rec.Source))
		if score < minScore || score == 100 {
			continue
		}
		out = append(out, Suggestion{Record: rec, Score: score})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].Record.Source < out[b].Record.Source
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Records returns every record for a language pair, sorted by source
// text. Used by the TMX export.
func (s *Store) Records(sourceLang, targetLang string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.records {
		if rec.SourceLang != sourceLang || rec.TargetLang != targetLang {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Source < out[b].Source })
	return out
}

// Save writes the store to disk. The file is replaced atomically so a
// crashed write never truncates the memory.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.records, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding memory store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing memory store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing memory store: %w", err)
	}
	return nil
}
