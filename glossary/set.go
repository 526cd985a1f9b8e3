package glossary

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Set is every glossary under one directory, keyed by file base name.
type Set struct {
	dir        string
	glossaries map[string]*Glossary
}

// LoadDir loads every *.csv file under dir as a glossary for the given
// language pair. A missing directory yields an empty set.
func LoadDir(dir, sourceLang, targetLang string, threshold int) (*Set, error) {
	set := &Set{dir: dir, glossaries: map[string]*Glossary{}}

	names, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading glossary dir: %w", err)
	}

	for _, entry := range names {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		g, err := LoadCSV(filepath.Join(dir, entry.Name()), sourceLang, targetLang)
		if err != nil {
			return nil, err
		}
		g.Threshold = threshold
		set.glossaries[g.Name] = g
	}
	return set, nil
}

// NewSet wraps pre-built glossaries, keyed by their names.
func NewSet(glossaries ...*Glossary) *Set {
	set := &Set{glossaries: map[string]*Glossary{}}
	for _, g := range glossaries {
		set.glossaries[g.Name] = g
	}
	return set
}

// Get returns the named glossary, or nil.
func (s *Set) Get(name string) *Glossary {
	return s.glossaries[name]
}

// Names lists the loaded glossaries in sorted order.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.glossaries))
	for name := range s.glossaries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// All returns the glossaries in name order.
func (s *Set) All() []*Glossary {
	all := make([]*Glossary, 0, len(s.glossaries))
	for _, name := range s.Names() {
		all = append(all, s.glossaries[name])
	}
	return all
}

// Match queries every glossary in the set and merges the candidates,
// preserving each glossary's internal ordering.
func (s *Set) Match(segmentText string) []Candidate {
	var out []Candidate
	for _, g := range s.All() {
		out = append(out, g.Match(segmentText)...)
	}
	return out
}
