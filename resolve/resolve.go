// Package resolve decides where each segment's translation comes from.
//
// The cascade is strict: a reference document hit overrides everything,
// an exact memory hit comes next, and only then is the model called,
// with any glossary matches attached as mandatory terminology. Exactly
// one source is recorded per segment.
package resolve

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/lexhaus/jurico/chunk"
	"github.com/lexhaus/jurico/engine"
	"github.com/lexhaus/jurico/glossary"
	"github.com/lexhaus/jurico/memory"
	"github.com/lexhaus/jurico/refdoc"
)

// Source identifies which tier produced a segment's translation.
type Source string

const (
	SourceReference Source = "reference"
	SourceMemory    Source = "memory"
	SourceGlossary  Source = "glossary"
	SourceEngine    Source = "engine"
)

// Stats are the per-job audit counters. Fields are updated atomically so
// the status endpoint can read them while the job runs.
type Stats struct {
	ReferenceDocApplied int64 `json:"reference_doc_applied"`
	ReusedFromMemory    int64 `json:"reused_from_memory"`
	GlossaryMatches     int64 `json:"glossary_matches"`
	ModelCalls          int64 `json:"model_calls"`
}

// Snapshot returns a consistent-enough copy for reporting.
func (s *Stats) Snapshot() Stats {
	return Stats{
		ReferenceDocApplied: atomic.LoadInt64(&s.ReferenceDocApplied),
		ReusedFromMemory:    atomic.LoadInt64(&s.ReusedFromMemory),
		GlossaryMatches:     atomic.LoadInt64(&s.GlossaryMatches),
		ModelCalls:          atomic.LoadInt64(&s.ModelCalls),
	}
}

// Result is one resolved segment.
type Result struct {
	// Text is the translation of the segment body.
	Text string
	// Source is the single tier that produced Text.
	Source Source
	// Spans mark glossary term occurrences inside Text, for the inline
	// markers rendered into the report.
	Spans []Span
}

// Resolver runs the cascade for one language pair.
type Resolver struct {
	Reference  *refdoc.Pair
	Memory     *memory.Store
	Glossaries *glossary.Set
	Engine     engine.Engine

	SourceLang string
	TargetLang string

	// Instructions are customer directives forwarded with every model
	// call of the job.
	Instructions string

	// MemoryMinScore gates fuzzy memory suggestions offered to the model.
	MemoryMinScore float64
	// MaxExamples caps how many suggestions go into the prompt.
	MaxExamples int
}

const (
	defaultMemoryMinScore = 85
	defaultMaxExamples    = 3
)

// Resolve translates one segment body through the cascade.
func (r *Resolver) Resolve(ctx context.Context, seg chunk.Segment, stats *Stats) (Result, error) {
	body := seg.Body()

	// Tier 1: confirmed translation from the reference document.
	if target, ok := r.Reference.Lookup(body); ok {
		atomic.AddInt64(&stats.ReferenceDocApplied, 1)
		return Result{Text: target, Source: SourceReference}, nil
	}

	// Tier 2: exact memory hit.
	if r.Memory != nil {
		if rec, ok := r.Memory.Lookup(r.SourceLang, r.TargetLang, body); ok {
			atomic.AddInt64(&stats.ReusedFromMemory, 1)
			return Result{Text: rec.Target, Source: SourceMemory}, nil
		}
	}

	// Tier 3/4: model call, with glossary constraints when terms match.
	var candidates []glossary.Candidate
	if r.Glossaries != nil {
		candidates = r.Glossaries.Match(body)
	}

	req := engine.Request{
		Text:         body,
		LeadIn:       seg.Context(),
		SourceLang:   r.SourceLang,
		TargetLang:   r.TargetLang,
		Instructions: r.Instructions,
	}
	for _, c := range candidates {
		req.Constraints = append(req.Constraints, engine.Constraint{
			Term:        c.Entry.Term,
			Translation: c.Entry.Translation,
			Context:     c.Entry.Context,
		})
	}
	if r.Memory != nil {
		minScore := r.MemoryMinScore
		if minScore == 0 {
			minScore = defaultMemoryMinScore
		}
		maxExamples := r.MaxExamples
		if maxExamples == 0 {
			maxExamples = defaultMaxExamples
		}
		for _, sug := range r.Memory.Similar(r.SourceLang, r.TargetLang, body, minScore, maxExamples) {
			req.Examples = append(req.Examples, engine.Example{
				Source: sug.Record.Source,
				Target: sug.Record.Target,
			})
		}
	}

	translated, err := r.Engine.Translate(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("translating segment %d/%d: %w", seg.ParaIndex, seg.SeqIndex, err)
	}
	atomic.AddInt64(&stats.ModelCalls, 1)

	res := Result{Text: translated, Source: SourceEngine}
	if len(candidates) > 0 {
		atomic.AddInt64(&stats.GlossaryMatches, int64(len(candidates)))
		res.Source = SourceGlossary
		res.Spans = ComputeSpans(translated, candidates)
	}

	// Remember the fresh translation for future jobs.
	if r.Memory != nil {
		r.Memory.Record(r.SourceLang, r.TargetLang, body, translated)
	}
	return res, nil
}
