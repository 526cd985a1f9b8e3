package job

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexhaus/jurico/chunk"
	"github.com/lexhaus/jurico/document"
	"github.com/lexhaus/jurico/engine"
	"github.com/lexhaus/jurico/glossary"
	"github.com/lexhaus/jurico/memory"
	"github.com/lexhaus/jurico/metrics"
	"github.com/lexhaus/jurico/refdoc"
	"github.com/lexhaus/jurico/resolve"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// ErrNotCompleted is returned when artifacts are requested before the
// job reaches completed.
var ErrNotCompleted = errors.New("job is not completed")

// Request is one translation submission.
type Request struct {
	SourceLang string
	TargetLang string
	// Text is the full source document.
	Text string
	// RefSource and RefTarget optionally carry an aligned reference
	// document pair.
	RefSource string
	RefTarget string
	// Instructions are free-form customer directives forwarded with every
	// model call of the job.
	Instructions string
	// DisableGlossary and DisableMemory turn those cascade tiers off for
	// this job. Both default to enabled.
	DisableGlossary bool
	DisableMemory   bool
}

// Manager owns the job registry and the shared translation components.
type Manager struct {
	Memory     *memory.Store
	Glossaries *glossary.Set
	Engine     engine.Engine

	Splitter  chunk.Splitter
	DataRoot  string
	DupWindow time.Duration

	mu     sync.Mutex
	jobs   map[string]*Job
	recent map[string]recentSubmission
}

type recentSubmission struct {
	jobID string
	at    time.Time
}

// NewManager wires a manager around shared components.
func NewManager(mem *memory.Store, glossaries *glossary.Set, eng engine.Engine, splitter chunk.Splitter, dataRoot string, dupWindow time.Duration) *Manager {
	return &Manager{
		Memory:     mem,
		Glossaries: glossaries,
		Engine:     eng,
		Splitter:   splitter,
		DataRoot:   dataRoot,
		DupWindow:  dupWindow,
		jobs:       map[string]*Job{},
		recent:     map[string]recentSubmission{},
	}
}

// contentHash fingerprints a submission for duplicate detection. The
// options are part of the fingerprint so the same text with different
// settings is a new job, not a duplicate.
func contentHash(req Request) string {
	h := md5.New()
	fmt.Fprintf(h, "%s:%s:%s:%t:%t:", req.SourceLang, req.TargetLang,
		req.Instructions, req.DisableGlossary, req.DisableMemory)
	h.Write([]byte(req.Text))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Submit registers a job and starts its worker goroutine. Submitting the
// same content for the same language pair within the duplicate window
// returns the existing job instead of starting a second run; the boolean
// reports whether a duplicate was detected.
func (m *Manager) Submit(req Request) (*Job, bool, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, false, fmt.Errorf("empty document")
	}
	if req.SourceLang == "" || req.TargetLang == "" {
		return nil, false, fmt.Errorf("source and target language are required")
	}
	if req.SourceLang == req.TargetLang {
		return nil, false, fmt.Errorf("source and target language must differ")
	}

	hash := contentHash(req)
	now := time.Now()

	m.mu.Lock()
	if prev, ok := m.recent[hash]; ok && now.Sub(prev.at) < m.DupWindow {
		// Only active jobs count as duplicates; a finished or failed run
		// may be resubmitted right away.
		if existing, ok := m.jobs[prev.jobID]; ok {
			switch existing.State() {
			case StatePending, StateInProgress:
				m.mu.Unlock()
				metrics.DuplicateSubmissions.Inc()
				return existing, true, nil
			}
		}
	}

	id := uuid.NewString()
	workDir := filepath.Join(m.DataRoot, "jobs", id)
	j := &Job{
		ID:          id,
		ContentHash: hash,
		SourceLang:  req.SourceLang,
		TargetLang:  req.TargetLang,
		CreatedAt:   now,
		WorkDir:     workDir,
	}
	m.jobs[id] = j
	m.recent[hash] = recentSubmission{jobID: id, at: now}
	m.pruneRecentLocked(now)
	m.mu.Unlock()

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		j.fail(FailInternal, err.Error())
		return nil, false, fmt.Errorf("creating work dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "source.txt"), []byte(req.Text), 0o644); err != nil {
		j.fail(FailInternal, err.Error())
		return nil, false, fmt.Errorf("writing source: %w", err)
	}

	metrics.JobsSubmitted.Inc()
	go m.run(context.Background(), j, req)
	return j, false, nil
}

// pruneRecentLocked drops duplicate-window entries that have expired.
func (m *Manager) pruneRecentLocked(now time.Time) {
	for hash, entry := range m.recent {
		if now.Sub(entry.at) >= m.DupWindow {
			delete(m.recent, hash)
		}
	}
}

// Get returns a job by id.
func (m *Manager) Get(id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return j, nil
}

// Jobs returns a snapshot of every registered job.
func (m *Manager) Jobs() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out
}

// Cancel requests cancellation of a job.
func (m *Manager) Cancel(id string) (bool, error) {
	j, err := m.Get(id)
	if err != nil {
		return false, err
	}
	return j.Cancel(), nil
}

// ---------------------------------------------------------------------------
// Worker
// ---------------------------------------------------------------------------

// Report is the audit artifact written next to the translated text.
type Report struct {
	JobID      string         `json:"job_id"`
	SourceLang string         `json:"source_lang"`
	TargetLang string         `json:"target_lang"`
	Paragraphs int            `json:"paragraphs_total"`
	Segments   int            `json:"segments"`
	Duration   float64        `json:"duration_seconds"`
	Stats      resolve.Stats  `json:"stats"`
	Sources    map[string]int `json:"sources"`
	// Annotated is the translated document with inline provenance
	// markers, paragraph per element.
	Annotated []string `json:"annotated"`
}

func (m *Manager) run(ctx context.Context, j *Job, req Request) {
	if !j.start() {
		// Cancelled before the worker got scheduled.
		metrics.JobsCompleted.WithLabelValues(string(StateCancelled)).Inc()
		return
	}
	metrics.JobsInFlight.Inc()
	started := time.Now()
	defer func() {
		metrics.JobsInFlight.Dec()
		metrics.JobDuration.Observe(time.Since(started).Seconds())
		metrics.JobsCompleted.WithLabelValues(string(j.State())).Inc()
	}()
	// Segments translated before a cancel or failure still land in the
	// memory file.
	saveMemory := func() {
		if m.Memory != nil && !req.DisableMemory {
			m.Memory.Save()
		}
	}
	defer saveMemory()

	doc, err := document.Text{}.Extract(strings.NewReader(req.Text))
	if err != nil {
		j.fail(FailInput, err.Error())
		return
	}
	if len(doc.Paragraphs) == 0 {
		j.fail(FailInput, "document has no paragraphs")
		return
	}

	var ref *refdoc.Pair
	if req.RefSource != "" || req.RefTarget != "" {
		refSrc, err := document.Text{}.Extract(strings.NewReader(req.RefSource))
		if err != nil {
			j.fail(FailInput, err.Error())
			return
		}
		refTgt, err := document.Text{}.Extract(strings.NewReader(req.RefTarget))
		if err != nil {
			j.fail(FailInput, err.Error())
			return
		}
		ref, err = refdoc.Align(refSrc.Paragraphs, refTgt.Paragraphs)
		if err != nil {
			j.fail(FailInput, err.Error())
			return
		}
	}

	resolver := &resolve.Resolver{
		Reference:    ref,
		Memory:       m.Memory,
		Glossaries:   m.Glossaries,
		Engine:       m.Engine,
		SourceLang:   req.SourceLang,
		TargetLang:   req.TargetLang,
		Instructions: req.Instructions,
	}
	if req.DisableMemory {
		resolver.Memory = nil
	}
	if req.DisableGlossary {
		resolver.Glossaries = nil
	}

	segments := m.Splitter.Split(doc.Paragraphs)
	j.progressTotal.Store(int64(len(segments)))

	translated := make([]string, len(segments))
	annotated := make([]string, len(segments))
	sources := map[string]int{}

	for i, seg := range segments {
		// Cancellation is honored between segments; a segment in flight
		// is allowed to finish, including its external call.
		if j.cancelRequested.Load() {
			saveMemory()
			j.finish(codeCancelled)
			return
		}

		res, err := resolver.Resolve(ctx, seg, &j.stats)
		if err != nil {
			j.fail(classify(err), err.Error())
			return
		}
		translated[i] = res.Text
		annotated[i] = document.Annotate(res)
		sources[string(res.Source)]++
		metrics.SegmentsResolved.WithLabelValues(string(res.Source)).Inc()
		j.progressDone.Add(1)
	}

	outParagraphs := chunk.ReassembleTexts(segments, translated, len(doc.Paragraphs))
	annotatedParagraphs := chunk.ReassembleTexts(segments, annotated, len(doc.Paragraphs))

	if err := document.SaveText(filepath.Join(j.WorkDir, "translated.txt"), outParagraphs); err != nil {
		j.fail(FailInternal, err.Error())
		return
	}
	report := Report{
		JobID:      j.ID,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Paragraphs: len(doc.Paragraphs),
		Segments:   len(segments),
		Duration:   time.Since(started).Seconds(),
		Stats:      j.stats.Snapshot(),
		Sources:    sources,
		Annotated:  annotatedParagraphs,
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		j.fail(FailInternal, err.Error())
		return
	}
	if err := os.WriteFile(filepath.Join(j.WorkDir, "report.json"), append(data, '\n'), 0o644); err != nil {
		j.fail(FailInternal, err.Error())
		return
	}
	if m.Memory != nil && !req.DisableMemory {
		if err := m.Memory.Save(); err != nil {
			j.fail(FailInternal, err.Error())
			return
		}
	}

	j.finish(codeCompleted)
}

// classify maps worker errors onto the failure taxonomy.
func classify(err error) FailureKind {
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		return FailEngine
	}
	return FailInternal
}

// ---------------------------------------------------------------------------
// Artifacts
// ---------------------------------------------------------------------------

// Result returns the translated document of a completed job.
func (m *Manager) Result(id string) (string, error) {
	j, err := m.Get(id)
	if err != nil {
		return "", err
	}
	if j.State() != StateCompleted {
		return "", ErrNotCompleted
	}
	data, err := os.ReadFile(filepath.Join(j.WorkDir, "translated.txt"))
	if err != nil {
		return "", fmt.Errorf("reading result: %w", err)
	}
	return string(data), nil
}

// ReportFor returns the audit report of a completed job.
func (m *Manager) ReportFor(id string) (Report, error) {
	j, err := m.Get(id)
	if err != nil {
		return Report{}, err
	}
	if j.State() != StateCompleted {
		return Report{}, ErrNotCompleted
	}
	data, err := os.ReadFile(filepath.Join(j.WorkDir, "report.json"))
	if err != nil {
		return Report{}, fmt.Errorf("reading report: %w", err)
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, fmt.Errorf("parsing report: %w", err)
	}
	return report, nil
}

// Wait blocks until the job reaches a terminal state or the context
// expires. Used by the CLI and tests.
func (m *Manager) Wait(ctx context.Context, id string) (Status, error) {
	j, err := m.Get(id)
	if err != nil {
		return Status{}, err
	}
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		switch j.State() {
		case StateCompleted, StateCancelled, StateFailed:
			return j.Status(), nil
		}
		select {
		case <-ctx.Done():
			return j.Status(), ctx.Err()
		case <-ticker.C:
		}
	}
}
