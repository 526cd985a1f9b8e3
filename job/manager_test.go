package job

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexhaus/jurico/chunk"
	"github.com/lexhaus/jurico/engine"
	"github.com/lexhaus/jurico/glossary"
	"github.com/lexhaus/jurico/memory"
)

func newManager(t *testing.T, eng engine.Engine) *Manager {
	t.Helper()
	dataRoot := t.TempDir()
	mem, err := memory.Open(filepath.Join(dataRoot, "memory.json"), memory.DefaultFilter())
	require.NoError(t, err)
	return NewManager(mem, glossary.NewSet(), eng, chunk.NewSplitter(0, 0), dataRoot, 60*time.Second)
}

func waitDone(t *testing.T, m *Manager, id string) Status {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	status, err := m.Wait(ctx, id)
	require.NoError(t, err)
	return status
}

func TestSubmitCompletes(t *testing.T) {
	m := newManager(t, engine.DryRun{})

	j, dup, err := m.Submit(Request{
		SourceLang: "fr",
		TargetLang: "de",
		Text:       "Premier paragraphe.\n\nDeuxième paragraphe.\n",
	})
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NotEmpty(t, j.ID)

	status := waitDone(t, m, j.ID)
	assert.Equal(t, StateCompleted, status.State)
	assert.Equal(t, int64(2), status.Total)
	assert.Equal(t, int64(2), status.Done)
	assert.Equal(t, int64(2), status.Stats.ModelCalls)

	text, err := m.Result(j.ID)
	require.NoError(t, err)
	assert.Equal(t, "[de draft] Premier paragraphe.\n\n[de draft] Deuxième paragraphe.\n", text)

	report, err := m.ReportFor(j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.ID, report.JobID)
	assert.Equal(t, 2, report.Paragraphs)
	assert.Equal(t, 2, report.Segments)
	assert.Equal(t, 2, report.Sources["engine"])
	assert.Len(t, report.Annotated, 2)
	assert.GreaterOrEqual(t, report.Duration, 0.0)

	// Work dir holds the isolated artifacts.
	_, err = os.Stat(filepath.Join(j.WorkDir, "source.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(j.WorkDir, "translated.txt"))
	assert.NoError(t, err)
}

func TestSubmitValidation(t *testing.T) {
	m := newManager(t, engine.DryRun{})

	_, _, err := m.Submit(Request{SourceLang: "fr", TargetLang: "de", Text: "   "})
	assert.Error(t, err)

	_, _, err = m.Submit(Request{SourceLang: "fr", TargetLang: "fr", Text: "texte"})
	assert.Error(t, err)

	_, _, err = m.Submit(Request{TargetLang: "de", Text: "texte"})
	assert.Error(t, err)
}

func TestDuplicateWindow(t *testing.T) {
	eng := &blockingEngine{started: make(chan struct{}, 1), release: make(chan struct{})}
	m := newManager(t, eng)
	req := Request{SourceLang: "fr", TargetLang: "de", Text: "Même contenu.\n"}

	first, dup, err := m.Submit(req)
	require.NoError(t, err)
	assert.False(t, dup)

	// Hold the first job in flight so the resubmission hits it.
	select {
	case <-eng.started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never started")
	}

	second, dup, err := m.Submit(req)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, first.ID, second.ID)

	// Different content is never deduplicated.
	third, dup, err := m.Submit(Request{SourceLang: "fr", TargetLang: "de", Text: "Autre contenu.\n"})
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NotEqual(t, first.ID, third.ID)

	// A different language pair for the same text is a new job too.
	fourth, dup, err := m.Submit(Request{SourceLang: "fr", TargetLang: "it", Text: "Même contenu.\n"})
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NotEqual(t, first.ID, fourth.ID)

	close(eng.release)
	waitDone(t, m, first.ID)
	waitDone(t, m, third.ID)
	waitDone(t, m, fourth.ID)
}

func TestDuplicateWindowIgnoresFinishedJobs(t *testing.T) {
	m := newManager(t, engine.DryRun{})
	req := Request{SourceLang: "fr", TargetLang: "de", Text: "Contenu à refaire.\n"}

	first, _, err := m.Submit(req)
	require.NoError(t, err)
	waitDone(t, m, first.ID)

	// A finished run inside the window must not block a fresh submission.
	second, dup, err := m.Submit(req)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NotEqual(t, first.ID, second.ID)
	waitDone(t, m, second.ID)
}

func TestDuplicateWindowExpires(t *testing.T) {
	m := newManager(t, engine.DryRun{})
	m.DupWindow = 30 * time.Millisecond
	req := Request{SourceLang: "fr", TargetLang: "de", Text: "Contenu éphémère.\n"}

	first, _, err := m.Submit(req)
	require.NoError(t, err)
	waitDone(t, m, first.ID)

	time.Sleep(50 * time.Millisecond)
	second, dup, err := m.Submit(req)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.NotEqual(t, first.ID, second.ID)
}

// blockingEngine holds every call until released, honoring cancellation.
type blockingEngine struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int64
}

func (b *blockingEngine) Translate(ctx context.Context, req engine.Request) (string, error) {
	b.calls.Add(1)
	select {
	case b.started <- struct{}{}:
	default:
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-b.release:
		return "[de draft] " + req.Text, nil
	}
}

func TestCancelStopsAtSegmentBoundary(t *testing.T) {
	eng := &blockingEngine{started: make(chan struct{}, 1), release: make(chan struct{})}
	dataRoot := t.TempDir()
	mem, err := memory.Open(filepath.Join(dataRoot, "memory.json"), memory.DefaultFilter())
	require.NoError(t, err)
	m := NewManager(mem, glossary.NewSet(), eng, chunk.NewSplitter(0, 0), dataRoot, 60*time.Second)

	j, _, err := m.Submit(Request{
		SourceLang: "fr",
		TargetLang: "de",
		Text:       "Un premier segment.\n\nDeux.\n\nTrois.\n",
	})
	require.NoError(t, err)

	// Cancel while the first segment is in flight.
	select {
	case <-eng.started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never started")
	}
	ok, err := m.Cancel(j.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// The in-flight segment completes normally; the worker stops at the
	// next boundary.
	close(eng.release)
	status := waitDone(t, m, j.ID)
	assert.Equal(t, StateCancelled, status.State)
	assert.Equal(t, int64(1), status.Done)
	assert.Equal(t, int64(3), status.Total)
	assert.Equal(t, int64(1), eng.calls.Load())

	// The finished segment's translation survives the cancelled job.
	reopened, err := memory.Open(filepath.Join(dataRoot, "memory.json"), memory.DefaultFilter())
	require.NoError(t, err)
	rec, found := reopened.Lookup("fr", "de", "Un premier segment.")
	require.True(t, found)
	assert.Equal(t, "[de draft] Un premier segment.", rec.Target)

	// Terminal states are sticky.
	ok, err = m.Cancel(j.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

// failingEngine fails on the given call number.
type failingEngine struct {
	failOn int
	calls  atomic.Int64
}

func (f *failingEngine) Translate(_ context.Context, req engine.Request) (string, error) {
	n := f.calls.Add(1)
	if int(n) == f.failOn {
		return "", &engine.Error{Kind: engine.ErrRateLimited, Status: 429, Message: "rate limited"}
	}
	return "[de draft] " + req.Text, nil
}

func TestFailFast(t *testing.T) {
	eng := &failingEngine{failOn: 2}
	m := newManager(t, eng)

	j, _, err := m.Submit(Request{
		SourceLang: "fr",
		TargetLang: "de",
		Text:       "Un.\n\nDeux.\n\nTrois.\n",
	})
	require.NoError(t, err)

	status := waitDone(t, m, j.ID)
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, FailEngine, status.FailureKind)
	assert.Contains(t, status.Error, "rate limited")
	// The failing segment stops the job; later segments are never sent.
	assert.Equal(t, int64(2), eng.calls.Load())

	_, err = m.Result(j.ID)
	assert.ErrorIs(t, err, ErrNotCompleted)
}

func TestReferenceDocumentApplied(t *testing.T) {
	m := newManager(t, engine.DryRun{})

	j, _, err := m.Submit(Request{
		SourceLang: "fr",
		TargetLang: "de",
		Text:       "Veuillez signer ci-dessous.\n\nTexte inconnu.\n",
		RefSource:  "Veuillez signer ci-dessous.\n",
		RefTarget:  "Bitte unterschreiben Sie unten.\n",
	})
	require.NoError(t, err)

	status := waitDone(t, m, j.ID)
	require.Equal(t, StateCompleted, status.State)
	assert.Equal(t, int64(1), status.Stats.ReferenceDocApplied)
	assert.Equal(t, int64(1), status.Stats.ModelCalls)

	text, err := m.Result(j.ID)
	require.NoError(t, err)
	assert.Contains(t, text, "Bitte unterschreiben Sie unten.")
}

func TestReferenceDocumentMisaligned(t *testing.T) {
	m := newManager(t, engine.DryRun{})

	j, _, err := m.Submit(Request{
		SourceLang: "fr",
		TargetLang: "de",
		Text:       "Texte.\n",
		RefSource:  "Un.\n\nDeux.\n",
		RefTarget:  "Eins.\n",
	})
	require.NoError(t, err)

	status := waitDone(t, m, j.ID)
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, FailInput, status.FailureKind)
}

func TestGetUnknownJob(t *testing.T) {
	m := newManager(t, engine.DryRun{})
	_, err := m.Get("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = m.Result("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryPersistedAfterJob(t *testing.T) {
	m := newManager(t, engine.DryRun{})

	j, _, err := m.Submit(Request{
		SourceLang: "fr",
		TargetLang: "de",
		Text:       "Une phrase à retenir.\n",
	})
	require.NoError(t, err)
	waitDone(t, m, j.ID)

	rec, ok := m.Memory.Lookup("fr", "de", "Une phrase à retenir.")
	require.True(t, ok)
	assert.Equal(t, "[de draft] Une phrase à retenir.", rec.Target)

	// Second job with the same sentence reuses the memory.
	j2, _, err := m.Submit(Request{
		SourceLang: "fr",
		TargetLang: "de",
		Text:       "Une phrase à retenir.\n\nEt une nouvelle.\n",
	})
	require.NoError(t, err)
	status := waitDone(t, m, j2.ID)
	assert.Equal(t, int64(1), status.Stats.ReusedFromMemory)
	assert.Equal(t, int64(1), status.Stats.ModelCalls)
}

func TestDisabledMemorySkipsLookupAndRecording(t *testing.T) {
	m := newManager(t, engine.DryRun{})

	j, _, err := m.Submit(Request{
		SourceLang: "fr",
		TargetLang: "de",
		Text:       "Une clause récurrente.\n",
	})
	require.NoError(t, err)
	waitDone(t, m, j.ID)

	// Same sentence with memory disabled goes back to the model.
	j2, dup, err := m.Submit(Request{
		SourceLang:    "fr",
		TargetLang:    "de",
		Text:          "Une clause récurrente.\n",
		DisableMemory: true,
	})
	require.NoError(t, err)
	assert.False(t, dup, "different options must not count as a duplicate")
	status := waitDone(t, m, j2.ID)
	assert.Equal(t, int64(0), status.Stats.ReusedFromMemory)
	assert.Equal(t, int64(1), status.Stats.ModelCalls)
}

func TestDisabledGlossarySkipsMatching(t *testing.T) {
	dataRoot := t.TempDir()
	mem, err := memory.Open(filepath.Join(dataRoot, "memory.json"), memory.DefaultFilter())
	require.NoError(t, err)
	set := glossary.NewSet(glossary.New([]glossary.Entry{
		{Term: "contrat", Translation: "Vertrag"},
	}, "fr", "de", "contracts"))
	m := NewManager(mem, set, engine.DryRun{}, chunk.NewSplitter(0, 0), dataRoot, 60*time.Second)

	j, _, err := m.Submit(Request{
		SourceLang:      "fr",
		TargetLang:      "de",
		Text:            "Le contrat est signé.\n",
		DisableGlossary: true,
	})
	require.NoError(t, err)
	status := waitDone(t, m, j.ID)
	assert.Equal(t, int64(0), status.Stats.GlossaryMatches)
	assert.Equal(t, int64(1), status.Stats.ModelCalls)
}

func TestEngineErrorsClassified(t *testing.T) {
	assert.Equal(t, FailEngine, classify(&engine.Error{Kind: engine.ErrAuth}))
	assert.Equal(t, FailInternal, classify(errors.New("plain")))

	wrapped := errors.Join(errors.New("context"), &engine.Error{Kind: engine.ErrUnavailable})
	assert.Equal(t, FailEngine, classify(wrapped))
}
