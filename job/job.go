// Package job runs translation jobs: one goroutine per job, cooperative
// cancellation at segment boundaries, and an in-memory registry with
// content-hash duplicate detection.
package job

import (
	"sync/atomic"
	"time"

	"github.com/lexhaus/jurico/resolve"
)

// State is a job's lifecycle state. Terminal states never change again.
type State string

const (
	StatePending    State = "pending"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateCancelled  State = "cancelled"
	StateFailed     State = "failed"
)

// stateCode maps states onto atomics.
const (
	codePending int32 = iota
	codeInProgress
	codeCompleted
	codeCancelled
	codeFailed
)

func stateOf(code int32) State {
	switch code {
	case codePending:
		return StatePending
	case codeInProgress:
		return StateInProgress
	case codeCompleted:
		return StateCompleted
	case codeCancelled:
		return StateCancelled
	default:
		return StateFailed
	}
}

// FailureKind classifies terminal failures for API clients.
type FailureKind string

const (
	FailInput    FailureKind = "input_error"
	FailEngine   FailureKind = "engine_error"
	FailInternal FailureKind = "internal_error"
)

// Job is one tracked translation run. State and progress are atomics so
// the status endpoint reads them without taking the registry lock.
type Job struct {
	ID          string
	ContentHash string
	SourceLang  string
	TargetLang  string
	CreatedAt   time.Time
	WorkDir     string

	state         atomic.Int32
	progressDone  atomic.Int64
	progressTotal atomic.Int64
	stats         resolve.Stats

	// cancelRequested is observed by the worker between segments; an
	// in-flight segment always runs to completion.
	cancelRequested atomic.Bool

	// failure fields are written once by the worker before the terminal
	// state is stored, so reading them after observing a terminal state
	// is safe.
	failKind FailureKind
	failMsg  string

	finishedAt time.Time
}

// Status is the externally visible job snapshot.
type Status struct {
	ID          string        `json:"job_id"`
	State       State         `json:"state"`
	SourceLang  string        `json:"source_lang"`
	TargetLang  string        `json:"target_lang"`
	Done        int64         `json:"segments_done"`
	Total       int64         `json:"segments_total"`
	Stats       resolve.Stats `json:"stats"`
	FailureKind FailureKind   `json:"failure_kind,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	FinishedAt  time.Time     `json:"finished_at"`
}

// State returns the current lifecycle state.
func (j *Job) State() State {
	return stateOf(j.state.Load())
}

// Status snapshots the job for reporting.
func (j *Job) Status() Status {
	st := Status{
		ID:         j.ID,
		State:      j.State(),
		SourceLang: j.SourceLang,
		TargetLang: j.TargetLang,
		Done:       j.progressDone.Load(),
		Total:      j.progressTotal.Load(),
		Stats:      j.stats.Snapshot(),
		CreatedAt:  j.CreatedAt,
	}
	switch st.State {
	case StateCompleted, StateCancelled, StateFailed:
		st.FinishedAt = j.finishedAt
	}
	if st.State == StateFailed {
		st.FailureKind = j.failKind
		st.Error = j.failMsg
	}
	return st
}

// start moves pending to in_progress. Returns false when the job was
// already cancelled.
func (j *Job) start() bool {
	return j.state.CompareAndSwap(codePending, codeInProgress)
}

// finish stores a terminal state exactly once. finishedAt is written
// before the state flips so readers observing a terminal state see it.
func (j *Job) finish(code int32) bool {
	for {
		cur := j.state.Load()
		if cur == codeCompleted || cur == codeCancelled || cur == codeFailed {
			return false
		}
		j.finishedAt = time.Now()
		if j.state.CompareAndSwap(cur, code) {
			return true
		}
	}
}

// fail records the failure reason and stores the failed state.
func (j *Job) fail(kind FailureKind, msg string) bool {
	j.failKind = kind
	j.failMsg = msg
	return j.finish(codeFailed)
}

// Cancel requests cooperative cancellation. A pending job flips straight
// to cancelled; a running job stops at the next segment boundary, with
// the segment in flight allowed to finish. Returns false when the job is
// already terminal.
func (j *Job) Cancel() bool {
	if j.state.CompareAndSwap(codePending, codeCancelled) {
		return true
	}
	if j.State() != StateInProgress {
		return false
	}
	j.cancelRequested.Store(true)
	return true
}
