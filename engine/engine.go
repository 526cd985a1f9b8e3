// Package engine calls the translation model. It knows nothing about
// documents or jobs; it takes one segment with its constraints and
// returns one draft translation.
package engine

import (
	"context"
	"fmt"
)

// ---------------------------------------------------------------------------
// Request / response
// ---------------------------------------------------------------------------

// Constraint is a glossary binding the model must honor.
type Constraint struct {
	Term        string
	Translation string
	Context     string
}

// Example is a prior confirmed translation offered as phrasing guidance.
type Example struct {
	Source string
	Target string
}

// Request is one segment to translate.
type Request struct {
	// Text is the translatable unit.
	Text string
	// LeadIn is preceding document text supplied for continuity only;
	// it must not be translated or echoed back.
	LeadIn     string
	SourceLang string
	TargetLang string
	// Constraints are the glossary terms that matched this segment.
	Constraints []Constraint
	// Examples are near-matching prior translations, best first.
	Examples []Example
	// Instructions are free-form customer directives applied to every
	// segment of the job.
	Instructions string
}

// Engine produces a draft translation for one segment.
type Engine interface {
	Translate(ctx context.Context, req Request) (string, error)
}

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

// ErrorKind classifies engine failures for the job layer.
type ErrorKind string

const (
	ErrRateLimited     ErrorKind = "rate_limited"
	ErrAuth            ErrorKind = "auth"
	ErrInvalidResponse ErrorKind = "invalid_response"
	ErrUnavailable     ErrorKind = "unavailable"
)

// Error is a classified engine failure.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("engine %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("engine %s: %s", e.Kind, e.Message)
}

// ---------------------------------------------------------------------------
// Dry-run engine
// ---------------------------------------------------------------------------

// DryRun echoes a marked draft without any network call. Used by tests
// and the --dry-run flag.
type DryRun struct{}

func (DryRun) Translate(_ context.Context, req Request) (string, error) {
	return fmt.Sprintf("[%s draft] %s", req.TargetLang, req.Text), nil
}
