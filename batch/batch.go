// Package batch translates every text document in a directory through
// the job manager and records the outcome in a manifest.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lexhaus/jurico/job"
)

// Item is the outcome for one input file.
type Item struct {
	File   string    `json:"file"`
	JobID  string    `json:"job_id,omitempty"`
	State  job.State `json:"state"`
	Output string    `json:"output,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// Manifest summarizes one batch run.
type Manifest struct {
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Items      []Item    `json:"items"`
}

// Completed counts items that finished successfully.
func (m Manifest) Completed() int {
	n := 0
	for _, item := range m.Items {
		if item.State == job.StateCompleted {
			n++
		}
	}
	return n
}

// Runner drives sequential batch translation.
type Runner struct {
	Manager    *job.Manager
	SourceLang string
	TargetLang string
	// OutDir receives the translated files and the manifest.
	OutDir string
}

// Run translates every *.txt file under dir in name order. A failing
// file is recorded in the manifest and the batch moves on; only setup
// errors abort the run.
func (r *Runner) Run(ctx context.Context, dir string) (Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading batch dir: %w", err)
	}
	if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("creating output dir: %w", err)
	}

	manifest := Manifest{
		SourceLang: r.SourceLang,
		TargetLang: r.TargetLang,
		StartedAt:  time.Now(),
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		item := r.runOne(ctx, dir, entry.Name())
		manifest.Items = append(manifest.Items, item)
		if ctx.Err() != nil {
			break
		}
	}

	manifest.FinishedAt = time.Now()
	if err := writeManifest(filepath.Join(r.OutDir, "manifest.json"), manifest); err != nil {
		return manifest, err
	}
	return manifest, nil
}

func (r *Runner) runOne(ctx context.Context, dir, name string) Item {
	item := Item{File: name}

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		item.State = job.StateFailed
		item.Error = err.Error()
		return item
	}

	j, _, err := r.Manager.Submit(job.Request{
		SourceLang: r.SourceLang,
		TargetLang: r.TargetLang,
		Text:       string(data),
	})
	if err != nil {
		item.State = job.StateFailed
		item.Error = err.Error()
		return item
	}
	item.JobID = j.ID

	status, err := r.Manager.Wait(ctx, j.ID)
	if err != nil {
		item.State = status.State
		item.Error = err.Error()
		return item
	}
	item.State = status.State
	if status.State != job.StateCompleted {
		item.Error = status.Error
		return item
	}

	text, err := r.Manager.Result(j.ID)
	if err != nil {
		item.State = job.StateFailed
		item.Error = err.Error()
		return item
	}
	outName := strings.TrimSuffix(name, ".txt") + "." + r.TargetLang + ".txt"
	outPath := filepath.Join(r.OutDir, outName)
	if err := os.WriteFile(outPath, []byte(text), 0o644); err != nil {
		item.State = job.StateFailed
		item.Error = err.Error()
		return item
	}
	item.Output = outName
	return item
}

func writeManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
