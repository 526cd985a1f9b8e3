// Package document reads source documents into paragraph lists and
// writes translated output. Paragraph order and count are preserved end
// to end so translated documents keep the structure of the source.
package document

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType is returned for input files whose format has no
// extractor.
var ErrUnsupportedType = errors.New("unsupported document type")

// Document is an ordered list of paragraphs.
type Document struct {
	Paragraphs []string
}

// Extractor turns an input file into paragraphs.
type Extractor interface {
	Extract(r io.Reader) (Document, error)
}

// Writer renders translated paragraphs to an output file.
type Writer interface {
	Write(w io.Writer, paragraphs []string) error
}

// ---------------------------------------------------------------------------
// Plain text
// ---------------------------------------------------------------------------

// Text reads and writes plain UTF-8 text with blank-line paragraph
// separation.
type Text struct{}

// Extract splits on blank lines. Runs of blank lines count as one
// separator; a paragraph's internal single newlines are kept.
func (Text) Extract(r io.Reader) (Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Document{}, fmt.Errorf("reading document: %w", err)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	var paragraphs []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.Trim(block, "\n")
		if strings.TrimSpace(block) == "" {
			continue
		}
		paragraphs = append(paragraphs, block)
	}
	return Document{Paragraphs: paragraphs}, nil
}

// Write joins paragraphs with blank lines and ends with a newline.
func (Text) Write(w io.Writer, paragraphs []string) error {
	for i, p := range paragraphs {
		if i > 0 {
			if _, err := io.WriteString(w, "\n\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// ---------------------------------------------------------------------------
// File helpers
// ---------------------------------------------------------------------------

// Load extracts the document at path, choosing the extractor from the
// file extension.
func Load(path string) (Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text":
		return LoadText(path)
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnsupportedType, filepath.Ext(path))
	}
}

// LoadText extracts a plain-text document from disk.
func LoadText(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()
	return Text{}.Extract(f)
}

// SaveText writes paragraphs to disk as plain text.
func SaveText(path string, paragraphs []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	if err := (Text{}).Write(f, paragraphs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
