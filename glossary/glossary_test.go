package glossary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCSV(t *testing.T) {
	in := strings.NewReader("term,translation,context\n" +
		"Arbeitsvertrag,contrat de travail,employment\n" +
		"Kündigung,résiliation,\n" +
		",missing term,\n" +
		"missing translation,,\n")

	entries, err := parseCSV(in)
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Term != "Arbeitsvertrag" || entries[0].Context != "employment" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Translation != "résiliation" {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}

func TestParseCSV_BOMHeader(t *testing.T) {
	in := strings.NewReader("\uFEFFterm,translation\nfoo,bar\n")
	entries, err := parseCSV(in)
	if err != nil {
		t.Fatalf("parseCSV: %v", err)
	}
	if len(entries) != 1 || entries[0].Term != "foo" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestParseCSV_MissingHeaders(t *testing.T) {
	in := strings.NewReader("word,meaning\nfoo,bar\n")
	if _, err := parseCSV(in); err == nil {
		t.Fatal("expected error for missing headers")
	}
}

func TestMatch_ExactRanksFirst(t *testing.T) {
	g := New([]Entry{
		{Term: "employee benefit plans", Translation: "plans de prévoyance"},
		{Term: "employee benefits", Translation: "prestations sociales"},
	}, "en", "fr", "test")

	got := g.Match("Employee Benefits")
	if len(got) == 0 {
		t.Fatal("expected at least one candidate")
	}
	if !got[0].Exact || got[0].Entry.Term != "employee benefits" {
		t.Errorf("expected exact match first, got %+v", got[0])
	}
}

func TestMatch_ContainedTermAlwaysQualifies(t *testing.T) {
	g := New([]Entry{
		{Term: "employee benefits", Translation: "prestations sociales"},
	}, "en", "fr", "test")
	g.Threshold = 90

	got := g.Match("The Employee Benefits Overview section applies to all staff of the company regardless of seniority.")
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Score != 100 || got[0].Exact {
		t.Errorf("contained term should score 100 non-exact, got %+v", got[0])
	}
}

func TestSimilarity(t *testing.T) {
	// 4 common chars out of 10 total gives ratio 0.8.
	if got := Similarity("abcde", "abcdf"); got != 80 {
		t.Errorf("Similarity = %v, want 80", got)
	}
	if got := Similarity("same", "same"); got != 100 {
		t.Errorf("Similarity identical = %v, want 100", got)
	}
}

func TestMatch_ThresholdInclusive(t *testing.T) {
	g := New([]Entry{{Term: "abcdf", Translation: "x"}}, "en", "fr", "test")

	g.Threshold = 80
	if got := g.Match("abcde"); len(got) != 1 {
		t.Errorf("score at threshold should match, got %d candidates", len(got))
	}
	g.Threshold = 81
	if got := g.Match("abcde"); len(got) != 0 {
		t.Errorf("score below threshold should not match, got %d candidates", len(got))
	}
}

func TestMatch_TieBreakByFileOrder(t *testing.T) {
	g := New([]Entry{
		{Term: "abcdf", Translation: "first"},
		{Term: "abcdg", Translation: "second"},
	}, "en", "fr", "test")
	g.Threshold = 70

	got := g.Match("abcde")
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Entry.Translation != "first" {
		t.Errorf("equal scores should keep file order, got %q first", got[0].Entry.Translation)
	}
}

func TestMutationsRewriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contracts.csv")
	if err := os.WriteFile(path, []byte("term,translation,context\nfoo,bar,\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	g, err := LoadCSV(path, "de", "fr")
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if g.Name != "contracts" {
		t.Errorf("Name = %q, want contracts", g.Name)
	}

	if err := g.Add(Entry{Term: "baz", Translation: "qux", Context: "ctx"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := g.Add(Entry{Term: "BAZ", Translation: "QUX"}); err == nil {
		t.Error("duplicate Add should fail")
	}
	if err := g.Update("foo", Entry{Term: "foo", Translation: "barre"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := g.Delete("nope"); err == nil {
		t.Error("Delete of unknown term should fail")
	}

	reloaded, err := LoadCSV(path, "de", "fr")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	entries := reloaded.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries after rewrite, want 2", len(entries))
	}
	if entries[0].Translation != "barre" || entries[1].Context != "ctx" {
		t.Errorf("unexpected entries after rewrite: %+v", entries)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.csv"), []byte("term,translation\nfoo,bar\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.csv"), []byte("term,translation\nbaz,qux\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := LoadDir(dir, "de", "fr", 75)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if got := set.Names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Names = %v, want [a b]", got)
	}
	if set.Get("a").Threshold != 75 {
		t.Errorf("threshold not applied: %d", set.Get("a").Threshold)
	}

	empty, err := LoadDir(filepath.Join(dir, "missing"), "de", "fr", 70)
	if err != nil {
		t.Fatalf("LoadDir missing: %v", err)
	}
	if len(empty.Names()) != 0 {
		t.Errorf("missing dir should yield empty set")
	}
}
