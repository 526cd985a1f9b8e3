package refdoc

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAlignAndLookup(t *testing.T) {
	pair, err := Align(
		[]string{"Article 1", "", "Le contrat prend effet immédiatement."},
		[]string{"Artikel 1", "Der Vertrag tritt sofort in Kraft.", ""},
	)
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if pair.Len() != 2 {
		t.Fatalf("Len = %d, want 2", pair.Len())
	}

	got, ok := pair.Lookup("Le contrat prend effet immédiatement.")
	if !ok || got != "Der Vertrag tritt sofort in Kraft." {
		t.Errorf("Lookup = %q, %v", got, ok)
	}

	// Case and whitespace differences still hit.
	got, ok = pair.Lookup("  LE CONTRAT   prend effet immédiatement.  ")
	if !ok || got != "Der Vertrag tritt sofort in Kraft." {
		t.Errorf("normalized Lookup = %q, %v", got, ok)
	}

	if _, ok := pair.Lookup("Le contrat prend effet demain."); ok {
		t.Error("different wording must not hit")
	}
}

func TestAlign_CountMismatch(t *testing.T) {
	if _, err := Align([]string{"a", "b"}, []string{"x"}); err == nil {
		t.Fatal("expected alignment error")
	}
}

func TestAlign_FirstOccurrenceWins(t *testing.T) {
	pair, err := Align(
		[]string{"Seite 1", "Inhalt", "Seite 1"},
		[]string{"Page 1", "Contenu", "Page eins"},
	)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := pair.Lookup("Seite 1")
	if got != "Page 1" {
		t.Errorf("Lookup = %q, want first occurrence", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "src.txt")
	tgtPath := filepath.Join(dir, "tgt.txt")
	os.WriteFile(srcPath, []byte("Premier paragraphe.\n\nDeuxième paragraphe.\n"), 0o644)
	os.WriteFile(tgtPath, []byte("Erster Absatz.\n\nZweiter Absatz.\n"), 0o644)

	pair, err := Load(srcPath, tgtPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := pair.Lookup("Deuxième paragraphe.")
	if !ok || got != "Zweiter Absatz." {
		t.Errorf("Lookup = %q, %v", got, ok)
	}
}

func TestNilPairLookup(t *testing.T) {
	var p *Pair
	if _, ok := p.Lookup("anything"); ok {
		t.Error("nil pair must never hit")
	}
	if p.Len() != 0 {
		t.Error("nil pair Len must be 0")
	}
}
