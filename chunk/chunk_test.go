package chunk

import (
	"strings"
	"testing"
)

// repeatWords builds a text of the given approximate size out of short
// whitespace-separated words.
func repeatWords(size int) string {
	var b strings.Builder
	for b.Len() < size {
		b.WriteString("lorem ipsum dolor sit amet ")
	}
	return b.String()[:size]
}

func TestSplit_ShortParagraphIsSingleSegment(t *testing.T) {
	sp := NewSplitter(100, 10)
	segs := sp.Split([]string{"short paragraph"})
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if segs[0].Text != "short paragraph" || segs[0].OverlapLen != 0 {
		t.Fatalf("unexpected segment: %#v", segs[0])
	}
}

func TestSplit_EmptyParagraphKeepsPosition(t *testing.T) {
	sp := NewSplitter(100, 10)
	segs := sp.Split([]string{"first", "", "third"})
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	if segs[1].ParaIndex != 1 || segs[1].Text != "" {
		t.Fatalf("empty paragraph lost its position: %#v", segs[1])
	}
}

func TestSplit_LongParagraphOverlap(t *testing.T) {
	const m, o = 15000, 100
	para := repeatWords(32000)
	sp := NewSplitter(m, o)

	segs := sp.Split([]string{para})
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	for i, seg := range segs {
		if len(seg.Text) > m {
			t.Errorf("segment %d is %d bytes, budget %d", i, len(seg.Text), m)
		}
	}
	// Segment 2 begins with the last 100 characters of segment 1's tail.
	tail := segs[0].Text[len(segs[0].Text)-o:]
	if !strings.HasPrefix(segs[1].Text, tail) {
		t.Error("segment 2 does not start with segment 1's tail")
	}
	if segs[1].OverlapLen != o {
		t.Errorf("segment 2 overlap = %d, want %d", segs[1].OverlapLen, o)
	}
}

func TestSplit_NeverCutsInsideWord(t *testing.T) {
	para := repeatWords(40000)
	sp := NewSplitter(1000, 50)

	for _, seg := range sp.Split([]string{para}) {
		if seg.SeqIndex == 0 {
			continue
		}
		// Every non-first segment starts where the previous one was cut
		// after whitespace, so Body starts at a word boundary once the
		// overlap context is stripped.
		body := seg.Body()
		if body == "" {
			continue
		}
		start := len(seg.Text) - len(body) - 1
		if start >= 0 && !isSpaceByte(seg.Text[start]) {
			t.Fatalf("segment %d body does not begin at a word boundary", seg.SeqIndex)
		}
	}
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

func TestSplit_SingleOversizedTokenEmittedWhole(t *testing.T) {
	token := strings.Repeat("x", 5000)
	sp := NewSplitter(1000, 50)

	segs := sp.Split([]string{token})
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1 oversized", len(segs))
	}
	if segs[0].Text != token {
		t.Error("oversized token was corrupted")
	}
}

func TestSplit_TrailingOversizedTokenNoEmptyTail(t *testing.T) {
	para := repeatWords(600) + " " + strings.Repeat("y", 3000)
	sp := NewSplitter(1000, 50)

	segs := sp.Split([]string{para})
	for _, seg := range segs {
		if seg.Body() == "" {
			t.Fatalf("segment %d has an empty body", seg.SeqIndex)
		}
	}
	if got := Reassemble(segs, 1)[0]; got != para {
		t.Error("paragraph differs after round trip")
	}
}

func TestReassemble_RoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		maxChars int
		overlap  int
		paras    []string
	}{
		{name: "short docs", maxChars: 15000, overlap: 100,
			paras: []string{"one", "two", "", "four"}},
		{name: "one long paragraph", maxChars: 1000, overlap: 100,
			paras: []string{repeatWords(12345)}},
		{name: "mixed", maxChars: 500, overlap: 60,
			paras: []string{"intro", repeatWords(2200), "", repeatWords(900), "outro"}},
		{name: "tiny budget", maxChars: 64, overlap: 8,
			paras: []string{repeatWords(777)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sp := NewSplitter(tc.maxChars, tc.overlap)
			segs := sp.Split(tc.paras)
			got := Reassemble(segs, len(tc.paras))
			if len(got) != len(tc.paras) {
				t.Fatalf("got %d paragraphs, want %d", len(got), len(tc.paras))
			}
			for i := range tc.paras {
				if got[i] != tc.paras[i] {
					t.Fatalf("paragraph %d differs after round trip", i)
				}
			}
		})
	}
}

func TestReassembleTexts_JoinsByParagraph(t *testing.T) {
	segs := []Segment{
		{ParaIndex: 0, SeqIndex: 0, Text: "aaa"},
		{ParaIndex: 1, SeqIndex: 0, Text: "bbb"},
		{ParaIndex: 1, SeqIndex: 1, Text: "ccc", OverlapLen: 1},
	}
	texts := []string{"AAA", "BBB", "CCC"}

	got := ReassembleTexts(segs, texts, 2)
	if got[0] != "AAA" {
		t.Errorf("paragraph 0 = %q", got[0])
	}
	if got[1] != "BBBCCC" {
		t.Errorf("paragraph 1 = %q", got[1])
	}
}
