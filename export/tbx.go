package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/lexhaus/jurico/glossary"
	"github.com/lexhaus/jurico/langmeta"
)

// ---------------------------------------------------------------------------
// TBX-Basic
// ---------------------------------------------------------------------------

type tbxFile struct {
	XMLName xml.Name  `xml:"martif"`
	Type    string    `xml:"type,attr"`
	Lang    string    `xml:"xml:lang,attr"`
	Header  tbxHeader `xml:"martifHeader"`
	Text    tbxText   `xml:"text"`
}

type tbxHeader struct {
	FileDesc tbxFileDesc `xml:"fileDesc"`
}

type tbxFileDesc struct {
	Title  string `xml:"titleStmt>title"`
	Source string `xml:"sourceDesc>p"`
}

type tbxText struct {
	Entries []tbxTermEntry `xml:"body>termEntry"`
}

type tbxTermEntry struct {
	ID       string       `xml:"id,attr"`
	LangSets []tbxLangSet `xml:"langSet"`
}

type tbxLangSet struct {
	Lang string `xml:"xml:lang,attr"`
	Tig  tbxTig `xml:"tig"`
}

type tbxTig struct {
	Term string `xml:"term"`
	Note string `xml:"note,omitempty"`
}

// WriteTBX renders one glossary as TBX-Basic. Entry ids are the stable
// fingerprints, so re-exports diff cleanly.
func WriteTBX(w io.Writer, g *glossary.Glossary) error {
	srcCode := langmeta.Interchange(g.SourceLang)
	tgtCode := langmeta.Interchange(g.TargetLang)

	doc := tbxFile{
		Type: "TBX-Basic",
		Lang: srcCode,
		Header: tbxHeader{
			FileDesc: tbxFileDesc{
				Title:  g.Name,
				Source: "exported by " + creationTool,
			},
		},
	}
	for _, e := range g.Entries() {
		doc.Text.Entries = append(doc.Text.Entries, tbxTermEntry{
			ID: "t-" + e.Fingerprint(),
			LangSets: []tbxLangSet{
				{Lang: srcCode, Tig: tbxTig{Term: e.Term, Note: e.Context}},
				{Lang: tgtCode, Tig: tbxTig{Term: e.Translation}},
			},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding TBX: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// SaveTBX writes the TBX export to a file.
func SaveTBX(path string, g *glossary.Glossary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing TBX: %w", err)
	}
	if err := WriteTBX(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
