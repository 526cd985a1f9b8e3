// Package export writes the translation memory and glossaries in the
// CAT interchange formats TMX 1.4 and TBX-Basic.
package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"

	"github.com/lexhaus/jurico/langmeta"
	"github.com/lexhaus/jurico/memory"
)

const creationTool = "jurico"

// ---------------------------------------------------------------------------
// TMX 1.4
// ---------------------------------------------------------------------------

type tmxFile struct {
	XMLName xml.Name  `xml:"tmx"`
	Version string    `xml:"version,attr"`
	Header  tmxHeader `xml:"header"`
	Body    tmxBody   `xml:"body"`
}

type tmxHeader struct {
	CreationTool        string `xml:"creationtool,attr"`
	CreationToolVersion string `xml:"creationtoolversion,attr"`
	SegType             string `xml:"segtype,attr"`
	OTMF                string `xml:"o-tmf,attr"`
	AdminLang           string `xml:"adminlang,attr"`
	SrcLang             string `xml:"srclang,attr"`
	DataType            string `xml:"datatype,attr"`
}

type tmxBody struct {
	Units []tmxTU `xml:"tu"`
}

type tmxTU struct {
	Variants []tmxTUV `xml:"tuv"`
}

type tmxTUV struct {
	Lang string `xml:"xml:lang,attr"`
	Seg  string `xml:"seg"`
}

// WriteTMX renders the memory records for one language pair as TMX 1.4.
// Language codes are widened to their regioned interchange variants.
func WriteTMX(w io.Writer, store *memory.Store, sourceLang, targetLang, toolVersion string) error {
	srcCode := langmeta.Interchange(sourceLang)
	tgtCode := langmeta.Interchange(targetLang)

	doc := tmxFile{
		Version: "1.4",
		Header: tmxHeader{
			CreationTool:        creationTool,
			CreationToolVersion: toolVersion,
			SegType:             "paragraph",
			OTMF:                creationTool,
			AdminLang:           "en-US",
			SrcLang:             srcCode,
			DataType:            "plaintext",
		},
	}
	for _, rec := range store.Records(sourceLang, targetLang) {
		doc.Body.Units = append(doc.Body.Units, tmxTU{
			Variants: []tmxTUV{
				{Lang: srcCode, Seg: rec.Source},
				{Lang: tgtCode, Seg: rec.Target},
			},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding TMX: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// SaveTMX writes the TMX export to a file.
func SaveTMX(path string, store *memory.Store, sourceLang, targetLang, toolVersion string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing TMX: %w", err)
	}
	if err := WriteTMX(f, store, sourceLang, targetLang, toolVersion); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
