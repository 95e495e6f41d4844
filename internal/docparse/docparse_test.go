package docparse

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func newTestParser() *Parser {
	return New(Config{DisableOCR: true})
}

// buildZip assembles an in-memory zip archive for container-format fixtures.
func buildZip(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range members {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

func TestDetect(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		filename string
		format   Format
	}{
		{"doc.pdf", FormatPDF},
		{"doc.docx", FormatDocx},
		{"doc.doc", FormatDocx},
		{"doc.odt", FormatODT},
		{"deck.pptx", FormatPPTX},
		{"table.xlsx", FormatXLSX},
		{"book.epub", FormatEPUB},
		{"page.html", FormatHTML},
		{"page.htm", FormatHTML},
		{"data.csv", FormatCSV},
		{"notes.txt", FormatTXT},
		{"notes.md", FormatTXT},
		{"scan.png", FormatImage},
		{"scan.jpeg", FormatImage},
	}
	for _, tt := range tests {
		f, err := p.Detect(tt.filename, nil)
		if err != nil {
			t.Errorf("Detect(%q): %v", tt.filename, err)
			continue
		}
		if f != tt.format {
			t.Errorf("Detect(%q) = %q, want %q", tt.filename, f, tt.format)
		}
	}
}

func TestDetect_SniffsMisnamedUploads(t *testing.T) {
	p := newTestParser()

	docxZip := buildZip(t, map[string]string{"word/document.xml": "<w:document/>"})
	odtZip := buildZip(t, map[string]string{"content.xml": "<office:document-content/>"})

	tests := []struct {
		name   string
		data   []byte
		format Format
	}{
		{"pdf bytes", []byte("%PDF-1.7 rest of file"), FormatPDF},
		{"png bytes", []byte{0x89, 'P', 'N', 'G', '\r', '\n'}, FormatImage},
		{"jpeg bytes", []byte{0xFF, 0xD8, 0xFF, 0xE0}, FormatImage},
		{"docx container", docxZip, FormatDocx},
		{"odt container", odtZip, FormatODT},
		{"html head", []byte("<!DOCTYPE html><html><body>x</body></html>"), FormatHTML},
	}
	for _, tt := range tests {
		f, err := p.Detect("upload.bin", tt.data)
		if err != nil {
			t.Errorf("%s: %v", tt.name, err)
			continue
		}
		if f != tt.format {
			t.Errorf("%s = %q, want %q", tt.name, f, tt.format)
		}
	}

	if _, err := p.Detect("mystery.xyz", []byte("plain bytes, nothing to sniff")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("unknown upload: %v, want ErrUnsupportedFormat", err)
	}
}

func TestExtract_EmptyFile(t *testing.T) {
	p := newTestParser()
	_, err := p.Extract(context.Background(), SourceDocument{Filename: "empty.txt"})
	if !errors.Is(err, ErrParseFailure) {
		t.Fatalf("want ErrParseFailure, got %v", err)
	}
}

func TestExtract_FileTooLarge(t *testing.T) {
	p := New(Config{MaxFileSize: 16, DisableOCR: true})
	doc := SourceDocument{Data: bytes.Repeat([]byte("x"), 32), Filename: "big.txt"}
	_, err := p.Extract(context.Background(), doc)
	if !errors.Is(err, ErrParseFailure) {
		t.Fatalf("want ErrParseFailure, got %v", err)
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Errorf("error = %q, want a size reason", err)
	}
}

// WHAT: a few corrupt bytes under any extension must fail typed, never panic.
func TestExtract_TinyCorruptInputs(t *testing.T) {
	p := newTestParser()
	data := []byte{'a', 0x00, 'b', 0xFF, 'c'}

	for _, filename := range []string{
		"doc.pdf", "doc.docx", "doc.odt", "deck.pptx", "table.xlsx",
		"book.epub", "page.html", "data.csv", "notes.txt", "scan.png",
	} {
		_, err := p.Extract(context.Background(), SourceDocument{Data: data, Filename: filename})
		if !errors.Is(err, ErrParseFailure) {
			t.Errorf("Extract(%q) = %v, want ErrParseFailure", filename, err)
		}
	}
}

func TestExtract_ContextCanceled(t *testing.T) {
	p := newTestParser()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := SourceDocument{Data: []byte(strings.Repeat("readable text ", 20)), Filename: "notes.txt"}
	if _, err := p.Extract(ctx, doc); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestExtract_PlainText(t *testing.T) {
	data := "Cell biology studies the structure and function of the cell.\r\n\r\n\r\n" +
		"It covers organelles, membranes and the cell cycle in close detail."

	p := newTestParser()
	text, err := p.Extract(context.Background(), SourceDocument{Data: []byte(data), Filename: "notes.txt"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strings.Contains(text, "\r") {
		t.Error("carriage returns survived normalisation")
	}
	if !strings.Contains(text, "structure and function") || !strings.Contains(text, "cell cycle") {
		t.Errorf("text = %q", text)
	}
	if strings.Contains(text, "\n\n\n") {
		t.Error("blank lines were not collapsed")
	}
}

func TestExtract_CSVRows(t *testing.T) {
	data := "term,definition\n" +
		"Mitosis,Cell division producing two identical daughter cells\n" +
		`"Krebs cycle","Series of reactions, releasing stored energy"` + "\n" +
		"Osmosis,Diffusion of water across a semipermeable membrane\n"

	p := newTestParser()
	text, err := p.Extract(context.Background(), SourceDocument{Data: []byte(data), Filename: "glossary.csv"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(text, "Mitosis, Cell division producing two identical daughter cells") {
		t.Errorf("row not flattened:\n%s", text)
	}
	if !strings.Contains(text, "Krebs cycle, Series of reactions, releasing stored energy") {
		t.Errorf("quoted cell mishandled:\n%s", text)
	}
	if got := len(strings.Split(text, "\n")); got != 4 {
		t.Errorf("lines = %d, want 4", got)
	}
}

func TestExtract_Docx(t *testing.T) {
	docXML := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>This handout introduces the structure of eukaryotic cells.</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Cell Structure</w:t></w:r></w:p>
<w:p><w:r><w:t>The plasma membrane separates the interior of the cell from its environment.</w:t></w:r></w:p>
</w:body>
</w:document>`
	data := buildZip(t, map[string]string{"word/document.xml": docXML})

	p := newTestParser()
	text, err := p.Extract(context.Background(), SourceDocument{Data: data, Filename: "handout.docx"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(text, "\n\nCell Structure") {
		t.Errorf("heading not separated as its own block:\n%q", text)
	}
	if !strings.Contains(text, "plasma membrane separates") {
		t.Errorf("body text missing:\n%q", text)
	}
}

func TestExtract_LegacyDocFallsBackToPrintableRuns(t *testing.T) {
	// Legacy .doc is not a zip container; the cascade should fall through to
	// the printable-run scan.
	var data []byte
	data = append(data, 0x00, 0x01, 0x02)
	data = append(data, []byte("The nervous system coordinates rapid responses to stimuli. ")...)
	data = append(data, 0x03, 0x04)
	data = append(data, []byte("Neurons transmit electrical signals across synapses to target organs.")...)
	data = append(data, 0x05)

	p := newTestParser()
	text, err := p.Extract(context.Background(), SourceDocument{Data: data, Filename: "legacy.doc"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(text, "nervous system coordinates") || !strings.Contains(text, "Neurons transmit") {
		t.Errorf("text = %q", text)
	}
}

func TestExtract_ODT(t *testing.T) {
	contentXML := `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
  xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0">
<office:body><office:text>
<text:h text:outline-level="1">Photosynthesis Overview</text:h>
<text:p>Light reactions capture photon energy inside chloroplast membranes.</text:p>
<text:p>The Calvin cycle then fixes carbon dioxide into three-carbon sugars.</text:p>
</office:text></office:body>
</office:document-content>`
	data := buildZip(t, map[string]string{"content.xml": contentXML})

	p := newTestParser()
	text, err := p.Extract(context.Background(), SourceDocument{Data: data, Filename: "plants.odt"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, want := range []string{"Photosynthesis Overview", "photon energy", "Calvin cycle"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%q", want, text)
		}
	}
}

func TestExtract_HTML(t *testing.T) {
	page := `<!DOCTYPE html>
<html><head><title>Untitled Export</title><script>var tracker = 1;</script></head>
<body>
<h1>The Water Cycle</h1>
<p>Evaporation moves water from oceans into the atmosphere as vapour.</p>
<p>Condensation forms clouds, and precipitation returns water to the surface.</p>
<div style="display:none">hidden seo keywords</div>
<span style="visibility:hidden">invisible payload</span>
</body></html>`

	p := newTestParser()
	text, err := p.Extract(context.Background(), SourceDocument{Data: []byte(page), Filename: "notes.html"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(text, "The Water Cycle") {
		t.Errorf("heading missing:\n%q", text)
	}
	if !strings.Contains(text, "Evaporation moves water") {
		t.Errorf("body missing:\n%q", text)
	}
	for _, banned := range []string{"hidden seo", "invisible payload", "tracker", "Untitled Export"} {
		if strings.Contains(text, banned) {
			t.Errorf("invisible content %q leaked into:\n%q", banned, text)
		}
	}
}

func TestExtract_HTMLKeepsHeadingMarkers(t *testing.T) {
	// Markdown heading markers feed the chapter segmenter downstream.
	page := `<html><body>
<h1>Thermodynamics</h1>
<p>Energy cannot be created or destroyed, only converted between forms.</p>
<h2>Entropy</h2>
<p>Isolated systems drift toward states with more possible arrangements.</p>
</body></html>`

	p := newTestParser()
	text, err := p.Extract(context.Background(), SourceDocument{Data: []byte(page), Filename: "thermo.html"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(text, "# Thermodynamics") || !strings.Contains(text, "## Entropy") {
		t.Errorf("heading markers missing:\n%q", text)
	}
}

func TestExtract_EPUB(t *testing.T) {
	data := buildZip(t, map[string]string{
		"META-INF/container.xml": `<?xml version="1.0"?>
<container xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
<rootfiles><rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/></rootfiles>
</container>`,
		"OEBPS/content.opf": `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf">
<manifest>
<item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
<item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
<item id="css" href="style.css" media-type="text/css"/>
</manifest>
<spine><itemref idref="ch1"/><itemref idref="ch2"/></spine>
</package>`,
		"OEBPS/ch1.xhtml": `<html><body><h1>Kingdoms of Life</h1>
<p>Biologists group organisms into kingdoms based on shared characteristics.</p></body></html>`,
		"OEBPS/ch2.xhtml": `<html><body><h1>Classification</h1>
<p>Taxonomy assigns every known species a two-part latin name.</p></body></html>`,
		"OEBPS/style.css": "body { margin: 0 }",
	})

	p := newTestParser()
	text, err := p.Extract(context.Background(), SourceDocument{Data: data, Filename: "biology.epub"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	first := strings.Index(text, "Kingdoms of Life")
	second := strings.Index(text, "Classification")
	if first < 0 || second < 0 {
		t.Fatalf("chapters missing:\n%q", text)
	}
	if first > second {
		t.Error("spine order not preserved")
	}
	if strings.Contains(text, "margin") {
		t.Error("stylesheet content leaked into text")
	}
}

func TestExtract_PPTXSlideOrder(t *testing.T) {
	slide := func(body string) string {
		return `<?xml version="1.0"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"
  xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
<p:cSld><p:spTree><p:sp><p:txBody>` + body + `</p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`
	}
	data := buildZip(t, map[string]string{
		"ppt/presentation.xml": `<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"/>`,
		"ppt/slides/slide1.xml": slide(`<a:p><a:r><a:t>Introduction to Genetics</a:t></a:r></a:p>
<a:p><a:r><a:t>Genes encode heritable information in DNA sequences.</a:t></a:r></a:p>`),
		"ppt/slides/slide2.xml":  slide(`<a:p><a:r><a:t>Mendelian inheritance follows predictable ratios.</a:t></a:r></a:p>`),
		"ppt/slides/slide10.xml": slide(`<a:p><a:r><a:t>Population genetics studies allele frequency change.</a:t></a:r></a:p>`),
	})

	p := newTestParser()
	text, err := p.Extract(context.Background(), SourceDocument{Data: data, Filename: "genetics.pptx"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	posIntro := strings.Index(text, "Introduction to Genetics")
	posMendel := strings.Index(text, "Mendelian inheritance")
	posPop := strings.Index(text, "Population genetics")
	if posIntro < 0 || posMendel < 0 || posPop < 0 {
		t.Fatalf("slide text missing:\n%q", text)
	}
	if !(posIntro < posMendel && posMendel < posPop) {
		t.Error("slides out of deck order (slide10 must sort after slide2)")
	}
}

func TestExtract_XLSX(t *testing.T) {
	f := excelize.NewFile()
	cells := map[string]string{
		"A1": "Element", "B1": "Property",
		"A2": "Hydrogen", "B2": "The lightest element and the most abundant in the universe",
		"A3": "Helium", "B3": "An inert noble gas formed by stellar fusion processes",
		"A4": "Carbon", "B4": "The backbone element of all known organic chemistry",
	}
	for ref, val := range cells {
		if err := f.SetCellValue("Sheet1", ref, val); err != nil {
			t.Fatalf("SetCellValue: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}

	p := newTestParser()
	text, err := p.Extract(context.Background(), SourceDocument{Data: buf.Bytes(), Filename: "elements.xlsx"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(text, "Element, Property") {
		t.Errorf("header row not flattened:\n%q", text)
	}
	if !strings.Contains(text, "Hydrogen, The lightest element") {
		t.Errorf("data row not flattened:\n%q", text)
	}
}

func TestAdequateText(t *testing.T) {
	if adequateText("too short") {
		t.Error("short text judged adequate")
	}
	garbage := strings.Repeat("\uE000\uE001", 100)
	if adequateText(garbage) {
		t.Error("garbage text judged adequate")
	}
	normal := strings.Repeat("This line reads like ordinary document prose. ", 4)
	if !adequateText(normal) {
		t.Error("normal text judged inadequate")
	}
}
