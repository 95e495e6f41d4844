package docparse

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode"
)

func (p *Parser) docxCascade() []strategy {
	return []strategy{
		{name: "docx-xml", run: extractDocxXML},
		{name: "printable-fallback", run: extractPrintableRuns},
	}
}

func (p *Parser) odtCascade() []strategy {
	return []strategy{
		{name: "odt-xml", run: extractODTXML},
		{name: "printable-fallback", run: extractPrintableRuns},
	}
}

// extractDocxXML reads word/document.xml from the OOXML container and walks
// its paragraphs. Heading paragraphs keep their own line so the chapter
// segmenter can find them downstream.
func extractDocxXML(_ context.Context, doc SourceDocument) (string, error) {
	content, err := zipMember(doc.Data, "word/document.xml")
	if err != nil {
		return "", err
	}

	decoder := xml.NewDecoder(bytes.NewReader(content))
	var sb strings.Builder
	var currentText strings.Builder
	var inParagraph bool
	var paragraphStyle string

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "p":
				inParagraph = true
				currentText.Reset()
				paragraphStyle = ""
			case t.Name.Local == "pStyle" && inParagraph:
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						paragraphStyle = attr.Value
					}
				}
			case t.Name.Local == "tab" && inParagraph:
				currentText.WriteByte('\t')
			case t.Name.Local == "br" && inParagraph:
				currentText.WriteByte('\n')
			}
		case xml.CharData:
			if inParagraph {
				currentText.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				inParagraph = false
				text := strings.TrimSpace(currentText.String())
				if text == "" {
					continue
				}
				if sb.Len() > 0 {
					if docxHeadingLevel(paragraphStyle) > 0 {
						sb.WriteString("\n\n")
					} else {
						sb.WriteByte('\n')
					}
				}
				sb.WriteString(text)
			}
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no paragraph text in document.xml")
	}
	return sb.String(), nil
}

// docxHeadingLevel maps a paragraph style name to a heading level:
// 1 for "Heading1" and "Title", and so on down; 0 for body styles.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(style)
	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := lower[len(prefix):]
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}

// extractODTXML reads content.xml from an OpenDocument container.
func extractODTXML(_ context.Context, doc SourceDocument) (string, error) {
	content, err := zipMember(doc.Data, "content.xml")
	if err != nil {
		return "", err
	}

	decoder := xml.NewDecoder(bytes.NewReader(content))
	var sb strings.Builder
	var currentText strings.Builder
	depth := 0

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "p" || t.Name.Local == "h" {
				depth++
				if depth == 1 {
					currentText.Reset()
				}
			}
		case xml.CharData:
			if depth > 0 {
				currentText.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "h" {
				depth--
				if depth == 0 {
					text := strings.TrimSpace(currentText.String())
					if text != "" {
						if sb.Len() > 0 {
							sb.WriteByte('\n')
						}
						sb.WriteString(text)
					}
				}
			}
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no paragraph text in content.xml")
	}
	return sb.String(), nil
}

// extractPrintableRuns is the generic binary-to-text fallback for legacy
// .doc and for containers whose XML is damaged: keep printable runs of at
// least four characters, drop the rest.
func extractPrintableRuns(_ context.Context, doc SourceDocument) (string, error) {
	var sb strings.Builder
	var run []rune
	flush := func() {
		if len(run) >= 4 {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strings.TrimSpace(string(run)))
		}
		run = run[:0]
	}
	for _, r := range string(doc.Data) {
		if r != utf8RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsPunct(r) || r == ' ') {
			run = append(run, r)
			continue
		}
		flush()
	}
	flush()
	if sb.Len() == 0 {
		return "", fmt.Errorf("no printable text runs found")
	}
	return sb.String(), nil
}

const utf8RuneError = '�'

// zipMember returns the named file's bytes from an in-memory zip archive.
func zipMember(data []byte, name string) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(io.LimitReader(rc, 64<<20))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}

func zipHasMember(data []byte, name string) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}
