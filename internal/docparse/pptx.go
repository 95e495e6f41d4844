package docparse

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

func (p *Parser) pptxCascade() []strategy {
	return []strategy{
		{name: "pptx-slides", run: extractPPTXSlides},
		{name: "printable-fallback", run: extractPrintableRuns},
	}
}

var slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPPTXSlides reads every ppt/slides/slideN.xml in deck order and
// collects the text runs. Each slide becomes a paragraph block so slide
// boundaries survive into chunking.
func extractPPTXSlides(_ context.Context, doc SourceDocument) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}

	type slideFile struct {
		num int
		f   *zip.File
	}
	var slides []slideFile
	for _, f := range zr.File {
		m := slideNameRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slideFile{num: n, f: f})
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("no slides in presentation")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var sb strings.Builder
	for _, s := range slides {
		rc, err := s.f.Open()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(io.LimitReader(rc, 16<<20))
		rc.Close()
		if err != nil {
			continue
		}
		text := slideText(content)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no text runs in %d slides", len(slides))
	}
	return sb.String(), nil
}

// slideText pulls the a:t runs from one slide XML, breaking lines at a:p
// paragraph ends.
func slideText(content []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	var sb strings.Builder
	var inTextRun bool
	lineHasText := false

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inTextRun = true
			}
		case xml.CharData:
			if inTextRun {
				text := strings.TrimSpace(string(t))
				if text != "" {
					if lineHasText {
						sb.WriteByte(' ')
					}
					sb.WriteString(text)
					lineHasText = true
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inTextRun = false
			case "p":
				if lineHasText {
					sb.WriteByte('\n')
					lineHasText = false
				}
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
