package docparse

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
)

func (p *Parser) textCascade() []strategy {
	return []strategy{
		{name: "text-passthrough", run: extractPlainText},
	}
}

func (p *Parser) csvCascade() []strategy {
	return []strategy{
		{name: "csv-rows", run: extractCSVRows},
		{name: "raw-utf8", run: extractRawUTF8},
	}
}

// extractPlainText normalises whitespace in .txt/.md input while keeping
// line structure (headings, lists) intact for the chapter segmenter.
func extractPlainText(_ context.Context, doc SourceDocument) (string, error) {
	text := sanitizeUTF8(string(doc.Data))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	blank := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
			lines = append(lines, "")
			continue
		}
		blank = 0
		lines = append(lines, line)
	}
	out := strings.TrimSpace(strings.Join(lines, "\n"))
	if out == "" {
		return "", fmt.Errorf("file contains no text")
	}
	return out, nil
}

// extractCSVRows flattens a CSV to newline-joined rows with comma-separated
// cells, so tabular study material reads as sentences of facts.
func extractCSVRows(_ context.Context, doc SourceDocument) (string, error) {
	r := csv.NewReader(strings.NewReader(sanitizeUTF8(string(doc.Data))))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("csv parse: %w", err)
	}

	var sb strings.Builder
	for _, rec := range records {
		var cells []string
		for _, c := range rec {
			c = strings.TrimSpace(c)
			if c != "" {
				cells = append(cells, c)
			}
		}
		if len(cells) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(strings.Join(cells, ", "))
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("csv contains no cells")
	}
	return sb.String(), nil
}

// extractRawUTF8 is the terminal fallback shared by the single-pass formats:
// decode whatever valid UTF-8 the bytes hold.
func extractRawUTF8(_ context.Context, doc SourceDocument) (string, error) {
	text := strings.TrimSpace(sanitizeUTF8(string(doc.Data)))
	if text == "" {
		return "", fmt.Errorf("no decodable text")
	}
	return text, nil
}
