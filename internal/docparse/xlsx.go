package docparse

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

func (p *Parser) xlsxCascade() []strategy {
	return []strategy{
		{name: "xlsx-sheets", run: extractXLSXSheets},
		{name: "printable-fallback", run: extractPrintableRuns},
	}
}

// extractXLSXSheets flattens every sheet row-by-row, the same shape the CSV
// extractor produces. Sheet names are kept as headings when the workbook has
// more than one sheet.
func extractXLSXSheets(_ context.Context, doc SourceDocument) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	if err != nil {
		return "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}

	var sb strings.Builder
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		var sheetText strings.Builder
		for _, row := range rows {
			var cells []string
			for _, c := range row {
				c = strings.TrimSpace(c)
				if c != "" {
					cells = append(cells, c)
				}
			}
			if len(cells) == 0 {
				continue
			}
			if sheetText.Len() > 0 {
				sheetText.WriteByte('\n')
			}
			sheetText.WriteString(strings.Join(cells, ", "))
		}
		if sheetText.Len() == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		if len(sheets) > 1 {
			sb.WriteString(sheet)
			sb.WriteByte('\n')
		}
		sb.WriteString(sheetText.String())
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no cell values in %d sheets", len(sheets))
	}
	return sb.String(), nil
}
