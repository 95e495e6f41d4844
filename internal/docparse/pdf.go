package docparse

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"

	ltpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// pdfCascade is the ordered strategy list for PDFs: two independent text
// layer libraries, then raw content-stream recovery for files both libraries
// choke on, then OCR of rendered pages for scanned documents.
func (p *Parser) pdfCascade() []strategy {
	cascade := []strategy{
		{name: "pdfcpu-text-layer", run: extractPDFTextLayer},
		{name: "pdf-plaintext", run: extractPDFPlainText},
		{name: "raw-stream-recovery", run: extractPDFRawStreams},
	}
	if !p.cfg.DisableOCR {
		cascade = append(cascade, strategy{name: "ocr-rendered-pages", run: p.ocr.extractPDF})
	}
	return cascade
}

// extractPDFTextLayer walks the document with pdfcpu and parses the decoded
// per-page content streams for text operators.
func extractPDFTextLayer(_ context.Context, doc SourceDocument) (string, error) {
	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(doc.Data), conf)
	if err != nil {
		return "", fmt.Errorf("pdfcpu read: %w", err)
	}

	var sb strings.Builder
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil || len(data) == 0 {
			continue
		}
		pageText := textFromContentStream(data)
		if pageText == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(pageText)
	}

	if sb.Len() == 0 {
		if detectImageStreams(pdfCtx) {
			return "", fmt.Errorf("no text layer, %d pages of image streams", pdfCtx.PageCount)
		}
		return "", fmt.Errorf("no text content found in PDF")
	}
	return sb.String(), nil
}

// extractPDFPlainText is the second, independent text-layer extractor.
func extractPDFPlainText(_ context.Context, doc SourceDocument) (string, error) {
	reader, err := ltpdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return "", fmt.Errorf("pdf open: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("pdf plaintext read: %w", err)
	}
	return buf.String(), nil
}

var streamBlockRe = regexp.MustCompile(`(?s)stream\r?\n(.*?)endstream`)

// extractPDFRawStreams recovers text straight from the file bytes: locate
// stream blocks, inflate the compressed ones, and scan whatever decodes for
// text-showing operators. Last line of defence before OCR, for files whose
// cross-reference tables are too broken for either library.
func extractPDFRawStreams(_ context.Context, doc SourceDocument) (string, error) {
	blocks := streamBlockRe.FindAllSubmatch(doc.Data, -1)
	if len(blocks) == 0 {
		return "", fmt.Errorf("no stream blocks in file")
	}

	var sb strings.Builder
	for _, m := range blocks {
		raw := m[1]
		for _, candidate := range decodeStreamCandidates(raw) {
			text := textFromContentStream(candidate)
			if text == "" {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(text)
			break
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("no text operators recovered from %d streams", len(blocks))
	}
	return sb.String(), nil
}

// decodeStreamCandidates yields plausible decodings of a raw stream body:
// zlib (the usual FlateDecode framing), bare deflate, then the raw bytes.
func decodeStreamCandidates(raw []byte) [][]byte {
	var out [][]byte
	if r, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
		if data, err := io.ReadAll(io.LimitReader(r, 8<<20)); err == nil && len(data) > 0 {
			out = append(out, data)
		}
		r.Close()
	}
	if len(out) == 0 {
		fr := flate.NewReader(bytes.NewReader(raw))
		if data, err := io.ReadAll(io.LimitReader(fr, 8<<20)); err == nil && len(data) > 0 {
			out = append(out, data)
		}
		fr.Close()
	}
	out = append(out, raw)
	return out
}

// detectImageStreams checks whether the PDF carries image XObjects.
func detectImageStreams(ctx *model.Context) bool {
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
				return true
			}
		}
	}
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}

var (
	pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
	pdfHexRe    = regexp.MustCompile(`<([0-9A-Fa-f\s]+)>`)
)

// textFromContentStream parses PDF content-stream operators for shown text:
// Tj/TJ/' plus the positioning operators that imply word and line breaks.
func textFromContentStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		showsText := bytes.HasSuffix(line, []byte("Tj")) || bytes.HasSuffix(line, []byte("TJ"))
		nextLineShow := bytes.HasSuffix(line, []byte("'")) && bytes.ContainsAny(line, "(<")

		if showsText || nextLineShow {
			if nextLineShow {
				sb.WriteByte('\n')
			}
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				if text := decodePDFString(m[1]); text != "" {
					sb.WriteString(text)
				}
			}
			for _, m := range pdfHexRe.FindAllSubmatch(line, -1) {
				if text := decodePDFHexString(m[1]); text != "" {
					sb.WriteString(text)
				}
			}
		}

		if bytes.HasSuffix(line, []byte("Td")) || bytes.HasSuffix(line, []byte("TD")) {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		}
		if bytes.Equal(line, []byte("T*")) {
			sb.WriteByte('\n')
		}
	}

	return collapsePDFWhitespace(sb.String())
}

// decodePDFString handles the literal-string escapes: \n \r \t, escaped
// delimiters, and octal codes like \050.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}

// decodePDFHexString decodes <...> hex strings, honouring a UTF-16BE BOM;
// without one, bytes are taken as Latin-1.
func decodePDFHexString(raw []byte) string {
	hexStr := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, string(raw))
	if len(hexStr)%2 == 1 {
		hexStr += "0"
	}
	data := make([]byte, 0, len(hexStr)/2)
	for i := 0; i+1 < len(hexStr); i += 2 {
		hi, ok1 := hexVal(hexStr[i])
		lo, ok2 := hexVal(hexStr[i+1])
		if !ok1 || !ok2 {
			return ""
		}
		data = append(data, hi<<4|lo)
	}

	if len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF {
		u16 := make([]uint16, 0, (len(data)-2)/2)
		for i := 2; i+1 < len(data); i += 2 {
			u16 = append(u16, uint16(data[i])<<8|uint16(data[i+1]))
		}
		return string(utf16.Decode(u16))
	}

	var sb strings.Builder
	for _, b := range data {
		sb.WriteRune(rune(b))
	}
	return sb.String()
}

func hexVal(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// collapsePDFWhitespace normalises the spacing noise operator parsing leaves
// behind, keeping line breaks.
func collapsePDFWhitespace(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case r == '\n':
			sb.WriteByte('\n')
			prevSpace = true
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
