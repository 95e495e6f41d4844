// Package docparse extracts text from user-uploaded documents.
//
// Supported formats:
//   - .pdf: text layer via pdfcpu, then ledongthuc/pdf, then raw
//     content-stream recovery, then OCR of rendered pages
//   - .docx, .doc, .odt: structured XML extraction with a printable-text fallback
//   - .pptx: slide XML extraction
//   - .xlsx: sheet flattening via excelize
//   - .epub: container to OPF spine to XHTML chapters
//   - .html, .htm: sanitised markdown conversion with a DOM-walk fallback
//   - .csv: rows flattened to newline-joined text
//   - .txt, .md: passthrough with whitespace normalisation
//   - .png, .jpg, .gif: OCR only
//
// Each format runs an ordered cascade of strategies; the first one whose
// output passes the adequacy check wins. A parser returns ErrParseFailure
// only when every strategy has failed to produce readable text.
//
// Usage:
//
//	parser := docparse.New(docparse.Config{Logger: log})
//	text, err := parser.Extract(ctx, docparse.SourceDocument{Data: data, Filename: name})
package docparse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"quizforge/internal/logger"
)

// Format identifies a supported document format.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatDocx  Format = "docx"
	FormatODT   Format = "odt"
	FormatPPTX  Format = "pptx"
	FormatXLSX  Format = "xlsx"
	FormatEPUB  Format = "epub"
	FormatHTML  Format = "html"
	FormatCSV   Format = "csv"
	FormatTXT   Format = "txt"
	FormatImage Format = "image"
)

// SourceDocument is one uploaded document: raw bytes plus the metadata the
// client declared. Created per request and discarded after parsing.
type SourceDocument struct {
	Data     []byte
	Filename string
	MimeType string
}

// Config tunes the parser. Zero values are filled by defaults().
type Config struct {
	// MaxFileSize rejects documents larger than this many bytes.
	MaxFileSize int64
	// Logger receives per-strategy diagnostics. Defaults to a no-op.
	Logger logger.Logger
	// TesseractPath and PdftoppmPath override the OCR binaries on PATH.
	TesseractPath string
	PdftoppmPath  string
	// DisableOCR skips OCR strategies entirely (tests, minimal deploys).
	DisableOCR bool
}

func (c *Config) defaults() {
	if c.MaxFileSize == 0 {
		c.MaxFileSize = 64 << 20
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
	if c.TesseractPath == "" {
		c.TesseractPath = "tesseract"
	}
	if c.PdftoppmPath == "" {
		c.PdftoppmPath = "pdftoppm"
	}
}

// Parser dispatches documents to per-format strategy cascades.
type Parser struct {
	cfg Config
	log logger.Logger
	ocr *ocrEngine
}

// New creates a Parser with the given configuration.
func New(cfg Config) *Parser {
	cfg.defaults()
	return &Parser{
		cfg: cfg,
		log: cfg.Logger,
		ocr: newOCREngine(cfg),
	}
}

// Detect returns the document format, preferring the filename extension and
// falling back to magic-byte sniffing for misnamed uploads.
func (p *Parser) Detect(filename string, data []byte) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return FormatPDF, nil
	case ".docx", ".doc":
		return FormatDocx, nil
	case ".odt":
		return FormatODT, nil
	case ".pptx", ".ppt":
		return FormatPPTX, nil
	case ".xlsx", ".xls":
		return FormatXLSX, nil
	case ".epub":
		return FormatEPUB, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".csv":
		return FormatCSV, nil
	case ".txt", ".text", ".md", ".markdown":
		return FormatTXT, nil
	case ".png", ".jpg", ".jpeg", ".gif":
		return FormatImage, nil
	}
	if f, ok := sniffFormat(data); ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// sniffFormat classifies by leading bytes when the extension is missing or
// unknown. Zip containers are discriminated by their member paths.
func sniffFormat(data []byte) (Format, bool) {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return FormatPDF, true
	case bytes.HasPrefix(data, []byte{0x89, 'P', 'N', 'G'}),
		bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}),
		bytes.HasPrefix(data, []byte("GIF8")):
		return FormatImage, true
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		switch {
		case zipHasMember(data, "word/document.xml"):
			return FormatDocx, true
		case zipHasMember(data, "ppt/presentation.xml"):
			return FormatPPTX, true
		case zipHasMember(data, "xl/workbook.xml"):
			return FormatXLSX, true
		case zipHasMember(data, "META-INF/container.xml"):
			return FormatEPUB, true
		case zipHasMember(data, "content.xml"):
			return FormatODT, true
		}
		return "", false
	}
	head := strings.ToLower(string(data[:min(len(data), 512)]))
	if strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html") {
		return FormatHTML, true
	}
	return "", false
}

// strategy is one extraction attempt within a format cascade. Ordering is
// data: the cascade for a format is just a slice of these.
type strategy struct {
	name string
	run  func(ctx context.Context, doc SourceDocument) (string, error)
}

// Extract runs the format's strategy cascade and returns raw extracted text.
// The result is best-effort and unvalidated; run Validate on it before use.
// Returns ErrParseFailure when no strategy yields adequate readable text.
func (p *Parser) Extract(ctx context.Context, doc SourceDocument) (string, error) {
	if int64(len(doc.Data)) > p.cfg.MaxFileSize {
		return "", fmt.Errorf("%w: file too large (%d bytes, max %d)", ErrParseFailure, len(doc.Data), p.cfg.MaxFileSize)
	}
	if len(doc.Data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrParseFailure)
	}

	format, err := p.Detect(doc.Filename, doc.Data)
	if err != nil {
		return "", err
	}

	p.log.Debug("extracting document", "filename", doc.Filename, "format", format, "bytes", len(doc.Data))

	cascade, err := p.cascadeFor(format)
	if err != nil {
		return "", err
	}
	return p.runCascade(ctx, format, cascade, doc)
}

func (p *Parser) cascadeFor(format Format) ([]strategy, error) {
	switch format {
	case FormatPDF:
		return p.pdfCascade(), nil
	case FormatDocx:
		return p.docxCascade(), nil
	case FormatODT:
		return p.odtCascade(), nil
	case FormatPPTX:
		return p.pptxCascade(), nil
	case FormatXLSX:
		return p.xlsxCascade(), nil
	case FormatEPUB:
		return p.epubCascade(), nil
	case FormatHTML:
		return p.htmlCascade(), nil
	case FormatCSV:
		return p.csvCascade(), nil
	case FormatTXT:
		return p.textCascade(), nil
	case FormatImage:
		return p.imageCascade(), nil
	default:
		return nil, fmt.Errorf("%w: no parser for %s", ErrUnsupportedFormat, format)
	}
}

// runCascade tries each strategy in order until one yields adequate text.
// Strategy panics (third-party parsers on hostile input) are absorbed so a
// malformed document can never take the request down.
func (p *Parser) runCascade(ctx context.Context, format Format, cascade []strategy, doc SourceDocument) (string, error) {
	var lastErr error
	for _, s := range cascade {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		text, err := p.runStrategy(ctx, s, doc)
		if err != nil {
			p.log.Debug("extraction strategy failed",
				"format", format, "strategy", s.name, "error", err.Error())
			lastErr = err
			continue
		}
		text = sanitizeUTF8(text)
		if !adequateText(text) {
			p.log.Debug("extraction strategy inadequate",
				"format", format, "strategy", s.name, "chars", len(text))
			continue
		}
		p.log.Info("extraction strategy succeeded",
			"format", format, "strategy", s.name, "chars", len(text))
		return text, nil
	}
	if lastErr != nil {
		// An InvalidContent verdict from a strategy (image OCR floor) wins
		// over the generic parse failure.
		if errors.Is(lastErr, ErrInvalidContent) {
			return "", lastErr
		}
		return "", fmt.Errorf("%w: all %s strategies failed: %v", ErrParseFailure, format, lastErr)
	}
	return "", fmt.Errorf("%w: all %s strategies produced inadequate text", ErrParseFailure, format)
}

func (p *Parser) runStrategy(ctx context.Context, s strategy, doc SourceDocument) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.name, r)
		}
	}()
	return s.run(ctx, doc)
}

// adequateText is the local per-strategy acceptance check: enough readable
// characters and not obviously corrupt.
func adequateText(text string) bool {
	clean := strings.TrimSpace(text)
	if len(clean) < MinTextLen {
		return false
	}
	return printableRatio(clean) >= 0.70
}
