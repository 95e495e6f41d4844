package docparse

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"quizforge/internal/logger"
)

// OCR acceptance floors. Tesseract reports per-word confidence 0-100; below
// minOCRConfidence the recognition is noise, not text.
const (
	minOCRConfidence = 10.0
	minOCRTextLen    = 10
)

// imageCascade: images carry no text layer, OCR is the only strategy.
func (p *Parser) imageCascade() []strategy {
	if p.cfg.DisableOCR {
		return []strategy{{name: "ocr-disabled", run: func(context.Context, SourceDocument) (string, error) {
			return "", fmt.Errorf("ocr disabled, cannot read image content")
		}}}
	}
	return []strategy{
		{name: "ocr-image", run: p.ocr.extractImage},
	}
}

// ocrEngine shells out to tesseract (and pdftoppm for PDF page rendering).
// The CLI boundary is wrapped here once so every caller sees the same
// synchronous extract interface as any other strategy.
type ocrEngine struct {
	tesseract string
	pdftoppm  string
	log       logger.Logger
}

func newOCREngine(cfg Config) *ocrEngine {
	return &ocrEngine{
		tesseract: cfg.TesseractPath,
		pdftoppm:  cfg.PdftoppmPath,
		log:       cfg.Logger,
	}
}

type ocrResult struct {
	text     string
	meanConf float64
	words    int
}

// extractImage OCRs a single uploaded image. Images have no other strategy,
// so a low-confidence result is an InvalidContent verdict, not a fallthrough.
func (e *ocrEngine) extractImage(ctx context.Context, doc SourceDocument) (string, error) {
	if _, err := exec.LookPath(e.tesseract); err != nil {
		return "", fmt.Errorf("tesseract not installed: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "quizforge-ocr-*")
	if err != nil {
		return "", fmt.Errorf("ocr temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	imgPath := filepath.Join(tmpDir, "input"+strings.ToLower(filepath.Ext(doc.Filename)))
	if err := os.WriteFile(imgPath, doc.Data, 0o600); err != nil {
		return "", fmt.Errorf("ocr write image: %w", err)
	}

	res, err := e.recognizeFile(ctx, imgPath)
	if err != nil {
		return "", err
	}
	e.log.Debug("ocr image result", "filename", doc.Filename, "words", res.words, "mean_confidence", res.meanConf)

	if res.meanConf < minOCRConfidence || len(res.text) < minOCRTextLen {
		return "", fmt.Errorf("%w: image text unreadable (confidence %.1f, %d chars)", ErrInvalidContent, res.meanConf, len(res.text))
	}
	return res.text, nil
}

// extractPDF renders pages with pdftoppm and OCRs each one. The last resort
// of the PDF cascade; reaching it means the document has no usable text
// layer, so a low-confidence result is reported as image-based content.
func (e *ocrEngine) extractPDF(ctx context.Context, doc SourceDocument) (string, error) {
	if _, err := exec.LookPath(e.tesseract); err != nil {
		return "", fmt.Errorf("tesseract not installed: %w", err)
	}
	if _, err := exec.LookPath(e.pdftoppm); err != nil {
		return "", fmt.Errorf("pdftoppm not installed: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "quizforge-ocr-*")
	if err != nil {
		return "", fmt.Errorf("ocr temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(pdfPath, doc.Data, 0o600); err != nil {
		return "", fmt.Errorf("ocr write pdf: %w", err)
	}

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, e.pdftoppm, "-png", "-r", "300", pdfPath, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm: %v: %s", err, bytes.TrimSpace(out))
	}

	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(pages) == 0 {
		return "", fmt.Errorf("no page images rendered from PDF")
	}
	sortByPageNumber(pages)

	var sb strings.Builder
	totalWords := 0
	confSum := 0.0
	for i, page := range pages {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		res, err := e.recognizeFile(ctx, page)
		if err != nil {
			e.log.Debug("ocr page failed", "page", i+1, "error", err.Error())
			continue
		}
		totalWords += res.words
		confSum += res.meanConf * float64(res.words)
		if res.text != "" {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(res.text)
		}
	}

	meanConf := 0.0
	if totalWords > 0 {
		meanConf = confSum / float64(totalWords)
	}
	e.log.Info("ocr pdf result", "filename", doc.Filename, "pages", len(pages), "words", totalWords, "mean_confidence", meanConf)

	if meanConf < minOCRConfidence || sb.Len() < minOCRTextLen {
		return "", fmt.Errorf("%w: document appears to be image-based and OCR found no readable text (confidence %.1f)", ErrInvalidContent, meanConf)
	}
	return sb.String(), nil
}

// recognizeFile runs tesseract in TSV mode and folds the per-word rows into
// text plus a mean confidence.
func (e *ocrEngine) recognizeFile(ctx context.Context, path string) (ocrResult, error) {
	cmd := exec.CommandContext(ctx, e.tesseract, path, "stdout", "-l", "eng", "--psm", "3", "tsv")
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return ocrResult{}, fmt.Errorf("tesseract: %v: %s", err, bytes.TrimSpace(errOut.Bytes()))
	}
	return parseTesseractTSV(out.String()), nil
}

// parseTesseractTSV folds tesseract's TSV output (level page block par line
// word left top width height conf text) into line-joined text and the mean
// word confidence. Level 5 rows are recognised words; conf -1 rows are
// layout, not words.
func parseTesseractTSV(tsv string) ocrResult {
	var sb strings.Builder
	var confSum float64
	words := 0
	prevLineKey := ""

	for _, row := range strings.Split(tsv, "\n") {
		cols := strings.Split(row, "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}

		lineKey := strings.Join(cols[1:5], ":")
		if sb.Len() > 0 {
			if lineKey != prevLineKey {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		}
		prevLineKey = lineKey
		sb.WriteString(word)
		confSum += conf
		words++
	}

	res := ocrResult{text: strings.TrimSpace(sb.String()), words: words}
	if words > 0 {
		res.meanConf = confSum / float64(words)
	}
	return res
}

var pageNumRe = regexp.MustCompile(`(\d+)\.png$`)

func sortByPageNumber(files []string) {
	sort.Slice(files, func(i, j int) bool {
		return pageNumOf(files[i]) < pageNumOf(files[j])
	})
}

func pageNumOf(path string) int {
	m := pageNumRe.FindStringSubmatch(filepath.Base(path))
	if len(m) == 2 {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}
