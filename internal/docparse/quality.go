package docparse

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Canonical heuristic thresholds for the content validators. The source
// material for these numbers is noisy real-world uploads: lecture notes,
// scanned handouts, exported slides. Tune here, nowhere else.
const (
	// MinTextLen is the floor below which extracted text is useless.
	MinTextLen = 100

	// metadataCleanTrigger: above this token ratio the aggressive cleaning
	// pass runs; metadataRejectCeiling: above this ratio after cleaning the
	// document is rejected as metadata, not content.
	metadataCleanTrigger  = 0.30
	metadataRejectCeiling = 0.20

	// Image-based detection: this many PDF structural markers combined with
	// fewer than minReadableSentences readable sentences means a scanned
	// document whose text layer is just file plumbing.
	structuralMarkerFloor = 3
	minReadableSentences  = 3
	readableSentenceLen   = 20

	// Gibberish detection.
	specialCharCeiling = 0.40
	nonPrintableRun    = 3
	repeatedCharRun    = 5

	// Educational-substance floor: one of these three must hold.
	substantialWordFloor = 50
	uniqueWordFloor      = 20
	realSentenceFloor    = 2

	// substantialWordLen: tokens strictly longer than this count as words.
	substantialWordLen = 3
)

// ContentFlags carries the validator's measurements, for diagnostics and the
// chapter-preview response.
type ContentFlags struct {
	MetadataRatio    float64 `json:"metadata_ratio"`
	SpecialCharRatio float64 `json:"special_char_ratio"`
	Sentences        int     `json:"sentences"`
	SubstantialWords int     `json:"substantial_words"`
	UniqueWords      int     `json:"unique_words"`
	CleanedMetadata  bool    `json:"cleaned_metadata"`
}

// ExtractedText is validated, possibly cleaned document text.
type ExtractedText struct {
	Content string
	Length  int
	Flags   ContentFlags
}

// metadataVocabulary are tokens that dominate PDF/Office plumbing rather
// than prose. Matched case-insensitively against whole tokens.
var metadataVocabulary = map[string]bool{
	"producer": true, "creator": true, "creationdate": true, "moddate": true,
	"pdf": true, "adobe": true, "acrobat": true, "distiller": true,
	"ghostscript": true, "pdftk": true, "itext": true, "xmp": true,
	"obj": true, "endobj": true, "stream": true, "endstream": true,
	"xref": true, "startxref": true, "trailer": true, "flatedecode": true,
	"fontdescriptor": true, "basefont": true, "mediabox": true,
	"cropbox": true, "encoding": true, "subtype": true, "xobject": true,
	"metadata": true, "docx": true, "microsoft": true, "powerpoint": true,
}

var (
	metadataLineRe = regexp.MustCompile(`(?im)^.*\b(producer|creator|creationdate|moddate|pdf version|generated by|created with|adobe|acrobat|distiller|ghostscript)\b.*$`)
	timestampRe    = regexp.MustCompile(`\bD:\d{8,14}[Zz+\-']?[\d':]*|\b\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2})?\b`)
	urlRe          = regexp.MustCompile(`https?://\S+|www\.\S+`)
)

// structuralMarkers are the PDF plumbing strings counted by the image-based
// heuristic.
var structuralMarkers = []string{
	"%PDF-", "/Producer", "/Creator", "/Type", "/Filter",
	"obj", "endobj", "stream", "endstream", "xref",
}

// Validate decides whether extracted text is usable educational content.
// It returns cleaned text with quality flags, or ErrInvalidContent with a
// reason. Checks run in a fixed order so cheap rejections short-circuit.
func Validate(text string) (*ExtractedText, error) {
	text = strings.TrimSpace(sanitizeUTF8(text))

	if len(text) < MinTextLen {
		return nil, fmt.Errorf("%w: text too short (%d chars, need %d)", ErrInvalidContent, len(text), MinTextLen)
	}

	flags := ContentFlags{}

	flags.MetadataRatio = metadataTokenRatio(text)
	if flags.MetadataRatio > metadataCleanTrigger {
		cleaned := stripMetadataLines(text)
		flags.CleanedMetadata = true
		ratio := metadataTokenRatio(cleaned)
		if ratio > metadataRejectCeiling || len(strings.TrimSpace(cleaned)) < MinTextLen {
			return nil, fmt.Errorf("%w: document is mostly file metadata, not readable content", ErrInvalidContent)
		}
		text = strings.TrimSpace(cleaned)
		flags.MetadataRatio = ratio
	}

	if markers := countStructuralMarkers(text); markers >= structuralMarkerFloor {
		if countReadableSentences(text) < minReadableSentences {
			return nil, fmt.Errorf("%w: document appears to be image-based (scanned); no readable text layer", ErrInvalidContent)
		}
	}

	flags.SpecialCharRatio = specialCharRatio(text)
	switch {
	case flags.SpecialCharRatio > specialCharCeiling:
		return nil, fmt.Errorf("%w: extracted text is gibberish (special characters)", ErrInvalidContent)
	case hasNonPrintableRun(text, nonPrintableRun):
		return nil, fmt.Errorf("%w: extracted text is gibberish (unprintable runs)", ErrInvalidContent)
	case hasRepeatedCharRun(text, repeatedCharRun):
		return nil, fmt.Errorf("%w: extracted text is gibberish (repeated characters)", ErrInvalidContent)
	}

	words, unique := substantialWordStats(text)
	flags.SubstantialWords = words
	flags.UniqueWords = unique
	flags.Sentences = countReadableSentences(text)
	if words < substantialWordFloor && unique < uniqueWordFloor && flags.Sentences < realSentenceFloor {
		return nil, fmt.Errorf("%w: not enough substantial content to generate questions from", ErrInvalidContent)
	}

	return &ExtractedText{Content: text, Length: len(text), Flags: flags}, nil
}

// metadataTokenRatio is the fraction of tokens found in metadataVocabulary.
func metadataTokenRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	hits := 0
	for _, f := range fields {
		tok := strings.ToLower(strings.Trim(f, "/<>()[]{}.,;:\"'"))
		if metadataVocabulary[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(fields))
}

// stripMetadataLines is the aggressive cleaning pass: drop lines that look
// like file plumbing and scrub timestamps and URLs from what remains.
func stripMetadataLines(text string) string {
	text = metadataLineRe.ReplaceAllString(text, "")
	text = timestampRe.ReplaceAllString(text, "")
	text = urlRe.ReplaceAllString(text, "")

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		// Lines that are mostly PDF object syntax carry no prose.
		if strings.HasPrefix(trimmed, "/") || strings.HasPrefix(trimmed, "<<") || strings.HasPrefix(trimmed, ">>") {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, "\n")
}

// StripMetadataParagraphs drops paragraphs dominated by metadata vocabulary.
// The prompt builder runs this over each chunk so file plumbing never
// reaches the model as quiz material.
func StripMetadataParagraphs(text string) string {
	paragraphs := strings.Split(text, "\n\n")
	var kept []string
	for _, par := range paragraphs {
		if strings.TrimSpace(par) == "" {
			continue
		}
		if metadataTokenRatio(par) > metadataCleanTrigger {
			continue
		}
		kept = append(kept, par)
	}
	return strings.TrimSpace(strings.Join(kept, "\n\n"))
}

// HasMetadataVocabulary reports whether any token of s is file plumbing
// rather than prose.
func HasMetadataVocabulary(s string) bool {
	for _, f := range strings.Fields(s) {
		tok := strings.ToLower(strings.Trim(f, "/<>()[]{}.,;:\"'"))
		if metadataVocabulary[tok] {
			return true
		}
	}
	return false
}

func countStructuralMarkers(text string) int {
	count := 0
	for _, m := range structuralMarkers {
		if strings.Contains(text, m) {
			count++
		}
	}
	return count
}

// countReadableSentences counts sentences long enough to carry meaning and
// not dominated by special characters.
func countReadableSentences(text string) int {
	count := 0
	for _, s := range splitSentences(text) {
		s = strings.TrimSpace(s)
		if len(s) < readableSentenceLen {
			continue
		}
		if specialCharRatio(s) > specialCharCeiling {
			continue
		}
		count++
	}
	return count
}

// splitSentences cuts on sentence-ending punctuation followed by space.
func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		cur.WriteRune(runes[i])
		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				sentences = append(sentences, cur.String())
				cur.Reset()
			}
		}
	}
	if cur.Len() > 0 {
		sentences = append(sentences, cur.String())
	}
	return sentences
}

// specialCharRatio is the fraction of runes that are neither letters, digits,
// whitespace nor common punctuation.
func specialCharRatio(text string) float64 {
	if text == "" {
		return 0
	}
	total, special := 0, 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		switch r {
		case '.', ',', ';', ':', '!', '?', '\'', '"', '-', '(', ')', '%', '&', '/', '+', '*', '=', '@', '$', '’', '“', '”', '–', '—':
			continue
		}
		special++
	}
	return float64(special) / float64(total)
}

func hasNonPrintableRun(text string, runLen int) bool {
	run := 0
	for _, r := range text {
		if isGarbageRune(r) || r == '[' || r == ']' || r == '{' || r == '}' {
			run++
			if run >= runLen {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func hasRepeatedCharRun(text string, runLen int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			prev, run = 0, 0
			continue
		}
		if r == prev {
			run++
			if run >= runLen {
				return true
			}
		} else {
			prev, run = r, 1
		}
	}
	return false
}

// substantialWordStats counts tokens longer than substantialWordLen and how
// many of them are distinct.
func substantialWordStats(text string) (total, unique int) {
	seen := make(map[string]bool)
	for _, f := range strings.Fields(text) {
		word := strings.ToLower(strings.Trim(f, ".,;:!?\"'()[]{}"))
		if utf8.RuneCountInString(word) <= substantialWordLen {
			continue
		}
		total++
		seen[word] = true
	}
	return total, len(seen)
}

// printableRatio is the share of runes that are printable text. Used by the
// per-strategy adequacy check.
func printableRatio(text string) float64 {
	if len(text) == 0 {
		return 1.0
	}
	total, printable := 0, 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	return float64(printable) / float64(total)
}

// isGarbageRune flags Private Use Area glyphs, the replacement character and
// non-whitespace control characters left behind by broken font encodings.
func isGarbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == 0xFFFD {
		return true
	}
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}

// sanitizeUTF8 drops invalid byte sequences and garbage runes, keeping
// layout whitespace.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) && !strings.ContainsRune(s, 0xFFFD) {
		clean := true
		for _, r := range s {
			if isGarbageRune(r) {
				clean = false
				break
			}
		}
		if clean {
			return s
		}
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r == utf8.RuneError || isGarbageRune(r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
