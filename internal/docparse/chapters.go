package docparse

import (
	"fmt"
	"regexp"
	"strings"
)

// Chapter is one named span of the document, offered to the user for
// selective quiz generation.
type Chapter struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// minChapterContent: a heading whose span carries less than this much text
// is a false positive (page header, table of contents line).
const minChapterContent = 150

// headingFamily is one pattern family tried against the document. Families
// are ordered from most to least specific; the first one that produces a
// usable split wins, so a book held together by "Chapter N" headings is
// never accidentally split on its numbered subsections.
type headingFamily struct {
	name string
	re   *regexp.Regexp
}

var headingFamilies = []headingFamily{
	{"chapter", regexp.MustCompile(`(?im)^\s{0,3}(?:chapter|chapitre|kapitel)\s+(?:\d{1,3}|[IVXLC]{1,7})\b.*$`)},
	{"unit", regexp.MustCompile(`(?im)^\s{0,3}unit\s+\d{1,3}\b.*$`)},
	{"part", regexp.MustCompile(`(?im)^\s{0,3}part\s+(?:\d{1,3}|[IVXLC]{1,7})\b.*$`)},
	{"section", regexp.MustCompile(`(?im)^\s{0,3}section\s+\d{1,3}\b.*$`)},
	{"markdown", regexp.MustCompile(`(?m)^#{1,3}\s+\S.*$`)},
	{"numbered", regexp.MustCompile(`(?m)^\s{0,3}\d{1,2}(?:\.\d{1,2})+\.?\s+\p{L}.*$`)},
}

// SegmentChapters splits extracted text into named chapters. When no heading
// family matches, the text is quartered deterministically so the caller
// always gets full coverage and at least one chapter.
func SegmentChapters(text string) []Chapter {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	for _, family := range headingFamilies {
		if chapters := splitOnFamily(text, family); chapters != nil {
			return chapters
		}
	}
	return quarterText(text)
}

// splitOnFamily cuts the text at the family's heading lines. Returns nil
// when the family produces no usable chapters.
func splitOnFamily(text string, family headingFamily) []Chapter {
	locs := family.re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	var chapters []Chapter

	// Text before the first heading is front matter; keep it when it is
	// substantial, otherwise it belongs to no chapter.
	if lead := strings.TrimSpace(text[:locs[0][0]]); len(lead) >= minChapterContent {
		chapters = append(chapters, Chapter{Title: "Introduction", Content: lead})
	}

	usable := 0
	for i, loc := range locs {
		title := strings.TrimSpace(text[loc[0]:loc[1]])
		title = strings.TrimLeft(title, "# ")
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		content := strings.TrimSpace(text[loc[1]:end])
		if len(content) < minChapterContent {
			continue
		}
		usable++
		chapters = append(chapters, Chapter{Title: title, Content: content})
	}

	if usable == 0 {
		return nil
	}
	for i := range chapters {
		chapters[i].Index = i
	}
	return chapters
}

// quarterText falls back to four equal contiguous slices ("Part 1".."Part 4")
// covering the whole text. Short texts stay one chapter.
func quarterText(text string) []Chapter {
	runes := []rune(text)
	if len(runes) < 4*minChapterContent {
		return []Chapter{{Index: 0, Title: "Part 1", Content: text}}
	}

	// Slices must stay non-overlapping and cover the input exactly, so the
	// quarters are not trimmed.
	quarter := len(runes) / 4
	var chapters []Chapter
	for i := 0; i < 4; i++ {
		start := i * quarter
		end := start + quarter
		if i == 3 {
			end = len(runes)
		}
		chapters = append(chapters, Chapter{
			Index:   i,
			Title:   fmt.Sprintf("Part %d", i+1),
			Content: string(runes[start:end]),
		})
	}
	return chapters
}
