package docparse

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

func tsvRow(cols ...string) string {
	return strings.Join(cols, "\t")
}

func TestParseTesseractTSV(t *testing.T) {
	tsv := strings.Join([]string{
		tsvRow("level", "page_num", "block_num", "par_num", "line_num", "word_num", "left", "top", "width", "height", "conf", "text"),
		tsvRow("1", "1", "0", "0", "0", "0", "0", "0", "2550", "3300", "-1", ""),
		tsvRow("5", "1", "1", "1", "1", "1", "120", "140", "260", "64", "96.5", "Cell"),
		tsvRow("5", "1", "1", "1", "1", "2", "400", "140", "380", "64", "93.5", "biology"),
		tsvRow("5", "1", "1", "1", "2", "1", "120", "240", "310", "64", "90.0", "notes"),
		tsvRow("5", "1", "1", "1", "2", "2", "450", "240", "200", "64", "-1", "|"),
		tsvRow("5", "1", "1", "1", "2", "3", "670", "240", "150", "64", "88.0", "  "),
	}, "\n")

	res := parseTesseractTSV(tsv)
	if res.text != "Cell biology\nnotes" {
		t.Errorf("text = %q, want %q", res.text, "Cell biology\nnotes")
	}
	if res.words != 3 {
		t.Errorf("words = %d, want 3", res.words)
	}
	want := 280.0 / 3.0
	if math.Abs(res.meanConf-want) > 1e-9 {
		t.Errorf("meanConf = %v, want %v", res.meanConf, want)
	}
}

func TestParseTesseractTSV_Empty(t *testing.T) {
	res := parseTesseractTSV("")
	if res.text != "" || res.words != 0 || res.meanConf != 0 {
		t.Errorf("empty TSV should yield a zero result, got %+v", res)
	}
}

func TestSortByPageNumber(t *testing.T) {
	files := []string{
		"/tmp/ocr/page-10.png",
		"/tmp/ocr/page-2.png",
		"/tmp/ocr/page-1.png",
	}
	sortByPageNumber(files)
	want := []string{
		"/tmp/ocr/page-1.png",
		"/tmp/ocr/page-2.png",
		"/tmp/ocr/page-10.png",
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestExtract_ImageWithOCRDisabled(t *testing.T) {
	data := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, []byte("fakepixels")...)

	p := newTestParser()
	_, err := p.Extract(context.Background(), SourceDocument{Data: data, Filename: "scan.png"})
	if !errors.Is(err, ErrParseFailure) {
		t.Fatalf("want ErrParseFailure, got %v", err)
	}
}
