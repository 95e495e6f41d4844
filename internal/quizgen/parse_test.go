package quizgen

import (
	"errors"
	"strings"
	"testing"

	"quizforge/internal/docparse"
)

func TestParseQuestions_CleanArray(t *testing.T) {
	raw := `[
		{"question":"Which organelle is known as the powerhouse of the cell?","options":["Nucleus","Ribosome","Mitochondrion","Golgi body"],"correct":"Mitochondrion"},
		{"question":"What molecule carries genetic information?","options":["DNA","ATP","Glucose","Collagen"],"correct":"DNA"}
	]`

	questions, err := ParseQuestions(raw)
	if err != nil {
		t.Fatalf("ParseQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("len = %d, want 2", len(questions))
	}
	q := questions[0]
	if q.Question != "Which organelle is known as the powerhouse of the cell?" {
		t.Errorf("question = %q", q.Question)
	}
	if len(q.Options) != 4 {
		t.Errorf("options = %v", q.Options)
	}
	if q.CorrectAnswer != "Mitochondrion" {
		t.Errorf("correct = %q", q.CorrectAnswer)
	}
}

func TestParseQuestions_FencedJSON(t *testing.T) {
	raw := "```json\n" +
		`[{"question":"What molecule carries genetic information?","options":["DNA","ATP","Glucose","Collagen"],"correct":"DNA"}]` +
		"\n```"

	questions, err := ParseQuestions(raw)
	if err != nil {
		t.Fatalf("ParseQuestions: %v", err)
	}
	if len(questions) != 1 || questions[0].CorrectAnswer != "DNA" {
		t.Errorf("questions = %+v", questions)
	}
}

func TestParseQuestions_ProseWrapped(t *testing.T) {
	raw := `Here are the questions you asked for:
[{"question":"What molecule carries genetic information?","options":["DNA","ATP","Glucose","Collagen"],"correct":"DNA"}]
Let me know if you need more.`

	questions, err := ParseQuestions(raw)
	if err != nil {
		t.Fatalf("ParseQuestions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("len = %d, want 1", len(questions))
	}
}

func TestParseQuestions_SingleObject(t *testing.T) {
	raw := `{"question":"What molecule carries genetic information?","options":["DNA","ATP","Glucose","Collagen"],"correct":"DNA"}`

	questions, err := ParseQuestions(raw)
	if err != nil {
		t.Fatalf("ParseQuestions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("len = %d, want 1", len(questions))
	}
}

func TestParseQuestions_InvalidContentSentinel(t *testing.T) {
	for _, raw := range []string{
		"INVALID_CONTENT",
		"I looked at the material carefully. INVALID_CONTENT",
	} {
		_, err := ParseQuestions(raw)
		if !errors.Is(err, docparse.ErrInvalidContent) {
			t.Errorf("ParseQuestions(%q) = %v, want ErrInvalidContent", raw, err)
		}
	}
}

// WHAT: structurally broken entries are dropped while the rest survive.
// WHY: one malformed question must not cost the whole batch.
func TestParseQuestions_DropsMalformedEntries(t *testing.T) {
	raw := `[
		{"question":"Which organelle is known as the powerhouse of the cell?","options":["Nucleus","Ribosome","Mitochondrion","Golgi body"],"correct":"Mitochondrion"},
		{"question":"Only three options here?","options":["A","B","C"],"correct":"A"},
		{"question":"Correct answer absent from the options?","options":["Osmosis","Diffusion","Respiration","Digestion"],"correct":"Photosynthesis"},
		{"question":"","options":["A","B","C","D"],"correct":"A"}
	]`

	questions, err := ParseQuestions(raw)
	if err != nil {
		t.Fatalf("ParseQuestions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("len = %d, want 1 (only the well-formed entry)", len(questions))
	}
	if questions[0].CorrectAnswer != "Mitochondrion" {
		t.Errorf("wrong survivor: %+v", questions[0])
	}
}

func TestParseQuestions_DuplicateOptionsDropped(t *testing.T) {
	raw := `[{"question":"Which transport process moves water across a membrane?","options":["Osmosis","Diffusion","Diffusion","Active transport"],"correct":"Osmosis"}]`

	questions, err := ParseQuestions(raw)
	if err != nil {
		t.Fatalf("ParseQuestions: %v", err)
	}
	if len(questions) != 0 {
		t.Errorf("len = %d, want 0 (duplicate options)", len(questions))
	}
}

// WHAT: a batch dominated by metadata-flavoured questions is rejected whole.
// WHY: when the model quotes PDF plumbing back as questions, keeping the
// batch would serve users garbage with perfect JSON structure.
func TestParseQuestions_QualityGateRejectsMetadataBatch(t *testing.T) {
	raw := `[
		{"question":"What is the Producer value of this PDF?","options":["Adobe Distiller","Ghostscript","LibreOffice","Unknown"],"correct":"Adobe Distiller"},
		{"question":"Which Creator generated the PDF file?","options":["Word","Writer","Pages","Docs"],"correct":"Word"},
		{"question":"What CreationDate does the PDF carry?","options":["2019","2020","2021","2022"],"correct":"2020"},
		{"question":"Which organelle is known as the powerhouse of the cell?","options":["Nucleus","Ribosome","Mitochondrion","Golgi body"],"correct":"Mitochondrion"}
	]`

	_, err := ParseQuestions(raw)
	if !errors.Is(err, ErrQualityRejected) {
		t.Fatalf("want ErrQualityRejected, got %v", err)
	}
}

func TestParseQuestions_QualityGateRejectsDegenerateText(t *testing.T) {
	raw := `[
		{"question":"Why?","options":["A","B","C","D"],"correct":"A"},
		{"question":"How?","options":["E","F","G","H"],"correct":"E"}
	]`

	_, err := ParseQuestions(raw)
	if !errors.Is(err, ErrQualityRejected) {
		t.Fatalf("want ErrQualityRejected, got %v", err)
	}
}

func TestParseQuestions_NoJSON(t *testing.T) {
	_, err := ParseQuestions("Sorry, I cannot generate questions from this material.")
	if err == nil {
		t.Fatal("want error for a reply without JSON")
	}
	if errors.Is(err, ErrQualityRejected) || errors.Is(err, docparse.ErrInvalidContent) {
		t.Errorf("a missing payload is not a content verdict: %v", err)
	}
}

func TestParseQuestions_Empty(t *testing.T) {
	if _, err := ParseQuestions("   "); err == nil {
		t.Fatal("want error for an empty reply")
	}
}

func TestSliceJSONPayload(t *testing.T) {
	got := sliceJSONPayload(`noise [1,2] tail`)
	if got != "[1,2]" {
		t.Errorf("got %q", got)
	}
	if got := sliceJSONPayload("no brackets at all"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestParseQuestions_TrimsWhitespaceInFields(t *testing.T) {
	raw := `[{"question":"  What molecule carries genetic information?  ","options":[" DNA ","ATP","Glucose","Collagen"],"correct":"DNA"}]`

	questions, err := ParseQuestions(raw)
	if err != nil {
		t.Fatalf("ParseQuestions: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("len = %d, want 1", len(questions))
	}
	if questions[0].Question != "What molecule carries genetic information?" {
		t.Errorf("question not trimmed: %q", questions[0].Question)
	}
	if questions[0].Options[0] != "DNA" {
		t.Errorf("option not trimmed: %q", questions[0].Options[0])
	}
	if !strings.Contains(questions[0].CorrectAnswer, "DNA") {
		t.Errorf("correct = %q", questions[0].CorrectAnswer)
	}
}
