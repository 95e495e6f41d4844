package quizgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"quizforge/internal/docparse"
)

type stubProvider struct {
	calls        int
	prompts      []string
	completeFunc func(ctx context.Context, prompt string) (string, error)
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, prompt)
	return s.completeFunc(ctx, prompt)
}

// questionsJSON builds a provider reply carrying n well-formed questions.
func questionsJSON(n int) string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf(
			`{"question":"Which stage of the cell cycle is described in passage %d?","options":["Prophase","Metaphase","Anaphase","Telophase"],"correct":"Metaphase"}`,
			i+1))
	}
	return "[" + strings.Join(items, ",") + "]"
}

// studyText repeats a plain sentence; long enough inputs split into several
// chunks.
func studyText(sentences int) string {
	return strings.TrimSpace(strings.Repeat("The cell cycle advances through interphase before mitosis begins. ", sentences))
}

func TestGenerate_SingleChunk(t *testing.T) {
	stub := &stubProvider{completeFunc: func(context.Context, string) (string, error) {
		return questionsJSON(3), nil
	}}
	g := New(Config{Provider: stub})

	res, err := g.Generate(context.Background(), Request{
		Text:         studyText(8),
		NumQuestions: 3,
		Difficulty:   DifficultyNormal,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Achieved != 3 || res.Requested != 3 || len(res.Questions) != 3 {
		t.Fatalf("result = %+v", res)
	}
	if stub.calls != 1 {
		t.Errorf("provider calls = %d, want 1", stub.calls)
	}
	if !strings.Contains(stub.prompts[0], "Create exactly 3 multiple-choice") {
		t.Errorf("per-chunk count missing from prompt")
	}
	for _, q := range res.Questions {
		if q.ID == "" {
			t.Error("question without an id")
		}
		if len(q.Options) != 4 {
			t.Errorf("options = %v", q.Options)
		}
	}
}

func TestGenerate_TruncatesToRequested(t *testing.T) {
	stub := &stubProvider{completeFunc: func(context.Context, string) (string, error) {
		return questionsJSON(4), nil
	}}
	g := New(Config{Provider: stub})

	res, err := g.Generate(context.Background(), Request{Text: studyText(8), NumQuestions: 2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Achieved != 2 || len(res.Questions) != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestGenerate_StopsEarlyOnceSatisfied(t *testing.T) {
	stub := &stubProvider{completeFunc: func(context.Context, string) (string, error) {
		return questionsJSON(1), nil
	}}
	g := New(Config{Provider: stub})

	// Several chunks, but one question per chunk satisfies the request after
	// two of them.
	res, err := g.Generate(context.Background(), Request{Text: studyText(70), NumQuestions: 2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Achieved != 2 {
		t.Fatalf("achieved = %d, want 2", res.Achieved)
	}
	if stub.calls != 2 {
		t.Errorf("provider calls = %d, want 2 (loop should stop once satisfied)", stub.calls)
	}
}

// WHAT: same text and same scripted replies must yield the same questions
// in the same order on every run.
func TestGenerate_DeterministicOrdering(t *testing.T) {
	run := func() []string {
		stub := &stubProvider{}
		stub.completeFunc = func(context.Context, string) (string, error) {
			return fmt.Sprintf(
				`[{"question":"Which process does passage %d describe in the text?","options":["Mitosis","Meiosis","Binary fission","Budding"],"correct":"Mitosis"}]`,
				stub.calls), nil
		}
		g := New(Config{Provider: stub})

		res, err := g.Generate(context.Background(), Request{Text: studyText(70), NumQuestions: 3})
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		texts := make([]string, 0, len(res.Questions))
		for _, q := range res.Questions {
			texts = append(texts, q.Question)
		}
		return texts
	}

	first, second := run(), run()
	if len(first) != 3 {
		t.Fatalf("questions = %d, want 3", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("ordering diverged at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

// WHAT: repeated provider failures abort the loop, but what accumulated
// before them is still returned as success.
// WHY: a rate-limited tail must not throw away questions already paid for.
func TestGenerate_PartialResultOnPersistentFailures(t *testing.T) {
	stub := &stubProvider{}
	stub.completeFunc = func(context.Context, string) (string, error) {
		if stub.calls == 1 {
			return questionsJSON(1), nil
		}
		return "", fmt.Errorf("simulated rate limit")
	}
	g := New(Config{Provider: stub})

	res, err := g.Generate(context.Background(), Request{Text: studyText(170), NumQuestions: 10})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Achieved != 1 {
		t.Fatalf("achieved = %d, want 1", res.Achieved)
	}
	if res.Requested != 10 {
		t.Errorf("requested = %d", res.Requested)
	}
	if stub.calls != 6 {
		t.Errorf("provider calls = %d, want 6 (success + failure ceiling)", stub.calls)
	}
}

func TestGenerate_AbortsAfterConsecutiveFailures(t *testing.T) {
	stub := &stubProvider{completeFunc: func(context.Context, string) (string, error) {
		return "", fmt.Errorf("simulated rate limit")
	}}
	g := New(Config{Provider: stub})

	_, err := g.Generate(context.Background(), Request{Text: studyText(170), NumQuestions: 5})
	if !errors.Is(err, ErrGenerationFailure) {
		t.Fatalf("want ErrGenerationFailure, got %v", err)
	}
	if stub.calls != 5 {
		t.Errorf("provider calls = %d, want 5 (the failure ceiling)", stub.calls)
	}
}

func TestGenerate_InvalidContentIsFatal(t *testing.T) {
	stub := &stubProvider{completeFunc: func(context.Context, string) (string, error) {
		return "INVALID_CONTENT", nil
	}}
	g := New(Config{Provider: stub})

	_, err := g.Generate(context.Background(), Request{Text: studyText(70), NumQuestions: 5})
	if !errors.Is(err, docparse.ErrInvalidContent) {
		t.Fatalf("want ErrInvalidContent, got %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("provider calls = %d, content verdicts must abort immediately", stub.calls)
	}
}

func TestGenerate_QualityRejectedIsFatal(t *testing.T) {
	stub := &stubProvider{completeFunc: func(context.Context, string) (string, error) {
		return `[{"question":"What is the Producer value of this PDF?","options":["Adobe Distiller","Ghostscript","LibreOffice","Unknown"],"correct":"Adobe Distiller"}]`, nil
	}}
	g := New(Config{Provider: stub})

	_, err := g.Generate(context.Background(), Request{Text: studyText(70), NumQuestions: 5})
	if !errors.Is(err, ErrQualityRejected) {
		t.Fatalf("want ErrQualityRejected, got %v", err)
	}
	if stub.calls != 1 {
		t.Errorf("provider calls = %d, quality verdicts must abort immediately", stub.calls)
	}
}

func TestGenerate_RejectsBadRequest(t *testing.T) {
	stub := &stubProvider{completeFunc: func(context.Context, string) (string, error) {
		t.Fatal("provider must not be called")
		return "", nil
	}}
	g := New(Config{Provider: stub})

	if _, err := g.Generate(context.Background(), Request{Text: studyText(8), NumQuestions: 0}); err == nil {
		t.Fatal("want error for zero questions")
	}
	if _, err := g.Generate(context.Background(), Request{Text: "", NumQuestions: 3}); !errors.Is(err, ErrGenerationFailure) {
		t.Fatalf("want ErrGenerationFailure for empty text, got %v", err)
	}
}

func TestGenerate_ContextCancellation(t *testing.T) {
	stub := &stubProvider{completeFunc: func(context.Context, string) (string, error) {
		return questionsJSON(1), nil
	}}
	g := New(Config{Provider: stub})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Generate(ctx, Request{Text: studyText(8), NumQuestions: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestQuestionsPerChunk(t *testing.T) {
	tests := []struct {
		requested, chunks, want int
	}{
		{10, 3, 4},
		{10, 1, 10},
		{1, 5, 1},
		{5, 5, 1},
		{7, 2, 4},
	}
	for _, tt := range tests {
		if got := questionsPerChunk(tt.requested, tt.chunks); got != tt.want {
			t.Errorf("questionsPerChunk(%d, %d) = %d, want %d", tt.requested, tt.chunks, got, tt.want)
		}
	}
}
