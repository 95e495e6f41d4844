package quizgen

import (
	"strings"
	"testing"
)

func TestBuildPrompt(t *testing.T) {
	chunk := "The mitochondrion converts nutrients into ATP through cellular respiration."
	prompt := BuildPrompt(chunk, 5, DifficultyHard)

	for _, want := range []string{
		"Create exactly 5 multiple-choice questions",
		"exactly 4 answer options",
		"INVALID_CONTENT",
		"BEGIN MATERIAL",
		"END MATERIAL",
		chunk,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.Contains(prompt, "analysis") {
		t.Error("hard difficulty should ask for analysis questions")
	}
}

func TestBuildPrompt_FiltersMetadataParagraphs(t *testing.T) {
	chunk := "Producer Adobe Acrobat Distiller PDF metadata\n\n" +
		"Enzymes lower the activation energy required for biochemical reactions."
	prompt := BuildPrompt(chunk, 3, DifficultyNormal)

	if strings.Contains(prompt, "Distiller") {
		t.Error("metadata paragraph reached the prompt")
	}
	if !strings.Contains(prompt, "activation energy") {
		t.Error("prose paragraph missing from the prompt")
	}
}

func TestBuildPrompt_AllMetadataKeepsOriginal(t *testing.T) {
	// When filtering would empty the material, the original chunk is kept;
	// an empty prompt would only produce hallucinated questions.
	chunk := "Producer Adobe Acrobat Distiller PDF"
	prompt := BuildPrompt(chunk, 2, DifficultyEasy)

	if !strings.Contains(prompt, "Adobe Acrobat") {
		t.Error("material section is empty")
	}
}

func TestBuildPrompt_ClampsCount(t *testing.T) {
	prompt := BuildPrompt("Some study material about plant cells.", 0, DifficultyNormal)
	if !strings.Contains(prompt, "Create exactly 1 multiple-choice") {
		t.Error("count not clamped to 1")
	}
}

func TestBuildPrompt_UnknownDifficultyFallsBack(t *testing.T) {
	prompt := BuildPrompt("Some study material about plant cells.", 2, Difficulty("speedrun"))
	if !strings.Contains(prompt, "factual recall") {
		t.Error("unknown difficulty should use the normal guidance")
	}
}

func TestParseDifficulty(t *testing.T) {
	tests := []struct {
		in      string
		want    Difficulty
		wantErr bool
	}{
		{"easy", DifficultyEasy, false},
		{"normal", DifficultyNormal, false},
		{"medium", DifficultyMedium, false},
		{"HARD", DifficultyHard, false},
		{" hard ", DifficultyHard, false},
		{"", DifficultyNormal, false},
		{"extreme", "", true},
	}
	for _, tt := range tests {
		got, err := ParseDifficulty(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDifficulty(%q): want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDifficulty(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDifficulty(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
