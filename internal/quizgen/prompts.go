package quizgen

import (
	"fmt"
	"strings"

	"quizforge/internal/docparse"
)

// Difficulty selects the cognitive register of generated questions.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyNormal Difficulty = "normal"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty validates a client-supplied difficulty. Empty input means
// normal.
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyNormal, DifficultyMedium, DifficultyHard:
		return d, nil
	case "":
		return DifficultyNormal, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q (want easy, normal, medium or hard)", s)
	}
}

var difficultyGuidance = map[Difficulty]string{
	DifficultyEasy:   "Ask for directly stated facts and definitions. Recall over analysis.",
	DifficultyNormal: "Mix factual recall with comprehension questions that require understanding the concepts.",
	DifficultyMedium: "Favour comprehension and application questions over bare recall.",
	DifficultyHard:   "Ask application and analysis questions: what would happen if, why does this mechanism work, how do these concepts relate.",
}

const promptTemplate = `You are generating a multiple-choice quiz from study material.

Create exactly %d multiple-choice questions from the material between the BEGIN MATERIAL and END MATERIAL markers. Follow these requirements exactly:

1. Base every question only on facts stated in the material.
2. %s
3. Each question must have exactly 4 answer options with exactly one correct answer.
4. Make incorrect options plausible. Use common misconceptions, never joke answers.
5. Never ask about document metadata, file names, page numbers or formatting.

Reply with ONLY a JSON array, no prose and no code fences, in this exact shape:
[
  {"question": "Question text?", "options": ["A", "B", "C", "D"], "correct": "B"}
]
The "correct" value must be copied verbatim from the options array.

If the material is unreadable or contains nothing worth testing, reply with exactly INVALID_CONTENT and nothing else.

BEGIN MATERIAL
%s
END MATERIAL`

// BuildPrompt renders the generation prompt for one chunk. The chunk is
// filtered for metadata paragraphs first so file plumbing never reaches the
// model as quiz material.
func BuildPrompt(chunk string, count int, difficulty Difficulty) string {
	if count < 1 {
		count = 1
	}
	guidance, ok := difficultyGuidance[difficulty]
	if !ok {
		guidance = difficultyGuidance[DifficultyNormal]
	}

	material := docparse.StripMetadataParagraphs(chunk)
	if material == "" {
		material = strings.TrimSpace(chunk)
	}

	return fmt.Sprintf(promptTemplate, count, guidance, material)
}
