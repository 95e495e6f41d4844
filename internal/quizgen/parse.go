package quizgen

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"quizforge/internal/docparse"
)

// Batch quality gate thresholds. A sane question has text in a readable
// length band and no file-plumbing vocabulary; when fewer than
// batchSaneFloor of a batch qualifies, the model is echoing document
// metadata back and the whole batch is rejected.
const (
	minQuestionLen = 15
	maxQuestionLen = 250
	batchSaneFloor = 0.40
)

const invalidContentSentinel = "INVALID_CONTENT"

var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// rawQuestion is the wire shape the prompt asks the model for.
type rawQuestion struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  string   `json:"correct"`
}

// ParseQuestions turns a raw model reply into validated questions. The reply
// may be fenced, wrapped in prose, a bare array or a single object; anything
// JSON-shaped between the first bracket and the last is considered.
// Malformed entries are dropped. Returns docparse.ErrInvalidContent when the
// model answered with the unusable-material sentinel, ErrQualityRejected
// when the surviving batch fails the quality gate.
func ParseQuestions(raw string) ([]Question, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("empty model reply")
	}
	if strings.Contains(text, invalidContentSentinel) {
		return nil, fmt.Errorf("%w: model judged the material unusable", docparse.ErrInvalidContent)
	}

	if m := codeFenceRe.FindStringSubmatch(text); len(m) == 2 {
		text = m[1]
	}
	text = sliceJSONPayload(text)
	if text == "" {
		return nil, fmt.Errorf("no JSON payload in model reply")
	}

	var rawQs []rawQuestion
	if err := json.Unmarshal([]byte(text), &rawQs); err != nil {
		var single rawQuestion
		if err2 := json.Unmarshal([]byte(text), &single); err2 != nil {
			return nil, fmt.Errorf("model reply is not valid JSON: %w", err)
		}
		rawQs = []rawQuestion{single}
	}

	var questions []Question
	for _, rq := range rawQs {
		if q, ok := validateQuestion(rq); ok {
			questions = append(questions, q)
		}
	}

	if len(questions) > 0 {
		sane := 0
		for _, q := range questions {
			if saneQuestionText(q.Question) {
				sane++
			}
		}
		if float64(sane)/float64(len(questions)) < batchSaneFloor {
			return nil, fmt.Errorf("%w: only %d of %d questions look like real questions", ErrQualityRejected, sane, len(questions))
		}
	}
	return questions, nil
}

// sliceJSONPayload trims prose around the JSON: everything before the first
// bracket and after the last one goes.
func sliceJSONPayload(s string) string {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndexAny(s, "]}")
	if end < start {
		return ""
	}
	return s[start : end+1]
}

// validateQuestion enforces the question contract: non-empty text, exactly
// four distinct non-empty options, correct answer present among them.
func validateQuestion(rq rawQuestion) (Question, bool) {
	text := strings.TrimSpace(rq.Question)
	if text == "" || len(rq.Options) != 4 {
		return Question{}, false
	}

	options := make([]string, 0, 4)
	seen := make(map[string]bool, 4)
	for _, opt := range rq.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" || seen[opt] {
			return Question{}, false
		}
		seen[opt] = true
		options = append(options, opt)
	}

	correct := strings.TrimSpace(rq.Correct)
	if correct == "" || !seen[correct] {
		return Question{}, false
	}

	return Question{Question: text, Options: options, CorrectAnswer: correct}, true
}

func saneQuestionText(text string) bool {
	n := utf8.RuneCountInString(text)
	if n < minQuestionLen || n > maxQuestionLen {
		return false
	}
	return !docparse.HasMetadataVocabulary(text)
}
