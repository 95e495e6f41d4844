package models

import (
	"time"

	"github.com/google/uuid"
)

// Option is one answer choice as the API returns it.
type Option struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	IsCorrect bool      `json:"is_correct"`
}

// Question is one quiz question with its four options.
type Question struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Position int32     `json:"position"`
	Options  []Option  `json:"options"`
}

// File describes one stored source document of a quiz. URL is empty when
// object storage is not configured.
type File struct {
	ID       uuid.UUID `json:"id"`
	FileName string    `json:"file_name"`
	FileSize int64     `json:"file_size"`
	URL      string    `json:"url,omitempty"`
}

// QuizDetail is the full quiz representation returned by GET /api/quizzes/:id.
type QuizDetail struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description,omitempty"`
	Difficulty     string     `json:"difficulty"`
	Questions      []Question `json:"questions"`
	Files          []File     `json:"files,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	CreatorName    *string    `json:"creator_name,omitempty"`
	CreatorPicture *string    `json:"creator_picture,omitempty"`
}

// GenerateQuizResponse reports the outcome of a generation run. Achieved may
// be lower than Requested when some chunks failed; that is still a success.
type GenerateQuizResponse struct {
	QuizID    uuid.UUID `json:"quiz_id"`
	Title     string    `json:"title"`
	Requested int       `json:"requested"`
	Achieved  int       `json:"achieved"`
	Message   string    `json:"message"`
}

// ChapterPreview is one detected chapter offered for selective generation.
// Content stays server-side; the preview is enough to pick from.
type ChapterPreview struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	CharCount int    `json:"char_count"`
	Preview   string `json:"preview"`
}

// AttemptAnswer is one saved answer inside an attempt.
type AttemptAnswer struct {
	QuestionID       uuid.UUID `json:"question_id"`
	SelectedOptionID uuid.UUID `json:"selected_option_id"`
	IsCorrect        bool      `json:"is_correct"`
}

// AttemptDetail is the full state of one quiz attempt.
type AttemptDetail struct {
	ID        uuid.UUID       `json:"id"`
	QuizID    uuid.UUID       `json:"quiz_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Score     *int32          `json:"score,omitempty"`
	StartTime time.Time       `json:"start_time"`
	EndTime   *time.Time      `json:"end_time,omitempty"`
	Answers   []AttemptAnswer `json:"answers"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
