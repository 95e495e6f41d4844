package db

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ActivityAction mirrors the activity_action enum in schema.sql.
type ActivityAction string

const (
	ActivityActionLogin             ActivityAction = "login"
	ActivityActionLogout            ActivityAction = "logout"
	ActivityActionQuizCreate        ActivityAction = "quiz_create"
	ActivityActionQuizDelete        ActivityAction = "quiz_delete"
	ActivityActionQuizAttemptStart  ActivityAction = "quiz_attempt_start"
	ActivityActionQuizAttemptFinish ActivityAction = "quiz_attempt_finish"
	ActivityActionFeedbackCreate    ActivityAction = "feedback_create"
	ActivityActionError             ActivityAction = "error"
)

// ActivityTargetType mirrors the activity_target_type enum in schema.sql.
type ActivityTargetType string

const (
	ActivityTargetTypeUser        ActivityTargetType = "user"
	ActivityTargetTypeQuiz        ActivityTargetType = "quiz"
	ActivityTargetTypeQuizAttempt ActivityTargetType = "quiz_attempt"
	ActivityTargetTypeDocument    ActivityTargetType = "document"
	ActivityTargetTypeFeedback    ActivityTargetType = "feedback"
)

// NullActivityTargetType carries a nullable activity_target_type value.
type NullActivityTargetType struct {
	ActivityTargetType ActivityTargetType
	Valid              bool
}

func (n *NullActivityTargetType) Scan(value interface{}) error {
	if value == nil {
		n.ActivityTargetType, n.Valid = "", false
		return nil
	}
	n.Valid = true
	switch v := value.(type) {
	case string:
		n.ActivityTargetType = ActivityTargetType(v)
	case []byte:
		n.ActivityTargetType = ActivityTargetType(v)
	default:
		return fmt.Errorf("unsupported scan type for ActivityTargetType: %T", value)
	}
	return nil
}

func (n NullActivityTargetType) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return string(n.ActivityTargetType), nil
}

type User struct {
	ID        uuid.UUID
	Email     string
	Name      pgtype.Text
	GoogleID  pgtype.Text
	Picture   pgtype.Text
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Quiz struct {
	ID                 uuid.UUID
	CreatorID          pgtype.UUID
	Title              string
	Description        pgtype.Text
	Difficulty         string
	RequestedQuestions int32
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Question struct {
	ID        uuid.UUID
	QuizID    uuid.UUID
	Question  string
	Position  int32
	CreatedAt time.Time
}

type Option struct {
	ID         uuid.UUID
	QuestionID uuid.UUID
	Body       string
	IsCorrect  bool
	CreatedAt  time.Time
}

type File struct {
	ID        uuid.UUID
	QuizID    uuid.UUID
	FileName  string
	FileSize  int64
	Url       pgtype.Text
	CreatedAt time.Time
}

type QuizAttempt struct {
	ID        uuid.UUID
	QuizID    uuid.UUID
	UserID    uuid.UUID
	Score     pgtype.Int4
	StartTime time.Time
	EndTime   pgtype.Timestamptz
}

type AttemptAnswer struct {
	ID               uuid.UUID
	QuizAttemptID    uuid.UUID
	QuestionID       uuid.UUID
	SelectedOptionID pgtype.UUID
	IsCorrect        pgtype.Bool
	AnsweredAt       time.Time
}

type Feedback struct {
	ID        uuid.UUID
	UserID    pgtype.UUID
	Content   string
	Rating    pgtype.Int4
	CreatedAt time.Time
}

type ActivityLog struct {
	ID         uuid.UUID
	UserID     pgtype.UUID
	Action     ActivityAction
	TargetType NullActivityTargetType
	TargetID   pgtype.UUID
	Details    []byte
	CreatedAt  time.Time
}
