package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createQuizAttempt = `
INSERT INTO quiz_attempts (quiz_id, user_id)
VALUES ($1, $2)
RETURNING id, quiz_id, user_id, score, start_time, end_time
`

type CreateQuizAttemptParams struct {
	QuizID uuid.UUID
	UserID uuid.UUID
}

func (q *Queries) CreateQuizAttempt(ctx context.Context, arg CreateQuizAttemptParams) (QuizAttempt, error) {
	row := q.db.QueryRow(ctx, createQuizAttempt, arg.QuizID, arg.UserID)
	var a QuizAttempt
	err := row.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.StartTime, &a.EndTime)
	return a, err
}

const getQuizAttempt = `
SELECT id, quiz_id, user_id, score, start_time, end_time
FROM quiz_attempts
WHERE id = $1
`

func (q *Queries) GetQuizAttempt(ctx context.Context, id uuid.UUID) (QuizAttempt, error) {
	row := q.db.QueryRow(ctx, getQuizAttempt, id)
	var a QuizAttempt
	err := row.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.StartTime, &a.EndTime)
	return a, err
}

const upsertAttemptAnswer = `
INSERT INTO attempt_answers (quiz_attempt_id, question_id, selected_option_id, is_correct)
VALUES ($1, $2, $3, $4)
ON CONFLICT (quiz_attempt_id, question_id)
DO UPDATE SET selected_option_id = EXCLUDED.selected_option_id,
              is_correct = EXCLUDED.is_correct,
              answered_at = now()
RETURNING id, quiz_attempt_id, question_id, selected_option_id, is_correct, answered_at
`

type UpsertAttemptAnswerParams struct {
	QuizAttemptID    uuid.UUID
	QuestionID       uuid.UUID
	SelectedOptionID pgtype.UUID
	IsCorrect        pgtype.Bool
}

func (q *Queries) UpsertAttemptAnswer(ctx context.Context, arg UpsertAttemptAnswerParams) (AttemptAnswer, error) {
	row := q.db.QueryRow(ctx, upsertAttemptAnswer,
		arg.QuizAttemptID, arg.QuestionID, arg.SelectedOptionID, arg.IsCorrect)
	var a AttemptAnswer
	err := row.Scan(&a.ID, &a.QuizAttemptID, &a.QuestionID, &a.SelectedOptionID, &a.IsCorrect, &a.AnsweredAt)
	return a, err
}

const listAttemptAnswersByAttempt = `
SELECT id, quiz_attempt_id, question_id, selected_option_id, is_correct, answered_at
FROM attempt_answers
WHERE quiz_attempt_id = $1
ORDER BY answered_at
`

func (q *Queries) ListAttemptAnswersByAttempt(ctx context.Context, quizAttemptID uuid.UUID) ([]AttemptAnswer, error) {
	rows, err := q.db.Query(ctx, listAttemptAnswersByAttempt, quizAttemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AttemptAnswer
	for rows.Next() {
		var a AttemptAnswer
		if err := rows.Scan(&a.ID, &a.QuizAttemptID, &a.QuestionID, &a.SelectedOptionID, &a.IsCorrect, &a.AnsweredAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const calculateQuizAttemptScore = `
SELECT COUNT(*) FROM attempt_answers
WHERE quiz_attempt_id = $1 AND is_correct = TRUE
`

func (q *Queries) CalculateQuizAttemptScore(ctx context.Context, quizAttemptID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, calculateQuizAttemptScore, quizAttemptID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const updateQuizAttemptScoreAndEndTime = `
UPDATE quiz_attempts
SET score = $2, end_time = $3
WHERE id = $1
RETURNING id, quiz_id, user_id, score, start_time, end_time
`

type UpdateQuizAttemptScoreAndEndTimeParams struct {
	ID      uuid.UUID
	Score   pgtype.Int4
	EndTime pgtype.Timestamptz
}

func (q *Queries) UpdateQuizAttemptScoreAndEndTime(ctx context.Context, arg UpdateQuizAttemptScoreAndEndTimeParams) (QuizAttempt, error) {
	row := q.db.QueryRow(ctx, updateQuizAttemptScoreAndEndTime, arg.ID, arg.Score, arg.EndTime)
	var a QuizAttempt
	err := row.Scan(&a.ID, &a.QuizID, &a.UserID, &a.Score, &a.StartTime, &a.EndTime)
	return a, err
}

const listUserAttemptsWithQuizName = `
SELECT a.id, a.quiz_id, q.title AS quiz_title, a.score, a.start_time, a.end_time
FROM quiz_attempts a
JOIN quizzes q ON q.id = a.quiz_id
WHERE a.user_id = $1
ORDER BY a.start_time DESC
`

type ListUserAttemptsWithQuizNameRow struct {
	ID        uuid.UUID          `json:"id"`
	QuizID    uuid.UUID          `json:"quiz_id"`
	QuizTitle string             `json:"quiz_title"`
	Score     pgtype.Int4        `json:"score"`
	StartTime time.Time          `json:"start_time"`
	EndTime   pgtype.Timestamptz `json:"end_time"`
}

func (q *Queries) ListUserAttemptsWithQuizName(ctx context.Context, userID uuid.UUID) ([]ListUserAttemptsWithQuizNameRow, error) {
	rows, err := q.db.Query(ctx, listUserAttemptsWithQuizName, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListUserAttemptsWithQuizNameRow
	for rows.Next() {
		var r ListUserAttemptsWithQuizNameRow
		if err := rows.Scan(&r.ID, &r.QuizID, &r.QuizTitle, &r.Score, &r.StartTime, &r.EndTime); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
