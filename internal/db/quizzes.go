package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createQuiz = `
INSERT INTO quizzes (creator_id, title, description, difficulty, requested_questions)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, creator_id, title, description, difficulty, requested_questions, created_at, updated_at
`

type CreateQuizParams struct {
	CreatorID          pgtype.UUID
	Title              string
	Description        pgtype.Text
	Difficulty         string
	RequestedQuestions int32
}

func (q *Queries) CreateQuiz(ctx context.Context, arg CreateQuizParams) (Quiz, error) {
	row := q.db.QueryRow(ctx, createQuiz,
		arg.CreatorID, arg.Title, arg.Description, arg.Difficulty, arg.RequestedQuestions)
	var qz Quiz
	err := row.Scan(&qz.ID, &qz.CreatorID, &qz.Title, &qz.Description, &qz.Difficulty,
		&qz.RequestedQuestions, &qz.CreatedAt, &qz.UpdatedAt)
	return qz, err
}

const getQuizByID = `
SELECT q.id, q.creator_id, q.title, q.description, q.difficulty, q.requested_questions,
       q.created_at, q.updated_at, u.name AS creator_name, u.picture AS creator_picture
FROM quizzes q
LEFT JOIN users u ON u.id = q.creator_id
WHERE q.id = $1
`

type GetQuizByIDRow struct {
	ID                 uuid.UUID
	CreatorID          pgtype.UUID
	Title              string
	Description        pgtype.Text
	Difficulty         string
	RequestedQuestions int32
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CreatorName        pgtype.Text
	CreatorPicture     pgtype.Text
}

func (q *Queries) GetQuizByID(ctx context.Context, id uuid.UUID) (GetQuizByIDRow, error) {
	row := q.db.QueryRow(ctx, getQuizByID, id)
	var r GetQuizByIDRow
	err := row.Scan(&r.ID, &r.CreatorID, &r.Title, &r.Description, &r.Difficulty,
		&r.RequestedQuestions, &r.CreatedAt, &r.UpdatedAt, &r.CreatorName, &r.CreatorPicture)
	return r, err
}

const listQuizzesByCreator = `
SELECT q.id, q.title, q.description, q.difficulty, q.created_at, q.updated_at,
       COUNT(qs.id) AS question_count
FROM quizzes q
LEFT JOIN questions qs ON qs.quiz_id = q.id
WHERE q.creator_id = $1
GROUP BY q.id
ORDER BY q.created_at DESC
`

type ListQuizzesByCreatorRow struct {
	ID            uuid.UUID   `json:"id"`
	Title         string      `json:"title"`
	Description   pgtype.Text `json:"description"`
	Difficulty    string      `json:"difficulty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	QuestionCount int64       `json:"question_count"`
}

func (q *Queries) ListQuizzesByCreator(ctx context.Context, creatorID pgtype.UUID) ([]ListQuizzesByCreatorRow, error) {
	rows, err := q.db.Query(ctx, listQuizzesByCreator, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListQuizzesByCreatorRow
	for rows.Next() {
		var r ListQuizzesByCreatorRow
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.Difficulty,
			&r.CreatedAt, &r.UpdatedAt, &r.QuestionCount); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const deleteQuiz = `
DELETE FROM quizzes WHERE id = $1
`

func (q *Queries) DeleteQuiz(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteQuiz, id)
	return err
}

const createQuestion = `
INSERT INTO questions (quiz_id, question, position)
VALUES ($1, $2, $3)
RETURNING id, quiz_id, question, position, created_at
`

type CreateQuestionParams struct {
	QuizID   uuid.UUID
	Question string
	Position int32
}

func (q *Queries) CreateQuestion(ctx context.Context, arg CreateQuestionParams) (Question, error) {
	row := q.db.QueryRow(ctx, createQuestion, arg.QuizID, arg.Question, arg.Position)
	var qn Question
	err := row.Scan(&qn.ID, &qn.QuizID, &qn.Question, &qn.Position, &qn.CreatedAt)
	return qn, err
}

const listQuestionsByQuizID = `
SELECT id, quiz_id, question, position, created_at
FROM questions
WHERE quiz_id = $1
ORDER BY position, created_at
`

func (q *Queries) ListQuestionsByQuizID(ctx context.Context, quizID uuid.UUID) ([]Question, error) {
	rows, err := q.db.Query(ctx, listQuestionsByQuizID, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Question
	for rows.Next() {
		var qn Question
		if err := rows.Scan(&qn.ID, &qn.QuizID, &qn.Question, &qn.Position, &qn.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, qn)
	}
	return items, rows.Err()
}

const createOption = `
INSERT INTO options (question_id, body, is_correct)
VALUES ($1, $2, $3)
RETURNING id, question_id, body, is_correct, created_at
`

type CreateOptionParams struct {
	QuestionID uuid.UUID
	Body       string
	IsCorrect  bool
}

func (q *Queries) CreateOption(ctx context.Context, arg CreateOptionParams) (Option, error) {
	row := q.db.QueryRow(ctx, createOption, arg.QuestionID, arg.Body, arg.IsCorrect)
	var o Option
	err := row.Scan(&o.ID, &o.QuestionID, &o.Body, &o.IsCorrect, &o.CreatedAt)
	return o, err
}

const listOptionsByQuestionID = `
SELECT id, question_id, body, is_correct, created_at
FROM options
WHERE question_id = $1
ORDER BY created_at
`

func (q *Queries) ListOptionsByQuestionID(ctx context.Context, questionID uuid.UUID) ([]Option, error) {
	rows, err := q.db.Query(ctx, listOptionsByQuestionID, questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Option
	for rows.Next() {
		var o Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Body, &o.IsCorrect, &o.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const getOptionCorrectness = `
SELECT is_correct FROM options WHERE id = $1
`

func (q *Queries) GetOptionCorrectness(ctx context.Context, id uuid.UUID) (bool, error) {
	row := q.db.QueryRow(ctx, getOptionCorrectness, id)
	var isCorrect bool
	err := row.Scan(&isCorrect)
	return isCorrect, err
}

const createFile = `
INSERT INTO files (quiz_id, file_name, file_size, url)
VALUES ($1, $2, $3, $4)
RETURNING id, quiz_id, file_name, file_size, url, created_at
`

type CreateFileParams struct {
	QuizID   uuid.UUID
	FileName string
	FileSize int64
	Url      pgtype.Text
}

func (q *Queries) CreateFile(ctx context.Context, arg CreateFileParams) (File, error) {
	row := q.db.QueryRow(ctx, createFile, arg.QuizID, arg.FileName, arg.FileSize, arg.Url)
	var f File
	err := row.Scan(&f.ID, &f.QuizID, &f.FileName, &f.FileSize, &f.Url, &f.CreatedAt)
	return f, err
}

const listFilesByQuizID = `
SELECT id, quiz_id, file_name, file_size, url, created_at
FROM files
WHERE quiz_id = $1
ORDER BY created_at
`

func (q *Queries) ListFilesByQuizID(ctx context.Context, quizID uuid.UUID) ([]File, error) {
	rows, err := q.db.Query(ctx, listFilesByQuizID, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.QuizID, &f.FileName, &f.FileSize, &f.Url, &f.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
