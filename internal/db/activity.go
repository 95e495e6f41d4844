package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createActivityLog = `
INSERT INTO activity_log (user_id, action, target_type, target_id, details)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, action, target_type, target_id, details, created_at
`

type CreateActivityLogParams struct {
	UserID     pgtype.UUID
	Action     ActivityAction
	TargetType NullActivityTargetType
	TargetID   pgtype.UUID
	Details    []byte
}

func (q *Queries) CreateActivityLog(ctx context.Context, arg CreateActivityLogParams) (ActivityLog, error) {
	row := q.db.QueryRow(ctx, createActivityLog,
		arg.UserID, arg.Action, arg.TargetType, arg.TargetID, arg.Details)
	var a ActivityLog
	err := row.Scan(&a.ID, &a.UserID, &a.Action, &a.TargetType, &a.TargetID, &a.Details, &a.CreatedAt)
	return a, err
}

const createFeedback = `
INSERT INTO feedback (user_id, content, rating)
VALUES ($1, $2, $3)
RETURNING id, user_id, content, rating, created_at
`

type CreateFeedbackParams struct {
	UserID  pgtype.UUID
	Content string
	Rating  pgtype.Int4
}

func (q *Queries) CreateFeedback(ctx context.Context, arg CreateFeedbackParams) (Feedback, error) {
	row := q.db.QueryRow(ctx, createFeedback, arg.UserID, arg.Content, arg.Rating)
	var f Feedback
	err := row.Scan(&f.ID, &f.UserID, &f.Content, &f.Rating, &f.CreatedAt)
	return f, err
}
