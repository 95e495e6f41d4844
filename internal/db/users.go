package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getUserByEmail = `
SELECT id, email, name, google_id, picture, created_at, updated_at
FROM users
WHERE email = $1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.GoogleID, &u.Picture, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const createUser = `
INSERT INTO users (email, name, google_id, picture)
VALUES ($1, $2, $3, $4)
RETURNING id, email, name, google_id, picture, created_at, updated_at
`

type CreateUserParams struct {
	Email    string
	Name     pgtype.Text
	GoogleID pgtype.Text
	Picture  pgtype.Text
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.Email, arg.Name, arg.GoogleID, arg.Picture)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.GoogleID, &u.Picture, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
