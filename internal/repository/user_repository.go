package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/sportbase/backend/internal/auth"
	"github.com/sportbase/backend/internal/model"
)

// UserRepo reads user records plus their role and sport assignments.
// The security subsystem never writes users; mutation belongs to the
// admin use cases.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// FindByID fetches a user by id, including role and sport id lists.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.find(ctx,
		"SELECT id,email,name,password_hash,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id)
}

// FindByEmail fetches a user by normalized email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(ctx,
		"SELECT id,email,name,password_hash,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email)
}

func (r *UserRepo) find(ctx context.Context, query string, arg any) (*model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	if u.RoleIDs, err = r.ids(ctx, "SELECT role_id FROM user_roles WHERE user_id=?", u.ID); err != nil {
		return nil, err
	}
	if u.SportIDs, err = r.ids(ctx, "SELECT sport_id FROM user_sports WHERE user_id=?", u.ID); err != nil {
		return nil, err
	}
	return &u, nil
}

// ids collects one string column from a join table.
func (r *UserRepo) ids(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
