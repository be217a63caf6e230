package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sportbase/backend/internal/auth"
	"github.com/sportbase/backend/internal/model"
)

// PermissionRepo reads permission records by id.
type PermissionRepo struct{ DB *sql.DB }

func NewPermissionRepo(db *sql.DB) *PermissionRepo { return &PermissionRepo{DB: db} }

// FindByID fetches a permission by id.
func (r *PermissionRepo) FindByID(ctx context.Context, id string) (*model.Permission, error) {
	var p model.Permission
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name FROM permissions WHERE id=? LIMIT 1", id).
		Scan(&p.ID, &p.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
