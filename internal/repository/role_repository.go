package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sportbase/backend/internal/auth"
	"github.com/sportbase/backend/internal/model"
)

// RoleRepo reads role records and their permission grants. Read-only
// collaborator data for the permission resolver.
type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

// FindByID fetches a role by id together with its permission ids.
func (r *RoleRepo) FindByID(ctx context.Context, id string) (*model.Role, error) {
	var role model.Role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name FROM roles WHERE id=? LIMIT 1", id).
		Scan(&role.ID, &role.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT permission_id FROM role_permissions WHERE role_id=?", role.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, err
		}
		role.PermissionIDs = append(role.PermissionIDs, pid)
	}
	return &role, rows.Err()
}
