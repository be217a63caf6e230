package model

import "time"

// User represents an application user record as stored in the
// `users` table. The security subsystem treats users as read-only:
// they are created and mutated by the admin use cases, and only read
// here to verify credentials and resolve roles. Role and sport
// assignments live in the `user_roles` and `user_sports` join tables
// and are loaded into the slice fields by the repository.
//
// Fields:
//  ID           – primary key (uuid, char(36)).
//  Email        – unique email address.
//  Name         – display name embedded into access tokens.
//  PasswordHash – bcrypt hashed password.
//  IsActive     – whether the account is active.
//  RoleIDs      – ids of roles granted to the user (unordered).
//  SportIDs     – ids of sports the user is registered for.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           string    // users.id
	Email        string    // users.email
	Name         string    // users.name
	PasswordHash string    // users.password_hash
	IsActive     bool      // users.is_active
	RoleIDs      []string  // user_roles.role_id
	SportIDs     []string  // user_sports.sport_id
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Role represents a row in the `roles` table plus its permission
// grants from `role_permissions`. Read-only collaborator data for
// the permission resolver.
//
// Fields:
//  ID            – uuid of the role.
//  Name          – unique role name (e.g. "admin").
//  PermissionIDs – ids of permissions granted to the role.
type Role struct {
	ID            string   // roles.id
	Name          string   // roles.name
	PermissionIDs []string // role_permissions.permission_id
}

// Permission represents a row in the `permissions` table. Permission
// checks compare the Name field case-sensitively against the
// requested name.
//
// Fields:
//  ID   – uuid of the permission.
//  Name – unique permission name (e.g. "administrar_deportes").
type Permission struct {
	ID   string // permissions.id
	Name string // permissions.name
}
