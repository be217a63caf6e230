package auth

import (
	"context"
	"errors"
	"time"

	"github.com/sportbase/backend/internal/model"
)

// In-memory store fakes. They implement the store contracts over
// plain maps so the coordinator and resolver can be exercised
// without a database.

var errStoreDown = errors.New("connection refused")

type memUserStore struct {
	byID    map[string]*model.User
	byEmail map[string]*model.User
	fail    bool
}

func newMemUserStore(users ...*model.User) *memUserStore {
	s := &memUserStore{byID: map[string]*model.User{}, byEmail: map[string]*model.User{}}
	for _, u := range users {
		s.byID[u.ID] = u
		s.byEmail[u.Email] = u
	}
	return s
}

func (s *memUserStore) FindByID(_ context.Context, id string) (*model.User, error) {
	if s.fail {
		return nil, errStoreDown
	}
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if s.fail {
		return nil, errStoreDown
	}
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

type memRoleStore struct {
	roles map[string]*model.Role
	fail  bool
}

func (s *memRoleStore) FindByID(_ context.Context, id string) (*model.Role, error) {
	if s.fail {
		return nil, errStoreDown
	}
	if r, ok := s.roles[id]; ok {
		return r, nil
	}
	return nil, ErrNotFound
}

type memPermStore struct {
	perms map[string]*model.Permission
	fail  bool
}

func (s *memPermStore) FindByID(_ context.Context, id string) (*model.Permission, error) {
	if s.fail {
		return nil, errStoreDown
	}
	if p, ok := s.perms[id]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

type memTokenStore struct {
	byTokenID map[string]*model.RefreshToken
	fail      bool
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{byTokenID: map[string]*model.RefreshToken{}}
}

func (s *memTokenStore) Create(_ context.Context, t *model.RefreshToken) error {
	if s.fail {
		return errStoreDown
	}
	cp := *t
	s.byTokenID[t.TokenID] = &cp
	return nil
}

func (s *memTokenStore) FindByTokenID(_ context.Context, tokenID string) (*model.RefreshToken, error) {
	if s.fail {
		return nil, errStoreDown
	}
	if t, ok := s.byTokenID[tokenID]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (s *memTokenStore) Revoke(_ context.Context, id string, at time.Time) error {
	if s.fail {
		return errStoreDown
	}
	for _, t := range s.byTokenID {
		if t.ID == id && t.RevokedAt == nil {
			at := at
			t.RevokedAt = &at
		}
	}
	return nil
}

func (s *memTokenStore) RevokeAllForUser(_ context.Context, userID string, at time.Time) error {
	if s.fail {
		return errStoreDown
	}
	for _, t := range s.byTokenID {
		if t.UserID == userID && t.RevokedAt == nil && t.ExpiresAt.After(at) {
			at := at
			t.RevokedAt = &at
		}
	}
	return nil
}

// active counts non-revoked records for a user.
func (s *memTokenStore) active(userID string) int {
	n := 0
	for _, t := range s.byTokenID {
		if t.UserID == userID && t.RevokedAt == nil {
			n++
		}
	}
	return n
}
