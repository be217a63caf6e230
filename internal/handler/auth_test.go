package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/sportbase/backend/internal/auth"
	"github.com/sportbase/backend/internal/middleware"
	"github.com/sportbase/backend/internal/model"
	"github.com/sportbase/backend/internal/utils"
)

// In-memory stores backing the end-to-end handler tests. They mirror
// the SQL repositories closely enough that the coordinator cannot
// tell the difference.

type memUsers struct {
	byID    map[string]*model.User
	byEmail map[string]*model.User
}

func (s *memUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := s.byID[id]; ok {
		return u, nil
	}
	return nil, auth.ErrNotFound
}

func (s *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, auth.ErrNotFound
}

type memRoles struct{ byID map[string]*model.Role }

func (s *memRoles) FindByID(_ context.Context, id string) (*model.Role, error) {
	if r, ok := s.byID[id]; ok {
		return r, nil
	}
	return nil, auth.ErrNotFound
}

type memPerms struct{ byID map[string]*model.Permission }

func (s *memPerms) FindByID(_ context.Context, id string) (*model.Permission, error) {
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, auth.ErrNotFound
}

type memTokens struct {
	mu   sync.Mutex
	rows map[string]*model.RefreshToken // keyed by TokenID
}

func newMemTokens() *memTokens {
	return &memTokens{rows: make(map[string]*model.RefreshToken)}
}

func (s *memTokens) Create(_ context.Context, t *model.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.rows[t.TokenID] = &cp
	return nil
}

func (s *memTokens) FindByTokenID(_ context.Context, tokenID string) (*model.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rows[tokenID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, auth.ErrNotFound
}

func (s *memTokens) Revoke(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ID == id && r.RevokedAt == nil {
			t := at
			r.RevokedAt = &t
		}
	}
	return nil
}

func (s *memTokens) RevokeAllForUser(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.UserID == userID && r.RevokedAt == nil && r.ExpiresAt.After(at) {
			t := at
			r.RevokedAt = &t
		}
	}
	return nil
}

func (s *memTokens) activeCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := time.Now()
	for _, r := range s.rows {
		if r.UserID == userID && r.Active(now) {
			n++
		}
	}
	return n
}

// testApp wires the real coordinator, checker and routes on top of
// the in-memory stores. Audit is off so no broker is touched.
func testApp(t *testing.T) (*echo.Echo, *memTokens) {
	t.Helper()

	hash, err := utils.HashPassword("s3cret-pass", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	users := &memUsers{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]*model.User),
	}
	u1 := &model.User{
		ID:           "u1",
		Email:        "ana@example.com",
		Name:         "Ana",
		PasswordHash: hash,
		IsActive:     true,
		RoleIDs:      []string{"r1"},
		SportIDs:     []string{"s1"},
	}
	inactive := &model.User{
		ID:           "u2",
		Email:        "off@example.com",
		PasswordHash: hash,
		IsActive:     false,
	}
	admin := &model.User{
		ID:           "u3",
		Email:        "root@example.com",
		Name:         "Root",
		PasswordHash: hash,
		IsActive:     true,
		RoleIDs:      []string{"r2"},
	}
	for _, u := range []*model.User{u1, inactive, admin} {
		users.byID[u.ID] = u
		users.byEmail[u.Email] = u
	}
	roles := &memRoles{byID: map[string]*model.Role{
		"r1": {ID: "r1", Name: "organizador", PermissionIDs: []string{"p1"}},
		"r2": {ID: "r2", Name: "admin", PermissionIDs: []string{"p2"}},
	}}
	perms := &memPerms{byID: map[string]*model.Permission{
		"p1": {ID: "p1", Name: "crear_torneos"},
		"p2": {ID: "p2", Name: PermManageUsers},
	}}
	tokens := newMemTokens()

	issuer, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:   []byte("0123456789abcdef0123456789abcdef"),
		Issuer:   "SportyBackend",
		Audience: "SportyBackendUsers",
	})
	if err != nil {
		t.Fatal(err)
	}
	coord := auth.NewRefreshCoordinator(tokens, users, issuer, auth.RefreshConfig{
		BcryptCost: bcrypt.MinCost,
	})
	checker := auth.NewPermissionChecker(users, roles, perms)

	a := &AuthHandler{Users: users, Coordinator: coord, Checker: checker}

	// Routes are registered inline, mirroring the production route
	// table; the router package cannot be imported from here without
	// creating an import cycle.
	e := echo.New()
	e.GET("/healthz", Health)
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.POST("/logout-all", a.LogoutAll, middleware.JWTAuth(issuer))
	protected := e.Group("/v1")
	protected.Use(middleware.JWTAuth(issuer))
	protected.GET("/me", a.Me)
	protected.GET("/me/permissions/:name", a.MyPermission)
	adminGroup := protected.Group("/admin", middleware.RequirePermission(checker, PermManageUsers))
	adminGroup.POST("/users/:id/logout", a.AdminLogoutUser)
	return e, tokens
}

func postJSON(e *echo.Echo, path string, body any, bearer string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo) authResp {
	t.Helper()
	return loginAs(t, e, "ana@example.com")
}

func loginAs(t *testing.T, e *echo.Echo, email string) authResp {
	t.Helper()
	rec := postJSON(e, "/v1/auth/login", map[string]string{
		"email": email, "password": "s3cret-pass",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body.String())
	}
	var resp authResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestLoginReturnsPair(t *testing.T) {
	e, _ := testApp(t)
	resp := login(t, e)

	if resp.User.ID != "u1" || resp.User.Email != "ana@example.com" {
		t.Fatalf("user part: %+v", resp.User)
	}
	if resp.Access.Token == "" || resp.Refresh.Token == "" {
		t.Fatal("expected both tokens in the response")
	}
	if !resp.Refresh.Expires.After(resp.Access.Expires) {
		t.Fatal("refresh token should outlive the access token")
	}
}

func TestLoginRejections(t *testing.T) {
	e, _ := testApp(t)

	cases := []struct {
		name  string
		body  map[string]string
		want  int
		error string
	}{
		{"unknown email", map[string]string{"email": "ghost@example.com", "password": "s3cret-pass"}, http.StatusUnauthorized, "invalid credentials"},
		{"wrong password", map[string]string{"email": "ana@example.com", "password": "nope"}, http.StatusUnauthorized, "invalid credentials"},
		{"inactive account", map[string]string{"email": "off@example.com", "password": "s3cret-pass"}, http.StatusUnauthorized, "invalid credentials"},
		{"missing password", map[string]string{"email": "ana@example.com"}, http.StatusBadRequest, "email/password required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(e, "/v1/auth/login", tc.body, "")
			if rec.Code != tc.want {
				t.Fatalf("status %d, want %d", rec.Code, tc.want)
			}
			var body map[string]string
			_ = json.Unmarshal(rec.Body.Bytes(), &body)
			if body["error"] != tc.error {
				t.Fatalf("error %q, want %q", body["error"], tc.error)
			}
		})
	}
}

// TestRefreshRotation walks the canonical session: login, rotate the
// refresh token once, then prove the consumed token is dead while its
// successor still works.
func TestRefreshRotation(t *testing.T) {
	e, _ := testApp(t)
	first := login(t, e)
	r1 := first.Refresh.Token

	rec := postJSON(e, "/v1/auth/refresh", map[string]string{"refresh_token": r1}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("first rotation: %d %s", rec.Code, rec.Body.String())
	}
	var second struct {
		Access  tokenPart `json:"access"`
		Refresh tokenPart `json:"refresh"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &second); err != nil {
		t.Fatal(err)
	}
	r2 := second.Refresh.Token
	if r2 == "" || r2 == r1 {
		t.Fatal("rotation must mint a distinct refresh token")
	}
	if second.Access.Token == first.Access.Token {
		t.Fatal("rotation must mint a fresh access token")
	}

	// Replaying the consumed token is a hard 401.
	if rec := postJSON(e, "/v1/auth/refresh", map[string]string{"refresh_token": r1}, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("replay of rotated token: %d, want 401", rec.Code)
	}
	// The successor is unaffected by the failed replay.
	if rec := postJSON(e, "/v1/auth/refresh", map[string]string{"refresh_token": r2}, ""); rec.Code != http.StatusOK {
		t.Fatalf("successor token: %d %s", rec.Code, rec.Body.String())
	}
}

func TestLogoutRevokesPresentedToken(t *testing.T) {
	e, tokens := testApp(t)
	resp := login(t, e)

	rec := postJSON(e, "/v1/auth/logout", map[string]string{"refresh_token": resp.Refresh.Token}, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body.String())
	}
	if rec := postJSON(e, "/v1/auth/refresh", map[string]string{"refresh_token": resp.Refresh.Token}, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: %d, want 401", rec.Code)
	}
	// Logout of an already-revoked token stays a no-op.
	if rec := postJSON(e, "/v1/auth/logout", map[string]string{"refresh_token": resp.Refresh.Token}, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("repeated logout: %d, want 204", rec.Code)
	}
	if n := tokens.activeCount("u1"); n != 0 {
		t.Fatalf("active tokens after logout: %d", n)
	}
}

func TestLogoutAllTerminatesEverySession(t *testing.T) {
	e, tokens := testApp(t)
	s1 := login(t, e)
	s2 := login(t, e)
	if n := tokens.activeCount("u1"); n != 2 {
		t.Fatalf("active sessions: %d, want 2", n)
	}

	// Requires a validated access token; a bare call is rejected.
	if rec := postJSON(e, "/v1/auth/logout-all", nil, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("logout-all without bearer: %d, want 401", rec.Code)
	}

	rec := postJSON(e, "/v1/auth/logout-all", nil, s1.Access.Token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout-all: %d %s", rec.Code, rec.Body.String())
	}
	if n := tokens.activeCount("u1"); n != 0 {
		t.Fatalf("active sessions after logout-all: %d", n)
	}
	for _, refresh := range []string{s1.Refresh.Token, s2.Refresh.Token} {
		if rec := postJSON(e, "/v1/auth/refresh", map[string]string{"refresh_token": refresh}, ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("refresh after logout-all: %d, want 401", rec.Code)
		}
	}
}

func TestAdminLogoutUserRequiresPermission(t *testing.T) {
	e, tokens := testApp(t)
	victim := login(t, e)

	// A user without the administration permission is turned away.
	rec := postJSON(e, "/v1/admin/users/u3/logout", nil, victim.Access.Token)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("admin route without permission: %d, want 403", rec.Code)
	}
	if n := tokens.activeCount("u3"); n != 0 {
		t.Fatalf("denied request must not revoke anything, active = %d", n)
	}

	admin := loginAs(t, e, "root@example.com")
	rec = postJSON(e, "/v1/admin/users/u1/logout", nil, admin.Access.Token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin logout: %d %s", rec.Code, rec.Body.String())
	}
	if n := tokens.activeCount("u1"); n != 0 {
		t.Fatalf("active tokens after forced logout: %d", n)
	}
	if rec := postJSON(e, "/v1/auth/refresh", map[string]string{"refresh_token": victim.Refresh.Token}, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after forced logout: %d, want 401", rec.Code)
	}

	// The admin's own session is untouched.
	if n := tokens.activeCount("u3"); n != 1 {
		t.Fatalf("admin sessions: %d, want 1", n)
	}
}

func TestMeAndPermissionLookup(t *testing.T) {
	e, _ := testApp(t)
	resp := login(t, e)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Access.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}
	var me struct {
		UserID string   `json:"user_id"`
		Roles  []string `json:"roles"`
		Sports []string `json:"sports"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatal(err)
	}
	if me.UserID != "u1" || len(me.Roles) != 1 || len(me.Sports) != 1 {
		t.Fatalf("me payload: %+v", me)
	}

	for name, want := range map[string]bool{"crear_torneos": true, "borrar_todo": false} {
		req := httptest.NewRequest(http.MethodGet, "/v1/me/permissions/"+name, nil)
		req.Header.Set("Authorization", "Bearer "+resp.Access.Token)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("permission %s: %d", name, rec.Code)
		}
		var body struct {
			Permission string `json:"permission"`
			Granted    bool   `json:"granted"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if body.Permission != name || body.Granted != want {
			t.Fatalf("permission %s: %+v, want granted=%v", name, body, want)
		}
	}
}

func TestHealthz(t *testing.T) {
	e, _ := testApp(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}
