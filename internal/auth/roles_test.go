package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository/memory"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

func newGuardedApp(t *testing.T) (*fiber.App, *TokenManager, map[domain.Role]int64) {
	t.Helper()
	store := memory.NewStore()
	users := store.Repositories().Users
	ids := map[domain.Role]int64{}
	for _, role := range []domain.Role{domain.RoleUser, domain.RoleEmployee, domain.RoleAdmin} {
		u := &domain.User{Name: string(role), Email: string(role) + "@example.com", Role: role}
		if err := users.Create(context.Background(), u); err != nil {
			t.Fatalf("seed: %v", err)
		}
		ids[role] = u.ID
	}

	tokens := NewTokenManager("secret", 10)
	mw := NewAuthMiddleware(tokens, users)
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	ok := func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) }
	app.Get("/admin", mw.Handle, RequireRole(domain.RoleAdmin), ok)
	app.Get("/users/:userId", mw.Handle, RequireSelfOrAdmin("userId"), ok)
	return app, tokens, ids
}

func do(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return resp.StatusCode
}

func TestGuards(t *testing.T) {
	app, tokens, ids := newGuardedApp(t)
	tokenFor := func(role domain.Role) string {
		tok, _, err := tokens.GenerateToken(ids[role], role)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		return tok
	}

	userPath := "/users/" + strconv.FormatInt(ids[domain.RoleUser], 10)
	cases := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"no token", "/admin", "", http.StatusUnauthorized},
		{"garbage token", "/admin", "abc", http.StatusUnauthorized},
		{"user on admin route", "/admin", tokenFor(domain.RoleUser), http.StatusForbidden},
		{"admin on admin route", "/admin", tokenFor(domain.RoleAdmin), http.StatusOK},
		{"self", userPath, tokenFor(domain.RoleUser), http.StatusOK},
		{"other user", userPath, tokenFor(domain.RoleEmployee), http.StatusForbidden},
		{"admin on other user", userPath, tokenFor(domain.RoleAdmin), http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := do(t, app, tc.path, tc.token); got != tc.want {
				t.Fatalf("status = %d, want %d", got, tc.want)
			}
		})
	}
}
