package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func newApp() *fiber.App {
	app := fiber.New()
	log := zap.NewNop()
	app.Use(GatewayAuthMiddleware("gw-secret", log))
	secured := app.Group("/", UserContextMiddleware(log))
	secured.Get("/me", func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})
	secured.Get("/admin/ping", RequireRole("admin"), func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	return app
}

func TestGatewayAndUserContext(t *testing.T) {
	app := newApp()

	cases := []struct {
		name    string
		path    string
		headers map[string]string
		want    int
	}{
		{"no gateway token", "/me", nil, fiber.StatusUnauthorized},
		{"wrong gateway token", "/me", map[string]string{"Authorization": "Bearer nope"}, fiber.StatusUnauthorized},
		{"missing user", "/me", map[string]string{"Authorization": "Bearer gw-secret"}, fiber.StatusUnauthorized},
		{"raw token accepted", "/me", map[string]string{"Authorization": "gw-secret", "X-User-ID": "u1"}, fiber.StatusOK},
		{"user without admin", "/admin/ping", map[string]string{"Authorization": "Bearer gw-secret", "X-User-ID": "u1", "X-User-Roles": "user"}, fiber.StatusForbidden},
		{"admin", "/admin/ping", map[string]string{"Authorization": "Bearer gw-secret", "X-User-ID": "u1", "X-User-Roles": "user, admin"}, fiber.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}
