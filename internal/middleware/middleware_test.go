package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"kyokki-backend/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

func newProtectedApp(jwtService jwt.JWTService) *fiber.App {
	app := fiber.New()
	app.Get("/protected", NewMiddleware().AuthMiddleware(jwtService), func(c *fiber.Ctx) error {
		clientID, _ := c.Locals("client_id").(string)
		return c.SendString(clientID)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	jwtService := jwt.NewJWTService("test-secret")
	token, err := jwtService.GenerateClientToken("kitchen-display", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	app := newProtectedApp(jwtService)

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{name: "bearer header", target: "/protected", header: "Bearer " + token, want: fiber.StatusOK},
		{name: "query token", target: "/protected?token=" + token, want: fiber.StatusOK},
		{name: "missing token", target: "/protected", want: fiber.StatusUnauthorized},
		{name: "wrong scheme", target: "/protected", header: "Basic " + token, want: fiber.StatusUnauthorized},
		{name: "garbage token", target: "/protected", header: "Bearer abc.def.ghi", want: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	app := newProtectedApp(nil)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/protected", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
