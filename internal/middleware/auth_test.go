package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"crm-web/internal/config"
	"crm-web/internal/models"
	"crm-web/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthMiddleware(cfg), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("user_id"), "role": c.Locals("role")})
	})
	app.Get("/admin", AuthMiddleware(cfg), AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret"}
	app := newApp(cfg)
	user := models.User{ID: 4, Username: "ops", Role: "user"}

	access, err := utils.GenerateAccessToken(user, cfg.JWTSecret, time.Hour)
	require.NoError(t, err)
	refresh, err := utils.GenerateRefreshToken(user, cfg.JWTSecret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/me", "", fiber.StatusUnauthorized},
		{"wrong scheme", "/me", "Token " + access, fiber.StatusUnauthorized},
		{"garbage token", "/me", "Bearer nope", fiber.StatusUnauthorized},
		{"refresh token", "/me", "Bearer " + refresh, fiber.StatusUnauthorized},
		{"access token", "/me", "Bearer " + access, fiber.StatusOK},
		{"non admin", "/admin", "Bearer " + access, fiber.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
