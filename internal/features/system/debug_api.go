package system

import (
	"go-deo/internal/config"
	"go-deo/internal/middleware"
	"go-deo/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type DebugApi struct {
	config *config.Config
}

func NewDebugApi(cfg *config.Config) *DebugApi {
	return &DebugApi{config: cfg}
}

// Setup registers debug routes
func (h *DebugApi) Setup(app *fiber.App) {
	debug := app.Group("/api/debug", middleware.AuthMiddleware(h.config.SkipAuth))
	debug.Get("/me", func(ctx *fiber.Ctx) error {
		claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
		}
		return ctx.JSON(fiber.Map{
			"user_id": claims.UserID,
			"email":   claims.Email,
		})
	})
}
