package middleware

import (
	"context"

	common_models "go-deo/internal/common/models"
	"go-deo/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// ProjectResolver is satisfied by project.ProjectService; declared here to
// avoid a middleware -> feature import cycle.
type ProjectResolver interface {
	ResolveRole(ctx context.Context, projectID string, userID string) (common_models.ProjectRole, error)
}

const (
	ProjectIDLocal   = "project_id"
	ProjectRoleLocal = "project_role"
)

// ProjectAccess resolves the caller's role for the :projectId route param.
// Any member passes; non-members get 403. Mutating endpoints do their own
// role checks on top of this.
func ProjectAccess(resolver ProjectResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		projectID := c.Params("projectId")
		if projectID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "projectId is required",
			})
		}

		role, err := resolver.ResolveRole(c.UserContext(), projectID, claims.UserID)
		if err != nil {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "You do not have access to this project",
			})
		}

		c.Locals(ProjectIDLocal, projectID)
		c.Locals(ProjectRoleLocal, role)
		return c.Next()
	}
}
