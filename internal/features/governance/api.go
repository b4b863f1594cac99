package governance

import (
	"go-deo/internal/config"
	"go-deo/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type GovernanceApi struct {
	Controller      *GovernanceController
	ProjectResolver middleware.ProjectResolver
	Config          *config.Config
}

func NewGovernanceApi(controller *GovernanceController, projectResolver middleware.ProjectResolver, config *config.Config) *GovernanceApi {
	return &GovernanceApi{
		Controller:      controller,
		ProjectResolver: projectResolver,
		Config:          config,
	}
}

func (api *GovernanceApi) Setup(app *fiber.App) {
	group := app.Group("/api/projects/:projectId/governance",
		middleware.AuthMiddleware(api.Config.SkipAuth),
		middleware.ProjectAccess(api.ProjectResolver),
	)

	group.Get("/policy", api.Controller.GetPolicy)
	group.Put("/policy", api.Controller.UpdatePolicy)

	group.Post("/approvals", api.Controller.CreateApproval)
	group.Post("/approvals/:id/approve", api.Controller.ApproveApproval)
	group.Post("/approvals/:id/reject", api.Controller.RejectApproval)

	// Read-only viewer surfaces, cursor paginated
	group.Get("/viewer/approvals", api.Controller.ListApprovals)
	group.Get("/viewer/audit-events", api.Controller.ListAuditEvents)
	group.Get("/viewer/share-links", api.Controller.ListShareLinks)

	group.Get("/audit-events/export", api.Controller.ExportAuditEvents)

	group.Post("/share-links", api.Controller.CreateShareLink)
	group.Post("/share-links/:id/revoke", api.Controller.RevokeShareLink)
}
