package playbook

import (
	"go-deo/internal/config"
	"go-deo/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type PlaybookApi struct {
	PlaybookController *PlaybookController
	ProjectResolver    middleware.ProjectResolver
	Config             *config.Config
}

func NewPlaybookApi(playbookController *PlaybookController, projectResolver middleware.ProjectResolver, config *config.Config) *PlaybookApi {
	return &PlaybookApi{
		PlaybookController: playbookController,
		ProjectResolver:    projectResolver,
		Config:             config,
	}
}

func (api *PlaybookApi) Setup(app *fiber.App) {
	group := app.Group("/api/projects/:projectId/automation-playbooks",
		middleware.AuthMiddleware(api.Config.SkipAuth),
		middleware.ProjectAccess(api.ProjectResolver),
	)

	group.Get("/estimate", api.PlaybookController.Estimate)
	group.Get("/usage", api.PlaybookController.Usage)
	group.Get("/runs", api.PlaybookController.ListRuns)
	group.Post("/apply", api.PlaybookController.Apply)
	group.Post("/:playbookId/preview", api.PlaybookController.Preview)
	group.Post("/:playbookId/draft/generate", api.PlaybookController.GenerateDraft)
	group.Get("/:playbookId/draft", api.PlaybookController.GetDraft)
}
