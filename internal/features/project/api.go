package project

import (
	"go-deo/internal/config"
	"go-deo/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ProjectApi struct {
	ProjectController *ProjectController
	ProjectService    ProjectService
	Config            *config.Config
}

func NewProjectApi(projectController *ProjectController, projectService ProjectService, config *config.Config) *ProjectApi {
	return &ProjectApi{
		ProjectController: projectController,
		ProjectService:    projectService,
		Config:            config,
	}
}

func (api *ProjectApi) Setup(app *fiber.App) {
	group := app.Group("/api/projects", middleware.AuthMiddleware(api.Config.SkipAuth))

	group.Post("/", api.ProjectController.CreateProject)
	group.Get("/", api.ProjectController.ListProjects)

	scoped := group.Group("/:projectId", middleware.ProjectAccess(api.ProjectService))
	scoped.Get("/", api.ProjectController.GetProject)
	scoped.Post("/members", api.ProjectController.AddMember)
}
