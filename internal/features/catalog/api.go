package catalog

import (
	"go-deo/internal/config"
	"go-deo/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type CatalogApi struct {
	CatalogController *CatalogController
	ProjectResolver   middleware.ProjectResolver
	Config            *config.Config
}

func NewCatalogApi(catalogController *CatalogController, projectResolver middleware.ProjectResolver, config *config.Config) *CatalogApi {
	return &CatalogApi{
		CatalogController: catalogController,
		ProjectResolver:   projectResolver,
		Config:            config,
	}
}

func (api *CatalogApi) Setup(app *fiber.App) {
	group := app.Group("/api/projects/:projectId/catalog",
		middleware.AuthMiddleware(api.Config.SkipAuth),
		middleware.ProjectAccess(api.ProjectResolver),
	)

	group.Get("/items", api.CatalogController.ListItems)
	group.Post("/sync", api.CatalogController.SyncItems)
}
