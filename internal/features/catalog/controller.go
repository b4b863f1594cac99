package catalog

import (
	common_models "go-deo/internal/common/models"
	"go-deo/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type CatalogController struct {
	Repo CatalogRepository
}

func NewCatalogController(repo CatalogRepository) *CatalogController {
	return &CatalogController{Repo: repo}
}

func (c *CatalogController) ListItems(ctx *fiber.Ctx) error {
	projectID, _ := ctx.Locals("project_id").(string)

	assetType := common_models.AssetType(ctx.Query("assetType", string(common_models.AssetTypeProducts)))
	if !assetType.Valid() {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid assetType"})
	}

	items, err := c.Repo.ListByAssetType(ctx.UserContext(), projectID, assetType)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{
		"items": items,
		"total": len(items),
	})
}

// SyncItems upserts a catalog snapshot pushed by the storefront sync worker.
func (c *CatalogController) SyncItems(ctx *fiber.Ctx) error {
	projectID, _ := ctx.Locals("project_id").(string)

	var req struct {
		Items []common_models.CatalogItem `json:"items"`
	}
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	for i, item := range req.Items {
		if !item.AssetType.Valid() {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid asset_type in items"})
		}
		if item.ExternalID == "" {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "external_id is required for every item"})
		}
		if item.Handle == "" {
			req.Items[i].Handle = utils.Slugify(item.Title)
		}
	}

	if err := c.Repo.UpsertItems(ctx.UserContext(), projectID, req.Items); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"synced": len(req.Items)})
}
