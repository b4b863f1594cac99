package playbook

import (
	"go-deo/internal/common/apperr"
	common_models "go-deo/internal/common/models"
	"go-deo/internal/middleware"
	"go-deo/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type PlaybookController struct {
	Service  PlaybookService
	Executor ApplyExecutor
}

func NewPlaybookController(service PlaybookService, executor ApplyExecutor) *PlaybookController {
	return &PlaybookController{Service: service, Executor: executor}
}

func actorFrom(ctx *fiber.Ctx) (projectID string, userID string, role common_models.ProjectRole, ok bool) {
	claims, okClaims := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	projectID, okProject := ctx.Locals(middleware.ProjectIDLocal).(string)
	role, okRole := ctx.Locals(middleware.ProjectRoleLocal).(common_models.ProjectRole)
	if !okClaims || !okProject || !okRole {
		return "", "", "", false
	}
	return projectID, claims.UserID, role, true
}

// assetTypeOrDefault keeps request bodies that omit assetType on the common
// PRODUCTS path instead of failing validation.
func assetTypeOrDefault(raw string) common_models.AssetType {
	if raw == "" {
		return common_models.AssetTypeProducts
	}
	return common_models.AssetType(raw)
}

// Estimate godoc
//
//	@Summary	Estimate the blast radius and cost of a playbook run
//	@Tags		automation-playbooks
//	@Param		playbookId	query	string	true	"Canonical playbook id"
//	@Param		assetType	query	string	true	"PRODUCTS, PAGES or COLLECTIONS"
//	@Router		/api/projects/{projectId}/automation-playbooks/estimate [get]
func (c *PlaybookController) Estimate(ctx *fiber.Ctx) error {
	projectID, userID, _, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	playbookID := ctx.Query("playbookId")
	assetType := common_models.AssetType(ctx.Query("assetType"))

	estimate, err := c.Service.Estimate(ctx.UserContext(), projectID, userID, playbookID, assetType)
	if err != nil {
		return apperr.Render(ctx, err)
	}

	return ctx.JSON(estimate)
}

type previewRequest struct {
	AssetType       string                 `json:"assetType"`
	Rules           map[string]interface{} `json:"rules"`
	SampleSize      int                    `json:"sampleSize"`
	ExplicitRefs    []string               `json:"explicitRefs"`
	ScopeProductIDs []string               `json:"scopeProductIds"`
}

func (c *PlaybookController) Preview(ctx *fiber.Ctx) error {
	projectID, userID, _, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req previewRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	result, err := c.Service.Preview(ctx.UserContext(), PreviewCommand{
		ProjectID:       projectID,
		UserID:          userID,
		PlaybookID:      ctx.Params("playbookId"),
		AssetType:       assetTypeOrDefault(req.AssetType),
		Rules:           req.Rules,
		SampleSize:      req.SampleSize,
		ExplicitRefs:    req.ExplicitRefs,
		ScopeProductIDs: req.ScopeProductIDs,
		IdempotencyKey:  ctx.Get("Idempotency-Key"),
	})
	if err != nil {
		return apperr.Render(ctx, err)
	}

	return ctx.JSON(result)
}

type draftRequest struct {
	AssetType       string                 `json:"assetType"`
	ScopeID         string                 `json:"scopeId"`
	RulesHash       string                 `json:"rulesHash"`
	Rules           map[string]interface{} `json:"rules"`
	ExplicitRefs    []string               `json:"explicitRefs"`
	ScopeProductIDs []string               `json:"scopeProductIds"`
}

func (c *PlaybookController) GenerateDraft(ctx *fiber.Ctx) error {
	projectID, userID, _, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req draftRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	draft, err := c.Service.GenerateDraft(ctx.UserContext(), DraftCommand{
		ProjectID:       projectID,
		UserID:          userID,
		PlaybookID:      ctx.Params("playbookId"),
		AssetType:       assetTypeOrDefault(req.AssetType),
		ScopeID:         req.ScopeID,
		RulesHash:       req.RulesHash,
		Rules:           req.Rules,
		ExplicitRefs:    req.ExplicitRefs,
		ScopeProductIDs: req.ScopeProductIDs,
		IdempotencyKey:  ctx.Get("Idempotency-Key"),
	})
	if err != nil {
		return apperr.Render(ctx, err)
	}

	return ctx.JSON(draft)
}

func (c *PlaybookController) GetDraft(ctx *fiber.Ctx) error {
	projectID, _, _, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	draft, err := c.Service.GetDraft(ctx.UserContext(), projectID, ctx.Params("playbookId"), ctx.Query("scopeId"), ctx.Query("rulesHash"))
	if err != nil {
		return apperr.Render(ctx, err)
	}

	return ctx.JSON(draft)
}

type applyRequest struct {
	PlaybookID string `json:"playbookId"`
	AssetType  string `json:"assetType"`
	ScopeID    string `json:"scopeId"`
	RulesHash  string `json:"rulesHash"`
}

// Apply godoc
//
//	@Summary	Flush a ready draft to the live catalog
//	@Tags		automation-playbooks
//	@Param		Idempotency-Key	header	string	false	"Client retry key; a reused key replays the recorded outcome"
//	@Router		/api/projects/{projectId}/automation-playbooks/apply [post]
func (c *PlaybookController) Apply(ctx *fiber.Ctx) error {
	projectID, userID, role, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req applyRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	result, err := c.Executor.Apply(ctx.UserContext(), ApplyCommand{
		ProjectID:      projectID,
		UserID:         userID,
		Role:           role,
		PlaybookID:     req.PlaybookID,
		AssetType:      assetTypeOrDefault(req.AssetType),
		ScopeID:        req.ScopeID,
		RulesHash:      req.RulesHash,
		IdempotencyKey: ctx.Get("Idempotency-Key"),
	})
	if err != nil {
		return apperr.Render(ctx, err)
	}

	return ctx.JSON(result)
}

func (c *PlaybookController) Usage(ctx *fiber.Ctx) error {
	projectID, _, _, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	summary, err := c.Service.Usage(ctx.UserContext(), projectID)
	if err != nil {
		return apperr.Render(ctx, err)
	}

	return ctx.JSON(summary)
}

func (c *PlaybookController) ListRuns(ctx *fiber.Ctx) error {
	projectID, _, _, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	runs, err := c.Service.ListRuns(ctx.UserContext(), projectID)
	if err != nil {
		return apperr.Render(ctx, err)
	}

	return ctx.JSON(fiber.Map{"runs": runs})
}
