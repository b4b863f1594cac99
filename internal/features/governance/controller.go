package governance

import (
	"go-deo/internal/common/apperr"
	common_models "go-deo/internal/common/models"
	"go-deo/internal/middleware"
	"go-deo/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type GovernanceController struct {
	Service GovernanceService
}

func NewGovernanceController(service GovernanceService) *GovernanceController {
	return &GovernanceController{Service: service}
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

func (c *GovernanceController) GetPolicy(ctx *fiber.Ctx) error {
	projectID, _, _, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	policy, err := c.Service.GetPolicy(ctx.UserContext(), projectID)
	if err != nil {
		return apperr.Render(ctx, err)
	}

	return ctx.JSON(policy)
}

func (c *GovernanceController) UpdatePolicy(ctx *fiber.Ctx) error {
	projectID, userID, role, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var update PolicyUpdate
	if err := ctx.BodyParser(&update); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	policy, err := c.Service.UpdatePolicy(ctx.UserContext(), projectID, userID, role, update)
	if err != nil {
		return apperr.Render(ctx, err)
	}

	return ctx.JSON(policy)
}

func (c *GovernanceController) CreateApproval(ctx *fiber.Ctx) error {
	projectID, userID, _, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req struct {
		ResourceType string `json:"resourceType"`
		ResourceID   string `json:"resourceId"`
	}
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	approval, err := c.Service.CreateApproval(ctx.UserContext(), projectID, userID, ResourceType(req.ResourceType), req.ResourceID)
	if err != nil {
		return apperr.Render(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(approval)
}

func (c *GovernanceController) ApproveApproval(ctx *fiber.Ctx) error {
	return c.decide(ctx, true)
}

func (c *GovernanceController) RejectApproval(ctx *fiber.Ctx) error {
	return c.decide(ctx, false)
}

func (c *GovernanceController) decide(ctx *fiber.Ctx, approve bool) error {
	projectID, userID, role, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req struct {
		Reason string `json:"reason"`
	}
	ctx.BodyParser(&req)

	approval, err := c.Service.DecideApproval(ctx.UserContext(), projectID, ctx.Params("id"), userID, role, approve, req.Reason)
	if err != nil {
		return apperr.Render(ctx, err)
	}

	return ctx.JSON(approval)
}

func (c *GovernanceController) ListApprovals(ctx *fiber.Ctx) error {
	projectID, _, _, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	approvals, err := c.Service.ListApprovals(ctx.UserContext(), projectID, ctx.Query("cursor"), int64(ctx.QueryInt("limit", 50)))
	if err != nil {
		return apperr.Render(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"approvals":  approvals,
		"nextCursor": nextCursorApprovals(approvals),
	})
}

func (c *GovernanceController) ListAuditEvents(ctx *fiber.Ctx) error {
	projectID, _, _, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	events, err := c.Service.ListAuditEvents(ctx.UserContext(), projectID, ctx.Query("cursor"), int64(ctx.QueryInt("limit", 50)))
	if err != nil {
		return apperr.Render(ctx, err)
	}

	var nextCursor string
	if len(events) > 0 {
		nextCursor = events[len(events)-1].ID.Hex()
	}

	return ctx.JSON(fiber.Map{
		"events":     events,
		"nextCursor": nextCursor,
	})
}

func (c *GovernanceController) ExportAuditEvents(ctx *fiber.Ctx) error {
	projectID, _, _, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	file, err := c.Service.ExportAuditEvents(ctx.UserContext(), projectID)
	if err != nil {
		return apperr.Render(ctx, err)
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	ctx.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set("Content-Disposition", `attachment; filename="audit-events.xlsx"`)
	return ctx.Send(buf.Bytes())
}

func (c *GovernanceController) CreateShareLink(ctx *fiber.Ctx) error {
	projectID, userID, role, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	var req struct {
		Audience string `json:"audience"`
	}
	ctx.BodyParser(&req)

	link, err := c.Service.CreateShareLink(ctx.UserContext(), projectID, userID, role, req.Audience)
	if err != nil {
		return apperr.Render(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(link)
}

func (c *GovernanceController) RevokeShareLink(ctx *fiber.Ctx) error {
	projectID, userID, role, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if err := c.Service.RevokeShareLink(ctx.UserContext(), projectID, userID, role, ctx.Params("id")); err != nil {
		return apperr.Render(ctx, err)
	}

	return ctx.JSON(fiber.Map{"message": "Share link revoked"})
}

func (c *GovernanceController) ListShareLinks(ctx *fiber.Ctx) error {
	projectID, _, _, ok := actorFrom(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	links, err := c.Service.ListShareLinks(ctx.UserContext(), projectID, ctx.Query("cursor"), int64(ctx.QueryInt("limit", 50)))
	if err != nil {
		return apperr.Render(ctx, err)
	}

	var nextCursor string
	if len(links) > 0 {
		nextCursor = links[len(links)-1].ID.Hex()
	}

	return ctx.JSON(fiber.Map{
		"shareLinks": links,
		"nextCursor": nextCursor,
	})
}

func nextCursorApprovals(approvals []ApprovalRequest) string {
	if len(approvals) == 0 {
		return ""
	}
	return approvals[len(approvals)-1].ID.Hex()
}
