package project

import (
	common_models "go-deo/internal/common/models"
	"go-deo/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectController struct {
	ProjectService ProjectService
}

func NewProjectController(projectService ProjectService) *ProjectController {
	return &ProjectController{ProjectService: projectService}
}

func (c *ProjectController) CreateProject(ctx *fiber.Ctx) error {
	var req struct {
		Name   string `json:"name"`
		Domain string `json:"domain"`
	}
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	project, err := c.ProjectService.CreateProject(ctx.UserContext(), req.Name, req.Domain, claims.UserID)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.Status(fiber.StatusCreated).JSON(project)
}

func (c *ProjectController) ListProjects(ctx *fiber.Ctx) error {
	claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	projects, err := c.ProjectService.ListProjects(ctx.UserContext(), claims.UserID)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(projects)
}

func (c *ProjectController) GetProject(ctx *fiber.Ctx) error {
	projectID, _ := ctx.Locals("project_id").(string)

	project, err := c.ProjectService.GetProject(ctx.UserContext(), projectID)
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Project not found"})
	}

	return ctx.JSON(project)
}

func (c *ProjectController) AddMember(ctx *fiber.Ctx) error {
	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	}

	claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user_id"})
	}

	projectID, _ := ctx.Locals("project_id").(string)
	member := common_models.ProjectMember{
		UserID: userID,
		Role:   common_models.ProjectRole(req.Role),
	}

	if err := c.ProjectService.AddMember(ctx.UserContext(), projectID, claims.UserID, member); err != nil {
		return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{"message": "Member added"})
}
