package playbook

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	common_models "go-deo/internal/common/models"
	"go-deo/internal/middleware"
	"go-deo/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExecutor struct {
	cmd ApplyCommand
}

func (s *stubExecutor) Apply(ctx context.Context, cmd ApplyCommand) (*ApplyResult, error) {
	s.cmd = cmd
	return &ApplyResult{}, nil
}

type stubPlaybookService struct {
	PlaybookService
	previewCmd PreviewCommand
}

func (s *stubPlaybookService) Preview(ctx context.Context, cmd PreviewCommand) (*PreviewResult, error) {
	s.previewCmd = cmd
	return &PreviewResult{}, nil
}

func newControllerApp(executor ApplyExecutor, service PlaybookService) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(utils.UserClaimsKey, &utils.UserClaims{UserID: "user-1"})
		c.Locals(middleware.ProjectIDLocal, testProjectID)
		c.Locals(middleware.ProjectRoleLocal, common_models.RoleOwner)
		return c.Next()
	})

	controller := NewPlaybookController(service, executor)
	group := app.Group("/api/projects/:projectId/automation-playbooks")
	group.Post("/apply", controller.Apply)
	group.Post("/:playbookId/preview", controller.Preview)
	return app
}

func TestApplyEndpointAcceptsPlaybookIDInBody(t *testing.T) {
	executor := &stubExecutor{}
	app := newControllerApp(executor, &stubPlaybookService{})

	body := `{"playbookId": "missing_seo_title", "scopeId": "abc123"}`
	req := httptest.NewRequest("POST", "/api/projects/"+testProjectID+"/automation-playbooks/apply", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "retry-key-9")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "missing_seo_title", executor.cmd.PlaybookID)
	assert.Equal(t, "abc123", executor.cmd.ScopeID)
	assert.Equal(t, "retry-key-9", executor.cmd.IdempotencyKey)
	assert.Equal(t, common_models.RoleOwner, executor.cmd.Role)
	// assetType omitted from the body defaults to PRODUCTS.
	assert.Equal(t, common_models.AssetTypeProducts, executor.cmd.AssetType)
}

func TestPreviewEndpointDefaultsAssetType(t *testing.T) {
	service := &stubPlaybookService{}
	app := newControllerApp(&stubExecutor{}, service)

	req := httptest.NewRequest("POST", "/api/projects/"+testProjectID+"/automation-playbooks/missing_seo_title/preview", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, "missing_seo_title", service.previewCmd.PlaybookID)
	assert.Equal(t, common_models.AssetTypeProducts, service.previewCmd.AssetType)
}
