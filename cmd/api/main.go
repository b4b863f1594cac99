package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "go-deo/internal/common/api"
	"go-deo/internal/common/apperr"
	"go-deo/internal/config"
	"go-deo/internal/database"
	"go-deo/internal/features/ai"
	"go-deo/internal/features/auth"
	"go-deo/internal/features/catalog"
	"go-deo/internal/features/entitlement"
	"go-deo/internal/features/governance"
	"go-deo/internal/features/playbook"
	"go-deo/internal/features/project"
	"go-deo/internal/features/system"
	"go-deo/internal/logger"
	"go-deo/internal/middleware"
	"go-deo/pkg/utils"

	_ "go-deo/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if appErr, ok := err.(*apperr.Error); ok {
				return c.Status(appErr.Status).JSON(appErr.Envelope())
			}
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(lc fx.Lifecycle, draftRepo playbook.DraftRepository, runRepo playbook.RunRepository, zlog *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := draftRepo.EnsureIndexes(ctx); err != nil {
					zlog.Error("failed to ensure draft indexes", zap.Error(err))
				}
				if err := runRepo.EnsureIndexes(ctx); err != nil {
					zlog.Error("failed to ensure run ledger indexes", zap.Error(err))
				}
			}()
			return nil
		},
	})
}

// planResolverAdapter exposes the project's plan fact to the entitlement
// checker without coupling it to the full project service.
type planResolverAdapter struct {
	svc project.ProjectService
}

func (a *planResolverAdapter) PlanOf(ctx context.Context, projectID string) (string, error) {
	proj, err := a.svc.GetProject(ctx, projectID)
	if err != nil {
		return "", err
	}
	return proj.Plan, nil
}

// @title           DEO Platform API
// @version         1.0
// @description     Discovery engine optimization backend using Fiber, Uber Fx and MongoDB.

// @host            localhost:8000
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Initialize Repository
			auth.NewUserRepository,
			project.NewProjectRepository,
			catalog.NewCatalogRepository,
			governance.NewPolicyRepository,
			governance.NewApprovalRepository,
			governance.NewAuditRepository,
			governance.NewShareLinkRepository,
			playbook.NewDraftRepository,
			playbook.NewRunRepository,

			auth.NewAuthService,
			project.NewProjectService,
			catalog.NewStorefrontMutator,
			ai.NewGenerator,
			entitlement.NewChecker,
			governance.NewGovernanceService,
			governance.NewShareLinkSweeper,
			playbook.NewScopeResolver,
			playbook.NewPlaybookService,
			playbook.NewApplyExecutor,
			system.NewRunEventsHub,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(s project.ProjectService) middleware.ProjectResolver { return s },
			func(s project.ProjectService) entitlement.PlanResolver { return &planResolverAdapter{svc: s} },
			func(r playbook.RunRepository) entitlement.AiUsageReader { return r },
			func(h *system.RunEventsHub) playbook.RunEventPublisher { return h },

			// Initialize Controller
			auth.NewAuthController,
			project.NewProjectController,
			catalog.NewCatalogController,
			governance.NewGovernanceController,
			playbook.NewPlaybookController,

			// Initialize API Routes
			AsRoute(auth.NewAuthApi),
			AsRoute(project.NewProjectApi),
			AsRoute(catalog.NewCatalogApi),
			AsRoute(governance.NewGovernanceApi),
			AsRoute(playbook.NewPlaybookApi),
			AsRoute(system.NewDebugApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewRunEventsApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) {
				utils.SetSecret(cfg.JWTSecret)
			},

			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, sweeper *governance.ShareLinkSweeper) {
				lc.Append(fx.Hook{
					OnStart: sweeper.Start,
					OnStop:  sweeper.Stop,
				})
			},
			InitializeIndexes,
		),
	)

	app.Run()
}
