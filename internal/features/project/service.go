package project

import (
	"context"
	"errors"

	common_models "go-deo/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProjectService interface {
	CreateProject(ctx context.Context, name string, domain string, ownerUserID string) (*common_models.Project, error)
	GetProject(ctx context.Context, id string) (*common_models.Project, error)
	ListProjects(ctx context.Context, userID string) ([]common_models.Project, error)
	AddMember(ctx context.Context, projectID string, actorUserID string, member common_models.ProjectMember) error
	ResolveRole(ctx context.Context, projectID string, userID string) (common_models.ProjectRole, error)
}

type ProjectServiceImpl struct {
	Repo ProjectRepository
}

func NewProjectService(repo ProjectRepository) ProjectService {
	return &ProjectServiceImpl{Repo: repo}
}

func (s *ProjectServiceImpl) CreateProject(ctx context.Context, name string, domain string, ownerUserID string) (*common_models.Project, error) {
	if name == "" {
		return nil, errors.New("project name is required")
	}

	ownerID, err := primitive.ObjectIDFromHex(ownerUserID)
	if err != nil {
		return nil, err
	}

	project := &common_models.Project{
		Name:   name,
		Domain: domain,
		Plan:   common_models.PlanFree,
		Members: []common_models.ProjectMember{
			{UserID: ownerID, Role: common_models.RoleOwner},
		},
	}

	if err := s.Repo.Create(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

func (s *ProjectServiceImpl) GetProject(ctx context.Context, id string) (*common_models.Project, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *ProjectServiceImpl) ListProjects(ctx context.Context, userID string) ([]common_models.Project, error) {
	return s.Repo.FindByMember(ctx, userID)
}

func (s *ProjectServiceImpl) AddMember(ctx context.Context, projectID string, actorUserID string, member common_models.ProjectMember) error {
	role, err := s.ResolveRole(ctx, projectID, actorUserID)
	if err != nil {
		return err
	}
	if role != common_models.RoleOwner {
		return errors.New("only the project owner can add members")
	}

	if member.Role != common_models.RoleOwner &&
		member.Role != common_models.RoleEditor &&
		member.Role != common_models.RoleViewer {
		return errors.New("invalid member role")
	}

	existing, err := s.Repo.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if _, already := existing.RoleOf(member.UserID.Hex()); already {
		return errors.New("user is already a member of this project")
	}

	return s.Repo.AddMember(ctx, projectID, member)
}

func (s *ProjectServiceImpl) ResolveRole(ctx context.Context, projectID string, userID string) (common_models.ProjectRole, error) {
	project, err := s.Repo.GetByID(ctx, projectID)
	if err != nil {
		return "", err
	}

	role, ok := project.RoleOf(userID)
	if !ok {
		return "", errors.New("user is not a member of this project")
	}

	return role, nil
}
