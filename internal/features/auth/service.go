package auth

import (
	"context"
	"errors"

	common_models "go-deo/internal/common/models"
	"go-deo/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*common_models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
}

type AuthServiceImpl struct {
	UserRepo UserRepository
}

func NewAuthService(userRepo UserRepository) AuthService {
	return &AuthServiceImpl{UserRepo: userRepo}
}

func (s *AuthServiceImpl) Register(ctx context.Context, email, password, name string) (*common_models.User, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	if existing, _ := s.UserRepo.FindByEmail(ctx, email); existing != nil {
		return nil, errors.New("email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &common_models.User{
		Email:    email,
		Password: string(hashed),
		Name:     name,
	}

	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.UserRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", errors.New("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", errors.New("invalid credentials")
	}

	return utils.GenerateToken(user.ID, user.Email)
}
