package service

import (
	"context"
	"errors"
	"fmt"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/repository"
)

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

// GetByWallet returns the user holding walletAddress, or nil when there is none.
func (s *userService) GetByWallet(ctx context.Context, walletAddress string, role *domain.Role) (*domain.User, error) {
	if role != nil && !role.Valid() {
		return nil, domain.Errorf(domain.ErrInvalidInput, "unknown role %q", *role)
	}
	u, err := s.userRepo.GetByWallet(ctx, walletAddress, role)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *userService) List(ctx context.Context, role *domain.Role) ([]domain.User, error) {
	if role != nil && !role.Valid() {
		return nil, domain.Errorf(domain.ErrInvalidInput, "unknown role %q", *role)
	}
	users, err := s.userRepo.List(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}
