package service

import (
	"context"
	"fmt"

	"github.com/digkill/QuickAI/internal/models"
)

// UserService resolves verified identities to callers with their plan and usage.
type UserService struct {
	users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// Caller reads the plan and usage for uid, provisioning a free user on first sight.
func (s *UserService) Caller(ctx context.Context, uid string) (models.Caller, error) {
	user, err := s.users.Ensure(ctx, uid)
	if err != nil {
		return models.Caller{}, fmt.Errorf("ensure user: %w", err)
	}
	return models.Caller{
		UserID:    user.ID,
		Plan:      user.Plan,
		FreeUsage: user.FreeUsage,
	}, nil
}

func (s *UserService) SetPlan(ctx context.Context, uid string, plan models.Plan) error {
	return s.users.SetPlan(ctx, uid, plan)
}

// Get returns nil when uid has never been seen.
func (s *UserService) Get(ctx context.Context, uid string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *UserService) SetUsage(ctx context.Context, uid string, n int) error {
	if n < 0 {
		return fmt.Errorf("free usage must not be negative")
	}
	return s.users.SetFreeUsage(ctx, uid, n)
}
