package services

import (
	"context"
	"time"

	"github.com/diet-horizon/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	UpdateProfile(ctx context.Context, id int, name, email string) (types.User, error)
	UpdatePassword(ctx context.Context, id int, passwordHash string) error
	SetResetToken(ctx context.Context, id int, tokenHash string, expires time.Time) error
	UpdateRole(ctx context.Context, id int, role string) (types.User, error)
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	GetSummaries(ctx context.Context, ids []int) (map[int]types.UserSummary, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *UserService) GetByResetToken(ctx context.Context, tokenHash string) (types.User, error) {
	return s.repo.GetByResetToken(ctx, tokenHash, time.Now())
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}

func (s *UserService) UpdateProfile(ctx context.Context, id int, name, email string) (types.User, error) {
	return s.repo.UpdateProfile(ctx, id, name, email)
}

func (s *UserService) UpdatePassword(ctx context.Context, id int, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, id, passwordHash)
}

func (s *UserService) SetResetToken(ctx context.Context, id int, tokenHash string, expires time.Time) error {
	return s.repo.SetResetToken(ctx, id, tokenHash, expires)
}

// UpdateRole changes a user's role after validating the enum.
func (s *UserService) UpdateRole(ctx context.Context, id int, role string) (types.User, error) {
	if !types.ValidRole(role) {
		return types.User{}, ErrInvalidRole
	}
	return s.repo.UpdateRole(ctx, id, role)
}

func (s *UserService) List(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit)
}

func (s *UserService) GetSummaries(ctx context.Context, ids []int) (map[int]types.UserSummary, error) {
	return s.repo.GetSummaries(ctx, ids)
}
