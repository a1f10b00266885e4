package services

import (
	"context"
	"strings"

	"github.com/diet-horizon/apiserver/types"
)

// PlanRepository defines persistence operations for diet/workout plans.
type PlanRepository interface {
	Get(ctx context.Context, id int) (types.Plan, error)
	ListByUser(ctx context.Context, kind string, userID int) ([]types.Plan, error)
	ListByTrainer(ctx context.Context, kind string, trainerID int) ([]types.Plan, error)
	ListForClient(ctx context.Context, trainerID, userID int) ([]types.Plan, error)
	ClientIDs(ctx context.Context, trainerID int) ([]int, error)
	Create(ctx context.Context, plan types.Plan) (types.Plan, error)
	Update(ctx context.Context, plan types.Plan) (types.Plan, error)
	Delete(ctx context.Context, id int) error
}

// PlanService encapsulates diet/workout plan use-cases. Trainers act only
// on plans they assigned; admins act on any plan.
type PlanService struct {
	repo  PlanRepository
	users UserRepository
}

func NewPlanService(repo PlanRepository, users UserRepository) *PlanService {
	return &PlanService{repo: repo, users: users}
}

// ListFor returns the plans visible to the caller: a user's own plans, or
// the plans a trainer has assigned (admins see their assigned set too).
func (s *PlanService) ListFor(ctx context.Context, kind string, callerID int, role string) ([]types.Plan, error) {
	if !types.ValidPlanKind(kind) {
		return nil, ErrInvalidStatus
	}
	if role == types.RoleTrainer || role == types.RoleAdmin {
		return s.repo.ListByTrainer(ctx, kind, callerID)
	}
	return s.repo.ListByUser(ctx, kind, callerID)
}

// Assign creates a plan for a client. The client must exist and hold the
// "user" role.
func (s *PlanService) Assign(ctx context.Context, plan types.Plan) (types.Plan, error) {
	if !types.ValidPlanKind(plan.Kind) {
		return types.Plan{}, ErrInvalidStatus
	}
	if strings.TrimSpace(plan.Title) == "" || plan.UserID == 0 {
		return types.Plan{}, ErrMissingFields
	}

	client, err := s.users.GetByID(ctx, plan.UserID)
	if err != nil {
		return types.Plan{}, err
	}
	if client.Role != types.RoleUser {
		return types.Plan{}, ErrInvalidRole
	}

	return s.repo.Create(ctx, plan)
}

// Update rewrites the plan's content. Only the assigning trainer or an
// admin may update it.
func (s *PlanService) Update(ctx context.Context, callerID int, role string, plan types.Plan) (types.Plan, error) {
	existing, err := s.repo.Get(ctx, plan.ID)
	if err != nil {
		return types.Plan{}, err
	}
	if existing.TrainerID != callerID && role != types.RoleAdmin {
		return types.Plan{}, ErrForbidden
	}
	if strings.TrimSpace(plan.Title) == "" {
		return types.Plan{}, ErrMissingFields
	}

	existing.Title = plan.Title
	existing.Description = plan.Description
	existing.Entries = plan.Entries
	return s.repo.Update(ctx, existing)
}

// Delete removes the plan. Only the assigning trainer or an admin may
// delete it.
func (s *PlanService) Delete(ctx context.Context, callerID int, role string, planID int) error {
	existing, err := s.repo.Get(ctx, planID)
	if err != nil {
		return err
	}
	if existing.TrainerID != callerID && role != types.RoleAdmin {
		return ErrForbidden
	}
	return s.repo.Delete(ctx, planID)
}

// Clients returns the public fields of every user holding a plan assigned
// by the trainer.
func (s *PlanService) Clients(ctx context.Context, trainerID int) ([]types.UserSummary, error) {
	ids, err := s.repo.ClientIDs(ctx, trainerID)
	if err != nil {
		return nil, err
	}
	summaries, err := s.users.GetSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}

	clients := make([]types.UserSummary, 0, len(ids))
	for _, id := range ids {
		if summary, ok := summaries[id]; ok {
			clients = append(clients, summary)
		}
	}
	return clients, nil
}

// ClientDetail bundles a client's public fields with the plans the
// calling trainer assigned to them.
type ClientDetail struct {
	Client types.UserSummary `json:"client"`
	Plans  []types.Plan      `json:"plans"`
}

// Client returns one client's summary plus the caller's plans for them.
func (s *PlanService) Client(ctx context.Context, trainerID, clientID int) (ClientDetail, error) {
	client, err := s.users.GetByID(ctx, clientID)
	if err != nil {
		return ClientDetail{}, err
	}
	plans, err := s.repo.ListForClient(ctx, trainerID, clientID)
	if err != nil {
		return ClientDetail{}, err
	}
	return ClientDetail{Client: client.Summary(), Plans: plans}, nil
}
