package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/diet-horizon/apiserver/types"
)

// PlanRepository handles persistence for diet and workout plans.
// Plan entries are stored as a JSON column.
type PlanRepository struct {
	db *sql.DB
}

func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, kind, user_id, trainer_id, title, description, entries, created_at, updated_at`

func (r *PlanRepository) Get(ctx context.Context, id int) (types.Plan, error) {
	const query = `
		SELECT ` + planColumns + `
		FROM plans
		WHERE id = $1`
	plan, err := scanPlan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Plan{}, ErrNotFound
		}
		return types.Plan{}, err
	}
	return plan, nil
}

// ListByUser returns the plans of the given kind assigned to the user.
func (r *PlanRepository) ListByUser(ctx context.Context, kind string, userID int) ([]types.Plan, error) {
	const query = `
		SELECT ` + planColumns + `
		FROM plans
		WHERE kind = $1 AND user_id = $2
		ORDER BY created_at DESC`
	return r.list(ctx, query, kind, userID)
}

// ListByTrainer returns the plans of the given kind assigned by the trainer.
func (r *PlanRepository) ListByTrainer(ctx context.Context, kind string, trainerID int) ([]types.Plan, error) {
	const query = `
		SELECT ` + planColumns + `
		FROM plans
		WHERE kind = $1 AND trainer_id = $2
		ORDER BY created_at DESC`
	return r.list(ctx, query, kind, trainerID)
}

// ListForClient returns every plan the trainer assigned to the client.
func (r *PlanRepository) ListForClient(ctx context.Context, trainerID, userID int) ([]types.Plan, error) {
	const query = `
		SELECT ` + planColumns + `
		FROM plans
		WHERE trainer_id = $1 AND user_id = $2
		ORDER BY created_at DESC`
	return r.list(ctx, query, trainerID, userID)
}

// ClientIDs returns the distinct users holding plans assigned by the trainer.
func (r *PlanRepository) ClientIDs(ctx context.Context, trainerID int) ([]int, error) {
	const query = `
		SELECT DISTINCT user_id
		FROM plans
		WHERE trainer_id = $1
		ORDER BY user_id`
	rows, err := r.db.QueryContext(ctx, query, trainerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PlanRepository) Create(ctx context.Context, plan types.Plan) (types.Plan, error) {
	now := time.Now()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	entriesJSON, err := json.Marshal(plan.Entries)
	if err != nil {
		return types.Plan{}, err
	}

	const query = `
		INSERT INTO plans (kind, user_id, trainer_id, title, description, entries, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		plan.Kind,
		plan.UserID,
		plan.TrainerID,
		plan.Title,
		plan.Description,
		string(entriesJSON),
		plan.CreatedAt,
		plan.UpdatedAt,
	).Scan(&plan.ID); err != nil {
		return types.Plan{}, translate(err)
	}
	return plan, nil
}

func (r *PlanRepository) Update(ctx context.Context, plan types.Plan) (types.Plan, error) {
	plan.UpdatedAt = time.Now()

	entriesJSON, err := json.Marshal(plan.Entries)
	if err != nil {
		return types.Plan{}, err
	}

	const query = `
		UPDATE plans
		SET title = $1, description = $2, entries = $3, updated_at = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, plan.Title, plan.Description, string(entriesJSON), plan.UpdatedAt, plan.ID)
	if err != nil {
		return types.Plan{}, translate(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Plan{}, err
	}
	if affected == 0 {
		return types.Plan{}, ErrNotFound
	}
	return plan, nil
}

func (r *PlanRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM plans WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PlanRepository) list(ctx context.Context, query string, args ...any) ([]types.Plan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []types.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func scanPlan(row rowScanner) (types.Plan, error) {
	var plan types.Plan
	var entriesJSON []byte
	err := row.Scan(
		&plan.ID,
		&plan.Kind,
		&plan.UserID,
		&plan.TrainerID,
		&plan.Title,
		&plan.Description,
		&entriesJSON,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		return types.Plan{}, err
	}
	_ = json.Unmarshal(entriesJSON, &plan.Entries)
	return plan, nil
}
