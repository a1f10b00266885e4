package types

import "time"

// Plan kinds.
const (
	PlanKindDiet    = "diet"
	PlanKindWorkout = "workout"
)

// ValidPlanKind reports whether kind is a known plan kind.
func ValidPlanKind(kind string) bool {
	return kind == PlanKindDiet || kind == PlanKindWorkout
}

// Plan is a diet or workout plan a trainer assigns to a user.
type Plan struct {
	// ID is the unique identifier of the plan.
	ID int `json:"id" db:"id"`

	// Kind distinguishes diet plans from workout plans.
	Kind string `json:"kind" db:"kind"`

	// UserID is the identifier of the client the plan is assigned to.
	UserID int `json:"user_id" db:"user_id"`

	// TrainerID is the identifier of the trainer that assigned the plan.
	TrainerID int `json:"trainer_id" db:"trainer_id"`

	// Title is the human-readable name of the plan.
	Title string `json:"title" db:"title"`

	// Description is the free-text summary of the plan.
	Description string `json:"description" db:"description"`

	// Entries is the ordered list of meals or exercises making up the
	// plan. Stored as a JSON column.
	Entries []PlanEntry `json:"entries" db:"entries"`

	// CreatedAt is the timestamp the plan was assigned.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PlanEntry is one meal or exercise within a plan.
type PlanEntry struct {
	// Name is the meal or exercise name.
	Name string `json:"name"`

	// Detail holds portions, sets/reps, or other free-text instructions.
	Detail string `json:"detail,omitempty"`

	// Day is the 1-based day of the plan the entry belongs to.
	Day int `json:"day,omitempty"`
}
