package identity

import (
	"time"

	"github.com/google/uuid"
)

// Kind names an identity role an account can hold. An account holds at most one profile per kind.
type Kind string

const (
	KindCoach   Kind = "COACH"
	KindManager Kind = "MANAGER"
	KindLearner Kind = "LEARNER"
)

// Profile is an identity materialized for an account. Soft-deactivated profiles keep their row.
type Profile struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Kind          Kind       `json:"kind" db:"kind"`
	AccountID     uuid.UUID  `json:"account_id" db:"account_id"`
	DisplayName   *string    `json:"display_name,omitempty" db:"display_name"`
	Specialty     *string    `json:"specialty,omitempty" db:"specialty"`
	Bio           *string    `json:"bio,omitempty" db:"bio"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty" db:"deactivated_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

func (p *Profile) IsActive() bool {
	return p.DeactivatedAt == nil
}

// Attributes seed descriptive fields on first creation only.
type Attributes struct {
	DisplayName *string `json:"display_name,omitempty"`
	Specialty   *string `json:"specialty,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

// EnsureResult reports what EnsureActive did. Created and Reactivated are never both true.
type EnsureResult struct {
	Profile     *Profile `json:"profile"`
	Created     bool     `json:"created"`
	Reactivated bool     `json:"reactivated"`
}
