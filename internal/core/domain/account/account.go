package account

import (
	"time"

	"github.com/google/uuid"
)

// Account is the read-only view of an externally managed user account.
type Account struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
