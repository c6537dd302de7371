package ports

import (
	"context"

	"github.com/google/uuid"
)

// AccountDirectory is the narrow view of the external account system.
type AccountDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
