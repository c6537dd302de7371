package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/verification-service/internal/core/domain/identity"
	"github.com/avatarctic/verification-service/internal/core/ports"
)

// IdentityGrantHandler materializes an invite by ensuring the invited identity is active.
type IdentityGrantHandler struct {
	service ports.IdentityService
	logger  *logrus.Logger
}

func NewIdentityGrantHandler(service ports.IdentityService, logger *logrus.Logger) *IdentityGrantHandler {
	return &IdentityGrantHandler{service: service, logger: logger}
}

func (h *IdentityGrantHandler) Materialize(ctx context.Context, tx ports.DBTX, in ports.MaterializeInput) (*ports.MaterializeResult, error) {
	var attrs identity.Attributes
	if err := in.Payload.Decode(&attrs); err != nil {
		// unreadable attributes must not make the invite unusable
		if h.logger != nil {
			h.logger.WithFields(logrus.Fields{"record_id": in.RecordID, "type": in.Type}).WithError(err).Warn("ignoring invite payload attributes")
		}
		attrs = identity.Attributes{}
	}

	res, err := h.service.EnsureActive(ctx, tx, in.ConsumerAccountID, attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure %s identity: %w", h.service.Kind(), err)
	}
	id := res.Profile.ID
	return &ports.MaterializeResult{
		Entity:      string(h.service.Kind()),
		EntityID:    &id,
		Created:     res.Created,
		Reactivated: res.Reactivated,
	}, nil
}

var _ ports.MaterializationHandler = (*IdentityGrantHandler)(nil)
