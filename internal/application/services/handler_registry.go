package services

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/avatarctic/verification-service/internal/core/domain/identity"
	"github.com/avatarctic/verification-service/internal/core/domain/verification"
	"github.com/avatarctic/verification-service/internal/core/ports"
)

var inviteKinds = map[verification.Type]identity.Kind{
	verification.TypeInviteCoach:   identity.KindCoach,
	verification.TypeInviteManager: identity.KindManager,
	verification.TypeInviteLearner: identity.KindLearner,
}

// HandlerRegistry is an immutable type-to-handler table built at startup.
type HandlerRegistry struct {
	handlers map[verification.Type]ports.MaterializationHandler
}

func NewHandlerRegistry(handlers map[verification.Type]ports.MaterializationHandler) (*HandlerRegistry, error) {
	table := make(map[verification.Type]ports.MaterializationHandler, len(handlers))
	for t, h := range handlers {
		if !t.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
		}
		if h == nil {
			return nil, fmt.Errorf("nil handler for %s", t)
		}
		table[t] = h
	}
	return &HandlerRegistry{handlers: table}, nil
}

// Lookup returns the handler for t. Types without one are consumed with no side effect.
func (r *HandlerRegistry) Lookup(t verification.Type) (ports.MaterializationHandler, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// Types lists the registered types in stable order.
func (r *HandlerRegistry) Types() []verification.Type {
	out := make([]verification.Type, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultHandlers wires every invite type to the identity provider of its kind.
func DefaultHandlers(providers ports.IdentityProviders, logger *logrus.Logger) (map[verification.Type]ports.MaterializationHandler, error) {
	handlers := make(map[verification.Type]ports.MaterializationHandler, len(inviteKinds))
	for t, kind := range inviteKinds {
		svc, ok := providers[kind]
		if !ok || svc == nil {
			return nil, fmt.Errorf("no identity provider for %s", kind)
		}
		handlers[t] = NewIdentityGrantHandler(svc, logger)
	}
	return handlers, nil
}

var _ ports.HandlerRegistry = (*HandlerRegistry)(nil)
