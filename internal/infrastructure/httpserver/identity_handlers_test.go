package httpserver_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/verification-service/internal/core/domain/audit"
	"github.com/avatarctic/verification-service/internal/core/domain/identity"
	"github.com/avatarctic/verification-service/internal/core/ports"
)

func TestListOwnIdentities(t *testing.T) {
	h := newHarness()
	var asked uuid.UUID
	h.identities.ListProfilesFn = func(ctx context.Context, accountID uuid.UUID) ([]*identity.Profile, error) {
		asked = accountID
		return []*identity.Profile{
			{ID: uuid.New(), Kind: identity.KindCoach, AccountID: accountID},
			{ID: uuid.New(), Kind: identity.KindLearner, AccountID: accountID},
		}, nil
	}

	rec, body := h.do(t, http.MethodGet, "/api/v1/identities/me", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 2, body["total"])
	require.Len(t, body["identities"], 2)
	require.Equal(t, h.callerID, asked)

	rec, _ = h.do(t, http.MethodGet, "/api/v1/identities/me", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeactivateOwnIdentity(t *testing.T) {
	h := newHarness()
	var gotKind identity.Kind
	var gotAccount uuid.UUID
	h.identities.DeactivateFn = func(ctx context.Context, kind identity.Kind, accountID uuid.UUID) error {
		gotKind, gotAccount = kind, accountID
		if kind == identity.KindManager {
			return ports.ErrIdentityNotFound
		}
		if kind == identity.KindLearner {
			return errors.New("db down")
		}
		return nil
	}

	rec, _ := h.do(t, http.MethodDelete, "/api/v1/identities/me/coach", "", bearer)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, identity.KindCoach, gotKind)
	require.Equal(t, h.callerID, gotAccount)

	rec, _ = h.do(t, http.MethodDelete, "/api/v1/identities/me/MANAGER", "", bearer)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = h.do(t, http.MethodDelete, "/api/v1/identities/me/learner", "", bearer)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = h.do(t, http.MethodDelete, "/api/v1/identities/me/admin", "", bearer)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAuditLogs_ScopedToCaller(t *testing.T) {
	h := newHarness()
	var got *audit.AuditLogFilter
	h.auditSvc.GetAuditLogsFn = func(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, int, error) {
		got = filter
		return []*audit.AuditLog{{ID: uuid.New(), Action: string(audit.ActionConsume)}}, 1, nil
	}

	rec, body := h.do(t, http.MethodGet, "/api/v1/audit/logs?limit=10&offset=5", "", bearer)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, body["total"])
	require.NotNil(t, got)
	require.Equal(t, h.callerID, *got.UserID)
	require.Equal(t, 10, got.Limit)
	require.Equal(t, 5, got.Offset)
}
