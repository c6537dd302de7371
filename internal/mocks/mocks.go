package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avatarctic/verification-service/internal/core/domain/audit"
	"github.com/avatarctic/verification-service/internal/core/domain/auth"
	"github.com/avatarctic/verification-service/internal/core/domain/identity"
	"github.com/avatarctic/verification-service/internal/core/domain/verification"
	"github.com/avatarctic/verification-service/internal/core/ports"
)

// RecordRepositoryMock is a lightweight mock for VerificationRecordRepository
type RecordRepositoryMock struct {
	CreateFn                  func(ctx context.Context, rec *verification.Record) error
	GetByTokenHashFn          func(ctx context.Context, tokenHash string) (*verification.Record, error)
	GetByTokenHashForUpdateFn func(ctx context.Context, tx ports.DBTX, tokenHash string) (*verification.Record, error)
	TryTransitionToConsumedFn func(ctx context.Context, tx ports.DBTX, id uuid.UUID, consumer uuid.UUID, at time.Time) (bool, error)
	EvictRecordFn             func(ctx context.Context, tokenHash string)
}

func (m *RecordRepositoryMock) Create(ctx context.Context, rec *verification.Record) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, rec)
	}
	return nil
}
func (m *RecordRepositoryMock) GetByTokenHash(ctx context.Context, tokenHash string) (*verification.Record, error) {
	if m.GetByTokenHashFn != nil {
		return m.GetByTokenHashFn(ctx, tokenHash)
	}
	return nil, ports.ErrRecordNotFound
}
func (m *RecordRepositoryMock) GetByTokenHashForUpdate(ctx context.Context, tx ports.DBTX, tokenHash string) (*verification.Record, error) {
	if m.GetByTokenHashForUpdateFn != nil {
		return m.GetByTokenHashForUpdateFn(ctx, tx, tokenHash)
	}
	return nil, ports.ErrRecordNotFound
}
func (m *RecordRepositoryMock) TryTransitionToConsumed(ctx context.Context, tx ports.DBTX, id uuid.UUID, consumer uuid.UUID, at time.Time) (bool, error) {
	if m.TryTransitionToConsumedFn != nil {
		return m.TryTransitionToConsumedFn(ctx, tx, id, consumer, at)
	}
	return true, nil
}
func (m *RecordRepositoryMock) EvictRecord(ctx context.Context, tokenHash string) {
	if m.EvictRecordFn != nil {
		m.EvictRecordFn(ctx, tokenHash)
	}
}

// TxMock records how a transaction ended. Its query methods are never used by services directly.
type TxMock struct {
	ports.DBTX
	mu         sync.Mutex
	Committed  bool
	RolledBack bool
	CommitErr  error
}

func (t *TxMock) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.CommitErr != nil {
		return t.CommitErr
	}
	t.Committed = true
	return nil
}
func (t *TxMock) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Committed {
		return nil
	}
	t.RolledBack = true
	return nil
}

// TransactorMock hands out TxMocks and remembers them.
type TransactorMock struct {
	BeginTxFn func(ctx context.Context) (ports.Tx, error)
	mu        sync.Mutex
	Txs       []*TxMock
}

func (m *TransactorMock) BeginTx(ctx context.Context) (ports.Tx, error) {
	if m.BeginTxFn != nil {
		return m.BeginTxFn(ctx)
	}
	tx := &TxMock{}
	m.mu.Lock()
	m.Txs = append(m.Txs, tx)
	m.mu.Unlock()
	return tx, nil
}

// Last returns the most recently started transaction.
func (m *TransactorMock) Last() *TxMock {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Txs) == 0 {
		return nil
	}
	return m.Txs[len(m.Txs)-1]
}

// HandlerMock is a MaterializationHandler mock
type HandlerMock struct {
	MaterializeFn func(ctx context.Context, tx ports.DBTX, in ports.MaterializeInput) (*ports.MaterializeResult, error)
}

func (m *HandlerMock) Materialize(ctx context.Context, tx ports.DBTX, in ports.MaterializeInput) (*ports.MaterializeResult, error) {
	if m.MaterializeFn != nil {
		return m.MaterializeFn(ctx, tx, in)
	}
	return &ports.MaterializeResult{Entity: "noop"}, nil
}

// HandlerRegistryMock resolves handlers from a plain map
type HandlerRegistryMock map[verification.Type]ports.MaterializationHandler

func (m HandlerRegistryMock) Lookup(t verification.Type) (ports.MaterializationHandler, bool) {
	h, ok := m[t]
	return h, ok
}

// AccountDirectoryMock is an AccountDirectory mock
type AccountDirectoryMock struct {
	ExistsFn func(ctx context.Context, id uuid.UUID) (bool, error)
}

func (m *AccountDirectoryMock) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.ExistsFn != nil {
		return m.ExistsFn(ctx, id)
	}
	return true, nil
}

// AuditServiceMock captures logged actions
type AuditServiceMock struct {
	LogActionFn    func(ctx context.Context, req *audit.CreateAuditLogRequest) error
	GetAuditLogsFn func(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, int, error)
	mu             sync.Mutex
	Logged         []*audit.CreateAuditLogRequest
}

func (m *AuditServiceMock) LogAction(ctx context.Context, req *audit.CreateAuditLogRequest) error {
	m.mu.Lock()
	m.Logged = append(m.Logged, req)
	m.mu.Unlock()
	if m.LogActionFn != nil {
		return m.LogActionFn(ctx, req)
	}
	return nil
}
func (m *AuditServiceMock) GetAuditLogs(ctx context.Context, filter *audit.AuditLogFilter) ([]*audit.AuditLog, int, error) {
	if m.GetAuditLogsFn != nil {
		return m.GetAuditLogsFn(ctx, filter)
	}
	return []*audit.AuditLog{}, 0, nil
}

// Actions lists the logged actions in order.
func (m *AuditServiceMock) Actions() []audit.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.AuditAction, 0, len(m.Logged))
	for _, l := range m.Logged {
		out = append(out, l.Action)
	}
	return out
}

// MetricsMock counts observations by label
type MetricsMock struct {
	mu       sync.Mutex
	Issued   map[verification.Type]int
	Consumed map[verification.Reason]int
}

func (m *MetricsMock) ObserveIssued(t verification.Type, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Issued == nil {
		m.Issued = map[verification.Type]int{}
	}
	m.Issued[t] += n
}
func (m *MetricsMock) ObserveConsume(t verification.Type, reason verification.Reason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Consumed == nil {
		m.Consumed = map[verification.Reason]int{}
	}
	m.Consumed[reason]++
}

// IdentityServiceMock is an IdentityService mock
type IdentityServiceMock struct {
	KindValue      identity.Kind
	EnsureActiveFn func(ctx context.Context, tx ports.DBTX, accountID uuid.UUID, attrs identity.Attributes) (*identity.EnsureResult, error)
}

func (m *IdentityServiceMock) Kind() identity.Kind { return m.KindValue }
func (m *IdentityServiceMock) EnsureActive(ctx context.Context, tx ports.DBTX, accountID uuid.UUID, attrs identity.Attributes) (*identity.EnsureResult, error) {
	if m.EnsureActiveFn != nil {
		return m.EnsureActiveFn(ctx, tx, accountID, attrs)
	}
	return &identity.EnsureResult{Profile: &identity.Profile{ID: uuid.New(), Kind: m.KindValue, AccountID: accountID}, Created: true}, nil
}

// IssuanceServiceMock is an IssuanceService mock
type IssuanceServiceMock struct {
	CreateSingleFn func(ctx context.Context, req *verification.CreateRecordRequest) (*verification.IssuedRecord, error)
	CreateBatchFn  func(ctx context.Context, req *verification.BatchCreateRequest) (*verification.BatchResult, error)
}

func (m *IssuanceServiceMock) CreateSingle(ctx context.Context, req *verification.CreateRecordRequest) (*verification.IssuedRecord, error) {
	if m.CreateSingleFn != nil {
		return m.CreateSingleFn(ctx, req)
	}
	return &verification.IssuedRecord{Record: &verification.Record{ID: uuid.New(), Type: req.Type, Status: verification.StatusActive}, Token: "token"}, nil
}
func (m *IssuanceServiceMock) CreateBatch(ctx context.Context, req *verification.BatchCreateRequest) (*verification.BatchResult, error) {
	if m.CreateBatchFn != nil {
		return m.CreateBatchFn(ctx, req)
	}
	return &verification.BatchResult{Created: []verification.IssuedRecord{}, Failures: []verification.BatchFailure{}}, nil
}

// ConsumptionServiceMock is a ConsumptionService mock
type ConsumptionServiceMock struct {
	ConsumeFn func(ctx context.Context, token string, consumer *uuid.UUID, expected *verification.Type) (*verification.ConsumeResult, error)
	FindFn    func(ctx context.Context, token string) (*verification.Record, error)
	VerifyFn  func(ctx context.Context, token string, expected *verification.Type) (*verification.VerifyResult, error)
}

func (m *ConsumptionServiceMock) Consume(ctx context.Context, token string, consumer *uuid.UUID, expected *verification.Type) (*verification.ConsumeResult, error) {
	if m.ConsumeFn != nil {
		return m.ConsumeFn(ctx, token, consumer, expected)
	}
	return &verification.ConsumeResult{Success: false, Reason: verification.ReasonNotFound, Message: verification.ReasonNotFound.Message()}, nil
}
func (m *ConsumptionServiceMock) Find(ctx context.Context, token string) (*verification.Record, error) {
	if m.FindFn != nil {
		return m.FindFn(ctx, token)
	}
	return nil, nil
}
func (m *ConsumptionServiceMock) Verify(ctx context.Context, token string, expected *verification.Type) (*verification.VerifyResult, error) {
	if m.VerifyFn != nil {
		return m.VerifyFn(ctx, token, expected)
	}
	return &verification.VerifyResult{Valid: false, Reason: verification.ReasonNotFound, Message: verification.ReasonNotFound.Message()}, nil
}

// IdentityDirectoryMock is an IdentityDirectory mock
type IdentityDirectoryMock struct {
	ListProfilesFn func(ctx context.Context, accountID uuid.UUID) ([]*identity.Profile, error)
	DeactivateFn   func(ctx context.Context, kind identity.Kind, accountID uuid.UUID) error
}

func (m *IdentityDirectoryMock) ListProfiles(ctx context.Context, accountID uuid.UUID) ([]*identity.Profile, error) {
	if m.ListProfilesFn != nil {
		return m.ListProfilesFn(ctx, accountID)
	}
	return []*identity.Profile{}, nil
}
func (m *IdentityDirectoryMock) Deactivate(ctx context.Context, kind identity.Kind, accountID uuid.UUID) error {
	if m.DeactivateFn != nil {
		return m.DeactivateFn(ctx, kind, accountID)
	}
	return nil
}

// TokenValidatorMock is a TokenValidator mock
type TokenValidatorMock struct {
	ValidateTokenFn func(ctx context.Context, token string) (*auth.Claims, error)
}

func (m *TokenValidatorMock) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, token)
	}
	return nil, errors.New("invalid token")
}

// RateLimiterMock is a RateLimiterService mock
type RateLimiterMock struct {
	AllowFn func(ctx context.Context, key string) (bool, int, int, time.Time, error)
}

func (m *RateLimiterMock) Allow(ctx context.Context, key string) (bool, int, int, time.Time, error) {
	if m.AllowFn != nil {
		return m.AllowFn(ctx, key)
	}
	return true, 1, 1, time.Now().Add(time.Minute), nil
}

// RateLimitRepositoryMock is a RateLimitRepository mock
type RateLimitRepositoryMock struct {
	IncrementWindowFn func(ctx context.Context, key string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error)
}

func (m *RateLimitRepositoryMock) IncrementWindow(ctx context.Context, key string, window time.Duration, keyPrefix string, ttl time.Duration) (int, time.Time, error) {
	if m.IncrementWindowFn != nil {
		return m.IncrementWindowFn(ctx, key, window, keyPrefix, ttl)
	}
	return 1, time.Now().Truncate(window), nil
}

// HealthCheckerMock is a HealthChecker mock
type HealthCheckerMock struct {
	NameValue string
	CheckFn   func(ctx context.Context) error
}

func (m *HealthCheckerMock) Name() string { return m.NameValue }
func (m *HealthCheckerMock) Check(ctx context.Context) error {
	if m.CheckFn != nil {
		return m.CheckFn(ctx)
	}
	return nil
}

var (
	_ ports.VerificationRecordRepository = (*RecordRepositoryMock)(nil)
	_ ports.RecordCacheEvicter           = (*RecordRepositoryMock)(nil)
	_ ports.Transactor                   = (*TransactorMock)(nil)
	_ ports.HandlerRegistry              = HandlerRegistryMock(nil)
	_ ports.AccountDirectory             = (*AccountDirectoryMock)(nil)
	_ ports.AuditService                 = (*AuditServiceMock)(nil)
	_ ports.VerificationMetrics          = (*MetricsMock)(nil)
	_ ports.IdentityService              = (*IdentityServiceMock)(nil)
	_ ports.IssuanceService              = (*IssuanceServiceMock)(nil)
	_ ports.ConsumptionService           = (*ConsumptionServiceMock)(nil)
	_ ports.IdentityDirectory            = (*IdentityDirectoryMock)(nil)
	_ ports.TokenValidator               = (*TokenValidatorMock)(nil)
	_ ports.RateLimiterService           = (*RateLimiterMock)(nil)
	_ ports.RateLimitRepository          = (*RateLimitRepositoryMock)(nil)
	_ ports.HealthChecker                = (*HealthCheckerMock)(nil)
)
