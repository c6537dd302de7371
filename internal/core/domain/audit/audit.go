package audit

import (
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     *uuid.UUID `json:"user_id" db:"user_id"`
	Action     string     `json:"action" db:"action"`
	Resource   string     `json:"resource" db:"resource"`
	ResourceID *uuid.UUID `json:"resource_id" db:"resource_id"`
	Details    any        `json:"details" db:"details"`
	IPAddress  string     `json:"ip_address" db:"ip_address"`
	UserAgent  string     `json:"user_agent" db:"user_agent"`
	Timestamp  time.Time  `json:"timestamp" db:"timestamp"`
}

type AuditAction string

const (
	ActionIssue          AuditAction = "verification.issued"
	ActionConsume        AuditAction = "verification.consumed"
	ActionConsumeReject  AuditAction = "verification.consume_rejected"
	ActionIdentityGrant  AuditAction = "identity.granted"
	ActionIdentityReturn AuditAction = "identity.reactivated"
)

type AuditResource string

const (
	ResourceVerificationRecord AuditResource = "verification_record"
	ResourceIdentityProfile    AuditResource = "identity_profile"
)

// CreateAuditLogRequest represents the request to create an audit log entry
type CreateAuditLogRequest struct {
	UserID     *uuid.UUID    `json:"user_id,omitempty"`
	Action     AuditAction   `json:"action"`
	Resource   AuditResource `json:"resource"`
	ResourceID *uuid.UUID    `json:"resource_id,omitempty"`
	Details    any           `json:"details,omitempty"`
	IPAddress  string        `json:"ip_address"`
	UserAgent  string        `json:"user_agent"`
}

// AuditLogFilter represents filters for querying audit logs
type AuditLogFilter struct {
	UserID     *uuid.UUID     `json:"user_id,omitempty" query:"user_id"`
	Action     *AuditAction   `json:"action,omitempty" query:"action"`
	Resource   *AuditResource `json:"resource,omitempty" query:"resource"`
	ResourceID *uuid.UUID     `json:"resource_id,omitempty" query:"resource_id"`
	StartTime  *time.Time     `json:"start_time,omitempty" query:"start_time"`
	EndTime    *time.Time     `json:"end_time,omitempty" query:"end_time"`
	Limit      int            `json:"limit" query:"limit"`
	Offset     int            `json:"offset" query:"offset"`
}
