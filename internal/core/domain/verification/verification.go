package verification

import (
	"time"

	"github.com/google/uuid"
)

// Type is the closed set of record kinds. It selects the materialization handler run at consumption.
type Type string

const (
	TypeEmailVerifyCode             Type = "EMAIL_VERIFY_CODE"
	TypeInviteCoach                 Type = "INVITE_COACH"
	TypeInviteManager               Type = "INVITE_MANAGER"
	TypeInviteLearner               Type = "INVITE_LEARNER"
	TypeCourseCompletionCertificate Type = "COURSE_COMPLETION_CERTIFICATE"
	TypeTrainingCertificate         Type = "TRAINING_CERTIFICATE"
	TypeSkillCertification          Type = "SKILL_CERTIFICATION"
	TypeAchievementBadge            Type = "ACHIEVEMENT_BADGE"
)

var allTypes = []Type{
	TypeEmailVerifyCode,
	TypeInviteCoach,
	TypeInviteManager,
	TypeInviteLearner,
	TypeCourseCompletionCertificate,
	TypeTrainingCertificate,
	TypeSkillCertification,
	TypeAchievementBadge,
}

// AllTypes returns every known record type.
func AllTypes() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

func (t Type) IsValid() bool {
	for _, known := range allTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusConsumed Status = "CONSUMED"
)

// Record is a single-use, time-boxed verification record.
// The plaintext token is never stored; TokenHash is its keyed digest.
type Record struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	Type                Type       `json:"type" db:"type"`
	TokenHash           string     `json:"-" db:"token_hash"`
	Status              Status     `json:"status" db:"status"`
	TargetAccountID     *uuid.UUID `json:"target_account_id,omitempty" db:"target_account_id"`
	SubjectType         *string    `json:"subject_type,omitempty" db:"subject_type"`
	SubjectID           *string    `json:"subject_id,omitempty" db:"subject_id"`
	Payload             Payload    `json:"payload" db:"payload"`
	ExpiresAt           time.Time  `json:"expires_at" db:"expires_at"`
	NotBefore           *time.Time `json:"not_before,omitempty" db:"not_before"`
	IssuedByAccountID   *uuid.UUID `json:"issued_by_account_id,omitempty" db:"issued_by_account_id"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	ConsumedAt          *time.Time `json:"consumed_at,omitempty" db:"consumed_at"`
	ConsumedByAccountID *uuid.UUID `json:"consumed_by_account_id,omitempty" db:"consumed_by_account_id"`
}

func (r *Record) IsConsumed() bool {
	return r.Status == StatusConsumed
}

// CreateRecordRequest describes a single issuance.
// Token is optional; when empty one is generated.
type CreateRecordRequest struct {
	Type              Type       `json:"type" validate:"required"`
	Payload           Payload    `json:"payload"`
	ExpiresAt         time.Time  `json:"expires_at"`
	NotBefore         *time.Time `json:"not_before,omitempty"`
	TargetAccountID   *uuid.UUID `json:"target_account_id,omitempty"`
	SubjectType       *string    `json:"subject_type,omitempty" validate:"omitempty,max=64"`
	SubjectID         *string    `json:"subject_id,omitempty" validate:"omitempty,max=128"`
	Token             string     `json:"token,omitempty" validate:"omitempty,max=32,alphanum"`
	IssuedByAccountID *uuid.UUID `json:"-"`
}

// BatchCreateRequest issues one record per target with a shared payload.
type BatchCreateRequest struct {
	Type              Type        `json:"type" validate:"required"`
	Targets           []uuid.UUID `json:"targets" validate:"required,min=1"`
	Payload           Payload     `json:"payload"`
	ExpiresAt         time.Time   `json:"expires_at"`
	NotBefore         *time.Time  `json:"not_before,omitempty"`
	SubjectType       *string     `json:"subject_type,omitempty" validate:"omitempty,max=64"`
	IssuedByAccountID *uuid.UUID  `json:"-"`
}

// IssuedRecord pairs a freshly created record with its plaintext token.
// This is the only place the plaintext token ever surfaces.
type IssuedRecord struct {
	Record *Record `json:"record"`
	Token  string  `json:"token"`
}

type BatchFailure struct {
	TargetAccountID uuid.UUID `json:"target_account_id"`
	Reason          Reason    `json:"reason"`
	Message         string    `json:"message"`
}

type BatchResult struct {
	Created      []IssuedRecord `json:"created"`
	Failures     []BatchFailure `json:"failures"`
	CreatedCount int            `json:"created_count"`
	FailedCount  int            `json:"failed_count"`
}

// ConsumeResult is the structured outcome of a consumption attempt.
// Business failures are reported here, never as errors.
type ConsumeResult struct {
	Success bool    `json:"success"`
	Record  *Record `json:"data"`
	Reason  Reason  `json:"reason,omitempty"`
	Message string  `json:"message"`
}

// VerifyResult is the read-only counterpart of ConsumeResult.
type VerifyResult struct {
	Valid   bool    `json:"valid"`
	Record  *Record `json:"data"`
	Reason  Reason  `json:"reason,omitempty"`
	Message string  `json:"message"`
}
