package verification

import "time"

// Reason is a typed business outcome. The zero value means no failure.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonNotFound              Reason = "NOT_FOUND"
	ReasonAlreadyConsumed       Reason = "ALREADY_CONSUMED"
	ReasonNotYetValid           Reason = "NOT_YET_VALID"
	ReasonExpired               Reason = "EXPIRED"
	ReasonTypeMismatch          Reason = "TYPE_MISMATCH"
	ReasonAccessDenied          Reason = "ACCESS_DENIED"
	ReasonTokenGenerationFailed Reason = "TOKEN_GENERATION_FAILED"
	ReasonMaterializationFailed Reason = "MATERIALIZATION_FAILED"
	ReasonTargetNotFound        Reason = "TARGET_NOT_FOUND"
	ReasonIssueFailed           Reason = "ISSUE_FAILED"
)

var reasonMessages = map[Reason]string{
	ReasonNone:                  "verification record is valid",
	ReasonNotFound:              "verification record not found",
	ReasonAlreadyConsumed:       "verification record has already been used",
	ReasonNotYetValid:           "verification record is not valid yet",
	ReasonExpired:               "verification record has expired",
	ReasonTypeMismatch:          "verification record is not of the expected type",
	ReasonAccessDenied:          "you are not allowed to use this verification record",
	ReasonTokenGenerationFailed: "could not generate a unique token",
	ReasonMaterializationFailed: "could not apply the verification record, please try again",
	ReasonTargetNotFound:        "target account does not exist",
	ReasonIssueFailed:           "could not create verification record",
}

// Message returns the user-facing text for r.
func (r Reason) Message() string {
	if m, ok := reasonMessages[r]; ok {
		return m
	}
	return string(r)
}

// Evaluate decides whether rec may be acted upon at now. Checks run in a fixed order
// and the first failure wins. A nil expected skips the type check.
func Evaluate(rec *Record, now time.Time, expected *Type) Reason {
	if rec == nil {
		return ReasonNotFound
	}
	if rec.Status != StatusActive {
		return ReasonAlreadyConsumed
	}
	if rec.NotBefore != nil && now.Before(*rec.NotBefore) {
		return ReasonNotYetValid
	}
	if !rec.ExpiresAt.IsZero() && now.After(rec.ExpiresAt) {
		return ReasonExpired
	}
	if expected != nil && rec.Type != *expected {
		return ReasonTypeMismatch
	}
	return ReasonNone
}
