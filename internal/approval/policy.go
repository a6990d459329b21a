// Package approval evaluates candidate batches against approval
// preconditions and transactionally promotes approved candidates to leads.
package approval

import (
	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/model"
)

// RejectReason is a per-candidate rejection code. Evaluation order is
// fixed: not-found, status, invalid email, unverified email; the first
// matching reason wins.
type RejectReason string

const (
	ReasonCandidateNotFound RejectReason = "CANDIDATE_NOT_FOUND"
	ReasonStatusNotNew      RejectReason = "STATUS_NOT_NEW"
	ReasonInvalidEmail      RejectReason = "INVALID_EMAIL"
	ReasonUnverifiedEmail   RejectReason = "UNVERIFIED_EMAIL"
)

// Policy is a verification gating strategy. The promotion mechanics are
// shared across policies; only the gate varies.
type Policy interface {
	// Validate checks policy preconditions. It runs before any data access,
	// so a bad policy performs zero reads and zero writes.
	Validate() error

	// Gate returns the rejection reason for a candidate's verification
	// state, or "" if the state permits approval.
	Gate(status model.VerificationStatus) RejectReason
}

// DefaultPolicy requires VERIFIED email status unless the caller explicitly
// opted into unverified approval and confirmed the override. INVALID always
// blocks, with no override.
type DefaultPolicy struct {
	AllowUnverified        bool
	ConfirmAllowUnverified bool
}

func (p DefaultPolicy) Validate() error {
	if p.AllowUnverified && !p.ConfirmAllowUnverified {
		return apperr.Validation("allowUnverified requires confirmAllowUnverified")
	}
	return nil
}

func (p DefaultPolicy) Gate(status model.VerificationStatus) RejectReason {
	if status == model.VerificationInvalid {
		return ReasonInvalidEmail
	}
	if status != model.VerificationVerified && !p.AllowUnverified {
		return ReasonUnverifiedEmail
	}
	return ""
}

// StrictPolicy is the candidate-review approval path: VERIFIED status is
// always required and there is no override.
type StrictPolicy struct{}

func (StrictPolicy) Validate() error { return nil }

func (StrictPolicy) Gate(status model.VerificationStatus) RejectReason {
	if status == model.VerificationInvalid {
		return ReasonInvalidEmail
	}
	if status != model.VerificationVerified {
		return ReasonUnverifiedEmail
	}
	return ""
}
