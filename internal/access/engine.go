package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/santerec/dep-backend/internal/consent"
	"github.com/santerec/dep-backend/internal/user"
)

// GrantSource is the slice of the consent ledger the engine consults.
type GrantSource interface {
	GetByPair(ctx context.Context, patientID, professionalID int64) (*consent.Grant, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, actorID *int64, action, detail string)
}

// Engine evaluates whether a professional may touch a patient's record. It
// is stateless per request; serialization of concurrent grant/revoke/check
// on one pair comes from the ledger's unique row and atomic upsert, not from
// locking here.
type Engine struct {
	grants GrantSource
	audit  AuditRecorder
	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(grants GrantSource, audit AuditRecorder, logger *slog.Logger) *Engine {
	return &Engine{
		grants: grants,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the engine clock. Tests use it to pin expiry
// evaluation to a known instant.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// CheckAccess returns Allow or Deny(reason) for the triple, consulting the
// consent ledger. Every decision, either way, produces exactly one audit
// entry. A non-nil error means the ledger could not be consulted at all; no
// decision was made.
func (e *Engine) CheckAccess(ctx context.Context, professional *user.User, patientID int64, mode Mode) (Decision, error) {
	if !professional.Role.IsProfessional() {
		return e.decide(ctx, professional, patientID, mode, Deny(ReasonInvalidRole)), nil
	}

	grant, err := e.grants.GetByPair(ctx, patientID, professional.ID)
	if err != nil {
		if errors.Is(err, consent.ErrGrantNotFound) {
			return e.decide(ctx, professional, patientID, mode, Deny(ReasonNoGrant)), nil
		}
		e.logger.Error("consent lookup failed",
			"error", err, "patient_id", patientID, "professional_id", professional.ID)
		return Decision{}, err
	}

	// Inactive wins over expired so a revoked grant reads as revoked even
	// after its window has also lapsed.
	if !grant.IsActive {
		return e.decide(ctx, professional, patientID, mode, Deny(ReasonInactive)), nil
	}
	if grant.ExpiresAt != nil && grant.ExpiresAt.Before(e.now()) {
		return e.decide(ctx, professional, patientID, mode, Deny(ReasonExpired)), nil
	}

	return e.decide(ctx, professional, patientID, mode, Allow()), nil
}

func (e *Engine) decide(ctx context.Context, professional *user.User, patientID int64, mode Mode, d Decision) Decision {
	outcome := "allowed"
	detail := fmt.Sprintf("patient=%d mode=%s", patientID, mode)
	if !d.Allowed {
		outcome = "denied"
		detail = fmt.Sprintf("patient=%d mode=%s reason=%s", patientID, mode, d.Reason)
	}

	e.audit.Record(ctx, &professional.ID, "record access "+outcome, detail)

	e.logger.Info("access decision",
		"professional_id", professional.ID,
		"patient_id", patientID,
		"mode", mode,
		"allowed", d.Allowed,
		"reason", d.Reason)

	return d
}
