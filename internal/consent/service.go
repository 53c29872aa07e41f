package consent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/santerec/dep-backend/internal/user"
)

// Repository defines the data access methods for consent grants.
type Repository interface {
	// Upsert writes the single grant row for (patient, professional)
	// atomically: insert if absent, otherwise refresh granted_at,
	// expires_at and is_active while preserving is_emergency.
	Upsert(ctx context.Context, grant *Grant) error
	GetByPair(ctx context.Context, patientID, professionalID int64) (*Grant, error)
	// GetOwnedActive returns the grant only if it belongs to the patient
	// and is still active; missing and foreign rows are indistinguishable.
	GetOwnedActive(ctx context.Context, grantID, patientID int64) (*Grant, error)
	Deactivate(ctx context.Context, grantID int64) error
	ListByPatient(ctx context.Context, patientID int64) ([]*Grant, error)
}

// UserResolver resolves the professional a patient names by email.
type UserResolver interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, actorID *int64, action, detail string)
}

// Service is the consent ledger: it owns grant, revoke and review of the
// patient-professional authorization rows.
type Service struct {
	repo   Repository
	users  UserResolver
	audit  AuditRecorder
	logger *slog.Logger
}

func NewService(repo Repository, users UserResolver, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		audit:  audit,
		logger: logger,
	}
}

// Grant authorizes the professional identified by email to access the
// patient's record for the requested number of days. Granting twice simply
// resets the validity window; there is never a second row for the pair.
func (s *Service) Grant(ctx context.Context, patientID int64, dto GrantAccessDTO) (*Grant, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	professional, err := s.users.GetByEmail(ctx, dto.ProfessionalEmail)
	if err != nil {
		return nil, ErrProfessionalNotFound
	}
	if !professional.Role.IsProfessional() {
		return nil, ErrNotAProfessional
	}

	now := time.Now()
	expiresAt := now.AddDate(0, 0, dto.ExpirationDays)

	grant := &Grant{
		PatientID:      patientID,
		ProfessionalID: professional.ID,
		GrantedAt:      now,
		ExpiresAt:      &expiresAt,
		IsActive:       true,
	}

	if err := s.repo.Upsert(ctx, grant); err != nil {
		s.logger.Error("failed to upsert consent grant",
			"error", err, "patient_id", patientID, "professional_id", professional.ID)
		return nil, err
	}

	// Re-read the row: on a refresh the upsert preserves fields the
	// locally built struct does not carry, is_emergency in particular.
	stored, err := s.repo.GetByPair(ctx, patientID, professional.ID)
	if err != nil {
		s.logger.Error("failed to reload consent grant after upsert",
			"error", err, "patient_id", patientID, "professional_id", professional.ID)
		return nil, err
	}

	s.audit.Record(ctx, &patientID, "consent granted",
		fmt.Sprintf("professional=%d expires=%s", professional.ID, expiresAt.Format(time.RFC3339)))
	s.logger.Info("consent granted",
		"patient_id", patientID,
		"professional_id", professional.ID,
		"expires_at", expiresAt)

	return stored, nil
}

// Revoke deactivates a grant. The grant must belong to the calling patient
// and still be active; anything else is reported as not found so callers
// cannot probe for other patients' grants. The row itself is kept for audit
// history.
func (s *Service) Revoke(ctx context.Context, patientID, grantID int64) error {
	grant, err := s.repo.GetOwnedActive(ctx, grantID, patientID)
	if err != nil {
		return ErrGrantNotFound
	}

	if err := s.repo.Deactivate(ctx, grant.ID); err != nil {
		s.logger.Error("failed to revoke consent grant", "error", err, "grant_id", grantID)
		return err
	}

	s.audit.Record(ctx, &patientID, "consent revoked",
		fmt.Sprintf("professional=%d", grant.ProfessionalID))
	s.logger.Info("consent revoked",
		"patient_id", patientID,
		"professional_id", grant.ProfessionalID,
		"grant_id", grantID)

	return nil
}

// GetByPair returns the unique grant for (patient, professional), if any.
func (s *Service) GetByPair(ctx context.Context, patientID, professionalID int64) (*Grant, error) {
	return s.repo.GetByPair(ctx, patientID, professionalID)
}

// ListForPatient lets a patient review every grant they have issued,
// including revoked and expired ones.
func (s *Service) ListForPatient(ctx context.Context, patientID int64) ([]*Grant, error) {
	return s.repo.ListByPatient(ctx, patientID)
}
