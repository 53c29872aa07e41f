package user

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Repository defines the data access methods for identities.
type Repository interface {
	Create(ctx context.Context, u *User) error
	CreateWithPatientProfile(ctx context.Context, u *User, profile *PatientProfile) error
	CreateWithDoctorProfile(ctx context.Context, u *User, profile *DoctorProfile) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListPendingProfessionals(ctx context.Context) ([]*User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// AuditRecorder is the audit sink consumed by this service. Recording never
// fails the surrounding operation.
type AuditRecorder interface {
	Record(ctx context.Context, actorID *int64, action, detail string)
}

type Service struct {
	repo       Repository
	audit      AuditRecorder
	logger     *slog.Logger
	bcryptCost int
}

func NewService(repo Repository, audit AuditRecorder, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		audit:      audit,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// RegisterPatient creates a patient account, active immediately.
func (s *Service) RegisterPatient(ctx context.Context, dto RegisterPatientDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.newUser(dto.RegisterDTO, RolePatient, true)
	if err != nil {
		return nil, err
	}

	profile := &PatientProfile{
		Allergies:  dto.Allergies,
		Diseases:   dto.Diseases,
		Genotype:   dto.Genotype,
		BloodGroup: dto.BloodGroup,
	}
	if err := s.repo.CreateWithPatientProfile(ctx, u, profile); err != nil {
		s.logger.Error("patient registration failed", "error", err, "email", u.Email)
		return nil, err
	}

	s.audit.Record(ctx, &u.ID, "patient registered", u.Email)
	s.logger.Info("patient registered", "user_id", u.ID)
	return u, nil
}

// RegisterDoctor creates a doctor account. The account stays inactive until
// an admin validates it.
func (s *Service) RegisterDoctor(ctx context.Context, dto RegisterDoctorDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.newUser(dto.RegisterDTO, RoleDoctor, false)
	if err != nil {
		return nil, err
	}

	profile := &DoctorProfile{Hospital: dto.Hospital}
	if err := s.repo.CreateWithDoctorProfile(ctx, u, profile); err != nil {
		s.logger.Error("doctor registration failed", "error", err, "email", u.Email)
		return nil, err
	}

	s.audit.Record(ctx, &u.ID, "doctor registered, pending validation", u.Email)
	s.logger.Info("doctor registered", "user_id", u.ID)
	return u, nil
}

// RegisterLaboratory creates a laboratory account, inactive until validated.
func (s *Service) RegisterLaboratory(ctx context.Context, dto RegisterDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.newUser(dto, RoleLaboratory, false)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error("laboratory registration failed", "error", err, "email", u.Email)
		return nil, err
	}

	s.audit.Record(ctx, &u.ID, "laboratory registered, pending validation", u.Email)
	s.logger.Info("laboratory registered", "user_id", u.ID)
	return u, nil
}

func (s *Service) newUser(dto RegisterDTO, role Role, active bool) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	return &User{
		Email:        strings.ToLower(strings.TrimSpace(dto.Email)),
		PasswordHash: string(hash),
		Name:         dto.Name,
		ForeName:     dto.ForeName,
		Phone:        dto.Phone,
		DateOfBirth:  dto.BirthDate(),
		Gender:       Gender(dto.Gender),
		Address:      dto.Address,
		Role:         role,
		IsActive:     active,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByEmail resolves a user by email, case-insensitively.
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// ListPendingProfessionals returns doctor and laboratory accounts awaiting
// admin validation, oldest first.
func (s *Service) ListPendingProfessionals(ctx context.Context) ([]*User, error) {
	return s.repo.ListPendingProfessionals(ctx)
}

// ActivateProfessional flips an inactive doctor or laboratory account to
// active. Only admins reach this path; the router enforces the role gate.
func (s *Service) ActivateProfessional(ctx context.Context, adminID, userID int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrNotFound
	}

	if !u.Role.IsProfessional() {
		return nil, ErrNotAPro
	}
	if u.IsActive {
		return nil, ErrAlreadyActive
	}

	if err := s.repo.SetActive(ctx, userID, true); err != nil {
		s.logger.Error("failed to activate professional", "error", err, "user_id", userID)
		return nil, err
	}
	u.IsActive = true

	s.audit.Record(ctx, &adminID, "professional account validated", u.Email)
	s.logger.Info("professional activated", "user_id", userID, "admin_id", adminID)
	return u, nil
}

// ChangePassword verifies the current password before setting the new one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return ErrNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(dto.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), s.bcryptCost)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		s.logger.Error("failed to update password", "error", err, "user_id", userID)
		return err
	}

	s.audit.Record(ctx, &userID, "password changed", "")
	return nil
}
