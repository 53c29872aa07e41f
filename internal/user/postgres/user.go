package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/santerec/dep-backend/internal/user"
	"gorm.io/gorm"
)

// UserRepository implements the user.Repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// CreateWithPatientProfile writes the identity row and its patient profile
// in one transaction so an aborted registration leaves nothing behind.
func (r *UserRepository) CreateWithPatientProfile(ctx context.Context, u *user.User, profile *user.PatientProfile) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		profile.UserID = u.ID
		return tx.Create(profile).Error
	})
	return translateError(err)
}

func (r *UserRepository) CreateWithDoctorProfile(ctx context.Context, u *user.User, profile *user.DoctorProfile) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		profile.UserID = u.ID
		return tx.Create(profile).Error
	})
	return translateError(err)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ListPendingProfessionals returns inactive doctor/laboratory accounts in
// registration order, so validation is FIFO.
func (r *UserRepository) ListPendingProfessionals(ctx context.Context) ([]*user.User, error) {
	var users []*user.User
	err := r.db.WithContext(ctx).
		Where("role IN ?", []user.Role{user.RoleDoctor, user.RoleLaboratory}).
		Where("is_active = ?", false).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.db.WithContext(ctx).Model(&user.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now(),
		}).Error
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.db.WithContext(ctx).Model(&user.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash": hash,
			"updated_at":    time.Now(),
		}).Error
}

// translateError maps the unique-constraint violation on users.email to the
// domain error so handlers can answer 409 without leaking driver details.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return user.ErrEmailTaken
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return user.ErrEmailTaken
	}
	return err
}
