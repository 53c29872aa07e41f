package postgres

import (
	"context"
	"errors"

	"github.com/santerec/dep-backend/internal/consent"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConsentRepository implements the consent.Repository interface using GORM
type ConsentRepository struct {
	db *gorm.DB
}

func NewConsentRepository(db *gorm.DB) consent.Repository {
	return &ConsentRepository{db: db}
}

// Upsert relies on the unique index over (patient_id, professional_id):
// concurrent grants for the same pair collapse into one row, last writer's
// window wins. is_emergency is deliberately left out of the update set so a
// refresh preserves it.
func (r *ConsentRepository) Upsert(ctx context.Context, grant *consent.Grant) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "patient_id"}, {Name: "professional_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"granted_at": grant.GrantedAt,
			"expires_at": grant.ExpiresAt,
			"is_active":  true,
		}),
	}).Create(grant).Error
}

func (r *ConsentRepository) GetByPair(ctx context.Context, patientID, professionalID int64) (*consent.Grant, error) {
	var grant consent.Grant
	err := r.db.WithContext(ctx).
		Where("patient_id = ? AND professional_id = ?", patientID, professionalID).
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, consent.ErrGrantNotFound
		}
		return nil, err
	}
	return &grant, nil
}

func (r *ConsentRepository) GetOwnedActive(ctx context.Context, grantID, patientID int64) (*consent.Grant, error) {
	var grant consent.Grant
	err := r.db.WithContext(ctx).
		Where("id = ? AND patient_id = ? AND is_active = ?", grantID, patientID, true).
		First(&grant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, consent.ErrGrantNotFound
		}
		return nil, err
	}
	return &grant, nil
}

// Deactivate flips is_active off. Rows are never deleted; revocation history
// stays queryable for audit.
func (r *ConsentRepository) Deactivate(ctx context.Context, grantID int64) error {
	return r.db.WithContext(ctx).Model(&consent.Grant{}).
		Where("id = ?", grantID).
		Update("is_active", false).Error
}

func (r *ConsentRepository) ListByPatient(ctx context.Context, patientID int64) ([]*consent.Grant, error) {
	var grants []*consent.Grant
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("granted_at DESC").
		Find(&grants).Error
	return grants, err
}
