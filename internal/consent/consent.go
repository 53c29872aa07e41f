package consent

import (
	"errors"
	"time"
)

// Grant links one patient to one professional with a validity window. There
// is at most one row per (patient, professional) pair; re-granting refreshes
// the existing row instead of creating another.
type Grant struct {
	ID             int64      `json:"id" gorm:"primaryKey"`
	PatientID      int64      `json:"patient_id" gorm:"column:patient_id;not null;uniqueIndex:idx_consent_pair"`
	ProfessionalID int64      `json:"professional_id" gorm:"column:professional_id;not null;uniqueIndex:idx_consent_pair"`
	GrantedAt      time.Time  `json:"granted_at" gorm:"column:granted_at;not null"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty" gorm:"column:expires_at"`
	IsActive       bool       `json:"is_active" gorm:"column:is_active;default:true"`
	IsEmergency    bool       `json:"is_emergency" gorm:"column:is_emergency;default:false"`
}

func (Grant) TableName() string {
	return "consent_grants"
}

// IsValid reports whether the grant authorizes access at the given instant.
// Expiry is evaluated here, lazily, at check time; expired rows are never
// swept or deleted.
func (g *Grant) IsValid(now time.Time) bool {
	if !g.IsActive {
		return false
	}
	if g.ExpiresAt != nil && g.ExpiresAt.Before(now) {
		return false
	}
	return true
}

// Domain errors
var (
	ErrGrantNotFound        = errors.New("authorization not found or already revoked")
	ErrProfessionalNotFound = errors.New("professional not found")
	ErrNotAProfessional     = errors.New("email does not belong to a health professional")
)
