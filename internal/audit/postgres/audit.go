package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/santerec/dep-backend/internal/audit"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns entries newest first with the total count for pagination.
func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]*audit.Entry, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&audit.Entry{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*audit.Entry
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
