package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/santerec/dep-backend/internal/records"
)

type RecordsRepository struct {
	db *gorm.DB
}

func NewRecordsRepository(db *gorm.DB) *RecordsRepository {
	return &RecordsRepository{db: db}
}

func (r *RecordsRepository) CreateNote(ctx context.Context, note *records.ClinicalNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *RecordsRepository) CreatePrescription(ctx context.Context, p *records.Prescription) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *RecordsRepository) CreateLabTest(ctx context.Context, t *records.LabTest) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *RecordsRepository) GetLabTest(ctx context.Context, id int64) (*records.LabTest, error) {
	var test records.LabTest
	if err := r.db.WithContext(ctx).First(&test, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, records.ErrTestNotFound
		}
		return nil, err
	}
	return &test, nil
}

func (r *RecordsRepository) NotesByPatient(ctx context.Context, patientID int64) ([]*records.ClinicalNote, error) {
	var notes []*records.ClinicalNote
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&notes).Error
	return notes, err
}

func (r *RecordsRepository) PrescriptionsByPatient(ctx context.Context, patientID int64) ([]*records.Prescription, error) {
	var prescriptions []*records.Prescription
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&prescriptions).Error
	return prescriptions, err
}

func (r *RecordsRepository) LabTestsByPatient(ctx context.Context, patientID int64, onlyCompleted bool) ([]*records.LabTest, error) {
	query := r.db.WithContext(ctx).Where("patient_id = ?", patientID)
	if onlyCompleted {
		query = query.Where("status = ?", records.StatusCompleted)
	}

	var tests []*records.LabTest
	err := query.Order("created_at DESC").Find(&tests).Error
	return tests, err
}

func (r *RecordsRepository) LabTestsForLab(ctx context.Context, labID int64) ([]*records.LabTest, error) {
	var tests []*records.LabTest
	err := r.db.WithContext(ctx).
		Where("performed_by IS NULL OR performed_by = ?", labID).
		Order("created_at DESC").
		Find(&tests).Error
	return tests, err
}

// UpdateLabStatus guards the transition at the row level: the update only
// lands while the test is unclaimed or already owned by this laboratory.
func (r *RecordsRepository) UpdateLabStatus(ctx context.Context, testID, labID int64, status records.TestStatus) error {
	result := r.db.WithContext(ctx).
		Model(&records.LabTest{}).
		Where("id = ? AND (performed_by IS NULL OR performed_by = ?)", testID, labID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return records.ErrTestClaimed
	}
	return nil
}

// ClaimAndComplete is the first-claim-wins step: a single conditional
// update stamps performed_by, stores the result reference and forces the
// status to completed. A zero row count means another laboratory got there
// first.
func (r *RecordsRepository) ClaimAndComplete(ctx context.Context, testID, labID int64, docRef string, at time.Time) (*records.LabTest, error) {
	var test records.LabTest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&records.LabTest{}).
			Where("id = ? AND (performed_by IS NULL OR performed_by = ?)", testID, labID).
			Updates(map[string]any{
				"performed_by":       labID,
				"result_doc_ref":     docRef,
				"result_uploaded_at": at,
				"status":             records.StatusCompleted,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return records.ErrTestClaimed
		}
		return tx.First(&test, testID).Error
	})
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *RecordsRepository) SetInterpretation(ctx context.Context, testID, doctorID int64, text string) error {
	return r.db.WithContext(ctx).
		Model(&records.LabTest{}).
		Where("id = ?", testID).
		Updates(map[string]any{
			"interpretation": text,
			"interpreted_by": doctorID,
		}).Error
}
