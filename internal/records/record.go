package records

import (
	"errors"
	"time"
)

// ClinicalNote records one consultation: vitals plus the doctor's
// observation and diagnosis. Notes are immutable once written.
type ClinicalNote struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	PatientID     int64     `json:"patient_id" gorm:"column:patient_id;not null;index"`
	DoctorID      int64     `json:"doctor_id" gorm:"column:doctor_id;not null"`
	BloodPressure string    `json:"blood_pressure,omitempty" gorm:"column:blood_pressure"`
	Temperature   *float64  `json:"temperature,omitempty" gorm:"column:temperature"`
	Weight        *float64  `json:"weight,omitempty" gorm:"column:weight"`
	Observation   string    `json:"observation" gorm:"column:observation;not null"`
	Diagnosis     string    `json:"diagnosis,omitempty" gorm:"column:diagnosis"`
	CreatedAt     time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (ClinicalNote) TableName() string {
	return "clinical_notes"
}

// Prescription is immutable once written; the document reference points at
// externally stored content and is never interpreted here.
type Prescription struct {
	ID                int64     `json:"id" gorm:"primaryKey"`
	PatientID         int64     `json:"patient_id" gorm:"column:patient_id;not null;index"`
	DoctorID          int64     `json:"doctor_id" gorm:"column:doctor_id;not null"`
	MedicationDetails string    `json:"medication_details" gorm:"column:medication_details;not null"`
	DocumentRef       string    `json:"document_ref,omitempty" gorm:"column:document_ref"`
	CreatedAt         time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (Prescription) TableName() string {
	return "prescriptions"
}

type TestStatus string

const (
	StatusPending    TestStatus = "pending"
	StatusInProgress TestStatus = "in_progress"
	StatusCompleted  TestStatus = "completed"
	StatusCanceled   TestStatus = "canceled"
)

func ParseTestStatus(s string) (TestStatus, bool) {
	switch TestStatus(s) {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCanceled:
		return TestStatus(s), true
	}
	return "", false
}

// LabTest tracks one ordered exam from prescription to interpreted result.
// PerformedBy starts empty; the first laboratory to upload a result claims
// the test and owns it from then on. The follow-up fields (status, result
// reference, interpretation) are the only mutable parts.
type LabTest struct {
	ID               int64      `json:"id" gorm:"primaryKey"`
	PatientID        int64      `json:"patient_id" gorm:"column:patient_id;not null;index"`
	PrescribedBy     *int64     `json:"prescribed_by,omitempty" gorm:"column:prescribed_by"`
	PerformedBy      *int64     `json:"performed_by,omitempty" gorm:"column:performed_by"`
	TestName         string     `json:"test_name" gorm:"column:test_name;not null"`
	Details          string     `json:"details,omitempty" gorm:"column:details"`
	Status           TestStatus `json:"status" gorm:"column:status;default:pending"`
	ResultDocRef     string     `json:"result_doc_ref,omitempty" gorm:"column:result_doc_ref"`
	ResultUploadedAt *time.Time `json:"result_uploaded_at,omitempty" gorm:"column:result_uploaded_at"`
	Interpretation   string     `json:"interpretation,omitempty" gorm:"column:interpretation"`
	InterpretedBy    *int64     `json:"interpreted_by,omitempty" gorm:"column:interpreted_by"`
	CreatedAt        time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (LabTest) TableName() string {
	return "lab_tests"
}

// OwnedBy reports whether the test is claimed, and if so by someone else.
func (t *LabTest) OwnedByOther(labID int64) bool {
	return t.PerformedBy != nil && *t.PerformedBy != labID
}

// DEP is the aggregated patient record: notes, prescriptions and lab
// results together.
type DEP struct {
	PatientName   string          `json:"patient_name,omitempty"`
	ClinicalNotes []*ClinicalNote `json:"clinical_notes"`
	Prescriptions []*Prescription `json:"prescriptions"`
	LabResults    []*LabTest      `json:"lab_results"`
}

// Domain errors
var (
	ErrAccessDenied   = errors.New("access to the patient record is not authorized or has expired")
	ErrPatientMissing = errors.New("patient not found")
	ErrTestNotFound   = errors.New("lab test not found")
	ErrTestClaimed    = errors.New("lab test is already handled by another laboratory")
	ErrInvalidStatus  = errors.New("invalid lab test status")
)
