package records

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/santerec/dep-backend/internal/access"
	"github.com/santerec/dep-backend/internal/user"
)

// Repository defines the data access methods for clinical records.
type Repository interface {
	CreateNote(ctx context.Context, note *ClinicalNote) error
	CreatePrescription(ctx context.Context, p *Prescription) error
	CreateLabTest(ctx context.Context, t *LabTest) error
	GetLabTest(ctx context.Context, id int64) (*LabTest, error)
	NotesByPatient(ctx context.Context, patientID int64) ([]*ClinicalNote, error)
	PrescriptionsByPatient(ctx context.Context, patientID int64) ([]*Prescription, error)
	LabTestsByPatient(ctx context.Context, patientID int64, onlyCompleted bool) ([]*LabTest, error)
	LabTestsForLab(ctx context.Context, labID int64) ([]*LabTest, error)
	// UpdateLabStatus applies the transition only while the test is
	// unclaimed or claimed by this laboratory.
	UpdateLabStatus(ctx context.Context, testID, labID int64, status TestStatus) error
	// ClaimAndComplete atomically stamps performed_by on an unclaimed test
	// (or one already claimed by this laboratory), records the result
	// reference and forces status to completed. Loses to a concurrent
	// claim with ErrTestClaimed.
	ClaimAndComplete(ctx context.Context, testID, labID int64, docRef string, at time.Time) (*LabTest, error)
	SetInterpretation(ctx context.Context, testID, doctorID int64, text string) error
}

// AccessChecker is the access control engine as seen from this service.
type AccessChecker interface {
	CheckAccess(ctx context.Context, professional *user.User, patientID int64, mode access.Mode) (access.Decision, error)
}

// PatientDirectory verifies the target of a gated operation really is a
// patient.
type PatientDirectory interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, actorID *int64, action, detail string)
}

// Service owns the clinical workflow: every professional write against a
// patient's record goes through the access engine first, and nothing is
// written on a deny.
type Service struct {
	repo     Repository
	engine   AccessChecker
	patients PatientDirectory
	audit    AuditRecorder
	logger   *slog.Logger
}

func NewService(repo Repository, engine AccessChecker, patients PatientDirectory, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		engine:   engine,
		patients: patients,
		audit:    audit,
		logger:   logger,
	}
}

// ---- Patient self-service reads ----

// ConsultOwnDEP aggregates the patient's record: all notes and
// prescriptions plus completed lab results.
func (s *Service) ConsultOwnDEP(ctx context.Context, patientID int64) (*DEP, error) {
	notes, err := s.repo.NotesByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	prescriptions, err := s.repo.PrescriptionsByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	labResults, err := s.repo.LabTestsByPatient(ctx, patientID, true)
	if err != nil {
		return nil, err
	}

	return &DEP{
		ClinicalNotes: notes,
		Prescriptions: prescriptions,
		LabResults:    labResults,
	}, nil
}

func (s *Service) ListOwnPrescriptions(ctx context.Context, patientID int64) ([]*Prescription, error) {
	return s.repo.PrescriptionsByPatient(ctx, patientID)
}

// ListOwnLabResults shows the patient finished results only; tests still
// in flight at a laboratory stay hidden.
func (s *Service) ListOwnLabResults(ctx context.Context, patientID int64) ([]*LabTest, error) {
	return s.repo.LabTestsByPatient(ctx, patientID, true)
}

// ---- Professional consult ----

// CheckAndConsult verifies consent and, if allowed, returns the full
// aggregated record. The deny branch carries no record data at all.
func (s *Service) CheckAndConsult(ctx context.Context, professional *user.User, patientID int64) (*DEP, error) {
	patient, err := s.lookupPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	decision, err := s.engine.CheckAccess(ctx, professional, patientID, access.ModeRead)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, ErrAccessDenied
	}

	notes, err := s.repo.NotesByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	prescriptions, err := s.repo.PrescriptionsByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	labResults, err := s.repo.LabTestsByPatient(ctx, patientID, false)
	if err != nil {
		return nil, err
	}

	return &DEP{
		PatientName:   fmt.Sprintf("%s %s", patient.ForeName, patient.Name),
		ClinicalNotes: notes,
		Prescriptions: prescriptions,
		LabResults:    labResults,
	}, nil
}

// ---- Doctor writes, consent-gated ----

// AddNote writes one clinical note, attributed to the acting doctor. Denied
// access leaves no partial record.
func (s *Service) AddNote(ctx context.Context, doctor *user.User, dto AddNoteDTO) (*ClinicalNote, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.gateWrite(ctx, doctor, dto.PatientID); err != nil {
		return nil, err
	}

	note := &ClinicalNote{
		PatientID:     dto.PatientID,
		DoctorID:      doctor.ID,
		BloodPressure: dto.BloodPressure,
		Temperature:   dto.Temperature,
		Weight:        dto.Weight,
		Observation:   dto.Observation,
		Diagnosis:     dto.Diagnosis,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.CreateNote(ctx, note); err != nil {
		s.logger.Error("failed to create clinical note", "error", err, "patient_id", dto.PatientID)
		return nil, err
	}

	s.audit.Record(ctx, &doctor.ID, "clinical note added", fmt.Sprintf("patient=%d note=%d", dto.PatientID, note.ID))
	s.logger.Info("clinical note added", "note_id", note.ID, "patient_id", dto.PatientID, "doctor_id", doctor.ID)
	return note, nil
}

func (s *Service) CreatePrescription(ctx context.Context, doctor *user.User, dto CreatePrescriptionDTO) (*Prescription, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.gateWrite(ctx, doctor, dto.PatientID); err != nil {
		return nil, err
	}

	prescription := &Prescription{
		PatientID:         dto.PatientID,
		DoctorID:          doctor.ID,
		MedicationDetails: dto.MedicationDetails,
		DocumentRef:       dto.DocumentRef,
		CreatedAt:         time.Now(),
	}

	if err := s.repo.CreatePrescription(ctx, prescription); err != nil {
		s.logger.Error("failed to create prescription", "error", err, "patient_id", dto.PatientID)
		return nil, err
	}

	s.audit.Record(ctx, &doctor.ID, "prescription created", fmt.Sprintf("patient=%d prescription=%d", dto.PatientID, prescription.ID))
	return prescription, nil
}

// CreateLabTest orders an exam for a patient. No laboratory is designated;
// the first one to upload a result claims it.
func (s *Service) CreateLabTest(ctx context.Context, doctor *user.User, dto CreateLabTestDTO) (*LabTest, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if err := s.gateWrite(ctx, doctor, dto.PatientID); err != nil {
		return nil, err
	}

	test := &LabTest{
		PatientID:    dto.PatientID,
		PrescribedBy: &doctor.ID,
		TestName:     dto.TestName,
		Details:      dto.Details,
		Status:       StatusPending,
		CreatedAt:    time.Now(),
	}

	if err := s.repo.CreateLabTest(ctx, test); err != nil {
		s.logger.Error("failed to create lab test", "error", err, "patient_id", dto.PatientID)
		return nil, err
	}

	s.audit.Record(ctx, &doctor.ID, "lab test ordered", fmt.Sprintf("patient=%d test=%d", dto.PatientID, test.ID))
	return test, nil
}

// InterpretResult attaches the doctor's reading to a lab test. It needs a
// valid write grant for the test's patient, does not touch the status, and
// is allowed at any status including completed.
func (s *Service) InterpretResult(ctx context.Context, doctor *user.User, testID int64, dto InterpretResultDTO) (*LabTest, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	test, err := s.repo.GetLabTest(ctx, testID)
	if err != nil {
		return nil, ErrTestNotFound
	}

	if err := s.gateWrite(ctx, doctor, test.PatientID); err != nil {
		return nil, err
	}

	if err := s.repo.SetInterpretation(ctx, testID, doctor.ID, dto.Interpretation); err != nil {
		s.logger.Error("failed to set interpretation", "error", err, "test_id", testID)
		return nil, err
	}

	test.Interpretation = dto.Interpretation
	test.InterpretedBy = &doctor.ID

	s.audit.Record(ctx, &doctor.ID, "lab result interpreted", fmt.Sprintf("patient=%d test=%d", test.PatientID, testID))
	return test, nil
}

// ---- Laboratory workflow, ownership-gated ----

// ListTestsForLab returns the tests this laboratory has claimed plus every
// still-unclaimed one.
func (s *Service) ListTestsForLab(ctx context.Context, labID int64) ([]*LabTest, error) {
	return s.repo.LabTestsForLab(ctx, labID)
}

// SetStatus applies an explicit status transition. Once a test is claimed,
// only the owning laboratory may move it.
func (s *Service) SetStatus(ctx context.Context, lab *user.User, testID int64, statusStr string) (*LabTest, error) {
	status, ok := ParseTestStatus(statusStr)
	if !ok {
		return nil, ErrInvalidStatus
	}

	test, err := s.repo.GetLabTest(ctx, testID)
	if err != nil {
		return nil, ErrTestNotFound
	}

	if test.OwnedByOther(lab.ID) {
		s.audit.Record(ctx, &lab.ID, "lab test status change denied", fmt.Sprintf("test=%d owner=%d", testID, *test.PerformedBy))
		return nil, ErrTestClaimed
	}

	if err := s.repo.UpdateLabStatus(ctx, testID, lab.ID, status); err != nil {
		s.logger.Error("failed to update lab test status", "error", err, "test_id", testID)
		return nil, err
	}

	test.Status = status
	s.audit.Record(ctx, &lab.ID, "lab test status updated", fmt.Sprintf("test=%d status=%s", testID, status))
	return test, nil
}

// UploadResult claims the test for this laboratory and completes it in one
// atomic step: first claim wins, the prior status does not matter, and a
// loser gets ErrTestClaimed.
func (s *Service) UploadResult(ctx context.Context, lab *user.User, testID int64, dto UploadResultDTO) (*LabTest, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetLabTest(ctx, testID); err != nil {
		return nil, ErrTestNotFound
	}

	test, err := s.repo.ClaimAndComplete(ctx, testID, lab.ID, dto.DocumentRef, time.Now())
	if err != nil {
		if err == ErrTestClaimed {
			s.audit.Record(ctx, &lab.ID, "lab result upload denied", fmt.Sprintf("test=%d", testID))
		} else {
			s.logger.Error("failed to upload lab result", "error", err, "test_id", testID)
		}
		return nil, err
	}

	s.audit.Record(ctx, &lab.ID, "lab result uploaded", fmt.Sprintf("patient=%d test=%d", test.PatientID, testID))
	s.logger.Info("lab result uploaded", "test_id", testID, "lab_id", lab.ID)
	return test, nil
}

// ---- helpers ----

func (s *Service) lookupPatient(ctx context.Context, patientID int64) (*user.User, error) {
	patient, err := s.patients.GetByID(ctx, patientID)
	if err != nil || patient.Role != user.RolePatient {
		return nil, ErrPatientMissing
	}
	return patient, nil
}

// gateWrite runs the access engine with mode=Write; a deny aborts the
// operation before anything is written.
func (s *Service) gateWrite(ctx context.Context, professional *user.User, patientID int64) error {
	if _, err := s.lookupPatient(ctx, patientID); err != nil {
		return err
	}

	decision, err := s.engine.CheckAccess(ctx, professional, patientID, access.ModeWrite)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return ErrAccessDenied
	}
	return nil
}
