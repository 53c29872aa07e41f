package records

import "errors"

// AddNoteDTO is the doctor's consultation entry for a patient.
type AddNoteDTO struct {
	PatientID     int64    `json:"patient_id" validate:"required"`
	BloodPressure string   `json:"blood_pressure,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	Observation   string   `json:"observation" validate:"required"`
	Diagnosis     string   `json:"diagnosis,omitempty"`
}

func (dto AddNoteDTO) Validate() error {
	if dto.PatientID == 0 {
		return errors.New("patient_id is required")
	}
	if dto.Observation == "" {
		return errors.New("observation is required")
	}
	return nil
}

type CreatePrescriptionDTO struct {
	PatientID         int64  `json:"patient_id" validate:"required"`
	MedicationDetails string `json:"medication_details" validate:"required"`
	DocumentRef       string `json:"document_ref,omitempty"`
}

func (dto CreatePrescriptionDTO) Validate() error {
	if dto.PatientID == 0 {
		return errors.New("patient_id is required")
	}
	if dto.MedicationDetails == "" {
		return errors.New("medication_details is required")
	}
	return nil
}

type CreateLabTestDTO struct {
	PatientID int64  `json:"patient_id" validate:"required"`
	TestName  string `json:"test_name" validate:"required,max=100"`
	Details   string `json:"details,omitempty"`
}

func (dto CreateLabTestDTO) Validate() error {
	if dto.PatientID == 0 {
		return errors.New("patient_id is required")
	}
	if dto.TestName == "" {
		return errors.New("test_name is required")
	}
	if len(dto.TestName) > 100 {
		return errors.New("test_name must not exceed 100 characters")
	}
	return nil
}

type InterpretResultDTO struct {
	Interpretation string `json:"interpretation" validate:"required"`
}

func (dto InterpretResultDTO) Validate() error {
	if dto.Interpretation == "" {
		return errors.New("interpretation is required")
	}
	return nil
}

type SetStatusDTO struct {
	Status string `json:"status" validate:"required"`
}

// UploadResultDTO carries the stored document reference; file transport and
// storage mechanics live outside this service.
type UploadResultDTO struct {
	DocumentRef string `json:"document_ref" validate:"required"`
}

func (dto UploadResultDTO) Validate() error {
	if dto.DocumentRef == "" {
		return errors.New("document_ref is required")
	}
	return nil
}
