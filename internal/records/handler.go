package records

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/santerec/dep-backend/internal"
	"github.com/santerec/dep-backend/internal/transport"
	"github.com/santerec/dep-backend/internal/user"
	"github.com/santerec/dep-backend/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(service *Service) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// ---- Patient endpoints ----

// GetOwnDEP handles GET /dep/me.
func (h *Handler) GetOwnDEP(w http.ResponseWriter, r *http.Request) {
	patient, ok := user.FromContext(r.Context())
	if !ok || patient == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	dep, err := h.Service.ConsultOwnDEP(r.Context(), patient.ID)
	if err != nil {
		h.Logger.Error("GetOwnDEP: service error", "error", err, "patient_id", patient.ID)
		h.WriteError(w, http.StatusInternalServerError, "failed to load patient record")
		return
	}

	h.WriteJSON(w, http.StatusOK, dep)
}

// ListOwnPrescriptions handles GET /dep/me/prescriptions.
func (h *Handler) ListOwnPrescriptions(w http.ResponseWriter, r *http.Request) {
	patient, ok := user.FromContext(r.Context())
	if !ok || patient == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	prescriptions, err := h.Service.ListOwnPrescriptions(r.Context(), patient.ID)
	if err != nil {
		h.Logger.Error("ListOwnPrescriptions: service error", "error", err, "patient_id", patient.ID)
		h.WriteError(w, http.StatusInternalServerError, "failed to list prescriptions")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"prescriptions": prescriptions})
}

// ListOwnLabResults handles GET /dep/me/lab-results.
func (h *Handler) ListOwnLabResults(w http.ResponseWriter, r *http.Request) {
	patient, ok := user.FromContext(r.Context())
	if !ok || patient == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	results, err := h.Service.ListOwnLabResults(r.Context(), patient.ID)
	if err != nil {
		h.Logger.Error("ListOwnLabResults: service error", "error", err, "patient_id", patient.ID)
		h.WriteError(w, http.StatusInternalServerError, "failed to list lab results")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"lab_results": results})
}

// ---- Professional consult ----

// ConsultDEP handles GET /dep/{patientID}: a professional reads a patient
// record, subject to an active consent grant.
func (h *Handler) ConsultDEP(w http.ResponseWriter, r *http.Request) {
	professional, ok := user.FromContext(r.Context())
	if !ok || professional == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	patientID, err := parseID(r, "patientID")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid patient ID")
		return
	}

	dep, err := h.Service.CheckAndConsult(r.Context(), professional, patientID)
	if err != nil {
		h.writeConsultError(w, err, patientID)
		return
	}

	h.WriteJSON(w, http.StatusOK, dep)
}

// CheckAccess handles GET /access/check?patient_id=: a professional probes
// whether they currently hold valid access to a patient record, and on an
// allow receives the record straight away. The probe passes through the
// decision engine, so it is audited like any other consultation.
func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	professional, ok := user.FromContext(r.Context())
	if !ok || professional == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	patientID, err := strconv.ParseInt(r.URL.Query().Get("patient_id"), 10, 64)
	if err != nil || patientID <= 0 {
		h.HandleServiceError(w, internal.NewValidationFieldError("patient_id", "patient_id is required", internal.ErrCodeMissingField))
		return
	}

	dep, err := h.Service.CheckAndConsult(r.Context(), professional, patientID)
	if err != nil {
		h.writeConsultError(w, err, patientID)
		return
	}

	h.WriteJSON(w, http.StatusOK, dep)
}

func (h *Handler) writeConsultError(w http.ResponseWriter, err error, patientID int64) {
	switch err {
	case ErrPatientMissing:
		h.HandleServiceError(w, internal.NewNotFoundError("patient not found", internal.ErrCodePatientNotFound))
	case ErrAccessDenied:
		h.HandleServiceError(w, internal.NewForbiddenError("access to this patient record is not authorized", internal.ErrCodeAccessDenied))
	default:
		h.Logger.Error("records: consult failed", "error", err, "patient_id", patientID)
		h.HandleServiceError(w, internal.NewInternalError("failed to load patient record", err))
	}
}

// ---- Doctor endpoints ----

// AddNote handles POST /clinical/notes.
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	doctor, ok := user.FromContext(r.Context())
	if !ok || doctor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto AddNoteDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	note, err := h.Service.AddNote(r.Context(), doctor, dto)
	if err != nil {
		h.writeGatedError(w, err, "failed to add clinical note")
		return
	}

	h.WriteJSON(w, http.StatusCreated, note)
}

// CreatePrescription handles POST /clinical/prescriptions.
func (h *Handler) CreatePrescription(w http.ResponseWriter, r *http.Request) {
	doctor, ok := user.FromContext(r.Context())
	if !ok || doctor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreatePrescriptionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	prescription, err := h.Service.CreatePrescription(r.Context(), doctor, dto)
	if err != nil {
		h.writeGatedError(w, err, "failed to create prescription")
		return
	}

	h.WriteJSON(w, http.StatusCreated, prescription)
}

// CreateLabTest handles POST /clinical/lab-tests.
func (h *Handler) CreateLabTest(w http.ResponseWriter, r *http.Request) {
	doctor, ok := user.FromContext(r.Context())
	if !ok || doctor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateLabTestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	test, err := h.Service.CreateLabTest(r.Context(), doctor, dto)
	if err != nil {
		h.writeGatedError(w, err, "failed to order lab test")
		return
	}

	h.WriteJSON(w, http.StatusCreated, test)
}

// InterpretResult handles PATCH /clinical/lab-tests/{id}/interpret.
func (h *Handler) InterpretResult(w http.ResponseWriter, r *http.Request) {
	doctor, ok := user.FromContext(r.Context())
	if !ok || doctor == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	testID, err := parseID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid test ID")
		return
	}

	var dto InterpretResultDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	test, err := h.Service.InterpretResult(r.Context(), doctor, testID, dto)
	if err != nil {
		switch err {
		case ErrTestNotFound:
			h.HandleServiceError(w, internal.NewNotFoundError("lab test not found", internal.ErrCodeTestNotFound))
		case ErrPatientMissing:
			h.HandleServiceError(w, internal.NewNotFoundError("patient not found", internal.ErrCodePatientNotFound))
		case ErrAccessDenied:
			h.HandleServiceError(w, internal.NewForbiddenError("access to this patient record is not authorized", internal.ErrCodeAccessDenied))
		default:
			h.Logger.Error("InterpretResult: service error", "error", err, "test_id", testID)
			h.WriteError(w, http.StatusInternalServerError, "failed to interpret lab result")
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, test)
}

// ---- Laboratory endpoints ----

// ListLabTests handles GET /lab/tests: the laboratory's claimed tests plus
// every unclaimed one.
func (h *Handler) ListLabTests(w http.ResponseWriter, r *http.Request) {
	lab, ok := user.FromContext(r.Context())
	if !ok || lab == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tests, err := h.Service.ListTestsForLab(r.Context(), lab.ID)
	if err != nil {
		h.Logger.Error("ListLabTests: service error", "error", err, "lab_id", lab.ID)
		h.WriteError(w, http.StatusInternalServerError, "failed to list lab tests")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"tests": tests})
}

// SetTestStatus handles PATCH /lab/tests/{id}/status.
func (h *Handler) SetTestStatus(w http.ResponseWriter, r *http.Request) {
	lab, ok := user.FromContext(r.Context())
	if !ok || lab == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	testID, err := parseID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid test ID")
		return
	}

	var dto SetStatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	test, err := h.Service.SetStatus(r.Context(), lab, testID, dto.Status)
	if err != nil {
		switch err {
		case ErrInvalidStatus:
			h.HandleServiceError(w, internal.NewValidationError("invalid lab test status", internal.ErrCodeInvalidStatus))
		case ErrTestNotFound:
			h.HandleServiceError(w, internal.NewNotFoundError("lab test not found", internal.ErrCodeTestNotFound))
		case ErrTestClaimed:
			h.HandleServiceError(w, internal.NewInvalidStateError("lab test is already handled by another laboratory", internal.ErrCodeTestClaimed))
		default:
			h.Logger.Error("SetTestStatus: service error", "error", err, "test_id", testID)
			h.WriteError(w, http.StatusInternalServerError, "failed to update lab test status")
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, test)
}

// UploadResult handles POST /lab/tests/{id}/result.
func (h *Handler) UploadResult(w http.ResponseWriter, r *http.Request) {
	lab, ok := user.FromContext(r.Context())
	if !ok || lab == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	testID, err := parseID(r, "id")
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid test ID")
		return
	}

	var dto UploadResultDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	test, err := h.Service.UploadResult(r.Context(), lab, testID, dto)
	if err != nil {
		switch err {
		case ErrTestNotFound:
			h.HandleServiceError(w, internal.NewNotFoundError("lab test not found", internal.ErrCodeTestNotFound))
		case ErrTestClaimed:
			h.HandleServiceError(w, internal.NewInvalidStateError("lab test is already handled by another laboratory", internal.ErrCodeTestClaimed))
		default:
			h.Logger.Error("UploadResult: service error", "error", err, "test_id", testID)
			h.WriteError(w, http.StatusInternalServerError, "failed to upload lab result")
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, test)
}

// writeGatedError maps the shared error set of the consent-gated doctor
// writes.
func (h *Handler) writeGatedError(w http.ResponseWriter, err error, fallback string) {
	switch err {
	case ErrPatientMissing:
		h.HandleServiceError(w, internal.NewNotFoundError("patient not found", internal.ErrCodePatientNotFound))
	case ErrAccessDenied:
		h.HandleServiceError(w, internal.NewForbiddenError("access to this patient record is not authorized", internal.ErrCodeAccessDenied))
	default:
		h.Logger.Error("records: service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, fallback)
	}
}

func parseID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
