package user

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/santerec/dep-backend/internal"
	"github.com/santerec/dep-backend/internal/transport"
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

// RegisterPatient handles POST /register/patient. Patient accounts are
// usable immediately.
func (h *Handler) RegisterPatient(w http.ResponseWriter, r *http.Request) {
	var dto RegisterPatientDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.Service.RegisterPatient(r.Context(), dto)
	if err != nil {
		h.writeRegisterError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, created.Sanitize())
}

// RegisterDoctor handles POST /register/doctor. The account stays inactive
// until an administrator approves it.
func (h *Handler) RegisterDoctor(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDoctorDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.Service.RegisterDoctor(r.Context(), dto)
	if err != nil {
		h.writeRegisterError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, created.Sanitize())
}

// RegisterLaboratory handles POST /register/laboratory.
func (h *Handler) RegisterLaboratory(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.Service.RegisterLaboratory(r.Context(), dto)
	if err != nil {
		h.writeRegisterError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, created.Sanitize())
}

// GetCurrentUser handles GET /users/me.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	current, ok := FromContext(r.Context())
	if !ok || current == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	h.WriteJSON(w, http.StatusOK, current.Sanitize())
}

// ChangePassword handles POST /users/me/password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	current, ok := FromContext(r.Context())
	if !ok || current == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto ChangePasswordDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.ChangePassword(r.Context(), current.ID, dto); err != nil {
		switch err {
		case ErrWrongPassword:
			h.HandleServiceError(w, internal.NewValidationError("current password does not match", internal.ErrCodePasswordMismatch))
		case ErrNotFound:
			h.HandleServiceError(w, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound))
		default:
			h.Logger.Error("ChangePassword: service error", "error", err, "user_id", current.ID)
			h.WriteError(w, http.StatusInternalServerError, "failed to change password")
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

// ---- Admin endpoints ----

// ListPendingProfessionals handles GET /admin/pending-professionals.
func (h *Handler) ListPendingProfessionals(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Service.ListPendingProfessionals(r.Context())
	if err != nil {
		h.Logger.Error("ListPendingProfessionals: service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to list pending professionals")
		return
	}

	views := make([]Sanitized, 0, len(pending))
	for _, u := range pending {
		views = append(views, u.Sanitize())
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"professionals": views})
}

// ActivateProfessional handles POST /admin/professionals/{id}/activate.
func (h *Handler) ActivateProfessional(w http.ResponseWriter, r *http.Request) {
	admin, ok := FromContext(r.Context())
	if !ok || admin == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	activated, err := h.Service.ActivateProfessional(r.Context(), admin.ID, userID)
	if err != nil {
		switch err {
		case ErrNotFound:
			h.HandleServiceError(w, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound))
		case ErrNotAPro:
			h.HandleServiceError(w, internal.NewValidationError("user is not a health professional", internal.ErrCodeInvalidRole))
		case ErrAlreadyActive:
			h.HandleServiceError(w, internal.NewConflictError("account is already active", internal.ErrCodeAlreadyActive))
		default:
			h.Logger.Error("ActivateProfessional: service error", "error", err, "user_id", userID)
			h.WriteError(w, http.StatusInternalServerError, "failed to activate account")
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, activated.Sanitize())
}

func (h *Handler) writeRegisterError(w http.ResponseWriter, err error) {
	switch err {
	case ErrEmailTaken:
		h.HandleServiceError(w, internal.NewConflictError("email already registered", internal.ErrCodeEmailTaken))
	default:
		h.Logger.Error("register: service error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to register account")
	}
}
