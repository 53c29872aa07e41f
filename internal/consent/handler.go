package consent

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

// GrantAccess handles POST /access/grant for the authenticated patient.
func (h *Handler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	patient, ok := user.FromContext(r.Context())
	if !ok || patient == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto GrantAccessDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	grant, err := h.Service.Grant(r.Context(), patient.ID, dto)
	if err != nil {
		h.Logger.Error("GrantAccess: service error", "error", err, "patient_id", patient.ID)

		switch err {
		case ErrProfessionalNotFound:
			h.HandleServiceError(w, internal.NewNotFoundError("professional not found", internal.ErrCodeUserNotFound))
		case ErrNotAProfessional:
			h.HandleServiceError(w, internal.NewValidationError("email does not belong to a health professional", internal.ErrCodeInvalidRole))
		default:
			h.WriteError(w, http.StatusInternalServerError, "failed to grant access")
		}
		return
	}

	h.WriteJSON(w, http.StatusCreated, grant)
}

// RevokeAccess handles POST /access/{id}/revoke.
func (h *Handler) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	patient, ok := user.FromContext(r.Context())
	if !ok || patient == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	grantIDStr := chi.URLParam(r, "id")
	grantID, err := strconv.ParseInt(grantIDStr, 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid grant ID")
		return
	}

	if err := h.Service.Revoke(r.Context(), patient.ID, grantID); err != nil {
		h.Logger.Error("RevokeAccess: service error", "error", err, "grant_id", grantID, "patient_id", patient.ID)

		switch err {
		case ErrGrantNotFound:
			h.HandleServiceError(w, internal.NewNotFoundError("authorization not found or already revoked", internal.ErrCodeGrantNotFound))
		default:
			h.WriteError(w, http.StatusInternalServerError, "failed to revoke access")
		}
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// ListGrants handles GET /access/grants: the patient reviews every grant
// they have issued.
func (h *Handler) ListGrants(w http.ResponseWriter, r *http.Request) {
	patient, ok := user.FromContext(r.Context())
	if !ok || patient == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	grants, err := h.Service.ListForPatient(r.Context(), patient.ID)
	if err != nil {
		h.Logger.Error("ListGrants: service error", "error", err, "patient_id", patient.ID)
		h.WriteError(w, http.StatusInternalServerError, "failed to list grants")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"grants": grants})
}
