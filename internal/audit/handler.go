package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/santerec/dep-backend/internal/transport"
	"github.com/santerec/dep-backend/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		repo:        repo,
	}
}

// ListAuditLogs handles GET /admin/audit-logs with limit/offset paging.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, total, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		h.Logger.Error("ListAuditLogs: repository error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to list audit logs")
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
