package auth

import (
	"log/slog"
	"net/http"

	"github.com/santerec/dep-backend/internal/user"
)

// RoleAuthorization gates routes on the authenticated user's role tag.
// Roles are matched explicitly; there is no permission hierarchy.
type RoleAuthorization struct {
	logger *slog.Logger
}

func NewRoleAuthorization(logger *slog.Logger) *RoleAuthorization {
	return &RoleAuthorization{logger: logger}
}

func (ra *RoleAuthorization) require(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := user.FromContext(r.Context())
			if !ok || u == nil {
				ra.logger.Warn("authorization check failed: user not found in context")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			for _, role := range roles {
				if u.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			ra.logger.WarnContext(r.Context(), "access denied: role not allowed",
				"user_id", u.ID,
				"role", u.Role,
				"path", r.URL.Path)
			http.Error(w, "Forbidden: insufficient role", http.StatusForbidden)
		})
	}
}

func (ra *RoleAuthorization) RequirePatient() func(http.Handler) http.Handler {
	return ra.require(user.RolePatient)
}

func (ra *RoleAuthorization) RequireDoctor() func(http.Handler) http.Handler {
	return ra.require(user.RoleDoctor)
}

func (ra *RoleAuthorization) RequireLaboratory() func(http.Handler) http.Handler {
	return ra.require(user.RoleLaboratory)
}

// RequireProfessional admits doctors and laboratories both; used for the
// consult-with-check endpoint where either may hold a consent grant.
func (ra *RoleAuthorization) RequireProfessional() func(http.Handler) http.Handler {
	return ra.require(user.RoleDoctor, user.RoleLaboratory)
}

func (ra *RoleAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.require(user.RoleAdmin)
}
