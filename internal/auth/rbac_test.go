package auth_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/santerec/dep-backend/internal/auth"
	"github.com/santerec/dep-backend/internal/user"
)

var _ = Describe("RoleAuthorization", func() {
	var rbac *auth.RoleAuthorization

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		rbac = auth.NewRoleAuthorization(logger)
	})

	serve := func(gate func(http.Handler) http.Handler, u *user.User) *httptest.ResponseRecorder {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if u != nil {
			req = req.WithContext(user.NewContext(req.Context(), u))
		}
		rec := httptest.NewRecorder()
		gate(next).ServeHTTP(rec, req)
		return rec
	}

	It("should admit a user carrying the required role", func() {
		rec := serve(rbac.RequireDoctor(), &user.User{ID: 7, Role: user.RoleDoctor})

		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should reject a user with another role", func() {
		rec := serve(rbac.RequireDoctor(), &user.User{ID: 42, Role: user.RolePatient})

		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("should admit both professional roles on the professional gate", func() {
		Expect(serve(rbac.RequireProfessional(), &user.User{ID: 7, Role: user.RoleDoctor}).Code).To(Equal(http.StatusOK))
		Expect(serve(rbac.RequireProfessional(), &user.User{ID: 8, Role: user.RoleLaboratory}).Code).To(Equal(http.StatusOK))
	})

	It("should reject a request without an authenticated user", func() {
		rec := serve(rbac.RequireAdmin(), nil)

		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})
})
