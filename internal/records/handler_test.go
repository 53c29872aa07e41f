package records_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/santerec/dep-backend/internal/access"
	"github.com/santerec/dep-backend/internal/records"
	"github.com/santerec/dep-backend/internal/user"
)

var _ = Describe("RecordsHandler", func() {
	var (
		handler *records.Handler
		repo    *mockRecordsRepository
		checker *mockAccessChecker
		doctor  *user.User
	)

	const patientID = int64(42)

	BeforeEach(func() {
		repo = newMockRecordsRepository()
		checker = &mockAccessChecker{decisions: map[int64]access.Decision{}}
		patients := &mockPatientDirectory{users: map[int64]*user.User{
			patientID: {ID: patientID, Name: "Durand", ForeName: "Alice", Role: user.RolePatient, IsActive: true},
		}}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service := records.NewService(repo, checker, patients, &mockAuditRecorder{}, logger)
		handler = records.NewHandler(service)

		doctor = &user.User{ID: 7, Role: user.RoleDoctor, IsActive: true}
	})

	checkAccess := func(query string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/access/check"+query, nil)
		req = req.WithContext(user.NewContext(req.Context(), doctor))
		rec := httptest.NewRecorder()
		handler.CheckAccess(rec, req)
		return rec
	}

	Describe("CheckAccess", func() {
		Context("with a valid grant", func() {
			It("should return the aggregated record", func() {
				checker.decisions[patientID] = access.Allow()

				rec := checkAccess("?patient_id=42")

				Expect(rec.Code).To(Equal(http.StatusOK))
				Expect(rec.Body.String()).To(ContainSubstring("Alice Durand"))
			})
		})

		Context("without a grant", func() {
			It("should return 403 and no record data", func() {
				rec := checkAccess("?patient_id=42")

				Expect(rec.Code).To(Equal(http.StatusForbidden))
				Expect(rec.Body.String()).ToNot(ContainSubstring("Alice"))
				Expect(rec.Body.String()).To(ContainSubstring("ACCESS_DENIED"))
			})
		})

		Context("when the patient does not exist", func() {
			It("should return 404", func() {
				rec := checkAccess("?patient_id=777")

				Expect(rec.Code).To(Equal(http.StatusNotFound))
				Expect(rec.Body.String()).To(ContainSubstring("PATIENT_NOT_FOUND"))
			})
		})

		Context("when patient_id is missing", func() {
			It("should return a structured validation error", func() {
				rec := checkAccess("")

				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				Expect(rec.Body.String()).To(ContainSubstring("MISSING_FIELD"))
			})
		})
	})
})
