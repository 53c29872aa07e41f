package rest

import (
	"database/sql"
	"log/slog"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/santerec/dep-backend/internal/audit"
	"github.com/santerec/dep-backend/internal/auth"
	"github.com/santerec/dep-backend/internal/consent"
	"github.com/santerec/dep-backend/internal/records"
	"github.com/santerec/dep-backend/internal/transport/middleware"
	"github.com/santerec/dep-backend/internal/user"
)

// RegisterAllRoutes wires the full API under /api/v1. Role gates run after
// authentication: patients manage consent, professionals consult and write
// records, laboratories process tests, admins approve accounts and read the
// audit trail.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	rbac *auth.RoleAuthorization,
	userHandler *user.Handler,
	consentHandler *consent.Handler,
	recordsHandler *records.Handler,
	auditHandler *audit.Handler,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.Origin)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Public routes
		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", authHandler.Login)
			sr.Post("/refresh", authHandler.RefreshToken)
			sr.Post("/logout", authHandler.Logout)
		})

		r.Route("/register", func(sr chi.Router) {
			sr.Post("/patient", userHandler.RegisterPatient)
			sr.Post("/doctor", userHandler.RegisterDoctor)
			sr.Post("/laboratory", userHandler.RegisterLaboratory)
		})

		// Authenticated routes
		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			pr.Get("/users/me", userHandler.GetCurrentUser)
			pr.Post("/users/me/password", userHandler.ChangePassword)

			// Patient: own record and consent management
			pr.Group(func(patr chi.Router) {
				patr.Use(rbac.RequirePatient())

				patr.Get("/dep/me", recordsHandler.GetOwnDEP)
				patr.Get("/dep/me/prescriptions", recordsHandler.ListOwnPrescriptions)
				patr.Get("/dep/me/lab-results", recordsHandler.ListOwnLabResults)

				patr.Post("/access/grant", consentHandler.GrantAccess)
				patr.Post("/access/{id}/revoke", consentHandler.RevokeAccess)
				patr.Get("/access/grants", consentHandler.ListGrants)
			})

			// Professionals: consult records, probe access
			pr.Group(func(pror chi.Router) {
				pror.Use(rbac.RequireProfessional())

				pror.Get("/dep/{patientID}", recordsHandler.ConsultDEP)
				pror.Get("/access/check", recordsHandler.CheckAccess)
			})

			// Doctor: clinical writes
			pr.Group(func(dr chi.Router) {
				dr.Use(rbac.RequireDoctor())

				dr.Post("/clinical/notes", recordsHandler.AddNote)
				dr.Post("/clinical/prescriptions", recordsHandler.CreatePrescription)
				dr.Post("/clinical/lab-tests", recordsHandler.CreateLabTest)
				dr.Patch("/clinical/lab-tests/{id}/interpret", recordsHandler.InterpretResult)
			})

			// Laboratory: test processing
			pr.Group(func(lr chi.Router) {
				lr.Use(rbac.RequireLaboratory())

				lr.Get("/lab/tests", recordsHandler.ListLabTests)
				lr.Patch("/lab/tests/{id}/status", recordsHandler.SetTestStatus)
				lr.Post("/lab/tests/{id}/result", recordsHandler.UploadResult)
			})

			// Admin: account approval and audit trail
			pr.Group(func(ar chi.Router) {
				ar.Use(rbac.RequireAdmin())

				ar.Get("/admin/pending-professionals", userHandler.ListPendingProfessionals)
				ar.Post("/admin/professionals/{id}/activate", userHandler.ActivateProfessional)
				ar.Get("/admin/audit-logs", auditHandler.ListAuditLogs)
			})
		})
	})
}
