package consent_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/santerec/dep-backend/internal/consent"
	"github.com/santerec/dep-backend/internal/user"
)

func TestConsentService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "ConsentService Suite")
}

// Mock repository for testing
type mockConsentRepository struct {
	grants      map[[2]int64]*consent.Grant
	byID        map[int64]*consent.Grant
	upsertError error
	nextID      int64
}

func newMockConsentRepository() *mockConsentRepository {
	return &mockConsentRepository{
		grants: make(map[[2]int64]*consent.Grant),
		byID:   make(map[int64]*consent.Grant),
		nextID: 1,
	}
}

func (m *mockConsentRepository) Upsert(ctx context.Context, grant *consent.Grant) error {
	if m.upsertError != nil {
		return m.upsertError
	}
	key := [2]int64{grant.PatientID, grant.ProfessionalID}
	if existing, ok := m.grants[key]; ok {
		existing.GrantedAt = grant.GrantedAt
		existing.ExpiresAt = grant.ExpiresAt
		existing.IsActive = true
		*grant = *existing
		return nil
	}
	grant.ID = m.nextID
	m.nextID++
	m.grants[key] = grant
	m.byID[grant.ID] = grant
	return nil
}

func (m *mockConsentRepository) GetByPair(ctx context.Context, patientID, professionalID int64) (*consent.Grant, error) {
	grant, ok := m.grants[[2]int64{patientID, professionalID}]
	if !ok {
		return nil, consent.ErrGrantNotFound
	}
	return grant, nil
}

func (m *mockConsentRepository) GetOwnedActive(ctx context.Context, grantID, patientID int64) (*consent.Grant, error) {
	grant, ok := m.byID[grantID]
	if !ok || grant.PatientID != patientID || !grant.IsActive {
		return nil, consent.ErrGrantNotFound
	}
	return grant, nil
}

func (m *mockConsentRepository) Deactivate(ctx context.Context, grantID int64) error {
	if grant, ok := m.byID[grantID]; ok {
		grant.IsActive = false
	}
	return nil
}

func (m *mockConsentRepository) ListByPatient(ctx context.Context, patientID int64) ([]*consent.Grant, error) {
	var out []*consent.Grant
	for _, grant := range m.byID {
		if grant.PatientID == patientID {
			out = append(out, grant)
		}
	}
	return out, nil
}

type mockUserResolver struct {
	usersByEmail map[string]*user.User
}

func (m *mockUserResolver) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	u, ok := m.usersByEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

type recordedEntry struct {
	actorID *int64
	action  string
	detail  string
}

type mockAuditRecorder struct {
	entries []recordedEntry
}

func (m *mockAuditRecorder) Record(ctx context.Context, actorID *int64, action, detail string) {
	m.entries = append(m.entries, recordedEntry{actorID: actorID, action: action, detail: detail})
}

var _ = Describe("ConsentService", func() {
	var (
		service  *consent.Service
		repo     *mockConsentRepository
		resolver *mockUserResolver
		audit    *mockAuditRecorder
	)

	const patientID = int64(42)

	BeforeEach(func() {
		repo = newMockConsentRepository()
		resolver = &mockUserResolver{usersByEmail: map[string]*user.User{
			"doc@example.com": {ID: 7, Email: "doc@example.com", Role: user.RoleDoctor, IsActive: true},
			"lab@example.com": {ID: 8, Email: "lab@example.com", Role: user.RoleLaboratory, IsActive: true},
			"pat@example.com": {ID: 9, Email: "pat@example.com", Role: user.RolePatient, IsActive: true},
		}}
		audit = &mockAuditRecorder{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = consent.NewService(repo, resolver, audit, logger)
	})

	Describe("Grant", func() {
		Context("when granting access to a doctor", func() {
			It("should create an active grant with the requested window", func() {
				dto := consent.GrantAccessDTO{ProfessionalEmail: "doc@example.com", ExpirationDays: 30}

				grant, err := service.Grant(context.Background(), patientID, dto)

				Expect(err).ToNot(HaveOccurred())
				Expect(grant.PatientID).To(Equal(patientID))
				Expect(grant.ProfessionalID).To(Equal(int64(7)))
				Expect(grant.IsActive).To(BeTrue())
				Expect(grant.ExpiresAt).ToNot(BeNil())
				Expect(grant.ExpiresAt.Sub(grant.GrantedAt)).To(BeNumerically("~", 30*24*time.Hour, 25*time.Hour))
			})

			It("should record a consent granted audit entry", func() {
				dto := consent.GrantAccessDTO{ProfessionalEmail: "doc@example.com", ExpirationDays: 30}

				_, err := service.Grant(context.Background(), patientID, dto)

				Expect(err).ToNot(HaveOccurred())
				Expect(audit.entries).To(HaveLen(1))
				Expect(audit.entries[0].action).To(Equal("consent granted"))
				Expect(*audit.entries[0].actorID).To(Equal(patientID))
			})
		})

		Context("when granting to a laboratory", func() {
			It("should accept the laboratory role", func() {
				dto := consent.GrantAccessDTO{ProfessionalEmail: "lab@example.com", ExpirationDays: 7}

				grant, err := service.Grant(context.Background(), patientID, dto)

				Expect(err).ToNot(HaveOccurred())
				Expect(grant.ProfessionalID).To(Equal(int64(8)))
			})
		})

		Context("when the same professional is granted twice", func() {
			It("should refresh the single existing row instead of adding one", func() {
				dto := consent.GrantAccessDTO{ProfessionalEmail: "doc@example.com", ExpirationDays: 7}
				first, err := service.Grant(context.Background(), patientID, dto)
				Expect(err).ToNot(HaveOccurred())

				dto.ExpirationDays = 60
				second, err := service.Grant(context.Background(), patientID, dto)
				Expect(err).ToNot(HaveOccurred())

				Expect(second.ID).To(Equal(first.ID))
				Expect(repo.grants).To(HaveLen(1))
				Expect(second.ExpiresAt.After(first.GrantedAt.AddDate(0, 0, 59))).To(BeTrue())
			})

			It("should report the preserved emergency flag on a refresh", func() {
				granted := time.Now().AddDate(0, 0, -10)
				expires := time.Now().AddDate(0, 0, 20)
				existing := &consent.Grant{
					ID:             99,
					PatientID:      patientID,
					ProfessionalID: 7,
					GrantedAt:      granted,
					ExpiresAt:      &expires,
					IsActive:       true,
					IsEmergency:    true,
				}
				repo.grants[[2]int64{patientID, 7}] = existing
				repo.byID[existing.ID] = existing

				dto := consent.GrantAccessDTO{ProfessionalEmail: "doc@example.com", ExpirationDays: 30}
				refreshed, err := service.Grant(context.Background(), patientID, dto)

				Expect(err).ToNot(HaveOccurred())
				Expect(refreshed.ID).To(Equal(int64(99)))
				Expect(refreshed.IsEmergency).To(BeTrue())
			})

			It("should reactivate a previously revoked grant", func() {
				dto := consent.GrantAccessDTO{ProfessionalEmail: "doc@example.com", ExpirationDays: 7}
				first, err := service.Grant(context.Background(), patientID, dto)
				Expect(err).ToNot(HaveOccurred())

				Expect(service.Revoke(context.Background(), patientID, first.ID)).To(Succeed())

				second, err := service.Grant(context.Background(), patientID, dto)
				Expect(err).ToNot(HaveOccurred())
				Expect(second.IsActive).To(BeTrue())
			})
		})

		Context("when the email is unknown", func() {
			It("should return ErrProfessionalNotFound", func() {
				dto := consent.GrantAccessDTO{ProfessionalEmail: "ghost@example.com", ExpirationDays: 30}

				_, err := service.Grant(context.Background(), patientID, dto)

				Expect(err).To(MatchError(consent.ErrProfessionalNotFound))
			})
		})

		Context("when the email belongs to a patient", func() {
			It("should return ErrNotAProfessional", func() {
				dto := consent.GrantAccessDTO{ProfessionalEmail: "pat@example.com", ExpirationDays: 30}

				_, err := service.Grant(context.Background(), patientID, dto)

				Expect(err).To(MatchError(consent.ErrNotAProfessional))
			})
		})

		Context("when the expiration is out of range", func() {
			It("should reject zero days", func() {
				dto := consent.GrantAccessDTO{ProfessionalEmail: "doc@example.com", ExpirationDays: 0}

				_, err := service.Grant(context.Background(), patientID, dto)

				Expect(err).To(HaveOccurred())
			})

			It("should reject more than a year", func() {
				dto := consent.GrantAccessDTO{ProfessionalEmail: "doc@example.com", ExpirationDays: 366}

				_, err := service.Grant(context.Background(), patientID, dto)

				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Revoke", func() {
		var grantID int64

		BeforeEach(func() {
			dto := consent.GrantAccessDTO{ProfessionalEmail: "doc@example.com", ExpirationDays: 30}
			grant, err := service.Grant(context.Background(), patientID, dto)
			Expect(err).ToNot(HaveOccurred())
			grantID = grant.ID
			audit.entries = nil
		})

		It("should deactivate the grant but keep the row", func() {
			Expect(service.Revoke(context.Background(), patientID, grantID)).To(Succeed())

			stored := repo.byID[grantID]
			Expect(stored).ToNot(BeNil())
			Expect(stored.IsActive).To(BeFalse())
		})

		It("should record a consent revoked audit entry", func() {
			Expect(service.Revoke(context.Background(), patientID, grantID)).To(Succeed())

			Expect(audit.entries).To(HaveLen(1))
			Expect(audit.entries[0].action).To(Equal("consent revoked"))
		})

		It("should report not found for another patient's grant", func() {
			err := service.Revoke(context.Background(), patientID+1, grantID)

			Expect(err).To(MatchError(consent.ErrGrantNotFound))
		})

		It("should report not found for an already revoked grant", func() {
			Expect(service.Revoke(context.Background(), patientID, grantID)).To(Succeed())

			err := service.Revoke(context.Background(), patientID, grantID)

			Expect(err).To(MatchError(consent.ErrGrantNotFound))
		})

		It("should report not found for an unknown grant id", func() {
			err := service.Revoke(context.Background(), patientID, int64(9999))

			Expect(err).To(MatchError(consent.ErrGrantNotFound))
		})
	})
})
