package user_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/santerec/dep-backend/internal/user"
)

func TestUserService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "UserService Suite")
}

// Mock repository for testing
type mockUserRepository struct {
	users        map[int64]*user.User
	usersByEmail map[string]*user.User
	nextID       int64
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:        make(map[int64]*user.User),
		usersByEmail: make(map[string]*user.User),
		nextID:       1,
	}
}

func (m *mockUserRepository) store(u *user.User) error {
	if _, taken := m.usersByEmail[u.Email]; taken {
		return user.ErrEmailTaken
	}
	u.ID = m.nextID
	m.nextID++
	m.users[u.ID] = u
	m.usersByEmail[u.Email] = u
	return nil
}

func (m *mockUserRepository) Create(ctx context.Context, u *user.User) error {
	return m.store(u)
}

func (m *mockUserRepository) CreateWithPatientProfile(ctx context.Context, u *user.User, profile *user.PatientProfile) error {
	return m.store(u)
}

func (m *mockUserRepository) CreateWithDoctorProfile(ctx context.Context, u *user.User, profile *user.DoctorProfile) error {
	return m.store(u)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	u, ok := m.usersByEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepository) ListPendingProfessionals(ctx context.Context) ([]*user.User, error) {
	var out []*user.User
	for id := int64(1); id < m.nextID; id++ {
		u := m.users[id]
		if u != nil && u.Role.IsProfessional() && !u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	if u, ok := m.users[id]; ok {
		u.IsActive = active
	}
	return nil
}

func (m *mockUserRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

type auditCall struct {
	action string
}

type mockAuditRecorder struct {
	calls []auditCall
}

func (m *mockAuditRecorder) Record(ctx context.Context, actorID *int64, action, detail string) {
	m.calls = append(m.calls, auditCall{action: action})
}

func validRegisterDTO(email string) user.RegisterDTO {
	return user.RegisterDTO{
		Email:           email,
		Password:        "secret-password",
		ConfirmPassword: "secret-password",
		Name:            "Durand",
		ForeName:        "Alice",
		Gender:          "F",
	}
}

var _ = Describe("UserService", func() {
	var (
		service *user.Service
		repo    *mockUserRepository
		audit   *mockAuditRecorder
	)

	BeforeEach(func() {
		repo = newMockUserRepository()
		audit = &mockAuditRecorder{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = user.NewService(repo, audit, logger, bcrypt.MinCost)
	})

	Describe("RegisterPatient", func() {
		It("should create an immediately active account", func() {
			dto := user.RegisterPatientDTO{
				RegisterDTO: validRegisterDTO("alice@example.com"),
				BloodGroup:  "O+",
			}

			created, err := service.RegisterPatient(context.Background(), dto)

			Expect(err).ToNot(HaveOccurred())
			Expect(created.Role).To(Equal(user.RolePatient))
			Expect(created.IsActive).To(BeTrue())
		})

		It("should lowercase the email", func() {
			dto := user.RegisterPatientDTO{
				RegisterDTO: validRegisterDTO("Alice@Example.COM"),
				BloodGroup:  "O+",
			}

			created, err := service.RegisterPatient(context.Background(), dto)

			Expect(err).ToNot(HaveOccurred())
			Expect(created.Email).To(Equal("alice@example.com"))
		})

		It("should hash the password", func() {
			dto := user.RegisterPatientDTO{
				RegisterDTO: validRegisterDTO("alice@example.com"),
				BloodGroup:  "O+",
			}

			created, err := service.RegisterPatient(context.Background(), dto)

			Expect(err).ToNot(HaveOccurred())
			Expect(created.PasswordHash).ToNot(Equal("secret-password"))
			Expect(bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("secret-password"))).To(Succeed())
		})

		It("should reject an invalid blood group", func() {
			dto := user.RegisterPatientDTO{
				RegisterDTO: validRegisterDTO("alice@example.com"),
				BloodGroup:  "Q+",
			}

			_, err := service.RegisterPatient(context.Background(), dto)

			Expect(err).To(HaveOccurred())
		})

		It("should reject a mismatched confirmation", func() {
			base := validRegisterDTO("alice@example.com")
			base.ConfirmPassword = "something-else"
			dto := user.RegisterPatientDTO{RegisterDTO: base, BloodGroup: "O+"}

			_, err := service.RegisterPatient(context.Background(), dto)

			Expect(err).To(HaveOccurred())
		})

		It("should surface a duplicate email", func() {
			dto := user.RegisterPatientDTO{
				RegisterDTO: validRegisterDTO("alice@example.com"),
				BloodGroup:  "O+",
			}
			_, err := service.RegisterPatient(context.Background(), dto)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RegisterPatient(context.Background(), dto)

			Expect(err).To(MatchError(user.ErrEmailTaken))
		})
	})

	Describe("RegisterDoctor", func() {
		It("should create an inactive account pending validation", func() {
			dto := user.RegisterDoctorDTO{
				RegisterDTO: validRegisterDTO("doc@example.com"),
				Hospital:    "General Hospital",
			}

			created, err := service.RegisterDoctor(context.Background(), dto)

			Expect(err).ToNot(HaveOccurred())
			Expect(created.Role).To(Equal(user.RoleDoctor))
			Expect(created.IsActive).To(BeFalse())
		})
	})

	Describe("RegisterLaboratory", func() {
		It("should create an inactive account pending validation", func() {
			created, err := service.RegisterLaboratory(context.Background(), validRegisterDTO("lab@example.com"))

			Expect(err).ToNot(HaveOccurred())
			Expect(created.Role).To(Equal(user.RoleLaboratory))
			Expect(created.IsActive).To(BeFalse())
		})
	})

	Describe("ActivateProfessional", func() {
		var doctorID int64

		BeforeEach(func() {
			created, err := service.RegisterDoctor(context.Background(), user.RegisterDoctorDTO{
				RegisterDTO: validRegisterDTO("doc@example.com"),
			})
			Expect(err).ToNot(HaveOccurred())
			doctorID = created.ID
			audit.calls = nil
		})

		It("should activate a pending professional", func() {
			activated, err := service.ActivateProfessional(context.Background(), int64(99), doctorID)

			Expect(err).ToNot(HaveOccurred())
			Expect(activated.IsActive).To(BeTrue())
			Expect(audit.calls).To(HaveLen(1))
			Expect(audit.calls[0].action).To(Equal("professional account validated"))
		})

		It("should refuse to activate twice", func() {
			_, err := service.ActivateProfessional(context.Background(), int64(99), doctorID)
			Expect(err).ToNot(HaveOccurred())

			_, err = service.ActivateProfessional(context.Background(), int64(99), doctorID)

			Expect(err).To(MatchError(user.ErrAlreadyActive))
		})

		It("should refuse a patient account", func() {
			patient, err := service.RegisterPatient(context.Background(), user.RegisterPatientDTO{
				RegisterDTO: validRegisterDTO("alice@example.com"),
				BloodGroup:  "O+",
			})
			Expect(err).ToNot(HaveOccurred())

			_, err = service.ActivateProfessional(context.Background(), int64(99), patient.ID)

			Expect(err).To(MatchError(user.ErrNotAPro))
		})

		It("should report an unknown user as not found", func() {
			_, err := service.ActivateProfessional(context.Background(), int64(99), int64(12345))

			Expect(err).To(MatchError(user.ErrNotFound))
		})
	})

	Describe("ListPendingProfessionals", func() {
		It("should return inactive professionals in registration order", func() {
			_, err := service.RegisterDoctor(context.Background(), user.RegisterDoctorDTO{
				RegisterDTO: validRegisterDTO("doc@example.com"),
			})
			Expect(err).ToNot(HaveOccurred())
			_, err = service.RegisterLaboratory(context.Background(), validRegisterDTO("lab@example.com"))
			Expect(err).ToNot(HaveOccurred())
			_, err = service.RegisterPatient(context.Background(), user.RegisterPatientDTO{
				RegisterDTO: validRegisterDTO("alice@example.com"),
				BloodGroup:  "O+",
			})
			Expect(err).ToNot(HaveOccurred())

			pending, err := service.ListPendingProfessionals(context.Background())

			Expect(err).ToNot(HaveOccurred())
			Expect(pending).To(HaveLen(2))
			Expect(pending[0].Email).To(Equal("doc@example.com"))
			Expect(pending[1].Email).To(Equal("lab@example.com"))
		})
	})

	Describe("ChangePassword", func() {
		var patientID int64

		BeforeEach(func() {
			created, err := service.RegisterPatient(context.Background(), user.RegisterPatientDTO{
				RegisterDTO: validRegisterDTO("alice@example.com"),
				BloodGroup:  "O+",
			})
			Expect(err).ToNot(HaveOccurred())
			patientID = created.ID
		})

		It("should replace the hash when the current password matches", func() {
			err := service.ChangePassword(context.Background(), patientID, user.ChangePasswordDTO{
				CurrentPassword: "secret-password",
				NewPassword:     "another-password",
				ConfirmPassword: "another-password",
			})

			Expect(err).ToNot(HaveOccurred())
			stored := repo.users[patientID]
			Expect(bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("another-password"))).To(Succeed())
		})

		It("should reject a wrong current password", func() {
			err := service.ChangePassword(context.Background(), patientID, user.ChangePasswordDTO{
				CurrentPassword: "wrong",
				NewPassword:     "another-password",
				ConfirmPassword: "another-password",
			})

			Expect(err).To(MatchError(user.ErrWrongPassword))
		})
	})
})
