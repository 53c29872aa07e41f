package auth_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/santerec/dep-backend/internal/auth"
	"github.com/santerec/dep-backend/internal/user"
)

func TestAuth(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Auth Suite")
}

type mockUserStore struct {
	usersByEmail map[string]*user.User
	usersByID    map[int64]*user.User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{
		usersByEmail: make(map[string]*user.User),
		usersByID:    make(map[int64]*user.User),
	}
}

func (m *mockUserStore) add(u *user.User) {
	m.usersByEmail[u.Email] = u
	m.usersByID[u.ID] = u
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	u, ok := m.usersByEmail[email]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserStore) GetByID(ctx context.Context, id int64) (*user.User, error) {
	u, ok := m.usersByID[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

type mockAuditRecorder struct {
	actions []string
}

func (m *mockAuditRecorder) Record(ctx context.Context, actorID *int64, action, detail string) {
	m.actions = append(m.actions, action)
}

var _ = Describe("AuthService", func() {
	var (
		service *auth.Service
		store   *mockUserStore
		audit   *mockAuditRecorder
	)

	const (
		accessSecret  = "test-access-secret-0123456789-0123456789"
		refreshSecret = "test-refresh-secret-0123456789-0123456789"
	)

	newUser := func(id int64, email, password string, role user.Role, active bool) *user.User {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		Expect(err).ToNot(HaveOccurred())
		return &user.User{
			ID:           id,
			Email:        email,
			PasswordHash: string(hash),
			Role:         role,
			IsActive:     active,
		}
	}

	BeforeEach(func() {
		store = newMockUserStore()
		audit = &mockAuditRecorder{}
		tokenGen := auth.NewJWTTokenGenerator(accessSecret, refreshSecret, 15*time.Minute, 7*24*time.Hour)
		service = auth.NewService(store, tokenGen, audit)

		store.add(newUser(1, "alice@example.com", "correct-password", user.RolePatient, true))
		store.add(newUser(2, "pending@example.com", "correct-password", user.RoleDoctor, false))
	})

	Describe("Authenticate", func() {
		Context("with valid credentials", func() {
			It("should return an access and a refresh token", func() {
				tokens, err := service.Authenticate(context.Background(), auth.LoginDTO{
					Email:    "alice@example.com",
					Password: "correct-password",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(tokens.AccessToken).ToNot(BeEmpty())
				Expect(tokens.RefreshToken).ToNot(BeEmpty())
				Expect(tokens.AccessToken).ToNot(Equal(tokens.RefreshToken))
			})

			It("should embed identity and role in the access token", func() {
				tokens, err := service.Authenticate(context.Background(), auth.LoginDTO{
					Email:    "alice@example.com",
					Password: "correct-password",
				})
				Expect(err).ToNot(HaveOccurred())

				claims, err := service.ValidateAccessToken(tokens.AccessToken)

				Expect(err).ToNot(HaveOccurred())
				Expect(claims.UserID).To(Equal("1"))
				Expect(claims.Email).To(Equal("alice@example.com"))
				Expect(claims.Role).To(Equal("patient"))
			})

			It("should audit the login", func() {
				_, err := service.Authenticate(context.Background(), auth.LoginDTO{
					Email:    "alice@example.com",
					Password: "correct-password",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(audit.actions).To(ContainElement("login succeeded"))
			})
		})

		Context("with bad credentials", func() {
			It("should reject a wrong password", func() {
				_, err := service.Authenticate(context.Background(), auth.LoginDTO{
					Email:    "alice@example.com",
					Password: "wrong",
				})

				Expect(err).To(MatchError(auth.ErrInvalidCredentials))
			})

			It("should reject an unknown email with the same error", func() {
				_, err := service.Authenticate(context.Background(), auth.LoginDTO{
					Email:    "ghost@example.com",
					Password: "correct-password",
				})

				Expect(err).To(MatchError(auth.ErrInvalidCredentials))
			})
		})

		Context("with a pending professional account", func() {
			It("should refuse login until validated", func() {
				_, err := service.Authenticate(context.Background(), auth.LoginDTO{
					Email:    "pending@example.com",
					Password: "correct-password",
				})

				Expect(err).To(MatchError(auth.ErrUserInactive))
			})
		})
	})

	Describe("RefreshTokens", func() {
		It("should rotate a valid refresh token", func() {
			tokens, err := service.Authenticate(context.Background(), auth.LoginDTO{
				Email:    "alice@example.com",
				Password: "correct-password",
			})
			Expect(err).ToNot(HaveOccurred())

			rotated, err := service.RefreshTokens(context.Background(), tokens.RefreshToken)

			Expect(err).ToNot(HaveOccurred())
			Expect(rotated.AccessToken).ToNot(BeEmpty())
		})

		It("should reject garbage", func() {
			_, err := service.RefreshTokens(context.Background(), "not-a-token")

			Expect(err).To(MatchError(auth.ErrInvalidToken))
		})

		It("should refuse rotation for a deactivated account", func() {
			tokens, err := service.Authenticate(context.Background(), auth.LoginDTO{
				Email:    "alice@example.com",
				Password: "correct-password",
			})
			Expect(err).ToNot(HaveOccurred())

			store.usersByID[1].IsActive = false

			_, err = service.RefreshTokens(context.Background(), tokens.RefreshToken)

			Expect(err).To(MatchError(auth.ErrUserInactive))
		})
	})

	Describe("GetActiveUser", func() {
		It("should return the current user row", func() {
			u, err := service.GetActiveUser(context.Background(), 1)

			Expect(err).ToNot(HaveOccurred())
			Expect(u.Email).To(Equal("alice@example.com"))
		})

		It("should refuse an inactive account", func() {
			_, err := service.GetActiveUser(context.Background(), 2)

			Expect(err).To(MatchError(auth.ErrUserInactive))
		})
	})
})
