package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kazesawa-dev/certtrack/internal/models"
	"github.com/kazesawa-dev/certtrack/internal/repository"
	"github.com/kazesawa-dev/certtrack/internal/storage"
	"github.com/kazesawa-dev/certtrack/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// testEnv wires every service against a file store in a temp directory.
type testEnv struct {
	users         *repository.UserRepository
	sessions      *repository.SessionRepository
	certs         *repository.CertificationRepository
	plans         *repository.PlanRepository
	achievements  *repository.AchievementRepository
	notifications *repository.NotificationRepository

	audit           *AuditService
	auth            *AuthService
	authz           *AuthzService
	userService     *UserService
	certService     *CertificationService
	planService     *PlanService
	achievementSvc  *AchievementService
	notificationSvc *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir(), t.TempDir())
	require.NoError(t, err)

	env := &testEnv{
		users:         repository.NewUserRepository(store),
		sessions:      repository.NewSessionRepository(store),
		certs:         repository.NewCertificationRepository(store),
		plans:         repository.NewPlanRepository(store),
		achievements:  repository.NewAchievementRepository(store),
		notifications: repository.NewNotificationRepository(store),
	}
	env.audit = NewAuditService()
	env.auth = NewAuthService(env.users, env.sessions, env.audit)
	env.authz = NewAuthzService(env.auth)
	env.userService = NewUserService(env.users, env.sessions, env.audit)
	env.notificationSvc = NewNotificationService(env.notifications, env.plans, env.achievements, env.certs, env.users)
	env.certService = NewCertificationService(env.certs, env.plans, env.achievements, env.notificationSvc, env.audit)
	env.planService = NewPlanService(env.plans, env.certs, env.audit)
	env.achievementSvc = NewAchievementService(env.achievements, env.certs, env.notificationSvc, env.audit)
	return env
}

// seedUser inserts a user directly so tests do not pay the default bcrypt
// cost; MinCost is enough for a fixture.
func seedUser(t *testing.T, env *testEnv, name, email string, role models.Role, password string) models.User {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now()
	user := models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: string(hashed),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	ctx := context.Background()
	data, rev, err := env.users.Load(ctx)
	require.NoError(t, err)
	data.Users = append(data.Users, user)
	_, err = env.users.Save(ctx, data, rev)
	require.NoError(t, err)
	return user
}

func seedSession(t *testing.T, env *testEnv, userID string) string {
	t.Helper()

	now := time.Now()
	session := models.Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
		IsActive:  true,
	}

	ctx := context.Background()
	data, rev, err := env.sessions.Load(ctx)
	require.NoError(t, err)
	data.Sessions = append(data.Sessions, session)
	_, err = env.sessions.Save(ctx, data, rev)
	require.NoError(t, err)
	return session.SessionID
}

// seedCertification inserts a catalog entry directly, bypassing the
// new-certification broadcast.
func seedCertification(t *testing.T, env *testEnv, name string) models.Certification {
	t.Helper()

	now := time.Now()
	cert := models.Certification{
		ID:         uuid.NewString(),
		Name:       name,
		Issuer:     "Test Issuer",
		Category:   models.CategoryCloud,
		Difficulty: 3,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	ctx := context.Background()
	data, rev, err := env.certs.Load(ctx)
	require.NoError(t, err)
	data.Certifications = append(data.Certifications, cert)
	_, err = env.certs.Save(ctx, data, rev)
	require.NoError(t, err)
	return cert
}
