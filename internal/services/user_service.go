package services

import (
	"context"
	"crypto/rand"
	"math/big"
	"regexp"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
	"github.com/kazesawa-dev/certtrack/internal/models"
	"github.com/kazesawa-dev/certtrack/internal/repository"
	"github.com/kazesawa-dev/certtrack/pkg/logger"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const initialPasswordLength = 8

// CreateUserRequest is an admin request to provision an account.
type CreateUserRequest struct {
	Email string
	Name  string
	Role  models.Role
}

// UpdateUserRequest patches an account; nil fields are left unchanged.
type UpdateUserRequest struct {
	Email *string
	Name  *string
	Role  *models.Role
}

// UserService encapsulates administrator-driven user management.
type UserService struct {
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	audit    *AuditService
}

// NewUserService creates a new instance of UserService.
func NewUserService(users *repository.UserRepository, sessions *repository.SessionRepository, audit *AuditService) *UserService {
	return &UserService{
		users:    users,
		sessions: sessions,
		audit:    audit,
	}
}

// CreateUser provisions an account with a generated initial password. The
// password is returned exactly once and must be changed on first login.
func (s *UserService) CreateUser(ctx context.Context, actorID string, req CreateUserRequest) (*models.PublicUser, string, error) {
	if req.Email == "" || req.Name == "" {
		return nil, "", apperrors.Validationf("email and name are required")
	}
	if !emailRegex.MatchString(req.Email) {
		return nil, "", apperrors.Validationf("invalid email format")
	}
	if req.Role != models.RoleAdmin && req.Role != models.RoleMember {
		return nil, "", apperrors.Validationf("unknown role %q", req.Role)
	}

	usersData, rev, err := s.users.Load(ctx)
	if err != nil {
		return nil, "", err
	}
	if usersData.FindByEmail(req.Email) != nil {
		logger.Log.WithField("email", req.Email).Warn("Email already in use")
		return nil, "", apperrors.Conflictf("email %s already exists", req.Email)
	}

	initialPassword, err := generateInitialPassword(initialPasswordLength)
	if err != nil {
		return nil, "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(initialPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", apperrors.StorageIOf("hash password: %v", err)
	}

	now := time.Now()
	user := models.User{
		ID:                     uuid.NewString(),
		Email:                  req.Email,
		Name:                   req.Name,
		Role:                   req.Role,
		PasswordHash:           string(hashed),
		RequiresPasswordChange: true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	usersData.Users = append(usersData.Users, user)

	if _, err := s.users.Save(ctx, usersData, rev); err != nil {
		return nil, "", err
	}

	s.audit.Record(ctx, AuditEntry{Actor: actorID, Action: "create_user", Resource: ResourceUsers, ResourceID: user.ID, After: user.Public()})
	logger.Log.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User created")

	public := user.Public()
	return &public, initialPassword, nil
}

// UpdateUser patches an account.
func (s *UserService) UpdateUser(ctx context.Context, actorID, userID string, req UpdateUserRequest) (*models.PublicUser, error) {
	usersData, rev, err := s.users.Load(ctx)
	if err != nil {
		return nil, err
	}

	user := usersData.FindByID(userID)
	if user == nil {
		return nil, apperrors.NotFoundf("user %s", userID)
	}
	before := user.Public()

	if req.Email != nil && *req.Email != user.Email {
		if !emailRegex.MatchString(*req.Email) {
			return nil, apperrors.Validationf("invalid email format")
		}
		if existing := usersData.FindByEmail(*req.Email); existing != nil && existing.ID != userID {
			return nil, apperrors.Conflictf("email %s already exists", *req.Email)
		}
		user.Email = *req.Email
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		if *req.Role != models.RoleAdmin && *req.Role != models.RoleMember {
			return nil, apperrors.Validationf("unknown role %q", *req.Role)
		}
		user.Role = *req.Role
	}
	user.UpdatedAt = time.Now()

	if _, err := s.users.Save(ctx, usersData, rev); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{Actor: actorID, Action: "update_user", Resource: ResourceUsers, ResourceID: userID, Before: before, After: user.Public()})

	public := user.Public()
	return &public, nil
}

// DeleteUser removes the account and all of its sessions.
func (s *UserService) DeleteUser(ctx context.Context, actorID, userID string) error {
	usersData, rev, err := s.users.Load(ctx)
	if err != nil {
		return err
	}

	found := false
	kept := usersData.Users[:0]
	for _, user := range usersData.Users {
		if user.ID == userID {
			found = true
			continue
		}
		kept = append(kept, user)
	}
	if !found {
		return apperrors.NotFoundf("user %s", userID)
	}
	usersData.Users = kept

	if _, err := s.users.Save(ctx, usersData, rev); err != nil {
		return err
	}

	// Cascade: drop the user's sessions so the deleted account cannot
	// keep authenticating.
	sessionsData, sessionsRev, err := s.sessions.Load(ctx)
	if err != nil {
		return err
	}
	keptSessions := sessionsData.Sessions[:0]
	for _, session := range sessionsData.Sessions {
		if session.UserID != userID {
			keptSessions = append(keptSessions, session)
		}
	}
	sessionsData.Sessions = keptSessions
	if _, err := s.sessions.Save(ctx, sessionsData, sessionsRev); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{Actor: actorID, Action: "delete_user", Resource: ResourceUsers, ResourceID: userID})
	logger.Log.WithField("user_id", userID).Info("User deleted")
	return nil
}

// GetUser retrieves one account, without the password hash.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	usersData, _, err := s.users.Load(ctx)
	if err != nil {
		return nil, err
	}

	user := usersData.FindByID(userID)
	if user == nil {
		return nil, apperrors.NotFoundf("user %s", userID)
	}

	public := user.Public()
	return &public, nil
}

// ListUsers returns every account, without password hashes.
func (s *UserService) ListUsers(ctx context.Context) ([]models.PublicUser, error) {
	usersData, _, err := s.users.Load(ctx)
	if err != nil {
		return nil, err
	}

	users := make([]models.PublicUser, 0, len(usersData.Users))
	for i := range usersData.Users {
		users = append(users, usersData.Users[i].Public())
	}
	return users, nil
}

const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func generateInitialPassword(length int) (string, error) {
	password := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range password {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", apperrors.StorageIOf("generate password: %v", err)
		}
		password[i] = passwordAlphabet[n.Int64()]
	}
	return string(password), nil
}
