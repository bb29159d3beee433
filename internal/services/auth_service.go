package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
	"github.com/kazesawa-dev/certtrack/internal/models"
	"github.com/kazesawa-dev/certtrack/internal/repository"
	"github.com/kazesawa-dev/certtrack/pkg/logger"
)

const sessionTTL = 24 * time.Hour

// AuthResult is returned on a successful login.
type AuthResult struct {
	SessionID              string
	User                   models.PublicUser
	RequiresPasswordChange bool
}

// AuthService issues, validates and revokes bearer sessions against the user
// collection.
type AuthService struct {
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	audit    *AuditService
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(users *repository.UserRepository, sessions *repository.SessionRepository, audit *AuditService) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		audit:    audit,
	}
}

// Login verifies credentials and opens a 24h session. Unknown email and
// wrong password return the same error so accounts cannot be enumerated.
//
// The session append and the lastLoginAt stamp are two independent
// collection writes; a crash between them leaves a session without the
// login stamp.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	usersData, usersRev, err := s.users.Load(ctx)
	if err != nil {
		return nil, err
	}

	user := usersData.FindByEmail(email)
	if user == nil {
		logger.Log.WithField("email", email).Warn("Login attempt for unknown email")
		return nil, apperrors.Authf("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.Log.WithField("email", email).Warn("Invalid credentials")
		return nil, apperrors.Authf("invalid credentials")
	}

	now := time.Now()
	session := models.Session{
		SessionID: uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(sessionTTL),
		IsActive:  true,
	}

	sessionsData, sessionsRev, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}
	sessionsData.Sessions = append(sessionsData.Sessions, session)
	if _, err := s.sessions.Save(ctx, sessionsData, sessionsRev); err != nil {
		return nil, err
	}

	user.LastLoginAt = &now
	user.UpdatedAt = now
	if _, err := s.users.Save(ctx, usersData, usersRev); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{Actor: user.ID, Action: "login", Resource: "auth"})
	logger.Log.WithField("user_id", user.ID).Info("User logged in")

	return &AuthResult{
		SessionID:              session.SessionID,
		User:                   user.Public(),
		RequiresPasswordChange: user.RequiresPasswordChange,
	}, nil
}

// ValidateSession resolves a session id to its user. A missing, inactive or
// expired session yields (nil, nil): not authenticated is not an error.
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*models.PublicUser, error) {
	sessionsData, _, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, err
	}

	session := sessionsData.FindByID(sessionID)
	if session == nil || !session.IsValid(time.Now()) {
		return nil, nil
	}

	usersData, _, err := s.users.Load(ctx)
	if err != nil {
		return nil, err
	}
	user := usersData.FindByID(session.UserID)
	if user == nil {
		return nil, nil
	}

	public := user.Public()
	return &public, nil
}

// Logout deactivates the session in place; the record stays until the
// cleanup sweep.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	sessionsData, rev, err := s.sessions.Load(ctx)
	if err != nil {
		return err
	}

	session := sessionsData.FindByID(sessionID)
	if session == nil {
		return apperrors.NotFoundf("session %s", sessionID)
	}
	session.IsActive = false

	if _, err := s.sessions.Save(ctx, sessionsData, rev); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{Actor: session.UserID, Action: "logout", Resource: "auth"})
	return nil
}

// ChangePassword rehashes the password after verifying the old one and
// clears the forced-change flag.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if newPassword == "" {
		return apperrors.Validationf("new password must not be empty")
	}

	usersData, rev, err := s.users.Load(ctx)
	if err != nil {
		return err
	}

	user := usersData.FindByID(userID)
	if user == nil {
		return apperrors.NotFoundf("user %s", userID)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		logger.Log.WithField("user_id", userID).Warn("Password change with wrong current password")
		return apperrors.Authf("current password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.StorageIOf("hash password: %v", err)
	}

	user.PasswordHash = string(hashed)
	user.RequiresPasswordChange = false
	user.UpdatedAt = time.Now()

	if _, err := s.users.Save(ctx, usersData, rev); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{Actor: userID, Action: "change_password", Resource: "auth"})
	return nil
}

// CleanupExpiredSessions compacts the sessions collection down to active,
// unexpired entries. It is invoked externally, never by a timer.
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int, error) {
	sessionsData, rev, err := s.sessions.Load(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	kept := sessionsData.Sessions[:0]
	for _, session := range sessionsData.Sessions {
		if session.IsValid(now) {
			kept = append(kept, session)
		}
	}

	removed := len(sessionsData.Sessions) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	sessionsData.Sessions = kept
	if _, err := s.sessions.Save(ctx, sessionsData, rev); err != nil {
		return 0, err
	}

	logger.Log.WithField("count", removed).Info("Expired sessions cleaned up")
	return removed, nil
}

// EnsureDefaultAdmin seeds an administrator account when none exists so a
// fresh store is usable. The password must be changed on first login.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, email, password string) error {
	usersData, rev, err := s.users.Load(ctx)
	if err != nil {
		return err
	}

	for i := range usersData.Users {
		if usersData.Users[i].Role == models.RoleAdmin {
			return nil
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.StorageIOf("hash password: %v", err)
	}

	now := time.Now()
	admin := models.User{
		ID:                     uuid.NewString(),
		Email:                  email,
		Name:                   "System Administrator",
		Role:                   models.RoleAdmin,
		PasswordHash:           string(hashed),
		RequiresPasswordChange: true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	usersData.Users = append(usersData.Users, admin)

	if _, err := s.users.Save(ctx, usersData, rev); err != nil {
		return err
	}

	logger.Log.WithField("email", email).Info("Default admin user created")
	return nil
}
