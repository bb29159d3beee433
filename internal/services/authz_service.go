package services

import (
	"context"

	"github.com/kazesawa-dev/certtrack/internal/models"
	"github.com/kazesawa-dev/certtrack/pkg/logger"
)

// Resource and action names used by the permission matrix.
const (
	ResourceUsers          = "users"
	ResourceCertifications = "certifications"
	ResourceStudyPlans     = "study_plans"
	ResourceAchievements   = "achievements"
	ResourceNotifications  = "notifications"

	ActionRead       = "read"
	ActionCreate     = "create"
	ActionUpdate     = "update"
	ActionUpdateSelf = "update_self"
	ActionDelete     = "delete"
)

// AuthzService answers whether a role may perform an action class on a
// resource class. Row-level ownership (is this specific record the caller's
// own) is the caller's responsibility.
type AuthzService struct {
	auth *AuthService
}

// NewAuthzService creates a new instance of AuthzService.
func NewAuthzService(auth *AuthService) *AuthzService {
	return &AuthzService{auth: auth}
}

// Allows reports whether the session's user may perform the action on the
// resource. Any failure to resolve the session denies.
func (s *AuthzService) Allows(ctx context.Context, sessionID, resource, action string) bool {
	user, err := s.auth.ValidateSession(ctx, sessionID)
	if err != nil {
		logger.Log.WithError(err).Warn("Permission check failed to resolve session")
		return false
	}
	if user == nil {
		return false
	}

	// Admins may do everything.
	if user.Role == models.RoleAdmin {
		return true
	}

	return memberAllows(resource, action)
}

func memberAllows(resource, action string) bool {
	switch resource {
	case ResourceUsers:
		return action == ActionRead || action == ActionUpdateSelf
	case ResourceCertifications:
		return action == ActionRead
	case ResourceStudyPlans, ResourceAchievements:
		// Members manage their own plans and achievements; ownership is
		// checked by the caller against record.userId.
		return true
	case ResourceNotifications:
		return action == ActionRead || action == ActionUpdate
	default:
		return false
	}
}
