package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/kazesawa-dev/certtrack/internal/models"
)

func TestAllowsAdminEverything(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := seedUser(t, env, "Admin", "admin@example.com", models.RoleAdmin, "secret123")
	sessionID := seedSession(t, env, admin.ID)

	for _, resource := range []string{ResourceUsers, ResourceCertifications, ResourceStudyPlans, ResourceAchievements, ResourceNotifications} {
		for _, action := range []string{ActionRead, ActionCreate, ActionUpdate, ActionDelete} {
			assert.True(t, env.authz.Allows(ctx, sessionID, resource, action), "%s %s", action, resource)
		}
	}
}

func TestAllowsMemberMatrix(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	member := seedUser(t, env, "Member", "member@example.com", models.RoleMember, "secret123")
	sessionID := seedSession(t, env, member.ID)

	tests := []struct {
		resource string
		action   string
		want     bool
	}{
		{ResourceUsers, ActionRead, true},
		{ResourceUsers, ActionUpdateSelf, true},
		{ResourceUsers, ActionCreate, false},
		{ResourceUsers, ActionDelete, false},
		{ResourceCertifications, ActionRead, true},
		{ResourceCertifications, ActionCreate, false},
		{ResourceCertifications, ActionDelete, false},
		{ResourceStudyPlans, ActionCreate, true},
		{ResourceStudyPlans, ActionDelete, true},
		{ResourceAchievements, ActionCreate, true},
		{ResourceAchievements, ActionUpdate, true},
		{ResourceNotifications, ActionRead, true},
		{ResourceNotifications, ActionUpdate, true},
		{ResourceNotifications, ActionDelete, false},
		{"unknown", ActionRead, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, env.authz.Allows(ctx, sessionID, tt.resource, tt.action), "%s %s", tt.action, tt.resource)
	}
}

func TestAllowsDeniesWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	assert.False(t, env.authz.Allows(context.Background(), uuid.NewString(), ResourceCertifications, ActionRead))
	assert.False(t, env.authz.Allows(context.Background(), "", ResourceCertifications, ActionRead))
}
