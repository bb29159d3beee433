package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
	"github.com/kazesawa-dev/certtrack/internal/models"
)

func TestCreateAndListNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := seedUser(t, env, "Taro Yamada", "taro@example.com", models.RoleMember, "secret123")

	first, err := env.notificationSvc.CreateNotification(ctx, user.ID, models.NotificationPlanReminder, "First", "first message", nil)
	require.NoError(t, err)
	_, err = env.notificationSvc.CreateNotification(ctx, user.ID, models.NotificationExpiryWarning, "Second", "second message", nil)
	require.NoError(t, err)

	notifications, err := env.notificationSvc.ListUserNotifications(ctx, user.ID, false)
	require.NoError(t, err)
	assert.Len(t, notifications, 2)

	require.NoError(t, env.notificationSvc.MarkAsRead(ctx, first.ID))

	unread, err := env.notificationSvc.ListUserNotifications(ctx, user.ID, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "Second", unread[0].Title)
}

func TestMarkAllAsRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := seedUser(t, env, "Taro Yamada", "taro@example.com", models.RoleMember, "secret123")
	other := seedUser(t, env, "Hanako Sato", "hanako@example.com", models.RoleMember, "secret123")

	_, err := env.notificationSvc.CreateNotification(ctx, user.ID, models.NotificationPlanReminder, "A", "a", nil)
	require.NoError(t, err)
	_, err = env.notificationSvc.CreateNotification(ctx, user.ID, models.NotificationPlanReminder, "B", "b", nil)
	require.NoError(t, err)
	_, err = env.notificationSvc.CreateNotification(ctx, other.ID, models.NotificationPlanReminder, "C", "c", nil)
	require.NoError(t, err)

	updated, err := env.notificationSvc.MarkAllAsRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	otherUnread, err := env.notificationSvc.ListUserNotifications(ctx, other.ID, true)
	require.NoError(t, err)
	assert.Len(t, otherUnread, 1)

	updated, err = env.notificationSvc.MarkAllAsRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestDeleteNotification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := seedUser(t, env, "Taro Yamada", "taro@example.com", models.RoleMember, "secret123")

	notification, err := env.notificationSvc.CreateNotification(ctx, user.ID, models.NotificationPlanReminder, "A", "a", nil)
	require.NoError(t, err)

	require.NoError(t, env.notificationSvc.DeleteNotification(ctx, notification.ID))
	err = env.notificationSvc.DeleteNotification(ctx, notification.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = env.notificationSvc.MarkAsRead(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreatePlanRemindersThresholds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := seedUser(t, env, "Taro Yamada", "taro@example.com", models.RoleMember, "secret123")
	cert := seedCertification(t, env, "Cloud Foundation")
	now := time.Now()

	_, err := env.planService.CreatePlan(ctx, user.ID, CreatePlanRequest{
		CertificationID: cert.ID,
		StartDate:       now.AddDate(0, -1, 0),
		TargetDate:      now.AddDate(0, 0, 7),
	})
	require.NoError(t, err)

	created, err := env.notificationSvc.CreatePlanReminders(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	notifications, err := env.notificationSvc.ListUserNotifications(ctx, user.ID, false)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationPlanReminder, notifications[0].Type)
	require.NotNil(t, notifications[0].Payload)
	assert.Equal(t, 7, notifications[0].Payload.DaysUntil)
	assert.Equal(t, 7, notifications[0].Payload.Threshold)

	// Rerunning on the same day creates nothing.
	created, err = env.notificationSvc.CreatePlanReminders(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestCreatePlanRemindersSurviveMissedRuns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := seedUser(t, env, "Taro Yamada", "taro@example.com", models.RoleMember, "secret123")
	cert := seedCertification(t, env, "Cloud Foundation")
	now := time.Now()

	// 10 days out falls inside the 14-day threshold.
	_, err := env.planService.CreatePlan(ctx, user.ID, CreatePlanRequest{
		CertificationID: cert.ID,
		StartDate:       now.AddDate(0, -1, 0),
		TargetDate:      now.AddDate(0, 0, 10),
	})
	require.NoError(t, err)

	created, err := env.notificationSvc.CreatePlanReminders(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	notifications, err := env.notificationSvc.ListUserNotifications(ctx, user.ID, false)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, 14, notifications[0].Payload.Threshold)

	// The scheduler then misses several days. A week later only 3 days
	// remain; the exact 7-day mark was never seen, but the reminder still
	// goes out because a tighter threshold was crossed.
	later := now.AddDate(0, 0, 7)
	created, err = env.notificationSvc.CreatePlanReminders(ctx, later)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	notifications, err = env.notificationSvc.ListUserNotifications(ctx, user.ID, false)
	require.NoError(t, err)
	require.Len(t, notifications, 2)
	assert.Equal(t, 3, notifications[0].Payload.Threshold)

	// The crossed threshold was already notified, so nothing more fires.
	created, err = env.notificationSvc.CreatePlanReminders(ctx, later.Add(time.Minute))
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestCreatePlanRemindersSkipInactiveAndOverdue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := seedUser(t, env, "Taro Yamada", "taro@example.com", models.RoleMember, "secret123")
	certA := seedCertification(t, env, "Cloud Foundation")
	certB := seedCertification(t, env, "Security Specialist")
	now := time.Now()

	// Completed plans get no reminders.
	done, err := env.planService.CreatePlan(ctx, user.ID, CreatePlanRequest{
		CertificationID: certA.ID,
		StartDate:       now.AddDate(0, -1, 0),
		TargetDate:      now.AddDate(0, 0, 5),
	})
	require.NoError(t, err)
	_, err = env.planService.UpdateProgress(ctx, done.ID, 100)
	require.NoError(t, err)

	// Plans far outside the largest threshold stay quiet.
	_, err = env.planService.CreatePlan(ctx, user.ID, CreatePlanRequest{
		CertificationID: certB.ID,
		StartDate:       now.AddDate(0, -1, 0),
		TargetDate:      now.AddDate(1, 0, 0),
	})
	require.NoError(t, err)

	created, err := env.notificationSvc.CreatePlanReminders(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestCreateExpiryWarningsThresholds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := seedUser(t, env, "Taro Yamada", "taro@example.com", models.RoleMember, "secret123")
	cert := seedCertification(t, env, "Cloud Foundation")
	now := time.Now()

	expiry := now.AddDate(0, 0, 30)
	achievement, err := env.achievementSvc.AddAchievement(ctx, user.ID, AddAchievementRequest{
		CertificationID: cert.ID,
		AchievedDate:    now.AddDate(-2, 0, 0),
		ExpiryDate:      &expiry,
	})
	require.NoError(t, err)

	created, err := env.notificationSvc.CreateExpiryWarnings(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	notifications, err := env.notificationSvc.ListUserNotifications(ctx, user.ID, false)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationExpiryWarning, notifications[0].Type)
	require.NotNil(t, notifications[0].Payload)
	assert.Equal(t, achievement.ID, notifications[0].Payload.AchievementID)
	assert.Equal(t, 30, notifications[0].Payload.Threshold)

	// Same day again: nothing.
	created, err = env.notificationSvc.CreateExpiryWarnings(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, created)

	// Twenty days later only 10 days remain, crossing the 14-day
	// threshold even though no run happened in between.
	created, err = env.notificationSvc.CreateExpiryWarnings(ctx, now.AddDate(0, 0, 20))
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestCreateExpiryWarningsSkipInactive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := seedUser(t, env, "Taro Yamada", "taro@example.com", models.RoleMember, "secret123")
	cert := seedCertification(t, env, "Cloud Foundation")
	now := time.Now()

	expiry := now.AddDate(0, 0, 30)
	achievement, err := env.achievementSvc.AddAchievement(ctx, user.ID, AddAchievementRequest{
		CertificationID: cert.ID,
		AchievedDate:    now.AddDate(-2, 0, 0),
		ExpiryDate:      &expiry,
	})
	require.NoError(t, err)
	_, err = env.achievementSvc.Deactivate(ctx, achievement.ID)
	require.NoError(t, err)

	created, err := env.notificationSvc.CreateExpiryWarnings(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestRunScheduled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := seedUser(t, env, "Taro Yamada", "taro@example.com", models.RoleMember, "secret123")
	certA := seedCertification(t, env, "Cloud Foundation")
	certB := seedCertification(t, env, "Security Specialist")
	now := time.Now()

	_, err := env.planService.CreatePlan(ctx, user.ID, CreatePlanRequest{
		CertificationID: certA.ID,
		StartDate:       now.AddDate(0, -1, 0),
		TargetDate:      now.AddDate(0, 0, 3),
	})
	require.NoError(t, err)

	expiry := now.AddDate(0, 0, 60)
	_, err = env.achievementSvc.AddAchievement(ctx, user.ID, AddAchievementRequest{
		CertificationID: certB.ID,
		AchievedDate:    now.AddDate(-1, 0, 0),
		ExpiryDate:      &expiry,
	})
	require.NoError(t, err)

	result, err := env.notificationSvc.RunScheduled(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.PlanReminders)
	assert.Equal(t, 1, result.ExpiryWarnings)
	assert.Equal(t, 2, result.Total)

	// The whole run is idempotent within a day.
	result, err = env.notificationSvc.RunScheduled(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, result.Total)
}

func TestBroadcastNewCertification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedUser(t, env, "Taro Yamada", "taro@example.com", models.RoleMember, "secret123")
	seedUser(t, env, "Hanako Sato", "hanako@example.com", models.RoleMember, "secret123")
	seedUser(t, env, "Admin", "admin@example.com", models.RoleAdmin, "secret123")
	cert := seedCertification(t, env, "Cloud Foundation")

	count, err := env.notificationSvc.BroadcastNewCertification(ctx, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = env.notificationSvc.BroadcastNewCertification(ctx, uuid.NewString())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCrossedThreshold(t *testing.T) {
	thresholds := []int{1, 3, 7, 14, 30}

	tests := []struct {
		daysLeft  int
		threshold int
		ok        bool
	}{
		{45, 0, false},
		{30, 30, true},
		{20, 30, true},
		{14, 14, true},
		{8, 14, true},
		{7, 7, true},
		{2, 3, true},
		{1, 1, true},
		{0, 0, false},
		{-5, 0, false},
	}
	for _, tt := range tests {
		threshold, ok := crossedThreshold(tt.daysLeft, thresholds)
		assert.Equal(t, tt.ok, ok, "daysLeft %d", tt.daysLeft)
		assert.Equal(t, tt.threshold, threshold, "daysLeft %d", tt.daysLeft)
	}
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, 7, daysUntil(now, now.AddDate(0, 0, 7)))
	// Partial days round up.
	assert.Equal(t, 8, daysUntil(now, now.AddDate(0, 0, 7).Add(time.Hour)))
	assert.Equal(t, 0, daysUntil(now, now))
	assert.Equal(t, -1, daysUntil(now, now.Add(-36*time.Hour)))
}
