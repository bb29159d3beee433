package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
	"github.com/kazesawa-dev/certtrack/internal/models"
	"github.com/kazesawa-dev/certtrack/internal/repository"
	"github.com/kazesawa-dev/certtrack/pkg/logger"
)

// Reminder thresholds in days. Matching is a range test against the lowest
// threshold already notified, so a missed run does not permanently skip a
// reminder; per-day dedup keeps repeated same-day runs idempotent.
var (
	planReminderThresholds  = []int{1, 3, 7, 14, 30}
	expiryWarningThresholds = []int{7, 14, 30, 60, 90}
)

// ScheduledRunResult reports what one scheduler pass created.
type ScheduledRunResult struct {
	PlanReminders  int
	ExpiryWarnings int
	Total          int
}

// NotificationService manages persisted notifications and derives reminder
// and warning notifications from the plan and achievement lifecycles. It has
// no timer of its own; RunScheduled is invoked externally.
type NotificationService struct {
	notifications  *repository.NotificationRepository
	plans          *repository.PlanRepository
	achievements   *repository.AchievementRepository
	certifications *repository.CertificationRepository
	users          *repository.UserRepository
}

// NewNotificationService creates a new instance of NotificationService.
func NewNotificationService(
	notifications *repository.NotificationRepository,
	plans *repository.PlanRepository,
	achievements *repository.AchievementRepository,
	certifications *repository.CertificationRepository,
	users *repository.UserRepository,
) *NotificationService {
	return &NotificationService{
		notifications:  notifications,
		plans:          plans,
		achievements:   achievements,
		certifications: certifications,
		users:          users,
	}
}

// CreateNotification stores a notification for one user.
func (s *NotificationService) CreateNotification(ctx context.Context, userID string, notifType models.NotificationType, title, message string, payload *models.NotificationPayload) (*models.Notification, error) {
	data, rev, err := s.notifications.Load(ctx)
	if err != nil {
		return nil, err
	}

	notification := newNotification(userID, notifType, title, message, payload, time.Now())
	data.Notifications = append(data.Notifications, notification)

	if _, err := s.notifications.Save(ctx, data, rev); err != nil {
		return nil, err
	}
	return &notification, nil
}

// ListUserNotifications returns a user's notifications, newest first.
func (s *NotificationService) ListUserNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	data, _, err := s.notifications.Load(ctx)
	if err != nil {
		return nil, err
	}

	notifications := make([]models.Notification, 0)
	for _, n := range data.Notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		notifications = append(notifications, n)
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
	})
	return notifications, nil
}

// MarkAsRead sets a notification's read flag.
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID string) error {
	data, rev, err := s.notifications.Load(ctx)
	if err != nil {
		return err
	}

	notification := data.FindByID(notificationID)
	if notification == nil {
		return apperrors.NotFoundf("notification %s", notificationID)
	}
	notification.IsRead = true

	_, err = s.notifications.Save(ctx, data, rev)
	return err
}

// MarkAllAsRead marks every unread notification of one user and returns how
// many changed.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	data, rev, err := s.notifications.Load(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for i := range data.Notifications {
		n := &data.Notifications[i]
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	if updated == 0 {
		return 0, nil
	}

	if _, err := s.notifications.Save(ctx, data, rev); err != nil {
		return 0, err
	}
	return updated, nil
}

// DeleteNotification removes one notification.
func (s *NotificationService) DeleteNotification(ctx context.Context, notificationID string) error {
	data, rev, err := s.notifications.Load(ctx)
	if err != nil {
		return err
	}

	found := false
	kept := data.Notifications[:0]
	for _, n := range data.Notifications {
		if n.ID == notificationID {
			found = true
			continue
		}
		kept = append(kept, n)
	}
	if !found {
		return apperrors.NotFoundf("notification %s", notificationID)
	}
	data.Notifications = kept

	_, err = s.notifications.Save(ctx, data, rev)
	return err
}

// DeleteOldNotifications prunes one user's notifications older than the
// retention window and returns how many were removed.
func (s *NotificationService) DeleteOldNotifications(ctx context.Context, userID string, olderThanDays int) (int, error) {
	data, rev, err := s.notifications.Load(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	kept := data.Notifications[:0]
	for _, n := range data.Notifications {
		if n.UserID == userID && n.CreatedAt.Before(cutoff) {
			continue
		}
		kept = append(kept, n)
	}

	removed := len(data.Notifications) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	data.Notifications = kept

	if _, err := s.notifications.Save(ctx, data, rev); err != nil {
		return 0, err
	}
	return removed, nil
}

// CreatePlanReminders scans active study plans and creates target-date
// reminders for thresholds not yet notified. Returns how many were created.
func (s *NotificationService) CreatePlanReminders(ctx context.Context, now time.Time) (int, error) {
	plansData, _, err := s.plans.Load(ctx)
	if err != nil {
		return 0, err
	}
	certsData, _, err := s.certifications.Load(ctx)
	if err != nil {
		return 0, err
	}
	usersData, _, err := s.users.Load(ctx)
	if err != nil {
		return 0, err
	}
	notifData, rev, err := s.notifications.Load(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range plansData.StudyPlans {
		plan := &plansData.StudyPlans[i]
		if !plan.Status.IsActive() {
			continue
		}

		days := daysUntil(now, plan.TargetDate)
		threshold, ok := crossedThreshold(days, planReminderThresholds)
		if !ok {
			continue
		}

		cert := certsData.FindByID(plan.CertificationID)
		if cert == nil || usersData.FindByID(plan.UserID) == nil {
			continue
		}
		if notifiedToday(notifData, plan.UserID, models.NotificationPlanReminder, plan.ID, now) {
			continue
		}
		if last, ok := lowestNotifiedThreshold(notifData, plan.UserID, models.NotificationPlanReminder, plan.ID); ok && threshold >= last {
			continue
		}

		targetDate := plan.TargetDate
		notification := newNotification(
			plan.UserID,
			models.NotificationPlanReminder,
			"Study plan target date approaching",
			fmt.Sprintf("%d day(s) left until the target date for %q. Check your progress.", days, cert.Name),
			&models.NotificationPayload{
				PlanID:          plan.ID,
				CertificationID: plan.CertificationID,
				TargetDate:      &targetDate,
				DaysUntil:       days,
				Threshold:       threshold,
			},
			now,
		)
		notifData.Notifications = append(notifData.Notifications, notification)
		created++
	}

	if created > 0 {
		if _, err := s.notifications.Save(ctx, notifData, rev); err != nil {
			return 0, err
		}
	}
	return created, nil
}

// CreateExpiryWarnings scans active achievements with expiry dates and
// creates expiry warnings for thresholds not yet notified.
func (s *NotificationService) CreateExpiryWarnings(ctx context.Context, now time.Time) (int, error) {
	achievementsData, _, err := s.achievements.Load(ctx)
	if err != nil {
		return 0, err
	}
	certsData, _, err := s.certifications.Load(ctx)
	if err != nil {
		return 0, err
	}
	usersData, _, err := s.users.Load(ctx)
	if err != nil {
		return 0, err
	}
	notifData, rev, err := s.notifications.Load(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for i := range achievementsData.Achievements {
		achievement := &achievementsData.Achievements[i]
		if !achievement.IsActive || achievement.ExpiryDate == nil {
			continue
		}

		days := daysUntil(now, *achievement.ExpiryDate)
		threshold, ok := crossedThreshold(days, expiryWarningThresholds)
		if !ok {
			continue
		}

		cert := certsData.FindByID(achievement.CertificationID)
		if cert == nil || usersData.FindByID(achievement.UserID) == nil {
			continue
		}
		if notifiedToday(notifData, achievement.UserID, models.NotificationExpiryWarning, achievement.ID, now) {
			continue
		}
		if last, ok := lowestNotifiedThreshold(notifData, achievement.UserID, models.NotificationExpiryWarning, achievement.ID); ok && threshold >= last {
			continue
		}

		notification := newNotification(
			achievement.UserID,
			models.NotificationExpiryWarning,
			"Certification expiry approaching",
			fmt.Sprintf("%d day(s) left until %q expires. Prepare for renewal.", days, cert.Name),
			&models.NotificationPayload{
				AchievementID:   achievement.ID,
				CertificationID: achievement.CertificationID,
				ExpiryDate:      achievement.ExpiryDate,
				DaysUntil:       days,
				Threshold:       threshold,
			},
			now,
		)
		notifData.Notifications = append(notifData.Notifications, notification)
		created++
	}

	if created > 0 {
		if _, err := s.notifications.Save(ctx, notifData, rev); err != nil {
			return 0, err
		}
	}
	return created, nil
}

// BroadcastNewCertification notifies every user about a new catalog entry.
func (s *NotificationService) BroadcastNewCertification(ctx context.Context, certificationID string) (int, error) {
	certsData, _, err := s.certifications.Load(ctx)
	if err != nil {
		return 0, err
	}
	cert := certsData.FindByID(certificationID)
	if cert == nil {
		return 0, apperrors.NotFoundf("certification %s", certificationID)
	}

	usersData, _, err := s.users.Load(ctx)
	if err != nil {
		return 0, err
	}
	notifData, rev, err := s.notifications.Load(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	for i := range usersData.Users {
		notification := newNotification(
			usersData.Users[i].ID,
			models.NotificationNewCertification,
			"New certification added",
			fmt.Sprintf("%q was added to the certification catalog.", cert.Name),
			&models.NotificationPayload{
				CertificationID:   cert.ID,
				CertificationName: cert.Name,
			},
			now,
		)
		notifData.Notifications = append(notifData.Notifications, notification)
	}

	if len(usersData.Users) > 0 {
		if _, err := s.notifications.Save(ctx, notifData, rev); err != nil {
			return 0, err
		}
	}
	return len(usersData.Users), nil
}

// BroadcastAchievementReport notifies every admin that an achievement was
// recorded.
func (s *NotificationService) BroadcastAchievementReport(ctx context.Context, achievementID string) (int, error) {
	achievementsData, _, err := s.achievements.Load(ctx)
	if err != nil {
		return 0, err
	}
	achievement := achievementsData.FindByID(achievementID)
	if achievement == nil {
		return 0, apperrors.NotFoundf("achievement %s", achievementID)
	}

	certsData, _, err := s.certifications.Load(ctx)
	if err != nil {
		return 0, err
	}
	usersData, _, err := s.users.Load(ctx)
	if err != nil {
		return 0, err
	}

	cert := certsData.FindByID(achievement.CertificationID)
	user := usersData.FindByID(achievement.UserID)
	if cert == nil || user == nil {
		return 0, apperrors.NotFoundf("related certification or user for achievement %s", achievementID)
	}

	notifData, rev, err := s.notifications.Load(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	achievedDate := achievement.AchievedDate
	count := 0
	for i := range usersData.Users {
		admin := &usersData.Users[i]
		if admin.Role != models.RoleAdmin {
			continue
		}
		notification := newNotification(
			admin.ID,
			models.NotificationAchievementReport,
			"Certification achievement reported",
			fmt.Sprintf("%s obtained %q.", user.Name, cert.Name),
			&models.NotificationPayload{
				AchievementID:     achievement.ID,
				CertificationID:   cert.ID,
				CertificationName: cert.Name,
				UserID:            user.ID,
				UserName:          user.Name,
				AchievedDate:      &achievedDate,
			},
			now,
		)
		notifData.Notifications = append(notifData.Notifications, notification)
		count++
	}

	if count > 0 {
		if _, err := s.notifications.Save(ctx, notifData, rev); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// RunScheduled executes the reminder and warning scans. Rerunning on the
// same day with unchanged data creates nothing.
func (s *NotificationService) RunScheduled(ctx context.Context, now time.Time) (*ScheduledRunResult, error) {
	planReminders, err := s.CreatePlanReminders(ctx, now)
	if err != nil {
		return nil, err
	}
	expiryWarnings, err := s.CreateExpiryWarnings(ctx, now)
	if err != nil {
		return nil, err
	}

	result := &ScheduledRunResult{
		PlanReminders:  planReminders,
		ExpiryWarnings: expiryWarnings,
		Total:          planReminders + expiryWarnings,
	}
	logger.Log.WithFields(map[string]interface{}{
		"plan_reminders":  result.PlanReminders,
		"expiry_warnings": result.ExpiryWarnings,
	}).Info("Scheduled notification run completed")
	return result, nil
}

func newNotification(userID string, notifType models.NotificationType, title, message string, payload *models.NotificationPayload, now time.Time) models.Notification {
	return models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Message:   message,
		Payload:   payload,
		IsRead:    false,
		CreatedAt: now,
	}
}

// daysUntil counts whole days until the date, rounding partial days up.
func daysUntil(now, date time.Time) int {
	d := date.Sub(now)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// crossedThreshold returns the tightest threshold covering daysLeft.
// thresholds must be sorted ascending.
func crossedThreshold(daysLeft int, thresholds []int) (int, bool) {
	if daysLeft <= 0 {
		return 0, false
	}
	for _, t := range thresholds {
		if daysLeft <= t {
			return t, true
		}
	}
	return 0, false
}

// lowestNotifiedThreshold finds the lowest threshold already notified for an
// entity, recovered from the persisted payloads.
func lowestNotifiedThreshold(data *models.NotificationsData, userID string, notifType models.NotificationType, entityID string) (int, bool) {
	lowest := 0
	found := false
	for i := range data.Notifications {
		n := &data.Notifications[i]
		if n.UserID != userID || n.Type != notifType || n.Payload == nil {
			continue
		}
		if !payloadReferences(n.Payload, notifType, entityID) {
			continue
		}
		if !found || n.Payload.Threshold < lowest {
			lowest = n.Payload.Threshold
			found = true
		}
	}
	return lowest, found
}

// notifiedToday reports whether a notification of this type for this entity
// was already created on now's calendar day.
func notifiedToday(data *models.NotificationsData, userID string, notifType models.NotificationType, entityID string, now time.Time) bool {
	for i := range data.Notifications {
		n := &data.Notifications[i]
		if n.UserID != userID || n.Type != notifType || n.Payload == nil {
			continue
		}
		if payloadReferences(n.Payload, notifType, entityID) && sameDay(n.CreatedAt, now) {
			return true
		}
	}
	return false
}

func payloadReferences(p *models.NotificationPayload, notifType models.NotificationType, entityID string) bool {
	switch notifType {
	case models.NotificationPlanReminder:
		return p.PlanID == entityID
	case models.NotificationExpiryWarning:
		return p.AchievementID == entityID
	default:
		return false
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
