package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
	"github.com/kazesawa-dev/certtrack/internal/models"
	"github.com/kazesawa-dev/certtrack/internal/repository"
	"github.com/kazesawa-dev/certtrack/pkg/logger"
)

// AddAchievementRequest records a newly obtained certification.
type AddAchievementRequest struct {
	CertificationID     string
	AchievedDate        time.Time
	CertificationNumber string
	ExpiryDate          *time.Time
}

// UpdateAchievementRequest patches an achievement; nil fields are left
// unchanged.
type UpdateAchievementRequest struct {
	AchievedDate        *time.Time
	CertificationNumber *string
	ExpiryDate          *time.Time
}

// ProcessExpiredResult reports what an expiry sweep deactivated.
type ProcessExpiredResult struct {
	Count   int
	Expired []models.Achievement
}

// AchievementService encapsulates the achievement lifecycle.
type AchievementService struct {
	achievements   *repository.AchievementRepository
	certifications *repository.CertificationRepository
	notifications  *NotificationService
	audit          *AuditService
}

// NewAchievementService creates a new instance of AchievementService.
func NewAchievementService(
	achievements *repository.AchievementRepository,
	certifications *repository.CertificationRepository,
	notifications *NotificationService,
	audit *AuditService,
) *AchievementService {
	return &AchievementService{
		achievements:   achievements,
		certifications: certifications,
		notifications:  notifications,
		audit:          audit,
	}
}

// AddAchievement records an achievement. At most one active achievement may
// exist per (user, certification). Admins are notified of the report.
func (s *AchievementService) AddAchievement(ctx context.Context, userID string, req AddAchievementRequest) (*models.Achievement, error) {
	if req.CertificationID == "" {
		return nil, apperrors.Validationf("certification id is required")
	}
	if req.AchievedDate.IsZero() {
		return nil, apperrors.Validationf("achieved date is required")
	}
	if req.ExpiryDate != nil && !req.ExpiryDate.After(req.AchievedDate) {
		return nil, apperrors.Validationf("expiry date must be after achieved date")
	}

	certsData, _, err := s.certifications.Load(ctx)
	if err != nil {
		return nil, err
	}
	if certsData.FindByID(req.CertificationID) == nil {
		return nil, apperrors.NotFoundf("certification %s", req.CertificationID)
	}

	achievementsData, rev, err := s.achievements.Load(ctx)
	if err != nil {
		return nil, err
	}
	if existing := achievementsData.FindActive(userID, req.CertificationID); existing != nil {
		logger.Log.WithFields(map[string]interface{}{
			"user_id":          userID,
			"certification_id": req.CertificationID,
		}).Warn("Active achievement already exists")
		return nil, apperrors.Conflictf("active achievement for this certification already exists")
	}

	now := time.Now()
	achievement := models.Achievement{
		ID:                  uuid.NewString(),
		UserID:              userID,
		CertificationID:     req.CertificationID,
		AchievedDate:        req.AchievedDate,
		CertificationNumber: req.CertificationNumber,
		ExpiryDate:          req.ExpiryDate,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	achievementsData.Achievements = append(achievementsData.Achievements, achievement)

	if _, err := s.achievements.Save(ctx, achievementsData, rev); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{Actor: userID, Action: "add_achievement", Resource: ResourceAchievements, ResourceID: achievement.ID, After: achievement})
	logger.Log.WithField("achievement_id", achievement.ID).Info("Achievement recorded")

	if count, err := s.notifications.BroadcastAchievementReport(ctx, achievement.ID); err != nil {
		logger.Log.WithError(err).Warn("Failed to notify admins about achievement")
	} else {
		logger.Log.WithField("count", count).Info("Achievement report sent to admins")
	}

	return &achievement, nil
}

// UpdateAchievement patches an achievement.
func (s *AchievementService) UpdateAchievement(ctx context.Context, achievementID string, req UpdateAchievementRequest) (*models.Achievement, error) {
	achievementsData, rev, err := s.achievements.Load(ctx)
	if err != nil {
		return nil, err
	}

	achievement := achievementsData.FindByID(achievementID)
	if achievement == nil {
		return nil, apperrors.NotFoundf("achievement %s", achievementID)
	}
	before := *achievement

	if req.AchievedDate != nil {
		achievement.AchievedDate = *req.AchievedDate
	}
	if req.CertificationNumber != nil {
		achievement.CertificationNumber = *req.CertificationNumber
	}
	if req.ExpiryDate != nil {
		achievement.ExpiryDate = req.ExpiryDate
	}
	if achievement.ExpiryDate != nil && !achievement.ExpiryDate.After(achievement.AchievedDate) {
		return nil, apperrors.Validationf("expiry date must be after achieved date")
	}
	achievement.UpdatedAt = time.Now()

	if _, err := s.achievements.Save(ctx, achievementsData, rev); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{Actor: achievement.UserID, Action: "update_achievement", Resource: ResourceAchievements, ResourceID: achievementID, Before: before, After: *achievement})
	return achievement, nil
}

// DeleteAchievement removes an achievement record.
func (s *AchievementService) DeleteAchievement(ctx context.Context, actorID, achievementID string) error {
	achievementsData, rev, err := s.achievements.Load(ctx)
	if err != nil {
		return err
	}

	found := false
	kept := achievementsData.Achievements[:0]
	for _, achievement := range achievementsData.Achievements {
		if achievement.ID == achievementID {
			found = true
			continue
		}
		kept = append(kept, achievement)
	}
	if !found {
		return apperrors.NotFoundf("achievement %s", achievementID)
	}
	achievementsData.Achievements = kept

	if _, err := s.achievements.Save(ctx, achievementsData, rev); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{Actor: actorID, Action: "delete_achievement", Resource: ResourceAchievements, ResourceID: achievementID})
	return nil
}

// GetAchievement retrieves one achievement.
func (s *AchievementService) GetAchievement(ctx context.Context, achievementID string) (*models.Achievement, error) {
	achievementsData, _, err := s.achievements.Load(ctx)
	if err != nil {
		return nil, err
	}

	achievement := achievementsData.FindByID(achievementID)
	if achievement == nil {
		return nil, apperrors.NotFoundf("achievement %s", achievementID)
	}
	return achievement, nil
}

// ListUserAchievements returns a member's achievements, most recently
// achieved first.
func (s *AchievementService) ListUserAchievements(ctx context.Context, userID string, activeOnly bool) ([]models.Achievement, error) {
	achievementsData, _, err := s.achievements.Load(ctx)
	if err != nil {
		return nil, err
	}

	achievements := make([]models.Achievement, 0)
	for _, achievement := range achievementsData.Achievements {
		if achievement.UserID != userID {
			continue
		}
		if activeOnly && !achievement.IsActive {
			continue
		}
		achievements = append(achievements, achievement)
	}
	sortAchievementsNewestFirst(achievements)
	return achievements, nil
}

// ListAllAchievements returns every achievement, most recently achieved
// first.
func (s *AchievementService) ListAllAchievements(ctx context.Context, activeOnly bool) ([]models.Achievement, error) {
	achievementsData, _, err := s.achievements.Load(ctx)
	if err != nil {
		return nil, err
	}

	achievements := make([]models.Achievement, 0, len(achievementsData.Achievements))
	for _, achievement := range achievementsData.Achievements {
		if activeOnly && !achievement.IsActive {
			continue
		}
		achievements = append(achievements, achievement)
	}
	sortAchievementsNewestFirst(achievements)
	return achievements, nil
}

// Deactivate marks an achievement inactive, e.g. when superseded manually.
func (s *AchievementService) Deactivate(ctx context.Context, achievementID string) (*models.Achievement, error) {
	return s.setActive(ctx, achievementID, false)
}

// Reactivate marks an achievement active again. The at-most-one-active
// invariant is re-validated so two achievements for the same certification
// cannot both end up active.
func (s *AchievementService) Reactivate(ctx context.Context, achievementID string) (*models.Achievement, error) {
	return s.setActive(ctx, achievementID, true)
}

func (s *AchievementService) setActive(ctx context.Context, achievementID string, active bool) (*models.Achievement, error) {
	achievementsData, rev, err := s.achievements.Load(ctx)
	if err != nil {
		return nil, err
	}

	achievement := achievementsData.FindByID(achievementID)
	if achievement == nil {
		return nil, apperrors.NotFoundf("achievement %s", achievementID)
	}

	if active {
		if sibling := achievementsData.FindActive(achievement.UserID, achievement.CertificationID); sibling != nil && sibling.ID != achievementID {
			return nil, apperrors.Conflictf("another active achievement exists for this certification")
		}
	}

	achievement.IsActive = active
	achievement.UpdatedAt = time.Now()

	if _, err := s.achievements.Save(ctx, achievementsData, rev); err != nil {
		return nil, err
	}

	action := "deactivate_achievement"
	if active {
		action = "reactivate_achievement"
	}
	s.audit.Record(ctx, AuditEntry{Actor: achievement.UserID, Action: action, Resource: ResourceAchievements, ResourceID: achievementID})
	return achievement, nil
}

// ProcessExpired deactivates every active achievement whose expiry date has
// passed and stamps updatedAt. A second sweep with no newly expired records
// mutates nothing and reports zero.
func (s *AchievementService) ProcessExpired(ctx context.Context, now time.Time) (*ProcessExpiredResult, error) {
	achievementsData, rev, err := s.achievements.Load(ctx)
	if err != nil {
		return nil, err
	}

	result := ProcessExpiredResult{}
	for i := range achievementsData.Achievements {
		a := &achievementsData.Achievements[i]
		if !a.IsActive || a.ExpiryDate == nil {
			continue
		}
		if a.ExpiryDate.Before(now) {
			a.IsActive = false
			a.UpdatedAt = now
			result.Count++
			result.Expired = append(result.Expired, *a)
		}
	}

	if result.Count > 0 {
		if _, err := s.achievements.Save(ctx, achievementsData, rev); err != nil {
			return nil, err
		}
		logger.Log.WithField("count", result.Count).Info("Expired achievements deactivated")
	}

	return &result, nil
}

// ExpiringSoon returns active achievements that expire within the window,
// soonest first.
func (s *AchievementService) ExpiringSoon(ctx context.Context, now time.Time, daysAhead int) ([]models.Achievement, error) {
	achievementsData, _, err := s.achievements.Load(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := now.AddDate(0, 0, daysAhead)
	achievements := make([]models.Achievement, 0)
	for _, achievement := range achievementsData.Achievements {
		if !achievement.IsActive || achievement.ExpiryDate == nil {
			continue
		}
		if achievement.ExpiryDate.After(now) && !achievement.ExpiryDate.After(cutoff) {
			achievements = append(achievements, achievement)
		}
	}
	sort.Slice(achievements, func(i, j int) bool {
		return achievements[i].ExpiryDate.Before(*achievements[j].ExpiryDate)
	})
	return achievements, nil
}

func sortAchievementsNewestFirst(achievements []models.Achievement) {
	sort.Slice(achievements, func(i, j int) bool {
		return achievements[i].AchievedDate.After(achievements[j].AchievedDate)
	})
}
