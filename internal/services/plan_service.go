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

// CreatePlanRequest describes a new study plan.
type CreatePlanRequest struct {
	CertificationID string
	StartDate       time.Time
	TargetDate      time.Time
}

// UpdatePlanRequest patches a plan; nil fields are left unchanged. Progress
// changes should go through UpdateProgress so the status machine applies.
type UpdatePlanRequest struct {
	StartDate  *time.Time
	TargetDate *time.Time
	Status     *models.PlanStatus
}

// UserPlanStats summarizes one member's plans.
type UserPlanStats struct {
	TotalPlans        int
	ActivePlans       int
	CompletedPlans    int
	AverageProgress   int
	UpcomingDeadlines int
}

// PlanService encapsulates the study-plan lifecycle.
type PlanService struct {
	plans          *repository.PlanRepository
	certifications *repository.CertificationRepository
	audit          *AuditService
}

// NewPlanService creates a new instance of PlanService.
func NewPlanService(plans *repository.PlanRepository, certifications *repository.CertificationRepository, audit *AuditService) *PlanService {
	return &PlanService{
		plans:          plans,
		certifications: certifications,
		audit:          audit,
	}
}

// CreatePlan starts a plan in the planning state. At most one active plan
// may exist per (user, certification); the invariant is enforced here, at
// creation time.
func (s *PlanService) CreatePlan(ctx context.Context, userID string, req CreatePlanRequest) (*models.StudyPlan, error) {
	if req.CertificationID == "" {
		return nil, apperrors.Validationf("certification id is required")
	}
	if !req.TargetDate.After(req.StartDate) {
		return nil, apperrors.Validationf("target date must be after start date")
	}

	certsData, _, err := s.certifications.Load(ctx)
	if err != nil {
		return nil, err
	}
	if certsData.FindByID(req.CertificationID) == nil {
		return nil, apperrors.NotFoundf("certification %s", req.CertificationID)
	}

	plansData, rev, err := s.plans.Load(ctx)
	if err != nil {
		return nil, err
	}
	if existing := plansData.FindActive(userID, req.CertificationID); existing != nil {
		logger.Log.WithFields(map[string]interface{}{
			"user_id":          userID,
			"certification_id": req.CertificationID,
		}).Warn("Active study plan already exists")
		return nil, apperrors.Conflictf("active study plan for this certification already exists")
	}

	now := time.Now()
	plan := models.StudyPlan{
		ID:              uuid.NewString(),
		UserID:          userID,
		CertificationID: req.CertificationID,
		StartDate:       req.StartDate,
		TargetDate:      req.TargetDate,
		Progress:        0,
		Status:          models.PlanPlanning,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	plansData.StudyPlans = append(plansData.StudyPlans, plan)

	if _, err := s.plans.Save(ctx, plansData, rev); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{Actor: userID, Action: "create_plan", Resource: ResourceStudyPlans, ResourceID: plan.ID, After: plan})
	logger.Log.WithField("plan_id", plan.ID).Info("Study plan created")
	return &plan, nil
}

// UpdatePlan patches plan fields. Assigning the cancelled status is the only
// way to cancel a plan.
func (s *PlanService) UpdatePlan(ctx context.Context, planID string, req UpdatePlanRequest) (*models.StudyPlan, error) {
	plansData, rev, err := s.plans.Load(ctx)
	if err != nil {
		return nil, err
	}

	plan := plansData.FindByID(planID)
	if plan == nil {
		return nil, apperrors.NotFoundf("study plan %s", planID)
	}
	before := *plan

	if req.StartDate != nil {
		plan.StartDate = *req.StartDate
	}
	if req.TargetDate != nil {
		plan.TargetDate = *req.TargetDate
	}
	if !plan.TargetDate.After(plan.StartDate) {
		return nil, apperrors.Validationf("target date must be after start date")
	}
	if req.Status != nil {
		switch *req.Status {
		case models.PlanPlanning, models.PlanInProgress, models.PlanCompleted, models.PlanCancelled:
			plan.Status = *req.Status
		default:
			return nil, apperrors.Validationf("unknown plan status %q", *req.Status)
		}
	}
	plan.UpdatedAt = time.Now()

	if _, err := s.plans.Save(ctx, plansData, rev); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{Actor: plan.UserID, Action: "update_plan", Resource: ResourceStudyPlans, ResourceID: planID, Before: before, After: *plan})
	return plan, nil
}

// UpdateProgress sets the progress percentage and derives the status:
// 0 reverts in-progress work to planning, 1-99 marks it in progress, and
// 100 completes the plan. Completed and cancelled plans refuse further
// progress changes.
func (s *PlanService) UpdateProgress(ctx context.Context, planID string, progress int) (*models.StudyPlan, error) {
	if progress < 0 || progress > 100 {
		return nil, apperrors.Validationf("progress must be between 0 and 100")
	}

	plansData, rev, err := s.plans.Load(ctx)
	if err != nil {
		return nil, err
	}

	plan := plansData.FindByID(planID)
	if plan == nil {
		return nil, apperrors.NotFoundf("study plan %s", planID)
	}
	if plan.Status.IsTerminal() {
		return nil, apperrors.Conflictf("study plan %s is %s", planID, plan.Status)
	}

	switch {
	case progress == 100:
		plan.Status = models.PlanCompleted
	case progress == 0:
		plan.Status = models.PlanPlanning
	default:
		plan.Status = models.PlanInProgress
	}
	plan.Progress = progress
	plan.UpdatedAt = time.Now()

	if _, err := s.plans.Save(ctx, plansData, rev); err != nil {
		return nil, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"plan_id":  planID,
		"progress": progress,
		"status":   plan.Status,
	}).Info("Study plan progress updated")
	return plan, nil
}

// DeletePlan removes a plan.
func (s *PlanService) DeletePlan(ctx context.Context, actorID, planID string) error {
	plansData, rev, err := s.plans.Load(ctx)
	if err != nil {
		return err
	}

	found := false
	kept := plansData.StudyPlans[:0]
	for _, plan := range plansData.StudyPlans {
		if plan.ID == planID {
			found = true
			continue
		}
		kept = append(kept, plan)
	}
	if !found {
		return apperrors.NotFoundf("study plan %s", planID)
	}
	plansData.StudyPlans = kept

	if _, err := s.plans.Save(ctx, plansData, rev); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{Actor: actorID, Action: "delete_plan", Resource: ResourceStudyPlans, ResourceID: planID})
	return nil
}

// GetPlan retrieves one plan.
func (s *PlanService) GetPlan(ctx context.Context, planID string) (*models.StudyPlan, error) {
	plansData, _, err := s.plans.Load(ctx)
	if err != nil {
		return nil, err
	}

	plan := plansData.FindByID(planID)
	if plan == nil {
		return nil, apperrors.NotFoundf("study plan %s", planID)
	}
	return plan, nil
}

// ListUserPlans returns a member's plans, newest first.
func (s *PlanService) ListUserPlans(ctx context.Context, userID string) ([]models.StudyPlan, error) {
	plansData, _, err := s.plans.Load(ctx)
	if err != nil {
		return nil, err
	}

	plans := make([]models.StudyPlan, 0, len(plansData.StudyPlans))
	for _, plan := range plansData.StudyPlans {
		if plan.UserID == userID {
			plans = append(plans, plan)
		}
	}
	sortPlansNewestFirst(plans)
	return plans, nil
}

// ListAllPlans returns every plan, newest first.
func (s *PlanService) ListAllPlans(ctx context.Context) ([]models.StudyPlan, error) {
	plansData, _, err := s.plans.Load(ctx)
	if err != nil {
		return nil, err
	}

	plans := append([]models.StudyPlan(nil), plansData.StudyPlans...)
	sortPlansNewestFirst(plans)
	return plans, nil
}

// UpcomingDeadlines returns active plans whose target date falls within the
// window, soonest first.
func (s *PlanService) UpcomingDeadlines(ctx context.Context, now time.Time, daysAhead int) ([]models.StudyPlan, error) {
	plansData, _, err := s.plans.Load(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := now.AddDate(0, 0, daysAhead)
	plans := make([]models.StudyPlan, 0)
	for _, plan := range plansData.StudyPlans {
		if plan.Status.IsTerminal() {
			continue
		}
		if !plan.TargetDate.After(cutoff) {
			plans = append(plans, plan)
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].TargetDate.Before(plans[j].TargetDate)
	})
	return plans, nil
}

// GetUserPlanStats summarizes a member's plans.
func (s *PlanService) GetUserPlanStats(ctx context.Context, userID string, now time.Time) (*UserPlanStats, error) {
	plans, err := s.ListUserPlans(ctx, userID)
	if err != nil {
		return nil, err
	}
	deadlines, err := s.UpcomingDeadlines(ctx, now, 30)
	if err != nil {
		return nil, err
	}

	stats := UserPlanStats{TotalPlans: len(plans)}
	totalProgress := 0
	for _, plan := range plans {
		totalProgress += plan.Progress
		switch {
		case plan.Status.IsActive():
			stats.ActivePlans++
		case plan.Status == models.PlanCompleted:
			stats.CompletedPlans++
		}
	}
	if len(plans) > 0 {
		stats.AverageProgress = totalProgress / len(plans)
	}
	for _, plan := range deadlines {
		if plan.UserID == userID {
			stats.UpcomingDeadlines++
		}
	}
	return &stats, nil
}

func sortPlansNewestFirst(plans []models.StudyPlan) {
	sort.Slice(plans, func(i, j int) bool {
		return plans[i].CreatedAt.After(plans[j].CreatedAt)
	})
}
