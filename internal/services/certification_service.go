package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
	"github.com/kazesawa-dev/certtrack/internal/models"
	"github.com/kazesawa-dev/certtrack/internal/repository"
	"github.com/kazesawa-dev/certtrack/pkg/logger"
)

// CreateCertificationRequest describes a new catalog entry.
type CreateCertificationRequest struct {
	Name           string
	Issuer         string
	Category       models.CertificationCategory
	Difficulty     int
	Description    string
	ValidityPeriod *int
}

// UpdateCertificationRequest patches a catalog entry; nil fields are left
// unchanged.
type UpdateCertificationRequest struct {
	Name           *string
	Issuer         *string
	Category       *models.CertificationCategory
	Difficulty     *int
	Description    *string
	ValidityPeriod *int
}

// CertificationFilters narrows List results.
type CertificationFilters struct {
	Category   models.CertificationCategory
	Issuer     string
	Difficulty int
}

// CertificationService manages the certification catalog.
type CertificationService struct {
	certifications *repository.CertificationRepository
	plans          *repository.PlanRepository
	achievements   *repository.AchievementRepository
	notifications  *NotificationService
	audit          *AuditService
}

// NewCertificationService creates a new instance of CertificationService.
func NewCertificationService(
	certifications *repository.CertificationRepository,
	plans *repository.PlanRepository,
	achievements *repository.AchievementRepository,
	notifications *NotificationService,
	audit *AuditService,
) *CertificationService {
	return &CertificationService{
		certifications: certifications,
		plans:          plans,
		achievements:   achievements,
		notifications:  notifications,
		audit:          audit,
	}
}

// CreateCertification adds a catalog entry and notifies every user about it.
func (s *CertificationService) CreateCertification(ctx context.Context, actorID string, req CreateCertificationRequest) (*models.Certification, error) {
	if req.Name == "" || req.Issuer == "" {
		return nil, apperrors.Validationf("name and issuer are required")
	}
	if req.Difficulty < 1 || req.Difficulty > 5 {
		return nil, apperrors.Validationf("difficulty must be between 1 and 5")
	}

	certsData, rev, err := s.certifications.Load(ctx)
	if err != nil {
		return nil, err
	}

	for i := range certsData.Certifications {
		c := &certsData.Certifications[i]
		if c.Name == req.Name && c.Issuer == req.Issuer {
			return nil, apperrors.Conflictf("certification %q by %q already exists", req.Name, req.Issuer)
		}
	}

	now := time.Now()
	cert := models.Certification{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Issuer:         req.Issuer,
		Category:       req.Category,
		Difficulty:     req.Difficulty,
		Description:    req.Description,
		ValidityPeriod: req.ValidityPeriod,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	certsData.Certifications = append(certsData.Certifications, cert)

	if _, err := s.certifications.Save(ctx, certsData, rev); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{Actor: actorID, Action: "create_certification", Resource: ResourceCertifications, ResourceID: cert.ID, After: cert})
	logger.Log.WithField("certification_id", cert.ID).Info("Certification created")

	if count, err := s.notifications.BroadcastNewCertification(ctx, cert.ID); err != nil {
		logger.Log.WithError(err).Warn("Failed to broadcast new certification")
	} else {
		logger.Log.WithField("count", count).Info("New certification broadcast sent")
	}

	return &cert, nil
}

// UpdateCertification patches a catalog entry.
func (s *CertificationService) UpdateCertification(ctx context.Context, actorID, certificationID string, req UpdateCertificationRequest) (*models.Certification, error) {
	certsData, rev, err := s.certifications.Load(ctx)
	if err != nil {
		return nil, err
	}

	cert := certsData.FindByID(certificationID)
	if cert == nil {
		return nil, apperrors.NotFoundf("certification %s", certificationID)
	}
	before := *cert

	if req.Difficulty != nil {
		if *req.Difficulty < 1 || *req.Difficulty > 5 {
			return nil, apperrors.Validationf("difficulty must be between 1 and 5")
		}
		cert.Difficulty = *req.Difficulty
	}
	if req.Name != nil {
		cert.Name = *req.Name
	}
	if req.Issuer != nil {
		cert.Issuer = *req.Issuer
	}
	if req.Category != nil {
		cert.Category = *req.Category
	}
	if req.Description != nil {
		cert.Description = *req.Description
	}
	if req.ValidityPeriod != nil {
		cert.ValidityPeriod = req.ValidityPeriod
	}
	cert.UpdatedAt = time.Now()

	if _, err := s.certifications.Save(ctx, certsData, rev); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{Actor: actorID, Action: "update_certification", Resource: ResourceCertifications, ResourceID: certificationID, Before: before, After: *cert})
	return cert, nil
}

// DeleteCertification removes a catalog entry. Entries still referenced by
// an active plan or achievement are kept.
func (s *CertificationService) DeleteCertification(ctx context.Context, actorID, certificationID string) error {
	plansData, _, err := s.plans.Load(ctx)
	if err != nil {
		return err
	}
	for i := range plansData.StudyPlans {
		p := &plansData.StudyPlans[i]
		if p.CertificationID == certificationID && p.Status.IsActive() {
			return apperrors.Conflictf("certification %s has active study plans", certificationID)
		}
	}

	achievementsData, _, err := s.achievements.Load(ctx)
	if err != nil {
		return err
	}
	for i := range achievementsData.Achievements {
		a := &achievementsData.Achievements[i]
		if a.CertificationID == certificationID && a.IsActive {
			return apperrors.Conflictf("certification %s has active achievements", certificationID)
		}
	}

	certsData, rev, err := s.certifications.Load(ctx)
	if err != nil {
		return err
	}

	found := false
	kept := certsData.Certifications[:0]
	for _, cert := range certsData.Certifications {
		if cert.ID == certificationID {
			found = true
			continue
		}
		kept = append(kept, cert)
	}
	if !found {
		return apperrors.NotFoundf("certification %s", certificationID)
	}
	certsData.Certifications = kept

	if _, err := s.certifications.Save(ctx, certsData, rev); err != nil {
		return err
	}

	s.audit.Record(ctx, AuditEntry{Actor: actorID, Action: "delete_certification", Resource: ResourceCertifications, ResourceID: certificationID})
	return nil
}

// GetCertification retrieves one catalog entry.
func (s *CertificationService) GetCertification(ctx context.Context, certificationID string) (*models.Certification, error) {
	certsData, _, err := s.certifications.Load(ctx)
	if err != nil {
		return nil, err
	}

	cert := certsData.FindByID(certificationID)
	if cert == nil {
		return nil, apperrors.NotFoundf("certification %s", certificationID)
	}
	return cert, nil
}

// ListCertifications returns catalog entries matching the filters. Zero
// values match everything.
func (s *CertificationService) ListCertifications(ctx context.Context, filters CertificationFilters) ([]models.Certification, error) {
	certsData, _, err := s.certifications.Load(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]models.Certification, 0, len(certsData.Certifications))
	for _, cert := range certsData.Certifications {
		if filters.Category != "" && cert.Category != filters.Category {
			continue
		}
		if filters.Issuer != "" && cert.Issuer != filters.Issuer {
			continue
		}
		if filters.Difficulty != 0 && cert.Difficulty != filters.Difficulty {
			continue
		}
		matched = append(matched, cert)
	}
	return matched, nil
}
