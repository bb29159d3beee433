package repository

import (
	"context"
	"encoding/json"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
	"github.com/kazesawa-dev/certtrack/internal/models"
	"github.com/kazesawa-dev/certtrack/internal/storage"
)

// PlanRepository handles typed access to the studyPlans collection.
type PlanRepository struct {
	store storage.CollectionStore
}

// NewPlanRepository creates a new instance of PlanRepository.
func NewPlanRepository(store storage.CollectionStore) *PlanRepository {
	return &PlanRepository{store: store}
}

func (r *PlanRepository) Load(ctx context.Context) (*models.StudyPlansData, string, error) {
	doc, err := r.store.Load(ctx, storage.CollectionStudyPlans)
	if err != nil {
		return nil, "", err
	}

	var data models.StudyPlansData
	if err := json.Unmarshal(doc.Content, &data); err != nil {
		return nil, "", apperrors.StorageIOf("decode studyPlans collection: %v", err)
	}
	if data.StudyPlans == nil {
		data.StudyPlans = []models.StudyPlan{}
	}
	return &data, doc.Revision, nil
}

func (r *PlanRepository) Save(ctx context.Context, data *models.StudyPlansData, revision string) (string, error) {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", apperrors.StorageIOf("encode studyPlans collection: %v", err)
	}
	return r.store.Save(ctx, storage.CollectionStudyPlans, content, revision)
}
