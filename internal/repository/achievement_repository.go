package repository

import (
	"context"
	"encoding/json"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
	"github.com/kazesawa-dev/certtrack/internal/models"
	"github.com/kazesawa-dev/certtrack/internal/storage"
)

// AchievementRepository handles typed access to the achievements collection.
type AchievementRepository struct {
	store storage.CollectionStore
}

// NewAchievementRepository creates a new instance of AchievementRepository.
func NewAchievementRepository(store storage.CollectionStore) *AchievementRepository {
	return &AchievementRepository{store: store}
}

func (r *AchievementRepository) Load(ctx context.Context) (*models.AchievementsData, string, error) {
	doc, err := r.store.Load(ctx, storage.CollectionAchievements)
	if err != nil {
		return nil, "", err
	}

	var data models.AchievementsData
	if err := json.Unmarshal(doc.Content, &data); err != nil {
		return nil, "", apperrors.StorageIOf("decode achievements collection: %v", err)
	}
	if data.Achievements == nil {
		data.Achievements = []models.Achievement{}
	}
	return &data, doc.Revision, nil
}

func (r *AchievementRepository) Save(ctx context.Context, data *models.AchievementsData, revision string) (string, error) {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", apperrors.StorageIOf("encode achievements collection: %v", err)
	}
	return r.store.Save(ctx, storage.CollectionAchievements, content, revision)
}
