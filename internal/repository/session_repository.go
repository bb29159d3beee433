package repository

import (
	"context"
	"encoding/json"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
	"github.com/kazesawa-dev/certtrack/internal/models"
	"github.com/kazesawa-dev/certtrack/internal/storage"
)

// SessionRepository handles typed access to the sessions collection.
type SessionRepository struct {
	store storage.CollectionStore
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(store storage.CollectionStore) *SessionRepository {
	return &SessionRepository{store: store}
}

func (r *SessionRepository) Load(ctx context.Context) (*models.SessionsData, string, error) {
	doc, err := r.store.Load(ctx, storage.CollectionSessions)
	if err != nil {
		return nil, "", err
	}

	var data models.SessionsData
	if err := json.Unmarshal(doc.Content, &data); err != nil {
		return nil, "", apperrors.StorageIOf("decode sessions collection: %v", err)
	}
	if data.Sessions == nil {
		data.Sessions = []models.Session{}
	}
	return &data, doc.Revision, nil
}

func (r *SessionRepository) Save(ctx context.Context, data *models.SessionsData, revision string) (string, error) {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", apperrors.StorageIOf("encode sessions collection: %v", err)
	}
	return r.store.Save(ctx, storage.CollectionSessions, content, revision)
}
