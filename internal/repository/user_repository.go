package repository

import (
	"context"
	"encoding/json"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
	"github.com/kazesawa-dev/certtrack/internal/models"
	"github.com/kazesawa-dev/certtrack/internal/storage"
)

// UserRepository handles typed access to the users collection. Every
// operation is a whole-collection read-modify-write: load once, mutate in
// memory, save the full snapshot back with the revision the load returned.
type UserRepository struct {
	store storage.CollectionStore
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(store storage.CollectionStore) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) Load(ctx context.Context) (*models.UsersData, string, error) {
	doc, err := r.store.Load(ctx, storage.CollectionUsers)
	if err != nil {
		return nil, "", err
	}

	var data models.UsersData
	if err := json.Unmarshal(doc.Content, &data); err != nil {
		return nil, "", apperrors.StorageIOf("decode users collection: %v", err)
	}
	if data.Users == nil {
		data.Users = []models.User{}
	}
	return &data, doc.Revision, nil
}

func (r *UserRepository) Save(ctx context.Context, data *models.UsersData, revision string) (string, error) {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", apperrors.StorageIOf("encode users collection: %v", err)
	}
	return r.store.Save(ctx, storage.CollectionUsers, content, revision)
}
