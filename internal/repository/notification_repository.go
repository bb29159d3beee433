package repository

import (
	"context"
	"encoding/json"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
	"github.com/kazesawa-dev/certtrack/internal/models"
	"github.com/kazesawa-dev/certtrack/internal/storage"
)

// NotificationRepository handles typed access to the notifications
// collection.
type NotificationRepository struct {
	store storage.CollectionStore
}

// NewNotificationRepository creates a new instance of NotificationRepository.
func NewNotificationRepository(store storage.CollectionStore) *NotificationRepository {
	return &NotificationRepository{store: store}
}

func (r *NotificationRepository) Load(ctx context.Context) (*models.NotificationsData, string, error) {
	doc, err := r.store.Load(ctx, storage.CollectionNotifications)
	if err != nil {
		return nil, "", err
	}

	var data models.NotificationsData
	if err := json.Unmarshal(doc.Content, &data); err != nil {
		return nil, "", apperrors.StorageIOf("decode notifications collection: %v", err)
	}
	if data.Notifications == nil {
		data.Notifications = []models.Notification{}
	}
	return &data, doc.Revision, nil
}

func (r *NotificationRepository) Save(ctx context.Context, data *models.NotificationsData, revision string) (string, error) {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", apperrors.StorageIOf("encode notifications collection: %v", err)
	}
	return r.store.Save(ctx, storage.CollectionNotifications, content, revision)
}
