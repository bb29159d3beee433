package repository

import (
	"context"
	"encoding/json"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
	"github.com/kazesawa-dev/certtrack/internal/models"
	"github.com/kazesawa-dev/certtrack/internal/storage"
)

// CertificationRepository handles typed access to the certifications
// collection.
type CertificationRepository struct {
	store storage.CollectionStore
}

// NewCertificationRepository creates a new instance of CertificationRepository.
func NewCertificationRepository(store storage.CollectionStore) *CertificationRepository {
	return &CertificationRepository{store: store}
}

func (r *CertificationRepository) Load(ctx context.Context) (*models.CertificationsData, string, error) {
	doc, err := r.store.Load(ctx, storage.CollectionCertifications)
	if err != nil {
		return nil, "", err
	}

	var data models.CertificationsData
	if err := json.Unmarshal(doc.Content, &data); err != nil {
		return nil, "", apperrors.StorageIOf("decode certifications collection: %v", err)
	}
	if data.Certifications == nil {
		data.Certifications = []models.Certification{}
	}
	return &data, doc.Revision, nil
}

func (r *CertificationRepository) Save(ctx context.Context, data *models.CertificationsData, revision string) (string, error) {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", apperrors.StorageIOf("encode certifications collection: %v", err)
	}
	return r.store.Save(ctx, storage.CollectionCertifications, content, revision)
}
