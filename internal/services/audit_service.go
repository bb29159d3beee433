package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kazesawa-dev/certtrack/pkg/logger"
)

// AuditEntry describes one mutating operation for the audit trail.
type AuditEntry struct {
	Actor      string
	Action     string
	Resource   string
	ResourceID string
	Before     interface{}
	After      interface{}
}

// AuditService records who did what to which resource. It writes structured
// log events and never fails the operation it is auditing.
type AuditService struct{}

func NewAuditService() *AuditService {
	return &AuditService{}
}

func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	fields := logrus.Fields{
		"actor":    entry.Actor,
		"action":   entry.Action,
		"resource": entry.Resource,
	}
	if entry.ResourceID != "" {
		fields["resource_id"] = entry.ResourceID
	}
	if entry.Before != nil {
		fields["before"] = entry.Before
	}
	if entry.After != nil {
		fields["after"] = entry.After
	}

	logger.Log.WithFields(fields).Info("Audit event")
}
