package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kazesawa-dev/certtrack/internal/services"
)

// Maintenance bundles the periodic sweeps. Nothing here runs on its own
// timer; an operator or an external cron-like trigger invokes the scans.
type Maintenance struct {
	Achievements  *services.AchievementService
	Notifications *services.NotificationService
	Auth          *services.AuthService
	// Backups is nil when the remote backend is in use.
	Backups *services.BackupService
}

// NewMaintenance creates a new instance of Maintenance.
func NewMaintenance(
	achievements *services.AchievementService,
	notifications *services.NotificationService,
	auth *services.AuthService,
	backups *services.BackupService,
) *Maintenance {
	return &Maintenance{
		Achievements:  achievements,
		Notifications: notifications,
		Auth:          auth,
		Backups:       backups,
	}
}

// RunDailyScan runs expiry processing, the notification scans, session
// cleanup and backup retention in order. A failing step is logged and the
// scan continues with the next step.
func (m *Maintenance) RunDailyScan(ctx context.Context, now time.Time) {
	expired, err := m.Achievements.ProcessExpired(ctx, now)
	if err != nil {
		logrus.WithError(err).Error("ProcessExpired failed")
	} else if expired.Count > 0 {
		logrus.WithField("count", expired.Count).Info("Achievements expired during daily scan")
	}

	if _, err := m.Notifications.RunScheduled(ctx, now); err != nil {
		logrus.WithError(err).Error("Scheduled notification run failed")
	}

	if _, err := m.Auth.CleanupExpiredSessions(ctx); err != nil {
		logrus.WithError(err).Error("Session cleanup failed")
	}

	if m.Backups != nil {
		if _, err := m.Backups.CreateBackup(ctx); err != nil {
			logrus.WithError(err).Error("Daily backup failed")
		}
		if _, err := m.Backups.CleanupOldBackups(ctx, now); err != nil {
			logrus.WithError(err).Error("Backup retention sweep failed")
		}
	}

	logrus.Info("Daily maintenance scan completed")
}
