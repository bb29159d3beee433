package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/kazesawa-dev/certtrack/internal/jobs"
)

// StartMaintenanceCronJobs wires the external cron-like trigger around the
// maintenance sweeps. The returned cron can be stopped on shutdown.
func StartMaintenanceCronJobs(maintenance *jobs.Maintenance) *cron.Cron {
	c := cron.New()

	// Full maintenance scan once a day
	c.AddFunc("@daily", func() {
		maintenance.RunDailyScan(context.Background(), time.Now())
	})

	// Reminder thresholds are day granular, but an hourly pass catches
	// records created during the day; dedup keeps it idempotent.
	c.AddFunc("@hourly", func() {
		if _, err := maintenance.Notifications.RunScheduled(context.Background(), time.Now()); err != nil {
			logrus.WithError(err).Error("RunScheduled failed")
		}
	})

	c.Start()
	return c
}
