package models

import "time"

type NotificationType string

const (
	NotificationPlanReminder      NotificationType = "plan_reminder"
	NotificationExpiryWarning     NotificationType = "expiry_warning"
	NotificationNewCertification  NotificationType = "new_certification"
	NotificationAchievementReport NotificationType = "achievement_report"
)

// Notification is a persisted message for one user.
type Notification struct {
	ID        string               `json:"id"`
	UserID    string               `json:"userId"`
	Type      NotificationType     `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Payload   *NotificationPayload `json:"payload,omitempty"`
	IsRead    bool                 `json:"isRead"`
	CreatedAt time.Time            `json:"createdAt"`
}

// NotificationPayload carries the typed context for a notification. Which
// fields are set is determined by the notification type: reminders reference
// a plan, warnings an achievement, broadcasts a certification.
type NotificationPayload struct {
	PlanID            string     `json:"planId,omitempty"`
	AchievementID     string     `json:"achievementId,omitempty"`
	CertificationID   string     `json:"certificationId,omitempty"`
	CertificationName string     `json:"certificationName,omitempty"`
	UserID            string     `json:"userId,omitempty"`
	UserName          string     `json:"userName,omitempty"`
	TargetDate        *time.Time `json:"targetDate,omitempty"`
	ExpiryDate        *time.Time `json:"expiryDate,omitempty"`
	AchievedDate      *time.Time `json:"achievedDate,omitempty"`
	DaysUntil         int        `json:"daysUntil,omitempty"`
	// Threshold is the reminder threshold (in days) this notification
	// satisfied. The scheduler reads it back to stay gap tolerant.
	Threshold int `json:"threshold,omitempty"`
}

// NotificationsData is the on-disk shape of the notifications collection.
type NotificationsData struct {
	Notifications []Notification `json:"notifications"`
}

func (d *NotificationsData) FindByID(id string) *Notification {
	for i := range d.Notifications {
		if d.Notifications[i].ID == id {
			return &d.Notifications[i]
		}
	}
	return nil
}
