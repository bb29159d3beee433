package models

import "time"

// Achievement records that a member obtained a certification.
type Achievement struct {
	ID                  string     `json:"id"`
	UserID              string     `json:"userId"`
	CertificationID     string     `json:"certificationId"`
	AchievedDate        time.Time  `json:"achievedDate"`
	CertificationNumber string     `json:"certificationNumber,omitempty"`
	ExpiryDate          *time.Time `json:"expiryDate,omitempty"`
	IsActive            bool       `json:"isActive"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// AchievementsData is the on-disk shape of the achievements collection.
type AchievementsData struct {
	Achievements []Achievement `json:"achievements"`
}

func (d *AchievementsData) FindByID(id string) *Achievement {
	for i := range d.Achievements {
		if d.Achievements[i].ID == id {
			return &d.Achievements[i]
		}
	}
	return nil
}

// FindActive returns the active achievement for a (user, certification) pair,
// if any.
func (d *AchievementsData) FindActive(userID, certificationID string) *Achievement {
	for i := range d.Achievements {
		a := &d.Achievements[i]
		if a.UserID == userID && a.CertificationID == certificationID && a.IsActive {
			return a
		}
	}
	return nil
}
