package models

import "time"

type CertificationCategory string

const (
	CategoryCloud             CertificationCategory = "cloud"
	CategorySecurity          CertificationCategory = "security"
	CategoryProgramming       CertificationCategory = "programming"
	CategoryDatabase          CertificationCategory = "database"
	CategoryNetwork           CertificationCategory = "network"
	CategoryProjectManagement CertificationCategory = "project_management"
)

// Certification is a catalog entry members can plan toward and achieve.
type Certification struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Issuer      string                `json:"issuer"`
	Category    CertificationCategory `json:"category"`
	Difficulty  int                   `json:"difficulty"` // 1-5
	Description string                `json:"description"`
	// ValidityPeriod is in months; nil means the certification never expires.
	ValidityPeriod *int      `json:"validityPeriod,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// CertificationsData is the on-disk shape of the certifications collection.
type CertificationsData struct {
	Certifications []Certification `json:"certifications"`
}

func (d *CertificationsData) FindByID(id string) *Certification {
	for i := range d.Certifications {
		if d.Certifications[i].ID == id {
			return &d.Certifications[i]
		}
	}
	return nil
}
