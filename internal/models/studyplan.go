package models

import "time"

type PlanStatus string

const (
	PlanPlanning   PlanStatus = "planning"
	PlanInProgress PlanStatus = "in_progress"
	PlanCompleted  PlanStatus = "completed"
	PlanCancelled  PlanStatus = "cancelled"
)

// IsActive reports whether the plan still counts toward the
// one-active-plan-per-certification invariant.
func (s PlanStatus) IsActive() bool {
	return s == PlanPlanning || s == PlanInProgress
}

// IsTerminal reports whether the plan has reached a final state.
func (s PlanStatus) IsTerminal() bool {
	return s == PlanCompleted || s == PlanCancelled
}

// StudyPlan tracks a member's preparation toward one certification.
type StudyPlan struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	CertificationID string     `json:"certificationId"`
	StartDate       time.Time  `json:"startDate"`
	TargetDate      time.Time  `json:"targetDate"`
	Progress        int        `json:"progress"` // 0-100
	Status          PlanStatus `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// StudyPlansData is the on-disk shape of the studyPlans collection.
type StudyPlansData struct {
	StudyPlans []StudyPlan `json:"studyPlans"`
}

func (d *StudyPlansData) FindByID(id string) *StudyPlan {
	for i := range d.StudyPlans {
		if d.StudyPlans[i].ID == id {
			return &d.StudyPlans[i]
		}
	}
	return nil
}

// FindActive returns the active plan for a (user, certification) pair, if any.
func (d *StudyPlansData) FindActive(userID, certificationID string) *StudyPlan {
	for i := range d.StudyPlans {
		p := &d.StudyPlans[i]
		if p.UserID == userID && p.CertificationID == certificationID && p.Status.IsActive() {
			return p
		}
	}
	return nil
}
