package models

import "time"

// Session is a bearer login session. Logout deactivates it in place; only
// the cleanup sweep physically removes records.
type Session struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsActive  bool      `json:"isActive"`
}

// IsValid reports whether the session authenticates requests at the given
// instant.
func (s *Session) IsValid(now time.Time) bool {
	return s.IsActive && s.ExpiresAt.After(now)
}

// SessionsData is the on-disk shape of the sessions collection.
type SessionsData struct {
	Sessions []Session `json:"sessions"`
}

func (d *SessionsData) FindByID(sessionID string) *Session {
	for i := range d.Sessions {
		if d.Sessions[i].SessionID == sessionID {
			return &d.Sessions[i]
		}
	}
	return nil
}
