package models

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// User represents a member account in the certification tracker.
type User struct {
	ID                     string     `json:"id"`
	Email                  string     `json:"email"`
	Name                   string     `json:"name"`
	Role                   Role       `json:"role"`
	PasswordHash           string     `json:"passwordHash"`
	RequiresPasswordChange bool       `json:"requiresPasswordChange"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
	LastLoginAt            *time.Time `json:"lastLoginAt,omitempty"`
}

// PublicUser is the view handed out to callers; it never carries the hash.
type PublicUser struct {
	ID                     string     `json:"id"`
	Email                  string     `json:"email"`
	Name                   string     `json:"name"`
	Role                   Role       `json:"role"`
	RequiresPasswordChange bool       `json:"requiresPasswordChange"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
	LastLoginAt            *time.Time `json:"lastLoginAt,omitempty"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:                     u.ID,
		Email:                  u.Email,
		Name:                   u.Name,
		Role:                   u.Role,
		RequiresPasswordChange: u.RequiresPasswordChange,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
		LastLoginAt:            u.LastLoginAt,
	}
}

// UsersData is the on-disk shape of the users collection.
type UsersData struct {
	Users []User `json:"users"`
}

func (d *UsersData) FindByID(id string) *User {
	for i := range d.Users {
		if d.Users[i].ID == id {
			return &d.Users[i]
		}
	}
	return nil
}

func (d *UsersData) FindByEmail(email string) *User {
	for i := range d.Users {
		if d.Users[i].Email == email {
			return &d.Users[i]
		}
	}
	return nil
}
