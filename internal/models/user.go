package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ActorType is the role an identity acts under.
type ActorType string

const (
	ActorCitizen    ActorType = "citizen"
	ActorLabour     ActorType = "labour"
	ActorAdmin      ActorType = "admin"
	ActorSuperAdmin ActorType = "superadmin"
)

// Valid reports whether t is a known actor type.
func (t ActorType) Valid() bool {
	switch t {
	case ActorCitizen, ActorLabour, ActorAdmin, ActorSuperAdmin:
		return true
	}
	return false
}

// User is an entry in the identity directory: citizens, labour and administrators.
// For admins and labour, City defines the operating scope.
type User struct {
	ID       string    `gorm:"primaryKey;type:uuid" json:"id"`
	Name     string    `gorm:"type:text" json:"name"`
	Email    string    `gorm:"type:text;index" json:"email"`
	Role     ActorType `gorm:"type:varchar(16);index;not null" json:"role"`
	City     string    `gorm:"type:varchar(128);index" json:"city"`
	District string    `gorm:"type:varchar(128)" json:"district"`
	Pincode  string    `gorm:"type:varchar(16)" json:"pincode"`
	Active   bool      `json:"active"`
}

// BeforeCreate generates a UUID for users created without one.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Actor returns the acting identity for this user.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Type: u.Role, City: u.City}
}

// Actor is the identity an engine operation is performed on behalf of.
// It is always passed explicitly; there is no ambient "current user".
type Actor struct {
	ID   string    `json:"actorId"`
	Type ActorType `json:"actorType"`
	City string    `json:"city,omitempty"`
}

// IsAdmin reports whether the actor is an admin or superadmin.
func (a Actor) IsAdmin() bool {
	return a.Type == ActorAdmin || a.Type == ActorSuperAdmin
}
