// Package models contains data structures for the application's domain models.
package models

import (
	"encoding/json"
	"time"
)

// User represents a registered account.
//
// FollowedIDs is nil until the user follows someone for the first time; after
// that it stays non-nil even if every followee is removed again.
type User struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Password      string    `gorm:"not null" json:"-"`
	FollowStarted bool      `gorm:"not null;default:false" json:"-"`
	FollowedIDs   IDSet     `gorm:"-" json:"-"`
	CreatedAt     time.Time `json:"-"`
}

// MarshalJSON renders the user without its password. The follow list is only
// present once the user has followed someone.
func (u User) MarshalJSON() ([]byte, error) {
	type view struct {
		ID     uint    `json:"id"`
		Name   string  `json:"name"`
		Email  string  `json:"email"`
		Follow *[]uint `json:"follow,omitempty"`
	}
	v := view{ID: u.ID, Name: u.Name, Email: u.Email}
	if u.FollowedIDs != nil {
		ids := u.FollowedIDs.Sorted()
		v.Follow = &ids
	}
	return json.Marshal(v)
}

// FollowedSet returns a copy of the followed ids, empty when the user never
// followed anyone. Mutating the result never touches stored state.
func (u *User) FollowedSet() IDSet {
	if u.FollowedIDs == nil {
		return IDSet{}
	}
	return u.FollowedIDs.Clone()
}

// Clone returns a deep copy safe to hand out of a store.
func (u *User) Clone() *User {
	cp := *u
	cp.FollowedIDs = u.FollowedIDs.Clone()
	return &cp
}

// UserProfile is the public projection of a user used by lookups and listings.
type UserProfile struct {
	UserID uint   `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{UserID: u.ID, Name: u.Name, Email: u.Email}
}

// Follow is a directed follower -> followee edge as stored by the SQL backend.
type Follow struct {
	FollowerID uint `gorm:"primaryKey;autoIncrement:false"`
	FolloweeID uint `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt  time.Time
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}
