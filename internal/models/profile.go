// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxProfileLanguages is the product limit on declared languages per profile.
const MaxProfileLanguages = 3

// Profile is a member of the network. ID is the identity provider subject.
type Profile struct {
	ID         string     `gorm:"primaryKey;size:128" json:"id"`
	Name       string     `gorm:"size:100;not null" json:"name"`
	University string     `gorm:"size:200" json:"university"`
	Course     string     `gorm:"size:200" json:"course"`
	AvatarURL  string     `gorm:"size:1024" json:"avatar_url"`
	Birthdate  *time.Time `json:"birthdate,omitempty"`
	Languages  []string   `gorm:"type:text;serializer:json" json:"languages"`
	// Online is derived from realtime presence, never persisted
	Online    bool           `gorm:"-" json:"online"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the database table name for Profile.
func (Profile) TableName() string {
	return "profiles"
}

// Summary returns the denormalized author shape embedded in posts, comments and notifications.
func (p *Profile) Summary() *AuthorSummary {
	if p == nil {
		return nil
	}
	return &AuthorSummary{
		ID:         p.ID,
		Name:       p.Name,
		University: p.University,
		AvatarURL:  p.AvatarURL,
	}
}

// AuthorSummary is the profile subset shown next to posts, comments and notifications.
type AuthorSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	University string `json:"university,omitempty"`
	AvatarURL  string `json:"avatar_url"`
}
