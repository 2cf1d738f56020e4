package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//APIKeyLength is the number of hex characters in a generated account API key
const APIKeyLength = 64

//User is a login identity. Users reach an Account through their UserProfile.
type User struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	Username     string       `gorm:"size:150;not null;uniqueIndex" json:"username"`
	Email        string       `gorm:"size:254" json:"email"`
	PasswordHash string       `gorm:"not null" json:"-"`
	DateJoined   time.Time    `gorm:"autoCreateTime" json:"date_joined"`
	Profile      *UserProfile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

//Account is the tenant boundary. Every land, stake and reading belongs to exactly one account.
type Account struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	AdminID   uint      `gorm:"not null;index" json:"admin"`
	Admin     *User     `gorm:"foreignKey:AdminID" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	Active    bool      `gorm:"not null" json:"active"`
	APIKey    string    `gorm:"size:64;not null;uniqueIndex" json:"api_key"`
}

//BeforeCreate assigns an id and an API key to accounts that do not have them yet
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	if a.APIKey == "" {
		key, err := NewAPIKey()
		if err != nil {
			return err
		}
		a.APIKey = key
	}

	return nil
}

//IsAdministeredBy reports whether the user is the designated admin of the account
func (a *Account) IsAdministeredBy(user *User) bool {
	return user != nil && a.AdminID == user.ID
}

//NewAPIKey returns 32 random bytes encoded as 64 hex characters
func NewAPIKey() (string, error) {
	buf := make([]byte, APIKeyLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

//UserProfile binds a user to the account it is a member of
type UserProfile struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;uniqueIndex" json:"-"`
	AccountID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"account"`
	Account      *Account   `gorm:"foreignKey:AccountID" json:"-"`
	LastAPILogin *time.Time `json:"last_api_login"`
	Active       bool       `gorm:"not null" json:"active"`
}

//BeforeCreate assigns an id to new profiles
func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
