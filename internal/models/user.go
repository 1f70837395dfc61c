package models

import (
	"gorm.io/gorm"
)

// Account holds sign-in credentials. Profile data lives in the document
// store under users/{uid}.
type Account struct {
	gorm.Model
	UID          string `gorm:"uniqueIndex"`
	Email        string `gorm:"uniqueIndex"`
	PasswordHash string
	DisplayName  string
	DiscordID    string `gorm:"index"`
}

// Identity is the authenticated caller, resolved once per request and passed
// explicitly to anything that needs it.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type User struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Email              string         `json:"email"`
	Age                string         `json:"age"`
	DOB                string         `json:"dob"`
	Department         string         `json:"department"`
	Year               string         `json:"year"`
	RegistrationNumber string         `json:"registration_number"`
	RollNumber         string         `json:"roll_number"`
	ProfileImage       string         `json:"profile_image"`
	Extra              map[string]any `json:"extra,omitempty"`
}
