package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Status       string
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

// RoleGrantModel pairs an identity with a role; unique per pair.
type RoleGrantModel struct {
	UserID    string    `gorm:"primaryKey"`
	Role      string    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

type ApplicationModel struct {
	ID            string  `gorm:"primaryKey"`
	UserID        *string `gorm:"index"`
	ApplicantName string  `gorm:"index"`
	Email         string  `gorm:"index"`
	Phone         string
	Status        string         `gorm:"not null;index"`
	Payload       datatypes.JSON `gorm:"type:jsonb;not null"`
	SubmittedAt   time.Time      `gorm:"not null;index"`
	UpdatedAt     time.Time      `gorm:"not null"`
}
