package models

import "time"

// EmailNotificationConfig maps a recipient to the severity level they are
// alerted at. Consumed when composing alert outbox records.
type EmailNotificationConfig struct {
	ID            int       `gorm:"primary_key" json:"id"`
	EmailAddress  string    `gorm:"size:255;not null" json:"email_address" binding:"required,email"`
	SeverityLevel Severity  `gorm:"type:enum('HIGH','MEDIUM','LOW');size:10;not null" json:"severity_level" binding:"required"`
	Enabled       *bool     `gorm:"not null;default:true" json:"enabled"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
