package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ThresholdConfig attaches a numeric threshold and severity to one column
// comparison. Several rows may exist per column; the engine uses the first
// one by id order.
type ThresholdConfig struct {
	ID                       int             `gorm:"primary_key" json:"id"`
	ColumnComparisonConfigId int             `gorm:"index;not null" json:"column_comparison_config_id" binding:"required"`
	ThresholdValue           decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"threshold_value"`
	Severity                 Severity        `gorm:"type:enum('HIGH','MEDIUM','LOW');size:10;not null" json:"severity" binding:"required"`
	NotificationEnabled      *bool           `gorm:"not null;default:true" json:"notification_enabled"`
	CreatedAt                time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c ThresholdConfig) IsNotificationEnabled() bool {
	return c.NotificationEnabled != nil && *c.NotificationEnabled
}
