package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValidationResult is one run record of a comparison unit. Append-only:
// created by the threshold validator, never updated by anything else.
type ValidationResult struct {
	ID                 int       `gorm:"primary_key" json:"id"`
	ComparisonConfigId int       `gorm:"index;not null" json:"comparison_config_id"`
	ExecutionDate      time.Time `gorm:"index;not null" json:"execution_date"`
	Success            bool      `gorm:"not null" json:"success"`
	ErrorMessage       *string   `gorm:"type:text" json:"error_message"`
	ExecutionTimeMs    *int      `json:"execution_time_ms"`
	CorrelationId      string    `gorm:"size:64" json:"correlation_id"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ValidationDetailResult is one column (day-over-day) or row x column
// (cross-table) outcome within a run.
type ValidationDetailResult struct {
	ID                       int              `gorm:"primary_key" json:"id"`
	ValidationResultId       int              `gorm:"index;not null" json:"validation_result_id"`
	ColumnComparisonConfigId int              `gorm:"index;not null" json:"column_comparison_config_id"`
	ThresholdExceeded        bool             `gorm:"not null" json:"threshold_exceeded"`
	ActualValue              *decimal.Decimal `gorm:"type:decimal(18,4)" json:"actual_value"`
	ExpectedValue            *decimal.Decimal `gorm:"type:decimal(18,4)" json:"expected_value"`
	DifferenceValue          *decimal.Decimal `gorm:"type:decimal(18,4)" json:"difference_value"`
	DifferencePercentage     *decimal.Decimal `gorm:"type:decimal(18,4)" json:"difference_percentage"`
	CreatedAt                time.Time        `gorm:"autoCreateTime" json:"created_at"`
}
