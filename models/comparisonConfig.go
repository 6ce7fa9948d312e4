package models

import (
	"time"
)

// ComparisonConfig is the root of one monitored table: at most one
// day-over-day config plus any number of cross-table configs hang off it.
type ComparisonConfig struct {
	ID             int       `gorm:"primary_key" json:"id"`
	TableName      string    `gorm:"index;size:100;not null" json:"table_name" binding:"required"`
	Enabled        *bool     `gorm:"not null;default:true" json:"enabled"`
	Description    string    `gorm:"type:text" json:"description"`
	CreatedBy      string    `gorm:"size:100" json:"created_by"`
	LastModifiedBy string    `gorm:"size:100" json:"last_modified_by"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c ComparisonConfig) IsEnabled() bool {
	return c.Enabled != nil && *c.Enabled
}

// DayOverDayConfig compares a table against itself one day earlier.
// 1:1 with its ComparisonConfig.
type DayOverDayConfig struct {
	ID                 int       `gorm:"primary_key" json:"id"`
	ComparisonConfigId int       `gorm:"index;not null" json:"comparison_config_id" binding:"required"`
	Enabled            *bool     `gorm:"not null;default:true" json:"enabled"`
	ExclusionCondition string    `gorm:"type:text" json:"exclusion_condition"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c DayOverDayConfig) IsEnabled() bool {
	return c.Enabled != nil && *c.Enabled
}

// CrossTableConfig joins the owning ("source") table to a target table.
type CrossTableConfig struct {
	ID                       int       `gorm:"primary_key" json:"id"`
	SourceComparisonConfigId int       `gorm:"index;not null" json:"source_comparison_config_id" binding:"required"`
	TargetTableName          string    `gorm:"size:100;not null" json:"target_table_name" binding:"required"`
	JoinCondition            string    `gorm:"type:text;not null" json:"join_condition" binding:"required"`
	Enabled                  *bool     `gorm:"not null;default:true" json:"enabled"`
	CreatedAt                time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c CrossTableConfig) IsEnabled() bool {
	return c.Enabled != nil && *c.Enabled
}

// ColumnComparisonConfig belongs to exactly one parent: either a
// day-over-day config or a cross-table config, never both, never neither.
type ColumnComparisonConfig struct {
	ID                 int    `gorm:"primary_key" json:"id"`
	DayOverDayConfigId *int   `gorm:"index" json:"day_over_day_config_id"`
	CrossTableConfigId *int   `gorm:"index" json:"cross_table_config_id"`
	ColumnName         string `gorm:"size:100;not null" json:"column_name" binding:"required"`
	// TargetColumnName applies to cross-table columns only; nil means the
	// source column name is used on the target side too.
	TargetColumnName      *string          `gorm:"size:100" json:"target_column_name"`
	ComparisonType        ComparisonType   `gorm:"type:enum('PERCENTAGE','ABSOLUTE','EXACT');size:20;not null" json:"comparison_type" binding:"required"`
	NullHandlingStrategy  HandlingStrategy `gorm:"type:enum('IGNORE','TREAT_AS_NULL','TREAT_AS_ZERO','FAIL');size:20;not null" json:"null_handling_strategy" binding:"required"`
	BlankHandlingStrategy HandlingStrategy `gorm:"type:enum('IGNORE','TREAT_AS_NULL','TREAT_AS_ZERO','FAIL');size:20;not null" json:"blank_handling_strategy" binding:"required"`
	NaHandlingStrategy    HandlingStrategy `gorm:"type:enum('IGNORE','TREAT_AS_NULL','TREAT_AS_ZERO','FAIL');size:20;not null" json:"na_handling_strategy" binding:"required"`
	CreatedAt             time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// EffectiveTargetColumn resolves the target-side column for cross-table
// comparisons; falls back to the source column name.
func (c ColumnComparisonConfig) EffectiveTargetColumn() string {
	if c.TargetColumnName != nil && *c.TargetColumnName != "" {
		return *c.TargetColumnName
	}
	return c.ColumnName
}

// HasExactlyOneParent reports whether the parent invariant holds.
func (c ColumnComparisonConfig) HasExactlyOneParent() bool {
	return (c.DayOverDayConfigId != nil) != (c.CrossTableConfigId != nil)
}
