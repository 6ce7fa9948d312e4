package models

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/datacheck_backend/config"
	"gorm.io/gorm"
)

// Store is the gorm-backed persistence collaborator handed to the workflow
// package. Lookups return (nil, nil) for missing rows so callers can treat
// absence as a normal outcome.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) EnabledComparisonConfigs(ctx context.Context) ([]ComparisonConfig, error) {
	var configs []ComparisonConfig
	err := s.DB.WithContext(ctx).Where("enabled = ?", true).Order("id ASC").Find(&configs).Error
	return configs, err
}

func (s *Store) ComparisonConfigByTableName(ctx context.Context, tableName string) (*ComparisonConfig, error) {
	var cfg ComparisonConfig
	err := s.DB.WithContext(ctx).Where("LOWER(table_name) = LOWER(?)", tableName).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) ComparisonConfigByID(ctx context.Context, id int) (*ComparisonConfig, error) {
	var cfg ComparisonConfig
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) DayOverDayConfigForComparison(ctx context.Context, comparisonConfigID int) (*DayOverDayConfig, error) {
	var cfg DayOverDayConfig
	err := s.DB.WithContext(ctx).Where("comparison_config_id = ?", comparisonConfigID).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) EnabledCrossTableConfigs(ctx context.Context, comparisonConfigID int) ([]CrossTableConfig, error) {
	var configs []CrossTableConfig
	err := s.DB.WithContext(ctx).
		Where("source_comparison_config_id = ? AND enabled = ?", comparisonConfigID, true).
		Order("id ASC").
		Find(&configs).Error
	return configs, err
}

func (s *Store) ColumnConfigsForDayOverDay(ctx context.Context, dayOverDayConfigID int) ([]ColumnComparisonConfig, error) {
	var configs []ColumnComparisonConfig
	err := s.DB.WithContext(ctx).
		Where("day_over_day_config_id = ?", dayOverDayConfigID).
		Order("id ASC").
		Find(&configs).Error
	return configs, err
}

func (s *Store) ColumnConfigsForCrossTable(ctx context.Context, crossTableConfigID int) ([]ColumnComparisonConfig, error) {
	var configs []ColumnComparisonConfig
	err := s.DB.WithContext(ctx).
		Where("cross_table_config_id = ?", crossTableConfigID).
		Order("id ASC").
		Find(&configs).Error
	return configs, err
}

// ThresholdsForColumn returns every threshold row for a column, id order.
// The engine uses the first one per column.
func (s *Store) ThresholdsForColumn(ctx context.Context, columnConfigID int) ([]ThresholdConfig, error) {
	var configs []ThresholdConfig
	err := s.DB.WithContext(ctx).
		Where("column_comparison_config_id = ?", columnConfigID).
		Order("id ASC").
		Find(&configs).Error
	return configs, err
}

func (s *Store) SaveValidationResult(ctx context.Context, result *ValidationResult) error {
	return s.DB.WithContext(ctx).Save(result).Error
}

func (s *Store) SaveValidationDetailResult(ctx context.Context, detail *ValidationDetailResult) error {
	return s.DB.WithContext(ctx).Save(detail).Error
}

func (s *Store) ValidationResultByID(ctx context.Context, id int) (*ValidationResult, error) {
	var result ValidationResult
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *Store) EnabledEmailConfigsForSeverity(ctx context.Context, severity Severity) ([]EmailNotificationConfig, error) {
	var configs []EmailNotificationConfig
	err := s.DB.WithContext(ctx).
		Where("severity_level = ? AND enabled = ?", severity, true).
		Order("id ASC").
		Find(&configs).Error
	return configs, err
}

func (s *Store) EnqueueAlert(ctx context.Context, msg config.AlertMessage) error {
	return EnqueueAlert(ctx, s.DB, msg)
}

// ValidationResults pages the run history, newest first. configID narrows
// to one comparison config when non-nil.
func (s *Store) ValidationResults(ctx context.Context, page, pageSize int, configID *int) ([]ValidationResult, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	q := s.DB.WithContext(ctx).Model(&ValidationResult{})
	if configID != nil {
		q = q.Where("comparison_config_id = ?", *configID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []ValidationResult
	err := q.Order("execution_date DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&results).Error
	return results, total, err
}

func (s *Store) DetailResultsForRun(ctx context.Context, resultID int) ([]ValidationDetailResult, error) {
	var details []ValidationDetailResult
	err := s.DB.WithContext(ctx).
		Where("validation_result_id = ?", resultID).
		Order("id ASC").
		Find(&details).Error
	return details, err
}
