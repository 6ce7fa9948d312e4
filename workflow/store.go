package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/datacheck_backend/config"
	"bitbucket.org/mmdatafocus/datacheck_backend/models"
	"github.com/shopspring/decimal"
)

// TableReader fetches rows and aggregates from the monitored tables.
// Implemented by models.DynamicTableStore.
type TableReader interface {
	RowsForDate(ctx context.Context, tableName string, columnNames []string, dateColumn string, date time.Time, exclusionCondition string) ([]map[string]any, error)
	AggregateForDate(ctx context.Context, tableName string, aggregateFunction string, columnName string, dateColumn string, date time.Time, exclusionCondition string) (*decimal.Decimal, error)
	JoinedRows(ctx context.Context, sourceTable string, targetTable string, sourceColumns []string, targetColumns []string, joinCondition string, dateColumn string, exclusionCondition string) ([]map[string]any, error)
}

// Store is the persistence collaborator for configuration lookups and run
// records. Implemented by models.Store.
type Store interface {
	EnabledComparisonConfigs(ctx context.Context) ([]models.ComparisonConfig, error)
	ComparisonConfigByTableName(ctx context.Context, tableName string) (*models.ComparisonConfig, error)
	ComparisonConfigByID(ctx context.Context, id int) (*models.ComparisonConfig, error)
	DayOverDayConfigForComparison(ctx context.Context, comparisonConfigID int) (*models.DayOverDayConfig, error)
	EnabledCrossTableConfigs(ctx context.Context, comparisonConfigID int) ([]models.CrossTableConfig, error)
	ColumnConfigsForDayOverDay(ctx context.Context, dayOverDayConfigID int) ([]models.ColumnComparisonConfig, error)
	ColumnConfigsForCrossTable(ctx context.Context, crossTableConfigID int) ([]models.ColumnComparisonConfig, error)
	ThresholdsForColumn(ctx context.Context, columnConfigID int) ([]models.ThresholdConfig, error)
	SaveValidationResult(ctx context.Context, result *models.ValidationResult) error
	SaveValidationDetailResult(ctx context.Context, detail *models.ValidationDetailResult) error
	ValidationResultByID(ctx context.Context, id int) (*models.ValidationResult, error)
	EnabledEmailConfigsForSeverity(ctx context.Context, severity models.Severity) ([]models.EmailNotificationConfig, error)
	EnqueueAlert(ctx context.Context, msg config.AlertMessage) error
}

var (
	_ Store       = (*models.Store)(nil)
	_ TableReader = (*models.DynamicTableStore)(nil)
)
