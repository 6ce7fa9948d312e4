package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/datacheck_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DayOverDayComparator compares a table's reduced column values for "today"
// against the same table one day earlier. Aggregate-expression columns
// (e.g. SUM(amount)) are evaluated as one scalar per day; regular columns
// are summed across the day's qualifying rows.
type DayOverDayComparator struct {
	tables TableReader
	logger *logrus.Logger
}

func NewDayOverDayComparator(tables TableReader, logger *logrus.Logger) *DayOverDayComparator {
	return &DayOverDayComparator{tables: tables, logger: logger}
}

func (c *DayOverDayComparator) Compare(ctx context.Context, owner models.ComparisonConfig, config models.DayOverDayConfig, columnConfigs []models.ColumnComparisonConfig, thresholds map[int]models.ThresholdConfig) ([]models.ValidationDetailResult, error) {
	c.logger.WithFields(logrus.Fields{"config_id": config.ID, "table": owner.TableName}).Debug("starting day-over-day comparison")

	tableName := owner.TableName
	exclusionCondition := config.ExclusionCondition

	today := time.Now()
	yesterday := today.AddDate(0, 0, -1)

	// Fetch both days' rows once for the regular (non-aggregate) columns.
	var regularColumns []string
	for _, col := range columnConfigs {
		if !isAggregateColumn(col.ColumnName) {
			regularColumns = append(regularColumns, col.ColumnName)
		}
	}

	var todayRows, yesterdayRows []map[string]any
	if len(regularColumns) > 0 {
		var err error
		todayRows, err = c.tables.RowsForDate(ctx, tableName, regularColumns, dateColumn, today, exclusionCondition)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataAccess, err)
		}
		yesterdayRows, err = c.tables.RowsForDate(ctx, tableName, regularColumns, dateColumn, yesterday, exclusionCondition)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataAccess, err)
		}
	}

	var results []models.ValidationDetailResult
	for _, col := range columnConfigs {
		threshold, ok := thresholds[col.ID]
		if !ok {
			c.logger.WithFields(logrus.Fields{"column_config_id": col.ID}).Warn("no threshold configuration found for column config")
			continue
		}

		var (
			detail models.ValidationDetailResult
			err    error
		)
		if isAggregateColumn(col.ColumnName) {
			detail, err = c.compareAggregate(ctx, tableName, today, yesterday, exclusionCondition, col, threshold)
		} else {
			detail, err = c.compareRegularColumn(todayRows, yesterdayRows, col, threshold)
		}
		if err != nil {
			return nil, err
		}
		results = append(results, detail)
	}

	return results, nil
}

func (c *DayOverDayComparator) compareAggregate(ctx context.Context, tableName string, today, yesterday time.Time, exclusionCondition string, col models.ColumnComparisonConfig, threshold models.ThresholdConfig) (models.ValidationDetailResult, error) {
	function, column, err := parseAggregateColumn(col.ColumnName)
	if err != nil {
		return models.ValidationDetailResult{}, err
	}

	todayRaw, err := c.tables.AggregateForDate(ctx, tableName, function, column, dateColumn, today, exclusionCondition)
	if err != nil {
		return models.ValidationDetailResult{}, fmt.Errorf("%w: %v", ErrDataAccess, err)
	}
	yesterdayRaw, err := c.tables.AggregateForDate(ctx, tableName, function, column, dateColumn, yesterday, exclusionCondition)
	if err != nil {
		return models.ValidationDetailResult{}, fmt.Errorf("%w: %v", ErrDataAccess, err)
	}

	todayValue, err := NormalizeCell(todayRaw, col)
	if err != nil {
		return models.ValidationDetailResult{}, err
	}
	yesterdayValue, err := NormalizeCell(yesterdayRaw, col)
	if err != nil {
		return models.ValidationDetailResult{}, err
	}

	result := CompareValues(todayValue, yesterdayValue)
	return buildDetail(col, result, IsThresholdExceeded(result, col.ComparisonType, threshold.ThresholdValue)), nil
}

func (c *DayOverDayComparator) compareRegularColumn(todayRows, yesterdayRows []map[string]any, col models.ColumnComparisonConfig, threshold models.ThresholdConfig) (models.ValidationDetailResult, error) {
	todaySum, err := sumColumn(todayRows, col)
	if err != nil {
		return models.ValidationDetailResult{}, err
	}
	yesterdaySum, err := sumColumn(yesterdayRows, col)
	if err != nil {
		return models.ValidationDetailResult{}, err
	}

	result := CompareValues(&todaySum, &yesterdaySum)
	return buildDetail(col, result, IsThresholdExceeded(result, col.ComparisonType, threshold.ThresholdValue)), nil
}

// sumColumn reduces one column across a day's rows. Values normalizing to
// null are left out of the sum.
func sumColumn(rows []map[string]any, col models.ColumnComparisonConfig) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, row := range rows {
		value, err := NormalizeCell(row[col.ColumnName], col)
		if err != nil {
			return decimal.Zero, err
		}
		if value != nil {
			sum = sum.Add(*value)
		}
	}
	return sum, nil
}

func isAggregateColumn(name string) bool {
	return strings.Contains(name, "(") && strings.Contains(name, ")")
}

// parseAggregateColumn splits "SUM(amount)" into its function and column.
func parseAggregateColumn(name string) (function string, column string, err error) {
	open := strings.Index(name, "(")
	close := strings.LastIndex(name, ")")
	if open < 0 || close < open {
		return "", "", fmt.Errorf("%w: invalid aggregate column format: %s", ErrConfiguration, name)
	}
	function = strings.TrimSpace(name[:open])
	column = strings.TrimSpace(name[open+1 : close])
	if column == "" {
		return "", "", fmt.Errorf("%w: invalid aggregate column format: %s", ErrConfiguration, name)
	}
	return function, column, nil
}

func buildDetail(col models.ColumnComparisonConfig, result ComparisonResult, exceeded bool) models.ValidationDetailResult {
	return models.ValidationDetailResult{
		ColumnComparisonConfigId: col.ID,
		ThresholdExceeded:        exceeded,
		ActualValue:              result.ActualValue,
		ExpectedValue:            result.ExpectedValue,
		DifferenceValue:          result.DifferenceValue,
		DifferencePercentage:     result.DifferencePercentage,
	}
}
