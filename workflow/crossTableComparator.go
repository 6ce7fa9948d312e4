package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/datacheck_backend/models"
	"github.com/sirupsen/logrus"
)

// CrossTableComparator joins the owning table to a target table and compares
// each configured source/target column pair row by row. The source side is
// the actual value, the target side the expected one.
type CrossTableComparator struct {
	tables TableReader
	logger *logrus.Logger
}

func NewCrossTableComparator(tables TableReader, logger *logrus.Logger) *CrossTableComparator {
	return &CrossTableComparator{tables: tables, logger: logger}
}

type columnMapping struct {
	sourceColumn string
	targetColumn string
	config       models.ColumnComparisonConfig
	threshold    models.ThresholdConfig
}

func (c *CrossTableComparator) Compare(ctx context.Context, owner models.ComparisonConfig, config models.CrossTableConfig, columnConfigs []models.ColumnComparisonConfig, thresholds map[int]models.ThresholdConfig) ([]models.ValidationDetailResult, error) {
	c.logger.WithFields(logrus.Fields{"config_id": config.ID, "source": owner.TableName, "target": config.TargetTableName}).Debug("starting cross-table comparison")

	mappings := make([]columnMapping, 0, len(columnConfigs))
	sourceColumns := make([]string, 0, len(columnConfigs))
	targetColumns := make([]string, 0, len(columnConfigs))
	for _, col := range columnConfigs {
		threshold, ok := thresholds[col.ID]
		if !ok {
			c.logger.WithFields(logrus.Fields{"column_config_id": col.ID}).Warn("no threshold configuration found for column config")
			continue
		}
		m := columnMapping{
			sourceColumn: col.ColumnName,
			targetColumn: col.EffectiveTargetColumn(),
			config:       col,
			threshold:    threshold,
		}
		mappings = append(mappings, m)
		sourceColumns = append(sourceColumns, m.sourceColumn)
		targetColumns = append(targetColumns, m.targetColumn)
	}
	if len(mappings) == 0 {
		return nil, nil
	}

	rows, err := c.tables.JoinedRows(ctx, owner.TableName, config.TargetTableName, sourceColumns, targetColumns, config.JoinCondition, dateColumn, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataAccess, err)
	}

	var results []models.ValidationDetailResult
	for _, row := range rows {
		for _, m := range mappings {
			sourceValue, err := NormalizeCell(row["s_"+m.sourceColumn], m.config)
			if err != nil {
				return nil, err
			}
			targetValue, err := NormalizeCell(row["t_"+m.targetColumn], m.config)
			if err != nil {
				return nil, err
			}

			// A null on either side skips the pair entirely.
			if sourceValue == nil || targetValue == nil {
				continue
			}

			result := CompareValues(sourceValue, targetValue)
			results = append(results, buildDetail(m.config, result, IsThresholdExceeded(result, m.config.ComparisonType, m.threshold.ThresholdValue)))
		}
	}

	return results, nil
}
