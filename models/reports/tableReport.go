package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxTableReportRuns = 100

type TableRunRow struct {
	ResultID           int       `json:"result_id"`
	TableName          string    `json:"table_name"`
	ExecutionDate      time.Time `json:"execution_date"`
	Success            bool      `json:"success"`
	ErrorMessage       *string   `json:"error_message"`
	ExecutionTimeMs    *int      `json:"execution_time_ms"`
	ExceededDetails    int       `json:"exceeded_details"`
	CorrelationId      string    `json:"correlation_id"`
	ComparisonConfigId int       `json:"comparison_config_id"`
}

// GetTableReport returns the most recent runs for one monitored table,
// newest first, capped at 100.
func GetTableReport(ctx context.Context, db *gorm.DB, tableName string, limit int) ([]*TableRunRow, error) {
	if limit <= 0 || limit > maxTableReportRuns {
		limit = maxTableReportRuns
	}

	sql := `
SELECT
    vr.id AS result_id,
    cc.table_name,
    vr.execution_date,
    vr.success,
    vr.error_message,
    vr.execution_time_ms,
    vr.correlation_id,
    vr.comparison_config_id,
    (
        SELECT COUNT(*) FROM validation_detail_results vd
        WHERE vd.validation_result_id = vr.id AND vd.threshold_exceeded = 1
    ) AS exceeded_details
FROM
    validation_results vr
    JOIN comparison_configs cc ON cc.id = vr.comparison_config_id
WHERE
    LOWER(cc.table_name) = LOWER(?)
ORDER BY
    vr.execution_date DESC, vr.id DESC
LIMIT ?;
`

	var records []*TableRunRow
	if err := db.WithContext(ctx).Raw(sql, tableName, limit).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

type FailureDetailRow struct {
	ResultID             int              `json:"result_id"`
	TableName            string           `json:"table_name"`
	ColumnName           string           `json:"column_name"`
	ComparisonType       string           `json:"comparison_type"`
	Severity             *string          `json:"severity"`
	ThresholdValue       *decimal.Decimal `json:"threshold_value"`
	ActualValue          *decimal.Decimal `json:"actual_value"`
	ExpectedValue        *decimal.Decimal `json:"expected_value"`
	DifferenceValue      *decimal.Decimal `json:"difference_value"`
	DifferencePercentage *decimal.Decimal `json:"difference_percentage"`
	ExecutionDate        time.Time        `json:"execution_date"`
}

// GetFailureDetailReport returns every exceeded detail for one day, joined
// back to its column and first threshold.
func GetFailureDetailReport(ctx context.Context, db *gorm.DB, date time.Time) ([]*FailureDetailRow, error) {
	sql := `
SELECT
    vr.id AS result_id,
    cc.table_name,
    ccc.column_name,
    ccc.comparison_type,
    tc.severity,
    tc.threshold_value,
    vd.actual_value,
    vd.expected_value,
    vd.difference_value,
    vd.difference_percentage,
    vr.execution_date
FROM
    validation_detail_results vd
    JOIN validation_results vr ON vr.id = vd.validation_result_id
    JOIN comparison_configs cc ON cc.id = vr.comparison_config_id
    JOIN column_comparison_configs ccc ON ccc.id = vd.column_comparison_config_id
    LEFT JOIN threshold_configs tc ON tc.id = (
        SELECT MIN(tc2.id) FROM threshold_configs tc2
        WHERE tc2.column_comparison_config_id = ccc.id
    )
WHERE
    vd.threshold_exceeded = 1
    AND DATE(vr.execution_date) = ?
ORDER BY
    cc.table_name, ccc.column_name, vr.id;
`

	var records []*FailureDetailRow
	if err := db.WithContext(ctx).Raw(sql, date.Format("2006-01-02")).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
