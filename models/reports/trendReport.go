package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TrendRow struct {
	Day                     string           `json:"day"`
	ColumnName              string           `json:"column_name"`
	AvgDifferencePercentage *decimal.Decimal `json:"avg_difference_percentage"`
	MaxDifferencePercentage *decimal.Decimal `json:"max_difference_percentage"`
	ExceededCount           int              `json:"exceeded_count"`
}

// GetTrendReport charts per-column drift for one comparison config over the
// trailing window.
func GetTrendReport(ctx context.Context, db *gorm.DB, comparisonConfigID int, days int) ([]*TrendRow, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	sql := `
SELECT
    DATE(vr.execution_date) AS day,
    ccc.column_name,
    AVG(vd.difference_percentage) AS avg_difference_percentage,
    MAX(ABS(vd.difference_percentage)) AS max_difference_percentage,
    SUM(CASE WHEN vd.threshold_exceeded = 1 THEN 1 ELSE 0 END) AS exceeded_count
FROM
    validation_detail_results vd
    JOIN validation_results vr ON vr.id = vd.validation_result_id
    JOIN column_comparison_configs ccc ON ccc.id = vd.column_comparison_config_id
WHERE
    vr.comparison_config_id = ?
    AND vr.execution_date >= ?
GROUP BY
    DATE(vr.execution_date), ccc.column_name
ORDER BY
    day, ccc.column_name;
`

	var records []*TrendRow
	if err := db.WithContext(ctx).Raw(sql, comparisonConfigID, since).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

type SuccessRateRow struct {
	Day         string   `json:"day"`
	TotalRuns   int      `json:"total_runs"`
	FailedRuns  int      `json:"failed_runs"`
	SuccessRate *float64 `json:"success_rate"`
}

// GetSuccessRateTrend charts the daily success rate for one comparison
// config over the trailing window.
func GetSuccessRateTrend(ctx context.Context, db *gorm.DB, comparisonConfigID int, days int) ([]*SuccessRateRow, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	sql := `
SELECT
    DATE(vr.execution_date) AS day,
    COUNT(vr.id) AS total_runs,
    SUM(CASE WHEN vr.success = 0 THEN 1 ELSE 0 END) AS failed_runs,
    AVG(CASE WHEN vr.success = 1 THEN 1.0 ELSE 0.0 END) AS success_rate
FROM
    validation_results vr
WHERE
    vr.comparison_config_id = ?
    AND vr.execution_date >= ?
GROUP BY
    DATE(vr.execution_date)
ORDER BY
    day;
`

	var records []*SuccessRateRow
	if err := db.WithContext(ctx).Raw(sql, comparisonConfigID, since).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
