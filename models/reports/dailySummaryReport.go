package reports

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type DailySummaryRow struct {
	ComparisonConfigId int        `json:"comparison_config_id"`
	TableName          string     `json:"table_name"`
	TotalRuns          int        `json:"total_runs"`
	FailedRuns         int        `json:"failed_runs"`
	ExceededDetails    int        `json:"exceeded_details"`
	AvgExecutionTimeMs *float64   `json:"avg_execution_time_ms"`
	LastRunAt          *time.Time `json:"last_run_at"`
}

// GetDailySummaryReport aggregates one day's validation runs per monitored
// table.
func GetDailySummaryReport(ctx context.Context, db *gorm.DB, date time.Time) ([]*DailySummaryRow, error) {
	sql := `
SELECT
    cc.id AS comparison_config_id,
    cc.table_name,
    COUNT(vr.id) AS total_runs,
    SUM(CASE WHEN vr.success = 0 THEN 1 ELSE 0 END) AS failed_runs,
    COALESCE(exceeded.cnt, 0) AS exceeded_details,
    AVG(vr.execution_time_ms) AS avg_execution_time_ms,
    MAX(vr.execution_date) AS last_run_at
FROM
    comparison_configs cc
    JOIN validation_results vr ON vr.comparison_config_id = cc.id
    LEFT JOIN (
        SELECT
            vr2.comparison_config_id,
            COUNT(vd.id) AS cnt
        FROM
            validation_detail_results vd
            JOIN validation_results vr2 ON vr2.id = vd.validation_result_id
        WHERE
            vd.threshold_exceeded = 1
            AND DATE(vr2.execution_date) = ?
        GROUP BY
            vr2.comparison_config_id
    ) AS exceeded ON exceeded.comparison_config_id = cc.id
WHERE
    DATE(vr.execution_date) = ?
GROUP BY
    cc.id, cc.table_name, exceeded.cnt
ORDER BY
    cc.table_name;
`

	day := date.Format("2006-01-02")
	var records []*DailySummaryRow
	if err := db.WithContext(ctx).Raw(sql, day, day).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
