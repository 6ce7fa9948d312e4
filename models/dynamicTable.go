package models

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DynamicTableStore reads the monitored tables themselves. Table and column
// names come from trusted configuration rows, not request input, so they are
// interpolated into the query text; dates go through placeholders.
type DynamicTableStore struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewDynamicTableStore(db *gorm.DB, logger *logrus.Logger) *DynamicTableStore {
	return &DynamicTableStore{DB: db, Logger: logger}
}

// RowsForDate returns the rows of one table whose date column falls on the
// given day, as ordered column-name -> cell maps.
func (r *DynamicTableStore) RowsForDate(ctx context.Context, tableName string, columnNames []string, dateColumn string, date time.Time, exclusionCondition string) ([]map[string]any, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE DATE(%s) = ?%s",
		strings.Join(columnNames, ", "),
		tableName,
		dateColumn,
		andCondition(exclusionCondition),
	)

	r.Logger.WithFields(logrus.Fields{"query": query, "date": date.Format("2006-01-02")}).Debug("executing row query")

	rows, err := r.DB.WithContext(ctx).Raw(query, date.Format("2006-01-02")).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

// AggregateForDate evaluates one aggregate function over a column for a day.
// Returns nil when the aggregate itself is SQL NULL (empty day).
func (r *DynamicTableStore) AggregateForDate(ctx context.Context, tableName string, aggregateFunction string, columnName string, dateColumn string, date time.Time, exclusionCondition string) (*decimal.Decimal, error) {
	query := fmt.Sprintf(
		"SELECT %s(%s) AS result FROM %s WHERE DATE(%s) = ?%s",
		aggregateFunction,
		columnName,
		tableName,
		dateColumn,
		andCondition(exclusionCondition),
	)

	r.Logger.WithFields(logrus.Fields{"query": query, "date": date.Format("2006-01-02")}).Debug("executing aggregate query")

	var raw sql.NullString
	if err := r.DB.WithContext(ctx).Raw(query, date.Format("2006-01-02")).Row().Scan(&raw); err != nil {
		return nil, err
	}
	if !raw.Valid {
		return nil, nil
	}
	value, err := decimal.NewFromString(strings.TrimSpace(raw.String))
	if err != nil {
		return nil, fmt.Errorf("aggregate %s(%s) on %s returned non-numeric value %q", aggregateFunction, columnName, tableName, raw.String)
	}
	return &value, nil
}

// JoinedRows joins the source table to the target table and returns the
// configured column pairs for today's source rows. Source columns come back
// aliased "s_<name>", target columns "t_<name>".
func (r *DynamicTableStore) JoinedRows(ctx context.Context, sourceTable string, targetTable string, sourceColumns []string, targetColumns []string, joinCondition string, dateColumn string, exclusionCondition string) ([]map[string]any, error) {
	sourceClause := make([]string, 0, len(sourceColumns))
	for _, col := range sourceColumns {
		sourceClause = append(sourceClause, fmt.Sprintf("s.%s AS s_%s", col, col))
	}
	targetClause := make([]string, 0, len(targetColumns))
	for _, col := range targetColumns {
		targetClause = append(targetClause, fmt.Sprintf("t.%s AS t_%s", col, col))
	}

	query := fmt.Sprintf(
		"SELECT %s, %s FROM %s s JOIN %s t ON %s WHERE DATE(s.%s) = CURDATE()%s",
		strings.Join(sourceClause, ", "),
		strings.Join(targetClause, ", "),
		sourceTable,
		targetTable,
		joinCondition,
		dateColumn,
		andCondition(exclusionCondition),
	)

	r.Logger.WithFields(logrus.Fields{"query": query}).Debug("executing cross-table query")

	rows, err := r.DB.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRows(rows)
}

func andCondition(condition string) string {
	if strings.TrimSpace(condition) == "" {
		return ""
	}
	return " AND " + condition
}

// scanRows materializes a result set into column-name -> value maps.
// MySQL hands most cells back as []byte; those become strings so the
// normalizer can parse them.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, name := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[name] = string(v)
			default:
				row[name] = v
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
