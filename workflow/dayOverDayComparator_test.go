package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/datacheck_backend/models"
	"github.com/shopspring/decimal"
)

type fakeTableReader struct {
	mu sync.Mutex

	rowsByDate map[string][]map[string]any // keyed by YYYY-MM-DD
	aggregates map[string]*decimal.Decimal // keyed by FN|column|YYYY-MM-DD
	joined     []map[string]any

	rowsErr     error
	aggErr      error
	joinedErr   error
	joinedPanic string

	rowsCalls   int
	aggCalls    []string
	joinedCalls int
}

func aggKey(function, column string, date time.Time) string {
	return fmt.Sprintf("%s|%s|%s", function, column, date.Format("2006-01-02"))
}

func (f *fakeTableReader) RowsForDate(ctx context.Context, tableName string, columnNames []string, dateCol string, date time.Time, exclusionCondition string) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rowsCalls++
	if f.rowsErr != nil {
		return nil, f.rowsErr
	}
	return f.rowsByDate[date.Format("2006-01-02")], nil
}

func (f *fakeTableReader) AggregateForDate(ctx context.Context, tableName string, function string, columnName string, dateCol string, date time.Time, exclusionCondition string) (*decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aggKey(function, columnName, date)
	f.aggCalls = append(f.aggCalls, key)
	if f.aggErr != nil {
		return nil, f.aggErr
	}
	return f.aggregates[key], nil
}

func (f *fakeTableReader) JoinedRows(ctx context.Context, sourceTable, targetTable string, sourceColumns, targetColumns []string, joinCondition, dateCol, exclusionCondition string) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joinedCalls++
	if f.joinedPanic != "" {
		panic(f.joinedPanic)
	}
	if f.joinedErr != nil {
		return nil, f.joinedErr
	}
	return f.joined, nil
}

func dayOverDayFixture() (models.ComparisonConfig, models.DayOverDayConfig) {
	owner := models.ComparisonConfig{ID: 1, TableName: "daily_sales"}
	cfg := models.DayOverDayConfig{ID: 10, ComparisonConfigId: 1}
	return owner, cfg
}

func thresholdFor(colID int, comparisonType models.ComparisonType, value string, t *testing.T) map[int]models.ThresholdConfig {
	t.Helper()
	return map[int]models.ThresholdConfig{
		colID: {ID: colID, ColumnComparisonConfigId: colID, ThresholdValue: dec(t, value), Severity: models.SeverityHigh},
	}
}

func TestDayOverDayComparator_RegularColumnSums(t *testing.T) {
	owner, cfg := dayOverDayFixture()
	today := time.Now().Format("2006-01-02")
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	reader := &fakeTableReader{
		rowsByDate: map[string][]map[string]any{
			// nil and "N/A" drop out of the sum under TREAT_AS_NULL/IGNORE.
			today:     {{"amount": "60"}, {"amount": nil}, {"amount": "50"}},
			yesterday: {{"amount": "40"}, {"amount": "N/A"}, {"amount": "60"}},
		},
	}

	col := column(models.ComparisonTypePercentage, models.HandlingStrategyTreatAsNull, models.HandlingStrategyIgnore, models.HandlingStrategyIgnore)
	c := NewDayOverDayComparator(reader, newTestLogger())

	details, err := c.Compare(context.Background(), owner, cfg, []models.ColumnComparisonConfig{col}, thresholdFor(col.ID, col.ComparisonType, "5", t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 detail, got %d", len(details))
	}

	d := details[0]
	if !d.ActualValue.Equal(dec(t, "110")) || !d.ExpectedValue.Equal(dec(t, "100")) {
		t.Fatalf("expected sums 110/100, got %v/%v", d.ActualValue, d.ExpectedValue)
	}
	if !d.DifferencePercentage.Equal(dec(t, "10")) {
		t.Fatalf("expected 10%%, got %v", d.DifferencePercentage)
	}
	if !d.ThresholdExceeded {
		t.Fatal("10% over a 5% threshold should exceed")
	}
}

func TestDayOverDayComparator_AggregateColumn(t *testing.T) {
	owner, cfg := dayOverDayFixture()
	todayDate := time.Now()
	yesterdayDate := todayDate.AddDate(0, 0, -1)

	reader := &fakeTableReader{
		aggregates: map[string]*decimal.Decimal{
			aggKey("SUM", "amount", todayDate):     decPtr(t, "1050"),
			aggKey("SUM", "amount", yesterdayDate): decPtr(t, "1000"),
		},
	}

	col := column(models.ComparisonTypeAbsolute, models.HandlingStrategyTreatAsZero, models.HandlingStrategyTreatAsZero, models.HandlingStrategyTreatAsZero)
	col.ColumnName = "SUM(amount)"
	c := NewDayOverDayComparator(reader, newTestLogger())

	details, err := c.Compare(context.Background(), owner, cfg, []models.ColumnComparisonConfig{col}, thresholdFor(col.ID, col.ComparisonType, "49", t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 detail, got %d", len(details))
	}
	if !details[0].DifferenceValue.Equal(dec(t, "50")) {
		t.Fatalf("expected difference 50, got %v", details[0].DifferenceValue)
	}
	if !details[0].ThresholdExceeded {
		t.Fatal("difference 50 over threshold 49 should exceed")
	}

	// Aggregate columns never trigger a row fetch.
	if reader.rowsCalls != 0 {
		t.Fatalf("expected 0 row fetches, got %d", reader.rowsCalls)
	}
	if len(reader.aggCalls) != 2 {
		t.Fatalf("expected 2 aggregate fetches, got %d", len(reader.aggCalls))
	}
}

func TestDayOverDayComparator_AggregateNullHandling(t *testing.T) {
	owner, cfg := dayOverDayFixture()

	// No rows yesterday: SUM comes back as SQL NULL, normalized to zero.
	reader := &fakeTableReader{
		aggregates: map[string]*decimal.Decimal{
			aggKey("SUM", "amount", time.Now()): decPtr(t, "500"),
		},
	}

	col := column(models.ComparisonTypePercentage, models.HandlingStrategyTreatAsZero, models.HandlingStrategyTreatAsZero, models.HandlingStrategyTreatAsZero)
	col.ColumnName = "SUM(amount)"
	c := NewDayOverDayComparator(reader, newTestLogger())

	details, err := c.Compare(context.Background(), owner, cfg, []models.ColumnComparisonConfig{col}, thresholdFor(col.ID, col.ComparisonType, "5", t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := details[0]
	if !d.ExpectedValue.IsZero() {
		t.Fatalf("expected zero baseline, got %v", d.ExpectedValue)
	}
	if !d.DifferencePercentage.Equal(dec(t, "100")) {
		t.Fatalf("nonzero vs zero baseline: expected 100%%, got %v", d.DifferencePercentage)
	}
}

func TestDayOverDayComparator_MalformedAggregateFails(t *testing.T) {
	owner, cfg := dayOverDayFixture()
	reader := &fakeTableReader{}

	col := column(models.ComparisonTypePercentage, models.HandlingStrategyIgnore, models.HandlingStrategyIgnore, models.HandlingStrategyIgnore)
	col.ColumnName = "SUM()"
	c := NewDayOverDayComparator(reader, newTestLogger())

	_, err := c.Compare(context.Background(), owner, cfg, []models.ColumnComparisonConfig{col}, thresholdFor(col.ID, col.ComparisonType, "5", t))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestDayOverDayComparator_MissingThresholdSkipsColumn(t *testing.T) {
	owner, cfg := dayOverDayFixture()
	today := time.Now().Format("2006-01-02")
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	reader := &fakeTableReader{
		rowsByDate: map[string][]map[string]any{
			today:     {{"amount": "10"}},
			yesterday: {{"amount": "10"}},
		},
	}

	col := column(models.ComparisonTypePercentage, models.HandlingStrategyIgnore, models.HandlingStrategyIgnore, models.HandlingStrategyIgnore)
	c := NewDayOverDayComparator(reader, newTestLogger())

	details, err := c.Compare(context.Background(), owner, cfg, []models.ColumnComparisonConfig{col}, map[int]models.ThresholdConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(details) != 0 {
		t.Fatalf("expected no details for unthresholded column, got %d", len(details))
	}
}

func TestDayOverDayComparator_DataAccessErrorWraps(t *testing.T) {
	owner, cfg := dayOverDayFixture()
	reader := &fakeTableReader{rowsErr: errors.New("table missing")}

	col := column(models.ComparisonTypePercentage, models.HandlingStrategyIgnore, models.HandlingStrategyIgnore, models.HandlingStrategyIgnore)
	c := NewDayOverDayComparator(reader, newTestLogger())

	_, err := c.Compare(context.Background(), owner, cfg, []models.ColumnComparisonConfig{col}, thresholdFor(col.ID, col.ComparisonType, "5", t))
	if !errors.Is(err, ErrDataAccess) {
		t.Fatalf("expected ErrDataAccess, got %v", err)
	}
}

func TestDayOverDayComparator_FailStrategySurfaces(t *testing.T) {
	owner, cfg := dayOverDayFixture()
	today := time.Now().Format("2006-01-02")
	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	reader := &fakeTableReader{
		rowsByDate: map[string][]map[string]any{
			today:     {{"amount": nil}},
			yesterday: {{"amount": "10"}},
		},
	}

	col := column(models.ComparisonTypePercentage, models.HandlingStrategyFail, models.HandlingStrategyIgnore, models.HandlingStrategyIgnore)
	c := NewDayOverDayComparator(reader, newTestLogger())

	_, err := c.Compare(context.Background(), owner, cfg, []models.ColumnComparisonConfig{col}, thresholdFor(col.ID, col.ComparisonType, "5", t))
	if !errors.Is(err, ErrValue) {
		t.Fatalf("expected ErrValue, got %v", err)
	}
}
