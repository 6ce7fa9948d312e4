package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/datacheck_backend/models"
	"bitbucket.org/mmdatafocus/datacheck_backend/utils"
)

func newTestExecutor(store *fakeStore, reader *fakeTableReader, locker RunLocker) *ValidationExecutor {
	logger := newTestLogger()
	validator := NewThresholdValidator(store, reader, logger)
	return NewValidationExecutor(store, validator, NewWorkerPool(4), locker, logger)
}

func TestValidationExecutor_ExecuteAllRunsEveryUnit(t *testing.T) {
	store, reader, owner, _ := validatorFixture(t, "50")

	// Second unit on the same config: a cross-table comparison.
	ct := models.CrossTableConfig{
		ID:                       20,
		SourceComparisonConfigId: owner.ID,
		TargetTableName:          "sales_summary",
		JoinCondition:            "s.id = t.sale_id",
		Enabled:                  utils.NewTrue(),
	}
	col := column(models.ComparisonTypeAbsolute, models.HandlingStrategyIgnore, models.HandlingStrategyIgnore, models.HandlingStrategyIgnore)
	col.ID = 200
	col.ColumnName = "total"
	col.CrossTableConfigId = &ct.ID
	store.crossTables[owner.ID] = []models.CrossTableConfig{ct}
	store.ctColumns[ct.ID] = []models.ColumnComparisonConfig{col}
	store.thresholds[col.ID] = []models.ThresholdConfig{{ID: 3, ColumnComparisonConfigId: col.ID, ThresholdValue: dec(t, "100"), Severity: models.SeverityLow}}
	reader.joined = []map[string]any{{"s_total": "50", "t_total": "50"}}

	e := newTestExecutor(store, reader, nil)
	results := e.ExecuteAll(context.Background())

	if len(results) != 2 {
		t.Fatalf("expected 2 runs (day-over-day + cross-table), got %d", len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Fatalf("expected all runs to succeed, got failure: %v", r.ErrorMessage)
		}
		if r.ComparisonConfigId != owner.ID {
			t.Fatalf("run bound to config %d, expected %d", r.ComparisonConfigId, owner.ID)
		}
	}
}

func TestValidationExecutor_DisabledConfigSkipped(t *testing.T) {
	store, reader, _, _ := validatorFixture(t, "50")
	store.configs[0].Enabled = utils.NewFalse()

	e := newTestExecutor(store, reader, nil)
	if results := e.ExecuteAll(context.Background()); len(results) != 0 {
		t.Fatalf("disabled config should produce no runs, got %d", len(results))
	}
}

func TestValidationExecutor_UnitFailureIsIsolated(t *testing.T) {
	store, reader, owner, _ := validatorFixture(t, "50")

	ct := models.CrossTableConfig{
		ID:                       20,
		SourceComparisonConfigId: owner.ID,
		TargetTableName:          "sales_summary",
		JoinCondition:            "s.id = t.sale_id",
		Enabled:                  utils.NewTrue(),
	}
	col := column(models.ComparisonTypeAbsolute, models.HandlingStrategyIgnore, models.HandlingStrategyIgnore, models.HandlingStrategyIgnore)
	col.ID = 200
	col.ColumnName = "total"
	col.CrossTableConfigId = &ct.ID
	store.crossTables[owner.ID] = []models.CrossTableConfig{ct}
	store.ctColumns[ct.ID] = []models.ColumnComparisonConfig{col}
	store.thresholds[col.ID] = []models.ThresholdConfig{{ID: 3, ColumnComparisonConfigId: col.ID, ThresholdValue: dec(t, "100"), Severity: models.SeverityLow}}

	// The join blows up; the day-over-day unit must be unaffected.
	reader.joinedErr = errors.New("join exploded")

	e := newTestExecutor(store, reader, nil)
	results := e.ExecuteAll(context.Background())

	if len(results) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(results))
	}
	var succeeded, failed int
	for _, r := range results {
		if r.Success {
			succeeded++
		} else {
			failed++
			if r.ErrorMessage == nil || !strings.Contains(*r.ErrorMessage, "join exploded") {
				t.Fatalf("failed run should carry the cause, got %v", r.ErrorMessage)
			}
		}
	}
	if succeeded != 1 || failed != 1 {
		t.Fatalf("expected 1 success and 1 failure, got %d/%d", succeeded, failed)
	}
}

func TestValidationExecutor_UnitPanicBecomesFailedRun(t *testing.T) {
	store, reader, owner, _ := validatorFixture(t, "50")

	ct := models.CrossTableConfig{
		ID:                       20,
		SourceComparisonConfigId: owner.ID,
		TargetTableName:          "sales_summary",
		JoinCondition:            "s.id = t.sale_id",
		Enabled:                  utils.NewTrue(),
	}
	col := column(models.ComparisonTypeAbsolute, models.HandlingStrategyIgnore, models.HandlingStrategyIgnore, models.HandlingStrategyIgnore)
	col.ID = 200
	col.ColumnName = "total"
	col.CrossTableConfigId = &ct.ID
	store.crossTables[owner.ID] = []models.CrossTableConfig{ct}
	store.ctColumns[ct.ID] = []models.ColumnComparisonConfig{col}
	store.thresholds[col.ID] = []models.ThresholdConfig{{ID: 3, ColumnComparisonConfigId: col.ID, ThresholdValue: dec(t, "100"), Severity: models.SeverityLow}}

	// The join panics; the run must fail without taking the executor down.
	reader.joinedPanic = "nil map write"

	e := newTestExecutor(store, reader, nil)
	results := e.ExecuteForConfig(context.Background(), owner.ID)

	if len(results) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(results))
	}
	var failed *models.ValidationResult
	for i, r := range results {
		if !r.Success {
			if failed != nil {
				t.Fatal("expected exactly one failed run")
			}
			failed = &results[i]
		}
	}
	if failed == nil {
		t.Fatal("panicking unit should yield a failed run")
	}
	if failed.ErrorMessage == nil || !strings.Contains(*failed.ErrorMessage, "panic: nil map write") {
		t.Fatalf("failed run should carry the panic message, got %v", failed.ErrorMessage)
	}
	if !strings.HasPrefix(*failed.ErrorMessage, "Error: ") {
		t.Fatalf("synthetic failure message should be prefixed, got %q", *failed.ErrorMessage)
	}
	if failed.ID == 0 {
		t.Fatal("synthetic failure should be persisted")
	}
}

func TestValidationExecutor_UnknownTableYieldsNoRuns(t *testing.T) {
	store, reader, _, _ := validatorFixture(t, "50")
	e := newTestExecutor(store, reader, nil)

	results := e.ExecuteForTable(context.Background(), "no_such_table")
	if len(results) != 0 {
		t.Fatalf("unknown table should yield no runs, got %d", len(results))
	}
}

func TestValidationExecutor_TableLookupIsCaseInsensitive(t *testing.T) {
	store, reader, _, _ := validatorFixture(t, "50")
	e := newTestExecutor(store, reader, nil)

	results := e.ExecuteForTable(context.Background(), "DAILY_SALES")
	if len(results) != 1 {
		t.Fatalf("expected 1 run, got %d", len(results))
	}
}

func TestValidationExecutor_UnknownConfigYieldsNoRuns(t *testing.T) {
	store, reader, _, _ := validatorFixture(t, "50")
	e := newTestExecutor(store, reader, nil)

	results := e.ExecuteForConfig(context.Background(), 999)
	if len(results) != 0 {
		t.Fatalf("unknown config id should yield no runs, got %d", len(results))
	}
}

func TestValidationExecutor_RetryUnknownResult(t *testing.T) {
	store, reader, _, _ := validatorFixture(t, "50")
	e := newTestExecutor(store, reader, nil)

	run, err := e.Retry(context.Background(), 12345)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run != nil {
		t.Fatalf("unknown result id should return nil, got %+v", run)
	}
	if len(store.details) != 0 {
		t.Fatal("retry of an unknown result must not run any comparison")
	}
}

func TestValidationExecutor_RetryRerunsWholeConfig(t *testing.T) {
	store, reader, owner, dod := validatorFixture(t, "50")
	e := newTestExecutor(store, reader, nil)

	// Seed an earlier run to retry from.
	first := e.validator.ValidateDayOverDay(context.Background(), owner, dod)
	if first.ID == 0 {
		t.Fatal("seed run was not persisted")
	}

	run, err := e.Retry(context.Background(), first.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run == nil {
		t.Fatal("expected a fresh run")
	}
	if run.ID == first.ID {
		t.Fatal("retry must create a new run record")
	}
	if run.ComparisonConfigId != owner.ID {
		t.Fatalf("retry ran config %d, expected %d", run.ComparisonConfigId, owner.ID)
	}
}

type fakeLocker struct {
	err      error
	acquired int
}

func (l *fakeLocker) Acquire(ctx context.Context, configID int) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func() {}, nil
}

func TestValidationExecutor_LockedConfigFailsFast(t *testing.T) {
	store, reader, owner, _ := validatorFixture(t, "50")
	e := newTestExecutor(store, reader, &fakeLocker{err: ErrRunLocked})

	results := e.ExecuteForConfig(context.Background(), owner.ID)
	if len(results) != 1 {
		t.Fatalf("expected 1 synthetic failure, got %d runs", len(results))
	}
	r := results[0]
	if r.Success {
		t.Fatal("locked config must report failure")
	}
	if r.ErrorMessage == nil || !strings.HasPrefix(*r.ErrorMessage, "Error: ") {
		t.Fatalf("expected prefixed error message, got %v", r.ErrorMessage)
	}
	if len(store.details) != 0 {
		t.Fatal("locked config must not run any comparison")
	}
}

func TestValidationExecutor_LockAcquiredOncePerConfig(t *testing.T) {
	store, reader, owner, _ := validatorFixture(t, "50")
	locker := &fakeLocker{}
	e := newTestExecutor(store, reader, locker)

	if results := e.ExecuteForConfig(context.Background(), owner.ID); len(results) != 1 {
		t.Fatalf("expected 1 run, got %d", len(results))
	}
	if locker.acquired != 1 {
		t.Fatalf("expected 1 lock acquisition, got %d", locker.acquired)
	}
}
