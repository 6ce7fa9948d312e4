package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/datacheck_backend/config"
	"bitbucket.org/mmdatafocus/datacheck_backend/models"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ValidationExecutor fans validation work out over the worker pool. One
// orchestrating goroutine per comparison config coordinates its units:
// the day-over-day unit runs first, then all cross-table units run
// concurrently. Unit failures are isolated; a failing unit never stops
// its siblings or another config.
type ValidationExecutor struct {
	store     Store
	validator *ThresholdValidator
	pool      *WorkerPool
	locker    RunLocker
	logger    *logrus.Logger
}

func NewValidationExecutor(store Store, validator *ThresholdValidator, pool *WorkerPool, locker RunLocker, logger *logrus.Logger) *ValidationExecutor {
	if locker == nil {
		locker = NoopRunLocker{}
	}
	return &ValidationExecutor{
		store:     store,
		validator: validator,
		pool:      pool,
		locker:    locker,
		logger:    logger,
	}
}

// ExecuteAll validates every enabled comparison config.
func (e *ValidationExecutor) ExecuteAll(ctx context.Context) []models.ValidationResult {
	configs, err := e.store.EnabledComparisonConfigs(ctx)
	if err != nil {
		config.LogError(e.logger, "validationExecutor.go", "ExecuteAll", "loading enabled comparison configs", nil, err)
		return nil
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []models.ValidationResult
	)
	for _, cfg := range configs {
		cfg := cfg
		wg.Add(1)
		go func() {
			defer wg.Done()
			runs := e.executeConfig(ctx, cfg)
			mu.Lock()
			results = append(results, runs...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// ExecuteForTable validates the config registered for tableName. The
// lookup is case-insensitive; an unknown table yields no runs.
func (e *ValidationExecutor) ExecuteForTable(ctx context.Context, tableName string) []models.ValidationResult {
	cfg, err := e.store.ComparisonConfigByTableName(ctx, tableName)
	if err != nil {
		config.LogError(e.logger, "validationExecutor.go", "ExecuteForTable", "loading comparison config", tableName, err)
		return nil
	}
	if cfg == nil {
		e.logger.WithFields(logrus.Fields{"tableName": tableName}).Warn("no comparison config for table")
		return []models.ValidationResult{}
	}
	return e.executeConfig(ctx, *cfg)
}

// ExecuteForConfig validates a single config by id. An unknown id yields
// no runs.
func (e *ValidationExecutor) ExecuteForConfig(ctx context.Context, configID int) []models.ValidationResult {
	cfg, err := e.store.ComparisonConfigByID(ctx, configID)
	if err != nil {
		config.LogError(e.logger, "validationExecutor.go", "ExecuteForConfig", "loading comparison config", configID, err)
		return nil
	}
	if cfg == nil {
		e.logger.WithFields(logrus.Fields{"configId": configID}).Warn("no comparison config with id")
		return []models.ValidationResult{}
	}
	return e.executeConfig(ctx, *cfg)
}

// Retry re-runs the comparison config that produced an earlier run and
// returns the new run for the same config, or nil when resultID is
// unknown. The whole config re-runs, not just the unit that failed.
func (e *ValidationExecutor) Retry(ctx context.Context, resultID int) (*models.ValidationResult, error) {
	prev, err := e.store.ValidationResultByID(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if prev == nil {
		return nil, nil
	}
	runs := e.ExecuteForConfig(ctx, prev.ComparisonConfigId)
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

func (e *ValidationExecutor) executeConfig(ctx context.Context, cfg models.ComparisonConfig) []models.ValidationResult {
	if !cfg.IsEnabled() {
		return nil
	}

	ctx, span := otel.Tracer("datacheck/workflow").Start(ctx, "executeConfig")
	span.SetAttributes(attribute.String("table", cfg.TableName), attribute.Int("configId", cfg.ID))
	defer span.End()

	release, err := e.locker.Acquire(ctx, cfg.ID)
	if err != nil {
		return []models.ValidationResult{e.syntheticFailure(ctx, cfg, err)}
	}
	defer release()

	var results []models.ValidationResult

	dayOverDay, err := e.store.DayOverDayConfigForComparison(ctx, cfg.ID)
	if err != nil {
		config.LogError(e.logger, "validationExecutor.go", "executeConfig", "loading day-over-day config", cfg.ID, err)
		results = append(results, e.syntheticFailure(ctx, cfg, err))
	} else if dayOverDay != nil && dayOverDay.IsEnabled() {
		results = append(results, e.runUnit(ctx, cfg, func(ctx context.Context) models.ValidationResult {
			return e.validator.ValidateDayOverDay(ctx, cfg, *dayOverDay)
		}))
	}

	crossTables, err := e.store.EnabledCrossTableConfigs(ctx, cfg.ID)
	if err != nil {
		config.LogError(e.logger, "validationExecutor.go", "executeConfig", "loading cross-table configs", cfg.ID, err)
		results = append(results, e.syntheticFailure(ctx, cfg, err))
		return results
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, ct := range crossTables {
		ct := ct
		wg.Add(1)
		go func() {
			defer wg.Done()
			run := e.runUnit(ctx, cfg, func(ctx context.Context) models.ValidationResult {
				return e.validator.ValidateCrossTable(ctx, cfg, ct)
			})
			mu.Lock()
			results = append(results, run)
			mu.Unlock()
		}()
	}
	wg.Wait()

	return results
}

// runUnit runs one comparison unit through the pool and blocks for its
// result. A panicking unit becomes a synthetic failed run.
func (e *ValidationExecutor) runUnit(ctx context.Context, cfg models.ComparisonConfig, fn func(context.Context) models.ValidationResult) models.ValidationResult {
	ch := make(chan models.ValidationResult, 1)
	e.pool.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				config.LogError(e.logger, "validationExecutor.go", "runUnit", "recovered panic in comparison unit", cfg.ID, fmt.Errorf("%v", r))
				ch <- e.syntheticFailure(ctx, cfg, fmt.Errorf("panic: %v", r))
			}
		}()
		ch <- fn(ctx)
	})
	return <-ch
}

// syntheticFailure records a run that never reached the validator, so
// failures stay visible in the run history.
func (e *ValidationExecutor) syntheticFailure(ctx context.Context, cfg models.ComparisonConfig, cause error) models.ValidationResult {
	msg := fmt.Sprintf("Error: %s", cause.Error())
	result := models.ValidationResult{
		ComparisonConfigId: cfg.ID,
		ExecutionDate:      time.Now(),
		Success:            false,
		ErrorMessage:       &msg,
		CorrelationId:      correlationID(ctx),
	}
	if err := e.store.SaveValidationResult(ctx, &result); err != nil {
		config.LogError(e.logger, "validationExecutor.go", "syntheticFailure", "persisting synthetic failure", cfg.ID, err)
	}
	return result
}
