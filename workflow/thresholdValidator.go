package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/datacheck_backend/config"
	"bitbucket.org/mmdatafocus/datacheck_backend/models"
	"bitbucket.org/mmdatafocus/datacheck_backend/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ThresholdValidator runs exactly one comparison unit end to end and always
// hands back a well-formed run record. Errors raised anywhere between
// configuration loading and persistence become a failed ValidationResult;
// nothing propagates to the executor.
type ThresholdValidator struct {
	store      Store
	dayOverDay *DayOverDayComparator
	crossTable *CrossTableComparator
	logger     *logrus.Logger
}

func NewThresholdValidator(store Store, tables TableReader, logger *logrus.Logger) *ThresholdValidator {
	return &ThresholdValidator{
		store:      store,
		dayOverDay: NewDayOverDayComparator(tables, logger),
		crossTable: NewCrossTableComparator(tables, logger),
		logger:     logger,
	}
}

// ValidateDayOverDay runs one day-over-day unit.
func (v *ThresholdValidator) ValidateDayOverDay(ctx context.Context, owner models.ComparisonConfig, cfg models.DayOverDayConfig) models.ValidationResult {
	return v.run(ctx, owner,
		func(ctx context.Context) ([]models.ColumnComparisonConfig, error) {
			return v.store.ColumnConfigsForDayOverDay(ctx, cfg.ID)
		},
		func(ctx context.Context, cols []models.ColumnComparisonConfig, thresholds map[int]models.ThresholdConfig) ([]models.ValidationDetailResult, error) {
			return v.dayOverDay.Compare(ctx, owner, cfg, cols, thresholds)
		},
	)
}

// ValidateCrossTable runs one cross-table unit.
func (v *ThresholdValidator) ValidateCrossTable(ctx context.Context, owner models.ComparisonConfig, cfg models.CrossTableConfig) models.ValidationResult {
	return v.run(ctx, owner,
		func(ctx context.Context) ([]models.ColumnComparisonConfig, error) {
			return v.store.ColumnConfigsForCrossTable(ctx, cfg.ID)
		},
		func(ctx context.Context, cols []models.ColumnComparisonConfig, thresholds map[int]models.ThresholdConfig) ([]models.ValidationDetailResult, error) {
			return v.crossTable.Compare(ctx, owner, cfg, cols, thresholds)
		},
	)
}

func (v *ThresholdValidator) run(ctx context.Context, owner models.ComparisonConfig,
	loadColumns func(context.Context) ([]models.ColumnComparisonConfig, error),
	compare func(context.Context, []models.ColumnComparisonConfig, map[int]models.ThresholdConfig) ([]models.ValidationDetailResult, error),
) models.ValidationResult {

	result := models.ValidationResult{
		ComparisonConfigId: owner.ID,
		ExecutionDate:      time.Now(),
		CorrelationId:      correlationID(ctx),
	}
	start := time.Now()

	var (
		details    []models.ValidationDetailResult
		thresholds map[int]models.ThresholdConfig
	)
	err := func() error {
		cols, err := loadColumns(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		thresholds, err = v.thresholdMap(ctx, cols)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}

		details, err = compare(ctx, cols, thresholds)
		if err != nil {
			return err
		}

		anyExceeded := false
		for _, d := range details {
			if d.ThresholdExceeded {
				anyExceeded = true
				break
			}
		}
		result.Success = !anyExceeded

		if err := v.store.SaveValidationResult(ctx, &result); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		for i := range details {
			details[i].ValidationResultId = result.ID
			if err := v.store.SaveValidationDetailResult(ctx, &details[i]); err != nil {
				return fmt.Errorf("%w: %v", ErrPersistence, err)
			}
		}
		return nil
	}()

	if err != nil {
		config.LogError(v.logger, "thresholdValidator.go", "run", "validating comparison unit", owner.ID, err)
		msg := err.Error()
		result.Success = false
		result.ErrorMessage = &msg
		if saveErr := v.store.SaveValidationResult(ctx, &result); saveErr != nil {
			config.LogError(v.logger, "thresholdValidator.go", "run", "persisting failed run record", owner.ID, saveErr)
		}
	}

	// Stamp total elapsed time, persistence included.
	elapsed := int(time.Since(start).Milliseconds())
	result.ExecutionTimeMs = &elapsed
	if saveErr := v.store.SaveValidationResult(ctx, &result); saveErr != nil {
		config.LogError(v.logger, "thresholdValidator.go", "run", "stamping execution time", owner.ID, saveErr)
	}

	if err == nil && !result.Success {
		v.enqueueAlert(ctx, owner, result, details, thresholds)
	}

	return result
}

// thresholdMap resolves the first threshold per column, by id order.
// Columns with no threshold rows stay absent and are skipped by the
// comparators.
func (v *ThresholdValidator) thresholdMap(ctx context.Context, cols []models.ColumnComparisonConfig) (map[int]models.ThresholdConfig, error) {
	thresholds := make(map[int]models.ThresholdConfig, len(cols))
	for _, col := range cols {
		rows, err := v.store.ThresholdsForColumn(ctx, col.ID)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			thresholds[col.ID] = rows[0]
		}
	}
	return thresholds, nil
}

// enqueueAlert writes an alert outbox record for a run whose details crossed
// a notification-enabled threshold. Best-effort: failures only log.
func (v *ThresholdValidator) enqueueAlert(ctx context.Context, owner models.ComparisonConfig, result models.ValidationResult, details []models.ValidationDetailResult, thresholds map[int]models.ThresholdConfig) {
	var severities []models.Severity
	exceeded := 0
	notify := false
	for _, d := range details {
		if !d.ThresholdExceeded {
			continue
		}
		exceeded++
		if t, ok := thresholds[d.ColumnComparisonConfigId]; ok {
			severities = append(severities, t.Severity)
			if t.IsNotificationEnabled() {
				notify = true
			}
		}
	}
	if exceeded == 0 || !notify {
		return
	}

	highest := models.HighestSeverity(severities...)
	emailConfigs, err := v.store.EnabledEmailConfigsForSeverity(ctx, highest)
	if err != nil {
		config.LogError(v.logger, "thresholdValidator.go", "enqueueAlert", "loading email recipients", result.ID, err)
		return
	}
	if len(emailConfigs) == 0 {
		v.logger.WithFields(logrus.Fields{"severity": highest}).Info("no email recipients configured for severity")
		return
	}

	recipients := make([]string, 0, len(emailConfigs))
	for _, c := range emailConfigs {
		recipients = append(recipients, c.EmailAddress)
	}

	msg := config.AlertMessage{
		ValidationResultID: result.ID,
		TableName:          owner.TableName,
		Severity:           string(highest),
		Recipients:         recipients,
		ExceededCount:      exceeded,
		ExecutionDate:      result.ExecutionDate,
		CorrelationId:      result.CorrelationId,
	}
	if err := v.store.EnqueueAlert(ctx, msg); err != nil {
		config.LogError(v.logger, "thresholdValidator.go", "enqueueAlert", "writing alert outbox record", result.ID, err)
	}
}

func correlationID(ctx context.Context) string {
	if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
		return v
	}
	return uuid.NewString()
}
