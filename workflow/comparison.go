package workflow

import (
	"errors"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/datacheck_backend/models"
	"bitbucket.org/mmdatafocus/datacheck_backend/utils"
	"github.com/shopspring/decimal"
)

// Error classes surfaced in failed run records. The validator converts all
// of these into a failed ValidationResult; none propagate past it.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrValue         = errors.New("value error")
	ErrDataAccess    = errors.New("data access error")
	ErrPersistence   = errors.New("persistence error")
)

// dateColumn is the date column every monitored table is filtered on.
// TODO: move onto ComparisonConfig so tables with a different audit column
// can be monitored.
const dateColumn = "created_date"

type valueKind int

const (
	valueKindNumeric valueKind = iota
	valueKindNull
	valueKindBlank
	valueKindNotApplicable
	valueKindUnsupported
)

func (k valueKind) String() string {
	switch k {
	case valueKindNull:
		return "null"
	case valueKindBlank:
		return "blank"
	case valueKindNotApplicable:
		return "N/A"
	case valueKindUnsupported:
		return "unsupported"
	}
	return "numeric"
}

// classifyValue detects what kind of cell we are looking at and, for numeric
// cells, carries the parsed decimal along.
func classifyValue(raw any) (valueKind, *decimal.Decimal) {
	if raw == nil {
		return valueKindNull, nil
	}

	switch v := raw.(type) {
	case decimal.Decimal:
		return valueKindNumeric, &v
	case *decimal.Decimal:
		if v == nil {
			return valueKindNull, nil
		}
		d := *v
		return valueKindNumeric, &d
	case float64:
		d := decimal.NewFromFloat(v)
		return valueKindNumeric, &d
	case float32:
		d := decimal.NewFromFloat32(v)
		return valueKindNumeric, &d
	case int:
		d := decimal.NewFromInt(int64(v))
		return valueKindNumeric, &d
	case int8:
		d := decimal.NewFromInt(int64(v))
		return valueKindNumeric, &d
	case int16:
		d := decimal.NewFromInt(int64(v))
		return valueKindNumeric, &d
	case int32:
		d := decimal.NewFromInt(int64(v))
		return valueKindNumeric, &d
	case int64:
		d := decimal.NewFromInt(v)
		return valueKindNumeric, &d
	case uint:
		d := decimal.NewFromInt(int64(v))
		return valueKindNumeric, &d
	case uint8:
		d := decimal.NewFromInt(int64(v))
		return valueKindNumeric, &d
	case uint16:
		d := decimal.NewFromInt(int64(v))
		return valueKindNumeric, &d
	case uint32:
		d := decimal.NewFromInt(int64(v))
		return valueKindNumeric, &d
	case uint64:
		d := decimal.NewFromInt(int64(v))
		return valueKindNumeric, &d
	case string:
		if strings.TrimSpace(v) == "" {
			return valueKindBlank, nil
		}
		if strings.EqualFold(strings.TrimSpace(v), "N/A") {
			return valueKindNotApplicable, nil
		}
		if d, err := utils.ParseDecimal(v); err == nil {
			return valueKindNumeric, &d
		}
		return valueKindUnsupported, nil
	}

	return valueKindUnsupported, nil
}

func applyStrategy(kind valueKind, strategy models.HandlingStrategy) (*decimal.Decimal, error) {
	switch strategy {
	case models.HandlingStrategyIgnore, models.HandlingStrategyTreatAsNull:
		return nil, nil
	case models.HandlingStrategyTreatAsZero:
		zero := decimal.Zero
		return &zero, nil
	case models.HandlingStrategyFail:
		return nil, fmt.Errorf("%w: %s value encountered with FAIL strategy", ErrValue, kind)
	}
	return nil, nil
}

// HandleValue normalizes a raw cell value with one handling strategy.
// Numeric input passes through; every special-value kind (null, blank, N/A,
// unsupported) goes through the same strategy dispatch.
func HandleValue(raw any, strategy models.HandlingStrategy) (*decimal.Decimal, error) {
	kind, num := classifyValue(raw)
	if kind == valueKindNumeric {
		return num, nil
	}
	return applyStrategy(kind, strategy)
}

// NormalizeCell normalizes a raw cell value using whichever of the column's
// three strategies matches the detected kind. Unsupported values fall under
// the null-handling strategy.
func NormalizeCell(raw any, col models.ColumnComparisonConfig) (*decimal.Decimal, error) {
	kind, num := classifyValue(raw)
	if kind == valueKindNumeric {
		return num, nil
	}

	strategy := col.NullHandlingStrategy
	switch kind {
	case valueKindBlank:
		strategy = col.BlankHandlingStrategy
	case valueKindNotApplicable:
		strategy = col.NaHandlingStrategy
	}
	return applyStrategy(kind, strategy)
}

// ComparisonResult carries one computed difference. Nil fields mean the
// comparison was skipped because an input was null.
type ComparisonResult struct {
	ActualValue          *decimal.Decimal
	ExpectedValue        *decimal.Decimal
	DifferenceValue      *decimal.Decimal
	DifferencePercentage *decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// CompareValues computes the signed difference and, when expected is
// nonzero, the percentage difference rounded to 6 fractional digits
// half-away-from-zero before the multiply by 100.
func CompareValues(actual, expected *decimal.Decimal) ComparisonResult {
	result := ComparisonResult{
		ActualValue:   actual,
		ExpectedValue: expected,
	}

	if actual == nil || expected == nil {
		return result
	}

	difference := actual.Sub(*expected)
	result.DifferenceValue = &difference

	if !expected.IsZero() {
		percentage := difference.DivRound(expected.Abs(), 6).Mul(hundred)
		result.DifferencePercentage = &percentage
	} else if actual.IsZero() {
		// Both zero, no difference.
		zero := decimal.Zero
		result.DifferencePercentage = &zero
	} else {
		// Expected is zero but actual is not; report a full deviation.
		full := hundred
		result.DifferencePercentage = &full
	}

	return result
}

// IsThresholdExceeded applies the comparison type's exceedance rule.
// Boundary equality never exceeds; EXACT ignores the threshold value.
func IsThresholdExceeded(result ComparisonResult, comparisonType models.ComparisonType, threshold decimal.Decimal) bool {
	switch comparisonType {
	case models.ComparisonTypePercentage:
		return result.DifferencePercentage != nil && result.DifferencePercentage.Abs().GreaterThan(threshold)
	case models.ComparisonTypeAbsolute:
		return result.DifferenceValue != nil && result.DifferenceValue.Abs().GreaterThan(threshold)
	case models.ComparisonTypeExact:
		return result.DifferenceValue != nil && !result.DifferenceValue.IsZero()
	}
	return false
}
