package workflow

import (
	"errors"
	"io"
	"testing"

	"bitbucket.org/mmdatafocus/datacheck_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// NOTE: These tests are intentionally DB-free. They validate the comparison
// semantics: normalization strategy dispatch, signed difference and
// percentage math, and the per-comparison-type exceedance rules.

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func decPtr(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := dec(t, s)
	return &d
}

func column(comparisonType models.ComparisonType, null, blank, na models.HandlingStrategy) models.ColumnComparisonConfig {
	return models.ColumnComparisonConfig{
		ID:                    1,
		ColumnName:            "amount",
		ComparisonType:        comparisonType,
		NullHandlingStrategy:  null,
		BlankHandlingStrategy: blank,
		NaHandlingStrategy:    na,
	}
}

func TestHandleValue_NumericPassThrough(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		want string
	}{
		{"decimal", dec(t, "12.5"), "12.5"},
		{"float64", float64(3.25), "3.25"},
		{"int64", int64(-7), "-7"},
		{"numeric string", " 42.10 ", "42.1"},
	}
	for _, tc := range cases {
		got, err := HandleValue(tc.raw, models.HandlingStrategyFail)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got == nil || !got.Equal(dec(t, tc.want)) {
			t.Fatalf("%s: expected %s, got %v", tc.name, tc.want, got)
		}
	}
}

func TestHandleValue_SpecialValueStrategies(t *testing.T) {
	specials := []struct {
		name string
		raw  any
	}{
		{"null", nil},
		{"blank", "   "},
		{"na upper", "N/A"},
		{"na lower", "n/a"},
		{"unsupported", "not-a-number"},
	}

	for _, sv := range specials {
		if got, err := HandleValue(sv.raw, models.HandlingStrategyIgnore); err != nil || got != nil {
			t.Fatalf("%s IGNORE: expected nil,nil got %v,%v", sv.name, got, err)
		}
		if got, err := HandleValue(sv.raw, models.HandlingStrategyTreatAsNull); err != nil || got != nil {
			t.Fatalf("%s TREAT_AS_NULL: expected nil,nil got %v,%v", sv.name, got, err)
		}
		got, err := HandleValue(sv.raw, models.HandlingStrategyTreatAsZero)
		if err != nil || got == nil || !got.IsZero() {
			t.Fatalf("%s TREAT_AS_ZERO: expected zero got %v,%v", sv.name, got, err)
		}
		if _, err := HandleValue(sv.raw, models.HandlingStrategyFail); !errors.Is(err, ErrValue) {
			t.Fatalf("%s FAIL: expected ErrValue, got %v", sv.name, err)
		}
	}
}

func TestNormalizeCell_SelectsStrategyByKind(t *testing.T) {
	col := column(models.ComparisonTypePercentage,
		models.HandlingStrategyTreatAsZero, // null
		models.HandlingStrategyIgnore,      // blank
		models.HandlingStrategyFail,        // N/A
	)

	got, err := NormalizeCell(nil, col)
	if err != nil || got == nil || !got.IsZero() {
		t.Fatalf("null cell: expected zero via null strategy, got %v,%v", got, err)
	}

	got, err = NormalizeCell("", col)
	if err != nil || got != nil {
		t.Fatalf("blank cell: expected nil via blank strategy, got %v,%v", got, err)
	}

	if _, err := NormalizeCell("N/a", col); !errors.Is(err, ErrValue) {
		t.Fatalf("N/A cell: expected ErrValue via N/A strategy, got %v", err)
	}

	// Non-numeric strings fall under the null-handling strategy.
	got, err = NormalizeCell("garbage", col)
	if err != nil || got == nil || !got.IsZero() {
		t.Fatalf("unsupported cell: expected zero via null strategy, got %v,%v", got, err)
	}
}

func TestCompareValues_Difference(t *testing.T) {
	r := CompareValues(decPtr(t, "110"), decPtr(t, "100"))
	if r.DifferenceValue == nil || !r.DifferenceValue.Equal(dec(t, "10")) {
		t.Fatalf("expected difference 10, got %v", r.DifferenceValue)
	}
	if r.DifferencePercentage == nil || !r.DifferencePercentage.Equal(dec(t, "10")) {
		t.Fatalf("expected percentage 10, got %v", r.DifferencePercentage)
	}

	// Signed: shrinkage goes negative.
	r = CompareValues(decPtr(t, "90"), decPtr(t, "100"))
	if !r.DifferenceValue.Equal(dec(t, "-10")) || !r.DifferencePercentage.Equal(dec(t, "-10")) {
		t.Fatalf("expected -10/-10%%, got %v/%v", r.DifferenceValue, r.DifferencePercentage)
	}
}

func TestCompareValues_NegativeExpectedUsesAbsoluteBase(t *testing.T) {
	r := CompareValues(decPtr(t, "-90"), decPtr(t, "-100"))
	if !r.DifferenceValue.Equal(dec(t, "10")) {
		t.Fatalf("expected difference 10, got %v", r.DifferenceValue)
	}
	if !r.DifferencePercentage.Equal(dec(t, "10")) {
		t.Fatalf("expected percentage 10, got %v", r.DifferencePercentage)
	}
}

func TestCompareValues_ZeroExpected(t *testing.T) {
	r := CompareValues(decPtr(t, "0"), decPtr(t, "0"))
	if !r.DifferencePercentage.IsZero() {
		t.Fatalf("0 vs 0: expected 0%%, got %v", r.DifferencePercentage)
	}

	r = CompareValues(decPtr(t, "5"), decPtr(t, "0"))
	if !r.DifferencePercentage.Equal(dec(t, "100")) {
		t.Fatalf("5 vs 0: expected 100%%, got %v", r.DifferencePercentage)
	}
}

func TestCompareValues_NilInputSkips(t *testing.T) {
	r := CompareValues(nil, decPtr(t, "100"))
	if r.DifferenceValue != nil || r.DifferencePercentage != nil {
		t.Fatalf("nil actual: expected skipped comparison, got %v/%v", r.DifferenceValue, r.DifferencePercentage)
	}
	r = CompareValues(decPtr(t, "100"), nil)
	if r.DifferenceValue != nil || r.DifferencePercentage != nil {
		t.Fatalf("nil expected: expected skipped comparison, got %v/%v", r.DifferenceValue, r.DifferencePercentage)
	}
}

func TestCompareValues_PercentageRoundsToSixDigits(t *testing.T) {
	// 1/7 = 0.1428571... rounds to 0.142857 before the multiply by 100.
	r := CompareValues(decPtr(t, "8"), decPtr(t, "7"))
	if !r.DifferencePercentage.Equal(dec(t, "14.2857")) {
		t.Fatalf("expected 14.2857, got %v", r.DifferencePercentage)
	}

	// Half away from zero at the 6th digit: 1/2000000 = 0.0000005 rounds to
	// 0.000001, not the banker's 0.000000.
	r = CompareValues(decPtr(t, "2000001"), decPtr(t, "2000000"))
	if !r.DifferencePercentage.Equal(dec(t, "0.0001")) {
		t.Fatalf("expected 0.0001, got %v", r.DifferencePercentage)
	}
}

func TestIsThresholdExceeded_Percentage(t *testing.T) {
	r := CompareValues(decPtr(t, "110"), decPtr(t, "100"))

	if !IsThresholdExceeded(r, models.ComparisonTypePercentage, dec(t, "5")) {
		t.Fatal("10% over a 5% threshold should exceed")
	}
	// Boundary equality never exceeds.
	if IsThresholdExceeded(r, models.ComparisonTypePercentage, dec(t, "10")) {
		t.Fatal("10% over a 10% threshold should not exceed")
	}

	// Magnitude counts, not sign.
	r = CompareValues(decPtr(t, "90"), decPtr(t, "100"))
	if !IsThresholdExceeded(r, models.ComparisonTypePercentage, dec(t, "5")) {
		t.Fatal("-10% over a 5% threshold should exceed")
	}
}

func TestIsThresholdExceeded_Absolute(t *testing.T) {
	r := CompareValues(decPtr(t, "1050"), decPtr(t, "1000"))

	if !IsThresholdExceeded(r, models.ComparisonTypeAbsolute, dec(t, "49")) {
		t.Fatal("difference 50 over threshold 49 should exceed")
	}
	if IsThresholdExceeded(r, models.ComparisonTypeAbsolute, dec(t, "50")) {
		t.Fatal("difference 50 over threshold 50 should not exceed")
	}
}

func TestIsThresholdExceeded_Exact(t *testing.T) {
	same := CompareValues(decPtr(t, "100"), decPtr(t, "100"))
	if IsThresholdExceeded(same, models.ComparisonTypeExact, dec(t, "999")) {
		t.Fatal("equal values should not exceed under EXACT")
	}

	// EXACT ignores the threshold value entirely.
	off := CompareValues(decPtr(t, "100.0001"), decPtr(t, "100"))
	if !IsThresholdExceeded(off, models.ComparisonTypeExact, dec(t, "999")) {
		t.Fatal("any nonzero difference should exceed under EXACT")
	}
}

func TestIsThresholdExceeded_SkippedComparison(t *testing.T) {
	r := CompareValues(nil, decPtr(t, "100"))
	for _, ct := range []models.ComparisonType{models.ComparisonTypePercentage, models.ComparisonTypeAbsolute, models.ComparisonTypeExact} {
		if IsThresholdExceeded(r, ct, dec(t, "0")) {
			t.Fatalf("%s: skipped comparison should never exceed", ct)
		}
	}
}

func TestParseAggregateColumn(t *testing.T) {
	fn, col, err := parseAggregateColumn("SUM(amount)")
	if err != nil || fn != "SUM" || col != "amount" {
		t.Fatalf("expected SUM/amount, got %s/%s (%v)", fn, col, err)
	}

	fn, col, err = parseAggregateColumn(" avg ( total_price ) ")
	if err != nil || fn != "avg" || col != "total_price" {
		t.Fatalf("expected avg/total_price, got %s/%s (%v)", fn, col, err)
	}

	if _, _, err := parseAggregateColumn("SUM()"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("empty inner column: expected ErrConfiguration, got %v", err)
	}
}
