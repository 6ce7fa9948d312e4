package models

import "strings"

type ComparisonType string

const (
	ComparisonTypePercentage ComparisonType = "PERCENTAGE"
	ComparisonTypeAbsolute   ComparisonType = "ABSOLUTE"
	ComparisonTypeExact      ComparisonType = "EXACT"
)

func (t ComparisonType) IsValid() bool {
	switch t {
	case ComparisonTypePercentage, ComparisonTypeAbsolute, ComparisonTypeExact:
		return true
	}
	return false
}

type HandlingStrategy string

const (
	HandlingStrategyIgnore      HandlingStrategy = "IGNORE"
	HandlingStrategyTreatAsNull HandlingStrategy = "TREAT_AS_NULL"
	HandlingStrategyTreatAsZero HandlingStrategy = "TREAT_AS_ZERO"
	HandlingStrategyFail        HandlingStrategy = "FAIL"
)

func (s HandlingStrategy) IsValid() bool {
	switch s {
	case HandlingStrategyIgnore, HandlingStrategyTreatAsNull, HandlingStrategyTreatAsZero, HandlingStrategyFail:
		return true
	}
	return false
}

type Severity string

const (
	SeverityHigh   Severity = "HIGH"
	SeverityMedium Severity = "MEDIUM"
	SeverityLow    Severity = "LOW"
)

// Level orders severities for reduction; HIGH > MEDIUM > LOW.
func (s Severity) Level() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

func (s Severity) IsValid() bool {
	return s.Level() > 0
}

// HighestSeverity reduces a set of severities to the highest one,
// defaulting to LOW when none are given.
func HighestSeverity(severities ...Severity) Severity {
	highest := SeverityLow
	for _, s := range severities {
		if s.Level() > highest.Level() {
			highest = s
		}
	}
	return highest
}

// SeverityFromName parses a severity name, falling back to def for unknown
// or blank input.
func SeverityFromName(name string, def Severity) Severity {
	s := Severity(strings.ToUpper(strings.TrimSpace(name)))
	if !s.IsValid() {
		return def
	}
	return s
}

// Alert outbox publish lifecycle.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)
