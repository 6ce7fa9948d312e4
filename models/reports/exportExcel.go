package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"bitbucket.org/mmdatafocus/datacheck_backend/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const excelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// BuildValidationWorkbook renders one day's validation outcome as a two
// sheet workbook: a per-table summary and the exceeded details.
func BuildValidationWorkbook(ctx context.Context, db *gorm.DB, date time.Time) (*excelize.File, error) {
	summary, err := GetDailySummaryReport(ctx, db, date)
	if err != nil {
		return nil, err
	}
	failures, err := GetFailureDetailReport(ctx, db, date)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	summarySheet := "Summary"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	// Summary sheet
	f.SetCellValue(summarySheet, "A1", "Table")
	f.SetCellValue(summarySheet, "B1", "TotalRuns")
	f.SetCellValue(summarySheet, "C1", "FailedRuns")
	f.SetCellValue(summarySheet, "D1", "ExceededDetails")
	f.SetCellValue(summarySheet, "E1", "AvgExecutionTimeMs")
	for i, row := range summary {
		f.SetCellValue(summarySheet, "A"+fmt.Sprint(i+2), row.TableName)
		f.SetCellValue(summarySheet, "B"+fmt.Sprint(i+2), row.TotalRuns)
		f.SetCellValue(summarySheet, "C"+fmt.Sprint(i+2), row.FailedRuns)
		f.SetCellValue(summarySheet, "D"+fmt.Sprint(i+2), row.ExceededDetails)
		f.SetCellValue(summarySheet, "E"+fmt.Sprint(i+2), utils.DereferencePtr(row.AvgExecutionTimeMs, 0))
	}

	// Failure details sheet
	failureSheet := "Failures"
	if _, err := f.NewSheet(failureSheet); err != nil {
		return nil, err
	}
	f.SetCellValue(failureSheet, "A1", "Table")
	f.SetCellValue(failureSheet, "B1", "Column")
	f.SetCellValue(failureSheet, "C1", "ComparisonType")
	f.SetCellValue(failureSheet, "D1", "Severity")
	f.SetCellValue(failureSheet, "E1", "Threshold")
	f.SetCellValue(failureSheet, "F1", "Actual")
	f.SetCellValue(failureSheet, "G1", "Expected")
	f.SetCellValue(failureSheet, "H1", "Difference")
	f.SetCellValue(failureSheet, "I1", "DifferencePct")
	f.SetCellValue(failureSheet, "J1", "ExecutionDate")
	for i, d := range failures {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(failureSheet, "A"+row, d.TableName)
		f.SetCellValue(failureSheet, "B"+row, d.ColumnName)
		f.SetCellValue(failureSheet, "C"+row, d.ComparisonType)
		f.SetCellValue(failureSheet, "D"+row, utils.DereferencePtr(d.Severity, ""))
		if d.ThresholdValue != nil {
			f.SetCellValue(failureSheet, "E"+row, d.ThresholdValue.String())
		}
		if d.ActualValue != nil {
			f.SetCellValue(failureSheet, "F"+row, d.ActualValue.String())
		}
		if d.ExpectedValue != nil {
			f.SetCellValue(failureSheet, "G"+row, d.ExpectedValue.String())
		}
		if d.DifferenceValue != nil {
			f.SetCellValue(failureSheet, "H"+row, d.DifferenceValue.String())
		}
		if d.DifferencePercentage != nil {
			f.SetCellValue(failureSheet, "I"+row, d.DifferencePercentage.String())
		}
		f.SetCellValue(failureSheet, "J"+row, d.ExecutionDate.Format(time.RFC3339))
	}

	return f, nil
}

// WriteValidationWorkbook streams the workbook to w.
func WriteValidationWorkbook(ctx context.Context, db *gorm.DB, date time.Time, w io.Writer) error {
	f, err := BuildValidationWorkbook(ctx, db, date)
	if err != nil {
		return err
	}
	return f.Write(w)
}

// ArchiveValidationWorkbook builds the workbook and uploads it to the
// report archive bucket. Returns the uploaded object path.
func ArchiveValidationWorkbook(ctx context.Context, db *gorm.DB, date time.Time) (string, error) {
	var buf bytes.Buffer
	if err := WriteValidationWorkbook(ctx, db, date, &buf); err != nil {
		return "", err
	}
	// Unique suffix so re-archiving the same day never overwrites.
	name := fmt.Sprintf("validation-report-%s-%s.xlsx", date.Format("2006-01-02"), utils.GenerateUniqueFilename())
	return utils.ArchiveReportToGCS(ctx, name, excelContentType, &buf)
}
