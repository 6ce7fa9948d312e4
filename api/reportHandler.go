package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/datacheck_backend/models/reports"
	"github.com/gin-gonic/gin"
)

func reportDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return time.Now(), true
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return date, true
}

func (h *Handler) DailySummaryReport(c *gin.Context) {
	date, ok := reportDate(c)
	if !ok {
		return
	}
	rows, err := reports.GetDailySummaryReport(c.Request.Context(), h.DB, date)
	if err != nil {
		h.internalError(c, "DailySummaryReport", "building daily summary", date, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) TableReport(c *gin.Context) {
	tableName := c.Param("tableName")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	rows, err := reports.GetTableReport(c.Request.Context(), h.DB, tableName, limit)
	if err != nil {
		h.internalError(c, "TableReport", "building table report", tableName, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) TrendReport(c *gin.Context) {
	configID, err := strconv.Atoi(c.Param("configId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid config id"})
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

	columns, err := reports.GetTrendReport(c.Request.Context(), h.DB, configID, days)
	if err != nil {
		h.internalError(c, "TrendReport", "building trend report", configID, err)
		return
	}
	successRate, err := reports.GetSuccessRateTrend(c.Request.Context(), h.DB, configID, days)
	if err != nil {
		h.internalError(c, "TrendReport", "building success rate trend", configID, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns, "success_rate": successRate})
}

func (h *Handler) ExportDailySummary(c *gin.Context) {
	date, ok := reportDate(c)
	if !ok {
		return
	}

	// archive=true also uploads the workbook to the report bucket.
	if c.Query("archive") == "true" {
		object, err := reports.ArchiveValidationWorkbook(c.Request.Context(), h.DB, date)
		if err != nil {
			h.internalError(c, "ExportDailySummary", "archiving workbook", date, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"archived": object})
		return
	}

	filename := fmt.Sprintf("validation-report-%s.xlsx", date.Format("2006-01-02"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := reports.WriteValidationWorkbook(c.Request.Context(), h.DB, date, c.Writer); err != nil {
		h.internalError(c, "ExportDailySummary", "writing workbook", date, err)
	}
}
