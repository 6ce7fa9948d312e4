package api

import (
	"errors"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/datacheck_backend/models"
	"bitbucket.org/mmdatafocus/datacheck_backend/models/reports"
	"bitbucket.org/mmdatafocus/datacheck_backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ActiveAlerts lists today's exceeded details, newest exceedances first by
// table then column.
func (h *Handler) ActiveAlerts(c *gin.Context) {
	rows, err := reports.GetFailureDetailReport(c.Request.Context(), h.DB, time.Now())
	if err != nil {
		h.internalError(c, "ActiveAlerts", "loading active alerts", nil, err)
		return
	}

	if raw := c.Query("min_severity"); raw != "" {
		min := models.SeverityFromName(raw, models.SeverityLow)
		filtered := rows[:0]
		for _, row := range rows {
			if row.Severity != nil && models.SeverityFromName(*row.Severity, models.SeverityLow).Level() >= min.Level() {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) ListAlertOutbox(c *gin.Context) {
	q := h.DB.WithContext(c.Request.Context()).Order("id DESC").Limit(200)
	if status := c.Query("status"); status != "" {
		q = q.Where("publish_status = ?", status)
	}

	var records []models.AlertOutboxRecord
	if err := q.Find(&records).Error; err != nil {
		h.internalError(c, "ListAlertOutbox", "loading alert outbox", nil, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// Email notification configs

func (h *Handler) ListEmailConfigs(c *gin.Context) {
	var configs []models.EmailNotificationConfig
	if err := h.DB.WithContext(c.Request.Context()).Order("id ASC").Find(&configs).Error; err != nil {
		h.internalError(c, "ListEmailConfigs", "loading email configs", nil, err)
		return
	}
	c.JSON(http.StatusOK, configs)
}

func (h *Handler) CreateEmailConfig(c *gin.Context) {
	var cfg models.EmailNotificationConfig
	if !h.bindJSON(c, &cfg) {
		return
	}
	cfg.ID = 0
	if !utils.IsValidEmail(cfg.EmailAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email address"})
		return
	}
	if !cfg.SeverityLevel.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid severity level"})
		return
	}
	if cfg.Enabled == nil {
		cfg.Enabled = utils.NewTrue()
	}

	if err := h.DB.WithContext(c.Request.Context()).Create(&cfg).Error; err != nil {
		h.internalError(c, "CreateEmailConfig", "creating email config", cfg.EmailAddress, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (h *Handler) UpdateEmailConfig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var existing models.EmailNotificationConfig
	if err := h.DB.WithContext(c.Request.Context()).First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "email config not found"})
			return
		}
		h.internalError(c, "UpdateEmailConfig", "loading email config", id, err)
		return
	}

	var in models.EmailNotificationConfig
	if !h.bindJSON(c, &in) {
		return
	}
	if !utils.IsValidEmail(in.EmailAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email address"})
		return
	}
	if !in.SeverityLevel.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid severity level"})
		return
	}

	existing.EmailAddress = in.EmailAddress
	existing.SeverityLevel = in.SeverityLevel
	if in.Enabled != nil {
		existing.Enabled = in.Enabled
	}

	if err := h.DB.WithContext(c.Request.Context()).Save(&existing).Error; err != nil {
		h.internalError(c, "UpdateEmailConfig", "saving email config", id, err)
		return
	}
	c.JSON(http.StatusOK, existing)
}

func (h *Handler) DeleteEmailConfig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res := h.DB.WithContext(c.Request.Context()).Delete(&models.EmailNotificationConfig{}, id)
	if res.Error != nil {
		h.internalError(c, "DeleteEmailConfig", "deleting email config", id, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": utils.ErrorRecordNotFound.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
