package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bitbucket.org/mmdatafocus/datacheck_backend/config"
	"bitbucket.org/mmdatafocus/datacheck_backend/models"
	"bitbucket.org/mmdatafocus/datacheck_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

func (h *Handler) bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) internalError(c *gin.Context, funcName string, context string, data any, err error) {
	config.LogError(h.Logger, "configurationHandler.go", funcName, context, data, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// Comparison configs

func (h *Handler) ListComparisonConfigs(c *gin.Context) {
	var configs []models.ComparisonConfig
	if err := h.DB.WithContext(c.Request.Context()).Order("id ASC").Find(&configs).Error; err != nil {
		h.internalError(c, "ListComparisonConfigs", "loading comparison configs", nil, err)
		return
	}
	c.JSON(http.StatusOK, configs)
}

func (h *Handler) CreateComparisonConfig(c *gin.Context) {
	var cfg models.ComparisonConfig
	if !h.bindJSON(c, &cfg) {
		return
	}
	cfg.ID = 0
	if cfg.Enabled == nil {
		cfg.Enabled = utils.NewTrue()
	}
	if userName, ok := utils.GetUserNameFromContext(c.Request.Context()); ok {
		cfg.CreatedBy = userName
	}

	if err := h.DB.WithContext(c.Request.Context()).Create(&cfg).Error; err != nil {
		h.internalError(c, "CreateComparisonConfig", "creating comparison config", cfg.TableName, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (h *Handler) GetComparisonConfig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	cfg, err := h.Store.ComparisonConfigByID(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "GetComparisonConfig", "loading comparison config", id, err)
		return
	}
	if cfg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "comparison config not found"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *Handler) UpdateComparisonConfig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	existing, err := h.Store.ComparisonConfigByID(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "UpdateComparisonConfig", "loading comparison config", id, err)
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "comparison config not found"})
		return
	}

	var in models.ComparisonConfig
	if !h.bindJSON(c, &in) {
		return
	}
	existing.TableName = in.TableName
	existing.Description = in.Description
	if in.Enabled != nil {
		existing.Enabled = in.Enabled
	}
	if userName, ok := utils.GetUserNameFromContext(c.Request.Context()); ok {
		existing.LastModifiedBy = userName
	}

	if err := h.DB.WithContext(c.Request.Context()).Save(existing).Error; err != nil {
		h.internalError(c, "UpdateComparisonConfig", "saving comparison config", id, err)
		return
	}
	c.JSON(http.StatusOK, existing)
}

func (h *Handler) DeleteComparisonConfig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	// Remove the whole configuration subtree in one transaction.
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var dod models.DayOverDayConfig
		if err := tx.Where("comparison_config_id = ?", id).First(&dod).Error; err == nil {
			if err := deleteColumnSubtree(tx, "day_over_day_config_id", dod.ID); err != nil {
				return err
			}
			if err := tx.Delete(&dod).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var crossTables []models.CrossTableConfig
		if err := tx.Where("source_comparison_config_id = ?", id).Find(&crossTables).Error; err != nil {
			return err
		}
		for _, ct := range crossTables {
			if err := deleteColumnSubtree(tx, "cross_table_config_id", ct.ID); err != nil {
				return err
			}
		}
		if err := tx.Where("source_comparison_config_id = ?", id).Delete(&models.CrossTableConfig{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.ComparisonConfig{}, id).Error
	})
	if err != nil {
		h.internalError(c, "DeleteComparisonConfig", "deleting comparison config", id, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func deleteColumnSubtree(tx *gorm.DB, parentColumn string, parentID int) error {
	var columns []models.ColumnComparisonConfig
	if err := tx.Where(parentColumn+" = ?", parentID).Find(&columns).Error; err != nil {
		return err
	}
	for _, col := range columns {
		if err := tx.Where("column_comparison_config_id = ?", col.ID).Delete(&models.ThresholdConfig{}).Error; err != nil {
			return err
		}
	}
	return tx.Where(parentColumn+" = ?", parentID).Delete(&models.ColumnComparisonConfig{}).Error
}

// Day-over-day configs

func (h *Handler) GetDayOverDayConfig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	cfg, err := h.Store.DayOverDayConfigForComparison(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "GetDayOverDayConfig", "loading day-over-day config", id, err)
		return
	}
	if cfg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "day-over-day config not found"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// UpsertDayOverDayConfig creates or replaces the single day-over-day config
// hanging off a comparison config.
func (h *Handler) UpsertDayOverDayConfig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	owner, err := h.Store.ComparisonConfigByID(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "UpsertDayOverDayConfig", "loading comparison config", id, err)
		return
	}
	if owner == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "comparison config not found"})
		return
	}

	var in struct {
		Enabled            *bool  `json:"enabled"`
		ExclusionCondition string `json:"exclusion_condition"`
	}
	if !h.bindJSON(c, &in) {
		return
	}

	existing, err := h.Store.DayOverDayConfigForComparison(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "UpsertDayOverDayConfig", "loading day-over-day config", id, err)
		return
	}
	if existing == nil {
		existing = &models.DayOverDayConfig{ComparisonConfigId: id}
	}
	if in.Enabled != nil {
		existing.Enabled = in.Enabled
	} else if existing.Enabled == nil {
		existing.Enabled = utils.NewTrue()
	}
	existing.ExclusionCondition = in.ExclusionCondition

	if err := h.DB.WithContext(c.Request.Context()).Save(existing).Error; err != nil {
		h.internalError(c, "UpsertDayOverDayConfig", "saving day-over-day config", id, err)
		return
	}
	c.JSON(http.StatusOK, existing)
}

// Cross-table configs

func (h *Handler) ListCrossTableConfigs(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var configs []models.CrossTableConfig
	if err := h.DB.WithContext(c.Request.Context()).
		Where("source_comparison_config_id = ?", id).
		Order("id ASC").
		Find(&configs).Error; err != nil {
		h.internalError(c, "ListCrossTableConfigs", "loading cross-table configs", id, err)
		return
	}
	c.JSON(http.StatusOK, configs)
}

func (h *Handler) CreateCrossTableConfig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	owner, err := h.Store.ComparisonConfigByID(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "CreateCrossTableConfig", "loading comparison config", id, err)
		return
	}
	if owner == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "comparison config not found"})
		return
	}

	var in struct {
		TargetTableName string `json:"target_table_name" binding:"required"`
		JoinCondition   string `json:"join_condition" binding:"required"`
		Enabled         *bool  `json:"enabled"`
	}
	if !h.bindJSON(c, &in) {
		return
	}

	cfg := models.CrossTableConfig{
		SourceComparisonConfigId: id,
		TargetTableName:          in.TargetTableName,
		JoinCondition:            in.JoinCondition,
		Enabled:                  in.Enabled,
	}
	if cfg.Enabled == nil {
		cfg.Enabled = utils.NewTrue()
	}

	if err := h.DB.WithContext(c.Request.Context()).Create(&cfg).Error; err != nil {
		h.internalError(c, "CreateCrossTableConfig", "creating cross-table config", id, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (h *Handler) DeleteCrossTableConfig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := deleteColumnSubtree(tx, "cross_table_config_id", id); err != nil {
			return err
		}
		return tx.Delete(&models.CrossTableConfig{}, id).Error
	})
	if err != nil {
		h.internalError(c, "DeleteCrossTableConfig", "deleting cross-table config", id, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Column configs

func (h *Handler) CreateColumnConfig(c *gin.Context) {
	var cfg models.ColumnComparisonConfig
	if !h.bindJSON(c, &cfg) {
		return
	}
	cfg.ID = 0
	// A blank target column means "same as source"; store NULL, not "".
	if cfg.TargetColumnName != nil {
		cfg.TargetColumnName = utils.NilIfEmpty(strings.TrimSpace(*cfg.TargetColumnName))
	}

	if !cfg.HasExactlyOneParent() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "column config must reference exactly one of day_over_day_config_id or cross_table_config_id"})
		return
	}
	if !cfg.ComparisonType.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comparison_type"})
		return
	}
	for _, s := range []models.HandlingStrategy{cfg.NullHandlingStrategy, cfg.BlankHandlingStrategy, cfg.NaHandlingStrategy} {
		if !s.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid handling strategy"})
			return
		}
	}

	if err := h.DB.WithContext(c.Request.Context()).Create(&cfg).Error; err != nil {
		h.internalError(c, "CreateColumnConfig", "creating column config", cfg.ColumnName, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (h *Handler) UpdateColumnConfig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var existing models.ColumnComparisonConfig
	if err := h.DB.WithContext(c.Request.Context()).First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "column config not found"})
			return
		}
		h.internalError(c, "UpdateColumnConfig", "loading column config", id, err)
		return
	}

	var in models.ColumnComparisonConfig
	if !h.bindJSON(c, &in) {
		return
	}
	if !in.ComparisonType.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid comparison_type"})
		return
	}

	if in.TargetColumnName != nil {
		in.TargetColumnName = utils.NilIfEmpty(strings.TrimSpace(*in.TargetColumnName))
	}

	existing.ColumnName = in.ColumnName
	existing.TargetColumnName = in.TargetColumnName
	existing.ComparisonType = in.ComparisonType
	existing.NullHandlingStrategy = in.NullHandlingStrategy
	existing.BlankHandlingStrategy = in.BlankHandlingStrategy
	existing.NaHandlingStrategy = in.NaHandlingStrategy

	if err := h.DB.WithContext(c.Request.Context()).Save(&existing).Error; err != nil {
		h.internalError(c, "UpdateColumnConfig", "saving column config", id, err)
		return
	}
	c.JSON(http.StatusOK, existing)
}

func (h *Handler) DeleteColumnConfig(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	err := h.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("column_comparison_config_id = ?", id).Delete(&models.ThresholdConfig{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ColumnComparisonConfig{}, id).Error
	})
	if err != nil {
		h.internalError(c, "DeleteColumnConfig", "deleting column config", id, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Thresholds

func (h *Handler) ListThresholds(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	thresholds, err := h.Store.ThresholdsForColumn(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "ListThresholds", "loading thresholds", id, err)
		return
	}
	c.JSON(http.StatusOK, thresholds)
}

func (h *Handler) CreateThreshold(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var column models.ColumnComparisonConfig
	if err := h.DB.WithContext(c.Request.Context()).First(&column, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "column config not found"})
			return
		}
		h.internalError(c, "CreateThreshold", "loading column config", id, err)
		return
	}

	var in models.ThresholdConfig
	if !h.bindJSON(c, &in) {
		return
	}
	if !in.Severity.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid severity"})
		return
	}
	if in.ThresholdValue.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold_value must not be negative"})
		return
	}

	in.ID = 0
	in.ColumnComparisonConfigId = id
	if in.NotificationEnabled == nil {
		in.NotificationEnabled = utils.NewTrue()
	}

	if err := h.DB.WithContext(c.Request.Context()).Create(&in).Error; err != nil {
		h.internalError(c, "CreateThreshold", "creating threshold", id, err)
		return
	}
	c.JSON(http.StatusCreated, in)
}

func (h *Handler) DeleteThreshold(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res := h.DB.WithContext(c.Request.Context()).Delete(&models.ThresholdConfig{}, id)
	if res.Error != nil {
		h.internalError(c, "DeleteThreshold", "deleting threshold", id, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": utils.ErrorRecordNotFound.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
