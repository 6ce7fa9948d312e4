package api

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/datacheck_backend/config"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ExecuteAll(c *gin.Context) {
	results := h.Executor.ExecuteAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) ExecuteForTable(c *gin.Context) {
	tableName := c.Param("tableName")

	cfg, err := h.Store.ComparisonConfigByTableName(c.Request.Context(), tableName)
	if err != nil {
		config.LogError(h.Logger, "executionHandler.go", "ExecuteForTable", "loading comparison config", tableName, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if cfg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no comparison config for table " + tableName})
		return
	}

	results := h.Executor.ExecuteForConfig(c.Request.Context(), cfg.ID)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) ExecuteForConfig(c *gin.Context) {
	configID, err := strconv.Atoi(c.Param("configId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid config id"})
		return
	}

	cfg, err := h.Store.ComparisonConfigByID(c.Request.Context(), configID)
	if err != nil {
		config.LogError(h.Logger, "executionHandler.go", "ExecuteForConfig", "loading comparison config", configID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if cfg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "comparison config not found"})
		return
	}

	results := h.Executor.ExecuteForConfig(c.Request.Context(), configID)
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) RetryExecution(c *gin.Context) {
	resultID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid execution id"})
		return
	}

	run, err := h.Executor.Retry(c.Request.Context(), resultID)
	if err != nil {
		config.LogError(h.Logger, "executionHandler.go", "RetryExecution", "retrying validation run", resultID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "validation result not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *Handler) ListExecutions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	var configID *int
	if raw := c.Query("config_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid config_id"})
			return
		}
		configID = &id
	}

	results, total, err := h.Store.ValidationResults(c.Request.Context(), page, pageSize, configID)
	if err != nil {
		config.LogError(h.Logger, "executionHandler.go", "ListExecutions", "loading run history", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":      results,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handler) GetExecution(c *gin.Context) {
	resultID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid execution id"})
		return
	}

	result, err := h.Store.ValidationResultByID(c.Request.Context(), resultID)
	if err != nil {
		config.LogError(h.Logger, "executionHandler.go", "GetExecution", "loading validation result", resultID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "validation result not found"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetExecutionDetails(c *gin.Context) {
	resultID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid execution id"})
		return
	}

	result, err := h.Store.ValidationResultByID(c.Request.Context(), resultID)
	if err != nil {
		config.LogError(h.Logger, "executionHandler.go", "GetExecutionDetails", "loading validation result", resultID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "validation result not found"})
		return
	}

	details, err := h.Store.DetailResultsForRun(c.Request.Context(), resultID)
	if err != nil {
		config.LogError(h.Logger, "executionHandler.go", "GetExecutionDetails", "loading detail results", resultID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result, "details": details})
}
