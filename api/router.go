package api

import (
	"bitbucket.org/mmdatafocus/datacheck_backend/middlewares"
	"bitbucket.org/mmdatafocus/datacheck_backend/models"
	"bitbucket.org/mmdatafocus/datacheck_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Handler bundles the collaborators the REST layer needs. All routes are
// thin wrappers; validation semantics live in the workflow package.
type Handler struct {
	DB       *gorm.DB
	Store    *models.Store
	Executor *workflow.ValidationExecutor
	Logger   *logrus.Logger
}

func NewHandler(db *gorm.DB, store *models.Store, executor *workflow.ValidationExecutor, logger *logrus.Logger) *Handler {
	return &Handler{DB: db, Store: store, Executor: executor, Logger: logger}
}

// RegisterRoutes mounts the versioned API onto r.
func RegisterRoutes(r *gin.Engine, h *Handler) {
	v1 := r.Group("/api/v1")
	v1.Use(middlewares.CorrelationMiddleware())
	v1.Use(middlewares.APIKeyAuthMiddleware())

	executions := v1.Group("/executions")
	{
		executions.POST("", h.ExecuteAll)
		executions.POST("/tables/:tableName", h.ExecuteForTable)
		executions.POST("/configs/:configId", h.ExecuteForConfig)
		executions.POST("/:id/retry", h.RetryExecution)
		executions.GET("", h.ListExecutions)
		executions.GET("/:id", h.GetExecution)
		executions.GET("/:id/results", h.GetExecutionDetails)
	}

	configurations := v1.Group("/configurations")
	{
		configurations.GET("", h.ListComparisonConfigs)
		configurations.POST("", h.CreateComparisonConfig)
		configurations.GET("/:id", h.GetComparisonConfig)
		configurations.PUT("/:id", h.UpdateComparisonConfig)
		configurations.DELETE("/:id", h.DeleteComparisonConfig)

		configurations.GET("/:id/day-over-day", h.GetDayOverDayConfig)
		configurations.PUT("/:id/day-over-day", h.UpsertDayOverDayConfig)
		configurations.GET("/:id/cross-tables", h.ListCrossTableConfigs)
		configurations.POST("/:id/cross-tables", h.CreateCrossTableConfig)
	}

	columnConfigs := v1.Group("/column-configs")
	{
		columnConfigs.POST("", h.CreateColumnConfig)
		columnConfigs.PUT("/:id", h.UpdateColumnConfig)
		columnConfigs.DELETE("/:id", h.DeleteColumnConfig)
		columnConfigs.GET("/:id/thresholds", h.ListThresholds)
		columnConfigs.POST("/:id/thresholds", h.CreateThreshold)
	}
	v1.DELETE("/thresholds/:id", h.DeleteThreshold)
	v1.DELETE("/cross-tables/:id", h.DeleteCrossTableConfig)

	reports := v1.Group("/reports")
	{
		reports.GET("/daily-summary", h.DailySummaryReport)
		reports.GET("/tables/:tableName", h.TableReport)
		reports.GET("/trend/:configId", h.TrendReport)
		reports.GET("/export/daily-summary", h.ExportDailySummary)
	}

	alerts := v1.Group("/alerts")
	{
		alerts.GET("/active", h.ActiveAlerts)
		alerts.GET("/outbox", h.ListAlertOutbox)
	}

	emailConfigs := v1.Group("/email-notification-configs")
	{
		emailConfigs.GET("", h.ListEmailConfigs)
		emailConfigs.POST("", h.CreateEmailConfig)
		emailConfigs.PUT("/:id", h.UpdateEmailConfig)
		emailConfigs.DELETE("/:id", h.DeleteEmailConfig)
	}
}
