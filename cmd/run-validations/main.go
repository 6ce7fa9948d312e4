package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/datacheck_backend/config"
	"bitbucket.org/mmdatafocus/datacheck_backend/models"
	"bitbucket.org/mmdatafocus/datacheck_backend/utils"
	"bitbucket.org/mmdatafocus/datacheck_backend/workflow"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	tableName := flag.String("table", "", "Optional: validate only the comparison config registered for this table.")
	configID := flag.Int("config-id", 0, "Optional: validate only this comparison config id.")
	workers := flag.Int("workers", 5, "Concurrent comparison units.")
	flag.Parse()

	if *tableName != "" && *configID > 0 {
		fmt.Fprintln(os.Stderr, "-table and -config-id are mutually exclusive")
		os.Exit(2)
	}

	_ = godotenv.Load()
	logger := config.NewLogger()

	db := config.ConnectDatabaseWithRetry()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	_, redisLocker := config.ConnectRedis()

	store := models.NewStore(db)
	tables := models.NewDynamicTableStore(db, logger)
	validator := workflow.NewThresholdValidator(store, tables, logger)
	pool := workflow.NewWorkerPool(*workers)

	var locker workflow.RunLocker
	if redisLocker != nil {
		locker = workflow.NewRedisRunLocker(redisLocker)
	}
	executor := workflow.NewValidationExecutor(store, validator, pool, locker, logger)

	ctx := utils.SetCorrelationIdInContext(context.Background(), uuid.NewString())
	ctx = utils.SetUserNameInContext(ctx, "RunValidations")

	var results []models.ValidationResult
	switch {
	case *tableName != "":
		results = executor.ExecuteForTable(ctx, strings.TrimSpace(*tableName))
		if len(results) == 0 {
			fmt.Fprintf(os.Stderr, "no comparison config found for table %q\n", *tableName)
			os.Exit(1)
		}
	case *configID > 0:
		results = executor.ExecuteForConfig(ctx, *configID)
		if len(results) == 0 {
			fmt.Fprintf(os.Stderr, "no comparison config with id %d\n", *configID)
			os.Exit(1)
		}
	default:
		results = executor.ExecuteAll(ctx)
	}
	pool.Wait()

	failed := 0
	for _, r := range results {
		status := "OK"
		if !r.Success {
			status = "FAILED"
			failed++
		}
		detail := ""
		if r.ErrorMessage != nil {
			detail = " " + *r.ErrorMessage
		}
		fmt.Printf("run %d config %d: %s%s\n", r.ID, r.ComparisonConfigId, status, detail)
	}
	fmt.Printf("%d run(s), %d failed\n", len(results), failed)

	if failed > 0 {
		os.Exit(1)
	}
}
