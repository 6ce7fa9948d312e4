package models

import (
	"log"

	"gorm.io/gorm"
)

func MigrateTable(db *gorm.DB) {
	err := db.AutoMigrate(
		&ComparisonConfig{}, &DayOverDayConfig{}, &CrossTableConfig{},
		&ColumnComparisonConfig{}, &ThresholdConfig{},
		&ValidationResult{}, &ValidationDetailResult{},
		&EmailNotificationConfig{},
		&AlertOutboxRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
