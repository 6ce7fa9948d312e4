package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/datacheck_backend/config"
	"bitbucket.org/mmdatafocus/datacheck_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertOutboxRecord implements the transactional outbox for alert delivery:
// the record is written alongside the validation run and published to the
// alerts Pub/Sub topic asynchronously by the alert dispatcher.
type AlertOutboxRecord struct {
	ID                 int        `gorm:"primary_key" json:"id"`
	ValidationResultId int        `gorm:"index;not null" json:"validation_result_id"`
	Severity           Severity   `gorm:"size:10;not null" json:"severity"`
	Payload            []byte     `gorm:"type:json" json:"payload"`
	IsProcessed        bool       `gorm:"not null;default:false" json:"is_processed"`
	PublishStatus      string     `gorm:"size:20;not null;default:'PENDING';index" json:"publish_status"`
	PublishAttempts    int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt      *time.Time `json:"next_attempt_at"`
	LockedAt           *time.Time `json:"locked_at"`
	LockedBy           *string    `gorm:"size:64" json:"locked_by"`
	LastPublishError   *string    `gorm:"type:text" json:"last_publish_error"`
	PublishedAt        *time.Time `json:"published_at"`
	PubSubMessageId    *string    `gorm:"size:128" json:"pub_sub_message_id"`
	CorrelationId      string     `gorm:"size:64" json:"correlation_id"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// EnqueueAlert writes the outbox record inside the caller's DB handle but
// does NOT publish; publishing happens asynchronously after commit.
func EnqueueAlert(ctx context.Context, db *gorm.DB, msg config.AlertMessage) error {
	if msg.CorrelationId == "" {
		msg.CorrelationId = correlationIdFromContextOrNew(ctx)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	record := AlertOutboxRecord{
		ValidationResultId: msg.ValidationResultID,
		Severity:           Severity(msg.Severity),
		Payload:            payload,
		IsProcessed:        false,
		PublishStatus:      OutboxPublishStatusPending,
		CorrelationId:      msg.CorrelationId,
	}
	return db.WithContext(ctx).Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
