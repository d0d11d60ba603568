package payment

import (
	"time"

	"github.com/google/uuid"
)

// TimelineEvent records a single status transition of a payment. The timeline
// is append-only: events are never mutated or deleted.
type TimelineEvent struct {
	ID         uuid.UUID  `json:"id" bson:"event_id"`
	PaymentID  uuid.UUID  `json:"payment_id" bson:"payment_id"`
	EventType  string     `json:"event_type" bson:"event_type"`
	FromStatus Status     `json:"from_status" bson:"from_status"`
	ToStatus   Status     `json:"to_status" bson:"to_status"`
	BatchID    *uuid.UUID `json:"batch_id,omitempty" bson:"batch_id,omitempty"`
	Actor      string     `json:"actor" bson:"actor"`
	Detail     string     `json:"detail,omitempty" bson:"detail,omitempty"`
	OccurredAt time.Time  `json:"occurred_at" bson:"occurred_at"`
}

// eventTypes maps the resulting status to a timeline event type
var eventTypes = map[Status]string{
	StatusBankFileGenerated: "BATCH_FILE_CREATED",
	StatusSentToBank:        "FILE_SENT_TO_BANK",
	StatusBankProcessing:    "BANK_ACKNOWLEDGED",
	StatusCompleted:         "SETTLEMENT_CONFIRMED",
	StatusFailed:            "BANK_REJECTED",
	StatusCancelled:         "PAYMENT_CANCELLED",
}

func newTimelineEvent(p *Payment, from, to Status, actor string, at time.Time) *TimelineEvent {
	return &TimelineEvent{
		ID:         uuid.New(),
		PaymentID:  p.ID,
		EventType:  eventTypes[to],
		FromStatus: from,
		ToStatus:   to,
		BatchID:    p.BatchID,
		Actor:      actor,
		OccurredAt: at,
	}
}
