package domain

import (
	"fmt"
	"time"
)

// DigestEntry is one notification captured into a digest batch. It carries
// enough to render the aggregated message without re-reading the
// notifications table at flush time.
type DigestEntry struct {
	NotificationID string           `json:"notification_id" dynamodbav:"notification_id"`
	Type           NotificationType `json:"type" dynamodbav:"type"`
	Content        string           `json:"content" dynamodbav:"content"`
	CreatedAt      time.Time        `json:"created" dynamodbav:"created_at"`
}

// DigestBatch accumulates a recipient's notifications for one period.
// The flush is guarded by a conditional write on Flushed so a retried
// scheduler run can never deliver the same batch twice.
type DigestBatch struct {
	RecipientID string          `json:"recipient_id" dynamodbav:"recipient_id"`
	PeriodKey   string          `json:"period_key" dynamodbav:"period_key"`
	Frequency   DigestFrequency `json:"frequency" dynamodbav:"frequency"`
	Entries     []DigestEntry   `json:"entries" dynamodbav:"entries"`
	Flushed     int             `json:"flushed" dynamodbav:"flushed"`
	CreatedAt   time.Time       `json:"created" dynamodbav:"created_at"`
	UpdatedAt   time.Time       `json:"updated" dynamodbav:"updated_at"`
}

// PeriodKey buckets t into the digest period for the given frequency,
// in UTC. Daily keys look like "daily#2026-08-31", weekly keys like
// "weekly#2026-W36" (ISO week).
func PeriodKey(f DigestFrequency, t time.Time) string {
	t = t.UTC()
	if f == DigestWeekly {
		year, week := t.ISOWeek()
		return fmt.Sprintf("%s#%04d-W%02d", f, year, week)
	}
	return fmt.Sprintf("%s#%s", f, t.Format("2006-01-02"))
}
