package domain

import "time"

// NotificationType is the closed set of event kinds this service delivers.
type NotificationType string

const (
	TypeFollow  NotificationType = "follow"
	TypeLike    NotificationType = "like"
	TypeComment NotificationType = "comment"
	TypeReply   NotificationType = "reply"
	TypeMention NotificationType = "mention"
	TypeSystem  NotificationType = "system"
)

// Valid reports whether t is a known notification type.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeFollow, TypeLike, TypeComment, TypeReply, TypeMention, TypeSystem:
		return true
	}
	return false
}

type Notification struct {
	NotificationID string           `json:"id" dynamodbav:"notification_id"`
	RecipientID    string           `json:"recipient_id" dynamodbav:"recipient_id"`
	ActorID        *string          `json:"actor_id,omitempty" dynamodbav:"actor_id"`
	Type           NotificationType `json:"type" dynamodbav:"type"`
	Content        string           `json:"content" dynamodbav:"content"`
	RelatedID      *string          `json:"related_id,omitempty" dynamodbav:"related_id"`
	IsRead         bool             `json:"is_read" dynamodbav:"is_read"`
	CreatedAt      time.Time        `json:"created" dynamodbav:"created_at"`
}

// NotificationGroup is a read-time aggregation of notifications that share
// (type, related_id) within a short window. The underlying records are kept
// intact so each one stays individually mutable.
type NotificationGroup struct {
	Type          NotificationType `json:"type"`
	RelatedID     *string          `json:"related_id,omitempty"`
	Notifications []Notification   `json:"notifications"`
}

// CreateNotificationRequest is the producer-facing payload for a new event.
type CreateNotificationRequest struct {
	RecipientID string  `json:"recipient_id" validate:"required"`
	ActorID     *string `json:"actor_id"`
	Type        string  `json:"type" validate:"required"`
	Content     string  `json:"content" validate:"required"`
	RelatedID   *string `json:"related_id"`
}

// MarkReadRequest marks a single notification read; an absent id means
// "mark everything read" for the caller.
type MarkReadRequest struct {
	NotificationID *string `json:"notificationId"`
}

// ListOptions controls a paginated notification listing.
type ListOptions struct {
	Page       int
	PageSize   int
	UnreadOnly bool
	Grouped    bool
}

// ListResult is a page of notifications. Exactly one of Data and Groups is
// populated depending on ListOptions.Grouped.
type ListResult struct {
	Data       []Notification      `json:"data,omitempty"`
	Groups     []NotificationGroup `json:"groups,omitempty"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
}
