package domain

import "time"

// DigestFrequency is how often batched notifications are flushed.
type DigestFrequency string

const (
	DigestDaily  DigestFrequency = "daily"
	DigestWeekly DigestFrequency = "weekly"
)

// Valid reports whether f is a known digest frequency.
func (f DigestFrequency) Valid() bool {
	return f == DigestDaily || f == DigestWeekly
}

// NotificationPreference is the per-user delivery preference record.
// Exactly one exists per user; it is materialized lazily on first access.
type NotificationPreference struct {
	UserID string `json:"user_id" dynamodbav:"user_id"`

	FollowNotifications  bool `json:"follow_notifications" dynamodbav:"follow_notifications"`
	LikeNotifications    bool `json:"like_notifications" dynamodbav:"like_notifications"`
	CommentNotifications bool `json:"comment_notifications" dynamodbav:"comment_notifications"`
	ReplyNotifications   bool `json:"reply_notifications" dynamodbav:"reply_notifications"`
	MentionNotifications bool `json:"mention_notifications" dynamodbav:"mention_notifications"`
	SystemNotifications  bool `json:"system_notifications" dynamodbav:"system_notifications"`

	EmailNotifications  bool `json:"email_notifications" dynamodbav:"email_notifications"`
	PushNotifications   bool `json:"push_notifications" dynamodbav:"push_notifications"`
	DigestNotifications bool `json:"digest_notifications" dynamodbav:"digest_notifications"`

	DigestFrequency DigestFrequency `json:"digest_frequency" dynamodbav:"digest_frequency"`

	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// DefaultPreference is the record served (and persisted) before a user has
// ever written one: every type on, immediate channels on, digest off.
func DefaultPreference(userID string, now time.Time) *NotificationPreference {
	return &NotificationPreference{
		UserID:               userID,
		FollowNotifications:  true,
		LikeNotifications:    true,
		CommentNotifications: true,
		ReplyNotifications:   true,
		MentionNotifications: true,
		SystemNotifications:  true,
		EmailNotifications:   true,
		PushNotifications:    true,
		DigestNotifications:  false,
		DigestFrequency:      DigestDaily,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// TypeEnabled consults the per-type gate for t.
func (p *NotificationPreference) TypeEnabled(t NotificationType) bool {
	switch t {
	case TypeFollow:
		return p.FollowNotifications
	case TypeLike:
		return p.LikeNotifications
	case TypeComment:
		return p.CommentNotifications
	case TypeReply:
		return p.ReplyNotifications
	case TypeMention:
		return p.MentionNotifications
	case TypeSystem:
		return p.SystemNotifications
	}
	return false
}

// UpdatePreferenceRequest carries a partial preference update. Nil fields
// are left untouched so callers can never accidentally clear settings they
// did not send.
type UpdatePreferenceRequest struct {
	FollowNotifications  *bool `json:"follow_notifications"`
	LikeNotifications    *bool `json:"like_notifications"`
	CommentNotifications *bool `json:"comment_notifications"`
	ReplyNotifications   *bool `json:"reply_notifications"`
	MentionNotifications *bool `json:"mention_notifications"`
	SystemNotifications  *bool `json:"system_notifications"`

	EmailNotifications  *bool `json:"email_notifications"`
	PushNotifications   *bool `json:"push_notifications"`
	DigestNotifications *bool `json:"digest_notifications"`

	DigestFrequency *string `json:"digest_frequency" validate:"omitempty,oneof=daily weekly"`
}
