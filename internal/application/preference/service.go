package preference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-notify-api/internal/domain"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldFollow  = "follow_notifications"
	fieldLike    = "like_notifications"
	fieldComment = "comment_notifications"
	fieldReply   = "reply_notifications"
	fieldMention = "mention_notifications"
	fieldSystem  = "system_notifications"

	fieldEmail  = "email_notifications"
	fieldPush   = "push_notifications"
	fieldDigest = "digest_notifications"

	fieldDigestFrequency = "digest_frequency"
	fieldUpdatedAt       = "updated_at"
)

type Service interface {
	Get(ctx context.Context, userID string) (*domain.NotificationPreference, error)
	Update(ctx context.Context, userID string, req domain.UpdatePreferenceRequest) (*domain.NotificationPreference, error)
}

type preferenceStore interface {
	Get(ctx context.Context, userID string) (*domain.NotificationPreference, error)
	Put(ctx context.Context, p *domain.NotificationPreference) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type service struct {
	repo preferenceStore
}

func NewService(repo preferenceStore) Service {
	return &service{repo: repo}
}

// Get returns the user's preference record, materializing and persisting the
// default on first access. A read never errors just because the user has not
// written preferences yet.
func (s *service) Get(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	p, err := s.repo.Get(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	p = domain.DefaultPreference(userID, time.Now().UTC())
	if err := s.repo.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("materialize default preferences: %w", err)
	}
	return p, nil
}

// Update merges the non-nil fields of req into the stored record. Full
// replace is deliberately unsupported: a partial body can never clear
// settings it did not mention.
func (s *service) Update(ctx context.Context, userID string, req domain.UpdatePreferenceRequest) (*domain.NotificationPreference, error) {
	if req.DigestFrequency != nil && !domain.DigestFrequency(*req.DigestFrequency).Valid() {
		return nil, fmt.Errorf("digest_frequency must be daily or weekly: %w", domain.ErrBadRequest)
	}

	// Ensure the row exists before a partial update touches it.
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	setBool := func(field string, v *bool) {
		if v != nil {
			updates[field] = *v
		}
	}
	setBool(fieldFollow, req.FollowNotifications)
	setBool(fieldLike, req.LikeNotifications)
	setBool(fieldComment, req.CommentNotifications)
	setBool(fieldReply, req.ReplyNotifications)
	setBool(fieldMention, req.MentionNotifications)
	setBool(fieldSystem, req.SystemNotifications)
	setBool(fieldEmail, req.EmailNotifications)
	setBool(fieldPush, req.PushNotifications)
	setBool(fieldDigest, req.DigestNotifications)
	if req.DigestFrequency != nil {
		updates[fieldDigestFrequency] = *req.DigestFrequency
	}

	if len(updates) > 0 {
		updates[fieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339Nano)
		if err := s.repo.Update(ctx, userID, updates); err != nil {
			return nil, fmt.Errorf("update preferences: %w", err)
		}
	}
	return s.repo.Get(ctx, userID)
}
