package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-notify-api/internal/domain"
	"github.com/go-notify-api/internal/pkg/id"
)

// Channel is a delivery target for a routed notification.
type Channel string

const (
	ChannelInApp  Channel = "in_app"
	ChannelEmail  Channel = "email"
	ChannelPush   Channel = "push"
	ChannelDigest Channel = "digest"
)

// Service routes a new notification event to its channels according to the
// recipient's preferences. A disabled type gate suppresses the notification
// entirely: nothing is stored, counted, or fanned out.
type Service interface {
	Deliver(ctx context.Context, req domain.CreateNotificationRequest) (*domain.Notification, []Channel, error)
}

type notificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
}

type counterStore interface {
	Add(ctx context.Context, recipientID string, delta int) error
}

type preferenceReader interface {
	Get(ctx context.Context, userID string) (*domain.NotificationPreference, error)
}

type digestAppender interface {
	Append(ctx context.Context, recipientID string, freq domain.DigestFrequency, n *domain.Notification) error
}

type mailSender interface {
	SendEmail(to, subject, body string) error
}

type pushSender interface {
	SendPush(ctx context.Context, targetARN, message string) error
}

// ContactDirectory resolves a recipient's delivery addresses. It is an
// external collaborator (the user/profile system); empty values mean the
// recipient has no address registered for that channel.
type ContactDirectory interface {
	EmailAddress(ctx context.Context, userID string) (string, error)
	PushTarget(ctx context.Context, userID string) (string, error)
}

type service struct {
	repo     notificationStore
	counter  counterStore
	prefs    preferenceReader
	digests  digestAppender
	mailer   mailSender
	push     pushSender
	contacts ContactDirectory
}

type ServiceDeps struct {
	NotificationRepo notificationStore
	Counter          counterStore
	Preferences      preferenceReader
	Digests          digestAppender
	Mailer           mailSender
	Push             pushSender
	Contacts         ContactDirectory
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:     deps.NotificationRepo,
		counter:  deps.Counter,
		prefs:    deps.Preferences,
		digests:  deps.Digests,
		mailer:   deps.Mailer,
		push:     deps.Push,
		contacts: deps.Contacts,
	}
}

// Deliver applies the type gate, then fans out. The in-app write and its
// counter increment always happen when the gate is on; email and push are
// best-effort side channels whose failures are logged, never propagated —
// the durable write is the source of truth.
func (s *service) Deliver(ctx context.Context, req domain.CreateNotificationRequest) (*domain.Notification, []Channel, error) {
	ntype := domain.NotificationType(req.Type)
	if !ntype.Valid() {
		return nil, nil, fmt.Errorf("unknown notification type %q: %w", req.Type, domain.ErrBadRequest)
	}

	prefs, err := s.prefs.Get(ctx, req.RecipientID)
	if err != nil {
		return nil, nil, fmt.Errorf("load preferences: %w", err)
	}
	if !prefs.TypeEnabled(ntype) {
		slog.Debug("notification suppressed by type preference",
			"recipient_id", req.RecipientID, "type", req.Type)
		return nil, nil, nil
	}

	n := &domain.Notification{
		NotificationID: id.New(),
		RecipientID:    req.RecipientID,
		ActorID:        req.ActorID,
		Type:           ntype,
		Content:        req.Content,
		RelatedID:      req.RelatedID,
		IsRead:         false,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.Put(ctx, n); err != nil {
		return nil, nil, fmt.Errorf("store notification: %w", err)
	}
	if err := s.counter.Add(ctx, req.RecipientID, 1); err != nil {
		return nil, nil, fmt.Errorf("increment unread counter: %w", err)
	}
	channels := []Channel{ChannelInApp}

	if prefs.EmailNotifications {
		if s.sendEmail(ctx, n) {
			channels = append(channels, ChannelEmail)
		}
	}
	if prefs.PushNotifications {
		if s.sendPush(ctx, n) {
			channels = append(channels, ChannelPush)
		}
	}
	if prefs.DigestNotifications {
		freq := prefs.DigestFrequency
		if !freq.Valid() {
			freq = domain.DigestDaily
		}
		if err := s.digests.Append(ctx, req.RecipientID, freq, n); err != nil {
			slog.Warn("digest append failed", "recipient_id", req.RecipientID, "err", err)
		} else {
			channels = append(channels, ChannelDigest)
		}
	}

	return n, channels, nil
}

func (s *service) sendEmail(ctx context.Context, n *domain.Notification) bool {
	addr, err := s.contacts.EmailAddress(ctx, n.RecipientID)
	if err != nil || addr == "" {
		slog.Debug("no email address for recipient", "recipient_id", n.RecipientID)
		return false
	}
	if err := s.mailer.SendEmail(addr, "New notification", n.Content); err != nil {
		slog.Warn("email delivery failed", "recipient_id", n.RecipientID, "err", err)
		return false
	}
	return true
}

func (s *service) sendPush(ctx context.Context, n *domain.Notification) bool {
	if s.push == nil {
		return false
	}
	target, err := s.contacts.PushTarget(ctx, n.RecipientID)
	if err != nil || target == "" {
		slog.Debug("no push target for recipient", "recipient_id", n.RecipientID)
		return false
	}
	if err := s.push.SendPush(ctx, target, n.Content); err != nil {
		slog.Warn("push delivery failed", "recipient_id", n.RecipientID, "err", err)
		return false
	}
	return true
}
