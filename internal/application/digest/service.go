package digest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-notify-api/internal/domain"
)

type Service interface {
	// Append captures a routed notification into the batch for the period
	// containing its creation time.
	Append(ctx context.Context, recipientID string, freq domain.DigestFrequency, n *domain.Notification) error
	// Flush delivers every closed, unflushed batch of the given frequency as
	// one aggregated email each, and returns how many batches were flushed.
	Flush(ctx context.Context, freq domain.DigestFrequency, now time.Time) (int, error)
}

type digestStore interface {
	Append(ctx context.Context, recipientID, periodKey string, freq domain.DigestFrequency, entry domain.DigestEntry) error
	ListPending(ctx context.Context, freq domain.DigestFrequency, currentPeriodKey string) ([]domain.DigestBatch, error)
	MarkFlushed(ctx context.Context, recipientID, periodKey string) (bool, error)
}

type mailSender interface {
	SendEmail(to, subject, body string) error
}

type contactDirectory interface {
	EmailAddress(ctx context.Context, userID string) (string, error)
}

type service struct {
	repo     digestStore
	mailer   mailSender
	contacts contactDirectory
}

func NewService(repo digestStore, mailer mailSender, contacts contactDirectory) Service {
	return &service{repo: repo, mailer: mailer, contacts: contacts}
}

func (s *service) Append(ctx context.Context, recipientID string, freq domain.DigestFrequency, n *domain.Notification) error {
	entry := domain.DigestEntry{
		NotificationID: n.NotificationID,
		Type:           n.Type,
		Content:        n.Content,
		CreatedAt:      n.CreatedAt,
	}
	periodKey := domain.PeriodKey(freq, n.CreatedAt)
	return s.repo.Append(ctx, recipientID, periodKey, freq, entry)
}

// Flush claims each closed batch before sending: the conditional MarkFlushed
// is the idempotency guard, so two scheduler runs racing over the same batch
// deliver it once. A batch whose email fails after being claimed is logged
// for operator attention rather than retried blind (retrying would risk the
// duplicate the claim exists to prevent).
func (s *service) Flush(ctx context.Context, freq domain.DigestFrequency, now time.Time) (int, error) {
	currentPeriod := domain.PeriodKey(freq, now)
	pending, err := s.repo.ListPending(ctx, freq, currentPeriod)
	if err != nil {
		return 0, fmt.Errorf("list pending digests: %w", err)
	}

	flushed := 0
	for _, batch := range pending {
		claimed, err := s.repo.MarkFlushed(ctx, batch.RecipientID, batch.PeriodKey)
		if err != nil {
			return flushed, fmt.Errorf("claim digest batch: %w", err)
		}
		if !claimed {
			continue
		}
		if err := s.send(ctx, &batch); err != nil {
			slog.Error("digest delivery failed after claim",
				"recipient_id", batch.RecipientID, "period_key", batch.PeriodKey, "err", err)
			continue
		}
		flushed++
	}
	return flushed, nil
}

func (s *service) send(ctx context.Context, batch *domain.DigestBatch) error {
	addr, err := s.contacts.EmailAddress(ctx, batch.RecipientID)
	if err != nil {
		return err
	}
	if addr == "" {
		slog.Debug("no email address for digest recipient", "recipient_id", batch.RecipientID)
		return nil
	}
	subject := fmt.Sprintf("Your %s notification digest (%d new)", batch.Frequency, len(batch.Entries))
	return s.mailer.SendEmail(addr, subject, renderDigest(batch))
}

func renderDigest(batch *domain.DigestBatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You have %d notifications from your %s digest:\n\n", len(batch.Entries), batch.Frequency)
	for _, e := range batch.Entries {
		fmt.Fprintf(&b, "- [%s] %s (%s)\n", e.Type, e.Content, e.CreatedAt.Format(time.RFC822))
	}
	return b.String()
}
