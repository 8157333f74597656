package notification

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/go-notify-api/internal/domain"
)

// groupWindow is the maximum gap between adjacent notifications for them to
// collapse into one presentational group.
const groupWindow = 15 * time.Minute

const (
	retryAttempts = 3
	retryBaseWait = 100 * time.Millisecond
)

type Service interface {
	List(ctx context.Context, recipientID string, opts domain.ListOptions) (*domain.ListResult, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, callerID, notificationID string) error
	MarkAllRead(ctx context.Context, callerID string) error
	Delete(ctx context.Context, callerID, notificationID string) error
	Reconcile(ctx context.Context, recipientID string) (int, error)
}

type notificationStore interface {
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, recipientID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, notificationID string) (bool, error)
	MarkAllRead(ctx context.Context, recipientID string, cutoff time.Time) (int, error)
	Delete(ctx context.Context, notificationID string) (bool, error)
}

type counterStore interface {
	Add(ctx context.Context, recipientID string, delta int) error
	Get(ctx context.Context, recipientID string) (int, error)
	Set(ctx context.Context, recipientID string, count int) error
}

type service struct {
	repo    notificationStore
	counter counterStore
}

func NewService(repo notificationStore, counter counterStore) Service {
	return &service{repo: repo, counter: counter}
}

// List serves paginated, optionally filtered and grouped notification pages.
// The order is created_at descending with id descending tie-breaks, so the
// page boundaries are stable while new notifications arrive.
func (s *service) List(ctx context.Context, recipientID string, opts domain.ListOptions) (*domain.ListResult, error) {
	var all []domain.Notification
	err := s.withRetry(ctx, func() error {
		var err error
		all, err = s.repo.ListByRecipient(ctx, recipientID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].NotificationID > all[j].NotificationID
	})

	// Filter before paginating so page sizes stay consistent.
	if opts.UnreadOnly {
		filtered := all[:0]
		for _, n := range all {
			if !n.IsRead {
				filtered = append(filtered, n)
			}
		}
		all = filtered
	}

	total := len(all)
	totalPages := 0
	if total > 0 {
		totalPages = (total + opts.PageSize - 1) / opts.PageSize
	}

	result := &domain.ListResult{
		Total:      total,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalPages: totalPages,
	}

	start := (opts.Page - 1) * opts.PageSize
	if start >= total {
		// Past the last page: empty data, not an error.
		if opts.Grouped {
			result.Groups = []domain.NotificationGroup{}
		} else {
			result.Data = []domain.Notification{}
		}
		return result, nil
	}
	end := start + opts.PageSize
	if end > total {
		end = total
	}
	page := all[start:end]

	if opts.Grouped {
		result.Groups = groupNotifications(page, groupWindow)
	} else {
		result.Data = page
	}
	return result, nil
}

// UnreadCount is the cheap poll target: a single counter-cell read, never
// the listing path.
func (s *service) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := s.withRetry(ctx, func() error {
		var err error
		count, err = s.counter.Get(ctx, recipientID)
		return err
	})
	return count, err
}

// MarkRead marks one notification read. Idempotent: only the call that
// actually flips false->true decrements the counter, so concurrent calls
// both succeed and the counter moves exactly once.
func (s *service) MarkRead(ctx context.Context, callerID, notificationID string) error {
	n, err := s.getOwned(ctx, callerID, notificationID)
	if err != nil {
		return err
	}
	if n.IsRead {
		return nil
	}
	var flipped bool
	err = s.withRetry(ctx, func() error {
		var err error
		flipped, err = s.repo.MarkRead(ctx, notificationID)
		return err
	})
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if flipped {
		return s.decrement(ctx, callerID, 1)
	}
	return nil
}

// MarkAllRead flips every notification that was unread at a single cutoff
// taken now. A notification created while this runs lands after the cutoff
// and stays unread, and the counter is decremented by the number of actual
// flips rather than blindly reset, so the newcomer's increment survives.
// Flips that landed before a mid-sweep failure are durable and cannot be
// re-flipped on retry, so their decrement is applied even when the sweep
// errors.
func (s *service) MarkAllRead(ctx context.Context, callerID string) error {
	cutoff := time.Now().UTC()
	flipped, sweepErr := s.repo.MarkAllRead(ctx, callerID, cutoff)
	if flipped > 0 {
		if err := s.decrement(ctx, callerID, flipped); err != nil {
			return err
		}
	}
	if sweepErr != nil {
		return fmt.Errorf("mark all read: %w", sweepErr)
	}
	return nil
}

// Delete hard-deletes one notification, fixing the counter when the deleted
// item was still unread.
func (s *service) Delete(ctx context.Context, callerID, notificationID string) error {
	if _, err := s.getOwned(ctx, callerID, notificationID); err != nil {
		return err
	}
	var wasUnread bool
	err := s.withRetry(ctx, func() error {
		var err error
		wasUnread, err = s.repo.Delete(ctx, notificationID)
		return err
	})
	if err != nil {
		return err
	}
	if wasUnread {
		return s.decrement(ctx, callerID, 1)
	}
	return nil
}

// decrement subtracts already-committed read-state flips from the counter.
// The flips are durable by the time this runs, so the decrement is retried
// until it sticks; giving up would leave the counter permanently inflated.
func (s *service) decrement(ctx context.Context, recipientID string, n int) error {
	err := s.withRetry(ctx, func() error {
		return s.counter.Add(ctx, recipientID, -n)
	})
	if err != nil {
		return fmt.Errorf("decrement unread counter: %w", err)
	}
	return nil
}

// Reconcile recomputes the unread counter from the notification set and
// overwrites the cell. Self-healing safety net for counter drift; returns
// the recomputed count.
func (s *service) Reconcile(ctx context.Context, recipientID string) (int, error) {
	all, err := s.repo.ListByRecipient(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	unread := 0
	for _, n := range all {
		if !n.IsRead {
			unread++
		}
	}
	if err := s.counter.Set(ctx, recipientID, unread); err != nil {
		return 0, err
	}
	return unread, nil
}

// getOwned loads a notification and enforces that the caller owns it.
// Acting on another user's notification is forbidden, never a silent no-op,
// and never remapped to not-found.
func (s *service) getOwned(ctx context.Context, callerID, notificationID string) (*domain.Notification, error) {
	var n *domain.Notification
	err := s.withRetry(ctx, func() error {
		var err error
		n, err = s.repo.Get(ctx, notificationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if n.RecipientID != callerID {
		return nil, fmt.Errorf("notification %s not owned by caller: %w", notificationID, domain.ErrForbidden)
	}
	return n, nil
}

// withRetry runs fn up to retryAttempts times with jittered backoff.
// Domain sentinels are terminal; only transient store failures retry.
func (s *service) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrBadRequest) {
			return err
		}
		if attempt == retryAttempts-1 {
			break
		}
		wait := retryBaseWait<<attempt + time.Duration(rand.Int63n(int64(retryBaseWait)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
}
