package notification

import (
	"time"

	"github.com/go-notify-api/internal/domain"
)

// groupNotifications folds a sorted (newest-first) slice into groups of
// consecutive notifications that share (type, related_id), where each
// adjacent pair is at most window apart. This is a pure read-time transform:
// every underlying record is preserved inside its group, so the union of
// ids across groups always equals the ungrouped slice.
func groupNotifications(items []domain.Notification, window time.Duration) []domain.NotificationGroup {
	groups := make([]domain.NotificationGroup, 0, len(items))
	for _, n := range items {
		if len(groups) > 0 {
			last := &groups[len(groups)-1]
			prev := last.Notifications[len(last.Notifications)-1]
			if sameSubject(prev, n) && prev.CreatedAt.Sub(n.CreatedAt) <= window {
				last.Notifications = append(last.Notifications, n)
				continue
			}
		}
		groups = append(groups, domain.NotificationGroup{
			Type:          n.Type,
			RelatedID:     n.RelatedID,
			Notifications: []domain.Notification{n},
		})
	}
	return groups
}

func sameSubject(a, b domain.Notification) bool {
	if a.Type != b.Type {
		return false
	}
	if a.RelatedID == nil || b.RelatedID == nil {
		return a.RelatedID == nil && b.RelatedID == nil
	}
	return *a.RelatedID == *b.RelatedID
}
