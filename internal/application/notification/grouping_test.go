package notification

import (
	"testing"
	"time"

	"github.com/go-notify-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupItem(id string, ntype domain.NotificationType, related *string, createdAt time.Time) domain.Notification {
	return domain.Notification{
		NotificationID: id,
		RecipientID:    "u1",
		Type:           ntype,
		RelatedID:      related,
		CreatedAt:      createdAt,
	}
}

func TestGroupNotifications_ConsecutiveSameSubjectCollapse(t *testing.T) {
	post := strptr("post-1")
	items := []domain.Notification{
		groupItem("c3", domain.TypeComment, post, t0.Add(10*time.Minute)),
		groupItem("c2", domain.TypeComment, post, t0.Add(5*time.Minute)),
		groupItem("c1", domain.TypeComment, post, t0),
	}

	groups := groupNotifications(items, groupWindow)
	require.Len(t, groups, 1)
	assert.Equal(t, domain.TypeComment, groups[0].Type)
	require.Len(t, groups[0].Notifications, 3)
	assert.Equal(t, "c3", groups[0].Notifications[0].NotificationID)
	assert.Equal(t, "c1", groups[0].Notifications[2].NotificationID)
}

func TestGroupNotifications_WindowGapSplits(t *testing.T) {
	post := strptr("post-1")
	items := []domain.Notification{
		groupItem("c2", domain.TypeComment, post, t0.Add(time.Hour)),
		groupItem("c1", domain.TypeComment, post, t0),
	}

	groups := groupNotifications(items, groupWindow)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Notifications, 1)
	assert.Len(t, groups[1].Notifications, 1)
}

func TestGroupNotifications_DifferentSubjectsNeverMerge(t *testing.T) {
	items := []domain.Notification{
		groupItem("a", domain.TypeComment, strptr("post-1"), t0.Add(2*time.Minute)),
		groupItem("b", domain.TypeComment, strptr("post-2"), t0.Add(time.Minute)),
		groupItem("c", domain.TypeLike, strptr("post-2"), t0),
	}

	groups := groupNotifications(items, groupWindow)
	assert.Len(t, groups, 3)
}

func TestGroupNotifications_NilRelatedOnlyGroupsWithNil(t *testing.T) {
	items := []domain.Notification{
		groupItem("s2", domain.TypeSystem, nil, t0.Add(2*time.Minute)),
		groupItem("s1", domain.TypeSystem, nil, t0.Add(time.Minute)),
		groupItem("s0", domain.TypeSystem, strptr("maint-1"), t0),
	}

	groups := groupNotifications(items, groupWindow)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0].Notifications, 2)
	assert.Nil(t, groups[0].RelatedID)
	assert.Len(t, groups[1].Notifications, 1)
}

func TestGroupNotifications_PreservesEveryRecord(t *testing.T) {
	post := strptr("post-1")
	items := []domain.Notification{
		groupItem("n5", domain.TypeFollow, nil, t0.Add(5*time.Minute)),
		groupItem("n4", domain.TypeComment, post, t0.Add(4*time.Minute)),
		groupItem("n3", domain.TypeComment, post, t0.Add(3*time.Minute)),
		groupItem("n2", domain.TypeLike, post, t0.Add(2*time.Minute)),
		groupItem("n1", domain.TypeComment, post, t0.Add(time.Minute)),
	}

	groups := groupNotifications(items, groupWindow)

	var flattened []string
	for _, g := range groups {
		for _, n := range g.Notifications {
			flattened = append(flattened, n.NotificationID)
		}
	}
	// Grouping is presentational only: same records, same order.
	assert.Equal(t, []string{"n5", "n4", "n3", "n2", "n1"}, flattened)
}

func TestGroupNotifications_Empty(t *testing.T) {
	assert.Empty(t, groupNotifications(nil, groupWindow))
}
