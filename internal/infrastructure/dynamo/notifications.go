package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-notify-api/internal/domain"
)

// NotificationRepo provides typed DynamoDB operations for the notifications table.
type NotificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewNotificationRepo(client *dynamodb.Client, tableName string) *NotificationRepo {
	return &NotificationRepo{client: client, tableName: tableName}
}

func (r *NotificationRepo) Put(ctx context.Context, n *domain.Notification) error {
	item, err := attributevalue.MarshalMap(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	// created_at is a GSI sort key compared as a string; store it at fixed
	// width so lexicographic range conditions are chronological.
	item["created_at"] = &types.AttributeValueMemberS{Value: timeKey(n.CreatedAt)}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *NotificationRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("notification_id", notificationID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Item, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ListByRecipient reads the recipient's full notification slice through the
// recipient_id-created_at GSI, newest first, following Dynamo's internal
// pagination until the slice is complete. Per-recipient volumes are small;
// callers sort, filter and paginate in memory.
func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	var notifications []domain.Notification
	var startKey map[string]types.AttributeValue

	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("recipient_id-created_at-index"),
			KeyConditionExpression: aws.String("recipient_id = :rid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":rid": &types.AttributeValueMemberS{Value: recipientID},
			},
			ScanIndexForward:  aws.Bool(false),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Notification
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		notifications = append(notifications, page...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return notifications, nil
}

// MarkRead flips is_read under an is_read = false condition. The returned
// bool reports whether this call performed the flip; a notification that was
// already read returns (false, nil). Decrement exactly once per flip is the
// caller's contract.
func (r *NotificationRepo) MarkRead(ctx context.Context, notificationID string) (bool, error) {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("notification_id", notificationID),
		UpdateExpression:    aws.String("SET is_read = :t"),
		ConditionExpression: aws.String("attribute_exists(notification_id) AND is_read = :f"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberBOOL{Value: true},
			":f": &types.AttributeValueMemberBOOL{Value: false},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkAllRead flips every unread notification created at or before cutoff
// and returns how many were actually flipped. Each flip is an individual
// conditional write, so a concurrent MarkRead on the same item can never be
// counted twice, and anything created after the cutoff is untouched.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, recipientID string, cutoff time.Time) (int, error) {
	unread, err := r.listUnread(ctx, recipientID, cutoff)
	if err != nil {
		return 0, err
	}
	flipped := 0
	for _, n := range unread {
		ok, err := r.MarkRead(ctx, n.NotificationID)
		if err != nil {
			return flipped, err
		}
		if ok {
			flipped++
		}
	}
	return flipped, nil
}

func (r *NotificationRepo) listUnread(ctx context.Context, recipientID string, cutoff time.Time) ([]domain.Notification, error) {
	var unread []domain.Notification
	var startKey map[string]types.AttributeValue

	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("recipient_id-created_at-index"),
			KeyConditionExpression: aws.String("recipient_id = :rid AND created_at <= :cutoff"),
			FilterExpression:       aws.String("is_read = :f"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":rid":    &types.AttributeValueMemberS{Value: recipientID},
				":cutoff": &types.AttributeValueMemberS{Value: timeKey(cutoff)},
				":f":      &types.AttributeValueMemberBOOL{Value: false},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.Notification
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		unread = append(unread, page...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return unread, nil
}

// Delete hard-deletes a notification and reports whether the deleted item
// was still unread, so the caller can fix up the unread counter.
func (r *NotificationRepo) Delete(ctx context.Context, notificationID string) (wasUnread bool, err error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("notification_id", notificationID),
		ConditionExpression: aws.String("attribute_exists(notification_id)"),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return false, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
		}
		return false, err
	}
	var n domain.Notification
	if err := attributevalue.UnmarshalMap(out.Attributes, &n); err != nil {
		return false, err
	}
	return !n.IsRead, nil
}
