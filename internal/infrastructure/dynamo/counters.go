package dynamo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UnreadCountRepo maintains the per-recipient unread counter cell. Every
// writer that touches the unread set funnels through Add, so the counter
// stays an atomic side effect of create/markRead/delete rather than a scan.
type UnreadCountRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUnreadCountRepo(client *dynamodb.Client, tableName string) *UnreadCountRepo {
	return &UnreadCountRepo{client: client, tableName: tableName}
}

// Add applies an atomic delta to the recipient's unread counter. Dynamo's
// ADD action creates the item with the delta as initial value when absent.
func (r *UnreadCountRepo) Add(ctx context.Context, recipientID string, delta int) error {
	if delta == 0 {
		return nil
	}
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey("recipient_id", recipientID),
		UpdateExpression: aws.String("ADD unread :d"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d": &types.AttributeValueMemberN{Value: strconv.Itoa(delta)},
		},
	})
	if err != nil {
		return fmt.Errorf("update unread counter: %w", err)
	}
	return nil
}

// Get returns the recipient's unread count with a single GetItem. A missing
// item means zero. A negative stored value means a decrement raced past
// zero somewhere; it is clamped and logged so reconciliation can find it.
func (r *UnreadCountRepo) Get(ctx context.Context, recipientID string) (int, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("recipient_id", recipientID),
	})
	if err != nil {
		return 0, err
	}
	if out.Item == nil {
		return 0, nil
	}
	av, ok := out.Item["unread"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, nil
	}
	count, err := strconv.Atoi(av.Value)
	if err != nil {
		return 0, fmt.Errorf("parse unread counter: %w", err)
	}
	if count < 0 {
		slog.Error("unread counter went negative", "recipient_id", recipientID, "count", count)
		return 0, nil
	}
	return count, nil
}

// Set overwrites the counter. Used by reconciliation when a recomputed
// value disagrees with the cell.
func (r *UnreadCountRepo) Set(ctx context.Context, recipientID string, count int) error {
	_, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item: map[string]types.AttributeValue{
			"recipient_id": &types.AttributeValueMemberS{Value: recipientID},
			"unread":       &types.AttributeValueMemberN{Value: strconv.Itoa(count)},
		},
	})
	return err
}
