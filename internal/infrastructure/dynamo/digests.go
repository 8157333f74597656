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

// DigestRepo stores digest batches keyed (recipient_id, period_key).
// Appends are atomic list appends; the flush flag is flipped under a
// condition so a batch can be delivered at most once.
type DigestRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDigestRepo(client *dynamodb.Client, tableName string) *DigestRepo {
	return &DigestRepo{client: client, tableName: tableName}
}

// Append adds one entry to the batch for (recipientID, periodKey), creating
// the batch item on first write.
func (r *DigestRepo) Append(ctx context.Context, recipientID, periodKey string, freq domain.DigestFrequency, entry domain.DigestEntry) error {
	entryAV, err := attributevalue.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal digest entry: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("recipient_id", recipientID, "period_key", periodKey),
		UpdateExpression: aws.String(
			"SET entries = list_append(if_not_exists(entries, :empty), :e), " +
				"frequency = :freq, flushed = if_not_exists(flushed, :zero), " +
				"created_at = if_not_exists(created_at, :now), updated_at = :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e":     &types.AttributeValueMemberL{Value: []types.AttributeValue{entryAV}},
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":freq":  &types.AttributeValueMemberS{Value: string(freq)},
			":zero":  &types.AttributeValueMemberN{Value: "0"},
			":now":   &types.AttributeValueMemberS{Value: now},
		},
	})
	if err != nil {
		return fmt.Errorf("append digest entry: %w", err)
	}
	return nil
}

// ListPending returns unflushed batches of the given frequency whose period
// key sorts strictly before currentPeriodKey, i.e. batches whose period has
// closed. Uses the flushed-period_key GSI so flushed batches are never read.
func (r *DigestRepo) ListPending(ctx context.Context, freq domain.DigestFrequency, currentPeriodKey string) ([]domain.DigestBatch, error) {
	var batches []domain.DigestBatch
	var startKey map[string]types.AttributeValue

	for {
		out, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(r.tableName),
			IndexName:              aws.String("flushed-period_key-index"),
			KeyConditionExpression: aws.String("flushed = :zero AND period_key < :current"),
			FilterExpression:       aws.String("frequency = :freq"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":zero":    &types.AttributeValueMemberN{Value: "0"},
				":current": &types.AttributeValueMemberS{Value: currentPeriodKey},
				":freq":    &types.AttributeValueMemberS{Value: string(freq)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}
		var page []domain.DigestBatch
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		batches = append(batches, page...)
		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return batches, nil
}

// MarkFlushed flips the batch's flushed flag under a flushed = 0 condition.
// Returns false when another flush already claimed the batch, which makes
// scheduler retries no-ops.
func (r *DigestRepo) MarkFlushed(ctx context.Context, recipientID, periodKey string) (bool, error) {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("recipient_id", recipientID, "period_key", periodKey),
		UpdateExpression:    aws.String("SET flushed = :one, updated_at = :now"),
		ConditionExpression: aws.String("flushed = :zero"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":  &types.AttributeValueMemberN{Value: "1"},
			":zero": &types.AttributeValueMemberN{Value: "0"},
			":now":  &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
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
