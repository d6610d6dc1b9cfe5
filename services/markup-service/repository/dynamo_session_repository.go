package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/yashrajoria/markup-backend/services/markup-service/models"
)

// DynamoAPI is the subset of the DynamoDB client used for sessions.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Table layout shared with the table bootstrap.
const (
	DynamoHashKey      = "session_id"
	DynamoTTLAttribute = "expires_at"
)

// sessionItem is the DynamoDB row. expires_at is the table's TTL attribute.
type sessionItem struct {
	SessionID        string `dynamodbav:"session_id"`
	SearchProgress   int    `dynamodbav:"search_progress"`
	MatchingProgress int    `dynamodbav:"matching_progress"`
	CreatedAt        string `dynamodbav:"created_at"`
	UpdatedAt        string `dynamodbav:"updated_at"`
	ExpiresAt        int64  `dynamodbav:"expires_at"`
}

// DynamoSessionRepository stores sessions in a DynamoDB table keyed by session_id.
type DynamoSessionRepository struct {
	client DynamoAPI
	table  string
	ttl    time.Duration
	now    func() time.Time
}

func NewDynamoSessionRepository(client DynamoAPI, table string, ttl time.Duration) *DynamoSessionRepository {
	return &DynamoSessionRepository{client: client, table: table, ttl: ttl, now: time.Now}
}

func (r *DynamoSessionRepository) Create(ctx context.Context) (*models.Session, error) {
	now := r.now().UTC()
	item := sessionItem{
		SessionID: uuid.NewString(),
		CreatedAt: now.Format(time.RFC3339Nano),
		UpdatedAt: now.Format(time.RFC3339Nano),
		ExpiresAt: now.Add(r.ttl).Unix(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(session_id)"),
	}); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return item.toSession(), nil
}

func (r *DynamoSessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            r.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrSessionNotFound
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	// TTL deletion is lazy, so expired rows can still be returned.
	if item.ExpiresAt > 0 && r.now().Unix() > item.ExpiresAt {
		return nil, ErrSessionNotFound
	}
	return item.toSession(), nil
}

func (r *DynamoSessionRepository) Advance(ctx context.Context, id string, task models.TaskType, expected, limit int) (int, error) {
	attr, err := dynamoProgressAttr(task)
	if err != nil {
		return 0, err
	}
	now := r.now().UTC()

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 r.key(id),
		UpdateExpression:    aws.String("SET #p = #p + :one, updated_at = :now, expires_at = :exp"),
		ConditionExpression: aws.String("attribute_exists(session_id) AND expires_at > :nowUnix AND #p = :expected AND #p < :limit"),
		ExpressionAttributeNames: map[string]string{
			"#p": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":      &types.AttributeValueMemberN{Value: "1"},
			":now":      &types.AttributeValueMemberS{Value: now.Format(time.RFC3339Nano)},
			":exp":      &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(r.ttl).Unix(), 10)},
			":nowUnix":  &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
			":expected": &types.AttributeValueMemberN{Value: strconv.Itoa(expected)},
			":limit":    &types.AttributeValueMemberN{Value: strconv.Itoa(limit)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return r.classifyRejection(ctx, id, task, expected)
		}
		return 0, fmt.Errorf("failed to advance session: %w", err)
	}

	v, ok := out.Attributes[attr].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("advance returned no %s attribute", attr)
	}
	return strconv.Atoi(v.Value)
}

func (r *DynamoSessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table),
		Key:       r.key(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// classifyRejection explains why a conditional update failed.
func (r *DynamoSessionRepository) classifyRejection(ctx context.Context, id string, task models.TaskType, expected int) (int, error) {
	s, err := r.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	current := s.Progress(task)
	if current != expected {
		return current, ErrStaleProgress
	}
	return current, ErrProgressLimit
}

func (r *DynamoSessionRepository) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		DynamoHashKey: &types.AttributeValueMemberS{Value: id},
	}
}

func dynamoProgressAttr(task models.TaskType) (string, error) {
	switch task {
	case models.TaskSearch:
		return "search_progress", nil
	case models.TaskMatching:
		return "matching_progress", nil
	}
	return "", fmt.Errorf("unknown task type %q", task)
}

func (i sessionItem) toSession() *models.Session {
	s := &models.Session{
		ID:               i.SessionID,
		SearchProgress:   i.SearchProgress,
		MatchingProgress: i.MatchingProgress,
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, i.CreatedAt)
	s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, i.UpdatedAt)
	return s
}
