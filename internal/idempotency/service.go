package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"

	recordTTL = 24 * time.Hour
	// a pending record older than the Lambda timeout belongs to a dead invocation
	pendingTimeout = 5 * time.Minute
)

var (
	ErrInProgress  = errors.New("request is already being processed")
	ErrKeyConflict = errors.New("idempotency key reused with a different request")
)

type dynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type Record struct {
	Key         string    `dynamodbav:"key"`
	RequestHash string    `dynamodbav:"request_hash"`
	Status      string    `dynamodbav:"status"`
	StatusCode  int       `dynamodbav:"status_code"`
	Response    string    `dynamodbav:"response"`
	CreatedAt   time.Time `dynamodbav:"created_at"`
	ExpiresAt   time.Time `dynamodbav:"expires_at"`
	TTL         int64     `dynamodbav:"ttl"`
}

// Response is the replayable part of a handler result.
type Response struct {
	StatusCode int
	Body       string
}

type Service struct {
	client    dynamoAPI
	tableName string
	log       *slog.Logger
	now       func() time.Time
}

func NewService(ctx context.Context, tableName string, log *slog.Logger) (*Service, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}
	return &Service{
		client:    dynamodb.NewFromConfig(cfg),
		tableName: tableName,
		log:       log,
		now:       time.Now,
	}, nil
}

func hash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Key derives the record key from the caller's Idempotency-Key.
func Key(endpoint, clientKey string) string {
	return hash(endpoint, clientKey)
}

// Process runs fn at most once per key. A completed record replays its
// stored response. Only 2xx results are recorded; anything else is
// discarded so the caller may retry.
func (s *Service) Process(ctx context.Context, key, body string, fn func() (Response, error)) (Response, error) {
	requestHash := hash(body)

	existing, err := s.get(ctx, key)
	if err != nil {
		return Response{}, err
	}
	if existing != nil {
		if existing.RequestHash != requestHash {
			return Response{}, ErrKeyConflict
		}
		if existing.Status == StatusCompleted {
			return Response{StatusCode: existing.StatusCode, Body: existing.Response}, nil
		}
		if s.now().Sub(existing.CreatedAt) < pendingTimeout {
			return Response{}, ErrInProgress
		}
		if err := s.delete(ctx, key); err != nil {
			return Response{}, err
		}
	}

	now := s.now()
	record := &Record{
		Key:         key,
		RequestHash: requestHash,
		Status:      StatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(recordTTL),
		TTL:         now.Add(recordTTL).Unix(),
	}
	if err := s.put(ctx, record); err != nil {
		return Response{}, err
	}

	resp, err := fn()
	if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		if derr := s.delete(ctx, key); derr != nil {
			return resp, errors.Join(err, derr)
		}
		return resp, err
	}

	if err := s.complete(ctx, key, resp); err != nil {
		// the result stands; only the replay copy is lost
		s.log.Warn("idempotency record left pending", slog.String("error", err.Error()))
	}
	return resp, nil
}

func (s *Service) keyAttr(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"key": &types.AttributeValueMemberS{Value: key},
	}
}

func (s *Service) get(ctx context.Context, key string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.keyAttr(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %v", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var record Record
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency record: %v", err)
	}
	if s.now().After(record.ExpiresAt) {
		return nil, s.delete(ctx, key)
	}
	return &record, nil
}

func (s *Service) put(ctx context.Context, record *Record) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency record: %v", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(#key)"),
		ExpressionAttributeNames: map[string]string{
			"#key": "key",
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// lost the race to a concurrent duplicate
			return ErrInProgress
		}
		return fmt.Errorf("failed to store idempotency record: %v", err)
	}
	return nil
}

func (s *Service) complete(ctx context.Context, key string, resp Response) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              s.keyAttr(key),
		UpdateExpression: aws.String("SET #response = :response, #status = :status, #status_code = :status_code"),
		ExpressionAttributeNames: map[string]string{
			"#response":    "response",
			"#status":      "status",
			"#status_code": "status_code",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":response":    &types.AttributeValueMemberS{Value: resp.Body},
			":status":      &types.AttributeValueMemberS{Value: StatusCompleted},
			":status_code": &types.AttributeValueMemberN{Value: fmt.Sprint(resp.StatusCode)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update idempotency record: %v", err)
	}
	return nil
}

func (s *Service) delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.keyAttr(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete idempotency record: %v", err)
	}
	return nil
}
