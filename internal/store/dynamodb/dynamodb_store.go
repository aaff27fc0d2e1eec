// internal/store/dynamodb/dynamodb_store.go
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/avivl/seat-quest/internal/lockservice"
	"github.com/avivl/seat-quest/internal/observability"
	"github.com/avivl/seat-quest/internal/store"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// StoreName is the registered name of the DynamoDB store
const StoreName = "dynamodb"

func init() {
	lockservice.Register(StoreName, newStore)
}

func newStore(ctx context.Context, options lockservice.Config, logger *observability.SLogger) (store.SeatLockStore, error) {
	cfg, ok := options.(*DynamoDBConfig)
	if !ok && options != nil {
		return nil, &store.InvalidConfigurationError{Store: StoreName, Config: options}
	}
	return NewStore(ctx, cfg, logger)
}

// DynamoDBClientInterface covers the DynamoDB SDK calls the store makes
type DynamoDBClientInterface interface {
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Store implements store.SeatLockStore for DynamoDB.
//
// Each seat is one item keyed by (PK="SHOW#id", SK="SEAT#id"). A
// TransactWriteItems call with a per-seat condition expression gives
// the all-or-nothing multi-seat check-and-apply, and expiry is encoded
// in the conditions so stale items never block an acquisition.
type Store struct {
	client    DynamoDBClientInterface
	tableName string
	ttl       time.Duration
	logger    *observability.SLogger
	config    *DynamoDBConfig
}

func (s *Store) GetConfig() store.StoreConfig {
	return s.config
}

// NewStore creates a new DynamoDB seat-lock store
func NewStore(ctx context.Context, config *DynamoDBConfig, logger *observability.SLogger) (*Store, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	var clientOpts []func(*awsconfig.LoadOptions) error

	// Use custom endpoint if provided
	if len(config.Endpoints) > 0 {
		clientOpts = append(clientOpts, awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{URL: config.Endpoints[0]}, nil
				},
			),
		))
	}

	// Use static credentials if provided
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		clientOpts = append(clientOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	clientOpts = append(clientOpts, awsconfig.WithRegion(config.Region))

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, clientOpts...)
	if err != nil {
		logger.Errorf("Failed to load AWS config: %v", err)
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s := &Store{
		client:    dynamodb.NewFromConfig(awsConfig),
		tableName: config.Table,
		ttl:       config.GetLockTTL(),
		logger:    logger,
		config:    config,
	}

	if err := s.ensureTableExists(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// ensureTableExists checks if the DynamoDB table exists and creates it if it doesn't
func (s *Store) ensureTableExists(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})

	if err == nil {
		return nil
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("PK"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("SK"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("PK"),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String("SK"),
				KeyType:       types.KeyTypeRange,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})

	if err != nil {
		s.logger.Errorf("Failed to create table: %v", err)
		return fmt.Errorf("failed to create table: %w", err)
	}

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	err = waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	}, 5*time.Minute)

	if err != nil {
		s.logger.Errorf("Failed to wait for table creation: %v", err)
		return fmt.Errorf("failed to wait for table creation: %w", err)
	}

	return nil
}

func showKey(showID int64) string {
	return fmt.Sprintf("SHOW#%d", showID)
}

func seatKey(seatID int64) string {
	return fmt.Sprintf("SEAT#%d", seatID)
}

// parseSeatKey recovers the seat id from an "SEAT#id" sort key.
func parseSeatKey(sk string) (int64, error) {
	const prefix = "SEAT#"
	if len(sk) <= len(prefix) || sk[:len(prefix)] != prefix {
		return 0, fmt.Errorf("unexpected sort key %q", sk)
	}
	return strconv.ParseInt(sk[len(prefix):], 10, 64)
}

func itemKey(showID, seatID int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: showKey(showID)},
		"SK": &types.AttributeValueMemberS{Value: seatKey(seatID)},
	}
}

// seatAcquirable lets a transaction item through when the seat item is
// missing, when a previous lock has expired, or when the same owner
// refreshes a live lock. Booked items fail every branch.
const seatAcquirable = "attribute_not_exists(PK) OR (Booked = :false AND (ExpiresAt < :now OR OwnerID = :owner))"

// seatHeldByOwner guards release and confirmation: the item must be a
// live lock of the calling owner.
const seatHeldByOwner = "OwnerID = :owner AND Booked = :false AND ExpiresAt >= :now"

// isConditionFailure reports whether the error is a condition or
// transaction cancellation rather than an infrastructure failure.
func isConditionFailure(err error) bool {
	var txCanceled *types.TransactionCanceledException
	var condFailed *types.ConditionalCheckFailedException
	return errors.As(err, &txCanceled) || errors.As(err, &condFailed)
}

func (s *Store) TryLock(ctx context.Context, showID int64, seatIDs []int64, ownerID string, ttl time.Duration) bool {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		s.logger.Debugf("rejecting lock request for show %d: %v", showID, err)
		return false
	}
	if ttl < 0 {
		ttl = s.ttl
	}

	now := time.Now()
	expiresAt := now.Add(ttl).Unix()

	items := make([]types.TransactWriteItem, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(s.tableName),
				Item: map[string]types.AttributeValue{
					"PK":         &types.AttributeValueMemberS{Value: showKey(showID)},
					"SK":         &types.AttributeValueMemberS{Value: seatKey(seatID)},
					"OwnerID":    &types.AttributeValueMemberS{Value: ownerID},
					"AcquiredAt": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
					"ExpiresAt":  &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt, 10)},
					"Booked":     &types.AttributeValueMemberBOOL{Value: false},
				},
				ConditionExpression: aws.String(seatAcquirable),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":now":   &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
					":owner": &types.AttributeValueMemberS{Value: ownerID},
					":false": &types.AttributeValueMemberBOOL{Value: false},
				},
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		if !isConditionFailure(err) {
			s.logger.Errorf("Error acquiring seat locks: %v", err)
		}
		return false
	}
	return true
}

func (s *Store) Unlock(ctx context.Context, showID int64, seatIDs []int64, ownerID string) bool {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		s.logger.Debugf("rejecting unlock request for show %d: %v", showID, err)
		return false
	}

	now := strconv.FormatInt(time.Now().Unix(), 10)

	// Seats release independently, a foreign or expired lock on one
	// seat does not hold the caller's other seats.
	all := true
	for _, seatID := range seatIDs {
		_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName:           aws.String(s.tableName),
			Key:                 itemKey(showID, seatID),
			ConditionExpression: aws.String(seatHeldByOwner),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":owner": &types.AttributeValueMemberS{Value: ownerID},
				":false": &types.AttributeValueMemberBOOL{Value: false},
				":now":   &types.AttributeValueMemberN{Value: now},
			},
		})
		if err != nil {
			if !isConditionFailure(err) {
				s.logger.Errorf("Error releasing seat lock: %v", err)
			}
			all = false
		}
	}
	return all
}

func (s *Store) Confirm(ctx context.Context, showID int64, seatIDs []int64, ownerID string) bool {
	if err := store.ValidateSeatIDs(seatIDs); err != nil {
		s.logger.Debugf("rejecting confirm request for show %d: %v", showID, err)
		return false
	}

	now := strconv.FormatInt(time.Now().Unix(), 10)

	items := make([]types.TransactWriteItem, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:           aws.String(s.tableName),
				Key:                 itemKey(showID, seatID),
				UpdateExpression:    aws.String("SET Booked = :true REMOVE ExpiresAt"),
				ConditionExpression: aws.String(seatHeldByOwner),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":owner": &types.AttributeValueMemberS{Value: ownerID},
					":false": &types.AttributeValueMemberBOOL{Value: false},
					":true":  &types.AttributeValueMemberBOOL{Value: true},
					":now":   &types.AttributeValueMemberN{Value: now},
				},
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		if !isConditionFailure(err) {
			s.logger.Errorf("Error confirming seat booking: %v", err)
		}
		return false
	}
	return true
}

// queryShow reads every seat item of a show partition.
func (s *Store) queryShow(ctx context.Context, showID int64) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: showKey(showID)},
			},
			ExclusiveStartKey: startKey,
			ConsistentRead:    aws.Bool(true),
		})
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// itemBlocks reports whether a seat item currently makes the seat
// unavailable: booked, or holding an unexpired lock.
func itemBlocks(item map[string]types.AttributeValue, now int64) bool {
	if b, ok := item["Booked"].(*types.AttributeValueMemberBOOL); ok && b.Value {
		return true
	}
	exp, ok := item["ExpiresAt"].(*types.AttributeValueMemberN)
	if !ok {
		return false
	}
	expiresAt, err := strconv.ParseInt(exp.Value, 10, 64)
	if err != nil {
		return false
	}
	return expiresAt >= now
}

func (s *Store) AvailableSeats(ctx context.Context, showID int64, seatIDs []int64) map[int64]struct{} {
	available := make(map[int64]struct{}, len(seatIDs))
	if len(seatIDs) == 0 {
		return available
	}

	items, err := s.queryShow(ctx, showID)
	if err != nil {
		s.logger.Errorf("Error reading available seats: %v", err)
		return available
	}

	now := time.Now().Unix()
	blocked := make(map[int64]struct{}, len(items))
	for _, item := range items {
		sk, ok := item["SK"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		seatID, err := parseSeatKey(sk.Value)
		if err != nil {
			continue
		}
		if itemBlocks(item, now) {
			blocked[seatID] = struct{}{}
		}
	}

	for _, seatID := range seatIDs {
		if _, taken := blocked[seatID]; !taken {
			available[seatID] = struct{}{}
		}
	}
	return available
}

func (s *Store) LockedSeats(ctx context.Context, showID int64) map[int64]struct{} {
	locked := make(map[int64]struct{})

	items, err := s.queryShow(ctx, showID)
	if err != nil {
		s.logger.Errorf("Error reading locked seats: %v", err)
		return locked
	}

	now := time.Now().Unix()
	for _, item := range items {
		if b, ok := item["Booked"].(*types.AttributeValueMemberBOOL); ok && b.Value {
			continue
		}
		if !itemBlocks(item, now) {
			continue
		}
		sk, ok := item["SK"].(*types.AttributeValueMemberS)
		if !ok {
			continue
		}
		if seatID, err := parseSeatKey(sk.Value); err == nil {
			locked[seatID] = struct{}{}
		}
	}
	return locked
}

func (s *Store) GetLockInfo(ctx context.Context, showID, seatID int64) *store.SeatLock {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            itemKey(showID, seatID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		s.logger.Errorf("Error reading seat lock: %v", err)
		return nil
	}
	if out.Item == nil {
		return nil
	}
	if b, ok := out.Item["Booked"].(*types.AttributeValueMemberBOOL); ok && b.Value {
		return nil
	}

	owner, ok := out.Item["OwnerID"].(*types.AttributeValueMemberS)
	if !ok {
		return nil
	}
	exp, ok := out.Item["ExpiresAt"].(*types.AttributeValueMemberN)
	if !ok {
		return nil
	}
	expiresAt, err := strconv.ParseInt(exp.Value, 10, 64)
	if err != nil || expiresAt < time.Now().Unix() {
		return nil
	}

	var acquiredAt time.Time
	if acq, ok := out.Item["AcquiredAt"].(*types.AttributeValueMemberN); ok {
		if millis, err := strconv.ParseInt(acq.Value, 10, 64); err == nil {
			acquiredAt = time.UnixMilli(millis)
		}
	}

	return &store.SeatLock{
		OwnerID:    owner.Value,
		AcquiredAt: acquiredAt,
		ExpiresAt:  time.Unix(expiresAt, 0),
	}
}

// Close closes the DynamoDB client
func (s *Store) Close() {
	// DynamoDB client doesn't need explicit closing
}
