package store

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Client is the subset of the DynamoDB API the Store uses.
// *dynamodb.Client satisfies it.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

var _ Client = (*dynamodb.Client)(nil)

// Store provides single-table DynamoDB operations.
type Store struct {
	client   Client
	config   Config
	registry *Registry
}

// New creates a new Store instance.
func New(client Client, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// NewWithRegistry creates a new Store instance with a key registry.
func NewWithRegistry(client Client, config Config, registry *Registry) *Store {
	config.validate()
	return &Store{
		client:   client,
		config:   config,
		registry: registry,
	}
}

// SetRegistry sets the key registry.
func (s *Store) SetRegistry(registry *Registry) {
	s.registry = registry
}

// Registry returns the key registry, or nil if not set.
func (s *Store) Registry() *Registry {
	return s.registry
}

// TableName returns the configured table.
func (s *Store) TableName() string {
	return s.config.TableName
}

// EntityAttr returns the attribute holding the entity kind tag.
func (s *Store) EntityAttr() string {
	return s.config.EntityAttr
}

// Key derives the primary key of an entity through the registry.
func (s *Store) Key(entity Entity) (PK, error) {
	if s.registry == nil {
		return nil, ErrNoRegistry
	}
	return s.registry.Key(entity.EntityType(), entity.Identity())
}

// Get retrieves an item by key with a strongly consistent read, returning ErrNotFound if missing.
func (s *Store) Get(ctx context.Context, key PK) (map[string]types.AttributeValue, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.TableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(result.Item) == 0 {
		return nil, ErrNotFound
	}
	return result.Item, nil
}

// Query runs one page of a partition query.
func (s *Store) Query(ctx context.Context, input QueryInput) (*Page, error) {
	f, err := exprSpec{key: &input.KeyCondition, filter: input.Filter}.build()
	if err != nil {
		return nil, err
	}

	queryInput := &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.TableName),
		KeyConditionExpression:    f.keyCondition,
		FilterExpression:          f.filter,
		ExpressionAttributeNames:  f.names,
		ExpressionAttributeValues: f.values,
		ExclusiveStartKey:         input.StartKey,
	}
	if input.IndexName != "" {
		queryInput.IndexName = aws.String(input.IndexName)
	}
	if input.Limit > 0 {
		queryInput.Limit = aws.Int32(input.Limit)
	}
	if input.ScanIndexForward != nil {
		queryInput.ScanIndexForward = input.ScanIndexForward
	}

	result, err := s.client.Query(ctx, queryInput)
	if err != nil {
		return nil, err
	}
	return &Page{
		Items:   result.Items,
		LastKey: lastKey(result.LastEvaluatedKey),
	}, nil
}

// Scan runs a filtered full-table scan.
//
// With no limit a single page of store default size is returned. With a limit, each
// request asks for at most the remaining budget, and the budget shrinks by the number of
// items the page returned. Pages are read until the budget is spent or the store returns
// no continuation key. Filtered-out items still count towards DynamoDB's per-request limit,
// so a page may hold fewer items than requested; the loop then simply reads more pages.
func (s *Store) Scan(ctx context.Context, input ScanInput) (*Page, error) {
	f, err := exprSpec{filter: input.Filter}.build()
	if err != nil {
		return nil, err
	}

	page := &Page{}
	budget := input.Limit
	startKey := input.StartKey

	for {
		scanInput := &dynamodb.ScanInput{
			TableName:                 aws.String(s.config.TableName),
			FilterExpression:          f.filter,
			ExpressionAttributeNames:  f.names,
			ExpressionAttributeValues: f.values,
			ExclusiveStartKey:         startKey,
		}
		if budget > 0 {
			scanInput.Limit = aws.Int32(budget)
		}

		result, err := s.client.Scan(ctx, scanInput)
		if err != nil {
			return nil, err
		}

		page.Items = append(page.Items, result.Items...)
		page.LastKey = lastKey(result.LastEvaluatedKey)

		if page.LastKey == nil || input.Limit <= 0 {
			break
		}
		budget -= int32(len(result.Items))
		if budget <= 0 {
			break
		}
		startKey = page.LastKey
	}

	return page, nil
}

// Update applies a single-item update, guarded by conds joined with AND.
// A rejected condition returns ErrConditionFailed.
func (s *Store) Update(ctx context.Context, key PK, update expression.UpdateBuilder, conds ...expression.ConditionBuilder) error {
	f, err := exprSpec{update: &update, condition: conds}.build()
	if err != nil {
		return err
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.config.TableName),
		Key:                       key,
		UpdateExpression:          f.update,
		ConditionExpression:       f.condition,
		ExpressionAttributeNames:  f.names,
		ExpressionAttributeValues: f.values,
	})

	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrConditionFailed
	}
	return err
}

// Commit submits all writes of a transaction as one atomic TransactWriteItems call.
// Use ConditionFailedAt on the returned error to find which write was rejected.
func (s *Store) Commit(ctx context.Context, tx *Tx) error {
	if tx.err != nil {
		return tx.err
	}
	if tx.Len() == 0 {
		return nil
	}
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: tx.items,
	})
	return err
}

// ConditionFailedAt reports the index of the first transaction write whose condition
// failed. It returns false for nil errors and for cancellations with any other reason.
func ConditionFailedAt(err error) (int, bool) {
	var txErr *types.TransactionCanceledException
	if !errors.As(err, &txErr) {
		return -1, false
	}
	for i, reason := range txErr.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return i, true
		}
	}
	return -1, false
}

// lastKey normalizes an empty continuation key to nil.
func lastKey(key map[string]types.AttributeValue) PK {
	if len(key) == 0 {
		return nil
	}
	return key
}
