// Package ddbfake is an in-memory stand-in for the DynamoDB operations used by the store.
//
// It understands the expression grammar the SDK expression builder emits for the store:
// parenthesized conditions joined by AND made of attribute_exists, attribute_not_exists and
// binary comparisons, and SET or ADD update expressions. Transactions are all-or-nothing and report per-item cancellation reasons.
//
// Items live in one table keyed by the string attributes "pk" and "sk". Scans walk keys in
// sorted order and only return a continuation key when unread items remain, so an exhausted
// scan ends without the trailing empty page real DynamoDB may produce.
package ddbfake

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	attrPK = "pk"
	attrSK = "sk"
)

// Client is a goroutine-safe in-memory table.
type Client struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	// MaxPageSize caps the items evaluated per Query or Scan call when > 0,
	// mimicking the store's 1 MB page cut-off.
	MaxPageSize int

	// Failure, when set, is returned by every call without touching the table.
	Failure error

	// ScanCalls records the input of every Scan call.
	ScanCalls []*dynamodb.ScanInput

	// QueryCalls records the input of every Query call.
	QueryCalls []*dynamodb.QueryInput

	// TransactCalls records the input of every TransactWriteItems call.
	TransactCalls []*dynamodb.TransactWriteItemsInput
}

// New creates an empty table.
func New() *Client {
	return &Client{items: make(map[string]map[string]types.AttributeValue)}
}

// Seed writes items directly, bypassing conditions.
func (c *Client) Seed(items ...map[string]types.AttributeValue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		c.items[itemKey(item)] = copyItem(item)
	}
}

// Item returns a copy of the stored item at pk/sk, or nil.
func (c *Client) Item(pk, sk string) map[string]types.AttributeValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[pk+"\x00"+sk]
	if !ok {
		return nil
	}
	return copyItem(item)
}

// Len returns the number of stored items.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// GetItem implements store.Client.
func (c *Client) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Failure != nil {
		return nil, c.Failure
	}

	item, ok := c.items[itemKey(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: copyItem(item)}, nil
}

// UpdateItem implements store.Client.
func (c *Client) UpdateItem(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Failure != nil {
		return nil, c.Failure
	}

	k := itemKey(params.Key)
	current := c.items[k]
	ok, err := evalCondition(aws.ToString(params.ConditionExpression), current, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}

	updated, err := applyUpdate(aws.ToString(params.UpdateExpression), current, params.Key, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	c.items[k] = updated
	return &dynamodb.UpdateItemOutput{}, nil
}

// Query implements store.Client for key conditions of the form "#pk = :value".
func (c *Client) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.QueryCalls = append(c.QueryCalls, params)
	if c.Failure != nil {
		return nil, c.Failure
	}

	var partition []map[string]types.AttributeValue
	for _, item := range c.items {
		ok, err := evalCondition(aws.ToString(params.KeyConditionExpression), item, params.ExpressionAttributeNames, params.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
		if ok {
			partition = append(partition, item)
		}
	}
	sortItems(partition)
	if params.ScanIndexForward != nil && !*params.ScanIndexForward {
		for i, j := 0, len(partition)-1; i < j; i, j = i+1, j-1 {
			partition[i], partition[j] = partition[j], partition[i]
		}
	}

	items, last, err := c.page(partition, params.ExclusiveStartKey, params.Limit, aws.ToString(params.FilterExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	return &dynamodb.QueryOutput{Items: items, Count: int32(len(items)), LastEvaluatedKey: last}, nil
}

// Scan implements store.Client.
func (c *Client) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ScanCalls = append(c.ScanCalls, params)
	if c.Failure != nil {
		return nil, c.Failure
	}

	all := make([]map[string]types.AttributeValue, 0, len(c.items))
	for _, item := range c.items {
		all = append(all, item)
	}
	sortItems(all)

	items, last, err := c.page(all, params.ExclusiveStartKey, params.Limit, aws.ToString(params.FilterExpression), params.ExpressionAttributeNames, params.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	return &dynamodb.ScanOutput{Items: items, Count: int32(len(items)), LastEvaluatedKey: last}, nil
}

// page evaluates up to limit items after startKey, filters them, and returns the
// continuation key when unread items remain.
func (c *Client) page(ordered []map[string]types.AttributeValue, startKey map[string]types.AttributeValue, limit *int32, filter string, names map[string]string, values map[string]types.AttributeValue) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
	start := 0
	if len(startKey) > 0 {
		start = len(ordered)
		sk := itemKey(startKey)
		found := false
		for i, item := range ordered {
			if itemKey(item) == sk {
				start, found = i+1, true
				break
			}
		}
		// The start item may have been deleted since the page was read.
		if !found {
			for i, item := range ordered {
				if itemKey(item) > sk {
					start = i
					break
				}
			}
		}
	}

	budget := len(ordered) - start
	if limit != nil && int(*limit) < budget {
		budget = int(*limit)
	}
	if c.MaxPageSize > 0 && c.MaxPageSize < budget {
		budget = c.MaxPageSize
	}

	var items []map[string]types.AttributeValue
	end := start + budget
	for _, item := range ordered[start:end] {
		ok, err := evalCondition(filter, item, names, values)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			items = append(items, copyItem(item))
		}
	}

	var last map[string]types.AttributeValue
	if end < len(ordered) && end > 0 {
		evaluated := ordered[end-1]
		last = map[string]types.AttributeValue{attrPK: evaluated[attrPK], attrSK: evaluated[attrSK]}
	}
	return items, last, nil
}

// TransactWriteItems implements store.Client with all-or-nothing semantics.
func (c *Client) TransactWriteItems(_ context.Context, params *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TransactCalls = append(c.TransactCalls, params)
	if c.Failure != nil {
		return nil, c.Failure
	}
	if len(params.TransactItems) == 0 || len(params.TransactItems) > 100 {
		return nil, errors.New("ddbfake: transaction must contain between 1 and 100 items")
	}

	type write struct {
		key   string
		apply func() (map[string]types.AttributeValue, error)
	}

	touched := make(map[string]bool)
	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	writes := make([]write, 0, len(params.TransactItems))

	for i, ti := range params.TransactItems {
		var (
			k      string
			cond   string
			names  map[string]string
			values map[string]types.AttributeValue
			apply  func() (map[string]types.AttributeValue, error)
		)

		switch {
		case ti.Put != nil:
			p := ti.Put
			k, cond, names, values = itemKey(p.Item), aws.ToString(p.ConditionExpression), p.ExpressionAttributeNames, p.ExpressionAttributeValues
			item := p.Item
			apply = func() (map[string]types.AttributeValue, error) { return copyItem(item), nil }
		case ti.Update != nil:
			u := ti.Update
			k, cond, names, values = itemKey(u.Key), aws.ToString(u.ConditionExpression), u.ExpressionAttributeNames, u.ExpressionAttributeValues
			current, key, expr := c.items[k], u.Key, aws.ToString(u.UpdateExpression)
			apply = func() (map[string]types.AttributeValue, error) {
				return applyUpdate(expr, current, key, names, values)
			}
		case ti.Delete != nil:
			d := ti.Delete
			k, cond, names, values = itemKey(d.Key), aws.ToString(d.ConditionExpression), d.ExpressionAttributeNames, d.ExpressionAttributeValues
			apply = func() (map[string]types.AttributeValue, error) { return nil, nil }
		case ti.ConditionCheck != nil:
			cc := ti.ConditionCheck
			k, cond, names, values = itemKey(cc.Key), aws.ToString(cc.ConditionExpression), cc.ExpressionAttributeNames, cc.ExpressionAttributeValues
		default:
			return nil, fmt.Errorf("ddbfake: transaction item %d has no operation", i)
		}

		if touched[k] {
			return nil, errors.New("ddbfake: transaction cannot include multiple operations on one item")
		}
		touched[k] = true

		ok, err := evalCondition(cond, c.items[k], names, values)
		if err != nil {
			return nil, err
		}
		if ok {
			reasons[i] = types.CancellationReason{Code: aws.String("None")}
		} else {
			reasons[i] = types.CancellationReason{
				Code:    aws.String("ConditionalCheckFailed"),
				Message: aws.String("The conditional request failed"),
			}
			failed = true
		}
		if apply != nil {
			writes = append(writes, write{key: k, apply: apply})
		}
	}

	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled, please refer cancellation reasons for specific reasons"),
			CancellationReasons: reasons,
		}
	}

	results := make(map[string]map[string]types.AttributeValue, len(writes))
	for _, w := range writes {
		item, err := w.apply()
		if err != nil {
			return nil, err
		}
		results[w.key] = item
	}
	for k, item := range results {
		if item == nil {
			delete(c.items, k)
			continue
		}
		c.items[k] = item
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func itemKey(item map[string]types.AttributeValue) string {
	return stringAttr(item, attrPK) + "\x00" + stringAttr(item, attrSK)
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func sortItems(items []map[string]types.AttributeValue) {
	sort.Slice(items, func(i, j int) bool {
		return itemKey(items[i]) < itemKey(items[j])
	})
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	result := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		result[k] = v
	}
	return result
}
