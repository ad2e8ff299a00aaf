package store

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Tx accumulates the writes of one atomic commit against the store's table.
// Each add method returns the write's index so cancellation reasons can be mapped back to it.
// Conditions given to one write are joined with AND. An expression that fails to build
// is reported by Commit.
type Tx struct {
	table string
	items []types.TransactWriteItem
	err   error
}

// NewTx starts an empty transaction.
func (s *Store) NewTx() *Tx {
	return &Tx{table: s.config.TableName}
}

// Put adds a put of a full item.
func (t *Tx) Put(item map[string]types.AttributeValue, conds ...expression.ConditionBuilder) int {
	f := t.build(exprSpec{condition: conds})
	t.items = append(t.items, types.TransactWriteItem{
		Put: &types.Put{
			TableName:                 aws.String(t.table),
			Item:                      item,
			ConditionExpression:       f.condition,
			ExpressionAttributeNames:  f.names,
			ExpressionAttributeValues: f.values,
		},
	})
	return len(t.items) - 1
}

// Update adds an update of the item at key.
func (t *Tx) Update(key PK, update expression.UpdateBuilder, conds ...expression.ConditionBuilder) int {
	f := t.build(exprSpec{update: &update, condition: conds})
	t.items = append(t.items, types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(t.table),
			Key:                       key,
			UpdateExpression:          f.update,
			ConditionExpression:       f.condition,
			ExpressionAttributeNames:  f.names,
			ExpressionAttributeValues: f.values,
		},
	})
	return len(t.items) - 1
}

// Delete adds a delete of the item at key.
func (t *Tx) Delete(key PK, conds ...expression.ConditionBuilder) int {
	f := t.build(exprSpec{condition: conds})
	t.items = append(t.items, types.TransactWriteItem{
		Delete: &types.Delete{
			TableName:                 aws.String(t.table),
			Key:                       key,
			ConditionExpression:       f.condition,
			ExpressionAttributeNames:  f.names,
			ExpressionAttributeValues: f.values,
		},
	})
	return len(t.items) - 1
}

// Len returns the number of writes in the transaction.
func (t *Tx) Len() int {
	return len(t.items)
}

// Items returns the SDK write items in insertion order.
func (t *Tx) Items() []types.TransactWriteItem {
	return t.items
}

// Err returns the first expression build error, if any.
func (t *Tx) Err() error {
	return t.err
}

func (t *Tx) build(spec exprSpec) exprFields {
	f, err := spec.build()
	if err != nil && t.err == nil {
		t.err = err
	}
	return f
}
