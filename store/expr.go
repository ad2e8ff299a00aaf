package store

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// String wraps a string attribute value.
func String(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

// Number wraps an integer attribute value.
func Number(v int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

// Bool wraps a boolean attribute value.
func Bool(v bool) types.AttributeValue {
	return &types.AttributeValueMemberBOOL{Value: v}
}

// where joins conditions with AND. It reports false when there are none.
func where(conds []expression.ConditionBuilder) (expression.ConditionBuilder, bool) {
	switch len(conds) {
	case 0:
		return expression.ConditionBuilder{}, false
	case 1:
		return conds[0], true
	default:
		return expression.And(conds[0], conds[1], conds[2:]...), true
	}
}

// exprSpec collects the parts of one request's expressions. All parts are built
// together so their placeholders share one namespace.
type exprSpec struct {
	key       *expression.KeyConditionBuilder
	update    *expression.UpdateBuilder
	filter    []expression.ConditionBuilder
	condition []expression.ConditionBuilder
}

// exprFields is the SDK view of a built exprSpec. Unset parts are nil.
type exprFields struct {
	keyCondition *string
	update       *string
	filter       *string
	condition    *string
	names        map[string]string
	values       map[string]types.AttributeValue
}

func (e exprSpec) build() (exprFields, error) {
	b := expression.NewBuilder()
	set := false
	if e.key != nil {
		b = b.WithKeyCondition(*e.key)
		set = true
	}
	if e.update != nil {
		b = b.WithUpdate(*e.update)
		set = true
	}
	if c, ok := where(e.filter); ok {
		b = b.WithFilter(c)
		set = true
	}
	if c, ok := where(e.condition); ok {
		b = b.WithCondition(c)
		set = true
	}
	if !set {
		return exprFields{}, nil
	}

	expr, err := b.Build()
	if err != nil {
		return exprFields{}, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
	}
	return exprFields{
		keyCondition: expr.KeyCondition(),
		update:       expr.Update(),
		filter:       expr.Filter(),
		condition:    expr.Condition(),
		names:        nilIfEmpty(expr.Names()),
		values:       nilIfEmpty(expr.Values()),
	}, nil
}

// nilIfEmpty returns nil for empty maps; the SDK rejects empty placeholder maps.
func nilIfEmpty[K comparable, V any](m map[K]V) map[K]V {
	if len(m) == 0 {
		return nil
	}
	return m
}
