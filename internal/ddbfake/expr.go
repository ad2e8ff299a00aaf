package ddbfake

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var comparisonOps = []string{"<>", "<=", ">=", "=", "<", ">"}

// evalCondition evaluates a condition against item, which is nil when absent.
// An empty condition always holds. Clauses may be parenthesized, as the SDK expression
// builder emits them.
func evalCondition(expr string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}

	if clauses := splitAnd(expr); len(clauses) > 1 {
		for _, clause := range clauses {
			ok, err := evalCondition(clause, item, names, values)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
	if inner, ok := unwrap(expr); ok {
		return evalCondition(inner, item, names, values)
	}
	return evalClause(expr, item, names, values)
}

// splitAnd splits expr on the AND operators outside parentheses.
func splitAnd(expr string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ' ':
			if depth == 0 && strings.HasPrefix(expr[i:], " AND ") {
				parts = append(parts, expr[start:i])
				start = i + len(" AND ")
				i = start - 1
			}
		}
	}
	return append(parts, expr[start:])
}

// unwrap strips one pair of parentheses enclosing the whole of expr.
func unwrap(expr string) (string, bool) {
	if !strings.HasPrefix(expr, "(") || !strings.HasSuffix(expr, ")") {
		return "", false
	}
	depth := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(expr)-1 {
				return "", false
			}
		}
	}
	return expr[1 : len(expr)-1], true
}

func evalClause(clause string, item map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (bool, error) {
	for _, fn := range []string{"attribute_exists", "attribute_not_exists"} {
		if !strings.HasPrefix(clause, fn) {
			continue
		}
		arg := strings.TrimSpace(strings.TrimPrefix(clause, fn))
		if strings.HasPrefix(arg, "(") && strings.HasSuffix(arg, ")") {
			name, err := resolveName(strings.TrimSpace(arg[1:len(arg)-1]), names)
			if err != nil {
				return false, err
			}
			_, exists := item[name]
			if fn == "attribute_exists" {
				return exists, nil
			}
			return !exists, nil
		}
	}

	fields := strings.Fields(clause)
	if len(fields) != 3 {
		return false, fmt.Errorf("ddbfake: unsupported condition %q", clause)
	}
	op := fields[1]
	if !isComparison(op) {
		return false, fmt.Errorf("ddbfake: unsupported operator %q", op)
	}

	name, err := resolveName(fields[0], names)
	if err != nil {
		return false, err
	}
	want, ok := values[fields[2]]
	if !ok {
		return false, fmt.Errorf("ddbfake: missing value %q", fields[2])
	}
	got, exists := item[name]
	if !exists {
		return false, nil
	}

	cmp, comparable := compare(got, want)
	if !comparable {
		return op == "<>", nil
	}
	switch op {
	case "=":
		return cmp == 0, nil
	case "<>":
		return cmp != 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	case ">":
		return cmp > 0, nil
	default:
		return cmp >= 0, nil
	}
}

// applyUpdate returns a new item with a single SET or ADD action applied.
// A missing item is created from key, as UpdateItem does.
func applyUpdate(expr string, current, key map[string]types.AttributeValue, names map[string]string, values map[string]types.AttributeValue) (map[string]types.AttributeValue, error) {
	item := copyItem(current)
	if item == nil {
		item = copyItem(key)
	}

	expr = strings.TrimSpace(expr)
	switch {
	case strings.HasPrefix(expr, "SET "):
		for _, action := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
			parts := strings.SplitN(action, "=", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("ddbfake: unsupported SET action %q", action)
			}
			name, err := resolveName(strings.TrimSpace(parts[0]), names)
			if err != nil {
				return nil, err
			}
			v, ok := values[strings.TrimSpace(parts[1])]
			if !ok {
				return nil, fmt.Errorf("ddbfake: missing value %q", parts[1])
			}
			item[name] = v
		}
	case strings.HasPrefix(expr, "ADD "):
		for _, action := range strings.Split(strings.TrimPrefix(expr, "ADD "), ",") {
			fields := strings.Fields(action)
			if len(fields) != 2 {
				return nil, fmt.Errorf("ddbfake: unsupported ADD action %q", action)
			}
			name, err := resolveName(fields[0], names)
			if err != nil {
				return nil, err
			}
			delta, ok := values[fields[1]].(*types.AttributeValueMemberN)
			if !ok {
				return nil, fmt.Errorf("ddbfake: ADD value %q is not a number", fields[1])
			}
			sum, _ := new(big.Float).SetString(delta.Value)
			if existing, ok := item[name]; ok {
				n, ok := existing.(*types.AttributeValueMemberN)
				if !ok {
					return nil, fmt.Errorf("ddbfake: ADD target %q is not a number", name)
				}
				base, _ := new(big.Float).SetString(n.Value)
				sum = sum.Add(sum, base)
			}
			item[name] = &types.AttributeValueMemberN{Value: sum.Text('f', -1)}
		}
	default:
		return nil, fmt.Errorf("ddbfake: unsupported update expression %q", expr)
	}
	return item, nil
}

func resolveName(placeholder string, names map[string]string) (string, error) {
	if !strings.HasPrefix(placeholder, "#") {
		return placeholder, nil
	}
	name, ok := names[placeholder]
	if !ok {
		return "", fmt.Errorf("ddbfake: missing name %q", placeholder)
	}
	return name, nil
}

func isComparison(op string) bool {
	for _, candidate := range comparisonOps {
		if op == candidate {
			return true
		}
	}
	return false
}

// compare orders two values of the same scalar type.
func compare(a, b types.AttributeValue) (int, bool) {
	switch a := a.(type) {
	case *types.AttributeValueMemberN:
		bn, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return 0, false
		}
		x, okX := new(big.Float).SetString(a.Value)
		y, okY := new(big.Float).SetString(bn.Value)
		if !okX || !okY {
			return 0, false
		}
		return x.Cmp(y), true
	case *types.AttributeValueMemberS:
		bs, ok := b.(*types.AttributeValueMemberS)
		if !ok {
			return 0, false
		}
		return strings.Compare(a.Value, bs.Value), true
	case *types.AttributeValueMemberBOOL:
		bb, ok := b.(*types.AttributeValueMemberBOOL)
		if !ok {
			return 0, false
		}
		if a.Value == bb.Value {
			return 0, true
		}
		return 1, true
	}
	return 0, false
}
