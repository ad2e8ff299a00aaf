package store

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// PK represents a DynamoDB primary key.
type PK map[string]types.AttributeValue

// Identity holds the logical identifiers a record key is derived from.
// Fields an entity kind does not use are left empty.
type Identity struct {
	OwnerID     string
	AccountType string
}

// Entity is the base interface for all storable types.
type Entity interface {
	// EntityType returns the entity kind tag (e.g., "Account").
	EntityType() string

	// Identity returns the logical identifiers of this entity.
	Identity() Identity
}

// QueryInput defines parameters for a single-page partition query.
type QueryInput struct {
	// IndexName is the optional GSI/LSI to query.
	IndexName string

	// KeyCondition is the DynamoDB key condition.
	KeyCondition expression.KeyConditionBuilder

	// Filter holds optional conditions, joined with AND, applied after the key condition.
	Filter []expression.ConditionBuilder

	// Limit is the maximum number of items to evaluate (0 = store default).
	Limit int32

	// StartKey resumes the query after this key.
	StartKey PK

	// ScanIndexForward determines sort order (true = ascending, false = descending).
	ScanIndexForward *bool
}

// ScanInput defines parameters for a filtered full-table scan.
type ScanInput struct {
	// Filter holds conditions, joined with AND, that restrict the returned items.
	Filter []expression.ConditionBuilder

	// Limit is the total number of items the caller wants (0 = a single page of store default size).
	Limit int32

	// StartKey resumes the scan after this key.
	StartKey PK
}

// Page is one result set of a query or scan.
type Page struct {
	// Items are the raw DynamoDB items in store order.
	Items []map[string]types.AttributeValue

	// LastKey is the continuation key, nil once the store is exhausted.
	LastKey PK
}
