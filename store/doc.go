// Package store provides a DynamoDB single-table data access layer.
//
// Every entity kind shares one table. Records are addressed by a partition key "pk" and a
// sort key "sk" derived from the entity's logical identifiers, and carry their kind tag in
// an entity attribute so scans can select one kind.
//
// # Key Features
//
//   - Key derivation through a [Registry] of pure per-kind key functions
//   - Atomic multi-item conditional writes with [Tx] and [Store.Commit]
//   - Mapping of transaction cancellation reasons back to the rejected write with [ConditionFailedAt]
//   - Single-page partition queries with [Store.Query]
//   - Budgeted multi-page filtered scans with [Store.Scan]
//   - Opaque continuation tokens with [EncodeCursor] and [DecodeCursor]
//
// # Entity Interface
//
// Entities report their kind and identity; the registry turns those into a key:
//
//	type Entity interface {
//	    EntityType() string
//	    Identity() Identity
//	}
//
//	reg := store.NewRegistry()
//	reg.Register("Account", func(id store.Identity) store.PK { ... })
//	s := store.NewWithRegistry(client, store.DefaultConfig(), reg)
//
// # Expressions
//
// Key conditions, filters, conditions and updates are the SDK's expression builders
// (github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression). Several conditions passed
// to one call are joined with AND, and all parts of a request are built together:
//
//	tx.Update(key,
//	    expression.Add(expression.Name("balance"), expression.Value(-amount)),
//	    expression.Name("balance").GreaterThanEqual(expression.Value(amount)),
//	)
//
// # Errors
//
// The package defines these errors:
//
//   - [ErrNotFound]: the item does not exist
//   - [ErrConditionFailed]: a single-item conditional update was rejected
//   - [ErrInvalidCursor]: a cursor token could not be decoded
//   - [ErrUnknownEntity]: no key function is registered for a kind
//   - [ErrNoRegistry]: the Store has no registry
//   - [ErrInvalidExpression]: a condition or update could not be built
package store
