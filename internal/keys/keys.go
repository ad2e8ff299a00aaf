// Package keys derives single-table partition and sort keys for ledger records.
package keys

import "strings"

// Entity kind tags. They are also stored on every record under the entity attribute.
const (
	EntityAccount = "Account"
	EntityPartner = "BusinessPartner"
)

const (
	separator         = "#"
	entityPrefix      = "__EN"
	ownerPrefix       = "OWNER_ID"
	accountTypePrefix = "ACCOUNT_TYPE"
)

// AccountPK computes the partition key shared by all accounts of one owner.
// Every account of an owner lives in the same partition so they can be listed with one query.
func AccountPK(ownerID string) string {
	return join(entityPrefix, EntityAccount, ownerPrefix, ownerID)
}

// AccountSK computes the sort key of an account within its owner's partition.
func AccountSK(accountType string) string {
	return join(accountTypePrefix, accountType)
}

// PartnerPK computes the partition key of a business partner record.
func PartnerPK(ownerID string) string {
	return join(ownerPrefix, ownerID)
}

// PartnerSK returns the constant sort key of a business partner record.
func PartnerSK() string {
	return join(entityPrefix, EntityPartner)
}

func join(parts ...string) string {
	return strings.Join(parts, separator)
}
