package ledger

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/ledger/internal/keys"
	"github.com/jacentio/ledger/store"
)

// Record attribute names.
const (
	AttrPK           = "pk"
	AttrSK           = "sk"
	AttrOwnerID      = "ownerId"
	AttrAccountType  = "accountType"
	AttrBalance      = "balance"
	AttrAccountCount = "accountCount"
	AttrAdmin        = "admin"
)

// Account is a balance of one type held by an owner. (OwnerID, AccountType) is unique.
type Account struct {
	OwnerID     string `json:"ownerId" dynamodbav:"ownerId"`
	AccountType string `json:"accountType" dynamodbav:"accountType"`
	Balance     int64  `json:"balance" dynamodbav:"balance"`
}

// AccountOption sets optional Account attributes.
type AccountOption func(*Account)

// WithBalance sets the opening balance.
func WithBalance(balance int64) AccountOption {
	return func(a *Account) { a.Balance = balance }
}

// NewAccount builds an Account. The balance defaults to 0.
func NewAccount(ownerID, accountType string, opts ...AccountOption) Account {
	a := Account{
		OwnerID:     ownerID,
		AccountType: accountType,
		Balance:     0,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// EntityType implements store.Entity.
func (a Account) EntityType() string { return keys.EntityAccount }

// Identity implements store.Entity.
func (a Account) Identity() store.Identity {
	return store.Identity{OwnerID: a.OwnerID, AccountType: a.AccountType}
}

// Partner is the business partner owning accounts. It tracks how many account types
// the owner holds and whether the owner may see and administer every account.
type Partner struct {
	OwnerID      string `json:"ownerId" dynamodbav:"ownerId"`
	AccountCount int64  `json:"accountCount" dynamodbav:"accountCount"`
	Admin        bool   `json:"admin" dynamodbav:"admin"`
}

// PartnerOption sets optional Partner attributes.
type PartnerOption func(*Partner)

// WithAccountCount sets the number of accounts held.
func WithAccountCount(n int64) PartnerOption {
	return func(p *Partner) { p.AccountCount = n }
}

// WithAdmin sets the admin flag.
func WithAdmin(admin bool) PartnerOption {
	return func(p *Partner) { p.Admin = admin }
}

// NewPartner builds a Partner. The account count defaults to 0 and admin to false.
func NewPartner(ownerID string, opts ...PartnerOption) Partner {
	p := Partner{
		OwnerID:      ownerID,
		AccountCount: 0,
		Admin:        false,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// EntityType implements store.Entity.
func (p Partner) EntityType() string { return keys.EntityPartner }

// Identity implements store.Entity.
func (p Partner) Identity() store.Identity {
	return store.Identity{OwnerID: p.OwnerID}
}

// Registry returns the key registry for every ledger entity kind.
func Registry() *store.Registry {
	r := store.NewRegistry()
	r.Register(keys.EntityAccount, func(id store.Identity) store.PK {
		return store.PK{
			AttrPK: store.String(keys.AccountPK(id.OwnerID)),
			AttrSK: store.String(keys.AccountSK(id.AccountType)),
		}
	})
	r.Register(keys.EntityPartner, func(id store.Identity) store.PK {
		return store.PK{
			AttrPK: store.String(keys.PartnerPK(id.OwnerID)),
			AttrSK: store.String(keys.PartnerSK()),
		}
	})
	return r
}

// accountRecord is the stored form of an Account.
type accountRecord struct {
	PK          string `dynamodbav:"pk"`
	SK          string `dynamodbav:"sk"`
	OwnerID     string `dynamodbav:"ownerId"`
	AccountType string `dynamodbav:"accountType"`
	Balance     int64  `dynamodbav:"balance"`
}

// partnerRecord is the stored form of a Partner.
type partnerRecord struct {
	PK           string `dynamodbav:"pk"`
	SK           string `dynamodbav:"sk"`
	OwnerID      string `dynamodbav:"ownerId"`
	AccountCount int64  `dynamodbav:"accountCount"`
	Admin        bool   `dynamodbav:"admin"`
}

// marshalAccount builds the stored item, tagging it with the entity kind under entityAttr.
func marshalAccount(a Account, entityAttr string) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(accountRecord{
		PK:          keys.AccountPK(a.OwnerID),
		SK:          keys.AccountSK(a.AccountType),
		OwnerID:     a.OwnerID,
		AccountType: a.AccountType,
		Balance:     a.Balance,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal account: %w", err)
	}
	item[entityAttr] = store.String(keys.EntityAccount)
	return item, nil
}

func marshalPartner(p Partner, entityAttr string) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(partnerRecord{
		PK:           keys.PartnerPK(p.OwnerID),
		SK:           keys.PartnerSK(),
		OwnerID:      p.OwnerID,
		AccountCount: p.AccountCount,
		Admin:        p.Admin,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal partner: %w", err)
	}
	item[entityAttr] = store.String(keys.EntityPartner)
	return item, nil
}

// unmarshalAccount decodes a stored item. Attributes missing from the item keep NewAccount's defaults.
func unmarshalAccount(item map[string]types.AttributeValue) (Account, error) {
	a := NewAccount("", "")
	if err := attributevalue.UnmarshalMap(item, &a); err != nil {
		return Account{}, fmt.Errorf("unmarshal account: %w", err)
	}
	return a, nil
}

// unmarshalPartner decodes a stored item. Attributes missing from the item keep NewPartner's defaults.
func unmarshalPartner(item map[string]types.AttributeValue) (Partner, error) {
	p := NewPartner("")
	if err := attributevalue.UnmarshalMap(item, &p); err != nil {
		return Partner{}, fmt.Errorf("unmarshal partner: %w", err)
	}
	return p, nil
}

func unmarshalAccounts(items []map[string]types.AttributeValue) ([]Account, error) {
	accounts := make([]Account, 0, len(items))
	for _, item := range items {
		a, err := unmarshalAccount(item)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}
