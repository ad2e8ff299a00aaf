package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"go.uber.org/zap"

	"github.com/jacentio/ledger/internal/keys"
	"github.com/jacentio/ledger/store"
)

// Repository persists accounts and partners. Every mutation is a single atomic
// conditional commit; races between callers are resolved by the store.
type Repository struct {
	store  *store.Store
	config Config
	logger *zap.Logger
}

// NewRepository creates a Repository. The ledger key registry is installed on s when
// it has none.
func NewRepository(s *store.Store, config Config, logger *zap.Logger) *Repository {
	config.validate()
	if logger == nil {
		logger = zap.NewNop()
	}
	if s.Registry() == nil {
		s.SetRegistry(Registry())
	}
	return &Repository{
		store:  s,
		config: config,
		logger: logger,
	}
}

// GetAccount reads one account.
func (r *Repository) GetAccount(ctx context.Context, ownerID, accountType string) (Account, error) {
	if ownerID == "" || accountType == "" {
		return Account{}, fmt.Errorf("%w: ownerId and accountType are required", ErrValidation)
	}

	key, err := r.store.Key(NewAccount(ownerID, accountType))
	if err != nil {
		return Account{}, r.failed("derive account key", err)
	}
	item, err := r.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, r.failed("get account", err, zap.String("ownerId", ownerID), zap.String("accountType", accountType))
	}
	v, err := unmarshalAccount(item)
	if err != nil {
		return Account{}, r.failed("decode account", err)
	}
	return v, nil
}

// GetPartner reads the business partner record of ownerID.
func (r *Repository) GetPartner(ctx context.Context, ownerID string) (Partner, error) {
	if ownerID == "" {
		return Partner{}, fmt.Errorf("%w: ownerId is required", ErrValidation)
	}

	key, err := r.store.Key(NewPartner(ownerID))
	if err != nil {
		return Partner{}, r.failed("derive partner key", err)
	}
	item, err := r.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return Partner{}, ErrNotFound
	}
	if err != nil {
		return Partner{}, r.failed("get partner", err, zap.String("ownerId", ownerID))
	}
	v, err := unmarshalPartner(item)
	if err != nil {
		return Partner{}, r.failed("decode partner", err)
	}
	return v, nil
}

// QueryAccounts reads one page of ownerID's accounts from its partition.
// A limit of 0 uses the store's page size.
func (r *Repository) QueryAccounts(ctx context.Context, ownerID string, limit int32, cursor string) (EntityList[Account], error) {
	if ownerID == "" {
		return EntityList[Account]{}, fmt.Errorf("%w: ownerId is required", ErrValidation)
	}
	startKey, err := r.startKey(limit, cursor)
	if err != nil {
		return EntityList[Account]{}, err
	}

	page, err := r.store.Query(ctx, store.QueryInput{
		KeyCondition: expression.Key(AttrPK).Equal(expression.Value(keys.AccountPK(ownerID))),
		Limit:        limit,
		StartKey:     startKey,
	})
	if err != nil {
		return EntityList[Account]{}, r.failed("query accounts", err, zap.String("ownerId", ownerID))
	}
	return r.accountList(page)
}

// ScanAccounts reads accounts across every owner.
//
// With a limit, pages are read until limit items are gathered or the table is
// exhausted; see store.Store.Scan for how the budget is spent. The cursor is empty
// once the table is exhausted.
func (r *Repository) ScanAccounts(ctx context.Context, limit int32, cursor string) (EntityList[Account], error) {
	startKey, err := r.startKey(limit, cursor)
	if err != nil {
		return EntityList[Account]{}, err
	}

	page, err := r.store.Scan(ctx, store.ScanInput{
		Filter:   []expression.ConditionBuilder{expression.Name(r.store.EntityAttr()).Equal(expression.Value(keys.EntityAccount))},
		Limit:    limit,
		StartKey: startKey,
	})
	if err != nil {
		return EntityList[Account]{}, r.failed("scan accounts", err)
	}
	return r.accountList(page)
}

// CreateAccount creates account and moves the owner's partner counter in the same commit.
//
// An existing partner has its accountCount incremented, guarded by the configured cap.
// A missing partner is created with accountCount 1 and the given admin flag. The
// account itself is created only if its key is free. Either rejection returns
// ErrAccountExistsOrLimit. The stored account is read back and returned.
func (r *Repository) CreateAccount(ctx context.Context, account Account, isAdmin bool) (Account, error) {
	if account.OwnerID == "" || account.AccountType == "" {
		return Account{}, fmt.Errorf("%w: ownerId and accountType are required", ErrValidation)
	}
	if account.Balance < 0 {
		return Account{}, fmt.Errorf("%w: balance must not be negative", ErrValidation)
	}

	log := r.logger.With(zap.String("ownerId", account.OwnerID), zap.String("accountType", account.AccountType))

	partnerKey, err := r.store.Key(NewPartner(account.OwnerID))
	if err != nil {
		return Account{}, r.failed("derive partner key", err)
	}
	accountItem, err := marshalAccount(account, r.store.EntityAttr())
	if err != nil {
		return Account{}, r.failed("create account", err)
	}

	tx := r.store.NewTx()

	_, err = r.store.Get(ctx, partnerKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		partnerItem, err := marshalPartner(NewPartner(account.OwnerID, WithAccountCount(1), WithAdmin(isAdmin)), r.store.EntityAttr())
		if err != nil {
			return Account{}, r.failed("create account", err)
		}
		tx.Put(partnerItem, expression.AttributeNotExists(expression.Name(AttrPK)))
		log.Debug("seeding partner", zap.Bool("admin", isAdmin))
	case err != nil:
		return Account{}, r.failed("get partner", err, zap.String("ownerId", account.OwnerID))
	default:
		tx.Update(partnerKey,
			expression.Add(expression.Name(AttrAccountCount), expression.Value(1)),
			expression.Name(AttrAccountCount).LessThan(expression.Value(r.config.MaxAccountsPerPartner)),
		)
	}
	tx.Put(accountItem, expression.AttributeNotExists(expression.Name(AttrPK)))

	if err := r.store.Commit(ctx, tx); err != nil {
		if i, ok := store.ConditionFailedAt(err); ok {
			log.Info("account creation rejected", zap.Int("write", i))
			return Account{}, ErrAccountExistsOrLimit
		}
		return Account{}, r.failed("create account", err, zap.String("ownerId", account.OwnerID))
	}

	log.Info("account created", zap.Int64("balance", account.Balance))
	return r.GetAccount(ctx, account.OwnerID, account.AccountType)
}

// TransferAccountBalance moves |amount| from one account to another in one commit.
//
// The debit is guarded by the source balance covering the amount, and the credit by
// the destination existing. Either rejection returns ErrTransferRejected and leaves
// both balances unchanged. The source account is read back and returned.
func (r *Repository) TransferAccountBalance(ctx context.Context, from, to Account, amount int64) (Account, error) {
	if from.OwnerID == "" || from.AccountType == "" || to.OwnerID == "" || to.AccountType == "" {
		return Account{}, fmt.Errorf("%w: source and destination accounts are required", ErrValidation)
	}
	if from.Identity() == to.Identity() {
		return Account{}, fmt.Errorf("%w: cannot transfer to the same account", ErrValidation)
	}
	if amount == 0 || amount == math.MinInt64 {
		return Account{}, fmt.Errorf("%w: invalid transfer amount %d", ErrValidation, amount)
	}
	if amount < 0 {
		amount = -amount
	}

	fromKey, err := r.store.Key(from)
	if err != nil {
		return Account{}, r.failed("derive account key", err)
	}
	toKey, err := r.store.Key(to)
	if err != nil {
		return Account{}, r.failed("derive account key", err)
	}

	tx := r.store.NewTx()
	tx.Update(fromKey,
		expression.Add(expression.Name(AttrBalance), expression.Value(-amount)),
		expression.Name(AttrBalance).GreaterThanEqual(expression.Value(amount)),
	)
	tx.Update(toKey,
		expression.Add(expression.Name(AttrBalance), expression.Value(amount)),
		expression.AttributeExists(expression.Name(AttrOwnerID)),
		expression.AttributeExists(expression.Name(AttrAccountType)),
	)

	log := r.logger.With(
		zap.String("fromOwnerId", from.OwnerID),
		zap.String("fromAccountType", from.AccountType),
		zap.String("toOwnerId", to.OwnerID),
		zap.String("toAccountType", to.AccountType),
		zap.Int64("amount", amount),
	)

	if err := r.store.Commit(ctx, tx); err != nil {
		if i, ok := store.ConditionFailedAt(err); ok {
			log.Info("transfer rejected", zap.Int("write", i))
			return Account{}, ErrTransferRejected
		}
		return Account{}, r.failed("transfer balance", err, zap.String("fromOwnerId", from.OwnerID))
	}

	log.Info("balance transferred")
	return r.GetAccount(ctx, from.OwnerID, from.AccountType)
}

// DeleteAccount removes a zero-balance account and decrements its partner's counter in
// one commit. A missing account or a non-zero balance returns false and ErrDeleteRejected.
func (r *Repository) DeleteAccount(ctx context.Context, account Account) (bool, error) {
	if account.OwnerID == "" || account.AccountType == "" {
		return false, fmt.Errorf("%w: ownerId and accountType are required", ErrValidation)
	}

	accountKey, err := r.store.Key(account)
	if err != nil {
		return false, r.failed("derive account key", err)
	}
	partnerKey, err := r.store.Key(NewPartner(account.OwnerID))
	if err != nil {
		return false, r.failed("derive partner key", err)
	}

	tx := r.store.NewTx()
	tx.Delete(accountKey,
		expression.Name(AttrOwnerID).Equal(expression.Value(account.OwnerID)),
		expression.Name(AttrAccountType).Equal(expression.Value(account.AccountType)),
		expression.Name(AttrBalance).Equal(expression.Value(0)),
	)
	tx.Update(partnerKey, expression.Add(expression.Name(AttrAccountCount), expression.Value(-1)))

	log := r.logger.With(zap.String("ownerId", account.OwnerID), zap.String("accountType", account.AccountType))

	if err := r.store.Commit(ctx, tx); err != nil {
		if i, ok := store.ConditionFailedAt(err); ok {
			log.Info("account deletion rejected", zap.Int("write", i))
			return false, ErrDeleteRejected
		}
		return false, r.failed("delete account", err, zap.String("ownerId", account.OwnerID))
	}

	log.Info("account deleted")
	return true, nil
}

// UpdatePartner sets the admin flag of an existing partner and returns the stored record.
// The account counter is never touched here.
func (r *Repository) UpdatePartner(ctx context.Context, ownerID string, admin bool) (Partner, error) {
	if ownerID == "" {
		return Partner{}, fmt.Errorf("%w: ownerId is required", ErrValidation)
	}

	key, err := r.store.Key(NewPartner(ownerID))
	if err != nil {
		return Partner{}, r.failed("derive partner key", err)
	}

	err = r.store.Update(ctx, key,
		expression.Set(expression.Name(AttrAdmin), expression.Value(admin)),
		expression.AttributeExists(expression.Name(AttrPK)),
	)
	if errors.Is(err, store.ErrConditionFailed) {
		return Partner{}, ErrNotFound
	}
	if err != nil {
		return Partner{}, r.failed("update partner", err, zap.String("ownerId", ownerID))
	}

	r.logger.Info("partner updated", zap.String("ownerId", ownerID), zap.Bool("admin", admin))
	return r.GetPartner(ctx, ownerID)
}

// startKey validates paging parameters and decodes the cursor.
func (r *Repository) startKey(limit int32, cursor string) (store.PK, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrValidation)
	}
	key, err := store.DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return key, nil
}

func (r *Repository) accountList(page *store.Page) (EntityList[Account], error) {
	accounts, err := unmarshalAccounts(page.Items)
	if err != nil {
		return EntityList[Account]{}, r.failed("decode accounts", err)
	}
	cursor, err := store.EncodeCursor(page.LastKey)
	if err != nil {
		return EntityList[Account]{}, r.failed("encode cursor", err)
	}
	return newEntityList(accounts, cursor), nil
}

// failed logs a store failure and hides it behind ErrOperationFailed.
func (r *Repository) failed(op string, err error, fields ...zap.Field) error {
	r.logger.Error(op+" failed", append(fields, zap.Error(err))...)
	return ErrOperationFailed
}
