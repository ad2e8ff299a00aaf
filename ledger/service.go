package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Service applies caller-level policy on top of the Repository: which accounts a
// caller may list, and who may administer partners.
type Service struct {
	repo   *Repository
	logger *zap.Logger
}

// NewService creates a Service.
func NewService(repo *Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Repository returns the underlying repository.
func (s *Service) Repository() *Repository {
	return s.repo
}

// GetAccounts lists the accounts visible to ownerID.
//
// A non-admin partner gets a query over its own partition. An admin, or an owner with
// no partner record yet, gets a scan over every account.
func (s *Service) GetAccounts(ctx context.Context, ownerID string, limit int32, cursor string) (EntityList[Account], error) {
	partner, err := s.repo.GetPartner(ctx, ownerID)
	switch {
	case errors.Is(err, ErrNotFound):
		s.logger.Debug("no partner record, scanning", zap.String("ownerId", ownerID))
		return s.repo.ScanAccounts(ctx, limit, cursor)
	case err != nil:
		return EntityList[Account]{}, err
	case partner.Admin:
		s.logger.Debug("admin partner, scanning", zap.String("ownerId", ownerID))
		return s.repo.ScanAccounts(ctx, limit, cursor)
	default:
		return s.repo.QueryAccounts(ctx, ownerID, limit, cursor)
	}
}

// GetAccount reads one of ownerID's accounts.
func (s *Service) GetAccount(ctx context.Context, ownerID, accountType string) (Account, error) {
	return s.repo.GetAccount(ctx, ownerID, accountType)
}

// CreateAccount opens an account. isAdmin only takes effect when this is the owner's
// first account and the partner record is seeded.
func (s *Service) CreateAccount(ctx context.Context, account Account, isAdmin bool) (Account, error) {
	return s.repo.CreateAccount(ctx, account, isAdmin)
}

// TransferAccountBalance moves amount between two accounts.
func (s *Service) TransferAccountBalance(ctx context.Context, from, to Account, amount int64) (Account, error) {
	return s.repo.TransferAccountBalance(ctx, from, to, amount)
}

// DeleteAccount removes a zero-balance account.
func (s *Service) DeleteAccount(ctx context.Context, account Account) (bool, error) {
	return s.repo.DeleteAccount(ctx, account)
}

// UpdatePartner sets the admin flag of ownerID's partner. Only an existing admin
// partner may do so; any other caller gets ErrForbidden.
func (s *Service) UpdatePartner(ctx context.Context, callerID, ownerID string, admin bool) (Partner, error) {
	caller, err := s.repo.GetPartner(ctx, callerID)
	switch {
	case errors.Is(err, ErrNotFound):
		return Partner{}, fmt.Errorf("%w: caller %q is not a partner", ErrForbidden, callerID)
	case err != nil:
		return Partner{}, err
	case !caller.Admin:
		s.logger.Warn("non-admin partner update attempt", zap.String("callerId", callerID), zap.String("ownerId", ownerID))
		return Partner{}, fmt.Errorf("%w: caller %q is not an admin", ErrForbidden, callerID)
	}
	return s.repo.UpdatePartner(ctx, ownerID, admin)
}
