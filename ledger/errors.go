package ledger

import "errors"

var (
	// ErrValidation is returned when required identifiers or fields are missing or malformed.
	// It is raised before any store interaction.
	ErrValidation = errors.New("ledger: invalid request")

	// ErrNotFound is returned when an account or partner doesn't exist.
	ErrNotFound = errors.New("ledger: not found")

	// ErrAccountExistsOrLimit is returned when an account creation is rejected because the
	// account type already exists for the owner or the owner holds the maximum number of accounts.
	ErrAccountExistsOrLimit = errors.New("ledger: account type already exists or limit reached")

	// ErrTransferRejected is returned when a transfer is rejected because an account is
	// missing or the source balance is insufficient.
	ErrTransferRejected = errors.New("ledger: source or destination account missing, or insufficient balance")

	// ErrDeleteRejected is returned when a deletion is rejected because the account is
	// missing or its balance is not zero.
	ErrDeleteRejected = errors.New("ledger: account missing or balance not zero")

	// ErrForbidden is returned when the caller may not administer partners.
	ErrForbidden = errors.New("ledger: forbidden")

	// ErrOperationFailed is returned for any other store failure. The caller may retry.
	ErrOperationFailed = errors.New("ledger: operation failed")
)
