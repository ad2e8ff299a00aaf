package ledger

// DefaultMaxAccountsPerPartner is the account-type cap per business partner.
const DefaultMaxAccountsPerPartner = 10

// Config holds configuration for the Repository.
type Config struct {
	// MaxAccountsPerPartner caps the number of account types one owner may hold.
	// Default: 10
	MaxAccountsPerPartner int64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{MaxAccountsPerPartner: DefaultMaxAccountsPerPartner}
}

func (c *Config) validate() {
	if c.MaxAccountsPerPartner < 1 {
		c.MaxAccountsPerPartner = DefaultMaxAccountsPerPartner
	}
}
