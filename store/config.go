package store

// Config holds configuration for the Store.
type Config struct {
	// TableName is the single table holding every entity kind.
	// Default: "ledger"
	TableName string

	// EntityAttr is the attribute carrying the entity kind tag on every record.
	// Scans filter on it to pick one kind out of the shared table.
	// Default: "__en"
	EntityAttr string
}

// DefaultConfig returns the defaults used by tests and local development.
func DefaultConfig() Config {
	return Config{
		TableName:  "ledger",
		EntityAttr: "__en",
	}
}

// validate fills in defaults for empty values.
func (c *Config) validate() {
	if c.TableName == "" {
		c.TableName = "ledger"
	}
	if c.EntityAttr == "" {
		c.EntityAttr = "__en"
	}
}
