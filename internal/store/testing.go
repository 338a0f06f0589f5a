package store

import (
	"database/sql"
)

// NewTestStore creates a Store for testing with an in-memory database.
// This is only intended for use in tests.
func NewTestStore() (*Store, error) {
	return Open(":memory:")
}

// wrap lets tests run migrations against a connection they opened themselves
func wrap(sqlDB *sql.DB) (*Store, error) {
	if err := migrate(sqlDB); err != nil {
		return nil, err
	}
	return newStore(sqlDB), nil
}
