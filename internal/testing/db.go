// Package testing provides testing utilities and helpers for portfoliobot.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/aristath/portfoliobot/internal/database"
)

// NewTestDB creates a temporary-file SQLite database with the embedded schema for name applied.
// Returns the database instance and a cleanup function that closes the connection.
//
// Supported schema names:
//   - "portfolio" - users, lots, orders
//   - "cache" - market data cache tables
//   - Unknown names - creates empty database (no schema applied)
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	profile := database.ProfileLedger
	if name == "cache" {
		profile = database.ProfileCache
	}
	return newTestDB(t, name, profile, "")
}

// NewTestDBWithSchema creates a temporary-file SQLite database and executes the given schema.
func NewTestDBWithSchema(t *testing.T, name string, schema string) (*database.DB, func()) {
	t.Helper()
	return newTestDB(t, name, database.ProfileStandard, schema)
}

func newTestDB(t *testing.T, name string, profile database.DatabaseProfile, schema string) (*database.DB, func()) {
	t.Helper()

	// Temporary files give each test its own isolated database
	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if schema != "" {
		_, err = db.Conn().Exec(schema)
	} else {
		err = db.Migrate()
	}
	if err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to prepare schema for test database %s: %v", name, err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		for _, suffix := range []string{"", "-wal", "-shm"} {
			_ = os.Remove(tmpPath + suffix)
		}
	}
}

// CreateUser inserts an account row directly, bypassing the accounts module
func CreateUser(t *testing.T, db *database.DB, username string) {
	t.Helper()

	if _, err := db.Exec("INSERT INTO users (username, created_at) VALUES (?, 0)", username); err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
}
