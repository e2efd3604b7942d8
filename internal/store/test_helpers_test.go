package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// createTestStore opens a fresh SQLite database in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// postgresStore opens the database named by XLFORM_TEST_POSTGRES_DSN, or
// skips the test.
func postgresStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("XLFORM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("XLFORM_TEST_POSTGRES_DSN not set")
	}
	s, err := Open(context.Background(), "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// tickingClock returns a clock that advances one second per call.
func tickingClock() func() time.Time {
	t := time.Date(2026, 1, 14, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func seedUser(t *testing.T, s *Store, email, role string) User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), email, "hash", role)
	require.NoError(t, err)
	return u
}
