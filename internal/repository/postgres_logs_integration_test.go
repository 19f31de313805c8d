//go:build integration
// +build integration

package repository

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"
	"time"

	"tether-data/internal/config"
	"tether-data/internal/domain"

	"github.com/stretchr/testify/require"
)

func getTestEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getTestEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// 获取测试数据库连接；连不上直接 Skip
func getTestDB(t *testing.T) *sql.DB {
	cfg := &config.DatabaseConfig{
		Host:     getTestEnv("TEST_DB_HOST", "localhost"),
		Port:     getTestEnvInt("TEST_DB_PORT", 5432),
		User:     getTestEnv("TEST_DB_USER", "postgres"),
		Password: getTestEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getTestEnv("TEST_DB_NAME", "tether_test"),
		SSLMode:  getTestEnv("TEST_DB_SSLMODE", "disable"),
	}

	db, err := NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}
	if err := db.Ping(); err != nil {
		t.Skipf("Skipping integration test: cannot ping database: %v", err)
		return nil
	}
	if err := EnsureSchema(db); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}
	return db
}

func cleanupLogsTestData(db *sql.DB, tetherID string) {
	db.Exec(`DELETE FROM log_entries WHERE tether_id = $1`, tetherID)
	db.Exec(`DELETE FROM tethers WHERE tether_id = $1`, tetherID)
}

func TestPostgresLogs_AppendAndListOrdering(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	tetherID := "it-logs-1"
	cleanupLogsTestData(db, tetherID)
	defer cleanupLogsTestData(db, tetherID)

	repo := NewPostgresLogsRepository(db)
	ctx := context.Background()
	shared := domain.LogStream{Scope: domain.ScopeTerra, TetherID: tetherID}

	ids := []string{"-Aaaa0000aaaaaaaaaaaa", "-Aaaa0001aaaaaaaaaaaa", "-Aaaa0002aaaaaaaaaaaa"}
	for _, id := range ids {
		err := repo.AppendEntry(ctx, shared, &domain.LogEntry{
			EntryID:     id,
			TetherID:    tetherID,
			Timestamp:   time.Now().UTC(),
			SubmittedBy: "anonymous",
			Fields: map[string]domain.Value{
				"Notes": domain.StringValue("entry " + id),
				"Score": domain.NumberValue(42),
			},
		})
		require.NoError(t, err)
	}

	entries, err := repo.ListEntries(ctx, shared)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		require.Equal(t, ids[i], e.EntryID)
		require.Equal(t, domain.ValueNumber, e.Fields["Score"].Kind)
	}
}

func TestPostgresLogs_SharedAndAuraPartition(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()

	tetherID := "it-logs-2"
	cleanupLogsTestData(db, tetherID)
	defer cleanupLogsTestData(db, tetherID)

	repo := NewPostgresLogsRepository(db)
	ctx := context.Background()
	shared := domain.LogStream{Scope: domain.ScopeTerra, TetherID: tetherID}
	aura := domain.LogStream{Scope: domain.ScopeAura, TetherID: tetherID, OwnerID: "it-user-1"}

	require.NoError(t, repo.AppendEntry(ctx, shared, &domain.LogEntry{
		EntryID: "-Aaab0000aaaaaaaaaaaa", TetherID: tetherID, Timestamp: time.Now().UTC(), SubmittedBy: "anonymous",
	}))
	require.NoError(t, repo.AppendEntry(ctx, aura, &domain.LogEntry{
		EntryID: "-Aaab0001aaaaaaaaaaaa", TetherID: tetherID, Timestamp: time.Now().UTC(), SubmittedBy: "it-user-1",
	}))

	// reset 级联只清共享流
	require.NoError(t, repo.DeleteSharedEntries(ctx, tetherID))

	sharedEntries, err := repo.ListEntries(ctx, shared)
	require.NoError(t, err)
	require.Empty(t, sharedEntries)

	auraEntries, err := repo.ListEntries(ctx, aura)
	require.NoError(t, err)
	require.Len(t, auraEntries, 1)

	tetherIDs, err := repo.ListUserTetherIDs(ctx, "it-user-1")
	require.NoError(t, err)
	require.Contains(t, tetherIDs, tetherID)
}
