//go:build unit || e2e

package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

const DefaultComplexName = "Default Complex"

func DefaultComplexID(t *testing.T, db DBLike) uuid.UUID {
	t.Helper()

	var complexID uuid.UUID
	err := db.QueryRow(context.Background(),
		"SELECT id FROM complexes WHERE name = $1 LIMIT 1", DefaultComplexName).Scan(&complexID)
	require.NoError(t, err)
	return complexID
}

func CreateTestUser(t *testing.T, db DBLike, email string) uuid.UUID {
	t.Helper()

	userID := uuid.New()
	complexID := DefaultComplexID(t, db)

	ctx := context.Background()
	tag, err := db.Exec(ctx,
		"INSERT INTO users (id, email, complex_id) VALUES ($1, $2, $3) ON CONFLICT (email) DO NOTHING",
		userID, email, complexID)
	require.NoError(t, err)

	if tag.RowsAffected() == 0 {
		_ = db.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&userID)
	}

	return userID
}

func CreateTestCourt(t *testing.T, db DBLike, name, status string) uuid.UUID {
	t.Helper()

	courtID := uuid.New()
	complexID := DefaultComplexID(t, db)

	ctx := context.Background()
	tag, err := db.Exec(ctx,
		"INSERT INTO courts (id, complex_id, name, status) VALUES ($1, $2, $3, $4) ON CONFLICT (complex_id, name) DO NOTHING",
		courtID, complexID, name, status)
	require.NoError(t, err)

	if tag.RowsAffected() == 0 {
		_ = db.QueryRow(ctx,
			"SELECT id FROM courts WHERE complex_id = $1 AND name = $2", complexID, name).Scan(&courtID)
	}

	return courtID
}

func CreateTestClient(t *testing.T, db DBLike, name string) uuid.UUID {
	t.Helper()

	clientID := uuid.New()
	complexID := DefaultComplexID(t, db)

	_, err := db.Exec(context.Background(),
		"INSERT INTO clients (id, complex_id, name) VALUES ($1, $2, $3)",
		clientID, complexID, name)
	require.NoError(t, err)

	return clientID
}

func OpenTab(t *testing.T, db DBLike, reservationID uuid.UUID) uuid.UUID {
	t.Helper()

	tabID := uuid.New()
	_, err := db.Exec(context.Background(),
		"INSERT INTO tabs (id, reservation_id, status) VALUES ($1, $2, 'open')",
		tabID, reservationID)
	require.NoError(t, err)

	return tabID
}

// inserts basic reference data needed by tests
func SeedReferenceData(pool *pgxpool.Pool) error {
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO complexes (id, name)
		SELECT gen_random_uuid(), $1
		WHERE NOT EXISTS (SELECT 1 FROM complexes WHERE name = $1);
	`, DefaultComplexName)
	return err
}

var (
	buildTruncateOnce sync.Once
	truncateSQL       atomic.Value // string
)

// truncates all tables and reseeds reference data
func ResetDB(pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buildTruncateOnce.Do(func() {
		rows, err := pool.Query(ctx, `
		  SELECT 'public.' || quote_ident(tablename)
		  FROM pg_tables
		  WHERE schemaname = 'public'
		    AND tablename NOT IN ('schema_migrations')`)
		if err != nil {
			truncateSQL.Store("")
			return
		}
		defer rows.Close()
		var tables []string
		for rows.Next() {
			var table string
			if err := rows.Scan(&table); err != nil {
				truncateSQL.Store("")
				return
			}
			tables = append(tables, table)
		}
		if rows.Err() != nil {
			truncateSQL.Store("")
			return
		}
		if len(tables) == 0 {
			truncateSQL.Store("SELECT 1")
			return
		}
		truncateSQL.Store("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE;")
	})
	sqlAny := truncateSQL.Load()
	if sqlAny == nil || sqlAny.(string) == "" {
		return fmt.Errorf("failed to build TRUNCATE SQL")
	}
	if _, err := pool.Exec(ctx, sqlAny.(string)); err != nil {
		return err
	}

	return SeedReferenceData(pool)
}
