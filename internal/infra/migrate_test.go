package infra

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrateRunsEmbeddedMigrations(t *testing.T) {
	pool, err := newPool(context.Background(), "postgres://portal@127.0.0.1:1/portal?connect_timeout=1")
	require.NoError(t, err)
	defer pool.Close()

	orig := gooseUp
	t.Cleanup(func() { gooseUp = orig })

	var gotDir string
	gooseUp = func(_ context.Context, db *sql.DB, dir string) error {
		require.NotNil(t, db)
		gotDir = dir
		return nil
	}
	require.NoError(t, Migrate(context.Background(), pool))
	require.Equal(t, ".", gotDir)

	gooseUp = func(context.Context, *sql.DB, string) error { return errors.New("boom") }
	err = Migrate(context.Background(), pool)
	require.ErrorContains(t, err, "run migrations")
}

func TestNewPoolValidatesURL(t *testing.T) {
	_, err := newPool(context.Background(), "")
	require.Error(t, err)
	_, err = newPool(context.Background(), "::not-a-dsn::")
	require.Error(t, err)
}
