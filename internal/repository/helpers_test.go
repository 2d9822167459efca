package repository

import (
	"path/filepath"
	"testing"

	"github.com/ahmednasr/sprint-ai/internal/database"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = database.CloseSQLite(db) })
	return db
}
