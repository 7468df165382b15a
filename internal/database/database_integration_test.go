package database

import (
	"context"
	"path/filepath"
	"testing"

	"fitadmin/config"
	"fitadmin/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func tempConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DatabaseDbPath: filepath.Join(t.TempDir(), "test.db"),
	}
}

func TestNew_SuccessWithoutCache(t *testing.T) {
	db, err := New(tempConfig(t))
	require.NoError(t, err)
	defer db.Close()

	assert.NotNil(t, db.SQL)
	assert.Nil(t, db.Cache.General)
	assert.Nil(t, db.Cache.Statistics)

	for _, table := range []string{"members", "member_sessions", "subjects", "test_results", "sync_logs", "sppb_assessments"} {
		assert.True(t, db.SQL.Migrator().HasTable(table), "table %s should exist", table)
	}
}

func TestNew_UnreachableCache(t *testing.T) {
	testConfig := tempConfig(t)
	testConfig.DatabaseCacheAddress = "127.0.0.1"
	testConfig.DatabaseCachePort = 1

	_, err := New(testConfig)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize cache database")
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(config.Config{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database path is empty")
}

func TestInitializeSQLiteDB_Success(t *testing.T) {
	db := &DB{
		log: logger.New("test"),
	}

	testConfig := tempConfig(t)

	err := db.initializeSQLiteDB(&gorm.Config{}, testConfig)
	assert.NoError(t, err)
	assert.NotNil(t, db.SQL)

	assert.FileExists(t, testConfig.DatabaseDbPath)

	_ = db.Close()
}

func TestInitializeSQLiteDB_InMemory(t *testing.T) {
	db := &DB{
		log: logger.New("test"),
	}

	err := db.initializeSQLiteDB(&gorm.Config{}, config.Config{DatabaseDbPath: ":memory:"})
	require.NoError(t, err)

	assert.NoError(t, db.Ping(context.Background()))
	_ = db.Close()
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db, err := New(tempConfig(t))
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Migrate())
}

func TestRollback_DropsNewestTable(t *testing.T) {
	db, err := New(tempConfig(t))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Rollback(1))
	assert.False(t, db.SQL.Migrator().HasTable("sppb_assessments"))
	assert.True(t, db.SQL.Migrator().HasTable("sync_logs"))

	require.NoError(t, db.Migrate())
	assert.True(t, db.SQL.Migrator().HasTable("sppb_assessments"))
}

func TestClose_WithNilSQL(t *testing.T) {
	db := &DB{
		log: logger.New("test"),
		SQL: nil,
	}

	err := db.Close()
	assert.NoError(t, err)
}

func TestClose_ReportsInvalidConnection(t *testing.T) {
	db := &DB{
		log: logger.New("test"),
		SQL: &gorm.DB{Config: &gorm.Config{}},
	}

	err := db.Close()
	assert.ErrorIs(t, err, gorm.ErrInvalidDB)
}

func TestSQLWithContext(t *testing.T) {
	db, err := New(tempConfig(t))
	require.NoError(t, err)
	defer db.Close()

	gormDB := db.SQLWithContext(context.Background())

	assert.NotNil(t, gormDB)
	assert.NotEqual(t, db.SQL, gormDB)
}

func TestCacheBuilder_NilClientIsMiss(t *testing.T) {
	builder := NewCacheBuilder(nil, "statistics")

	found, err := builder.Get(&map[string]any{})
	assert.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, builder.WithStruct(map[string]int{"a": 1}).Set())
	assert.NoError(t, builder.Delete())
}

func TestFlushAllCaches_NoClients(t *testing.T) {
	db := &DB{log: logger.New("test")}
	assert.NoError(t, db.FlushAllCaches())
}
