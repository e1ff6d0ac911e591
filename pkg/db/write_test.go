package db

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type writeRow struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func openWriteDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:write_steps?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&writeRow{}))
	return conn
}

func TestRunStepsCommits(t *testing.T) {
	conn := openWriteDB(t)

	err := RunSteps(context.Background(), conn, "insert_rows",
		Step{Name: "first", Run: func(tx *gorm.DB) error { return tx.Create(&writeRow{ID: 1, Name: "a"}).Error }},
		Step{Name: "second", Run: func(tx *gorm.DB) error { return tx.Create(&writeRow{ID: 2, Name: "b"}).Error }},
	)
	require.NoError(t, err)

	var count int64
	require.NoError(t, conn.Model(&writeRow{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRunStepsRollsBackAndReportsStep(t *testing.T) {
	conn := openWriteDB(t)
	boom := errors.New("boom")

	err := RunSteps(context.Background(), conn, "insert_rows",
		Step{Name: "first", Run: func(tx *gorm.DB) error { return tx.Create(&writeRow{ID: 10, Name: "a"}).Error }},
		Step{Name: "second", Run: func(tx *gorm.DB) error { return boom }},
		Step{Name: "third", Run: func(tx *gorm.DB) error { return nil }},
	)

	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, "insert_rows", writeErr.Operation)
	assert.Equal(t, "second", writeErr.Step)
	assert.Equal(t, []string{"first"}, writeErr.CompletedSteps)
	assert.True(t, writeErr.RolledBack)
	assert.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&writeRow{}).Where("id = ?", 10).Count(&count).Error)
	assert.Zero(t, count)
}
