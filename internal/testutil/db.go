// Package testutil - общие хелперы для тестов с базой данных
package testutil

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"spacefeed/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite открывает временную базу SQLite со схемой сервиса.
// now может быть nil, тогда используется текущее время UTC.
func OpenSQLite(t testing.TB, now func() time.Time) *gorm.DB {
	t.Helper()

	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	path := filepath.Join(t.TempDir(), "spacefeed.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: now,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// SQLite не любит параллельную запись
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// Clock - управляемые часы для тестов
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
