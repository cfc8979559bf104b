package database

import (
	"fmt"
	"log/slog"
	"time"

	"spacefeed/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Debug    bool
}

func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func Connect(config Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if config.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(config.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// Настройка пула соединений
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	slog.Info("database connected", "host", config.Host, "db", config.DBName)
	return db, nil
}

// Migrate создаёт таблицы. Расширения и специальные индексы только для PostgreSQL.
func Migrate(db *gorm.DB) error {
	isPostgres := db.Dialector.Name() == "postgres"

	if isPostgres {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error; err != nil {
			return fmt.Errorf("failed to create pg_trgm extension: %w", err)
		}
	}

	// Автомиграция моделей
	err := db.AutoMigrate(
		&models.PositionSnapshot{},
		&models.CatalogItem{},
		&models.CachedDocument{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	if isPostgres {
		if err := createIndexes(db); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	slog.Info("database migration completed")
	return nil
}

func createIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_iss_fetch_log_id_desc ON iss_fetch_log(id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_osdr_items_updated_at ON osdr_items(updated_at DESC NULLS LAST)",
		"CREATE INDEX IF NOT EXISTS idx_osdr_items_title ON osdr_items USING gin(title gin_trgm_ops)",
	}

	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// TableCounts возвращает количество строк в таблицах сервиса
func TableCounts(db *gorm.DB) (map[string]int64, error) {
	tables := []interface{}{
		&models.PositionSnapshot{},
		&models.CatalogItem{},
		&models.CachedDocument{},
	}

	counts := make(map[string]int64, len(tables))
	for _, model := range tables {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to parse model: %w", err)
		}

		var count int64
		if err := db.Model(model).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", stmt.Schema.Table, err)
		}
		counts[stmt.Schema.Table] = count
	}
	return counts, nil
}
