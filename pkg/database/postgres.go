package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	migrateV4 "github.com/golang-migrate/migrate/v4"
	migratePostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresDB создает новое подключение к PostgreSQL
func NewPostgresDB(dsn string, verbose bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if verbose {
		logLevel = logger.Info
	}
	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// Настройка пула соединений
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func newMigrator(db *gorm.DB, migrationsPath string) (*migrateV4.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("не удалось получить *sql.DB из *gorm.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("не удалось проверить подключение к БД перед миграцией: %w", err)
	}

	driver, err := migratePostgres.WithInstance(sqlDB, &migratePostgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("не удалось создать драйвер postgres для migrate: %w", err)
	}

	m, err := migrateV4.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать экземпляр migrate: %w", err)
	}
	return m, nil
}

// MigrateDB применяет SQL-миграции из папки migrationsPath
func MigrateDB(db *gorm.DB, migrationsPath string) error {
	log.Infof("[Migrate] Применяем миграции из %s", migrationsPath)

	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		return err
	}

	err = m.Up()
	switch {
	case errors.Is(err, migrateV4.ErrNoChange):
		log.Info("[Migrate] Изменений в миграциях не найдено, база данных уже актуальна.")
	case err != nil:
		return fmt.Errorf("ошибка применения миграций 'up': %w", err)
	default:
		log.Info("[Migrate] Миграции успешно применены.")
	}
	return nil
}

// RollbackDB откатывает steps последних миграций
func RollbackDB(db *gorm.DB, migrationsPath string, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrateV4.ErrNoChange) {
		return fmt.Errorf("ошибка отката миграций: %w", err)
	}
	log.Infof("[Migrate] Откачено миграций: %d", steps)
	return nil
}

// ForceMigrationVersion снимает dirty-состояние после упавшей миграции, выставляя версию вручную.
// Открывает собственное подключение через lib/pq, без gorm.
func ForceMigrationVersion(dsn, migrationsPath string, version int) error {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("не удалось открыть подключение: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("не удалось проверить подключение к БД: %w", err)
	}

	driver, err := migratePostgres.WithInstance(sqlDB, &migratePostgres.Config{})
	if err != nil {
		return fmt.Errorf("не удалось создать драйвер postgres для migrate: %w", err)
	}
	m, err := migrateV4.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("не удалось создать экземпляр migrate: %w", err)
	}

	if err := m.Force(version); err != nil {
		return fmt.Errorf("не удалось выставить версию %d: %w", version, err)
	}
	log.Warnf("[Migrate] Версия схемы принудительно выставлена в %d", version)
	return nil
}

// MigrationVersion возвращает текущую версию схемы и признак dirty
func MigrationVersion(db *gorm.DB, migrationsPath string) (uint, bool, error) {
	m, err := newMigrator(db, migrationsPath)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrateV4.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
