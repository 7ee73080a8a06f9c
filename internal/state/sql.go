package state

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/contractwatch/internal/conf"
	"github.com/tphakala/contractwatch/internal/errors"
	"github.com/tphakala/contractwatch/internal/logger"
)

const (
	// slowQueryThreshold raises slower statements to WARN
	slowQueryThreshold = 200 * time.Millisecond

	sqliteMemory = ":memory:"
)

// Entry is one persisted key/value pair
type Entry struct {
	Key       string `gorm:"column:state_key;primaryKey;size:191"`
	Value     []byte `gorm:"column:payload"`
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (Entry) TableName() string {
	return "state_entries"
}

// SQLStore is a Store on top of a GORM database
type SQLStore struct {
	db     *gorm.DB
	driver string
	logger logger.Logger
	mu     sync.Mutex
}

// Open creates the store selected by the state settings
func Open(cfg conf.StateSettings, log logger.Logger) (Store, error) {
	switch cfg.Driver {
	case conf.StateDriverMemory:
		return NewMemoryStore(), nil
	case conf.StateDriverSQLite, "":
		return OpenSQLite(cfg.Path, log)
	case conf.StateDriverMySQL:
		return OpenMySQL(cfg.DSN, log)
	default:
		return nil, errors.Newf("unknown state driver %q", cfg.Driver).
			Component("state").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// OpenSQLite opens or creates a SQLite state database at path.
// ":memory:" opens a private in-memory database.
func OpenSQLite(path string, log logger.Logger) (*SQLStore, error) {
	if path == "" {
		return nil, errors.Newf("sqlite path is required").
			Component("state").
			Category(errors.CategoryConfiguration).
			Build()
	}

	dsn := path
	if path != sqliteMemory {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	return openSQL(conf.StateDriverSQLite, sqlite.Open(dsn), path, log)
}

// OpenMySQL opens a MySQL state database
func OpenMySQL(dsn string, log logger.Logger) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.Newf("mysql dsn is required").
			Component("state").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return openSQL(conf.StateDriverMySQL, mysql.Open(dsn), "mysql", log)
}

func openSQL(driver string, dialector gorm.Dialector, target string, log logger.Logger) (*SQLStore, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	storeLogger := log.Module(driver)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(storeLogger, slowQueryThreshold),
	})
	if err != nil {
		return nil, errors.New(err).
			Component("state").
			Category(errors.CategoryDatabase).
			Context("driver", driver).
			Context("operation", "open").
			Build()
	}

	if driver == conf.StateDriverSQLite {
		// A single connection keeps :memory: databases shared and avoids
		// SQLITE_BUSY between pooled writers.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, errors.New(err).
			Component("state").
			Category(errors.CategoryDatabase).
			Context("driver", driver).
			Context("operation", "auto_migrate").
			Build()
	}

	storeLogger.Debug("state store opened", logger.String("target", target))

	return &SQLStore{db: db, driver: driver, logger: storeLogger}, nil
}

// Get implements Store
func (s *SQLStore) Get(key string) ([]byte, bool, error) {
	var entry Entry
	result := s.db.Where("state_key = ?", key).Limit(1).Find(&entry)
	if result.Error != nil {
		return nil, false, s.dbError(result.Error, "get", key)
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}
	return entry.Value, true, nil
}

// Set implements Store
func (s *SQLStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return s.dbError(err, "set", key)
	}
	return nil
}

// Delete implements Store
func (s *SQLStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Where("state_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return s.dbError(err, "delete", key)
	}
	return nil
}

// Close releases the database connection
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve generic DB object: %w", err)
	}
	return sqlDB.Close()
}

func (s *SQLStore) dbError(err error, op, key string) error {
	return errors.New(err).
		Component("state").
		Category(errors.CategoryDatabase).
		Context("driver", s.driver).
		Context("operation", op).
		Context("key", key).
		Build()
}
