package sql

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/embed" // sqlite wasm binary
	"github.com/ncruces/go-sqlite3/gormlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	"github.com/modelhub/modelhub/pkg/store"
	"github.com/modelhub/modelhub/pkg/store/sql/model"
)

type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
}

var _ store.ModelhubStore = (*Store)(nil)

// NewDialector picks the gorm dialect from the URL scheme. sqlite URLs keep the
// path after the scheme, so sqlite:///abs/path.db and sqlite://rel.db both work.
//
//nolint:ireturn
func NewDialector(storeURL string) (gorm.Dialector, error) {
	parsed, err := url.Parse(storeURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse store url: %w", err)
	}

	switch parsed.Scheme {
	case "sqlite", "sqlite3":
		return gormlite.Open(strings.TrimPrefix(storeURL, parsed.Scheme+"://")), nil
	case "postgres", "postgresql":
		return postgres.Open(storeURL), nil
	case "mysql":
		return mysql.Open(strings.TrimPrefix(storeURL, "mysql://")), nil
	case "sqlserver", "mssql":
		return sqlserver.Open(strings.Replace(storeURL, "mssql://", "sqlserver://", 1)), nil
	default:
		return nil, fmt.Errorf("unsupported store url scheme %q", parsed.Scheme)
	}
}

func NewSQLStore(logger *logrus.Logger, storeURL string) (*Store, error) {
	dialector, err := NewDialector(storeURL)
	if err != nil {
		return nil, err
	}

	database, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: NewLoggerAdaptor(logger, LoggerAdaptorConfig{
			SlowThreshold:             500 * time.Millisecond,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %q: %w", Redact(storeURL), err)
	}

	if database.Dialector.Name() == "sqlite" {
		sqlDB, err := database.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database connection pool: %w", err)
		}

		// sqlite allows a single writer; a shared connection keeps transactions
		// from failing with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}

	return &Store{db: database, logger: logger}, nil
}

// Redact masks the password of a store URL for logging.
func Redact(storeURL string) string {
	parsed, err := url.Parse(storeURL)
	if err != nil || parsed.User == nil {
		return storeURL
	}

	return parsed.Redacted()
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection pool: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
