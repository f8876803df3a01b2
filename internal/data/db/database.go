package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/loopworks/traintrack-backend/internal/platform/envutil"
	"github.com/loopworks/traintrack-backend/internal/platform/logger"
)

type DatabaseService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewDatabaseService opens the primary store. Postgres is the default;
// DB_DRIVER=sqlite switches to a local file for development.
func NewDatabaseService(logg *logger.Logger) (*DatabaseService, error) {
	serviceLog := logg.With("service", "DatabaseService")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var (
		db  *gorm.DB
		err error
	)
	switch envutil.String("DB_DRIVER", "postgres") {
	case "sqlite":
		path := envutil.String("SQLITE_PATH", "traintrack.db")
		db, err = gorm.Open(sqlite.Open(path), &gorm.Config{
			Logger: gormLog,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite at %s: %w", path, err)
		}
	default:
		dsn := fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			envutil.String("POSTGRES_USER", "postgres"),
			envutil.String("POSTGRES_PASSWORD", ""),
			envutil.String("POSTGRES_HOST", "localhost"),
			envutil.String("POSTGRES_PORT", "5432"),
			envutil.String("POSTGRES_NAME", "traintrack"),
		)
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLog,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
	}

	return &DatabaseService{db: db, log: serviceLog}, nil
}

func (s *DatabaseService) DB() *gorm.DB { return s.db }
