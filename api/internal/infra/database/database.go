package database

import (
	"context"
	"errors"
	"fmt"
	"mashub/api/internal/config"
	"mashub/api/internal/domain"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DRIVER_POSTGRES = "postgres"
	DRIVER_MYSQL    = "mysql"
	DRIVER_SQLITE   = "sqlite"
)

func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DRIVER_POSTGRES:
		return postgres.Open(dsn), nil
	case DRIVER_MYSQL:
		return mysql.Open(dsn), nil
	case DRIVER_SQLITE:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unknown db driver: %s", driver)
	}
}

// Open connects without migrating.
func Open(driver, dsn string) (*gorm.DB, error) {
	dialector, err := Dialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	if driver == DRIVER_SQLITE {
		// sqlite allows one writer; a single connection keeps in-memory databases shared
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(domain.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func Init(config *config.Config) (*gorm.DB, error) {
	db, err := Open(config.DB.Driver, config.DB.Dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// InitTest opens a fresh migrated in-memory sqlite database.
func InitTest() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := Open(DRIVER_SQLITE, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func DropTables(db *gorm.DB) error {
	return db.Migrator().DropTable(domain.AllModels()...)
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitPgxPool is used by the postgres sweep lease, which needs a session
// scoped advisory lock outside of gorm's pool.
func InitPgxPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgx ping: %w", err)
	}
	return pool, nil
}

func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrRecordNotFound)
}
