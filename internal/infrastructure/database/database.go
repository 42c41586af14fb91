package database

import (
	"strings"

	"harvest-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens a GORM DB from DSN. Postgres URLs use the pgx driver with
// PreferSimpleProtocol (poolers such as PgBouncer reject cached prepared
// statements); anything else is treated as a SQLite path.
func Open(dsn string) (*gorm.DB, error) {
	if isPostgres(dsn) {
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
	}
	return OpenSQLite(dsn)
}

// OpenSQLite opens a single-connection SQLite database. One connection keeps
// ":memory:" databases shared by every query and matches the single-writer ledger.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// Models lists every table owned by the ledger.
func Models() []interface{} {
	return []interface{}{
		&domain.Batch{},
		&domain.Auction{},
		&domain.Bid{},
		&domain.BidderAuction{},
		&domain.Escrow{},
		&domain.VaultSettings{},
		&domain.FarmerReputation{},
		&domain.BuyerReputation{},
		&domain.QualityFeedback{},
		&domain.SaleRecord{},
		&domain.TokenBalance{},
		&domain.TokenAllowance{},
		&domain.LedgerEvent{},
	}
}

// AutoMigrate runs migrations for all ledger models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Pinger adapts a gorm DB for health checks.
type Pinger struct {
	DB *gorm.DB
}

func (p *Pinger) Ping() error {
	if p == nil || p.DB == nil {
		return nil
	}
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
