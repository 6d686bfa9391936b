package repos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"wastenot/internal/domain"
)

// OpenDB opens the store for driver ("sqlite" or "postgres") and applies the schema.
func OpenDB(driverName, dsn string) (*sqlx.DB, error) {
	if driverName == "" {
		driverName = "sqlite"
	}
	if driverName == "sqlite" && dsn != ":memory:" && !strings.Contains(dsn, "_pragma=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite" {
		// one writer; also keeps ":memory:" a single shared database
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	stmts := []string{`
CREATE TABLE IF NOT EXISTS inventory_items(
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  store_id TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity >= 0),
  purchase_date TEXT NOT NULL,
  expiry_date TEXT NOT NULL,
  status TEXT NOT NULL,
  product_name TEXT NOT NULL,
  unit TEXT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_fifo ON inventory_items(product_id, store_id, expiry_date)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_store ON inventory_items(store_id)`,
		`
CREATE TABLE IF NOT EXISTS surplus_crates(
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  items_json TEXT NOT NULL,
  listing_price TEXT NOT NULL,
  pickup_window TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('listed','offerReceived','sold')),
  listed_at TEXT NOT NULL,
  sold_to_business_id TEXT NULL,
  final_price TEXT NULL,
  CHECK ((status = 'sold') = (sold_to_business_id IS NOT NULL AND final_price IS NOT NULL))
)`,
		`CREATE INDEX IF NOT EXISTS idx_crates_store ON surplus_crates(store_id, listed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_crates_status ON surplus_crates(status, listed_at)`,
		`
CREATE TABLE IF NOT EXISTS offers(
  id TEXT PRIMARY KEY,
  crate_id TEXT NOT NULL REFERENCES surplus_crates(id) ON DELETE CASCADE,
  business_id TEXT NOT NULL,
  offer_price TEXT NOT NULL,
  status TEXT NOT NULL CHECK (status IN ('pending','accepted','rejected')),
  offered_at TEXT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_offers_crate ON offers(crate_id, status)`,
		`
CREATE TABLE IF NOT EXISTS local_businesses(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  type TEXT NOT NULL,
  address TEXT NOT NULL,
  lat DOUBLE PRECISION NOT NULL,
  lng DOUBLE PRECISION NOT NULL,
  preferences_json TEXT NOT NULL
)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

// Ping is called at operation entry so an unreachable store fails before any write.
func Ping(ctx context.Context, db *sqlx.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return domain.Unavailable(err)
	}
	return nil
}

// InTx runs fn in a transaction, committing on nil and rolling back otherwise.
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return storeErr(err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return storeErr(tx.Commit())
}

// storeErr maps connectivity failures to StorageUnavailable.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) ||
		strings.Contains(err.Error(), "database is closed") ||
		strings.Contains(err.Error(), "connection refused") {
		return domain.Unavailable(err)
	}
	return err
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, storeErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(err)
	}
	return n > 0, nil
}
