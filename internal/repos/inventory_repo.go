package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"wastenot/internal/domain"
)

type InventoryRepo struct{ db *sqlx.DB }

func NewInventoryRepo(db *sqlx.DB) *InventoryRepo { return &InventoryRepo{db: db} }

const inventoryCols = `id, product_id, store_id, quantity, purchase_date, expiry_date, status, product_name, unit`

func (r *InventoryRepo) Create(ctx context.Context, it domain.InventoryItem) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO inventory_items(`+inventoryCols+`)
		VALUES (:id, :product_id, :store_id, :quantity, :purchase_date, :expiry_date, :status, :product_name, :unit)
	`, it)
	return storeErr(err)
}

func (r *InventoryRepo) Get(ctx context.Context, id string) (domain.InventoryItem, error) {
	var it domain.InventoryItem
	err := r.db.GetContext(ctx, &it, r.db.Rebind(`SELECT `+inventoryCols+` FROM inventory_items WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return it, domain.NotFound("inventoryItem", id)
	}
	return it, storeErr(err)
}

// ListByStore returns every batch held by a store, earliest expiry first.
func (r *InventoryRepo) ListByStore(ctx context.Context, storeID string) ([]domain.InventoryItem, error) {
	var out []domain.InventoryItem
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
		SELECT `+inventoryCols+`
		FROM inventory_items
		WHERE store_id = ?
		ORDER BY expiry_date ASC, id ASC
	`), storeID)
	return out, storeErr(err)
}

// InStock returns batches of a product at a store with quantity > 0, earliest expiry first.
func (r *InventoryRepo) InStock(ctx context.Context, productID, storeID string) ([]domain.InventoryItem, error) {
	var out []domain.InventoryItem
	err := r.db.SelectContext(ctx, &out, r.db.Rebind(`
		SELECT `+inventoryCols+`
		FROM inventory_items
		WHERE product_id = ? AND store_id = ? AND quantity > 0
		ORDER BY expiry_date ASC, id ASC
	`), productID, storeID)
	return out, storeErr(err)
}

// Qty returns the current quantity of one batch.
func (r *InventoryRepo) Qty(ctx context.Context, id string) (int, error) {
	var qty int
	err := r.db.GetContext(ctx, &qty, r.db.Rebind(`SELECT quantity FROM inventory_items WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NotFound("inventoryItem", id)
	}
	return qty, storeErr(err)
}

// CompareAndSetQty writes next only if the batch still holds expected.
// It reports false when another writer got there first.
func (r *InventoryRepo) CompareAndSetQty(ctx context.Context, id string, expected, next int) (bool, error) {
	if next < 0 {
		return false, domain.InvalidInput("quantity", "must not be negative")
	}
	return affected(r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE inventory_items
		SET quantity = ?
		WHERE id = ? AND quantity = ?
	`), next, id, expected))
}

// RefreshStatus replaces a stale cached status; a concurrent refresh wins silently.
func (r *InventoryRepo) RefreshStatus(ctx context.Context, id string, from, to domain.InventoryStatus) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE inventory_items SET status = ? WHERE id = ? AND status = ?
	`), to, id, from)
	return storeErr(err)
}
