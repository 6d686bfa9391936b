package repos

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"wastenot/internal/domain"
)

type CrateRepo struct{ q sqlx.ExtContext }

func NewCrateRepo(db *sqlx.DB) *CrateRepo { return &CrateRepo{q: db} }

// With binds the repo to a transaction.
func (r *CrateRepo) With(tx *sqlx.Tx) *CrateRepo { return &CrateRepo{q: tx} }

type crateRow struct {
	ID           string              `db:"id"`
	StoreID      string              `db:"store_id"`
	ItemsJSON    string              `db:"items_json"`
	ListingPrice decimal.Decimal     `db:"listing_price"`
	PickupWindow string              `db:"pickup_window"`
	Status       string              `db:"status"`
	ListedAt     string              `db:"listed_at"`
	SoldTo       sql.NullString      `db:"sold_to_business_id"`
	FinalPrice   decimal.NullDecimal `db:"final_price"`
}

const crateCols = `id, store_id, items_json, listing_price, pickup_window, status, listed_at, sold_to_business_id, final_price`

func (row crateRow) crate() (domain.SurplusCrate, error) {
	c := domain.SurplusCrate{
		CrateID:      row.ID,
		StoreID:      row.StoreID,
		ListingPrice: row.ListingPrice,
		PickupWindow: row.PickupWindow,
		Status:       domain.CrateStatus(row.Status),
		ListedAt:     row.ListedAt,
	}
	if err := json.Unmarshal([]byte(row.ItemsJSON), &c.Items); err != nil {
		return c, fmt.Errorf("crate %s: decode items: %w", row.ID, err)
	}
	if row.SoldTo.Valid {
		c.SoldToBusinessID = &row.SoldTo.String
	}
	if row.FinalPrice.Valid {
		p := row.FinalPrice.Decimal
		c.FinalPrice = &p
	}
	return c, nil
}

func (r *CrateRepo) Create(ctx context.Context, c domain.SurplusCrate) error {
	items, err := json.Marshal(c.Items)
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO surplus_crates(`+crateCols+`)
		VALUES (:id, :store_id, :items_json, :listing_price, :pickup_window, :status, :listed_at, NULL, NULL)
	`, crateRow{
		ID:           c.CrateID,
		StoreID:      c.StoreID,
		ItemsJSON:    string(items),
		ListingPrice: c.ListingPrice,
		PickupWindow: c.PickupWindow,
		Status:       string(c.Status),
		ListedAt:     c.ListedAt,
	})
	return storeErr(err)
}

func (r *CrateRepo) Get(ctx context.Context, id string) (domain.SurplusCrate, error) {
	var row crateRow
	err := sqlx.GetContext(ctx, r.q, &row, r.q.Rebind(`SELECT `+crateCols+` FROM surplus_crates WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SurplusCrate{}, domain.NotFound("crate", id)
	}
	if err != nil {
		return domain.SurplusCrate{}, storeErr(err)
	}
	return row.crate()
}

// ListByStore returns a store's crates, newest first.
func (r *CrateRepo) ListByStore(ctx context.Context, storeID string) ([]domain.SurplusCrate, error) {
	return r.list(ctx, `WHERE store_id = ?`, storeID)
}

// ListByStatus returns crates in one status, newest first.
func (r *CrateRepo) ListByStatus(ctx context.Context, status domain.CrateStatus) ([]domain.SurplusCrate, error) {
	return r.list(ctx, `WHERE status = ?`, string(status))
}

func (r *CrateRepo) list(ctx context.Context, where string, args ...any) ([]domain.SurplusCrate, error) {
	var rows []crateRow
	err := sqlx.SelectContext(ctx, r.q, &rows, r.q.Rebind(`
		SELECT `+crateCols+`
		FROM surplus_crates
		`+where+`
		ORDER BY listed_at DESC, id DESC
	`), args...)
	if err != nil {
		return nil, storeErr(err)
	}
	out := make([]domain.SurplusCrate, 0, len(rows))
	for _, row := range rows {
		c, err := row.crate()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// OpenForOffer promotes listed to offerReceived and leaves offerReceived as is.
// It reports false when the crate is missing or not open for offers.
func (r *CrateRepo) OpenForOffer(ctx context.Context, id string) (bool, error) {
	return affected(r.q.ExecContext(ctx, r.q.Rebind(`
		UPDATE surplus_crates
		SET status = ?
		WHERE id = ? AND status IN (?, ?)
	`), string(domain.CrateOfferReceived), id, string(domain.CrateListed), string(domain.CrateOfferReceived)))
}

// MarkSold transitions the crate to sold exactly once.
// It reports false when the crate is already sold.
func (r *CrateRepo) MarkSold(ctx context.Context, id, businessID string, price decimal.Decimal) (bool, error) {
	return affected(r.q.ExecContext(ctx, r.q.Rebind(`
		UPDATE surplus_crates
		SET status = ?, sold_to_business_id = ?, final_price = ?
		WHERE id = ? AND status <> ?
	`), string(domain.CrateSold), businessID, price, id, string(domain.CrateSold)))
}
