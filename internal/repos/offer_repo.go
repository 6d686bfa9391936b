package repos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"wastenot/internal/domain"
)

// OfferRepo stores offers scoped to their crate; every lookup takes the crate id.
type OfferRepo struct{ q sqlx.ExtContext }

func NewOfferRepo(db *sqlx.DB) *OfferRepo { return &OfferRepo{q: db} }

func (r *OfferRepo) With(tx *sqlx.Tx) *OfferRepo { return &OfferRepo{q: tx} }

const offerCols = `id, crate_id, business_id, offer_price, status, offered_at`

func (r *OfferRepo) Create(ctx context.Context, o domain.Offer) error {
	_, err := sqlx.NamedExecContext(ctx, r.q, `
		INSERT INTO offers(`+offerCols+`)
		VALUES (:id, :crate_id, :business_id, :offer_price, :status, :offered_at)
	`, o)
	return storeErr(err)
}

func (r *OfferRepo) Get(ctx context.Context, crateID, offerID string) (domain.Offer, error) {
	var o domain.Offer
	err := sqlx.GetContext(ctx, r.q, &o, r.q.Rebind(`
		SELECT `+offerCols+` FROM offers WHERE crate_id = ? AND id = ?
	`), crateID, offerID)
	if errors.Is(err, sql.ErrNoRows) {
		return o, domain.NotFound("offer", offerID)
	}
	return o, storeErr(err)
}

// ListByCrate returns a crate's offers, newest first.
func (r *OfferRepo) ListByCrate(ctx context.Context, crateID string) ([]domain.Offer, error) {
	var out []domain.Offer
	err := sqlx.SelectContext(ctx, r.q, &out, r.q.Rebind(`
		SELECT `+offerCols+`
		FROM offers
		WHERE crate_id = ?
		ORDER BY offered_at DESC, id DESC
	`), crateID)
	return out, storeErr(err)
}

// ListByStatus returns a crate's offers in one status, oldest first.
func (r *OfferRepo) ListByStatus(ctx context.Context, crateID string, status domain.OfferStatus) ([]domain.Offer, error) {
	var out []domain.Offer
	err := sqlx.SelectContext(ctx, r.q, &out, r.q.Rebind(`
		SELECT `+offerCols+`
		FROM offers
		WHERE crate_id = ? AND status = ?
		ORDER BY offered_at ASC, id ASC
	`), crateID, string(status))
	return out, storeErr(err)
}

// Resolve moves a pending offer to a terminal status.
// It reports false when the offer is no longer pending.
func (r *OfferRepo) Resolve(ctx context.Context, crateID, offerID string, to domain.OfferStatus) (bool, error) {
	return affected(r.q.ExecContext(ctx, r.q.Rebind(`
		UPDATE offers
		SET status = ?
		WHERE crate_id = ? AND id = ? AND status = ?
	`), string(to), crateID, offerID, string(domain.OfferPending)))
}
