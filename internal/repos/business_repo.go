package repos

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"wastenot/internal/domain"
	applog "wastenot/internal/log"
)

type BusinessRepo struct{ db *sqlx.DB }

func NewBusinessRepo(db *sqlx.DB) *BusinessRepo { return &BusinessRepo{db: db} }

type businessRow struct {
	ID              string  `db:"id"`
	Name            string  `db:"name"`
	Type            string  `db:"type"`
	Address         string  `db:"address"`
	Lat             float64 `db:"lat"`
	Lng             float64 `db:"lng"`
	PreferencesJSON string  `db:"preferences_json"`
}

func (r *BusinessRepo) Create(ctx context.Context, b domain.LocalBusiness) error {
	prefs := b.Preferences
	if prefs == nil {
		prefs = []string{}
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO local_businesses(id, name, type, address, lat, lng, preferences_json)
		VALUES (:id, :name, :type, :address, :lat, :lng, :preferences_json)
	`, businessRow{
		ID: b.BusinessID, Name: b.Name, Type: b.Type, Address: b.Address,
		Lat: b.Lat, Lng: b.Lng, PreferencesJSON: string(raw),
	})
	return storeErr(err)
}

// List returns every business ordered by name. Rows with undecodable
// preferences are returned with an empty preference list.
func (r *BusinessRepo) List(ctx context.Context) ([]domain.LocalBusiness, error) {
	var rows []businessRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT id, name, type, address, lat, lng, preferences_json
		FROM local_businesses
		ORDER BY name, id
	`); err != nil {
		return nil, storeErr(err)
	}
	out := make([]domain.LocalBusiness, 0, len(rows))
	for _, row := range rows {
		b := domain.LocalBusiness{
			BusinessID: row.ID, Name: row.Name, Type: row.Type, Address: row.Address,
			Lat: row.Lat, Lng: row.Lng, Preferences: []string{},
		}
		if err := json.Unmarshal([]byte(row.PreferencesJSON), &b.Preferences); err != nil {
			applog.Warn(nil, "business.preferences.decode", err, map[string]any{"business_id": row.ID})
			b.Preferences = []string{}
		}
		out = append(out, b)
	}
	return out, nil
}
