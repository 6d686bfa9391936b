package domain

import "time"

type InventoryStatus string

const (
	StatusExpired           InventoryStatus = "expired"
	StatusAtRisk            InventoryStatus = "atRisk"
	StatusNearingExpiry     InventoryStatus = "nearingExpiry"
	StatusFresh             InventoryStatus = "fresh"
	StatusUnknownDateFormat InventoryStatus = "unknown_date_format"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02T15:04:05"
)

// AtRisk reports whether the status belongs in the at-risk listing.
func (s InventoryStatus) AtRisk() bool {
	return s == StatusAtRisk || s == StatusNearingExpiry || s == StatusExpired
}

// ExpiryDate adds the shelf life to a YYYY-MM-DD purchase date.
func ExpiryDate(purchaseDate string, shelfLifeDays int) (string, error) {
	p, err := time.Parse(DateLayout, purchaseDate)
	if err != nil {
		return "", InvalidInput("purchaseDate", "invalid format, use YYYY-MM-DD")
	}
	return p.AddDate(0, 0, shelfLifeDays).Format(TimestampLayout), nil
}

// Classify buckets an expiry timestamp by whole calendar days from now.
func Classify(expiryDate string, now time.Time) InventoryStatus {
	exp, ok := parseExpiry(expiryDate)
	if !ok {
		return StatusUnknownDateFormat
	}
	switch d := daysBetween(now, exp); {
	case d < 0:
		return StatusExpired
	case d < 3:
		return StatusAtRisk
	case d < 7:
		return StatusNearingExpiry
	default:
		return StatusFresh
	}
}

func parseExpiry(s string) (time.Time, bool) {
	for _, layout := range []string{TimestampLayout, "2006-01-02T15:04:05.999999", time.RFC3339, DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// daysBetween compares dates only; the time of day is ignored on both sides.
func daysBetween(from, to time.Time) int {
	from = from.UTC()
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
