package domain

import (
	"github.com/shopspring/decimal"
)

const DefaultStoreID = "walmart_001"

const DefaultPickupWindow = "Today 2 PM - 5 PM"

type Product struct {
	ProductID            string `json:"productId" yaml:"productId"`
	Name                 string `json:"name" yaml:"name"`
	Category             string `json:"category" yaml:"category"`
	TypicalShelfLifeDays int    `json:"typicalShelfLifeDays" yaml:"typicalShelfLifeDays"`
	Unit                 string `json:"unit" yaml:"unit"`
}

// InventoryItem is one received batch of a product at a store.
// Status is a cached projection of ExpiryDate; see Classify.
type InventoryItem struct {
	InventoryItemID string          `db:"id" json:"inventoryItemId"`
	ProductID       string          `db:"product_id" json:"productId"`
	StoreID         string          `db:"store_id" json:"storeId"`
	Quantity        int             `db:"quantity" json:"quantity"`
	PurchaseDate    string          `db:"purchase_date" json:"purchaseDate"`
	ExpiryDate      string          `db:"expiry_date" json:"expiryDate"`
	Status          InventoryStatus `db:"status" json:"status"`
	ProductName     string          `db:"product_name" json:"productName"`
	Unit            string          `db:"unit" json:"unit"`
}

type CrateStatus string

const (
	CrateListed        CrateStatus = "listed"
	CrateOfferReceived CrateStatus = "offerReceived"
	CrateSold          CrateStatus = "sold"
)

// OpenForOffers reports whether new offers may be attached.
func (s CrateStatus) OpenForOffers() bool {
	return s == CrateListed || s == CrateOfferReceived
}

type CrateItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// SurplusCrate is a bundle listed for sale. SoldToBusinessID and FinalPrice
// are set iff Status is CrateSold.
type SurplusCrate struct {
	CrateID          string           `json:"crateId"`
	StoreID          string           `json:"storeId"`
	Items            []CrateItem      `json:"items"`
	ListingPrice     decimal.Decimal  `json:"listingPrice"`
	PickupWindow     string           `json:"pickupWindow"`
	Status           CrateStatus      `json:"status"`
	ListedAt         string           `json:"listedAt"`
	SoldToBusinessID *string          `json:"soldToBusinessId"`
	FinalPrice       *decimal.Decimal `json:"finalPrice"`
}

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

// ParseDecision accepts only the two terminal offer states.
func ParseDecision(s string) (OfferStatus, bool) {
	switch OfferStatus(s) {
	case OfferAccepted, OfferRejected:
		return OfferStatus(s), true
	}
	return "", false
}

type Offer struct {
	OfferID    string          `db:"id" json:"offerId"`
	CrateID    string          `db:"crate_id" json:"-"`
	BusinessID string          `db:"business_id" json:"businessId"`
	OfferPrice decimal.Decimal `db:"offer_price" json:"offerPrice"`
	Status     OfferStatus     `db:"status" json:"status"`
	OfferedAt  string          `db:"offered_at" json:"offeredAt"`
}

type LocalBusiness struct {
	BusinessID  string   `json:"businessId"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Address     string   `json:"address"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Preferences []string `json:"preferences"`
}
