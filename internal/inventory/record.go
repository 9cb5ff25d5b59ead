// Package inventory defines the domain types shared by the ingestion
// pipeline: raw parse output, the normalized coach record, and the
// batch summary returned to callers.
package inventory

import "time"

// Condition is the coach condition derived from title markers.
type Condition string

// Status is the listing availability status.
type Status string

// PriceStatus qualifies the parsed price.
type PriceStatus string

const (
	ConditionNew      Condition = "new"
	ConditionPreOwned Condition = "pre-owned"

	StatusAvailable Status = "available"
	StatusSold      Status = "sold"

	PriceAvailable       PriceStatus = "available"
	PriceContactForPrice PriceStatus = "contact_for_price"
	PriceSold            PriceStatus = "sold"
)

// ContactForPrice is the display text used when no usable price exists.
const ContactForPrice = "Contact for Price"

// RawBlock is the unstructured output of the listing-page parser for a
// single row. It is transient: the normalizer consumes it and it is
// discarded.
type RawBlock struct {
	Title        string
	DetailURL    string            // absolute
	ThumbnailURL string            // may be empty
	Fields       map[string]string // label -> free-text value (Seller, Model, ...)
}

// Record is the normalized unit of record for one coach listing.
//
// Identity and Year are immutable once assigned; everything else may be
// rewritten by a later scrape, subject to the reconciler's policy.
type Record struct {
	Identity string `json:"id"`
	Title    string `json:"title"`
	Year     int    `json:"year"`

	Model       string    `json:"model"`
	ChassisType string    `json:"chassis_type"`
	Converter   string    `json:"converter"`
	Condition   Condition `json:"condition"`
	Status      Status    `json:"status"`

	PriceCents   *int64      `json:"price,omitempty"` // present only when PriceStatus == available
	PriceStatus  PriceStatus `json:"price_status"`
	PriceDisplay string      `json:"price_display"`

	SlideCount int      `json:"slide_count"`
	Features   []string `json:"features"`
	Images     []string `json:"images"` // discovery order, first is primary

	DealerName  string `json:"dealer_name,omitempty"`
	DealerState string `json:"dealer_state,omitempty"`
	DealerPhone string `json:"dealer_phone,omitempty"`
	DealerEmail string `json:"dealer_email,omitempty"`

	Mileage        int    `json:"mileage,omitempty"`
	Engine         string `json:"engine,omitempty"`
	BathroomConfig string `json:"bathroom_config,omitempty"`
	StockNumber    string `json:"stock_number,omitempty"`
	VirtualTourURL string `json:"virtual_tour_url,omitempty"`

	Source     string `json:"source"`
	ListingURL string `json:"listing_url"`

	ScrapedAt time.Time `json:"scraped_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddFeature appends a feature string unless it is empty or already
// present.
func (r *Record) AddFeature(feature string) {
	if feature == "" {
		return
	}
	for _, f := range r.Features {
		if f == feature {
			return
		}
	}
	r.Features = append(r.Features, feature)
}

// HasPrice reports whether an accepted asking price is attached.
func (r *Record) HasPrice() bool {
	return r.PriceCents != nil
}

// Summary is the result of one ingestion run.
type Summary struct {
	ListingsFound int `json:"listings_found"`
	Inserted      int `json:"inserted_count"`
	Updated       int `json:"updated_count"`
	Skipped       int `json:"skipped_count"`
}
