package pipeline

import (
	"context"
	"errors"

	"github.com/prevostgo/prevostgo/internal/inventory"
	"github.com/prevostgo/prevostgo/internal/store"
)

// Outcome reports what the reconciler did with one record.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeUpdated
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	default:
		return "skipped"
	}
}

// Reconciler compares each normalized record against the stored record
// with the same identity and applies the conflict policy before
// delegating the write.
type Reconciler struct {
	store store.Store
}

// NewReconciler creates a Reconciler writing to st.
func NewReconciler(st store.Store) *Reconciler {
	return &Reconciler{store: st}
}

// Reconcile upserts one record.
//
// A stored record is rewritten only when it is not sold, or the new
// status differs, or the new scrape found more images. This protects a
// confirmed-sold listing from a transient re-scrape that still shows it
// available, while letting an explicit status change or a genuine
// enrichment land. A sold listing whose new status literally differs
// does flip back; that documented behavior is kept as-is.
func (r *Reconciler) Reconcile(ctx context.Context, rec *inventory.Record) (Outcome, error) {
	existing, err := r.store.Get(ctx, rec.Identity)
	if errors.Is(err, store.ErrNotFound) {
		if err := r.store.Insert(ctx, rec); err != nil {
			return OutcomeSkipped, err
		}
		return OutcomeInserted, nil
	}
	if err != nil {
		return OutcomeSkipped, err
	}

	if !qualifies(existing, rec) {
		return OutcomeSkipped, nil
	}

	merged := merge(existing, rec)
	if err := r.store.Update(ctx, merged); err != nil {
		return OutcomeSkipped, err
	}
	return OutcomeUpdated, nil
}

func qualifies(existing, rec *inventory.Record) bool {
	return existing.Status != inventory.StatusSold ||
		rec.Status != existing.Status ||
		len(rec.Images) > len(existing.Images)
}

// merge produces the updated row: the new scrape's mutable fields over
// the stored record. Identity and year are never rewritten, and
// enrichment fields the new scrape did not produce keep their stored
// values.
func merge(existing, rec *inventory.Record) *inventory.Record {
	out := *existing

	out.Title = rec.Title
	out.Status = rec.Status
	out.PriceCents = rec.PriceCents
	out.PriceStatus = rec.PriceStatus
	out.PriceDisplay = rec.PriceDisplay
	out.SlideCount = rec.SlideCount
	out.Features = rec.Features
	out.Images = rec.Images
	out.ListingURL = rec.ListingURL
	out.ScrapedAt = rec.ScrapedAt
	out.UpdatedAt = rec.UpdatedAt

	if rec.Mileage > 0 {
		out.Mileage = rec.Mileage
	}
	if rec.Engine != "" {
		out.Engine = rec.Engine
	}
	if rec.BathroomConfig != "" {
		out.BathroomConfig = rec.BathroomConfig
	}
	if rec.StockNumber != "" {
		out.StockNumber = rec.StockNumber
	}
	if rec.VirtualTourURL != "" {
		out.VirtualTourURL = rec.VirtualTourURL
	}
	if rec.DealerPhone != "" {
		out.DealerPhone = rec.DealerPhone
	}
	if rec.DealerEmail != "" {
		out.DealerEmail = rec.DealerEmail
	}

	return &out
}
