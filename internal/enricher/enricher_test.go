package enricher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prevostgo/prevostgo/internal/fetcher"
	"github.com/prevostgo/prevostgo/internal/inventory"
)

// stubFetcher serves canned HTML without touching the network.
type stubFetcher struct {
	html  string
	err   error
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string) (fetcher.Content, error) {
	s.calls++
	if s.err != nil {
		return fetcher.Content{}, s.err
	}
	return fetcher.Content{
		URL:        rawURL,
		HTML:       s.html,
		StatusCode: 200,
		FetchedAt:  time.Now(),
	}, nil
}

func readTestdata(t *testing.T, filename string) string {
	t.Helper()
	path := filepath.Join("testdata", filename)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read testdata %s: %v", filename, err)
	}
	return string(data)
}

func detailRecord() *inventory.Record {
	return &inventory.Record{
		Identity:   "abc123def456",
		Title:      "2015 Prevost H3-45 Vantare For Sale",
		Year:       2015,
		Status:     inventory.StatusAvailable,
		ListingURL: "https://www.prevost-stuff.com/2015PrevostH3VantareSale.html",
	}
}

func TestEnricher_Enrich_DetailPage(t *testing.T) {
	f := &stubFetcher{html: readTestdata(t, "detail.html")}
	e := New(f, Config{})

	rec := detailRecord()
	if err := e.Enrich(context.Background(), rec); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	if rec.Mileage != 45000 {
		t.Errorf("Mileage = %d, want 45000", rec.Mileage)
	}
	if rec.Engine != "Volvo 500HP" {
		t.Errorf("Engine = %q, want Volvo 500HP", rec.Engine)
	}
	if rec.BathroomConfig != "Bath and a Half" {
		t.Errorf("BathroomConfig = %q", rec.BathroomConfig)
	}
	if rec.StockNumber != "12345" {
		t.Errorf("StockNumber = %q, want 12345", rec.StockNumber)
	}
	if rec.VirtualTourURL != "https://my.matterport.com/show/?m=abc123" {
		t.Errorf("VirtualTourURL = %q", rec.VirtualTourURL)
	}
	if rec.DealerPhone != "407-555-1212" {
		t.Errorf("DealerPhone = %q", rec.DealerPhone)
	}
	if rec.DealerEmail != "sales@vantarecoach.com" {
		t.Errorf("DealerEmail = %q, want lowercased address", rec.DealerEmail)
	}

	found := false
	for _, feat := range rec.Features {
		if feat == "Bath and a Half" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected bathroom feature, got %v", rec.Features)
	}
}

func TestEnricher_Enrich_Images(t *testing.T) {
	f := &stubFetcher{html: readTestdata(t, "detail.html")}
	e := New(f, Config{})

	rec := detailRecord()
	if err := e.Enrich(context.Background(), rec); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	want := []string{
		"https://www.prevost-stuff.com/images/2015coach1.jpg",
		"https://www.prevost-stuff.com/images/2015coach2.jpg",
	}
	if len(rec.Images) != len(want) {
		t.Fatalf("expected %d images, got %d: %v", len(want), len(rec.Images), rec.Images)
	}
	for i, url := range want {
		if rec.Images[i] != url {
			t.Errorf("image %d = %q, want %q", i, rec.Images[i], url)
		}
	}
}

func TestEnricher_Enrich_PriceBackfill(t *testing.T) {
	f := &stubFetcher{html: readTestdata(t, "detail.html")}
	e := New(f, Config{})

	rec := detailRecord()
	rec.PriceStatus = inventory.PriceContactForPrice

	if err := e.Enrich(context.Background(), rec); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	if rec.PriceCents == nil || *rec.PriceCents != 49_500_000 {
		t.Errorf("PriceCents = %v, want 49500000", rec.PriceCents)
	}
	if rec.PriceStatus != inventory.PriceAvailable {
		t.Errorf("PriceStatus = %q, want available", rec.PriceStatus)
	}
	if rec.PriceDisplay != "$495,000" {
		t.Errorf("PriceDisplay = %q, want $495,000", rec.PriceDisplay)
	}
}

func TestEnricher_Enrich_PriceBackfillSkipsOutOfBand(t *testing.T) {
	f := &stubFetcher{html: `<html><body>
		<p>Price: $2,500 deposit required</p>
		<p>Call for asking price.</p>
	</body></html>`}
	e := New(f, Config{})

	rec := detailRecord()
	rec.PriceStatus = inventory.PriceContactForPrice

	if err := e.Enrich(context.Background(), rec); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	if rec.PriceCents != nil {
		t.Errorf("PriceCents = %d, want nil for out-of-band figure", *rec.PriceCents)
	}
	if rec.PriceStatus != inventory.PriceContactForPrice {
		t.Errorf("PriceStatus = %q, want contact_for_price", rec.PriceStatus)
	}
}

func TestEnricher_Enrich_ExistingPriceKept(t *testing.T) {
	f := &stubFetcher{html: readTestdata(t, "detail.html")}
	e := New(f, Config{})

	rec := detailRecord()
	cents := int64(89_900_000)
	rec.PriceCents = &cents
	rec.PriceStatus = inventory.PriceAvailable
	rec.PriceDisplay = "$899,000"

	if err := e.Enrich(context.Background(), rec); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	// The listing-page price wins; the detail page never overwrites it.
	if rec.PriceCents == nil || *rec.PriceCents != 89_900_000 {
		t.Errorf("PriceCents = %v, want listing price kept", rec.PriceCents)
	}
	if rec.PriceDisplay != "$899,000" {
		t.Errorf("PriceDisplay = %q, want listing display kept", rec.PriceDisplay)
	}
}

func TestEnricher_Enrich_NoBackfillForSold(t *testing.T) {
	f := &stubFetcher{html: readTestdata(t, "detail.html")}
	e := New(f, Config{})

	rec := detailRecord()
	rec.Status = inventory.StatusSold
	rec.PriceStatus = inventory.PriceSold

	if err := e.Enrich(context.Background(), rec); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}

	if rec.PriceCents != nil {
		t.Errorf("PriceCents = %d, want nil for sold coach", *rec.PriceCents)
	}
	if rec.PriceStatus != inventory.PriceSold {
		t.Errorf("PriceStatus = %q, want sold", rec.PriceStatus)
	}
}

func TestEnricher_Enrich_FetchError(t *testing.T) {
	wantErr := errors.New("connection refused")
	f := &stubFetcher{err: wantErr}
	e := New(f, Config{})

	rec := detailRecord()
	if err := e.Enrich(context.Background(), rec); !errors.Is(err, wantErr) {
		t.Errorf("Enrich() error = %v, want %v", err, wantErr)
	}
}

func TestEnricher_Enrich_NoListingURL(t *testing.T) {
	f := &stubFetcher{html: readTestdata(t, "detail.html")}
	e := New(f, Config{})

	rec := detailRecord()
	rec.ListingURL = ""

	if err := e.Enrich(context.Background(), rec); err != nil {
		t.Fatalf("Enrich() error = %v", err)
	}
	if f.calls != 0 {
		t.Errorf("expected no fetch for a record without a detail URL, got %d", f.calls)
	}
}

func TestEnricher_Enrich_CancelledContext(t *testing.T) {
	f := &stubFetcher{html: readTestdata(t, "detail.html")}
	e := New(f, Config{Delay: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := detailRecord()
	if err := e.Enrich(ctx, rec); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestGroupDigits(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{500, "500"},
		{1500, "1,500"},
		{495000, "495,000"},
		{1250000, "1,250,000"},
	}

	for _, tt := range tests {
		if got := groupDigits(tt.n); got != tt.want {
			t.Errorf("groupDigits(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
