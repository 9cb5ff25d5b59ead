package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/prevostgo/prevostgo/internal/inventory"
	"github.com/prevostgo/prevostgo/internal/logger"
)

var (
	pricePattern        = regexp.MustCompile(`\$\s*([\d,]+)`)
	slideFeaturePattern = regexp.MustCompile(`^\d+ Slides$`)
)

// PriceBand is the sanity window for accepted asking prices, in whole
// dollars, both bounds exclusive. The listing and detail pages embed
// unrelated dollar figures (fees, disclaimers) that must not be mistaken
// for the asking price.
type PriceBand struct {
	MinDollars int64
	MaxDollars int64
}

// DefaultListingBand matches the realistic range for used luxury coaches.
func DefaultListingBand() PriceBand {
	return PriceBand{MinDollars: 10_000, MaxDollars: 5_000_000}
}

// Contains reports whether d falls inside the band.
func (b PriceBand) Contains(d int64) bool {
	return d > b.MinDollars && d < b.MaxDollars
}

// ParsePrice extracts an asking price from free text.
//
// Text containing "sold" yields (nil, sold). Otherwise the first
// $<digits-with-grouping> token is parsed and accepted only inside the
// band; anything else yields (nil, contact_for_price), never a wrong
// price.
func ParsePrice(raw string, band PriceBand) (*int64, inventory.PriceStatus) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, inventory.PriceContactForPrice
	}
	if strings.Contains(strings.ToLower(raw), "sold") {
		return nil, inventory.PriceSold
	}

	m := pricePattern.FindStringSubmatch(raw)
	if m == nil {
		return nil, inventory.PriceContactForPrice
	}
	dollars, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	if err != nil || !band.Contains(dollars) {
		return nil, inventory.PriceContactForPrice
	}

	cents := dollars * 100
	return &cents, inventory.PriceAvailable
}

// ParseSlideCount accepts a literal digit or a named quantity
// (single/double/triple/quad). Unparsable input yields 0.
func ParseSlideCount(raw string) int {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		return n
	}
	if n, ok := slideWords[strings.ToLower(raw)]; ok {
		return n
	}
	return 0
}

// Normalizer turns raw blocks into typed records.
type Normalizer struct {
	source string
	band   PriceBand
	rules  Rules
	now    func() time.Time
}

// NormalizerConfig controls normalization.
type NormalizerConfig struct {
	Source string    // provenance tag, e.g. the source hostname
	Band   PriceBand // zero value means DefaultListingBand
	Rules  *Rules    // nil means DefaultRules
	Now    func() time.Time
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	if cfg.Band == (PriceBand{}) {
		cfg.Band = DefaultListingBand()
	}
	rules := DefaultRules()
	if cfg.Rules != nil {
		rules = *cfg.Rules
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Normalizer{source: cfg.Source, band: cfg.Band, rules: rules, now: now}
}

// Normalize builds a record from a raw block. It returns nil when the
// block cannot become a valid record (no year anywhere), and otherwise
// never fails: every malformed field degrades to its default.
func (n *Normalizer) Normalize(block inventory.RawBlock) *inventory.Record {
	year := extractYear(block.Title + block.DetailURL)
	if year == 0 {
		logger.Debug("block dropped, no year token", "title", block.Title)
		return nil
	}

	now := n.now().UTC()
	rec := &inventory.Record{
		Title:        block.Title,
		Year:         year,
		Converter:    "Unknown",
		DealerName:   "Unknown",
		DealerState:  "Unknown",
		PriceStatus:  inventory.PriceContactForPrice,
		PriceDisplay: inventory.ContactForPrice,
		Source:       n.source,
		ListingURL:   block.DetailURL,
		ScrapedAt:    now,
		UpdatedAt:    now,
	}

	rec.Condition, rec.Status = conditionStatus(block.Title)

	if v, ok := block.Fields["Seller"]; ok && v != "" {
		rec.DealerName = v
	}
	if v, ok := block.Fields["State"]; ok && v != "" {
		rec.DealerState = v
	}
	if v, ok := block.Fields["Converter"]; ok && v != "" {
		rec.Converter = v
	}

	rec.Model, rec.ChassisType = n.canonicalModel(block.Title, block.Fields["Model"])

	// Title feature rules run first so the slide count can override any
	// slide feature they produced.
	for _, rule := range n.rules.Features {
		if m := rule.Pattern.FindStringSubmatch(block.Title); m != nil {
			rec.AddFeature(rule.Feature(m))
		}
	}

	slides := ParseSlideCount(block.Fields["Slides"])
	if slides == 0 {
		slides = slideCountFromFeatures(rec.Features)
	}
	setSlideCount(rec, slides)

	if raw, ok := block.Fields["Price"]; ok {
		rec.PriceCents, rec.PriceStatus = ParsePrice(raw, n.band)
		if trimmed := strings.TrimSpace(raw); trimmed != "" && trimmed != "$" {
			rec.PriceDisplay = trimmed
		}
	}
	if rec.Status == inventory.StatusSold {
		rec.PriceCents = nil
		rec.PriceStatus = inventory.PriceSold
	}

	if block.ThumbnailURL != "" {
		rec.Images = []string{block.ThumbnailURL}
	}

	return rec
}

// canonicalModel matches the known model table against the title first
// (authoritative) and then the raw model field. Unmatched values pass
// through verbatim; nothing anywhere means Unknown.
func (n *Normalizer) canonicalModel(title, modelField string) (model, chassis string) {
	for _, m := range n.rules.Models {
		if containsFold(title, m) {
			return m, m
		}
	}
	for _, m := range n.rules.Models {
		if containsFold(modelField, m) {
			return m, m
		}
	}
	if modelField = strings.TrimSpace(modelField); modelField != "" {
		return modelField, modelField
	}
	return "Unknown", "Unknown"
}

// conditionStatus derives condition and status from title markers.
func conditionStatus(title string) (inventory.Condition, inventory.Status) {
	lower := strings.ToLower(title)
	if strings.Contains(lower, "(new)") {
		return inventory.ConditionNew, inventory.StatusAvailable
	}
	if strings.Contains(lower, "sold") {
		return inventory.ConditionPreOwned, inventory.StatusSold
	}
	return inventory.ConditionPreOwned, inventory.StatusAvailable
}

func extractYear(s string) int {
	m := yearPattern.FindString(s)
	if m == "" {
		return 0
	}
	year, _ := strconv.Atoi(m)
	return year
}

// setSlideCount records the slide count and keeps the feature set
// consistent with it: any slide feature with a different count is
// removed, and the matching one is inserted exactly once.
func setSlideCount(rec *inventory.Record, count int) {
	rec.SlideCount = count
	if count == 0 {
		return
	}
	want := strconv.Itoa(count) + " Slides"
	kept := rec.Features[:0]
	for _, f := range rec.Features {
		if slideFeaturePattern.MatchString(f) && f != want {
			continue
		}
		kept = append(kept, f)
	}
	rec.Features = kept
	rec.AddFeature(want)
}

// slideCountFromFeatures recovers a count already derived from title
// phrasing when the Slides field is absent.
func slideCountFromFeatures(features []string) int {
	for _, f := range features {
		if slideFeaturePattern.MatchString(f) {
			n, _ := strconv.Atoi(strings.TrimSuffix(f, " Slides"))
			return n
		}
	}
	return 0
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
