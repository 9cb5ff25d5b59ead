// Package enricher fills in a record's optional fields from its own
// detail page: mileage, engine, bathroom configuration, stock number,
// virtual tour link, dealer contact, a richer image set, and a price
// backfill when the listing page carried none.
package enricher

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/prevostgo/prevostgo/internal/fetcher"
	"github.com/prevostgo/prevostgo/internal/inventory"
	"github.com/prevostgo/prevostgo/internal/logger"
	"github.com/prevostgo/prevostgo/internal/parser"
)

// Engine patterns in priority order: earlier entries win.
var engineRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(Volvo\s+\d+HP)`),
	regexp.MustCompile(`(?i)(Caterpillar\s+[^\n]+)`),
	regexp.MustCompile(`(?i)(Detroit\s+[^\n]+)`),
	regexp.MustCompile(`(?i)(\d+HP\s+[^\n]+)`),
}

// Detail-page price phrasings in priority order. A labelled price beats
// a bare dollar figure buried in the description.
var detailPricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`Price:\s*\$\s*([\d,]+)`),
	regexp.MustCompile(`Asking\s+Price:\s*\$\s*([\d,]+)`),
	regexp.MustCompile(`\$\s*([\d,]+)`),
}

var (
	mileagePattern = regexp.MustCompile(`([\d,]+)\s*Miles`)
	stockPattern   = regexp.MustCompile(`#(\d+)`)
	tourPattern    = regexp.MustCompile(`https?://\S*matterport\.com\S*`)
	phonePattern   = regexp.MustCompile(`\d{3}-\d{3}-\d{4}`)
	emailPattern   = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// Image sources containing any of these are chrome or ads, not coach
// media. The detail pass also skips thumbnails: it is after the
// full-size gallery.
var skipImageParts = []string{"thumb", "logo", "icon", "banner", "button", "spacer"}

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// Config controls enrichment.
type Config struct {
	// Band is the price sanity window for backfill. The detail band is
	// narrower at the bottom than the listing band: detail pages quote
	// fees and deposits in the low tens of thousands.
	Band parser.PriceBand
	// Delay is the politeness pause between detail fetches.
	Delay time.Duration
	// MinImageWidth excludes decorative thumbnails when a width
	// attribute is present. Zero means 100.
	MinImageWidth int
}

// DefaultDetailBand is the backfill sanity window.
func DefaultDetailBand() parser.PriceBand {
	return parser.PriceBand{MinDollars: 50_000, MaxDollars: 5_000_000}
}

// Enricher performs the optional second fetch pass.
type Enricher struct {
	fetcher  fetcher.Fetcher
	band     parser.PriceBand
	limiter  *rate.Limiter
	minWidth int
}

// New creates an Enricher around f.
func New(f fetcher.Fetcher, cfg Config) *Enricher {
	if cfg.Band == (parser.PriceBand{}) {
		cfg.Band = DefaultDetailBand()
	}
	if cfg.MinImageWidth == 0 {
		cfg.MinImageWidth = 100
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.Delay), 1)
	}
	return &Enricher{
		fetcher:  f,
		band:     cfg.Band,
		limiter:  limiter,
		minWidth: cfg.MinImageWidth,
	}
}

// Enrich fetches the record's detail page and fills optional fields in
// place. The fetch is throttled; a fetch failure is returned so the
// caller can log and move on — the record stays valid without
// enrichment.
func (e *Enricher) Enrich(ctx context.Context, rec *inventory.Record) error {
	if rec.ListingURL == "" {
		return nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}

	content, err := e.fetcher.Fetch(ctx, rec.ListingURL)
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content.HTML))
	if err != nil {
		return err
	}

	text := flattenText(doc)

	if m := mileagePattern.FindStringSubmatch(text); m != nil {
		if miles, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			rec.Mileage = miles
		}
	}

	for _, rule := range engineRules {
		if m := rule.FindStringSubmatch(text); m != nil {
			rec.Engine = strings.TrimSpace(m[1])
			break
		}
	}

	if strings.Contains(text, "Bath and a Half") {
		rec.BathroomConfig = "Bath and a Half"
		rec.AddFeature("Bath and a Half")
	} else if strings.Contains(text, "Full Bath") {
		rec.BathroomConfig = "Full Bath"
		rec.AddFeature("Full Bath")
	}

	if m := stockPattern.FindStringSubmatch(text); m != nil {
		rec.StockNumber = m[1]
	}
	if m := tourPattern.FindString(text); m != "" {
		rec.VirtualTourURL = m
	}
	if m := phonePattern.FindString(text); m != "" {
		rec.DealerPhone = m
	}
	if m := emailPattern.FindString(text); m != "" {
		rec.DealerEmail = strings.ToLower(m)
	}

	if images := e.collectImages(doc, rec.ListingURL); len(images) > 0 {
		rec.Images = images
	}

	if !rec.HasPrice() && rec.Status == inventory.StatusAvailable {
		e.backfillPrice(rec, text)
	}

	logger.Debug("listing enriched",
		"id", rec.Identity,
		"images", len(rec.Images),
		"mileage", rec.Mileage,
		"has_price", rec.HasPrice())
	return nil
}

// backfillPrice re-runs price extraction against the detail page text.
// Every candidate figure is checked against the band; the first one
// inside it wins.
func (e *Enricher) backfillPrice(rec *inventory.Record, text string) {
	for _, pattern := range detailPricePatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			dollars, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
			if err != nil || !e.band.Contains(dollars) {
				continue
			}
			cents := dollars * 100
			rec.PriceCents = &cents
			rec.PriceStatus = inventory.PriceAvailable
			rec.PriceDisplay = "$" + groupDigits(dollars)
			return
		}
	}
}

// collectImages gathers every content image on the page: <img> sources
// plus direct links to image files, absolute and deduplicated in
// discovery order.
func (e *Enricher) collectImages(doc *goquery.Document, pageURL string) []string {
	base, _ := url.Parse(pageURL)
	seen := make(map[string]struct{})
	var images []string

	add := func(raw string) {
		abs := resolveURL(base, raw)
		if abs == "" {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		images = append(images, abs)
	}

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if src == "" || !isImageFile(src) || isSkippedImage(src) {
			return
		}
		if w, ok := img.Attr("width"); ok {
			if width, err := strconv.Atoi(strings.TrimSpace(w)); err == nil && width < e.minWidth {
				return
			}
		}
		add(src)
	})

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" || !isImageFile(href) || isSkippedImage(href) {
			return
		}
		add(href)
	})

	return images
}

func isImageFile(s string) bool {
	lower := strings.ToLower(s)
	for _, ext := range imageExtensions {
		if strings.Contains(lower, ext) {
			return true
		}
	}
	return false
}

func isSkippedImage(s string) bool {
	lower := strings.ToLower(s)
	for _, part := range skipImageParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

func resolveURL(base *url.URL, raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	if base == nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// flattenText extracts the page text with one line per text node, so
// token-boundary patterns (mileage, phone numbers) survive markup that
// puts labels and values in adjacent cells.
func flattenText(doc *goquery.Document) string {
	var b strings.Builder
	for _, root := range doc.Nodes {
		walkText(root, &b)
	}
	return b.String()
}

func walkText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			b.WriteString(t)
			b.WriteByte('\n')
		}
		return
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript":
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, b)
	}
}

// groupDigits formats dollars with comma grouping for display.
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	return s + "," + strings.Join(parts, ",")
}
