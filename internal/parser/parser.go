// Package parser turns the listing page's loosely structured HTML rows
// into raw field blocks and normalizes them into typed coach records.
package parser

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/prevostgo/prevostgo/internal/inventory"
	"github.com/prevostgo/prevostgo/internal/logger"
)

// Labels matched case-sensitively inside a listing's detail sub-block.
// Anything else in the block is dropped.
var blockLabels = []string{"Seller", "Model", "State", "Price", "Converter", "Slides"}

// Navigation pages that also live under .html links on the listing page.
var skipPages = []string{
	"Coach_Dealers.html",
	"index.html",
	"about.html",
	"contact.html",
	"services.html",
}

// Image sources containing any of these are page chrome, not listing media.
var skipImageParts = []string{"logo", "button", "banner", "nav", "spacer"}

var yearPattern = regexp.MustCompile(`(19\d{2}|20\d{2})`)

// Config controls listing-page parsing.
type Config struct {
	BaseURL string // site root, used to resolve relative links
	Brand   string // brand token a listing title must contain
}

// Parser extracts raw listing blocks from the listing page.
type Parser struct {
	base  *url.URL
	brand string
}

// New creates a Parser. An unparsable BaseURL disables URL resolution
// rather than failing: relative links are then passed through verbatim.
func New(cfg Config) *Parser {
	if cfg.Brand == "" {
		cfg.Brand = "Prevost"
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		logger.Warn("invalid base URL, relative links will not resolve", "base_url", cfg.BaseURL)
		base = nil
	}
	return &Parser{base: base, brand: cfg.Brand}
}

// Blocks walks every structural row of the listing page and returns one
// RawBlock per plausible coach listing, in document order. Rows without
// a year token are dropped: year is load-bearing for identity, so a
// yearless row can never become a valid record.
func (p *Parser) Blocks(html string) ([]inventory.RawBlock, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var blocks []inventory.RawBlock

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find(`a[href*=".html"]`).First()
		if link.Length() == 0 {
			return
		}

		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		detailURL := p.resolve(href)

		if !p.isListing(title, detailURL) {
			return
		}

		block := inventory.RawBlock{
			Title:     title,
			DetailURL: detailURL,
			Fields:    map[string]string{},
		}

		// Nested detail sub-block: label/value pairs separated by cells.
		row.Find(`table[cellpadding="3"]`).First().Find("td").Each(func(_ int, cell *goquery.Selection) {
			for _, line := range textLines(cell) {
				label, value, ok := splitField(line)
				if !ok {
					continue
				}
				block.Fields[label] = value
			}
		})

		block.ThumbnailURL = p.thumbnail(row)

		blocks = append(blocks, block)
	})

	logger.Debug("listing page parsed", "blocks", len(blocks))
	return blocks, nil
}

// isListing filters out navigation links and rows that cannot become a
// valid record.
func (p *Parser) isListing(title, detailURL string) bool {
	if title == "" || title == p.brand {
		return false
	}
	if !strings.Contains(title, p.brand) {
		return false
	}
	for _, page := range skipPages {
		if strings.Contains(detailURL, page) {
			return false
		}
	}
	return yearPattern.MatchString(title + detailURL)
}

// textLines flattens a cell's text one entry per text node, so labels
// separated only by markup (<br>, nested tags) stay separate lines.
// Newlines inside a single text node split as well.
func textLines(sel *goquery.Selection) []string {
	var lines []string
	for _, node := range sel.Nodes {
		walkLines(node, &lines)
	}
	return lines
}

func walkLines(n *html.Node, lines *[]string) {
	if n.Type == html.TextNode {
		for _, line := range strings.Split(n.Data, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				*lines = append(*lines, line)
			}
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkLines(c, lines)
	}
}

// splitField matches one "Label: value" line against the fixed label set.
func splitField(line string) (label, value string, ok bool) {
	line = strings.TrimSpace(line)
	for _, l := range blockLabels {
		if rest, found := strings.CutPrefix(line, l+":"); found {
			return l, strings.TrimSpace(rest), true
		}
	}
	return "", "", false
}

// thumbnail returns the first content image in the row, or "".
func (p *Parser) thumbnail(row *goquery.Selection) string {
	var thumb string
	row.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, exists := img.Attr("src")
		if !exists || src == "" {
			return true
		}
		lower := strings.ToLower(src)
		for _, part := range skipImageParts {
			if strings.Contains(lower, part) {
				return true
			}
		}
		thumb = p.resolve(src)
		return false
	})
	return thumb
}

// resolve makes a link absolute relative to the site root.
func (p *Parser) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || p.base == nil {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	return p.base.ResolveReference(u).String()
}
