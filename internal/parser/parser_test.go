package parser

import (
	"os"
	"path/filepath"
	"testing"
)

// readTestdata reads a file from the testdata directory
func readTestdata(t *testing.T, filename string) string {
	t.Helper()
	path := filepath.Join("testdata", filename)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read testdata %s: %v", filename, err)
	}
	return string(data)
}

func TestParser_Blocks_ListingPage(t *testing.T) {
	html := readTestdata(t, "listing.html")

	p := New(Config{BaseURL: "https://www.prevost-stuff.com/"})
	blocks, err := p.Blocks(html)
	if err != nil {
		t.Fatalf("Blocks() error = %v", err)
	}

	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}

	first := blocks[0]
	if first.Title != "2015 Prevost H3-45 Vantare For Sale" {
		t.Errorf("unexpected title: %q", first.Title)
	}
	if first.DetailURL != "https://www.prevost-stuff.com/2015PrevostH3VantareSale.html" {
		t.Errorf("unexpected detail URL: %q", first.DetailURL)
	}
	if first.ThumbnailURL != "https://www.prevost-stuff.com/images/2015h345_thumb.jpg" {
		t.Errorf("unexpected thumbnail: %q", first.ThumbnailURL)
	}

	want := map[string]string{
		"Seller":    "Vantare Coach Sales",
		"Model":     "H3-45",
		"State":     "FL",
		"Price":     "$899,000",
		"Converter": "Vantare",
		"Slides":    "3",
	}
	for label, value := range want {
		if first.Fields[label] != value {
			t.Errorf("field %s: expected %q, got %q", label, value, first.Fields[label])
		}
	}
}

func TestParser_Blocks_DocumentOrder(t *testing.T) {
	html := readTestdata(t, "listing.html")

	p := New(Config{BaseURL: "https://www.prevost-stuff.com/"})
	blocks, err := p.Blocks(html)
	if err != nil {
		t.Fatalf("Blocks() error = %v", err)
	}

	years := []string{"2015", "2007", "2021"}
	for i, block := range blocks {
		if len(block.Title) < 4 || block.Title[:4] != years[i] {
			t.Errorf("block %d: expected year %s, got title %q", i, years[i], block.Title)
		}
	}
}

func TestParser_Blocks_MarkupSeparatedFields(t *testing.T) {
	html := readTestdata(t, "listing.html")

	p := New(Config{BaseURL: "https://www.prevost-stuff.com/"})
	blocks, err := p.Blocks(html)
	if err != nil {
		t.Fatalf("Blocks() error = %v", err)
	}

	// The third listing's labels are separated by <br> tags instead of
	// newlines. Each label still has to come out as its own field, not
	// one run-together Seller value.
	want := map[string]string{
		"Seller":    "Emerald Luxury Coaches",
		"Model":     "H3-45",
		"State":     "TX",
		"Price":     "Contact for Price",
		"Converter": "Emerald",
		"Slides":    "4",
	}
	got := blocks[2].Fields
	for label, value := range want {
		if got[label] != value {
			t.Errorf("field %s: expected %q, got %q", label, value, got[label])
		}
	}
	if len(got) != len(want) {
		t.Errorf("expected %d fields, got %d: %v", len(want), len(got), got)
	}
}

func TestParser_Blocks_SkipsChromeThumbnails(t *testing.T) {
	html := readTestdata(t, "listing.html")

	p := New(Config{BaseURL: "https://www.prevost-stuff.com/"})
	blocks, err := p.Blocks(html)
	if err != nil {
		t.Fatalf("Blocks() error = %v", err)
	}

	// The sold listing's row carries a nav button image before the real
	// thumbnail; the button must be skipped.
	sold := blocks[1]
	if sold.ThumbnailURL != "https://www.prevost-stuff.com/images/2007xlii_thumb.jpg" {
		t.Errorf("expected real thumbnail, got %q", sold.ThumbnailURL)
	}
}

func TestParser_Blocks_NoThumbnail(t *testing.T) {
	html := readTestdata(t, "listing.html")

	p := New(Config{BaseURL: "https://www.prevost-stuff.com/"})
	blocks, err := p.Blocks(html)
	if err != nil {
		t.Fatalf("Blocks() error = %v", err)
	}

	if blocks[2].ThumbnailURL != "" {
		t.Errorf("expected no thumbnail, got %q", blocks[2].ThumbnailURL)
	}
}

func TestParser_Blocks_EmptyPage(t *testing.T) {
	p := New(Config{BaseURL: "https://www.prevost-stuff.com/"})
	blocks, err := p.Blocks("<html><body><p>Nothing here</p></body></html>")
	if err != nil {
		t.Fatalf("Blocks() error = %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("expected 0 blocks, got %d", len(blocks))
	}
}

func TestParser_IsListing(t *testing.T) {
	p := New(Config{BaseURL: "https://www.prevost-stuff.com/"})

	tests := []struct {
		name  string
		title string
		url   string
		want  bool
	}{
		{"valid listing", "2015 Prevost H3-45 Vantare", "https://www.prevost-stuff.com/2015PrevostH3.html", true},
		{"year only in url", "Prevost H3-45 Vantare", "https://www.prevost-stuff.com/2015PrevostH3.html", true},
		{"empty title", "", "https://www.prevost-stuff.com/2015.html", false},
		{"bare brand", "Prevost", "https://www.prevost-stuff.com/2015.html", false},
		{"wrong brand", "2015 MCI J4500", "https://www.prevost-stuff.com/2015MCI.html", false},
		{"dealer nav page", "2015 Prevost Dealers", "https://www.prevost-stuff.com/Coach_Dealers.html", false},
		{"no year anywhere", "Prevost Parts Specials", "https://www.prevost-stuff.com/PrevostPartsSpecials.html", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.isListing(tt.title, tt.url); got != tt.want {
				t.Errorf("isListing(%q, %q) = %v, want %v", tt.title, tt.url, got, tt.want)
			}
		})
	}
}

func TestSplitField(t *testing.T) {
	tests := []struct {
		line  string
		label string
		value string
		ok    bool
	}{
		{"Price: $450,000", "Price", "$450,000", true},
		{"  Converter: Marathon  ", "Converter", "Marathon", true},
		{"Slides:", "Slides", "", true},
		{"Mileage: 45,000", "", "", false},
		{"just some text", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		label, value, ok := splitField(tt.line)
		if label != tt.label || value != tt.value || ok != tt.ok {
			t.Errorf("splitField(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.line, label, value, ok, tt.label, tt.value, tt.ok)
		}
	}
}

func TestParser_Resolve(t *testing.T) {
	p := New(Config{BaseURL: "https://www.prevost-stuff.com/"})

	tests := []struct {
		href string
		want string
	}{
		{"2015PrevostH3.html", "https://www.prevost-stuff.com/2015PrevostH3.html"},
		{"/images/coach.jpg", "https://www.prevost-stuff.com/images/coach.jpg"},
		{"https://other.example.com/page.html", "https://other.example.com/page.html"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := p.resolve(tt.href); got != tt.want {
			t.Errorf("resolve(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}
