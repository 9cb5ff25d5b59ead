package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/prevostgo/prevostgo/internal/config"
	"github.com/prevostgo/prevostgo/internal/fetcher"
	"github.com/prevostgo/prevostgo/internal/logger"
	"github.com/prevostgo/prevostgo/internal/output"
	"github.com/prevostgo/prevostgo/internal/parser"
	"github.com/prevostgo/prevostgo/internal/pipeline"
	"github.com/prevostgo/prevostgo/internal/store"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one ingestion pass and print the batch summary",
	Long: `Fetch the listing page, normalize every coach row, optionally
enrich records from their detail pages, and reconcile the batch against
the store.

Examples:
  # Full run against the configured database
  prevostgo scrape

  # Enrich every available listing, not just the ones missing a price
  prevostgo scrape --enrich all

  # Inspect parser output without a database
  prevostgo scrape --dry-run --limit 10`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	defaults := config.Default()

	flags := scrapeCmd.Flags()
	flags.String("url", defaults.ListingURL, "listing page URL")
	flags.String("enrich", defaults.Enrich, "detail enrichment policy: all, missing-price, none")
	flags.Int("limit", 0, "max listings per run (0 = no limit)")
	flags.Duration("delay", defaults.DetailDelay, "pause between detail fetches")
	flags.Duration("timeout", defaults.FetchTimeout, "per-request timeout")
	flags.String("rules", "", "YAML rules file extending the built-in model/feature tables")
	flags.Bool("dry-run", false, "use an in-memory store instead of postgres")
	flags.String("out", "", "write scraped records to a file (json, jsonl or yaml by extension); implies --dry-run")

	_ = viper.BindPFlag("listing_url", flags.Lookup("url"))
	_ = viper.BindPFlag("enrich", flags.Lookup("enrich"))
	_ = viper.BindPFlag("limit", flags.Lookup("limit"))
	_ = viper.BindPFlag("detail_delay", flags.Lookup("delay"))
	_ = viper.BindPFlag("fetch_timeout", flags.Lookup("timeout"))
	_ = viper.BindPFlag("rules_file", flags.Lookup("rules"))
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	outPath, _ := cmd.Flags().GetString("out")
	if outPath != "" {
		dryRun = true
	}

	st, cleanup, err := openStore(cfg, dryRun)
	if err != nil {
		return err
	}
	defer cleanup()

	runner, err := buildRunner(cfg, st)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := runner.Run(ctx, pipeline.Overrides{})
	if err != nil {
		return err
	}

	if outPath != "" {
		if err := exportRecords(st, outPath); err != nil {
			return err
		}
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
	return nil
}

// exportRecords dumps the dry run's in-memory batch to a file.
func exportRecords(st store.Store, path string) error {
	mem, ok := st.(*store.Memory)
	if !ok {
		return fmt.Errorf("record export requires a dry run")
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := output.NewWriter(f, output.FormatForPath(path))
	if err != nil {
		return err
	}
	records := mem.All()
	if err := w.WriteAll(records); err != nil {
		return err
	}
	logger.Info("records exported", "path", path, "count", len(records))
	return nil
}

// openStore returns the record store and a cleanup func. Dry runs or a
// missing DSN fall back to the in-memory store.
func openStore(cfg config.Config, dryRun bool) (store.Store, func(), error) {
	if dryRun || cfg.DatabaseURL == "" {
		if !dryRun {
			logger.Warn("no database configured, records will not persist")
		}
		return store.NewMemory(), func() {}, nil
	}

	pg, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := pg.Ping(ctx); err != nil {
		pg.Close()
		return nil, nil, fmt.Errorf("database unreachable: %w", err)
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, nil, err
	}
	return pg, func() { pg.Close() }, nil
}

// buildRunner assembles the single-flight runner from the validated
// configuration.
func buildRunner(cfg config.Config, st store.Store) (*pipeline.Runner, error) {
	var rules *parser.Rules
	if cfg.RulesFile != "" {
		loaded, err := parser.LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		rules = &loaded
	}

	f := fetcher.NewStatic(fetcher.StaticConfig{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.FetchTimeout,
	})

	return pipeline.NewRunner(f, st, pipeline.Config{
		ListingURL:  cfg.ListingURL,
		Source:      cfg.Source,
		Brand:       cfg.Brand,
		ListingBand: parser.PriceBand{MinDollars: cfg.ListingPriceMin, MaxDollars: cfg.ListingPriceMax},
		DetailBand:  parser.PriceBand{MinDollars: cfg.DetailPriceMin, MaxDollars: cfg.DetailPriceMax},
		Rules:       rules,
		Enrich:      pipeline.EnrichPolicy(cfg.Enrich),
		DetailDelay: cfg.DetailDelay,
		Limit:       cfg.Limit,
	}), nil
}
