package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/prevostgo/prevostgo/internal/inventory"
)

// Postgres persists records in a coaches table keyed by identity.
type Postgres struct {
	db *sql.DB
}

// Open connects to Postgres via the pgx stdlib driver.
func Open(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Postgres{db: db}, nil
}

// Ping verifies connectivity.
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Close releases the connection pool.
func (p *Postgres) Close() error { return p.db.Close() }

// Migrate creates the coaches table and its indexes.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS coaches (
			id               TEXT PRIMARY KEY,
			title            TEXT NOT NULL,
			year             INTEGER NOT NULL,
			model            TEXT NOT NULL DEFAULT 'Unknown',
			chassis_type     TEXT NOT NULL DEFAULT 'Unknown',
			converter        TEXT NOT NULL DEFAULT 'Unknown',
			condition        TEXT NOT NULL DEFAULT 'pre-owned',
			status           TEXT NOT NULL DEFAULT 'available',
			price            BIGINT,
			price_display    TEXT NOT NULL DEFAULT 'Contact for Price',
			price_status     TEXT NOT NULL DEFAULT 'contact_for_price',
			slide_count      INTEGER NOT NULL DEFAULT 0,
			features         JSONB NOT NULL DEFAULT '[]'::jsonb,
			images           JSONB NOT NULL DEFAULT '[]'::jsonb,
			dealer_name      TEXT NOT NULL DEFAULT 'Unknown',
			dealer_state     TEXT NOT NULL DEFAULT 'Unknown',
			dealer_phone     TEXT NOT NULL DEFAULT '',
			dealer_email     TEXT NOT NULL DEFAULT '',
			mileage          INTEGER,
			engine           TEXT NOT NULL DEFAULT '',
			bathroom_config  TEXT NOT NULL DEFAULT '',
			stock_number     TEXT NOT NULL DEFAULT '',
			virtual_tour_url TEXT NOT NULL DEFAULT '',
			listing_url      TEXT NOT NULL DEFAULT '',
			source           TEXT NOT NULL DEFAULT '',
			scraped_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_coaches_status ON coaches(status);
		CREATE INDEX IF NOT EXISTS idx_coaches_year ON coaches(year);
		CREATE INDEX IF NOT EXISTS idx_coaches_converter ON coaches(converter);
	`)
	if err != nil {
		return fmt.Errorf("migrate coaches: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, identity string) (*inventory.Record, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, title, year, model, chassis_type, converter, condition, status,
		       price, price_display, price_status, slide_count, features, images,
		       dealer_name, dealer_state, dealer_phone, dealer_email,
		       mileage, engine, bathroom_config, stock_number, virtual_tour_url,
		       listing_url, source, scraped_at, updated_at
		FROM coaches WHERE id = $1
	`, identity)

	var (
		rec      inventory.Record
		price    sql.NullInt64
		mileage  sql.NullInt64
		features []byte
		images   []byte
	)
	err := row.Scan(
		&rec.Identity, &rec.Title, &rec.Year, &rec.Model, &rec.ChassisType,
		&rec.Converter, &rec.Condition, &rec.Status,
		&price, &rec.PriceDisplay, &rec.PriceStatus, &rec.SlideCount,
		&features, &images,
		&rec.DealerName, &rec.DealerState, &rec.DealerPhone, &rec.DealerEmail,
		&mileage, &rec.Engine, &rec.BathroomConfig, &rec.StockNumber,
		&rec.VirtualTourURL, &rec.ListingURL, &rec.Source,
		&rec.ScrapedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get coach %s: %w", identity, err)
	}

	if price.Valid {
		rec.PriceCents = &price.Int64
	}
	if mileage.Valid {
		rec.Mileage = int(mileage.Int64)
	}
	if err := json.Unmarshal(features, &rec.Features); err != nil {
		return nil, fmt.Errorf("coach %s features: %w", identity, err)
	}
	if err := json.Unmarshal(images, &rec.Images); err != nil {
		return nil, fmt.Errorf("coach %s images: %w", identity, err)
	}
	return &rec, nil
}

func (p *Postgres) Insert(ctx context.Context, rec *inventory.Record) error {
	features, images, err := marshalLists(rec)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO coaches (
			id, title, year, model, chassis_type, converter, condition, status,
			price, price_display, price_status, slide_count, features, images,
			dealer_name, dealer_state, dealer_phone, dealer_email,
			mileage, engine, bathroom_config, stock_number, virtual_tour_url,
			listing_url, source, scraped_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27
		)
	`,
		rec.Identity, rec.Title, rec.Year, rec.Model, rec.ChassisType,
		rec.Converter, rec.Condition, rec.Status,
		rec.PriceCents, rec.PriceDisplay, rec.PriceStatus, rec.SlideCount,
		features, images,
		rec.DealerName, rec.DealerState, rec.DealerPhone, rec.DealerEmail,
		nullInt(rec.Mileage), rec.Engine, rec.BathroomConfig, rec.StockNumber,
		rec.VirtualTourURL, rec.ListingURL, rec.Source,
		rec.ScrapedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert coach %s: %w", rec.Identity, err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing row. Identity and
// year are never touched.
func (p *Postgres) Update(ctx context.Context, rec *inventory.Record) error {
	features, images, err := marshalLists(rec)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE coaches SET
			title = $2, status = $3,
			price = $4, price_display = $5, price_status = $6,
			slide_count = $7, features = $8, images = $9,
			dealer_phone = $10, dealer_email = $11,
			mileage = $12, engine = $13, bathroom_config = $14,
			stock_number = $15, virtual_tour_url = $16,
			listing_url = $17, scraped_at = $18, updated_at = $19
		WHERE id = $1
	`,
		rec.Identity, rec.Title, rec.Status,
		rec.PriceCents, rec.PriceDisplay, rec.PriceStatus,
		rec.SlideCount, features, images,
		rec.DealerPhone, rec.DealerEmail,
		nullInt(rec.Mileage), rec.Engine, rec.BathroomConfig,
		rec.StockNumber, rec.VirtualTourURL,
		rec.ListingURL, rec.ScrapedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update coach %s: %w", rec.Identity, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteInvalid removes legacy rows with a bare-brand title and year
// zero left behind by earlier scraper versions.
func (p *Postgres) DeleteInvalid(ctx context.Context, brand string) (int, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM coaches WHERE title = $1 AND year = 0`, brand)
	if err != nil {
		return 0, fmt.Errorf("delete invalid coaches: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func marshalLists(rec *inventory.Record) (features, images []byte, err error) {
	features, err = json.Marshal(emptyIfNil(rec.Features))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal features: %w", err)
	}
	images, err = json.Marshal(emptyIfNil(rec.Images))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal images: %w", err)
	}
	return features, images, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n > 0}
}
