package storage

import (
	"context"
	"fmt"
	"time"

	"wallet-bot/internal/domain"
)

const (
	insertPriceSampleSQL = `INSERT INTO price_samples (
        symbol, price, observed_at
    ) VALUES (
        $1,$2,$3
    )
    ON CONFLICT (symbol, observed_at) DO UPDATE
    SET price = EXCLUDED.price;`

	listSamplesBetweenSQL = `SELECT symbol, price, observed_at
    FROM price_samples
    WHERE symbol = $1
      AND observed_at >= $2
      AND observed_at < $3
    ORDER BY observed_at;`
)

// InsertPriceSample records one observed price. Samples feed the export
// pipeline only; the monitor never reads them back.
func (s *Store) InsertPriceSample(ctx context.Context, sample domain.PriceSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, insertPriceSampleSQL,
		sample.Symbol,
		sample.Price.String(),
		sample.ObservedAt,
	); execErr != nil {
		return fmt.Errorf("insert price sample: %w", execErr)
	}
	return nil
}

// ListSamplesBetween lists a symbol's samples within a time window.
func (s *Store) ListSamplesBetween(ctx context.Context, symbol string, from, to time.Time) ([]domain.PriceSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, symbol, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list price samples: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]domain.PriceSample, 0)
	for rows.Next() {
		var (
			sample   domain.PriceSample
			priceStr string
		)
		if err := rows.Scan(&sample.Symbol, &priceStr, &sample.ObservedAt); err != nil {
			return nil, err
		}
		price, err := parseDecimal("sample price", priceStr)
		if err != nil {
			return nil, err
		}
		sample.Price = price
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}
