// Package numerator generates sequential human-readable document numbers
// ("TR-2026-00001"). The counter document is read and bumped on the same
// transaction handle as the document being numbered, so a number is only
// consumed when the enclosing transaction commits.
package numerator

import (
	"fmt"
	"time"

	"melowms/internal/core/store"
)

// Config controls number formatting.
type Config struct {
	Prefix    string
	YearReset bool // restart the sequence every year
	PadWidth  int
}

// DefaultConfig returns the platform-wide numbering scheme.
func DefaultConfig(prefix string) Config {
	return Config{Prefix: prefix, YearReset: true, PadWidth: 5}
}

type counterDoc struct {
	Value int64 `json:"value"`
}

// Next returns the next number for the prefix, bumping the counter within
// the given transaction.
func Next(tx store.Tx, cfg Config, now time.Time) (string, error) {
	key := cfg.Prefix
	if cfg.YearReset {
		key = fmt.Sprintf("%s-%04d", cfg.Prefix, now.Year())
	}
	path := "counters/" + key

	snapshot, err := tx.Get(path)
	if err != nil {
		return "", fmt.Errorf("read counter %s: %w", key, err)
	}

	var counter counterDoc
	if snapshot != nil {
		if err := snapshot.DataTo(&counter); err != nil {
			return "", err
		}
	}
	counter.Value++

	if err := tx.Set(path, counter); err != nil {
		return "", fmt.Errorf("bump counter %s: %w", key, err)
	}

	if cfg.YearReset {
		return fmt.Sprintf("%s-%04d-%0*d", cfg.Prefix, now.Year(), cfg.PadWidth, counter.Value), nil
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, cfg.PadWidth, counter.Value), nil
}
