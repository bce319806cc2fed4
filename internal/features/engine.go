package features

import (
	"sync"

	"github.com/rs/zerolog"

	"trade-audit/internal/series"
)

// Build widens the series into the full feature table. The three producers
// have no cross-dependencies, so each runs on its own goroutine over the
// read-only series and the engine merges their column sets after the
// barrier, in a fixed order so the table schema is deterministic.
func Build(s *series.Series, cfg Config, logger zerolog.Logger) (*Table, error) {
	cfg = cfg.withDefaults()
	log := logger.With().Str("component", "features").Logger()

	var (
		wg         sync.WaitGroup
		streaks    *columnSet
		rolling    *columnSet
		behavioral *columnSet
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		streaks = streakColumns(s, cfg)
	}()
	go func() {
		defer wg.Done()
		rolling = rollingColumns(s, cfg)
	}()
	go func() {
		defer wg.Done()
		behavioral = behavioralColumns(s, cfg)
	}()
	wg.Wait()

	tbl := NewTable(s)
	for _, set := range []*columnSet{streaks, rolling, behavioral} {
		if err := tbl.merge(set); err != nil {
			return nil, err
		}
	}

	log.Debug().Int("rows", tbl.Len()).Int("columns", len(tbl.Names())).Msg("feature table built")
	return tbl, nil
}
