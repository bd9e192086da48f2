package watch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sw33tLie/scopediff/pkg/diff"
	"github.com/sw33tLie/scopediff/pkg/snapshot"
)

// Seed populates the store with the latest snapshot of every key. Keys that
// are already cached are left alone unless force is set. Program snapshots
// are validated before they are stored.
func Seed(ctx context.Context, cfg Config, force bool) *Report {
	log, concurrency := cfg.defaults()
	report := &Report{RunID: uuid.NewString(), StartedAt: time.Now()}

	report.Keys = forEachKey(cfg.Keys.Keys(), concurrency, func(key snapshot.Key) KeyResult {
		res := KeyResult{Key: key}
		if !force {
			_, err := cfg.Store.Load(ctx, key)
			if err == nil {
				res.Status = StatusUnchanged
				log.Debugf("%s already cached", key.FileName())
				return res
			}
			if !errors.Is(err, snapshot.ErrNotFound) {
				res.Status, res.Err = StatusSkipped, err
				log.Warnf("Could not check cached snapshot for %s: %v", key, err)
				return res
			}
		}

		data, err := cfg.Source.Fetch(ctx, key)
		if err == nil && key.Kind == snapshot.KindProgram {
			_, err = diff.ParsePrograms(data)
		}
		if err != nil {
			res.Status, res.Err = StatusSkipped, err
			log.Warnf("Skipping %s: %v", key, err)
			return res
		}
		if cfg.DryRun {
			res.Status = StatusSeeded
			return res
		}
		if err := cfg.Store.Save(ctx, key, data); err != nil {
			res.Status, res.Err, res.PersistErr = StatusSkipped, err, err
			log.Errorf("Could not store %s: %v", key.FileName(), err)
			return res
		}
		res.Status, res.Persisted = StatusSeeded, true
		log.Infof("%s seeded (%d bytes)", key.FileName(), len(data))
		return res
	})

	report.Duration = time.Since(report.StartedAt)
	return report
}
