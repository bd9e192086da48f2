// Package watch runs change detection over every tracked key: it loads the
// cached snapshots, fetches the latest ones, diffs them, hands the resulting
// events to a notifier and writes changed snapshots back.
package watch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sw33tLie/scopediff/pkg/diff"
	"github.com/sw33tLie/scopediff/pkg/notify"
	"github.com/sw33tLie/scopediff/pkg/snapshot"
)

// ErrMissingSnapshots aborts a run when a key has never been cached.
var ErrMissingSnapshots = errors.New("missing cached snapshots")

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Config holds everything Run needs.
type Config struct {
	Keys     snapshot.KeySet
	Source   snapshot.Source
	Store    snapshot.Store
	Notifier notify.Notifier // optional; nil = events are only reported
	Rules    diff.Rules

	Concurrency int  // defaults to 1 if <= 0
	DryRun      bool // neither notify nor persist
	Log         Logger
}

// Status is the outcome of one key.
type Status string

const (
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusSeeded    Status = "seeded"
)

// KeyResult holds the outcome of comparing a single key.
type KeyResult struct {
	Key    snapshot.Key
	Status Status
	Err    error // why the key was skipped
	Events []diff.Event

	// Programs that appeared in or vanished from a platform snapshot.
	Added   []string
	Removed []string

	Persisted  bool
	PersistErr error

	latest  []byte
	persist bool
}

// Report aggregates one run.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Keys      []KeyResult

	Notified       int
	NotifyFailures int
}

// Events returns every event of the run in key order.
func (r *Report) Events() []diff.Event {
	var out []diff.Event
	for _, k := range r.Keys {
		out = append(out, k.Events...)
	}
	return out
}

// Count returns how many keys ended with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, k := range r.Keys {
		if k.Status == s {
			n++
		}
	}
	return n
}

func (cfg *Config) defaults() (Logger, int) {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	if cfg.Rules.IsZero() {
		cfg.Rules = diff.DefaultRules()
	}
	return log, concurrency
}

// Run performs one detection run. It fails only when a cached snapshot is
// missing for some key, before anything is compared; every other problem is
// isolated to its key and recorded in the report.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	log, concurrency := cfg.defaults()
	report := &Report{RunID: uuid.NewString(), StartedAt: time.Now()}
	keys := cfg.Keys.Keys()

	cached, missing, loadErrs := loadAll(ctx, cfg.Store, keys)
	if len(missing) > 0 {
		log.Errorf("No cached snapshot for %s. Run seed first.", strings.Join(missing, ", "))
		return report, fmt.Errorf("%w: %s", ErrMissingSnapshots, strings.Join(missing, ", "))
	}

	report.Keys = forEachKey(keys, concurrency, func(key snapshot.Key) KeyResult {
		if err := loadErrs[key]; err != nil {
			log.Warnf("Could not load cached snapshot for %s: %v", key, err)
			return KeyResult{Key: key, Status: StatusSkipped, Err: err}
		}
		res := compareKey(ctx, cfg, key, cached[key])
		switch res.Status {
		case StatusSkipped:
			log.Warnf("Skipping %s: %v", key, res.Err)
		case StatusUnchanged:
			log.Infof("No change in %s", key.FileName())
		case StatusChanged:
			log.Infof("%d change(s) in %s", len(res.Events), key.FileName())
		}
		for _, name := range res.Added {
			log.Debugf("Program appeared in %s: %s", key, name)
		}
		for _, name := range res.Removed {
			log.Debugf("Program disappeared from %s: %s", key, name)
		}
		return res
	})

	if cfg.DryRun {
		log.Infof("Dry run: %d event(s) not delivered, nothing persisted", len(report.Events()))
	} else {
		notifyAll(ctx, cfg.Notifier, report, log)
		persistAll(ctx, cfg.Store, report, log)
	}

	report.Duration = time.Since(report.StartedAt)
	log.Infof("Run %s finished in %s: %d changed, %d unchanged, %d skipped, %d event(s)",
		report.RunID, report.Duration.Round(time.Millisecond),
		report.Count(StatusChanged), report.Count(StatusUnchanged), report.Count(StatusSkipped), len(report.Events()))
	return report, nil
}

// loadAll reads every cached snapshot. Missing keys are returned by name;
// other read errors are kept per key.
func loadAll(ctx context.Context, store snapshot.Store, keys []snapshot.Key) (map[snapshot.Key][]byte, []string, map[snapshot.Key]error) {
	cached := make(map[snapshot.Key][]byte, len(keys))
	errs := make(map[snapshot.Key]error)
	var missing []string
	for _, k := range keys {
		data, err := store.Load(ctx, k)
		switch {
		case errors.Is(err, snapshot.ErrNotFound):
			missing = append(missing, k.FileName())
		case err != nil:
			errs[k] = err
		default:
			cached[k] = data
		}
	}
	return cached, missing, errs
}

// forEachKey runs fn over keys with a worker pool and returns the results in
// key order.
func forEachKey(keys []snapshot.Key, concurrency int, fn func(snapshot.Key) KeyResult) []KeyResult {
	results := make([]KeyResult, len(keys))
	if len(keys) == 0 {
		return results
	}

	idxChan := make(chan int, len(keys))
	for i := range keys {
		idxChan <- i
	}
	close(idxChan)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range idxChan {
				results[idx] = fn(keys[idx])
			}
		}()
	}
	wg.Wait()
	return results
}

func compareKey(ctx context.Context, cfg Config, key snapshot.Key, cached []byte) KeyResult {
	res := KeyResult{Key: key}

	latest, err := cfg.Source.Fetch(ctx, key)
	if err != nil {
		res.Status, res.Err = StatusSkipped, err
		return res
	}
	res.latest = latest

	if key.Kind == snapshot.KindList {
		oldSet, newSet := diff.ParseLines(cached), diff.ParseLines(latest)
		if ev := diff.NewDomainListChange(key.Name, diff.DiffLines(oldSet, newSet)); ev != nil {
			res.Events = []diff.Event{ev}
		}
		// Removals produce no event but the cache still follows upstream.
		res.persist = !diff.EqualLines(oldSet, newSet)
	} else {
		oldRecs, err := diff.ParsePrograms(cached)
		if err != nil {
			res.Status, res.Err = StatusSkipped, fmt.Errorf("cached snapshot: %w", err)
			return res
		}
		newRecs, err := diff.ParsePrograms(latest)
		if err != nil {
			res.Status, res.Err = StatusSkipped, fmt.Errorf("latest snapshot: %w", err)
			return res
		}
		pr, err := diff.DiffPrograms(key.Name, oldRecs, newRecs, cfg.Rules)
		if err != nil {
			res.Status, res.Err = StatusSkipped, err
			return res
		}
		res.Events, res.Added, res.Removed = pr.Events, pr.Added, pr.Removed
		res.persist = len(pr.Events) > 0 || pr.MembershipChanged()
	}

	res.Status = StatusUnchanged
	if len(res.Events) > 0 {
		res.Status = StatusChanged
	}
	return res
}

func notifyAll(ctx context.Context, n notify.Notifier, report *Report, log Logger) {
	if n == nil {
		return
	}
	for _, ev := range report.Events() {
		if err := n.Notify(ctx, ev); err != nil {
			report.NotifyFailures++
			log.Warnf("Notification for %s failed: %v", ev.Subject(), err)
			continue
		}
		report.Notified++
	}
	if report.Notified > 0 {
		log.Infof("%d change(s) notified", report.Notified)
	}
}

func persistAll(ctx context.Context, store snapshot.Store, report *Report, log Logger) {
	for i := range report.Keys {
		k := &report.Keys[i]
		if !k.persist {
			continue
		}
		if err := store.Save(ctx, k.Key, k.latest); err != nil {
			k.PersistErr = err
			log.Errorf("Could not update %s: %v", k.Key.FileName(), err)
			continue
		}
		k.Persisted = true
		log.Debugf("%s updated", k.Key.FileName())
	}
}
