package watch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/sw33tLie/scopediff/pkg/diff"
	"github.com/sw33tLie/scopediff/pkg/snapshot"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	saves   int
	saveErr error
}

func newMemStore(files map[string]string) *memStore {
	s := &memStore{data: make(map[string][]byte)}
	for k, v := range files {
		s.data[k] = []byte(v)
	}
	return s
}

func (s *memStore) Load(_ context.Context, key snapshot.Key) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data[key.FileName()]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key.FileName(), snapshot.ErrNotFound)
	}
	return b, nil
}

func (s *memStore) Save(_ context.Context, key snapshot.Key, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.data[key.FileName()] = data
	return nil
}

func (s *memStore) get(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.data[name])
}

type fakeSource struct {
	mu    sync.Mutex
	data  map[string]string
	errs  map[string]error
	calls int
}

func (f *fakeSource) Fetch(_ context.Context, key snapshot.Key) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[key.Name]; err != nil {
		return nil, err
	}
	v, ok := f.data[key.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", snapshot.ErrSourceUnavailable, key)
	}
	return []byte(v), nil
}

type recorder struct {
	events []diff.Event
	err    error
}

func (r *recorder) Notify(_ context.Context, ev diff.Event) error {
	r.events = append(r.events, ev)
	return r.err
}

const (
	acmeOld = `[{"name":"Acme","submission_state":"open","targets":{"in_scope":[{"type":"Web","asset_identifier":"a.com"}],"out_of_scope":[]}}]`
	acmeNew = `[{"name":"Acme","submission_state":"open","targets":{"in_scope":[{"type":"Web","asset_identifier":"b.com"}],"out_of_scope":[]}}]`
)

func TestRunDomainListScenario(t *testing.T) {
	store := newMemStore(map[string]string{"domains_data.txt": "a.com\nb.com"})
	src := &fakeSource{data: map[string]string{"domains": "a.com\nc.com\n"}}
	rec := &recorder{}

	report, err := Run(context.Background(), Config{
		Keys:     snapshot.KeySet{Lists: []string{"domains"}},
		Source:   src,
		Store:    store,
		Notifier: rec,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(rec.events))
	}
	ev, ok := rec.events[0].(*diff.DomainListChange)
	if !ok || ev.ListName != "domains" || !reflect.DeepEqual(ev.Entries.Sorted(), []string{"c.com"}) {
		t.Fatalf("unexpected event: %#v", rec.events[0])
	}
	if got := diff.ParseLines([]byte(store.get("domains_data.txt"))).Sorted(); !reflect.DeepEqual(got, []string{"a.com", "c.com"}) {
		t.Fatalf("expected stored snapshot to follow upstream, got %v", got)
	}
	if !report.Keys[0].Persisted || report.Notified != 1 {
		t.Fatalf("unexpected report: %#v", report)
	}
}

func TestRunProgramScenario(t *testing.T) {
	store := newMemStore(map[string]string{"hackenproof_data.json": acmeOld})
	src := &fakeSource{data: map[string]string{"hackenproof": acmeNew}}
	rec := &recorder{}

	report, err := Run(context.Background(), Config{
		Keys:     snapshot.KeySet{Platforms: []string{"hackenproof"}},
		Source:   src,
		Store:    store,
		Notifier: rec,
		Rules:    diff.DefaultRules(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d: %#v", len(rec.events), rec.events)
	}
	tc, ok := rec.events[0].(*diff.TargetsChange)
	if !ok || tc.ProgramName != "Acme" || !reflect.DeepEqual(diff.Values(tc.InScope), []string{"b.com"}) || len(tc.OutOfScope) != 0 {
		t.Fatalf("unexpected event: %#v", rec.events[0])
	}
	if store.get("hackenproof_data.json") != acmeNew {
		t.Fatalf("expected new snapshot to be stored")
	}
	if report.Count(StatusChanged) != 1 {
		t.Fatalf("expected 1 changed key, got %#v", report.Keys)
	}
}

func TestRunAbortsOnMissingSnapshot(t *testing.T) {
	store := newMemStore(map[string]string{"hackerone_data.json": acmeOld})
	src := &fakeSource{data: map[string]string{"hackerone": acmeNew, "domains": "a.com"}}

	_, err := Run(context.Background(), Config{
		Keys:   snapshot.KeySet{Platforms: []string{"hackerone"}, Lists: []string{"domains"}},
		Source: src,
		Store:  store,
	})
	if !errors.Is(err, ErrMissingSnapshots) {
		t.Fatalf("expected ErrMissingSnapshots, got %v", err)
	}
	if src.calls != 0 || store.saves != 0 {
		t.Fatalf("expected no fetches or saves, got %d fetches and %d saves", src.calls, store.saves)
	}
}

func TestRunIsolatesFailingKeys(t *testing.T) {
	store := newMemStore(map[string]string{
		"bugcrowd_data.json":  acmeOld,
		"hackerone_data.json": acmeOld,
		"intigriti_data.json": acmeOld,
		"domains_data.txt":    "a.com",
	})
	src := &fakeSource{
		data: map[string]string{
			"hackerone": `[{"name":"Acme","targets":{}}]`,
			"intigriti": acmeNew,
			"domains":   "a.com\nb.com",
		},
		errs: map[string]error{"bugcrowd": fmt.Errorf("%w: timeout", snapshot.ErrSourceUnavailable)},
	}
	rec := &recorder{}

	report, err := Run(context.Background(), Config{
		Keys:     snapshot.KeySet{Platforms: []string{"bugcrowd", "hackerone", "intigriti"}, Lists: []string{"domains"}},
		Source:   src,
		Store:    store,
		Notifier: rec,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	statuses := make([]Status, 0, len(report.Keys))
	for _, k := range report.Keys {
		statuses = append(statuses, k.Status)
	}
	expect := []Status{StatusSkipped, StatusSkipped, StatusChanged, StatusChanged}
	if !reflect.DeepEqual(statuses, expect) {
		t.Fatalf("unexpected statuses.\nwant: %v\ngot:  %v", expect, statuses)
	}
	if !errors.Is(report.Keys[0].Err, snapshot.ErrSourceUnavailable) {
		t.Fatalf("expected source error for bugcrowd, got %v", report.Keys[0].Err)
	}
	if !errors.Is(report.Keys[1].Err, diff.ErrShapeMismatch) {
		t.Fatalf("expected shape error for hackerone, got %v", report.Keys[1].Err)
	}
	if len(rec.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(rec.events))
	}
	if store.get("bugcrowd_data.json") != acmeOld || store.get("hackerone_data.json") != acmeOld {
		t.Fatalf("skipped keys must not be rewritten")
	}
}

func TestRunDoesNotRewriteUnchangedData(t *testing.T) {
	volatile := `[{"name":"Acme","submission_state":"open","last_updated":"later","targets":{"in_scope":[{"type":"Web","asset_identifier":"a.com"}],"out_of_scope":[]}}]`
	store := newMemStore(map[string]string{"hackerone_data.json": acmeOld, "wildcards_data.txt": "*.a.com\n*.b.com"})
	src := &fakeSource{data: map[string]string{"hackerone": volatile, "wildcards": "*.b.com\n*.a.com\n"}}
	rec := &recorder{}

	report, err := Run(context.Background(), Config{
		Keys:     snapshot.KeySet{Platforms: []string{"hackerone"}, Lists: []string{"wildcards"}},
		Source:   src,
		Store:    store,
		Notifier: rec,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.events) != 0 || store.saves != 0 {
		t.Fatalf("expected no events and no saves, got %d events and %d saves", len(rec.events), store.saves)
	}
	if report.Count(StatusUnchanged) != 2 {
		t.Fatalf("expected 2 unchanged keys, got %#v", report.Keys)
	}
}

func TestRunPersistsListRemovals(t *testing.T) {
	store := newMemStore(map[string]string{"domains_data.txt": "a.com\nb.com"})
	src := &fakeSource{data: map[string]string{"domains": "a.com"}}
	rec := &recorder{}

	report, err := Run(context.Background(), Config{
		Keys: snapshot.KeySet{Lists: []string{"domains"}}, Source: src, Store: store, Notifier: rec,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("expected removals not to notify, got %#v", rec.events)
	}
	if !report.Keys[0].Persisted || store.get("domains_data.txt") != "a.com" {
		t.Fatalf("expected the cache to follow upstream")
	}
}

func TestRunIdempotentWithoutPersisting(t *testing.T) {
	store := newMemStore(map[string]string{"hackerone_data.json": acmeOld, "domains_data.txt": "a.com"})
	src := &fakeSource{data: map[string]string{"hackerone": acmeNew, "domains": "a.com\nb.com"}}
	cfg := Config{
		Keys:   snapshot.KeySet{Platforms: []string{"hackerone"}, Lists: []string{"domains"}},
		Source: src,
		Store:  store,
		DryRun: true,
	}

	first, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(first.Events()) != 2 || !reflect.DeepEqual(first.Events(), second.Events()) {
		t.Fatalf("expected identical event sequences.\nfirst:  %#v\nsecond: %#v", first.Events(), second.Events())
	}
	if store.saves != 0 {
		t.Fatalf("dry run must not persist, got %d saves", store.saves)
	}
}

func TestRunPersistsDespiteNotifierFailure(t *testing.T) {
	store := newMemStore(map[string]string{"domains_data.txt": "a.com"})
	src := &fakeSource{data: map[string]string{"domains": "a.com\nb.com"}}
	rec := &recorder{err: errors.New("webhook down")}

	report, err := Run(context.Background(), Config{
		Keys: snapshot.KeySet{Lists: []string{"domains"}}, Source: src, Store: store, Notifier: rec,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.NotifyFailures != 1 || report.Notified != 0 {
		t.Fatalf("unexpected notification counters: %#v", report)
	}
	if !report.Keys[0].Persisted {
		t.Fatalf("expected snapshot to be persisted after a failed notification")
	}
}

func TestRunRecordsPersistFailure(t *testing.T) {
	store := newMemStore(map[string]string{"domains_data.txt": "a.com"})
	store.saveErr = errors.New("disk full")
	src := &fakeSource{data: map[string]string{"domains": "a.com\nb.com"}}

	report, err := Run(context.Background(), Config{
		Keys: snapshot.KeySet{Lists: []string{"domains"}}, Source: src, Store: store,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Keys[0].Persisted || report.Keys[0].PersistErr == nil {
		t.Fatalf("expected persist error to be recorded, got %#v", report.Keys[0])
	}
}

func TestRunConcurrentKeepsKeyOrder(t *testing.T) {
	platforms := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7"}
	files := map[string]string{}
	latest := map[string]string{}
	for _, p := range platforms {
		files[p+"_data.json"] = acmeOld
		latest[p] = acmeNew
	}
	report, err := Run(context.Background(), Config{
		Keys:        snapshot.KeySet{Platforms: platforms},
		Source:      &fakeSource{data: latest},
		Store:       newMemStore(files),
		Concurrency: 4,
		DryRun:      true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, k := range report.Keys {
		if k.Key.Name != platforms[i] || k.Status != StatusChanged {
			t.Fatalf("unexpected result at %d: %#v", i, k)
		}
	}
}

func TestSeed(t *testing.T) {
	store := newMemStore(map[string]string{"hackerone_data.json": acmeOld})
	src := &fakeSource{data: map[string]string{
		"hackerone": acmeNew,
		"bugcrowd":  `{"not":"a list"}`,
		"domains":   "a.com",
	}}
	cfg := Config{
		Keys:   snapshot.KeySet{Platforms: []string{"hackerone", "bugcrowd"}, Lists: []string{"domains"}},
		Source: src,
		Store:  store,
	}

	report := Seed(context.Background(), cfg, false)
	statuses := []Status{report.Keys[0].Status, report.Keys[1].Status, report.Keys[2].Status}
	if !reflect.DeepEqual(statuses, []Status{StatusUnchanged, StatusSkipped, StatusSeeded}) {
		t.Fatalf("unexpected statuses: %v", statuses)
	}
	if store.get("hackerone_data.json") != acmeOld || store.get("domains_data.txt") != "a.com" {
		t.Fatalf("unexpected store contents")
	}
	if _, err := store.Load(context.Background(), snapshot.Key{Name: "bugcrowd"}); !errors.Is(err, snapshot.ErrNotFound) {
		t.Fatalf("malformed program snapshot must not be stored")
	}

	Seed(context.Background(), cfg, true)
	if store.get("hackerone_data.json") != acmeNew {
		t.Fatalf("expected forced seed to overwrite the cache")
	}
}
