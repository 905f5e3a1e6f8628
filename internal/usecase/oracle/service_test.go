package oracle

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	domainoracle "estateoracle/internal/domain/oracle"
	"estateoracle/internal/infrastructure/persistence/gormdb/model"
	"estateoracle/internal/infrastructure/persistence/gormdb/repository"
	"estateoracle/internal/infrastructure/persistence/gormdb/uow"
	"estateoracle/internal/ports"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

type testCache struct {
	mu    sync.Mutex
	clock *testClock
	data  map[string]cacheEntry
}

func newTestCache(clock *testClock) *testCache {
	return &testCache{clock: clock, data: make(map[string]cacheEntry)}
}

func (c *testCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && !c.clock.Now().Before(entry.expiresAt) {
		delete(c.data, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (c *testCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := cacheEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = c.clock.Now().Add(ttl)
	}
	c.data[key] = entry
	return nil
}

func (c *testCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *testCache) has(key string) bool {
	_, found, _ := c.Get(context.Background(), key)
	return found
}

type sourceBatch struct {
	events []domainoracle.Event
	next   ports.Marker
	err    error

	// advance moves the clock when the batch is delivered.
	advance time.Duration
}

type fakeSource struct {
	mu         sync.Mutex
	clock      *testClock
	batches    []sourceBatch
	polledFrom []ports.Marker
	handler    ports.EventHandler
	feed       *fakeFeed
	subscribed chan struct{}
	unsubbed   bool
}

type fakeFeed struct {
	source *fakeSource
	err    chan error
}

func (f *fakeFeed) Unsubscribe() {
	f.source.mu.Lock()
	f.source.unsubbed = true
	f.source.mu.Unlock()
}

func (f *fakeFeed) Err() <-chan error {
	return f.err
}

func newFakeSource(batches ...sourceBatch) *fakeSource {
	return &fakeSource{batches: batches, subscribed: make(chan struct{}, 4)}
}

func (f *fakeSource) Poll(_ context.Context, since ports.Marker, _ int) ([]domainoracle.Event, ports.Marker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polledFrom = append(f.polledFrom, since)
	if len(f.batches) == 0 {
		return nil, since, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	if batch.advance > 0 && f.clock != nil {
		f.clock.Advance(batch.advance)
	}
	if batch.err != nil {
		return nil, since, batch.err
	}
	return batch.events, batch.next, nil
}

func (f *fakeSource) push(batch sourceBatch) {
	f.mu.Lock()
	f.batches = append(f.batches, batch)
	f.mu.Unlock()
}

func (f *fakeSource) Subscribe(_ context.Context, handler ports.EventHandler) (ports.Subscription, error) {
	f.mu.Lock()
	f.handler = handler
	f.feed = &fakeFeed{source: f, err: make(chan error, 1)}
	f.unsubbed = false
	feed := f.feed
	f.mu.Unlock()
	f.subscribed <- struct{}{}
	return feed, nil
}

func (f *fakeSource) drop(err error) {
	f.mu.Lock()
	feed := f.feed
	f.mu.Unlock()
	feed.err <- err
}

func (f *fakeSource) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.polledFrom)
}

type requestCall struct {
	entityID string
	location string
	size     string
}

type fakeContract struct {
	mu      sync.Mutex
	calls   []requestCall
	results []fakeResult
	state   ports.OracleState
	gas     []uint32
}

type fakeResult struct {
	receipt ports.ValuationRequestReceipt
	err     error
}

func (f *fakeContract) RequestValuationUpdate(_ context.Context, entityID string, location string, size string) (ports.ValuationRequestReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, requestCall{entityID: entityID, location: location, size: size})
	if len(f.results) == 0 {
		n := len(f.calls)
		return ports.ValuationRequestReceipt{
			TxHash:    fmt.Sprintf("0xtx%d", n),
			RequestID: fmt.Sprintf("0xreq%d", n),
			EntityID:  entityID,
		}, nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result.receipt, result.err
}

func (f *fakeContract) State(context.Context) (ports.OracleState, error) {
	return f.state, nil
}

func (f *fakeContract) Config(context.Context) (ports.OracleConfig, error) {
	return ports.OracleConfig{SubscriptionID: f.state.SubscriptionID, GasLimit: f.state.GasLimit}, nil
}

func (f *fakeContract) UpdateSubscriptionID(_ context.Context, id uint64) (string, error) {
	f.state.SubscriptionID = fmt.Sprint(id)
	return "0xsub", nil
}

func (f *fakeContract) UpdateGasLimit(_ context.Context, limit uint32) (string, error) {
	f.gas = append(f.gas, limit)
	return "0xgas", nil
}

func (f *fakeContract) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeRegistry struct {
	properties map[string]ports.PropertyRecord
}

func (f *fakeRegistry) GetProperty(_ context.Context, id string) (ports.PropertyRecord, error) {
	record, ok := f.properties[id]
	if !ok {
		return ports.PropertyRecord{}, fmt.Errorf("property %s not found", id)
	}
	return record, nil
}

func (f *fakeRegistry) GetPropertyFinancials(context.Context, string) (ports.PropertyFinancialsRecord, error) {
	return ports.PropertyFinancialsRecord{}, nil
}

func (f *fakeRegistry) UpdateProperty(context.Context, ports.PropertyUpdate) (string, error) {
	return "", nil
}

func (f *fakeRegistry) UpdatePropertyValuation(context.Context, string, *big.Int) (string, error) {
	return "", nil
}

func (f *fakeRegistry) UpdateRentalIncome(context.Context, string, *big.Int) (string, error) {
	return "", nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.OracleNotification
}

func (n *recordingNotifier) Notify(_ context.Context, notification ports.OracleNotification) error {
	n.mu.Lock()
	n.sent = append(n.sent, notification)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) ofType(kind string) []ports.OracleNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []ports.OracleNotification
	for _, notification := range n.sent {
		if notification.Type == kind {
			out = append(out, notification)
		}
	}
	return out
}

type testEnv struct {
	svc      *Service
	clock    *testClock
	cache    *testCache
	source   *fakeSource
	contract *fakeContract
	registry *fakeRegistry
	notifier *recordingNotifier
	db       *gorm.DB
}

func setupService(t *testing.T, batches ...sourceBatch) *testEnv {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "oracle.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	env := &testEnv{
		clock:    &testClock{now: baseTime},
		source:   newFakeSource(batches...),
		contract: &fakeContract{},
		registry: &fakeRegistry{properties: map[string]ports.PropertyRecord{}},
		notifier: &recordingNotifier{},
		db:       db,
	}
	env.cache = newTestCache(env.clock)
	env.source.clock = env.clock
	env.svc = NewService(Deps{
		Events:   repository.NewOracleEventRepository(db),
		UoW:      uow.NewUnitOfWork(db),
		Cache:    env.cache,
		Source:   env.source,
		Contract: env.contract,
		Registry: env.registry,
		Notifier: env.notifier,
	}, Settings{
		StalenessWindow: 24 * time.Hour,
		InFlightTimeout: 15 * time.Minute,
		AutoUpdate:      true,
		WatchlistFile:   filepath.Join(t.TempDir(), "watchlist.toml"),
	})
	env.svc.now = env.clock.Now

	seq := 0
	env.svc.newID = func() string {
		seq++
		return fmt.Sprintf("dispatch-%d", seq)
	}
	return env
}

func at(hours float64) time.Time {
	return baseTime.Add(time.Duration(hours * float64(time.Hour)))
}

func chainEvent(kind domainoracle.Kind, entity string, requestID string, observed time.Time, block uint64) domainoracle.Event {
	return domainoracle.Event{
		Key:         fmt.Sprintf("0xtx%d:%s:%s", block, kind, entity+requestID),
		Kind:        kind,
		EntityID:    entity,
		RequestID:   requestID,
		ObservedAt:  observed,
		BlockNumber: block,
		TxHash:      fmt.Sprintf("0xtx%d", block),
	}
}

func requested(entity string, requestID string, observed time.Time, block uint64) domainoracle.Event {
	return chainEvent(domainoracle.KindValuationRequested, entity, requestID, observed, block)
}

func updated(entity string, observed time.Time, block uint64) domainoracle.Event {
	event := chainEvent(domainoracle.KindValuationUpdated, entity, "", observed, block)
	event.OldValuation = "1"
	event.NewValuation = "2"
	return event
}

func failed(requestID string, observed time.Time, block uint64) domainoracle.Event {
	event := chainEvent(domainoracle.KindRequestFailed, "", requestID, observed, block)
	event.Error = "source unavailable"
	return event
}

func TestNewServiceAppliesSettingDefaults(t *testing.T) {
	svc := NewService(Deps{}, Settings{})
	settings := svc.Settings()
	if settings.StalenessWindow != domainoracle.DefaultStalenessWindow {
		t.Fatalf("staleness window = %s", settings.StalenessWindow)
	}
	if settings.InFlightTimeout != domainoracle.DefaultInFlightTimeout {
		t.Fatalf("in-flight timeout = %s", settings.InFlightTimeout)
	}
	if settings.EventBatch != defaultEventBatch || settings.PollInterval != defaultPollInterval {
		t.Fatalf("settings = %+v", settings)
	}

	svc.ApplySettings(Settings{StalenessWindow: time.Hour, AutoUpdate: true})
	if got := svc.Settings(); got.StalenessWindow != time.Hour || !got.AutoUpdate {
		t.Fatalf("applied settings = %+v", got)
	}
}
