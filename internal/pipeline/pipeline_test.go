package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"wheelstrat/internal/config"
	"wheelstrat/internal/logging"
	"wheelstrat/internal/models"
	"wheelstrat/internal/narrative"
)

// memStore is an in-memory DataStore for orchestration tests.
type memStore struct {
	bars      map[string][]models.PriceBar
	detected  map[string][]models.SplitFactor
	vendor    map[string][]models.SplitFactor
	stats     map[string]models.AggregateStat
	alerts    map[string]time.Time
	barsErr   error
	statCalls int
}

func newMemStore() *memStore {
	return &memStore{
		bars:     make(map[string][]models.PriceBar),
		detected: make(map[string][]models.SplitFactor),
		vendor:   make(map[string][]models.SplitFactor),
		stats:    make(map[string]models.AggregateStat),
		alerts:   make(map[string]time.Time),
	}
}

func (m *memStore) SaveBars(_ context.Context, symbol, _ string, bars []models.PriceBar) error {
	m.bars[symbol] = bars
	return nil
}

func (m *memStore) GetBars(_ context.Context, symbol, _ string) ([]models.PriceBar, error) {
	if m.barsErr != nil {
		return nil, m.barsErr
	}
	return m.bars[symbol], nil
}

func (m *memStore) ReplaceDetectedSplits(_ context.Context, symbol string, factors []models.SplitFactor) error {
	m.detected[symbol] = factors
	return nil
}

func (m *memStore) SaveSplitFactor(_ context.Context, f models.SplitFactor) error {
	m.vendor[f.Symbol] = append(m.vendor[f.Symbol], f)
	return nil
}

func (m *memStore) GetSplitFactors(_ context.Context, symbol string) ([]models.SplitFactor, error) {
	return append(append([]models.SplitFactor{}, m.vendor[symbol]...), m.detected[symbol]...), nil
}

func (m *memStore) UpsertAggregateStat(_ context.Context, stat models.AggregateStat) error {
	key := fmt.Sprintf("%s|%s|%s|%d|%s", stat.Symbol, stat.Name, stat.Kind, stat.Horizon, stat.Bucket)
	m.stats[key] = stat
	m.statCalls++
	return nil
}

func (m *memStore) GetAggregateStats(_ context.Context, symbol string) ([]models.AggregateStat, error) {
	var out []models.AggregateStat
	for _, st := range m.stats {
		if st.Symbol == symbol {
			out = append(out, st)
		}
	}
	return out, nil
}

func (m *memStore) LastAlertAt(_ context.Context, symbol, pattern string) (time.Time, bool, error) {
	at, ok := m.alerts[symbol+"|"+pattern]
	return at, ok, nil
}

func (m *memStore) MarkAlertSent(_ context.Context, symbol, pattern string, at time.Time) error {
	m.alerts[symbol+"|"+pattern] = at
	return nil
}

func (m *memStore) Close() error { return nil }

// memNotifier records sent alerts.
type memNotifier struct {
	sent []models.Alert
	err  error
}

func (n *memNotifier) Send(_ context.Context, alert models.Alert) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, alert)
	return nil
}

func testConfig(watchlist ...string) *config.Config {
	cfg := config.Default()
	cfg.Watchlist = watchlist
	return cfg
}

// trendingBars builds a long, gently rising daily history with periodic
// pullbacks so band and pullback rules see some variety.
func trendingBars(n int) []models.PriceBar {
	bars := make([]models.PriceBar, n)
	base := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := range bars {
		if i%40 < 4 {
			price *= 0.985
		} else {
			price *= 1.0015
		}
		bars[i] = models.PriceBar{
			Date:   base.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   price,
			High:   price * 1.005,
			Low:    price * 0.995,
			Close:  price,
			Volume: 1000,
		}
	}
	return bars
}

func newTestPipeline(cfg *config.Config, ds *memStore, notifier *memNotifier, at time.Time) *Pipeline {
	p := New(cfg, ds, notifier, narrative.TemplateWriter{}, zerolog.Nop())
	p.now = func() time.Time { return at }
	return p
}

func TestRun_PersistsStatsPerSymbol(t *testing.T) {
	ds := newMemStore()
	ds.bars["SPY"] = trendingBars(400)
	cfg := testConfig("SPY")
	cfg.Alerts.Enabled = false

	p := newTestPipeline(cfg, ds, &memNotifier{}, time.Now())
	if failures := p.Run(context.Background()); failures != 0 {
		t.Fatalf("failures = %d, want 0", failures)
	}

	stats, err := ds.GetAggregateStats(context.Background(), "SPY")
	if err != nil {
		t.Fatal(err)
	}

	kinds := make(map[string]int)
	for _, st := range stats {
		kinds[st.Kind]++
		if st.Source != "pipeline" || !st.RTH || !st.Adjusted {
			t.Errorf("stat metadata wrong: %+v", st)
		}
		if !json.Valid([]byte(st.Payload)) {
			t.Errorf("payload is not JSON: %s", st.Payload)
		}
	}
	if kinds["tail"] == 0 {
		t.Error("no tail stats persisted")
	}
	if kinds["backtest"] == 0 {
		t.Error("no backtest stats persisted")
	}
}

func TestRun_ShortHistorySkipsCleanly(t *testing.T) {
	ds := newMemStore()
	ds.bars["SPY"] = trendingBars(100)

	p := newTestPipeline(testConfig("SPY"), ds, &memNotifier{}, time.Now())
	if failures := p.Run(context.Background()); failures != 0 {
		t.Fatalf("failures = %d, want 0 for a clean skip", failures)
	}
	if ds.statCalls != 0 {
		t.Errorf("stats persisted for a skipped symbol: %d calls", ds.statCalls)
	}
}

func TestRun_IsolatesSymbolFailures(t *testing.T) {
	// Two symbols, the first symbol's load fails; the second still runs.
	ds := newMemStore()
	ds.bars["QQQ"] = trendingBars(400)
	flaky := &flakyStore{memStore: ds, failSymbol: "SPY", err: fmt.Errorf("disk on fire")}

	cfg := testConfig("SPY", "QQQ")
	cfg.Alerts.Enabled = false

	p := New(cfg, flaky, &memNotifier{}, narrative.TemplateWriter{}, zerolog.Nop())
	if failures := p.Run(context.Background()); failures != 1 {
		t.Fatalf("failures = %d, want 1", failures)
	}
	if ds.statCalls == 0 {
		t.Error("healthy symbol was not processed after the failing one")
	}
}

// flakyStore fails bar loads for one symbol only.
type flakyStore struct {
	*memStore
	failSymbol string
	err        error
}

func (f *flakyStore) GetBars(ctx context.Context, symbol, barSize string) ([]models.PriceBar, error) {
	if symbol == f.failSymbol {
		return nil, f.err
	}
	return f.memStore.GetBars(ctx, symbol, barSize)
}

func TestMaybeAlert_CooldownSuppresses(t *testing.T) {
	ds := newMemStore()
	// A flat series sits exactly on its SMA, so the SPY band rule fires on
	// every bar and passes the alert gate.
	ds.bars["SPY"] = flatHistory(400)

	cfg := testConfig("SPY")
	cfg.Alerts.MinTrades = 1
	cfg.Alerts.MinWinRate = 0.5

	now := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)
	notifier := &memNotifier{}
	p := newTestPipeline(cfg, ds, notifier, now)

	if failures := p.Run(context.Background()); failures != 0 {
		t.Fatalf("failures = %d", failures)
	}
	firstSent := len(notifier.sent)
	if firstSent == 0 {
		t.Fatal("expected at least one alert from the flat-series band rule")
	}
	if len(ds.alerts) == 0 {
		t.Fatal("alert timestamps not recorded")
	}

	// A rerun inside the cooldown window sends nothing new.
	p2 := newTestPipeline(cfg, ds, notifier, now.Add(30*time.Minute))
	if failures := p2.Run(context.Background()); failures != 0 {
		t.Fatalf("failures = %d", failures)
	}
	if len(notifier.sent) != firstSent {
		t.Errorf("alerts resent inside cooldown: %d -> %d", firstSent, len(notifier.sent))
	}

	// Past the cooldown the alert fires again.
	p3 := newTestPipeline(cfg, ds, notifier, now.Add(25*time.Hour))
	if failures := p3.Run(context.Background()); failures != 0 {
		t.Fatalf("failures = %d", failures)
	}
	if len(notifier.sent) <= firstSent {
		t.Error("alert not resent after the cooldown elapsed")
	}
}

func TestMaybeAlert_DeliveryFailureSkipsBookkeeping(t *testing.T) {
	ds := newMemStore()
	ds.bars["SPY"] = flatHistory(400)

	cfg := testConfig("SPY")
	cfg.Alerts.MinTrades = 1
	cfg.Alerts.MinWinRate = 0.5

	notifier := &memNotifier{err: fmt.Errorf("webhook down")}
	p := newTestPipeline(cfg, ds, notifier, time.Now())
	if failures := p.Run(context.Background()); failures != 0 {
		t.Fatalf("alerting is best-effort, failures = %d", failures)
	}
	if len(ds.alerts) != 0 {
		t.Error("failed delivery must not consume the cooldown")
	}
}

// flatHistory returns a constant-price daily series. Every close sits on
// its own SMA, so SMA-band rules fire on every bar.
func flatHistory(n int) []models.PriceBar {
	bars := make([]models.PriceBar, n)
	base := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = models.PriceBar{
			Date:   base.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   100,
			High:   100,
			Low:    100,
			Close:  100,
			Volume: 1000,
		}
	}
	return bars
}

func TestLoader_AppliesDetectedSplits(t *testing.T) {
	ds := newMemStore()
	bars := []models.PriceBar{
		{Date: "2023-06-01", Open: 400, High: 400, Low: 400, Close: 400, Volume: 1000},
		{Date: "2023-06-02", Open: 404, High: 404, Low: 404, Close: 404, Volume: 1000},
		{Date: "2023-06-05", Open: 202, High: 202, Low: 202, Close: 202, Volume: 2000},
	}
	ds.bars["NVDA"] = bars

	loader := NewHistoryLoader(ds, "1day")
	got, err := loader.Load(context.Background(), NewSplitCache(), "NVDA")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("bars = %d, want 3", len(got))
	}
	if got[0].Close != 200 || got[1].Close != 202 {
		t.Errorf("pre-split closes = %v, %v, want 200, 202", got[0].Close, got[1].Close)
	}
	if len(ds.detected["NVDA"]) != 1 {
		t.Errorf("detected records persisted = %d, want 1", len(ds.detected["NVDA"]))
	}
}

func TestLoader_CacheSkipsRedetection(t *testing.T) {
	ds := newMemStore()
	ds.bars["SPY"] = flatHistory(10)

	cache := NewSplitCache()
	loader := NewHistoryLoader(ds, "1day")

	if _, err := loader.Load(context.Background(), cache, "SPY"); err != nil {
		t.Fatal(err)
	}
	// Add a vendor record after the first load: a cached second load must
	// not re-resolve and see it.
	ds.vendor["SPY"] = []models.SplitFactor{{Symbol: "SPY", Date: "2021-01-10", Factor: 0.5, Source: "vendor"}}

	got, err := loader.Load(context.Background(), cache, "SPY")
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Close != 100 {
		t.Error("cached factors ignored; stale storage was re-read")
	}

	cache.Invalidate("SPY")
	got, err = loader.Load(context.Background(), cache, "SPY")
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Close == 100 {
		t.Error("invalidation must force re-resolution")
	}
}

func TestLoader_LogsSplitDetection(t *testing.T) {
	ds := newMemStore()
	ds.bars["NVDA"] = []models.PriceBar{
		{Date: "2023-06-01", Open: 400, High: 400, Low: 400, Close: 400, Volume: 1000},
		{Date: "2023-06-02", Open: 404, High: 404, Low: 404, Close: 404, Volume: 1000},
		{Date: "2023-06-05", Open: 202, High: 202, Low: 202, Close: 202, Volume: 2000},
	}

	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), zerolog.New(&buf))

	if _, err := NewHistoryLoader(ds, "1day").Load(ctx, NewSplitCache(), "NVDA"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(buf.String(), "split_detection") {
		t.Errorf("detection run not logged: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"detected":1`) {
		t.Errorf("detected count missing from the log: %s", buf.String())
	}
}

func TestLoader_FiltersInvalidBars(t *testing.T) {
	ds := newMemStore()
	ds.bars["SPY"] = []models.PriceBar{
		{Date: "2023-01-02", Close: 100},
		{Date: "2023-01-03", Close: 0},
		{Date: "2023-01-04", Close: -5},
		{Date: "2023-01-05", Close: 101},
	}

	got, err := NewHistoryLoader(ds, "1day").Load(context.Background(), NewSplitCache(), "SPY")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("bars = %d, want 2 after filtering", len(got))
	}
}

func TestTemplateCommentaryFeedsAlertBody(t *testing.T) {
	ds := newMemStore()
	ds.bars["SPY"] = flatHistory(400)

	cfg := testConfig("SPY")
	cfg.Alerts.MinTrades = 1
	cfg.Alerts.MinWinRate = 0.5

	notifier := &memNotifier{}
	p := newTestPipeline(cfg, ds, notifier, time.Now())
	if failures := p.Run(context.Background()); failures != 0 {
		t.Fatalf("failures = %d", failures)
	}
	if len(notifier.sent) == 0 {
		t.Fatal("no alert sent")
	}
	alert := notifier.sent[0]
	if alert.Body == "" {
		t.Error("alert body empty")
	}
	if !strings.Contains(alert.Headline, "SPY") {
		t.Errorf("headline missing symbol: %s", alert.Headline)
	}
	if alert.Data["strategy"] == "" || alert.Data["win_rate"] == "" {
		t.Errorf("alert data incomplete: %v", alert.Data)
	}
}
