package cache

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	c "ctrltune/internal/controller"
	"ctrltune/internal/model"
	"ctrltune/internal/opt"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestCache(t *testing.T, opts ...Option) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithLogger(quietLogger()), WithClock(clock.Now)}, opts...)
	return New(opt.New(), opts...), clock
}

// remote conditions: every pre-generated profile scores below the fuzzy threshold
var remote = model.Conditions{Temperature: 45, Grade: 4.9, Load: 490}

func TestPregeneratedMatrix(t *testing.T) {
	cc, _ := newTestCache(t)
	st := cc.Stats()
	assert.Equal(t, 3*7*7, st.Pregenerated)
	assert.Equal(t, 3*len(quickScenarios), st.Quick)
	assert.Zero(t, st.UserGenerated)
	assert.Equal(t, st.Pregenerated+st.Quick, st.Entries)
	assert.Len(t, cc.Entries(), st.Entries)
}

func TestExactHitMatchesDirectComputation(t *testing.T) {
	cc, _ := newTestCache(t)
	prio := pw(9, 3, 7, 2, 4, 3)
	cond := model.Conditions{Temperature: 70}

	got, ok := cc.Get(model.VehicleE4, prio, cond)
	require.True(t, ok)
	assert.True(t, got.Cached)
	assert.Equal(t, model.CacheHitExact, got.CacheHit)
	assert.Equal(t, "e4_speed_focused_ideal", got.CacheKey)
	assert.Equal(t, 1.0, got.Confidence)
	require.NotNil(t, got.GeneratedAt)
	assert.Less(t, got.OptimizedSettings[c.MinFieldCurrent], 65)

	direct := opt.New().Optimize(model.LookupRequest{
		Vehicle:    model.VehicleE4,
		Priorities: prio,
		Conditions: cond,
		Battery:    model.BatteryProfile{Chemistry: model.ChemistryLead, Voltage: model.DefaultVoltage},
		Wheel:      model.WheelProfile{TireDiameter: model.ReferenceTireInches},
	}.OptimizeRequest())
	assert.Equal(t, direct, got.StripCacheMetadata())
}

func TestExactHitReturnsCopies(t *testing.T) {
	cc, _ := newTestCache(t)
	prio := pw(3, 9, 3, 6, 4, 8)
	cond := model.Conditions{Temperature: 100}
	first, ok := cc.Get(model.VehicleE2, prio, cond)
	require.True(t, ok)
	first.OptimizedSettings[c.MaxArmatureCurrent] = 1
	first.PerformanceChanges = append(first.PerformanceChanges, "mutated")

	second, ok := cc.Get(model.VehicleE2, prio, cond)
	require.True(t, ok)
	assert.NotEqual(t, 1, second.OptimizedSettings[c.MaxArmatureCurrent])
	assert.NotContains(t, second.PerformanceChanges, "mutated")
}

func TestFuzzyHitPicksMostSimilar(t *testing.T) {
	cc, _ := newTestCache(t)
	got, ok := cc.Get(model.VehicleE4, pw(9, 3, 7, 2, 4, 3), model.Conditions{Temperature: 75, Grade: 1, Load: 250})
	require.True(t, ok)
	assert.Equal(t, model.CacheHitFuzzy, got.CacheHit)
	assert.Equal(t, "e4_speed_focused_t80_g3_l300", got.CacheKey)
	assert.InDelta(t, 0.76, got.Similarity, 1e-9)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
}

func TestFuzzyOnCompositePriorityBucket(t *testing.T) {
	cc, _ := newTestCache(t)
	got, ok := cc.Get(model.VehicleE6, pw(7, 6, 3, 5, 3, 6), model.Conditions{Temperature: 88, Grade: 4.5, Load: 480})
	require.True(t, ok)
	assert.Equal(t, model.CacheHitFuzzy, got.CacheHit)
	assert.Equal(t, "e6_s7_r6_e5_a3_t90_g4_l500", got.CacheKey)
}

func TestCompositeBucketBelowThresholdMisses(t *testing.T) {
	cc, _ := newTestCache(t)
	_, ok := cc.Get(model.VehicleE4, pw(7, 6, 3, 5, 3, 6), remote)
	assert.False(t, ok)
	assert.EqualValues(t, 1, cc.Stats().Misses)
}

func TestQuickScenarioFallback(t *testing.T) {
	cc, _ := newTestCache(t)
	got, ok := cc.Get(model.VehicleE4, pw(9, 3, 7, 2, 4, 3), remote)
	require.True(t, ok)
	assert.Equal(t, model.CacheHitQuick, got.CacheHit)
	assert.Equal(t, "quick_max_speed_e4", got.CacheKey)
	assert.InDelta(t, 0.9*0.85, got.Confidence, 1e-9)
	assert.Equal(t, 55, got.OptimizedSettings[c.MinFieldCurrent])
	assert.Equal(t, model.VehicleE4, got.Analysis.VehicleModel)

	got, ok = cc.Get(model.VehicleE2, pw(5, 5, 5, 5, 5, 5), remote)
	require.True(t, ok)
	assert.Equal(t, "quick_balanced_e2", got.CacheKey)
	assert.Equal(t, c.FactoryDefaults(), got.OptimizedSettings)
	assert.Empty(t, got.PerformanceChanges)
}

func TestQuickScenariosWithinBounds(t *testing.T) {
	for _, q := range quickScenarios {
		res := q.result()
		assert.Empty(t, res.OptimizedSettings.Violations(), q.name)
		assert.Empty(t, res.Analysis.Clamped, q.name)
	}
}

func TestUnknownVehicleMisses(t *testing.T) {
	cc, _ := newTestCache(t)
	_, ok := cc.Get(model.VehicleES, pw(9, 3, 7, 2, 4, 3), model.Conditions{Temperature: 70})
	assert.False(t, ok)
}

func TestAddAndPrune(t *testing.T) {
	cc, clock := newTestCache(t, WithUserTTL(24*time.Hour))
	before := cc.Stats()
	prio := pw(9, 3, 7, 2, 4, 3)
	cond := model.Conditions{Temperature: 70}
	res := opt.New().Optimize(model.LookupRequest{Vehicle: model.VehicleES, Priorities: prio, Conditions: cond}.OptimizeRequest())

	key := cc.Add(model.VehicleES, prio, cond, res)
	assert.Equal(t, "eS_speed_focused_ideal", key)
	got, ok := cc.Get(model.VehicleES, prio, cond)
	require.True(t, ok)
	assert.Equal(t, model.CacheHitExact, got.CacheHit)
	assert.Equal(t, res, got.StripCacheMetadata())

	clock.Advance(23 * time.Hour)
	cc.Add(model.VehicleES, prio, model.Conditions{Temperature: 100}, res)
	assert.Zero(t, cc.Prune())

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, cc.Prune())
	_, ok = cc.Get(model.VehicleES, prio, cond)
	assert.False(t, ok)

	after := cc.Stats()
	assert.Equal(t, before.Pregenerated, after.Pregenerated)
	assert.Equal(t, before.Quick, after.Quick)
	assert.Equal(t, 1, after.UserGenerated)
}

func TestPruneRestoresReplacedPregenerated(t *testing.T) {
	cc, clock := newTestCache(t)
	prio := pw(9, 3, 7, 2, 4, 3)
	cond := model.Conditions{Temperature: 70}
	original, ok := cc.Get(model.VehicleE4, prio, cond)
	require.True(t, ok)
	before := cc.Stats()

	res := opt.New().Optimize(model.LookupRequest{Vehicle: model.VehicleE4, Priorities: prio, Conditions: cond}.OptimizeRequest())
	res.PerformanceChanges = []string{"replaced"}
	assert.Equal(t, "e4_speed_focused_ideal", cc.Add(model.VehicleE4, prio, cond, res))

	got, ok := cc.Get(model.VehicleE4, prio, cond)
	require.True(t, ok)
	assert.Equal(t, []string{"replaced"}, got.PerformanceChanges)
	assert.Equal(t, before.Pregenerated-1, cc.Stats().Pregenerated)

	clock.Advance(25 * time.Hour)
	assert.Equal(t, 1, cc.Prune())

	got, ok = cc.Get(model.VehicleE4, prio, cond)
	require.True(t, ok)
	assert.Equal(t, model.CacheHitExact, got.CacheHit)
	assert.Equal(t, "e4_speed_focused_ideal", got.CacheKey)
	assert.Equal(t, original.StripCacheMetadata(), got.StripCacheMetadata())

	after := cc.Stats()
	assert.Equal(t, before.Pregenerated, after.Pregenerated)
	assert.Zero(t, after.UserGenerated)

	clock.Advance(48 * time.Hour)
	assert.Zero(t, cc.Prune(), "restored entries are not prunable")
}

func TestResolveFallsThroughToOptimizer(t *testing.T) {
	cc, _ := newTestCache(t)
	req := model.LookupRequest{Vehicle: model.VehicleEL, Priorities: pw(3, 9, 3, 6, 4, 8), Conditions: model.Conditions{Temperature: 30}}

	res, outcome, err := cc.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeOptimized, outcome)
	assert.Equal(t, "eL_range_focused_cold", res.CacheKey)
	assert.False(t, res.Cached)

	res, outcome, err = cc.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, OutcomeExact, outcome)
	assert.True(t, res.Cached)
}

func TestResolveHonoursCancelledContextOnMiss(t *testing.T) {
	cc, _ := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := model.LookupRequest{Vehicle: model.VehicleEL, Priorities: pw(3, 9, 3, 6, 4, 8), Conditions: model.Conditions{Temperature: 30}}
	_, _, err := cc.Resolve(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, cc.Stats().UserGenerated)

	_, outcome, err := cc.Resolve(ctx, model.LookupRequest{Vehicle: model.VehicleE4, Priorities: pw(3, 9, 3, 6, 4, 8), Conditions: model.Conditions{Temperature: 30}})
	require.NoError(t, err)
	assert.Equal(t, OutcomeExact, outcome)
}

func TestEntryConditionsFallsBackToRepresentative(t *testing.T) {
	cond, ok := entryConditions(ScenarioMetadata{Condition: "hills"})
	require.True(t, ok)
	assert.Equal(t, model.Conditions{Temperature: 70, Grade: 8}, cond)

	_, ok = entryConditions(ScenarioMetadata{Condition: "t50_g1_l100"})
	assert.False(t, ok)
}

func TestStatsHitRate(t *testing.T) {
	cc, _ := newTestCache(t)
	cc.Get(model.VehicleE4, pw(9, 3, 7, 2, 4, 3), model.Conditions{Temperature: 70})
	cc.Get(model.VehicleE4, pw(7, 6, 3, 5, 3, 6), remote)
	st := cc.Stats()
	assert.EqualValues(t, 1, st.ExactHits)
	assert.EqualValues(t, 1, st.Misses)
	assert.InDelta(t, 0.5, st.HitRate, 1e-9)
}

func TestPrunerSweeps(t *testing.T) {
	cc, clock := newTestCache(t, WithoutPregeneration(), WithUserTTL(time.Minute))
	res := opt.New().Optimize(model.OptimizeRequest{})
	cc.Add(model.VehicleE4, pw(9, 3, 7, 2, 4, 3), model.Conditions{Temperature: 70}, res)
	clock.Advance(time.Hour)

	p := NewPruner(cc, 0)
	assert.Equal(t, DefaultPruneInterval, p.Interval)
	var got int
	p.OnPrune = func(n int) { got = n }
	assert.Equal(t, 1, p.runOnce())
	assert.Equal(t, 1, got)
	assert.Zero(t, cc.Stats().Entries)
}

func TestConcurrentLookups(t *testing.T) {
	cc, _ := newTestCache(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				cond := model.Conditions{Temperature: float64(30 + i*10), Grade: float64(j % 7), Load: float64(j * 10)}
				_, _, _ = cc.Resolve(context.Background(), model.LookupRequest{Vehicle: model.VehicleE4, Priorities: pw(float64(i), 5, 5, 5, 5, 5), Conditions: cond})
			}
		}(i)
	}
	wg.Wait()
	assert.Positive(t, cc.Stats().Entries)
}
