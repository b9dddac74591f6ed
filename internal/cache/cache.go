package cache

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"ctrltune/internal/metrics"
	"ctrltune/internal/model"
)

// Optimizer is the direct computation the cache sits in front of.
type Optimizer interface {
	Optimize(req model.OptimizeRequest) model.OptimizationResult
}

// Lookup tuning.
const (
	DefaultFuzzyThreshold = 0.6
	DefaultUserTTL        = 24 * time.Hour
	fuzzyConfidence       = 0.9
	quickHitConfidence    = 0.85
)

// ScenarioMetadata describes how an entry came to be cached.
type ScenarioMetadata struct {
	Vehicle       model.VehicleModel `json:"vehicle"`
	Priority      string             `json:"priority"`
	Condition     string             `json:"condition"`
	Conditions    *model.Conditions  `json:"conditions,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UserGenerated bool               `json:"userGenerated"`
	Quick         bool               `json:"quick,omitempty"`
}

type entry struct {
	result model.OptimizationResult
	meta   ScenarioMetadata
}

type indexKey struct {
	vehicle  model.VehicleModel
	priority string
}

// Cache owns the scenario map and its lookup index. Create one per process
// (or per test) with New and inject it where needed.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	index   map[indexKey]map[string]struct{} // vehicle+priority -> non-quick keys
	seeded  map[string]*entry                // pre-generated entries shadowed by Add

	opt            Optimizer
	now            func() time.Time
	userTTL        time.Duration
	fuzzyThreshold float64
	vehicles       []model.VehicleModel
	pregenerate    bool
	battery        model.BatteryProfile
	wheel          model.WheelProfile
	log            logrus.FieldLogger

	exactHits, fuzzyHits, quickHits, misses atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// WithUserTTL sets the age after which user-generated entries are pruned.
func WithUserTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.userTTL = d
		}
	}
}

// WithFuzzyThreshold sets the minimum similarity for a fuzzy hit.
func WithFuzzyThreshold(t float64) Option {
	return func(c *Cache) {
		if t > 0 && t < 1 {
			c.fuzzyThreshold = t
		}
	}
}

// WithVehicles replaces the pre-generated vehicle set.
func WithVehicles(v ...model.VehicleModel) Option {
	return func(c *Cache) { c.vehicles = append([]model.VehicleModel(nil), v...) }
}

// WithoutPregeneration starts with an empty scenario map.
func WithoutPregeneration() Option { return func(c *Cache) { c.pregenerate = false } }

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(c *Cache) { c.log = l } }

// New builds a cache and pre-generates the scenario matrix and quick
// scenarios for the configured vehicles.
func New(o Optimizer, opts ...Option) *Cache {
	c := &Cache{
		entries:        map[string]*entry{},
		index:          map[indexKey]map[string]struct{}{},
		seeded:         map[string]*entry{},
		opt:            o,
		now:            time.Now,
		userTTL:        DefaultUserTTL,
		fuzzyThreshold: DefaultFuzzyThreshold,
		vehicles:       PregenVehicles,
		pregenerate:    true,
		battery:        model.BatteryProfile{Chemistry: model.ChemistryLead, Voltage: model.DefaultVoltage},
		wheel:          model.WheelProfile{TireDiameter: model.ReferenceTireInches},
		log:            logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pregenerate {
		c.pregen()
	}
	c.updateGauges()
	return c
}

func (c *Cache) pregen() {
	start := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.vehicles {
		for _, pp := range PriorityProfiles() {
			pb := HashPriorities(pp.Weights)
			for _, cp := range ConditionProfiles() {
				req := model.LookupRequest{Vehicle: v, Priorities: pp.Weights, Conditions: cp.Conditions, Battery: c.battery, Wheel: c.wheel}
				res := c.opt.Optimize(req.OptimizeRequest())
				cond := cp.Conditions
				c.putLocked(GenerateCacheKey(v, pb, HashConditions(cond)), res, ScenarioMetadata{
					Vehicle:    v,
					Priority:   pb.String(),
					Condition:  HashConditions(cond).String(),
					Conditions: &cond,
					CreatedAt:  start,
				})
			}
		}
		for _, q := range quickScenarios {
			res := q.result()
			res.Analysis.VehicleModel = v
			c.entries[QuickKey(q.name, v)] = &entry{result: res, meta: ScenarioMetadata{
				Vehicle:   v,
				Priority:  q.name,
				CreatedAt: start,
				Quick:     true,
			}}
		}
	}
	c.log.WithField("entries", len(c.entries)).Info("optimization cache pre-generated")
}

func (c *Cache) putLocked(key string, res model.OptimizationResult, meta ScenarioMetadata) {
	c.entries[key] = &entry{result: res.StripCacheMetadata(), meta: meta}
	ik := indexKey{vehicle: meta.Vehicle, priority: meta.Priority}
	if c.index[ik] == nil {
		c.index[ik] = map[string]struct{}{}
	}
	c.index[ik][key] = struct{}{}
}

// Get looks up a result: exact key, then the most similar cached condition
// for the same vehicle and priority bucket, then the quick scenario for the
// priority bucket. A miss returns false and is not an error.
func (c *Cache) Get(vehicle model.VehicleModel, priorities model.PriorityWeights, conditions model.Conditions) (model.OptimizationResult, bool) {
	pb := HashPriorities(priorities)
	cb := HashConditions(conditions)
	key := GenerateCacheKey(vehicle, pb, cb)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.entries[key]; ok && !e.meta.Quick {
		c.exactHits.Add(1)
		metrics.CacheLookups.WithLabelValues(string(model.CacheHitExact)).Inc()
		return annotate(e, key, model.CacheHitExact, 1, 0), true
	}
	if k, score, ok := c.bestFuzzyLocked(vehicle, pb, conditions); ok {
		c.fuzzyHits.Add(1)
		metrics.CacheLookups.WithLabelValues(string(model.CacheHitFuzzy)).Inc()
		return annotate(c.entries[k], k, model.CacheHitFuzzy, fuzzyConfidence, score), true
	}
	if name, ok := quickFor(pb); ok {
		qk := QuickKey(name, vehicle)
		if e, ok := c.entries[qk]; ok {
			c.quickHits.Add(1)
			metrics.CacheLookups.WithLabelValues(string(model.CacheHitQuick)).Inc()
			return annotate(e, qk, model.CacheHitQuick, quickHitConfidence, 0), true
		}
	}
	c.misses.Add(1)
	metrics.CacheLookups.WithLabelValues("miss").Inc()
	return model.OptimizationResult{}, false
}

// bestFuzzyLocked scores every cached condition sharing the vehicle and
// priority bucket. Ties resolve to the lexically smallest key.
func (c *Cache) bestFuzzyLocked(vehicle model.VehicleModel, pb PriorityBucket, live model.Conditions) (string, float64, bool) {
	keys := c.index[indexKey{vehicle: vehicle, priority: pb.String()}]
	best, bestScore := "", -1.0
	for k := range keys {
		cond, ok := entryConditions(c.entries[k].meta)
		if !ok {
			continue
		}
		s := Similarity(live, cond)
		if s > bestScore || (s == bestScore && k < best) {
			best, bestScore = k, s
		}
	}
	if best == "" || bestScore <= c.fuzzyThreshold {
		return "", 0, false
	}
	return best, bestScore, true
}

// entryConditions prefers the numeric conditions stored with the entry and
// falls back to the bucket's representative conditions.
func entryConditions(m ScenarioMetadata) (model.Conditions, bool) {
	if m.Conditions != nil {
		return *m.Conditions, true
	}
	for k, name := range conditionNames {
		if name == m.Condition {
			return ConditionBucket{Kind: k}.Representative()
		}
	}
	return model.Conditions{}, false
}

// Similarity scores two conditions in [0,1] as the product of per-dimension
// closeness over temperature (50°F), grade (10%) and load (1000 lbs).
func Similarity(a, b model.Conditions) float64 {
	return closeness(a.Temperature-b.Temperature, 50) *
		closeness(a.Grade-b.Grade, 10) *
		closeness(a.Load-b.Load, 1000)
}

func closeness(delta, span float64) float64 {
	return math.Max(0, math.Min(1, 1-math.Abs(delta)/span))
}

func annotate(e *entry, key string, hit model.CacheHit, confidence, similarity float64) model.OptimizationResult {
	out := e.result.Clone()
	ts := e.meta.CreatedAt
	out.Cached = true
	out.CacheHit = hit
	out.CacheKey = key
	out.GeneratedAt = &ts
	out.Confidence *= confidence
	out.Similarity = similarity
	return out
}

// Add stores a runtime result under the scenario key for the inputs and
// returns the key. Runtime entries are user-generated and prunable; a
// pre-generated entry under the same key is restored when they expire.
func (c *Cache) Add(vehicle model.VehicleModel, priorities model.PriorityWeights, conditions model.Conditions, result model.OptimizationResult) string {
	pb := HashPriorities(priorities)
	cb := HashConditions(conditions)
	key := GenerateCacheKey(vehicle, pb, cb)
	cond := conditions
	c.mu.Lock()
	if prev, ok := c.entries[key]; ok && !prev.meta.UserGenerated {
		c.seeded[key] = prev
	}
	c.putLocked(key, result, ScenarioMetadata{
		Vehicle:       vehicle,
		Priority:      pb.String(),
		Condition:     cb.String(),
		Conditions:    &cond,
		CreatedAt:     c.now(),
		UserGenerated: true,
	})
	c.mu.Unlock()
	c.updateGauges()
	c.log.WithField("key", key).Debug("cached runtime optimization")
	return key
}

// Prune removes user-generated entries older than the TTL and restores any
// pre-generated entry they replaced. Pre-generated and quick entries are
// never removed.
func (c *Cache) Prune() int {
	cutoff := c.now().Add(-c.userTTL)
	removed := 0
	c.mu.Lock()
	for k, e := range c.entries {
		if !e.meta.UserGenerated || !e.meta.CreatedAt.Before(cutoff) {
			continue
		}
		removed++
		if prev, ok := c.seeded[k]; ok {
			c.entries[k] = prev
			delete(c.seeded, k)
			continue
		}
		delete(c.entries, k)
		ik := indexKey{vehicle: e.meta.Vehicle, priority: e.meta.Priority}
		if set := c.index[ik]; set != nil {
			delete(set, k)
			if len(set) == 0 {
				delete(c.index, ik)
			}
		}
	}
	c.mu.Unlock()
	if removed > 0 {
		metrics.CachePruned.Add(float64(removed))
		c.updateGauges()
		c.log.WithField("removed", removed).Info("pruned user-generated cache entries")
	}
	return removed
}

// Outcome describes how Resolve produced its result.
type Outcome string

const (
	OutcomeExact     Outcome = "exact"
	OutcomeFuzzy     Outcome = "fuzzy"
	OutcomeQuick     Outcome = "quick"
	OutcomeOptimized Outcome = "optimized"
)

// Resolve runs the lookup chain and on a miss invokes the optimizer and
// caches the fresh result. The only error is a done context on a miss.
func (c *Cache) Resolve(ctx context.Context, req model.LookupRequest) (model.OptimizationResult, Outcome, error) {
	if res, ok := c.Get(req.Vehicle, req.Priorities, req.Conditions); ok {
		return res, Outcome(res.CacheHit), nil
	}
	if err := ctx.Err(); err != nil {
		return model.OptimizationResult{}, "", err
	}
	res := c.opt.Optimize(req.OptimizeRequest())
	key := c.Add(req.Vehicle, req.Priorities, req.Conditions, res)
	res.CacheKey = key
	return res, OutcomeOptimized, nil
}

// Entry is a read-only view of a cached scenario.
type Entry struct {
	Key  string           `json:"key"`
	Meta ScenarioMetadata `json:"meta"`
}

// Entries lists cached scenarios ordered by key.
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	out := make([]Entry, 0, len(c.entries))
	for k, e := range c.entries {
		out = append(out, Entry{Key: k, Meta: e.meta})
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Stats summarises cache contents and lookup outcomes.
type Stats struct {
	Entries       int     `json:"entries"`
	Pregenerated  int     `json:"pregenerated"`
	Quick         int     `json:"quick"`
	UserGenerated int     `json:"userGenerated"`
	ExactHits     int64   `json:"exactHits"`
	FuzzyHits     int64   `json:"fuzzyHits"`
	QuickHits     int64   `json:"quickHits"`
	Misses        int64   `json:"misses"`
	HitRate       float64 `json:"hitRate"`
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	var s Stats
	c.mu.RLock()
	s.Entries = len(c.entries)
	for _, e := range c.entries {
		switch {
		case e.meta.Quick:
			s.Quick++
		case e.meta.UserGenerated:
			s.UserGenerated++
		default:
			s.Pregenerated++
		}
	}
	c.mu.RUnlock()
	s.ExactHits = c.exactHits.Load()
	s.FuzzyHits = c.fuzzyHits.Load()
	s.QuickHits = c.quickHits.Load()
	s.Misses = c.misses.Load()
	if total := s.ExactHits + s.FuzzyHits + s.QuickHits + s.Misses; total > 0 {
		s.HitRate = float64(total-s.Misses) / float64(total)
	}
	return s
}

func (c *Cache) updateGauges() {
	s := c.Stats()
	metrics.CacheEntries.WithLabelValues("pregenerated").Set(float64(s.Pregenerated))
	metrics.CacheEntries.WithLabelValues("quick").Set(float64(s.Quick))
	metrics.CacheEntries.WithLabelValues("user").Set(float64(s.UserGenerated))
}
