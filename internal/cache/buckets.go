// Package cache memoizes optimizer results behind categorical scenario keys
// and answers lookups by exact key, by similarity across cached conditions
// and by hand-tuned quick scenarios.
package cache

import (
	"fmt"
	"math"

	"ctrltune/internal/model"
)

// PriorityKind enumerates priority buckets. PriorityOther carries a
// composite summary of the rounded weights.
type PriorityKind int

const (
	PriorityOther PriorityKind = iota
	SpeedFocused
	RangeFocused
	EfficiencyFocused
	Performance
	Balanced
)

var priorityNames = map[PriorityKind]string{
	SpeedFocused:      "speed_focused",
	RangeFocused:      "range_focused",
	EfficiencyFocused: "efficiency_focused",
	Performance:       "performance",
	Balanced:          "balanced",
}

// PriorityBucket is the categorical form of a PriorityWeights.
type PriorityBucket struct {
	Kind    PriorityKind
	Summary string // set only for PriorityOther
}

func (b PriorityBucket) String() string {
	if b.Kind == PriorityOther {
		return b.Summary
	}
	return priorityNames[b.Kind]
}

// Named reports whether b is one of the fixed buckets.
func (b PriorityBucket) Named() bool { return b.Kind != PriorityOther }

// Thresholds used by the hashers.
const (
	dominantWeight  = 8.0
	balancedSpread  = 2.0
	coldBelowF      = 40.0
	hotAboveF       = 90.0
	hillsAboveGrade = 5.0
	loadedAboveLbs  = 500.0
)

// HashPriorities buckets weights. A single weight at or above 8 wins in the
// order speed, range, efficiency, acceleration; otherwise near-equal speed,
// range and acceleration is balanced; otherwise a composite summary.
func HashPriorities(p model.PriorityWeights) PriorityBucket {
	w := p.Resolve()
	switch {
	case w.Speed >= dominantWeight:
		return PriorityBucket{Kind: SpeedFocused}
	case w.Range >= dominantWeight:
		return PriorityBucket{Kind: RangeFocused}
	case w.Efficiency >= dominantWeight:
		return PriorityBucket{Kind: EfficiencyFocused}
	case w.Acceleration >= dominantWeight:
		return PriorityBucket{Kind: Performance}
	}
	hi := math.Max(w.Speed, math.Max(w.Range, w.Acceleration))
	lo := math.Min(w.Speed, math.Min(w.Range, w.Acceleration))
	if hi-lo <= balancedSpread {
		return PriorityBucket{Kind: Balanced}
	}
	return PriorityBucket{Kind: PriorityOther, Summary: fmt.Sprintf("s%d_r%d_e%d_a%d",
		roundInt(w.Speed), roundInt(w.Range), roundInt(w.Efficiency), roundInt(w.Acceleration))}
}

// ConditionKind enumerates condition buckets.
type ConditionKind int

const (
	ConditionOther ConditionKind = iota
	Cold
	Hot
	Hills
	Loaded
	Ideal
)

var conditionNames = map[ConditionKind]string{
	Cold:   "cold",
	Hot:    "hot",
	Hills:  "hills",
	Loaded: "loaded",
	Ideal:  "ideal",
}

// representative conditions for the named buckets
var representatives = map[ConditionKind]model.Conditions{
	Cold:   {Temperature: 30, Grade: 0, Load: 0},
	Hot:    {Temperature: 100, Grade: 0, Load: 0},
	Hills:  {Temperature: 70, Grade: 8, Load: 0},
	Loaded: {Temperature: 70, Grade: 0, Load: 800},
	Ideal:  {Temperature: 70, Grade: 0, Load: 0},
}

// ConditionBucket is the categorical form of live Conditions.
type ConditionBucket struct {
	Kind    ConditionKind
	Summary string // set only for ConditionOther
}

func (b ConditionBucket) String() string {
	if b.Kind == ConditionOther {
		return b.Summary
	}
	return conditionNames[b.Kind]
}

// Named reports whether b is one of the fixed buckets.
func (b ConditionBucket) Named() bool { return b.Kind != ConditionOther }

// Representative returns the canonical conditions of a named bucket.
func (b ConditionBucket) Representative() (model.Conditions, bool) {
	c, ok := representatives[b.Kind]
	return c, ok
}

// HashConditions buckets live conditions: cold, hot, hills, loaded, ideal in
// that order, else a composite of rounded values.
func HashConditions(c model.Conditions) ConditionBucket {
	switch {
	case c.Temperature < coldBelowF:
		return ConditionBucket{Kind: Cold}
	case c.Temperature > hotAboveF:
		return ConditionBucket{Kind: Hot}
	case c.Grade > hillsAboveGrade:
		return ConditionBucket{Kind: Hills}
	case c.Load > loadedAboveLbs:
		return ConditionBucket{Kind: Loaded}
	case c.Temperature >= 60 && c.Temperature <= 80 && c.Grade < 2 && c.Load < 200:
		return ConditionBucket{Kind: Ideal}
	}
	return ConditionBucket{Kind: ConditionOther, Summary: fmt.Sprintf("t%d_g%d_l%d",
		roundInt(c.Temperature/10)*10, roundInt(c.Grade), roundInt(c.Load/100)*100)}
}

// GenerateCacheKey builds "{vehicle}_{priority}_{condition}".
func GenerateCacheKey(vehicle model.VehicleModel, p PriorityBucket, c ConditionBucket) string {
	return fmt.Sprintf("%s_%s_%s", vehicle, p, c)
}

func roundInt(v float64) int { return int(math.Round(v)) }
