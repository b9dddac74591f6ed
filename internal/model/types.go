package model

import (
	"time"

	"ctrltune/internal/controller"
)

// Core input profiles. All are immutable values supplied per call.

type VehicleModel string

const (
	VehicleE2   VehicleModel = "e2"
	VehicleE4   VehicleModel = "e4"
	VehicleE6   VehicleModel = "e6"
	VehicleES   VehicleModel = "eS"
	VehicleEL   VehicleModel = "eL"
	VehicleELXD VehicleModel = "elXD"
)

type MotorCondition string

const (
	MotorGood     MotorCondition = "good"
	MotorFair     MotorCondition = "fair"
	MotorSparking MotorCondition = "sparking"
)

type Chemistry string

const (
	ChemistryLead    Chemistry = "lead"
	ChemistryLithium Chemistry = "lithium"
)

type TerrainClass string

const (
	TerrainFlat     TerrainClass = "flat"
	TerrainMixed    TerrainClass = "mixed"
	TerrainModerate TerrainClass = "moderate"
	TerrainSteep    TerrainClass = "steep"
)

type VehicleLoad string

const (
	LoadLight  VehicleLoad = "light"
	LoadMedium VehicleLoad = "medium"
	LoadHeavy  VehicleLoad = "heavy"
	LoadMax    VehicleLoad = "max"
)

type TemperatureBand string

const (
	TempCold    TemperatureBand = "cold"
	TempMild    TemperatureBand = "mild"
	TempHot     TemperatureBand = "hot"
	TempExtreme TemperatureBand = "extreme"
)

type VehicleProfile struct {
	Model          VehicleModel   `json:"model" yaml:"model"`
	TopSpeedRating float64        `json:"topSpeedRating,omitempty" yaml:"topSpeedRating,omitempty"`
	MotorCondition MotorCondition `json:"motorCondition,omitempty" yaml:"motorCondition,omitempty"`
}

type BatteryProfile struct {
	Chemistry Chemistry `json:"chemistry,omitempty" yaml:"chemistry,omitempty"`
	Voltage   float64   `json:"voltage,omitempty" yaml:"voltage,omitempty"`
	Capacity  float64   `json:"capacity,omitempty" yaml:"capacity,omitempty"` // amp-hours
	Age       string    `json:"age,omitempty" yaml:"age,omitempty"`
}

type WheelProfile struct {
	TireDiameter float64 `json:"tireDiameter,omitempty" yaml:"tireDiameter,omitempty"` // inches
	GearRatio    float64 `json:"gearRatio,omitempty" yaml:"gearRatio,omitempty"`
}

type EnvironmentProfile struct {
	TerrainClass     TerrainClass    `json:"terrainClass,omitempty" yaml:"terrainClass,omitempty"`
	VehicleLoad      VehicleLoad     `json:"vehicleLoad,omitempty" yaml:"vehicleLoad,omitempty"`
	TemperatureBand  TemperatureBand `json:"temperatureBand,omitempty" yaml:"temperatureBand,omitempty"`
	HillGradePercent float64         `json:"hillGradePercent,omitempty" yaml:"hillGradePercent,omitempty"`
}

// Reference values substituted when optional inputs are absent.
const (
	DefaultVoltage      = 72.0
	ReferenceTireInches = 22.0
	DefaultWeight       = 5.0
)

// PriorityWeights are independent 0-10 weights. A nil weight is unset and
// is distinct from an explicit zero.
type PriorityWeights struct {
	Range        *float64 `json:"range,omitempty" yaml:"range,omitempty"`
	Speed        *float64 `json:"speed,omitempty" yaml:"speed,omitempty"`
	Acceleration *float64 `json:"acceleration,omitempty" yaml:"acceleration,omitempty"`
	HillClimbing *float64 `json:"hillClimbing,omitempty" yaml:"hillClimbing,omitempty"`
	Regen        *float64 `json:"regen,omitempty" yaml:"regen,omitempty"`
	Efficiency   *float64 `json:"efficiency,omitempty" yaml:"efficiency,omitempty"`
}

// Weight returns a pointer to v for building PriorityWeights literals.
func Weight(v float64) *float64 { return &v }

// Weights holds priority weights with defaults applied.
type Weights struct {
	Range        float64 `json:"range"`
	Speed        float64 `json:"speed"`
	Acceleration float64 `json:"acceleration"`
	HillClimbing float64 `json:"hillClimbing"`
	Regen        float64 `json:"regen"`
	Efficiency   float64 `json:"efficiency"`
}

// Resolve substitutes DefaultWeight for every unset weight.
func (p PriorityWeights) Resolve() Weights {
	return Weights{
		Range:        or(p.Range, DefaultWeight),
		Speed:        or(p.Speed, DefaultWeight),
		Acceleration: or(p.Acceleration, DefaultWeight),
		HillClimbing: or(p.HillClimbing, DefaultWeight),
		Regen:        or(p.Regen, DefaultWeight),
		Efficiency:   or(p.Efficiency, DefaultWeight),
	}
}

// Fractions scales every weight to 0.0-1.0.
func (w Weights) Fractions() Weights {
	return Weights{
		Range:        w.Range / 10,
		Speed:        w.Speed / 10,
		Acceleration: w.Acceleration / 10,
		HillClimbing: w.HillClimbing / 10,
		Regen:        w.Regen / 10,
		Efficiency:   w.Efficiency / 10,
	}
}

func or(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Conditions are live numeric operating conditions as reported by the
// weather/elevation collaborators.
type Conditions struct {
	Temperature float64 `json:"temperature" yaml:"temperature"` // °F
	Grade       float64 `json:"grade" yaml:"grade"`             // percent
	Load        float64 `json:"load" yaml:"load"`               // lbs
}

// Environment derives the categorical profile the optimizer consumes.
func (c Conditions) Environment() EnvironmentProfile {
	env := EnvironmentProfile{HillGradePercent: c.Grade}
	switch {
	case c.Grade < 2:
		env.TerrainClass = TerrainFlat
	case c.Grade < 5:
		env.TerrainClass = TerrainMixed
	case c.Grade < 10:
		env.TerrainClass = TerrainModerate
	default:
		env.TerrainClass = TerrainSteep
	}
	switch {
	case c.Load < 200:
		env.VehicleLoad = LoadLight
	case c.Load < 500:
		env.VehicleLoad = LoadMedium
	case c.Load < 800:
		env.VehicleLoad = LoadHeavy
	default:
		env.VehicleLoad = LoadMax
	}
	switch {
	case c.Temperature < 40:
		env.TemperatureBand = TempCold
	case c.Temperature < 85:
		env.TemperatureBand = TempMild
	case c.Temperature < 100:
		env.TemperatureBand = TempHot
	default:
		env.TemperatureBand = TempExtreme
	}
	return env
}

// OptimizeRequest carries the full optimizer input.
type OptimizeRequest struct {
	Vehicle     VehicleProfile     `json:"vehicle"`
	Battery     BatteryProfile     `json:"battery"`
	Wheel       WheelProfile       `json:"wheel"`
	Environment EnvironmentProfile `json:"environment"`
	Priorities  PriorityWeights    `json:"priorities"`
}

// LookupRequest is the cache facade input. Battery and Wheel are only used
// when a miss falls through to the optimizer.
type LookupRequest struct {
	Vehicle    VehicleModel    `json:"vehicle"`
	Priorities PriorityWeights `json:"priorities"`
	Conditions Conditions      `json:"conditions"`
	Battery    BatteryProfile  `json:"battery,omitempty"`
	Wheel      WheelProfile    `json:"wheel,omitempty"`
	Resolve    bool            `json:"resolve,omitempty"`
}

// OptimizeRequest expands a lookup into optimizer input.
func (r LookupRequest) OptimizeRequest() OptimizeRequest {
	return OptimizeRequest{
		Vehicle:     VehicleProfile{Model: r.Vehicle, MotorCondition: MotorGood},
		Battery:     r.Battery,
		Wheel:       r.Wheel,
		Environment: r.Conditions.Environment(),
		Priorities:  r.Priorities,
	}
}

// Analysis is the read-only context derived once per optimization.
type Analysis struct {
	VehicleModel      VehicleModel          `json:"vehicleModel"`
	VehicleWeight     float64               `json:"vehicleWeight"`
	GearRatio         float64               `json:"gearRatio"`
	TireSizeRatio     float64               `json:"tireSizeRatio"`
	BatteryVoltage    float64               `json:"batteryVoltage"`
	IsLithium         bool                  `json:"isLithium"`
	MotorRisk         float64               `json:"motorRisk"`
	TerrainDifficulty float64               `json:"terrainDifficulty"`
	LoadFactor        float64               `json:"loadFactor"`
	Priorities        Weights               `json:"priorityWeights"`
	Clamped           []controller.Function `json:"clamped,omitempty"`
}

type CacheHit string

const (
	CacheHitExact CacheHit = "exact"
	CacheHitFuzzy CacheHit = "fuzzy"
	CacheHitQuick CacheHit = "quick"
)

// OptimizationResult is created fresh per optimizer call. The cache returns
// annotated copies; numeric fields are never altered.
type OptimizationResult struct {
	FactorySettings    controller.Vector `json:"factorySettings"`
	OptimizedSettings  controller.Vector `json:"optimizedSettings"`
	PerformanceChanges []string          `json:"performanceChanges"`
	Analysis           Analysis          `json:"analysisData"`
	Confidence         float64           `json:"confidence"`

	Cached      bool       `json:"cached,omitempty"`
	CacheHit    CacheHit   `json:"cacheHit,omitempty"`
	CacheKey    string     `json:"cacheKey,omitempty"`
	GeneratedAt *time.Time `json:"generatedAt,omitempty"`
	Similarity  float64    `json:"similarity,omitempty"`
}

// Clone deep-copies r.
func (r OptimizationResult) Clone() OptimizationResult {
	out := r
	out.FactorySettings = r.FactorySettings.Clone()
	out.OptimizedSettings = r.OptimizedSettings.Clone()
	if r.PerformanceChanges != nil {
		out.PerformanceChanges = append(make([]string, 0, len(r.PerformanceChanges)), r.PerformanceChanges...)
	}
	if r.Analysis.Clamped != nil {
		out.Analysis.Clamped = append(make([]controller.Function, 0, len(r.Analysis.Clamped)), r.Analysis.Clamped...)
	}
	if r.GeneratedAt != nil {
		ts := *r.GeneratedAt
		out.GeneratedAt = &ts
	}
	return out
}

// StripCacheMetadata returns a copy without cache annotations.
func (r OptimizationResult) StripCacheMetadata() OptimizationResult {
	out := r.Clone()
	out.Cached = false
	out.CacheHit = ""
	out.CacheKey = ""
	out.GeneratedAt = nil
	out.Similarity = 0
	return out
}
