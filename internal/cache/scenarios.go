package cache

import (
	c "ctrltune/internal/controller"
	"ctrltune/internal/model"
)

// PriorityProfile is a named priority bundle used for pre-generation.
type PriorityProfile struct {
	Name    string
	Weights model.PriorityWeights
}

// ConditionProfile is a named live-condition bundle used for pre-generation.
type ConditionProfile struct {
	Name       string
	Conditions model.Conditions
}

// PregenVehicles are the models whose scenario matrix is built at start.
var PregenVehicles = []model.VehicleModel{model.VehicleE2, model.VehicleE4, model.VehicleE6}

func pw(speed, rng, accel, eff, hill, regen float64) model.PriorityWeights {
	return model.PriorityWeights{
		Speed:        model.Weight(speed),
		Range:        model.Weight(rng),
		Acceleration: model.Weight(accel),
		Efficiency:   model.Weight(eff),
		HillClimbing: model.Weight(hill),
		Regen:        model.Weight(regen),
	}
}

// PriorityProfiles returns the seven named priority profiles.
func PriorityProfiles() []PriorityProfile {
	return []PriorityProfile{
		{Name: "speed_focused", Weights: pw(9, 3, 7, 2, 4, 3)},
		{Name: "range_focused", Weights: pw(3, 9, 3, 6, 4, 8)},
		{Name: "efficiency_focused", Weights: pw(4, 6, 3, 9, 3, 9)},
		{Name: "performance", Weights: pw(6, 3, 9, 3, 7, 4)},
		{Name: "balanced", Weights: pw(5, 5, 5, 5, 5, 5)},
		{Name: "commuter", Weights: pw(7, 6, 3, 5, 3, 6)},
		{Name: "hill_climber", Weights: pw(6, 4, 7, 3, 9, 8)},
	}
}

func representative(k ConditionKind) model.Conditions {
	cond, _ := ConditionBucket{Kind: k}.Representative()
	return cond
}

// ConditionProfiles returns the seven named condition profiles.
func ConditionProfiles() []ConditionProfile {
	return []ConditionProfile{
		{Name: "ideal", Conditions: representative(Ideal)},
		{Name: "cold", Conditions: representative(Cold)},
		{Name: "hot", Conditions: representative(Hot)},
		{Name: "hills", Conditions: representative(Hills)},
		{Name: "loaded", Conditions: representative(Loaded)},
		{Name: "rolling", Conditions: model.Conditions{Temperature: 75, Grade: 3, Load: 300}},
		{Name: "hauling", Conditions: model.Conditions{Temperature: 85, Grade: 4, Load: 450}},
	}
}

// quickScenario is a hand-tuned vector, not optimizer-derived.
type quickScenario struct {
	name      string
	overrides map[c.Function]int
	changes   []string
}

const quickConfidence = 0.9

var quickScenarios = []quickScenario{
	{
		name:      "max_speed",
		overrides: map[c.Function]int{c.MinFieldCurrent: 55, c.TurfSpeedLimit: 14, c.FieldWeakeningStart: 45, c.OverspeedLimit: 30},
		changes:   []string{"Top speed increased by approximately 8%", "Motor runs closer to its field weakening limit"},
	},
	{
		name:      "max_range",
		overrides: map[c.Function]int{c.ControlledAcceleration: 75, c.MaxArmatureCurrent: 225, c.RegenArmatureCurrent: 230, c.RegenRampRate: 40},
		changes:   []string{"Estimated range improved by 12%", "Regenerative braking strength increased by 15%"},
	},
	{
		name:      "hill_climber",
		overrides: map[c.Function]int{c.MaxArmatureCurrent: 280, c.FieldArmatureRatio: 5, c.ControlledAcceleration: 50, c.RegenArmatureCurrent: 240},
		changes:   []string{"Hill climbing ability improved by 30%", "Acceleration improved by 12%"},
	},
	{
		name:    "balanced",
		changes: []string{},
	},
}

// quickFor maps a priority bucket to its quick scenario name.
func quickFor(b PriorityBucket) (string, bool) {
	switch b.Kind {
	case SpeedFocused:
		return "max_speed", true
	case RangeFocused, EfficiencyFocused:
		return "max_range", true
	case Performance:
		return "hill_climber", true
	case Balanced:
		return "balanced", true
	case PriorityOther:
		return "", false
	}
	return "", false
}

// QuickKey builds the key of a quick scenario for a vehicle.
func QuickKey(name string, vehicle model.VehicleModel) string {
	return "quick_" + name + "_" + string(vehicle)
}

func (q quickScenario) result() model.OptimizationResult {
	factory := c.FactoryDefaults()
	v := factory.Clone()
	for f, x := range q.overrides {
		v.Set(f, x)
	}
	clamped := v.Clamp()
	return model.OptimizationResult{
		FactorySettings:    factory,
		OptimizedSettings:  v,
		PerformanceChanges: append([]string{}, q.changes...),
		Analysis:           model.Analysis{Clamped: clamped},
		Confidence:         quickConfidence,
	}
}
