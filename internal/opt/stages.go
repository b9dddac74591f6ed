package opt

import (
	"math"

	c "ctrltune/internal/controller"
	"ctrltune/internal/model"
)

// Stage is one ordered step of the tuning pipeline. Stages read the vector
// left by earlier stages and return it (mutated in place).
type Stage struct {
	Name  string
	Apply func(ctx model.Analysis, v c.Vector) c.Vector
}

// Threshold above which a fractional priority triggers its adjustment.
const priorityTrigger = 0.7

// Fixed tuning constants.
const (
	oversizeTireRatio      = 1.1
	oversizeTireFieldBoost = 1.2
	lithiumIRCompensation  = 20
	lithiumRegenArmBoost   = 1.10
	lithiumRegenFieldBoost = 1.15
	terrainTrigger         = 0.5
	loadTrigger            = 1.4
	terrainAccelSoftening  = 0.2
	terrainRegenBoost      = 0.2
)

// DefaultStages returns the tuning stages in their fixed order. The safety
// clamp is not part of this list; the Optimizer always appends it.
func DefaultStages() []Stage {
	return []Stage{
		{Name: "tire-scaling", Apply: tireScaling},
		{Name: "battery", Apply: batteryTuning},
		{Name: "motor-protection", Apply: motorProtection},
		{Name: "terrain-load", Apply: terrainLoad},
		{Name: "priorities", Apply: priorityTuning},
	}
}

func tireScaling(ctx model.Analysis, v c.Vector) c.Vector {
	v.Scale(c.MPHScaling, ctx.TireSizeRatio)
	v.Scale(c.OdometerCalibration, ctx.TireSizeRatio)
	if ctx.TireSizeRatio > oversizeTireRatio {
		v.Scale(c.MinFieldCurrent, oversizeTireFieldBoost)
	}
	return v
}

func batteryTuning(ctx model.Analysis, v c.Vector) c.Vector {
	v.Set(c.BatteryVoltage, int(math.Round(ctx.BatteryVoltage)))
	if ctx.IsLithium {
		v.Set(c.IRCompensation, lithiumIRCompensation)
		v.Scale(c.RegenArmatureCurrent, lithiumRegenArmBoost)
		v.Scale(c.RegenMaxFieldCurrent, lithiumRegenFieldBoost)
	}
	return v
}

// motorProtection trades top speed for motor longevity in proportion to wear.
func motorProtection(ctx model.Analysis, v c.Vector) c.Vector {
	if ctx.MotorRisk <= 0 {
		return v
	}
	rf := 1 + ctx.MotorRisk*0.5
	v.Scale(c.MinFieldCurrent, rf)
	v.Scale(c.FieldWeakeningStart, rf)
	v.Scale(c.OverspeedLimit, 1/rf)
	v.Scale(c.ErrorCompensation, 0.5)
	return v
}

func terrainLoad(ctx model.Analysis, v c.Vector) c.Vector {
	if !(ctx.TerrainDifficulty > terrainTrigger || ctx.LoadFactor > loadTrigger) {
		return v
	}
	td := ctx.TerrainDifficulty
	v.Scale(c.ControlledAcceleration, 1-terrainAccelSoftening*td)
	// earlier stages must not leave max current under factory
	v.Set(c.MaxArmatureCurrent, factory(c.MaxArmatureCurrent))
	v.Scale(c.RegenArmatureCurrent, 1+terrainRegenBoost*td)
	v.Add(c.FieldArmatureRatio, int(math.Round(td)))
	return v
}

// priorityTuning applies each triggered priority in turn; adjustments to the
// same function compound.
func priorityTuning(ctx model.Analysis, v c.Vector) c.Vector {
	w := ctx.Priorities
	if w.Speed > priorityTrigger {
		v.Scale(c.MinFieldCurrent, 0.9)
		v.Scale(c.TurfSpeedLimit, 1.1)
	}
	if w.Acceleration > priorityTrigger {
		v.Scale(c.ControlledAcceleration, 0.8)
		v.Scale(c.ArmatureAccelRate, 0.85)
	}
	if w.Range > priorityTrigger {
		v.Scale(c.ControlledAcceleration, 1.2)
		v.Scale(c.MaxArmatureCurrent, 0.95)
	}
	if w.Regen > priorityTrigger {
		v.Scale(c.RegenArmatureCurrent, 1.15)
		v.Scale(c.RegenMaxFieldCurrent, 1.2)
		v.Scale(c.RegenRampRate, 0.7)
	}
	return v
}

func factory(f c.Function) int {
	d, _ := c.Lookup(f)
	return d.Factory
}
