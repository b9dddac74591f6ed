package opt

import (
	"fmt"
	"math"

	c "ctrltune/internal/controller"
	"ctrltune/internal/model"
)

// Reporting thresholds in percent. Smaller deltas are not reported.
const (
	topSpeedThreshold   = 5
	accelThreshold      = 10
	hillThreshold       = 5
	rangeThreshold      = 5
	protectionThreshold = 10
	regenThreshold      = 10

	lithiumRangeBonus = 15
	fieldRatioStepPct = 8
)

// Effects are the estimated percentage changes against factory behaviour.
type Effects struct {
	TopSpeed        float64
	Acceleration    float64
	HillClimbing    float64
	Range           float64
	MotorProtection float64
	Regen           float64
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 1
	}
	return float64(num) / float64(den)
}

// estimateEffects compares optimized against factory values.
func estimateEffects(ctx model.Analysis, factory, v c.Vector) Effects {
	var e Effects
	// lower min field current lets the motor weaken its field sooner
	e.TopSpeed = (ratio(factory[c.MinFieldCurrent], v[c.MinFieldCurrent])-1)*50 +
		(ctx.TireSizeRatio-1)*100
	e.Acceleration = (ratio(factory[c.ControlledAcceleration], v[c.ControlledAcceleration])-1)*60 +
		(ratio(factory[c.ArmatureAccelRate], v[c.ArmatureAccelRate])-1)*40
	e.HillClimbing = (ratio(v[c.MaxArmatureCurrent], factory[c.MaxArmatureCurrent])-1)*100 +
		float64(v[c.FieldArmatureRatio]-factory[c.FieldArmatureRatio])*fieldRatioStepPct
	e.Range = (ratio(v[c.ControlledAcceleration], factory[c.ControlledAcceleration])-1)*50 +
		(ratio(factory[c.MaxArmatureCurrent], v[c.MaxArmatureCurrent])-1)*100
	if ctx.IsLithium {
		e.Range += lithiumRangeBonus
	}
	e.MotorProtection = ((ratio(v[c.MinFieldCurrent], factory[c.MinFieldCurrent]) - 1) +
		(ratio(v[c.FieldWeakeningStart], factory[c.FieldWeakeningStart]) - 1)) * 50
	e.Regen = ((ratio(v[c.RegenArmatureCurrent], factory[c.RegenArmatureCurrent]) - 1) +
		(ratio(v[c.RegenMaxFieldCurrent], factory[c.RegenMaxFieldCurrent]) - 1)) * 50
	return e
}

// summarize renders the effects that cross their threshold, in a fixed order.
func summarize(ctx model.Analysis, factory, v c.Vector) []string {
	e := estimateEffects(ctx, factory, v)
	out := []string{}
	switch {
	case e.TopSpeed > topSpeedThreshold:
		out = append(out, fmt.Sprintf("Top speed increased by approximately %.0f%%", e.TopSpeed))
	case e.TopSpeed < -topSpeedThreshold:
		out = append(out, fmt.Sprintf("Top speed reduced by approximately %.0f%%", math.Abs(e.TopSpeed)))
	}
	switch {
	case e.Acceleration > accelThreshold:
		out = append(out, fmt.Sprintf("Acceleration improved by %.0f%%", e.Acceleration))
	case e.Acceleration < -accelThreshold:
		out = append(out, fmt.Sprintf("Acceleration softened by %.0f%% for smoother starts", math.Abs(e.Acceleration)))
	}
	switch {
	case e.HillClimbing > hillThreshold:
		out = append(out, fmt.Sprintf("Hill climbing ability improved by %.0f%%", e.HillClimbing))
	case e.HillClimbing < -hillThreshold:
		out = append(out, fmt.Sprintf("Hill climbing torque reduced by %.0f%%", math.Abs(e.HillClimbing)))
	}
	switch {
	case e.Range > rangeThreshold:
		out = append(out, fmt.Sprintf("Estimated range improved by %.0f%%", e.Range))
	case e.Range < -rangeThreshold:
		out = append(out, fmt.Sprintf("Estimated range reduced by %.0f%%", math.Abs(e.Range)))
	}
	if e.MotorProtection > protectionThreshold {
		out = append(out, fmt.Sprintf("Motor protection enhanced: field currents raised %.0f%%", e.MotorProtection))
	}
	switch {
	case e.Regen > regenThreshold:
		out = append(out, fmt.Sprintf("Regenerative braking strength increased by %.0f%%", e.Regen))
	case e.Regen < -regenThreshold:
		out = append(out, fmt.Sprintf("Regenerative braking strength reduced by %.0f%%", math.Abs(e.Regen)))
	}
	return out
}
