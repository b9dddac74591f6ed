// Package controller models the parameter space of the series/sep-ex motor
// controller: function numbers, factory defaults and the safety bounds every
// emitted value must respect.
package controller

import "fmt"

// Function is a controller function number (F.1 .. F.128).
type Function int

// MaxFunction is the highest addressable function number.
const MaxFunction Function = 128

// Functions that the optimizer reads or writes.
const (
	ControlledAcceleration Function = 1
	ArmatureAccelRate      Function = 3
	MaxArmatureCurrent     Function = 4
	PlugCurrent            Function = 5
	MinFieldCurrent        Function = 6
	MaxFieldCurrent        Function = 7
	RegenArmatureCurrent   Function = 9
	RegenMaxFieldCurrent   Function = 10
	TurfSpeedLimit         Function = 11
	ReverseSpeedLimit      Function = 12
	IRCompensation         Function = 14
	BatteryVoltage         Function = 15
	ErrorCompensation      Function = 17
	OverspeedLimit         Function = 20
	OdometerCalibration    Function = 22
	FieldWeakeningStart    Function = 24
	FieldArmatureRatio     Function = 26
	RegenRampRate          Function = 28
	MPHScaling             Function = 44
)

// String renders the function the way controller programmers write it.
func (f Function) String() string { return fmt.Sprintf("F.%d", int(f)) }

// Valid reports whether f is inside the addressable range.
func (f Function) Valid() bool { return f >= 1 && f <= MaxFunction }

// Bounds is the inclusive safe range for a function value.
type Bounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Clamp returns v forced into [Min, Max].
func (b Bounds) Clamp(v int) int {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

// Contains reports whether v is within bounds.
func (b Bounds) Contains(v int) bool { return v >= b.Min && v <= b.Max }

// Definition describes one tuned controller function.
type Definition struct {
	Function Function `json:"function"`
	Name     string   `json:"name"`
	Unit     string   `json:"unit,omitempty"`
	Factory  int      `json:"factory"`
	Bounds   Bounds   `json:"bounds"`
}

// definitions is the safety constraint table. Read-only for the life of the process.
var definitions = []Definition{
	{Function: ControlledAcceleration, Name: "Controlled Acceleration", Unit: "0.1s", Factory: 60, Bounds: Bounds{15, 150}},
	{Function: ArmatureAccelRate, Name: "Armature Acceleration Rate", Unit: "0.1s", Factory: 30, Bounds: Bounds{5, 100}},
	{Function: MaxArmatureCurrent, Name: "Max Armature Current", Unit: "A", Factory: 245, Bounds: Bounds{150, 300}},
	{Function: PlugCurrent, Name: "Plug Current", Unit: "A", Factory: 100, Bounds: Bounds{50, 200}},
	{Function: MinFieldCurrent, Name: "Min Field Current", Unit: "0.1A", Factory: 65, Bounds: Bounds{40, 120}},
	{Function: MaxFieldCurrent, Name: "Max Field Current", Unit: "0.1A", Factory: 150, Bounds: Bounds{100, 200}},
	{Function: RegenArmatureCurrent, Name: "Regen Armature Current", Unit: "A", Factory: 200, Bounds: Bounds{100, 300}},
	{Function: RegenMaxFieldCurrent, Name: "Regen Max Field Current", Unit: "0.1A", Factory: 120, Bounds: Bounds{80, 180}},
	{Function: TurfSpeedLimit, Name: "Turf Speed Limit", Unit: "mph", Factory: 12, Bounds: Bounds{5, 25}},
	{Function: ReverseSpeedLimit, Name: "Reverse Speed Limit", Unit: "mph", Factory: 8, Bounds: Bounds{3, 12}},
	{Function: IRCompensation, Name: "IR Compensation", Factory: 30, Bounds: Bounds{0, 100}},
	{Function: BatteryVoltage, Name: "Battery Voltage", Unit: "V", Factory: 72, Bounds: Bounds{48, 100}},
	{Function: ErrorCompensation, Name: "Error Compensation", Factory: 20, Bounds: Bounds{0, 50}},
	{Function: OverspeedLimit, Name: "MPH Overspeed", Unit: "mph", Factory: 28, Bounds: Bounds{15, 40}},
	{Function: OdometerCalibration, Name: "Odometer Calibration", Factory: 100, Bounds: Bounds{50, 200}},
	{Function: FieldWeakeningStart, Name: "Field Weakening Start", Unit: "%", Factory: 50, Bounds: Bounds{20, 100}},
	{Function: FieldArmatureRatio, Name: "Ratio Field to Armature", Factory: 3, Bounds: Bounds{1, 8}},
	{Function: RegenRampRate, Name: "Regen Ramp Rate", Unit: "0.1s", Factory: 50, Bounds: Bounds{10, 100}},
	{Function: MPHScaling, Name: "MPH Scaling", Unit: "%", Factory: 100, Bounds: Bounds{50, 200}},
}

var byFunction = func() map[Function]Definition {
	m := make(map[Function]Definition, len(definitions))
	for _, d := range definitions {
		m[d.Function] = d
	}
	return m
}()

// Definitions returns the constraint table ordered by function number.
func Definitions() []Definition {
	return append([]Definition(nil), definitions...)
}

// Lookup returns the definition for f.
func Lookup(f Function) (Definition, bool) {
	d, ok := byFunction[f]
	return d, ok
}

// Constraints returns a copy of the function -> bounds table.
func Constraints() map[Function]Bounds {
	out := make(map[Function]Bounds, len(definitions))
	for _, d := range definitions {
		out[d.Function] = d.Bounds
	}
	return out
}
