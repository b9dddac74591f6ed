package opt

import "ctrltune/internal/model"

// VehicleSpec holds the per-model reference data used by the analysis pass.
type VehicleSpec struct {
	Model     model.VehicleModel
	WeightLbs float64
	GearRatio float64
	TopSpeed  float64 // mph, factory rating
}

var vehicleSpecs = map[model.VehicleModel]VehicleSpec{
	model.VehicleE2:   {Model: model.VehicleE2, WeightLbs: 1100, GearRatio: 8.0, TopSpeed: 25},
	model.VehicleE4:   {Model: model.VehicleE4, WeightLbs: 1300, GearRatio: 8.0, TopSpeed: 25},
	model.VehicleE6:   {Model: model.VehicleE6, WeightLbs: 1500, GearRatio: 8.9, TopSpeed: 25},
	model.VehicleES:   {Model: model.VehicleES, WeightLbs: 1150, GearRatio: 8.0, TopSpeed: 25},
	model.VehicleEL:   {Model: model.VehicleEL, WeightLbs: 1250, GearRatio: 8.9, TopSpeed: 25},
	model.VehicleELXD: {Model: model.VehicleELXD, WeightLbs: 1750, GearRatio: 12.4, TopSpeed: 25},
}

// DefaultVehicle is used when a model tag is not recognised.
const DefaultVehicle = model.VehicleE4

// LookupVehicle returns the spec for m, falling back to DefaultVehicle.
// The boolean reports whether m was recognised.
func LookupVehicle(m model.VehicleModel) (VehicleSpec, bool) {
	if s, ok := vehicleSpecs[m]; ok {
		return s, true
	}
	return vehicleSpecs[DefaultVehicle], false
}

// KnownVehicle reports whether m is a recognised model tag.
func KnownVehicle(m model.VehicleModel) bool {
	_, ok := vehicleSpecs[m]
	return ok
}
