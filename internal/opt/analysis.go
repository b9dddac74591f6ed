package opt

import (
	"github.com/sirupsen/logrus"

	"ctrltune/internal/model"
)

var motorRisk = map[model.MotorCondition]float64{
	model.MotorGood:     0,
	model.MotorFair:     0.5,
	model.MotorSparking: 1,
}

var terrainDifficulty = map[model.TerrainClass]float64{
	model.TerrainFlat:     0.1,
	model.TerrainMixed:    0.4,
	model.TerrainModerate: 0.6,
	model.TerrainSteep:    1.0,
}

var loadFactor = map[model.VehicleLoad]float64{
	model.LoadLight:  1,
	model.LoadMedium: 1.4,
	model.LoadHeavy:  1.75,
	model.LoadMax:    2,
}

// analyze derives the read-only context shared by every stage. Absent or
// unknown categorical inputs take the mildest value.
func analyze(req model.OptimizeRequest, log logrus.FieldLogger) model.Analysis {
	spec, known := LookupVehicle(req.Vehicle.Model)
	if !known {
		log.WithFields(logrus.Fields{"vehicle": req.Vehicle.Model, "fallback": spec.Model}).Debug("unknown vehicle model")
	}
	gear := spec.GearRatio
	if req.Wheel.GearRatio > 0 {
		gear = req.Wheel.GearRatio
	}
	tire := req.Wheel.TireDiameter
	if tire <= 0 {
		tire = model.ReferenceTireInches
	}
	volts := req.Battery.Voltage
	if volts <= 0 {
		volts = model.DefaultVoltage
	}
	td, ok := terrainDifficulty[req.Environment.TerrainClass]
	if !ok {
		td = terrainDifficulty[model.TerrainFlat]
	}
	lf, ok := loadFactor[req.Environment.VehicleLoad]
	if !ok {
		lf = loadFactor[model.LoadLight]
	}
	return model.Analysis{
		VehicleModel:      spec.Model,
		VehicleWeight:     spec.WeightLbs,
		GearRatio:         gear,
		TireSizeRatio:     tire / model.ReferenceTireInches,
		BatteryVoltage:    volts,
		IsLithium:         req.Battery.Chemistry == model.ChemistryLithium,
		MotorRisk:         motorRisk[req.Vehicle.MotorCondition],
		TerrainDifficulty: td,
		LoadFactor:        lf,
		Priorities:        req.Priorities.Resolve().Fractions(),
	}
}
