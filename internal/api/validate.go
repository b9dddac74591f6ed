package api

import (
	"fmt"

	"ctrltune/internal/config"
	"ctrltune/internal/model"
)

var (
	validMotor     = map[model.MotorCondition]bool{"": true, model.MotorGood: true, model.MotorFair: true, model.MotorSparking: true}
	validChemistry = map[model.Chemistry]bool{"": true, model.ChemistryLead: true, model.ChemistryLithium: true}
	validTerrain   = map[model.TerrainClass]bool{"": true, model.TerrainFlat: true, model.TerrainMixed: true, model.TerrainModerate: true, model.TerrainSteep: true}
	validLoad      = map[model.VehicleLoad]bool{"": true, model.LoadLight: true, model.LoadMedium: true, model.LoadHeavy: true, model.LoadMax: true}
	validTemp      = map[model.TemperatureBand]bool{"": true, model.TempCold: true, model.TempMild: true, model.TempHot: true, model.TempExtreme: true}
)

// Unknown vehicle model tags are accepted; the optimizer falls back to a
// default vehicle for them.
func validateOptimizeRequest(req *model.OptimizeRequest) error {
	if !validMotor[req.Vehicle.MotorCondition] {
		return fmt.Errorf("invalid motorCondition: %s", req.Vehicle.MotorCondition)
	}
	if !validTerrain[req.Environment.TerrainClass] {
		return fmt.Errorf("invalid terrainClass: %s", req.Environment.TerrainClass)
	}
	if !validLoad[req.Environment.VehicleLoad] {
		return fmt.Errorf("invalid vehicleLoad: %s", req.Environment.VehicleLoad)
	}
	if !validTemp[req.Environment.TemperatureBand] {
		return fmt.Errorf("invalid temperatureBand: %s", req.Environment.TemperatureBand)
	}
	if err := validateHardware(req.Battery, req.Wheel); err != nil {
		return err
	}
	return config.ValidateWeights(req.Priorities)
}

func validateLookupRequest(req *model.LookupRequest) error {
	if req.Vehicle == "" {
		return fmt.Errorf("vehicle is required")
	}
	if req.Conditions.Load < 0 {
		return fmt.Errorf("load must be >= 0")
	}
	if err := validateHardware(req.Battery, req.Wheel); err != nil {
		return err
	}
	return config.ValidateWeights(req.Priorities)
}

func validateHardware(b model.BatteryProfile, wh model.WheelProfile) error {
	if !validChemistry[b.Chemistry] {
		return fmt.Errorf("invalid chemistry: %s", b.Chemistry)
	}
	if b.Voltage != 0 && (b.Voltage < 48 || b.Voltage > 100) {
		return fmt.Errorf("voltage must be within 48..100, got %g", b.Voltage)
	}
	if wh.TireDiameter < 0 {
		return fmt.Errorf("tireDiameter must be positive")
	}
	if wh.GearRatio < 0 {
		return fmt.Errorf("gearRatio must be positive")
	}
	return nil
}
