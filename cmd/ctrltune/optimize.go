package main

import (
	"github.com/spf13/cobra"

	"ctrltune/internal/model"
	"ctrltune/internal/opt"
)

// optimizeOptions holds the optimize command's flags.
type optimizeOptions struct {
	Vehicle   string
	Motor     string
	TopSpeed  float64
	Chemistry string
	Voltage   float64
	Capacity  float64
	Tire      float64
	Gear      float64
	Terrain   string
	Load      string
	Temp      string
	Grade     float64
	Preset    string
	JSON      bool
	Weights   weightFlags
}

var optimizeOpts optimizeOptions

// optimizeCmd runs the optimizer directly, bypassing the scenario cache
var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Compute an optimized controller configuration",
	Example: "  ctrltune optimize --vehicle e4 --chemistry lithium --voltage 72 --terrain steep --load heavy --speed 9\n" +
		"  ctrltune optimize --preset hill_country --json",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		preset, err := presetFor(cfg, optimizeOpts.Preset)
		if err != nil {
			return err
		}
		req, err := optimizeOpts.request(preset.Priorities, preset.Conditions, cmd.Flags().Changed)
		if err != nil {
			return err
		}
		log.WithField("vehicle", req.Vehicle.Model).Debug("optimizing")
		res := opt.New().WithLogger(log).Optimize(req)
		if optimizeOpts.JSON {
			return printJSON(cmd.OutOrStdout(), res)
		}
		renderResult(res, "Optimized configuration")
		return nil
	},
}

// request builds optimizer input. Preset conditions seed the environment;
// explicitly changed flags win over the preset.
func (o optimizeOptions) request(base model.PriorityWeights, cond model.Conditions, changed func(string) bool) (model.OptimizeRequest, error) {
	weights, err := o.Weights.weights(base, changed)
	if err != nil {
		return model.OptimizeRequest{}, err
	}
	env := model.EnvironmentProfile{}
	if o.Preset != "" {
		env = cond.Environment()
	}
	if changed("terrain") || env.TerrainClass == "" {
		env.TerrainClass = model.TerrainClass(o.Terrain)
	}
	if changed("load") || env.VehicleLoad == "" {
		env.VehicleLoad = model.VehicleLoad(o.Load)
	}
	if changed("temp") || env.TemperatureBand == "" {
		env.TemperatureBand = model.TemperatureBand(o.Temp)
	}
	if changed("grade") || o.Preset == "" {
		env.HillGradePercent = o.Grade
	}
	return model.OptimizeRequest{
		Vehicle: model.VehicleProfile{
			Model:          model.VehicleModel(o.Vehicle),
			TopSpeedRating: o.TopSpeed,
			MotorCondition: model.MotorCondition(o.Motor),
		},
		Battery: model.BatteryProfile{
			Chemistry: model.Chemistry(o.Chemistry),
			Voltage:   o.Voltage,
			Capacity:  o.Capacity,
		},
		Wheel:       model.WheelProfile{TireDiameter: o.Tire, GearRatio: o.Gear},
		Environment: env,
		Priorities:  weights,
	}, nil
}

func init() {
	f := optimizeCmd.Flags()
	f.StringVar(&optimizeOpts.Vehicle, "vehicle", string(model.VehicleE4), "Vehicle model (e2, e4, e6, eS, eL, elXD)")
	f.StringVar(&optimizeOpts.Motor, "motor", string(model.MotorGood), "Motor condition (good, fair, sparking)")
	f.Float64Var(&optimizeOpts.TopSpeed, "top-speed", 0, "Rated top speed in mph")
	f.StringVar(&optimizeOpts.Chemistry, "chemistry", string(model.ChemistryLead), "Battery chemistry (lead, lithium)")
	f.Float64Var(&optimizeOpts.Voltage, "voltage", model.DefaultVoltage, "Pack voltage")
	f.Float64Var(&optimizeOpts.Capacity, "capacity", 0, "Pack capacity in amp-hours")
	f.Float64Var(&optimizeOpts.Tire, "tire", model.ReferenceTireInches, "Tire diameter in inches")
	f.Float64Var(&optimizeOpts.Gear, "gear", 0, "Gear ratio (0 uses the vehicle default)")
	f.StringVar(&optimizeOpts.Terrain, "terrain", string(model.TerrainFlat), "Terrain (flat, mixed, moderate, steep)")
	f.StringVar(&optimizeOpts.Load, "load", string(model.LoadLight), "Vehicle load (light, medium, heavy, max)")
	f.StringVar(&optimizeOpts.Temp, "temp", string(model.TempMild), "Temperature band (cold, mild, hot, extreme)")
	f.Float64Var(&optimizeOpts.Grade, "grade", 0, "Typical hill grade percent")
	f.StringVar(&optimizeOpts.Preset, "preset", "", "Seed priorities and environment from a config preset")
	f.BoolVar(&optimizeOpts.JSON, "json", false, "Print the raw result as JSON")
	optimizeOpts.Weights.register(optimizeCmd)
}
