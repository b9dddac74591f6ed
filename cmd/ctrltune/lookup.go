package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"ctrltune/internal/model"
)

type lookupOptions struct {
	Vehicle     string
	Temperature float64
	Grade       float64
	Load        float64
	Chemistry   string
	Voltage     float64
	Tire        float64
	Resolve     bool
	Preset      string
	JSON        bool
	Weights     weightFlags
}

var lookupOpts lookupOptions

// lookupCmd runs the exact, fuzzy and quick cache chain against live conditions
var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Look up a cached configuration for live conditions",
	Example: "  ctrltune lookup --vehicle e4 --temperature 75 --grade 1 --load-lbs 250 --speed 9\n" +
		"  ctrltune lookup --vehicle eL --preset winter_commute --resolve",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		preset, err := presetFor(cfg, lookupOpts.Preset)
		if err != nil {
			return err
		}
		req, err := lookupOpts.request(preset.Priorities, preset.Conditions, cmd.Flags().Changed)
		if err != nil {
			return err
		}

		c := newCache(cfg, log)
		var res model.OptimizationResult
		if req.Resolve {
			r, outcome, err := c.Resolve(cmd.Context(), req)
			if err != nil {
				return err
			}
			res = r
			log.WithField("outcome", outcome).Debug("resolved")
		} else {
			r, ok := c.Get(req.Vehicle, req.Priorities, req.Conditions)
			if !ok {
				pterm.Warning.Printf("No cached scenario for %s; rerun with --resolve to optimize\n", req.Vehicle)
				return fmt.Errorf("cache miss")
			}
			res = r
		}
		if lookupOpts.JSON {
			return printJSON(cmd.OutOrStdout(), res)
		}
		renderResult(res, "Cached configuration")
		return nil
	},
}

// request builds the lookup input. Preset conditions are used unless the
// matching flag was set explicitly.
func (o lookupOptions) request(base model.PriorityWeights, cond model.Conditions, changed func(string) bool) (model.LookupRequest, error) {
	weights, err := o.Weights.weights(base, changed)
	if err != nil {
		return model.LookupRequest{}, err
	}
	if o.Preset == "" || changed("temperature") {
		cond.Temperature = o.Temperature
	}
	if o.Preset == "" || changed("grade") {
		cond.Grade = o.Grade
	}
	if o.Preset == "" || changed("load-lbs") {
		cond.Load = o.Load
	}
	if cond.Load < 0 {
		return model.LookupRequest{}, fmt.Errorf("load must be >= 0, got %g", cond.Load)
	}
	return model.LookupRequest{
		Vehicle:    model.VehicleModel(o.Vehicle),
		Priorities: weights,
		Conditions: cond,
		Battery:    model.BatteryProfile{Chemistry: model.Chemistry(o.Chemistry), Voltage: o.Voltage},
		Wheel:      model.WheelProfile{TireDiameter: o.Tire},
		Resolve:    o.Resolve,
	}, nil
}

func init() {
	f := lookupCmd.Flags()
	f.StringVar(&lookupOpts.Vehicle, "vehicle", string(model.VehicleE4), "Vehicle model")
	f.Float64Var(&lookupOpts.Temperature, "temperature", 75, "Ambient temperature in °F")
	f.Float64Var(&lookupOpts.Grade, "grade", 0, "Current hill grade percent")
	f.Float64Var(&lookupOpts.Load, "load-lbs", 200, "Passenger and cargo load in lbs")
	f.StringVar(&lookupOpts.Chemistry, "chemistry", string(model.ChemistryLead), "Battery chemistry used when optimizing on a miss")
	f.Float64Var(&lookupOpts.Voltage, "voltage", model.DefaultVoltage, "Pack voltage used when optimizing on a miss")
	f.Float64Var(&lookupOpts.Tire, "tire", model.ReferenceTireInches, "Tire diameter used when optimizing on a miss")
	f.BoolVar(&lookupOpts.Resolve, "resolve", false, "Optimize and cache on a miss")
	f.StringVar(&lookupOpts.Preset, "preset", "", "Seed priorities and conditions from a config preset")
	f.BoolVar(&lookupOpts.JSON, "json", false, "Print the raw result as JSON")
	lookupOpts.Weights.register(lookupCmd)
}
