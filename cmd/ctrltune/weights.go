package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ctrltune/internal/config"
	"ctrltune/internal/model"
)

// weightFlags binds the six priority weights to a command. Unset flags stay
// nil so the optimizer applies its own default.
type weightFlags struct {
	Range        float64
	Speed        float64
	Acceleration float64
	HillClimbing float64
	Regen        float64
	Efficiency   float64
}

func (w *weightFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&w.Range, "range", 5, "Range priority (0-10)")
	cmd.Flags().Float64Var(&w.Speed, "speed", 5, "Top speed priority (0-10)")
	cmd.Flags().Float64Var(&w.Acceleration, "accel", 5, "Acceleration priority (0-10)")
	cmd.Flags().Float64Var(&w.HillClimbing, "hill", 5, "Hill climbing priority (0-10)")
	cmd.Flags().Float64Var(&w.Regen, "regen", 5, "Regenerative braking priority (0-10)")
	cmd.Flags().Float64Var(&w.Efficiency, "efficiency", 5, "Efficiency priority (0-10)")
}

// weights overlays explicitly changed flags on base.
func (w weightFlags) weights(base model.PriorityWeights, changed func(string) bool) (model.PriorityWeights, error) {
	out := base
	set := func(name string, v float64, dst **float64) {
		if changed(name) {
			*dst = model.Weight(v)
		}
	}
	set("range", w.Range, &out.Range)
	set("speed", w.Speed, &out.Speed)
	set("accel", w.Acceleration, &out.Acceleration)
	set("hill", w.HillClimbing, &out.HillClimbing)
	set("regen", w.Regen, &out.Regen)
	set("efficiency", w.Efficiency, &out.Efficiency)
	if err := config.ValidateWeights(out); err != nil {
		return model.PriorityWeights{}, err
	}
	return out, nil
}

// presetFor returns the named preset, or the zero preset when name is empty.
func presetFor(cfg config.Config, name string) (config.Preset, error) {
	if name == "" {
		return config.Preset{}, nil
	}
	p, ok := cfg.Presets[name]
	if !ok {
		return config.Preset{}, fmt.Errorf("unknown preset %q (have %v)", name, cfg.PresetNames())
	}
	return p, nil
}
