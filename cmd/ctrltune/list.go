package main

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"ctrltune/internal/cache"
	"ctrltune/internal/config"
	"ctrltune/internal/model"
)

var (
	scenarioVehicle string // Restrict the scenario listing to one vehicle
	scenarioQuick   bool   // Include hand-tuned quick scenarios
)

// scenariosCmd lists the pre-generated cache keys
var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List pre-generated cache scenarios",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		c := newCache(cfg, log)
		entries := filterEntries(c.Entries(), model.VehicleModel(scenarioVehicle), scenarioQuick)

		pterm.DefaultHeader.WithFullWidth().Println("Cache scenarios")
		pterm.Println()
		data := pterm.TableData{{"Key", "Vehicle", "Priority", "Condition", "Kind"}}
		for _, e := range entries {
			kind := "pregenerated"
			if e.Meta.Quick {
				kind = "quick"
			}
			data = append(data, []string{e.Key, string(e.Meta.Vehicle), e.Meta.Priority, e.Meta.Condition, kind})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}
		s := c.Stats()
		pterm.Info.Printf("%d shown; %d pregenerated and %d quick in total\n", len(entries), s.Pregenerated, s.Quick)
		return nil
	},
}

func filterEntries(in []cache.Entry, vehicle model.VehicleModel, quick bool) []cache.Entry {
	var out []cache.Entry
	for _, e := range in {
		if vehicle != "" && e.Meta.Vehicle != vehicle {
			continue
		}
		if e.Meta.Quick && !quick {
			continue
		}
		out = append(out, e)
	}
	return out
}

// presetsCmd lists the presets from the loaded config
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List configured priority and condition presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		pterm.DefaultHeader.WithFullWidth().Println("Presets")
		pterm.Println()
		return pterm.DefaultTable.WithHasHeader().WithData(presetTable(cfg)).Render()
	},
}

func presetTable(cfg config.Config) pterm.TableData {
	data := pterm.TableData{{"Name", "Priorities", "Conditions", "Description"}}
	for _, name := range cfg.PresetNames() {
		p := cfg.Presets[name]
		cond := fmt.Sprintf("%g°F, %g%%, %g lbs", p.Conditions.Temperature, p.Conditions.Grade, p.Conditions.Load)
		data = append(data, []string{name, formatWeights(p.Priorities), cond, p.Description})
	}
	return data
}

// formatWeights renders only the weights that are set.
func formatWeights(p model.PriorityWeights) string {
	var parts []string
	add := func(name string, w *float64) {
		if w != nil {
			parts = append(parts, fmt.Sprintf("%s=%g", name, *w))
		}
	}
	add("speed", p.Speed)
	add("range", p.Range)
	add("accel", p.Acceleration)
	add("hill", p.HillClimbing)
	add("regen", p.Regen)
	add("efficiency", p.Efficiency)
	if len(parts) == 0 {
		return "defaults"
	}
	return strings.Join(parts, " ")
}

func init() {
	scenariosCmd.Flags().StringVar(&scenarioVehicle, "vehicle", "", "Only list scenarios for this vehicle")
	scenariosCmd.Flags().BoolVar(&scenarioQuick, "quick", true, "Include quick scenarios")
}
