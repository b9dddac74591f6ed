package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pterm/pterm"

	"ctrltune/internal/controller"
	"ctrltune/internal/model"
)

// settingsTable lays out factory against optimized values, one row per
// function in ascending order.
func settingsTable(res model.OptimizationResult) pterm.TableData {
	data := pterm.TableData{{"Function", "Name", "Unit", "Factory", "Optimized", "Delta"}}
	for _, f := range res.FactorySettings.Functions() {
		name, unit := "", ""
		if d, ok := controller.Lookup(f); ok {
			name, unit = d.Name, d.Unit
		}
		from, to := res.FactorySettings[f], res.OptimizedSettings[f]
		delta := ""
		if to != from {
			delta = fmt.Sprintf("%+d", to-from)
		}
		data = append(data, []string{f.String(), name, unit, fmt.Sprint(from), fmt.Sprint(to), delta})
	}
	return data
}

func renderResult(res model.OptimizationResult, title string) {
	pterm.DefaultHeader.WithFullWidth().Println(title)
	pterm.Println()

	pterm.Info.Printf("Vehicle %s, confidence %.2f\n", res.Analysis.VehicleModel, res.Confidence)
	if res.Cached {
		pterm.Info.Printf("Cache %s hit on %s", res.CacheHit, res.CacheKey)
		if res.CacheHit == model.CacheHitFuzzy {
			pterm.Printf(" (similarity %.2f)", res.Similarity)
		}
		pterm.Println()
	}
	if len(res.Analysis.Clamped) > 0 {
		pterm.Warning.Printf("Clamped to safety bounds: %v\n", res.Analysis.Clamped)
	}
	pterm.Println()

	if err := pterm.DefaultTable.WithHasHeader().WithData(settingsTable(res)).Render(); err != nil {
		pterm.Error.Println(err)
	}
	pterm.Println()

	if len(res.PerformanceChanges) == 0 {
		pterm.Info.Println("No significant performance changes")
		return
	}
	items := make([]pterm.BulletListItem, 0, len(res.PerformanceChanges))
	for _, c := range res.PerformanceChanges {
		items = append(items, pterm.BulletListItem{Level: 0, Text: c})
	}
	if err := pterm.DefaultBulletList.WithItems(items).Render(); err != nil {
		pterm.Error.Println(err)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(err error) {
	pterm.Error.Println(err)
}
