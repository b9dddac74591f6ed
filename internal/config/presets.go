package config

import "ctrltune/internal/model"

func w(v float64) *float64 { return model.Weight(v) }

// DefaultPresets is the built-in catalog. A config file's presets section
// is merged over it by name.
func DefaultPresets() map[string]Preset {
	return map[string]Preset{
		"neighborhood_cruise": {
			Description: "Quiet residential driving on mild days",
			Priorities:  model.PriorityWeights{Speed: w(5), Range: w(6), Acceleration: w(4), Efficiency: w(6)},
			Conditions:  model.Conditions{Temperature: 72, Grade: 1, Load: 150},
		},
		"hill_country": {
			Description: "Sustained climbs with two passengers",
			Priorities:  model.PriorityWeights{Speed: w(4), Range: w(5), Acceleration: w(7), HillClimbing: w(9)},
			Conditions:  model.Conditions{Temperature: 70, Grade: 8, Load: 350},
		},
		"winter_commute": {
			Description: "Cold mornings, range first",
			Priorities:  model.PriorityWeights{Speed: w(4), Range: w(9), Efficiency: w(7), Regen: w(8)},
			Conditions:  model.Conditions{Temperature: 30, Grade: 2, Load: 200},
		},
		"track_day": {
			Description: "Flat course, all-out speed",
			Priorities:  model.PriorityWeights{Speed: w(10), Acceleration: w(8), Range: w(2)},
			Conditions:  model.Conditions{Temperature: 75, Grade: 0, Load: 100},
		},
		"utility_hauling": {
			Description: "Heavy cargo on mixed terrain",
			Priorities:  model.PriorityWeights{Speed: w(3), Range: w(6), Acceleration: w(5), HillClimbing: w(8)},
			Conditions:  model.Conditions{Temperature: 85, Grade: 4, Load: 700},
		},
	}
}
