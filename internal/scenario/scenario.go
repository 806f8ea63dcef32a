package scenario

import "fmt"

// Range is an inclusive [Min, Max] bound for one sensor factor.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Scenario is a named weather regime: a display name, the probability band
// synthetic scoring should land in, an optional duration after which the
// regime reverts to the default, and factor range overrides applied on top of
// the city baseline.
type Scenario struct {
	Key           string
	Name          string
	Description   string
	RiskMin       float64
	RiskMax       float64
	DurationHours float64 // 0 means continuous
	Overrides     map[string]Range
}

// Continuous reports whether the scenario has no automatic expiry.
func (s *Scenario) Continuous() bool {
	return s.DurationHours <= 0
}

// FactorRanges returns the full factor range table for the scenario: the
// baseline with the scenario's overrides applied.
func (s *Scenario) FactorRanges() map[string]Range {
	ranges := make(map[string]Range, len(baselineRanges))
	for name, r := range baselineRanges {
		ranges[name] = r
	}
	for name, r := range s.Overrides {
		ranges[name] = r
	}
	return ranges
}

// DefaultScenario is the regime the manager reverts to when an expiring
// scenario runs out.
const DefaultScenario = "normal"

// baselineRanges are the city's typical factor bounds; scenarios shift
// individual factors off this baseline.
var baselineRanges = map[string]Range{
	"MonsoonIntensity":                {2, 8},
	"TopographyDrainage":              {4, 9},
	"RiverManagement":                 {3, 7},
	"Deforestation":                   {3, 8},
	"Urbanization":                    {5, 9},
	"ClimateChange":                   {4, 8},
	"DamsQuality":                     {4, 8},
	"Siltation":                       {2, 6},
	"AgriculturalPractices":           {3, 7},
	"Encroachments":                   {3, 7},
	"IneffectiveDisasterPreparedness": {4, 8},
	"DrainageSystems":                 {3, 8},
	"CoastalVulnerability":            {1, 3},
	"Landslides":                      {4, 8},
	"Watersheds":                      {3, 7},
	"DeterioratingInfrastructure":     {4, 8},
	"PopulationScore":                 {5, 9},
	"WetlandLoss":                     {4, 7},
	"InadequatePlanning":              {4, 8},
	"PoliticalFactors":                {3, 7},
}

var table = map[string]*Scenario{
	"normal": {
		Key:         "normal",
		Name:        "Normal Weather",
		Description: "Typical weather conditions with low flood risk",
		RiskMin:     0.1,
		RiskMax:     0.4,
	},
	"heavy_rain": {
		Key:           "heavy_rain",
		Name:          "Heavy Rainfall",
		Description:   "Intense rainfall with increased flood risk",
		RiskMin:       0.4,
		RiskMax:       0.7,
		DurationHours: 6,
		Overrides: map[string]Range{
			"MonsoonIntensity": {10, 16},
			"DrainageSystems":  {2, 5},
			"Landslides":       {6, 10},
		},
	},
	"flood": {
		Key:           "flood",
		Name:          "Flood Event",
		Description:   "Active flooding with high risk",
		RiskMin:       0.7,
		RiskMax:       0.95,
		DurationHours: 12,
		Overrides: map[string]Range{
			"MonsoonIntensity":                {12, 16},
			"DrainageSystems":                 {1, 4},
			"RiverManagement":                 {1, 4},
			"Landslides":                      {7, 12},
			"IneffectiveDisasterPreparedness": {6, 10},
		},
	},
	"pre_monsoon": {
		Key:         "pre_monsoon",
		Name:        "Pre-Monsoon",
		Description: "Pre-monsoon preparation phase",
		RiskMin:     0.1,
		RiskMax:     0.3,
		Overrides: map[string]Range{
			"MonsoonIntensity": {1, 4},
			"DrainageSystems":  {6, 10},
		},
	},
	"drought": {
		Key:         "drought",
		Name:        "Drought Conditions",
		Description: "Low water levels, minimal rain",
		RiskMin:     0.05,
		RiskMax:     0.2,
		Overrides: map[string]Range{
			"MonsoonIntensity": {0, 2},
			"ClimateChange":    {7, 12},
		},
	},
}

// Lookup returns the scenario for key, or an error for an unknown key.
func Lookup(key string) (*Scenario, error) {
	s, ok := table[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, key)
	}
	return s, nil
}

// Keys returns all known scenario keys.
func Keys() []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	return keys
}
