package model

import "time"

// FactorNames lists the sensor factors in the order the scoring model was
// trained on. Readings and feature vectors must preserve this order.
var FactorNames = []string{
	"MonsoonIntensity",
	"TopographyDrainage",
	"RiverManagement",
	"Deforestation",
	"Urbanization",
	"ClimateChange",
	"DamsQuality",
	"Siltation",
	"AgriculturalPractices",
	"Encroachments",
	"IneffectiveDisasterPreparedness",
	"DrainageSystems",
	"CoastalVulnerability",
	"Landslides",
	"Watersheds",
	"DeterioratingInfrastructure",
	"PopulationScore",
	"WetlandLoss",
	"InadequatePlanning",
	"PoliticalFactors",
}

// NumFactors is the fixed width of a sensor feature vector.
const NumFactors = 20

// SensorReading is one synthesized (or replayed) set of environmental factor
// values plus the derived flood probability. Immutable after creation.
type SensorReading struct {
	Timestamp   time.Time      `json:"timestamp"`
	Factors     map[string]int `json:"factors"`
	Probability float64        `json:"probability"`
	Scenario    string         `json:"scenario"`
}

// FeatureVector returns the factor values in model training order.
func (r *SensorReading) FeatureVector() []float64 {
	features := make([]float64, 0, NumFactors)
	for _, name := range FactorNames {
		features = append(features, float64(r.Factors[name]))
	}
	return features
}
