package generator

import "time"

// Config drives the scenario generator.
type Config struct {
	PerScenario int
	Baseline    int
	Scenarios   []string
	Seed        int64
	// Now anchors generated timestamps; zero means time.Now.
	Now time.Time
}

// DefaultConfig mirrors the seed dataset: 150 records per illicit scenario
// and 300 baseline records.
func DefaultConfig() Config {
	return Config{
		PerScenario: 150,
		Baseline:    300,
		Scenarios:   []string{ScenarioTerroristFinancing, ScenarioCryptoSanctions, ScenarioHumanTrafficking},
		Seed:        42,
	}
}
