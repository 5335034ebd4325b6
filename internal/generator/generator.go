package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/chronos/internal/domain"
)

// Scenario names.
const (
	ScenarioTerroristFinancing = "terrorist_financing"
	ScenarioCryptoSanctions    = "crypto_sanctions"
	ScenarioHumanTrafficking   = "human_trafficking"
	ScenarioBaseline           = "baseline"
)

// Scenarios lists every scenario the generator understands.
func Scenarios() []string {
	return []string{ScenarioTerroristFinancing, ScenarioCryptoSanctions, ScenarioHumanTrafficking, ScenarioBaseline}
}

// Record is the wire shape of a transaction as served by the timeline endpoint.
type Record struct {
	ID              string  `json:"id"`
	Timestamp       string  `json:"timestamp"`
	FromAccount     string  `json:"from_account"`
	ToAccount       string  `json:"to_account"`
	Amount          float64 `json:"amount"`
	TransactionType string  `json:"transaction_type,omitempty"`
	SuspiciousScore float64 `json:"suspicious_score"`
	PatternType     string  `json:"pattern_type,omitempty"`
	Scenario        string  `json:"scenario,omitempty"`
	Description     string  `json:"description,omitempty"`
}

// Dataset contains the generated transactions.
type Dataset struct {
	Transactions []Record `json:"transactions"`
}

// Generator produces scenario transactions. It is not safe for concurrent use.
type Generator struct {
	cfg  Config
	rand *rand.Rand
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.PerScenario <= 0 {
		cfg.PerScenario = def.PerScenario
	}
	if cfg.Baseline < 0 {
		cfg.Baseline = 0
	}
	if len(cfg.Scenarios) == 0 {
		cfg.Scenarios = def.Scenarios
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Generator{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate builds every configured scenario plus the baseline. It respects
// context cancellation between scenarios.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	var out []Record
	for _, name := range g.cfg.Scenarios {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		out = append(out, g.Scenario(name, g.cfg.PerScenario)...)
	}
	if g.cfg.Baseline > 0 {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		out = append(out, g.Scenario(ScenarioBaseline, g.cfg.Baseline)...)
	}
	return Dataset{Transactions: out}, nil
}

// Scenario generates n records for the named scenario. Unknown names fall
// back to baseline traffic.
func (g *Generator) Scenario(name string, n int) []Record {
	switch name {
	case ScenarioTerroristFinancing:
		return g.terroristFinancing(n)
	case ScenarioCryptoSanctions:
		return g.cryptoSanctions(n)
	case ScenarioHumanTrafficking:
		return g.humanTrafficking(n)
	default:
		return g.baseline(n)
	}
}

func (g *Generator) now() time.Time {
	if g.cfg.Now.IsZero() {
		return time.Now().UTC()
	}
	return g.cfg.Now.UTC()
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rand.Float64()*(hi-lo)
}

func (g *Generator) terroristFinancing(n int) []Record {
	base := g.now().AddDate(0, 0, -30)
	out := make([]Record, n)
	for i := range out {
		to := fmt.Sprintf("SHELL_%02d", i%10)
		if i%3 == 0 {
			to = "TERROR_CELL_001"
		}
		out[i] = Record{
			ID:              fmt.Sprintf("TF_%04d", i),
			Timestamp:       formatTime(base.Add(time.Duration(i) * time.Hour)),
			FromAccount:     fmt.Sprintf("DONOR_%03d", i%50),
			ToAccount:       to,
			Amount:          roundCents(g.uniform(50, 500)),
			TransactionType: "transfer",
			SuspiciousScore: g.uniform(0.6, 0.9),
			PatternType:     "micro_donations",
			Scenario:        ScenarioTerroristFinancing,
		}
	}
	return out
}

func (g *Generator) cryptoSanctions(n int) []Record {
	base := g.now().AddDate(0, 0, -7)
	out := make([]Record, n)
	for i := range out {
		to := fmt.Sprintf("EXCHANGE_%02d", i%8)
		if i%4 == 0 {
			to = fmt.Sprintf("MIXER_%02d", i%5)
		}
		out[i] = Record{
			ID:              fmt.Sprintf("CS_%04d", i),
			Timestamp:       formatTime(base.Add(time.Duration(i*2) * time.Hour)),
			FromAccount:     fmt.Sprintf("WALLET_%03d", i%20),
			ToAccount:       to,
			Amount:          roundCents(g.uniform(1000, 50000)),
			TransactionType: "crypto_transfer",
			SuspiciousScore: g.uniform(0.7, 0.95),
			PatternType:     "layering",
			Scenario:        ScenarioCryptoSanctions,
		}
	}
	return out
}

func (g *Generator) humanTrafficking(n int) []Record {
	base := g.now().AddDate(0, 0, -60)
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{
			ID:              fmt.Sprintf("HT_%04d", i),
			Timestamp:       formatTime(base.Add(time.Duration(i*6) * time.Hour)),
			FromAccount:     fmt.Sprintf("FRONT_BUSINESS_%02d", i%15),
			ToAccount:       fmt.Sprintf("HANDLER_%02d", i%8),
			Amount:          roundCents(g.uniform(2000, 15000)),
			TransactionType: "cash_transfer",
			SuspiciousScore: g.uniform(0.5, 0.8),
			PatternType:     "network_distribution",
			Scenario:        ScenarioHumanTrafficking,
		}
	}
	return out
}

func (g *Generator) baseline(n int) []Record {
	base := g.now().AddDate(0, 0, -30)
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{
			ID:              fmt.Sprintf("NORM_%04d", i),
			Timestamp:       formatTime(base.Add(time.Duration(i) * time.Hour)),
			FromAccount:     g.iban(),
			ToAccount:       g.iban(),
			Amount:          roundCents(g.uniform(100, 10000)),
			TransactionType: "transfer",
			SuspiciousScore: g.uniform(0.1, 0.3),
			PatternType:     "normal",
			Scenario:        ScenarioBaseline,
		}
	}
	return out
}

func (g *Generator) iban() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	bank := make([]byte, 4)
	for i := range bank {
		bank[i] = letters[g.rand.Intn(len(letters))]
	}
	return fmt.Sprintf("GB%02d%s%06d%08d", g.rand.Intn(100), bank, g.rand.Intn(1000000), g.rand.Intn(100000000))
}

// Demo account pool and score set used for sample data.
var (
	sampleAccounts = []string{"ACC_001", "ACC_002", "ACC_003", "ACC_004", "ACC_005", "ACC_006"}
	sampleScores   = []float64{0.1, 0.3, 0.5, 0.7, 0.9}
	sampleTypes    = []string{"wire_transfer", "cash_deposit", "check_deposit", "ach_transfer"}
	patternPool    = []string{"SHELL_001", "SHELL_002", "SHELL_003", "TARGET_ACC"}
	sampleBaseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

// SampleTransactions builds n demo records: timestamps spread after
// 2024-01-01, amounts between 100 and 50000, distinct sender and recipient
// from a six-account pool and scores from a fixed set. Output is sorted by time.
func (g *Generator) SampleTransactions(n int) []Record {
	out := make([]Record, n)
	for i := range out {
		offset := time.Duration(float64(i) * 24 * float64(time.Hour) * g.rand.Float64() * 30)
		from := sampleAccounts[g.rand.Intn(len(sampleAccounts))]
		to := sampleAccounts[g.rand.Intn(len(sampleAccounts))]
		for to == from {
			to = sampleAccounts[g.rand.Intn(len(sampleAccounts))]
		}
		out[i] = Record{
			ID:              fmt.Sprintf("TXN_%03d", i+1),
			Timestamp:       formatTime(sampleBaseTime.Add(offset)),
			FromAccount:     from,
			ToAccount:       to,
			Amount:          roundCents(g.uniform(100, 50000)),
			TransactionType: sampleTypes[g.rand.Intn(len(sampleTypes))],
			SuspiciousScore: sampleScores[g.rand.Intn(len(sampleScores))],
			Scenario:        "demo",
			Description:     fmt.Sprintf("Sample transaction %d", i+1),
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// PatternChain builds a layering chain over three shell accounts and a
// target. The first half is labelled structuring, the rest layering.
func (g *Generator) PatternChain(steps int) []domain.PatternStep {
	out := make([]domain.PatternStep, steps)
	half := steps / 2
	for i := range out {
		technique := "layering"
		if i < half {
			technique = "structuring"
		}
		out[i] = domain.PatternStep{
			Step:         i + 1,
			FromAccount:  patternPool[i%(len(patternPool)-1)],
			ToAccount:    patternPool[(i+1)%len(patternPool)],
			Amount:       decimal.NewFromFloat(10000 + g.uniform(-500, 500)).Round(2),
			DelayMinutes: g.rand.Intn(60) + 5,
			Technique:    technique,
		}
	}
	return out
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
