package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func tx(id, from, to string, score float64, offset time.Duration, amount int64) Transaction {
	return Transaction{
		ID:             id,
		Timestamp:      base.Add(offset),
		Amount:         decimal.NewFromInt(amount),
		FromAccount:    from,
		ToAccount:      to,
		SuspicionScore: score,
	}
}

func TestLevelForScore_Boundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  SuspicionLevel
	}{
		{0, LevelNormal},
		{0.49, LevelNormal},
		{0.5, LevelSuspicious},
		{0.79, LevelSuspicious},
		{0.8, LevelCritical},
		{1, LevelCritical},
	}
	for _, tc := range cases {
		if got := LevelForScore(tc.score); got != tc.want {
			t.Errorf("LevelForScore(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestTransactionLevel_FollowsScore(t *testing.T) {
	a := tx("t1", "A", "B", 0.2, 0, 10)
	if a.Level() != LevelNormal || a.Color() != "#00d4ff" {
		t.Fatalf("unexpected level/color %s %s", a.Level(), a.Color())
	}
	a.SuspicionScore = 0.85
	if a.Level() != LevelCritical || a.Color() != "#ff4757" {
		t.Fatalf("level not recomputed: %s", a.Level())
	}
}

func TestSortChronologically_StableTieByID(t *testing.T) {
	in := []Transaction{
		tx("c", "A", "B", 0, time.Hour, 1),
		tx("b", "A", "B", 0, 0, 1),
		tx("a", "A", "B", 0, 0, 1),
	}
	out := SortChronologically(in)
	if out[0].ID != "a" || out[1].ID != "b" || out[2].ID != "c" {
		t.Fatalf("unexpected order: %s %s %s", out[0].ID, out[1].ID, out[2].ID)
	}
	if in[0].ID != "c" {
		t.Fatal("input slice must not be reordered")
	}
}

func TestBuildNetwork_NodesAndLinks(t *testing.T) {
	txs := []Transaction{
		tx("t1", "ACC_001", "ACC_002", 0.9, 0, 100),
		tx("t2", "ACC_002", "ACC_003", 0.1, time.Minute, 100),
		tx("t3", "ACC_003", "ACC_003", 0.2, 2*time.Minute, 100),
	}
	nodes, links := BuildNetwork(txs)

	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(nodes))
	}
	if len(links) != len(txs) {
		t.Fatalf("expected one link per transaction, got %d", len(links))
	}
	if nodes[0].ID != "ACC_001" || !nodes[0].Suspicious {
		t.Errorf("first node = %+v", nodes[0])
	}
	if !nodes[1].Suspicious {
		t.Error("ACC_002 touches a flagged transaction and must be suspicious")
	}
	if nodes[2].Suspicious {
		t.Error("ACC_003 should not be suspicious")
	}
	if len(nodes[2].Transactions) != 2 {
		t.Errorf("self-loop should be counted once, got %d", len(nodes[2].Transactions))
	}
	if nodes[0].Label != "ACC_001..." {
		t.Errorf("label = %q", nodes[0].Label)
	}
	if !links[0].Suspicious || links[1].Suspicious {
		t.Error("link suspicion should mirror transaction flag")
	}
}

func TestIsConnected_MixedEndpoints(t *testing.T) {
	a := &AccountNode{ID: "A"}
	links := []FlowLink{
		{Source: Endpoint{Node: a}, Target: Endpoint{ID: "B"}},
		{Source: Endpoint{ID: "C"}, Target: Endpoint{ID: "D"}},
	}
	if !IsConnected(links, "B", "A") {
		t.Error("expected A-B to be connected in either direction")
	}
	if IsConnected(links, "A", "C") {
		t.Error("A and C are not adjacent")
	}
}

func TestBuildConnections(t *testing.T) {
	txs := []Transaction{
		tx("t1", "A", "B", 0.9, 0, 1),
		tx("t2", "B", "C", 0.2, time.Minute, 1),
		tx("t3", "C", "D", 0.75, 2*time.Minute, 1),
		tx("t4", "X", "Y", 0.9, 3*time.Minute, 1),
	}
	conns := BuildConnections(txs)
	if len(conns) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(conns))
	}
	if conns[0].SourceIndex != 0 || conns[0].TargetIndex != 1 || conns[0].Suspicion != 0.9 {
		t.Errorf("unexpected connection %+v", conns[0])
	}
}

func TestComputeStats_RiskLevels(t *testing.T) {
	if s := ComputeStats(nil); s.Risk != RiskMinimal || s.Total != 0 {
		t.Errorf("empty stats = %+v", s)
	}

	critical := []Transaction{tx("t1", "A", "B", 0.9, 0, 100), tx("t2", "A", "B", 0.1, 0, 300)}
	s := ComputeStats(critical)
	if s.Risk != RiskHigh {
		t.Errorf("risk = %s, want HIGH", s.Risk)
	}
	if !s.TotalAmount.Equal(decimal.NewFromInt(400)) || !s.AverageAmount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("amounts = %s / %s", s.TotalAmount, s.AverageAmount)
	}

	var medium []Transaction
	for i := 0; i < 10; i++ {
		score := 0.1
		if i < 3 {
			score = 0.6
		}
		medium = append(medium, tx("m", "A", "B", score, 0, 1))
	}
	if got := ComputeStats(medium).Risk; got != RiskMedium {
		t.Errorf("30%% suspicious risk = %s, want MEDIUM", got)
	}

	medium[2].SuspicionScore = 0.1
	if got := ComputeStats(medium).Risk; got != RiskLow {
		t.Errorf("20%% suspicious risk = %s, want LOW", got)
	}
}

func TestNewSnapshot_IsDetached(t *testing.T) {
	txs := []Transaction{tx("t1", "A", "B", 0.9, 0, 100)}
	nodes, links := BuildNetwork(txs)
	snap := NewSnapshot("baseline", base, txs, nodes, links)

	txs[0].ID = "mutated"
	nodes[0].X = 999

	if snap.Transactions[0].ID != "t1" {
		t.Error("snapshot transactions share storage with the source")
	}
	if snap.NetworkNodes[0].X == 999 {
		t.Error("snapshot nodes share storage with the source")
	}
	if snap.NetworkLinks[0].Source != "A" || snap.NetworkLinks[0].TransactionID != "t1" {
		t.Errorf("link snapshot = %+v", snap.NetworkLinks[0])
	}
}

func TestSummarizePatterns(t *testing.T) {
	a := tx("t1", "A", "B", 0.6, 0, 100)
	a.PatternType, a.Scenario = "layering", "crypto_sanctions"
	b := tx("t2", "A", "B", 0.8, 0, 300)
	b.PatternType, b.Scenario = "layering", "crypto_sanctions"
	c := tx("t3", "A", "B", 0.2, 0, 50)
	c.PatternType, c.Scenario = "normal", "baseline"

	got := SummarizePatterns([]Transaction{c, a, b})
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].PatternType != "layering" || got[0].Count != 2 {
		t.Fatalf("first summary = %+v", got[0])
	}
	if !got[0].AverageAmount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("avg amount = %s", got[0].AverageAmount)
	}
	if got[0].AverageSuspicion < 0.69 || got[0].AverageSuspicion > 0.71 {
		t.Errorf("avg suspicion = %v", got[0].AverageSuspicion)
	}
}
