package timeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanshika/chronos/internal/config"
	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/scheduler"
)

type recorder struct {
	progress    []Progress
	transitions []State
	completed   int
}

func (r *recorder) OnProgress(p Progress)     { r.progress = append(r.progress, p) }
func (r *recorder) OnStateChange(_, to State) { r.transitions = append(r.transitions, to) }
func (r *recorder) OnCompleted(int)           { r.completed++ }

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func sample(n int) []domain.Transaction {
	txs := make([]domain.Transaction, n)
	for i := 0; i < n; i++ {
		// reverse order so Load has to sort
		txs[i] = domain.Transaction{
			ID:             fmt.Sprintf("TX_%03d", n-i),
			Timestamp:      start.Add(time.Duration(n-i) * time.Hour),
			Amount:         decimal.NewFromInt(int64(100 * (n - i))),
			FromAccount:    fmt.Sprintf("ACC_%d", (n-i)%3),
			ToAccount:      fmt.Sprintf("ACC_%d", (n-i+1)%3),
			SuspicionScore: 0.1,
		}
	}
	return txs
}

func newView(t *testing.T, speed int) (*View, *scheduler.Manual, *recorder) {
	t.Helper()
	clock := scheduler.NewManual(start)
	rec := &recorder{}
	v := New(clock,
		config.PlaybackConfig{Speed: speed, BaseTickDelay: 150 * time.Millisecond, MinTickDelay: 50 * time.Millisecond},
		config.LayoutConfig{Width: 800, Height: 400},
		WithObserver(rec),
	)
	return v, clock, rec
}

func TestLoad_ParksAtFrameZero(t *testing.T) {
	v, clock, _ := newView(t, 10)
	v.Load(sample(5))

	if v.State() != StatePaused || v.Frame() != 0 || v.Visible() != 0 {
		t.Fatalf("state=%s frame=%d visible=%d", v.State(), v.Frame(), v.Visible())
	}
	txs := v.Transactions()
	for i := 1; i < len(txs); i++ {
		if txs[i].Timestamp.Before(txs[i-1].Timestamp) {
			t.Fatal("transactions not chronological")
		}
	}
	for _, p := range v.Points() {
		if p.Opacity != OpacityDim {
			t.Fatalf("point %s opacity %v, want dim", p.Transaction.ID, p.Opacity)
		}
	}
	if clock.Pending() != 0 {
		t.Fatal("Load must not schedule ticks")
	}
}

func TestScales(t *testing.T) {
	v, _, _ := newView(t, 10)
	v.Load(sample(5))
	pts := v.Points()
	if pts[0].X != 0 || pts[len(pts)-1].X != 800 {
		t.Errorf("x range = [%v, %v]", pts[0].X, pts[len(pts)-1].X)
	}
	if pts[len(pts)-1].Y != 0 {
		t.Errorf("largest amount should map to top, got %v", pts[len(pts)-1].Y)
	}
}

func TestPlay_VisibleStrictlyIncreasesToTotal(t *testing.T) {
	v, clock, rec := newView(t, 10)
	v.Load(sample(7))

	if !v.Play() {
		t.Fatal("Play() should start playback")
	}
	clock.RunAll(100)

	if v.State() != StateCompleted {
		t.Fatalf("state = %s, want completed", v.State())
	}
	reachedTotal := 0
	for i, p := range rec.progress {
		if i > 0 && p.Visible <= rec.progress[i-1].Visible {
			t.Fatalf("visible did not increase at tick %d: %v", i, rec.progress)
		}
		if p.Visible == 7 {
			reachedTotal++
		}
	}
	if reachedTotal != 1 {
		t.Fatalf("total reached %d times", reachedTotal)
	}
	if rec.completed != 1 || v.Frame() != 0 {
		t.Fatalf("completed=%d frame=%d", rec.completed, v.Frame())
	}
	if clock.Pending() != 0 {
		t.Fatal("residual tick after completion")
	}
}

func TestTickDelay_BoundedBelow(t *testing.T) {
	v, _, _ := newView(t, 10)
	if d := v.tickDelay(); d != 140*time.Millisecond {
		t.Errorf("delay at speed 10 = %s", d)
	}
	v.SetSpeed(50)
	if d := v.tickDelay(); d != 100*time.Millisecond {
		t.Errorf("delay at speed 50 = %s", d)
	}
	v.playback.BaseTickDelay = 60 * time.Millisecond
	if d := v.tickDelay(); d != 50*time.Millisecond {
		t.Errorf("delay should clamp to minimum, got %s", d)
	}
}

func TestPausePlay_NoSkipOrDuplicate(t *testing.T) {
	v, clock, rec := newView(t, 5)
	v.Load(sample(6))

	v.Play()
	clock.RunNext()
	v.Pause()
	v.Pause()
	if v.State() != StatePaused || clock.Pending() != 0 {
		t.Fatalf("state=%s pending=%d", v.State(), clock.Pending())
	}
	pausedAt := v.Frame()

	v.Play()
	last := rec.progress[len(rec.progress)-1]
	if last.Frame != pausedAt {
		t.Fatalf("resumed at frame %d, paused at %d", last.Frame, pausedAt)
	}
	clock.RunAll(100)

	for i, p := range rec.progress {
		if p.Frame != i {
			t.Fatalf("frame sequence broken: %v", rec.progress)
		}
	}
}

func TestPlay_EmptyIsNoop(t *testing.T) {
	v, clock, _ := newView(t, 10)
	v.Load(nil)
	if v.Play() {
		t.Fatal("Play() on empty data should no-op")
	}
	if v.State() != StatePaused || clock.Pending() != 0 {
		t.Fatalf("state=%s pending=%d", v.State(), clock.Pending())
	}
}

func TestReset_CancelsAndDims(t *testing.T) {
	v, clock, _ := newView(t, 10)
	v.Load(sample(10))
	v.Play()
	clock.RunNext()
	v.SelectPoint("TX_001")

	v.Reset()
	if v.State() != StatePaused || v.Frame() != 0 || v.Visible() != 0 {
		t.Fatalf("state=%s frame=%d visible=%d", v.State(), v.Frame(), v.Visible())
	}
	if _, ok := v.Selected(); ok {
		t.Fatal("selection should be cleared")
	}
	if clock.Pending() != 0 {
		t.Fatal("Reset left a tick scheduled")
	}
	clock.Advance(time.Second)
	if v.Visible() != 0 {
		t.Fatal("stale tick mutated view after reset")
	}
}

func TestSelectPoint_HighlightsRelated(t *testing.T) {
	v, _, _ := newView(t, 10)
	v.Load([]domain.Transaction{
		{ID: "a", Timestamp: start, FromAccount: "X", ToAccount: "Y", Amount: decimal.NewFromInt(1)},
		{ID: "b", Timestamp: start.Add(time.Hour), FromAccount: "X", ToAccount: "Z", Amount: decimal.NewFromInt(1)},
		{ID: "c", Timestamp: start.Add(2 * time.Hour), FromAccount: "W", ToAccount: "Y", Amount: decimal.NewFromInt(1)},
		{ID: "d", Timestamp: start.Add(3 * time.Hour), FromAccount: "Y", ToAccount: "X", Amount: decimal.NewFromInt(1)},
	})

	if !v.SelectPoint("a") {
		t.Fatal("SelectPoint returned false")
	}
	want := map[string]float64{"a": 1, "b": 1, "c": 1, "d": 0.3}
	for _, p := range v.Points() {
		if p.Opacity != want[p.Transaction.ID] {
			t.Errorf("%s opacity = %v, want %v", p.Transaction.ID, p.Opacity, want[p.Transaction.ID])
		}
	}
	if v.State() != StatePaused {
		t.Fatal("selection must not change play state")
	}

	v.ClearSelection()
	for _, p := range v.Points() {
		if p.Opacity != OpacityDim {
			t.Fatalf("after clear %s opacity = %v", p.Transaction.ID, p.Opacity)
		}
	}
}

func TestConnections_RevealWithTarget(t *testing.T) {
	v, clock, _ := newView(t, 5)
	v.Load([]domain.Transaction{
		{ID: "1", Timestamp: start, FromAccount: "A", ToAccount: "B", SuspicionScore: 0.9, Amount: decimal.NewFromInt(10)},
		{ID: "2", Timestamp: start.Add(time.Hour), FromAccount: "B", ToAccount: "C", SuspicionScore: 0.2, Amount: decimal.NewFromInt(20)},
		{ID: "3", Timestamp: start.Add(2 * time.Hour), FromAccount: "C", ToAccount: "D", SuspicionScore: 0.1, Amount: decimal.NewFromInt(30)},
	})
	conns := v.Connections()
	if len(conns) != 1 || conns[0].StrokeWidth != 3 {
		t.Fatalf("connections = %+v", conns)
	}

	v.Play()
	clock.RunNext()
	if v.Connections()[0].Revealed {
		t.Fatal("connection revealed before its target")
	}
	clock.RunNext()
	if !v.Connections()[0].Revealed {
		t.Fatal("connection should be revealed with its target")
	}
}

func TestTeardown_ReleasesEverything(t *testing.T) {
	v, clock, _ := newView(t, 10)
	v.Load(sample(10))
	v.Play()

	v.Teardown()
	if v.State() != StateIdle || v.Total() != 0 || len(v.Points()) != 0 {
		t.Fatalf("state=%s total=%d", v.State(), v.Total())
	}
	if clock.Pending() != 0 {
		t.Fatal("teardown left a tick scheduled")
	}
}

func TestCompleted_Replays(t *testing.T) {
	v, clock, rec := newView(t, 50)
	v.Load(sample(4))
	v.Play()
	clock.RunAll(10)
	if v.State() != StateCompleted {
		t.Fatalf("state = %s", v.State())
	}
	if !v.Play() {
		t.Fatal("completed playback should be replayable")
	}
	if rec.progress[len(rec.progress)-1].Frame != 0 {
		t.Fatal("replay should start at frame 0")
	}
}

func TestSetSpeed_MidPlaybackNeverHidesPoints(t *testing.T) {
	v, clock, rec := newView(t, 50)
	v.Load(sample(40))

	v.Play()
	clock.RunNext()
	clock.RunNext()
	if got := rec.progress[len(rec.progress)-1].Visible; got != 20 {
		t.Fatalf("visible before slowdown = %d, want 20", got)
	}

	v.SetSpeed(5)
	clock.RunNext()
	v.SetSpeed(30)
	clock.RunAll(100)

	for i := 1; i < len(rec.progress); i++ {
		if rec.progress[i].Visible <= rec.progress[i-1].Visible {
			t.Fatalf("visible dropped at tick %d: %v", i, rec.progress)
		}
	}
	if v.State() != StateCompleted || rec.completed != 1 {
		t.Fatalf("state=%s completed=%d", v.State(), rec.completed)
	}
}

func TestSetSpeed_Clamps(t *testing.T) {
	v, _, _ := newView(t, 10)
	if got := v.SetSpeed(0); got != MinSpeed {
		t.Errorf("SetSpeed(0) = %d", got)
	}
	if got := v.SetSpeed(500); got != MaxSpeed {
		t.Errorf("SetSpeed(500) = %d", got)
	}
}
