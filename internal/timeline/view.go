// Package timeline positions transactions on a time/amount plane and reveals
// them frame by frame.
package timeline

import (
	"log/slog"
	"time"

	"github.com/vanshika/chronos/internal/config"
	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/logging"
	"github.com/vanshika/chronos/internal/scheduler"
)

// State of the playback machine.
type State int

const (
	StateIdle State = iota
	StateRendering
	StatePaused
	StatePlaying
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateRendering:
		return "rendering"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	case StateCompleted:
		return "completed"
	default:
		return "idle"
	}
}

// Opacity levels applied to points and connections.
const (
	OpacityDim             = 0.1
	OpacityRevealed        = 0.8
	OpacityConnection      = 0.6
	OpacitySelected        = 1.0
	OpacityUnselected      = 0.3
	MinSpeed, MaxSpeed     = 1, 50
	speedToStepDivisor     = 5
	criticalConnectionMark = 0.8
)

// Progress is reported after every tick.
type Progress struct {
	Frame   int
	Visible int
	Total   int
}

// Percent of the collection currently revealed.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Visible) / float64(p.Total) * 100
}

// Observer receives playback notifications on the scheduler's loop.
type Observer interface {
	OnProgress(Progress)
	OnStateChange(from, to State)
	OnCompleted(total int)
}

// Option configures a View.
type Option func(*View)

// WithObserver registers an observer for playback events.
func WithObserver(o Observer) Option {
	return func(v *View) {
		v.observer = o
	}
}

// WithLogger overrides the discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *View) {
		v.logger = logging.Component(logger, "timeline")
	}
}

// View is the timeline state machine. All methods must be called from the
// scheduler's loop.
type View struct {
	sched    scheduler.Scheduler
	playback config.PlaybackConfig
	width    float64
	height   float64
	logger   *slog.Logger
	observer Observer

	state    State
	speed    int
	frame    int
	visible  int
	gen      uint64
	timer    *scheduler.Timer
	selected *domain.Transaction

	txs         []domain.Transaction
	points      []Point
	connections []ConnectionMark
	scales      Scales
}

// New creates an idle view.
func New(sched scheduler.Scheduler, playback config.PlaybackConfig, layout config.LayoutConfig, opts ...Option) *View {
	v := &View{
		sched:    sched,
		playback: playback,
		width:    layout.Width,
		height:   layout.Height,
		logger:   logging.Discard(),
		speed:    clampSpeed(playback.Speed),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load replaces the collection, rebuilds every derived structure and parks
// the view at frame 0.
func (v *View) Load(txs []domain.Transaction) {
	v.cancel()
	v.setState(StateRendering)

	v.txs = domain.SortChronologically(txs)
	v.scales = NewScales(v.txs, v.width, v.height)
	v.points = buildPoints(v.txs, v.scales)
	v.connections = buildConnectionMarks(domain.BuildConnections(v.txs), v.scales)
	v.frame = 0
	v.visible = 0
	v.selected = nil
	v.applyOpacity()

	v.logger.Debug("timeline loaded", "transactions", len(v.txs), "connections", len(v.connections))
	v.setState(StatePaused)
}

// Play starts the animation loop. It reports false when there is nothing to
// play or playback is already running.
func (v *View) Play() bool {
	if v.state == StatePlaying || len(v.txs) == 0 {
		return false
	}
	if v.state == StateCompleted {
		v.frame = 0
	}
	v.setState(StatePlaying)
	v.tick(v.gen)
	return true
}

// Pause stops the loop and keeps the current frame.
func (v *View) Pause() {
	if v.state != StatePlaying {
		return
	}
	v.cancel()
	v.setState(StatePaused)
}

// Reset rewinds to frame 0 with every point dimmed.
func (v *View) Reset() {
	v.cancel()
	if v.state == StateIdle {
		return
	}
	v.frame = 0
	v.visible = 0
	v.selected = nil
	v.applyOpacity()
	v.setState(StatePaused)
}

// Teardown cancels scheduled work and releases derived structures.
func (v *View) Teardown() {
	v.cancel()
	v.txs = nil
	v.points = nil
	v.connections = nil
	v.selected = nil
	v.frame = 0
	v.visible = 0
	v.setState(StateIdle)
}

// SetSpeed clamps n to [MinSpeed, MaxSpeed] and returns the applied value.
// The new speed takes effect on the next tick, which always reveals more
// points than the last one did.
func (v *View) SetSpeed(n int) int {
	oldStep := stepFor(v.speed)
	v.speed = clampSpeed(n)
	if step := stepFor(v.speed); step != oldStep && v.frame > 0 {
		v.frame = v.visible/step + 1
	}
	return v.speed
}

func stepFor(speed int) int {
	return max(1, speed/speedToStepDivisor)
}

// SelectPoint highlights every point sharing the sender or recipient of the
// given transaction. It reports false when the ID is unknown.
func (v *View) SelectPoint(id string) bool {
	for i := range v.txs {
		if v.txs[i].ID == id {
			tx := v.txs[i]
			v.selected = &tx
			v.applyOpacity()
			return true
		}
	}
	return false
}

// ClearSelection restores playback opacities.
func (v *View) ClearSelection() {
	v.selected = nil
	v.applyOpacity()
}

func (v *View) tick(gen uint64) {
	if gen != v.gen || v.state != StatePlaying {
		return
	}
	v.timer = nil

	total := len(v.txs)
	v.visible = min(v.frame*stepFor(v.speed), total)
	v.applyOpacity()

	progress := Progress{Frame: v.frame, Visible: v.visible, Total: total}
	v.frame++
	if v.observer != nil {
		v.observer.OnProgress(progress)
	}

	if v.visible >= total {
		v.frame = 0
		v.setState(StateCompleted)
		v.logger.Info("timeline playback completed", "transactions", total)
		if v.observer != nil {
			v.observer.OnCompleted(total)
		}
		return
	}
	v.timer = v.sched.After(v.tickDelay(), func() { v.tick(gen) })
}

func (v *View) tickDelay() time.Duration {
	return max(v.playback.MinTickDelay, v.playback.BaseTickDelay-time.Duration(v.speed)*time.Millisecond)
}

func (v *View) cancel() {
	v.timer.Cancel()
	v.timer = nil
	v.gen++
}

func (v *View) setState(next State) {
	if v.state == next {
		return
	}
	prev := v.state
	v.state = next
	if v.observer != nil {
		v.observer.OnStateChange(prev, next)
	}
}

func (v *View) applyOpacity() {
	for i := range v.points {
		p := &v.points[i]
		p.Revealed = i < v.visible
		p.Highlighted = false
		switch {
		case v.selected != nil:
			p.Highlighted = relatedTo(p.Transaction, *v.selected)
			if p.Highlighted {
				p.Opacity = OpacitySelected
			} else {
				p.Opacity = OpacityUnselected
			}
		case p.Revealed:
			p.Opacity = OpacityRevealed
		default:
			p.Opacity = OpacityDim
		}
	}
	for i := range v.connections {
		c := &v.connections[i]
		c.Revealed = c.TargetIndex < v.visible
		if c.Revealed {
			c.Opacity = OpacityConnection
		} else {
			c.Opacity = OpacityDim
		}
	}
}

func relatedTo(candidate, selected domain.Transaction) bool {
	return candidate.FromAccount == selected.FromAccount ||
		candidate.ToAccount == selected.ToAccount ||
		candidate.ID == selected.ID
}

func clampSpeed(n int) int {
	return min(max(n, MinSpeed), MaxSpeed)
}

// State returns the current playback state.
func (v *View) State() State { return v.state }

// Speed returns the applied speed.
func (v *View) Speed() int { return v.speed }

// Frame returns the next frame to be rendered.
func (v *View) Frame() int { return v.frame }

// Visible returns how many points are currently revealed.
func (v *View) Visible() int { return v.visible }

// Total returns the collection size.
func (v *View) Total() int { return len(v.txs) }

// Scheduled reports whether a tick is pending.
func (v *View) Scheduled() bool { return v.timer.Pending() }

// Selected returns the ID of the selected transaction, if any.
func (v *View) Selected() (string, bool) {
	if v.selected == nil {
		return "", false
	}
	return v.selected.ID, true
}

// Progress returns the last rendered progress.
func (v *View) Progress() Progress {
	return Progress{Frame: v.frame, Visible: v.visible, Total: len(v.txs)}
}

// Transactions returns the chronologically ordered collection.
func (v *View) Transactions() []domain.Transaction {
	return append([]domain.Transaction(nil), v.txs...)
}

// Points returns a copy of the rendered points.
func (v *View) Points() []Point {
	return append([]Point(nil), v.points...)
}

// Connections returns a copy of the rendered connections.
func (v *View) Connections() []ConnectionMark {
	return append([]ConnectionMark(nil), v.connections...)
}

// Scales returns the current axis scales.
func (v *View) Scales() Scales { return v.scales }
