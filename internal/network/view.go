// Package network derives the account graph from a transaction collection and
// runs the force layout that positions it.
package network

import (
	"log/slog"

	"github.com/vanshika/chronos/internal/config"
	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/logging"
	"github.com/vanshika/chronos/internal/scheduler"
)

// Opacities applied while a node is selected.
const (
	OpacitySelected      = 1.0
	OpacityUnselected    = 0.3
	OpacityUnrelatedLink = 0.1
)

// Observer receives simulation notifications on the scheduler's loop.
type Observer interface {
	OnSimulationTick(alpha float64)
	OnSettled(ticks int)
}

// Option configures a View.
type Option func(*View)

// WithObserver registers an observer for simulation events.
func WithObserver(o Observer) Option {
	return func(v *View) { v.observer = o }
}

// WithLogger overrides the discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *View) { v.logger = logging.Component(logger, "network") }
}

// WithForces overrides the default simulation forces.
func WithForces(f Forces) Option {
	return func(v *View) { v.forces = f }
}

// View owns the derived graph and its simulation. All methods must be called
// from the scheduler's loop.
type View struct {
	sched    scheduler.Scheduler
	cfg      config.LayoutConfig
	forces   Forces
	logger   *slog.Logger
	observer Observer

	nodes    []*domain.AccountNode
	links    []domain.FlowLink
	layout   *Layout
	timer    *scheduler.Timer
	gen      uint64
	ticks    int
	selected string
}

// New creates an empty view.
func New(sched scheduler.Scheduler, cfg config.LayoutConfig, opts ...Option) *View {
	v := &View{
		sched:  sched,
		cfg:    cfg,
		forces: DefaultForces(),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Build discards any previous graph and derives a fresh one from txs.
func (v *View) Build(txs []domain.Transaction) ([]*domain.AccountNode, []domain.FlowLink) {
	v.Stop()
	v.nodes, v.links = domain.BuildNetwork(txs)
	v.layout = NewLayout(v.nodes, v.links, v.cfg.Width, v.cfg.Height, v.forces)
	v.ticks = 0
	v.selected = ""
	v.logger.Debug("network built", "nodes", len(v.nodes), "links", len(v.links))
	return v.nodes, v.links
}

// Start schedules simulation ticks until the layout cools or the tick budget
// is spent.
func (v *View) Start() {
	if v.layout == nil || v.timer.Pending() {
		return
	}
	v.schedule(v.gen)
}

// Stop cancels the pending simulation tick.
func (v *View) Stop() {
	v.timer.Cancel()
	v.timer = nil
	v.gen++
}

// Running reports whether a simulation tick is scheduled.
func (v *View) Running() bool { return v.timer.Pending() }

// Settle runs up to maxTicks simulation steps synchronously and returns how
// many ran.
func (v *View) Settle(maxTicks int) int {
	if v.layout == nil {
		return 0
	}
	ran := 0
	for ran < maxTicks && v.layout.Tick() {
		ran++
	}
	v.ticks += ran
	return ran
}

func (v *View) schedule(gen uint64) {
	v.timer = v.sched.After(v.cfg.SimulationTick, func() { v.step(gen) })
}

func (v *View) step(gen uint64) {
	if gen != v.gen || v.layout == nil {
		return
	}
	v.timer = nil
	more := v.layout.Tick()
	v.ticks++
	if v.observer != nil {
		v.observer.OnSimulationTick(v.layout.Alpha())
	}
	if more && (v.cfg.MaxSimulationTicks <= 0 || v.ticks < v.cfg.MaxSimulationTicks) {
		v.schedule(gen)
		return
	}
	v.logger.Debug("network layout settled", "ticks", v.ticks, "alpha", v.layout.Alpha())
	if v.observer != nil {
		v.observer.OnSettled(v.ticks)
	}
}

// Select highlights the node, its neighbours and incident links. It reports
// false when the account is not in the graph.
func (v *View) Select(id string) bool {
	if v.node(id) == nil {
		return false
	}
	v.selected = id
	for _, n := range v.nodes {
		if n.ID == id || v.IsConnected(n.ID, id) {
			n.Opacity = OpacitySelected
		} else {
			n.Opacity = OpacityUnselected
		}
	}
	for i := range v.links {
		if v.links[i].Touches(id) {
			v.links[i].Opacity = OpacitySelected
		} else {
			v.links[i].Opacity = OpacityUnrelatedLink
		}
	}
	return true
}

// ClearSelection restores default opacities.
func (v *View) ClearSelection() {
	v.selected = ""
	for _, n := range v.nodes {
		n.Opacity = domain.NodeOpacity
	}
	for i := range v.links {
		v.links[i].Opacity = domain.LinkOpacity
	}
}

// Selected returns the selected account, if any.
func (v *View) Selected() (string, bool) {
	return v.selected, v.selected != ""
}

// IsConnected reports whether a and b share at least one link.
func (v *View) IsConnected(a, b string) bool {
	return domain.IsConnected(v.links, a, b)
}

// ConnectedAccounts lists the distinct counterparties of id in link order.
func (v *View) ConnectedAccounts(id string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range v.links {
		var other string
		switch id {
		case l.Source.Key():
			other = l.Target.Key()
		case l.Target.Key():
			other = l.Source.Key()
		default:
			continue
		}
		if _, ok := seen[other]; ok {
			continue
		}
		seen[other] = struct{}{}
		out = append(out, other)
	}
	return out
}

// Teardown cancels the simulation and drops the graph.
func (v *View) Teardown() {
	v.Stop()
	v.nodes = nil
	v.links = nil
	v.layout = nil
	v.selected = ""
	v.ticks = 0
}

func (v *View) node(id string) *domain.AccountNode {
	for _, n := range v.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Nodes returns the live nodes. Callers must not retain them past a rebuild.
func (v *View) Nodes() []*domain.AccountNode { return v.nodes }

// Links returns the live links.
func (v *View) Links() []domain.FlowLink { return v.links }

// Ticks returns how many simulation steps have run since Build.
func (v *View) Ticks() int { return v.ticks }
