// Package controller coordinates data loading and the two visualization views.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/vanshika/chronos/internal/client"
	"github.com/vanshika/chronos/internal/config"
	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/events"
	"github.com/vanshika/chronos/internal/logging"
	"github.com/vanshika/chronos/internal/network"
	"github.com/vanshika/chronos/internal/scheduler"
	"github.com/vanshika/chronos/internal/service"
	"github.com/vanshika/chronos/internal/timeline"
)

// Data service endpoints.
const (
	EndpointTimeline = "/chronos/timeline"
	EndpointSearch   = "/chronos/search"
	EndpointGenerate = "/hydra/generate"
)

// Mode names a view.
type Mode string

const (
	ModeTimeline Mode = "timeline"
	ModeNetwork  Mode = "network"
)

// Status is the data state shown by the host.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusEmpty
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusEmpty:
		return "empty"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// Error kinds reported in ErrorState.
const (
	KindTransport  = "transport"
	KindProtocol   = "protocol"
	KindValidation = "validation"
	KindUnknown    = "unknown"
)

// ErrorState describes a failed load.
type ErrorState struct {
	Kind      string
	Message   string
	Retryable bool
	Err       error
}

// Fetcher is the part of client.Client the controller needs.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, opts client.RequestOptions) (client.Response, error)
}

// Recorder receives view metrics.
type Recorder interface {
	ViewSwitched(view string)
	PlaybackEvent(event string)
}

// LoadResult is the outcome of a timeline fetch, produced off the loop and
// applied on it.
type LoadResult struct {
	Scenario     string
	Transactions []domain.Transaction
	Synthetic    bool
	Err          error

	seq uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger. The views derive theirs from it.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithPublisher sets the event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithClock overrides the snapshot clock.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithForces overrides the network simulation forces.
func WithForces(f network.Forces) Option {
	return func(c *Controller) { c.forces = &f }
}

// Controller owns exactly one active view at a time. Apart from Request's
// returned fetch and the remote paths of Search and GeneratePattern, every
// method must run on the scheduler's loop.
type Controller struct {
	fetcher   Fetcher
	sched     scheduler.Scheduler
	logger    *slog.Logger
	publisher events.Publisher
	recorder  Recorder
	now       func() time.Time
	forces    *network.Forces

	timeline *timeline.View
	network  *network.View

	mode        Mode
	status      Status
	errState    *ErrorState
	scenario    string
	timeRange   string
	synthetic   bool
	txs         []domain.Transaction
	loadSeq     uint64
	progress    timeline.Progress
	searchFocus bool
}

// New builds a controller in timeline mode with no data.
func New(fetcher Fetcher, sched scheduler.Scheduler, cfg config.Config, opts ...Option) *Controller {
	c := &Controller{
		fetcher:   fetcher,
		sched:     sched,
		logger:    logging.Discard(),
		publisher: events.Nop{},
		now:       time.Now,
		mode:      ModeTimeline,
		scenario:  cfg.Client.Scenario,
		timeRange: cfg.Client.TimeRange,
	}
	for _, opt := range opts {
		opt(c)
	}
	base := c.logger
	c.logger = logging.Component(base, "controller")

	c.timeline = timeline.New(sched, cfg.Playback, cfg.Layout,
		timeline.WithLogger(base),
		timeline.WithObserver(timelineHooks{c}),
	)
	netOpts := []network.Option{network.WithLogger(base), network.WithObserver(networkHooks{c})}
	if c.forces != nil {
		netOpts = append(netOpts, network.WithForces(*c.forces))
	}
	c.network = network.New(sched, cfg.Layout, netOpts...)
	return c
}

// Request marks a load of scenario as in flight and returns the fetch to run.
// The fetch touches no controller state and may run on any goroutine; its
// result must be handed to Apply on the loop. Results of superseded requests
// are dropped.
func (c *Controller) Request(scenario string) func(context.Context) LoadResult {
	if scenario == "" {
		scenario = c.scenario
	}
	c.loadSeq++
	seq := c.loadSeq
	c.scenario = scenario
	c.status = StatusLoading
	c.errState = nil

	fetcher, timeRange := c.fetcher, c.timeRange
	return func(ctx context.Context) LoadResult {
		res := fetchTimeline(ctx, fetcher, scenario, timeRange)
		res.seq = seq
		return res
	}
}

// Load fetches and applies scenario synchronously.
func (c *Controller) Load(ctx context.Context, scenario string) Status {
	c.Apply(c.Request(scenario)(ctx))
	return c.status
}

// Retry reloads the current scenario.
func (c *Controller) Retry(ctx context.Context) Status {
	return c.Load(ctx, c.scenario)
}

// SetTimeRange changes the window used by subsequent loads.
func (c *Controller) SetTimeRange(r string) error {
	if _, err := service.ParseTimeRange(r); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	c.timeRange = r
	return nil
}

// Apply installs a load result. It reports false for stale results.
func (c *Controller) Apply(res LoadResult) bool {
	if res.seq != c.loadSeq {
		c.logger.Debug("dropping stale load result", "scenario", res.Scenario)
		return false
	}
	c.synthetic = res.Synthetic

	switch {
	case res.Err != nil && errors.Is(res.Err, domain.ErrEmptyResult):
		c.teardownViews()
		c.txs = nil
		c.status = StatusEmpty
		c.logger.Info("no data for filter", "scenario", res.Scenario)
		c.publish(events.TypeDataEmpty, func(ev *events.Event) { ev.Scenario = res.Scenario })
	case res.Err != nil:
		c.teardownViews()
		c.txs = nil
		c.status = StatusError
		c.errState = classify(res.Err)
		c.logger.Error("timeline load failed", "scenario", res.Scenario, "kind", c.errState.Kind, "error", res.Err)
		c.publish(events.TypeDataFailed, func(ev *events.Event) {
			ev.Scenario = res.Scenario
			ev.Message = res.Err.Error()
		})
	default:
		c.txs = res.Transactions
		c.status = StatusReady
		c.activate()
		c.logger.Info("timeline loaded", "scenario", res.Scenario, "transactions", len(c.txs), "synthetic", res.Synthetic)
		c.publish(events.TypeDataLoaded, func(ev *events.Event) {
			ev.Scenario = res.Scenario
			ev.Count = len(res.Transactions)
			ev.Synthetic = res.Synthetic
		})
	}
	return true
}

// SwitchView activates mode against the loaded collection. Switching to the
// active mode is a no-op and reports false.
func (c *Controller) SwitchView(mode Mode) bool {
	if mode == c.mode || (mode != ModeTimeline && mode != ModeNetwork) {
		return false
	}
	c.teardownViews()
	c.mode = mode
	if c.status == StatusReady {
		c.activate()
	}
	if c.recorder != nil {
		c.recorder.ViewSwitched(string(mode))
	}
	c.publish(events.TypeViewSwitched, func(ev *events.Event) { ev.View = string(mode) })
	return true
}

// Play starts timeline playback or resumes the network simulation.
func (c *Controller) Play() bool {
	if c.status != StatusReady {
		return false
	}
	if c.mode == ModeNetwork {
		if c.network.Running() {
			return false
		}
		c.network.Start()
		return c.network.Running()
	}
	return c.timeline.Play()
}

// Pause halts the active view's scheduled work.
func (c *Controller) Pause() {
	if c.mode == ModeNetwork {
		c.network.Stop()
		return
	}
	c.timeline.Pause()
}

// TogglePlay flips between playing and paused.
func (c *Controller) TogglePlay() bool {
	if c.Playing() {
		c.Pause()
		return false
	}
	return c.Play()
}

// Playing reports whether the active view has scheduled work.
func (c *Controller) Playing() bool {
	if c.mode == ModeNetwork {
		return c.network.Running()
	}
	return c.timeline.State() == timeline.StatePlaying
}

// Reset rewinds the timeline, or rebuilds and restarts the network layout.
func (c *Controller) Reset() {
	if c.status != StatusReady {
		return
	}
	if c.mode == ModeNetwork {
		c.network.Build(c.txs)
		c.network.Start()
		return
	}
	c.timeline.Reset()
	c.progress = timeline.Progress{Total: c.timeline.Total()}
}

// SetSpeed applies a clamped timeline speed.
func (c *Controller) SetSpeed(n int) int {
	return c.timeline.SetSpeed(n)
}

// Select highlights a transaction in timeline mode or an account in network mode.
func (c *Controller) Select(id string) bool {
	if c.mode == ModeNetwork {
		return c.network.Select(id)
	}
	return c.timeline.SelectPoint(id)
}

// ClearSelection clears the active view's selection.
func (c *Controller) ClearSelection() {
	if c.mode == ModeNetwork {
		c.network.ClearSelection()
		return
	}
	c.timeline.ClearSelection()
}

// Teardown cancels all scheduled work and drops the collection.
func (c *Controller) Teardown() {
	c.loadSeq++
	c.teardownViews()
	c.txs = nil
	c.status = StatusIdle
	c.errState = nil
}

// Snapshot copies the current visualization state for exporters.
func (c *Controller) Snapshot() domain.Snapshot {
	nodes, links := c.network.Nodes(), c.network.Links()
	if c.mode != ModeNetwork || nodes == nil {
		nodes, links = domain.BuildNetwork(c.txs)
	}
	return domain.NewSnapshot(c.scenario, c.now().UTC(), c.txs, nodes, links)
}

func (c *Controller) activate() {
	if c.mode == ModeNetwork {
		c.network.Build(c.txs)
		c.network.Start()
		return
	}
	c.timeline.Load(c.txs)
	c.progress = timeline.Progress{Total: len(c.txs)}
}

func (c *Controller) teardownViews() {
	c.timeline.Teardown()
	c.network.Teardown()
	c.progress = timeline.Progress{}
}

func (c *Controller) publish(eventType string, fill func(*events.Event)) {
	ev := events.New(eventType)
	ev.View = string(c.mode)
	if fill != nil {
		fill(&ev)
	}
	if err := c.publisher.Publish(context.Background(), ev); err != nil {
		c.logger.Warn("event publish failed", "type", eventType, "error", err)
	}
}

func fetchTimeline(ctx context.Context, fetcher Fetcher, scenario, timeRange string) LoadResult {
	res := LoadResult{Scenario: scenario}
	query := url.Values{}
	query.Set("scenario", scenario)
	if timeRange != "" {
		query.Set("time_range", timeRange)
	}

	resp, err := fetcher.Fetch(ctx, EndpointTimeline, client.RequestOptions{Query: query})
	if err != nil {
		res.Err = err
		return res
	}
	res.Synthetic = resp.Synthetic

	txs, err := normalizeData(resp)
	if err != nil {
		res.Err = err
		return res
	}
	if len(txs) == 0 {
		res.Err = fmt.Errorf("scenario %q: %w", scenario, domain.ErrEmptyResult)
		return res
	}
	res.Transactions = txs
	return res
}

func normalizeData(resp client.Response) ([]domain.Transaction, error) {
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: response has no data field", domain.ErrValidation)
	}
	records, err := service.DecodeRecords(resp.Data)
	if err != nil {
		return nil, err
	}
	return service.Normalize(records)
}

func classify(err error) *ErrorState {
	st := &ErrorState{Message: err.Error(), Err: err}
	switch {
	case errors.Is(err, domain.ErrValidation):
		st.Kind = KindValidation
	case errors.Is(err, domain.ErrTransport):
		st.Kind, st.Retryable = KindTransport, true
	case errors.Is(err, domain.ErrProtocol):
		st.Kind = KindProtocol
		var fe *client.FetchError
		st.Retryable = !errors.As(err, &fe) || fe.Retryable()
	default:
		st.Kind, st.Retryable = KindUnknown, true
	}
	return st
}

// Mode returns the active view.
func (c *Controller) Mode() Mode { return c.mode }

// Status returns the data state.
func (c *Controller) Status() Status { return c.status }

// Error returns the failure of the last load, if any.
func (c *Controller) Error() *ErrorState { return c.errState }

// Scenario returns the scenario of the last request.
func (c *Controller) Scenario() string { return c.scenario }

// TimeRange returns the configured load window.
func (c *Controller) TimeRange() string { return c.timeRange }

// Synthetic reports whether the loaded data was substituted.
func (c *Controller) Synthetic() bool { return c.synthetic }

// Transactions returns the loaded collection.
func (c *Controller) Transactions() []domain.Transaction { return c.txs }

// Stats summarises the loaded collection.
func (c *Controller) Stats() domain.Stats { return domain.ComputeStats(c.txs) }

// Progress returns the last timeline progress report.
func (c *Controller) Progress() timeline.Progress { return c.progress }

// Timeline exposes the timeline view for rendering.
func (c *Controller) Timeline() *timeline.View { return c.timeline }

// Network exposes the network view for rendering.
func (c *Controller) Network() *network.View { return c.network }

// SearchFocused reports whether keyboard input goes to the search box.
func (c *Controller) SearchFocused() bool { return c.searchFocus }

// SetSearchFocus moves keyboard focus to or from the search box.
func (c *Controller) SetSearchFocus(on bool) { c.searchFocus = on }

type timelineHooks struct{ c *Controller }

func (h timelineHooks) OnProgress(p timeline.Progress) { h.c.progress = p }

func (h timelineHooks) OnStateChange(_, to timeline.State) {
	if to == timeline.StatePlaying && h.c.recorder != nil {
		h.c.recorder.PlaybackEvent("started")
	}
}

func (h timelineHooks) OnCompleted(total int) {
	if h.c.recorder != nil {
		h.c.recorder.PlaybackEvent("completed")
	}
	h.c.publish(events.TypePlaybackCompleted, func(ev *events.Event) {
		ev.Scenario = h.c.scenario
		ev.Count = total
	})
}

type networkHooks struct{ c *Controller }

func (networkHooks) OnSimulationTick(float64) {}

func (h networkHooks) OnSettled(ticks int) {
	h.c.logger.Debug("network settled", "ticks", ticks)
}
