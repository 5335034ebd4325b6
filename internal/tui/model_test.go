package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanshika/chronos/internal/client"
	"github.com/vanshika/chronos/internal/config"
	"github.com/vanshika/chronos/internal/controller"
	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/scheduler"
)

type stubFetcher struct {
	err       error
	synthetic bool
}

func (s stubFetcher) Fetch(_ context.Context, endpoint string, _ client.RequestOptions) (client.Response, error) {
	if s.err != nil {
		return client.Response{}, s.err
	}
	rows := make([]map[string]any, 6)
	for i := range rows {
		rows[i] = map[string]any{
			"id":               fmt.Sprintf("TXN_%03d", i+1),
			"timestamp":        time.Date(2024, 1, 1, i, 0, 0, 0, time.UTC).Format(time.RFC3339),
			"from_account":     fmt.Sprintf("ACC_%d", i%3),
			"to_account":       fmt.Sprintf("ACC_%d", (i+1)%3),
			"amount":           1000 + i*250,
			"suspicious_score": float64(i) / 6,
		}
	}
	raw, _ := json.Marshal(rows)
	return client.Response{Status: "success", Data: raw, StatusCode: http.StatusOK, Synthetic: s.synthetic}, nil
}

func newModel(t *testing.T, f stubFetcher, opts ...Option) Model {
	t.Helper()
	queue := scheduler.NewQueue(64)
	t.Cleanup(queue.Close)
	cfg := config.Config{
		Client:   config.ClientConfig{Scenario: "all", TimeRange: "30d"},
		Playback: config.PlaybackConfig{Speed: 10, BaseTickDelay: time.Second, MinTickDelay: time.Second},
		Layout:   config.LayoutConfig{Width: 800, Height: 500, SimulationTick: time.Second, MaxSimulationTicks: 10},
	}
	ctrl := controller.New(f, queue, cfg)
	m := New(context.Background(), ctrl, queue, opts...)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model)
}

func loaded(t *testing.T, m Model) Model {
	t.Helper()
	res := m.ctrl.Request("all")(context.Background())
	next, _ := m.Update(loadedMsg{res: res})
	return next.(Model)
}

func press(m Model, key string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch key {
	case "space":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEscape}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestView_ShowsLoadedTimeline(t *testing.T) {
	m := loaded(t, newModel(t, stubFetcher{synthetic: true}))

	view := m.View()
	for _, want := range []string{"CHRONOS", "TIMELINE", "DEMO DATA", "6 txns", "speed 10x"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestView_ErrorOffersRetry(t *testing.T) {
	err := &client.FetchError{Kind: domain.ErrTransport, Endpoint: controller.EndpointTimeline, Err: fmt.Errorf("connection refused")}
	m := loaded(t, newModel(t, stubFetcher{err: err}))

	view := m.View()
	if !strings.Contains(view, "transport error") || !strings.Contains(view, "press R to retry") {
		t.Fatalf("unexpected view:\n%s", view)
	}
	if _, cmd := press(m, "R"); cmd == nil {
		t.Fatal("retry key produced no load command")
	}
}

func TestKeys_DriveController(t *testing.T) {
	m := loaded(t, newModel(t, stubFetcher{}))

	m, _ = press(m, "space")
	if !m.ctrl.Playing() {
		t.Fatal("space did not start playback")
	}
	m, _ = press(m, "n")
	if m.ctrl.Mode() != controller.ModeNetwork || !strings.Contains(m.View(), "ticks") {
		t.Fatal("n did not switch to the network view")
	}
	m, _ = press(m, "tab")
	if _, ok := m.ctrl.Network().Selected(); !ok {
		t.Fatal("tab did not select an account")
	}
	m, _ = press(m, "esc")
	if _, ok := m.ctrl.Network().Selected(); ok {
		t.Fatal("esc did not clear the selection")
	}
	if _, cmd := press(m, "q"); cmd == nil {
		t.Fatal("q did not quit")
	}
}

func TestSearch_LocalSelectsFirstMatch(t *testing.T) {
	m := loaded(t, newModel(t, stubFetcher{}))

	m, _ = press(m, "/")
	if !m.ctrl.SearchFocused() {
		t.Fatal("slash did not focus search")
	}
	for _, r := range "TXN_004" {
		m, _ = press(m, string(r))
	}
	m, cmd := press(m, "enter")
	if cmd == nil {
		t.Fatal("enter produced no search command")
	}
	next, _ := m.Update(cmd())
	m = next.(Model)

	if id, ok := m.ctrl.Timeline().Selected(); !ok || id != "TXN_004" {
		t.Fatalf("selected %q, %v", id, ok)
	}
	if !strings.Contains(m.View(), "1 match(es)") {
		t.Fatalf("view missing match notice:\n%s", m.View())
	}
}

func TestExport_WritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	m := loaded(t, newModel(t, stubFetcher{}, WithExportDir(dir)))

	_, cmd := press(m, "x")
	msg, ok := cmd().(exportedMsg)
	if !ok || msg.err != nil {
		t.Fatalf("export msg = %+v", msg)
	}
	if filepath.Dir(msg.path) != dir {
		t.Fatalf("written to %s", msg.path)
	}
	raw, err := os.ReadFile(msg.path)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil || len(snap.Transactions) != 6 {
		t.Fatalf("snapshot = %+v, %v", snap, err)
	}
}
