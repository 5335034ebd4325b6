package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/vanshika/chronos/internal/config"
	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/generator"
)

type staticEnv bool

func (s staticEnv) IsSynthetic() bool { return bool(s) }

type fetchObservation struct {
	endpoint, outcome string
}

type recorder struct {
	mu  sync.Mutex
	obs []fetchObservation
}

func (r *recorder) ObserveFetch(endpoint, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.obs = append(r.obs, fetchObservation{endpoint, outcome})
}

func newTestClient(t *testing.T, handler http.HandlerFunc, synthetic bool, opts ...Option) (*Client, *recorder) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	rec := &recorder{}
	opts = append([]Option{WithEnvironment(staticEnv(synthetic)), WithRecorder(rec), WithSyntheticSource(NewSyntheticSource(42))}, opts...)
	c := New(config.ClientConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, opts...)
	return c, rec
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestFetch_Success(t *testing.T) {
	var gotQuery string
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		jsonHandler(http.StatusOK, `{"status":"success","data":[{"id":"a"}],"total_transactions":1}`)(w, r)
	}, false)

	resp, err := c.Fetch(context.Background(), "/chronos/timeline", RequestOptions{Query: map[string][]string{"scenario": {"all"}}})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.Status != "success" || resp.Synthetic || resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected response %+v", resp)
	}
	var total int
	if err := resp.Decode("total_transactions", &total); err != nil || total != 1 {
		t.Fatalf("decode total: %v %d", err, total)
	}
	if gotQuery != "scenario=all" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if len(rec.obs) != 1 || rec.obs[0].outcome != OutcomeSuccess {
		t.Fatalf("unexpected observations %+v", rec.obs)
	}
}

func TestFetch_SyntheticSubstitutesServerError(t *testing.T) {
	c, rec := newTestClient(t, jsonHandler(http.StatusInternalServerError, `{"status":"error","message":"db down"}`), true)

	resp, err := c.Fetch(context.Background(), "/chronos/timeline?scenario=all", RequestOptions{})
	if err != nil {
		t.Fatalf("synthetic environment must not surface errors: %v", err)
	}
	if !resp.Synthetic || resp.Status != "success" {
		t.Fatalf("expected synthetic success, got %+v", resp)
	}
	var records []map[string]any
	if err := resp.Decode("data", &records); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(records) != SyntheticTimelineSize {
		t.Fatalf("expected %d synthetic records, got %d", SyntheticTimelineSize, len(records))
	}
	if rec.obs[0].outcome != OutcomeSynthetic || rec.obs[0].endpoint != "/chronos/timeline" {
		t.Fatalf("unexpected observation %+v", rec.obs[0])
	}
}

func TestFetch_LiveServerErrorCarriesStatus(t *testing.T) {
	c, rec := newTestClient(t, jsonHandler(http.StatusInternalServerError, `{"status":"error"}`), false)

	_, err := c.Fetch(context.Background(), "/chronos/timeline", RequestOptions{})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if fe.StatusCode != 500 || !strings.Contains(err.Error(), "500") {
		t.Fatalf("error should carry the status: %v", err)
	}
	if !strings.Contains(fe.Message, "HTTP error! status: 500") {
		t.Fatalf("unexpected message %q", fe.Message)
	}
	if !IsProtocol(err) || IsTransport(err) {
		t.Fatal("status failures are protocol errors")
	}
	if !fe.Retryable() {
		t.Fatal("5xx should be retryable")
	}
	if rec.obs[0].outcome != OutcomeError {
		t.Fatalf("unexpected outcome %q", rec.obs[0].outcome)
	}
}

func TestFetch_LiveServerMessagePreferred(t *testing.T) {
	c, _ := newTestClient(t, jsonHandler(http.StatusBadRequest, `{"status":"error","message":"unknown scenario"}`), false)

	_, err := c.Fetch(context.Background(), "/chronos/timeline", RequestOptions{})
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Message != "unknown scenario" {
		t.Fatalf("expected server message, got %v", err)
	}
	if !strings.Contains(err.Error(), "400") || fe.Retryable() {
		t.Fatalf("unexpected error detail %v", err)
	}
}

func TestFetch_NonJSONCheckedBeforeStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}, false)

	_, err := c.Fetch(context.Background(), "/chronos/patterns", RequestOptions{})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !strings.Contains(fe.Message, "non-JSON") || fe.StatusCode != 502 {
		t.Fatalf("expected non-JSON failure, got %v", err)
	}
}

func TestFetch_SyntheticSubstitutesNonJSON(t *testing.T) {
	c, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}, true)

	resp, err := c.Fetch(context.Background(), "/chronos/patterns", RequestOptions{})
	if err != nil {
		t.Fatalf("synthetic environment must not surface errors: %v", err)
	}
	if !resp.Synthetic || resp.Status != "success" {
		t.Fatalf("expected synthetic success, got %+v", resp)
	}
	if _, ok := resp.Body["patterns"]; !ok {
		t.Fatalf("expected synthetic patterns payload, got %v", resp.Body)
	}
	if rec.obs[0].outcome != OutcomeSynthetic {
		t.Fatalf("unexpected outcome %q", rec.obs[0].outcome)
	}
}

func TestFetch_ErrorEnvelopeOnSuccessStatus(t *testing.T) {
	c, _ := newTestClient(t, jsonHandler(http.StatusOK, `{"status":"error","message":"graph unavailable"}`), false)

	_, err := c.Fetch(context.Background(), "/chronos/timeline", RequestOptions{})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
	if !IsProtocol(err) || fe.Message != "graph unavailable" || fe.StatusCode != http.StatusOK {
		t.Fatalf("unexpected error detail %+v", fe)
	}
}

func TestFetch_MistypedEnvelopeIsProtocolError(t *testing.T) {
	c, _ := newTestClient(t, jsonHandler(http.StatusOK, `{"status":42,"data":[]}`), false)

	_, err := c.Fetch(context.Background(), "/chronos/timeline", RequestOptions{})
	var fe *FetchError
	if !errors.As(err, &fe) || !IsProtocol(err) || fe.Message != "invalid JSON body" {
		t.Fatalf("expected invalid body failure, got %v", err)
	}
}

func TestFetch_RecordsSpans(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ok, _ := newTestClient(t, jsonHandler(http.StatusOK, `{"status":"success","data":[]}`), false, WithTracerProvider(tp))
	if _, err := ok.Fetch(context.Background(), "/chronos/timeline", RequestOptions{}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	failing, _ := newTestClient(t, jsonHandler(http.StatusBadRequest, `{"status":"error","message":"bad"}`), false, WithTracerProvider(tp))
	if _, err := failing.Fetch(context.Background(), "/chronos/search", RequestOptions{}); err == nil {
		t.Fatal("expected failure")
	}

	var fetches []sdktrace.ReadOnlySpan
	for _, s := range spans.Ended() {
		if s.Name() == "chronos.fetch" {
			fetches = append(fetches, s)
		}
	}
	if len(fetches) != 2 {
		t.Fatalf("fetch spans = %d, want 2", len(fetches))
	}
	if fetches[0].Status().Code == codes.Error {
		t.Fatal("successful fetch should not be marked as an error")
	}
	if fetches[1].Status().Code != codes.Error || len(fetches[1].Events()) == 0 {
		t.Fatalf("failed fetch should record the error, got %+v", fetches[1].Status())
	}
	var endpoint string
	for _, kv := range fetches[1].Attributes() {
		if kv.Key == "chronos.endpoint" {
			endpoint = kv.Value.AsString()
		}
	}
	if endpoint != "/chronos/search" {
		t.Fatalf("endpoint attribute = %q", endpoint)
	}
}

func TestFetch_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(config.ClientConfig{BaseURL: url, Timeout: time.Second}, WithEnvironment(staticEnv(false)))
	_, err := c.Fetch(context.Background(), "/health", RequestOptions{})
	if !IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}

	c = New(config.ClientConfig{BaseURL: url, Timeout: time.Second}, WithEnvironment(staticEnv(true)))
	resp, err := c.Fetch(context.Background(), "/health", RequestOptions{})
	if err != nil || !resp.Synthetic {
		t.Fatalf("expected synthetic health, got %+v %v", resp, err)
	}
}

func TestFetch_PostsJSONBody(t *testing.T) {
	var method, contentType string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		contentType = r.Header.Get("Content-Type")
		jsonHandler(http.StatusOK, `{"status":"success","data":{"pattern_id":"P"}}`)(w, r)
	}, false)

	resp, err := c.Fetch(context.Background(), "/hydra/generate", RequestOptions{Method: http.MethodPost, Body: map[string]string{"kind": "layering"}})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if method != http.MethodPost || contentType != "application/json" {
		t.Fatalf("unexpected request %s %s", method, contentType)
	}
	if string(resp.Data) != `{"pattern_id":"P"}` {
		t.Fatalf("unexpected data %s", resp.Data)
	}
}

func TestSyntheticPayloads(t *testing.T) {
	src := NewSyntheticSource(9)

	gen := src.Payload("/hydra/generate")
	pattern, ok := gen["data"].(domain.Pattern)
	if !ok {
		t.Fatalf("expected pattern payload, got %T", gen["data"])
	}
	if len(pattern.Steps) != SyntheticPatternSteps || !strings.HasPrefix(pattern.ID, "PATTERN_") {
		t.Fatalf("unexpected pattern %+v", pattern)
	}

	patterns := src.Payload("/chronos/patterns")
	if summaries, ok := patterns["patterns"].([]domain.PatternSummary); !ok || len(summaries) != len(generator.Scenarios()) {
		t.Fatalf("unexpected patterns payload %+v", patterns["patterns"])
	}

	search := src.Payload("/chronos/search?q=txn_001")
	if hits, ok := search["data"].([]generator.Record); !ok || len(hits) != 1 {
		t.Fatalf("expected one search hit, got %+v", search["data"])
	}

	if unknown := src.Payload("/nothing"); unknown["status"] != "mock" {
		t.Fatalf("unknown endpoints should be mocked, got %+v", unknown)
	}
}

func TestHostDetector(t *testing.T) {
	cases := []struct {
		mode SyntheticMode
		url  string
		want bool
	}{
		{SyntheticAuto, "http://localhost:5000/api", false},
		{SyntheticAuto, "http://127.0.0.1:8080/api", false},
		{SyntheticAuto, "http://[::1]:8080/api", false},
		{SyntheticAuto, "https://chronos-demo.vercel.app/api", true},
		{SyntheticAuto, "https://api.example.com", true},
		{SyntheticNever, "https://chronos.netlify.app", false},
		{SyntheticAlways, "http://localhost", true},
	}
	for _, tc := range cases {
		if got := NewHostDetector(tc.mode, tc.url).IsSynthetic(); got != tc.want {
			t.Errorf("%s %s: got %v want %v", tc.mode, tc.url, got, tc.want)
		}
	}
}

func TestFetchErrorFormatting(t *testing.T) {
	err := &FetchError{Kind: domain.ErrProtocol, Endpoint: "/x", StatusCode: 503, Message: "maintenance"}
	if err.Error() != "fetch /x: maintenance (status 503)" {
		t.Fatalf("unexpected format %q", err.Error())
	}
	cause := errors.New("dial refused")
	terr := transportError("/x", cause)
	if !errors.Is(terr, cause) || !errors.Is(terr, domain.ErrTransport) || !terr.Retryable() {
		t.Fatal("transport errors should unwrap to cause and kind")
	}
}
