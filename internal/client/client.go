// Package client talks to the CHRONOS data service and falls back to
// synthetic payloads when running as a demo deployment.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vanshika/chronos/internal/config"
	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/logging"
)

const tracerName = "chronos/client"

// Fetch outcomes reported to logs and metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeSynthetic = "synthetic"
	OutcomeError     = "error"
)

const statusError = "error"

// Recorder receives one observation per Fetch.
type Recorder interface {
	ObserveFetch(endpoint, outcome string, elapsed time.Duration)
}

// RequestOptions shape a single request.
type RequestOptions struct {
	Method string
	Query  url.Values
	Body   any
}

// Response is the decoded JSON envelope of a successful or synthetic reply.
type Response struct {
	Status     string
	Message    string
	Data       json.RawMessage
	Body       map[string]json.RawMessage
	StatusCode int
	Synthetic  bool
}

// Decode unmarshals the top-level field key into v.
func (r Response) Decode(key string, v any) error {
	raw, ok := r.Body[key]
	if !ok {
		return fmt.Errorf("%w: response has no %q field", domain.ErrValidation, key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decode %q: %v", domain.ErrValidation, key, err)
	}
	return nil
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for outcome records.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logging.Component(logger, "client") }
}

// WithRecorder registers a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithEnvironment overrides the host-based environment detector.
func WithEnvironment(env EnvironmentDetector) Option {
	return func(c *Client) { c.env = env }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// WithSyntheticSource overrides the synthetic payload source.
func WithSyntheticSource(src *SyntheticSource) Option {
	return func(c *Client) { c.synthetic = src }
}

// Client issues requests to the data service. It is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	env       EnvironmentDetector
	synthetic *SyntheticSource
	logger    *slog.Logger
	recorder  Recorder
	tracer    trace.Tracer
}

// New creates a Client for cfg.BaseURL.
func New(cfg config.ClientConfig, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		env:       NewHostDetector(SyntheticMode(cfg.SyntheticMode), cfg.BaseURL),
		synthetic: NewSyntheticSource(0),
		logger:    logging.Discard(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Synthetic reports whether failures are replaced with demo payloads.
func (c *Client) Synthetic() bool {
	return c.env.IsSynthetic()
}

// Fetch performs the request. In a synthetic environment every failure is
// replaced with a demo payload; otherwise it is returned as a *FetchError.
func (c *Client) Fetch(ctx context.Context, endpoint string, opts RequestOptions) (Response, error) {
	started := time.Now()
	ctx, span := c.tracer.Start(ctx, "chronos.fetch", trace.WithAttributes(
		attribute.String("chronos.endpoint", endpoint),
	))
	defer span.End()

	resp, err := c.do(ctx, endpoint, opts)
	if err == nil {
		c.observe(endpoint, OutcomeSuccess, started)
		c.logger.Debug("api request succeeded", "endpoint", endpoint, "outcome", OutcomeSuccess, "status_code", resp.StatusCode)
		return resp, nil
	}

	if c.env.IsSynthetic() {
		span.SetAttributes(attribute.Bool("chronos.synthetic", true))
		c.observe(endpoint, OutcomeSynthetic, started)
		c.logger.Warn("api request failed, using synthetic payload", "endpoint", endpoint, "outcome", OutcomeSynthetic, "cause", err.Error())
		return c.syntheticResponse(withQuery(endpoint, opts.Query))
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.observe(endpoint, OutcomeError, started)
	c.logger.Error("api request failed", "endpoint", endpoint, "outcome", OutcomeError, "cause", err.Error())
	return Response{}, err
}

func (c *Client) do(ctx context.Context, endpoint string, opts RequestOptions) (Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != nil {
		raw, err := json.Marshal(opts.Body)
		if err != nil {
			return Response{}, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+withQuery(endpoint, opts.Query), body)
	if err != nil {
		return Response{}, transportError(endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return Response{}, transportError(endpoint, err)
	}
	defer res.Body.Close()

	if ct := res.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		return Response{}, &FetchError{
			Kind:       domain.ErrProtocol,
			Endpoint:   endpoint,
			StatusCode: res.StatusCode,
			Message:    fmt.Sprintf("returned non-JSON response (%d)", res.StatusCode),
		}
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return Response{}, transportError(endpoint, err)
	}

	envelope, decodeErr := decodeEnvelope(raw)
	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := envelope.Message
		if msg == "" {
			msg = fmt.Sprintf("HTTP error! status: %d", res.StatusCode)
		}
		return Response{}, &FetchError{Kind: domain.ErrProtocol, Endpoint: endpoint, StatusCode: res.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return Response{}, &FetchError{Kind: domain.ErrProtocol, Endpoint: endpoint, StatusCode: res.StatusCode, Message: "invalid JSON body", Err: decodeErr}
	}
	if envelope.Status == statusError {
		msg := envelope.Message
		if msg == "" {
			msg = "service reported an error"
		}
		return Response{}, &FetchError{Kind: domain.ErrProtocol, Endpoint: endpoint, StatusCode: res.StatusCode, Message: msg}
	}
	envelope.StatusCode = res.StatusCode
	return envelope, nil
}

func (c *Client) syntheticResponse(endpoint string) (Response, error) {
	raw, err := json.Marshal(c.synthetic.Payload(endpoint))
	if err != nil {
		return Response{}, fmt.Errorf("encode synthetic payload: %w", err)
	}
	resp, err := decodeEnvelope(raw)
	if err != nil {
		return Response{}, fmt.Errorf("decode synthetic payload: %w", err)
	}
	resp.StatusCode = http.StatusOK
	resp.Synthetic = true
	return resp, nil
}

func (c *Client) observe(endpoint, outcome string, started time.Time) {
	if c.recorder != nil {
		c.recorder.ObserveFetch(endpointLabel(endpoint), outcome, time.Since(started))
	}
}

func decodeEnvelope(raw []byte) (Response, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return Response{}, err
	}
	resp := Response{Body: body, Data: body["data"]}
	if s, ok := body["status"]; ok {
		if err := json.Unmarshal(s, &resp.Status); err != nil {
			return Response{}, fmt.Errorf("envelope status: %w", err)
		}
	}
	if m, ok := body["message"]; ok {
		if err := json.Unmarshal(m, &resp.Message); err != nil {
			return Response{}, fmt.Errorf("envelope message: %w", err)
		}
	}
	return resp, nil
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + q.Encode()
}

// endpointLabel strips the query so metric label cardinality stays bounded.
func endpointLabel(endpoint string) string {
	path, _ := splitEndpoint(endpoint)
	return path
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool { return errors.Is(err, domain.ErrTransport) }

// IsProtocol reports whether err is a protocol failure.
func IsProtocol(err error) bool { return errors.Is(err, domain.ErrProtocol) }
