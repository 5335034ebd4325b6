package graph

import (
	"context"
	"sync"
)

// Statement is a cypher query and its parameters as seen by MemoryClient.
type Statement struct {
	Query  string
	Params map[string]any
	Write  bool
}

// Responder computes the result for a statement. Returning ok=false with a
// nil error falls through to the queued results.
type Responder func(Statement) (Result, bool, error)

// MemoryClient implements Client without a database. Results are served
// from a responder when one is set, otherwise from per-mode queues.
type MemoryClient struct {
	mu           sync.Mutex
	statements   []Statement
	readResults  []Result
	writeResults []Result
	responder    Responder
	err          error
	connectivity error
	closed       bool
}

// NewMemoryClient returns an empty client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithError makes every subsequent statement fail with err.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError forces VerifyConnectivity to return err.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// WithResponder installs fn ahead of the result queues.
func (m *MemoryClient) WithResponder(fn Responder) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
	return m
}

// PushReadResult queues a result for the next ExecuteRead.
func (m *MemoryClient) PushReadResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readResults = append(m.readResults, res)
}

// PushWriteResult queues a result for the next ExecuteWrite.
func (m *MemoryClient) PushWriteResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeResults = append(m.writeResults, res)
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(Statement{Query: cypher, Params: cloneMap(params), Write: true})
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(Statement{Query: cypher, Params: cloneMap(params)})
}

func (m *MemoryClient) execute(st Statement) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return Result{}, m.err
	}
	m.statements = append(m.statements, st)

	if m.responder != nil {
		res, ok, err := m.responder(st)
		if err != nil || ok {
			return res, err
		}
	}

	queue := &m.readResults
	if st.Write {
		queue = &m.writeResults
	}
	if len(*queue) == 0 {
		return Result{}, nil
	}
	res := (*queue)[0]
	*queue = (*queue)[1:]
	return res, nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MemoryClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// WriteCalls returns the write statements executed so far.
func (m *MemoryClient) WriteCalls() []Statement {
	return m.filter(true)
}

// ReadCalls returns the read statements executed so far.
func (m *MemoryClient) ReadCalls() []Statement {
	return m.filter(false)
}

func (m *MemoryClient) filter(write bool) []Statement {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Statement
	for _, st := range m.statements {
		if st.Write == write {
			out = append(out, st)
		}
	}
	return out
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
