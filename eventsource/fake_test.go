package eventsource

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/livequery/encoder"
	"github.com/kbukum/livequery/httpclient"
	"github.com/kbukum/livequery/logger"
	"github.com/kbukum/livequery/operation"
	"github.com/kbukum/livequery/resilience"
)

// countingBody records how often the connection was closed.
type countingBody struct {
	r      io.Reader
	closes atomic.Int32
}

func (b *countingBody) Read(p []byte) (int, error) { return b.r.Read(p) }

func (b *countingBody) Close() error {
	b.closes.Add(1)
	if pr, ok := b.r.(*io.PipeReader); ok {
		return pr.Close()
	}
	return nil
}

// step is one scripted connection attempt.
type step struct {
	body        io.Reader
	status      int
	contentType string
	err         error
}

func stream(s string) step { return step{body: strings.NewReader(s)} }

type fakeConnector struct {
	mu       sync.Mutex
	steps    []step
	lastIDs  []string
	bodies   []*countingBody
	fallback error
}

func (f *fakeConnector) Connect(_ context.Context, _ *encoder.Request, lastEventID string) (*httpclient.StreamResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastIDs = append(f.lastIDs, lastEventID)
	if len(f.steps) == 0 {
		if f.fallback != nil {
			return nil, f.fallback
		}
		return nil, httpclient.NewConnectionError(errors.New("connection refused"))
	}
	st := f.steps[0]
	f.steps = f.steps[1:]
	if st.err != nil {
		return nil, st.err
	}
	if st.status == 0 {
		st.status = 200
	}
	if st.contentType == "" {
		st.contentType = "text/event-stream"
	}
	body := &countingBody{r: st.body}
	if st.body == nil {
		body.r = strings.NewReader("")
	}
	f.bodies = append(f.bodies, body)
	return &httpclient.StreamResponse{StatusCode: st.status, ContentType: st.contentType, Body: body}, nil
}

func (f *fakeConnector) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lastIDs)
}

func (f *fakeConnector) closes() []int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int32, len(f.bodies))
	for i, b := range f.bodies {
		out[i] = b.closes.Load()
	}
	return out
}

func testConfig() Config {
	return Config{Retry: resilience.RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2,
	}}
}

func testRequest(t *testing.T) *encoder.Request {
	t.Helper()
	req, err := encoder.Encode("http://live.test/graphql", &operation.Operation{Query: "subscription { ticks }"}, "")
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func openFake(t *testing.T, cfg Config, fc *fakeConnector, opts ...Option) *Source {
	t.Helper()
	opts = append([]Option{WithConnector(fc), WithLogger(logger.Nop())}, opts...)
	src := Open(context.Background(), cfg, testRequest(t), opts...)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

// drain reads until exhaustion and returns every event.
func drain(t *testing.T, src *Source) []RawEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out []RawEvent
	for {
		ev, ok, err := src.Next(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func kinds(events []RawEvent) []Kind {
	out := make([]Kind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func equalKinds(a, b []Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
