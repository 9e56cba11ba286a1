package link

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/livequery/bridge"
	lqerrors "github.com/kbukum/livequery/errors"
	"github.com/kbukum/livequery/eventsource"
	"github.com/kbukum/livequery/httpclient"
	"github.com/kbukum/livequery/logger"
	"github.com/kbukum/livequery/operation"
	"github.com/kbukum/livequery/resilience"
)

func testStreamConfig() eventsource.Config {
	return eventsource.Config{Retry: resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}}
}

// streamServer writes events then optionally holds the connection open
// until the client goes away.
type streamServer struct {
	events       []string
	hold         bool
	mu           sync.Mutex
	queries      []map[string]string
	disconnected chan struct{}
}

func (s *streamServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params := map[string]string{}
	for k := range r.URL.Query() {
		params[k] = r.URL.Query().Get(k)
	}
	params["accept"] = r.Header.Get("Accept")
	s.mu.Lock()
	s.queries = append(s.queries, params)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher := w.(http.Flusher)
	for _, ev := range s.events {
		_, _ = io.WriteString(w, ev)
		flusher.Flush()
	}
	if s.hold {
		<-r.Context().Done()
		close(s.disconnected)
	}
}

func TestLiveLink_Snapshots(t *testing.T) {
	srv := &streamServer{events: []string{
		"id: 1\ndata: {\"data\":{\"posts\":[{\"id\":\"p1\",\"likes\":0}]}}\n\n",
		"id: 2\ndata: [{\"op\":\"replace\",\"path\":\"/data/posts/0/likes\",\"value\":1}]\n\n",
		"id: 3\ndata: [{\"op\":\"add\",\"path\":\"/data/posts/-\",\"value\":{\"id\":\"p2\",\"likes\":0}}]\n\n",
		"event: complete\ndata:\n\n",
	}}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	l := NewLiveLink(ts.URL+"/graphql", testStreamConfig(), WithLogger(logger.Nop()))
	op := (&operation.Operation{
		Query:         "query GetPosts @live { posts { id likes } }",
		OperationName: "GetPosts",
	}).WithHeader("Authorization", "Bearer tkn")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	obs := bridge.NewChannelObserver(ctx)
	sub := l.Subscribe(ctx, op, obs)

	var got []string
	for res := range obs.Results() {
		got = append(got, compact(t, res.Data))
	}
	wait(t, sub)

	want := []string{
		`{"posts":[{"id":"p1","likes":0}]}`,
		`{"posts":[{"id":"p1","likes":1}]}`,
		`{"posts":[{"id":"p1","likes":1},{"id":"p2","likes":0}]}`,
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("got snapshots\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
	if obs.Err() != nil {
		t.Errorf("unexpected error %v", obs.Err())
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if len(srv.queries) != 1 {
		t.Fatalf("expected one connection, got %d", len(srv.queries))
	}
	q := srv.queries[0]
	if q["authorization"] != "Bearer tkn" || q["operationName"] != "GetPosts" || q["accept"] != "text/event-stream" {
		t.Errorf("unexpected request %v", q)
	}
}

func TestLiveLink_CancelClosesConnection(t *testing.T) {
	srv := &streamServer{
		events:       []string{"data: {\"data\":{\"n\":1}}\n\n"},
		hold:         true,
		disconnected: make(chan struct{}),
	}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	first := make(chan struct{})
	var once sync.Once
	rec := &recorder{}
	obs := bridge.ObserverFuncs{
		NextFunc: func(res *operation.Result) {
			rec.Next(res)
			once.Do(func() { close(first) })
		},
		ErrorFunc:    rec.Error,
		CompleteFunc: rec.Complete,
	}

	l := NewLiveLink(ts.URL, testStreamConfig(), WithLogger(logger.Nop()))
	sub := l.Subscribe(context.Background(), &operation.Operation{Query: "subscription { n }"}, obs)

	select {
	case <-first:
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot received")
	}
	sub.Cancel()
	wait(t, sub)

	select {
	case <-srv.disconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not observe the disconnect")
	}
	results, errs, completes := rec.snapshot()
	if len(results) != 1 || len(errs) != 0 || completes != 0 {
		t.Errorf("got %d results %v errors %d completions", len(results), errs, completes)
	}
}

func TestLiveLink_InvalidOperation(t *testing.T) {
	l := NewLiveLink("http://live.test/graphql", testStreamConfig(), WithLogger(logger.Nop()))
	rec := &recorder{}
	wait(t, l.Subscribe(context.Background(), &operation.Operation{}, rec))

	if _, errs, _ := rec.snapshot(); len(errs) != 1 || !lqerrors.HasCode(errs[0], lqerrors.ErrCodeInvalidInput) {
		t.Errorf("expected invalid input, got %v", errs)
	}
}

func TestLiveLink_FatalStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer ts.Close()

	l := NewLiveLink(ts.URL, testStreamConfig(), WithLogger(logger.Nop()))
	rec := &recorder{}
	wait(t, l.Subscribe(context.Background(), &operation.Operation{Query: "subscription { n }"}, rec))

	_, errs, completes := rec.snapshot()
	if len(errs) != 1 || completes != 0 || !lqerrors.HasCode(errs[0], lqerrors.ErrCodeTransport) {
		t.Errorf("expected one transport error, got %v (%d completions)", errs, completes)
	}
}

func newHTTPLink(t *testing.T, h http.HandlerFunc) *HTTPLink {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	client, err := httpclient.New(httpclient.Config{BaseURL: ts.URL})
	if err != nil {
		t.Fatal(err)
	}
	return NewHTTPLink(client, WithPath("/graphql"), WithLogger(logger.Nop()))
}

func TestHTTPLink_Result(t *testing.T) {
	var body requestBody
	var auth, path string
	l := newHTTPLink(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"createPost":{"id":"p9"}}}`)
	})

	op := (&operation.Operation{
		Query:         "mutation CreatePost($title: String!) { createPost(title: $title) { id } }",
		OperationName: "CreatePost",
		Variables:     map[string]any{"title": "hello"},
	}).WithHeader("authorization", "Bearer tkn")
	rec := &recorder{}
	wait(t, l.Subscribe(context.Background(), op, rec))

	results, errs, completes := rec.snapshot()
	if len(results) != 1 || len(errs) != 0 || completes != 1 {
		t.Fatalf("got %d results %v errors %d completions", len(results), errs, completes)
	}
	if compact(t, results[0].Data) != `{"createPost":{"id":"p9"}}` {
		t.Errorf("unexpected data %s", results[0].Data)
	}
	if path != "/graphql" || auth != "Bearer tkn" {
		t.Errorf("unexpected request path %q auth %q", path, auth)
	}
	if body.OperationName != "CreatePost" || body.Variables["title"] != "hello" {
		t.Errorf("unexpected request body %+v", body)
	}
}

func TestHTTPLink_GraphQLErrors(t *testing.T) {
	l := newHTTPLink(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/graphql-response+json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"errors":[{"message":"Cannot query field \"nope\""}]}`)
	})
	rec := &recorder{}
	wait(t, l.Subscribe(context.Background(), &operation.Operation{Query: "{ nope }"}, rec))

	results, errs, completes := rec.snapshot()
	if len(results) != 1 || len(errs) != 0 || completes != 1 {
		t.Fatalf("got %d results %v errors %d completions", len(results), errs, completes)
	}
	if !results[0].HasErrors() || results[0].Errors[0].Message != `Cannot query field "nope"` {
		t.Errorf("unexpected errors %v", results[0].Errors)
	}
}

func TestHTTPLink_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   lqerrors.ErrorCode
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"errors":[{"message":"no"}]}`, code: lqerrors.ErrCodeAuth},
		{name: "server error", status: http.StatusBadGateway, body: "bad gateway", code: lqerrors.ErrCodeTransport},
		{name: "not graphql", status: http.StatusOK, body: `{"hello":"world"}`, code: lqerrors.ErrCodeMalformedPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newHTTPLink(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			rec := &recorder{}
			wait(t, l.Subscribe(context.Background(), &operation.Operation{Query: "{ a }"}, rec))

			results, errs, completes := rec.snapshot()
			if len(results) != 0 || completes != 0 || len(errs) != 1 {
				t.Fatalf("got %d results %v errors %d completions", len(results), errs, completes)
			}
			if !lqerrors.HasCode(errs[0], tt.code) {
				t.Errorf("expected %s, got %v", tt.code, errs[0])
			}
		})
	}
}

func compact(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("invalid JSON %s: %v", raw, err)
	}
	out, _ := json.Marshal(v)
	return string(out)
}
