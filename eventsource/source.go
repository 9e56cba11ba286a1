package eventsource

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/kbukum/livequery/encoder"
	"github.com/kbukum/livequery/errors"
	"github.com/kbukum/livequery/httpclient"
	"github.com/kbukum/livequery/logger"
	"github.com/kbukum/livequery/resilience"
	"github.com/kbukum/livequery/sse"
)

// Event types that carry a payload. Anything else except "complete" is a
// control event and is skipped.
var dataEvents = map[string]bool{"": true, "message": true, "next": true}

const completeEvent = "complete"

// ReconnectHook observes each scheduled reconnect.
type ReconnectHook func(attempt int, delay time.Duration, cause error)

// Option configures a Source.
type Option func(*Source)

// WithConnector replaces the default HTTP connector.
func WithConnector(c Connector) Option {
	return func(s *Source) { s.connector = c }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Source) { s.log = l }
}

// WithReconnectHook registers a hook called before each reconnect wait.
func WithReconnectHook(h ReconnectHook) Option {
	return func(s *Source) { s.onReconnect = h }
}

// Source is a resilient event stream for one subscription. Next must be
// called from a single goroutine; Close and State are safe from any.
type Source struct {
	cfg         Config
	req         *encoder.Request
	connector   Connector
	log         *logger.Logger
	onReconnect ReconnectHook

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state State
	conn  io.Closer

	// owned by the goroutine calling Next
	reader      sse.Reader
	lastEventID string
	retryFloor  time.Duration
	failures    int
	lastErr     error
}

// Open creates a Source for req. No connection is made until Next is called.
func Open(ctx context.Context, cfg Config, req *encoder.Request, opts ...Option) *Source {
	cfg.ApplyDefaults()
	s := &Source{cfg: cfg, req: req, state: StateConnecting}
	for _, opt := range opts {
		opt(s)
	}
	if s.connector == nil {
		s.connector = NewHTTPConnector(nil)
	}
	s.log = logger.OrComponent(s.log, "eventsource")
	s.ctx, s.cancel = context.WithCancel(ctx)
	// cancelling the parent context closes the source
	context.AfterFunc(s.ctx, func() { _ = s.Close() })
	return s
}

// State returns the current connection state.
func (s *Source) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastEventID returns the id sent with the next reconnect.
func (s *Source) LastEventID() string {
	return s.lastEventID
}

// Close closes the current connection and ends the stream. It is idempotent
// and may be called concurrently with Next; no event is delivered after it
// returns.
func (s *Source) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	s.cancel()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// Next returns the next event. Transient failures are retried internally;
// after a KindError or KindTerminal event, or after Close, it reports
// exhaustion. Cancelling ctx closes the Source.
func (s *Source) Next(ctx context.Context) (RawEvent, bool, error) {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			_ = s.Close()
			return RawEvent{}, false, err
		}
		if s.closed() {
			return RawEvent{}, false, nil
		}

		if s.reader == nil {
			if ev := s.establish(ctx); ev != nil {
				return s.emit(ev)
			}
			continue
		}

		frame, err := s.reader.Next()
		if s.closed() {
			return RawEvent{}, false, nil
		}
		if err != nil {
			if ev := s.fail(err); ev != nil {
				return s.emit(ev)
			}
			continue
		}

		s.failures = 0
		if frame.HasID {
			s.lastEventID = frame.ID
		}
		if frame.Retry > 0 {
			s.retryFloor = frame.Retry
		}

		if s.closed() {
			return RawEvent{}, false, nil
		}
		if ev := s.decode(frame); ev != nil {
			return s.emit(ev)
		}
	}
}

// establish makes one connection attempt, waiting out the backoff first when
// the previous attempt failed. It returns a fatal or terminal event, or nil
// when the caller should re-check state and read.
func (s *Source) establish(ctx context.Context) *RawEvent {
	if s.failures > 0 {
		delay := s.delay()
		if s.onReconnect != nil {
			s.onReconnect(s.failures, delay, s.lastErr)
		}
		s.log.Debug("reconnecting", logger.Fields(
			logger.FieldAttempt, s.failures,
			logger.FieldBackoff, delay.Milliseconds(),
			logger.FieldEventID, s.lastEventID,
		))
		if err := resilience.Wait(s.ctx, delay); err != nil {
			return nil
		}
	}

	s.setState(StateConnecting)
	resp, err := s.connector.Connect(s.ctx, s.req, s.lastEventID)
	if err != nil {
		if s.closed() || ctx.Err() != nil {
			return nil
		}
		return s.fail(err)
	}

	if resp.StatusCode == http.StatusNoContent {
		_ = resp.Close()
		s.log.Debug("server ended the stream with 204")
		return &RawEvent{Kind: KindTerminal, ID: s.lastEventID}
	}
	if !resp.IsEventStream() {
		_ = resp.Close()
		cause := fmt.Errorf("unexpected content type %q", resp.ContentType)
		return &RawEvent{Kind: KindError, Err: errors.Transport(cause, false), ID: s.lastEventID}
	}

	body := &onceBody{ReadCloser: resp.Body}
	var stream io.ReadCloser = body
	if s.cfg.IdleTimeout > 0 {
		stream = watchIdle(body, s.cfg.IdleTimeout)
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		_ = stream.Close()
		return nil
	}
	s.conn = stream
	s.state = StateOpen
	s.mu.Unlock()

	s.reader = sse.NewReaderSize(stream, s.cfg.MaxLineSize)
	s.log.Debug("event stream open", logger.Fields(logger.FieldEventID, s.lastEventID))
	return nil
}

// fail drops the current connection and classifies err. It returns a fatal
// error event, or nil when the failure will be retried.
func (s *Source) fail(err error) *RawEvent {
	s.release()

	if stderrors.Is(err, bufio.ErrTooLong) {
		return &RawEvent{Kind: KindError, Err: errors.MalformedPayload("event exceeds the maximum line size", err), ID: s.lastEventID}
	}
	if !transient(err) {
		s.log.Warn("event stream failed", logger.ErrorFields("connect", err))
		return &RawEvent{Kind: KindError, Err: errors.Transport(err, false), ID: s.lastEventID}
	}

	s.failures++
	s.lastErr = err
	if limit := s.cfg.Retry.MaxAttempts; limit > 0 && s.failures >= limit {
		s.log.Warn("event stream retries exhausted", logger.MergeWithError(
			logger.Fields(logger.FieldAttempt, s.failures), err))
		return &RawEvent{Kind: KindError, Err: errors.RetriesExhausted(s.failures, err), ID: s.lastEventID}
	}

	s.setState(StateErrored)
	s.log.Debug("event stream interrupted", logger.MergeWithError(
		logger.Fields(logger.FieldAttempt, s.failures), err))
	return nil
}

// decode maps one frame to an event, or nil for control events.
func (s *Source) decode(frame *sse.Event) *RawEvent {
	switch {
	case dataEvents[frame.Event]:
		if frame.Data == "" {
			return nil
		}
		data := []byte(frame.Data)
		if !json.Valid(data) {
			return &RawEvent{Kind: KindError, Err: errors.MalformedPayload("event data is not valid JSON", nil), ID: s.lastEventID}
		}
		return &RawEvent{Kind: KindData, Data: json.RawMessage(data), ID: s.lastEventID}
	case frame.Event == completeEvent:
		return &RawEvent{Kind: KindTerminal, ID: s.lastEventID}
	default:
		s.log.Debug("skipping control event", logger.Fields("event", frame.Event))
		return nil
	}
}

// emit hands ev to the caller unless the Source was closed meanwhile. Error
// and terminal events end the stream and release the connection.
func (s *Source) emit(ev *RawEvent) (RawEvent, bool, error) {
	if ev.Kind == KindData {
		if s.closed() {
			return RawEvent{}, false, nil
		}
		return *ev, true, nil
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return RawEvent{}, false, nil
	}
	s.state = StateClosed
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	s.cancel()
	s.reader = nil
	if conn != nil {
		_ = conn.Close()
	}
	return *ev, true, nil
}

func (s *Source) release() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	s.reader = nil
	if conn != nil {
		_ = conn.Close()
	}
}

func (s *Source) delay() time.Duration {
	d := s.cfg.Retry.Backoff(s.failures)
	if s.retryFloor > d {
		d = s.retryFloor
	}
	return d
}

func (s *Source) setState(st State) {
	s.mu.Lock()
	if s.state != StateClosed {
		s.state = st
	}
	s.mu.Unlock()
}

func (s *Source) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateClosed
}

// transient reports whether a failed attempt should be retried: HTTP errors
// follow their classification, everything else is a broken connection.
func transient(err error) bool {
	var he *httpclient.Error
	if stderrors.As(err, &he) {
		return he.Retryable
	}
	return true
}
