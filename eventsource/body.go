package eventsource

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var errIdle = errors.New("eventsource: connection idle")

// onceBody closes the response body at most once, whichever of the consumer,
// Close or the idle timer gets there first.
type onceBody struct {
	io.ReadCloser
	once sync.Once
	err  error
}

func (b *onceBody) Close() error {
	b.once.Do(func() { b.err = b.ReadCloser.Close() })
	return b.err
}

// idleBody closes the connection when no bytes arrive within timeout.
type idleBody struct {
	body    *onceBody
	timeout time.Duration
	timer   *time.Timer
	expired atomic.Bool
}

func watchIdle(body *onceBody, timeout time.Duration) *idleBody {
	b := &idleBody{body: body, timeout: timeout}
	b.timer = time.AfterFunc(timeout, func() {
		b.expired.Store(true)
		_ = body.Close()
	})
	return b
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if n > 0 && !b.expired.Load() {
		b.timer.Reset(b.timeout)
	}
	if err != nil && b.expired.Load() {
		return n, errIdle
	}
	return n, err
}

func (b *idleBody) Close() error {
	b.timer.Stop()
	return b.body.Close()
}
