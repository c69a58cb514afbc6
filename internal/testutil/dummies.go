// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/raysh454/evscout/internal/logging"
	"github.com/raysh454/evscout/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// Count returns how many messages equal to msg were logged at any level.
func (l *DummyLogger) Count(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, list := range [][]string{l.Errors, l.Infos, l.Debugs, l.Warns} {
		for _, m := range list {
			if m == msg {
				n++
			}
		}
	}
	return n
}

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyResponse scripts one reply of DummyWebClient.
type DummyResponse struct {
	Status int
	Body   string
	Err    error
	Delay  time.Duration
}

// DummyWebClient implements webclient.WebClient.
// By default it returns body "ok:<url>" with status 200.
// Set FailURLs[url] = true to force an error for a specific URL, or script a
// sequence of replies with Responses[url]; the last reply repeats.
type DummyWebClient struct {
	ResponseDelay time.Duration
	FailURLs      map[string]bool
	Responses     map[string][]DummyResponse

	mu       sync.Mutex
	Requests []*webclient.Request
	calls    map[string]int
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	if d.calls == nil {
		d.calls = make(map[string]int)
	}
	n := d.calls[req.URL]
	d.calls[req.URL] = n + 1
	var scripted *DummyResponse
	if seq := d.Responses[req.URL]; len(seq) > 0 {
		if n >= len(seq) {
			n = len(seq) - 1
		}
		r := seq[n]
		scripted = &r
	}
	d.mu.Unlock()

	delay := d.ResponseDelay
	if scripted != nil && scripted.Delay > 0 {
		delay = scripted.Delay
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if d.FailURLs != nil && d.FailURLs[req.URL] {
		return nil, &errString{"dummy fetch fail for " + req.URL}
	}

	if scripted != nil {
		if scripted.Err != nil {
			return nil, scripted.Err
		}
		status := scripted.Status
		if status == 0 {
			status = 200
		}
		return &webclient.Response{
			Request:    req,
			Body:       []byte(scripted.Body),
			StatusCode: status,
			FetchedAt:  time.Now(),
		}, nil
	}

	return &webclient.Response{
		Request:    req,
		Body:       []byte("ok:" + req.URL),
		StatusCode: 200,
		FetchedAt:  time.Now(),
	}, nil
}

func (d *DummyWebClient) Get(ctx context.Context, url string) (*webclient.Response, error) {
	return d.Do(ctx, &webclient.Request{Method: "GET", URL: url})
}

func (d *DummyWebClient) Close() error { return nil }

// Calls returns how many requests were made for url.
func (d *DummyWebClient) Calls(url string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[url]
}

// TotalCalls returns the number of requests made for any URL.
func (d *DummyWebClient) TotalCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Requests)
}

// ─── helpers ───────────────────────────────────────────────────────────

type errString struct{ s string }

func (e *errString) Error() string { return e.s }
