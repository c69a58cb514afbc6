package shodan_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/raysh454/evscout/internal/logging"
	"github.com/raysh454/evscout/internal/shodan"
	"github.com/raysh454/evscout/internal/webclient"
)

const searchBody = `{
  "total": 3,
  "matches": [
    {"ip_str": "192.0.2.10", "port": 80, "hostnames": ["ev1.example"], "http": {"title": "GARO EVSE Status"},
     "vulns": {"CVE-2021-44228": {"cvss": 10.0}}},
    {"ip_str": "192.0.2.11", "port": 8080, "http": {"title": "Charging station interface"}},
    {"port": 80, "http": {"title": "no address"}}
  ]
}`

func newClient(t *testing.T, ts *httptest.Server, rps float64) *shodan.Client {
	t.Helper()
	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, logging.Nop(), ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	c, err := shodan.New(shodan.Config{BaseURL: ts.URL, APIKey: "secret", RequestsPerSecond: rps}, wc, nil)
	if err != nil {
		t.Fatalf("shodan.New: %v", err)
	}
	return c
}

func TestSearch_DecodesMatches(t *testing.T) {
	t.Parallel()

	var gotQuery, gotKey string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shodan/host/search" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("query")
		gotKey = r.URL.Query().Get("key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, searchBody)
	}))
	defer ts.Close()

	matches, err := newClient(t, ts, -1).Search(context.Background(), `title:"GARO EVSE Status"`)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotQuery != `title:"GARO EVSE Status"` || gotKey != "secret" {
		t.Errorf("query=%q key=%q", gotQuery, gotKey)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}

	m := matches[0]
	if m.IP != "192.0.2.10" || m.Title != "GARO EVSE Status" || m.Port != 80 {
		t.Errorf("unexpected match %+v", m)
	}
	if !reflect.DeepEqual(m.Hostnames, []string{"ev1.example"}) {
		t.Errorf("hostnames = %v", m.Hostnames)
	}
	if _, ok := m.Vulns["CVE-2021-44228"]; !ok {
		t.Errorf("vulns = %v", m.Vulns)
	}
	if len(m.Raw) == 0 {
		t.Error("raw payload not kept")
	}
	if matches[1].Vulns != nil {
		t.Errorf("expected nil vulns, got %v", matches[1].Vulns)
	}
}

func TestHost_DecodesPorts(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shodan/host/192.0.2.10" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"ip_str":"192.0.2.10","ports":[443,80],"hostnames":["ev1.example"]}`)
	}))
	defer ts.Close()

	host, err := newClient(t, ts, -1).Host(context.Background(), "192.0.2.10")
	if err != nil {
		t.Fatalf("Host: %v", err)
	}
	if !reflect.DeepEqual(host.Ports, []int{443, 80}) {
		t.Errorf("ports = %v", host.Ports)
	}
}

func TestAPIErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		wantRate  bool
		wantInMsg string
	}{
		{name: "429", status: http.StatusTooManyRequests, body: `{"error":"slow down"}`, wantRate: true, wantInMsg: "slow down"},
		{name: "rate limit message", status: http.StatusForbidden, body: `{"error":"Rate limit reached (1/second)"}`, wantRate: true},
		{name: "invalid key", status: http.StatusUnauthorized, body: `{"error":"Invalid API key"}`, wantInMsg: "Invalid API key"},
		{name: "plain text body", status: http.StatusInternalServerError, body: "upstream broke", wantInMsg: "upstream broke"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer ts.Close()

			_, err := newClient(t, ts, -1).Host(context.Background(), "192.0.2.1")
			var apiErr *shodan.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("status = %d", apiErr.StatusCode)
			}
			if got := shodan.IsRateLimit(err); got != tt.wantRate {
				t.Errorf("IsRateLimit = %v, want %v", got, tt.wantRate)
			}
			if tt.wantInMsg != "" && apiErr.Message != tt.wantInMsg {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.wantInMsg)
			}
		})
	}
}

func TestIsRateLimit_WrappedAndForeign(t *testing.T) {
	t.Parallel()
	wrapped := fmt.Errorf("enrich: %w", &shodan.APIError{StatusCode: 429})
	if !shodan.IsRateLimit(wrapped) {
		t.Error("wrapped 429 should be rate limit")
	}
	if shodan.IsRateLimit(errors.New("rate limit")) {
		t.Error("plain errors are not API errors")
	}
	if shodan.IsRateLimit(nil) {
		t.Error("nil is not a rate limit")
	}
}

func TestRequestsArePaced(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"ip_str":"x","ports":[]}`)
	}))
	defer ts.Close()

	c := newClient(t, ts, 20)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.Host(context.Background(), "192.0.2.1"); err != nil {
			t.Fatalf("Host: %v", err)
		}
	}
	// burst 1 at 20/s: the 2nd and 3rd calls wait ~50ms each.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Fatalf("requests not paced, took %s", elapsed)
	}
}

func TestNew_RequiresKey(t *testing.T) {
	t.Parallel()
	wc, _ := webclient.NewNetHTTPClient(webclient.Config{}, nil, nil)
	if _, err := shodan.New(shodan.Config{}, wc, nil); !errors.Is(err, shodan.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}
