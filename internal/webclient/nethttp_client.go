package webclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/raysh454/evscout/internal/logging"
	"golang.org/x/net/html/charset"
)

// net/http backed implementation of webclient.
type NetHTTPClient struct {
	client    *http.Client
	userAgent string
	logger    logging.Logger
	isolated  bool
}

func NewNetHTTPClient(cfg Config, logger logging.Logger, httpClient *http.Client) (WebClient, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	componentLogger := logger.With(logging.Field{Key: "backend", Value: "nethttp"})

	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	componentLogger.Debug("created nethttp webclient",
		logging.Field{Key: "timeout", Value: httpClient.Timeout.String()})

	return &NetHTTPClient{
		client:    httpClient,
		userAgent: cfg.UserAgent,
		logger:    componentLogger,
	}, nil
}

// Do implements the generic request execution using net/http.
func (nhc *NetHTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	nhc.logger.Debug("sending http request",
		logging.Field{Key: "method", Value: method},
		logging.Field{Key: "url", Value: req.URL})

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if nhc.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", nhc.userAgent)
	}

	resp, err := nhc.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		Request:    req,
		Body:       toUTF8(body, resp.Header.Get("Content-Type")),
		Headers:    resp.Header,
		StatusCode: resp.StatusCode,
		FetchedAt:  time.Now(),
	}, nil
}

// toUTF8 transcodes textual bodies to UTF-8. Embedded device web servers
// frequently serve latin-1 pages. Bodies that cannot be decoded are returned
// untouched.
func toUTF8(body []byte, contentType string) []byte {
	if len(body) == 0 {
		return body
	}
	ct := strings.ToLower(contentType)
	if ct != "" && !strings.Contains(ct, "text") && !strings.Contains(ct, "html") {
		return body
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return decoded
}

// Get is a convenience method for simple GET requests
func (nhc *NetHTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	return nhc.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}

// Isolated returns a client sharing this client's settings but owning a
// fresh connection pool.
func (nhc *NetHTTPClient) Isolated() WebClient {
	base := http.DefaultTransport
	if nhc.client.Transport != nil {
		base = nhc.client.Transport
	}

	transport := base
	if t, ok := base.(*http.Transport); ok {
		transport = t.Clone()
	}

	return &NetHTTPClient{
		client: &http.Client{
			Transport:     transport,
			Timeout:       nhc.client.Timeout,
			CheckRedirect: nhc.client.CheckRedirect,
			Jar:           nhc.client.Jar,
		},
		userAgent: nhc.userAgent,
		logger:    nhc.logger,
		isolated:  true,
	}
}

// Close releases idle connections. The shared client only logs.
func (nhc *NetHTTPClient) Close() error {
	if nhc.isolated {
		nhc.client.CloseIdleConnections()
		return nil
	}
	nhc.logger.Debug("closing nethttp webclient")
	return nil
}

// HTTPClient returns the underlying *http.Client
func (nhc *NetHTTPClient) HTTPClient() *http.Client {
	return nhc.client
}
