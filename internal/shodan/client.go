// Package shodan is a small client for the search and host endpoints of the
// Shodan REST API.
package shodan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/raysh454/evscout/internal/logging"
	"github.com/raysh454/evscout/internal/model"
	"github.com/raysh454/evscout/internal/webclient"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://api.shodan.io"

var ErrMissingAPIKey = errors.New("shodan: api key is empty")

type Config struct {
	BaseURL string `yaml:"base_url"`

	// APIKey is never read from the config file; see SHODAN_API_KEY.
	APIKey string `yaml:"-"`

	// RequestsPerSecond paces every call. Zero means 1, negative disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// HostResponse is the subset of /shodan/host/{ip} the pipeline uses.
type HostResponse struct {
	IP        string   `json:"ip_str"`
	Ports     []int    `json:"ports"`
	Hostnames []string `json:"hostnames"`
	Vulns     []string `json:"vulns"`
}

type Client struct {
	baseURL string
	apiKey  string
	wc      webclient.WebClient
	limiter *rate.Limiter
	logger  logging.Logger
}

func New(cfg Config, wc webclient.WebClient, logger logging.Logger) (*Client, error) {
	if wc == nil {
		return nil, fmt.Errorf("webclient cannot be nil")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		logger = logging.Nop()
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	limit := rate.Limit(cfg.RequestsPerSecond)
	switch {
	case cfg.RequestsPerSecond == 0:
		limit = 1
	case cfg.RequestsPerSecond < 0:
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		wc:      wc,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With(logging.Field{Key: "component", Value: "shodan"}),
	}, nil
}

type searchMatch struct {
	IP        string                     `json:"ip_str"`
	Hostnames []string                   `json:"hostnames"`
	Port      int                        `json:"port"`
	Vulns     map[string]json.RawMessage `json:"vulns"`
	HTTP      struct {
		Title string `json:"title"`
	} `json:"http"`
}

// Search runs a host search and returns the first page of matches. Matches
// without an IP are dropped.
func (c *Client) Search(ctx context.Context, query string) ([]model.DeviceMatch, error) {
	body, err := c.get(ctx, "/shodan/host/search", url.Values{"query": {query}})
	if err != nil {
		return nil, err
	}

	var raw struct {
		Matches []json.RawMessage `json:"matches"`
		Total   int               `json:"total"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	matches := make([]model.DeviceMatch, 0, len(raw.Matches))
	for _, m := range raw.Matches {
		var sm searchMatch
		if err := json.Unmarshal(m, &sm); err != nil {
			c.logger.Warn("skipping undecodable match", logging.Field{Key: "error", Value: err.Error()})
			continue
		}
		if sm.IP == "" {
			continue
		}
		matches = append(matches, model.DeviceMatch{
			IP:        sm.IP,
			Title:     sm.HTTP.Title,
			Hostnames: sm.Hostnames,
			Vulns:     sm.Vulns,
			Port:      sm.Port,
			Raw:       m,
		})
	}

	c.logger.Debug("search finished",
		logging.Field{Key: "query", Value: query},
		logging.Field{Key: "matches", Value: len(matches)},
		logging.Field{Key: "total", Value: raw.Total})
	return matches, nil
}

// Host looks up everything the index knows about ip.
func (c *Client) Host(ctx context.Context, ip string) (*HostResponse, error) {
	body, err := c.get(ctx, "/shodan/host/"+url.PathEscape(ip), nil)
	if err != nil {
		return nil, err
	}
	var host HostResponse
	if err := json.Unmarshal(body, &host); err != nil {
		return nil, fmt.Errorf("decode host response: %w", err)
	}
	return &host, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.apiKey)

	resp, err := c.wc.Do(ctx, &webclient.Request{
		Method:  http.MethodGet,
		URL:     c.baseURL + path + "?" + params.Encode(),
		Headers: http.Header{"Accept": {"application/json"}},
	})
	if err != nil {
		return nil, fmt.Errorf("shodan request %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(resp.Body, &payload) == nil {
			apiErr.Message = payload.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(resp.Body))
		}
		return nil, apiErr
	}

	return resp.Body, nil
}
