// Package enricher turns search matches into HostInfo by querying the host
// API, backing off on rate limits.
package enricher

import (
	"context"
	"encoding/json"
	"math/rand"
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raysh454/evscout/internal/admission"
	"github.com/raysh454/evscout/internal/logging"
	"github.com/raysh454/evscout/internal/model"
	"github.com/raysh454/evscout/internal/shodan"
	"golang.org/x/sync/errgroup"
)

var cvePattern = regexp.MustCompile(`CVE-\d{4}-\d{4,7}`)

// HostLookup is the enrichment boundary. *shodan.Client implements it.
type HostLookup interface {
	Host(ctx context.Context, ip string) (*shodan.HostResponse, error)
}

// SleepFunc waits for d or until ctx ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Option func(*Enricher)

// WithSleep replaces the backoff sleep.
func WithSleep(fn SleepFunc) Option {
	return func(e *Enricher) { e.sleep = fn }
}

// WithRand replaces the source of backoff jitter.
func WithRand(r *rand.Rand) Option {
	return func(e *Enricher) { e.rng = r }
}

type Enricher struct {
	cfg    Config
	lookup HostLookup
	logger logging.Logger
	sleep  SleepFunc

	rngMu sync.Mutex
	rng   *rand.Rand

	failures atomic.Int64
}

func New(cfg Config, lookup HostLookup, logger logging.Logger, opts ...Option) *Enricher {
	if logger == nil {
		logger = logging.Nop()
	}
	defaults := DefaultConfig()
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaults.Attempts
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = defaults.BackoffMin
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = defaults.BackoffMax
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = cfg.BackoffMin
	}

	e := &Enricher{
		cfg:    cfg,
		lookup: lookup,
		logger: logger.With(logging.Field{Key: "component", Value: "enricher"}),
		sleep:  sleepCtx,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// backoff returns a uniformly random wait in [BackoffMin, BackoffMax].
func (e *Enricher) backoff() time.Duration {
	span := int64(e.cfg.BackoffMax - e.cfg.BackoffMin)
	if span <= 0 {
		return e.cfg.BackoffMin
	}
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.cfg.BackoffMin + time.Duration(e.rng.Int63n(span+1))
}

// BudgetExhausted reports whether the error budget has been used up.
func (e *Enricher) BudgetExhausted() bool {
	return e.cfg.ErrorBudget > 0 && e.failures.Load() >= int64(e.cfg.ErrorBudget)
}

// Enrich looks up match.IP. A nil result means no host data; the reason is
// logged.
func (e *Enricher) Enrich(ctx context.Context, match model.DeviceMatch) *model.HostInfo {
	log := e.logger.With(logging.Field{Key: "ip", Value: match.IP})

	for attempt := 1; attempt <= e.cfg.Attempts; attempt++ {
		if e.BudgetExhausted() {
			log.Warn("error budget exhausted, skipping lookup")
			return nil
		}

		host, err := e.lookup.Host(ctx, match.IP)
		if err == nil {
			log.Info("collected host data", logging.Field{Key: "attempt", Value: attempt})
			return hostInfo(match, host)
		}

		if ctx.Err() != nil {
			log.Warn("lookup canceled", logging.Field{Key: "error", Value: err.Error()})
			return nil
		}

		if !shodan.IsRateLimit(err) {
			e.failures.Add(1)
			log.Error("host lookup failed", logging.Field{Key: "error", Value: err.Error()})
			return nil
		}

		wait := e.backoff()
		log.Warn("rate limit reached, backing off",
			logging.Field{Key: "attempt", Value: attempt},
			logging.Field{Key: "wait", Value: wait.String()})
		if err := e.sleep(ctx, wait); err != nil {
			return nil
		}
	}

	log.Warn("rate limited on every attempt, giving up", logging.Field{Key: "attempts", Value: e.cfg.Attempts})
	return nil
}

// EnrichAll enriches matches concurrently. The result is aligned with
// matches; failed lookups are nil.
func (e *Enricher) EnrichAll(ctx context.Context, matches []model.DeviceMatch) []*model.HostInfo {
	out := make([]*model.HostInfo, len(matches))
	gate := admission.New(e.cfg.Concurrency)

	var g errgroup.Group
	for i, m := range matches {
		i, m := i, m
		g.Go(func() error {
			_ = gate.Do(ctx, func(ctx context.Context) {
				out[i] = e.Enrich(ctx, m)
			})
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func hostInfo(match model.DeviceMatch, host *shodan.HostResponse) *model.HostInfo {
	ports := append([]int(nil), host.Ports...)
	sort.Ints(ports)

	hostnames := match.Hostnames
	if len(hostnames) == 0 {
		hostnames = host.Hostnames
	}

	return &model.HostInfo{
		IP:        match.IP,
		Title:     match.Title,
		OpenPorts: ports,
		Vulns:     vulnIDs(match.Vulns),
		Hostnames: append([]string(nil), hostnames...),
	}
}

// vulnIDs returns the CVE identifiers found in the keys of vulns, sorted and
// de-duplicated, or ["None"].
func vulnIDs(vulns map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(vulns))
	for k := range vulns {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string]struct{})
	var ids []string
	for _, k := range keys {
		for _, id := range cvePattern.FindAllString(k, -1) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return []string{model.NoKnownVulns}
	}
	return ids
}
