// Package crawler walks one device: it fetches the root page and either
// extracts it directly or fans out to the sub-device pages it links to.
package crawler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/raysh454/evscout/internal/extractor"
	"github.com/raysh454/evscout/internal/fetcher"
	"github.com/raysh454/evscout/internal/logging"
	"github.com/raysh454/evscout/internal/model"
)

// State is a step of the per-device crawl.
type State int

const (
	StateRoot State = iota
	StateFailed
	StateFanOut
	StateDirect
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRoot:
		return "root"
	case StateFailed:
		return "failed"
	case StateFanOut:
		return "fan-out"
	case StateDirect:
		return "direct"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Crawler turns one ScrapeTarget into zero or more VendorRecords.
type Crawler struct {
	fetcher  *fetcher.Fetcher
	registry *extractor.Registry
	logger   logging.Logger
}

func New(f *fetcher.Fetcher, registry *extractor.Registry, logger logging.Logger) *Crawler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Crawler{
		fetcher:  f,
		registry: registry,
		logger:   logger.With(logging.Field{Key: "component", Value: "crawler"}),
	}
}

// Crawl runs the state machine for target. It never fails: the absence of
// data is reported as an empty result and logged.
func (c *Crawler) Crawl(ctx context.Context, target model.ScrapeTarget) []model.VendorRecord {
	log := c.logger.With(
		logging.Field{Key: "url", Value: target.URL},
		logging.Field{Key: "vendor", Value: string(target.Vendor)})

	ext, ok := c.registry.Get(target.Vendor)
	if !ok {
		log.Warn("no extractor for vendor")
		return nil
	}

	body, err := c.fetcher.Fetch(ctx, target.URL)
	if err != nil {
		log.Warn("device unreachable", logging.Field{Key: "state", Value: StateFailed.String()}, logging.Field{Key: "error", Value: err.Error()})
		return nil
	}

	var records []model.VendorRecord
	if subs := c.subTargets(ext, body, target.URL); len(subs) > 0 {
		log.Debug("fanning out", logging.Field{Key: "state", Value: StateFanOut.String()}, logging.Field{Key: "sub_targets", Value: len(subs)})
		records = c.fanOut(ctx, ext, target, subs)
	} else {
		log.Debug("extracting root page", logging.Field{Key: "state", Value: StateDirect.String()})
		records = c.direct(ext, target, body)
	}

	log.Debug("device done", logging.Field{Key: "state", Value: StateDone.String()}, logging.Field{Key: "records", Value: len(records)})
	return records
}

func (c *Crawler) subTargets(ext extractor.Extractor, body, pageURL string) []string {
	if ext.Kind() != model.TopologyAware {
		return nil
	}
	topo, ok := ext.(extractor.TopologyExtractor)
	if !ok {
		return nil
	}
	return topo.DiscoverSubTargets(body, pageURL)
}

func (c *Crawler) direct(ext extractor.Extractor, target model.ScrapeTarget, body string) []model.VendorRecord {
	rec, ok := ext.Extract(body, target.URL)
	if !ok {
		c.logger.Warn("no record extracted", logging.Field{Key: "url", Value: target.URL})
		return nil
	}
	rec.URL = target.URL
	rec.ParentIP = target.ParentIP
	return []model.VendorRecord{rec}
}

// fanOut fetches every sub-target concurrently on its own connection pool.
// Records keep the order of subs.
func (c *Crawler) fanOut(ctx context.Context, ext extractor.Extractor, parent model.ScrapeTarget, subs []string) []model.VendorRecord {
	slots := make([]*model.VendorRecord, len(subs))

	var wg sync.WaitGroup
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub model.ScrapeTarget) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error("sub-device scrape panicked",
						logging.Field{Key: "url", Value: sub.URL},
						logging.Field{Key: "parent_ip", Value: sub.ParentIP},
						logging.Field{Key: "panic", Value: fmt.Sprint(r)},
						logging.Field{Key: "stack", Value: string(debug.Stack())})
					slots[i] = nil
				}
			}()

			f, release := c.fetcher.Isolated()
			defer release()

			body, err := f.Fetch(ctx, sub.URL)
			if err != nil {
				c.logger.Warn("sub-device unreachable",
					logging.Field{Key: "url", Value: sub.URL},
					logging.Field{Key: "parent_ip", Value: sub.ParentIP},
					logging.Field{Key: "error", Value: err.Error()})
				return
			}

			recs := c.direct(ext, sub, body)
			if len(recs) == 1 {
				slots[i] = &recs[0]
			}
		}(i, model.ScrapeTarget{URL: sub, Vendor: parent.Vendor, ParentIP: parent.ParentIP})
	}
	wg.Wait()

	records := make([]model.VendorRecord, 0, len(subs))
	for _, r := range slots {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records
}
