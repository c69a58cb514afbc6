// Package harvester schedules device scrapes for a whole batch under one
// admission gate.
package harvester

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"

	"github.com/raysh454/evscout/internal/admission"
	"github.com/raysh454/evscout/internal/aggregator"
	"github.com/raysh454/evscout/internal/logging"
	"github.com/raysh454/evscout/internal/model"
	"github.com/raysh454/evscout/internal/utils"
	"golang.org/x/sync/errgroup"
)

// DeviceCrawler scrapes one device. *crawler.Crawler implements it.
type DeviceCrawler interface {
	Crawl(ctx context.Context, target model.ScrapeTarget) []model.VendorRecord
}

type Config struct {
	// Concurrency is the admission gate capacity (default 9).
	Concurrency int

	// DeviceURLTemplate builds the root URL of a device; "{ip}" is replaced.
	DeviceURLTemplate string
}

type Harvester struct {
	crawler     DeviceCrawler
	gate        *admission.Gate
	urlTemplate string
	logger      logging.Logger
}

func New(cfg Config, crawler DeviceCrawler, logger logging.Logger) *Harvester {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Harvester{
		crawler:     crawler,
		gate:        admission.New(cfg.Concurrency),
		urlTemplate: cfg.DeviceURLTemplate,
		logger:      logger.With(logging.Field{Key: "component", Value: "harvester"}),
	}
}

// Gate exposes the admission gate, mainly for observing Peak in tests.
func (h *Harvester) Gate() *admission.Gate { return h.gate }

// Run scrapes every classified device and returns the collected records in
// arrival order. A device that fails or panics contributes no records and
// never affects its siblings.
func (h *Harvester) Run(ctx context.Context, devices []model.Device) []model.VendorRecord {
	byVendor := make(map[model.Vendor][]model.Device)
	for _, d := range devices {
		if d.Vendor == model.VendorUnknown {
			h.logger.Debug("skipping unclassified device", logging.Field{Key: "ip", Value: d.IP})
			continue
		}
		byVendor[d.Vendor] = append(byVendor[d.Vendor], d)
	}

	vendors := make([]model.Vendor, 0, len(byVendor))
	for v := range byVendor {
		vendors = append(vendors, v)
	}
	sort.Slice(vendors, func(i, j int) bool { return vendors[i] < vendors[j] })

	collector := aggregator.NewCollector(h.gate.Capacity())

	// Plain Group: a failing device must not cancel the others.
	var g errgroup.Group
	for _, vendor := range vendors {
		batch := byVendor[vendor]
		h.logger.Info("harvesting vendor batch",
			logging.Field{Key: "vendor", Value: string(vendor)},
			logging.Field{Key: "devices", Value: len(batch)})

		for _, device := range batch {
			device := device
			g.Go(func() error {
				err := h.gate.Do(ctx, func(ctx context.Context) {
					collector.Add(h.scrape(ctx, device)...)
				})
				if err != nil {
					h.logger.Warn("device not admitted",
						logging.Field{Key: "ip", Value: device.IP},
						logging.Field{Key: "error", Value: err.Error()})
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	records := collector.Close()
	h.logger.Info("harvest finished",
		logging.Field{Key: "devices", Value: len(devices)},
		logging.Field{Key: "records", Value: len(records)},
		logging.Field{Key: "peak_in_flight", Value: h.gate.Peak()})
	return records
}

func (h *Harvester) scrape(ctx context.Context, d model.Device) (records []model.VendorRecord) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("device scrape panicked",
				logging.Field{Key: "ip", Value: d.IP},
				logging.Field{Key: "vendor", Value: string(d.Vendor)},
				logging.Field{Key: "panic", Value: fmt.Sprint(r)},
				logging.Field{Key: "stack", Value: string(debug.Stack())})
			records = nil
		}
	}()

	target := model.ScrapeTarget{
		URL:      utils.DeviceURL(h.urlTemplate, d.IP),
		Vendor:   d.Vendor,
		ParentIP: d.IP,
	}
	records = h.crawler.Crawl(ctx, target)
	if len(records) == 0 {
		h.logger.Warn("no data for device", logging.Field{Key: "ip", Value: d.IP}, logging.Field{Key: "url", Value: target.URL})
	}
	return records
}
