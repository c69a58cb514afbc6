// Package extractor turns fetched vendor status pages into VendorRecords.
package extractor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/raysh454/evscout/internal/logging"
	"github.com/raysh454/evscout/internal/model"
)

// Extractor reads one HTML document into at most one record.
// The bool result is false when the page yields no record.
type Extractor interface {
	Vendor() model.Vendor
	Kind() model.VendorKind
	Extract(html, pageURL string) (model.VendorRecord, bool)
}

// TopologyExtractor is implemented by topology-aware vendors whose root page
// may link to sub-device pages.
type TopologyExtractor interface {
	Extractor

	// DiscoverSubTargets returns the absolute sub-device URLs in document
	// order. An empty result means the root page is the only target.
	DiscoverSubTargets(html, pageURL string) []string
}

// Registry maps vendors to extractors and advertised page titles to vendors.
type Registry struct {
	mu         sync.RWMutex
	extractors map[model.Vendor]Extractor
	titles     map[string]model.Vendor
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[model.Vendor]Extractor),
		titles:     make(map[string]model.Vendor),
	}
}

// DefaultRegistry registers the built-in GARO and Ensto extractors with the
// titles their controllers advertise.
func DefaultRegistry(logger logging.Logger) *Registry {
	r := NewRegistry()
	r.Register(NewGaro(logger), "GARO EVSE Status")
	r.Register(NewEnsto(logger), "Charging station interface")
	return r
}

// Register adds e and maps each title to its vendor.
func (r *Registry) Register(e Extractor, titles ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[e.Vendor()] = e
	for _, t := range titles {
		r.titles[strings.TrimSpace(t)] = e.Vendor()
	}
}

// AddTitle maps an extra advertised title to an already registered vendor.
func (r *Registry) AddTitle(title string, vendor model.Vendor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.extractors[vendor]; !ok {
		return fmt.Errorf("no extractor registered for vendor %q", vendor)
	}
	r.titles[strings.TrimSpace(title)] = vendor
	return nil
}

// Classify returns the vendor advertising title, or VendorUnknown.
func (r *Registry) Classify(title string) model.Vendor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.titles[strings.TrimSpace(title)]
}

// Get returns the extractor for vendor.
func (r *Registry) Get(vendor model.Vendor) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[vendor]
	return e, ok
}
