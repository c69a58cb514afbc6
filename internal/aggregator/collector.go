package aggregator

import (
	"sync"

	"github.com/raysh454/evscout/internal/model"
)

// Collector is the append-only sink concurrent scrapes stream their records
// into. Records are drained by a single goroutine, so producers never share
// mutable state with each other.
type Collector struct {
	ch      chan model.VendorRecord
	done    chan struct{}
	records []model.VendorRecord
	once    sync.Once
}

// NewCollector starts a Collector with a channel buffer of size buffer.
func NewCollector(buffer int) *Collector {
	if buffer < 0 {
		buffer = 0
	}
	c := &Collector{
		ch:   make(chan model.VendorRecord, buffer),
		done: make(chan struct{}),
	}
	go c.drain()
	return c
}

func (c *Collector) drain() {
	defer close(c.done)
	for rec := range c.ch {
		c.records = append(c.records, rec)
	}
}

// Add appends records. It must not be called after Close.
func (c *Collector) Add(recs ...model.VendorRecord) {
	for _, r := range recs {
		c.ch <- r
	}
}

// Close stops accepting records and returns everything collected, in
// arrival order. Subsequent calls return the same slice.
func (c *Collector) Close() []model.VendorRecord {
	c.once.Do(func() { close(c.ch) })
	<-c.done
	return c.records
}
