package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raysh454/evscout/internal/aggregator"
	"github.com/raysh454/evscout/internal/exporter"
	"github.com/raysh454/evscout/internal/logging"
	"github.com/raysh454/evscout/internal/model"
)

type RunStatus string

const (
	RunPending  RunStatus = "pending"
	RunRunning  RunStatus = "running"
	RunDone     RunStatus = "done"
	RunFailed   RunStatus = "failed"
	RunCanceled RunStatus = "canceled"
)

type Stage string

const (
	StageEnumerate Stage = "enumerate"
	StageEnrich    Stage = "enrich"
	StageClassify  Stage = "classify"
	StageHarvest   Stage = "harvest"
	StageExport    Stage = "export"
)

type RunEventType string

const (
	RunEventStatus   RunEventType = "status"
	RunEventProgress RunEventType = "progress"
)

// RunEvent reports status changes and finished stages of a run.
type RunEvent struct {
	RunID string       `json:"run_id"`
	Type  RunEventType `json:"type"`

	// For status changes
	Status RunStatus `json:"status,omitempty"`
	Error  string    `json:"error,omitempty"`

	// For progress
	Stage Stage `json:"stage,omitempty"`
	Count int   `json:"count"`
}

// Result summarizes a finished run.
type Result struct {
	RunID     string
	Status    RunStatus
	StartedAt time.Time
	EndedAt   time.Time

	Matches []model.DeviceMatch
	Hosts   []*model.HostInfo
	Devices []model.Device
	Records []model.VendorRecord

	HostTable   aggregator.Table
	RecordTable aggregator.Table
	Paths       *exporter.Paths
}

// Pipeline runs enumerate → enrich → classify → harvest → aggregate → export.
type Pipeline struct {
	cfg    *Config
	comps  *Components
	logger logging.Logger

	eventsMu sync.Mutex
	events   chan RunEvent
}

func NewPipeline(cfg *Config, comps *Components, logger logging.Logger) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Pipeline{
		cfg:    cfg,
		comps:  comps,
		logger: logger.With(logging.Field{Key: "component", Value: "pipeline"}),
	}
}

// Events returns a channel receiving the events of subsequent runs. It is
// closed when a run ends. Events are dropped when the buffer is full.
func (p *Pipeline) Events() <-chan RunEvent {
	p.eventsMu.Lock()
	defer p.eventsMu.Unlock()
	if p.events == nil {
		p.events = make(chan RunEvent, 32)
	}
	return p.events
}

func (p *Pipeline) emit(ev RunEvent) {
	p.eventsMu.Lock()
	defer p.eventsMu.Unlock()
	if p.events == nil {
		return
	}
	// Non-blocking send; drop if buffer is full.
	select {
	case p.events <- ev:
	default:
	}
}

func (p *Pipeline) closeEvents() {
	p.eventsMu.Lock()
	defer p.eventsMu.Unlock()
	if p.events != nil {
		close(p.events)
		p.events = nil
	}
}

func (p *Pipeline) progress(runID string, stage Stage, count int) {
	p.logger.Info("stage finished",
		logging.Field{Key: "run_id", Value: runID},
		logging.Field{Key: "stage", Value: string(stage)},
		logging.Field{Key: "count", Value: count})
	p.emit(RunEvent{RunID: runID, Type: RunEventProgress, Stage: stage, Count: count})
}

// Run executes one full run. Device-level failures only shrink the tables;
// the returned error is limited to output failures and cancellation.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.comps == nil {
		return nil, errors.New("pipeline has no components")
	}
	defer p.closeEvents()

	res := &Result{
		RunID:     uuid.New().String(),
		Status:    RunPending,
		StartedAt: time.Now().UTC(),
	}
	log := p.logger.With(logging.Field{Key: "run_id", Value: res.RunID})
	p.emit(RunEvent{RunID: res.RunID, Type: RunEventStatus, Status: RunPending})

	res.Status = RunRunning
	p.emit(RunEvent{RunID: res.RunID, Type: RunEventStatus, Status: RunRunning})
	log.Info("run started", logging.Field{Key: "titles", Value: len(p.cfg.Titles)})

	res.Matches = p.comps.Enumerator.Enumerate(ctx, p.cfg.Titles)
	p.progress(res.RunID, StageEnumerate, len(res.Matches))

	res.Hosts = p.comps.Enricher.EnrichAll(ctx, res.Matches)
	p.progress(res.RunID, StageEnrich, countHosts(res.Hosts))

	res.Devices = p.classify(res.Matches, res.Hosts)
	p.progress(res.RunID, StageClassify, len(res.Devices))

	res.Records = p.comps.Harvester.Run(ctx, res.Devices)
	p.progress(res.RunID, StageHarvest, len(res.Records))

	res.HostTable = aggregator.HostTable(res.Hosts)
	res.RecordTable = aggregator.Aggregate(res.Records, aggregator.Options{NormalizeColumns: p.cfg.NormalizeColumns})

	if err := ctx.Err(); err != nil {
		return p.finish(res, RunCanceled, err)
	}

	res.EndedAt = time.Now().UTC()
	paths, err := p.comps.Exporter.Export(ctx, exporter.RunInfo{
		ID:         res.RunID,
		StartedAt:  res.StartedAt,
		FinishedAt: res.EndedAt,
		Matches:    len(res.Matches),
		Devices:    len(res.Devices),
	}, res.HostTable, res.RecordTable)
	if err != nil {
		return p.finish(res, RunFailed, fmt.Errorf("export: %w", err))
	}
	res.Paths = paths
	p.progress(res.RunID, StageExport, len(res.RecordTable.Rows))

	return p.finish(res, RunDone, nil)
}

func (p *Pipeline) finish(res *Result, status RunStatus, err error) (*Result, error) {
	res.Status = status
	if res.EndedAt.IsZero() {
		res.EndedAt = time.Now().UTC()
	}

	ev := RunEvent{RunID: res.RunID, Type: RunEventStatus, Status: status}
	fields := []logging.Field{
		{Key: "run_id", Value: res.RunID},
		{Key: "status", Value: string(status)},
		{Key: "matches", Value: len(res.Matches)},
		{Key: "devices", Value: len(res.Devices)},
		{Key: "records", Value: len(res.Records)},
		{Key: "duration", Value: res.EndedAt.Sub(res.StartedAt).String()},
	}
	if err != nil {
		ev.Error = err.Error()
		p.logger.Error("run ended", append(fields, logging.Field{Key: "error", Value: err.Error()})...)
	} else {
		p.logger.Info("run ended", fields...)
	}
	p.emit(ev)
	return res, err
}

// classify resolves each match's vendor from its title. Unclassified matches
// only appear in the hosts table.
func (p *Pipeline) classify(matches []model.DeviceMatch, hosts []*model.HostInfo) []model.Device {
	devices := make([]model.Device, 0, len(matches))
	for i, m := range matches {
		vendor := p.comps.Registry.Classify(m.Title)
		if vendor == model.VendorUnknown {
			p.logger.Debug("no extractor for title",
				logging.Field{Key: "ip", Value: m.IP},
				logging.Field{Key: "title", Value: m.Title})
			continue
		}
		var host *model.HostInfo
		if i < len(hosts) {
			host = hosts[i]
		}
		devices = append(devices, model.Device{IP: m.IP, Vendor: vendor, Host: host})
	}
	return devices
}

func countHosts(hosts []*model.HostInfo) int {
	n := 0
	for _, h := range hosts {
		if h != nil {
			n++
		}
	}
	return n
}
