// Package transit orchestrates whole-window transit acquisition: for every
// sampled instant it runs a strategy cascade against the provider under a
// bounded attempt budget, executing samples in fixed-size concurrent chunks.
package transit

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/DHCross/WovenWebApp-sub001/internal/graphics"
	"github.com/DHCross/WovenWebApp-sub001/internal/provider"
	"github.com/DHCross/WovenWebApp-sub001/internal/subject"
)

const (
	// DefaultChunkSize bounds simultaneous in-flight provider requests.
	DefaultChunkSize = 5
	// DefaultMaxAttempts is the per-sample budget across all strategies.
	DefaultMaxAttempts = 3
)

// Provider is the slice of the provider client the orchestrator consumes.
type Provider interface {
	TransitAspects(ctx context.Context, req provider.TransitRequest) (*provider.TransitResponse, error)
	TransitChart(ctx context.Context, req provider.TransitRequest) (*provider.TransitResponse, error)
}

// Params describes one whole-window fetch.
type Params struct {
	Subject subject.Subject
	Samples []Sample
	Options subject.Options
	// CaptureWheel lets at most one sample in the window also fetch a
	// rendered chart image via the costlier chart endpoint.
	CaptureWheel bool
}

// Provenance records how one sample's data was (or wasn't) obtained. It is
// diagnostic only and never drives retries.
type Provenance struct {
	Date        string `json:"date"`
	Strategy    string `json:"strategy"`
	Endpoint    string `json:"endpoint"`
	Attempts    int    `json:"attempts"`
	AspectCount int    `json:"aspect_count"`
}

// Result is the window-level outcome. Dates whose cascade exhausted appear
// only in ProvenanceByDate, with zero aspects; a partial window is always
// preferred over an aborted one.
type Result struct {
	TransitsByDate   map[string][]provider.Aspect
	RetroFlagsByDate map[string]map[string]bool
	ProvenanceByDate map[string]Provenance
	ChartAssets      []graphics.Packet
}

// Orchestrator runs window fetches against a provider.
type Orchestrator struct {
	provider    Provider
	chunkSize   int
	maxAttempts int
	logger      *slog.Logger
}

// New creates an Orchestrator. Non-positive chunkSize or maxAttempts fall
// back to the defaults.
func New(p Provider, chunkSize, maxAttempts int) *Orchestrator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Orchestrator{
		provider:    p,
		chunkSize:   chunkSize,
		maxAttempts: maxAttempts,
		logger:      slog.Default(),
	}
}

// run is the mutable state of one GetTransits call. The maps and the
// one-shot wheel flag are shared by the samples of a chunk, so every write
// goes through the mutex.
type run struct {
	mu           sync.Mutex
	result       *Result
	wheelClaimed bool
}

func (r *run) claimWheel() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wheelClaimed {
		return false
	}
	r.wheelClaimed = true
	return true
}

func (r *run) record(date string, aspects []provider.Aspect, retro map[string]bool, prov Provenance, packets []graphics.Packet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(aspects) > 0 {
		r.result.TransitsByDate[date] = aspects
	}
	if len(retro) > 0 {
		r.result.RetroFlagsByDate[date] = retro
	}
	r.result.ProvenanceByDate[date] = prov
	r.result.ChartAssets = append(r.result.ChartAssets, packets...)
}

// GetTransits fetches the whole window. Samples execute concurrently in
// chunks of chunkSize; chunk N+1 never starts before every sample of chunk
// N has settled. A sample's failure never blocks or cancels its siblings;
// it is recorded as zero-aspect provenance instead.
func (o *Orchestrator) GetTransits(ctx context.Context, params Params) (*Result, error) {
	r := &run{result: &Result{
		TransitsByDate:   make(map[string][]provider.Aspect),
		RetroFlagsByDate: make(map[string]map[string]bool),
		ProvenanceByDate: make(map[string]Provenance),
	}}

	strategies := strategiesFor(params.Subject)

	for start := 0; start < len(params.Samples); start += o.chunkSize {
		if err := ctx.Err(); err != nil {
			return r.result, err
		}
		end := min(start+o.chunkSize, len(params.Samples))

		g, gctx := errgroup.WithContext(ctx)
		for _, smp := range params.Samples[start:end] {
			g.Go(func() error {
				o.fetchSample(gctx, params, strategies, smp, r)
				return nil
			})
		}
		// fetchSample never returns an error; Wait is purely a barrier.
		_ = g.Wait()
	}

	return r.result, nil
}

// fetchSample walks the strategy cascade for one instant. Each strategy
// failure (API error, empty aspect list, unbuildable payload) advances to
// the next strategy; transport-level retries already happened inside the
// provider client. Exhaustion is recorded, never raised.
func (o *Orchestrator) fetchSample(ctx context.Context, params Params, strategies []strategy, smp Sample, r *run) {
	date := smp.DateKey()

	if len(strategies) == 0 {
		r.record(date, nil, nil, Provenance{Date: date, Strategy: "none", Attempts: 0}, nil)
		return
	}

	wheelMine := params.CaptureWheel && r.claimWheel()

	attempts := 0
	lastStrategy := ""
	lastEndpoint := ""
	for _, st := range strategies {
		if attempts >= o.maxAttempts {
			break
		}
		attempts++
		lastStrategy = st.name

		req, err := o.buildRequest(params, st, smp)
		if err != nil {
			o.logger.Debug("skipping strategy", "date", date, "strategy", st.name, "error", err)
			continue
		}

		endpoint := provider.EndpointAspects
		call := o.provider.TransitAspects
		if wheelMine {
			endpoint = provider.EndpointChart
			call = o.provider.TransitChart
		}
		lastEndpoint = endpoint

		resp, err := call(ctx, req)
		if err != nil {
			o.logger.Warn("transit fetch failed", "date", date, "strategy", st.name, "endpoint", endpoint, "error", err)
			continue
		}
		if len(resp.Aspects) == 0 {
			// Soft resolution failure: a 2xx with nothing in it.
			o.logger.Debug("strategy returned no aspects", "date", date, "strategy", st.name)
			continue
		}

		var packets []graphics.Packet
		if resp.Raw != nil {
			_, packets = graphics.Extract(resp.Raw, nil)
		}

		r.record(date, resp.Aspects, resp.RetroFlags(), Provenance{
			Date:        date,
			Strategy:    st.name,
			Endpoint:    endpoint,
			Attempts:    attempts,
			AspectCount: len(resp.Aspects),
		}, packets)
		return
	}

	r.record(date, nil, nil, Provenance{
		Date:        date,
		Strategy:    lastStrategy,
		Endpoint:    lastEndpoint,
		Attempts:    attempts,
		AspectCount: 0,
	}, nil)
}

// buildRequest assembles the provider request for one strategy: the natal
// subject in the strategy's natal formation, and a transiting subject
// pinned to the sample instant at the natal location, in the strategy's
// transit formation.
func (o *Orchestrator) buildRequest(params Params, st strategy, smp Sample) (provider.TransitRequest, error) {
	natalOpts := params.Options
	natalOpts.Formation = st.natal
	natalSub, err := subject.Build(params.Subject, natalOpts)
	if err != nil {
		return provider.TransitRequest{}, err
	}

	transitOpts := params.Options
	transitOpts.Formation = st.transit
	transSub, err := subject.Build(transitingSubject(params.Subject, smp), transitOpts)
	if err != nil {
		return provider.TransitRequest{}, err
	}

	return provider.TransitRequest{
		FirstSubject:   natalSub,
		TransitSubject: transSub,
	}, nil
}

// transitingSubject positions the sky at the sample instant over the natal
// subject's location.
func transitingSubject(natal subject.Subject, smp Sample) subject.Subject {
	name := "Transit " + smp.DateKey()
	if smp.Label != "" {
		name = smp.Label
	}
	tz := smp.Timezone
	if tz == "" {
		tz = natal.Timezone
	}
	local := smp.Local
	return subject.Subject{
		Name:      name,
		Year:      local.Year(),
		Month:     int(local.Month()),
		Day:       local.Day(),
		Hour:      local.Hour(),
		Minute:    local.Minute(),
		Second:    local.Second(),
		Latitude:  natal.Latitude,
		Longitude: natal.Longitude,
		Timezone:  tz,
		City:      natal.City,
		Nation:    natal.Nation,
	}
}
