// Package poller runs the current-conditions publishing loop: on each tick it
// reads the configured station's current window, trims rows past the last
// actual observation, and publishes anything new downstream.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/plainswx/mesonet-data-service/internal/domain"
	"github.com/plainswx/mesonet-data-service/internal/observability"
	"github.com/plainswx/mesonet-data-service/internal/service"
)

// Publisher writes observations to the sink.
type Publisher interface {
	PublishBatch(ctx context.Context, obs []domain.Observation) error
}

// Reader supplies the current observation window for a site.
type Reader interface {
	RemoteData(ctx context.Context, opts service.Options) (*domain.Table, error)
}

// Poller drives the periodic read-and-publish loop for one station.
type Poller struct {
	reader    Reader
	publisher Publisher
	site      string
	interval  time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool

	// lastPublished is the observation time of the newest published row;
	// rows at or before it are skipped on the next tick. Guarded by mu since
	// the ops endpoints read it from another goroutine.
	mu            sync.Mutex
	lastPublished time.Time
}

// New creates a Poller for one station.
func New(reader Reader, publisher Publisher, site string, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Poller {
	return &Poller{
		reader:    reader,
		publisher: publisher,
		site:      site,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once at least one poll has published successfully.
func (p *Poller) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("poller has not completed a poll yet")
	}
	return nil
}

// Site returns the station ID this loop polls.
func (p *Poller) Site() string { return p.site }

// LastObserved returns the observation time of the newest published row,
// zero before the first publish.
func (p *Poller) LastObserved() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPublished
}

// Run polls immediately, then on every interval tick until the context is
// cancelled. A failed poll is logged and retried with exponential backoff
// between ticks; the loop itself never aborts on data errors.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("poller started", "site", p.site, "interval", p.interval)
	p.metrics.PollerRunning.Set(1)
	defer p.metrics.PollerRunning.Set(0)

	backoff := 5 * time.Second
	maxBackoff := p.interval

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("poller stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Error("poll failed", "site", p.site, "error", err)
			if !sleepWithContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 5 * time.Second

		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
		}
	}
}

// pollOnce runs one read-trim-publish cycle. The first cycle reads the full
// 24-hour window so a restart backfills the day; later cycles read only
// today's file.
func (p *Poller) pollOnce(ctx context.Context) error {
	last := p.LastObserved()

	opts := service.DefaultOptions()
	opts.Site = p.site
	opts.FullDayRecord = last.IsZero()

	table, err := p.reader.RemoteData(ctx, opts)
	if err != nil {
		return err
	}

	end, err := domain.LastObservedTime(table, "TAIR", "datetime")
	if err != nil {
		return fmt.Errorf("find last observation: %w", err)
	}

	all, err := table.Observations()
	if err != nil {
		return err
	}

	fresh := make([]domain.Observation, 0, len(all))
	for _, o := range all {
		if o.ObservedAt.After(last) && !o.ObservedAt.After(end) {
			fresh = append(fresh, o)
		}
	}
	if len(fresh) == 0 {
		p.ready.Store(true)
		p.logger.Debug("no new observations", "site", p.site, "last_observed", end)
		return nil
	}

	if err := p.publisher.PublishBatch(ctx, fresh); err != nil {
		return fmt.Errorf("publish batch: %w", err)
	}

	p.metrics.ObservationsPublished.Add(float64(len(fresh)))
	p.mu.Lock()
	p.lastPublished = end
	p.mu.Unlock()
	p.ready.Store(true)
	p.logger.Info("published observations", "site", p.site, "count", len(fresh), "through", end)
	return nil
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
