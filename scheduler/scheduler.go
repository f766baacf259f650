package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"election_watch/config"
	"election_watch/digest"
	"election_watch/models"
	"election_watch/notify"
	"election_watch/storage"
)

// UpdateFrequency is how long a persisted run stays fresh. Within the
// window the gate replays the stored snapshot instead of hitting upstream.
const UpdateFrequency = 7 * 24 * time.Hour

// Aggregator is the scrape pass the gate triggers when the snapshot is
// stale.
type Aggregator interface {
	Aggregate(ctx context.Context, now time.Time) ([]models.Ballot, error)
}

// Gate decides per invocation whether to aggregate fresh data or replay the
// last persisted run.
type Gate struct {
	store      storage.Store
	aggregator Aggregator
	formatter  *digest.Formatter
	notifier   *notify.Notifier

	now func() time.Time
}

func NewGate(store storage.Store, aggregator Aggregator, formatter *digest.Formatter, notifier *notify.Notifier) *Gate {
	return &Gate{
		store:      store,
		aggregator: aggregator,
		formatter:  formatter,
		notifier:   notifier,
		now:        time.Now,
	}
}

// Run performs one gated pass. force bypasses the freshness check.
func (g *Gate) Run(ctx context.Context, force bool) error {
	last, err := g.store.LatestRunTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("latest run timestamp: %w", err)
	}

	if !force && last != nil && g.now().Before(last.Add(UpdateFrequency)) {
		log.Println("Nothing to do today, replaying results from the last run")
		ballots, err := g.store.BallotsForRun(ctx, *last)
		if err != nil {
			return fmt.Errorf("replay run %s: %w", last.Format(time.RFC3339), err)
		}
		return g.deliver(ctx, ballots)
	}

	return g.scrape(ctx)
}

func (g *Gate) scrape(ctx context.Context) error {
	run := models.NewRun(g.now())
	if err := g.store.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	ballots, err := g.aggregator.Aggregate(ctx, run.StartedAt)
	if err != nil {
		g.finishRun(ctx, run, models.RunStatusFailed, 0)
		return fmt.Errorf("aggregate: %w", err)
	}

	if err := g.store.SaveRun(ctx, run.StartedAt, ballots); err != nil {
		g.finishRun(ctx, run, models.RunStatusFailed, len(ballots))
		return fmt.Errorf("save run: %w", err)
	}
	g.finishRun(ctx, run, models.RunStatusCompleted, len(ballots))

	return g.deliver(ctx, ballots)
}

func (g *Gate) finishRun(ctx context.Context, run *models.Run, status models.RunStatus, found int) {
	now := g.now()
	run.FinishedAt = &now
	run.Status = status
	run.BallotsFound = found
	if err := g.store.FinishRun(ctx, run); err != nil {
		log.Printf("Warning: could not finish run record: %v", err)
	}
}

func (g *Gate) deliver(ctx context.Context, ballots []models.Ballot) error {
	text := g.formatter.Format(ballots)
	log.Println("=====")
	log.Println(text)

	if !g.notifier.Enabled() {
		log.Println("No webhook configured, skipping delivery")
		return nil
	}
	if err := g.notifier.Post(ctx, text); err != nil {
		return fmt.Errorf("deliver digest: %w", err)
	}
	return nil
}

// Daemon runs the gate on a cron schedule or fixed interval.
type Daemon struct {
	cfg    config.SchedulerConfig
	gate   *Gate
	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}
}

func NewDaemon(cfg config.SchedulerConfig, gate *Gate) *Daemon {
	return &Daemon{
		cfg:    cfg,
		gate:   gate,
		cron:   cron.New(),
		stopCh: make(chan struct{}),
	}
}

func (d *Daemon) Start(ctx context.Context) error {
	if d.cfg.Cron != "" {
		log.Printf("Starting scheduler with cron: %s", d.cfg.Cron)
		_, err := d.cron.AddFunc(d.cfg.Cron, func() {
			if err := d.gate.Run(ctx, false); err != nil {
				log.Printf("Scheduled run error: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		d.cron.Start()
		return nil
	}

	if d.cfg.Interval > 0 {
		log.Printf("Starting scheduler with interval: %s", d.cfg.Interval)
		d.ticker = time.NewTicker(d.cfg.Interval)
		go func() {
			for {
				select {
				case <-d.ticker.C:
					if err := d.gate.Run(ctx, false); err != nil {
						log.Printf("Scheduled run error: %v", err)
					}
				case <-d.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
		return nil
	}

	return fmt.Errorf("daemon mode needs SCRAPE_CRON or SCRAPE_INTERVAL")
}

func (d *Daemon) Stop() {
	if d.cron != nil {
		d.cron.Stop()
	}
	if d.ticker != nil {
		d.ticker.Stop()
	}
	close(d.stopCh)
}
