package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"election_watch/config"
	"election_watch/digest"
	"election_watch/elections"
	"election_watch/httputil"
	"election_watch/logging"
	"election_watch/notify"
	"election_watch/scheduler"
	"election_watch/scraper"
	"election_watch/sopn"
	"election_watch/storage"
)

var (
	scrapeNow = flag.Bool("scrape", false, "Force a fresh aggregation pass, ignoring the weekly gate")
	daemon    = flag.Bool("daemon", false, "Run on a schedule instead of a single gated pass")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("watcher.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting election_watch...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open snapshot store: %v", err)
	}
	defer store.Close()

	predictor, err := sopn.Load(cfg.SopnRulesPath)
	if err != nil {
		log.Fatalf("Failed to load SOPN rules: %v", err)
	}

	clients := httputil.NewClients()
	client := elections.NewClient(clients.API, cfg.Feed.ElectionsURL, cfg.Feed.CandidatesURL)
	aggregator := scraper.New(client, predictor, cfg.Scraper)
	formatter := digest.New(rand.New(rand.NewSource(time.Now().UnixNano())))
	notifier := notify.New(cfg.WebhookURL, clients.Webhook)
	if !notifier.Enabled() {
		log.Println("SLACK_WEBHOOK_URL not set, digest delivery disabled")
	}

	gate := scheduler.NewGate(store, aggregator, formatter, notifier)

	if !*daemon {
		if err := gate.Run(ctx, *scrapeNow); err != nil {
			log.Fatalf("Run failed: %v", err)
		}
		log.Println("Done")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sched := scheduler.NewDaemon(cfg.Scheduler, gate)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.DatabaseURL != "" {
		store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Println("Using Postgres snapshot store")
		return store, nil
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	log.Printf("Using SQLite snapshot store: %s", cfg.DBPath)
	return store, nil
}
