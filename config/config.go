package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	WebhookURL    string
	DBPath        string
	DatabaseURL   string // when set, Postgres is used instead of SQLite
	SopnRulesPath string
	Feed          FeedConfig
	Scheduler     SchedulerConfig
	Scraper       ScraperConfig
}

type FeedConfig struct {
	ElectionsURL  string // paginated upcoming-elections feed
	CandidatesURL string // base URL for ballot detail + public pages
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type ScraperConfig struct {
	PageSize    int
	PageDelay   time.Duration
	DetailDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		WebhookURL:    os.Getenv("SLACK_WEBHOOK_URL"),
		DBPath:        getEnv("DB_PATH", "data.sqlite"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SopnRulesPath: getEnv("SOPN_RULES_PATH", "config/sopn_rules.yaml"),
		Feed: FeedConfig{
			ElectionsURL:  getEnv("ELECTIONS_API_URL", "https://elections.democracyclub.org.uk/api/elections.json"),
			CandidatesURL: getEnv("CANDIDATES_API_URL", "https://candidates.democracyclub.org.uk"),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Scraper: ScraperConfig{
			PageSize:    getEnvInt("FEED_PAGE_SIZE", 100),
			PageDelay:   time.Duration(getEnvInt("PAGE_DELAY_MS", 1000)) * time.Millisecond,
			DetailDelay: time.Duration(getEnvInt("DETAIL_DELAY_MS", 2000)) * time.Millisecond,
		},
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
