package crawler

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config captures every configuration knob that influences a crawl run.
// All values originate from Viper so the engine can be configured via files,
// env vars, or CLI flags.
type Config struct {
	UserAgent       string
	AllowSubdomains bool
	RedirectLimit   int
	Retries         int
	MaxDepth        int
	RespectRobots   bool
	Delay           time.Duration
	Concurrency     int
	EventBuffer     int
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		UserAgent:       v.GetString("scrape.user_agent"),
		AllowSubdomains: v.GetBool("scrape.subdomains"),
		RedirectLimit:   v.GetInt("scrape.redirect_limit"),
		Retries:         v.GetInt("scrape.retries"),
		MaxDepth:        v.GetInt("scrape.max_depth"),
		RespectRobots:   v.GetBool("scrape.respect_robots"),
		Delay:           time.Duration(v.GetInt("scrape.delay_ms")) * time.Millisecond,
		Concurrency:     v.GetInt("scrape.concurrency"),
		EventBuffer:     v.GetInt("scrape.event_buffer"),
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.UserAgent == "" {
		return fmt.Errorf("scrape.user_agent must be set")
	}
	if c.RedirectLimit < 0 {
		return fmt.Errorf("scrape.redirect_limit must be >= 0")
	}
	if c.Retries < 0 {
		return fmt.Errorf("scrape.retries must be >= 0")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("scrape.max_depth must be >= 0")
	}
	if c.Delay < 0 {
		return fmt.Errorf("scrape.delay_ms must be >= 0")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("scrape.concurrency must be > 0")
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("scrape.event_buffer must be > 0")
	}
	return nil
}
