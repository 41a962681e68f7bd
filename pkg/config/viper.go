// Package config is responsible for initializing the application's
// configuration. It uses the Viper library to read settings from a config
// file and environment variables, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"sitedigest/internal/logging"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. Designed to be called once at startup.
func InitConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")                 // Current working directory
	viper.AddConfigPath("/etc/sitedigest/")  // System-wide configuration
	viper.AddConfigPath("$HOME/.sitedigest") // User-specific configuration

	// Crawl engine defaults.
	viper.SetDefault("scrape.user_agent", "sitedigest/1.0")
	viper.SetDefault("scrape.respect_robots", true)
	viper.SetDefault("scrape.subdomains", false)
	viper.SetDefault("scrape.redirect_limit", 3)
	viper.SetDefault("scrape.retries", 1)
	viper.SetDefault("scrape.max_depth", 0)
	viper.SetDefault("scrape.delay_ms", 1000)
	viper.SetDefault("scrape.concurrency", 1)
	viper.SetDefault("scrape.event_buffer", 888)

	// Summarization defaults.
	viper.SetDefault("summarize.batch_size", 100)
	viper.SetDefault("summarize.api_key_env", "SITEDIGEST_MODEL_API_KEY")

	// Enable Viper to read environment variables,
	// e.g. SITEDIGEST_SCRAPE_CONCURRENCY=4.
	viper.SetEnvPrefix("SITEDIGEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Not fatal; defaults and environment variables still apply.
			logging.L.Debug("Config file not found; using defaults and environment variables.")
		} else {
			logging.L.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logging.L.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
