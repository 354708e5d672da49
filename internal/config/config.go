// Package config loads application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/viper"
)

// Config holds every knob the bot needs, loaded from a config file or
// environment variables.
type Config struct {
	Port string `mapstructure:"PORT"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`

	RedditClientID     string `mapstructure:"REDDIT_CLIENT_ID"`
	RedditClientSecret string `mapstructure:"REDDIT_CLIENT_SECRET"`
	RedditRefreshToken string `mapstructure:"REDDIT_REFRESH_TOKEN"`
	RedditUserAgent    string `mapstructure:"REDDIT_USER_AGENT"`

	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`

	// Subreddits the scraper sweeps. The priority subreddit gets the longer
	// visibility window and bypasses the keyword filter.
	Subreddits        []string `mapstructure:"SUBREDDITS"`
	PrioritySubreddit string   `mapstructure:"PRIORITY_SUBREDDIT"`
	Keywords          []string `mapstructure:"KEYWORDS"`
	ScrapeLimit       int      `mapstructure:"SCRAPE_LIMIT"`

	SitemapURL       string `mapstructure:"SITEMAP_URL"`
	FallbackBlogLink string `mapstructure:"FALLBACK_BLOG_LINK"`

	// Optional: when both are set, the scraper pings this Discord channel
	// whenever new suggestions land in the queue.
	DiscordBotToken       string `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordAlertChannelID string `mapstructure:"DISCORD_ALERT_CHANNEL_ID"`
}

// Load reads configuration from ./config.yml (if present) and the environment.
func Load() (*Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("Config file not found; using environment variables and defaults")
	}

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "bot")
	viper.SetDefault("DB_PASSWORD", "bot")
	viper.SetDefault("DB_NAME", "bot_data")
	viper.SetDefault("REDDIT_USER_AGENT", "script:smp-suggestion-bot:v1.0 (by u/Alex_Ash_)")
	viper.SetDefault("SUBREDDITS", []string{"SMPchat", "Hairloss", "bald", "tressless"})
	viper.SetDefault("PRIORITY_SUBREDDIT", "SMPchat")
	viper.SetDefault("KEYWORDS", []string{
		"smp", "hair", "scalp", "bald", "follicle", "loss", "density",
		"microblading", "tattoo", "pigmentation", "hairline", "scar", "scars",
	})
	viper.SetDefault("SCRAPE_LIMIT", 50)

	// AutomaticEnv alone does not register keys for Unmarshal; every key
	// without a default needs an explicit binding or it reads as empty.
	for _, key := range []string{
		"REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET", "REDDIT_REFRESH_TOKEN",
		"GEMINI_API_KEY", "SITEMAP_URL", "FALLBACK_BLOG_LINK",
		"DISCORD_BOT_TOKEN", "DISCORD_ALERT_CHANNEL_ID",
	} {
		if err := viper.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

// ValidateReddit reports whether the Reddit credentials are present.
func (c *Config) ValidateReddit() error {
	if c.RedditClientID == "" || c.RedditClientSecret == "" || c.RedditRefreshToken == "" {
		return errors.New("REDDIT_CLIENT_ID, REDDIT_CLIENT_SECRET and REDDIT_REFRESH_TOKEN must be set")
	}
	return nil
}
