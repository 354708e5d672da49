package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/stroombox/reddit-bot-project/internal/ai"
	"github.com/stroombox/reddit-bot-project/internal/config"
	"github.com/stroombox/reddit-bot-project/internal/discord"
	"github.com/stroombox/reddit-bot-project/internal/links"
	"github.com/stroombox/reddit-bot-project/internal/processor"
	"github.com/stroombox/reddit-bot-project/internal/reddit"
	"github.com/stroombox/reddit-bot-project/internal/review"
	"github.com/stroombox/reddit-bot-project/internal/store"
)

func main() {
	_ = godotenv.Load() // Load .env file if it exists (for local testing)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Fatal: %v", err)
	}
	if err := cfg.ValidateReddit(); err != nil {
		log.Fatalf("Fatal: %v", err)
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal("Fatal: GEMINI_API_KEY must be set")
	}

	ctx := context.Background()

	db, err := store.Open(cfg.DSN(), cfg.PrioritySubreddit)
	if err != nil {
		log.Fatalf("Fatal: %v", err)
	}
	defer db.Close()

	redditClient := reddit.NewClient(cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditRefreshToken, cfg.RedditUserAgent)

	aiClient, err := ai.NewAIClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatalf("Fatal: %v", err)
	}
	defer aiClient.Close()

	var chooser review.LinkChooser
	if cfg.SitemapURL != "" {
		chooser = links.NewChooser(cfg.SitemapURL, cfg.FallbackBlogLink)
	}

	var notifier processor.Notifier
	if n := discord.NewNotifier(cfg.DiscordBotToken, cfg.DiscordAlertChannelID); n != nil {
		notifier = n
	}

	filter := processor.NewFilter(cfg.Keywords, cfg.PrioritySubreddit)
	pipeline := processor.NewPipeline(db, redditClient, filter, notifier, cfg.Subreddits, cfg.PrioritySubreddit, cfg.ScrapeLimit)

	svc := review.NewService(db, redditClient, aiClient, chooser)
	server := review.NewServer(svc)

	r := mux.NewRouter()
	r.Use(review.RequestID)
	server.Register(r)
	r.HandleFunc("/cron/scrape", pipeline.ServeCron).Methods(http.MethodPost, http.MethodGet)

	log.Printf("Listening on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, review.CORS(r)); err != nil {
		log.Fatalf("Fatal: %v", err)
	}
}
