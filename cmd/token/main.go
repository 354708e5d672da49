// Command token walks the operator through Reddit's OAuth consent flow and
// prints the permanent refresh token the bot account needs.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/stroombox/reddit-bot-project/internal/reddit"
)

func main() {
	_ = godotenv.Load() // Load .env file if it exists (for local testing)

	clientID := os.Getenv("REDDIT_CLIENT_ID")
	clientSecret := os.Getenv("REDDIT_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		log.Fatal("REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET must be set")
	}

	redirectURI := os.Getenv("REDDIT_REDIRECT_URI")
	if redirectURI == "" {
		redirectURI = "http://localhost:8080"
	}
	userAgent := os.Getenv("REDDIT_USER_AGENT")
	if userAgent == "" {
		userAgent = "refresh-token-generator"
	}

	// The bot needs to read listings/comments, post replies and know its
	// own username.
	scopes := []string{"identity", "read", "submit"}
	authURL := reddit.AuthorizeURL(clientID, redirectURI, "token-setup", scopes)

	fmt.Println("1) Open this URL in your browser and approve the app:")
	fmt.Println()
	fmt.Println("  " + authURL)
	fmt.Println()
	fmt.Print("2) After clicking Allow you'll land on the redirect URI with ?code=XYZ. Paste the code here: ")

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		log.Fatalf("Failed to read code: %v", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		log.Fatal("No code provided")
	}

	tok, err := reddit.ExchangeCodeForToken(context.Background(), code, redirectURI, clientID, clientSecret, userAgent)
	if err != nil {
		log.Fatalf("Token exchange failed: %v", err)
	}
	if tok.RefreshToken == "" {
		log.Fatal("Reddit did not return a refresh token (is duration=permanent set?)")
	}

	fmt.Println()
	fmt.Println("🎉 Your refresh token (put this in REDDIT_REFRESH_TOKEN):")
	fmt.Println()
	fmt.Println("  " + tok.RefreshToken)
}
