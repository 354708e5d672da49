// Package discord pings the operator channel when the scraper queues new
// suggestions. Plain REST (no websocket) is plenty for one-way alerts.
package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

const discordAPI = "https://discord.com/api/v10"

// Notifier is a minimal Discord REST client for proactive channel messages.
type Notifier struct {
	token      string
	channelID  string
	apiBase    string
	httpClient *http.Client
}

// NewNotifier initializes a Notifier. Returns nil when token or channel is
// unset, which callers treat as "alerts disabled".
func NewNotifier(token, channelID string) *Notifier {
	if token == "" || channelID == "" {
		return nil
	}
	return &Notifier{
		token:      token,
		channelID:  channelID,
		apiBase:    discordAPI,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) doRequest(method, endpoint string, body interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, n.apiBase+endpoint, bodyReader)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bot "+n.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "DiscordBot (https://github.com/stroombox/reddit-bot-project, 1.0.0)")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord API error %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SendMessage sends a plain text message to the alert channel.
func (n *Notifier) SendMessage(content string) error {
	payload := map[string]string{"content": content}
	return n.doRequest("POST", "/channels/"+n.channelID+"/messages", payload)
}

// NotifyNewSuggestions posts a summary embed after a scrape run that queued
// at least one new suggestion.
func (n *Notifier) NotifyNewSuggestions(added int, perSubreddit map[string]int) error {
	desc := ""
	for sub, count := range perSubreddit {
		if count > 0 {
			desc += fmt.Sprintf("r/%s: %d new\n", sub, count)
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📬 %d new suggestions waiting for review", added),
		Description: desc,
		Color:       0x00B0F4,
		Timestamp:   time.Now().Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: "SMP suggestion bot",
		},
	}

	payload := discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
	}
	return n.doRequest("POST", "/channels/"+n.channelID+"/messages", payload)
}
