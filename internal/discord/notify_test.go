package discord

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestNewNotifierDisabledWhenUnconfigured(t *testing.T) {
	if NewNotifier("", "chan") != nil {
		t.Error("notifier created without a token")
	}
	if NewNotifier("tok", "") != nil {
		t.Error("notifier created without a channel")
	}
	if NewNotifier("tok", "chan") == nil {
		t.Error("fully configured notifier came back nil")
	}
}

func TestNotifyNewSuggestions(t *testing.T) {
	var gotAuth string
	var gotPayload discordgo.MessageSend

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/channels/chan-1/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Fatal(err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier("tok-1", "chan-1")
	n.apiBase = srv.URL
	n.httpClient = srv.Client()

	err := n.NotifyNewSuggestions(3, map[string]int{"bald": 2, "SMPchat": 1, "tressless": 0})
	if err != nil {
		t.Fatalf("NotifyNewSuggestions() error = %v", err)
	}

	if gotAuth != "Bot tok-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(gotPayload.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(gotPayload.Embeds))
	}
	embed := gotPayload.Embeds[0]
	if !strings.Contains(embed.Title, "3 new suggestions") {
		t.Errorf("embed title = %q", embed.Title)
	}
	if !strings.Contains(embed.Description, "r/bald: 2 new") {
		t.Errorf("embed description = %q", embed.Description)
	}
	if strings.Contains(embed.Description, "tressless") {
		t.Error("zero-count subreddit listed in summary")
	}
}

func TestSendMessageSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"Missing Access"}`))
	}))
	defer srv.Close()

	n := NewNotifier("tok-1", "chan-1")
	n.apiBase = srv.URL
	n.httpClient = srv.Client()

	err := n.SendMessage("hello")
	if err == nil {
		t.Fatal("SendMessage() succeeded despite 403")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error does not mention status: %v", err)
	}
}
