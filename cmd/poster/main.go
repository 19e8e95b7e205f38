package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dghubble/go-twitter/twitter"
	"github.com/dghubble/oauth1"

	"github.com/mikequentel/sutraparser/internal/store"
)

const (
	attribution = "— 乾隆大藏经"
	hashtags    = "#佛经 #sutra"
	maxLen      = 280
	ellipsis    = "…"
	minBody     = 20
)

func main() {
	log.SetFlags(0)

	// --- Config (env) ---
	dbPath := envOr("SUTRA_DB", "./output/sutra.sqlite")
	dryRun := os.Getenv("DRY_RUN") == "1"

	ck := os.Getenv("X_CONSUMER_KEY")
	cs := os.Getenv("X_CONSUMER_SECRET")
	at := os.Getenv("X_ACCESS_TOKEN")
	as := os.Getenv("X_ACCESS_SECRET")

	// Allow running without creds if DRY_RUN=1
	if !dryRun {
		if err := requireEnv(map[string]string{
			"X_CONSUMER_KEY":    ck,
			"X_CONSUMER_SECRET": cs,
			"X_ACCESS_TOKEN":    at,
			"X_ACCESS_SECRET":   as,
		}); err != nil {
			log.Fatal(err)
		}
	}

	// --- DB init ---
	db, err := store.Open(dbPath)
	must(err)
	defer db.Close()

	ctx := context.Background()

	p, err := store.RandomUnposted(ctx, db)
	if errors.Is(err, store.ErrNoPassages) {
		log.Printf("[poster] %v", err)
		return
	}
	must(err)

	status := formatStatus(p)

	if dryRun {
		fmt.Println("DRY RUN ✅ (no network calls)")
		fmt.Printf("Will post passage %d of %s:\n---\n%s\n---\n", p.ID, p.BookID, status)
		return
	}

	client := newTwitterClient(newOAuthClient(ck, cs, at, as))
	postID, err := postStatus(client, status)
	must(err)
	log.Printf("[poster] posted %s", postID)

	must(store.MarkPosted(ctx, db, p.ID, postID))
	log.Printf("[poster] marked passage %d of %s as posted at %s", p.ID, p.BookID, time.Now().Format(time.RFC3339))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func requireEnv(vars map[string]string) error {
	var missing []string
	for k, v := range vars {
		if v == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func runeLen(s string) int { return len([]rune(s)) }

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if n >= len(r) {
		return s
	}
	if n < 0 {
		n = 0
	}
	return string(r[:n])
}

// location renders "juan·chapter", skipping empty parts.
func location(p *store.Passage) string {
	var parts []string
	for _, s := range []string{p.JuanName, p.ChapterName} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "·")
}

// formatStatus builds "《title》juan·chapter: text — attribution #tags",
// truncating the passage text so the whole status fits in maxLen runes. When
// the header alone leaves less than minBody runes for the text, the header is
// shortened too.
func formatStatus(p *store.Passage) string {
	const sep = ": "
	header := "《" + strings.TrimSpace(p.BookTitle) + "》" + location(p)
	body := strings.TrimSpace(p.Text)
	tail := " " + attribution + " " + hashtags

	text := header + sep + body + tail
	if runeLen(text) <= maxLen {
		return text
	}

	room := maxLen - runeLen(sep) - runeLen(tail) // for header + body
	bodyRoom := min(runeLen(body), minBody)
	if headRoom := room - bodyRoom; runeLen(header) > headRoom {
		header = truncateRunes(header, headRoom-runeLen(ellipsis)) + ellipsis
	}

	avail := room - runeLen(header)
	if runeLen(body) > avail {
		body = truncateRunes(body, avail-runeLen(ellipsis)) + ellipsis
	}
	return header + sep + body + tail
}

func newOAuthClient(consumerKey, consumerSecret, accessToken, accessSecret string) *http.Client {
	config := oauth1.NewConfig(consumerKey, consumerSecret)
	token := oauth1.NewToken(accessToken, accessSecret)
	return config.Client(context.Background(), token)
}

func newTwitterClient(httpClient *http.Client) *twitter.Client {
	return twitter.NewClient(httpClient)
}

func postStatus(client *twitter.Client, status string) (string, error) {
	tweet, _, err := client.Statuses.Update(status, nil)
	if err != nil {
		return "", fmt.Errorf("post status: %w", err)
	}
	if tweet.IDStr != "" {
		return tweet.IDStr, nil
	}
	if tweet.ID != 0 {
		return fmt.Sprintf("%d", tweet.ID), nil
	}
	return "", fmt.Errorf("post status: response missing id")
}
