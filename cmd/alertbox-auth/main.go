package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"alertbox/auth"
	"alertbox/tokens"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "alertbox" {
		fmt.Fprintln(os.Stderr, "usage: alertbox-auth alertbox")
		os.Exit(1)
	}

	apiURL := strings.TrimSpace(os.Getenv("DONERU_TOKEN_API_URL"))
	if apiURL == "" {
		log.Fatal("DONERU_TOKEN_API_URL is required")
	}

	key := strings.TrimSpace(os.Getenv("DONERU_ALERTBOX_KEY"))
	if key == "" {
		log.Fatal("DONERU_ALERTBOX_KEY is required")
	}

	cred, err := auth.GetAlertboxToken(apiURL, key)
	if err != nil {
		log.Fatalf("get alertbox token: %v", err)
	}

	store := tokens.FileTokenStore{}
	if err := store.SaveToken(tokens.Token{
		Access:    cred.AccessToken,
		Channel:   cred.Channel,
		ExpiresAt: cred.ExpiresAt,
	}); err != nil {
		log.Fatalf("save alertbox token: %v", err)
	}

	fmt.Printf("ok, channel %s, expires at %s\n", cred.Channel, cred.ExpiresAt.Format(time.RFC3339))
}
