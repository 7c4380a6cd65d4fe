package auth

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Таймаут походов к прокси токенов; дольше ждать нет смысла.
const proxyTimeout = 10 * time.Second

// Credential — учётные данные YouTube, выданные прокси токенов.
type Credential struct {
	AccessToken string
	Channel     string
	ExpiresAt   time.Time
}

// GetAlertboxToken запрашивает YouTube-токен алертбокса у прокси Doneru.
func GetAlertboxToken(apiURL, key string) (Credential, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return Credential{}, fmt.Errorf("alertbox token: parse url: %w", err)
	}
	q := u.Query()
	q.Set("type", "alertbox")
	q.Set("key", strings.TrimSpace(key))
	u.RawQuery = q.Encode()

	client := &http.Client{Timeout: proxyTimeout}
	resp, err := client.Get(u.String())
	if err != nil {
		return Credential{}, fmt.Errorf("alertbox token: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Credential{}, fmt.Errorf("alertbox token: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		YouTube struct {
			AT      string `json:"at"`
			Channel string `json:"channel"`
			Exp     int64  `json:"exp"`
		} `json:"youtube"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Credential{}, fmt.Errorf("alertbox token: decode response: %w", err)
	}
	if payload.YouTube.AT == "" {
		return Credential{}, fmt.Errorf("alertbox token: empty access token in response")
	}

	// exp — unix-секунды истечения, прокси отдаёт ответ Doneru как есть.
	return Credential{
		AccessToken: payload.YouTube.AT,
		Channel:     payload.YouTube.Channel,
		ExpiresAt:   time.Unix(payload.YouTube.Exp, 0),
	}, nil
}
