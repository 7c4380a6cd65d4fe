// Package logsink шлёт события экрана во внешний приёмник логов (GAS).
// Доставка best-effort: ошибки глотаются, в процесс они не возвращаются.
package logsink

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Client отправляет события с корреляционным идентификатором сессии.
// nil-клиент безопасен и молча ничего не делает.
type Client struct {
	url     string
	screen  string
	session string

	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// New создаёт клиента приёмника логов. Пустой url выключает отправку
// целиком (возвращается nil, все методы nil-безопасны).
func New(url, screen string, log zerolog.Logger) *Client {
	if url == "" {
		return nil
	}
	return &Client{
		url:     url,
		screen:  screen,
		session: uuid.NewString(),
		client:  &http.Client{Timeout: 10 * time.Second},
		// Защита от флуда: приёмник — таблица, а не конвейер логов.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		log:     log,
	}
}

// SessionID возвращает идентификатор сессии для корреляции.
func (c *Client) SessionID() string {
	if c == nil {
		return ""
	}
	return c.session
}

type payload struct {
	Timestamp string `json:"timestamp"`
	SessionID string `json:"sessionId"`
	Screen    string `json:"screen"`
	Event     string `json:"event"`
	Data      any    `json:"data,omitempty"`
}

// Send отправляет событие в фоне. Никогда не блокирует вызывающего
// дольше, чем на проверку лимитера.
func (c *Client) Send(event string, data any) {
	if c == nil {
		return
	}
	if !c.limiter.Allow() {
		c.log.Debug().Str("event", event).Msg("logsink: событие пропущено лимитером")
		return
	}

	body, err := json.Marshal(payload{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		SessionID: c.session,
		Screen:    c.screen,
		Event:     event,
		Data:      data,
	})
	if err != nil {
		c.log.Debug().Err(err).Str("event", event).Msg("logsink: сериализация не удалась")
		return
	}

	go c.post(event, body)
}

func (c *Client) post(event string, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		c.log.Debug().Err(err).Msg("logsink: create request")
		return
	}
	// GAS принимает только text/plain без preflight.
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("event", event).Msg("logsink: отправка не удалась")
		return
	}
	resp.Body.Close()
}
