package connector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"alertbox/model"
	"alertbox/tokens"
)

const youtubeAPIBase = "https://www.googleapis.com/youtube/v3"

// YouTubeConnector — polling-источник: liveChatMessages.list с курсором
// pageToken. Эмитирует только superchat; остальной чат его не интересует.
//
// Конвертация валют не выполняется: jpy повторяет amount. Это известное
// ограничение исходного виджета, а не дефект.
type YouTubeConnector struct {
	apiBase string
	tokens  *tokens.Manager
	client  *http.Client
	log     zerolog.Logger

	// Пол интервала опроса: чаще не ходим, что бы сервер ни советовал.
	minInterval      time.Duration
	noBroadcastDelay time.Duration
}

// NewYouTube создаёт коннектор поверх менеджера токенов алертбокса.
func NewYouTube(manager *tokens.Manager, log zerolog.Logger) *YouTubeConnector {
	return &YouTubeConnector{
		apiBase:          youtubeAPIBase,
		tokens:           manager,
		client:           &http.Client{Timeout: 15 * time.Second},
		log:              log,
		minInterval:      5 * time.Second,
		noBroadcastDelay: 30 * time.Second,
	}
}

// Start запускает цикл опроса. StopFunc блокируется до полной остановки.
func (c *YouTubeConnector) Start(onEvent func(model.Notification), onError func(error)) StopFunc {
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.run(ctx, onEvent, onError)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}

func (c *YouTubeConnector) run(ctx context.Context, onEvent func(model.Notification), onError func(error)) {
	limiter := rate.NewLimiter(rate.Every(c.minInterval), 1)

	var (
		liveChatID string
		pageToken  string
		interval   = c.minInterval
	)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return
		}

		token, err := c.tokens.Get(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			onError(fmt.Errorf("youtube: токен: %w", err))
			if !sleepCtx(ctx, interval) {
				return
			}
			continue
		}

		if liveChatID == "" {
			id, err := c.resolveLiveChatID(ctx, token.Access, token.Channel)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				onError(err)
				if !sleepCtx(ctx, c.noBroadcastDelay) {
					return
				}
				continue
			}
			if id == "" {
				// Эфира нет — это ожидание, а не ошибка.
				c.log.Debug().Msg("youtube: активный эфир не найден")
				if !sleepCtx(ctx, c.noBroadcastDelay) {
					return
				}
				continue
			}
			c.log.Info().Str("liveChatId", id).Msg("youtube: найден чат эфира")
			liveChatID = id
			pageToken = ""
		}

		page, status, err := c.fetchPage(ctx, token.Access, liveChatID, pageToken)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			onError(err)
			if !sleepCtx(ctx, interval) {
				return
			}
			continue
		}

		if status == http.StatusForbidden || status == http.StatusNotFound {
			// Чат завершён либо протух доступ — не различить,
			// поэтому на 403 сбрасывается и учётка.
			if status == http.StatusForbidden {
				c.tokens.Invalidate()
				onError(fmt.Errorf("youtube: чат недоступен (403), учётные данные сброшены"))
			}
			c.log.Info().Int("status", status).Msg("youtube: чат завершён, поиск эфира заново")
			liveChatID = ""
			pageToken = ""
			if !sleepCtx(ctx, c.noBroadcastDelay) {
				return
			}
			continue
		}

		for _, item := range page.Items {
			if item.Snippet.Type != "superChatEvent" || item.Snippet.SuperChatDetails == nil {
				continue
			}
			n, err := superChatNotification(item)
			if err != nil {
				onError(&ParseError{Err: err})
				continue
			}
			c.log.Info().Str("nickname", n.Nickname).Float64("amount", n.Amount).Msg("youtube: superchat")
			onEvent(n)
		}

		pageToken = page.NextPageToken
		if page.PollingIntervalMillis > 0 {
			interval = time.Duration(page.PollingIntervalMillis) * time.Millisecond
		}

		if !sleepCtx(ctx, interval) {
			return
		}
	}
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		LiveStreamingDetails struct {
			ActiveLiveChatID string `json:"activeLiveChatId"`
		} `json:"liveStreamingDetails"`
	} `json:"items"`
}

// resolveLiveChatID находит liveChatId активного эфира канала.
// Пустой результат без ошибки — эфира сейчас нет.
func (c *YouTubeConnector) resolveLiveChatID(ctx context.Context, accessToken, channelID string) (string, error) {
	if channelID == "" {
		return "", fmt.Errorf("youtube: в токене нет идентификатора канала")
	}

	q := url.Values{}
	q.Set("part", "id")
	q.Set("eventType", "live")
	q.Set("type", "video")
	q.Set("channelId", channelID)

	var search searchResponse
	if err := c.getJSON(ctx, accessToken, "/search", q, &search); err != nil {
		return "", fmt.Errorf("youtube: поиск эфира: %w", err)
	}
	if len(search.Items) == 0 {
		return "", nil
	}
	videoID := search.Items[0].ID.VideoID

	q = url.Values{}
	q.Set("part", "liveStreamingDetails")
	q.Set("id", videoID)

	var videos videosResponse
	if err := c.getJSON(ctx, accessToken, "/videos", q, &videos); err != nil {
		return "", fmt.Errorf("youtube: liveStreamingDetails: %w", err)
	}
	if len(videos.Items) == 0 {
		return "", nil
	}

	return videos.Items[0].LiveStreamingDetails.ActiveLiveChatID, nil
}

type liveChatMessage struct {
	ID      string `json:"id"`
	Snippet struct {
		Type             string `json:"type"`
		PublishedAt      string `json:"publishedAt"`
		SuperChatDetails *struct {
			AmountMicros string `json:"amountMicros"`
			Currency     string `json:"currency"`
			UserComment  string `json:"userComment"`
		} `json:"superChatDetails"`
	} `json:"snippet"`
	AuthorDetails struct {
		DisplayName string `json:"displayName"`
	} `json:"authorDetails"`
}

type liveChatPage struct {
	NextPageToken         string            `json:"nextPageToken"`
	PollingIntervalMillis int64             `json:"pollingIntervalMillis"`
	Items                 []liveChatMessage `json:"items"`
}

// fetchPage забирает страницу сообщений чата. 403/404 не считаются ошибкой
// транспорта и возвращаются статусом для обработки выше.
func (c *YouTubeConnector) fetchPage(ctx context.Context, accessToken, liveChatID, pageToken string) (*liveChatPage, int, error) {
	q := url.Values{}
	q.Set("liveChatId", liveChatID)
	q.Set("part", "snippet,authorDetails")
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/liveChat/messages?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("youtube: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("youtube: запрос страницы чата: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resp.StatusCode, fmt.Errorf("youtube: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var page liveChatPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, resp.StatusCode, &ParseError{Err: fmt.Errorf("youtube: %w", err)}
	}

	return &page, resp.StatusCode, nil
}

func (c *YouTubeConnector) getJSON(ctx context.Context, accessToken, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ParseError{Err: err}
	}

	return nil
}

// superChatNotification конвертирует superChatEvent в уведомление.
// amountMicros — целое в микроединицах валюты.
func superChatNotification(item liveChatMessage) (model.Notification, error) {
	details := item.Snippet.SuperChatDetails

	micros, err := strconv.ParseInt(details.AmountMicros, 10, 64)
	if err != nil {
		return model.Notification{}, fmt.Errorf("youtube: amountMicros %q: %w", details.AmountMicros, err)
	}
	amount := float64(micros) / 1_000_000

	return model.Notification{
		ID:       item.ID,
		Type:     model.TypeSuperChat,
		Nickname: item.AuthorDetails.DisplayName,
		Amount:   amount,
		Currency: details.Currency,
		// Курс не применяется: сумма как есть, в валюте отправителя.
		JPY:        amount,
		Message:    details.UserComment,
		ReceivedAt: time.Now(),
	}, nil
}
