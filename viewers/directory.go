package viewers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"alertbox/match"
	"alertbox/model"
)

// Directory — неизменяемый снимок справочника зрителей.
// Обновление всегда заменяет снимок целиком, записи на месте не меняются.
type Directory struct {
	records []match.Record
	builtAt time.Time
}

// Build готовит справочник из сырого списка зрителей.
func Build(viewers []model.Viewer) *Directory {
	records := make([]match.Record, 0, len(viewers))
	for _, v := range viewers {
		records = append(records, match.NewRecord(v))
	}
	return &Directory{records: records, builtAt: time.Now()}
}

// Match ищет зрителя по нику через ярусы match.ViewerByNickname.
func (d *Directory) Match(nickname string) *match.Record {
	if d == nil {
		return nil
	}
	return match.ViewerByNickname(d.records, nickname)
}

// Len возвращает число записей в снимке.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Service загружает таблицу зрителей из GAS API и периодически обновляет
// её по cron-расписанию. Текущий снимок доступен через Current.
type Service struct {
	url    string
	client *http.Client
	log    zerolog.Logger

	cur atomic.Pointer[Directory]

	mu   sync.Mutex
	cron *cron.Cron
}

// NewService создаёт сервис справочника зрителей.
func NewService(url string, log zerolog.Logger) *Service {
	return &Service{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// Current возвращает актуальный снимок; nil, пока первая загрузка не прошла.
func (s *Service) Current() *Directory {
	return s.cur.Load()
}

type tableResponse struct {
	Viewers []model.Viewer `json:"viewers"`
}

// Fetch загружает таблицу зрителей и атомарно подменяет снимок.
func (s *Service) Fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("viewers: create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("viewers: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("viewers: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload tableResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("viewers: decode response: %w", err)
	}

	dir := Build(payload.Viewers)
	s.cur.Store(dir)
	s.log.Info().Int("viewers", dir.Len()).Msg("справочник зрителей обновлён")

	return nil
}

// StartRefresh запускает периодическое обновление по cron-выражению.
// Ошибки обновления не фатальны: действует предыдущий снимок.
func (s *Service) StartRefresh(ctx context.Context, spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := s.Fetch(ctx); err != nil {
			s.log.Warn().Err(err).Msg("обновление справочника зрителей не удалось")
		}
	})
	if err != nil {
		return fmt.Errorf("viewers: cron spec %q: %w", spec, err)
	}

	c.Start()
	s.cron = c

	return nil
}

// Stop останавливает периодическое обновление. Идемпотентна.
func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}
