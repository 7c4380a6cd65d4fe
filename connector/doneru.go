package connector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"alertbox/model"
)

// DoneruConnector — push-источник: WSS Doneru с keep-alive и переподключением.
//
// Принимает только donation: superchat с этого сокета сознательно
// игнорируется, им владеет YouTube-коннектор (разделение ответственности,
// не фильтр "на всякий случай").
type DoneruConnector struct {
	url string
	log zerolog.Logger

	dialer         *websocket.Dialer
	reconnectDelay time.Duration
	pingInterval   time.Duration
}

// NewDoneru создаёт коннектор к WSS Doneru.
func NewDoneru(url string, log zerolog.Logger) *DoneruConnector {
	return &DoneruConnector{
		url:            url,
		log:            log,
		dialer:         websocket.DefaultDialer,
		reconnectDelay: time.Second,
		pingInterval:   30 * time.Second,
	}
}

// Start запускает цикл подключения. Возвращённая StopFunc блокируется,
// пока цикл не завершится полностью.
func (c *DoneruConnector) Start(onEvent func(model.Notification), onError func(error)) StopFunc {
	ctx, cancel := context.WithCancel(context.Background())

	s := &doneruSession{}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.run(ctx, s, onEvent, onError)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			s.closeConn()
			wg.Wait()
		})
	}
}

// doneruSession хранит текущее соединение, чтобы StopFunc могла разбудить
// заблокированное чтение.
type doneruSession struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *doneruSession) setConn(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
}

func (s *doneruSession) closeConn() {
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()
}

func (c *DoneruConnector) run(ctx context.Context, s *doneruSession, onEvent func(model.Notification), onError func(error)) {
	for {
		conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			onError(fmt.Errorf("doneru: dial: %w", err))
			if !sleepCtx(ctx, c.reconnectDelay) {
				return
			}
			continue
		}

		s.setConn(conn)
		if ctx.Err() != nil {
			conn.Close()
			return
		}
		c.log.Info().Msg("doneru: websocket подключён")

		readErr := c.serve(ctx, conn, onEvent, onError)

		conn.Close()
		s.setConn(nil)

		if ctx.Err() != nil {
			return
		}

		c.log.Info().Err(readErr).Msg("doneru: websocket закрыт, переподключение")
		if !sleepCtx(ctx, c.reconnectDelay) {
			return
		}
	}
}

// serve читает кадры одного соединения и держит keep-alive до обрыва.
func (c *DoneruConnector) serve(ctx context.Context, conn *websocket.Conn, onEvent func(model.Notification), onError func(error)) error {
	pingStop := make(chan struct{})
	var pingWG sync.WaitGroup
	pingWG.Add(1)
	go func() {
		defer pingWG.Done()
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// Ошибка записи уронит и чтение; здесь её достаточно проглотить.
				_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`))
			case <-pingStop:
				return
			}
		}
	}()
	// Heartbeat живёт ровно столько, сколько соединение.
	defer pingWG.Wait()
	defer close(pingStop)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				onError(fmt.Errorf("doneru: read: %w", err))
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.handleMessage(data, onEvent, onError)
	}
}

func (c *DoneruConnector) handleMessage(data []byte, onEvent func(model.Notification), onError func(error)) {
	var n model.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		onError(&ParseError{Err: fmt.Errorf("doneru: %w", err)})
		return
	}
	if n.Type == "" {
		onError(&ParseError{Err: fmt.Errorf("doneru: сообщение без поля type")})
		return
	}

	switch n.Type {
	case model.TypeDonation:
		n.ReceivedAt = time.Now()
		onEvent(n)
	case model.TypeSuperChat:
		// Superchat приходит из YouTube-коннектора, дубль отсюда не нужен.
		c.log.Debug().Str("nickname", n.Nickname).Msg("doneru: superchat игнорируется")
	default:
		c.log.Warn().Str("type", string(n.Type)).Msg("doneru: неизвестный тип уведомления")
	}
}
