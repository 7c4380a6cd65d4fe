package connector

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"github.com/rs/zerolog"

	"alertbox/config"
	"alertbox/model"
)

// TwitchConnector — дополнительный источник: биты, рейды и сабскрипции из
// Twitch IRC. Соответствующие типы в настройках по умолчанию выключены,
// так что без явного включения дальше роутера они не проходят.
type TwitchConnector struct {
	cfg config.TwitchConfig
	log zerolog.Logger
}

// NewTwitch создаёт коннектор Twitch IRC.
func NewTwitch(cfg config.TwitchConfig, log zerolog.Logger) *TwitchConnector {
	return &TwitchConnector{cfg: cfg, log: log}
}

// Start подключает IRC-клиент; переподключение с бэкоффом библиотека
// выполняет сама. StopFunc дожидается завершения колбэков в полёте.
func (c *TwitchConnector) Start(onEvent func(model.Notification), onError func(error)) StopFunc {
	client := twitchirc.NewClient(c.cfg.Username, c.cfg.OAuthToken)

	// RWMutex: колбэки держат читающую блокировку, остановка — пишущую.
	// Так StopFunc возвращается только после колбэков в полёте.
	var mu sync.RWMutex
	stopped := false

	emit := func(n model.Notification) {
		mu.RLock()
		defer mu.RUnlock()
		if stopped {
			return
		}
		n.ReceivedAt = time.Now()
		onEvent(n)
	}
	fail := func(err error) {
		mu.RLock()
		defer mu.RUnlock()
		if stopped {
			return
		}
		onError(err)
	}

	client.OnPrivateMessage(func(m twitchirc.PrivateMessage) {
		if m.Bits <= 0 {
			return
		}
		emit(model.Notification{
			ID:       m.ID,
			Type:     model.TypeBit,
			Nickname: m.User.DisplayName,
			Amount:   float64(m.Bits),
			Message:  m.Message,
		})
	})

	client.OnUserNoticeMessage(func(m twitchirc.UserNoticeMessage) {
		switch m.MsgID {
		case "sub", "resub":
			emit(model.Notification{
				ID:       m.ID,
				Type:     model.TypeTwitchSubscriber,
				Nickname: m.User.DisplayName,
				Level:    m.MsgParams["msg-param-sub-plan"],
				Message:  m.Message,
			})
		case "raid":
			viewers, _ := strconv.Atoi(m.MsgParams["msg-param-viewerCount"])
			emit(model.Notification{
				ID:       m.ID,
				Type:     model.TypeRaid,
				Nickname: m.User.DisplayName,
				Amount:   float64(viewers),
			})
		}
	})

	client.OnConnect(func() {
		c.log.Info().Str("channel", c.cfg.Channel).Msg("twitch: подключено, вход в канал")
		client.Join(c.cfg.Channel)
	})

	go func() {
		if err := client.Connect(); err != nil {
			fail(fmt.Errorf("twitch: connect: %w", err))
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			stopped = true
			mu.Unlock()
			client.Disconnect()
		})
	}
}
