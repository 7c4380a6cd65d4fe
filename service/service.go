package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"alertbox/auth"
	"alertbox/config"
	"alertbox/connector"
	"alertbox/display"
	"alertbox/logsink"
	"alertbox/model"
	"alertbox/router"
	"alertbox/storage"
	"alertbox/tokens"
	"alertbox/tts"
	"alertbox/viewers"
)

// Deps — внешние зависимости сервиса: конфигурация, отрисовка и озвучка.
// Pool может быть nil — тогда архив в Postgres выключен.
type Deps struct {
	Config   config.Config
	Settings config.Settings
	Log      zerolog.Logger
	Renderer display.Renderer
	Speaker  tts.Speaker
	Pool     *pgxpool.Pool
}

// Service собирает конвейер алертбокса: коннекторы → роутер → очередь показа,
// плюс справочник зрителей, лог-приёмник и архив.
type Service struct {
	deps Deps
}

// New создаёт Service с уже загруженной конфигурацией.
func New(deps Deps) *Service {
	return &Service{deps: deps}
}

// Run запускает конвейер и блокируется до отмены контекста.
// Остановка упорядочена: сначала коннекторы, затем очередь показа,
// чтобы после возврата очередь больше не менялась.
func (s *Service) Run(ctx context.Context) error {
	cfg := s.deps.Config
	log := s.deps.Log

	sink := logsink.New(cfg.GAS.LogAPIURL, "alertbox", log)
	if sink != nil {
		log.Info().Str("session", sink.SessionID()).Msg("лог-приёмник включён")
	}

	// Справочник зрителей: стартовая загрузка не фатальна, показ работает
	// и без него, просто без иконок.
	directory := viewers.NewService(cfg.GAS.APIURL, log)
	if err := directory.Fetch(ctx); err != nil {
		log.Warn().Err(err).Msg("стартовая загрузка зрителей не удалась")
		sink.Send("viewersFetchError", map[string]any{"message": err.Error()})
	}
	if err := directory.StartRefresh(ctx, s.deps.Settings.ViewersRefreshCron); err != nil {
		return err
	}
	defer directory.Stop()

	var onDisplayed func(model.Notification)
	if s.deps.Pool != nil {
		archiver := storage.NewArchiver(ctx, s.deps.Pool, cfg.Batch, log)
		onDisplayed = func(n model.Notification) {
			if ok := archiver.Enqueue(n); !ok {
				log.Warn().Str("type", string(n.Type)).Msg("архив: уведомление отброшено")
			}
			if n.Type == model.TypeSuperChat {
				if err := storage.SaveSuperChat(ctx, s.deps.Pool, n, cfg.Batch.FlushTimeout); err != nil {
					log.Error().Err(err).Msg("ошибка сохранения суперчата")
				}
			}
		}
	}

	scheduler := display.New(s.deps.Settings, display.Deps{
		Renderer:    s.deps.Renderer,
		Speaker:     s.deps.Speaker,
		Sink:        sink,
		Directory:   directory.Current,
		OnDisplayed: onDisplayed,
		Log:         log,
	})
	scheduler.Start(ctx)

	route := router.New(s.deps.Settings, log, scheduler.Enqueue)

	onError := func(source string) func(error) {
		return func(err error) {
			log.Error().Err(err).Str("source", source).Msg("ошибка коннектора")
			sink.Send("connectorError", map[string]any{
				"source":  source,
				"message": err.Error(),
			})
		}
	}
	onEvent := func(n model.Notification) {
		route.Handle(n)
	}

	manager := tokens.NewManager(tokens.FileTokenStore{}, func() (tokens.Token, error) {
		cred, err := auth.GetAlertboxToken(cfg.Doneru.TokenAPIURL, cfg.Doneru.AlertboxKey)
		if err != nil {
			return tokens.Token{}, err
		}
		return tokens.Token{
			Access:    cred.AccessToken,
			Channel:   cred.Channel,
			ExpiresAt: cred.ExpiresAt,
		}, nil
	})

	var stops []connector.StopFunc
	stops = append(stops, connector.NewDoneru(cfg.Doneru.WSSURL, log).Start(onEvent, onError("doneru")))
	stops = append(stops, connector.NewYouTube(manager, log).Start(onEvent, onError("youtube")))
	if cfg.Twitch.Enabled() {
		stops = append(stops, connector.NewTwitch(cfg.Twitch, log).Start(onEvent, onError("twitch")))
	}

	sink.Send("serviceStarted", map[string]any{"connectors": len(stops)})
	log.Info().Int("connectors", len(stops)).Msg("алертбокс запущен")

	<-ctx.Done()

	for _, stop := range stops {
		stop()
	}
	scheduler.Close()

	log.Info().Msg("алертбокс остановлен")
	return ctx.Err()
}
