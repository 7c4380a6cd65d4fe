package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"alertbox/config"
	"alertbox/display"
	"alertbox/service"
	"alertbox/tts"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("ошибка загрузки конфигурации")
	}

	settings, err := config.LoadSettings(cfg.Settings.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("ошибка загрузки настроек алертов")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var pool *pgxpool.Pool
	if cfg.Postgres.Enabled() {
		pool, err = pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("pgxpool.New")
		}
		defer pool.Close()
	}

	srv := service.New(service.Deps{
		Config:   cfg,
		Settings: settings,
		Log:      log,
		Renderer: &consoleRenderer{log: log},
		Speaker:  tts.Nop(),
		Pool:     pool,
	})

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("service run failed")
	}

	log.Info().Msg("shutting down...")
}

// consoleRenderer выводит показы в лог; внешняя отрисовка подключается
// своей реализацией display.Renderer.
type consoleRenderer struct {
	log zerolog.Logger
}

func (r *consoleRenderer) ShowNotification(c display.Current) {
	e := r.log.Info().
		Str("type", string(c.Notification.Type)).
		Str("nickname", c.Notification.Nickname).
		Str("text", c.Text).
		Dur("duration", c.Duration)
	if c.Viewer != nil {
		e = e.Str("viewer", c.Viewer.Viewer.Name)
	}
	if c.Effects.Fireworks > 0 || c.Effects.Rains > 0 {
		e = e.Int("fireworks", c.Effects.Fireworks).Int("rains", c.Effects.Rains)
	}
	e.Msg("показ уведомления")
}

func (r *consoleRenderer) ClearNotification() {
	r.log.Debug().Msg("скрытие уведомления")
}
