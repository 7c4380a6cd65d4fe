package storage

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"alertbox/config"
	"alertbox/model"
)

// Archiver асинхронно пишет показанные уведомления через pgx.Batch.
// Переполнение очереди не блокирует показ: лишнее отбрасывается со счётчиком.
type Archiver struct {
	input   chan model.Notification
	config  config.BatchConfig
	sender  batchSender
	log     zerolog.Logger
	dropped atomic.Uint64
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// NewArchiver создаёт архиватор и запускает фоновые флаши.
func NewArchiver(ctx context.Context, pool *pgxpool.Pool, cfg config.BatchConfig, log zerolog.Logger) *Archiver {
	return newArchiver(ctx, pool, cfg, log)
}

// Enqueue пытается поставить уведомление на запись; при переполнении возвращает false.
func (a *Archiver) Enqueue(n model.Notification) bool {
	select {
	case a.input <- n:
		return true
	default:
		dropped := a.dropped.Add(1)
		if dropped%100 == 0 {
			a.log.Warn().Uint64("dropped", dropped).Msg("архив: очередь заполнена")
		}
		return false
	}
}

// Dropped возвращает число уведомлений, отброшенных из-за переполнения.
func (a *Archiver) Dropped() uint64 {
	return a.dropped.Load()
}

func (a *Archiver) run(ctx context.Context) {
	flushTicker := time.NewTicker(a.config.FlushEvery)
	statsTicker := time.NewTicker(a.config.StatsLogEvery)
	defer flushTicker.Stop()
	defer statsTicker.Stop()

	var (
		batch            = &pgx.Batch{}
		pending          = 0
		totalInserted    uint64
		intervalInserted uint64
	)

	const q = `
insert into alert_notifications (
  notification_id, type, nickname, amount, currency, jpy, message, level,
  is_test, received_at
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
on conflict (notification_id) do nothing;`

	flush := func() {
		if pending == 0 {
			return
		}

		dbCtx, cancel := context.WithTimeout(context.Background(), a.config.FlushTimeout)
		defer cancel()

		br := a.sender.SendBatch(dbCtx, batch)
		if err := br.Close(); err != nil {
			a.log.Error().Err(err).Msg("ошибка флаша архива")
		}

		totalInserted += uint64(pending)
		intervalInserted += uint64(pending)

		batch = &pgx.Batch{}
		pending = 0
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			a.log.Info().Uint64("total", totalInserted).Msg("архив: контекст отменён")
			return
		case <-flushTicker.C:
			flush()
		case <-statsTicker.C:
			a.log.Info().
				Uint64("interval", intervalInserted).
				Uint64("total", totalInserted).
				Dur("window", a.config.StatsLogEvery).
				Msg("архив: статистика вставок")
			intervalInserted = 0
		case n := <-a.input:
			batch.Queue(q,
				nullable(n.ID), string(n.Type), n.Nickname, n.Amount, nullable(n.Currency),
				n.JPY, nullable(n.Message), nullable(n.Level), n.Test, n.ReceivedAt.UTC(),
			)
			pending++
			if pending >= a.config.MaxBatch {
				flush()
			}
		}
	}
}

// nullable превращает пустую строку в NULL, чтобы не плодить дубли
// по пустому notification_id в уникальном индексе.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newArchiver(ctx context.Context, sender batchSender, cfg config.BatchConfig, log zerolog.Logger) *Archiver {
	a := &Archiver{
		input:  make(chan model.Notification, cfg.ChanBuffer),
		config: cfg,
		sender: sender,
		log:    log,
	}

	go a.run(ctx)

	return a
}
