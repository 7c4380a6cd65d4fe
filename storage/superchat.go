package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"alertbox/model"
)

// SaveSuperChat пишет суперчат отдельной строкой с исходной валютой и суммой
// в иенах. Вставка синхронная, с заданным таймаутом.
func SaveSuperChat(ctx context.Context, pool *pgxpool.Pool, n model.Notification, timeout time.Duration) error {
	dbCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := pool.Exec(dbCtx, `
insert into superchats (
  message_id, nickname, amount, currency, jpy, message, received_at
) values ($1, $2, $3, $4, $5, $6, $7)
on conflict (message_id) do nothing;
`, n.ID, n.Nickname, n.Amount, n.Currency, n.JPY, n.Message, n.ReceivedAt.UTC())

	return err
}
