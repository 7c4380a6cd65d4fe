package connector

import (
	"context"
	"time"

	"alertbox/model"
)

// StopFunc останавливает коннектор. Идемпотентна; после возврата ни один
// колбэк больше не вызывается, все таймеры и соединения освобождены.
type StopFunc func()

// Connector — общий контракт источников уведомлений.
//
// onEvent вызывается не более одного раза на внешнее событие, в порядке
// доставки транспортом. onError носит уведомительный характер: коннектор
// продолжает работать (переподключается) пока не вызвана StopFunc.
type Connector interface {
	Start(onEvent func(model.Notification), onError func(error)) StopFunc
}

// ParseError помечает протокольную ошибку: сообщение отброшено,
// соединение при этом живо.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "parse error: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// sleepCtx ждёт d или отмены контекста; false — контекст отменён.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
