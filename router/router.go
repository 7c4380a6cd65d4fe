package router

import (
	"github.com/rs/zerolog"

	"alertbox/config"
	"alertbox/model"
)

// Decision — результат маршрутизации уведомления.
type Decision int

const (
	// Forward — уведомление валидно и уходит в хвост очереди показа.
	Forward Decision = iota
	// DropInvalidType — тип вне закрытого набора, в очередь не попадает.
	DropInvalidType
	// DropDisabled — тип известен, но выключен настройками.
	DropDisabled
)

func (d Decision) String() string {
	switch d {
	case Forward:
		return "forward"
	case DropInvalidType:
		return "dropInvalidType"
	case DropDisabled:
		return "dropDisabled"
	}
	return "unknown"
}

// Route валидирует уведомление против настроек. Чистая функция:
// границу провода уже прошёл коннектор, здесь только закрытый набор
// типов и флаг включённости.
func Route(n model.Notification, s config.Settings) Decision {
	if !n.Type.Known() {
		return DropInvalidType
	}
	alert, ok := s.For(n.Type)
	if !ok {
		return DropInvalidType
	}
	if alert.Enable != 1 {
		return DropDisabled
	}
	return Forward
}

// Router прогоняет уведомления через Route и передаёт годные приёмнику.
// Приёмник обязан только дописывать в хвост, ровно один раз на событие.
type Router struct {
	settings config.Settings
	log      zerolog.Logger
	forward  func(model.Notification)
}

// New создаёт роутер с приёмником годных уведомлений.
func New(settings config.Settings, log zerolog.Logger, forward func(model.Notification)) *Router {
	return &Router{settings: settings, log: log, forward: forward}
}

// Handle маршрутизирует одно уведомление и возвращает принятое решение.
func (r *Router) Handle(n model.Notification) Decision {
	d := Route(n, r.settings)
	switch d {
	case Forward:
		r.forward(n)
	case DropInvalidType:
		r.log.Warn().Str("type", string(n.Type)).Str("nickname", n.Nickname).Msg("уведомление неизвестного типа отброшено")
	case DropDisabled:
		r.log.Debug().Str("type", string(n.Type)).Msg("тип уведомления выключен настройками")
	}
	return d
}
