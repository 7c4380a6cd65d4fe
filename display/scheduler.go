package display

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"alertbox/config"
	"alertbox/logsink"
	"alertbox/match"
	"alertbox/model"
	"alertbox/tts"
	"alertbox/viewers"
)

// Current — активный слот: уведомление и всё, что нужно отрисовщику.
type Current struct {
	Notification model.Notification
	Viewer       *match.Record
	Text         string
	Duration     time.Duration
	FadeIn       time.Duration
	FadeOut      time.Duration
	Effects      model.EffectCounts

	// Копилка: сумма монетарных уведомлений за сессию и цель сбора.
	GaugeTotal  float64
	GaugeTarget float64
}

// Renderer — внешний слой отрисовки и анимации. Ядро сообщает ему
// готовый слот и момент начала скрытия; остальное не его забота.
type Renderer interface {
	ShowNotification(Current)
	ClearNotification()
}

// Deps — коллабораторы планировщика. Sink, OnDisplayed и Directory
// могут отсутствовать.
type Deps struct {
	Renderer    Renderer
	Speaker     tts.Speaker
	Sink        *logsink.Client
	Directory   func() *viewers.Directory
	OnDisplayed func(model.Notification)
	Log         zerolog.Logger
}

type slotState int

const (
	slotIdle slotState = iota
	slotShowing
	slotFading
)

// Scheduler — очередь показа и машина состояний слота.
//
// Очередь строго FIFO в порядке поступления, независимо от источника;
// приоритетов нет, в том числе по сумме. Активен максимум один элемент;
// голова удаляется только на переходе FadingOut → Idle.
type Scheduler struct {
	settings config.Settings
	deps     Deps

	fadeIn          time.Duration
	fadeOut         time.Duration
	defaultDuration time.Duration

	input   chan model.Notification
	stopped chan struct{}
	done    chan struct{}

	// Накопленная сумма копилки; трогает только цикл run.
	gaugeTotal float64

	startOnce sync.Once
	stopOnce  sync.Once
}

// New создаёт планировщик показа. Запуск — отдельным вызовом Start.
func New(settings config.Settings, deps Deps) *Scheduler {
	if deps.Speaker == nil {
		deps.Speaker = tts.Nop()
	}
	return &Scheduler{
		settings:        settings,
		deps:            deps,
		fadeIn:          500 * time.Millisecond,
		fadeOut:         500 * time.Millisecond,
		defaultDuration: 3 * time.Second,
		input:           make(chan model.Notification, 1024),
		stopped:         make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// Enqueue дописывает уведомление в хвост очереди. Единственная операция,
// доступная коннекторам; переупорядочивание невозможно по построению.
func (s *Scheduler) Enqueue(n model.Notification) {
	select {
	case s.input <- n:
	case <-s.stopped:
	}
}

// Start запускает цикл показа. Повторные вызовы игнорируются.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.run(ctx)
	})
}

// Close останавливает приём и дожидается выхода цикла. Идемпотентна.
func (s *Scheduler) Close() {
	s.stopOnce.Do(func() {
		close(s.stopped)
	})
	// Если Start так и не был вызван, цикла нет и ждать нечего.
	s.startOnce.Do(func() {
		close(s.done)
	})
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var queue []model.Notification
	state := slotIdle

	for {
		// Переход Idle → Showing: только при непустой очереди и
		// свободном слоте; голова при этом из очереди НЕ удаляется.
		if state == slotIdle && len(queue) > 0 {
			// Остановка проверяется до показа: таймер и отмена могут
			// сработать в одном цикле, и после остановки побочные
			// эффекты входа в Showing уже недопустимы.
			select {
			case <-ctx.Done():
				return
			case <-s.stopped:
				return
			default:
			}
			cur := s.present(queue[0])
			state = slotShowing
			timer.Reset(cur.Duration)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stopped:
			return
		case n := <-s.input:
			queue = append(queue, n)
		case <-timer.C:
			switch state {
			case slotShowing:
				s.deps.Renderer.ClearNotification()
				state = slotFading
				timer.Reset(s.fadeOut)
			case slotFading:
				// Ровно один pop, именно сейчас.
				queue = queue[1:]
				state = slotIdle
			}
		}
	}
}

// present выполняет побочные эффекты входа в Showing: отрисовка, озвучка,
// лог показа, архив. Однократно, без повторов при ошибках.
func (s *Scheduler) present(n model.Notification) Current {
	alert, _ := s.settings.For(n.Type)

	var viewer *match.Record
	if s.deps.Directory != nil {
		viewer = s.deps.Directory().Match(n.Nickname)
	}

	if n.Type.Monetary() {
		amount := n.Amount
		if n.Type == model.TypeSuperChat {
			amount = n.JPY
		}
		s.gaugeTotal += amount
	}

	cur := Current{
		Notification: n,
		Viewer:       viewer,
		Text:         RenderTemplate(alert.MessageTemplate, n),
		Duration:     Duration(n, alert, s.defaultDuration),
		FadeIn:       s.fadeIn,
		FadeOut:      s.fadeOut,
		Effects:      model.EffectsFor(n),
		GaugeTotal:   s.gaugeTotal,
		GaugeTarget:  s.settings.PiggyGauge.TargetAmount,
	}

	s.deps.Sink.Send("notificationDisplayed", n)
	s.deps.Renderer.ShowNotification(cur)

	if n.Type.Monetary() && alert.TTS.Enable == 1 {
		s.deps.Speaker.Speak(n.Message, func(err error) {
			s.deps.Log.Warn().Err(err).Msg("озвучка не удалась")
			s.deps.Sink.Send("ttsError", map[string]any{"message": err.Error()})
		})
	}

	if s.deps.OnDisplayed != nil {
		s.deps.OnDisplayed(n)
	}

	return cur
}

// Duration считает окно показа: базовое время типа (или запасные 3 секунды)
// плюс бонус за сумму — только для монетарных типов.
//   - от 10 000: +30 секунд;
//   - от 1 000: +15 секунд.
func Duration(n model.Notification, alert config.AlertSettings, fallback time.Duration) time.Duration {
	base := fallback
	if alert.AlertDuration > 0 {
		base = time.Duration(alert.AlertDuration) * time.Second
	}

	if !n.Type.Monetary() {
		return base
	}

	switch {
	case n.Amount >= 10000:
		return base + 30*time.Second
	case n.Amount >= 1000:
		return base + 15*time.Second
	}
	return base
}
