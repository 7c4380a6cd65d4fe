package display

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"alertbox/config"
	"alertbox/model"
	"alertbox/tts"
)

// stubRenderer запоминает вызовы с метками времени.
type stubRenderer struct {
	mu     sync.Mutex
	shows  []Current
	showAt []time.Time
	clears []time.Time
}

func (r *stubRenderer) ShowNotification(c Current) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shows = append(r.shows, c)
	r.showAt = append(r.showAt, time.Now())
}

func (r *stubRenderer) ClearNotification() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clears = append(r.clears, time.Now())
}

func (r *stubRenderer) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.shows), len(r.clears)
}

func testSettings() config.Settings {
	s := config.DefaultSettings()
	// Нулевые длительности — показ идёт на запасном времени планировщика,
	// которое в тестах сжато до миллисекунд.
	s.Donation.AlertDuration = 0
	s.SuperChat.AlertDuration = 0
	s.YouTubeSubscriber.AlertDuration = 0
	return s
}

func startScheduler(t *testing.T, settings config.Settings, deps Deps) (*Scheduler, *stubRenderer) {
	t.Helper()

	renderer := &stubRenderer{}
	deps.Renderer = renderer
	deps.Log = zerolog.Nop()

	s := New(settings, deps)
	s.defaultDuration = 30 * time.Millisecond
	s.fadeIn = 5 * time.Millisecond
	s.fadeOut = 15 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	t.Cleanup(func() {
		cancel()
		s.Close()
	})
	return s, renderer
}

func waitForShows(t *testing.T, r *stubRenderer, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if shows, _ := r.counts(); shows >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	shows, _ := r.counts()
	t.Fatalf("ожидали %d показов, получили %d", want, shows)
}

func TestSchedulerShowsInArrivalOrder(t *testing.T) {
	s, renderer := startScheduler(t, testSettings(), Deps{})

	// Крупная сумма не обгоняет очередь.
	s.Enqueue(model.Notification{Type: model.TypeYouTubeSubscriber, Nickname: "первый"})
	s.Enqueue(model.Notification{Type: model.TypeDonation, Nickname: "второй", Amount: 50})
	s.Enqueue(model.Notification{Type: model.TypeSuperChat, Nickname: "третий", Amount: 100, Currency: "¥"})

	waitForShows(t, renderer, 3)

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	want := []string{"первый", "второй", "третий"}
	for i, name := range want {
		if got := renderer.shows[i].Notification.Nickname; got != name {
			t.Errorf("показ %d: ожидали %q, получили %q", i, name, got)
		}
	}
}

func TestSchedulerSingleActiveSlot(t *testing.T) {
	s, renderer := startScheduler(t, testSettings(), Deps{})

	s.Enqueue(model.Notification{Type: model.TypeYouTubeSubscriber, Nickname: "a"})
	s.Enqueue(model.Notification{Type: model.TypeYouTubeSubscriber, Nickname: "b"})

	waitForShows(t, renderer, 2)

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	if len(renderer.clears) < 1 {
		t.Fatal("первый показ не был скрыт")
	}
	// Следующий показ начинается только после скрытия предыдущего.
	if renderer.showAt[1].Before(renderer.clears[0]) {
		t.Error("второй показ начался до скрытия первого")
	}
	if renderer.clears[0].Before(renderer.showAt[0]) {
		t.Error("скрытие раньше показа")
	}
}

func TestSchedulerSpeaksOnlyEnabledMonetary(t *testing.T) {
	var mu sync.Mutex
	var spoken []string
	speaker := tts.SpeakerFunc(func(text string, _ func(error)) {
		mu.Lock()
		spoken = append(spoken, text)
		mu.Unlock()
	})

	settings := testSettings()
	settings.Donation.TTS.Enable = 1
	settings.SuperChat.TTS.Enable = 0

	s, renderer := startScheduler(t, settings, Deps{Speaker: speaker})

	s.Enqueue(model.Notification{Type: model.TypeDonation, Nickname: "a", Amount: 500, Message: "спасибо"})
	s.Enqueue(model.Notification{Type: model.TypeSuperChat, Nickname: "b", Amount: 500, Message: "молча"})
	s.Enqueue(model.Notification{Type: model.TypeYouTubeSubscriber, Nickname: "c", Message: "тоже молча"})

	waitForShows(t, renderer, 3)

	mu.Lock()
	defer mu.Unlock()
	if len(spoken) != 1 || spoken[0] != "спасибо" {
		t.Errorf("озвучено %v, ожидали только донат", spoken)
	}
}

func TestSchedulerOnDisplayedHook(t *testing.T) {
	var mu sync.Mutex
	var archived []string

	s, renderer := startScheduler(t, testSettings(), Deps{
		OnDisplayed: func(n model.Notification) {
			mu.Lock()
			archived = append(archived, n.Nickname)
			mu.Unlock()
		},
	})

	s.Enqueue(model.Notification{Type: model.TypeDonation, Nickname: "a", Amount: 100})
	s.Enqueue(model.Notification{Type: model.TypeDonation, Nickname: "b", Amount: 100})

	waitForShows(t, renderer, 2)

	mu.Lock()
	defer mu.Unlock()
	if len(archived) != 2 || archived[0] != "a" || archived[1] != "b" {
		t.Errorf("архив: %v", archived)
	}
}

func TestSchedulerNoShowAfterCancel(t *testing.T) {
	renderer := &stubRenderer{}
	s := New(testSettings(), Deps{Renderer: renderer, Log: zerolog.Nop()})
	s.defaultDuration = 30 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Уведомление уже в канале, но контекст отменён: цикл обязан выйти,
	// не выполнив ни одного показа.
	s.Enqueue(model.Notification{Type: model.TypeDonation, Nickname: "поздний", Amount: 100})
	s.Start(ctx)
	s.Close()

	if shows, _ := renderer.counts(); shows != 0 {
		t.Fatalf("показы после остановки: %d", shows)
	}
}

func TestSchedulerAccumulatesGauge(t *testing.T) {
	s, renderer := startScheduler(t, testSettings(), Deps{})

	// Суперчат идёт в копилку по сумме в иенах, подписка не идёт вовсе.
	s.Enqueue(model.Notification{Type: model.TypeDonation, Nickname: "a", Amount: 1000})
	s.Enqueue(model.Notification{Type: model.TypeSuperChat, Nickname: "b", Amount: 5, Currency: "$", JPY: 750})
	s.Enqueue(model.Notification{Type: model.TypeYouTubeSubscriber, Nickname: "c"})

	waitForShows(t, renderer, 3)

	renderer.mu.Lock()
	defer renderer.mu.Unlock()
	totals := []float64{1000, 1750, 1750}
	for i, want := range totals {
		if got := renderer.shows[i].GaugeTotal; got != want {
			t.Errorf("показ %d: копилка %v, ожидали %v", i, got, want)
		}
	}
	if got := renderer.shows[0].GaugeTarget; got != 100000 {
		t.Errorf("цель копилки %v", got)
	}
}

func TestDuration(t *testing.T) {
	base := 20 * time.Second
	alert := config.AlertSettings{AlertDuration: 20}

	cases := []struct {
		name string
		n    model.Notification
		want time.Duration
	}{
		{"донат от 10000", model.Notification{Type: model.TypeDonation, Amount: 15000}, base + 30*time.Second},
		{"донат от 1000", model.Notification{Type: model.TypeDonation, Amount: 5000}, base + 15*time.Second},
		{"ровно 10000", model.Notification{Type: model.TypeSuperChat, Amount: 10000}, base + 30*time.Second},
		{"ровно 1000", model.Notification{Type: model.TypeSuperChat, Amount: 1000}, base + 15*time.Second},
		{"мелкий донат", model.Notification{Type: model.TypeDonation, Amount: 50}, base},
		{"подписка игнорирует сумму", model.Notification{Type: model.TypeYouTubeSubscriber, Amount: 99999}, base},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Duration(tc.n, alert, 3*time.Second); got != tc.want {
				t.Errorf("Duration = %v, ожидали %v", got, tc.want)
			}
		})
	}

	// Нулевая длительность типа — запасные 3 секунды.
	got := Duration(model.Notification{Type: model.TypeMembership}, config.AlertSettings{}, 3*time.Second)
	if got != 3*time.Second {
		t.Errorf("запасная длительность: %v", got)
	}
}

func TestRenderTemplate(t *testing.T) {
	cases := []struct {
		name string
		tmpl string
		n    model.Notification
		want string
	}{
		{
			"донат с разделителями разрядов",
			"{名前} 様 {金額} 円",
			model.Notification{Nickname: "太郎", Amount: 15000},
			"太郎 様 15,000 円",
		},
		{
			"суперчат с валютой",
			"{名前} 様、{単位}{金額}",
			model.Notification{Nickname: "hana", Amount: 500, Currency: "¥"},
			"hana 様、¥500",
		},
		{
			"рейд",
			"{名前}さんが{人数}人をraidしました!",
			model.Notification{Nickname: "viewer", Amount: 42},
			"viewerさんが42人をraidしました!",
		},
		{
			"уровень членства",
			"{名前}さんが{レベル}のメンバーになりました!",
			model.Notification{Nickname: "fan", Level: "ゴールド"},
			"fanさんがゴールドのメンバーになりました!",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RenderTemplate(tc.tmpl, tc.n); got != tc.want {
				t.Errorf("RenderTemplate = %q, ожидали %q", got, tc.want)
			}
		})
	}
}
