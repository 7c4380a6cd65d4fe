package connector

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"alertbox/model"
	"alertbox/tokens"
)

type youtubeStub struct {
	mu         sync.Mutex
	searches   int
	pageTokens []string
	messages   func(call int, w http.ResponseWriter, r *http.Request)
	calls      int
}

func (s *youtubeStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.searches++
		s.mu.Unlock()
		fmt.Fprint(w, `{"items":[{"id":{"videoId":"vid1"}}]}`)
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"items":[{"liveStreamingDetails":{"activeLiveChatId":"chat1"}}]}`)
	})
	mux.HandleFunc("/liveChat/messages", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.pageTokens = append(s.pageTokens, r.URL.Query().Get("pageToken"))
		call := s.calls
		s.calls++
		s.mu.Unlock()
		s.messages(call, w, r)
	})
	return mux
}

func (s *youtubeStub) searchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches
}

func testYouTube(t *testing.T, stub *youtubeStub, fetch tokens.TokenFetcher) (*YouTubeConnector, func()) {
	t.Helper()
	srv := httptest.NewServer(stub.handler())

	c := NewYouTube(tokens.NewManager(nil, fetch), zerolog.Nop())
	c.apiBase = srv.URL
	c.minInterval = 10 * time.Millisecond
	c.noBroadcastDelay = 20 * time.Millisecond

	return c, srv.Close
}

func freshToken() (tokens.Token, error) {
	return tokens.Token{Access: "at", Channel: "ch", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func TestYouTubeEmitsSuperChats(t *testing.T) {
	stub := &youtubeStub{}
	stub.messages = func(call int, w http.ResponseWriter, _ *http.Request) {
		if call == 0 {
			fmt.Fprint(w, `{
				"nextPageToken":"tok1",
				"pollingIntervalMillis":10,
				"items":[
					{"id":"m1","snippet":{"type":"textMessageEvent"},"authorDetails":{"displayName":"Chatter"}},
					{"id":"m2","snippet":{"type":"superChatEvent","superChatDetails":{"amountMicros":"500000000","currency":"JPY","userComment":"gg"}},"authorDetails":{"displayName":"Taro"}}
				]}`)
			return
		}
		fmt.Fprint(w, `{"nextPageToken":"tok2","pollingIntervalMillis":10,"items":[]}`)
	}

	c, closeSrv := testYouTube(t, stub, freshToken)
	defer closeSrv()

	events := make(chan model.Notification, 4)
	stop := c.Start(func(n model.Notification) { events <- n }, func(error) {})
	defer stop()

	select {
	case n := <-events:
		if n.Type != model.TypeSuperChat || n.Nickname != "Taro" {
			t.Fatalf("unexpected event: %+v", n)
		}
		if n.Amount != 500 || n.JPY != 500 || n.Currency != "JPY" || n.Message != "gg" {
			t.Fatalf("amount conversion broken: %+v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected superchat event")
	}

	// Обычный чат никогда не эмитируется.
	select {
	case n := <-events:
		t.Fatalf("unexpected event: %+v", n)
	case <-time.After(100 * time.Millisecond):
	}

	// Курсор страниц передаётся дальше.
	deadline := time.Now().Add(2 * time.Second)
	for {
		stub.mu.Lock()
		n := len(stub.pageTokens)
		var second string
		if n >= 2 {
			second = stub.pageTokens[1]
		}
		stub.mu.Unlock()
		if n >= 2 {
			if second != "tok1" {
				t.Fatalf("expected pageToken tok1, got %q", second)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected a second page fetch")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestYouTubeNotFoundResetsChat(t *testing.T) {
	stub := &youtubeStub{}
	stub.messages = func(call int, w http.ResponseWriter, _ *http.Request) {
		if call == 0 {
			fmt.Fprint(w, `{"nextPageToken":"tok1","pollingIntervalMillis":10,"items":[]}`)
			return
		}
		// Эфир завершён.
		w.WriteHeader(http.StatusNotFound)
	}

	c, closeSrv := testYouTube(t, stub, freshToken)
	defer closeSrv()

	stop := c.Start(func(model.Notification) {}, func(error) {})
	defer stop()

	// После 404 коннектор возвращается к поиску эфира.
	deadline := time.Now().Add(2 * time.Second)
	for stub.searchCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected chat resolution to restart, searches=%d", stub.searchCount())
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Курсор сброшен: после повторного поиска страница запрашивается без pageToken.
	stub.mu.Lock()
	tokensSeen := append([]string(nil), stub.pageTokens...)
	stub.mu.Unlock()
	for i, tok := range tokensSeen {
		if i >= 2 && tok != "" {
			t.Fatalf("cursor must reset after 404: %v", tokensSeen)
		}
	}
}

func TestYouTubeForbiddenInvalidatesToken(t *testing.T) {
	var fetches int
	var mu sync.Mutex
	fetch := func() (tokens.Token, error) {
		mu.Lock()
		fetches++
		mu.Unlock()
		return tokens.Token{Access: "at", Channel: "ch", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}

	stub := &youtubeStub{}
	stub.messages = func(call int, w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}

	c, closeSrv := testYouTube(t, stub, fetch)
	defer closeSrv()

	errs := make(chan error, 16)
	stop := c.Start(func(model.Notification) {}, func(err error) { errs <- err })
	defer stop()

	select {
	case <-errs:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected auth error after 403")
	}

	// Сброшенная учётка вынуждает новый поход за токеном.
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := fetches
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected token refetch after 403, fetches=%d", n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestYouTubeTokenErrorDoesNotStopCycle(t *testing.T) {
	var fetches int
	var mu sync.Mutex
	fetch := func() (tokens.Token, error) {
		mu.Lock()
		fetches++
		n := fetches
		mu.Unlock()
		if n == 1 {
			return tokens.Token{}, fmt.Errorf("proxy down")
		}
		return tokens.Token{Access: "at", Channel: "ch", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}

	stub := &youtubeStub{}
	stub.messages = func(call int, w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"pollingIntervalMillis":10,"items":[]}`)
	}

	c, closeSrv := testYouTube(t, stub, fetch)
	defer closeSrv()

	errs := make(chan error, 16)
	stop := c.Start(func(model.Notification) {}, func(err error) { errs <- err })
	defer stop()

	select {
	case <-errs:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected token error")
	}

	// Следующий цикл добирается до чата.
	deadline := time.Now().Add(2 * time.Second)
	for stub.searchCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("cycle must survive a token failure")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
