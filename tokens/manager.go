package tokens

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"
)

// Запас до истечения, при котором токен обновляется заранее.
const expiryLeeway = 60 * time.Second

// TokenFetcher запрашивает свежий токен у внешнего источника.
type TokenFetcher func() (Token, error)

// Manager управляет YouTube-токеном алертбокса: кэш в памяти,
// необязательное хранилище и упреждающее обновление.
type Manager struct {
	store TokenStore
	fetch TokenFetcher

	mu      sync.Mutex
	cached  *Token
	invalid bool
}

// NewManager создаёт менеджер токенов. store может быть nil —
// тогда токен живёт только в памяти процесса.
func NewManager(store TokenStore, fetch TokenFetcher) *Manager {
	return &Manager{store: store, fetch: fetch}
}

// Get возвращает действующий токен, обновляя его при необходимости.
func (m *Manager) Get(ctx context.Context) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil && !expiringSoon(m.cached) {
		return *m.cached, nil
	}

	// После Invalidate копия из хранилища не считается доверенной.
	if m.store != nil && !m.invalid {
		token, err := m.store.LoadToken()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Token{}, err
		}
		if token != nil && !expiringSoon(token) {
			m.cached = token
			return *token, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return Token{}, err
	}

	token, err := m.fetch()
	if err != nil {
		return Token{}, err
	}

	if m.store != nil {
		if err := m.store.SaveToken(token); err != nil {
			return Token{}, err
		}
	}

	m.cached = &token
	m.invalid = false

	return token, nil
}

// Invalidate сбрасывает учётные данные: сессия это была или авторизация —
// на 403 не различить, поэтому чистится всё.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cached = nil
	m.invalid = true
	m.mu.Unlock()
}

func expiringSoon(token *Token) bool {
	return token.ExpiresAt.Before(time.Now().Add(expiryLeeway))
}
