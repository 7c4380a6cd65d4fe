package tokens

import "time"

// Token описывает YouTube-токен алертбокса.
type Token struct {
	Access    string
	Channel   string
	ExpiresAt time.Time
}

// TokenStore описывает хранилище токенов алертбокса.
type TokenStore interface {
	LoadToken() (*Token, error)
	SaveToken(Token) error
}
