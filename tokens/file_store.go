package tokens

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTokenPath — файл учётных данных алертбокса рядом с бинарём.
const DefaultTokenPath = ".secrets/alertbox_tokens.json"

// FileTokenStore хранит учётные данные в JSON файле с правами 0600.
// Формат файла виден оператору, поэтому стабилен: access, channel
// и expires_at в RFC3339.
type FileTokenStore struct {
	Path string
}

type storedCredential struct {
	Access    string `json:"access"`
	Channel   string `json:"channel"`
	ExpiresAt string `json:"expires_at"`
}

func (store FileTokenStore) path() string {
	if strings.TrimSpace(store.Path) == "" {
		return DefaultTokenPath
	}
	return store.Path
}

// LoadToken читает сохранённые учётные данные алертбокса.
func (store FileTokenStore) LoadToken() (*Token, error) {
	data, err := os.ReadFile(store.path())
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	var cred storedCredential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("load token: decode: %w", err)
	}

	expiresAt, err := time.Parse(time.RFC3339, cred.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("load token: expires_at: %w", err)
	}

	return &Token{
		Access:    cred.Access,
		Channel:   cred.Channel,
		ExpiresAt: expiresAt,
	}, nil
}

// SaveToken записывает учётные данные атомарно: во временный файл рядом,
// затем rename, чтобы параллельный LoadToken не увидел обрезанный JSON.
func (store FileTokenStore) SaveToken(token Token) error {
	path := store.path()
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("save token: create dir: %w", err)
	}

	data, err := json.Marshal(storedCredential{
		Access:    token.Access,
		Channel:   token.Channel,
		ExpiresAt: token.ExpiresAt.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("save token: encode: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("save token: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("save token: rename: %w", err)
	}

	return nil
}
