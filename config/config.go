package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config агрегирует значения конфигурации из переменных окружения.
type Config struct {
	Doneru   DoneruConfig
	GAS      GASConfig
	Twitch   TwitchConfig
	Postgres PostgresConfig
	Batch    BatchConfig
	Settings SettingsConfig
}

// DoneruConfig содержит адреса Doneru-транспортов и ключ алертбокса.
type DoneruConfig struct {
	WSSURL      string
	TokenAPIURL string
	AlertboxKey string
}

// GASConfig хранит адреса GAS API: таблица зрителей и приёмник логов.
type GASConfig struct {
	APIURL    string
	LogAPIURL string
}

// TwitchConfig содержит учётные данные Twitch IRC; пустая — коннектор выключен.
type TwitchConfig struct {
	Username   string
	OAuthToken string
	Channel    string
}

// Enabled сообщает, заданы ли учётные данные Twitch.
func (t TwitchConfig) Enabled() bool {
	return t.Username != "" && t.OAuthToken != "" && t.Channel != ""
}

// PostgresConfig хранит параметры подключения к пулу базы данных.
// Пустой Host означает, что архив уведомлений выключен.
type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	User     string
	Password string
}

// Enabled сообщает, настроен ли архив в Postgres.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

// DSN собирает строку подключения для pgx/pgxpool.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DB)
}

// BatchConfig задаёт параметры батчинга и флашей при записи архива.
type BatchConfig struct {
	MaxBatch      int
	FlushEvery    time.Duration
	ChanBuffer    int
	StatsLogEvery time.Duration
	FlushTimeout  time.Duration
}

// SettingsConfig указывает необязательный YAML с настройками алертов.
type SettingsConfig struct {
	Path string
}

// Load читает переменные окружения и возвращает валидированную Config.
func Load() (Config, error) {
	cfg := Config{
		Doneru: DoneruConfig{
			WSSURL:      strings.TrimSpace(os.Getenv("DONERU_WSS_URL")),
			TokenAPIURL: strings.TrimSpace(os.Getenv("DONERU_TOKEN_API_URL")),
			AlertboxKey: strings.TrimSpace(os.Getenv("DONERU_ALERTBOX_KEY")),
		},
		GAS: GASConfig{
			APIURL:    strings.TrimSpace(os.Getenv("GAS_API_URL")),
			LogAPIURL: strings.TrimSpace(os.Getenv("GAS_LOG_API_URL")),
		},
		Twitch: TwitchConfig{
			Username:   strings.TrimSpace(os.Getenv("TWITCH_USERNAME")),
			OAuthToken: strings.TrimSpace(os.Getenv("TWITCH_OAUTH_TOKEN")),
			Channel:    strings.TrimSpace(strings.TrimPrefix(os.Getenv("TWITCH_CHANNEL"), "#")),
		},
		Postgres: PostgresConfig{
			Host:     strings.TrimSpace(os.Getenv("POSTGRES_HOST")),
			Port:     strings.TrimSpace(os.Getenv("POSTGRES_PORT")),
			DB:       strings.TrimSpace(os.Getenv("POSTGRES_DB")),
			User:     strings.TrimSpace(os.Getenv("POSTGRES_USER")),
			Password: strings.TrimSpace(os.Getenv("POSTGRES_PASSWORD")),
		},
		Batch: BatchConfig{
			MaxBatch:      100,
			FlushEvery:    1500 * time.Millisecond,
			ChanBuffer:    4096,
			StatsLogEvery: 5 * time.Minute,
			FlushTimeout:  5 * time.Second,
		},
		Settings: SettingsConfig{
			Path: strings.TrimSpace(os.Getenv("ALERTBOX_SETTINGS")),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if c.Doneru.WSSURL == "" {
		return fmt.Errorf("требуется DONERU_WSS_URL")
	}
	if c.Doneru.TokenAPIURL == "" {
		return fmt.Errorf("требуется DONERU_TOKEN_API_URL")
	}
	if c.Doneru.AlertboxKey == "" {
		return fmt.Errorf("требуется DONERU_ALERTBOX_KEY")
	}
	if c.GAS.APIURL == "" {
		return fmt.Errorf("требуется GAS_API_URL")
	}

	// Twitch и Postgres — необязательные блоки, но либо целиком, либо никак.
	if t := c.Twitch; (t.Username != "" || t.OAuthToken != "" || t.Channel != "") && !t.Enabled() {
		return fmt.Errorf("TWITCH_USERNAME, TWITCH_OAUTH_TOKEN и TWITCH_CHANNEL задаются вместе")
	}
	if p := c.Postgres; p.Enabled() {
		if p.Port == "" {
			return fmt.Errorf("требуется POSTGRES_PORT")
		}
		if p.DB == "" {
			return fmt.Errorf("требуется POSTGRES_DB")
		}
		if p.User == "" {
			return fmt.Errorf("требуется POSTGRES_USER")
		}
		if p.Password == "" {
			return fmt.Errorf("требуется POSTGRES_PASSWORD")
		}
	}

	if c.Batch.MaxBatch <= 0 {
		return fmt.Errorf("Batch.MaxBatch должен быть больше нуля")
	}
	if c.Batch.FlushEvery <= 0 {
		return fmt.Errorf("Batch.FlushEvery должен быть больше нуля")
	}
	if c.Batch.ChanBuffer <= 0 {
		return fmt.Errorf("Batch.ChanBuffer должен быть больше нуля")
	}
	if c.Batch.StatsLogEvery <= 0 {
		return fmt.Errorf("Batch.StatsLogEvery должен быть больше нуля")
	}
	if c.Batch.FlushTimeout <= 0 {
		return fmt.Errorf("Batch.FlushTimeout должен быть больше нуля")
	}

	return nil
}
