package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"alertbox/model"
)

// TTSSettings задаёт озвучку для одного типа уведомлений.
type TTSSettings struct {
	Enable    int     `koanf:"enable"`
	MinAmount float64 `koanf:"minAmount"`
	Volume    int     `koanf:"volume"`
	Speed     int     `koanf:"speed"`
}

// AlertSettings — настройки показа одного типа уведомлений.
// Значения читаются один раз на старте и дальше не меняются.
type AlertSettings struct {
	Enable             int         `koanf:"enable"`
	AlertDuration      int         `koanf:"alertDuration"`
	MessageTemplate    string      `koanf:"messageTemplate"`
	FontHighlightColor string      `koanf:"fontHighlightColor"`
	MinAmount          float64     `koanf:"minAmount"`
	TTS                TTSSettings `koanf:"tts"`
}

// PiggyGaugeSettings — цель сбора для копилки-индикатора.
type PiggyGaugeSettings struct {
	TargetAmount float64 `koanf:"targetAmount"`
	Label        string  `koanf:"label"`
}

// Settings — статическая таблица настроек алертбокса по типам уведомлений.
type Settings struct {
	AlertDelay         int                `koanf:"alertDelay"`
	ViewersRefreshCron string             `koanf:"viewersRefreshCron"`
	PiggyGauge         PiggyGaugeSettings `koanf:"piggyGauge"`

	Donation          AlertSettings `koanf:"donation"`
	SuperChat         AlertSettings `koanf:"superchat"`
	YouTubeSubscriber AlertSettings `koanf:"youtubeSubscriber"`
	Membership        AlertSettings `koanf:"membership"`
	Bit               AlertSettings `koanf:"bit"`
	Raid              AlertSettings `koanf:"raid"`
	TwitchSubscriber  AlertSettings `koanf:"twitchSubscriber"`
}

// For возвращает настройки для типа; false — тип таблице неизвестен.
func (s Settings) For(t model.NotificationType) (AlertSettings, bool) {
	switch t {
	case model.TypeDonation:
		return s.Donation, true
	case model.TypeSuperChat:
		return s.SuperChat, true
	case model.TypeYouTubeSubscriber:
		return s.YouTubeSubscriber, true
	case model.TypeMembership:
		return s.Membership, true
	case model.TypeBit:
		return s.Bit, true
	case model.TypeRaid:
		return s.Raid, true
	case model.TypeTwitchSubscriber:
		return s.TwitchSubscriber, true
	}
	return AlertSettings{}, false
}

// DefaultSettings — компилированные значения по умолчанию,
// зеркало боевой конфигурации виджета.
func DefaultSettings() Settings {
	return Settings{
		AlertDelay:         5,
		ViewersRefreshCron: "*/5 * * * *",
		PiggyGauge: PiggyGaugeSettings{
			TargetAmount: 100000,
			Label:        "なに食べよの広告費",
		},
		Donation: AlertSettings{
			Enable:             1,
			AlertDuration:      30,
			MessageTemplate:    "{名前} 様 {金額} 円ドネ ありやとう！！",
			FontHighlightColor: "#37a9fd",
			TTS:                TTSSettings{Enable: 0, Volume: 80, Speed: 100},
		},
		SuperChat: AlertSettings{
			Enable:             1,
			AlertDuration:      10,
			MessageTemplate:    "{名前} 様、{単位}{金額}の投げ銭ありがとうございます！",
			FontHighlightColor: "#37a9fd",
			MinAmount:          100,
			TTS:                TTSSettings{Enable: 1, Volume: 80, Speed: 100},
		},
		YouTubeSubscriber: AlertSettings{
			Enable:             1,
			AlertDuration:      8,
			MessageTemplate:    "{名前}様、チャンネル登録いただき感謝いたします。\nお茶とお菓子をお供に、ゆっくりとお楽しみくださいませ。",
			FontHighlightColor: "#37a9fd",
		},
		Membership: AlertSettings{
			Enable:             0,
			AlertDuration:      8,
			MessageTemplate:    "{名前}さんが{レベル}のメンバーになりました!",
			FontHighlightColor: "#32c3a6",
		},
		Bit: AlertSettings{
			Enable:             0,
			AlertDuration:      10,
			MessageTemplate:    "{名前}さんが{ビッツ}ビッツで応援しました!",
			FontHighlightColor: "#32c3a6",
			MinAmount:          100,
		},
		Raid: AlertSettings{
			Enable:             0,
			AlertDuration:      8,
			MessageTemplate:    "{名前}さんが{人数}人をraidしました!",
			FontHighlightColor: "#32c3a6",
			MinAmount:          10,
		},
		TwitchSubscriber: AlertSettings{
			Enable:             0,
			AlertDuration:      8,
			MessageTemplate:    "{名前}さんが{ティア}をサブスクしました!",
			FontHighlightColor: "#32c3a6",
		},
	}
}

// LoadSettings собирает настройки: дефолты, поверх — необязательный YAML.
func LoadSettings(path string) (Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultSettings(), "koanf"), nil); err != nil {
		return Settings{}, fmt.Errorf("настройки: дефолты: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Settings{}, fmt.Errorf("настройки: файл %s: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Settings{}, fmt.Errorf("настройки: чтение %s: %w", path, err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, fmt.Errorf("настройки: разбор: %w", err)
	}

	return s, nil
}
