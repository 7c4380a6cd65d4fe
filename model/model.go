package model

import "time"

// NotificationType — дискриминатор типа уведомления на проводе.
type NotificationType string

const (
	TypeDonation          NotificationType = "donation"
	TypeSuperChat         NotificationType = "superchat"
	TypeYouTubeSubscriber NotificationType = "youtubeSubscriber"
	TypeMembership        NotificationType = "membership"

	// Twitch-семейство: присутствует в настройках, по умолчанию выключено.
	TypeBit              NotificationType = "bit"
	TypeRaid             NotificationType = "raid"
	TypeTwitchSubscriber NotificationType = "twitchSubscriber"
)

// KnownTypes — закрытый набор типов, принимаемых роутером.
// Всё остальное отбрасывается до попадания в очередь.
var KnownTypes = []NotificationType{
	TypeDonation,
	TypeSuperChat,
	TypeYouTubeSubscriber,
	TypeMembership,
	TypeBit,
	TypeRaid,
	TypeTwitchSubscriber,
}

// Known сообщает, входит ли тип в закрытый набор.
func (t NotificationType) Known() bool {
	for _, known := range KnownTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Monetary сообщает, зависит ли уведомление от суммы
// (продление показа и эффекты применяются только к таким типам).
func (t NotificationType) Monetary() bool {
	return t == TypeDonation || t == TypeSuperChat
}

// Notification — нормализованная модель уведомления алертбокса.
// Размеченное объединение: смысл полей зависит от Type.
type Notification struct {
	ID       string           `json:"id,omitempty"`
	Type     NotificationType `json:"type"`
	Nickname string           `json:"nickname"`
	Test     bool             `json:"test"`

	// donation / superchat / bit / raid
	Amount  float64 `json:"amount,omitempty"`
	Message string  `json:"message,omitempty"`

	// donation
	AssetID     *string `json:"assetID,omitempty"`
	MessageType int     `json:"messageType,omitempty"`

	// superchat
	Currency string  `json:"currency,omitempty"`
	JPY      float64 `json:"jpy,omitempty"`

	// membership
	Level string `json:"level,omitempty"`

	ReceivedAt time.Time `json:"-"`
}

// Viewer — запись таблицы зрителей из внешнего API.
type Viewer struct {
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Emoji string `json:"emoji,omitempty"`
}

// EffectCounts — количество визуальных эффектов, выводимое из суммы.
// Вычисляется в момент показа и нигде не хранится.
type EffectCounts struct {
	Fireworks int
	Rains     int
}

// EffectsFor считает эффекты из суммы: фейерверк за каждые 10 000,
// капля дождя за каждые 100 из остатка. Немонетарные типы эффектов не имеют.
func EffectsFor(n Notification) EffectCounts {
	if !n.Type.Monetary() {
		return EffectCounts{}
	}
	amount := int(n.Amount)
	if amount < 0 {
		return EffectCounts{}
	}
	return EffectCounts{
		Fireworks: amount / 10000,
		Rains:     (amount % 10000) / 100,
	}
}
