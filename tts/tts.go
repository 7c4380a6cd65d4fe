// Package tts описывает контракт движка озвучки.
// Сам движок — внешний коллаборатор; ядро знает только этот интерфейс.
package tts

// Speaker озвучивает текст уведомления. Язык фиксирован: ja-JP.
// Вызов fire-and-forget: ошибки приходят в onError и никогда не
// пробрасываются синхронно в планировщик.
type Speaker interface {
	Speak(text string, onError func(error))
}

// SpeakerFunc адаптирует функцию под Speaker.
type SpeakerFunc func(text string, onError func(error))

func (f SpeakerFunc) Speak(text string, onError func(error)) {
	f(text, onError)
}

// Nop возвращает озвучку-заглушку.
func Nop() Speaker {
	return SpeakerFunc(func(string, func(error)) {})
}
