package match

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Невидимые символы: ZWSP, ZWNJ, ZWJ, FEFF, WJ и прочие.
func isInvisible(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\uFEFF', '\u2060', '\u180E', '\u00AD', '\u034F', '\u061C':
		return true
	}
	return false
}

func isVariationSelector(r rune) bool {
	return r == '\uFE0E' || r == '\uFE0F'
}

// Normalize приводит имя к канонической форме: NFKC (поглощает ширину),
// удаление селекторов вариантов и невидимых символов, схлопывание пробелов
// и понижение регистра с учётом японской локали. Тотальна: пустой вход
// даёт пустую строку, идемпотентна.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	s := norm.NFKC.String(raw)
	s = strings.Map(func(r rune) rune {
		if isVariationSelector(r) || isInvisible(r) {
			return -1
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")

	return cases.Lower(language.Japanese).String(s)
}

// NormalizeNoEmoji — тот же конвейер после грубого удаления пиктографических
// кластеров (расширяет множество кандидатов при сопоставлении).
func NormalizeNoEmoji(raw string) string {
	if raw == "" {
		return ""
	}
	return Normalize(stripPictographic(raw))
}

// Грубое приближение Extended_Pictographic: стандартная таблица в unicode
// отсутствует, точность здесь не нужна — кластер либо целиком эмодзи,
// либо остаётся как есть.
var pictographic = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x2600, Hi: 0x27BF, Stride: 1},
		{Lo: 0x2B05, Hi: 0x2B07, Stride: 1},
		{Lo: 0x2B1B, Hi: 0x2B1C, Stride: 1},
		{Lo: 0x2B50, Hi: 0x2B50, Stride: 1},
		{Lo: 0x2B55, Hi: 0x2B55, Stride: 1},
		{Lo: 0x3030, Hi: 0x3030, Stride: 1},
		{Lo: 0x303D, Hi: 0x303D, Stride: 1},
		{Lo: 0x3297, Hi: 0x3297, Stride: 1},
		{Lo: 0x3299, Hi: 0x3299, Stride: 1},
	},
	R32: []unicode.Range32{
		{Lo: 0x1F000, Hi: 0x1FAFF, Stride: 1},
	},
}

// stripPictographic удаляет эмодзи как графемные кластеры целиком,
// включая хвостовые селекторы вариантов и модификаторы.
func stripPictographic(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	g := uniseg.NewGraphemes(s)
	for g.Next() {
		cluster := g.Str()
		r, _ := utf8.DecodeRuneInString(cluster)
		if unicode.Is(pictographic, r) {
			continue
		}
		b.WriteString(cluster)
	}

	return b.String()
}
