package display

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"alertbox/model"
)

var jaPrinter = message.NewPrinter(language.Japanese)

// RenderTemplate подставляет данные уведомления в шаблон типа.
// Плейсхолдеры: {名前}, {金額}, {単位}, {ビッツ}, {人数}, {レベル}, {ティア}.
// Суммы форматируются с разделителями разрядов.
func RenderTemplate(tmpl string, n model.Notification) string {
	count := strconv.Itoa(int(n.Amount))
	r := strings.NewReplacer(
		"{名前}", n.Nickname,
		"{金額}", jaPrinter.Sprintf("%v", number.Decimal(n.Amount)),
		"{単位}", n.Currency,
		"{ビッツ}", count,
		"{人数}", count,
		"{レベル}", n.Level,
		"{ティア}", n.Level,
	)
	return r.Replace(tmpl)
}
