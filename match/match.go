package match

import (
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"alertbox/model"
)

// Record — зритель с заранее посчитанными нормализованными формами имени.
// Строится один раз при загрузке справочника и дальше не меняется.
type Record struct {
	Viewer      model.Viewer
	Norm        string
	NormNoEmoji string
}

// NewRecord готовит запись справочника из сырой записи таблицы зрителей.
func NewRecord(v model.Viewer) Record {
	return Record{
		Viewer:      v,
		Norm:        Normalize(v.Name),
		NormNoEmoji: NormalizeNoEmoji(v.Name),
	}
}

// ViewerByNickname ищет зрителя по нику строго по ярусам, возвращая первое
// совпадение:
//  1. точное равенство сырых имён;
//  2. равенство нормализованных форм;
//  3. равенство нормализованных форм через Collator (поглощает регистр,
//     ширину и диакритику);
//  4. равенство форм без эмодзи;
//  5. Collator по формам без эмодзи.
//
// Приближённые ярусы (Левенштейн, совпадение префикса/суффикса) сознательно
// не подключены: риск ложных срабатываний выше пользы. Не включать.
func ViewerByNickname(records []Record, rawNickname string) *Record {
	if rawNickname == "" || len(records) == 0 {
		return nil
	}

	target := Normalize(rawNickname)
	targetNoEmoji := NormalizeNoEmoji(rawNickname)

	for i := range records {
		if records[i].Viewer.Name == rawNickname {
			return &records[i]
		}
	}
	for i := range records {
		if records[i].Norm == target {
			return &records[i]
		}
	}

	// Collator не потокобезопасен, поэтому собирается на каждый вызов.
	col := collate.New(language.Japanese, collate.Loose)

	for i := range records {
		if col.CompareString(records[i].Norm, target) == 0 {
			return &records[i]
		}
	}
	for i := range records {
		if records[i].NormNoEmoji == targetNoEmoji {
			return &records[i]
		}
	}
	for i := range records {
		if col.CompareString(records[i].NormNoEmoji, targetNoEmoji) == 0 {
			return &records[i]
		}
	}

	return nil
}

// levenshtein — дешёвая редакционная дистанция для коротких ников.
// Оставлена на случай ручной диагностики; в ярусы сопоставления не входит.
func levenshtein(a, b string) int {
	ar, br := []rune(a), []rune(b)
	m, n := len(ar), len(br)
	if m == 0 {
		return n
	}
	if n == 0 {
		return m
	}

	dp := make([]int, n+1)
	for j := 0; j <= n; j++ {
		dp[j] = j
	}
	for i := 1; i <= m; i++ {
		prev := i - 1
		dp[0] = i
		for j := 1; j <= n; j++ {
			tmp := dp[j]
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			dp[j] = min(dp[j]+1, min(dp[j-1]+1, prev+cost))
			prev = tmp
		}
	}

	return dp[n]
}
