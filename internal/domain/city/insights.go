// Package city описывает справку по городу: CROUS, транспорт, медицина,
// префектура и CAF. Данные приходят из внешнего поиска и кешируются.
package city

import (
	"context"
	"strings"
)

// Insights - разобранная справка по городу.
type Insights struct {
	City       string   `json:"city"`
	Crous      string   `json:"crous"`
	Transport  string   `json:"transport"`
	Health     []string `json:"health"`
	Prefecture string   `json:"prefecture"`
	Caf        string   `json:"caf"`
	Tips       []string `json:"tips"`
}

// Report - ответ источника. Insights == nil означает, что текст не разобрался,
// тогда Raw содержит исходный ответ.
type Report struct {
	Insights *Insights
	Raw      string
}

// Parsed сообщает, удалось ли разобрать ответ.
func (r Report) Parsed() bool {
	return r.Insights != nil
}

// Normalize приводит название города к ключу: нижний регистр, одиночные пробелы.
func Normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Source получает справку из внешнего поиска.
type Source interface {
	Fetch(ctx context.Context, city string) (Report, error)
}

// Cache хранит разобранные справки. Промах возвращает (nil, nil).
type Cache interface {
	Get(ctx context.Context, city string) (*Insights, error)
	Set(ctx context.Context, city string, in *Insights) error
}
