package query

import (
	"context"
	"strings"

	"github.com/integration-hub/student-hub/internal/domain/city"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CITY INSIGHTS QUERY
// Справка по городу: сначала кэш, затем внешний поиск. В кэш попадают
// только разобранные ответы.
// ══════════════════════════════════════════════════════════════════════════════

// ErrEmptyCity - название города не указано.
var ErrEmptyCity = shared.NewDomainError("city", "Insights", shared.ErrEmptyValue, "invalid_input", "city is required")

// CityInsightsQuery содержит параметры запроса.
type CityInsightsQuery struct {
	City string
}

// CityInsightsDTO - ответ запроса. Если разбор не удался, Insights == nil,
// а Raw содержит исходный текст.
type CityInsightsDTO struct {
	Insights   *city.Insights
	Raw        string
	ParseError bool
	Cached     bool
}

// CityInsightsHandler обрабатывает запрос справки.
type CityInsightsHandler struct {
	source city.Source
	cache  city.Cache
	logger *logger.Logger
}

// NewCityInsightsHandler создаёт новый обработчик. cache может быть nil.
func NewCityInsightsHandler(source city.Source, cache city.Cache, log *logger.Logger) *CityInsightsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CityInsightsHandler{source: source, cache: cache, logger: log.With(logger.Component("city_insights"))}
}

// Handle выполняет запрос.
func (h *CityInsightsHandler) Handle(ctx context.Context, q CityInsightsQuery) (*CityInsightsDTO, error) {
	name := strings.TrimSpace(q.City)
	if name == "" {
		return nil, ErrEmptyCity
	}

	if h.cache != nil {
		in, err := h.cache.Get(ctx, name)
		if err != nil {
			// Кэш недоступен - идём в поиск.
			h.logger.Warn("city cache read failed", logger.Err(err))
		} else if in != nil {
			return &CityInsightsDTO{Insights: in, Cached: true}, nil
		}
	}

	report, err := h.source.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	if !report.Parsed() {
		return &CityInsightsDTO{Raw: report.Raw, ParseError: true}, nil
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, name, report.Insights); err != nil {
			h.logger.Warn("city cache write failed", logger.Err(err))
		}
	}
	return &CityInsightsDTO{Insights: report.Insights}, nil
}
