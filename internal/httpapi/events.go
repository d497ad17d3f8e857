package httpapi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"soundcheck.se/encore/internal/query"
	"soundcheck.se/encore/internal/taxonomy"
)

func (s *Server) handleEvents(c echo.Context) error {
	limit, err := parseLimit(c.QueryParam("limit"), s.engine.MaxPageSize())
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	var after *query.Cursor
	if raw := strings.TrimSpace(c.QueryParam("cursor")); raw != "" {
		cursor, err := query.ParseCursor(raw)
		if err != nil {
			return failValidation(c, map[string]string{"cursor": "is not a valid cursor"})
		}
		after = &cursor
	}

	genre := strings.TrimSpace(strings.ToLower(c.QueryParam("genre")))
	if genre != "" && !taxonomy.IsCanonical(genre) {
		return failValidation(c, map[string]string{"genre": "is not a known genre"})
	}

	from, err := parseTimeFilter(c.QueryParam("dateFrom"), false)
	if err != nil {
		return failValidation(c, map[string]string{"dateFrom": "must be RFC3339 or YYYY-MM-DD"})
	}
	to, err := parseTimeFilter(c.QueryParam("dateTo"), true)
	if err != nil {
		return failValidation(c, map[string]string{"dateTo": "must be RFC3339 or YYYY-MM-DD"})
	}
	if from != nil && to != nil && from.After(*to) {
		return failValidation(c, map[string]string{"dateRange": "dateFrom must be <= dateTo"})
	}

	filter := query.Filter{
		Genre:  genre,
		Venue:  strings.TrimSpace(c.QueryParam("venue")),
		Artist: strings.TrimSpace(c.QueryParam("artistSearch")),
		Name:   strings.TrimSpace(c.QueryParam("eventSearch")),
		From:   from,
		To:     to,
	}

	page, err := s.engine.ListEvents(c.Request().Context(), filter, after, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query events failed")
		return internalError(c, "Failed to load events")
	}

	return success(c, page)
}

func (s *Server) handleEventDetail(c echo.Context) error {
	eventID := strings.TrimSpace(c.Param("event_id"))
	if eventID == "" {
		return failValidation(c, map[string]string{"event_id": "is required"})
	}

	event, err := s.engine.GetEvent(c.Request().Context(), eventID)
	if err != nil {
		if errors.Is(err, query.ErrEventNotFound) {
			return failNotFound(c, "Event not found")
		}
		s.logger.Error().Err(err).Str("event_id", eventID).Msg("query event failed")
		return internalError(c, "Failed to load event")
	}
	return success(c, event)
}

// parseLimit returns 0 for an absent limit; the engine substitutes its
// configured default. An explicit limit outside [1, max] is rejected rather
// than clamped, so callers learn their request was out of range.
func parseLimit(raw string, max int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < 1 || value > max {
		return 0, fmt.Errorf("must be between 1 and %d", max)
	}
	return value, nil
}

func parseTimeFilter(raw string, endOfDay bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}

	if ts, err := time.Parse(time.RFC3339, trimmed); err == nil {
		utc := ts.UTC()
		return &utc, nil
	}

	if day, err := time.Parse("2006-01-02", trimmed); err == nil {
		utc := day.UTC()
		if endOfDay {
			utc = utc.Add((24 * time.Hour) - time.Nanosecond)
		}
		return &utc, nil
	}

	return nil, fmt.Errorf("invalid time format")
}
