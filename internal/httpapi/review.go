package httpapi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"soundcheck.se/encore/internal/db"
	"soundcheck.se/encore/internal/review"
)

type reviewDecisionRequest struct {
	Decision string `json:"decision"`
	Reviewer string `json:"reviewer"`
}

func (s *Server) handleReviewQueue(c echo.Context) error {
	limit := 50
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 || value > 500 {
			return failValidation(c, map[string]string{"limit": "must be an integer between 1 and 500"})
		}
		limit = value
	}

	status := strings.TrimSpace(strings.ToLower(c.QueryParam("status")))
	if status == "" {
		status = review.StatusPending
	}

	items, err := s.review.List(c.Request().Context(), status, limit)
	if err != nil {
		if errors.Is(err, review.ErrUnknownStatus) {
			return failValidation(c, map[string]string{"status": "is not a known status"})
		}
		s.logger.Error().Err(err).Msg("list review queue failed")
		return internalError(c, "Failed to load review queue")
	}
	if items == nil {
		items = []db.ReviewQueueItem{}
	}
	return success(c, map[string]any{
		"items":  items,
		"status": status,
		"limit":  limit,
	})
}

func (s *Server) handleReviewDecision(c echo.Context) error {
	reviewID := strings.TrimSpace(c.Param("review_id"))
	if reviewID == "" {
		return failValidation(c, map[string]string{"review_id": "is required"})
	}

	var req reviewDecisionRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be valid JSON"})
	}
	reviewer := strings.TrimSpace(req.Reviewer)
	if reviewer == "" {
		return failValidation(c, map[string]string{"reviewer": "is required"})
	}
	decision := strings.TrimSpace(strings.ToLower(req.Decision))

	item, err := s.review.MarkReviewed(c.Request().Context(), reviewID, decision, reviewer)
	if err != nil {
		switch {
		case errors.Is(err, review.ErrInvalidDecision):
			return failValidation(c, map[string]string{
				"decision": fmt.Sprintf("must be %q or %q", review.StatusMerged, review.StatusNotDuplicate),
			})
		case errors.Is(err, review.ErrNotFound):
			return failNotFound(c, "Review item not found")
		case errors.Is(err, review.ErrAlreadyReviewed):
			return failConflict(c, "Review item already reviewed")
		}
		s.logger.Error().Err(err).Str("review_id", reviewID).Msg("mark review failed")
		return internalError(c, "Failed to record review decision")
	}

	return success(c, item)
}
