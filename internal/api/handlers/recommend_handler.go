package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/kitbuilder587/study-finder/internal/domain"
	"github.com/kitbuilder587/study-finder/internal/metrics"
	"github.com/kitbuilder587/study-finder/internal/ratelimit"
	"github.com/kitbuilder587/study-finder/internal/service"
)

const (
	msgNoData        = "No data provided"
	msgInternalError = "Internal server error"
	msgTooMany       = "Too many requests"
)

type RecommendHandler struct {
	svc     service.RecommendationService
	limiter *ratelimit.Limiter
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRecommendHandler: limiter и metrics могут быть nil
func NewRecommendHandler(svc service.RecommendationService, limiter *ratelimit.Limiter, m *metrics.Metrics, logger *zap.Logger) *RecommendHandler {
	return &RecommendHandler{
		svc:     svc,
		limiter: limiter,
		metrics: m,
		logger:  logger,
	}
}

// Recommend godoc
// @Summary Recommend study programs
// @Description Searches the program directory and returns up to three programs within the monthly budget
// @Tags recommendations
// @Accept json
// @Produce json
// @Param request body RecommendRequest true "Student preferences"
// @Success 200 {array} domain.Recommendation
// @Failure 400 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /recommend [post]
func (h *RecommendHandler) Recommend(c *fiber.Ctx) error {
	if h.limiter != nil && !h.limiter.Allow(c.IP()) {
		if h.metrics != nil {
			h.metrics.RecordRateLimitHit("http")
		}
		retryAfter := time.Until(h.limiter.ResetTime(c.IP())).Seconds()
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(retryAfter)+1))
		return c.Status(fiber.StatusTooManyRequests).JSON(ErrorResponse{Error: msgTooMany})
	}

	prefs, err := decodePreferences(c.Body())
	if err != nil {
		return h.badRequest(c, err)
	}

	h.logger.Info("recommend request",
		zap.String("interests", prefs.Interests),
		zap.String("level", prefs.Level),
		zap.String("language_level", prefs.LanguageLevel),
		zap.Int("budget", prefs.Budget))

	recs, err := h.svc.Recommend(c.UserContext(), prefs)
	if err != nil {
		if errors.Is(err, domain.ErrMissingField) || errors.Is(err, domain.ErrInvalidField) {
			return h.badRequest(c, err)
		}
		h.logger.Error("recommend failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: msgInternalError})
	}

	if recs == nil {
		recs = []domain.Recommendation{}
	}

	return c.JSON(recs)
}

func (h *RecommendHandler) badRequest(c *fiber.Ctx, err error) error {
	h.logger.Warn("bad recommend request", zap.Error(err))
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: clientMessage(err)})
}

// clientMessage - фиксированные тексты для клиента, причина остаётся в логах
func clientMessage(err error) string {
	var fe *domain.FieldError
	switch {
	case errors.Is(err, domain.ErrNoData):
		return msgNoData
	case errors.As(err, &fe) && errors.Is(err, domain.ErrMissingField):
		return "Missing required field: " + fe.Field
	case errors.As(err, &fe) && errors.Is(err, domain.ErrInvalidField):
		return "Invalid " + fe.Field
	default:
		return msgNoData
	}
}
