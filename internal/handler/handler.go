package handler

import (
	"errors"
	"net/http"

	"stockcast/internal/chart"
	"stockcast/internal/domain"
	"stockcast/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	tracer    trace.Tracer
	forecasts *service.ForecastService
	renderer  *chart.Renderer
}

func New(
	tracer trace.Tracer,
	forecasts *service.ForecastService,
	renderer *chart.Renderer,
) *Handler {
	return &Handler{
		tracer:    tracer,
		forecasts: forecasts,
		renderer:  renderer,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	api := r.Group("/api")
	api.GET("/llm-status", h.GetLLMStatus)
	api.GET("/stock/:symbol", h.GetStock)
	api.GET("/stock/:symbol/chart", h.GetStockChart)
	api.POST("/predict", h.Predict)
	api.GET("/top-stocks", h.GetTopStocks)
	api.GET("/search/:query", h.SearchStocks)
	api.GET("/forecasts", h.GetForecasts)
}

// Health godoc
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.health")
	defer span.End()

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps typed domain errors onto HTTP statuses.
func statusFor(err error) int {
	var validation *domain.ValidationError
	var unavailable *domain.BackendUnavailableError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
