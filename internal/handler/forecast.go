package handler

import (
	"net/http"
	"strconv"
	"strings"

	"stockcast/internal/domain"

	"github.com/creasty/defaults"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

const maxForecastLimit = 200

// PredictRequest is the body of POST /api/predict.
type PredictRequest struct {
	Symbol    string `json:"symbol" binding:"required" example:"AAPL"`
	Timeframe string `json:"timeframe" default:"1d" example:"1d"`
}

// Predict godoc
// @Summary      Forecast a stock
// @Description  Runs the fetch, feature, analysis and advice pipeline for one symbol
// @Tags         forecasts
// @Accept       json
// @Produce      json
// @Param        request  body      PredictRequest  true  "Symbol and timeframe (1h, 1d or 1w)"
// @Success      200      {object}  domain.Report
// @Failure      400      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Failure      503      {object}  map[string]string
// @Router       /api/predict [post]
func (h *Handler) Predict(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.predict")
	defer span.End()

	var body PredictRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := defaults.Set(&body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.String("symbol", body.Symbol), attribute.String("timeframe", body.Timeframe))

	rep, err := h.forecasts.Predict(ctx, body.Symbol, body.Timeframe)
	if err != nil {
		log.Warn().Err(err).Str("symbol", body.Symbol).Str("timeframe", body.Timeframe).Msg("predict failed")
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// GetTopStocks godoc
// @Summary      Top stock recommendations
// @Description  Returns ten recommendations ranked by the analysis backend, with defaults for any it omits
// @Tags         forecasts
// @Produce      json
// @Success      200  {object}  domain.TopList
// @Failure      503  {object}  map[string]string
// @Router       /api/top-stocks [get]
func (h *Handler) GetTopStocks(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-top-stocks")
	defer span.End()

	top, err := h.forecasts.Top(ctx)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, top)
}

// GetForecasts godoc
// @Summary      Stored forecasts
// @Description  Lists persisted forecast reports, newest first
// @Tags         forecasts
// @Produce      json
// @Param        symbol  query  string  false  "Ticker symbol"
// @Param        limit   query  int     false  "Number of forecasts (default 50, max 200)"  default(50)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/forecasts [get]
func (h *Handler) GetForecasts(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-forecasts")
	defer span.End()

	var filter domain.ForecastFilter
	if raw := strings.TrimSpace(c.Query("symbol")); raw != "" {
		sym, err := domain.ValidateSymbol(raw)
		if err != nil {
			abortWithError(c, err)
			return
		}
		filter.Symbol = sym
		span.SetAttributes(attribute.String("symbol", sym))
	}
	if rawLimit := strings.TrimSpace(c.Query("limit")); rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n <= 0 || n > maxForecastLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
			return
		}
		filter.Limit = n
	}

	reports, err := h.forecasts.History(ctx, filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"forecasts": reports,
		"count":     len(reports),
	})
}
