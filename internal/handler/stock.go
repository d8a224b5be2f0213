package handler

import (
	"net/http"
	"strings"

	"stockcast/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetLLMStatus godoc
// @Summary      Analysis backend status
// @Tags         system
// @Produce      json
// @Success      200  {object}  advisor.Status
// @Router       /api/llm-status [get]
func (h *Handler) GetLLMStatus(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-llm-status")
	defer span.End()

	c.JSON(http.StatusOK, h.forecasts.AdvisorStatus())
}

// GetStock godoc
// @Summary      Stock overview
// @Description  Returns company info, the latest daily rows, indicators, levels and signal score
// @Tags         stocks
// @Produce      json
// @Param        symbol  path  string  true  "Ticker symbol (e.g., AAPL)"
// @Success      200  {object}  domain.Snapshot
// @Failure      400  {object}  map[string]string
// @Router       /api/stock/{symbol} [get]
func (h *Handler) GetStock(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-stock")
	defer span.End()

	symbol := c.Param("symbol")
	span.SetAttributes(attribute.String("symbol", symbol))

	snap, err := h.forecasts.Snapshot(ctx, symbol)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetStockChart godoc
// @Summary      Stock chart
// @Description  Renders price, SMA20, Bollinger bands, support/resistance and volume as PNG
// @Tags         stocks
// @Produce      png
// @Param        symbol     path   string  true   "Ticker symbol (e.g., AAPL)"
// @Param        timeframe  query  string  false  "Forecast timeframe (1h, 1d, 1w)"  default(1d)
// @Success      200  {file}    binary
// @Failure      400  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /api/stock/{symbol}/chart [get]
func (h *Handler) GetStockChart(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-stock-chart")
	defer span.End()

	symbol := c.Param("symbol")
	timeframe := strings.TrimSpace(c.DefaultQuery("timeframe", domain.Timeframe1D))
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("timeframe", timeframe))

	series, err := h.forecasts.Series(ctx, symbol, timeframe)
	if err != nil {
		abortWithError(c, err)
		return
	}
	img, err := h.renderer.RenderSeries(series)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.Header("X-Data-Provenance", string(series.Provenance))
	c.Data(http.StatusOK, img.MimeType, img.Bytes)
}

// SearchStocks godoc
// @Summary      Search tickers
// @Description  Matches common tickers by symbol prefix or company name
// @Tags         stocks
// @Produce      json
// @Param        query  path  string  true  "Symbol prefix or name fragment"
// @Success      200  {object}  map[string]interface{}
// @Router       /api/search/{query} [get]
func (h *Handler) SearchStocks(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.search-stocks")
	defer span.End()

	query := c.Param("query")
	span.SetAttributes(attribute.String("query", query))

	results := h.forecasts.Search(query)
	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}
