package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"stock-oracle/internal/ml/ensemble"
)

// Predict godoc
// @Summary      Forecast next-day direction
// @Description  Trains the selected model on the ticker's history and returns the next-day call with holdout metrics and backtest
// @Tags         forecast
// @Produce      json
// @Param        ticker     path   string  true   "Ticker symbol"
// @Param        algorithm  query  string  false  "Model name, defaults to the configured algorithm"
// @Success      200  {object}  domain.PipelineResult
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/predict/{ticker} [get]
func (h *Handler) Predict(c *gin.Context) {
	if h.forecaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "forecast service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.predict")
	defer span.End()

	ticker := c.Param("ticker")
	span.SetAttributes(attribute.String("ticker", ticker))

	algo, err := algorithmParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.forecaster.Run(ctx, ticker, algo)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Thresholds godoc
// @Summary      Sweep decision thresholds
// @Description  Replays the holdout at each threshold between 0.30 and 0.70 and reports profit, Sharpe and win rate
// @Tags         forecast
// @Produce      json
// @Param        ticker     path   string  true   "Ticker symbol"
// @Param        algorithm  query  string  false  "Model name"
// @Success      200  {object}  domain.SweepReport
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/thresholds/{ticker} [get]
func (h *Handler) Thresholds(c *gin.Context) {
	if h.forecaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "forecast service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.thresholds")
	defer span.End()

	algo, err := algorithmParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.forecaster.Sweep(ctx, c.Param("ticker"), algo, nil)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// algorithmParam returns "" when the query omits algorithm so the service default applies.
func algorithmParam(c *gin.Context) (ensemble.Algorithm, error) {
	raw := strings.TrimSpace(c.Query("algorithm"))
	if raw == "" {
		return "", nil
	}
	return ensemble.ParseAlgorithm(raw)
}

