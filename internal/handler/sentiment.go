package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Sentiment godoc
// @Summary      Headline sentiment
// @Description  Scores recent news headlines for the ticker. Feed failures yield a neutral result
// @Tags         sentiment
// @Produce      json
// @Param        ticker  path  string  true  "Ticker symbol"
// @Success      200  {object}  domain.Sentiment
// @Failure      503  {object}  map[string]string
// @Router       /api/sentiment/{ticker} [get]
func (h *Handler) Sentiment(c *gin.Context) {
	if h.newSentiment == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sentiment service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.sentiment")
	defer span.End()

	c.JSON(http.StatusOK, h.newSentiment().Analyze(ctx, c.Param("ticker")))
}
