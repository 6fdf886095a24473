package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"stock-oracle/internal/domain"
	"stock-oracle/internal/ml/ensemble"
	"stock-oracle/internal/threshold"
)

type Forecaster interface {
	Run(ctx context.Context, ticker string, algo ensemble.Algorithm) (*domain.PipelineResult, error)
	Sweep(ctx context.Context, ticker string, algo ensemble.Algorithm, opt *threshold.Optimizer) (domain.SweepReport, error)
}

type SentimentAnalyzer interface {
	Analyze(ctx context.Context, ticker string) domain.Sentiment
}

type Handler struct {
	tracer       trace.Tracer
	forecaster   Forecaster
	newSentiment func() SentimentAnalyzer
}

func New(tracer trace.Tracer, forecaster Forecaster) *Handler {
	return &Handler{
		tracer:     tracer,
		forecaster: forecaster,
	}
}

// SetSentimentFactory enables /api/sentiment. fn is called once per request.
func (h *Handler) SetSentimentFactory(fn func() SentimentAnalyzer) {
	h.newSentiment = fn
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/predict/:ticker", h.Predict)
	api.GET("/thresholds/:ticker", h.Thresholds)
	api.GET("/sentiment/:ticker", h.Sentiment)
}
