package sentiment

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stock-oracle/internal/domain"
	"stock-oracle/internal/provider"
)

const (
	// Band is the distance from zero a score must reach to leave Neutral.
	Band         = 0.05
	TopHeadlines = 5
	fetchLimit   = 25
)

type HeadlineSource interface {
	FetchHeadlines(ctx context.Context, ticker string, maxItems int) ([]provider.NewsItem, error)
}

// Analyzer scores recent headlines for one ticker. Build one per request.
type Analyzer struct {
	tracer    trace.Tracer
	headlines HeadlineSource
	llm       BatchScorer
}

// NewAnalyzer accepts a nil llm, in which case only the lexicon is used.
func NewAnalyzer(tracer trace.Tracer, headlines HeadlineSource, llm BatchScorer) *Analyzer {
	return &Analyzer{tracer: tracer, headlines: headlines, llm: llm}
}

// Analyze never fails: a feed error or an empty feed yields a neutral zero result.
func (a *Analyzer) Analyze(ctx context.Context, ticker string) domain.Sentiment {
	ctx, span := a.tracer.Start(ctx, "sentiment.analyze")
	defer span.End()

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	span.SetAttributes(attribute.String("ticker", ticker))
	neutral := domain.Sentiment{Ticker: ticker, Label: domain.SentimentNeutral, Headlines: []domain.Headline{}}

	items, err := a.headlines.FetchHeadlines(ctx, ticker, fetchLimit)
	if err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("headline fetch failed")
		return neutral
	}

	titles := make([]string, 0, len(items))
	kept := make([]provider.NewsItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		titles = append(titles, item.Title)
		kept = append(kept, item)
	}
	if len(kept) == 0 {
		return neutral
	}

	scores := make([]float64, len(titles))
	for i, title := range titles {
		scores[i] = LexiconScore(title)
	}
	if a.llm != nil {
		overrides, err := a.llm.ScoreBatch(ctx, titles)
		if err != nil {
			log.Warn().Err(err).Str("ticker", ticker).Msg("llm scoring failed, using lexicon")
		}
		for i, s := range overrides {
			scores[i] = s
		}
	}

	out := domain.Sentiment{Ticker: ticker, Headlines: make([]domain.Headline, 0, TopHeadlines)}
	var total float64
	for i, item := range kept {
		total += scores[i]
		if len(out.Headlines) == TopHeadlines {
			continue
		}
		link := item.Link
		if link == "" {
			link = "#"
		}
		publisher := item.Publisher
		if publisher == "" {
			publisher = "Unknown"
		}
		out.Headlines = append(out.Headlines, domain.Headline{
			Title:     item.Title,
			Score:     scores[i],
			Label:     Classify(scores[i]),
			Link:      link,
			Publisher: publisher,
		})
	}
	out.Score = total / float64(len(kept))
	out.Label = Classify(out.Score)
	span.SetAttributes(attribute.Int("headlines", len(kept)), attribute.Float64("score", out.Score))
	return out
}

// Classify maps a score to Positive at or above Band, Negative at or below -Band.
func Classify(score float64) domain.SentimentLabel {
	switch {
	case score >= Band:
		return domain.SentimentPositive
	case score <= -Band:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}
