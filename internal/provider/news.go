package provider

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultNewsFeedURL is a per-ticker RSS feed; %s receives the escaped ticker.
const DefaultNewsFeedURL = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US"

// NewsItem is one headline pulled from a ticker feed.
type NewsItem struct {
	Title       string
	Summary     string
	Link        string
	Publisher   string
	PublishedAt time.Time
}

// NewsProvider reads recent headlines for a ticker from an RSS feed.
type NewsProvider struct {
	client      *http.Client
	tracer      trace.Tracer
	urlTemplate string
}

func NewNewsProvider(tracer trace.Tracer, urlTemplate string) *NewsProvider {
	if strings.TrimSpace(urlTemplate) == "" {
		urlTemplate = DefaultNewsFeedURL
	}
	return &NewsProvider{
		client:      &http.Client{Timeout: 15 * time.Second},
		tracer:      tracer,
		urlTemplate: urlTemplate,
	}
}

func (p *NewsProvider) feedURL(ticker string) string {
	if !strings.Contains(p.urlTemplate, "%s") {
		return p.urlTemplate
	}
	return fmt.Sprintf(p.urlTemplate, url.QueryEscape(strings.ToUpper(ticker)))
}

type rssDocument struct {
	Channel struct {
		Title string `xml:"title"`
		Items []struct {
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			Description string `xml:"description"`
			PubDate     string `xml:"pubDate"`
			Source      string `xml:"source"`
			Creator     string `xml:"creator"`
		} `xml:"item"`
	} `xml:"channel"`
}

// FetchHeadlines returns at most maxItems headlines in feed order.
// Items without a title are skipped.
func (p *NewsProvider) FetchHeadlines(ctx context.Context, ticker string, maxItems int) ([]NewsItem, error) {
	ctx, span := p.tracer.Start(ctx, "news.fetch-headlines")
	defer span.End()
	span.SetAttributes(attribute.String("ticker", ticker))

	if strings.TrimSpace(ticker) == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if maxItems <= 0 {
		maxItems = 20
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.feedURL(ticker), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("news feed error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var doc rssDocument
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rss payload: %w", err)
	}

	channel := cleanText(doc.Channel.Title, 120)
	items := make([]NewsItem, 0, min(maxItems, len(doc.Channel.Items)))
	for _, row := range doc.Channel.Items {
		if len(items) >= maxItems {
			break
		}
		title := cleanText(row.Title, 300)
		if title == "" {
			continue
		}
		publisher := cleanText(row.Source, 120)
		if publisher == "" {
			publisher = cleanText(row.Creator, 120)
		}
		if publisher == "" {
			publisher = channel
		}
		items = append(items, NewsItem{
			Title:       title,
			Summary:     cleanText(stripTags(row.Description), 420),
			Link:        cleanText(row.Link, 500),
			Publisher:   publisher,
			PublishedAt: parseFeedDate(row.PubDate),
		})
	}
	span.SetAttributes(attribute.Int("items", len(items)))
	return items, nil
}
