// ABOUTME: Fetches linked pages and renders them as markdown snippets
// ABOUTME: Prefers a Jina-style reader endpoint, falls back to raw HTML conversion
package scraper

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/harper/chatdigest/internal/models"
)

// maxBodyBytes caps how much of a page is read
const maxBodyBytes = 512 << 10

// Scraper turns message links into markdown content for summarization.
// When readerBaseURL is set, pages are fetched through a reader endpoint
// that returns markdown directly; otherwise raw HTML is sanitized and
// converted locally.
type Scraper struct {
	httpClient    *http.Client
	readerBaseURL string
	maxLinks      int

	sanitizer   *bluemonday.Policy
	mdConverter *converter.Converter
}

// New creates a scraper. readerBaseURL may be empty to fetch pages directly.
func New(readerBaseURL string, maxLinks int) *Scraper {
	return &Scraper{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		readerBaseURL: readerBaseURL,
		maxLinks:      maxLinks,
		sanitizer:     bluemonday.UGCPolicy(),
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// ScrapeMessage fetches up to the configured number of links from the
// message. A failing link is logged and skipped; the returned slice holds
// only successful fetches.
func (s *Scraper) ScrapeMessage(ctx context.Context, msg models.Message) []models.ScrapedContent {
	var out []models.ScrapedContent
	for _, u := range msg.URLs {
		if len(out) >= s.maxLinks {
			break
		}
		sc, err := s.Scrape(ctx, u)
		if err != nil {
			log.Printf("[Scraper] Failed to scrape %s: %v", u, err)
			continue
		}
		out = append(out, sc)
	}
	return out
}

// Scrape fetches one URL and returns its markdown rendering
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (models.ScrapedContent, error) {
	target := pageURL
	if s.readerBaseURL != "" {
		target = s.readerBaseURL + pageURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return models.ScrapedContent{}, fmt.Errorf("new request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return models.ScrapedContent{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.ScrapedContent{}, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.ScrapedContent{}, fmt.Errorf("read body: %w", err)
	}

	markdown := string(body)
	if s.readerBaseURL == "" || looksLikeHTML(resp.Header.Get("Content-Type"), markdown) {
		markdown = s.htmlToMarkdown(markdown, pageURL)
	}

	return models.ScrapedContent{
		URL:       pageURL,
		Title:     firstHeading(markdown),
		Markdown:  strings.TrimSpace(markdown),
		FetchedAt: time.Now().UTC(),
	}, nil
}

// htmlToMarkdown sanitizes untrusted HTML and converts it. When conversion
// fails or comes back empty, the sanitized text is returned as-is.
func (s *Scraper) htmlToMarkdown(html, pageURL string) string {
	clean := s.sanitizer.Sanitize(html)
	result, err := s.mdConverter.ConvertString(clean, converter.WithDomain(pageURL))
	if err != nil || strings.TrimSpace(result) == "" {
		return clean
	}
	return result
}

func looksLikeHTML(contentType, body string) bool {
	if strings.Contains(contentType, "text/html") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(body))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

// firstHeading returns the text of the first markdown heading, if any
func firstHeading(markdown string) string {
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
		}
	}
	return ""
}
