package strategy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang-sentiment-quant/internal/entity"
	"golang-sentiment-quant/internal/executor/config"
	"golang-sentiment-quant/internal/executor/dto"
	"golang-sentiment-quant/internal/executor/repository"
	"golang-sentiment-quant/pkg/common"
	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/utils"

	"github.com/PuerkitoBio/goquery"
	"github.com/mauidude/go-readability"
	"github.com/mmcdole/gofeed"
	"github.com/patrickmn/go-cache"
)

const maxContentChars = 5000

// NewsScraperPayload overrides the configured scraper defaults for one run.
type NewsScraperPayload struct {
	Feeds           []config.Feed `json:"feeds"`
	MaxItemsPerFeed int           `json:"max_items_per_feed"`
	MaxConcurrent   int           `json:"max_concurrent"`
	FetchContent    *bool         `json:"fetch_content"`
}

// NewsScraperStrategy collects headlines from RSS feeds and HTML headline pages into news articles.
type NewsScraperStrategy struct {
	logger        *logger.Logger
	articleRepo   repository.ArticleRepository
	publisher     common.Publisher
	cfg           config.Scraper
	client        *http.Client
	inmemoryCache *cache.Cache
	now           func() time.Time
}

type feedItem struct {
	Title       string
	Link        string
	Content     string
	PublishedAt *time.Time
}

// NewNewsScraperStrategy creates a new instance of NewsScraperStrategy.
func NewNewsScraperStrategy(log *logger.Logger, articleRepo repository.ArticleRepository, publisher common.Publisher, cfg config.Scraper) *NewsScraperStrategy {
	if publisher == nil {
		publisher = common.NopPublisher{}
	}
	return &NewsScraperStrategy{
		logger:        log,
		articleRepo:   articleRepo,
		publisher:     publisher,
		cfg:           cfg,
		client:        &http.Client{Timeout: cfg.RequestTimeout},
		inmemoryCache: cache.New(30*time.Minute, time.Hour),
		now:           utils.NowUTC,
	}
}

// GetType returns the job type this strategy handles.
func (s *NewsScraperStrategy) GetType() entity.JobType {
	return entity.JobTypeNewsScraper
}

// Execute scrapes every feed concurrently and stores the new articles, unique by URL.
func (s *NewsScraperStrategy) Execute(ctx context.Context, job *entity.Job) (string, error) {
	payload := NewsScraperPayload{
		Feeds:           s.cfg.Feeds,
		MaxItemsPerFeed: s.cfg.MaxItemsPerFeed,
		MaxConcurrent:   s.cfg.MaxConcurrent,
	}
	if err := decodePayload(job, &payload); err != nil {
		s.logger.Error("Failed to unmarshal job payload", logger.ErrorField(err), logger.Field("job_id", job.ID))
		return "", err
	}
	if len(payload.Feeds) == 0 {
		payload.Feeds = s.cfg.Feeds
	}
	if len(payload.Feeds) == 0 {
		return "", fmt.Errorf("no news feeds configured")
	}
	if payload.MaxItemsPerFeed <= 0 {
		payload.MaxItemsPerFeed = s.cfg.MaxItemsPerFeed
	}
	if payload.MaxConcurrent <= 0 {
		payload.MaxConcurrent = 1
	}
	fetchContent := s.cfg.FetchContent
	if payload.FetchContent != nil {
		fetchContent = *payload.FetchContent
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		result    dto.ScrapeResult
		semaphore = make(chan struct{}, payload.MaxConcurrent)
	)

	for _, feed := range payload.Feeds {
		if !utils.ShouldContinue(ctx) {
			break
		}
		wg.Add(1)
		utils.GoSafe(s.logger, func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			feedResult := s.scrapeFeed(ctx, feed, payload.MaxItemsPerFeed, fetchContent)
			mu.Lock()
			result.Feeds = append(result.Feeds, feedResult)
			result.Inserted += feedResult.Inserted
			mu.Unlock()
		})
	}
	wg.Wait()

	sort.Slice(result.Feeds, func(i, j int) bool { return result.Feeds[i].Feed < result.Feeds[j].Feed })

	failed := 0
	for _, f := range result.Feeds {
		if f.Status == FAILED {
			failed++
		}
	}

	s.logger.Info("News scrape finished",
		logger.Field("job_id", job.ID),
		logger.IntField("feeds", len(result.Feeds)),
		logger.IntField("failed_feeds", failed),
		logger.Field("inserted", result.Inserted))

	if err := s.publisher.Publish(ctx, common.EventNewsScraped, map[string]interface{}{
		"inserted": result.Inserted,
		"feeds":    len(result.Feeds),
	}); err != nil {
		s.logger.Warn("Failed to publish pipeline event", logger.ErrorField(err))
	}

	output, err := marshalResult(result)
	if err != nil {
		return "", err
	}
	if len(result.Feeds) > 0 && failed == len(result.Feeds) {
		return output, fmt.Errorf("all %d news feeds failed", failed)
	}
	return output, nil
}

func (s *NewsScraperStrategy) scrapeFeed(ctx context.Context, feed config.Feed, maxItems int, fetchContent bool) dto.FeedResult {
	feedResult := dto.FeedResult{
		Feed:        feed.Name,
		FailedLinks: []string{},
		Errors:      []string{},
	}

	s.logger.Info("Processing news feed", logger.StringField("feed", feed.Name), logger.StringField("url", feed.URL))

	var (
		items []feedItem
		err   error
	)
	switch feed.Kind {
	case "html":
		items, err = s.fetchHeadlines(ctx, feed)
	default:
		items, err = s.fetchRSS(ctx, feed)
	}
	if err != nil {
		s.logger.Error("Failed to fetch news feed", logger.ErrorField(err), logger.StringField("feed", feed.Name))
		feedResult.Status = FAILED
		feedResult.Errors = append(feedResult.Errors, err.Error())
		return feedResult
	}

	if len(items) > maxItems {
		items = items[:maxItems]
	}
	feedResult.Found = len(items)

	// Links seen by a recent run or another feed of this run are skipped before touching the database.
	var fresh []feedItem
	links := make([]string, 0, len(items))
	for _, item := range items {
		if err := s.inmemoryCache.Add(item.Link, true, cache.DefaultExpiration); err != nil {
			continue
		}
		fresh = append(fresh, item)
		links = append(links, item.Link)
	}

	existing, err := s.articleRepo.ExistingURLs(ctx, links)
	if err != nil {
		s.logger.Error("Failed to fetch existing articles", logger.ErrorField(err), logger.StringField("feed", feed.Name))
		s.forget(links)
		feedResult.Status = FAILED
		feedResult.Errors = append(feedResult.Errors, err.Error())
		return feedResult
	}

	scrapedAt := s.now()
	articles := make([]entity.Article, 0, len(fresh))
	for _, item := range fresh {
		if existing[item.Link] {
			continue
		}
		if !utils.ShouldContinue(ctx) {
			break
		}

		content := item.Content
		if fetchContent {
			fetched, err := s.generateContent(ctx, item.Link)
			if err != nil {
				s.logger.Warn("Failed to fetch article content", logger.ErrorField(err), logger.StringField("url", item.Link))
				feedResult.FailedLinks = append(feedResult.FailedLinks, item.Link)
			} else if fetched != "" {
				content = fetched
			}
		}

		articles = append(articles, entity.Article{
			Source:      feed.Name,
			Title:       item.Title,
			Content:     utils.Truncate(content, maxContentChars),
			URL:         item.Link,
			PublishedAt: item.PublishedAt,
			ScrapedAt:   scrapedAt,
		})
	}

	inserted, err := s.articleRepo.CreateIgnoreConflict(ctx, articles)
	if err != nil {
		s.logger.Error("Failed to save articles", logger.ErrorField(err), logger.StringField("feed", feed.Name))
		s.forget(links)
		feedResult.Status = FAILED
		feedResult.Errors = append(feedResult.Errors, err.Error())
		return feedResult
	}
	feedResult.Inserted = inserted

	if inserted == 0 {
		feedResult.Status = SKIPPED
	} else {
		feedResult.Status = SUCCESS
	}
	return feedResult
}

func (s *NewsScraperStrategy) forget(links []string) {
	for _, l := range links {
		s.inmemoryCache.Delete(l)
	}
}

func (s *NewsScraperStrategy) fetchRSS(ctx context.Context, feed config.Feed) ([]feedItem, error) {
	fp := gofeed.NewParser()
	fp.Client = s.client
	fp.UserAgent = s.cfg.UserAgent
	parsed, err := fp.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	// Sort items by published date descending
	sort.SliceStable(parsed.Items, func(i, j int) bool {
		if parsed.Items[i].PublishedParsed == nil || parsed.Items[j].PublishedParsed == nil {
			return parsed.Items[j].PublishedParsed == nil && parsed.Items[i].PublishedParsed != nil
		}
		return parsed.Items[i].PublishedParsed.After(*parsed.Items[j].PublishedParsed)
	})

	items := make([]feedItem, 0, len(parsed.Items))
	for _, it := range parsed.Items {
		title := utils.NormalizeSpace(it.Title)
		link := strings.TrimSpace(it.Link)
		if title == "" || link == "" {
			continue
		}
		body := it.Content
		if body == "" {
			body = it.Description
		}
		var published *time.Time
		if it.PublishedParsed != nil {
			t := it.PublishedParsed.UTC()
			published = &t
		}
		items = append(items, feedItem{
			Title:       title,
			Link:        link,
			Content:     htmlToText(body),
			PublishedAt: published,
		})
	}
	return items, nil
}

// fetchHeadlines scrapes anchor elements matched by the feed selector from a headline page.
func (s *NewsScraperStrategy) fetchHeadlines(ctx context.Context, feed config.Feed) ([]feedItem, error) {
	if feed.Selector == "" {
		return nil, fmt.Errorf("html feed %q has no selector", feed.Name)
	}
	base, err := url.Parse(feed.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed url: %w", err)
	}

	body, err := s.get(ctx, feed.URL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse headline page: %w", err)
	}

	var items []feedItem
	doc.Find(feed.Selector).Each(func(_ int, sel *goquery.Selection) {
		title := utils.NormalizeSpace(sel.Text())
		href, ok := sel.Attr("href")
		if !ok || title == "" {
			return
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		items = append(items, feedItem{Title: title, Link: base.ResolveReference(ref).String()})
	})
	return items, nil
}

func (s *NewsScraperStrategy) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s, status code: %d", target, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// generateContent downloads an article page and extracts its readable text.
func (s *NewsScraperStrategy) generateContent(ctx context.Context, target string) (string, error) {
	body, err := s.get(ctx, target)
	if err != nil {
		return "", err
	}

	doc, err := readability.NewDocument(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse news content: %w", err)
	}
	return htmlToText(doc.Content()), nil
}

func htmlToText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return utils.NormalizeSpace(html)
	}
	return utils.NormalizeSpace(doc.Text())
}
