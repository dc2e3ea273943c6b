package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/LambTjops/vod-downloader/internal/config"
	"github.com/LambTjops/vod-downloader/internal/monitoring"
	"github.com/LambTjops/vod-downloader/internal/network"
)

// Client handles all Xtream-Codes provider API interactions
type Client struct {
	baseURL     string
	username    string
	password    string
	userAgent   string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *zap.Logger
}

// NewClient creates a new catalog provider client
func NewClient(cfg *config.ProviderConfig, logger *zap.Logger) *Client {
	clientConfig := network.DefaultClientConfig()
	clientConfig.Timeout = time.Duration(cfg.Timeout) * time.Second

	return &Client{
		baseURL:     cfg.BaseURL,
		username:    cfg.Username,
		password:    cfg.Password,
		userAgent:   cfg.UserAgent,
		httpClient:  network.NewClient(clientConfig),
		rateLimiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5), // 5 requests per second
		logger:      logger,
	}
}

// doAction performs a player_api.php request and decodes the response into out
func (c *Client) doAction(ctx context.Context, action string, params url.Values, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("username", c.username)
	params.Set("password", c.password)
	params.Set("action", action)

	endpoint := c.baseURL + "/player_api.php?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		monitoring.RecordProviderRequest(action, "error")
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		monitoring.RecordProviderRequest(action, fmt.Sprintf("%d", resp.StatusCode))
		c.logger.Warn("provider request rejected",
			zap.String("action", action),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("provider returned status %d for action %s", resp.StatusCode, action)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		monitoring.RecordProviderRequest(action, "error")
		return fmt.Errorf("failed to read provider response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		monitoring.RecordProviderRequest(action, "error")
		return fmt.Errorf("failed to decode provider response for %s: %w", action, err)
	}

	monitoring.RecordProviderRequest(action, "ok")
	return nil
}

// Categories returns the combined movie and series categories, each tagged
// with its kind so the right stream listing can be requested later.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var movieCats []Category
	if err := c.doAction(ctx, "get_vod_categories", nil, &movieCats); err != nil {
		return nil, fmt.Errorf("failed to get movie categories: %w", err)
	}

	var seriesCats []Category
	if err := c.doAction(ctx, "get_series_categories", nil, &seriesCats); err != nil {
		return nil, fmt.Errorf("failed to get series categories: %w", err)
	}

	combined := make([]Category, 0, len(movieCats)+len(seriesCats))
	for _, cat := range movieCats {
		cat.Kind = KindMovie
		combined = append(combined, cat)
	}
	for _, cat := range seriesCats {
		cat.Kind = KindSeries
		combined = append(combined, cat)
	}

	return combined, nil
}

// Streams returns the VOD streams (movies) in a category
func (c *Client) Streams(ctx context.Context, categoryID string) ([]Stream, error) {
	params := url.Values{"category_id": {categoryID}}

	var streams []Stream
	if err := c.doAction(ctx, "get_vod_streams", params, &streams); err != nil {
		return nil, fmt.Errorf("failed to get streams: %w", err)
	}

	return streams, nil
}

// SeriesList returns the TV shows in a series category
func (c *Client) SeriesList(ctx context.Context, categoryID string) ([]Series, error) {
	params := url.Values{"category_id": {categoryID}}

	var series []Series
	if err := c.doAction(ctx, "get_series", params, &series); err != nil {
		return nil, fmt.Errorf("failed to get series: %w", err)
	}

	return series, nil
}

// SeriesInfo returns the detail for one series with its episodes flattened
// out of the provider's per-season map, ordered by season then episode.
func (c *Client) SeriesInfo(ctx context.Context, seriesID string) (*SeriesInfo, error) {
	params := url.Values{"series_id": {seriesID}}

	var raw struct {
		Info struct {
			Name string `json:"name"`
		} `json:"info"`
		Episodes map[string][]Episode `json:"episodes"`
	}
	if err := c.doAction(ctx, "get_series_info", params, &raw); err != nil {
		return nil, fmt.Errorf("failed to get series info: %w", err)
	}

	info := &SeriesInfo{Name: raw.Info.Name}
	for _, eps := range raw.Episodes {
		info.Episodes = append(info.Episodes, eps...)
	}

	sort.Slice(info.Episodes, func(i, j int) bool {
		a, b := info.Episodes[i], info.Episodes[j]
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		return a.Number < b.Number
	})

	return info, nil
}

// StreamURL builds the direct download URL for a catalog item.
// Movies and series episodes live under different path prefixes.
func (c *Client) StreamURL(kind Kind, catalogID, extension string) string {
	prefix := "movie"
	if kind == KindSeries {
		prefix = "series"
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s.%s", c.baseURL, prefix, c.username, c.password, catalogID, extension)
}

// UserAgent returns the browser User-Agent the provider expects
func (c *Client) UserAgent() string {
	return c.userAgent
}
