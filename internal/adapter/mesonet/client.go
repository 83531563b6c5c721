// Package mesonet fetches MDF and MTS data files from the Oklahoma Mesonet
// file endpoint, with an LRU-cached decorator for repeated requests.
package mesonet

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/plainswx/mesonet-data-service/internal/observability"
)

// Fetcher retrieves one raw data file. An empty site requests the
// network-wide snapshot (MDF) for the given time; a non-empty site requests
// that station's daily time series (MTS), for which only the date matters.
type Fetcher interface {
	Fetch(ctx context.Context, at time.Time, site string) ([]byte, error)
}

// Client implements Fetcher against the Mesonet getfile endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mesonet file client.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// FloorSnapshotTime floors a timestamp to the preceding five-minute boundary,
// zeroing seconds and sub-seconds. Snapshot files are published on that cadence.
func FloorSnapshotTime(at time.Time) time.Time {
	return at.Truncate(5 * time.Minute)
}

// Fetch performs a single blocking GET for one data file and returns the full
// response body. Transport errors and non-success statuses propagate wrapped;
// there is no retry.
func (c *Client) Fetch(ctx context.Context, at time.Time, site string) ([]byte, error) {
	if site == "" {
		at = FloorSnapshotTime(at)
	}
	requestType, fname := fileName(at, site)
	dir := fmt.Sprintf("/%s/%04d/%02d/%02d/", requestType, at.Year(), at.Month(), at.Day())

	params := url.Values{
		"dir":      {dir},
		"filename": {fname},
	}
	fullURL := c.baseURL + "/public/data/getfile.php?" + params.Encode()

	start := time.Now()
	body, err := c.get(ctx, fullURL)
	c.metrics.FetchDuration.WithLabelValues(requestType).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(requestType, "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", fname, err)
	}

	c.metrics.FetchRequests.WithLabelValues(requestType, "success").Inc()
	c.logger.Debug("fetched data file", "file", fname, "bytes", len(body))
	return body, nil
}

// fileName builds the remote filename for a request. Snapshot times are
// floored to the file cadence; time-series files are daily, named by date
// plus the lowercased site.
func fileName(at time.Time, site string) (requestType, fname string) {
	if site == "" {
		return "mdf", FloorSnapshotTime(at).Format("200601021504") + ".mdf"
	}
	return "mts", at.Format("20060102") + strings.ToLower(site) + ".mts"
}

func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("remote returned status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
