// Package scraper extracts structured catalog data from the AnimeSalt
// WordPress site. Raw HTML and admin-ajax fragments flow through a chain
// of parsers that produce the normalized model in internal/models.
//
// Expected scraping misses are not errors: parsers return empty values on
// malformed HTML and fetchers swallow network failures so their fallback
// chains can proceed. Callers infer "no data" from empty results.
package scraper

import (
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"animesalt/internal/util"
)

const (
	AnimeSaltBase      = "https://animesalt.cc"
	AnimeSaltUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0"

	// AJAX actions exposed by the site's theme
	actionInfiniteScroll = "torofilm_infinite_scroll"
	actionSelectSeason   = "action_select_season"
	actionGetEpisodes    = "torofilm_get_episodes"

	listPerPage = "12"
)

var moviePathRe = regexp.MustCompile(`(?i)/movies/`)

// Config holds the fixed configuration of a scraping client. The zero
// value is usable; missing fields fall back to the animesalt.cc defaults.
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Client handles all interactions with the catalog site. Its state is
// read-only after construction, so it is safe for concurrent use.
type Client struct {
	client     *http.Client
	baseURL    string
	ajaxURL    string
	userAgent  string
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates a client with the default configuration
func NewClient() *Client {
	return NewClientWithConfig(Config{})
}

// NewClientWithConfig creates a client from an explicit configuration
func NewClientWithConfig(cfg Config) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = AnimeSaltBase
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = AnimeSaltUserAgent
	}
	httpClient := util.GetScrapeClient()
	if cfg.Timeout > 0 {
		httpClient = &http.Client{
			Transport: httpClient.Transport,
			Timeout:   cfg.Timeout,
		}
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 2
	}
	delay := cfg.RetryDelay
	if delay == 0 {
		delay = 300 * time.Millisecond
	}
	return &Client{
		client:     httpClient,
		baseURL:    base,
		ajaxURL:    base + "/wp-admin/admin-ajax.php",
		userAgent:  ua,
		maxRetries: retries,
		retryDelay: delay,
	}
}

// BaseURL returns the configured site root
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) decorateRequest(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("Origin", c.baseURL)
}

func (c *Client) decorateAJAXRequest(req *http.Request, referer string) {
	c.decorateRequest(req)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
}

// getHTML fetches a page and returns its body as a string. Transient
// failures are retried a bounded number of times.
func (c *Client) getHTML(pageURL string) (string, error) {
	var body string
	err := retry.Do(
		func() error {
			req, err := http.NewRequest(http.MethodGet, pageURL, nil)
			if err != nil {
				return retry.Unrecoverable(errors.Wrap(err, "failed to create request"))
			}
			c.decorateRequest(req)

			resp, err := c.client.Do(req)
			if err != nil {
				return errors.Wrap(err, "failed to make request")
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode != http.StatusOK {
				return errors.Errorf("server returned: %s", resp.Status)
			}

			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return errors.Wrap(err, "failed to read response")
			}
			body = string(data)
			return nil
		},
		retry.Attempts(uint(c.maxRetries+1)),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	return body, err
}

// postAJAX posts a form-encoded action to admin-ajax.php and returns the
// raw response body. AJAX posts are not retried; the fallback chains in
// the fetchers cover their failures.
func (c *Client) postAJAX(form url.Values, referer string) (string, error) {
	req, err := http.NewRequest(http.MethodPost, c.ajaxURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	c.decorateAJAXRequest(req, referer)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to make request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("server returned: %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}
	return string(data), nil
}

// resolveURL resolves ref against base and returns an absolute URL, or
// "" when either side does not parse. Every URL that crosses a parser
// boundary goes through here.
func resolveURL(base, ref string) string {
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	abs := b.ResolveReference(r)
	if abs.Scheme == "" || abs.Host == "" {
		return ""
	}
	return abs.String()
}

// IsMovieURL reports whether a catalog URL uses the movie path shape
func IsMovieURL(u string) bool {
	return moviePathRe.MatchString(u)
}
