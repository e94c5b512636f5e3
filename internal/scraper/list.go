package scraper

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sourcegraph/conc"

	"animesalt/internal/models"
	"animesalt/internal/util"
)

// ajaxEnvelope is the JSON wrapper some theme endpoints put around their
// HTML fragment. Which field carries the HTML varies, so all three are
// probed.
type ajaxEnvelope struct {
	HTML    string `json:"html"`
	Data    string `json:"data"`
	Content string `json:"content"`
}

// htmlFromAJAXBody recovers an HTML fragment from an admin-ajax response
// body, which may be raw HTML or a JSON envelope
func htmlFromAJAXBody(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "{") {
		var env ajaxEnvelope
		if err := json.Unmarshal([]byte(trimmed), &env); err == nil {
			switch {
			case env.HTML != "":
				return env.HTML
			case env.Data != "":
				return env.Data
			case env.Content != "":
				return env.Content
			}
		}
	}
	return body
}

// FetchAnimeList fetches one page of the series catalog. It tries the
// infinite-scroll AJAX endpoint first and falls back to a fixed sequence
// of directly fetched pages, stopping at the first that yields items.
// Network failures along the chain are swallowed; when everything fails
// the result carries an empty (non-nil) item slice.
func (c *Client) FetchAnimeList(page int) models.AnimeListResponse {
	var items []models.SeriesListItem

	form := url.Values{}
	form.Set("action", actionInfiniteScroll)
	form.Set("page", strconv.Itoa(page))
	form.Set("per_page", listPerPage)
	form.Set("query_type", "archive")
	form.Set("post_type", "series")

	body, err := c.postAJAX(form, "")
	if err != nil {
		util.Debug("list AJAX fetch failed", "page", page, "error", err)
	} else if html := htmlFromAJAXBody(body); html != "" {
		items = c.ParseAnimeListFromHTML(html)
	}

	if len(items) == 0 {
		for _, candidate := range c.listPageCandidates(page) {
			html, err := c.getHTML(candidate)
			if err != nil {
				util.Debug("list page fetch failed", "url", candidate, "error", err)
				continue
			}
			if parsed := c.ParseAnimeListFromHTML(html); len(parsed) > 0 {
				items = parsed
				break
			}
		}
	}

	items = c.enrichPosters(items)
	if items == nil {
		items = []models.SeriesListItem{}
	}
	return models.AnimeListResponse{Page: page, Items: items}
}

// listPageCandidates returns the ordered fallback URLs for one catalog
// page. The archive roots only make sense for the first page.
func (c *Client) listPageCandidates(page int) []string {
	var candidates []string
	if page <= 1 {
		candidates = append(candidates, c.baseURL+"/series/", c.baseURL+"/")
	}
	candidates = append(candidates,
		fmt.Sprintf("%s/series/page/%d/", c.baseURL, page),
		fmt.Sprintf("%s/series/?_page=%d", c.baseURL, page),
		fmt.Sprintf("%s/?post_type=series&_page=%d", c.baseURL, page),
	)
	return candidates
}

// FetchMoviesList fetches one page of the movie catalog. With a query it
// runs a site search instead and keeps only movie results.
func (c *Client) FetchMoviesList(page int, query string) models.AnimeListResponse {
	var items []models.SeriesListItem

	if strings.TrimSpace(query) != "" {
		for _, item := range c.Search(query) {
			if IsMovieURL(item.URL) {
				items = append(items, item)
			}
		}
	} else {
		var candidates []string
		if page <= 1 {
			candidates = append(candidates, c.baseURL+"/movies/")
		}
		candidates = append(candidates, fmt.Sprintf("%s/movies/page/%d/", c.baseURL, page))

		for _, candidate := range candidates {
			html, err := c.getHTML(candidate)
			if err != nil {
				util.Debug("movies page fetch failed", "url", candidate, "error", err)
				continue
			}
			var parsed []models.SeriesListItem
			for _, item := range c.ParseAnimeListFromHTML(html) {
				if IsMovieURL(item.URL) {
					parsed = append(parsed, item)
				}
			}
			if len(parsed) > 0 {
				items = parsed
				break
			}
		}
	}

	items = c.enrichPosters(items)
	if items == nil {
		items = []models.SeriesListItem{}
	}
	return models.AnimeListResponse{Page: page, Items: items}
}

// Search runs the site's search endpoint and parses the result page with
// the list parser. An unreachable site yields an empty slice.
func (c *Client) Search(query string) []models.SeriesListItem {
	searchURL := fmt.Sprintf("%s/?s=%s", c.baseURL, url.QueryEscape(query))
	html, err := c.getHTML(searchURL)
	if err != nil {
		util.Debug("search fetch failed", "query", query, "error", err)
		return []models.SeriesListItem{}
	}
	items := c.ParseAnimeListFromHTML(html)
	if items == nil {
		items = []models.SeriesListItem{}
	}
	return items
}

// enrichPosters fills in missing or placeholder poster images by
// fetching each item's detail page and running the poster parser. The
// fetches fan out concurrently; one failing item leaves its image unset
// without affecting siblings.
func (c *Client) enrichPosters(items []models.SeriesListItem) []models.SeriesListItem {
	var targets []int
	for i, item := range items {
		if item.Image == "" || strings.HasPrefix(strings.ToLower(item.Image), "data:") {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return items
	}

	var wg conc.WaitGroup
	for _, idx := range targets {
		idx := idx
		wg.Go(func() {
			html, err := c.getHTML(items[idx].URL)
			if err != nil {
				util.Debug("poster enrichment fetch failed", "url", items[idx].URL, "error", err)
				return
			}
			if poster := c.ParsePosterFromHTML(html, items[idx].URL); poster != "" {
				items[idx].Image = poster
			}
		})
	}
	wg.Wait()
	return items
}
