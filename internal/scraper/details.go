package scraper

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"animesalt/internal/models"
	"animesalt/internal/util"
)

// FetchAnimeDetails fetches the full detail set for one title: seasons,
// poster, metadata and the episode list for the requested season (or the
// site's default season when season is nil). Movie URLs delegate to
// FetchMovieDetails; the two paths are mutually exclusive on URL shape.
func (c *Client) FetchAnimeDetails(pageURL string, postID int, season *int) (models.AnimeDetailsResponse, error) {
	if IsMovieURL(pageURL) {
		return c.FetchMovieDetails(pageURL)
	}

	html, err := c.getHTML(pageURL)
	if err != nil {
		return models.AnimeDetailsResponse{}, errors.Wrap(err, "failed to fetch detail page")
	}

	nonce := ExtractNonceFromHTML(html)
	seasons := c.parseSeasonsFromHTML(html)
	poster := c.ParsePosterFromHTML(html, pageURL)
	meta := c.parseMetadataFromHTML(html)

	resolvedPostID := postID
	if resolvedPostID <= 0 {
		resolvedPostID = ExtractPostIDFromHTML(html)
	}

	var episodes []models.EpisodeItem
	if season != nil {
		episodes = c.fetchSeasonEpisodes(pageURL, resolvedPostID, *season)
	} else if resolvedPostID > 0 {
		episodes = c.fetchDefaultEpisodes(pageURL, resolvedPostID, nonce)
	}

	// Some titles inline the default season's episodes in the page
	// itself and serve nothing over AJAX
	if len(episodes) == 0 {
		episodes = c.parseEpisodesFromHTML(html)
	}

	return models.AnimeDetailsResponse{
		URL:      pageURL,
		PostID:   resolvedPostID,
		Season:   season,
		Seasons:  seasons,
		Episodes: episodes,
		Poster:   poster,
		Metadata: meta,
	}, nil
}

// fetchSeasonEpisodes asks the season-selector AJAX action for one
// season's episode fragment
func (c *Client) fetchSeasonEpisodes(referer string, postID, season int) []models.EpisodeItem {
	form := url.Values{}
	form.Set("action", actionSelectSeason)
	form.Set("season", strconv.Itoa(season))
	form.Set("post", strconv.Itoa(postID))

	body, err := c.postAJAX(form, referer)
	if err != nil {
		util.Debug("select season AJAX failed", "post", postID, "season", season, "error", err)
		return nil
	}
	return c.parseEpisodesFromHTML(body)
}

// fetchDefaultEpisodes asks the get-episodes AJAX action for the default
// season's fragment. The endpoint may answer with a JSON envelope, a
// JSON-encoded string needing a second decode, or literal HTML; a bare
// "0" or empty body means it has nothing, which is not an error.
func (c *Client) fetchDefaultEpisodes(referer string, postID int, nonce string) []models.EpisodeItem {
	form := url.Values{}
	form.Set("action", actionGetEpisodes)
	form.Set("id", strconv.Itoa(postID))
	form.Set("nonce", nonce)

	body, err := c.postAJAX(form, referer)
	if err != nil {
		util.Debug("get episodes AJAX failed", "post", postID, "error", err)
		return nil
	}

	trimmed := strings.TrimSpace(body)
	if trimmed == "" || trimmed == "0" {
		return nil
	}

	var env struct {
		HTML *string `json:"html"`
	}
	if err := json.Unmarshal([]byte(trimmed), &env); err == nil && env.HTML != nil {
		return c.parseEpisodesFromHTML(*env.HTML)
	}
	var nested string
	if err := json.Unmarshal([]byte(trimmed), &nested); err == nil {
		return c.parseEpisodesFromHTML(nested)
	}
	return c.parseEpisodesFromHTML(body)
}

// FetchMovieDetails fetches a single-asset title. Movies have no
// season/episode structure: the result carries one synthetic "Full
// Movie" episode pointing back at the page, postId 0, no seasons, and
// player sources extracted directly from the page HTML.
func (c *Client) FetchMovieDetails(pageURL string) (models.AnimeDetailsResponse, error) {
	html, err := c.getHTML(pageURL)
	if err != nil {
		return models.AnimeDetailsResponse{}, errors.Wrap(err, "failed to fetch movie page")
	}

	poster := c.ParsePosterFromHTML(html, pageURL)
	meta := c.parseMetadataFromHTML(html)
	players := c.extractPlayersFromHTML(html, pageURL)

	return models.AnimeDetailsResponse{
		URL:     pageURL,
		PostID:  0,
		Season:  nil,
		Seasons: []models.SeasonItem{},
		Episodes: []models.EpisodeItem{
			{Title: "Full Movie", URL: pageURL, Poster: poster},
		},
		Poster:   poster,
		Metadata: meta,
		Players:  players,
	}, nil
}
