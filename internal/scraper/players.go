package scraper

import (
	"github.com/pkg/errors"

	"animesalt/internal/models"
)

// FetchEpisodePlayers fetches one episode page and extracts its playable
// sources, deduplicated by resolved URL. There is no fallback chain: an
// empty result means no playable source was found, which callers must
// not treat as an error.
func (c *Client) FetchEpisodePlayers(episodeURL string) ([]models.PlayerSourceItem, error) {
	html, err := c.getHTML(episodeURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch episode page")
	}
	return c.extractPlayersFromHTML(html, episodeURL), nil
}
