// Package models contains the value objects produced by the scraping layer.
// Everything here is request-scoped: structures are rebuilt on every fetch
// and never cached between calls.
package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// SourceKind identifies how a player source is meant to be consumed
type SourceKind string

const (
	SourceKindIframe SourceKind = "iframe"
	SourceKindVideo  SourceKind = "video"
)

// SeriesListItem is one entry of a catalog listing page. URL is the
// identity key within a listing; Image may be empty until poster
// enrichment fills it in.
type SeriesListItem struct {
	Title  string `json:"title,omitempty"`
	URL    string `json:"url"`
	Image  string `json:"image,omitempty"`
	PostID int    `json:"postId,omitempty"`
}

// AnimeListResponse is one page of the catalog
type AnimeListResponse struct {
	Page  int              `json:"page"`
	Items []SeriesListItem `json:"items"`
}

// LanguageType classifies a season's audio/subtitle situation
type LanguageType string

const (
	LanguageTypeDubbed  LanguageType = "dubbed"
	LanguageTypeSubbed  LanguageType = "subbed"
	LanguageTypeUnknown LanguageType = "unknown"
)

// RegionalLanguageInfo describes what the season label reveals about
// regional dubbing
type RegionalLanguageInfo struct {
	IsNonRegional bool         `json:"isNonRegional"`
	IsSubbed      bool         `json:"isSubbed"`
	IsDubbed      bool         `json:"isDubbed"`
	LanguageType  LanguageType `json:"languageType"`
}

// SeasonID is the site-defined identifier for a season. It is usually
// numeric but occasionally a raw string token; it marshals as a JSON
// number when numeric and as a string otherwise.
type SeasonID struct {
	Number  int
	Raw     string
	Numeric bool
}

// NewSeasonID parses a raw data-season token
func NewSeasonID(raw string) SeasonID {
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		return SeasonID{Number: n, Raw: raw, Numeric: true}
	}
	return SeasonID{Raw: raw}
}

// String returns the token as the site presented it
func (s SeasonID) String() string {
	if s.Numeric {
		return strconv.Itoa(s.Number)
	}
	return s.Raw
}

// MarshalJSON emits a number for numeric identifiers and a string otherwise
func (s SeasonID) MarshalJSON() ([]byte, error) {
	if s.Numeric {
		return json.Marshal(s.Number)
	}
	return json.Marshal(s.Raw)
}

// SeasonItem is one entry of a series' season selector. Season keeps the
// site's raw token when it is not numeric.
type SeasonItem struct {
	Season       SeasonID              `json:"season"`
	Label        string                `json:"label"`
	NonRegional  bool                  `json:"nonRegional"`
	RegionalInfo *RegionalLanguageInfo `json:"regionalLanguageInfo,omitempty"`
}

// EpisodeItem is one episode of a season. URL is the identity key;
// ordering follows document order in the source HTML.
type EpisodeItem struct {
	Number string `json:"number,omitempty"`
	Title  string `json:"title,omitempty"`
	URL    string `json:"url"`
	Poster string `json:"poster,omitempty"`
}

// PlayerSourceItem is a playable media reference extracted from an
// episode or movie page, deduplicated by Src within one fetch.
type PlayerSourceItem struct {
	Src     string     `json:"src"`
	Label   string     `json:"label,omitempty"`
	Quality string     `json:"quality,omitempty"`
	Kind    SourceKind `json:"kind"`
}

// Metadata holds the best-effort descriptive fields sniffed from a
// detail page. Every field is independently optional.
type Metadata struct {
	Genres        []string `json:"genres,omitempty"`
	Year          int      `json:"year,omitempty"`
	TotalEpisodes int      `json:"totalEpisodes,omitempty"`
	Duration      string   `json:"duration,omitempty"`
	Languages     []string `json:"languages,omitempty"`
	Synopsis      string   `json:"synopsis,omitempty"`
	Status        string   `json:"status,omitempty"`
}

// AnimeDetailsResponse aggregates everything known about one title.
// Episodes reflects only the requested season when one was given;
// otherwise it carries whatever the initial page HTML contained.
type AnimeDetailsResponse struct {
	URL      string        `json:"url"`
	PostID   int           `json:"postId"`
	Season   *int          `json:"season"`
	Seasons  []SeasonItem  `json:"seasons"`
	Episodes []EpisodeItem `json:"episodes"`
	Poster   string        `json:"poster,omitempty"`
	Metadata
	Players []PlayerSourceItem `json:"players,omitempty"`
}
