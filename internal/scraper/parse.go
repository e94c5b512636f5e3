package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"

	"animesalt/internal/models"
)

// Fragment parsers. Each one is a pure function over an HTML string with
// no I/O and no hidden state. Malformed markup is not an error: a missing
// pattern yields an absent field.

var (
	nonceRe    = regexp.MustCompile(`(?i)"nonce"\s*:\s*"([a-f0-9]+)"`)
	cardPostRe = regexp.MustCompile(`post-(\d+)`)
	bgImageRe  = regexp.MustCompile(`(?i)background-image\s*:\s*url\((['"]?)([^)'"]+)`)
	m3u8Re     = regexp.MustCompile(`https?:[^"'\s]+\.m3u8`)

	// Tried in order; first match wins
	postIDRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)postid-(\d+)`),
		regexp.MustCompile(`(?i)"post"\s*:\s*"?(\d+)"?`),
		regexp.MustCompile(`(?i)data-post(?:-id)?\s*=\s*"?(\d+)"?`),
		regexp.MustCompile(`(?i)post_id\s*=\s*"?(\d+)"?`),
		regexp.MustCompile(`(?i)var\s+post(?:Id|_id)\s*=\s*(\d+)`),
	}
)

// ExtractNonceFromHTML pulls the theme's AJAX nonce out of the inline
// script JSON embedded in a detail page. Returns "" when absent.
func ExtractNonceFromHTML(html string) string {
	if m := nonceRe.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	return ""
}

// ExtractPostIDFromHTML recovers the WordPress post ID of a detail page.
// Returns 0 when no known pattern matches.
func ExtractPostIDFromHTML(html string) int {
	for _, re := range postIDRes {
		if m := re.FindStringSubmatch(html); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}

func loadDocument(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// strings.Reader cannot fail mid-read; treat as an empty page
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return doc
}

// imageFromCard extracts a poster candidate from a post card, walking
// the site's lazy-load attribute ladder before falling back to srcset
// and inline background-image styles. Returns "" when nothing usable is
// found; inline data URIs are rejected.
func imageFromCard(card *goquery.Selection) string {
	img := card.Find("img").First()
	if img.Length() > 0 {
		for _, attr := range []string{"data-src", "data-lazy-src", "data-img", "data-original", "data-thumb", "data-thumbnail", "src"} {
			if v, ok := img.Attr(attr); ok && v != "" && !strings.HasPrefix(strings.ToLower(v), "data:") {
				return v
			}
		}
		for _, attr := range []string{"srcset", "data-srcset", "data-lazy-srcset"} {
			if v, ok := img.Attr(attr); ok && v != "" {
				if pick := lastSrcsetCandidate(v); pick != "" {
					return pick
				}
			}
		}
	}
	style, _ := card.Find(`[style*="background-image"]`).First().Attr("style")
	if m := bgImageRe.FindStringSubmatch(style); m != nil {
		return m[2]
	}
	return ""
}

// lastSrcsetCandidate picks the final (largest) URL out of a srcset list
func lastSrcsetCandidate(srcset string) string {
	var candidates []string
	for _, part := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		u := fields[0]
		if u == "" || strings.HasPrefix(strings.ToLower(u), "data:") {
			continue
		}
		candidates = append(candidates, u)
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[len(candidates)-1]
}

// ParseAnimeListFromHTML extracts series list items from a catalog page
// or AJAX fragment. Items are deduplicated by resolved absolute URL in
// first-seen order. When no post cards are present it falls back to
// scanning bare series links, so search result pages parse the same way.
func (c *Client) ParseAnimeListFromHTML(html string) []models.SeriesListItem {
	doc := loadDocument(html)
	items := []models.SeriesListItem{}
	seen := map[string]bool{}

	doc.Find("article.post").Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Find(`a[href*="/series/"]`).First().Attr("href")
		if !ok || href == "" {
			href, ok = card.Find("a").First().Attr("href")
			if !ok || href == "" {
				return
			}
		}
		abs := resolveURL(c.baseURL, href)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true

		title := strings.TrimSpace(card.Find("h2.entry-title").First().Text())
		if title == "" {
			title = strings.TrimSpace(card.Find("a").First().Text())
		}

		var postID int
		idAttr, _ := card.Attr("id")
		classAttr, _ := card.Attr("class")
		if m := cardPostRe.FindStringSubmatch(idAttr); m != nil {
			postID, _ = strconv.Atoi(m[1])
		} else if m := cardPostRe.FindStringSubmatch(classAttr); m != nil {
			postID, _ = strconv.Atoi(m[1])
		}

		image := imageFromCard(card)
		if image != "" {
			image = resolveURL(abs, image)
		}

		items = append(items, models.SeriesListItem{
			Title:  title,
			URL:    abs,
			Image:  image,
			PostID: postID,
		})
	})

	if len(items) == 0 {
		doc.Find(`a[href*="/series/"]`).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok || href == "" {
				return
			}
			abs := resolveURL(c.baseURL, href)
			if abs == "" || seen[abs] {
				return
			}
			seen[abs] = true
			items = append(items, models.SeriesListItem{
				Title: strings.TrimSpace(a.Text()),
				URL:   abs,
			})
		})
	}

	return items
}

// parseEpisodesFromHTML extracts the episode list from a detail page or
// an AJAX season fragment, in document order.
func (c *Client) parseEpisodesFromHTML(html string) []models.EpisodeItem {
	doc := loadDocument(html)
	episodes := []models.EpisodeItem{}

	doc.Find("article.post.episodes").Each(func(_ int, card *goquery.Selection) {
		link := card.Find(`a[href*="/episode"]`).First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		abs := resolveURL(c.baseURL, href)
		if abs == "" {
			return
		}

		title := strings.TrimSpace(card.Find("h2.entry-title").First().Text())
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}
		number := strings.TrimSpace(card.Find(".num-epi").First().Text())

		var poster string
		img := card.Find("img").First()
		if img.Length() > 0 {
			poster, _ = img.Attr("src")
			if poster == "" {
				poster, _ = img.Attr("data-src")
			}
			if poster != "" {
				poster = resolveURL(c.baseURL, poster)
			}
		}

		episodes = append(episodes, models.EpisodeItem{
			Number: number,
			Title:  title,
			URL:    abs,
			Poster: poster,
		})
	})

	if len(episodes) == 0 {
		doc.Find(`a[href*="/episode"]`).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok || href == "" {
				return
			}
			abs := resolveURL(c.baseURL, href)
			if abs == "" {
				return
			}
			episodes = append(episodes, models.EpisodeItem{
				Title: strings.TrimSpace(a.Text()),
				URL:   abs,
			})
		})
	}

	return episodes
}

// regionalInfoFromLabel classifies a season button's language situation
// from its visible label
func regionalInfoFromLabel(label string, nonRegional bool) *models.RegionalLanguageInfo {
	lower := strings.ToLower(label)
	info := &models.RegionalLanguageInfo{
		IsNonRegional: nonRegional,
		IsSubbed:      strings.Contains(lower, "sub"),
		IsDubbed:      strings.Contains(lower, "dub"),
		LanguageType:  models.LanguageTypeUnknown,
	}
	switch {
	case info.IsDubbed:
		info.LanguageType = models.LanguageTypeDubbed
	case info.IsSubbed:
		info.LanguageType = models.LanguageTypeSubbed
	}
	return info
}

// parseSeasonsFromHTML extracts the season selector buttons in document
// order. The site is assumed to emit them ascending; no re-sort happens.
func (c *Client) parseSeasonsFromHTML(html string) []models.SeasonItem {
	doc := loadDocument(html)
	seasons := []models.SeasonItem{}

	doc.Find("a.season-btn").Each(func(_ int, a *goquery.Selection) {
		raw, ok := a.Attr("data-season")
		if !ok || raw == "" {
			return
		}
		label := strings.TrimSpace(a.Text())
		classAttr, _ := a.Attr("class")
		nonRegional := false
		for _, cls := range strings.Fields(classAttr) {
			if cls == "non-regional" {
				nonRegional = true
				break
			}
		}
		seasons = append(seasons, models.SeasonItem{
			Season:       models.NewSeasonID(raw),
			Label:        label,
			NonRegional:  nonRegional,
			RegionalInfo: regionalInfoFromLabel(label, nonRegional),
		})
	})

	return seasons
}

// ParsePosterFromHTML finds the best poster candidate on a page: Open
// Graph and Twitter meta images first, then known cover containers, then
// a ranked scan of every <img> preferring the TMDB image CDN and larger
// named sizes. Relative candidates resolve against baseURL.
func (c *Client) ParsePosterFromHTML(html, baseURL string) string {
	doc := loadDocument(html)

	if og, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && og != "" {
		return resolveURL(baseURL, og)
	}
	if tw, ok := doc.Find(`meta[name="twitter:image"]`).First().Attr("content"); ok && tw != "" {
		return resolveURL(baseURL, tw)
	}

	cover := doc.Find(".cover img, .poster img, .entry-thumb img").First()
	for _, attr := range []string{"src", "data-src", "data-original"} {
		if v, ok := cover.Attr(attr); ok && v != "" {
			return resolveURL(baseURL, v)
		}
	}

	// Heuristic fallback: rank every image on the page. The scoring
	// weights are tuned to the site's TMDB-hosted artwork.
	type scored struct {
		url   string
		score int
	}
	var candidates []scored
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("data-src")
		if !ok || src == "" {
			src, ok = img.Attr("src")
			if !ok || src == "" {
				return
			}
		}
		abs := resolveURL(baseURL, src)
		if abs == "" {
			return
		}
		score := 0
		if strings.Contains(strings.ToLower(abs), "image.tmdb.org") {
			score += 2
		}
		if posterSizeRe.MatchString(abs) {
			score++
		}
		candidates = append(candidates, scored{url: abs, score: score})
	})
	if len(candidates) == 0 {
		return ""
	}
	best := candidates[0]
	for _, cand := range candidates[1:] {
		if cand.score > best.score {
			best = cand
		}
	}
	return best.url
}

var posterSizeRe = regexp.MustCompile(`(?i)(original|w780|w500|w342|w300|w185)`)

// metaRule is one regex-driven extraction over the page's visible text.
// Keeping these as data makes site-specific pattern tweaks local to this
// table.
type metaRule struct {
	pattern *regexp.Regexp
	apply   func(m *models.Metadata, match []string)
}

var metaRules = []metaRule{
	{
		pattern: regexp.MustCompile(`\b((?:19|20)\d{2})\b`),
		apply: func(m *models.Metadata, match []string) {
			m.Year, _ = strconv.Atoi(match[1])
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)Episodes?\s*[:|-]?\s*(\d+)`),
		apply: func(m *models.Metadata, match []string) {
			m.TotalEpisodes, _ = strconv.Atoi(match[1])
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)(\d+\s*(?:min|minutes|mins))`),
		apply: func(m *models.Metadata, match []string) {
			m.Duration = match[1]
		},
	},
	{
		pattern: regexp.MustCompile(`(?i)Status\s*[:|-]?\s*(Ongoing|Completed|Finished|Airing)`),
		apply: func(m *models.Metadata, match []string) {
			m.Status = match[1]
		},
	},
}

// parseMetadataFromHTML sniffs the best-effort descriptive fields from a
// detail page. Each field is independent; a missed pattern just leaves
// its field zero.
func (c *Client) parseMetadataFromHTML(html string) models.Metadata {
	doc := loadDocument(html)
	var meta models.Metadata

	genres := doc.Find(`a[rel="tag"], .genres a, .genre a`).Map(func(_ int, a *goquery.Selection) string {
		return strings.TrimSpace(a.Text())
	})
	genres = lo.Filter(genres, func(g string, _ int) bool { return g != "" })
	if len(genres) > 0 {
		meta.Genres = lo.Uniq(genres)
	}

	text := doc.Find("body").Text()
	for _, rule := range metaRules {
		if match := rule.pattern.FindStringSubmatch(text); match != nil {
			rule.apply(&meta, match)
		}
	}

	lowerText := strings.ToLower(text)
	var languages []string
	if strings.Contains(lowerText, "subbed") {
		languages = append(languages, "Sub")
	}
	if strings.Contains(lowerText, "dub") {
		languages = append(languages, "Dub")
	}
	meta.Languages = languages

	if synopsis := strings.TrimSpace(doc.Find(".entry-content p, .synopsis, .description").First().Text()); synopsis != "" {
		meta.Synopsis = synopsis
	}

	return meta
}

// extractPlayersFromHTML pulls playable sources out of a page: iframe
// embeds (preferring lazy data-src), <video><source> tags with their
// label/quality attributes, and any raw HLS manifest URL in the text.
// Sources are deduplicated by resolved src, first seen wins.
func (c *Client) extractPlayersFromHTML(html, baseURL string) []models.PlayerSourceItem {
	doc := loadDocument(html)
	sources := []models.PlayerSourceItem{}
	seen := map[string]bool{}

	add := func(item models.PlayerSourceItem) {
		if item.Src == "" || seen[item.Src] {
			return
		}
		seen[item.Src] = true
		sources = append(sources, item)
	}

	doc.Find("iframe").Each(func(_ int, frame *goquery.Selection) {
		src, ok := frame.Attr("data-src")
		if !ok || src == "" {
			src, ok = frame.Attr("src")
			if !ok || src == "" {
				return
			}
		}
		add(models.PlayerSourceItem{
			Src:  resolveURL(baseURL, src),
			Kind: models.SourceKindIframe,
		})
	})

	doc.Find("video source").Each(func(_ int, source *goquery.Selection) {
		src, ok := source.Attr("src")
		if !ok || src == "" {
			return
		}
		label, _ := source.Attr("label")
		if label == "" {
			label, _ = source.Attr("data-label")
		}
		quality, _ := source.Attr("res")
		if quality == "" {
			quality, _ = source.Attr("data-res")
		}
		add(models.PlayerSourceItem{
			Src:     resolveURL(baseURL, src),
			Label:   label,
			Quality: quality,
			Kind:    models.SourceKindVideo,
		})
	})

	if m := m3u8Re.FindString(html); m != "" {
		add(models.PlayerSourceItem{
			Src:   resolveURL(baseURL, m),
			Kind:  models.SourceKindVideo,
			Label: "HLS",
		})
	}

	return sources
}
