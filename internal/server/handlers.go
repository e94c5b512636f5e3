package server

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"animesalt/internal/models"
	"animesalt/internal/util"
)

type errorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		util.Debug("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: true, Message: message})
}

// handleAnimeList serves GET /api/anime_list?page=N
func (s *Server) handleAnimeList(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	writeJSON(w, http.StatusOK, s.scraper.FetchAnimeList(page))
}

// handleAnimeDetails serves GET /api/anime_details?url=...&post_id=N&season=N
func (s *Server) handleAnimeDetails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageURL := q.Get("url")
	if pageURL == "" {
		writeError(w, http.StatusBadRequest, "Missing url")
		return
	}
	postID, _ := strconv.Atoi(q.Get("post_id"))

	var season *int
	if raw := q.Get("season"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			season = &n
		}
	}

	details, err := s.scraper.FetchAnimeDetails(pageURL, postID, season)
	if err != nil {
		util.Warn("detail fetch failed", "url", pageURL, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch anime details")
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// handleEpisodePlayers serves GET /api/episode_players?url=...
func (s *Server) handleEpisodePlayers(w http.ResponseWriter, r *http.Request) {
	episodeURL := r.URL.Query().Get("url")
	if episodeURL == "" {
		writeError(w, http.StatusBadRequest, "Missing url")
		return
	}
	items, err := s.scraper.FetchEpisodePlayers(episodeURL)
	if err != nil {
		util.Warn("player fetch failed", "url", episodeURL, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch players")
		return
	}
	if items == nil {
		items = []models.PlayerSourceItem{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"url": episodeURL, "items": items})
}

// handleMoviesList serves GET /api/movies_list?page=N&q=...
func (s *Server) handleMoviesList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	writeJSON(w, http.StatusOK, s.scraper.FetchMoviesList(page, q.Get("q")))
}

// handleSearch serves GET /api/search?q=...
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Missing q")
		return
	}
	items := s.scraper.Search(query)
	writeJSON(w, http.StatusOK, map[string]interface{}{"q": query, "items": items})
}

var (
	dataURIRe = regexp.MustCompile(`(?i)^data:([^;]+);base64,(.*)$`)
	httpURLRe = regexp.MustCompile(`(?i)^https?://`)
)

// handleImage serves GET /api/image?src=..., a pass-through proxy that
// adds the origin's Referer so the site's CDN will serve poster images
// to browsers. Fetched images are cached; on fetch failure the client is
// redirected to the source URL directly.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")
	if src == "" {
		writeError(w, http.StatusBadRequest, "Missing src")
		return
	}

	if m := dataURIRe.FindStringSubmatch(src); m != nil {
		data, err := base64.StdEncoding.DecodeString(m[2])
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid data URI")
			return
		}
		mime := m[1]
		if mime == "" {
			mime = "image/png"
		}
		w.Header().Set("Content-Type", mime)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(data)
		return
	}

	if !httpURLRe.MatchString(src) {
		writeError(w, http.StatusBadRequest, "Invalid src")
		return
	}

	if data, contentType, ok := s.imageCache.Get(src); ok {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(data)
		return
	}

	req, err := http.NewRequest(http.MethodGet, src, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid src")
		return
	}
	origin := s.scraper.BaseURL()
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", origin+"/")
	req.Header.Set("Origin", origin)
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	resp, err := util.GetImageClient().Do(req)
	if err != nil {
		http.Redirect(w, r, src, http.StatusFound)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		http.Redirect(w, r, src, http.StatusFound)
		return
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		http.Redirect(w, r, src, http.StatusFound)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	s.imageCache.Set(src, data, contentType)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}
