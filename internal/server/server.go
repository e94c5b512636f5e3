// Package server exposes the scraper over a small JSON HTTP API, one
// route per fetcher plus an image proxy for poster hotlink protection.
package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"animesalt/internal/scraper"
	"animesalt/internal/util"
)

// Server wires the scraping client into HTTP handlers
type Server struct {
	scraper    *scraper.Client
	imageCache *util.ResponseCache
}

// New creates a server around the given scraping client
func New(client *scraper.Client) *Server {
	return &Server{
		scraper:    client,
		imageCache: util.NewResponseCache(24*time.Hour, 500),
	}
}

// Router builds the API route table
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/anime_list", s.handleAnimeList).Methods(http.MethodGet)
	api.HandleFunc("/anime_details", s.handleAnimeDetails).Methods(http.MethodGet)
	api.HandleFunc("/episode_players", s.handleEpisodePlayers).Methods(http.MethodGet)
	api.HandleFunc("/movies_list", s.handleMoviesList).Methods(http.MethodGet)
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/image", s.handleImage).Methods(http.MethodGet)
	return r
}

// ListenAndServe starts the API server on addr
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	util.Info("API server listening", "addr", addr)
	return srv.ListenAndServe()
}
