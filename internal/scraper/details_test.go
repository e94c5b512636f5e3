package scraper

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailPage = `
<html>
<head><meta property="og:image" content="/poster.jpg" /></head>
<body class="single postid-4521 single-series">
	<script>var cfg = {"nonce":"abcdef0123456789"};</script>
	<div class="seasons">
		<a class="season-btn" data-season="1">Season 1 (Hindi Dub)</a>
		<a class="season-btn non-regional" data-season="2">Season 2 (Subbed)</a>
	</div>
	<a rel="tag">Action</a>
	<div class="entry-content"><p>A long running adventure.</p></div>
</body>
</html>`

const episodeFragment = `
	<article class="post episodes">
		<a href="/episode/s1-e1/"><h2 class="entry-title">Opening</h2></a>
		<span class="num-epi">1x1</span>
	</article>`

func TestFetchAnimeDetailsDefaultSeason(t *testing.T) {
	t.Parallel()

	var ajaxForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/series/one-piece/":
			_, _ = fmt.Fprint(w, detailPage)
		case "/wp-admin/admin-ajax.php":
			require.NoError(t, r.ParseForm())
			ajaxForm = r.PostForm
			_, _ = fmt.Fprint(w, episodeFragment)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	pageURL := server.URL + "/series/one-piece/"
	details, err := newTestClient(server.URL).FetchAnimeDetails(pageURL, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, "torofilm_get_episodes", ajaxForm.Get("action"))
	assert.Equal(t, "4521", ajaxForm.Get("id"))
	assert.Equal(t, "abcdef0123456789", ajaxForm.Get("nonce"))

	assert.Equal(t, pageURL, details.URL)
	assert.Equal(t, 4521, details.PostID)
	assert.Nil(t, details.Season)
	require.Len(t, details.Seasons, 2)
	assert.Equal(t, server.URL+"/poster.jpg", details.Poster)
	assert.Equal(t, []string{"Action"}, details.Genres)

	require.Len(t, details.Episodes, 1)
	assert.Equal(t, "Opening", details.Episodes[0].Title)
	assert.Equal(t, "1x1", details.Episodes[0].Number)
}

func TestFetchAnimeDetailsExplicitSeasonUsesSelector(t *testing.T) {
	t.Parallel()

	perSeason := map[string]string{
		"1": `<article class="post episodes"><a href="/episode/s1-e1/">S1E1</a><span class="num-epi">1x1</span></article>`,
		"2": `<article class="post episodes"><a href="/episode/s2-e1/">S2E1</a><span class="num-epi">2x1</span></article>`,
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/series/one-piece/":
			_, _ = fmt.Fprint(w, detailPage)
		case "/wp-admin/admin-ajax.php":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "action_select_season", r.PostForm.Get("action"))
			assert.Equal(t, "4521", r.PostForm.Get("post"))
			_, _ = fmt.Fprint(w, perSeason[r.PostForm.Get("season")])
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	pageURL := server.URL + "/series/one-piece/"

	one := 1
	two := 2
	first, err := client.FetchAnimeDetails(pageURL, 0, &one)
	require.NoError(t, err)
	second, err := client.FetchAnimeDetails(pageURL, 0, &two)
	require.NoError(t, err)

	require.Len(t, first.Episodes, 1)
	require.Len(t, second.Episodes, 1)
	assert.Equal(t, "S1E1", first.Episodes[0].Title)
	assert.Equal(t, "S2E1", second.Episodes[0].Title)
	assert.NotEqual(t, first.Episodes, second.Episodes)

	require.NotNil(t, first.Season)
	assert.Equal(t, 1, *first.Season)
}

func TestFetchAnimeDetailsCallerPostIDWins(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/series/one-piece/":
			_, _ = fmt.Fprint(w, detailPage)
		case "/wp-admin/admin-ajax.php":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "9999", r.PostForm.Get("id"))
			_, _ = fmt.Fprint(w, episodeFragment)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	details, err := newTestClient(server.URL).FetchAnimeDetails(server.URL+"/series/one-piece/", 9999, nil)
	require.NoError(t, err)
	assert.Equal(t, 9999, details.PostID)
}

func TestFetchAnimeDetailsEpisodeEnvelopeVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"raw html", episodeFragment},
		{"json envelope", `{"html":"<article class=\"post episodes\"><a href=\"/episode/s1-e1/\">Opening</a><span class=\"num-epi\">1x1</span></article>"}`},
		{"json string", `"<article class=\"post episodes\"><a href=\"/episode/s1-e1/\">Opening</a><span class=\"num-epi\">1x1</span></article>"`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/series/one-piece/":
					_, _ = fmt.Fprint(w, detailPage)
				case "/wp-admin/admin-ajax.php":
					_, _ = fmt.Fprint(w, tt.body)
				default:
					http.NotFound(w, r)
				}
			}))
			defer server.Close()

			details, err := newTestClient(server.URL).FetchAnimeDetails(server.URL+"/series/one-piece/", 0, nil)
			require.NoError(t, err)
			require.Len(t, details.Episodes, 1)
			assert.Equal(t, "1x1", details.Episodes[0].Number)
		})
	}
}

func TestFetchAnimeDetailsZeroBodyFallsBackToPageHTML(t *testing.T) {
	t.Parallel()

	pageWithEpisodes := detailPage + `
		<article class="post episodes">
			<a href="/episode/inline-1/">Inline Episode</a>
			<span class="num-epi">1x1</span>
		</article>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/series/one-piece/":
			_, _ = fmt.Fprint(w, pageWithEpisodes)
		case "/wp-admin/admin-ajax.php":
			_, _ = fmt.Fprint(w, "0")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	details, err := newTestClient(server.URL).FetchAnimeDetails(server.URL+"/series/one-piece/", 0, nil)
	require.NoError(t, err)
	require.Len(t, details.Episodes, 1)
	assert.Equal(t, "Inline Episode", details.Episodes[0].Title)
}

func TestFetchAnimeDetailsUnreachablePageIsAnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchAnimeDetails(server.URL+"/series/one-piece/", 0, nil)
	assert.Error(t, err)
}

func TestFetchAnimeDetailsDelegatesMovies(t *testing.T) {
	t.Parallel()

	moviePage := `
	<html>
	<head><meta property="og:image" content="/movie-poster.jpg" /></head>
	<body>
		<iframe data-src="https://embed.example/movie/1"></iframe>
	</body>
	</html>`

	ajaxCalled := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/movies/spirited-away/":
			_, _ = fmt.Fprint(w, moviePage)
		case "/wp-admin/admin-ajax.php":
			ajaxCalled = true
			_, _ = fmt.Fprint(w, "0")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	pageURL := server.URL + "/movies/spirited-away/"
	details, err := newTestClient(server.URL).FetchAnimeDetails(pageURL, 4521, nil)
	require.NoError(t, err)

	assert.False(t, ajaxCalled)
	assert.Equal(t, 0, details.PostID)
	assert.Nil(t, details.Season)
	require.NotNil(t, details.Seasons)
	assert.Empty(t, details.Seasons)

	require.Len(t, details.Episodes, 1)
	assert.Equal(t, "Full Movie", details.Episodes[0].Title)
	assert.Equal(t, pageURL, details.Episodes[0].URL)
	assert.Equal(t, server.URL+"/movie-poster.jpg", details.Episodes[0].Poster)

	require.Len(t, details.Players, 1)
	assert.Equal(t, "https://embed.example/movie/1", details.Players[0].Src)
}
