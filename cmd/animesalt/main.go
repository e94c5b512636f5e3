package main

import (
	"flag"
	"time"

	"animesalt/internal/scraper"
	"animesalt/internal/server"
	"animesalt/internal/util"
)

func main() {
	addrFlag := flag.String("addr", ":8080", "address for the API server to listen on")
	siteFlag := flag.String("site", scraper.AnimeSaltBase, "base URL of the catalog site to scrape")
	timeoutFlag := flag.Duration("timeout", 20*time.Second, "per-request timeout for scraping fetches")
	debugFlag := flag.Bool("debug", false, "enable debug mode")

	flag.Parse()

	util.SetDebugMode(*debugFlag)
	util.InitLogger()

	client := scraper.NewClientWithConfig(scraper.Config{
		BaseURL: *siteFlag,
		Timeout: *timeoutFlag,
	})

	srv := server.New(client)
	if err := srv.ListenAndServe(*addrFlag); err != nil {
		util.Fatal(util.ErrorHandler(err))
	}
}
