package scrape

import "errors"

var (
	// ErrFetch indicates the search page could not be downloaded.
	ErrFetch = errors.New("scrape: fetch failed")
	// ErrParse indicates the response body was not parseable HTML.
	ErrParse = errors.New("scrape: parse failed")
)
