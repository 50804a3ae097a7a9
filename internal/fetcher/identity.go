package fetcher

import (
	"math/rand"
	"net/http"
	"net/url"
	"strings"
)

// Rotating identity pools. All read-only; an entry is picked at random
// per fetch so successive requests don't share a fingerprint.

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.2277.83",
}

var referrers = []string{
	"https://www.google.com/search?q=",
	"https://www.bing.com/search?q=",
	"https://www.facebook.com/",
	"https://t.co/",
	"https://www.instagram.com/",
	"https://www.pinterest.com/",
	"https://www.reddit.com/",
	"https://duckduckgo.com/?q=",
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.8",
	"en;q=0.7",
}

var viewportWidths = []string{"1920", "1366", "1536", "1440", "1280"}

// Identity is one randomized browser fingerprint for a single fetch.
type Identity struct {
	UserAgent      string
	Referer        string
	AcceptLanguage string
	ViewportWidth  string
}

// NewIdentity picks a random identity for the target URL. Search-engine
// referers get a plausible query derived from the target's host appended.
func NewIdentity(pageURL string, userAgents []string) Identity {
	if len(userAgents) == 0 {
		userAgents = defaultUserAgents
	}

	referer := referrers[rand.Intn(len(referrers))]
	if strings.Contains(referer, "?q=") {
		if u, err := url.Parse(pageURL); err == nil {
			query := strings.ReplaceAll(u.Hostname(), ".", " ")
			referer += url.QueryEscape(query)
		}
	}

	return Identity{
		UserAgent:      userAgents[rand.Intn(len(userAgents))],
		Referer:        referer,
		AcceptLanguage: acceptLanguages[rand.Intn(len(acceptLanguages))],
		ViewportWidth:  viewportWidths[rand.Intn(len(viewportWidths))],
	}
}

// Apply sets browser-emulating headers on a request.
func (id Identity) Apply(req *http.Request) {
	req.Header.Set("User-Agent", id.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", id.AcceptLanguage)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	req.Header.Set("Referer", id.Referer)
	req.Header.Set("Viewport-Width", id.ViewportWidth)
	req.Header.Set("DNT", "1")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Cache-Control", "max-age=0")
	req.Header.Set("Sec-Ch-Ua", `"Not A(Brand";v="99", "Google Chrome";v="121", "Chromium";v="121"`)
	req.Header.Set("Sec-Ch-Ua-Mobile", "?0")
	req.Header.Set("Sec-Ch-Ua-Platform", `"Windows"`)
}
