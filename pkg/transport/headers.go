package transport

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	originURL = "https://www.tiktok.com"
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0"

	// browserVersion overrides the browser_version query parameter on the
	// session URL, matching what the capture path saw in a real browser.
	browserVersion = "5.0 (Windows)"
)

// selectedCookieNames is the whitelist of cookie names forwarded on the
// upgrade request. Everything else harvested from the platform is dropped.
var selectedCookieNames = []string{
	"ttwid",
	"tt_chain_token",
	"odin_tt",
	"sid_guard",
	"uid_tt",
	"bm_sv",
}

// Cookie is one session cookie handed over by the credential source.
type Cookie struct {
	Name  string
	Value string
}

// filterCookies formats the whitelisted subset of cookies as a Cookie
// header value.
func filterCookies(cookies []Cookie) string {
	var parts []string
	for _, c := range cookies {
		for _, name := range selectedCookieNames {
			if c.Name == name {
				parts = append(parts, c.Name+"="+c.Value)
				break
			}
		}
	}
	return strings.Join(parts, "; ")
}

// sessionHeaders builds the platform-mimicking header set for the upgrade
// request. The websocket-specific headers (key, version, upgrade) are owned
// by the dialer.
func sessionHeaders(cookies []Cookie) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "*/*")
	h.Set("Accept-Language", "es-ES,es;q=0.8,en-US;q=0.5,en;q=0.3")
	h.Set("Cache-Control", "no-cache")
	h.Set("Pragma", "no-cache")
	h.Set("Origin", originURL)
	if cookie := filterCookies(cookies); cookie != "" {
		h.Set("Cookie", cookie)
	}
	return h
}

// sessionURL rewrites the harvested socket URL with the browser_version
// override, keeping every other query parameter as captured.
func sessionURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("browser_version", browserVersion)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
