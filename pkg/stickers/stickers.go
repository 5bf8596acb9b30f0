// Package stickers parses the emote catalog document a room exposes and
// flattens it into a deduplicated sticker list.
package stickers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/liverelay/webcast/internal/errors"
	"github.com/liverelay/webcast/pkg/transport"
)

// cdnPrefix selects the image CDN variants worth keeping. The catalog lists
// several mirrors per emote; only this family serves stable URLs.
const cdnPrefix = "https://p16"

// Sticker is one emote from the room catalog.
type Sticker struct {
	EmoteID  string `json:"emote_id"`
	ImageURL string `json:"img"`
}

type emoteImage struct {
	URLList []string `json:"url_list"`
}

type emote struct {
	EmoteID string     `json:"emote_id"`
	Image   emoteImage `json:"image"`
}

type emoteDetail struct {
	EmoteList []emote `json:"emote_list"`
}

type packageEmote struct {
	EmoteDetail emoteDetail `json:"emote_detail"`
}

// document mirrors the catalog response. The six emote sources are merged
// in this order, first occurrence of an emote_id wins.
type document struct {
	Data struct {
		CurrentEmoteDetail emoteDetail `json:"current_emote_detail"`
		EmoteConfig        struct {
			DefaultEmoteList []emote `json:"default_emote_list"`
		} `json:"emote_config"`
		HighestSubWaveStrikeCustomEmote emoteDetail    `json:"highest_sub_wave_strike_custom_emote"`
		StableEmoteDetail               emoteDetail    `json:"stable_emote_detail"`
		SubWaveCustomEmote              emoteDetail    `json:"sub_wave_custom_emote"`
		PackageEmoteList                []packageEmote `json:"package_emote_list"`
	} `json:"data"`
}

// Parse flattens a catalog document into the sticker list. Missing sources
// are skipped; an emote without a usable CDN URL is dropped.
func Parse(doc []byte) ([]Sticker, error) {
	var parsed document
	if err := json.Unmarshal(doc, &parsed); err != nil {
		return nil, errors.Newf(errors.CategoryStream, "sticker catalog: %v", err).Wrap(err)
	}

	sources := [][]emote{
		parsed.Data.CurrentEmoteDetail.EmoteList,
		parsed.Data.EmoteConfig.DefaultEmoteList,
		parsed.Data.HighestSubWaveStrikeCustomEmote.EmoteList,
		parsed.Data.StableEmoteDetail.EmoteList,
		parsed.Data.SubWaveCustomEmote.EmoteList,
	}
	for _, pkg := range parsed.Data.PackageEmoteList {
		sources = append(sources, pkg.EmoteDetail.EmoteList)
	}

	seen := make(map[string]struct{})
	var out []Sticker
	for _, list := range sources {
		for _, em := range list {
			if em.EmoteID == "" {
				continue
			}
			if _, dup := seen[em.EmoteID]; dup {
				continue
			}
			url := pickURL(em.Image.URLList)
			if url == "" {
				continue
			}
			seen[em.EmoteID] = struct{}{}
			out = append(out, Sticker{EmoteID: em.EmoteID, ImageURL: url})
		}
	}
	return out, nil
}

func pickURL(urls []string) string {
	for _, u := range urls {
		if strings.HasPrefix(u, cdnPrefix) {
			return u
		}
	}
	return ""
}

// Fetch downloads and parses the catalog at url, sending the session cookies
// the push endpoint handed out.
func Fetch(ctx context.Context, client *http.Client, url string, cookies []transport.Cookie) ([]Sticker, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Newf(errors.CategoryStream, "sticker catalog fetch").Wrap(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf(errors.CategoryStream, "sticker catalog fetch: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	return Parse(body)
}
