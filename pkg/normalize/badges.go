package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

// Badge scene types with contractual meaning.
const (
	sceneModerator  = 1
	sceneSubscriber = 4
	sceneSubGoal    = 7
	sceneGifter     = 8
	sceneTeam       = 10
)

var topGifterRankRe = regexp.MustCompile(`ranklist_top_gifter_(\d+)\.png`)

// simplifyBadges flattens the platform's grouped badge structure into one
// list of badge records, each tagged with the badgeSceneType of the group
// it came from. Groups carry three shapes of badge: plain text badges,
// image badges, and privilege levels.
func simplifyBadges(groups []any) []any {
	var simplified []any

	for _, raw := range groups {
		group := asMap(raw)
		if group == nil {
			continue
		}
		sceneType := asInt(group["badgeSceneType"])

		for _, rawBadge := range asList(group["badges"]) {
			badge := asMap(rawBadge)
			if badge == nil {
				continue
			}
			entry := map[string]any{"badgeSceneType": sceneType}
			merge(entry, badge)
			entry["badgeSceneType"] = sceneType
			simplified = append(simplified, entry)
		}

		for _, rawBadge := range asList(group["imageBadges"]) {
			badge := asMap(rawBadge)
			if badge == nil {
				continue
			}
			image := asMap(badge["image"])
			url, _ := image["url"].(string)
			if url == "" {
				continue
			}
			simplified = append(simplified, map[string]any{
				"type":           "image",
				"badgeSceneType": sceneType,
				"displayType":    badge["displayType"],
				"url":            url,
			})
		}

		if privilege := asMap(group["privilegeLogExtra"]); privilege != nil {
			level, _ := privilege["level"].(string)
			if level != "" && level != "0" {
				parsed, _ := strconv.Atoi(level)
				simplified = append(simplified, map[string]any{
					"type":           "privilege",
					"badgeSceneType": sceneType,
					"privilegeId":    privilege["privilegeId"],
					"level":          parsed,
				})
			}
		}
	}

	return simplified
}

func badgeType(badge map[string]any) string {
	t, _ := badge["type"].(string)
	return t
}

func badgeURL(badge map[string]any) string {
	u, _ := badge["url"].(string)
	return u
}

// isModerator: scene type 1 or a badge type naming moderation.
func isModerator(badges []any) bool {
	for _, raw := range badges {
		badge := asMap(raw)
		if containsFold(badgeType(badge), "moderator") || asInt(badge["badgeSceneType"]) == sceneModerator {
			return true
		}
	}
	return false
}

// isNewGifter: a badge type carrying the live_ng_ tag.
func isNewGifter(badges []any) bool {
	for _, raw := range badges {
		if containsFold(badgeType(asMap(raw)), "live_ng_") {
			return true
		}
	}
	return false
}

// isSubscriber: a /sub_ badge URL or scene type 4 or 7.
func isSubscriber(badges []any) bool {
	for _, raw := range badges {
		badge := asMap(raw)
		if strings.Contains(strings.ToLower(badgeURL(badge)), "/sub_") {
			return true
		}
		scene := asInt(badge["badgeSceneType"])
		if scene == sceneSubscriber || scene == sceneSubGoal {
			return true
		}
	}
	return false
}

// topGifterRank extracts the numeric rank from a ranklist_top_gifter badge
// URL, or nil when absent.
func topGifterRank(badges []any) any {
	for _, raw := range badges {
		url := badgeURL(asMap(raw))
		if !strings.Contains(url, "/ranklist_top_gifter_") {
			continue
		}
		m := topGifterRankRe.FindStringSubmatch(url)
		if m == nil {
			return nil
		}
		rank, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		return rank
	}
	return nil
}

// levelForScene returns the level of the first badge with the given scene
// type, or 0.
func levelForScene(badges []any, sceneType int) int {
	for _, raw := range badges {
		badge := asMap(raw)
		if asInt(badge["badgeSceneType"]) == sceneType {
			return asInt(badge["level"])
		}
	}
	return 0
}
