package normalize

import "strings"

// profilePictureURL picks the most useful URL from the platform's list:
// 100x100 webp, then 100x100 jpeg, then anything not shrunk, then the first
// entry.
func profilePictureURL(urls []any) any {
	var strs []string
	for _, raw := range urls {
		if s, ok := raw.(string); ok {
			strs = append(strs, s)
		}
	}
	if len(strs) == 0 {
		return nil
	}
	for _, u := range strs {
		if strings.Contains(u, "100x100") && strings.Contains(u, ".webp") {
			return u
		}
	}
	for _, u := range strs {
		if strings.Contains(u, "100x100") && strings.Contains(u, ".jpeg") {
			return u
		}
	}
	for _, u := range strs {
		if !strings.Contains(u, "shrink") {
			return u
		}
	}
	return strs[0]
}

// flattenUser converts a nested user record into the flat field set the
// event contract promises: string identifiers, badge list, derived role
// flags, and the follow counters.
func flattenUser(user map[string]any) map[string]any {
	flat := make(map[string]any)

	if v, ok := user["userId"]; ok {
		flat["userId"] = asString(v)
	}
	if v, ok := user["secUid"]; ok {
		flat["secUid"] = asString(v)
	}
	if v, ok := user["uniqueId"].(string); ok && v != "" {
		flat["uniqueId"] = v
	}
	if v, ok := user["nickname"].(string); ok && v != "" {
		flat["nickname"] = v
	}

	picture := asMap(user["profilePicture"])
	flat["profilePictureUrl"] = profilePictureURL(asList(picture["urls"]))

	followInfo := asMap(user["followInfo"])
	if followInfo != nil {
		flat["followRole"] = followInfo["followStatus"]
		flat["followInfo"] = map[string]any{
			"followingCount": followInfo["followingCount"],
			"followerCount":  followInfo["followerCount"],
			"followStatus":   followInfo["followStatus"],
			"pushStatus":     followInfo["pushStatus"],
		}
	}

	badges := simplifyBadges(asList(user["badges"]))
	flat["userBadges"] = badges

	sceneTypes := make([]any, 0, len(asList(user["badges"])))
	for _, raw := range asList(user["badges"]) {
		sceneTypes = append(sceneTypes, asInt(asMap(raw)["badgeSceneType"]))
	}
	flat["userSceneTypes"] = sceneTypes

	details := map[string]any{
		"bioDescription":     user["bioDescription"],
		"profilePictureUrls": picture["urls"],
	}
	if v, ok := user["createTime"]; ok {
		details["createTime"] = asString(v)
	}
	flat["userDetails"] = details

	flat["isModerator"] = isModerator(badges)
	flat["isNewGifter"] = isNewGifter(badges)
	flat["isSubscriber"] = isSubscriber(badges)
	flat["topGifterRank"] = topGifterRank(badges)
	flat["gifterLevel"] = levelForScene(badges, sceneGifter)
	flat["teamMemberLevel"] = levelForScene(badges, sceneTeam)

	return flat
}
