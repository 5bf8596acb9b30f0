package normalize

import "encoding/json"

// Flatten turns a decoded submessage record into the flat record emitted to
// consumers. It is a pure function: the input map is not modified, all
// merges are shallow-overwrite with later merges winning, and fields outside
// the merge rules pass through unchanged. Running Flatten on an already-flat
// record is a no-op.
func Flatten(decoded map[string]any) map[string]any {
	flat := make(map[string]any, len(decoded))
	merge(flat, decoded)

	// questionDetails first: it may carry the user record flattened next.
	if details := asMap(flat["questionDetails"]); details != nil {
		merge(flat, details)
		delete(flat, "questionDetails")
	}

	if user := asMap(flat["user"]); user != nil {
		merge(flat, flattenUser(user))
		delete(flat, "user")
	}

	if event := asMap(flat["event"]); event != nil {
		merge(flat, flattenEvent(event))
		delete(flat, "event")
	}
	if details := asMap(flat["eventDetails"]); details != nil {
		merge(flat, details)
		delete(flat, "eventDetails")
	}

	if viewers := asList(flat["topViewers"]); viewers != nil {
		flat["topViewers"] = flattenTopViewers(viewers)
	}

	flattenBattles(flat)
	flattenGift(flat)
	flattenEmotes(flat)
	flattenTreasureBox(flat)

	return flat
}

// flattenEvent stringifies the wide identifiers of the shared event header.
func flattenEvent(event map[string]any) map[string]any {
	out := make(map[string]any, len(event))
	merge(out, event)
	if v, ok := out["msgId"]; ok {
		out["msgId"] = asString(v)
	}
	if v, ok := out["createTime"]; ok {
		out["createTime"] = asString(v)
	}
	return out
}

func flattenTopViewers(viewers []any) []any {
	out := make([]any, 0, len(viewers))
	for _, raw := range viewers {
		viewer := asMap(raw)
		if viewer == nil {
			continue
		}
		entry := map[string]any{"coinCount": asInt(viewer["coinCount"])}
		if user := asMap(viewer["user"]); user != nil {
			entry["user"] = flattenUser(user)
		} else {
			entry["user"] = nil
		}
		out = append(out, entry)
	}
	return out
}

// flattenBattles rewrites link-mic battle structures: battleUsers becomes a
// list of flat users, battleItems becomes battleArmies.
func flattenBattles(flat map[string]any) {
	if users := asList(flat["battleUsers"]); users != nil {
		out := make([]any, 0, len(users))
		for _, raw := range users {
			group := asMap(asMap(raw)["battleGroup"])
			if user := asMap(group["user"]); user != nil {
				out = append(out, flattenUser(user))
			}
		}
		flat["battleUsers"] = out
	}

	items := asList(flat["battleItems"])
	if items == nil {
		return
	}
	armies := make([]any, 0, len(items))
	for _, rawItem := range items {
		item := asMap(rawItem)
		if item == nil {
			continue
		}
		hostID := asString(item["hostUserId"])
		for _, rawGroup := range asList(item["battleGroups"]) {
			group := asMap(rawGroup)
			if group == nil {
				continue
			}
			participants := make([]any, 0)
			for _, rawUser := range asList(group["users"]) {
				if user := asMap(rawUser); user != nil {
					participants = append(participants, flattenUser(user))
				}
			}
			armies = append(armies, map[string]any{
				"hostUserId":   hostID,
				"points":       asInt(group["points"]),
				"participants": participants,
			})
		}
	}
	flat["battleArmies"] = armies
	delete(flat, "battleItems")
}

// flattenGift derives the compact gift summary and merges the nested gift
// structures into the top level.
func flattenGift(flat map[string]any) {
	if _, ok := flat["giftId"]; !ok {
		return
	}

	repeatEnd := asBool(flat["repeatEnd"])
	flat["repeatEnd"] = repeatEnd

	details := asMap(flat["giftDetails"])
	summary := map[string]any{
		"gift_id":      flat["giftId"],
		"repeat_count": flat["repeatCount"],
		"repeat_end":   asInt(repeatEnd),
	}
	if details != nil {
		summary["gift_type"] = details["giftType"]
	} else if prev := asMap(flat["gift"]); prev != nil {
		// Re-run on an already-flat record: the details wrapper is gone,
		// keep the previously derived type.
		summary["gift_type"] = prev["gift_type"]
	}
	flat["gift"] = summary

	if details != nil {
		merge(flat, details)
		delete(flat, "giftDetails")
	}
	if image := asMap(flat["giftImage"]); image != nil {
		merge(flat, image)
		delete(flat, "giftImage")
	}
	if extra := asMap(flat["giftExtra"]); extra != nil {
		merge(flat, extra)
		delete(flat, "giftExtra")
		if v, ok := flat["receiverUserId"]; ok {
			flat["receiverUserId"] = asString(v)
		}
		if v, ok := flat["timestamp"]; ok {
			flat["timestamp"] = asInt(v)
		}
	}
	if v, ok := flat["groupId"]; ok {
		flat["groupId"] = asString(v)
	}

	if extra, ok := flat["monitorExtra"].(string); ok && len(extra) > 0 && extra[0] == '{' {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(extra), &parsed); err == nil {
			flat["monitorExtra"] = parsed
		}
	}
}

func flattenEmotes(flat map[string]any) {
	if emote := asMap(flat["emote"]); emote != nil {
		flat["emoteId"] = emote["emoteId"]
		flat["emoteImageUrl"] = asMap(emote["image"])["imageUrl"]
		delete(flat, "emote")
	}

	emotes := asList(flat["emotes"])
	if emotes == nil {
		return
	}
	out := make([]any, 0, len(emotes))
	for _, raw := range emotes {
		entry := asMap(raw)
		emote := asMap(entry["emote"])
		out = append(out, map[string]any{
			"emoteId":        emote["emoteId"],
			"emoteImageUrl":  asMap(emote["image"])["imageUrl"],
			"placeInComment": entry["placeInComment"],
		})
	}
	flat["emotes"] = out
}

// flattenTreasureBox digs the sender out of the deeply wrapped treasure-box
// user path and merges the box data itself.
func flattenTreasureBox(flat map[string]any) {
	if boxUser := asMap(flat["treasureBoxUser"]); boxUser != nil {
		user3 := asList(asMap(boxUser["user2"])["user3"])
		if len(user3) > 0 {
			user4 := asMap(asMap(user3[0])["user4"])
			if user := asMap(user4["user"]); user != nil {
				merge(flat, flattenUser(user))
			}
		}
		delete(flat, "treasureBoxUser")
	}

	if boxData := asMap(flat["treasureBoxData"]); boxData != nil {
		merge(flat, boxData)
		delete(flat, "treasureBoxData")
		if v, ok := flat["timestamp"]; ok {
			flat["timestamp"] = asInt(v)
		}
	}
}
