// Package normalize flattens decoded webcast submessages into the flat
// records handed to consumers: nested user, gift, event, emote, battle and
// treasure-box wrappers are merged into the top level, wide numeric
// identifiers are converted to strings, and role flags are derived from the
// badge list.
//
// Flatten is a pure function with no shared state; every merge is
// shallow-overwrite with later merges winning on key collisions.
package normalize
