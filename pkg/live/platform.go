package live

import (
	"strings"

	"github.com/liverelay/webcast/internal/errors"
)

// Platform selects the connection variant for a target.
type Platform string

const (
	PlatformTikTok Platform = "tiktok"
	PlatformKick   Platform = "kick"
)

// ParsePlatform maps a wire string to a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformTikTok:
		return PlatformTikTok, nil
	case PlatformKick:
		return PlatformKick, nil
	default:
		return "", errors.New(errors.CodeBadPlatform).WithDetail("platform %q", s)
	}
}

// CanonicalTarget normalizes a target identifier for registry keying.
// TikTok targets always carry the leading @; Kick targets are just trimmed.
func CanonicalTarget(p Platform, target string) string {
	target = strings.TrimSpace(target)
	if p == PlatformTikTok && target != "" && !strings.HasPrefix(target, "@") {
		return "@" + target
	}
	return target
}
