package live

import (
	"testing"

	werrors "github.com/liverelay/webcast/internal/errors"
)

func TestParsePlatform(t *testing.T) {
	cases := []struct {
		in      string
		want    Platform
		wantErr bool
	}{
		{"tiktok", PlatformTikTok, false},
		{" TikTok ", PlatformTikTok, false},
		{"kick", PlatformKick, false},
		{"KICK", PlatformKick, false},
		{"twitch", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParsePlatform(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParsePlatform(%q): expected error", tc.in)
			} else if code := werrors.CodeOf(err); code != werrors.CodeBadPlatform {
				t.Errorf("ParsePlatform(%q): code = %q", tc.in, code)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePlatform(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParsePlatform(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCanonicalTarget(t *testing.T) {
	cases := []struct {
		platform Platform
		in, want string
	}{
		{PlatformTikTok, "somecreator", "@somecreator"},
		{PlatformTikTok, "@somecreator", "@somecreator"},
		{PlatformTikTok, "  somecreator  ", "@somecreator"},
		{PlatformTikTok, "", ""},
		{PlatformKick, "somecreator", "somecreator"},
		{PlatformKick, " somecreator ", "somecreator"},
	}
	for _, tc := range cases {
		if got := CanonicalTarget(tc.platform, tc.in); got != tc.want {
			t.Errorf("CanonicalTarget(%s, %q) = %q, want %q", tc.platform, tc.in, got, tc.want)
		}
	}
}
