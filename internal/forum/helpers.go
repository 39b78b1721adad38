package forum

import (
	"strconv"
	"time"
	"unicode"
	"unicode/utf16"
)

var avatarColors = []string{"#0b6b2d", "#7b4f2d", "#c23d3d", "#0b4c6b", "#6b2d6b"}

// TimeAgo renders how long before now t happened: "42s ago", "5m ago", "3h ago",
// "2d ago". Zero times render empty; times at or after now render "just now".
func TimeAgo(now, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	sec := int64(now.Sub(t) / time.Second)
	switch {
	case sec <= 0:
		return "just now"
	case sec < 60:
		return strconv.FormatInt(sec, 10) + "s ago"
	case sec < 60*60:
		return strconv.FormatInt(sec/60, 10) + "m ago"
	case sec < 24*60*60:
		return strconv.FormatInt(sec/3600, 10) + "h ago"
	default:
		return strconv.FormatInt(sec/86400, 10) + "d ago"
	}
}

// AvatarColor picks a stable avatar background for name. The hash runs over UTF-16
// code units with 32-bit shift wrap-around so every client agrees on the colour.
func AvatarColor(name string) string {
	var h int64
	for _, c := range utf16.Encode([]rune(name)) {
		h = int64(int32(uint32(h))<<5) - h + int64(c)
	}
	if h < 0 {
		h = -h
	}
	return avatarColors[h%int64(len(avatarColors))]
}

// Initial is the upper-cased first letter shown inside the avatar.
func Initial(name string) string {
	for _, r := range name {
		return string(unicode.ToUpper(r))
	}
	return ""
}
