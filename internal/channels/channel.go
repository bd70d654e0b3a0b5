// internal/channels/channel.go
package channels

import "strings"

// Channel is the closed set of delivery channels the engine knows about.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelChat  Channel = "chat"
	ChannelPush  Channel = "push"
)

// Normalize maps a raw channel identifier onto the closed channel set,
// case-insensitively. Unrecognized values default to email.
func Normalize(raw string) Channel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "email":
		return ChannelEmail
	case "sms":
		return ChannelSMS
	case "chat":
		return ChannelChat
	case "push":
		return ChannelPush
	default:
		return ChannelEmail
	}
}

// Merge unions extra channels into an existing set. Values are normalized and
// deduplicated; first-seen order is preserved so earlier channels keep their
// position across escalations.
func Merge(existing []string, extra ...string) []string {
	seen := make(map[Channel]bool, len(existing)+len(extra))
	merged := make([]string, 0, len(existing)+len(extra))

	add := func(raw string) {
		ch := Normalize(raw)
		if !seen[ch] {
			seen[ch] = true
			merged = append(merged, string(ch))
		}
	}
	for _, c := range existing {
		add(c)
	}
	for _, c := range extra {
		add(c)
	}
	return merged
}
