package domain

import "time"

// ChatEvent is one inbound chat line as delivered by the transport.
type ChatEvent struct {
	Channel string
	User    string
	Text    string
	At      time.Time
}

// Announcer sends outbound text lines to a channel. The transport owns
// delivery ordering and formatting.
type Announcer interface {
	Say(channel, line string)
}
