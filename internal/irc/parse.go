// Package irc is the chat transport: a thin client speaking just enough IRC
// for the bot to join channels, read messages and reply.
package irc

import "strings"

// Message is one parsed IRC line.
type Message struct {
	Prefix   string
	Command  string
	Params   []string
	Trailing string
}

// ParseLine splits a raw IRC line into prefix, command, params and trailing.
// Pure; no protocol state.
func ParseLine(line string) (Message, bool) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Message{}, false
	}

	var msg Message
	rest := line

	if strings.HasPrefix(rest, ":") {
		idx := strings.Index(rest, " ")
		if idx == -1 {
			return Message{}, false
		}
		msg.Prefix = rest[1:idx]
		rest = rest[idx+1:]
	}

	if idx := strings.Index(rest, " :"); idx != -1 {
		msg.Trailing = rest[idx+2:]
		rest = rest[:idx]
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return Message{}, false
	}
	msg.Command = strings.ToUpper(fields[0])
	if len(fields) > 1 {
		msg.Params = fields[1:]
	}
	return msg, true
}

// Nick extracts the sender nick from a message prefix ("nick!user@host").
func Nick(prefix string) string {
	if idx := strings.Index(prefix, "!"); idx != -1 {
		return prefix[:idx]
	}
	return prefix
}

// Privmsg converts a parsed PRIVMSG into a chat event. Returns false for any
// other command or a malformed line.
func Privmsg(msg Message) (channel, user, text string, ok bool) {
	if msg.Command != "PRIVMSG" || len(msg.Params) == 0 || msg.Trailing == "" {
		return "", "", "", false
	}
	user = Nick(msg.Prefix)
	if user == "" {
		return "", "", "", false
	}
	return msg.Params[0], user, msg.Trailing, true
}
