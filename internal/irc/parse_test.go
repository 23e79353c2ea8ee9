package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Message
		ok   bool
	}{
		{
			name: "privmsg with prefix and trailing",
			line: ":alice!~alice@host.example PRIVMSG #quiz :jupiter",
			want: Message{Prefix: "alice!~alice@host.example", Command: "PRIVMSG", Params: []string{"#quiz"}, Trailing: "jupiter"},
			ok:   true,
		},
		{
			name: "server ping without prefix",
			line: "PING :irc.example.net",
			want: Message{Command: "PING", Trailing: "irc.example.net"},
			ok:   true,
		},
		{
			name: "numeric with several params",
			line: ":irc.example.net 001 quizbot :Welcome to the network",
			want: Message{Prefix: "irc.example.net", Command: "001", Params: []string{"quizbot"}, Trailing: "Welcome to the network"},
			ok:   true,
		},
		{
			name: "trailing with colons inside",
			line: ":alice!a@h PRIVMSG #quiz :the answer is 4:2",
			want: Message{Prefix: "alice!a@h", Command: "PRIVMSG", Params: []string{"#quiz"}, Trailing: "the answer is 4:2"},
			ok:   true,
		},
		{
			name: "lowercase command is normalized",
			line: "ping :irc.example.net",
			want: Message{Command: "PING", Trailing: "irc.example.net"},
			ok:   true,
		},
		{
			name: "crlf is stripped",
			line: "PING :srv\r\n",
			want: Message{Command: "PING", Trailing: "srv"},
			ok:   true,
		},
		{name: "empty line", line: "", ok: false},
		{name: "lone prefix", line: ":prefix.only", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNick(t *testing.T) {
	assert.Equal(t, "alice", Nick("alice!~alice@host"))
	assert.Equal(t, "irc.example.net", Nick("irc.example.net"))
	assert.Equal(t, "", Nick(""))
}

func TestPrivmsg(t *testing.T) {
	msg, ok := ParseLine(":bob!b@h PRIVMSG #trivia :paris")
	require.True(t, ok)

	channel, user, text, ok := Privmsg(msg)
	require.True(t, ok)
	assert.Equal(t, "#trivia", channel)
	assert.Equal(t, "bob", user)
	assert.Equal(t, "paris", text)
}

func TestPrivmsg_RejectsOtherCommands(t *testing.T) {
	msg, ok := ParseLine("PING :srv")
	require.True(t, ok)

	_, _, _, ok = Privmsg(msg)
	assert.False(t, ok)
}

func TestPrivmsg_RejectsMissingSender(t *testing.T) {
	msg := Message{Command: "PRIVMSG", Params: []string{"#quiz"}, Trailing: "hi"}
	_, _, _, ok := Privmsg(msg)
	assert.False(t, ok)
}